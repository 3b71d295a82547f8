package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/carlmjohnson/versioninfo"
	"github.com/qepting91/reblogbot/internal/collector"
	"github.com/qepting91/reblogbot/internal/config"
	"github.com/qepting91/reblogbot/internal/engine"
	"github.com/qepting91/reblogbot/internal/metrics"
	"github.com/qepting91/reblogbot/internal/scheduler"
	"github.com/qepting91/reblogbot/internal/storage"
	"github.com/qepting91/reblogbot/internal/templates"
	cli "github.com/urfave/cli/v2"
)

func main() {
	if err := run(os.Args); err != nil {
		slog.Error("exiting", "err", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	// Secrets and blog settings live in dotenv files next to the binary.
	if err := config.LoadEnvFiles(envFiles(args)...); err != nil {
		return err
	}

	app := cli.App{
		Name:    "reblogbot",
		Usage:   "searches tags and reblogs matching posts on a schedule",
		Version: versioninfo.Short(),
		Flags:   globalFlags(),
	}

	app.Commands = []*cli.Command{
		runCmd,
		checkTemplatesCmd,
	}

	return app.Run(args)
}

// envFiles picks --env-file values out of args before the app parses them so
// the files can feed flag defaults. godotenv never overrides a variable that
// is already set, so explicit files come before the defaults.
func envFiles(args []string) []string {
	var files []string
	for i := 1; i < len(args); i++ {
		switch a := args[i]; {
		case a == "--env-file" && i+1 < len(args):
			files = append(files, args[i+1])
			i++
		case strings.HasPrefix(a, "--env-file="):
			files = append(files, strings.TrimPrefix(a, "--env-file="))
		}
	}
	return append(files, ".env.secret", ".env.blog")
}

var runCmd = &cli.Command{
	Name:  "run",
	Usage: "run the search/reblog loop",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "metrics-listen",
			Usage:   "IP or address, and port, to serve /metrics on (empty disables)",
			EnvVars: []string{"REBLOGBOT_METRICS_LISTEN", "metrics_listen"},
		},
	},
	Action: func(cctx *cli.Context) error {
		cfg, err := configFromCLI(cctx)
		if err != nil {
			return err
		}

		logger, closeLog, err := newLogger(cctx, cfg)
		if err != nil {
			return err
		}
		defer closeLog()
		slog.SetDefault(logger)
		logger.Info("logging start", "mode", cfg.Mode, "blog", cfg.Blog, "version", versioninfo.Short())

		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		if addr := cctx.String("metrics-listen"); addr != "" {
			go func() {
				if err := metrics.Serve(ctx, addr, logger); err != nil {
					logger.Error("metrics server failed", "err", err)
				}
			}()
		}

		platform, err := collector.NewPlatform(cfg, logger)
		if err != nil {
			return fmt.Errorf("initialize collector: %w", err)
		}

		eng := engine.New(platform, engine.Config{
			Blog:        cfg.Blog,
			State:       cfg.State,
			Format:      cfg.Format,
			SearchLimit: cfg.SearchLimit,
			WindowStep:  cfg.WindowStep,
			MaxLookback: cfg.MaxLookback,
			CallTimeout: cfg.CallTimeout,
		}, nil, logger.With("component", "engine"))

		loop := scheduler.New(platform, eng, scheduler.Config{
			Blog:             cfg.Blog,
			SearchTemplateID: cfg.SearchTemplateID,
			ReblogTemplateID: cfg.ReblogTemplateID,
			DNITemplateID:    cfg.DNITemplateID,
			LikePosts:        cfg.LikePosts,
			RunContinuously:  cfg.RunContinuously,
			Pacing:           cfg.SleepTime,
			IdleBackoff:      cfg.IdleBackoff,
			ActiveInterval:   cfg.ActiveInterval,
			SeedHistory:      cfg.SeedHistory,
			RefreshHistory:   cfg.RefreshHistory,
		}, nil, logger.With("component", "scheduler"))

		if err := loop.Run(ctx); err != nil {
			return err
		}
		logger.Info("reblogbot stopped", "ledger_size", loop.Ledger().Len())
		return nil
	},
}

var checkTemplatesCmd = &cli.Command{
	Name:  "check-templates",
	Usage: "fetch and parse the configured templates, then exit",
	Action: func(cctx *cli.Context) error {
		cfg, err := configFromCLI(cctx)
		if err != nil {
			return err
		}
		logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))

		platform, err := collector.NewPlatform(cfg, logger)
		if err != nil {
			return fmt.Errorf("initialize collector: %w", err)
		}

		ctx := cctx.Context
		out := cctx.App.Writer
		for _, t := range []struct {
			name string
			id   string
		}{
			{"search", cfg.SearchTemplateID},
			{"reblog", cfg.ReblogTemplateID},
			{"dni", cfg.DNITemplateID},
		} {
			if t.id == "" {
				fmt.Fprintf(out, "%s: not configured\n", t.name)
				continue
			}
			tpl, err := templates.Fetch(ctx, platform, cfg.Blog, t.id)
			if err != nil {
				return fmt.Errorf("%s template: %w", t.name, err)
			}
			fmt.Fprintf(out, "%s: title=%q comment=%q tags=%v\n", t.name, tpl.Title, tpl.Comment, tpl.Tags)
			if t.name == "dni" {
				ex := templates.Exclusions(&tpl)
				fmt.Fprintf(out, "dni: %d user(s), %d tag(s)\n", len(ex.Users), len(ex.Tags))
			}
		}
		return nil
	},
}

func newLogger(cctx *cli.Context, cfg *config.Config) (*slog.Logger, func(), error) {
	level := slog.LevelInfo
	if cctx.Bool("debug") {
		level = slog.LevelDebug
	}

	var w io.Writer = os.Stdout
	closeFn := func() {}
	if cfg.LogDir != "" {
		rf, err := storage.OpenRotatingFile(cfg.LogDir, "reblogbot.log", cfg.LogRotateDays)
		if err != nil {
			return nil, nil, err
		}
		w = io.MultiWriter(os.Stdout, rf)
		closeFn = func() { rf.Close() }
	}

	logger := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
	return logger, closeFn, nil
}
