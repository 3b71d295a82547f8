package main

import (
	"time"

	"github.com/qepting91/reblogbot/internal/config"
	cli "github.com/urfave/cli/v2"
)

// Each option also answers to the lowercase key used in .env.blog and
// .env.secret.
func globalFlags() []cli.Flag {
	d := config.Defaults()
	return []cli.Flag{
		&cli.StringSliceFlag{
			Name:  "env-file",
			Usage: "extra dotenv file to load (repeatable)",
		},
		&cli.BoolFlag{
			Name:    "debug",
			Usage:   "log at debug level",
			EnvVars: []string{"REBLOGBOT_DEBUG"},
		},
		&cli.StringFlag{
			Name:    "mode",
			Usage:   "platform backend: tumblr, reddit or mock",
			Value:   d.Mode,
			EnvVars: []string{"REBLOGBOT_MODE", "mode"},
		},
		&cli.StringFlag{
			Name:    "blog",
			Usage:   "target blog that owns the templates and receives reblogs",
			EnvVars: []string{"REBLOGBOT_BLOG", "blog"},
		},
		&cli.StringFlag{
			Name:    "search-template",
			Usage:   "post id of the search template",
			EnvVars: []string{"REBLOGBOT_SEARCH_TEMPLATE", "search_template"},
		},
		&cli.StringFlag{
			Name:    "reblog-template",
			Usage:   "post id of the reblog template",
			EnvVars: []string{"REBLOGBOT_REBLOG_TEMPLATE", "reblog_template"},
		},
		&cli.StringFlag{
			Name:    "dni-template",
			Usage:   "post id of the do-not-interact template (optional)",
			EnvVars: []string{"REBLOGBOT_DNI_TEMPLATE", "dni_template"},
		},
		&cli.StringFlag{
			Name:    "state",
			Usage:   "state of reblogs: published, queue, draft or private",
			Value:   d.State,
			EnvVars: []string{"REBLOGBOT_STATE", "state"},
		},
		&cli.StringFlag{
			Name:    "format",
			Usage:   "format of the reblog comment: html or markdown",
			Value:   d.Format,
			EnvVars: []string{"REBLOGBOT_FORMAT", "format"},
		},
		&cli.BoolFlag{
			Name:    "like-post",
			Usage:   "like each post before reblogging it",
			Value:   d.LikePosts,
			EnvVars: []string{"REBLOGBOT_LIKE_POST", "like_post"},
		},
		&cli.BoolFlag{
			Name:    "run-continuously",
			Usage:   "keep cycling; when false, exit after one cycle",
			Value:   d.RunContinuously,
			EnvVars: []string{"REBLOGBOT_RUN_CONTINUOUSLY", "run_continuously"},
		},
		&cli.IntFlag{
			Name:    "sleep-time",
			Usage:   "seconds to pause after each reblog",
			Value:   int(d.SleepTime / time.Second),
			EnvVars: []string{"REBLOGBOT_SLEEP_TIME", "sleep_time"},
		},
		&cli.DurationFlag{
			Name:    "idle-backoff",
			Usage:   "sleep after a cycle that reblogged nothing",
			Value:   d.IdleBackoff,
			EnvVars: []string{"REBLOGBOT_IDLE_BACKOFF", "idle_backoff"},
		},
		&cli.DurationFlag{
			Name:    "active-interval",
			Usage:   "sleep after a cycle that reblogged something",
			Value:   d.ActiveInterval,
			EnvVars: []string{"REBLOGBOT_ACTIVE_INTERVAL", "active_interval"},
		},
		&cli.IntFlag{
			Name:    "seed-history",
			Usage:   "number of blog posts used to seed the dedup ledger at startup",
			Value:   d.SeedHistory,
			EnvVars: []string{"REBLOGBOT_SEED_HISTORY", "seed_history"},
		},
		&cli.IntFlag{
			Name:    "refresh-history",
			Usage:   "number of recent blog posts merged into the ledger each cycle",
			Value:   d.RefreshHistory,
			EnvVars: []string{"REBLOGBOT_REFRESH_HISTORY", "refresh_history"},
		},
		&cli.IntFlag{
			Name:    "search-limit",
			Usage:   "max posts per tag query",
			Value:   d.SearchLimit,
			EnvVars: []string{"REBLOGBOT_SEARCH_LIMIT", "search_limit"},
		},
		&cli.DurationFlag{
			Name:    "window-step",
			Usage:   "how far back each widened tag search moves",
			Value:   d.WindowStep,
			EnvVars: []string{"REBLOGBOT_WINDOW_STEP", "window_step"},
		},
		&cli.DurationFlag{
			Name:    "max-lookback",
			Usage:   "upper bound on widened tag searches",
			Value:   d.MaxLookback,
			EnvVars: []string{"REBLOGBOT_MAX_LOOKBACK", "max_lookback"},
		},
		&cli.DurationFlag{
			Name:    "call-timeout",
			Usage:   "timeout per platform call (0 disables)",
			Value:   d.CallTimeout,
			EnvVars: []string{"REBLOGBOT_CALL_TIMEOUT", "call_timeout"},
		},
		&cli.Float64Flag{
			Name:    "requests-per-second",
			Usage:   "max platform requests per second",
			Value:   d.RequestsPerSecond,
			EnvVars: []string{"REBLOGBOT_REQUESTS_PER_SECOND", "requests_per_second"},
		},
		&cli.StringFlag{
			Name:    "log-dir",
			Usage:   "directory for the rotating log file (empty logs to stdout only)",
			Value:   d.LogDir,
			EnvVars: []string{"REBLOGBOT_LOG_DIR", "log_dir"},
		},
		&cli.IntFlag{
			Name:    "log-rotate-days",
			Usage:   "days between log file rotations",
			Value:   d.LogRotateDays,
			EnvVars: []string{"REBLOGBOT_LOG_ROTATE_DAYS", "log_rotate_days"},
		},
		&cli.StringFlag{
			Name:    "fixtures",
			Usage:   "CSV fixture file for mock mode",
			EnvVars: []string{"REBLOGBOT_FIXTURES", "fixtures"},
		},
		&cli.StringFlag{
			Name:    "reblog-subreddit",
			Usage:   "subreddit that receives reblogs in reddit mode (default u_<blog>)",
			EnvVars: []string{"REBLOGBOT_REBLOG_SUBREDDIT", "reblog_subreddit"},
		},
		&cli.StringFlag{
			Name:    "consumer-key",
			Usage:   "tumblr consumer (api) key",
			EnvVars: []string{"TUMBLR_CONSUMER_KEY", "consumer_key"},
		},
		&cli.StringFlag{
			Name:    "oauth-token",
			Usage:   "tumblr OAuth2 access token",
			EnvVars: []string{"TUMBLR_OAUTH_TOKEN", "oauth_token"},
		},
		&cli.StringFlag{
			Name:    "reddit-client-id",
			EnvVars: []string{"REDDIT_CLIENT_ID", "reddit_client_id"},
		},
		&cli.StringFlag{
			Name:    "reddit-client-secret",
			EnvVars: []string{"REDDIT_CLIENT_SECRET", "reddit_client_secret"},
		},
		&cli.StringFlag{
			Name:    "reddit-username",
			EnvVars: []string{"REDDIT_USERNAME", "reddit_username"},
		},
		&cli.StringFlag{
			Name:    "reddit-password",
			EnvVars: []string{"REDDIT_PASSWORD", "reddit_password"},
		},
		&cli.StringFlag{
			Name:    "reddit-user-agent",
			EnvVars: []string{"REDDIT_USER_AGENT", "reddit_user_agent"},
		},
	}
}

func configFromCLI(cctx *cli.Context) (*config.Config, error) {
	cfg := &config.Config{
		Mode: cctx.String("mode"),
		Credentials: config.Credentials{
			ConsumerKey:        cctx.String("consumer-key"),
			OAuthToken:         cctx.String("oauth-token"),
			RedditClientID:     cctx.String("reddit-client-id"),
			RedditClientSecret: cctx.String("reddit-client-secret"),
			RedditUsername:     cctx.String("reddit-username"),
			RedditPassword:     cctx.String("reddit-password"),
			RedditUserAgent:    cctx.String("reddit-user-agent"),
		},
		Blog:              cctx.String("blog"),
		SearchTemplateID:  cctx.String("search-template"),
		ReblogTemplateID:  cctx.String("reblog-template"),
		DNITemplateID:     cctx.String("dni-template"),
		State:             cctx.String("state"),
		Format:            cctx.String("format"),
		LikePosts:         cctx.Bool("like-post"),
		RunContinuously:   cctx.Bool("run-continuously"),
		SleepTime:         time.Duration(cctx.Int("sleep-time")) * time.Second,
		IdleBackoff:       cctx.Duration("idle-backoff"),
		ActiveInterval:    cctx.Duration("active-interval"),
		SeedHistory:       cctx.Int("seed-history"),
		RefreshHistory:    cctx.Int("refresh-history"),
		SearchLimit:       cctx.Int("search-limit"),
		WindowStep:        cctx.Duration("window-step"),
		MaxLookback:       cctx.Duration("max-lookback"),
		CallTimeout:       cctx.Duration("call-timeout"),
		RequestsPerSecond: cctx.Float64("requests-per-second"),
		LogDir:            cctx.String("log-dir"),
		LogRotateDays:     cctx.Int("log-rotate-days"),
		FixturesPath:      cctx.String("fixtures"),
		ReblogSubreddit:   cctx.String("reblog-subreddit"),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
