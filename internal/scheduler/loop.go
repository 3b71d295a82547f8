// Package scheduler drives repeated search cycles. It alternates between
// searching and sleeping, sleeping briefly after an empty cycle and for a long
// interval after a productive one.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/qepting91/reblogbot/internal/clock"
	"github.com/qepting91/reblogbot/internal/domain"
	"github.com/qepting91/reblogbot/internal/engine"
	"github.com/qepting91/reblogbot/internal/ledger"
	"github.com/qepting91/reblogbot/internal/metrics"
	"github.com/qepting91/reblogbot/internal/templates"
)

// Searcher runs one pass over the search tags.
type Searcher interface {
	Run(ctx context.Context, params engine.Params) (int, error)
}

// Config controls which templates are read and how long the loop sleeps.
type Config struct {
	Blog             string
	SearchTemplateID string
	ReblogTemplateID string
	// DNITemplateID is optional.
	DNITemplateID string

	LikePosts       bool
	RunContinuously bool
	Pacing          time.Duration

	// IdleBackoff follows a cycle that reblogged nothing.
	IdleBackoff time.Duration
	// ActiveInterval follows a cycle that reblogged at least one post.
	ActiveInterval time.Duration

	SeedHistory    int
	RefreshHistory int
}

// DefaultConfig returns the standard pacing and history sizes. Blog and the
// template IDs must be set by the caller.
func DefaultConfig() Config {
	return Config{
		LikePosts:       true,
		RunContinuously: true,
		Pacing:          30 * time.Second,
		IdleBackoff:     2 * time.Hour,
		ActiveInterval:  12 * time.Hour,
		SeedHistory:     200,
		RefreshHistory:  20,
	}
}

// Loop owns the dedup ledger and exclusion set for the life of the process.
type Loop struct {
	platform domain.Platform
	searcher Searcher
	cfg      Config
	clock    clock.Clock
	logger   *slog.Logger
	ledger   *ledger.Ledger
}

// New builds a Loop with an empty ledger. A nil clock means the wall clock and
// a nil logger discards output.
func New(p domain.Platform, s Searcher, cfg Config, clk clock.Clock, logger *slog.Logger) *Loop {
	if clk == nil {
		clk = clock.Real{}
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Loop{
		platform: p,
		searcher: s,
		cfg:      cfg,
		clock:    clk,
		logger:   logger,
		ledger:   ledger.New(),
	}
}

// Ledger exposes the dedup ledger for inspection.
func (l *Loop) Ledger() *ledger.Ledger { return l.ledger }

type cycleTemplates struct {
	search     domain.Template
	reblog     domain.Template
	exclusions domain.ExclusionSet
}

// Run seeds the ledger and then cycles until ctx is cancelled, a single
// cycle completes in run-once mode, or a required template fails to parse.
// Platform errors are returned unchanged in meaning; recovery is up to the
// caller.
func (l *Loop) Run(ctx context.Context) error {
	added, err := ledger.Refresh(ctx, l.platform, l.cfg.Blog, l.cfg.SeedHistory, l.ledger)
	if err != nil {
		if stopRequested(ctx, err) {
			l.logger.Info("stop requested while seeding ledger")
			return nil
		}
		return fmt.Errorf("seed ledger: %w", err)
	}
	metrics.LedgerSize.Set(float64(l.ledger.Len()))
	l.logger.Info("seeded ledger from blog history", "blog", l.cfg.Blog, "keys", added)

	for {
		l.logger.Info("entering state", "state", "searching")

		tpl, err := l.loadTemplates(ctx)
		if err != nil {
			if stopRequested(ctx, err) {
				l.logger.Info("stop requested while loading templates")
				return nil
			}
			if domain.IsParseError(err) {
				l.logger.Error("required template unusable, stopping", "state", "terminal", "error", err)
			}
			return err
		}

		count, err := l.searcher.Run(ctx, engine.Params{
			Tags:       tpl.search.Tags,
			Exclusions: tpl.exclusions,
			Ledger:     l.ledger,
			Reblog:     tpl.reblog,
			Like:       l.cfg.LikePosts,
			Pacing:     l.cfg.Pacing,
		})
		metrics.LedgerSize.Set(float64(l.ledger.Len()))
		if err != nil {
			if stopRequested(ctx, err) {
				l.logger.Info("stop requested during search", "reblogged", count)
				return nil
			}
			return fmt.Errorf("search cycle: %w", err)
		}

		delay := l.cfg.ActiveInterval
		outcome := "active"
		if count == 0 {
			delay = l.cfg.IdleBackoff
			outcome = "idle"
		}
		metrics.Cycles.WithLabelValues(outcome).Inc()

		if !l.cfg.RunContinuously {
			l.logger.Info("cycle complete, run-once mode", "reblogged", count)
			return nil
		}

		if count == 0 {
			l.logger.Info("no posts found with selected tags", "sleep", delay.String())
		} else {
			l.logger.Info("posts reblogged", "reblogged", count, "sleep", delay.String())
		}
		l.logger.Info("entering state", "state", "sleeping",
			"next_search", l.clock.Now().Add(delay).Format(time.RFC3339))

		if err := l.clock.Sleep(ctx, delay); err != nil {
			l.logger.Info("stop requested while sleeping")
			return nil
		}

		// Pick up reblogs made by hand since the last cycle.
		added, err := ledger.Refresh(ctx, l.platform, l.cfg.Blog, l.cfg.RefreshHistory, l.ledger)
		if err != nil {
			if stopRequested(ctx, err) {
				l.logger.Info("stop requested while refreshing ledger")
				return nil
			}
			return fmt.Errorf("refresh ledger: %w", err)
		}
		metrics.LedgerSize.Set(float64(l.ledger.Len()))
		if added > 0 {
			l.logger.Info("merged recent blog history into ledger", "new_keys", added)
		}
	}
}

// stopRequested reports whether err is the result of ctx being cancelled.
func stopRequested(ctx context.Context, err error) bool {
	return errors.Is(err, context.Canceled) && ctx.Err() != nil
}

func (l *Loop) loadTemplates(ctx context.Context) (cycleTemplates, error) {
	var tpl cycleTemplates

	search, err := templates.Fetch(ctx, l.platform, l.cfg.Blog, l.cfg.SearchTemplateID)
	if err != nil {
		return tpl, fmt.Errorf("search template: %w", err)
	}
	reblog, err := templates.Fetch(ctx, l.platform, l.cfg.Blog, l.cfg.ReblogTemplateID)
	if err != nil {
		return tpl, fmt.Errorf("reblog template: %w", err)
	}
	tpl.search = search
	tpl.reblog = reblog

	tpl.exclusions = templates.Exclusions(nil)
	if l.cfg.DNITemplateID != "" {
		dni, err := templates.Fetch(ctx, l.platform, l.cfg.Blog, l.cfg.DNITemplateID)
		switch {
		case err == nil:
			tpl.exclusions = templates.Exclusions(&dni)
		case domain.IsParseError(err):
			l.logger.Warn("dni template unusable, continuing without exclusions", "error", err)
		default:
			return tpl, fmt.Errorf("dni template: %w", err)
		}
	}

	l.logger.Info("templates loaded",
		"search_tags", len(search.Tags),
		"dni_users", len(tpl.exclusions.Users),
		"dni_tags", len(tpl.exclusions.Tags),
	)
	return tpl, nil
}
