// Package engine runs one pass of tag searches: it collects candidate posts
// for each search tag, filters them against the dedup ledger and the
// do-not-interact list, and reblogs what survives.
package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/qepting91/reblogbot/internal/clock"
	"github.com/qepting91/reblogbot/internal/domain"
	"github.com/qepting91/reblogbot/internal/metrics"
)

// Ledger is the dedup store consulted and appended to during a run.
type Ledger interface {
	Contains(key string) bool
	Record(key string)
}

// Config holds the settings that stay fixed across runs.
type Config struct {
	Blog   string
	State  string
	Format string

	// SearchLimit caps each tag query.
	SearchLimit int
	// WindowStep is how far the "before" cursor moves back per widening.
	WindowStep time.Duration
	// MaxLookback bounds the total widening.
	MaxLookback time.Duration
	// CallTimeout bounds each platform call. Zero disables it.
	CallTimeout time.Duration
}

// DefaultConfig returns the search settings used when none are configured.
func DefaultConfig() Config {
	return Config{
		State:       domain.StatePublished,
		Format:      domain.FormatHTML,
		SearchLimit: 20,
		WindowStep:  12 * time.Hour,
		MaxLookback: 24 * time.Hour,
		CallTimeout: 60 * time.Second,
	}
}

// Params is the per-run input. The ledger and exclusions belong to the
// caller; the engine does not keep them after Run returns.
type Params struct {
	Tags       []string
	Exclusions domain.ExclusionSet
	Ledger     Ledger
	Reblog     domain.Template
	Like       bool
	Pacing     time.Duration
}

// Engine runs tag searches and reblogs what survives the filters. It holds
// no per-run state; the ledger and exclusions arrive in Params.
type Engine struct {
	platform domain.Platform
	cfg      Config
	clock    clock.Clock
	logger   *slog.Logger
}

// New creates an Engine. A nil clock means the wall clock and a nil logger
// discards output.
func New(p domain.Platform, cfg Config, clk clock.Clock, logger *slog.Logger) *Engine {
	if clk == nil {
		clk = clock.Real{}
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Engine{platform: p, cfg: cfg, clock: clk, logger: logger}
}

// Run searches every tag in order and returns the number of reblogs issued.
// Platform errors abort the run and are returned as-is (wrapped); nothing is
// retried here.
func (e *Engine) Run(ctx context.Context, params Params) (int, error) {
	total := 0
	for _, tag := range params.Tags {
		n, err := e.runTag(ctx, tag, params)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func (e *Engine) runTag(ctx context.Context, tag string, params Params) (int, error) {
	found, err := e.collect(ctx, tag, params)
	if err != nil {
		return 0, err
	}
	metrics.PostsFound.Add(float64(len(found)))

	count := 0
	for _, c := range found {
		if blocked := params.Exclusions.BlockedTags(c.Tags); len(blocked) > 0 {
			metrics.PostsSkipped.WithLabelValues("dni_tag").Inc()
			e.logger.Info("skipping post with excluded tags",
				"tag", tag, "blog", c.BlogName, "slug", c.Slug, "excluded_tags", blocked)
			continue
		}
		// The same post can appear twice in one result page.
		if params.Ledger.Contains(c.ReblogKey) {
			metrics.PostsSkipped.WithLabelValues("ledger").Inc()
			continue
		}

		params.Ledger.Record(c.ReblogKey)

		if params.Like {
			if err := e.call(ctx, func(ctx context.Context) error {
				return e.platform.Like(ctx, c.ID, c.ReblogKey)
			}); err != nil {
				return count, fmt.Errorf("like post %s: %w", c.ID, err)
			}
			metrics.Likes.Inc()
		}

		req := domain.ReblogRequest{
			Blog:      e.cfg.Blog,
			ID:        c.ID,
			ReblogKey: c.ReblogKey,
			State:     e.cfg.State,
			Tags:      params.Reblog.Tags,
			Comment:   params.Reblog.Comment,
			Format:    e.cfg.Format,
		}
		if err := e.call(ctx, func(ctx context.Context) error {
			return e.platform.Reblog(ctx, req)
		}); err != nil {
			return count, fmt.Errorf("reblog post %s: %w", c.ID, err)
		}
		count++
		metrics.Reblogs.Inc()

		e.logger.Info("reblogged post",
			"tag", tag,
			"blog", c.BlogName,
			"slug", c.Slug,
			"reblog_key", c.ReblogKey,
			"state", e.cfg.State,
			"liked", params.Like,
		)

		if err := e.clock.Sleep(ctx, params.Pacing); err != nil {
			return count, err
		}
	}
	return count, nil
}

// collect queries tag without a time bound, then widens the "before" cursor
// by WindowStep until something survives the collection filter or
// MaxLookback is reached.
func (e *Engine) collect(ctx context.Context, tag string, params Params) ([]domain.Post, error) {
	found, err := e.search(ctx, tag, time.Time{}, params)
	if err != nil {
		return nil, err
	}
	e.logger.Info("searched recent posts", "tag", tag, "found", len(found))

	for back := e.cfg.WindowStep; len(found) == 0 && back > 0 && back <= e.cfg.MaxLookback; back += e.cfg.WindowStep {
		before := e.clock.Now().Add(-back)
		metrics.WindowWidenings.Inc()
		found, err = e.search(ctx, tag, before, params)
		if err != nil {
			return nil, err
		}
		e.logger.Info("searched older posts", "tag", tag, "before", before.Format(time.RFC3339), "found", len(found))
	}
	return found, nil
}

func (e *Engine) search(ctx context.Context, tag string, before time.Time, params Params) ([]domain.Post, error) {
	var posts []domain.Post
	err := e.call(ctx, func(ctx context.Context) error {
		var err error
		posts, err = e.platform.Tagged(ctx, tag, e.cfg.SearchLimit, before)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("search tag %q: %w", tag, err)
	}
	metrics.TagSearches.Inc()

	kept := make([]domain.Post, 0, len(posts))
	for _, p := range posts {
		switch {
		case params.Ledger.Contains(p.ReblogKey):
			metrics.PostsSkipped.WithLabelValues("ledger").Inc()
		case params.Exclusions.ExcludesAuthor(p.BlogName):
			metrics.PostsSkipped.WithLabelValues("dni_user").Inc()
		default:
			kept = append(kept, p)
		}
	}
	return kept, nil
}

func (e *Engine) call(ctx context.Context, fn func(context.Context) error) error {
	if e.cfg.CallTimeout <= 0 {
		return fn(ctx)
	}
	ctx, cancel := context.WithTimeout(ctx, e.cfg.CallTimeout)
	defer cancel()
	return fn(ctx)
}
