package collector

import (
	"fmt"
	"log/slog"

	"github.com/qepting91/reblogbot/internal/config"
	"github.com/qepting91/reblogbot/internal/domain"
	"github.com/qepting91/reblogbot/internal/ingest"
)

// NewPlatform selects the correct implementation based on cfg.Mode.
func NewPlatform(cfg *config.Config, logger *slog.Logger) (domain.Platform, error) {
	creds := cfg.Credentials

	switch cfg.Mode {
	case config.ModeTumblr:
		return NewTumblrClient(creds.ConsumerKey, creds.OAuthToken, cfg.RequestsPerSecond, logger)
	case config.ModeReddit:
		subreddit := cfg.ReblogSubreddit
		if subreddit == "" {
			subreddit = "u_" + cfg.Blog
		}
		return NewRedditClient(
			creds.RedditClientID,
			creds.RedditClientSecret,
			creds.RedditUsername,
			creds.RedditPassword,
			creds.RedditUserAgent,
			subreddit,
			cfg.RequestsPerSecond,
		)
	case config.ModeMock:
		var fixtures []ingest.Fixture
		if cfg.FixturesPath != "" {
			var err error
			fixtures, err = ingest.LoadFixtures(cfg.FixturesPath)
			if err != nil {
				return nil, fmt.Errorf("load fixtures: %w", err)
			}
		}
		return NewMockClient(fixtures), nil
	default:
		return nil, fmt.Errorf("unknown mode: %s (use '%s', '%s', or '%s')", cfg.Mode, config.ModeTumblr, config.ModeReddit, config.ModeMock)
	}
}
