package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/qepting91/reblogbot/internal/domain"
)

// Collector modes.
const (
	ModeTumblr = "tumblr"
	ModeReddit = "reddit"
	ModeMock   = "mock"
)

// Credentials are supplied tokens; no login flow is performed.
type Credentials struct {
	ConsumerKey string
	OAuthToken  string

	RedditClientID     string
	RedditClientSecret string
	RedditUsername     string
	RedditPassword     string
	RedditUserAgent    string
}

// Config holds all configuration for the agent. It is built once at startup
// and never mutated.
type Config struct {
	Mode        string
	Credentials Credentials

	// Blog is the target blog that owns the template posts and receives reblogs.
	Blog string

	SearchTemplateID string
	ReblogTemplateID string
	DNITemplateID    string

	State  string
	Format string

	LikePosts       bool
	RunContinuously bool
	// SleepTime is the pause after each reblog.
	SleepTime time.Duration

	IdleBackoff    time.Duration
	ActiveInterval time.Duration
	SeedHistory    int
	RefreshHistory int

	SearchLimit int
	WindowStep  time.Duration
	MaxLookback time.Duration
	CallTimeout time.Duration

	RequestsPerSecond float64

	LogDir          string
	LogRotateDays   int
	FixturesPath    string
	ReblogSubreddit string
}

// Defaults returns a Config populated with the standard settings.
func Defaults() Config {
	return Config{
		Mode:              ModeTumblr,
		State:             domain.StatePublished,
		Format:            domain.FormatHTML,
		LikePosts:         true,
		RunContinuously:   true,
		SleepTime:         30 * time.Second,
		IdleBackoff:       2 * time.Hour,
		ActiveInterval:    12 * time.Hour,
		SeedHistory:       200,
		RefreshHistory:    20,
		SearchLimit:       20,
		WindowStep:        12 * time.Hour,
		MaxLookback:       24 * time.Hour,
		CallTimeout:       60 * time.Second,
		RequestsPerSecond: 1,
		LogDir:            "log",
		LogRotateDays:     7,
	}
}

// Validate reports the first problem found in c.
func (c *Config) Validate() error {
	switch c.Mode {
	case ModeTumblr, ModeReddit, ModeMock:
	default:
		return fmt.Errorf("unknown mode: %s (use '%s', '%s', or '%s')", c.Mode, ModeTumblr, ModeReddit, ModeMock)
	}

	if c.Blog == "" {
		return errors.New("blog is required")
	}
	if c.SearchTemplateID == "" {
		return errors.New("search_template is required")
	}
	if c.ReblogTemplateID == "" {
		return errors.New("reblog_template is required")
	}

	switch c.State {
	case domain.StatePublished, domain.StateQueue, domain.StateDraft, domain.StatePrivate:
	default:
		return fmt.Errorf("invalid state: %s", c.State)
	}
	if c.Mode == ModeReddit && c.State != domain.StatePublished {
		return fmt.Errorf("state %s is not supported in reddit mode", c.State)
	}

	switch c.Format {
	case domain.FormatHTML, domain.FormatMarkdown:
	default:
		return fmt.Errorf("invalid format: %s", c.Format)
	}

	for _, d := range []struct {
		name string
		val  time.Duration
	}{
		{"sleep_time", c.SleepTime},
		{"idle_backoff", c.IdleBackoff},
		{"active_interval", c.ActiveInterval},
		{"window_step", c.WindowStep},
		{"max_lookback", c.MaxLookback},
		{"call_timeout", c.CallTimeout},
	} {
		if d.val < 0 {
			return fmt.Errorf("%s must not be negative", d.name)
		}
	}

	if c.SeedHistory <= 0 || c.RefreshHistory <= 0 || c.SearchLimit <= 0 {
		return errors.New("seed_history, refresh_history and search_limit must be positive")
	}
	if c.RequestsPerSecond <= 0 {
		return errors.New("requests_per_second must be positive")
	}

	switch c.Mode {
	case ModeTumblr:
		if c.Credentials.ConsumerKey == "" || c.Credentials.OAuthToken == "" {
			return errors.New("consumer_key and oauth_token are required for tumblr mode")
		}
	case ModeReddit:
		if c.Credentials.RedditUserAgent == "" {
			return errors.New("reddit_user_agent is required for reddit mode")
		}
	}
	return nil
}

// LoadEnvFiles loads KEY=value files into the process environment. Missing
// files are skipped and variables already set are left alone.
func LoadEnvFiles(paths ...string) error {
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}
