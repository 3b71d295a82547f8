package domain

import (
	"context"
	"time"
)

// Post states accepted by the reblog action.
const (
	StatePublished = "published"
	StateQueue     = "queue"
	StateDraft     = "draft"
	StatePrivate   = "private"
)

// Comment formats accepted by the reblog action.
const (
	FormatHTML     = "html"
	FormatMarkdown = "markdown"
)

// Template is the structured form of a template post on the target blog.
type Template struct {
	Title   string   `json:"title"`
	Comment string   `json:"comment"`
	Tags    []string `json:"tags"`
}

// TrailItem is one segment of a post's reblog trail.
type TrailItem struct {
	ContentRaw string `json:"content_raw"`
}

// Post is a platform post. Tag search results and blog history share it.
type Post struct {
	ID        string      `json:"id"`
	ReblogKey string      `json:"reblog_key"`
	BlogName  string      `json:"blog_name"`
	Tags      []string    `json:"tags"`
	Slug      string      `json:"slug"`
	Timestamp time.Time   `json:"timestamp"`
	Trail     []TrailItem `json:"trail,omitempty"`
}

// PostsQuery selects either a single post by ID or the most recent Limit posts.
type PostsQuery struct {
	Limit int
	ID    string
}

// ReblogRequest carries everything the platform needs to reblog one post.
type ReblogRequest struct {
	Blog      string
	ID        string
	ReblogKey string
	State     string
	Tags      []string
	Comment   string
	Format    string
}

// Platform defines the social platform capabilities the agent consumes.
type Platform interface {
	Posts(ctx context.Context, blog string, q PostsQuery) ([]Post, error)
	// Tagged returns recent posts carrying tag. A zero before means no upper
	// time bound.
	Tagged(ctx context.Context, tag string, limit int, before time.Time) ([]Post, error)
	Reblog(ctx context.Context, req ReblogRequest) error
	Like(ctx context.Context, id, reblogKey string) error
}
