package collector

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/loganintech/go-reddit/v2/reddit"
	"github.com/qepting91/reblogbot/internal/domain"
	"golang.org/x/time/rate"
)

var (
	hashtagRegex  = regexp.MustCompile(`#([A-Za-z0-9_]+)`)
	commentsRegex = regexp.MustCompile(`(?:^|/)comments/([A-Za-z0-9]+)`)
)

// RedditClient maps the platform surface onto Reddit: tag search is a
// sitewide search, a post's tags are the #hashtags in its title and body,
// a like is an upvote and a reblog is a link submission pointing at the
// source post.
type RedditClient struct {
	client    *reddit.Client
	limiter   *rate.Limiter
	subreddit string
}

// NewRedditClient submits reblogs to subreddit (for a profile, "u_<name>").
// opts are passed through to the reddit client, after the user agent.
func NewRedditClient(id, secret, user, pass, userAgent, subreddit string, rps float64, opts ...reddit.Opt) (*RedditClient, error) {
	creds := reddit.Credentials{ID: id, Secret: secret, Username: user, Password: pass}

	client, err := reddit.NewClient(creds, append([]reddit.Opt{reddit.WithUserAgent(userAgent)}, opts...)...)
	if err != nil {
		return nil, err
	}

	// API Rate Limit: ~60 reqs/min, so one per second unless told otherwise
	if rps <= 0 {
		rps = 1
	}
	limiter := rate.NewLimiter(rate.Limit(rps), 1)

	return &RedditClient{client: client, limiter: limiter, subreddit: subreddit}, nil
}

func (rc *RedditClient) Posts(ctx context.Context, blog string, q domain.PostsQuery) ([]domain.Post, error) {
	if err := rc.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	if q.ID != "" {
		pc, _, err := rc.client.Post.Get(ctx, q.ID)
		if err != nil {
			return nil, &domain.PlatformError{Op: "posts", Err: fmt.Errorf("reddit api error: %w", err)}
		}
		if pc == nil || pc.Post == nil {
			return nil, nil
		}
		return []domain.Post{convertRedditPost(pc.Post, true)}, nil
	}

	posts, _, err := rc.client.User.PostsOf(ctx, blog, &reddit.ListUserOverviewOptions{
		ListOptions: reddit.ListOptions{Limit: q.Limit},
		Sort:        "new",
	})
	if err != nil {
		return nil, &domain.PlatformError{Op: "posts", Err: fmt.Errorf("reddit api error: %w", err)}
	}

	var result []domain.Post
	for _, p := range posts {
		post := convertRedditPost(p, false)
		// Our reblogs are links to the source post; key them by the source
		// so the ledger matches search results.
		if src := linkedPostID(p.URL); src != "" {
			post.ReblogKey = "t3_" + src
		}
		result = append(result, post)
	}
	return result, nil
}

func (rc *RedditClient) Tagged(ctx context.Context, tag string, limit int, before time.Time) ([]domain.Post, error) {
	if err := rc.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	opts := &reddit.ListPostSearchOptions{
		ListPostOptions: reddit.ListPostOptions{
			ListOptions: reddit.ListOptions{Limit: limit},
			Time:        "week",
		},
		Sort: "new",
	}
	posts, _, err := rc.client.Subreddit.SearchPosts(ctx, "#"+tag, "all", opts)
	if err != nil {
		return nil, &domain.PlatformError{Op: "tagged", Err: fmt.Errorf("reddit api error: %w", err)}
	}

	var result []domain.Post
	for _, p := range posts {
		post := convertRedditPost(p, false)
		if !before.IsZero() && !post.Timestamp.Before(before) {
			continue
		}
		result = append(result, post)
	}
	return result, nil
}

func (rc *RedditClient) Reblog(ctx context.Context, req domain.ReblogRequest) error {
	if req.State != "" && req.State != domain.StatePublished {
		return &domain.PlatformError{Op: "reblog", Err: fmt.Errorf("state %s not supported on reddit", req.State)}
	}
	if err := rc.limiter.Wait(ctx); err != nil {
		return err
	}

	title := req.Comment
	for _, t := range req.Tags {
		title += " #" + strings.ReplaceAll(t, " ", "")
	}

	_, _, err := rc.client.Post.SubmitLink(ctx, reddit.SubmitLinkRequest{
		Subreddit: rc.subreddit,
		Title:     strings.TrimSpace(title),
		URL:       "https://www.reddit.com/comments/" + strings.TrimPrefix(req.ID, "t3_"),
		Resubmit:  true,
	})
	if err != nil {
		return &domain.PlatformError{Op: "reblog", Err: fmt.Errorf("reddit api error: %w", err)}
	}
	return nil
}

// Like upvotes the post. reblogKey is the post's fullname.
func (rc *RedditClient) Like(ctx context.Context, id, reblogKey string) error {
	if err := rc.limiter.Wait(ctx); err != nil {
		return err
	}

	if _, err := rc.client.Post.Upvote(ctx, reblogKey); err != nil {
		return &domain.PlatformError{Op: "like", Err: fmt.Errorf("reddit api error: %w", err)}
	}
	return nil
}

// convertRedditPost keeps the self text as trail content when withBody is
// set, so template posts can carry their markup in the body.
func convertRedditPost(p *reddit.Post, withBody bool) domain.Post {
	post := domain.Post{
		ID:        p.ID,
		ReblogKey: p.FullID,
		BlogName:  p.Author,
		Tags:      hashtags(p.Title + "\n" + p.Body),
		Slug:      path.Base(strings.TrimRight(p.Permalink, "/")),
	}
	if p.Created != nil {
		post.Timestamp = p.Created.Time
	}
	if withBody && p.Body != "" {
		post.Trail = []domain.TrailItem{{ContentRaw: p.Body}}
	}
	return post
}

// linkedPostID returns the id of the reddit post a link URL points at, or ""
// when the URL is not a reddit comments link.
func linkedPostID(link string) string {
	u, err := url.Parse(link)
	if err != nil {
		return ""
	}
	if host := u.Hostname(); host != "reddit.com" && !strings.HasSuffix(host, ".reddit.com") {
		return ""
	}
	m := commentsRegex.FindStringSubmatch(u.Path)
	if m == nil {
		return ""
	}
	return strings.ToLower(m[1])
}

func hashtags(text string) []string {
	var tags []string
	seen := make(map[string]struct{})
	for _, m := range hashtagRegex.FindAllStringSubmatch(text, -1) {
		t := strings.ToLower(m[1])
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		tags = append(tags, t)
	}
	return tags
}
