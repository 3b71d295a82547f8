package collector

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/qepting91/reblogbot/internal/domain"
	"github.com/qepting91/reblogbot/internal/ingest"
)

// MockClient implements domain.Platform without touching the network. With
// fixtures it serves them; without, it makes up posts per tag. Reblogs and
// likes are recorded, not sent.
type MockClient struct {
	mu       sync.Mutex
	posts    map[string][]domain.Post // keyed by blog
	tagged   []domain.Post
	reblogs  []domain.ReblogRequest
	likes    []string
	now      func() time.Time
	generate bool
}

func NewMockClient(fixtures []ingest.Fixture) *MockClient {
	mc := &MockClient{
		posts:    make(map[string][]domain.Post),
		now:      time.Now,
		generate: len(fixtures) == 0,
	}
	for _, f := range fixtures {
		switch f.Kind {
		case ingest.KindPost:
			mc.posts[f.Blog] = append(mc.posts[f.Blog], f.Post)
		case ingest.KindTagged:
			mc.tagged = append(mc.tagged, f.Post)
		}
	}
	// newest first, like the real APIs
	sort.SliceStable(mc.tagged, func(i, j int) bool {
		return mc.tagged[i].Timestamp.After(mc.tagged[j].Timestamp)
	})
	for blog := range mc.posts {
		posts := mc.posts[blog]
		sort.SliceStable(posts, func(i, j int) bool {
			return posts[i].Timestamp.After(posts[j].Timestamp)
		})
	}
	return mc
}

func (mc *MockClient) Posts(ctx context.Context, blog string, q domain.PostsQuery) ([]domain.Post, error) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	if q.ID != "" {
		for _, p := range mc.posts[blog] {
			if p.ID == q.ID {
				return []domain.Post{p}, nil
			}
		}
		if mc.generate {
			return []domain.Post{{
				ID:    q.ID,
				Tags:  []string{"mock"},
				Trail: []domain.TrailItem{{ContentRaw: fmt.Sprintf("<h1>Mock %s</h1><p>simulated comment</p>", q.ID)}},
			}}, nil
		}
		return nil, nil
	}

	posts := mc.posts[blog]
	if q.Limit > 0 && len(posts) > q.Limit {
		posts = posts[:q.Limit]
	}
	return slices.Clone(posts), nil
}

func (mc *MockClient) Tagged(ctx context.Context, tag string, limit int, before time.Time) ([]domain.Post, error) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	if mc.generate {
		return mc.generated(tag, limit, before), nil
	}

	var result []domain.Post
	for _, p := range mc.tagged {
		if !slices.Contains(p.Tags, tag) {
			continue
		}
		if !before.IsZero() && !p.Timestamp.Before(before) {
			continue
		}
		result = append(result, p)
		if limit > 0 && len(result) == limit {
			break
		}
	}
	return result, nil
}

func (mc *MockClient) generated(tag string, limit int, before time.Time) []domain.Post {
	base := mc.now()
	if !before.IsZero() {
		base = before
	}
	var posts []domain.Post
	for i := 0; i < limit; i++ {
		ts := base.Add(-time.Duration(i+1) * time.Minute).Truncate(time.Hour)
		posts = append(posts, domain.Post{
			ID:        fmt.Sprintf("mock_%s_%d", tag, ts.Unix()+int64(i)),
			ReblogKey: fmt.Sprintf("mock_%s_%d_%d", tag, ts.Unix(), i),
			BlogName:  "simulated-user",
			Tags:      []string{tag},
			Slug:      fmt.Sprintf("simulated-post-%d", i),
			Timestamp: ts,
		})
	}
	return posts
}

func (mc *MockClient) Reblog(ctx context.Context, req domain.ReblogRequest) error {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.reblogs = append(mc.reblogs, req)
	// the reblog shows up in the blog's own history
	mc.posts[req.Blog] = append([]domain.Post{{
		ID:        "reblog_" + req.ID,
		ReblogKey: req.ReblogKey,
		BlogName:  req.Blog,
		Tags:      req.Tags,
		Timestamp: mc.now(),
	}}, mc.posts[req.Blog]...)
	return nil
}

func (mc *MockClient) Like(ctx context.Context, id, reblogKey string) error {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.likes = append(mc.likes, reblogKey)
	return nil
}

// Reblogs returns the reblog requests received so far.
func (mc *MockClient) Reblogs() []domain.ReblogRequest {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	return slices.Clone(mc.reblogs)
}

// Likes returns the reblog keys of liked posts.
func (mc *MockClient) Likes() []string {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	return slices.Clone(mc.likes)
}
