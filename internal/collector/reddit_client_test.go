package collector

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/loganintech/go-reddit/v2/reddit"
	"github.com/qepting91/reblogbot/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestReddit(t *testing.T) (*RedditClient, *http.ServeMux) {
	t.Helper()
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	mux.HandleFunc("/api/v1/access_token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token":"token1","token_type":"bearer","expires_in":3600,"scope":"*"}`)
	})

	rc, err := NewRedditClient("id1", "secret1", "myblog", "password1", "reblogbot-test", "u_myblog", 1000,
		reddit.WithBaseURL(srv.URL),
		reddit.WithTokenURL(srv.URL+"/api/v1/access_token"),
	)
	require.NoError(t, err)
	return rc, mux
}

func listing(children ...string) string {
	s := `{"kind":"Listing","data":{"children":[`
	for i, c := range children {
		if i > 0 {
			s += ","
		}
		s += `{"kind":"t3","data":` + c + `}`
	}
	return s + `]}}`
}

func TestRedditClient_PostsByID(t *testing.T) {
	rc, mux := newTestReddit(t)
	mux.HandleFunc("/comments/tpl1", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		fmt.Fprint(w, "["+listing(`{
			"id": "tpl1",
			"name": "t3_tpl1",
			"author": "myblog",
			"title": "Search template",
			"selftext": "<h1>Search</h1><p>tags</p> #art #sale",
			"permalink": "/r/u_myblog/comments/tpl1/search_template/",
			"created_utc": 1700000000
		}`)+","+listing()+"]")
	})

	posts, err := rc.Posts(context.Background(), "myblog", domain.PostsQuery{ID: "tpl1"})

	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, domain.Post{
		ID:        "tpl1",
		ReblogKey: "t3_tpl1",
		BlogName:  "myblog",
		Tags:      []string{"art", "sale"},
		Slug:      "search_template",
		Timestamp: time.Unix(1700000000, 0).UTC(),
		Trail:     []domain.TrailItem{{ContentRaw: "<h1>Search</h1><p>tags</p> #art #sale"}},
	}, posts[0])
}

func TestRedditClient_HistoryKeysReblogsBySource(t *testing.T) {
	rc, mux := newTestReddit(t)
	mux.HandleFunc("/user/myblog/submitted", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "20", r.URL.Query().Get("limit"))
		assert.Equal(t, "new", r.URL.Query().Get("sort"))
		fmt.Fprint(w, listing(
			`{"id":"zzz","name":"t3_zzz","author":"myblog","url":"https://www.reddit.com/comments/abc"}`,
			`{"id":"yyy","name":"t3_yyy","author":"myblog","url":"https://old.reddit.com/r/pics/comments/Def/a_title/"}`,
			`{"id":"own","name":"t3_own","author":"myblog","url":"https://example.com/picture.png"}`,
		))
	})

	posts, err := rc.Posts(context.Background(), "myblog", domain.PostsQuery{Limit: 20})

	require.NoError(t, err)
	keys := make([]string, 0, len(posts))
	for _, p := range posts {
		keys = append(keys, p.ReblogKey)
	}
	assert.Equal(t, []string{"t3_abc", "t3_def", "t3_own"}, keys)
}

func TestRedditClient_ReblogKeyMatchesSearchResult(t *testing.T) {
	rc, mux := newTestReddit(t)
	mux.HandleFunc("/r/all/search", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, listing(`{"id":"abc","name":"t3_abc","author":"alice","title":"new piece #art","created_utc":1700000000}`))
	})
	var submittedURL string
	mux.HandleFunc("/api/submit", func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		submittedURL = r.PostForm.Get("url")
		fmt.Fprint(w, `{"json":{"errors":[],"data":{"id":"zzz","name":"t3_zzz"}}}`)
	})
	mux.HandleFunc("/user/myblog/submitted", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, listing(`{"id":"zzz","name":"t3_zzz","author":"myblog","url":%q}`), submittedURL)
	})
	ctx := context.Background()

	found, err := rc.Tagged(ctx, "art", 20, time.Time{})
	require.NoError(t, err)
	require.Len(t, found, 1)

	require.NoError(t, rc.Reblog(ctx, domain.ReblogRequest{Blog: "myblog", ID: found[0].ID, ReblogKey: found[0].ReblogKey}))

	history, err := rc.Posts(ctx, "myblog", domain.PostsQuery{Limit: 20})
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, found[0].ReblogKey, history[0].ReblogKey)
}

func TestRedditClient_Tagged(t *testing.T) {
	rc, mux := newTestReddit(t)
	mux.HandleFunc("/r/all/search", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "#art", q.Get("q"))
		assert.Equal(t, "new", q.Get("sort"))
		assert.Equal(t, "week", q.Get("t"))
		assert.Equal(t, "20", q.Get("limit"))
		fmt.Fprint(w, listing(
			`{"id":"new","name":"t3_new","author":"alice","title":"fresh #Art","created_utc":1700043200}`,
			`{"id":"old","name":"t3_old","author":"bob","title":"older #art","selftext":"also #nsfw","created_utc":1700000000}`,
		))
	})
	ctx := context.Background()

	all, err := rc.Tagged(ctx, "art", 20, time.Time{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "t3_new", all[0].ReblogKey)
	assert.Equal(t, "alice", all[0].BlogName)
	assert.Equal(t, []string{"art"}, all[0].Tags)
	assert.Equal(t, []string{"art", "nsfw"}, all[1].Tags)
	assert.Empty(t, all[1].Trail)

	older, err := rc.Tagged(ctx, "art", 20, time.Unix(1700000000+12*3600, 0))
	require.NoError(t, err)
	require.Len(t, older, 1)
	assert.Equal(t, "t3_old", older[0].ReblogKey)
}

func TestRedditClient_Reblog(t *testing.T) {
	rc, mux := newTestReddit(t)
	mux.HandleFunc("/api/submit", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "u_myblog", r.PostForm.Get("sr"))
		assert.Equal(t, "link", r.PostForm.Get("kind"))
		assert.Equal(t, "nice post! #art #fanart", r.PostForm.Get("title"))
		assert.Equal(t, "https://www.reddit.com/comments/abc", r.PostForm.Get("url"))
		assert.Equal(t, "true", r.PostForm.Get("resubmit"))
		fmt.Fprint(w, `{"json":{"errors":[],"data":{"id":"zzz","name":"t3_zzz"}}}`)
	})

	err := rc.Reblog(context.Background(), domain.ReblogRequest{
		Blog:      "myblog",
		ID:        "t3_abc",
		ReblogKey: "t3_abc",
		State:     domain.StatePublished,
		Tags:      []string{"art", "fan art"},
		Comment:   "nice post!",
	})
	require.NoError(t, err)
}

func TestRedditClient_ReblogRejectsUnpublishedState(t *testing.T) {
	rc, mux := newTestReddit(t)
	var hits int
	mux.HandleFunc("/api/submit", func(w http.ResponseWriter, r *http.Request) {
		hits++
	})

	err := rc.Reblog(context.Background(), domain.ReblogRequest{Blog: "myblog", ID: "abc", ReblogKey: "t3_abc", State: domain.StateQueue})

	var pe *domain.PlatformError
	require.True(t, errors.As(err, &pe), "got %v", err)
	assert.Equal(t, "reblog", pe.Op)
	assert.Zero(t, hits)
}

func TestRedditClient_Like(t *testing.T) {
	rc, mux := newTestReddit(t)
	mux.HandleFunc("/api/vote", func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "t3_abc", r.PostForm.Get("id"))
		assert.Equal(t, "1", r.PostForm.Get("dir"))
		fmt.Fprint(w, `{}`)
	})

	require.NoError(t, rc.Like(context.Background(), "abc", "t3_abc"))
}

func TestRedditClient_ErrorsArePlatformErrors(t *testing.T) {
	rc, mux := newTestReddit(t)
	mux.HandleFunc("/r/all/search", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := rc.Tagged(context.Background(), "art", 20, time.Time{})

	var pe *domain.PlatformError
	require.True(t, errors.As(err, &pe), "got %v", err)
	assert.Equal(t, "tagged", pe.Op)
}

func TestLinkedPostID(t *testing.T) {
	tests := []struct {
		link string
		want string
	}{
		{"https://www.reddit.com/comments/abc", "abc"},
		{"https://www.reddit.com/r/pics/comments/x1y2/some_title/", "x1y2"},
		{"https://example.com/comments/abc", ""},
		{"https://notreddit.com/comments/abc", ""},
		{"https://i.redd.it/picture.png", ""},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, linkedPostID(tt.link), tt.link)
	}
}
