package collector

import (
	"context"
	"testing"
	"time"

	"github.com/qepting91/reblogbot/internal/domain"
	"github.com/qepting91/reblogbot/internal/ingest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockClient_Fixtures(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	mc := NewMockClient([]ingest.Fixture{
		{Kind: ingest.KindPost, Blog: "myblog", Post: domain.Post{ID: "1", ReblogKey: "own1", Timestamp: now.Add(-time.Hour)}},
		{Kind: ingest.KindPost, Blog: "myblog", Post: domain.Post{ID: "2", ReblogKey: "own2", Timestamp: now}},
		{Kind: ingest.KindTagged, Post: domain.Post{ID: "a", ReblogKey: "ka", Tags: []string{"art"}, Timestamp: now.Add(-20 * time.Hour)}},
		{Kind: ingest.KindTagged, Post: domain.Post{ID: "b", ReblogKey: "kb", Tags: []string{"art", "sale"}, Timestamp: now.Add(-time.Hour)}},
		{Kind: ingest.KindTagged, Post: domain.Post{ID: "c", ReblogKey: "kc", Tags: []string{"sale"}, Timestamp: now}},
	})
	ctx := context.Background()

	history, err := mc.Posts(ctx, "myblog", domain.PostsQuery{Limit: 1})
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "own2", history[0].ReblogKey, "newest first")

	byID, err := mc.Posts(ctx, "myblog", domain.PostsQuery{ID: "1"})
	require.NoError(t, err)
	require.Len(t, byID, 1)
	assert.Equal(t, "own1", byID[0].ReblogKey)

	missing, err := mc.Posts(ctx, "myblog", domain.PostsQuery{ID: "404"})
	require.NoError(t, err)
	assert.Empty(t, missing)

	art, err := mc.Tagged(ctx, "art", 20, time.Time{})
	require.NoError(t, err)
	require.Len(t, art, 2)
	assert.Equal(t, "kb", art[0].ReblogKey)
	assert.Equal(t, "ka", art[1].ReblogKey)

	older, err := mc.Tagged(ctx, "art", 20, now.Add(-12*time.Hour))
	require.NoError(t, err)
	require.Len(t, older, 1)
	assert.Equal(t, "ka", older[0].ReblogKey)

	limited, err := mc.Tagged(ctx, "sale", 1, time.Time{})
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "kc", limited[0].ReblogKey)
}

func TestMockClient_RecordsActions(t *testing.T) {
	mc := NewMockClient(nil)
	ctx := context.Background()

	require.NoError(t, mc.Like(ctx, "1", "k1"))
	require.NoError(t, mc.Reblog(ctx, domain.ReblogRequest{Blog: "myblog", ID: "1", ReblogKey: "k1"}))

	assert.Equal(t, []string{"k1"}, mc.Likes())
	require.Len(t, mc.Reblogs(), 1)

	// reblogs show up in the blog's history so a ledger refresh sees them
	history, err := mc.Posts(ctx, "myblog", domain.PostsQuery{Limit: 20})
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "k1", history[0].ReblogKey)
}

func TestMockClient_GeneratesWithoutFixtures(t *testing.T) {
	mc := NewMockClient(nil)
	ctx := context.Background()

	posts, err := mc.Tagged(ctx, "art", 5, time.Time{})
	require.NoError(t, err)
	assert.Len(t, posts, 5)
	for _, p := range posts {
		assert.Equal(t, []string{"art"}, p.Tags)
		assert.NotEmpty(t, p.ReblogKey)
	}

	tpl, err := mc.Posts(ctx, "myblog", domain.PostsQuery{ID: "77"})
	require.NoError(t, err)
	require.Len(t, tpl, 1)
	require.Len(t, tpl[0].Trail, 1)
	assert.Contains(t, tpl[0].Trail[0].ContentRaw, "<h1>Mock 77</h1>")
}

func TestHashtags(t *testing.T) {
	assert.Equal(t, []string{"art", "sale"}, hashtags("Big #Art drop #sale today #art"))
	assert.Nil(t, hashtags("no tags here"))
}
