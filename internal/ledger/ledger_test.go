package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/qepting91/reblogbot/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedger_SeedIsIdempotent(t *testing.T) {
	keys := []string{"a", "b", "c", "a"}

	once := New()
	once.Seed(keys)

	twice := New()
	twice.Seed(keys)
	twice.Seed(keys)

	assert.Equal(t, 3, once.Len())
	assert.Equal(t, once.Len(), twice.Len())
}

func TestLedger_RecordAndContains(t *testing.T) {
	l := New("abc123")
	assert.True(t, l.Contains("abc123"))
	assert.False(t, l.Contains("xyz789"))

	l.Record("xyz789")
	l.Record("xyz789")
	assert.True(t, l.Contains("xyz789"))
	assert.Equal(t, 2, l.Len())
}

func TestLedger_SeedSkipsEmptyKeys(t *testing.T) {
	l := New("", "a")
	assert.Equal(t, 1, l.Len())
	assert.False(t, l.Contains(""))
}

type historyStub struct {
	posts []domain.Post
	err   error
	got   domain.PostsQuery
	blog  string
}

func (h *historyStub) Posts(ctx context.Context, blog string, q domain.PostsQuery) ([]domain.Post, error) {
	h.blog = blog
	h.got = q
	return h.posts, h.err
}

func (h *historyStub) Tagged(ctx context.Context, tag string, limit int, before time.Time) ([]domain.Post, error) {
	return nil, nil
}

func (h *historyStub) Reblog(ctx context.Context, req domain.ReblogRequest) error { return nil }

func (h *historyStub) Like(ctx context.Context, id, reblogKey string) error { return nil }

func TestRefresh(t *testing.T) {
	h := &historyStub{posts: []domain.Post{{ReblogKey: "a"}, {ReblogKey: "b"}, {ReblogKey: "c"}}}
	l := New("a")

	added, err := Refresh(context.Background(), h, "myblog", 20, l)

	require.NoError(t, err)
	assert.Equal(t, 2, added)
	assert.Equal(t, 3, l.Len())
	assert.Equal(t, "myblog", h.blog)
	assert.Equal(t, domain.PostsQuery{Limit: 20}, h.got)
}

func TestRefresh_Error(t *testing.T) {
	boom := errors.New("boom")
	l := New("a")

	_, err := Refresh(context.Background(), &historyStub{err: boom}, "myblog", 20, l)

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, l.Len())
}

func TestLedger_RecordSkipsEmptyKey(t *testing.T) {
	l := New()
	l.Record("")
	assert.Zero(t, l.Len())
	assert.False(t, l.Contains(""))
}
