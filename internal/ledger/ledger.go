// Package ledger tracks reblog keys that have already been reblogged so the
// same post is never shared twice within one process lifetime.
package ledger

import (
	"context"
	"fmt"

	"github.com/qepting91/reblogbot/internal/domain"
)

// Ledger is a set of reblog keys. It is owned by a single goroutine and is
// not safe for concurrent use.
type Ledger struct {
	keys map[string]struct{}
}

// New returns a ledger seeded with keys.
func New(keys ...string) *Ledger {
	l := &Ledger{keys: make(map[string]struct{}, len(keys))}
	l.Seed(keys)
	return l
}

// Seed merges keys into the ledger. Seeding the same keys twice is a no-op.
func (l *Ledger) Seed(keys []string) {
	for _, k := range keys {
		if k == "" {
			continue
		}
		l.keys[k] = struct{}{}
	}
}

// Contains reports whether key has been seen.
func (l *Ledger) Contains(key string) bool {
	_, ok := l.keys[key]
	return ok
}

// Record marks key as reblogged. Call it before issuing the reblog. Empty
// keys are ignored, as in Seed.
func (l *Ledger) Record(key string) {
	if key == "" {
		return
	}
	l.keys[key] = struct{}{}
}

// Len returns the number of distinct keys held.
func (l *Ledger) Len() int { return len(l.keys) }

// Refresh merges the reblog keys of the last limit posts on blog into l and
// returns how many keys were new.
func Refresh(ctx context.Context, p domain.Platform, blog string, limit int, l *Ledger) (int, error) {
	posts, err := p.Posts(ctx, blog, domain.PostsQuery{Limit: limit})
	if err != nil {
		return 0, fmt.Errorf("load recent posts of %s: %w", blog, err)
	}

	before := l.Len()
	keys := make([]string, 0, len(posts))
	for _, post := range posts {
		keys = append(keys, post.ReblogKey)
	}
	l.Seed(keys)
	return l.Len() - before, nil
}
