package browser

import (
	"context"
	"sync"
	"time"

	"github.com/ternarybob/crudcheck/internal/common"
)

// idleTracker counts in-flight requests from CDP network events
type idleTracker struct {
	mu           sync.Mutex
	now          func() time.Time
	inflight     map[string]struct{}
	lastActivity time.Time
}

func newIdleTracker(now func() time.Time) *idleTracker {
	return &idleTracker{
		now:          now,
		inflight:     make(map[string]struct{}),
		lastActivity: now(),
	}
}

func (t *idleTracker) started(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.inflight[id] = struct{}{}
	t.lastActivity = t.now()
}

func (t *idleTracker) finished(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.inflight[id]; !ok {
		return
	}
	delete(t.inflight, id)
	t.lastActivity = t.now()
}

// idleFor reports whether nothing has been in flight for at least quiet
func (t *idleTracker) idleFor(quiet time.Duration) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.inflight) == 0 && t.now().Sub(t.lastActivity) >= quiet
}

func (t *idleTracker) pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.inflight)
}

func (t *idleTracker) wait(ctx context.Context, backoff common.Backoff, quiet, timeout time.Duration) error {
	return common.Poll(ctx, backoff, timeout, "network idle", func(ctx context.Context) (bool, error) {
		return t.idleFor(quiet), nil
	})
}
