package gate

import (
	"context"
	"sync"
)

// Counter tracks how many analyses an anonymous client address has consumed.
// Implementations are best-effort: the count is a soft abuse deterrent, not a
// billing ledger, so no atomicity beyond eventual consistency is promised.
type Counter interface {
	Get(ctx context.Context, key string) (int, error)
	Increment(ctx context.Context, key string) (int, error)
}

// MemoryCounter is a process-local Counter. Counts reset on restart and are
// not shared between instances; deployments that need either should use
// RedisCounter instead. Entries are never evicted.
type MemoryCounter struct {
	mu     sync.Mutex
	counts map[string]int
}

func NewMemoryCounter() *MemoryCounter {
	return &MemoryCounter{counts: make(map[string]int)}
}

func (c *MemoryCounter) Get(_ context.Context, key string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[key], nil
}

func (c *MemoryCounter) Increment(_ context.Context, key string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[key]++
	return c.counts[key], nil
}

var _ Counter = (*MemoryCounter)(nil)
