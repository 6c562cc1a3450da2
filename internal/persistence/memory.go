package persistence

import (
	"context"
	"sync"

	"github.com/congo-pay/economy/internal/money"
)

// MemoryBackend keeps the mapping in process memory. Useful for tests and
// throwaway runs; nothing survives a restart.
type MemoryBackend struct {
	mu    sync.Mutex
	state map[string]money.Amount
}

// NewMemoryBackend returns an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{state: make(map[string]money.Amount)}
}

func (b *MemoryBackend) Load(_ context.Context) (map[string]money.Amount, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return copyState(b.state), nil
}

func (b *MemoryBackend) Commit(_ context.Context, _ map[string]money.Amount, changes ...Change) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, c := range changes {
		if c.Deleted {
			delete(b.state, c.Key)
			continue
		}
		b.state[c.Key] = c.Value
	}
	return nil
}

func (b *MemoryBackend) Ping(_ context.Context) error { return nil }

func (b *MemoryBackend) Close() error { return nil }

func copyState(in map[string]money.Amount) map[string]money.Amount {
	out := make(map[string]money.Amount, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
