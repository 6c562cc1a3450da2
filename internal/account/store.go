// Package account keeps per-account balances in memory, backed write-through
// by a persistence.Backend.
package account

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/congo-pay/economy/internal/money"
	"github.com/congo-pay/economy/internal/persistence"
)

// Entry is one balance assignment.
type Entry struct {
	ID      uuid.UUID
	Balance money.Amount
}

// Store maps account identifiers to balances. Accounts without a record read
// as zero. A write that fails to persist is rolled back in memory before the
// lock is released, so readers only ever see durable balances.
type Store struct {
	mu       sync.RWMutex
	balances map[string]money.Amount
	backend  persistence.Backend
	logger   *slog.Logger
}

// Open loads every balance from backend.
func Open(ctx context.Context, backend persistence.Backend, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	balances, err := load(ctx, backend)
	if err != nil {
		return nil, err
	}
	return &Store{balances: balances, backend: backend, logger: logger}, nil
}

// Balance returns the stored balance, or zero when the account has no record.
func (s *Store) Balance(id uuid.UUID) money.Amount {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.balances[id.String()]
}

// Exists reports whether the account has ever been written.
func (s *Store) Exists(id uuid.UUID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.balances[id.String()]
	return ok
}

// Len returns the number of accounts with a record.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.balances)
}

// SetBalance overwrites one balance and persists it.
func (s *Store) SetBalance(ctx context.Context, id uuid.UUID, amount money.Amount) error {
	return s.SetBalances(ctx, Entry{ID: id, Balance: amount})
}

// SetBalances overwrites several balances in one critical section and one
// durable commit. Either every entry is stored or none is.
func (s *Store) SetBalances(ctx context.Context, entries ...Entry) error {
	for _, e := range entries {
		if e.Balance.IsNegative() {
			return fmt.Errorf("%w: balance %s for %s", money.ErrInvalidAmount, e.Balance, e.ID)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	type previous struct {
		value  money.Amount
		exists bool
	}
	undo := make(map[string]previous, len(entries))
	changes := make([]persistence.Change, 0, len(entries))
	for _, e := range entries {
		key := e.ID.String()
		if _, seen := undo[key]; !seen {
			old, ok := s.balances[key]
			undo[key] = previous{value: old, exists: ok}
		}
		s.balances[key] = e.Balance
		changes = append(changes, persistence.Change{Key: key, Value: e.Balance})
	}

	if err := s.backend.Commit(ctx, s.balances, changes...); err != nil {
		for key, p := range undo {
			if p.exists {
				s.balances[key] = p.value
			} else {
				delete(s.balances, key)
			}
		}
		s.logger.Error("persist balances", "accounts", len(undo), "error", err)
		return err
	}
	return nil
}

// Reload replaces the in-memory balances with the backend's content.
func (s *Store) Reload(ctx context.Context) error {
	balances, err := load(ctx, s.backend)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.balances = balances
	s.mu.Unlock()
	return nil
}

// Ping checks the backend is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.backend.Ping(ctx)
}

// load reads every balance and refuses negative ones.
func load(ctx context.Context, backend persistence.Backend) (map[string]money.Amount, error) {
	balances, err := backend.Load(ctx)
	if err != nil {
		return nil, err
	}
	if err := persistence.CheckLoaded("accounts", balances, false); err != nil {
		return nil, err
	}
	return balances, nil
}
