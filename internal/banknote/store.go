// Package banknote stores bearer notes: random identifiers worth a fixed
// face value that can be redeemed at most once.
//
// A redeemed note is deleted outright. No tombstone is kept, so an unknown
// identifier and an already redeemed one are indistinguishable.
package banknote

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/congo-pay/economy/internal/money"
	"github.com/congo-pay/economy/internal/persistence"
)

const maxIssueAttempts = 8

var (
	// ErrNotFound covers both never issued and already redeemed notes.
	ErrNotFound = errors.New("banknote not found")
	// ErrExists is returned when reinstating a note that is still live.
	ErrExists = errors.New("banknote already exists")
)

// Option customises a Store.
type Option func(*Store)

// WithIDGenerator replaces the random v4 UUID source.
func WithIDGenerator(fn func() uuid.UUID) Option {
	return func(s *Store) { s.newID = fn }
}

// Store maps live note identifiers to face values.
type Store struct {
	mu      sync.RWMutex
	notes   map[string]money.Amount
	backend persistence.Backend
	logger  *slog.Logger
	newID   func() uuid.UUID
}

// Open loads every live note from backend.
func Open(ctx context.Context, backend persistence.Backend, logger *slog.Logger, opts ...Option) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	notes, err := load(ctx, backend)
	if err != nil {
		return nil, err
	}
	s := &Store{notes: notes, backend: backend, logger: logger, newID: uuid.New}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// ParseID converts caller supplied text into a note identifier. Text that
// is not a UUID cannot name a live note and yields ErrNotFound.
func ParseID(s string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(s))
	if err != nil {
		return uuid.Nil, ErrNotFound
	}
	return id, nil
}

// Issue creates a note worth faceValue and persists it before returning.
func (s *Store) Issue(ctx context.Context, faceValue money.Amount) (uuid.UUID, error) {
	if !faceValue.IsPositive() {
		return uuid.Nil, fmt.Errorf("%w: face value %s", money.ErrInvalidAmount, faceValue)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var id uuid.UUID
	for attempt := 0; ; attempt++ {
		if attempt == maxIssueAttempts {
			return uuid.Nil, fmt.Errorf("banknote: no free identifier after %d attempts", maxIssueAttempts)
		}
		id = s.newID()
		if _, taken := s.notes[id.String()]; !taken {
			break
		}
	}

	key := id.String()
	s.notes[key] = faceValue
	if err := s.backend.Commit(ctx, s.notes, persistence.Change{Key: key, Value: faceValue}); err != nil {
		delete(s.notes, key)
		s.logger.Error("persist issued banknote", "note", key, "error", err)
		return uuid.Nil, err
	}
	return id, nil
}

// Peek returns the face value of a live note without touching it.
func (s *Store) Peek(id uuid.UUID) (money.Amount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.notes[id.String()]
	if !ok {
		return money.Amount{}, ErrNotFound
	}
	return v, nil
}

// Redeem removes a live note and returns its face value. The removal is
// persisted inside the same critical section; if that fails the note stays live.
func (s *Store) Redeem(ctx context.Context, id uuid.UUID) (money.Amount, error) {
	key := id.String()

	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.notes[key]
	if !ok {
		return money.Amount{}, ErrNotFound
	}
	delete(s.notes, key)
	if err := s.backend.Commit(ctx, s.notes, persistence.Change{Key: key, Deleted: true}); err != nil {
		s.notes[key] = v
		s.logger.Error("persist redeemed banknote", "note", key, "error", err)
		return money.Amount{}, err
	}
	return v, nil
}

// Reinstate puts a just-redeemed note back. It exists for callers that
// must undo a redemption whose payout could not be stored.
func (s *Store) Reinstate(ctx context.Context, id uuid.UUID, faceValue money.Amount) error {
	if !faceValue.IsPositive() {
		return fmt.Errorf("%w: face value %s", money.ErrInvalidAmount, faceValue)
	}
	key := id.String()

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.notes[key]; ok {
		return ErrExists
	}
	s.notes[key] = faceValue
	if err := s.backend.Commit(ctx, s.notes, persistence.Change{Key: key, Value: faceValue}); err != nil {
		delete(s.notes, key)
		s.logger.Error("persist reinstated banknote", "note", key, "error", err)
		return err
	}
	return nil
}

// Live returns the number of unredeemed notes.
func (s *Store) Live() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.notes)
}

// Reload replaces the in-memory notes with the backend's content.
func (s *Store) Reload(ctx context.Context) error {
	notes, err := load(ctx, s.backend)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.notes = notes
	s.mu.Unlock()
	return nil
}

// Ping checks the backend is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.backend.Ping(ctx)
}

// load reads every live note; a note must be worth something.
func load(ctx context.Context, backend persistence.Backend) (map[string]money.Amount, error) {
	notes, err := backend.Load(ctx)
	if err != nil {
		return nil, err
	}
	if err := persistence.CheckLoaded("banknotes", notes, true); err != nil {
		return nil, err
	}
	return notes, nil
}
