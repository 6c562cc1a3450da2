// Package persistence holds the durable key to amount mappings behind the
// account and banknote stores. Every backend is write-through: Commit returns
// only once the change is durable.
package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/congo-pay/economy/internal/money"
)

// ErrPersistence wraps every durable write or read failure.
var ErrPersistence = errors.New("persistence failure")

// Change describes one key mutation inside a Commit.
type Change struct {
	Key     string
	Value   money.Amount
	Deleted bool
}

// Backend is a durable key to amount mapping.
//
// Commit receives the full post-change state alongside the individual
// changes, so snapshot backends may rewrite everything while keyed backends
// apply only the changes. Implementations must apply all changes or none.
type Backend interface {
	Load(ctx context.Context) (map[string]money.Amount, error)
	Commit(ctx context.Context, state map[string]money.Amount, changes ...Change) error
	Ping(ctx context.Context) error
	Close() error
}

// CheckLoaded rejects state read back from a backend that no store could
// have written: negative amounts, and zero amounts when positive is set.
func CheckLoaded(source string, state map[string]money.Amount, positive bool) error {
	for key, v := range state {
		if v.IsNegative() || (positive && v.IsZero()) {
			return fmt.Errorf("%w: %s: key %s holds invalid amount %s", ErrPersistence, source, key, v)
		}
	}
	return nil
}
