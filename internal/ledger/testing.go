package ledger

import (
	"context"

	"github.com/google/uuid"

	"github.com/congo-pay/economy/internal/account"
	"github.com/congo-pay/economy/internal/banknote"
	"github.com/congo-pay/economy/internal/logging"
	"github.com/congo-pay/economy/internal/money"
	"github.com/congo-pay/economy/internal/persistence"
)

// NewInMemory builds a Ledger over in-memory backends. Useful for unit tests.
func NewInMemory() *Ledger {
	ctx := context.Background()
	logger := logging.Discard()
	// Memory backends cannot fail to load.
	accounts, _ := account.Open(ctx, persistence.NewMemoryBackend(), logger)
	notes, _ := banknote.Open(ctx, persistence.NewMemoryBackend(), logger)
	return New(accounts, notes, WithLogger(logger))
}

// SeedBalance is a test helper that sets a balance directly, bypassing recording.
func SeedBalance(l *Ledger, id uuid.UUID, amount money.Amount) {
	l.mu.Lock()
	defer l.mu.Unlock()
	_ = l.accounts.SetBalance(context.Background(), id, amount)
}
