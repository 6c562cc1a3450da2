package ledger

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/congo-pay/economy/internal/money"
	"github.com/congo-pay/economy/internal/persistence"
)

var (
	// ErrInvalidAmount occurs when an amount is malformed, negative, or zero
	// where a positive amount is required.
	ErrInvalidAmount = money.ErrInvalidAmount

	// ErrInsufficientFunds occurs when the source account lacks available balance
	// to cover a withdrawal, transfer or banknote.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrSelfTransfer occurs when source and destination are the same account.
	ErrSelfTransfer = errors.New("cannot transfer to the same account")

	// ErrInvalidOrRedeemedToken covers banknotes that were never issued and
	// banknotes that were already redeemed; the two cannot be told apart.
	ErrInvalidOrRedeemedToken = errors.New("banknote is invalid or already redeemed")

	// ErrPersistence indicates durable state could not be written. In-memory
	// state has been rolled back; operators should check the data directory.
	ErrPersistence = persistence.ErrPersistence
)

// TransferResult captures both balances after a transfer.
type TransferResult struct {
	FromBalance money.Amount
	ToBalance   money.Amount
}

// Economy is the capability handed to callers (commands, listeners). *Ledger
// is the default implementation; hosts may inject another one.
type Economy interface {
	FractionalDigits() int
	Format(amount money.Amount) string

	HasAccount(account uuid.UUID) bool
	Balance(account uuid.UUID) money.Amount
	Has(account uuid.UUID, amount money.Amount) bool

	Deposit(ctx context.Context, account uuid.UUID, amount money.Amount) (money.Amount, error)
	Withdraw(ctx context.Context, account uuid.UUID, amount money.Amount) (money.Amount, error)
	Transfer(ctx context.Context, from, to uuid.UUID, amount money.Amount) (TransferResult, error)
	SetBalance(ctx context.Context, account uuid.UUID, amount money.Amount) error

	IssueNote(ctx context.Context, account uuid.UUID, amount money.Amount) (uuid.UUID, error)
	PeekNote(note uuid.UUID) (money.Amount, error)
	RedeemNote(ctx context.Context, account uuid.UUID, note uuid.UUID) (money.Amount, error)

	Reload(ctx context.Context) error
}

// Recorder observes the outcome of every mutating operation.
type Recorder interface {
	RecordOperation(op string, err error)
}

type nopRecorder struct{}

func (nopRecorder) RecordOperation(string, error) {}
