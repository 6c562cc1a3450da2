package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/congo-pay/economy/internal/account"
	"github.com/congo-pay/economy/internal/banknote"
	"github.com/congo-pay/economy/internal/money"
)

// Operation names reported to the Recorder.
const (
	OpDeposit    = "deposit"
	OpWithdraw   = "withdraw"
	OpTransfer   = "transfer"
	OpSetBalance = "set_balance"
	OpIssueNote  = "issue_note"
	OpRedeemNote = "redeem_note"
	OpReload     = "reload"
)

var _ Economy = (*Ledger)(nil)

// Option customises a Ledger.
type Option func(*Ledger)

// WithLogger sets the logger used for compensation failures.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) { l.logger = logger }
}

// WithRecorder sets the operation observer.
func WithRecorder(r Recorder) Option {
	return func(l *Ledger) { l.recorder = r }
}

// Ledger composes the account and banknote stores into the economy
// operations. A single lock serialises every read-modify-write over
// balances, so cross-account transfers need no lock ordering and readers
// never see a half-applied operation. Lock order is always Ledger, then the
// banknote store.
type Ledger struct {
	mu       sync.RWMutex
	accounts *account.Store
	notes    *banknote.Store
	logger   *slog.Logger
	recorder Recorder
}

// New wires a Ledger over already opened stores.
func New(accounts *account.Store, notes *banknote.Store, opts ...Option) *Ledger {
	l := &Ledger{
		accounts: accounts,
		notes:    notes,
		logger:   slog.Default(),
		recorder: nopRecorder{},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Ledger) FractionalDigits() int { return money.FractionalDigits }

func (l *Ledger) Format(amount money.Amount) string { return amount.Format() }

func (l *Ledger) HasAccount(id uuid.UUID) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.accounts.Exists(id)
}

// Balance returns the account balance; unknown accounts hold zero.
func (l *Ledger) Balance(id uuid.UUID) money.Amount {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.accounts.Balance(id)
}

// Has reports whether the account balance covers amount.
func (l *Ledger) Has(id uuid.UUID, amount money.Amount) bool {
	return !l.Balance(id).LessThan(amount)
}

// Deposit credits a positive amount and returns the new balance.
func (l *Ledger) Deposit(ctx context.Context, id uuid.UUID, amount money.Amount) (balance money.Amount, err error) {
	defer func() { l.recorder.RecordOperation(OpDeposit, err) }()
	if !amount.IsPositive() {
		return money.Amount{}, ErrInvalidAmount
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	balance = l.accounts.Balance(id).Add(amount)
	if err := l.accounts.SetBalance(ctx, id, balance); err != nil {
		return money.Amount{}, err
	}
	return balance, nil
}

// Withdraw debits a positive amount and returns the new balance. The
// balance is left untouched when it does not cover amount.
func (l *Ledger) Withdraw(ctx context.Context, id uuid.UUID, amount money.Amount) (balance money.Amount, err error) {
	defer func() { l.recorder.RecordOperation(OpWithdraw, err) }()
	if !amount.IsPositive() {
		return money.Amount{}, ErrInvalidAmount
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	return l.debit(ctx, id, amount)
}

// Transfer moves amount between two distinct accounts. Both balances are
// written in one durable commit.
func (l *Ledger) Transfer(ctx context.Context, from, to uuid.UUID, amount money.Amount) (res TransferResult, err error) {
	defer func() { l.recorder.RecordOperation(OpTransfer, err) }()
	if !amount.IsPositive() {
		return TransferResult{}, ErrInvalidAmount
	}
	if from == to {
		return TransferResult{}, ErrSelfTransfer
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	fromBalance := l.accounts.Balance(from)
	if fromBalance.LessThan(amount) {
		return TransferResult{}, ErrInsufficientFunds
	}
	res = TransferResult{
		FromBalance: fromBalance.Sub(amount),
		ToBalance:   l.accounts.Balance(to).Add(amount),
	}
	err = l.accounts.SetBalances(ctx,
		account.Entry{ID: from, Balance: res.FromBalance},
		account.Entry{ID: to, Balance: res.ToBalance},
	)
	if err != nil {
		return TransferResult{}, err
	}
	return res, nil
}

// SetBalance overwrites a balance. Zero is allowed, negative is not.
func (l *Ledger) SetBalance(ctx context.Context, id uuid.UUID, amount money.Amount) (err error) {
	defer func() { l.recorder.RecordOperation(OpSetBalance, err) }()
	if amount.IsNegative() {
		return ErrInvalidAmount
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	return l.accounts.SetBalance(ctx, id, amount)
}

// IssueNote debits amount and turns it into a banknote. If the note cannot
// be stored the debit is reversed so no value is lost.
func (l *Ledger) IssueNote(ctx context.Context, id uuid.UUID, amount money.Amount) (note uuid.UUID, err error) {
	defer func() { l.recorder.RecordOperation(OpIssueNote, err) }()
	if !amount.IsPositive() {
		return uuid.Nil, ErrInvalidAmount
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	before := l.accounts.Balance(id)
	if _, err := l.debit(ctx, id, amount); err != nil {
		return uuid.Nil, err
	}

	note, err = l.notes.Issue(ctx, amount)
	if err != nil {
		if cerr := l.accounts.SetBalance(ctx, id, before); cerr != nil {
			l.logger.Error("reverse banknote debit",
				"account", id.String(), "amount", amount.String(), "error", cerr)
			return uuid.Nil, errors.Join(err, cerr)
		}
		return uuid.Nil, err
	}
	return note, nil
}

// PeekNote returns the face value of a live banknote.
func (l *Ledger) PeekNote(note uuid.UUID) (money.Amount, error) {
	v, err := l.notes.Peek(note)
	if errors.Is(err, banknote.ErrNotFound) {
		return money.Amount{}, ErrInvalidOrRedeemedToken
	}
	return v, err
}

// RedeemNote consumes a banknote and credits its face value to the
// account. If the credit cannot be stored the note is put back.
func (l *Ledger) RedeemNote(ctx context.Context, id uuid.UUID, note uuid.UUID) (credited money.Amount, err error) {
	defer func() { l.recorder.RecordOperation(OpRedeemNote, err) }()

	l.mu.Lock()
	defer l.mu.Unlock()

	face, err := l.notes.Redeem(ctx, note)
	if errors.Is(err, banknote.ErrNotFound) {
		return money.Amount{}, ErrInvalidOrRedeemedToken
	}
	if err != nil {
		return money.Amount{}, err
	}

	balance := l.accounts.Balance(id).Add(face)
	if err := l.accounts.SetBalance(ctx, id, balance); err != nil {
		if rerr := l.notes.Reinstate(ctx, note, face); rerr != nil {
			l.logger.Error("reinstate banknote after failed credit",
				"note", note.String(), "account", id.String(), "amount", face.String(), "error", rerr)
			return money.Amount{}, errors.Join(err, rerr)
		}
		return money.Amount{}, err
	}
	return face, nil
}

// Reload re-reads both stores from durable state.
func (l *Ledger) Reload(ctx context.Context) (err error) {
	defer func() { l.recorder.RecordOperation(OpReload, err) }()

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.accounts.Reload(ctx); err != nil {
		return fmt.Errorf("reload accounts: %w", err)
	}
	if err := l.notes.Reload(ctx); err != nil {
		return fmt.Errorf("reload banknotes: %w", err)
	}
	return nil
}

// debit must be called with l.mu held.
func (l *Ledger) debit(ctx context.Context, id uuid.UUID, amount money.Amount) (money.Amount, error) {
	balance := l.accounts.Balance(id)
	if balance.LessThan(amount) {
		return money.Amount{}, ErrInsufficientFunds
	}
	balance = balance.Sub(amount)
	if err := l.accounts.SetBalance(ctx, id, balance); err != nil {
		return money.Amount{}, err
	}
	return balance, nil
}
