// Package commands implements the player and operator actions on top of a
// ledger.Economy: balance lookups, payments, banknotes, and admin
// adjustments. Permission checks and message rendering belong to the host.
package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/congo-pay/economy/internal/banknote"
	"github.com/congo-pay/economy/internal/identity"
	"github.com/congo-pay/economy/internal/ledger"
	"github.com/congo-pay/economy/internal/money"
	"github.com/congo-pay/economy/internal/notification"
)

// Service wires name resolution, ledger calls and notifications.
type Service struct {
	economy         ledger.Economy
	players         *identity.Service
	notifier        notification.Notifier
	logger          *slog.Logger
	startingBalance money.Amount
	now             func() time.Time
}

// Option customises a Service.
type Option func(*Service)

// WithLogger sets the logger used for notification failures.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithStartingBalance credits new accounts on their first join.
func WithStartingBalance(amount money.Amount) Option {
	return func(s *Service) { s.startingBalance = amount }
}

// NewService constructs a command service. notifier may be nil.
func NewService(economy ledger.Economy, players *identity.Service, notifier notification.Notifier, opts ...Option) *Service {
	s := &Service{
		economy:  economy,
		players:  players,
		notifier: notifier,
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// JoinResult describes a player sighting.
type JoinResult struct {
	Player  identity.Player
	Created bool
	Balance money.Amount
}

// Join registers a player and opens the account with the starting balance
// when it has never been written.
func (s *Service) Join(ctx context.Context, name string, id uuid.UUID) (JoinResult, error) {
	player, created, err := s.players.Join(ctx, name, id)
	if err != nil {
		return JoinResult{}, err
	}
	if s.startingBalance.IsPositive() && !s.economy.HasAccount(player.ID) {
		if _, err := s.economy.Deposit(ctx, player.ID, s.startingBalance); err != nil {
			return JoinResult{}, fmt.Errorf("credit starting balance: %w", err)
		}
	}
	return JoinResult{Player: player, Created: created, Balance: s.economy.Balance(player.ID)}, nil
}

// BalanceResult is a balance lookup.
type BalanceResult struct {
	Player  identity.Player
	Balance money.Amount
}

// Balance returns the balance of the named player.
func (s *Service) Balance(ctx context.Context, name string) (BalanceResult, error) {
	player, err := s.players.Resolve(ctx, name)
	if err != nil {
		return BalanceResult{}, err
	}
	return BalanceResult{Player: player, Balance: s.economy.Balance(player.ID)}, nil
}

// PayInput captures a player to player payment.
type PayInput struct {
	From   string
	To     string
	Amount money.Amount
}

// PayResult describes the outcome of a payment.
type PayResult struct {
	From        identity.Player
	To          identity.Player
	Amount      money.Amount
	FromBalance money.Amount
	ToBalance   money.Amount
	CompletedAt time.Time
}

// Pay moves money between two named players and notifies the payee.
func (s *Service) Pay(ctx context.Context, input PayInput) (PayResult, error) {
	from, err := s.players.Resolve(ctx, input.From)
	if err != nil {
		return PayResult{}, err
	}
	to, err := s.players.Resolve(ctx, input.To)
	if err != nil {
		return PayResult{}, err
	}

	res, err := s.economy.Transfer(ctx, from.ID, to.ID, input.Amount)
	if err != nil {
		return PayResult{}, err
	}

	out := PayResult{
		From:        from,
		To:          to,
		Amount:      input.Amount,
		FromBalance: res.FromBalance,
		ToBalance:   res.ToBalance,
		CompletedAt: s.now().UTC(),
	}
	s.notify(ctx, notification.KindPaymentReceived, to, input.Amount,
		fmt.Sprintf("You received %s from %s", s.economy.Format(input.Amount), from.Name))
	return out, nil
}

// NoteResult describes an issued banknote.
type NoteResult struct {
	Player    identity.Player
	NoteID    uuid.UUID
	FaceValue money.Amount
	Balance   money.Amount
}

// Withdraw turns part of a player's balance into a banknote.
func (s *Service) Withdraw(ctx context.Context, name string, amount money.Amount) (NoteResult, error) {
	player, err := s.players.Resolve(ctx, name)
	if err != nil {
		return NoteResult{}, err
	}
	note, err := s.economy.IssueNote(ctx, player.ID, amount)
	if err != nil {
		return NoteResult{}, err
	}
	s.notify(ctx, notification.KindNoteIssued, player, amount,
		fmt.Sprintf("Withdrawn %s as a banknote", s.economy.Format(amount)))
	return NoteResult{
		Player:    player,
		NoteID:    note,
		FaceValue: amount,
		Balance:   s.economy.Balance(player.ID),
	}, nil
}

// RedeemResult describes a redeemed banknote.
type RedeemResult struct {
	Player   identity.Player
	Credited money.Amount
	Balance  money.Amount
}

// Redeem credits a banknote to the named player. noteText that does not
// parse is reported the same way as an unknown or spent note.
func (s *Service) Redeem(ctx context.Context, name, noteText string) (RedeemResult, error) {
	player, err := s.players.Resolve(ctx, name)
	if err != nil {
		return RedeemResult{}, err
	}
	note, err := banknote.ParseID(noteText)
	if err != nil {
		return RedeemResult{}, ledger.ErrInvalidOrRedeemedToken
	}
	credited, err := s.economy.RedeemNote(ctx, player.ID, note)
	if err != nil {
		return RedeemResult{}, err
	}
	s.notify(ctx, notification.KindNoteRedeemed, player, credited,
		fmt.Sprintf("Redeemed %s into your account", s.economy.Format(credited)))
	return RedeemResult{Player: player, Credited: credited, Balance: s.economy.Balance(player.ID)}, nil
}

// InspectNote returns the face value of a live banknote.
func (s *Service) InspectNote(_ context.Context, noteText string) (money.Amount, error) {
	note, err := banknote.ParseID(noteText)
	if err != nil {
		return money.Amount{}, ledger.ErrInvalidOrRedeemedToken
	}
	return s.economy.PeekNote(note)
}

// AdjustResult is the balance after an operator adjustment.
type AdjustResult struct {
	Player  identity.Player
	Balance money.Amount
}

// AdminSet overwrites the named player's balance.
func (s *Service) AdminSet(ctx context.Context, name string, amount money.Amount) (AdjustResult, error) {
	return s.adjust(ctx, name, amount, func(id uuid.UUID) (money.Amount, error) {
		if err := s.economy.SetBalance(ctx, id, amount); err != nil {
			return money.Amount{}, err
		}
		return amount, nil
	})
}

// AdminGive credits the named player.
func (s *Service) AdminGive(ctx context.Context, name string, amount money.Amount) (AdjustResult, error) {
	return s.adjust(ctx, name, amount, func(id uuid.UUID) (money.Amount, error) {
		return s.economy.Deposit(ctx, id, amount)
	})
}

// AdminTake debits the named player.
func (s *Service) AdminTake(ctx context.Context, name string, amount money.Amount) (AdjustResult, error) {
	return s.adjust(ctx, name, amount, func(id uuid.UUID) (money.Amount, error) {
		return s.economy.Withdraw(ctx, id, amount)
	})
}

// Reload re-reads balances and banknotes from durable state.
func (s *Service) Reload(ctx context.Context) error {
	return s.economy.Reload(ctx)
}

// Format renders an amount for display.
func (s *Service) Format(amount money.Amount) string {
	return s.economy.Format(amount)
}

func (s *Service) adjust(ctx context.Context, name string, amount money.Amount, apply func(uuid.UUID) (money.Amount, error)) (AdjustResult, error) {
	player, err := s.players.Resolve(ctx, name)
	if err != nil {
		return AdjustResult{}, err
	}
	balance, err := apply(player.ID)
	if err != nil {
		return AdjustResult{}, err
	}
	s.notify(ctx, notification.KindBalanceAdjusted, player, amount,
		fmt.Sprintf("Your balance is now %s", s.economy.Format(balance)))
	return AdjustResult{Player: player, Balance: balance}, nil
}

func (s *Service) notify(ctx context.Context, kind string, to identity.Player, amount money.Amount, body string) {
	if s.notifier == nil {
		return
	}
	err := s.notifier.Send(ctx, notification.Message{
		Kind:        kind,
		Destination: to.ID.String(),
		Body:        body,
		Amount:      amount.String(),
		OccurredAt:  s.now().UTC(),
	})
	if err != nil {
		s.logger.Warn("send notification", "kind", kind, "destination", to.ID.String(), "error", err)
	}
}

// IsUserError reports whether err is an expected outcome a caller should
// show to the player rather than escalate.
func IsUserError(err error) bool {
	return errors.Is(err, ledger.ErrInsufficientFunds) ||
		errors.Is(err, ledger.ErrInvalidAmount) ||
		errors.Is(err, ledger.ErrSelfTransfer) ||
		errors.Is(err, ledger.ErrInvalidOrRedeemedToken) ||
		errors.Is(err, identity.ErrUnknownPlayer)
}
