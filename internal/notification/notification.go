package notification

import (
	"context"
	"log/slog"
	"time"
)

const (
	// KindPaymentReceived is sent to the payee of a transfer.
	KindPaymentReceived = "payment_received"
	// KindNoteIssued is sent to the account that turned balance into a banknote.
	KindNoteIssued = "banknote_issued"
	// KindNoteRedeemed is sent to the account credited by a banknote.
	KindNoteRedeemed = "banknote_redeemed"
	// KindBalanceAdjusted is sent when an operator sets, gives or takes balance.
	KindBalanceAdjusted = "balance_adjusted"
)

// Message describes a notification payload.
type Message struct {
	Kind        string    `json:"kind"`
	Destination string    `json:"destination"`
	Body        string    `json:"body"`
	Amount      string    `json:"amount,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// Notifier delivers notifications to downstream systems.
type Notifier interface {
	Send(ctx context.Context, message Message) error
}

// LoggerNotifier writes notifications to the logger.
type LoggerNotifier struct {
	logger *slog.Logger
}

// NewLoggerNotifier constructs a logging notifier.
func NewLoggerNotifier(logger *slog.Logger) *LoggerNotifier {
	return &LoggerNotifier{logger: logger}
}

// Send writes the message to the structured logger.
func (n *LoggerNotifier) Send(_ context.Context, message Message) error {
	if n == nil || n.logger == nil {
		return nil
	}
	n.logger.Info("notification",
		"kind", message.Kind, "destination", message.Destination, "amount", message.Amount, "body", message.Body)
	return nil
}

// Fanout delivers each message to every notifier and returns the first error.
type Fanout []Notifier

// Send implements Notifier.
func (f Fanout) Send(ctx context.Context, message Message) error {
	var first error
	for _, n := range f {
		if err := n.Send(ctx, message); err != nil && first == nil {
			first = err
		}
	}
	return first
}
