package commands

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/congo-pay/economy/internal/identity"
	"github.com/congo-pay/economy/internal/ledger"
	"github.com/congo-pay/economy/internal/logging"
	"github.com/congo-pay/economy/internal/money"
	"github.com/congo-pay/economy/internal/notification"
)

type testNotifier struct {
	sent []notification.Message
}

func (n *testNotifier) Send(_ context.Context, msg notification.Message) error {
	n.sent = append(n.sent, msg)
	return nil
}

func (n *testNotifier) last() notification.Message {
	if len(n.sent) == 0 {
		return notification.Message{}
	}
	return n.sent[len(n.sent)-1]
}

type fixture struct {
	svc      *Service
	led      *ledger.Ledger
	notifier *testNotifier
	steve    identity.Player
	alex     identity.Player
}

func newFixture(t *testing.T, opts ...Option) fixture {
	t.Helper()
	led := ledger.NewInMemory()
	players := identity.NewService(identity.NewMemoryRepository())
	notifier := &testNotifier{}
	opts = append([]Option{WithLogger(logging.Discard())}, opts...)
	svc := NewService(led, players, notifier, opts...)

	ctx := context.Background()
	steve, err := svc.Join(ctx, "Steve", uuid.New())
	if err != nil {
		t.Fatalf("join steve: %v", err)
	}
	alex, err := svc.Join(ctx, "Alex", uuid.New())
	if err != nil {
		t.Fatalf("join alex: %v", err)
	}
	return fixture{svc: svc, led: led, notifier: notifier, steve: steve.Player, alex: alex.Player}
}

func TestPayNotifiesPayee(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ledger.SeedBalance(f.led, f.steve.ID, money.MustParse("100.00"))

	res, err := f.svc.Pay(ctx, PayInput{From: "steve", To: "ALEX", Amount: money.MustParse("20.00")})
	if err != nil {
		t.Fatalf("pay: %v", err)
	}
	if res.FromBalance.String() != "80.00" || res.ToBalance.String() != "20.00" {
		t.Fatalf("unexpected balances: %+v", res)
	}

	msg := f.notifier.last()
	if msg.Kind != notification.KindPaymentReceived || msg.Destination != f.alex.ID.String() {
		t.Fatalf("expected payee notification, got %+v", msg)
	}
	if msg.Body != "You received $20.00 from Steve" {
		t.Fatalf("unexpected body %q", msg.Body)
	}
}

func TestPayFailures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cases := []struct {
		name  string
		input PayInput
		want  error
	}{
		{"unknown payee", PayInput{From: "Steve", To: "Herobrine", Amount: money.FromCents(1)}, identity.ErrUnknownPlayer},
		{"self", PayInput{From: "Steve", To: "steve", Amount: money.FromCents(1)}, ledger.ErrSelfTransfer},
		{"broke", PayInput{From: "Steve", To: "Alex", Amount: money.FromCents(1)}, ledger.ErrInsufficientFunds},
		{"zero", PayInput{From: "Steve", To: "Alex", Amount: money.Zero()}, ledger.ErrInvalidAmount},
	}
	for _, tc := range cases {
		_, err := f.svc.Pay(ctx, tc.input)
		if !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
		if !IsUserError(err) {
			t.Fatalf("%s: expected a user-facing error", tc.name)
		}
	}
	if len(f.notifier.sent) != 0 {
		t.Fatalf("failed payments must not notify, got %d", len(f.notifier.sent))
	}
}

func TestWithdrawAndRedeem(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ledger.SeedBalance(f.led, f.steve.ID, money.MustParse("50.00"))

	note, err := f.svc.Withdraw(ctx, "Steve", money.MustParse("30.00"))
	if err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if note.Balance.String() != "20.00" {
		t.Fatalf("expected 20.00 left, got %s", note.Balance)
	}
	if v, err := f.svc.InspectNote(ctx, note.NoteID.String()); err != nil || v.String() != "30.00" {
		t.Fatalf("inspect: expected 30.00, got %s (%v)", v, err)
	}

	redeemed, err := f.svc.Redeem(ctx, "Alex", note.NoteID.String())
	if err != nil {
		t.Fatalf("redeem: %v", err)
	}
	if redeemed.Credited.String() != "30.00" || redeemed.Balance.String() != "30.00" {
		t.Fatalf("unexpected redeem result: %+v", redeemed)
	}
	if f.notifier.last().Kind != notification.KindNoteRedeemed {
		t.Fatalf("expected redeem notification, got %+v", f.notifier.last())
	}

	if _, err := f.svc.Redeem(ctx, "Alex", note.NoteID.String()); !errors.Is(err, ledger.ErrInvalidOrRedeemedToken) {
		t.Fatalf("expected second redeem to fail, got %v", err)
	}
	if _, err := f.svc.Redeem(ctx, "Alex", "definitely-not-a-note"); !errors.Is(err, ledger.ErrInvalidOrRedeemedToken) {
		t.Fatalf("expected garbage note to fail, got %v", err)
	}
}

func TestAdminAdjustments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if res, err := f.svc.AdminSet(ctx, "Steve", money.MustParse("10.00")); err != nil || res.Balance.String() != "10.00" {
		t.Fatalf("set: %+v (%v)", res, err)
	}
	if res, err := f.svc.AdminGive(ctx, "Steve", money.MustParse("2.50")); err != nil || res.Balance.String() != "12.50" {
		t.Fatalf("give: %+v (%v)", res, err)
	}
	if res, err := f.svc.AdminTake(ctx, "Steve", money.MustParse("12.50")); err != nil || !res.Balance.IsZero() {
		t.Fatalf("take: %+v (%v)", res, err)
	}
	if _, err := f.svc.AdminTake(ctx, "Steve", money.MustParse("0.01")); !errors.Is(err, ledger.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	if _, err := f.svc.AdminSet(ctx, "Steve", money.MustParse("-1")); !errors.Is(err, ledger.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	if _, err := f.svc.AdminGive(ctx, "Nobody", money.FromCents(1)); !errors.Is(err, identity.ErrUnknownPlayer) {
		t.Fatalf("expected ErrUnknownPlayer, got %v", err)
	}
}

func TestJoinCreditsStartingBalanceOnce(t *testing.T) {
	f := newFixture(t, WithStartingBalance(money.MustParse("25.00")))
	ctx := context.Background()

	if got := f.led.Balance(f.steve.ID); got.String() != "25.00" {
		t.Fatalf("expected starting balance 25.00, got %s", got)
	}
	res, err := f.svc.Join(ctx, "Steve", f.steve.ID)
	if err != nil {
		t.Fatalf("rejoin: %v", err)
	}
	if res.Created || res.Balance.String() != "25.00" {
		t.Fatalf("expected no second credit, got %+v", res)
	}
}

func TestBalanceUnknownPlayer(t *testing.T) {
	f := newFixture(t)
	if _, err := f.svc.Balance(context.Background(), "ghost"); !errors.Is(err, identity.ErrUnknownPlayer) {
		t.Fatalf("expected ErrUnknownPlayer, got %v", err)
	}
}
