package console

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/congo-pay/economy/internal/commands"
	"github.com/congo-pay/economy/internal/identity"
	"github.com/congo-pay/economy/internal/ledger"
	"github.com/congo-pay/economy/internal/logging"
	"github.com/congo-pay/economy/internal/money"
)

func newTestConsole(t *testing.T) (*Console, *bytes.Buffer) {
	t.Helper()
	svc := commands.NewService(
		ledger.NewInMemory(),
		identity.NewService(identity.NewMemoryRepository()),
		nil,
		commands.WithLogger(logging.Discard()),
		commands.WithStartingBalance(money.MustParse("100.00")),
	)
	out := &bytes.Buffer{}
	return New(svc, out, logging.Discard()), out
}

// run executes each line and returns the reply to the last one.
func run(t *testing.T, c *Console, out *bytes.Buffer, lines ...string) string {
	t.Helper()
	for _, line := range lines {
		out.Reset()
		if err := c.Execute(context.Background(), line); err != nil {
			t.Fatalf("execute %q: %v", line, err)
		}
	}
	return strings.TrimSpace(out.String())
}

func TestConsoleReplies(t *testing.T) {
	c, out := newTestConsole(t)
	run(t, c, out, "join Steve", "join Alex")

	cases := []struct {
		line string
		want string
	}{
		{"balance steve", "Steve's balance: $100.00"},
		{"pay Steve Alex 25", "Sent $25.00 to Alex."},
		{"balance Alex", "Alex's balance: $125.00"},
		{"pay Steve Alex 1000", "You do not have enough money!"},
		{"pay Steve steve 1", "You cannot pay yourself!"},
		{"pay Steve Herobrine 1", "That player doesn't exist!"},
		{"pay Steve Alex abc", "Please enter a valid amount!"},
		{"pay Steve Alex 0", "Please enter a valid amount!"},
		{"pay Steve Alex 1.001", "Please enter a valid amount!"},
		{"pay Steve", "Usage: pay <from> <to> <amount>"},
		{"admin set Steve 1234.5", "Set Steve's balance to $1,234.50"},
		{"admin give Steve 0.50", "Gave $0.50 to Steve. New balance: $1,235.00"},
		{"admin take Steve 35", "Took $35.00 from Steve. New balance: $1,200.00"},
		{"admin take Steve 5000", "You do not have enough money!"},
		{"admin set Steve -1", "Please enter a valid amount!"},
		{"admin fly Steve 1", "Usage: admin reload|set|give|take <player> <amount>"},
		{"admin reload", "Economy's data has been reloaded."},
		{"redeem Steve not-a-note", "This banknote is invalid or already redeemed!"},
		{"frobnicate", `Unknown command "frobnicate", try help.`},
	}
	for _, tc := range cases {
		if got := run(t, c, out, tc.line); got != tc.want {
			t.Fatalf("%q: expected %q, got %q", tc.line, tc.want, got)
		}
	}
}

func TestConsoleBanknoteFlow(t *testing.T) {
	c, out := newTestConsole(t)
	run(t, c, out, "join Steve", "join Alex")

	reply := run(t, c, out, "withdraw Steve 40")
	const prefix = "Withdrawn $40.00 as a banknote! Note: "
	if !strings.HasPrefix(reply, prefix) {
		t.Fatalf("unexpected withdraw reply %q", reply)
	}
	note := strings.TrimPrefix(reply, prefix)

	if got := run(t, c, out, "note "+note); got != "Banknote worth $40.00." {
		t.Fatalf("unexpected note reply %q", got)
	}
	if got := run(t, c, out, "redeem Alex "+note); got != "Redeemed $40.00 into your account!" {
		t.Fatalf("unexpected redeem reply %q", got)
	}
	if got := run(t, c, out, "redeem Alex "+note); got != "This banknote is invalid or already redeemed!" {
		t.Fatalf("expected second redeem to be refused, got %q", got)
	}
	if got := run(t, c, out, "balance Alex"); got != "Alex's balance: $140.00" {
		t.Fatalf("unexpected balance %q", got)
	}
	if got := run(t, c, out, "withdraw Steve 61"); got != "You do not have enough money!" {
		t.Fatalf("expected overdraw to be refused, got %q", got)
	}
}

func TestConsoleJoin(t *testing.T) {
	c, out := newTestConsole(t)

	id := identity.OfflineID("Steve")
	if got := run(t, c, out, "join Steve"); got != "Welcome, Steve ("+id.String()+"). Balance: $100.00" {
		t.Fatalf("unexpected join reply %q", got)
	}
	if got := run(t, c, out, "join Steve "+id.String()); !strings.HasPrefix(got, "Welcome back, Steve") {
		t.Fatalf("unexpected rejoin reply %q", got)
	}
	if got := run(t, c, out, "join bad-name"); !strings.HasPrefix(got, "Player names are") {
		t.Fatalf("expected invalid name reply, got %q", got)
	}
	if got := run(t, c, out, "join Alex not-a-uuid"); got != "Please enter a valid player id!" {
		t.Fatalf("expected invalid id reply, got %q", got)
	}
}

func TestRunStopsOnStopCommand(t *testing.T) {
	c, out := newTestConsole(t)
	in := strings.NewReader("join Steve\n\nstop\nbalance Steve\n")

	if err := c.Run(context.Background(), in); err != nil {
		t.Fatalf("run: %v", err)
	}
	if strings.Contains(out.String(), "balance:") {
		t.Fatalf("commands after stop must not run, output %q", out.String())
	}
	if err := c.Execute(context.Background(), "quit"); !errors.Is(err, ErrStop) {
		t.Fatalf("expected ErrStop, got %v", err)
	}
}

func TestRunEndsAtEOF(t *testing.T) {
	c, out := newTestConsole(t)
	if err := c.Run(context.Background(), strings.NewReader("join Steve\nbalance Steve")); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(out.String(), "Steve's balance: $100.00") {
		t.Fatalf("expected balance reply, got %q", out.String())
	}
}
