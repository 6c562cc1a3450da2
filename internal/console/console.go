// Package console runs the operator command loop: one command per line,
// whitespace separated, dispatched to commands.Service.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/congo-pay/economy/internal/commands"
	"github.com/congo-pay/economy/internal/identity"
	"github.com/congo-pay/economy/internal/ledger"
	"github.com/congo-pay/economy/internal/money"
)

// ErrStop is returned by Execute when the operator asks to shut down.
var ErrStop = errors.New("console stop requested")

const (
	msgNoPlayer     = "That player doesn't exist!"
	msgNoMoney      = "You do not have enough money!"
	msgSelfPay      = "You cannot pay yourself!"
	msgInvalidNote  = "This banknote is invalid or already redeemed!"
	msgInvalidValue = "Please enter a valid amount!"
	msgFailed       = "Something went wrong, check the server log."
)

var usage = map[string]string{
	"join":     "join <player> [uuid]",
	"balance":  "balance <player>",
	"pay":      "pay <from> <to> <amount>",
	"withdraw": "withdraw <player> <amount>",
	"redeem":   "redeem <player> <note>",
	"note":     "note <note>",
	"admin":    "admin reload|set|give|take <player> <amount>",
}

var helpOrder = []string{"join", "balance", "pay", "withdraw", "redeem", "note", "admin"}

// Console reads commands and writes one reply line per command.
type Console struct {
	svc    *commands.Service
	out    io.Writer
	logger *slog.Logger
}

// New builds a console writing replies to out.
func New(svc *commands.Service, out io.Writer, logger *slog.Logger) *Console {
	if logger == nil {
		logger = slog.Default()
	}
	return &Console{svc: svc, out: out, logger: logger}
}

// Run executes lines from in until EOF, a stop command or ctx is done.
func (c *Console) Run(ctx context.Context, in io.Reader) error {
	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-readErr:
			return err
		case line := <-lines:
			if err := c.Execute(ctx, line); err != nil {
				if errors.Is(err, ErrStop) {
					return nil
				}
				return err
			}
		}
	}
}

// Execute runs a single command line. Outcomes a player would see are
// written to the output; only ErrStop and output failures are returned.
func (c *Console) Execute(ctx context.Context, line string) error {
	args := strings.Fields(line)
	if len(args) == 0 {
		return nil
	}
	verb := strings.ToLower(args[0])
	args = args[1:]

	var reply string
	switch verb {
	case "stop", "quit", "exit":
		return ErrStop
	case "help":
		reply = c.help()
	case "join":
		reply = c.join(ctx, args)
	case "balance", "bal":
		reply = c.balance(ctx, args)
	case "pay":
		reply = c.pay(ctx, args)
	case "withdraw":
		reply = c.withdraw(ctx, args)
	case "redeem":
		reply = c.redeem(ctx, args)
	case "note":
		reply = c.note(ctx, args)
	case "admin", "economyadmin":
		reply = c.admin(ctx, args)
	default:
		reply = fmt.Sprintf("Unknown command %q, try help.", verb)
	}
	_, err := fmt.Fprintln(c.out, reply)
	return err
}

func (c *Console) help() string {
	lines := make([]string, 0, len(helpOrder)+1)
	for _, verb := range helpOrder {
		lines = append(lines, "  "+usage[verb])
	}
	lines = append(lines, "  stop")
	return "Commands:\n" + strings.Join(lines, "\n")
}

func (c *Console) join(ctx context.Context, args []string) string {
	if len(args) < 1 || len(args) > 2 {
		return usageOf("join")
	}
	id := uuid.Nil
	if len(args) == 2 {
		parsed, err := uuid.Parse(args[1])
		if err != nil {
			return "Please enter a valid player id!"
		}
		id = parsed
	}
	res, err := c.svc.Join(ctx, args[0], id)
	if err != nil {
		if errors.Is(err, identity.ErrInvalidName) {
			return "Player names are 1 to 16 letters, digits or underscores."
		}
		return c.failure("join", err)
	}
	verb := "Welcome back"
	if res.Created {
		verb = "Welcome"
	}
	return fmt.Sprintf("%s, %s (%s). Balance: %s", verb, res.Player.Name, res.Player.ID, c.svc.Format(res.Balance))
}

func (c *Console) balance(ctx context.Context, args []string) string {
	if len(args) != 1 {
		return usageOf("balance")
	}
	res, err := c.svc.Balance(ctx, args[0])
	if err != nil {
		return c.failure("balance", err)
	}
	return fmt.Sprintf("%s's balance: %s", res.Player.Name, c.svc.Format(res.Balance))
}

func (c *Console) pay(ctx context.Context, args []string) string {
	if len(args) != 3 {
		return usageOf("pay")
	}
	amount, err := money.ParsePositive(args[2])
	if err != nil {
		return msgInvalidValue
	}
	res, err := c.svc.Pay(ctx, commands.PayInput{From: args[0], To: args[1], Amount: amount})
	if err != nil {
		return c.failure("pay", err)
	}
	return fmt.Sprintf("Sent %s to %s.", c.svc.Format(res.Amount), res.To.Name)
}

func (c *Console) withdraw(ctx context.Context, args []string) string {
	if len(args) != 2 {
		return usageOf("withdraw")
	}
	amount, err := money.ParsePositive(args[1])
	if err != nil {
		return msgInvalidValue
	}
	res, err := c.svc.Withdraw(ctx, args[0], amount)
	if err != nil {
		return c.failure("withdraw", err)
	}
	return fmt.Sprintf("Withdrawn %s as a banknote! Note: %s", c.svc.Format(res.FaceValue), res.NoteID)
}

func (c *Console) redeem(ctx context.Context, args []string) string {
	if len(args) != 2 {
		return usageOf("redeem")
	}
	res, err := c.svc.Redeem(ctx, args[0], args[1])
	if err != nil {
		return c.failure("redeem", err)
	}
	return fmt.Sprintf("Redeemed %s into your account!", c.svc.Format(res.Credited))
}

func (c *Console) note(ctx context.Context, args []string) string {
	if len(args) != 1 {
		return usageOf("note")
	}
	value, err := c.svc.InspectNote(ctx, args[0])
	if err != nil {
		return c.failure("note", err)
	}
	return fmt.Sprintf("Banknote worth %s.", c.svc.Format(value))
}

func (c *Console) admin(ctx context.Context, args []string) string {
	if len(args) == 0 {
		return usageOf("admin")
	}
	action := strings.ToLower(args[0])
	if action == "reload" {
		if len(args) != 1 {
			return usageOf("admin")
		}
		if err := c.svc.Reload(ctx); err != nil {
			return c.failure("admin reload", err)
		}
		return "Economy's data has been reloaded."
	}
	if len(args) != 3 {
		return usageOf("admin")
	}
	amount, err := money.Parse(args[2])
	if err != nil || amount.IsNegative() {
		return msgInvalidValue
	}

	switch action {
	case "set":
		res, err := c.svc.AdminSet(ctx, args[1], amount)
		if err != nil {
			return c.failure("admin set", err)
		}
		return fmt.Sprintf("Set %s's balance to %s", res.Player.Name, c.svc.Format(res.Balance))
	case "give":
		res, err := c.svc.AdminGive(ctx, args[1], amount)
		if err != nil {
			return c.failure("admin give", err)
		}
		return fmt.Sprintf("Gave %s to %s. New balance: %s", c.svc.Format(amount), res.Player.Name, c.svc.Format(res.Balance))
	case "take":
		res, err := c.svc.AdminTake(ctx, args[1], amount)
		if err != nil {
			return c.failure("admin take", err)
		}
		return fmt.Sprintf("Took %s from %s. New balance: %s", c.svc.Format(amount), res.Player.Name, c.svc.Format(res.Balance))
	default:
		return usageOf("admin")
	}
}

// failure maps an error to the reply a player sees. Unexpected errors are
// logged because the player only gets a generic line.
func (c *Console) failure(command string, err error) string {
	switch {
	case errors.Is(err, identity.ErrUnknownPlayer):
		return msgNoPlayer
	case errors.Is(err, ledger.ErrInsufficientFunds):
		return msgNoMoney
	case errors.Is(err, ledger.ErrSelfTransfer):
		return msgSelfPay
	case errors.Is(err, ledger.ErrInvalidOrRedeemedToken):
		return msgInvalidNote
	case errors.Is(err, ledger.ErrInvalidAmount):
		return msgInvalidValue
	}
	c.logger.Error("console command failed", "command", command, "error", err)
	return msgFailed
}

func usageOf(verb string) string {
	return "Usage: " + usage[verb]
}
