package metrics

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/congo-pay/economy/internal/ledger"
	"github.com/congo-pay/economy/internal/money"
	"github.com/congo-pay/economy/internal/persistence"
)

func TestOutcome(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{nil, "ok"},
		{ledger.ErrInsufficientFunds, "insufficient_funds"},
		{ledger.ErrInvalidAmount, "invalid_amount"},
		{ledger.ErrSelfTransfer, "self_transfer"},
		{ledger.ErrInvalidOrRedeemedToken, "invalid_note"},
		{fmt.Errorf("%w: disk", ledger.ErrPersistence), "persistence_error"},
		{errors.New("other"), "error"},
	}
	for _, tc := range cases {
		if got := Outcome(tc.err); got != tc.want {
			t.Fatalf("outcome(%v): expected %s, got %s", tc.err, tc.want, got)
		}
	}
}

func TestRecordOperationCounts(t *testing.T) {
	c := New()
	c.RecordOperation(ledger.OpDeposit, nil)
	c.RecordOperation(ledger.OpDeposit, nil)
	c.RecordOperation(ledger.OpWithdraw, ledger.ErrInsufficientFunds)

	if got := testutil.ToFloat64(c.operations.WithLabelValues(ledger.OpDeposit, "ok")); got != 2 {
		t.Fatalf("expected 2 deposits, got %v", got)
	}
	if got := testutil.ToFloat64(c.operations.WithLabelValues(ledger.OpWithdraw, "insufficient_funds")); got != 1 {
		t.Fatalf("expected 1 failed withdraw, got %v", got)
	}
}

func TestInstrumentBackendObservesCommits(t *testing.T) {
	c := New()
	b := c.InstrumentBackend("accounts", persistence.NewMemoryBackend())

	key := uuid.NewString()
	if err := b.Commit(context.Background(), nil, persistence.Change{Key: key, Value: money.FromCents(1)}); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if n := testutil.CollectAndCount(c.commits, "economy_persistence_commit_duration_seconds"); n != 1 {
		t.Fatalf("expected one histogram series, got %d", n)
	}
	state, _ := b.Load(context.Background())
	if state[key].Cents() != 1 {
		t.Fatalf("expected wrapped backend to store the change")
	}
}

func TestTrackGauge(t *testing.T) {
	c := New()
	c.TrackGauge("banknote", "live", "Live banknotes.", func() float64 { return 3 })

	families, err := c.Registry().Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, f := range families {
		if f.GetName() == "economy_banknote_live" {
			if v := f.GetMetric()[0].GetGauge().GetValue(); v != 3 {
				t.Fatalf("expected 3, got %v", v)
			}
			return
		}
	}
	t.Fatal("gauge not registered")
}
