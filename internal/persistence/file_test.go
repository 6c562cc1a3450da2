package persistence

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/congo-pay/economy/internal/money"
)

func TestFileBackendMissingFileLoadsEmpty(t *testing.T) {
	b := NewFileBackend(filepath.Join(t.TempDir(), "playerdata.yml"))
	state, err := b.Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(state) != 0 {
		t.Fatalf("expected empty state, got %v", state)
	}
}

func TestFileBackendRoundTrip(t *testing.T) {
	dir := t.TempDir()
	b := NewFileBackend(filepath.Join(dir, "data", "playerdata.yml"))
	ctx := context.Background()

	state := map[string]money.Amount{
		"a": money.MustParse("0.10"),
		"b": money.MustParse("1234567.89"),
		"c": money.Zero(),
	}
	if err := b.Commit(ctx, state); err != nil {
		t.Fatalf("commit: %v", err)
	}

	loaded, err := NewFileBackend(b.Path()).Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(loaded) != len(state) {
		t.Fatalf("expected %d keys, got %d", len(state), len(loaded))
	}
	for k, v := range state {
		if !loaded[k].Equal(v) {
			t.Fatalf("key %s: expected %s, got %s", k, v, loaded[k])
		}
	}

	entries, err := os.ReadDir(filepath.Join(dir, "data"))
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected only the data file to remain, got %d entries", len(entries))
	}
}

func TestFileBackendReadsFloatValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "banknotes.yml")
	legacy := "note-1: 60.0\nnote-2: 0.30000000000000004\nnote-3: '12.5'\n"
	if err := os.WriteFile(path, []byte(legacy), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	state, err := NewFileBackend(path).Load(context.Background())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	want := map[string]string{"note-1": "60.00", "note-2": "0.30", "note-3": "12.50"}
	for k, v := range want {
		if state[k].String() != v {
			t.Fatalf("key %s: expected %s, got %s", k, v, state[k])
		}
	}
}

func TestFileBackendRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "playerdata.yml")
	if err := os.WriteFile(path, []byte("- just\n- a list\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := NewFileBackend(path).Load(context.Background()); !errors.Is(err, ErrPersistence) {
		t.Fatalf("expected ErrPersistence, got %v", err)
	}
}

func TestFileBackendCommitFailsOnUnwritableTarget(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	// The parent "directory" is a regular file, so MkdirAll fails.
	b := NewFileBackend(filepath.Join(blocker, "playerdata.yml"))
	err := b.Commit(context.Background(), map[string]money.Amount{"a": money.FromCents(1)})
	if !errors.Is(err, ErrPersistence) {
		t.Fatalf("expected ErrPersistence, got %v", err)
	}
}
