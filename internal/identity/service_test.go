package identity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func newTestService() (*Service, *time.Time) {
	clock := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	svc := NewService(NewMemoryRepository())
	svc.now = func() time.Time { return clock }
	return svc, &clock
}

func TestJoinAndResolve(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	id := uuid.New()

	player, created, err := svc.Join(ctx, "Steve", id)
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if !created || player.ID != id {
		t.Fatalf("expected new player %s, got %+v created=%v", id, player, created)
	}

	resolved, err := svc.Resolve(ctx, "steve")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resolved.ID != id {
		t.Fatalf("expected %s, got %s", id, resolved.ID)
	}

	if _, created, _ := svc.Join(ctx, "Steve", id); created {
		t.Fatal("expected second join to reuse the record")
	}
}

func TestOfflineIDIsStable(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	p1, _, err := svc.Join(ctx, "Alex", uuid.Nil)
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if p1.ID != OfflineID("Alex") {
		t.Fatalf("expected offline id, got %s", p1.ID)
	}
	if OfflineID("Alex") == OfflineID("Steve") {
		t.Fatal("expected distinct offline ids")
	}
}

func TestRenameKeepsIdentifier(t *testing.T) {
	svc, clock := newTestService()
	ctx := context.Background()
	id := uuid.New()

	if _, _, err := svc.Join(ctx, "OldName", id); err != nil {
		t.Fatalf("join: %v", err)
	}
	*clock = clock.Add(time.Hour)
	if _, _, err := svc.Join(ctx, "NewName", id); err != nil {
		t.Fatalf("rename: %v", err)
	}

	p, err := svc.Resolve(ctx, "NewName")
	if err != nil || p.ID != id {
		t.Fatalf("expected %s under new name, got %+v (%v)", id, p, err)
	}
	if _, err := svc.Resolve(ctx, "OldName"); !errors.Is(err, ErrUnknownPlayer) {
		t.Fatalf("expected old name to be released, got %v", err)
	}
}

func TestNameMovesToLatestHolder(t *testing.T) {
	svc, clock := newTestService()
	ctx := context.Background()
	first, second := uuid.New(), uuid.New()

	_, _, _ = svc.Join(ctx, "Notch", first)
	*clock = clock.Add(time.Minute)
	_, _, _ = svc.Join(ctx, "Notch", second)

	p, err := svc.Resolve(ctx, "Notch")
	if err != nil || p.ID != second {
		t.Fatalf("expected latest holder %s, got %+v (%v)", second, p, err)
	}
}

func TestJoinRejectsInvalidNames(t *testing.T) {
	svc, _ := newTestService()
	for _, name := range []string{"", "has space", "waytoolongplayername", "semi;colon"} {
		if _, _, err := svc.Join(context.Background(), name, uuid.Nil); !errors.Is(err, ErrInvalidName) {
			t.Fatalf("expected %q to be rejected, got %v", name, err)
		}
	}
}

func TestResolveUnknown(t *testing.T) {
	svc, _ := newTestService()
	if _, err := svc.Resolve(context.Background(), "ghost"); !errors.Is(err, ErrUnknownPlayer) {
		t.Fatalf("expected ErrUnknownPlayer, got %v", err)
	}
}
