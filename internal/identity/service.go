package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// offlineNamespace seeds identifiers for players the host could not
// authenticate. The same name always maps to the same ID.
var offlineNamespace = uuid.MustParse("6f1b4a52-8f1e-4c3e-9a47-3c0d2e7b9d10")

const maxNameLength = 16

// ErrInvalidName is returned by Join for names outside [A-Za-z0-9_]{1,16}.
var ErrInvalidName = errors.New("invalid player name")

// Service resolves human-facing names to stable player identifiers.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService creates a new player directory.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// OfflineID derives the identifier used for a name when the host supplies none.
func OfflineID(name string) uuid.UUID {
	return uuid.NewSHA1(offlineNamespace, []byte("OfflinePlayer:"+name))
}

// Join records a player sighting. A nil id falls back to OfflineID. The
// returned flag is true when the player had never been seen before.
func (s *Service) Join(ctx context.Context, name string, id uuid.UUID) (Player, bool, error) {
	name = strings.TrimSpace(name)
	if err := validateName(name); err != nil {
		return Player{}, false, err
	}
	if id == uuid.Nil {
		id = OfflineID(name)
	}

	now := s.now().UTC()
	player, err := s.repo.FindByID(ctx, id)
	created := false
	switch {
	case errors.Is(err, ErrUnknownPlayer):
		player = Player{ID: id, FirstSeen: now}
		created = true
	case err != nil:
		return Player{}, false, err
	}
	player.Name = name
	player.LastSeen = now

	if err := s.repo.Upsert(ctx, player); err != nil {
		return Player{}, false, err
	}
	return player, created, nil
}

// Resolve returns the player currently holding name.
func (s *Service) Resolve(ctx context.Context, name string) (Player, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Player{}, ErrUnknownPlayer
	}
	return s.repo.FindByName(ctx, name)
}

func validateName(name string) error {
	if name == "" || len(name) > maxNameLength {
		return fmt.Errorf("%w: must be 1-%d characters", ErrInvalidName, maxNameLength)
	}
	for _, r := range name {
		if !(r == '_' || r >= '0' && r <= '9' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z') {
			return fmt.Errorf("%w: %q contains invalid characters", ErrInvalidName, name)
		}
	}
	return nil
}
