package identity

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
)

type memoryRepository struct {
	mu      sync.RWMutex
	players map[uuid.UUID]Player
}

// NewMemoryRepository builds an in-memory player store.
func NewMemoryRepository() Repository {
	return &memoryRepository{players: make(map[uuid.UUID]Player)}
}

func (r *memoryRepository) Upsert(_ context.Context, player Player) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.players[player.ID]; ok {
		existing.Name = player.Name
		existing.LastSeen = player.LastSeen
		r.players[player.ID] = existing
		return nil
	}
	r.players[player.ID] = player
	return nil
}

func (r *memoryRepository) FindByID(_ context.Context, id uuid.UUID) (Player, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	player, ok := r.players[id]
	if !ok {
		return Player{}, ErrUnknownPlayer
	}
	return player, nil
}

func (r *memoryRepository) FindByName(_ context.Context, name string) (Player, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var (
		found Player
		ok    bool
	)
	for _, p := range r.players {
		if !strings.EqualFold(p.Name, name) {
			continue
		}
		if !ok || p.LastSeen.After(found.LastSeen) {
			found, ok = p, true
		}
	}
	if !ok {
		return Player{}, ErrUnknownPlayer
	}
	return found, nil
}
