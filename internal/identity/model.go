package identity

import (
	"time"

	"github.com/google/uuid"
)

// Player links a display name to the stable identifier used as the account key.
// Names may change over time; the ID never does.
type Player struct {
	ID        uuid.UUID
	Name      string
	FirstSeen time.Time
	LastSeen  time.Time
}
