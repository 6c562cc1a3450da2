package identity

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrUnknownPlayer is returned when no player matches the lookup.
var ErrUnknownPlayer = errors.New("player not found")

// Repository persists players.
type Repository interface {
	Upsert(ctx context.Context, player Player) error
	FindByID(ctx context.Context, id uuid.UUID) (Player, error)
	// FindByName matches case-insensitively and returns the most recently
	// seen holder when a name has moved between players.
	FindByName(ctx context.Context, name string) (Player, error)
}

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed player repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// EnsureSchema creates the players table when it does not exist.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, `CREATE TABLE IF NOT EXISTS players (
        id         UUID PRIMARY KEY,
        name       TEXT NOT NULL,
        first_seen TIMESTAMPTZ NOT NULL,
        last_seen  TIMESTAMPTZ NOT NULL
    )`); err != nil {
		return err
	}
	_, err := r.db.Exec(ctx, `CREATE INDEX IF NOT EXISTS players_lower_name_idx
        ON players (lower(name), last_seen DESC)`)
	return err
}

// Upsert inserts a player or refreshes its name and last_seen.
func (r *PostgresRepository) Upsert(ctx context.Context, player Player) error {
	_, err := r.db.Exec(ctx, `INSERT INTO players (id, name, first_seen, last_seen)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, last_seen = EXCLUDED.last_seen`,
		player.ID, player.Name, player.FirstSeen.UTC(), player.LastSeen.UTC())
	return err
}

// FindByID fetches a player by identifier.
func (r *PostgresRepository) FindByID(ctx context.Context, id uuid.UUID) (Player, error) {
	row := r.db.QueryRow(ctx, `SELECT id, name, first_seen, last_seen FROM players WHERE id = $1`, id)
	return scanPlayer(row)
}

// FindByName fetches the latest holder of a name.
func (r *PostgresRepository) FindByName(ctx context.Context, name string) (Player, error) {
	row := r.db.QueryRow(ctx, `SELECT id, name, first_seen, last_seen FROM players
        WHERE lower(name) = lower($1) ORDER BY last_seen DESC LIMIT 1`, name)
	return scanPlayer(row)
}

func scanPlayer(row pgx.Row) (Player, error) {
	var (
		p         Player
		firstSeen time.Time
		lastSeen  time.Time
	)
	if err := row.Scan(&p.ID, &p.Name, &firstSeen, &lastSeen); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Player{}, ErrUnknownPlayer
		}
		return Player{}, err
	}
	p.FirstSeen = firstSeen.UTC()
	p.LastSeen = lastSeen.UTC()
	return p, nil
}
