package persistence

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/congo-pay/economy/internal/money"
)

// PostgresBackend stores one mapping per table with NUMERIC(20,2) amounts.
// Each Commit runs in a single transaction so batch changes land together.
type PostgresBackend struct {
	db    *pgxpool.Pool
	table string
}

// NewPostgresBackend builds a backend over table. The pool is owned by the caller.
func NewPostgresBackend(db *pgxpool.Pool, table string) *PostgresBackend {
	return &PostgresBackend{db: db, table: pgx.Identifier{table}.Sanitize()}
}

// EnsureSchema creates the backing table when it does not exist.
func (b *PostgresBackend) EnsureSchema(ctx context.Context) error {
	query := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
        key        TEXT PRIMARY KEY,
        amount     NUMERIC(20, 2) NOT NULL CHECK (amount >= 0),
        updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
    )`, b.table)
	if _, err := b.db.Exec(ctx, query); err != nil {
		return fmt.Errorf("%w: create %s: %w", ErrPersistence, b.table, err)
	}
	return nil
}

func (b *PostgresBackend) Load(ctx context.Context) (map[string]money.Amount, error) {
	rows, err := b.db.Query(ctx, fmt.Sprintf(`SELECT key, amount::text FROM %s`, b.table))
	if err != nil {
		return nil, fmt.Errorf("%w: load %s: %w", ErrPersistence, b.table, err)
	}
	defer rows.Close()

	state := make(map[string]money.Amount)
	for rows.Next() {
		var key, raw string
		if err := rows.Scan(&key, &raw); err != nil {
			return nil, fmt.Errorf("%w: scan %s: %w", ErrPersistence, b.table, err)
		}
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: decode %s.%s: %w", ErrPersistence, b.table, key, err)
		}
		state[key] = money.FromDecimal(d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: load %s: %w", ErrPersistence, b.table, err)
	}
	return state, nil
}

func (b *PostgresBackend) Commit(ctx context.Context, _ map[string]money.Amount, changes ...Change) error {
	tx, err := b.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("%w: begin: %w", ErrPersistence, err)
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	upsert := fmt.Sprintf(`INSERT INTO %s (key, amount, updated_at) VALUES ($1, $2::numeric, now())
        ON CONFLICT (key) DO UPDATE SET amount = EXCLUDED.amount, updated_at = EXCLUDED.updated_at`, b.table)
	remove := fmt.Sprintf(`DELETE FROM %s WHERE key = $1`, b.table)

	for _, c := range changes {
		if c.Deleted {
			_, err = tx.Exec(ctx, remove, c.Key)
		} else {
			_, err = tx.Exec(ctx, upsert, c.Key, c.Value.String())
		}
		if err != nil {
			return fmt.Errorf("%w: write %s.%s: %w", ErrPersistence, b.table, c.Key, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: commit %s: %w", ErrPersistence, b.table, err)
	}
	return nil
}

func (b *PostgresBackend) Ping(ctx context.Context) error {
	return b.db.Ping(ctx)
}

// Close is a no-op; the pool is shared and closed by its owner.
func (b *PostgresBackend) Close() error { return nil }
