package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/congo-pay/economy/internal/config"
	"github.com/congo-pay/economy/internal/identity"
	"github.com/congo-pay/economy/internal/infra"
	"github.com/congo-pay/economy/internal/persistence"
)

const (
	accountsFile   = "playerdata.yml"
	banknotesFile  = "banknotes.yml"
	accountsTable  = "economy_accounts"
	banknotesTable = "economy_banknotes"
)

// storeDeps holds the durable backends selected by STORE_BACKEND and the
// connections behind them.
type storeDeps struct {
	accounts  persistence.Backend
	banknotes persistence.Backend
	players   identity.Repository

	db     *pgxpool.Pool
	cache  *redis.Client
	closed bool
}

func openStores(ctx context.Context, cfg config.Config, logger *slog.Logger) (*storeDeps, error) {
	d := &storeDeps{players: identity.NewMemoryRepository()}

	switch cfg.StoreBackend {
	case config.BackendMemory:
		logger.Warn("using in-memory stores, balances are lost on exit")
		d.accounts = persistence.NewMemoryBackend()
		d.banknotes = persistence.NewMemoryBackend()

	case config.BackendFile:
		if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
		d.accounts = persistence.NewFileBackend(filepath.Join(cfg.DataDir, accountsFile))
		d.banknotes = persistence.NewFileBackend(filepath.Join(cfg.DataDir, banknotesFile))

	case config.BackendPostgres:
		db, err := infra.NewPostgresPool(ctx, cfg.DatabaseURL, cfg.AppName)
		if err != nil {
			return nil, err
		}
		d.db = db
		accounts := persistence.NewPostgresBackend(db, accountsTable)
		banknotes := persistence.NewPostgresBackend(db, banknotesTable)
		players := identity.NewPostgresRepository(db)
		if err := infra.EnsureSchemas(ctx, accounts, banknotes, players); err != nil {
			db.Close()
			return nil, err
		}
		d.accounts, d.banknotes, d.players = accounts, banknotes, players

	case config.BackendRedis:
		cache, err := infra.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		d.cache = cache
		d.accounts = persistence.NewRedisBackend(cache, cfg.RedisPrefix+":accounts")
		d.banknotes = persistence.NewRedisBackend(cache, cfg.RedisPrefix+":banknotes")

	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}

	return d, nil
}

func (d *storeDeps) close(logger *slog.Logger) {
	if d.closed {
		return
	}
	d.closed = true
	for name, b := range map[string]persistence.Backend{"accounts": d.accounts, "banknotes": d.banknotes} {
		if err := b.Close(); err != nil {
			logger.Warn("close backend", "store", name, "error", err)
		}
	}
	if d.cache != nil {
		if err := d.cache.Close(); err != nil {
			logger.Warn("close redis", "error", err)
		}
	}
	if d.db != nil {
		d.db.Close()
	}
}
