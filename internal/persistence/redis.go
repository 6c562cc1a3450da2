package persistence

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/congo-pay/economy/internal/money"
)

// RedisBackend keeps a mapping in one Redis hash. Commits run inside
// MULTI/EXEC so a batch is applied atomically.
type RedisBackend struct {
	client *redis.Client
	key    string
}

// NewRedisBackend builds a backend over the hash stored at key.
func NewRedisBackend(client *redis.Client, key string) *RedisBackend {
	return &RedisBackend{client: client, key: key}
}

func (b *RedisBackend) Load(ctx context.Context) (map[string]money.Amount, error) {
	raw, err := b.client.HGetAll(ctx, b.key).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: load %s: %w", ErrPersistence, b.key, err)
	}
	state := make(map[string]money.Amount, len(raw))
	for field, value := range raw {
		d, err := decimal.NewFromString(value)
		if err != nil {
			return nil, fmt.Errorf("%w: decode %s.%s: %w", ErrPersistence, b.key, field, err)
		}
		state[field] = money.FromDecimal(d)
	}
	return state, nil
}

func (b *RedisBackend) Commit(ctx context.Context, _ map[string]money.Amount, changes ...Change) error {
	if len(changes) == 0 {
		return nil
	}
	_, err := b.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, c := range changes {
			if c.Deleted {
				pipe.HDel(ctx, b.key, c.Key)
				continue
			}
			pipe.HSet(ctx, b.key, c.Key, c.Value.String())
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: write %s: %w", ErrPersistence, b.key, err)
	}
	return nil
}

func (b *RedisBackend) Ping(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}

// Close is a no-op; the client is shared and closed by its owner.
func (b *RedisBackend) Close() error { return nil }
