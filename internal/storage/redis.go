package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/terra-clan/practice-engine/internal/models"
)

// RedisRepository stores one JSON value per record under <prefix>record:<id>
// and updates it with WATCH/MULTI optimistic transactions.
type RedisRepository struct {
	client      *redis.Client
	prefix      string
	maxAttempts int
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Address     string
	Password    string
	DB          int
	Prefix      string
	MaxAttempts int
}

// NewRedisRepository connects to Redis and verifies the connection
func NewRedisRepository(ctx context.Context, cfg RedisConfig) (*RedisRepository, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return newRedisRepository(client, cfg.Prefix, cfg.MaxAttempts), nil
}

func newRedisRepository(client *redis.Client, prefix string, attempts int) *RedisRepository {
	if prefix == "" {
		prefix = "practice:"
	}
	if attempts <= 0 {
		attempts = 10
	}
	return &RedisRepository{client: client, prefix: prefix, maxAttempts: attempts}
}

func (r *RedisRepository) key(id string) string {
	return r.prefix + "record:" + id
}

func decodeRecord(id, raw string) (*models.Record, error) {
	var rec models.Record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal record %s: %w", id, err)
	}
	return &rec, nil
}

// GetRecord retrieves a record by question ID
func (r *RedisRepository) GetRecord(ctx context.Context, id string) (*models.Record, error) {
	raw, err := r.client.Get(ctx, r.key(id)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get record: %w", err)
	}
	return decodeRecord(id, raw)
}

// GetRecords retrieves records for the given question IDs
func (r *RedisRepository) GetRecords(ctx context.Context, ids []string) (map[string]*models.Record, error) {
	result := make(map[string]*models.Record, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.key(id)
	}

	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get records: %w", err)
	}

	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue // missing key
		}
		rec, err := decodeRecord(ids[i], raw)
		if err != nil {
			slog.Warn("skipping unreadable record", "id", ids[i], "error", err)
			continue
		}
		result[ids[i]] = rec
	}
	return result, nil
}

// UpdateRecord watches the record key, applies mutate and commits in MULTI.
// A concurrent write aborts the transaction and the update is retried.
func (r *RedisRepository) UpdateRecord(ctx context.Context, id string, mutate MutateFunc) (*models.Record, error) {
	key := r.key(id)
	var updated *models.Record

	txf := func(tx *redis.Tx) error {
		var current *models.Record
		raw, err := tx.Get(ctx, key).Result()
		switch {
		case errors.Is(err, redis.Nil):
		case err != nil:
			return fmt.Errorf("failed to get record: %w", err)
		default:
			if current, err = decodeRecord(id, raw); err != nil {
				return err
			}
		}

		next, err := mutate(current)
		if err != nil {
			return err
		}
		if next == nil {
			return fmt.Errorf("mutate returned no record for %s", id)
		}

		data, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("failed to marshal record: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			return nil
		})
		if err == nil {
			updated = next
		}
		return err
	}

	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		err := r.client.Watch(ctx, txf, key)
		if err == nil {
			return updated, nil
		}
		if !errors.Is(err, redis.TxFailedErr) {
			return nil, err
		}
		slog.Debug("redis record changed during update, retrying", "id", id, "attempt", attempt)
	}

	return nil, fmt.Errorf("%w: %s", ErrConflict, id)
}

// Ping verifies Redis connectivity
func (r *RedisRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (r *RedisRepository) Close() error {
	return r.client.Close()
}
