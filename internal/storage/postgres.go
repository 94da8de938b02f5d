package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/terra-clan/practice-engine/internal/models"
)

// PostgresRepository implements Repository using PostgreSQL.
// Each record is a JSONB row guarded by an integer version.
type PostgresRepository struct {
	pool        *pgxpool.Pool
	maxAttempts int
}

// PostgresConfig holds PostgreSQL connection configuration
type PostgresConfig struct {
	DSN          string
	MaxOpenConns int32
	MaxIdleConns int32
	MaxLifetime  time.Duration
	// MaxAttempts bounds optimistic-update retries
	MaxAttempts int
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(ctx context.Context, cfg PostgresConfig) (*PostgresRepository, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DSN: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		poolConfig.MaxConns = cfg.MaxOpenConns
	} else {
		poolConfig.MaxConns = 10
	}

	if cfg.MaxIdleConns > 0 {
		poolConfig.MinConns = cfg.MaxIdleConns
	} else {
		poolConfig.MinConns = 1
	}

	if cfg.MaxLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxLifetime
	} else {
		poolConfig.MaxConnLifetime = 30 * time.Minute
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	attempts := cfg.MaxAttempts
	if attempts <= 0 {
		attempts = 5
	}

	return &PostgresRepository{pool: pool, maxAttempts: attempts}, nil
}

// Pool exposes the connection pool for migrations
func (r *PostgresRepository) Pool() *pgxpool.Pool {
	return r.pool
}

// Ping checks database connectivity
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// Close closes the database connection pool
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

// GetRecord retrieves a record by question ID
func (r *PostgresRepository) GetRecord(ctx context.Context, id string) (*models.Record, error) {
	rec, _, err := r.getRecord(ctx, id)
	return rec, err
}

func (r *PostgresRepository) getRecord(ctx context.Context, id string) (*models.Record, int64, error) {
	query := `SELECT record, version FROM question_records WHERE id = $1`

	var recordJSON []byte
	var version int64
	err := r.pool.QueryRow(ctx, query, id).Scan(&recordJSON, &version)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, 0, nil // Not found
		}
		return nil, 0, fmt.Errorf("failed to get record: %w", err)
	}

	var rec models.Record
	if err := json.Unmarshal(recordJSON, &rec); err != nil {
		return nil, 0, fmt.Errorf("failed to unmarshal record %s: %w", id, err)
	}
	rec.Version = version
	return &rec, version, nil
}

// GetRecords retrieves records for the given question IDs
func (r *PostgresRepository) GetRecords(ctx context.Context, ids []string) (map[string]*models.Record, error) {
	result := make(map[string]*models.Record, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	rows, err := r.pool.Query(ctx, `SELECT id, record, version FROM question_records WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		var recordJSON []byte
		var version int64
		if err := rows.Scan(&id, &recordJSON, &version); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}

		var rec models.Record
		if err := json.Unmarshal(recordJSON, &rec); err != nil {
			slog.Warn("skipping unreadable record", "id", id, "error", err)
			continue
		}
		rec.Version = version
		result[id] = &rec
	}

	return result, rows.Err()
}

// UpdateRecord applies mutate with optimistic concurrency: the write only
// lands if the version read is still current, otherwise it retries.
func (r *PostgresRepository) UpdateRecord(ctx context.Context, id string, mutate MutateFunc) (*models.Record, error) {
	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		current, version, err := r.getRecord(ctx, id)
		if err != nil {
			return nil, err
		}

		next, err := mutate(current)
		if err != nil {
			return nil, err
		}
		if next == nil {
			return nil, fmt.Errorf("mutate returned no record for %s", id)
		}
		next.Version = version + 1

		ok, err := r.writeRecord(ctx, id, next, current == nil, version)
		if err != nil {
			return nil, err
		}
		if ok {
			return next, nil
		}

		slog.Debug("record version conflict, retrying", "id", id, "attempt", attempt)
	}

	return nil, fmt.Errorf("%w: %s", ErrConflict, id)
}

func (r *PostgresRepository) writeRecord(ctx context.Context, id string, rec *models.Record, insert bool, expected int64) (bool, error) {
	recordJSON, err := json.Marshal(rec)
	if err != nil {
		return false, fmt.Errorf("failed to marshal record: %w", err)
	}

	if insert {
		query := `
			INSERT INTO question_records (id, title, difficulty, category, completed, record, version, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
			ON CONFLICT (id) DO NOTHING
		`
		result, err := r.pool.Exec(ctx, query,
			id,
			rec.Title,
			string(rec.Difficulty),
			rec.Category,
			rec.Completed,
			recordJSON,
			rec.Version,
		)
		if err != nil {
			return false, fmt.Errorf("failed to insert record: %w", err)
		}
		return result.RowsAffected() == 1, nil
	}

	query := `
		UPDATE question_records
		SET completed = $2, record = $3, version = $4, updated_at = NOW()
		WHERE id = $1 AND version = $5
	`
	result, err := r.pool.Exec(ctx, query, id, rec.Completed, recordJSON, rec.Version, expected)
	if err != nil {
		return false, fmt.Errorf("failed to update record: %w", err)
	}
	return result.RowsAffected() == 1, nil
}
