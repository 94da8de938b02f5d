package storage

import (
	"context"
	"fmt"
	"log/slog"
)

// Supported drivers
const (
	DriverFile     = "file"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
)

// Options selects and configures a backend
type Options struct {
	Driver        string
	FilePath      string
	Postgres      PostgresConfig
	MigrationsDir string
	Redis         RedisConfig
}

// Open creates the repository for opts.Driver. The postgres driver runs
// pending migrations before returning.
func Open(ctx context.Context, opts Options) (Repository, error) {
	switch opts.Driver {
	case "", DriverFile:
		slog.Info("using file record store", "path", opts.FilePath)
		return NewFileRepository(opts.FilePath)

	case DriverPostgres:
		repo, err := NewPostgresRepository(ctx, opts.Postgres)
		if err != nil {
			return nil, err
		}
		migrations, err := Migrations(opts.MigrationsDir)
		if err != nil {
			repo.Close()
			return nil, fmt.Errorf("failed to load migrations: %w", err)
		}
		if err := RunMigrations(ctx, repo.Pool(), migrations); err != nil {
			repo.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		slog.Info("using postgres record store")
		return repo, nil

	case DriverRedis:
		repo, err := NewRedisRepository(ctx, opts.Redis)
		if err != nil {
			return nil, err
		}
		slog.Info("using redis record store", "address", opts.Redis.Address, "prefix", repo.prefix)
		return repo, nil

	default:
		return nil, fmt.Errorf("unknown store driver: %s", opts.Driver)
	}
}
