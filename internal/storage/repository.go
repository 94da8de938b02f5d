package storage

import (
	"context"
	"errors"

	"github.com/terra-clan/practice-engine/internal/models"
)

// ErrConflict is returned when an update kept losing to concurrent writers
var ErrConflict = errors.New("record update conflict")

// MutateFunc computes the next state of a record. current is nil when the
// record does not exist yet and may be modified freely. Returning an error
// aborts the update without writing.
type MutateFunc func(current *models.Record) (*models.Record, error)

// Repository defines the interface for question record persistence
type Repository interface {
	// GetRecord returns nil, nil when the record does not exist
	GetRecord(ctx context.Context, id string) (*models.Record, error)
	// GetRecords omits ids without a record
	GetRecords(ctx context.Context, ids []string) (map[string]*models.Record, error)
	// UpdateRecord performs an atomic read-modify-write of one record
	UpdateRecord(ctx context.Context, id string, mutate MutateFunc) (*models.Record, error)

	// Health
	Ping(ctx context.Context) error
	Close() error
}
