package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/terra-clan/practice-engine/internal/models"
)

// document is the on-disk layout: {"records": {"<id>": {...}}}
type document struct {
	Records map[string]*models.Record `json:"records"`
}

// FileRepository keeps every record in a single JSON document.
// All writes are serialized through one mutex and replace the file
// atomically.
type FileRepository struct {
	path string
	mu   sync.RWMutex
}

// NewFileRepository creates the document (and its directory) if missing
func NewFileRepository(path string) (*FileRepository, error) {
	r := &FileRepository{path: path}
	if err := r.ensureFile(); err != nil {
		return nil, err
	}
	return r, nil
}

// Path returns the location of the backing document
func (r *FileRepository) Path() string {
	return r.path
}

func (r *FileRepository) ensureFile() error {
	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return fmt.Errorf("failed to create records directory: %w", err)
	}
	if _, err := os.Stat(r.path); errors.Is(err, fs.ErrNotExist) {
		return r.write(&document{Records: map[string]*models.Record{}})
	}
	return nil
}

// load reads the document. A missing or unparsable document yields an
// empty one rather than an error.
func (r *FileRepository) load() *document {
	doc := &document{Records: map[string]*models.Record{}}

	data, err := os.ReadFile(r.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			slog.Warn("failed to read records document, starting empty", "path", r.path, "error", err)
		}
		return doc
	}

	if err := json.Unmarshal(data, doc); err != nil {
		slog.Warn("records document is corrupt, starting empty", "path", r.path, "error", err)
		return &document{Records: map[string]*models.Record{}}
	}
	if doc.Records == nil {
		doc.Records = map[string]*models.Record{}
	}
	return doc
}

func (r *FileRepository) write(doc *document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal records: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(r.path), ".records-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write records: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync records: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpName, r.path); err != nil {
		return fmt.Errorf("failed to replace records document: %w", err)
	}
	return nil
}

// GetRecord retrieves a record by question ID
func (r *FileRepository) GetRecord(ctx context.Context, id string) (*models.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.load().Records[id], nil
}

// GetRecords retrieves records for the given question IDs
func (r *FileRepository) GetRecords(ctx context.Context, ids []string) (map[string]*models.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := r.load().Records
	result := make(map[string]*models.Record, len(ids))
	for _, id := range ids {
		if rec, ok := all[id]; ok && rec != nil {
			result[id] = rec
		}
	}
	return result, nil
}

// UpdateRecord loads the document, applies mutate and writes it back
func (r *FileRepository) UpdateRecord(ctx context.Context, id string, mutate MutateFunc) (*models.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// the caller may have given up while waiting for the lock
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	doc := r.load()
	next, err := mutate(doc.Records[id].Clone())
	if err != nil {
		return nil, err
	}
	if next == nil {
		return nil, fmt.Errorf("mutate returned no record for %s", id)
	}

	doc.Records[id] = next
	if err := r.write(doc); err != nil {
		return nil, err
	}
	return next, nil
}

// Ping checks the document is reachable
func (r *FileRepository) Ping(ctx context.Context) error {
	if _, err := os.Stat(r.path); err != nil {
		return fmt.Errorf("records document unavailable: %w", err)
	}
	return nil
}

// Close is a no-op for the file backend
func (r *FileRepository) Close() error {
	return nil
}
