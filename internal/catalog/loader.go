package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/terra-clan/practice-engine/internal/models"
)

// Loader holds the question catalog in document order
type Loader struct {
	mu    sync.RWMutex
	path  string
	items []models.CatalogItem
	byID  map[string]int
}

// NewLoader creates an empty catalog loader
func NewLoader() *Loader {
	return &Loader{byID: make(map[string]int)}
}

// Load reads the catalog at path. Any failure leaves the catalog empty
// and is logged; the error is returned for callers that care.
func (l *Loader) Load(path string) error {
	items, err := LoadFromFile(path)
	if err != nil {
		slog.Warn("failed to load catalog, using empty catalog", "path", path, "error", err)
		items = nil
	} else {
		slog.Info("catalog loaded", "path", path, "count", len(items))
	}

	l.mu.Lock()
	l.path = path
	l.set(items)
	l.mu.Unlock()
	return err
}

// Reload re-reads the last loaded path
func (l *Loader) Reload() error {
	l.mu.RLock()
	path := l.path
	l.mu.RUnlock()
	if path == "" {
		return fmt.Errorf("no catalog path loaded")
	}
	return l.Load(path)
}

// Set replaces the catalog programmatically
func (l *Loader) Set(items []models.CatalogItem) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.set(items)
}

func (l *Loader) set(items []models.CatalogItem) {
	l.items = make([]models.CatalogItem, 0, len(items))
	l.byID = make(map[string]int, len(items))
	for _, item := range items {
		if _, dup := l.byID[item.ID]; dup {
			slog.Warn("duplicate catalog id, keeping first", "id", item.ID)
			continue
		}
		l.byID[item.ID] = len(l.items)
		l.items = append(l.items, item)
	}
}

// Items returns a copy of the catalog in document order
func (l *Loader) Items() []models.CatalogItem {
	l.mu.RLock()
	defer l.mu.RUnlock()

	result := make([]models.CatalogItem, len(l.items))
	copy(result, l.items)
	return result
}

// Get retrieves a catalog item by ID
func (l *Loader) Get(id string) (models.CatalogItem, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	i, ok := l.byID[id]
	if !ok {
		return models.CatalogItem{}, false
	}
	return l.items[i], true
}

// Len returns the number of catalog items
func (l *Loader) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.items)
}

// LoadFromFile parses a catalog document. JSON documents are a top-level
// array of items; YAML documents may also wrap the array in "questions".
func LoadFromFile(path string) ([]models.CatalogItem, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var entries []itemFile
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		entries, err = parseYAML(data)
	default:
		entries, err = parseJSON(data)
	}
	if err != nil {
		return nil, err
	}

	items := make([]models.CatalogItem, 0, len(entries))
	for i, e := range entries {
		item, err := e.toItem()
		if err != nil {
			return nil, fmt.Errorf("invalid catalog entry %d: %w", i, err)
		}
		items = append(items, item)
	}
	return items, nil
}

func parseJSON(data []byte) ([]itemFile, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	var entries []itemFile
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}
	return entries, nil
}

func parseYAML(data []byte) ([]itemFile, error) {
	var entries []itemFile
	if err := yaml.Unmarshal(data, &entries); err == nil {
		return entries, nil
	}

	var doc struct {
		Questions []itemFile `yaml:"questions"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return doc.Questions, nil
}

// --- Catalog file structs ---

// itemID accepts both string and numeric identifiers
type itemID string

func (id *itemID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*id = itemID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a string or number")
	}
	*id = itemID(n.String())
	return nil
}

// itemFile represents one entry of a catalog document
type itemFile struct {
	ID         itemID   `json:"id" yaml:"id"`
	Title      string   `json:"title" yaml:"title"`
	Difficulty string   `json:"difficulty" yaml:"difficulty"`
	Category   string   `json:"category" yaml:"category"`
	Tags       []string `json:"tags" yaml:"tags"`
	Slug       string   `json:"slug" yaml:"slug"`
	URL        string   `json:"url" yaml:"url"`
}

func (e itemFile) toItem() (models.CatalogItem, error) {
	id := strings.TrimSpace(string(e.ID))
	if id == "" {
		return models.CatalogItem{}, fmt.Errorf("id is required")
	}
	if e.Title == "" {
		return models.CatalogItem{}, fmt.Errorf("title is required for %s", id)
	}

	return models.CatalogItem{
		ID:         id,
		Title:      e.Title,
		Difficulty: models.Difficulty(e.Difficulty),
		Category:   e.Category,
		Tags:       e.Tags,
		Slug:       e.Slug,
		URL:        e.URL,
	}, nil
}
