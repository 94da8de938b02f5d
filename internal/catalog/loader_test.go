package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/terra-clan/practice-engine/internal/models"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadJSONCatalog(t *testing.T) {
	path := writeFile(t, "leetcode_hot100_full.json", `[
		{"id": 1, "title": "Two Sum", "difficulty": "Easy", "category": "Array", "tags": ["hash"]},
		{"id": "42", "title": "Trapping Rain Water", "difficulty": "Hard", "category": "Two Pointers"},
		{"id": 3, "title": "Longest Substring", "difficulty": "Medium", "category": "String", "slug": "longest-substring"}
	]`)

	loader := NewLoader()
	if err := loader.Load(path); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	items := loader.Items()
	if len(items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(items))
	}
	if items[0].ID != "1" || items[1].ID != "42" || items[2].ID != "3" {
		t.Errorf("catalog order not preserved: %v, %v, %v", items[0].ID, items[1].ID, items[2].ID)
	}
	if items[0].Difficulty != models.DifficultyEasy || len(items[0].Tags) != 1 {
		t.Errorf("unexpected first item: %+v", items[0])
	}

	item, ok := loader.Get("3")
	if !ok || item.Slug != "longest-substring" {
		t.Errorf("Get(3) = %+v, %v", item, ok)
	}
	if _, ok := loader.Get("404"); ok {
		t.Error("expected missing item")
	}
}

func TestLoadYAMLCatalog(t *testing.T) {
	path := writeFile(t, "catalog.yaml", `
questions:
  - id: 1
    title: Two Sum
    difficulty: Easy
    category: Array
  - id: 2
    title: Add Two Numbers
    difficulty: Medium
    category: Linked List
`)

	items, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}
	if len(items) != 2 || items[1].ID != "2" || items[1].Category != "Linked List" {
		t.Errorf("unexpected items: %+v", items)
	}
}

func TestLoadFailureYieldsEmptyCatalog(t *testing.T) {
	tests := []struct {
		name string
		path func(t *testing.T) string
	}{
		{"missing file", func(t *testing.T) string { return filepath.Join(t.TempDir(), "nope.json") }},
		{"malformed json", func(t *testing.T) string { return writeFile(t, "bad.json", "[{") }},
		{"entry without id", func(t *testing.T) string { return writeFile(t, "noid.json", `[{"title":"x"}]`) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loader := NewLoader()
			loader.Set([]models.CatalogItem{{ID: "old", Title: "Old"}})

			if err := loader.Load(tt.path(t)); err == nil {
				t.Error("expected error")
			}
			if loader.Len() != 0 {
				t.Errorf("expected empty catalog, got %d items", loader.Len())
			}
		})
	}
}

func TestItemsReturnsCopy(t *testing.T) {
	loader := NewLoader()
	loader.Set([]models.CatalogItem{{ID: "1", Title: "Two Sum"}, {ID: "1", Title: "Duplicate"}})

	if loader.Len() != 1 {
		t.Fatalf("expected duplicate to be dropped, got %d", loader.Len())
	}

	items := loader.Items()
	items[0].Title = "changed"
	if item, _ := loader.Get("1"); item.Title != "Two Sum" {
		t.Errorf("catalog mutated through Items copy: %q", item.Title)
	}
}

func TestReload(t *testing.T) {
	path := writeFile(t, "catalog.json", `[{"id":"1","title":"Two Sum"}]`)

	loader := NewLoader()
	if err := loader.Reload(); err == nil {
		t.Error("expected error before first Load")
	}
	if err := loader.Load(path); err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(path, []byte(`[{"id":"1","title":"Two Sum"},{"id":"2","title":"Add Two Numbers"}]`), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := loader.Reload(); err != nil {
		t.Fatalf("Reload failed: %v", err)
	}
	if loader.Len() != 2 {
		t.Errorf("expected 2 items after reload, got %d", loader.Len())
	}
}
