package catalog

import (
	"os"
	"testing"
	"time"
)

func TestReloaderPicksUpChanges(t *testing.T) {
	path := writeFile(t, "catalog.json", `[{"id":"1","title":"Two Sum"}]`)

	loader := NewLoader()
	if err := loader.Load(path); err != nil {
		t.Fatal(err)
	}

	r := NewReloader(loader, time.Hour)
	r.modTime = r.currentModTime()

	if r.check() {
		t.Error("unchanged document should not reload")
	}

	if err := os.WriteFile(path, []byte(`[{"id":"1","title":"Two Sum"},{"id":"2","title":"Add Two Numbers"}]`), 0o644); err != nil {
		t.Fatal(err)
	}
	later := time.Now().Add(time.Minute)
	if err := os.Chtimes(path, later, later); err != nil {
		t.Fatal(err)
	}

	if !r.check() {
		t.Fatal("changed document should reload")
	}
	if loader.Len() != 2 {
		t.Errorf("expected 2 items after reload, got %d", loader.Len())
	}
}
