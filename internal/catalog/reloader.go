package catalog

import (
	"context"
	"log/slog"
	"os"
	"time"
)

// Reloader periodically re-reads the catalog document when it changes
type Reloader struct {
	loader   *Loader
	interval time.Duration
	modTime  time.Time
}

// NewReloader creates a reload worker
func NewReloader(loader *Loader, interval time.Duration) *Reloader {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Reloader{loader: loader, interval: interval}
}

// Start begins the reload worker in a goroutine
func (r *Reloader) Start(ctx context.Context) {
	r.modTime = r.currentModTime()
	go r.run(ctx)
}

func (r *Reloader) run(ctx context.Context) {
	slog.Info("catalog reloader started", "interval", r.interval)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("catalog reloader stopped")
			return
		case <-ticker.C:
			r.check()
		}
	}
}

// check reloads the catalog if the document's mtime moved
func (r *Reloader) check() bool {
	mod := r.currentModTime()
	if mod.IsZero() || mod.Equal(r.modTime) {
		return false
	}

	slog.Info("catalog document changed, reloading", "modified_at", mod)
	if err := r.loader.Reload(); err != nil {
		return false
	}
	r.modTime = mod
	return true
}

func (r *Reloader) currentModTime() time.Time {
	r.loader.mu.RLock()
	path := r.loader.path
	r.loader.mu.RUnlock()

	if path == "" {
		return time.Time{}
	}
	info, err := os.Stat(path)
	if err != nil {
		return time.Time{}
	}
	return info.ModTime()
}
