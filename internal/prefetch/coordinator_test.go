package prefetch

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/terra-clan/practice-engine/internal/models"
)

type committed struct {
	mu  sync.Mutex
	ids []string
}

func (c *committed) commit(_ context.Context, item models.CatalogItem, _ *models.GenerationResult, check func() error) error {
	if err := check(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ids = append(c.ids, item.ID)
	return nil
}

func (c *committed) list() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.ids...)
}

func items(ids ...string) []models.CatalogItem {
	out := make([]models.CatalogItem, 0, len(ids))
	for _, id := range ids {
		out = append(out, models.CatalogItem{ID: id, Title: "Q" + id})
	}
	return out
}

func ok(context.Context, models.CatalogItem, models.SessionConfig) (*models.GenerationResult, error) {
	return &models.GenerationResult{Status: "success", Data: &models.GenerationData{Title: "T"}}, nil
}

func wait(t *testing.T, run *Run) {
	t.Helper()
	select {
	case <-run.Done():
	case <-time.After(5 * time.Second):
		t.Fatalf("run %s did not finish", run.ID)
	}
}

func TestSequentialRunKeepsSessionOrder(t *testing.T) {
	var c committed
	coord := NewCoordinator(ok, c.commit, 1)
	defer coord.Close()

	run := coord.Start(items("3", "1", "2"), models.SessionConfig{})
	wait(t, run)

	got := c.list()
	if len(got) != 3 || got[0] != "3" || got[1] != "1" || got[2] != "2" {
		t.Errorf("expected commits in session order, got %v", got)
	}
	if run.ID == "" || run.Epoch != 1 || len(run.Pending) != 3 {
		t.Errorf("unexpected run: %+v", run)
	}
}

func TestStaleResultsAreDiscarded(t *testing.T) {
	var c committed
	started := make(chan struct{})
	release := make(chan struct{})

	generate := func(ctx context.Context, item models.CatalogItem, cfg models.SessionConfig) (*models.GenerationResult, error) {
		if item.ID == "old" {
			close(started)
			<-release
		}
		return ok(ctx, item, cfg)
	}

	coord := NewCoordinator(generate, c.commit, 1)
	defer coord.Close()

	events, unsubscribe := coord.Subscribe()
	defer unsubscribe()

	first := coord.Start(items("old"), models.SessionConfig{})
	<-started
	second := coord.Start(items("new"), models.SessionConfig{})
	wait(t, second)
	close(release)
	wait(t, first)

	got := c.list()
	if len(got) != 1 || got[0] != "new" {
		t.Fatalf("expected only the current run to commit, got %v", got)
	}
	if second.Epoch <= first.Epoch || coord.Epoch() != second.Epoch {
		t.Errorf("epochs not increasing: first=%d second=%d current=%d", first.Epoch, second.Epoch, coord.Epoch())
	}

	discarded := false
	for len(events) > 0 {
		e := <-events
		if e.Type == EventItemDiscarded && e.QuestionID == "old" && e.RunID == first.ID {
			discarded = true
		}
	}
	if !discarded {
		t.Error("expected item_discarded event for the stale run")
	}
}

func TestFailuresAreIsolated(t *testing.T) {
	var c committed
	generate := func(ctx context.Context, item models.CatalogItem, cfg models.SessionConfig) (*models.GenerationResult, error) {
		if item.ID == "2" {
			return nil, errors.New("boom")
		}
		return ok(ctx, item, cfg)
	}

	coord := NewCoordinator(generate, c.commit, 1)
	defer coord.Close()

	events, unsubscribe := coord.Subscribe()
	defer unsubscribe()

	wait(t, coord.Start(items("1", "2", "3"), models.SessionConfig{}))

	got := c.list()
	if len(got) != 2 || got[0] != "1" || got[1] != "3" {
		t.Errorf("expected 1 and 3 committed, got %v", got)
	}

	var failed, finished bool
	for len(events) > 0 {
		e := <-events
		switch e.Type {
		case EventItemFailed:
			failed = e.QuestionID == "2" && e.Error == "boom"
		case EventRunFinished:
			finished = true
		}
	}
	if !failed || !finished {
		t.Errorf("expected item_failed and run_finished events, failed=%v finished=%v", failed, finished)
	}
}

func TestBoundedConcurrency(t *testing.T) {
	var c committed
	var inFlight, peak atomic.Int32

	generate := func(ctx context.Context, item models.CatalogItem, cfg models.SessionConfig) (*models.GenerationResult, error) {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		return ok(ctx, item, cfg)
	}

	coord := NewCoordinator(generate, c.commit, 2)
	defer coord.Close()

	wait(t, coord.Start(items("1", "2", "3", "4", "5", "6"), models.SessionConfig{}))

	if got := len(c.list()); got != 6 {
		t.Errorf("expected 6 commits, got %d", got)
	}
	if p := peak.Load(); p > 2 {
		t.Errorf("expected at most 2 concurrent tasks, saw %d", p)
	}
}

func TestCancelStopsRun(t *testing.T) {
	var c committed
	started := make(chan struct{})

	generate := func(ctx context.Context, item models.CatalogItem, cfg models.SessionConfig) (*models.GenerationResult, error) {
		close(started)
		<-ctx.Done()
		return nil, ctx.Err()
	}

	coord := NewCoordinator(generate, c.commit, 1)
	defer coord.Close()

	run := coord.Start(items("1", "2"), models.SessionConfig{})
	<-started
	coord.Cancel()
	wait(t, run)

	if got := c.list(); len(got) != 0 {
		t.Errorf("expected no commits after cancel, got %v", got)
	}
}

func TestCloseEndsSubscriptions(t *testing.T) {
	coord := NewCoordinator(ok, (&committed{}).commit, 1)
	events, unsubscribe := coord.Subscribe()
	coord.Close()
	unsubscribe()

	if _, open := <-events; open {
		t.Error("expected closed event channel")
	}
}

func TestCommitCheckRejectsRunCancelledDuringWrite(t *testing.T) {
	var c committed
	entered := make(chan struct{})
	release := make(chan struct{})

	// the write blocks before its check, as it would behind a store lock
	commit := func(ctx context.Context, item models.CatalogItem, result *models.GenerationResult, check func() error) error {
		close(entered)
		<-release
		return c.commit(ctx, item, result, check)
	}

	coord := NewCoordinator(ok, commit, 1)
	defer coord.Close()

	events, unsubscribe := coord.Subscribe()
	defer unsubscribe()

	run := coord.Start(items("1"), models.SessionConfig{Language: "old"})
	<-entered
	coord.Cancel()
	close(release)
	wait(t, run)

	if got := c.list(); len(got) != 0 {
		t.Fatalf("expected no write after cancel, got %v", got)
	}

	discarded := false
	for len(events) > 0 {
		e := <-events
		if e.Type == EventItemDiscarded && e.QuestionID == "1" {
			discarded = true
		}
		if e.Type == EventItemCompleted {
			t.Errorf("cancelled item reported as completed")
		}
	}
	if !discarded {
		t.Errorf("expected an item_discarded event")
	}
}
