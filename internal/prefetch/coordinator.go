// Package prefetch generates missing content for a freshly scheduled
// session in the background. Each new run supersedes the previous one:
// the old run is cancelled and any result it still produces is dropped.
package prefetch

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/terra-clan/practice-engine/internal/models"
)

// GenerateFunc produces the generation result for one item
type GenerateFunc func(ctx context.Context, item models.CatalogItem, cfg models.SessionConfig) (*models.GenerationResult, error)

// CommitFunc persists a result produced by the current run. check must be
// called inside the atomic write; a non-nil error means the run is stale
// and nothing may be written.
type CommitFunc func(ctx context.Context, item models.CatalogItem, result *models.GenerationResult, check func() error) error

// ErrStale is returned by the commit check once a run has been superseded
var ErrStale = errors.New("prefetch run superseded")

// Run describes one started prefetch run
type Run struct {
	ID      string
	Epoch   uint64
	Pending []string

	done chan struct{}
}

// Done is closed once every task of the run has returned
func (r *Run) Done() <-chan struct{} {
	return r.done
}

// Coordinator supervises prefetch runs
type Coordinator struct {
	generate    GenerateFunc
	commit      CommitFunc
	concurrency int

	epoch  atomic.Uint64
	mu     sync.Mutex
	cancel context.CancelFunc
	root   context.Context
	stop   context.CancelFunc
	wg     sync.WaitGroup
	events *broker
}

// NewCoordinator creates a coordinator. concurrency below 2 runs tasks
// one after another in session order.
func NewCoordinator(generate GenerateFunc, commit CommitFunc, concurrency int) *Coordinator {
	if concurrency < 1 {
		concurrency = 1
	}
	root, stop := context.WithCancel(context.Background())
	return &Coordinator{
		generate:    generate,
		commit:      commit,
		concurrency: concurrency,
		root:        root,
		stop:        stop,
		events:      newBroker(),
	}
}

// Epoch returns the epoch of the most recent run
func (c *Coordinator) Epoch() uint64 {
	return c.epoch.Load()
}

// Subscribe returns a channel of progress events and a function that
// ends the subscription
func (c *Coordinator) Subscribe() (<-chan Event, func()) {
	return c.events.subscribe()
}

// Start cancels the current run, if any, and begins generating items
func (c *Coordinator) Start(items []models.CatalogItem, cfg models.SessionConfig) *Run {
	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
	}
	ctx, cancel := context.WithCancel(c.root)
	c.cancel = cancel
	epoch := c.epoch.Add(1)
	c.mu.Unlock()

	run := &Run{
		ID:      uuid.NewString(),
		Epoch:   epoch,
		Pending: make([]string, 0, len(items)),
		done:    make(chan struct{}),
	}
	for _, item := range items {
		run.Pending = append(run.Pending, item.ID)
	}

	slog.Info("prefetch run started", "run_id", run.ID, "epoch", epoch, "items", len(items), "concurrency", c.concurrency)
	c.emit(run, EventRunStarted, "", nil)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer close(run.done)
		c.execute(ctx, run, items, cfg)
	}()

	return run
}

// Cancel stops the current run without starting a new one
func (c *Coordinator) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.epoch.Add(1)
}

// Close cancels all runs, waits for them and closes subscriptions
func (c *Coordinator) Close() {
	c.stop()
	c.wg.Wait()
	c.events.closeAll()
}

func (c *Coordinator) execute(ctx context.Context, run *Run, items []models.CatalogItem, cfg models.SessionConfig) {
	if c.concurrency == 1 {
		for _, item := range items {
			if ctx.Err() != nil {
				break
			}
			c.process(ctx, run, item, cfg)
		}
	} else {
		sem := semaphore.NewWeighted(int64(c.concurrency))
		var wg sync.WaitGroup
		for _, item := range items {
			if err := sem.Acquire(ctx, 1); err != nil {
				break
			}
			wg.Add(1)
			go func(item models.CatalogItem) {
				defer wg.Done()
				defer sem.Release(1)
				c.process(ctx, run, item, cfg)
			}(item)
		}
		wg.Wait()
	}

	if ctx.Err() != nil || !c.current(run) {
		slog.Info("prefetch run cancelled", "run_id", run.ID, "epoch", run.Epoch)
		c.emit(run, EventRunCancelled, "", nil)
		return
	}
	slog.Info("prefetch run finished", "run_id", run.ID, "epoch", run.Epoch)
	c.emit(run, EventRunFinished, "", nil)
}

// process runs one task. Failures stay local to the item.
func (c *Coordinator) process(ctx context.Context, run *Run, item models.CatalogItem, cfg models.SessionConfig) {
	c.emit(run, EventItemStarted, item.ID, nil)

	result, err := c.generate(ctx, item, cfg)
	if !c.current(run) || ctx.Err() != nil {
		slog.Debug("discarding stale prefetch result", "run_id", run.ID, "id", item.ID)
		c.emit(run, EventItemDiscarded, item.ID, nil)
		return
	}
	if err != nil {
		slog.Warn("prefetch generation failed", "run_id", run.ID, "id", item.ID, "error", err)
		c.emit(run, EventItemFailed, item.ID, err)
		return
	}

	check := func() error {
		if !c.current(run) || ctx.Err() != nil {
			return ErrStale
		}
		return nil
	}
	if err := c.commit(ctx, item, result, check); err != nil {
		if errors.Is(err, ErrStale) || errors.Is(err, context.Canceled) {
			slog.Debug("discarding stale prefetch result", "run_id", run.ID, "id", item.ID)
			c.emit(run, EventItemDiscarded, item.ID, nil)
			return
		}
		slog.Error("failed to cache prefetch result", "run_id", run.ID, "id", item.ID, "error", err)
		c.emit(run, EventItemFailed, item.ID, err)
		return
	}
	c.emit(run, EventItemCompleted, item.ID, nil)
}

func (c *Coordinator) current(run *Run) bool {
	return c.epoch.Load() == run.Epoch
}

func (c *Coordinator) emit(run *Run, typ EventType, questionID string, err error) {
	e := Event{
		Type:       typ,
		RunID:      run.ID,
		Epoch:      run.Epoch,
		QuestionID: questionID,
		Time:       time.Now(),
	}
	if err != nil {
		e.Error = err.Error()
	}
	c.events.publish(e)
}
