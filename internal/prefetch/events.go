package prefetch

import (
	"log/slog"
	"sync"
	"time"
)

// EventType identifies a prefetch progress event
type EventType string

const (
	EventRunStarted    EventType = "run_started"
	EventItemStarted   EventType = "item_started"
	EventItemCompleted EventType = "item_completed"
	EventItemFailed    EventType = "item_failed"
	EventItemDiscarded EventType = "item_discarded"
	EventRunFinished   EventType = "run_finished"
	EventRunCancelled  EventType = "run_cancelled"
)

// Event is published to subscribers as a run progresses
type Event struct {
	Type       EventType `json:"type"`
	RunID      string    `json:"runId"`
	Epoch      uint64    `json:"epoch"`
	QuestionID string    `json:"questionId,omitempty"`
	Error      string    `json:"error,omitempty"`
	Time       time.Time `json:"time"`
}

const subscriberBuffer = 64

// broker fans events out to subscribers without blocking publishers
type broker struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]chan Event
}

func newBroker() *broker {
	return &broker{subs: make(map[int]chan Event)}
}

func (b *broker) subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan Event, subscriberBuffer)
	b.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if sub, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(sub)
			}
		})
	}
}

func (b *broker) publish(e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for id, ch := range b.subs {
		select {
		case ch <- e:
		default:
			slog.Warn("prefetch subscriber is slow, dropping event", "subscriber", id, "type", e.Type)
		}
	}
}

func (b *broker) closeAll() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
