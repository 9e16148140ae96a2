// Package progress records per-run progress events and fans them out to
// live subscribers. It is a pure observability sink: nothing in the job
// pipeline reads it back for control decisions.
package progress

import (
	"sync"
	"time"
)

// historyLimit caps the per-run replay buffer; oldest entries drop first.
const historyLimit = 50

// Event is one progress update for a run.
type Event struct {
	Type      string         `json:"type"`
	Label     string         `json:"label,omitempty"`
	Message   string         `json:"message,omitempty"`
	Payload   map[string]any `json:"payload,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Emitter is a lifecycle-scoped progress hub: constructed once per process,
// injected where needed, torn down on shutdown. Safe for concurrent use.
type Emitter struct {
	mu          sync.Mutex
	subscribers map[string]map[chan Event]struct{}
	history     map[string][]Event
	clock       func() time.Time
}

// NewEmitter creates an empty Emitter.
func NewEmitter() *Emitter {
	return &Emitter{
		subscribers: make(map[string]map[chan Event]struct{}),
		history:     make(map[string][]Event),
		clock:       time.Now,
	}
}

// Publish appends an event to the run's history and delivers it to current
// subscribers. A run with no subscribers still accumulates history. Slow
// subscribers are skipped rather than blocked on.
func (e *Emitter) Publish(runID string, event Event) {
	if runID == "" {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = e.clock().UTC()
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	queue := append(e.history[runID], event)
	if len(queue) > historyLimit {
		queue = queue[len(queue)-historyLimit:]
	}
	e.history[runID] = queue

	for ch := range e.subscribers[runID] {
		select {
		case ch <- event:
		default:
		}
	}
}

// Subscribe registers a listener for the run and replays stored history into
// the returned channel. The caller must invoke the returned cancel func.
func (e *Emitter) Subscribe(runID string) (<-chan Event, func()) {
	ch := make(chan Event, historyLimit*2)

	e.mu.Lock()
	if e.subscribers[runID] == nil {
		e.subscribers[runID] = make(map[chan Event]struct{})
	}
	e.subscribers[runID][ch] = struct{}{}
	for _, event := range e.history[runID] {
		ch <- event
	}
	e.mu.Unlock()

	cancel := func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		subs := e.subscribers[runID]
		if subs == nil {
			return
		}
		if _, ok := subs[ch]; !ok {
			return
		}
		delete(subs, ch)
		close(ch)
		if len(subs) == 0 {
			delete(e.subscribers, runID)
		}
	}
	return ch, cancel
}

// Clear drops a run's history and disconnects its subscribers.
func (e *Emitter) Clear(runID string) {
	if runID == "" {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	for ch := range e.subscribers[runID] {
		close(ch)
	}
	delete(e.subscribers, runID)
	delete(e.history, runID)
}

// HistoryLen reports the number of buffered events for a run.
func (e *Emitter) HistoryLen(runID string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.history[runID])
}
