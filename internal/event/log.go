package event

import (
	"context"
	"sync"
	"time"
)

// Log is an in-memory append log, in arrival order, of events that
// have passed through a Bus. It exists purely to give the retention
// sweep (internal/retention) something bounded to prune — the event
// bus itself has no memory of what it has emitted once fan-out
// completes.
type Log struct {
	mu     sync.Mutex
	events []Event
}

// NewLog constructs an empty Log.
func NewLog() *Log {
	return &Log{}
}

// Record appends e to the log. Its signature matches Handler, so a
// Log can be wired directly into a Bus with
// bus.Subscribe(Predicate(func(Event) bool { return true }), log.Record).
func (l *Log) Record(ctx context.Context, e Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
	return nil
}

// All returns a copy of every event currently retained.
func (l *Log) All() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Event, len(l.events))
	copy(out, l.events)
	return out
}

// Prune drops every retained event with a Timestamp strictly before
// cutoff and reports how many were dropped.
func (l *Log) Prune(cutoff time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	kept := l.events[:0]
	dropped := 0
	for _, e := range l.events {
		if e.Timestamp.Before(cutoff) {
			dropped++
			continue
		}
		kept = append(kept, e)
	}
	l.events = kept
	return dropped
}
