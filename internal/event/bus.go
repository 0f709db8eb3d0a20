package event

import (
	"context"
	"path"
	"sync"
	"time"

	"github.com/entityflow/entityflow/pkg/logging"
	"github.com/entityflow/entityflow/pkg/metrics"
	"github.com/google/uuid"
)

// Handler processes one delivered event. An error return is logged;
// it never prevents delivery to other subscribers.
type Handler func(ctx context.Context, e Event) error

// Matcher decides whether a subscriber wants to see a given event.
type Matcher interface {
	Match(e Event) bool
}

type matcherFunc func(e Event) bool

func (f matcherFunc) Match(e Event) bool { return f(e) }

// ExactKind matches events whose Kind is exactly kind.
func ExactKind(kind Kind) Matcher {
	return matcherFunc(func(e Event) bool { return e.Kind == kind })
}

// GlobKind matches events whose Kind matches a shell-style glob
// pattern (e.g. "student.*"). Go has no third-party glob matcher in
// this codebase's dependency set, so this uses the standard library's
// path.Match.
func GlobKind(pattern string) Matcher {
	return matcherFunc(func(e Event) bool {
		ok, err := path.Match(pattern, string(e.Kind))
		return err == nil && ok
	})
}

// Predicate matches on an arbitrary function over event fields.
func Predicate(fn func(Event) bool) Matcher {
	return matcherFunc(fn)
}

// Subscription is returned by Subscribe; call Unsubscribe to stop
// receiving events.
type Subscription struct {
	id  uuid.UUID
	bus *Bus
}

// Unsubscribe removes this subscription from the bus.
func (s Subscription) Unsubscribe() {
	s.bus.unsubscribe(s.id)
}

type subscriber struct {
	id      uuid.UUID
	matcher Matcher
	handler Handler
}

// Bus is a constructable, non-singleton event bus — tests and
// consumers each run their own instance, the same way
// registry.Registry is constructed rather than global.
type Bus struct {
	mu   sync.RWMutex
	subs map[uuid.UUID]*subscriber
	log  *logging.Logger
}

// NewBus constructs an empty Bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[uuid.UUID]*subscriber), log: logging.NewFromEnv("event")}
}

// Subscribe registers handler to receive every event matcher accepts.
func (b *Bus) Subscribe(matcher Matcher, handler Handler) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := uuid.New()
	b.subs[id] = &subscriber{id: id, matcher: matcher, handler: handler}
	return Subscription{id: id, bus: b}
}

func (b *Bus) unsubscribe(id uuid.UUID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subs, id)
}

// Emit fills in parent/root linkage from ctx's current scope (self-
// rooted if no scope is active), then fans the event out to every
// matching subscriber concurrently. One subscriber's error or panic
// is logged and does not suppress delivery to the others, matching
// the teacher's per-handler isolation in Dispatcher.processEvent.
func (b *Bus) Emit(ctx context.Context, e Event) Event {
	start := time.Now()
	if parent, ok := CurrentParent(ctx); ok {
		e.ParentID = parent.ID
		e.RootID = parent.RootID
		if e.LineageID == uuid.Nil {
			e.LineageID = parent.LineageID
		}
	} else if e.RootID == uuid.Nil {
		e.RootID = e.ID
	}
	if e.LineageID == uuid.Nil {
		e.LineageID = e.ID
	}

	b.mu.RLock()
	matched := make([]*subscriber, 0, len(b.subs))
	for _, s := range b.subs {
		if s.matcher.Match(e) {
			matched = append(matched, s)
		}
	}
	b.mu.RUnlock()

	var wg sync.WaitGroup
	for _, s := range matched {
		wg.Add(1)
		go func(s *subscriber) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					b.log.WithFields(map[string]any{"subscriber": s.id.String(), "panic": r}).Error("event handler panicked")
				}
			}()
			if err := s.handler(ctx, e); err != nil {
				b.log.WithError(err).WithFields(map[string]any{"subscriber": s.id.String(), "event_id": e.ID.String()}).Warn("event handler returned an error")
			}
		}(s)
	}
	wg.Wait()

	b.log.LogEventEmit(ctx, string(e.Kind), e.ID.String(), e.ParentID.String())
	metrics.RecordEventFanout(string(e.Kind), time.Since(start))
	return e
}
