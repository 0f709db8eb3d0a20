// Package event is the event bus and hierarchical parent-context
// stack: an immutable identifier-only event record, a scoped parent
// stack riding on context.Context, and concurrent fan-out to
// subscribers, generalizing the teacher's events.Dispatcher
// (handler registry, filter matching, concurrent worker fan-out,
// per-handler failure isolation) from contract-event routing to
// generic lifecycle-event routing.
package event

import (
	"time"

	"github.com/google/uuid"
)

// Kind identifies the nature of an event. The core uses a small fixed
// set; generic user kinds are permitted alongside them.
type Kind string

const (
	KindCreated         Kind = "created"
	KindModified        Kind = "modified"
	KindStateTransition Kind = "state-transition"
	KindProcessing      Kind = "processing"
	KindProcessed       Kind = "processed"
	KindFailed          Kind = "failed"
)

// Event is an immutable record carrying only identifiers and scalar
// metadata — never entity payloads.
type Event struct {
	ID          uuid.UUID
	Kind        Kind
	Phase       string
	SubjectType string
	SubjectID   string
	ActorID     string
	ContextIDs  []string
	Timestamp   time.Time
	LineageID   uuid.UUID
	ParentID    uuid.UUID
	RootID      uuid.UUID
	Metadata    map[string]any
	DurationMS  int64
}

// HasParent reports whether e was emitted with an active parent in
// scope.
func (e Event) HasParent() bool {
	return e.ParentID != uuid.Nil
}

// New constructs an event with a fresh ID and the current timestamp.
// Parent/root linkage is filled in by the bus at emission time.
func New(kind Kind, subjectType, subjectID string) Event {
	return Event{
		ID:          uuid.New(),
		Kind:        kind,
		SubjectType: subjectType,
		SubjectID:   subjectID,
		Timestamp:   time.Now(),
		Metadata:    make(map[string]any),
	}
}

// WithMetadata sets a scalar metadata key and returns e for chaining.
func (e Event) WithMetadata(key string, value any) Event {
	if e.Metadata == nil {
		e.Metadata = make(map[string]any)
	}
	e.Metadata[key] = value
	return e
}

// WithActor sets the acting identity and returns e for chaining.
func (e Event) WithActor(actorID string) Event {
	e.ActorID = actorID
	return e
}
