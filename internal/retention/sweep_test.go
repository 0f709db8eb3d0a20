package retention

import (
	"context"
	"testing"
	"time"

	"github.com/entityflow/entityflow/internal/callable"
	"github.com/entityflow/entityflow/internal/entity"
	"github.com/entityflow/entityflow/internal/event"
	"github.com/entityflow/entityflow/internal/execution"
	"github.com/entityflow/entityflow/internal/registry"
)

type order struct {
	entity.Base
	Total int `entity:"total"`
}

func newOrder(total int) *order {
	o := &order{Total: total}
	entity.New(&o.Base)
	return o
}

func pingCallable(ctx context.Context, total int) (int, error) {
	return total, nil
}

func TestSweep_DropsAgedExecutionRecordsAndEvents(t *testing.T) {
	reg := registry.New()
	callables := callable.New()
	eng := execution.New(reg, callables)
	if err := callables.Register("ping", pingCallable); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	if _, err := eng.Execute(context.Background(), "ping", 1); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	eventLog := event.NewLog()
	old := event.New(event.KindCreated, "order", "o-1")
	old.Timestamp = time.Now().Add(-72 * time.Hour)
	_ = eventLog.Record(context.Background(), old)
	fresh := event.New(event.KindCreated, "order", "o-2")
	_ = eventLog.Record(context.Background(), fresh)

	sweeper := New(reg, eventLog, time.Hour)

	// The execution record we just created is fresh; nothing should
	// be dropped on the first pass.
	recordsDropped, eventsDropped := sweeper.Sweep(context.Background())
	if recordsDropped != 0 {
		t.Errorf("recordsDropped = %d, want 0 for a fresh record", recordsDropped)
	}
	if eventsDropped != 1 {
		t.Errorf("eventsDropped = %d, want 1", eventsDropped)
	}

	remaining := eventLog.All()
	if len(remaining) != 1 || remaining[0].SubjectID != "o-2" {
		t.Errorf("eventLog.All() after sweep = %v, want only o-2", remaining)
	}
}

func TestSweep_LeavesDomainEntitiesUntouched(t *testing.T) {
	reg := registry.New()
	o := newOrder(100)
	if err := reg.RegisterRoot(o); err != nil {
		t.Fatalf("RegisterRoot() error = %v", err)
	}

	// A window of zero would age out anything, including o, if the
	// sweep mistakenly swept domain entities instead of only
	// execution records.
	sweeper := New(reg, event.NewLog(), 0)
	recordsDropped, _ := sweeper.Sweep(context.Background())
	if recordsDropped != 0 {
		t.Errorf("recordsDropped = %d, want 0 (no execution records registered)", recordsDropped)
	}

	if _, err := reg.FetchByEcsID(o.Intrinsics().EcsID); err != nil {
		t.Errorf("domain entity was swept away: %v", err)
	}
}
