// Package retention prunes the two logs this runtime keeps that are
// not entity storage: the execution-record log and the event log.
// spec.md explicitly leaves entity-orphan garbage collection
// undecided and resolves it as indefinite retention (see DESIGN.md);
// that resolution is honored here by never touching anything but
// execution records and events. Scheduling is cron-driven, generalized
// from the teacher's domain/automation.Job (cron Schedule string,
// RunCount/MaxRuns bookkeeping) and its Scheduler's lifecycle shape
// (mutex-guarded running flag, graceful Stop), retargeted from
// dispatching user-defined automation jobs to the runtime's own
// housekeeping.
package retention

import (
	"context"
	"sync"
	"time"

	"github.com/entityflow/entityflow/internal/entity"
	"github.com/entityflow/entityflow/internal/event"
	"github.com/entityflow/entityflow/internal/execution"
	"github.com/entityflow/entityflow/internal/registry"
	"github.com/entityflow/entityflow/pkg/logging"
	"github.com/entityflow/entityflow/pkg/metrics"
	"github.com/robfig/cron/v3"
)

// Sweeper prunes execution records and events older than Window.
type Sweeper struct {
	Registry *registry.Registry
	EventLog *event.Log
	Window   time.Duration

	log *logging.Logger

	mu      sync.Mutex
	cron    *cron.Cron
	running bool
}

// New constructs a Sweeper. reg and eventLog are the stores swept;
// window is how long a record or event is kept before it is dropped.
func New(reg *registry.Registry, eventLog *event.Log, window time.Duration) *Sweeper {
	return &Sweeper{
		Registry: reg,
		EventLog: eventLog,
		Window:   window,
		log:      logging.NewFromEnv("retention"),
	}
}

// Sweep runs one pass immediately and reports how many execution
// records and events were dropped.
func (s *Sweeper) Sweep(ctx context.Context) (recordsDropped, eventsDropped int) {
	cutoff := time.Now().Add(-s.Window)

	for _, rootEcsID := range s.Registry.RootsByType(recordTypeName) {
		createdAt, err := s.Registry.RootCreatedAt(rootEcsID)
		if err != nil {
			continue
		}
		if createdAt.Before(cutoff) {
			if err := s.Registry.DeleteRoot(rootEcsID); err == nil {
				recordsDropped++
			}
		}
	}

	if s.EventLog != nil {
		eventsDropped = s.EventLog.Prune(cutoff)
	}

	s.log.LogRetentionSweep(ctx, recordsDropped, eventsDropped)
	metrics.RecordRetentionSweep(recordsDropped, eventsDropped)
	return recordsDropped, eventsDropped
}

// recordTypeName is the Go type name execution.Record resolves to
// under entity.TypeName, used to find prunable roots without the
// registry needing to know about the execution package.
var recordTypeName = entity.TypeName(&execution.Record{})

// Start schedules Sweep on the given cron expression (same grammar
// the teacher's domain/automation.Job.Schedule field carries) and
// begins running it in the background. Calling Start twice is a
// no-op.
func (s *Sweeper) Start(ctx context.Context, schedule string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}

	c := cron.New()
	if _, err := c.AddFunc(schedule, func() { s.Sweep(ctx) }); err != nil {
		return err
	}
	c.Start()
	s.cron = c
	s.running = true
	s.log.Info(ctx, "retention sweeper started", map[string]interface{}{"schedule": schedule, "window": s.Window.String()})
	return nil
}

// Stop halts the background schedule and waits for any in-flight
// sweep to finish.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
	s.cron = nil
	s.running = false
}
