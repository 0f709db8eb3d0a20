// Package automation is an example consumer-defined entity type: a
// cron-scheduled automation job bound to a function. Adapted from the
// teacher's domain/automation.Job (a plain tagged struct with no
// behavior; internal/retention separately generalizes this same
// Schedule/RunCount/MaxRuns shape into the runtime's own housekeeping
// sweep, see that package's doc comment). This version embeds
// entity.Base and registers a callable that advances it.
package automation

import (
	"context"
	"time"

	"github.com/entityflow/entityflow/internal/callable"
	"github.com/entityflow/entityflow/internal/entity"
	"github.com/entityflow/entityflow/pkg/entityerr"
)

// JobStatus represents the lifecycle state of an automation job.
type JobStatus string

const (
	JobStatusActive    JobStatus = "active"
	JobStatusCompleted JobStatus = "completed"
	JobStatusPaused    JobStatus = "paused"
)

// Job binds a runtime rule to a function invocation on a cron
// schedule.
type Job struct {
	entity.Base
	AccountID   string    `entity:"account_id"`
	FunctionID  string    `entity:"function_id"`
	Name        string    `entity:"name"`
	Description string    `entity:"description"`
	Schedule    string    `entity:"schedule"`
	Status      JobStatus `entity:"status"`
	RunCount    int       `entity:"run_count"`
	MaxRuns     int       `entity:"max_runs"`
	LastRun     time.Time `entity:"last_run"`
	NextRun     time.Time `entity:"next_run"`
}

// New allocates a fresh, active Job with its own identity.
func New(accountID, functionID, name, schedule string) *Job {
	j := &Job{AccountID: accountID, FunctionID: functionID, Name: name, Schedule: schedule, Status: JobStatusActive}
	entity.New(&j.Base)
	return j
}

// IsCompleted reports whether j has reached its run budget. MaxRuns
// of 0 means unlimited.
func (j *Job) IsCompleted() bool {
	return j.MaxRuns > 0 && j.RunCount >= j.MaxRuns
}

// Trigger is a mutation callable registered as "automation.trigger":
// it records a run, advances j to completed once its run budget is
// exhausted, and fails outright if j is paused or already completed.
func Trigger(ctx context.Context, j *Job) (*Job, error) {
	if j.Status == JobStatusPaused {
		return nil, entityerr.New(entityerr.CodeExecutionFailure, "job is paused")
	}
	if j.Status == JobStatusCompleted || j.IsCompleted() {
		return nil, entityerr.New(entityerr.CodeExecutionFailure, "job has exhausted its run budget")
	}
	j.RunCount++
	j.LastRun = time.Now()
	if j.IsCompleted() {
		j.Status = JobStatusCompleted
	}
	return j, nil
}

// Register wires this package's callable into reg under the
// "automation." namespace.
func Register(reg *callable.Registry) error {
	return reg.Register("automation.trigger", Trigger)
}
