package automation

import (
	"context"
	"testing"
	"time"
)

func TestJobFields(t *testing.T) {
	j := New("acct-1", "fn-1", "Hourly", "0 * * * *")
	j.NextRun = time.Now().Add(time.Hour)

	if j.Schedule == "" || j.Name == "" {
		t.Fatalf("expected job to retain schedule and name")
	}
	if j.Status != JobStatusActive {
		t.Fatalf("expected a freshly constructed job to be active, got %s", j.Status)
	}
	if j.NextRun.IsZero() {
		t.Fatalf("expected next run to be set")
	}
}

func TestIsCompleted_UnlimitedRunsNeverCompletes(t *testing.T) {
	j := New("acct-1", "fn-1", "Hourly", "0 * * * *")
	j.RunCount = 1000
	if j.IsCompleted() {
		t.Error("IsCompleted() = true, want false when MaxRuns is 0 (unlimited)")
	}
}

func TestIsCompleted_StopsAtMaxRuns(t *testing.T) {
	j := New("acct-1", "fn-1", "Hourly", "0 * * * *")
	j.MaxRuns = 3
	j.RunCount = 3
	if !j.IsCompleted() {
		t.Error("IsCompleted() = false, want true once RunCount reaches MaxRuns")
	}
}

func TestTrigger_IncrementsRunCountAndRecordsLastRun(t *testing.T) {
	j := New("acct-1", "fn-1", "Hourly", "0 * * * *")

	out, err := Trigger(context.Background(), j)
	if err != nil {
		t.Fatalf("Trigger() error = %v", err)
	}
	if out.RunCount != 1 {
		t.Errorf("RunCount = %d, want 1", out.RunCount)
	}
	if out.LastRun.IsZero() {
		t.Error("LastRun should be set after Trigger()")
	}
	if out.Status != JobStatusActive {
		t.Errorf("Status = %s, want active (run budget not exhausted)", out.Status)
	}
}

func TestTrigger_CompletesJobAtRunBudget(t *testing.T) {
	j := New("acct-1", "fn-1", "Hourly", "0 * * * *")
	j.MaxRuns = 1

	out, err := Trigger(context.Background(), j)
	if err != nil {
		t.Fatalf("Trigger() error = %v", err)
	}
	if out.Status != JobStatusCompleted {
		t.Errorf("Status = %s, want completed", out.Status)
	}

	if _, err := Trigger(context.Background(), out); err == nil {
		t.Error("Trigger() on a completed job should fail")
	}
}

func TestTrigger_PausedJobFails(t *testing.T) {
	j := New("acct-1", "fn-1", "Hourly", "0 * * * *")
	j.Status = JobStatusPaused

	if _, err := Trigger(context.Background(), j); err == nil {
		t.Error("Trigger() on a paused job should fail")
	}
}
