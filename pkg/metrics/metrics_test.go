package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordInvocation_IncrementsCounterAndHistogram(t *testing.T) {
	before := testutil.ToFloat64(invocationTotal.WithLabelValues("double", "success"))
	RecordInvocation("double", true, 5*time.Millisecond)
	after := testutil.ToFloat64(invocationTotal.WithLabelValues("double", "success"))
	if after != before+1 {
		t.Errorf("invocationTotal success = %v, want %v", after, before+1)
	}

	RecordInvocation("double", false, time.Millisecond)
	failed := testutil.ToFloat64(invocationTotal.WithLabelValues("double", "failure"))
	if failed < 1 {
		t.Errorf("invocationTotal failure = %v, want >= 1", failed)
	}
}

func TestRecordInvocation_EmptyNameFallsBackToUnknown(t *testing.T) {
	before := testutil.ToFloat64(invocationTotal.WithLabelValues("unknown", "success"))
	RecordInvocation("", true, time.Millisecond)
	after := testutil.ToFloat64(invocationTotal.WithLabelValues("unknown", "success"))
	if after != before+1 {
		t.Errorf("invocationTotal unknown = %v, want %v", after, before+1)
	}
}

func TestRecordClassification(t *testing.T) {
	before := testutil.ToFloat64(classificationTotal.WithLabelValues("mutation"))
	RecordClassification("mutation")
	after := testutil.ToFloat64(classificationTotal.WithLabelValues("mutation"))
	if after != before+1 {
		t.Errorf("classificationTotal mutation = %v, want %v", after, before+1)
	}
}

func TestRecordAddressResolutionFailure(t *testing.T) {
	before := testutil.ToFloat64(addressResolutionFailures.WithLabelValues("not_found"))
	RecordAddressResolutionFailure("not_found")
	after := testutil.ToFloat64(addressResolutionFailures.WithLabelValues("not_found"))
	if after != before+1 {
		t.Errorf("addressResolutionFailures not_found = %v, want %v", after, before+1)
	}
}

func TestRecordContextStackDepth(t *testing.T) {
	RecordContextStackDepth(3)
	if got := testutil.ToFloat64(contextStackDepth); got != 3 {
		t.Errorf("contextStackDepth = %v, want 3", got)
	}
	RecordContextStackDepth(0)
	if got := testutil.ToFloat64(contextStackDepth); got != 0 {
		t.Errorf("contextStackDepth = %v, want 0", got)
	}
}

func TestRecordRetentionSweep(t *testing.T) {
	beforeRecords := testutil.ToFloat64(retentionDropped.WithLabelValues("execution_record"))
	beforeEvents := testutil.ToFloat64(retentionDropped.WithLabelValues("event"))

	RecordRetentionSweep(2, 5)

	if got := testutil.ToFloat64(retentionDropped.WithLabelValues("execution_record")); got != beforeRecords+2 {
		t.Errorf("retentionDropped execution_record = %v, want %v", got, beforeRecords+2)
	}
	if got := testutil.ToFloat64(retentionDropped.WithLabelValues("event")); got != beforeEvents+5 {
		t.Errorf("retentionDropped event = %v, want %v", got, beforeEvents+5)
	}
}

func loadObservationCollector(t *testing.T, subsystem, name string) observationCollector {
	t.Helper()
	entry, ok := observationCollectors.Load(subsystem + ":" + name)
	if !ok {
		t.Fatalf("no observation collector registered for %s:%s", subsystem, name)
	}
	return entry.(observationCollector)
}

func TestObservationHooks_TracksInFlightAndDuration(t *testing.T) {
	onStart, onComplete := ObservationHooks("test_subsystem", "widget")

	onStart("res-1")
	collector := loadObservationCollector(t, "test_subsystem", "widget")
	if got := testutil.ToFloat64(collector.gauge.WithLabelValues("res-1")); got != 1 {
		t.Errorf("in-flight gauge = %v, want 1", got)
	}

	onComplete("res-1", nil, time.Millisecond)
	if got := testutil.ToFloat64(collector.gauge.WithLabelValues("res-1")); got != 0 {
		t.Errorf("in-flight gauge after complete = %v, want 0", got)
	}

	onStart("res-2")
	onComplete("res-2", errors.New("boom"), time.Millisecond)
	// The histogram records a sample under the "error" status; no panic
	// means the status label path was exercised.
}

func TestObservationHooks_ReusesCollectorForSameKey(t *testing.T) {
	onStart1, _ := ObservationHooks("reuse_subsystem", "thing")
	onStart2, _ := ObservationHooks("reuse_subsystem", "thing")

	onStart1("r")
	onStart2("r")

	collector := loadObservationCollector(t, "reuse_subsystem", "thing")
	if got := testutil.ToFloat64(collector.gauge.WithLabelValues("r")); got != 2 {
		t.Errorf("in-flight gauge = %v, want 2 (both hooks share one collector)", got)
	}
}

func TestResourceLabel_EmptyFallsBackToUnknown(t *testing.T) {
	if got := resourceLabel(""); got != "unknown" {
		t.Errorf("resourceLabel(\"\") = %q, want \"unknown\"", got)
	}
	if got := resourceLabel("order"); got != "order" {
		t.Errorf("resourceLabel(%q) = %q, want unchanged", "order", got)
	}
}
