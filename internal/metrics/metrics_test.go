package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func newTestMetrics(t *testing.T) (*Metrics, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	return New(reg), reg
}

func TestRecordAttempt(t *testing.T) {
	m, _ := newTestMetrics(t)

	m.RecordAttempt(false)
	m.RecordAttempt(false)
	m.RecordAttempt(true)

	if val := testutil.ToFloat64(m.AttemptsTotal.WithLabelValues("failure")); val != 2 {
		t.Errorf("AttemptsTotal[failure] = %f, want 2", val)
	}
	if val := testutil.ToFloat64(m.AttemptsTotal.WithLabelValues("success")); val != 1 {
		t.Errorf("AttemptsTotal[success] = %f, want 1", val)
	}
}

func TestRecordRun(t *testing.T) {
	m, reg := newTestMetrics(t)

	m.RecordRun("RepeatedFailure", 3*time.Second)

	if val := testutil.ToFloat64(m.RunsTotal.WithLabelValues("RepeatedFailure")); val != 1 {
		t.Errorf("RunsTotal[RepeatedFailure] = %f, want 1", val)
	}
	if n := testutil.CollectAndCount(m.RunDurationSeconds); n != 1 {
		t.Errorf("RunDurationSeconds collected %d metrics, want 1", n)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}
	if len(families) == 0 {
		t.Error("expected registered metric families")
	}
}

func TestRecordPatchInstallAndGate(t *testing.T) {
	m, _ := newTestMetrics(t)

	m.RecordPatch("applied")
	m.RecordInstall(true)
	m.RecordDroppedTrigger()
	m.SetRunning(true)

	if val := testutil.ToFloat64(m.PatchesTotal.WithLabelValues("applied")); val != 1 {
		t.Errorf("PatchesTotal[applied] = %f, want 1", val)
	}
	if val := testutil.ToFloat64(m.InstallsTotal.WithLabelValues("success")); val != 1 {
		t.Errorf("InstallsTotal[success] = %f, want 1", val)
	}
	if val := testutil.ToFloat64(m.DroppedTriggersTotal); val != 1 {
		t.Errorf("DroppedTriggersTotal = %f, want 1", val)
	}
	if val := testutil.ToFloat64(m.RunInProgress); val != 1 {
		t.Errorf("RunInProgress = %f, want 1", val)
	}
	m.SetRunning(false)
	if val := testutil.ToFloat64(m.RunInProgress); val != 0 {
		t.Errorf("RunInProgress = %f, want 0", val)
	}
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	m.RecordAttempt(true)
	m.RecordPatch("applied")
	m.RecordInstall(false)
	m.RecordRun("success", time.Second)
	m.RecordDroppedTrigger()
	m.SetRunning(true)
}
