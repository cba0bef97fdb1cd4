// Copyright 2026 The autoheal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package metrics tracks healing runs, attempts, patches and installs as
// Prometheus metrics. The status server exposes them on /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "autoheal"

// Metrics holds the collectors of one registry. A nil *Metrics records nothing.
type Metrics struct {
	// RunsTotal counts finished runs. Labels: outcome (success or a halt kind).
	RunsTotal *prometheus.CounterVec

	// AttemptsTotal counts executions of the target. Labels: result (success, failure).
	AttemptsTotal *prometheus.CounterVec

	// PatchesTotal counts patch requests. Labels: result (applied, unavailable, error).
	PatchesTotal *prometheus.CounterVec

	// InstallsTotal counts dependency installs. Labels: result (success, failure).
	InstallsTotal *prometheus.CounterVec

	// DroppedTriggersTotal counts change events ignored because a run was in progress.
	DroppedTriggersTotal prometheus.Counter

	// RunDurationSeconds measures whole runs.
	RunDurationSeconds prometheus.Histogram

	// RunInProgress is 1 while a run holds the gate.
	RunInProgress prometheus.Gauge
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Healing runs by terminal outcome",
		}, []string{"outcome"}),
		AttemptsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "attempts_total",
			Help:      "Executions of the target by result",
		}, []string{"result"}),
		PatchesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "patches_total",
			Help:      "Patch requests by result",
		}, []string{"result"}),
		InstallsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "installs_total",
			Help:      "Dependency installs by result",
		}, []string{"result"}),
		DroppedTriggersTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dropped_triggers_total",
			Help:      "Change events dropped because a run was in progress",
		}),
		RunDurationSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of healing runs",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600},
		}),
		RunInProgress: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_in_progress",
			Help:      "1 while a healing run is executing",
		}),
	}
}

// RecordAttempt counts one execution of the target.
func (m *Metrics) RecordAttempt(success bool) {
	if m == nil {
		return
	}
	m.AttemptsTotal.WithLabelValues(result(success)).Inc()
}

// RecordPatch counts one patch request.
func (m *Metrics) RecordPatch(result string) {
	if m == nil {
		return
	}
	m.PatchesTotal.WithLabelValues(result).Inc()
}

// RecordInstall counts one dependency install.
func (m *Metrics) RecordInstall(success bool) {
	if m == nil {
		return
	}
	m.InstallsTotal.WithLabelValues(result(success)).Inc()
}

// RecordRun counts a finished run and observes its duration.
func (m *Metrics) RecordRun(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.RunsTotal.WithLabelValues(outcome).Inc()
	m.RunDurationSeconds.Observe(d.Seconds())
}

// RecordDroppedTrigger counts a change event that arrived during a run.
func (m *Metrics) RecordDroppedTrigger() {
	if m == nil {
		return
	}
	m.DroppedTriggersTotal.Inc()
}

// SetRunning updates the in-progress gauge.
func (m *Metrics) SetRunning(running bool) {
	if m == nil {
		return
	}
	if running {
		m.RunInProgress.Set(1)
	} else {
		m.RunInProgress.Set(0)
	}
}

func result(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}
