// Copyright 2026 The autoheal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package healer

import (
	"time"

	"github.com/traylinx/autoheal/internal/preflight"
)

// Outcome is the result of one attempt.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// Attempt records one execution of the target.
type Attempt struct {
	Index     int     `json:"index"`
	Command   string  `json:"command"`
	Stdout    string  `json:"stdout,omitempty"`
	Stderr    string  `json:"stderr,omitempty"`
	ExitCode  int     `json:"exit_code"`
	Outcome   Outcome `json:"outcome"`
	Signature string  `json:"signature,omitempty"`
	// Patched is true when the target was overwritten after this attempt.
	Patched  bool          `json:"patched"`
	Duration time.Duration `json:"duration"`
}

// Report describes a finished run.
type Report struct {
	RunID      string            `json:"run_id"`
	Target     string            `json:"target"`
	State      State             `json:"state"`
	Kind       Kind              `json:"kind,omitempty"`
	Message    string            `json:"message,omitempty"`
	Err        error             `json:"-"`
	Preflight  *preflight.Report `json:"preflight,omitempty"`
	Attempts   []Attempt         `json:"attempts"`
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt time.Time         `json:"finished_at"`
}

// Succeeded reports whether the target started successfully.
func (r *Report) Succeeded() bool {
	return r != nil && r.State == StateSuccess
}

// Outcome returns "success" or the halt kind.
func (r *Report) Outcome() string {
	if r.Succeeded() {
		return string(StateSuccess)
	}
	return string(r.Kind)
}

// Duration is the wall time of the run.
func (r *Report) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// PatchCount is the number of times the target was overwritten.
func (r *Report) PatchCount() int {
	n := 0
	for _, a := range r.Attempts {
		if a.Patched {
			n++
		}
	}
	return n
}
