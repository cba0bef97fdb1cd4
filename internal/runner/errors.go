// Copyright 2026 The autoheal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package runner

import (
	"errors"
	"strings"
)

var (
	// ErrTimeout is wrapped by ExecError when the run deadline expired.
	ErrTimeout = errors.New("process timed out")

	// ErrNotReady is wrapped by ExecError when a probed process exited before
	// reporting readiness.
	ErrNotReady = errors.New("process exited before readiness marker")

	// ErrEmptyCommand is returned for a Command without a program name.
	ErrEmptyCommand = errors.New("empty command")
)

// ExecError describes a failed process run. Its message is the captured stderr,
// or the underlying error message when nothing was written to stderr.
type ExecError struct {
	Command  string
	Stdout   string
	Stderr   string
	ExitCode int
	Err      error
}

func (e *ExecError) Error() string {
	if strings.TrimSpace(e.Stderr) != "" {
		return e.Stderr
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "command failed: " + e.Command
}

func (e *ExecError) Unwrap() error {
	return e.Err
}
