// Copyright 2026 The autoheal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package runner executes external commands for the healing loop.
// It streams stdout and stderr, recognizes a successful start of a long-running
// target through a ReadinessProbe, and reports failures as ExecError values whose
// message is the error signature used for loop detection.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

const defaultWaitDelay = 2 * time.Second

// Command is a program invocation. No shell is involved.
type Command struct {
	Name string
	Args []string
	Dir  string
	Env  []string
}

// String renders the command line for logs and error messages.
func (c Command) String() string {
	return strings.TrimSpace(c.Name + " " + strings.Join(c.Args, " "))
}

// Result captures a successful run.
type Result struct {
	Command  string
	Stdout   string
	Stderr   string
	ExitCode int
	// Ready is true when the readiness probe fired and the process was stopped.
	Ready    bool
	Duration time.Duration
}

// Runner starts processes and classifies their outcome.
type Runner struct {
	probe     ReadinessProbe
	timeout   time.Duration
	waitDelay time.Duration
	logger    *log.Entry
}

// Option is a functional option for configuring the Runner.
type Option func(*Runner)

// WithProbe treats the command as a long-running launch that succeeds once the
// probe reports readiness.
func WithProbe(p ReadinessProbe) Option {
	return func(r *Runner) {
		r.probe = p
	}
}

// WithTimeout bounds each run. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(r *Runner) {
		r.timeout = d
	}
}

// WithLogger sets the entry used for streamed output.
func WithLogger(entry *log.Entry) Option {
	return func(r *Runner) {
		r.logger = entry
	}
}

// New creates a Runner.
func New(opts ...Option) *Runner {
	r := &Runner{
		waitDelay: defaultWaitDelay,
		logger:    log.NewEntry(log.StandardLogger()),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Probe returns the configured readiness probe, or nil.
func (r *Runner) Probe() ReadinessProbe {
	return r.probe
}

// Run starts cmd and blocks until it is ready, exits, or ctx ends.
//
// With a probe, the call succeeds as soon as the probe fires on stdout; the process
// is killed at that point. A probed process that exits on its own, whatever its
// status, is a failure. Without a probe, exit status 0 is success.
func (r *Runner) Run(ctx context.Context, cmd Command) (*Result, error) {
	if cmd.Name == "" {
		return nil, ErrEmptyCommand
	}
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	c := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	c.Dir = cmd.Dir
	if len(cmd.Env) > 0 {
		c.Env = append(os.Environ(), cmd.Env...)
	}
	setProcessGroup(c)
	c.Cancel = func() error { return killProcessGroup(c) }
	c.WaitDelay = r.waitDelay

	ready := make(chan struct{})
	var readyOnce sync.Once
	stdout := &streamBuffer{stream: "stdout", logger: r.logger}
	stderr := &streamBuffer{stream: "stderr", logger: r.logger}
	if r.probe != nil {
		probe := r.probe
		stdout.onWrite = func(acc []byte) {
			if probe.Ready(acc) {
				readyOnce.Do(func() { close(ready) })
			}
		}
	}
	c.Stdout = stdout
	c.Stderr = stderr

	line := cmd.String()
	start := time.Now()
	if err := c.Start(); err != nil {
		return nil, &ExecError{Command: line, ExitCode: -1, Err: err}
	}
	r.logger.WithField("pid", c.Process.Pid).Debugf("started %s", line)

	waitErr := make(chan error, 1)
	go func() {
		waitErr <- c.Wait()
	}()

	select {
	case <-ready:
		if err := killProcessGroup(c); err != nil {
			r.logger.Warnf("failed to stop %s after readiness: %v", line, err)
		}
		<-waitErr
		return r.readyResult(line, stdout, stderr, start), nil
	case err := <-waitErr:
		select {
		case <-ready:
			return r.readyResult(line, stdout, stderr, start), nil
		default:
		}
		return r.exitResult(ctx, line, err, stdout, stderr, start)
	}
}

func (r *Runner) readyResult(line string, stdout, stderr *streamBuffer, start time.Time) *Result {
	return &Result{
		Command:  line,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Ready:    true,
		Duration: time.Since(start),
	}
}

func (r *Runner) exitResult(ctx context.Context, line string, err error, stdout, stderr *streamBuffer, start time.Time) (*Result, error) {
	exitCode := 0
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		exitCode = exitErr.ExitCode()
	}

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return nil, &ExecError{
			Command:  line,
			Stdout:   stdout.String(),
			Stderr:   stderr.String(),
			ExitCode: exitCode,
			Err:      fmt.Errorf("%w after %s", ErrTimeout, r.timeout),
		}
	}

	if err == nil && r.probe != nil {
		err = fmt.Errorf("%w (%s)", ErrNotReady, r.probe)
	}
	if err != nil {
		return nil, &ExecError{
			Command:  line,
			Stdout:   stdout.String(),
			Stderr:   stderr.String(),
			ExitCode: exitCode,
			Err:      err,
		}
	}

	return &Result{
		Command:  line,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: exitCode,
		Duration: time.Since(start),
	}, nil
}

// streamBuffer accumulates one output stream and echoes chunks to the debug log.
type streamBuffer struct {
	mu      sync.Mutex
	buf     bytes.Buffer
	stream  string
	logger  *log.Entry
	onWrite func(acc []byte)
}

func (s *streamBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	n, _ := s.buf.Write(p)
	acc := s.buf.Bytes()
	if s.onWrite != nil {
		s.onWrite(acc)
	}
	s.mu.Unlock()

	if s.logger != nil && s.logger.Logger.IsLevelEnabled(log.DebugLevel) {
		s.logger.WithField("stream", s.stream).Debug(strings.TrimRight(string(p), "\r\n"))
	}
	return n, nil
}

func (s *streamBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.String()
}
