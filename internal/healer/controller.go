// Copyright 2026 The autoheal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package healer implements the run-observe-repair loop: run the target, and on
// failure ask for a patch, overwrite the target and run it again, until it starts,
// fails the same way twice, or runs out of attempts.
package healer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/traylinx/autoheal/internal/audit"
	"github.com/traylinx/autoheal/internal/logging"
	"github.com/traylinx/autoheal/internal/metrics"
	"github.com/traylinx/autoheal/internal/patch"
	"github.com/traylinx/autoheal/internal/preflight"
	"github.com/traylinx/autoheal/internal/runner"
	"github.com/traylinx/autoheal/internal/util"
)

// Executor launches the target.
type Executor interface {
	Run(ctx context.Context, cmd runner.Command) (*runner.Result, error)
}

// DependencyChecker installs what the target needs before it first runs.
type DependencyChecker interface {
	Check(ctx context.Context, target string) (*preflight.Report, error)
}

// PatchRequester obtains corrected source for a failure.
type PatchRequester interface {
	Request(ctx context.Context, source, errText string) (*patch.Response, error)
}

// Options configures a Controller.
type Options struct {
	// Target is the source file that is run and patched.
	Target string
	// Command launches the target, argv form.
	Command []string
	// Dir is the working directory of the target process.
	Dir string
	// MaxAttempts is the attempt budget, at least 1.
	MaxAttempts int
	// Comparator detects repeated failures. Nil means exact comparison.
	Comparator Comparator
}

// Controller runs the healing loop for one target. Heal must not be called
// concurrently; the watcher's gate serializes calls.
type Controller struct {
	opts    Options
	exec    Executor
	patcher PatchRequester
	checker DependencyChecker
	audit   *audit.Logger
	metrics *metrics.Metrics
	write   func(path string, data []byte) error
}

// Option is a functional option for configuring the Controller.
type Option func(*Controller)

// WithPreflight runs checker once before the first attempt.
func WithPreflight(checker DependencyChecker) Option {
	return func(c *Controller) {
		c.checker = checker
	}
}

// WithAudit records autonomous actions to l.
func WithAudit(l *audit.Logger) Option {
	return func(c *Controller) {
		c.audit = l
	}
}

// WithMetrics records attempts and runs to m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Controller) {
		c.metrics = m
	}
}

// WithWriter replaces the function used to overwrite the target.
func WithWriter(write func(path string, data []byte) error) Option {
	return func(c *Controller) {
		c.write = write
	}
}

// NewController creates a Controller.
func NewController(opts Options, exec Executor, patcher PatchRequester, extra ...Option) (*Controller, error) {
	if opts.Target == "" {
		return nil, errors.New("healer: target is required")
	}
	if len(opts.Command) == 0 {
		return nil, runner.ErrEmptyCommand
	}
	if exec == nil || patcher == nil {
		return nil, errors.New("healer: executor and patch requester are required")
	}
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}
	if opts.Comparator == nil {
		opts.Comparator = ExactComparator{}
	}

	c := &Controller{
		opts:    opts,
		exec:    exec,
		patcher: patcher,
		write: func(path string, data []byte) error {
			return util.SecureWrite(path, data, nil)
		},
	}
	for _, opt := range extra {
		opt(c)
	}
	return c, nil
}

// Target returns the file this controller heals.
func (c *Controller) Target() string {
	return c.opts.Target
}

// runState is the mutable state of one Heal call.
type runState struct {
	state   State
	attempt int
	// previous is the signature of the last failed attempt; hasPrevious tells an
	// empty signature apart from no failure yet.
	previous    string
	hasPrevious bool
	report      *Report
	logger      *log.Entry
}

// Heal drives the state machine to a terminal state and reports the outcome.
// It never returns an error: every failure ends in StateHalted with a Kind.
func (c *Controller) Heal(ctx context.Context) *Report {
	runID := uuid.NewString()
	st := &runState{
		state: StateInit,
		report: &Report{
			RunID:     runID,
			Target:    c.opts.Target,
			StartedAt: time.Now(),
		},
		logger: log.WithFields(log.Fields{logging.RunIDField: runID}),
	}
	c.metrics.SetRunning(true)
	defer c.metrics.SetRunning(false)

	st.logger.Infof("healing run started for %s (budget %d, comparison %s)", c.opts.Target, c.opts.MaxAttempts, c.opts.Comparator)

	for !st.state.Terminal() {
		switch st.state {
		case StateInit:
			c.init(st)
		case StatePreflight:
			c.preflight(ctx, st)
		case StateRun:
			c.run(ctx, st)
		case StatePatch:
			c.patch(ctx, st)
		default:
			c.halt(st, KindNone, fmt.Errorf("unknown state %q", st.state))
		}
	}

	return c.finish(st)
}

func (c *Controller) init(st *runState) {
	st.attempt = 1
	if c.checker != nil {
		st.state = StatePreflight
		return
	}
	st.state = StateRun
}

func (c *Controller) preflight(ctx context.Context, st *runState) {
	if !c.targetExists(st) {
		return
	}

	report, err := c.checker.Check(ctx, c.opts.Target)
	st.report.Preflight = report
	if report != nil {
		for _, module := range report.Installed {
			c.audit.LogInstall(st.report.RunID, c.opts.Target, module, "success")
			c.metrics.RecordInstall(true)
		}
	}
	if err != nil {
		var installErr *preflight.InstallError
		if errors.As(err, &installErr) && installErr.Stage == "install" {
			c.audit.LogInstall(st.report.RunID, c.opts.Target, installErr.Module, "failed")
			c.metrics.RecordInstall(false)
		}
		if ctx.Err() != nil {
			c.halt(st, KindCancelled, ctx.Err())
			return
		}
		c.halt(st, KindInstallFailure, err)
		return
	}
	st.state = StateRun
}

func (c *Controller) run(ctx context.Context, st *runState) {
	if ctx.Err() != nil {
		c.halt(st, KindCancelled, ctx.Err())
		return
	}
	if !c.targetExists(st) {
		return
	}

	logger := st.logger.WithField("attempt", st.attempt)
	cmd := runner.Command{
		Name: c.opts.Command[0],
		Args: c.opts.Command[1:],
		Dir:  c.opts.Dir,
	}
	logger.Infof("attempt %d/%d: running %s", st.attempt, c.opts.MaxAttempts, cmd)

	res, err := c.exec.Run(ctx, cmd)
	attempt := Attempt{Index: st.attempt, Command: cmd.String()}
	if res != nil {
		attempt.Stdout, attempt.Stderr, attempt.ExitCode, attempt.Duration = res.Stdout, res.Stderr, res.ExitCode, res.Duration
	}

	if err == nil {
		attempt.Outcome = OutcomeSuccess
		st.report.Attempts = append(st.report.Attempts, attempt)
		c.metrics.RecordAttempt(true)
		logger.Info("target started successfully")
		st.state = StateSuccess
		return
	}

	var execErr *runner.ExecError
	if errors.As(err, &execErr) {
		attempt.Stdout, attempt.Stderr, attempt.ExitCode = execErr.Stdout, execErr.Stderr, execErr.ExitCode
	}
	signature := err.Error()
	attempt.Outcome = OutcomeFailure
	attempt.Signature = signature
	st.report.Attempts = append(st.report.Attempts, attempt)
	c.metrics.RecordAttempt(false)

	if ctx.Err() != nil {
		c.halt(st, KindCancelled, ctx.Err())
		return
	}
	logger.Warnf("attempt failed (%s):\n%s", KindExecutionFailure, strings.TrimRight(signature, "\n"))

	if st.hasPrevious && c.opts.Comparator.Repeated(st.previous, signature) {
		c.halt(st, KindRepeatedFailure, fmt.Errorf("the same error occurred twice in a row: %w", err))
		return
	}
	st.previous, st.hasPrevious = signature, true

	if st.attempt >= c.opts.MaxAttempts {
		c.halt(st, KindExhausted, fmt.Errorf("giving up after %d attempts: %w", st.attempt, err))
		return
	}
	st.state = StatePatch
}

func (c *Controller) patch(ctx context.Context, st *runState) {
	if !c.targetExists(st) {
		return
	}
	logger := st.logger.WithField("attempt", st.attempt)

	source, err := os.ReadFile(c.opts.Target)
	if err != nil {
		c.halt(st, KindMissingFile, fmt.Errorf("failed to read %s: %w", c.opts.Target, err))
		return
	}

	logger.Info("requesting a patch")
	resp, err := c.patcher.Request(ctx, string(source), st.previous)
	if err != nil {
		c.audit.LogPatchError(st.report.RunID, c.opts.Target, st.attempt, err.Error())
		switch {
		case ctx.Err() != nil:
			c.metrics.RecordPatch("error")
			c.halt(st, KindCancelled, ctx.Err())
		case errors.Is(err, context.DeadlineExceeded):
			c.metrics.RecordPatch("timeout")
			c.halt(st, KindTimeout, err)
		case errors.Is(err, patch.ErrPatchUnavailable):
			c.metrics.RecordPatch("unavailable")
			c.halt(st, KindPatchUnavailable, err)
		default:
			c.metrics.RecordPatch("error")
			c.halt(st, KindPatchUnavailable, err)
		}
		return
	}

	if err := c.write(c.opts.Target, []byte(resp.Code)); err != nil {
		c.audit.LogPatch(st.report.RunID, c.opts.Target, st.attempt, len(source), len(resp.Code), "failed")
		c.metrics.RecordPatch("error")
		c.halt(st, KindWriteFailure, fmt.Errorf("failed to write %s: %w", c.opts.Target, err))
		return
	}
	c.audit.LogPatch(st.report.RunID, c.opts.Target, st.attempt, len(source), len(resp.Code), "success")
	c.metrics.RecordPatch("applied")
	st.report.Attempts[len(st.report.Attempts)-1].Patched = true
	logger.Infof("patched %s (%d -> %d bytes)", c.opts.Target, len(source), len(resp.Code))

	st.attempt++
	st.state = StateRun
}

// targetExists halts the run with KindMissingFile when the target is gone.
func (c *Controller) targetExists(st *runState) bool {
	if _, err := os.Stat(c.opts.Target); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			c.halt(st, KindMissingFile, fmt.Errorf("target file %s does not exist", c.opts.Target))
		} else {
			c.halt(st, KindMissingFile, fmt.Errorf("cannot access target file %s: %w", c.opts.Target, err))
		}
		return false
	}
	return true
}

func (c *Controller) halt(st *runState, kind Kind, err error) {
	st.state = StateHalted
	st.report.Kind = kind
	st.report.Err = err
	if err != nil {
		st.report.Message = err.Error()
	}
}

func (c *Controller) finish(st *runState) *Report {
	r := st.report
	r.State = st.state
	r.FinishedAt = time.Now()

	c.metrics.RecordRun(r.Outcome(), r.Duration())
	c.audit.LogRunFinished(r.RunID, r.Target, len(r.Attempts), r.Outcome(), r.Message)

	if r.Succeeded() {
		st.logger.Infof("healing run succeeded after %d attempt(s), %d patch(es)", len(r.Attempts), r.PatchCount())
	} else {
		st.logger.WithField("kind", r.Kind).Errorf("healing run halted: %s", r.Message)
	}
	return r
}
