// Copyright 2026 The autoheal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package audit records every autonomous action of the healing loop (dependency
// installs, source overwrites, halts) as JSON lines in a dedicated rotating file,
// so the changes made to a target can be reviewed afterwards.
package audit

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/goccy/go-json"
	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Action types written to the audit log.
const (
	ActionInstall    = "dependency_install"
	ActionPatch      = "patch_applied"
	ActionRunFinish  = "run_finished"
	ActionPatchError = "patch_request_failed"
)

// Entry records a single autonomous action.
type Entry struct {
	// Timestamp is when the action was taken.
	Timestamp time.Time `json:"timestamp"`

	// RunID identifies the healing run that took the action.
	RunID string `json:"run_id"`

	// ActionType categorizes the action, see the Action constants.
	ActionType string `json:"action_type"`

	// Target is the source file being healed.
	Target string `json:"target"`

	// Attempt is the attempt index the action belongs to, 0 for preflight.
	Attempt int `json:"attempt"`

	// Details contains action specific metadata.
	Details map[string]interface{} `json:"details,omitempty"`

	// Outcome describes the result ("success", "failed", or a halt kind).
	Outcome string `json:"outcome"`
}

// Logger writes audit entries to a rotating file. A nil or disabled Logger
// discards entries.
type Logger struct {
	mu      sync.Mutex
	encoder *json.Encoder
	file    *lumberjack.Logger
	enabled bool
	logPath string
}

// Config holds configuration for the audit logger.
type Config struct {
	Enabled bool
	LogPath string

	// MaxSizeMB is the size in megabytes before rotation. Default: 10 MB.
	MaxSizeMB int

	// MaxBackups is the number of rotated files kept. Default: 5.
	MaxBackups int

	// MaxAgeDays is how long rotated files are kept. Default: 30 days.
	MaxAgeDays int

	Compress bool
}

// NewLogger creates an audit logger. If audit logging is disabled, the logger is a no-op.
func NewLogger(cfg Config) (*Logger, error) {
	if !cfg.Enabled {
		return &Logger{}, nil
	}

	if cfg.MaxSizeMB == 0 {
		cfg.MaxSizeMB = 10
	}
	if cfg.MaxBackups == 0 {
		cfg.MaxBackups = 5
	}
	if cfg.MaxAgeDays == 0 {
		cfg.MaxAgeDays = 30
	}

	if err := os.MkdirAll(filepath.Dir(cfg.LogPath), 0o755); err != nil {
		return nil, err
	}

	fileLogger := &lumberjack.Logger{
		Filename:   cfg.LogPath,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
	}

	return &Logger{
		encoder: json.NewEncoder(fileLogger),
		file:    fileLogger,
		enabled: true,
		logPath: cfg.LogPath,
	}, nil
}

// Enabled reports whether entries are written.
func (l *Logger) Enabled() bool {
	return l != nil && l.enabled
}

// LogAction writes one entry. It is safe for concurrent use.
func (l *Logger) LogAction(entry Entry) {
	if !l.Enabled() {
		return
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.encoder.Encode(entry); err != nil {
		log.WithFields(log.Fields{
			"error":       err.Error(),
			"run_id":      entry.RunID,
			"action_type": entry.ActionType,
			"outcome":     entry.Outcome,
		}).Error("failed to write audit log entry")
	}
}

// LogInstall records a dependency install.
func (l *Logger) LogInstall(runID, target, module, outcome string) {
	l.LogAction(Entry{
		RunID:      runID,
		ActionType: ActionInstall,
		Target:     target,
		Details:    map[string]interface{}{"module": module},
		Outcome:    outcome,
	})
}

// LogPatch records an overwrite of the target with patched source.
func (l *Logger) LogPatch(runID, target string, attempt, oldBytes, newBytes int, outcome string) {
	l.LogAction(Entry{
		RunID:      runID,
		ActionType: ActionPatch,
		Target:     target,
		Attempt:    attempt,
		Details: map[string]interface{}{
			"old_bytes": oldBytes,
			"new_bytes": newBytes,
		},
		Outcome: outcome,
	})
}

// LogPatchError records a failed patch request.
func (l *Logger) LogPatchError(runID, target string, attempt int, reason string) {
	l.LogAction(Entry{
		RunID:      runID,
		ActionType: ActionPatchError,
		Target:     target,
		Attempt:    attempt,
		Details:    map[string]interface{}{"reason": reason},
		Outcome:    "failed",
	})
}

// LogRunFinished records the terminal state of a run.
func (l *Logger) LogRunFinished(runID, target string, attempts int, outcome, message string) {
	details := map[string]interface{}{}
	if message != "" {
		details["message"] = message
	}
	l.LogAction(Entry{
		RunID:      runID,
		ActionType: ActionRunFinish,
		Target:     target,
		Attempt:    attempts,
		Details:    details,
		Outcome:    outcome,
	})
}

// Close flushes and closes the audit file.
func (l *Logger) Close() error {
	if !l.Enabled() || l.file == nil {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	return l.file.Close()
}

// Rotate triggers a log file rotation.
func (l *Logger) Rotate() error {
	if !l.Enabled() || l.file == nil {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	return l.file.Rotate()
}
