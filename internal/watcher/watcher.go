// Copyright 2026 The autoheal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package watcher re-runs the healing loop whenever the target file is saved.
// Saves that arrive while a run is in progress are dropped.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"
	"github.com/traylinx/autoheal/internal/healer"
	"github.com/traylinx/autoheal/internal/metrics"
)

// Healer runs the loop to a terminal state.
type Healer interface {
	Heal(ctx context.Context) *healer.Report
}

// Watcher observes one target file.
type Watcher struct {
	target   string
	healer   Healer
	gate     *Gate
	debounce time.Duration
	onReport func(*healer.Report)
	metrics  *metrics.Metrics

	runs sync.WaitGroup

	mu      sync.Mutex
	last    *healer.Report
	fsw     *fsnotify.Watcher
	stop    chan struct{}
	stopped chan struct{}
}

// Option is a functional option for configuring the Watcher.
type Option func(*Watcher)

// WithDebounce coalesces saves closer together than d into one trigger.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		w.debounce = d
	}
}

// WithGate shares a gate with other triggers of the same controller.
func WithGate(g *Gate) Option {
	return func(w *Watcher) {
		w.gate = g
	}
}

// OnReport registers a callback invoked with the report of every finished run.
func OnReport(fn func(*healer.Report)) Option {
	return func(w *Watcher) {
		w.onReport = fn
	}
}

// WithMetrics counts dropped triggers in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(w *Watcher) {
		w.metrics = m
	}
}

// New creates a Watcher for target that runs h on every save.
func New(target string, h Healer, opts ...Option) (*Watcher, error) {
	abs, err := filepath.Abs(target)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", target, err)
	}
	if h == nil {
		return nil, errors.New("watcher: healer is required")
	}
	w := &Watcher{
		target:   abs,
		healer:   h,
		gate:     &Gate{},
		debounce: 100 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Target returns the watched path.
func (w *Watcher) Target() string {
	return w.target
}

// Busy reports whether a run is in progress.
func (w *Watcher) Busy() bool {
	return w.gate.Busy()
}

// LastReport returns the report of the most recent finished run, or nil.
func (w *Watcher) LastReport() *healer.Report {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.last
}

// Start begins watching. The file's current state never triggers a run; only
// later saves do. Watching ends when ctx is done or Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.fsw != nil {
		return errors.New("watcher: already started")
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	// Watch the directory: editors that save through a rename replace the inode.
	if err = fsw.Add(filepath.Dir(w.target)); err != nil {
		_ = fsw.Close()
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(w.target), err)
	}
	w.fsw = fsw
	w.stop = make(chan struct{})
	w.stopped = make(chan struct{})

	log.Infof("watching %s for changes", w.target)
	go w.loop(ctx, fsw, w.stop, w.stopped)
	return nil
}

// Stop ends watching and waits for the event loop to exit. A run in progress is
// not interrupted; use Wait for it.
func (w *Watcher) Stop() {
	w.mu.Lock()
	fsw, stop, stopped := w.fsw, w.stop, w.stopped
	w.fsw = nil
	w.mu.Unlock()
	if fsw == nil {
		return
	}

	close(stop)
	<-stopped
	if err := fsw.Close(); err != nil {
		log.Debugf("watcher close error: %v", err)
	}
}

// Wait blocks until every run started by Trigger has finished.
func (w *Watcher) Wait() {
	w.runs.Wait()
}

func (w *Watcher) loop(ctx context.Context, fsw *fsnotify.Watcher, stop, stopped chan struct{}) {
	defer close(stopped)

	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			if !w.matches(event) {
				continue
			}
			if w.gate.Busy() {
				w.drop(event.Name)
				continue
			}
			log.Debugf("change detected: %s", event)
			if w.debounce <= 0 {
				w.Trigger(ctx)
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			w.Trigger(ctx)
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			log.Errorf("watcher error: %v", err)
		case <-stop:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (w *Watcher) matches(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return false
	}
	return filepath.Clean(event.Name) == w.target
}

// Trigger starts a healing run on its own goroutine unless one is already in
// progress. It reports whether a run was started. A refused trigger leaves the
// gate untouched and is not queued.
func (w *Watcher) Trigger(ctx context.Context) bool {
	if !w.gate.TryAcquire() {
		w.drop(w.target)
		return false
	}

	log.Infof("change detected in %s, starting healing run", w.target)
	w.runs.Add(1)
	go func() {
		defer w.runs.Done()
		defer w.gate.Release()

		report := w.healer.Heal(ctx)

		w.mu.Lock()
		w.last = report
		w.mu.Unlock()
		if w.onReport != nil {
			w.onReport(report)
		}
		log.Infof("watching %s for changes again", w.target)
	}()
	return true
}

func (w *Watcher) drop(name string) {
	log.Infof("a healing run is still in progress, ignoring change to %s", name)
	w.metrics.RecordDroppedTrigger()
}
