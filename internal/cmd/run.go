// Copyright 2026 The autoheal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package cmd wires configuration into the healing pipeline and implements the
// watch, heal and analyze operations behind the command line.
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/traylinx/autoheal/internal/analyze"
	"github.com/traylinx/autoheal/internal/api"
	"github.com/traylinx/autoheal/internal/audit"
	"github.com/traylinx/autoheal/internal/config"
	"github.com/traylinx/autoheal/internal/healer"
	"github.com/traylinx/autoheal/internal/logging"
	"github.com/traylinx/autoheal/internal/watcher"
)

// StartWatch watches cfg.Target and heals it on every save until SIGINT or
// SIGTERM. A run in progress at shutdown is cancelled and awaited.
func StartWatch(parent context.Context, cfg *config.Config, opts ...BuildOption) error {
	ctx, cancel := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	p, err := Build(cfg, opts...)
	if err != nil {
		return err
	}
	defer p.Close()

	w, err := watcher.New(p.Controller.Target(), p.Controller,
		watcher.WithDebounce(cfg.Debounce()),
		watcher.WithMetrics(p.Metrics),
		watcher.OnReport(logReport),
	)
	if err != nil {
		return err
	}
	if err = w.Start(ctx); err != nil {
		return err
	}
	log.Info("save the file to start a healing run, press Ctrl+C to stop")

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	go rotateOnHangup(ctx, p.Audit, hup)

	var status *api.Server
	if cfg.Status.Listen != "" {
		status = api.NewServer(cfg.Status.Listen, w, p.Registry)
		if err = status.Start(); err != nil {
			w.Stop()
			return fmt.Errorf("failed to start status server: %w", err)
		}
	}

	<-ctx.Done()
	log.Info("shutting down")
	w.Stop()
	w.Wait()

	if status != nil {
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancelShutdown()
		if errShutdown := status.Shutdown(shutdownCtx); errShutdown != nil {
			log.Errorf("status server shutdown: %v", errShutdown)
		}
	}
	return nil
}

// RunOnce runs a single healing run for cfg.Target.
func RunOnce(parent context.Context, cfg *config.Config, opts ...BuildOption) (*healer.Report, error) {
	ctx, cancel := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	p, err := Build(cfg, opts...)
	if err != nil {
		return nil, err
	}
	defer p.Close()

	report := p.Controller.Heal(ctx)
	logReport(report)
	return report, nil
}

// Analyze writes a root cause report for logPath and sourcePath to out.
func Analyze(parent context.Context, cfg *config.Config, logPath, sourcePath string, out io.Writer, opts ...BuildOption) error {
	ctx, cancel := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var o buildOptions
	for _, opt := range opts {
		opt(&o)
	}
	client, err := newClient(cfg, o)
	if err != nil {
		return err
	}
	if cfg.AITimeout() > 0 {
		var cancelTimeout context.CancelFunc
		ctx, cancelTimeout = context.WithTimeout(ctx, cfg.AITimeout())
		defer cancelTimeout()
	}

	report, err := analyze.NewAgent(client, cfg.AI.Language).Analyze(ctx, logPath, sourcePath)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "--- analysis report ---\n%s\n-----------------------\n", report)
	return err
}

// rotateOnHangup rotates the audit file on every signal from sig until ctx ends.
func rotateOnHangup(ctx context.Context, a *audit.Logger, sig <-chan os.Signal) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-sig:
			if err := a.Rotate(); err != nil {
				log.Errorf("failed to rotate audit log: %v", err)
				continue
			}
			log.Info("audit log rotated")
		}
	}
}

func logReport(r *healer.Report) {
	entry := log.WithField(logging.RunIDField, r.RunID)
	if r.Succeeded() {
		entry.Infof("run finished: success after %d attempt(s) in %s", len(r.Attempts), r.Duration().Round(time.Millisecond))
		return
	}
	entry.Warnf("run finished: %s after %d attempt(s): %s", r.Kind, len(r.Attempts), r.Message)
}
