// Copyright 2026 The autoheal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package cmd

import (
	"fmt"
	"net/http"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	log "github.com/sirupsen/logrus"
	"github.com/traylinx/autoheal/internal/audit"
	"github.com/traylinx/autoheal/internal/config"
	"github.com/traylinx/autoheal/internal/healer"
	"github.com/traylinx/autoheal/internal/llm"
	"github.com/traylinx/autoheal/internal/metrics"
	"github.com/traylinx/autoheal/internal/patch"
	"github.com/traylinx/autoheal/internal/preflight"
	"github.com/traylinx/autoheal/internal/runner"
)

// Pipeline is the healing loop assembled from configuration.
type Pipeline struct {
	Config     *config.Config
	Controller *healer.Controller
	Client     llm.Client
	Registry   *prometheus.Registry
	Metrics    *metrics.Metrics
	Audit      *audit.Logger
}

// BuildOption customizes Build.
type BuildOption func(*buildOptions)

type buildOptions struct {
	client llm.Client
}

// WithClient uses c instead of the backend selected by the configuration.
func WithClient(c llm.Client) BuildOption {
	return func(o *buildOptions) {
		o.client = c
	}
}

// newClient returns the injected client or the configured backend.
func newClient(cfg *config.Config, o buildOptions) (llm.Client, error) {
	if o.client != nil {
		return o.client, nil
	}
	return llm.New(cfg.AI, llm.WithHTTPClient(&http.Client{}))
}

// Build wires runner, preflight, patch requester, audit and metrics into a
// controller for cfg.Target.
func Build(cfg *config.Config, opts ...BuildOption) (*Pipeline, error) {
	var o buildOptions
	for _, opt := range opts {
		opt(&o)
	}

	target, err := cfg.TargetPath()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve target: %w", err)
	}
	dir, err := cfg.Dir()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve work dir: %w", err)
	}

	probe, err := runner.ProbeFor(cfg.Readiness.Pattern, cfg.Readiness.Sentinel)
	if err != nil {
		return nil, err
	}
	launcher := runner.New(
		runner.WithProbe(probe),
		runner.WithTimeout(cfg.RunTimeout()),
		runner.WithLogger(log.WithField("proc", filepath.Base(target))),
	)

	client, err := newClient(cfg, o)
	if err != nil {
		return nil, err
	}

	patchOpts := []patch.Option{
		patch.WithLanguage(cfg.AI.Language),
		patch.WithTimeout(cfg.AITimeout()),
	}
	if cfg.AI.MaxPromptTokens > 0 {
		counter, errCounter := patch.NewTokenCounter()
		if errCounter != nil {
			return nil, errCounter
		}
		patchOpts = append(patchOpts, patch.WithTokenBudget(cfg.AI.MaxPromptTokens, counter))
	}
	requester := patch.NewRequester(client, patchOpts...)

	comparator, err := healer.NewComparator(cfg.Comparison.Strategy, cfg.Comparison.Expression)
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	auditLog, err := audit.NewLogger(audit.Config{Enabled: cfg.Audit.Enabled, LogPath: cfg.Audit.Path})
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log: %w", err)
	}

	controllerOpts := []healer.Option{healer.WithMetrics(m), healer.WithAudit(auditLog)}
	if cfg.Preflight.Enabled {
		checker := preflight.NewChecker(preflight.Options{
			Root:           dir,
			PackageManager: cfg.Preflight.PackageManager,
			ModulesDir:     cfg.Preflight.ModulesDir,
			Manifest:       cfg.Preflight.Manifest,
			ScanImports:    cfg.Preflight.ScanImports,
		}, runner.New(runner.WithLogger(log.WithField("proc", cfg.Preflight.PackageManager))))
		controllerOpts = append(controllerOpts, healer.WithPreflight(checker))
	}

	controller, err := healer.NewController(healer.Options{
		Target:      target,
		Command:     cfg.RunArgv(target),
		Dir:         dir,
		MaxAttempts: cfg.MaxAttempts,
		Comparator:  comparator,
	}, launcher, requester, controllerOpts...)
	if err != nil {
		_ = auditLog.Close()
		return nil, err
	}

	log.Debugf("pipeline ready: target=%s dir=%s probe=%v backend=%s", target, dir, launcher.Probe(), client.Name())
	return &Pipeline{
		Config:     cfg,
		Controller: controller,
		Client:     client,
		Registry:   reg,
		Metrics:    m,
		Audit:      auditLog,
	}, nil
}

// Close releases the audit log.
func (p *Pipeline) Close() {
	if err := p.Audit.Close(); err != nil {
		log.Errorf("failed to close audit log: %v", err)
	}
}
