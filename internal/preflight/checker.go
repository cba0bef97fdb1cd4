// Copyright 2026 The autoheal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package preflight makes sure the packages a target depends on are installed
// before it is executed for the first time.
package preflight

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/traylinx/autoheal/internal/runner"
)

// CommandRunner executes install commands.
type CommandRunner interface {
	Run(ctx context.Context, cmd runner.Command) (*runner.Result, error)
}

// InstallError is returned for any failure of the dependency check. It is fatal
// for a healing run.
type InstallError struct {
	// Stage is one of "read", "manifest", "stat", "install".
	Stage  string
	Module string
	Err    error
}

func (e *InstallError) Error() string {
	if e.Module != "" {
		return fmt.Sprintf("preflight %s %s: %v", e.Stage, e.Module, e.Err)
	}
	return fmt.Sprintf("preflight %s: %v", e.Stage, e.Err)
}

func (e *InstallError) Unwrap() error {
	return e.Err
}

// Report summarizes one check.
type Report struct {
	Required  []string
	Present   []string
	Installed []string
}

// Options configures a Checker.
type Options struct {
	// Root is the project directory holding the manifest and modules directory.
	Root string
	// PackageManager is invoked as `<PackageManager> install <module>`, with the
	// manifest range appended as `<module>@<range>` when one is declared.
	PackageManager string
	// ModulesDir is where installed packages live, relative to Root.
	ModulesDir string
	// Manifest is the package.json path relative to Root. Empty disables it.
	Manifest string
	// ScanImports additionally scans the target source for imports.
	ScanImports bool
}

// Checker resolves and installs missing dependencies.
type Checker struct {
	opts   Options
	runner CommandRunner
}

// requirements are the modules to check and the install argument of each.
type requirements struct {
	modules []string
	specs   map[string]string
}

func (r requirements) installSpec(module string) string {
	if spec, ok := r.specs[module]; ok {
		return spec
	}
	return module
}

// NewChecker creates a Checker that installs through r.
func NewChecker(opts Options, r CommandRunner) *Checker {
	if opts.PackageManager == "" {
		opts.PackageManager = "npm"
	}
	if opts.ModulesDir == "" {
		opts.ModulesDir = "node_modules"
	}
	return &Checker{opts: opts, runner: r}
}

// Check resolves the modules target needs and installs the missing ones, one at a
// time, in order.
func (c *Checker) Check(ctx context.Context, target string) (*Report, error) {
	log.Info("preflight: checking dependencies before the first run")

	reqs, err := c.requiredModules(target)
	if err != nil {
		return nil, err
	}
	modules := reqs.modules

	report := &Report{Required: modules}
	if len(modules) == 0 {
		log.Info("preflight: no external dependencies")
		return report, nil
	}
	log.Infof("preflight: required modules [%s]", strings.Join(modules, ", "))

	for _, module := range modules {
		present, err := c.isInstalled(module)
		if err != nil {
			return report, &InstallError{Stage: "stat", Module: module, Err: err}
		}
		if present {
			log.Debugf("preflight: %s already installed", module)
			report.Present = append(report.Present, module)
			continue
		}

		spec := reqs.installSpec(module)
		log.Warnf("preflight: %s is missing, installing %s", module, spec)
		cmd := runner.Command{
			Name: c.opts.PackageManager,
			Args: []string{"install", spec},
			Dir:  c.opts.Root,
		}
		if _, err := c.runner.Run(ctx, cmd); err != nil {
			return report, &InstallError{Stage: "install", Module: module, Err: err}
		}
		log.Infof("preflight: installed %s", module)
		report.Installed = append(report.Installed, module)
	}
	return report, nil
}

func (c *Checker) requiredModules(target string) (requirements, error) {
	reqs := requirements{specs: make(map[string]string)}

	if c.opts.Manifest != "" {
		declared, err := DeclaredDependencies(c.path(c.opts.Manifest))
		switch {
		case errors.Is(err, os.ErrNotExist):
			log.Debugf("preflight: no manifest at %s", c.opts.Manifest)
		case err != nil:
			return reqs, &InstallError{Stage: "manifest", Err: err}
		default:
			for _, dep := range declared {
				reqs.modules = append(reqs.modules, dep.Name)
				reqs.specs[dep.Name] = dep.InstallSpec()
			}
		}
	}

	if c.opts.ScanImports {
		src, err := os.ReadFile(target)
		if err != nil {
			return reqs, &InstallError{Stage: "read", Err: err}
		}
		reqs.modules = append(reqs.modules, ScanImports(string(src))...)
	}
	reqs.modules = dedupe(reqs.modules)
	return reqs, nil
}

func (c *Checker) isInstalled(module string) (bool, error) {
	_, err := os.Stat(filepath.Join(c.path(c.opts.ModulesDir), filepath.FromSlash(module)))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, err
}

func (c *Checker) path(p string) string {
	if filepath.IsAbs(p) || c.opts.Root == "" {
		return p
	}
	return filepath.Join(c.opts.Root, p)
}
