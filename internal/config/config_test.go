// Copyright 2026 The autoheal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "autoheal.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, ""))
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Target != "app.js" {
		t.Errorf("expected default target app.js, got %q", cfg.Target)
	}
	if cfg.MaxAttempts != 3 {
		t.Errorf("expected default max attempts 3, got %d", cfg.MaxAttempts)
	}
	if cfg.Readiness.Sentinel != "Server is running" {
		t.Errorf("unexpected default sentinel %q", cfg.Readiness.Sentinel)
	}
	if cfg.Comparison.Strategy != "exact" {
		t.Errorf("expected exact comparison by default, got %q", cfg.Comparison.Strategy)
	}
	if !cfg.Preflight.Enabled || cfg.Preflight.PackageManager != "npm" {
		t.Errorf("unexpected preflight defaults: %+v", cfg.Preflight)
	}
	if cfg.RunTimeout() != 0 {
		t.Errorf("run timeout should be disabled by default, got %s", cfg.RunTimeout())
	}
}

func TestLoadConfig_OverridesAndSanitize(t *testing.T) {
	path := writeConfig(t, `
target: server.js
run-command: "deno run {target}"
max-attempts: 99
run-timeout-ms: 1500
comparison:
  strategy: NORMALIZED
ai:
  provider: OpenAI
  model: ""
watch:
  debounce-ms: -5
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.MaxAttempts != 20 {
		t.Errorf("max attempts should clamp to 20, got %d", cfg.MaxAttempts)
	}
	if cfg.Comparison.Strategy != "normalized" {
		t.Errorf("strategy should be normalized, got %q", cfg.Comparison.Strategy)
	}
	if cfg.AI.Provider != "openai" || cfg.AI.Model != "gpt-4o-mini" {
		t.Errorf("unexpected ai config: %+v", cfg.AI)
	}
	if cfg.Debounce() != 0 {
		t.Errorf("negative debounce should clamp to 0, got %s", cfg.Debounce())
	}
	if cfg.RunTimeout() != 1500*time.Millisecond {
		t.Errorf("unexpected run timeout %s", cfg.RunTimeout())
	}
	if got := cfg.RunArgv("/tmp/server.js"); !reflect.DeepEqual(got, []string{"deno", "run", "/tmp/server.js"}) {
		t.Errorf("unexpected argv %v", got)
	}
}

func TestLoadConfig_ExprWithoutExpressionFallsBack(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, "comparison:\n  strategy: expr\n"))
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.Comparison.Strategy != "exact" {
		t.Errorf("expected fallback to exact, got %q", cfg.Comparison.Strategy)
	}
}

func TestLoadConfig_RejectsCommandWithoutPlaceholder(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, "run-command: node app.js\n"))
	if err == nil {
		t.Fatal("expected validation error for run-command without placeholder")
	}
}

func TestLoadConfigOptional_MissingFile(t *testing.T) {
	cfg, err := LoadConfigOptional(filepath.Join(t.TempDir(), "missing.yaml"), true)
	if err != nil {
		t.Fatalf("optional load should not fail: %v", err)
	}
	if cfg.Target != "app.js" {
		t.Errorf("expected defaults, got target %q", cfg.Target)
	}

	if _, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("non-optional load of a missing file should fail")
	}
}

func TestDir_DefaultsToTargetDirectory(t *testing.T) {
	cfg := Default()
	cfg.Target = "/srv/app/index.js"
	dir, err := cfg.Dir()
	if err != nil {
		t.Fatalf("Dir() failed: %v", err)
	}
	if dir != "/srv/app" {
		t.Errorf("expected /srv/app, got %s", dir)
	}
}
