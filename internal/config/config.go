// Copyright 2026 The autoheal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package config provides configuration management for the autoheal loop.
// It loads YAML configuration, applies defaults for absent keys, and sanitizes
// values before they reach the runner, preflight, patch, and watcher components.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigPath is the config file looked up when none is given on the command line.
const DefaultConfigPath = "autoheal.yaml"

// TargetPlaceholder is substituted with the target path in RunCommand.
const TargetPlaceholder = "{target}"

// Config represents the application's configuration, loaded from a YAML file.
type Config struct {
	// Target is the source file that is executed, watched, and patched.
	Target string `yaml:"target" json:"target"`

	// RunCommand launches the target. TargetPlaceholder is replaced with Target.
	RunCommand string `yaml:"run-command" json:"run-command"`

	// WorkDir is the directory processes run in. Empty means the target's directory.
	WorkDir string `yaml:"work-dir" json:"work-dir"`

	// MaxAttempts is the attempt budget of one healing run.
	MaxAttempts int `yaml:"max-attempts" json:"max-attempts"`

	// RunTimeoutMs bounds a single launch of the target. 0 disables the bound.
	RunTimeoutMs int64 `yaml:"run-timeout-ms" json:"run-timeout-ms"`

	// Readiness configures how a successful start is recognized.
	Readiness ReadinessConfig `yaml:"readiness" json:"readiness"`

	// Comparison configures repeated-failure detection.
	Comparison ComparisonConfig `yaml:"comparison" json:"comparison"`

	// Preflight configures the dependency check that runs before the first attempt.
	Preflight PreflightConfig `yaml:"preflight" json:"preflight"`

	// AI configures the completion service that produces patches.
	AI AIConfig `yaml:"ai" json:"ai"`

	// Watch configures the change watcher.
	Watch WatchConfig `yaml:"watch" json:"watch"`

	// Logging configures log output.
	Logging LoggingConfig `yaml:"logging" json:"logging"`

	// Audit configures the JSON-lines audit trail of autonomous actions.
	Audit AuditConfig `yaml:"audit" json:"audit"`

	// Status configures the optional HTTP status endpoint.
	Status StatusConfig `yaml:"status" json:"status"`
}

// ReadinessConfig defines the liveness heuristic applied to the target's stdout.
type ReadinessConfig struct {
	// Sentinel is a substring whose appearance in stdout marks a successful start.
	Sentinel string `yaml:"sentinel" json:"sentinel"`

	// Pattern is a regular expression alternative to Sentinel. It wins when both are set.
	Pattern string `yaml:"pattern" json:"pattern"`
}

// ComparisonConfig selects how two consecutive error signatures are compared.
type ComparisonConfig struct {
	// Strategy is one of "exact", "normalized", "expr".
	Strategy string `yaml:"strategy" json:"strategy"`

	// Expression is the expr-lang condition used by the "expr" strategy.
	Expression string `yaml:"expression" json:"expression"`
}

// PreflightConfig defines the dependency presence check.
type PreflightConfig struct {
	Enabled        bool   `yaml:"enabled" json:"enabled"`
	PackageManager string `yaml:"package-manager" json:"package-manager"`
	ModulesDir     string `yaml:"modules-dir" json:"modules-dir"`
	Manifest       string `yaml:"manifest" json:"manifest"`
	ScanImports    bool   `yaml:"scan-imports" json:"scan-imports"`
}

// AIConfig defines the completion backend.
type AIConfig struct {
	// Provider is "gemini" or "openai" (any OpenAI-compatible endpoint).
	Provider string `yaml:"provider" json:"provider"`

	// BaseURL overrides the provider's default endpoint.
	BaseURL string `yaml:"base-url" json:"base-url"`

	Model string `yaml:"model" json:"model"`

	// APIKey takes precedence over the environment.
	APIKey string `yaml:"api-key" json:"-"`

	// TimeoutMs bounds one completion call.
	TimeoutMs int64 `yaml:"timeout-ms" json:"timeout-ms"`

	// MaxPromptTokens refuses prompts above this size. 0 disables the check.
	MaxPromptTokens int `yaml:"max-prompt-tokens" json:"max-prompt-tokens"`

	// Language is the fence info string requested from the model.
	Language string `yaml:"language" json:"language"`
}

// WatchConfig defines the change watcher.
type WatchConfig struct {
	DebounceMs int64 `yaml:"debounce-ms" json:"debounce-ms"`
}

// LoggingConfig defines log output.
type LoggingConfig struct {
	ToFile bool   `yaml:"to-file" json:"to-file"`
	Dir    string `yaml:"dir" json:"dir"`
	Debug  bool   `yaml:"debug" json:"debug"`
}

// AuditConfig defines the audit trail.
type AuditConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Path    string `yaml:"path" json:"path"`
}

// StatusConfig defines the HTTP status endpoint. Empty Listen disables it.
type StatusConfig struct {
	Listen string `yaml:"listen" json:"listen"`
}

// Default returns a configuration populated with defaults only.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (cfg *Config) applyDefaults() {
	cfg.Target = "app.js"
	cfg.RunCommand = "node " + TargetPlaceholder
	cfg.MaxAttempts = 3
	cfg.RunTimeoutMs = 0
	cfg.Readiness.Sentinel = "Server is running"
	cfg.Comparison.Strategy = "exact"
	cfg.Preflight.Enabled = true
	cfg.Preflight.PackageManager = "npm"
	cfg.Preflight.ModulesDir = "node_modules"
	cfg.Preflight.Manifest = "package.json"
	cfg.Preflight.ScanImports = true
	cfg.AI.Provider = "gemini"
	cfg.AI.Model = "gemini-2.5-pro"
	cfg.AI.TimeoutMs = 120000
	cfg.AI.Language = "javascript"
	cfg.Watch.DebounceMs = 100
	cfg.Logging.Dir = "logs"
	cfg.Audit.Path = "./logs/autoheal_audit.log"
}

// LoadConfig reads a YAML configuration file from the given path.
func LoadConfig(configFile string) (*Config, error) {
	return LoadConfigOptional(configFile, false)
}

// LoadConfigOptional reads YAML from configFile.
// If optional is true and the file is missing, it returns the defaults.
func LoadConfigOptional(configFile string, optional bool) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(configFile)
	if err != nil {
		if optional && (os.IsNotExist(err) || errors.Is(err, syscall.EISDIR)) {
			cfg.Sanitize()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if len(strings.TrimSpace(string(data))) > 0 {
		// Defaults are already set so absent keys keep them.
		if err = yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.Sanitize()
	if err = cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Sanitize normalizes values and clamps numeric settings to sensible ranges.
func (cfg *Config) Sanitize() {
	if cfg == nil {
		return
	}

	cfg.Target = strings.TrimSpace(cfg.Target)
	cfg.RunCommand = strings.TrimSpace(cfg.RunCommand)
	if cfg.RunCommand == "" {
		cfg.RunCommand = "node " + TargetPlaceholder
	}

	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.MaxAttempts > 20 {
		cfg.MaxAttempts = 20
	}
	if cfg.RunTimeoutMs < 0 {
		cfg.RunTimeoutMs = 0
	}

	cfg.Comparison.Strategy = strings.ToLower(strings.TrimSpace(cfg.Comparison.Strategy))
	switch cfg.Comparison.Strategy {
	case "exact", "normalized", "expr":
	default:
		cfg.Comparison.Strategy = "exact"
	}
	if cfg.Comparison.Strategy == "expr" && strings.TrimSpace(cfg.Comparison.Expression) == "" {
		cfg.Comparison.Strategy = "exact"
	}

	cfg.Preflight.PackageManager = strings.TrimSpace(cfg.Preflight.PackageManager)
	if cfg.Preflight.PackageManager == "" {
		cfg.Preflight.PackageManager = "npm"
	}
	if strings.TrimSpace(cfg.Preflight.ModulesDir) == "" {
		cfg.Preflight.ModulesDir = "node_modules"
	}

	cfg.AI.Provider = strings.ToLower(strings.TrimSpace(cfg.AI.Provider))
	if cfg.AI.Provider != "openai" {
		cfg.AI.Provider = "gemini"
	}
	cfg.AI.Model = strings.TrimSpace(cfg.AI.Model)
	if cfg.AI.Model == "" {
		if cfg.AI.Provider == "openai" {
			cfg.AI.Model = "gpt-4o-mini"
		} else {
			cfg.AI.Model = "gemini-2.5-pro"
		}
	}
	if cfg.AI.TimeoutMs < 0 {
		cfg.AI.TimeoutMs = 0
	}
	if cfg.AI.MaxPromptTokens < 0 {
		cfg.AI.MaxPromptTokens = 0
	}
	if strings.TrimSpace(cfg.AI.Language) == "" {
		cfg.AI.Language = "javascript"
	}

	if cfg.Watch.DebounceMs < 0 {
		cfg.Watch.DebounceMs = 0
	}
	if cfg.Watch.DebounceMs > 10000 {
		cfg.Watch.DebounceMs = 10000
	}
}

// Validate reports configuration errors that cannot be defaulted away.
func (cfg *Config) Validate() error {
	if cfg.Target == "" {
		return errors.New("config: target must not be empty")
	}
	if !strings.Contains(cfg.RunCommand, TargetPlaceholder) {
		return fmt.Errorf("config: run-command %q must contain %s", cfg.RunCommand, TargetPlaceholder)
	}
	return nil
}

// TargetPath returns the absolute path of the target file.
func (cfg *Config) TargetPath() (string, error) {
	return filepath.Abs(cfg.Target)
}

// Dir returns the directory processes run in.
func (cfg *Config) Dir() (string, error) {
	if cfg.WorkDir != "" {
		return filepath.Abs(cfg.WorkDir)
	}
	target, err := cfg.TargetPath()
	if err != nil {
		return "", err
	}
	return filepath.Dir(target), nil
}

// RunArgv splits RunCommand into argv with the placeholder substituted.
// Arguments are whitespace separated; no shell is involved.
func (cfg *Config) RunArgv(target string) []string {
	fields := strings.Fields(cfg.RunCommand)
	argv := make([]string, 0, len(fields))
	for _, f := range fields {
		argv = append(argv, strings.ReplaceAll(f, TargetPlaceholder, target))
	}
	return argv
}

// RunTimeout returns RunTimeoutMs as a duration.
func (cfg *Config) RunTimeout() time.Duration {
	return time.Duration(cfg.RunTimeoutMs) * time.Millisecond
}

// AITimeout returns AI.TimeoutMs as a duration.
func (cfg *Config) AITimeout() time.Duration {
	return time.Duration(cfg.AI.TimeoutMs) * time.Millisecond
}

// Debounce returns Watch.DebounceMs as a duration.
func (cfg *Config) Debounce() time.Duration {
	return time.Duration(cfg.Watch.DebounceMs) * time.Millisecond
}
