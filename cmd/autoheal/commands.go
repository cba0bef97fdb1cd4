// Copyright 2026 The autoheal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/traylinx/autoheal/internal/buildinfo"
	"github.com/traylinx/autoheal/internal/cmd"
	"github.com/traylinx/autoheal/internal/config"
	"github.com/traylinx/autoheal/internal/logging"
)

// rootFlags are shared by every subcommand.
type rootFlags struct {
	configPath  string
	target      string
	maxAttempts int
	debug       bool
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	root := &cobra.Command{
		Use:   "autoheal",
		Short: "Run a source file and let an AI patch it until it starts",
		Long: `autoheal runs a target source file, and when it fails asks an AI completion
service for a corrected version, overwrites the file and runs it again. It stops
when the target starts, fails the same way twice, or runs out of attempts.

Examples:
  autoheal watch                 # heal app.js every time it is saved
  autoheal heal -t server.js     # one healing run
  autoheal analyze --log server.log --source app.js`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&flags.configPath, "config", "c", config.DefaultConfigPath, "configuration file path")
	root.PersistentFlags().StringVarP(&flags.target, "target", "t", "", "target source file (overrides the configuration)")
	root.PersistentFlags().IntVar(&flags.maxAttempts, "max-attempts", 0, "attempt budget (overrides the configuration)")
	root.PersistentFlags().BoolVar(&flags.debug, "debug", false, "enable debug logging")

	root.AddCommand(
		newWatchCmd(flags),
		newHealCmd(flags),
		newAnalyzeCmd(flags),
		newVersionCmd(),
	)
	return root
}

// loadConfig reads the configuration, applies flag overrides and configures logging.
func loadConfig(flags *rootFlags) (*config.Config, error) {
	// The default path may be absent; an explicit one must exist.
	optional := flags.configPath == config.DefaultConfigPath
	cfg, err := config.LoadConfigOptional(flags.configPath, optional)
	if err != nil {
		return nil, err
	}
	if flags.target != "" {
		cfg.Target = flags.target
	}
	if flags.maxAttempts > 0 {
		cfg.MaxAttempts = flags.maxAttempts
	}
	if flags.debug {
		cfg.Logging.Debug = true
	}
	cfg.Sanitize()
	if err = cfg.Validate(); err != nil {
		return nil, err
	}

	logging.SetDebug(cfg.Logging.Debug)
	if err = logging.ConfigureLogOutput(cfg.Logging.ToFile, cfg.Logging.Dir); err != nil {
		return nil, fmt.Errorf("failed to configure log output: %w", err)
	}
	log.Infof("%s", buildinfo.String())
	return cfg, nil
}

func newWatchCmd(flags *rootFlags) *cobra.Command {
	var listen string
	c := &cobra.Command{
		Use:   "watch",
		Short: "Heal the target every time it is saved",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			if listen != "" {
				cfg.Status.Listen = listen
			}
			return cmd.StartWatch(c.Context(), cfg)
		},
	}
	c.Flags().StringVar(&listen, "listen", "", "serve /healthz, /status and /metrics on this address")
	return c
}

func newHealCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "heal",
		Short: "Run one healing run and exit",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			report, err := cmd.RunOnce(c.Context(), cfg)
			if err != nil {
				return err
			}
			if !report.Succeeded() {
				return fmt.Errorf("healing halted: %s", report.Kind)
			}
			return nil
		},
	}
}

func newAnalyzeCmd(flags *rootFlags) *cobra.Command {
	var logPath, sourcePath string
	c := &cobra.Command{
		Use:   "analyze",
		Short: "Explain a failure from a log file and the source that produced it",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			if sourcePath == "" {
				sourcePath = cfg.Target
			}
			return cmd.Analyze(c.Context(), cfg, logPath, sourcePath, c.OutOrStdout())
		},
	}
	c.Flags().StringVar(&logPath, "log", "server.log", "log file to analyze")
	c.Flags().StringVar(&sourcePath, "source", "", "source file (defaults to the target)")
	return c
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(c *cobra.Command, _ []string) {
			fmt.Fprintln(c.OutOrStdout(), buildinfo.String())
		},
	}
}
