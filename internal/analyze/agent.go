// Copyright 2026 The autoheal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package analyze produces a one-shot root cause report from a server log and
// the source file that wrote it. Nothing is modified on disk.
package analyze

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"
)

// Completer is the external text-completion service.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// MissingFileError reports an input file that does not exist.
type MissingFileError struct {
	Path string
	Err  error
}

func (e *MissingFileError) Error() string {
	return fmt.Sprintf("file %s not found; check the file name and path", e.Path)
}

func (e *MissingFileError) Unwrap() error {
	return e.Err
}

// Agent builds analysis prompts and returns the model's report.
type Agent struct {
	completer Completer
	language  string
}

// NewAgent creates an Agent for sources written in language.
func NewAgent(c Completer, language string) *Agent {
	if language == "" {
		language = "javascript"
	}
	return &Agent{completer: c, language: language}
}

// Analyze reads the log and the source and asks for a root cause analysis, a fix
// and a refactored version of the source.
func (a *Agent) Analyze(ctx context.Context, logPath, sourcePath string) (string, error) {
	logContent, err := readInput(logPath)
	if err != nil {
		return "", err
	}
	source, err := readInput(sourcePath)
	if err != nil {
		return "", err
	}

	log.Infof("analyzing %s and %s", logPath, sourcePath)
	prompt := BuildPrompt(a.language, filepath.Base(logPath), logContent, filepath.Base(sourcePath), source)
	report, err := a.completer.Complete(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("analysis request failed: %w", err)
	}
	return report, nil
}

func readInput(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", &MissingFileError{Path: path, Err: err}
		}
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(data), nil
}

// BuildPrompt renders the analysis request.
func BuildPrompt(language, logName, logContent, sourceName, source string) string {
	return fmt.Sprintf(`You are a senior %[1]s developer with ten years of experience. Analyze the log file and the source code below, find the root cause of the problem and propose a safely corrected version of the code.

### 1. Context

**[ %[2]s ]**
%[6]s
%[3]s
%[6]s

**[ %[4]s ]**
%[6]s%[1]s
%[5]s
%[6]s

### 2. Task

Answer in the following format.

**1. Root cause:**
- Explain which error appears in the log.
- Explain on which line of the source the problem occurs and why.

**2. Fix:**
- Describe the best way to resolve the problem.

**3. Refactored code:**
- Provide the complete corrected %[4]s in a single code block.
- Mark what changed with short comments.
`, language, logName, logContent, sourceName, source, "```")
}
