// Copyright 2026 The autoheal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package runner

import (
	"bytes"
	"fmt"
	"regexp"
)

// ReadinessProbe decides from the accumulated stdout whether a launched process
// has finished starting up.
type ReadinessProbe interface {
	Ready(stdout []byte) bool
	String() string
}

// SentinelProbe fires when the sentinel substring appears anywhere in stdout.
type SentinelProbe string

// Ready implements ReadinessProbe.
func (s SentinelProbe) Ready(stdout []byte) bool {
	return s != "" && bytes.Contains(stdout, []byte(s))
}

func (s SentinelProbe) String() string {
	return fmt.Sprintf("sentinel %q", string(s))
}

// PatternProbe fires when the expression matches stdout.
type PatternProbe struct {
	re *regexp.Regexp
}

// NewPatternProbe compiles pattern into a probe.
func NewPatternProbe(pattern string) (*PatternProbe, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid readiness pattern: %w", err)
	}
	return &PatternProbe{re: re}, nil
}

// Ready implements ReadinessProbe.
func (p *PatternProbe) Ready(stdout []byte) bool {
	return p.re.Match(stdout)
}

func (p *PatternProbe) String() string {
	return fmt.Sprintf("pattern /%s/", p.re.String())
}

// ProbeFor builds the probe described by a pattern and a sentinel; the pattern wins
// when both are set. It returns nil when neither is set.
func ProbeFor(pattern, sentinel string) (ReadinessProbe, error) {
	if pattern != "" {
		p, err := NewPatternProbe(pattern)
		if err != nil {
			return nil, err
		}
		return p, nil
	}
	if sentinel != "" {
		return SentinelProbe(sentinel), nil
	}
	return nil, nil
}
