// Copyright 2026 The autoheal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package healer

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	log "github.com/sirupsen/logrus"
)

// Comparator decides whether two consecutive error signatures describe the same failure.
type Comparator interface {
	Repeated(previous, current string) bool
	String() string
}

// NewComparator builds the comparator for a strategy name. expression is only
// used by the "expr" strategy.
func NewComparator(strategy, expression string) (Comparator, error) {
	switch strategy {
	case "", "exact":
		return ExactComparator{}, nil
	case "normalized":
		return NormalizedComparator{}, nil
	case "expr":
		return NewExprComparator(expression)
	default:
		return nil, fmt.Errorf("unknown comparison strategy %q", strategy)
	}
}

// ExactComparator treats signatures as repeated only when they are byte-identical.
type ExactComparator struct{}

func (ExactComparator) Repeated(previous, current string) bool {
	return previous == current
}

func (ExactComparator) String() string { return "exact" }

// NormalizedComparator compares signatures after Normalize.
type NormalizedComparator struct{}

func (NormalizedComparator) Repeated(previous, current string) bool {
	return Normalize(previous) == Normalize(current)
}

func (NormalizedComparator) String() string { return "normalized" }

var (
	timestampRe  = regexp.MustCompile(`\d{4}-\d{2}-\d{2}[T ]\d{2}:\d{2}:\d{2}(?:\.\d+)?(?:Z|[+-]\d{2}:?\d{2})?`)
	hexAddressRe = regexp.MustCompile(`0x[0-9a-fA-F]+`)
	lineColumnRe = regexp.MustCompile(`:\d+(?::\d+)?\b`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// Normalize strips the parts of an error message that change between otherwise
// identical failures: timestamps, hex addresses, line and column numbers, and
// whitespace layout.
func Normalize(s string) string {
	s = timestampRe.ReplaceAllString(s, "<time>")
	s = hexAddressRe.ReplaceAllString(s, "0x?")
	s = lineColumnRe.ReplaceAllString(s, ":N")
	s = whitespaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// FirstLine returns the first non-blank line of s, trimmed.
func FirstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return ""
}

// compareEnv is the environment of a comparison expression.
type compareEnv struct {
	Previous string
	Current  string
}

func (compareEnv) Normalize(s string) string { return Normalize(s) }

func (compareEnv) FirstLine(s string) string { return FirstLine(s) }

// ExprComparator evaluates a boolean expr-lang expression over Previous and
// Current, for example `FirstLine(Previous) == FirstLine(Current)`.
type ExprComparator struct {
	source  string
	program *vm.Program
}

// NewExprComparator compiles expression.
func NewExprComparator(expression string) (*ExprComparator, error) {
	program, err := expr.Compile(expression, expr.Env(compareEnv{}), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("failed to compile comparison '%s': %w", expression, err)
	}
	return &ExprComparator{source: expression, program: program}, nil
}

// Repeated implements Comparator. Evaluation errors count as "not repeated" so the
// loop keeps going until its budget.
func (c *ExprComparator) Repeated(previous, current string) bool {
	out, err := expr.Run(c.program, compareEnv{Previous: previous, Current: current})
	if err != nil {
		log.Warnf("comparison '%s' failed: %v", c.source, err)
		return false
	}
	repeated, _ := out.(bool)
	return repeated
}

func (c *ExprComparator) String() string { return "expr(" + c.source + ")" }
