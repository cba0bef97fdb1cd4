// Copyright 2026 The autoheal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package patch asks a completion service for a corrected version of a failing
// source file and extracts the code from the reply.
package patch

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
)

var (
	// ErrPatchUnavailable means the reply held no usable fenced code block.
	ErrPatchUnavailable = errors.New("no fenced code block in completion")

	// ErrPromptTooLarge means the prompt exceeded the token budget and was not sent.
	ErrPromptTooLarge = errors.New("prompt exceeds token budget")
)

// Completer is the external text-completion service.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Response is one completion and the code extracted from it.
type Response struct {
	RawText string
	Code    string
}

// Requester builds fix prompts and extracts patches from completions.
type Requester struct {
	completer Completer
	language  string
	aliases   []string
	timeout   time.Duration
	maxTokens int
	counter   TokenCounter
}

// Option is a functional option for configuring the Requester.
type Option func(*Requester)

// WithLanguage sets the language named in the prompt and accepted on the fence.
func WithLanguage(lang string) Option {
	return func(r *Requester) {
		r.language = lang
	}
}

// WithTimeout bounds each completion call. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(r *Requester) {
		r.timeout = d
	}
}

// WithTokenBudget refuses prompts larger than max tokens as measured by counter.
func WithTokenBudget(max int, counter TokenCounter) Option {
	return func(r *Requester) {
		r.maxTokens = max
		r.counter = counter
	}
}

// NewRequester creates a Requester that sends prompts to c.
func NewRequester(c Completer, opts ...Option) *Requester {
	r := &Requester{
		completer: c,
		language:  "javascript",
	}
	for _, opt := range opts {
		opt(r)
	}
	r.aliases = Aliases(r.language)
	return r
}

// Request sends one fix prompt for source and its error output. There is no retry.
func (r *Requester) Request(ctx context.Context, source, errText string) (*Response, error) {
	prompt := BuildPrompt(r.language, source, errText)

	if r.maxTokens > 0 && r.counter != nil {
		n, err := r.counter.Count(prompt)
		if err != nil {
			return nil, fmt.Errorf("failed to count prompt tokens: %w", err)
		}
		if n > r.maxTokens {
			return nil, fmt.Errorf("%w: %d > %d", ErrPromptTooLarge, n, r.maxTokens)
		}
		log.Debugf("patch prompt is %d tokens", n)
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	text, err := r.completer.Complete(ctx, prompt)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) && !errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("%w: %v", context.DeadlineExceeded, err)
		}
		return nil, fmt.Errorf("completion request failed: %w", err)
	}

	code, err := ExtractCode(text, r.aliases)
	if err != nil {
		return &Response{RawText: text}, err
	}
	return &Response{RawText: text, Code: code}, nil
}
