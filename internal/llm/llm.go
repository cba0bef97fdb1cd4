// Copyright 2026 The autoheal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package llm provides the text-completion backends used for patches and log analysis.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/traylinx/autoheal/internal/config"
	"github.com/traylinx/autoheal/internal/secret"
)

// ErrMissingAPIKey is returned when no key is configured for the provider.
var ErrMissingAPIKey = errors.New("no API key configured")

// ErrEmptyCompletion is returned when the service answered without any text.
var ErrEmptyCompletion = errors.New("completion contained no text")

// Client sends a single prompt and returns the completion text.
type Client interface {
	Complete(ctx context.Context, prompt string) (string, error)
	Name() string
}

// StatusError is a non-2xx answer from a completion service.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	body := strings.TrimSpace(e.Body)
	if len(body) > 512 {
		body = body[:512] + "..."
	}
	return fmt.Sprintf("API returned status %d: %s", e.Code, body)
}

// Option is a functional option shared by the backends.
type Option func(*options)

type options struct {
	httpClient *http.Client
}

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) {
		o.httpClient = c
	}
}

func buildOptions(opts []Option) options {
	o := options{httpClient: &http.Client{}}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// New creates the backend selected by cfg. The key is resolved through the
// secret package when cfg.APIKey is empty.
func New(cfg config.AIConfig, opts ...Option) (Client, error) {
	key := secret.APIKey(cfg.APIKey, cfg.Provider)
	if key == "" {
		return nil, fmt.Errorf("%w for provider %s", ErrMissingAPIKey, cfg.Provider)
	}
	log.Infof("using %s completion backend, model %s, key %s", cfg.Provider, cfg.Model, secret.Mask(key))

	switch cfg.Provider {
	case "openai":
		return NewOpenAI(key, cfg.Model, cfg.BaseURL, opts...), nil
	case "gemini", "":
		return NewGemini(key, cfg.Model, cfg.BaseURL, opts...), nil
	default:
		return nil, fmt.Errorf("unknown ai provider %q", cfg.Provider)
	}
}

// requestTimeout is applied when the caller's context has no deadline.
const requestTimeout = 5 * time.Minute
