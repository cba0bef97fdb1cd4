// Copyright 2026 The autoheal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package secret

import (
	"os"
	"strings"
)

// GetEnv returns the value of the environment variable named by the key,
// or fallback if the variable is not present.
func GetEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

// APIKey resolves the completion service key. An explicit configured value wins,
// then AUTOHEAL_API_KEY, then the provider specific variable.
func APIKey(configured, provider string) string {
	if v := strings.TrimSpace(configured); v != "" {
		return v
	}
	if v := strings.TrimSpace(GetEnv("AUTOHEAL_API_KEY", "")); v != "" {
		return v
	}
	switch provider {
	case "openai":
		return strings.TrimSpace(GetEnv("OPENAI_API_KEY", ""))
	default:
		return strings.TrimSpace(GetEnv("GEMINI_API_KEY", ""))
	}
}

// Mask hides all but the first and last four characters of a key for logging.
func Mask(key string) string {
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:4] + "..." + key[len(key)-4:]
}
