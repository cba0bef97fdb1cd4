// Copyright 2026 The autoheal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package preflight

import (
	"regexp"
	"sort"
	"strings"
)

var importPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\brequire\s*\(\s*['"]([^'"]+)['"]\s*\)`),
	regexp.MustCompile(`\bimport\s[^'";]*?\bfrom\s*['"]([^'"]+)['"]`),
	regexp.MustCompile(`\bexport\s[^'";]*?\bfrom\s*['"]([^'"]+)['"]`),
	regexp.MustCompile(`\bimport\s*['"]([^'"]+)['"]`),
	regexp.MustCompile(`\bimport\s*\(\s*['"]([^'"]+)['"]\s*\)`),
}

// coreModules lists Node.js built-in modules, which are never installed.
var coreModules = map[string]struct{}{
	"assert": {}, "async_hooks": {}, "buffer": {}, "child_process": {}, "cluster": {},
	"console": {}, "constants": {}, "crypto": {}, "dgram": {}, "diagnostics_channel": {},
	"dns": {}, "domain": {}, "events": {}, "fs": {}, "http": {}, "http2": {}, "https": {},
	"inspector": {}, "module": {}, "net": {}, "os": {}, "path": {}, "perf_hooks": {},
	"process": {}, "punycode": {}, "querystring": {}, "readline": {}, "repl": {},
	"stream": {}, "string_decoder": {}, "sys": {}, "timers": {}, "tls": {},
	"trace_events": {}, "tty": {}, "url": {}, "util": {}, "v8": {}, "vm": {}, "wasi": {},
	"worker_threads": {}, "zlib": {},
}

// ScanImports returns the external packages referenced by src, in order of first
// appearance. Relative and absolute paths, URLs, `node:` specifiers and core
// modules are skipped; deep imports collapse to their package name.
func ScanImports(src string) []string {
	type hit struct {
		pos  int
		name string
	}
	var hits []hit
	for _, re := range importPatterns {
		for _, m := range re.FindAllStringSubmatchIndex(src, -1) {
			hits = append(hits, hit{pos: m[2], name: src[m[2]:m[3]]})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].pos < hits[j].pos })

	var names []string
	for _, h := range hits {
		if name, ok := PackageName(h.name); ok {
			names = append(names, name)
		}
	}
	return dedupe(names)
}

// PackageName maps an import specifier to the package that provides it.
// ok is false for specifiers that need no installation.
func PackageName(specifier string) (string, bool) {
	specifier = strings.TrimSpace(specifier)
	if specifier == "" ||
		strings.HasPrefix(specifier, ".") ||
		strings.HasPrefix(specifier, "/") ||
		strings.HasPrefix(specifier, "node:") ||
		strings.Contains(specifier, "://") {
		return "", false
	}

	parts := strings.Split(specifier, "/")
	name := parts[0]
	if strings.HasPrefix(specifier, "@") {
		if len(parts) < 2 || parts[1] == "" {
			return "", false
		}
		name = parts[0] + "/" + parts[1]
	}

	if _, core := coreModules[name]; core {
		return "", false
	}
	return name, true
}

func dedupe(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}
