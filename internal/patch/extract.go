// Copyright 2026 The autoheal Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package patch

import (
	"strings"
)

const fence = "```"

// languageAliases maps a configured language to the fence info strings accepted for it.
var languageAliases = map[string][]string{
	"javascript": {"javascript", "js", "jsx", "mjs", "cjs", "node"},
	"typescript": {"typescript", "ts", "tsx"},
	"python":     {"python", "py", "python3"},
	"go":         {"go", "golang"},
	"ruby":       {"ruby", "rb"},
	"shell":      {"shell", "sh", "bash"},
}

// Aliases returns the fence info strings accepted for lang.
func Aliases(lang string) []string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if aliases, ok := languageAliases[lang]; ok {
		return aliases
	}
	if lang == "" {
		return nil
	}
	return []string{lang}
}

// ExtractCode returns the content of the first fenced block in text whose info string
// is empty or one of aliases. Blocks in other languages are skipped whole. A block is
// closed only by a line holding nothing but backticks, so fence-like lines with an info
// string inside the code are kept; a bare ``` line inside the code still ends it. An
// unterminated block runs to the end of text when the model stopped early. It returns
// ErrPatchUnavailable when there is no such block or the block is blank.
func ExtractCode(text string, aliases []string) (string, error) {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")

	for i := 0; i < len(lines); i++ {
		trimmed := strings.TrimSpace(lines[i])
		if !strings.HasPrefix(trimmed, fence) {
			continue
		}
		end := closingFence(lines, i+1)
		if !acceptsInfo(strings.TrimSpace(strings.TrimLeft(trimmed, "`")), aliases) {
			i = end
			continue
		}

		code := strings.TrimSpace(strings.Join(lines[i+1:end], "\n"))
		if code == "" {
			return "", ErrPatchUnavailable
		}
		return code, nil
	}
	return "", ErrPatchUnavailable
}

// closingFence returns the index of the first bare fence line at or after from,
// or len(lines).
func closingFence(lines []string, from int) int {
	for i := from; i < len(lines); i++ {
		trimmed := strings.TrimSpace(lines[i])
		if strings.HasPrefix(trimmed, fence) && strings.Trim(trimmed, "`") == "" {
			return i
		}
	}
	return len(lines)
}

func acceptsInfo(info string, aliases []string) bool {
	if info == "" {
		return true
	}
	// Only the first word names the language ("js title=app.js").
	if i := strings.IndexAny(info, " \t{"); i >= 0 {
		info = info[:i]
	}
	info = strings.ToLower(info)
	for _, a := range aliases {
		if info == a {
			return true
		}
	}
	return false
}
