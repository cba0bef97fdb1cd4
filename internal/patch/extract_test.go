package patch

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractCode(t *testing.T) {
	js := Aliases("javascript")

	tests := []struct {
		name string
		text string
		want string
	}{
		{
			name: "javascript fence",
			text: "Here you go:\n```javascript\nconsole.log('ok');\n```\nDone.",
			want: "console.log('ok');",
		},
		{
			name: "short alias",
			text: "```js\nconst a = 1;\n```",
			want: "const a = 1;",
		},
		{
			name: "bare fence",
			text: "```\nconst b = 2;\n```",
			want: "const b = 2;",
		},
		{
			name: "skips other languages",
			text: "```bash\nnpm install\n```\n```javascript\nrequire('x');\n```",
			want: "require('x');",
		},
		{
			name: "prose between other language and javascript",
			text: "Install first:\n```bash\nnpm install express\n```\nThen replace app.js with:\n```javascript\nconst express = require('express');\n```",
			want: "const express = require('express');",
		},
		{
			name: "other language block before bare fence",
			text: "```python\nprint(1)\n```\nUse this:\n```\nconst f = 6;\n```",
			want: "const f = 6;",
		},
		{
			name: "fence with info string inside the code",
			text: "```javascript\nconst md = `\n```js\nlet g;\n`;\n```",
			want: "const md = `\n```js\nlet g;\n`;",
		},
		{
			name: "info string with attributes",
			text: "```JavaScript title=app.js\nlet c;\n```",
			want: "let c;",
		},
		{
			name: "unterminated block",
			text: "```javascript\nconst d = 4;\n",
			want: "const d = 4;",
		},
		{
			name: "crlf",
			text: "```javascript\r\nconst e = 5;\r\n```\r\n",
			want: "const e = 5;",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractCode(tt.text, js)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractCode_Unavailable(t *testing.T) {
	js := Aliases("javascript")

	for _, text := range []string{
		"",
		"I cannot fix this without more context.",
		"```python\nprint(1)\n```",
		"```javascript\n   \n```",
		"```bash\nnpm install express\n```\nThen restart the server.",
	} {
		_, err := ExtractCode(text, js)
		assert.ErrorIs(t, err, ErrPatchUnavailable, text)
	}
}

func TestAliases(t *testing.T) {
	assert.Contains(t, Aliases("JavaScript"), "js")
	assert.Equal(t, []string{"elixir"}, Aliases("elixir"))
	assert.Nil(t, Aliases(""))
}

func TestProperty_ExtractCode(t *testing.T) {
	properties := gopter.NewProperties(nil)

	body := gen.SliceOf(gen.AlphaString()).Map(func(words []string) string {
		return strings.Join(words, "\n")
	}).SuchThat(func(s string) bool {
		return strings.TrimSpace(s) != ""
	})

	properties.Property("fenced code round-trips through the reply", prop.ForAll(
		func(code, prose string) bool {
			reply := prose + "\n```javascript\n" + code + "\n```\n" + prose
			got, err := ExtractCode(reply, Aliases("javascript"))
			return err == nil && got == strings.TrimSpace(code)
		},
		body,
		gen.AlphaString(),
	))

	properties.Property("replies without a fence are unavailable", prop.ForAll(
		func(prose string) bool {
			_, err := ExtractCode(prose, Aliases("javascript"))
			return err == ErrPatchUnavailable
		},
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}
