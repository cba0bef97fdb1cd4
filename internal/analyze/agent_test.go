package analyze

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingCompleter struct {
	prompt string
	reply  string
	err    error
}

func (r *recordingCompleter) Complete(_ context.Context, prompt string) (string, error) {
	r.prompt = prompt
	return r.reply, r.err
}

func writeInputs(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	logPath := filepath.Join(dir, "server.log")
	srcPath := filepath.Join(dir, "app.js")
	require.NoError(t, os.WriteFile(logPath, []byte("TypeError: Cannot read properties of null (reading 'name')"), 0o644))
	require.NoError(t, os.WriteFile(srcPath, []byte("const user = null;\nuser.name;"), 0o644))
	return logPath, srcPath
}

func TestAnalyze(t *testing.T) {
	logPath, srcPath := writeInputs(t)
	c := &recordingCompleter{reply: "**1. Root cause:** user is null"}

	report, err := NewAgent(c, "").Analyze(context.Background(), logPath, srcPath)
	require.NoError(t, err)
	assert.Equal(t, c.reply, report)

	assert.Contains(t, c.prompt, "[ server.log ]")
	assert.Contains(t, c.prompt, "Cannot read properties of null")
	assert.Contains(t, c.prompt, "```javascript\nconst user = null;\nuser.name;\n```")
	assert.Contains(t, c.prompt, "Root cause")
}

func TestAnalyze_MissingFile(t *testing.T) {
	logPath, srcPath := writeInputs(t)
	missing := filepath.Join(filepath.Dir(logPath), "nope.log")
	c := &recordingCompleter{}

	_, err := NewAgent(c, "javascript").Analyze(context.Background(), missing, srcPath)
	var missingErr *MissingFileError
	require.True(t, errors.As(err, &missingErr))
	assert.Equal(t, missing, missingErr.Path)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Contains(t, err.Error(), "nope.log")
	assert.Empty(t, c.prompt, "no request without inputs")

	_, err = NewAgent(c, "javascript").Analyze(context.Background(), logPath, filepath.Join(filepath.Dir(logPath), "nope.js"))
	require.True(t, errors.As(err, &missingErr))
}

func TestAnalyze_CompleterError(t *testing.T) {
	logPath, srcPath := writeInputs(t)
	c := &recordingCompleter{err: errors.New("API returned status 500")}

	_, err := NewAgent(c, "javascript").Analyze(context.Background(), logPath, srcPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
}
