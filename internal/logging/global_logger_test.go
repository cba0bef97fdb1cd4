package logging

import (
	"strings"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogFormatter_RunIDAndFields(t *testing.T) {
	entry := &log.Entry{
		Time:    time.Date(2026, 10, 15, 20, 14, 4, 0, time.UTC),
		Level:   log.WarnLevel,
		Message: "attempt failed\n",
		Data: log.Fields{
			RunIDField: "0123456789abcdef",
			"attempt":  2,
			"target":   "app.js",
		},
	}

	out, err := (&LogFormatter{}).Format(entry)
	require.NoError(t, err)

	line := string(out)
	assert.Equal(t, "[2026-10-15 20:14:04] [01234567] [warn ] attempt failed | attempt=2, target=app.js\n", line)
}

func TestLogFormatter_NoRunID(t *testing.T) {
	entry := &log.Entry{
		Time:    time.Now(),
		Level:   log.InfoLevel,
		Message: "watching",
		Data:    log.Fields{},
	}

	out, err := (&LogFormatter{}).Format(entry)
	require.NoError(t, err)
	assert.Contains(t, string(out), "[--------] [info ] watching")
	assert.False(t, strings.Contains(string(out), "|"))
}

func TestConfigureLogOutput_File(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, ConfigureLogOutput(true, dir))
	t.Cleanup(func() {
		_ = ConfigureLogOutput(false, "")
	})

	log.Info("file output enabled")
	assert.FileExists(t, dir+"/autoheal.log")
}
