package audit

import (
	"bufio"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/goccy/go-json"
)

func readEntries(t *testing.T, path string) []Entry {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open audit log: %v", err)
	}
	defer f.Close()

	var entries []Entry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var e Entry
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			t.Fatalf("invalid audit line %q: %v", scanner.Text(), err)
		}
		entries = append(entries, e)
	}
	return entries
}

func TestNewLogger_Disabled(t *testing.T) {
	logger, err := NewLogger(Config{Enabled: false})
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}
	if logger.Enabled() {
		t.Error("Expected logger to be disabled")
	}

	// Should be safe to call methods on a disabled logger
	logger.LogInstall("run-1", "app.js", "express", "success")
	if err := logger.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
}

func TestNilLogger(t *testing.T) {
	var logger *Logger
	logger.LogPatch("run-1", "app.js", 1, 10, 20, "success")
	if err := logger.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
}

func TestNewLogger_CreatesDirectory(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "nested", "dir", "audit.log")

	logger, err := NewLogger(Config{Enabled: true, LogPath: logPath})
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}
	defer logger.Close()

	if _, err := os.Stat(filepath.Dir(logPath)); os.IsNotExist(err) {
		t.Errorf("Expected directory %s to be created", filepath.Dir(logPath))
	}
}

func TestLogger_WritesJSONLines(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "audit.log")
	logger, err := NewLogger(Config{Enabled: true, LogPath: logPath})
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}

	logger.LogInstall("run-1", "/srv/app.js", "express", "success")
	logger.LogPatch("run-1", "/srv/app.js", 1, 120, 140, "success")
	logger.LogPatchError("run-1", "/srv/app.js", 2, "no fenced code block in completion")
	logger.LogRunFinished("run-1", "/srv/app.js", 2, "PatchUnavailable", "")
	if err := logger.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	entries := readEntries(t, logPath)
	if len(entries) != 4 {
		t.Fatalf("Expected 4 entries, got %d", len(entries))
	}

	wantTypes := []string{ActionInstall, ActionPatch, ActionPatchError, ActionRunFinish}
	for i, e := range entries {
		if e.ActionType != wantTypes[i] {
			t.Errorf("entry %d: expected action %s, got %s", i, wantTypes[i], e.ActionType)
		}
		if e.RunID != "run-1" {
			t.Errorf("entry %d: expected run id run-1, got %s", i, e.RunID)
		}
		if e.Timestamp.IsZero() {
			t.Errorf("entry %d: timestamp not set", i)
		}
	}

	if entries[0].Details["module"] != "express" {
		t.Errorf("Expected module express, got %v", entries[0].Details["module"])
	}
	if entries[1].Details["new_bytes"] != float64(140) {
		t.Errorf("Expected new_bytes 140, got %v", entries[1].Details["new_bytes"])
	}
	if entries[3].Outcome != "PatchUnavailable" || entries[3].Attempt != 2 {
		t.Errorf("Unexpected run_finished entry: %+v", entries[3])
	}
}

func TestLogger_Concurrent(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "audit.log")
	logger, err := NewLogger(Config{Enabled: true, LogPath: logPath})
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			logger.LogPatch("run-c", "app.js", i, i, i+1, "success")
		}(i)
	}
	wg.Wait()
	if err := logger.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if got := len(readEntries(t, logPath)); got != 20 {
		t.Errorf("Expected 20 entries, got %d", got)
	}
}

func TestLogger_Rotate(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "audit.log")
	logger, err := NewLogger(Config{Enabled: true, LogPath: logPath})
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}
	defer logger.Close()

	logger.LogInstall("run-1", "/srv/app.js", "express", "success")
	if err := logger.Rotate(); err != nil {
		t.Fatalf("Rotate failed: %v", err)
	}
	logger.LogInstall("run-2", "/srv/app.js", "lodash", "success")

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected active file and one backup, got %d files", len(entries))
	}
	if got := readEntries(t, logPath); len(got) != 1 || got[0].RunID != "run-2" {
		t.Errorf("active file should hold only the entry written after rotation, got %+v", got)
	}

	var disabled *Logger
	if err := disabled.Rotate(); err != nil {
		t.Errorf("Rotate on nil logger should be a no-op, got %v", err)
	}
}
