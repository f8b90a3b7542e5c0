package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"ngffconverter/internal/logging"
)

func TestLogsCommandPrintsLatestTail(t *testing.T) {
	env := setupCLITestEnv(t)
	logDir := env.cfg.Paths.LogDir

	out, _, err := runCLI(t, []string{"logs"}, env.configPath)
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	requireContains(t, out, "No run logs yet")

	older := logging.RunLogPath(logDir, time.Now().Add(-2*time.Hour))
	newer := logging.RunLogPath(logDir, time.Now().Add(-time.Hour))
	if err := os.WriteFile(older, []byte("stale run\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.WriteFile(newer, []byte("line 1\nline 2\nline 3\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	past := time.Now().Add(-2 * time.Hour)
	if err := os.Chtimes(older, past, past); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	out, _, err = runCLI(t, []string{"logs", "-n", "2"}, env.configPath)
	if err != nil {
		t.Fatalf("logs -n 2: %v", err)
	}
	if strings.TrimSpace(out) != "line 2\nline 3" {
		t.Fatalf("unexpected tail:\n%s", out)
	}

	out, _, err = runCLI(t, []string{"logs", "--list"}, env.configPath)
	if err != nil {
		t.Fatalf("logs --list: %v", err)
	}
	requireContains(t, out, filepath.Base(newer))
	requireContains(t, out, filepath.Base(older))
}
