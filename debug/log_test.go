package debug

import (
	"errors"
	"os"
	"strings"
	"testing"
)

func setupLog(t *testing.T, level Level) string {
	t.Helper()

	if err := Enable(t.TempDir(), level); err != nil {
		t.Fatalf("Enable failed: %v", err)
	}
	path := Path()
	if path == "" {
		t.Fatalf("Path returned empty path")
	}
	t.Cleanup(Disable)
	return path
}

func readLog(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	return string(data)
}

func TestLogWritesCategory(t *testing.T) {
	path := setupLog(t, LevelInfo)

	Log("grid", "cursor at %d", 12)

	content := readLog(t, path)
	if !strings.Contains(content, "grid") || !strings.Contains(content, "cursor at 12") {
		t.Fatalf("expected category and message, got: %q", content)
	}
	if !strings.Contains(content, "INFO") {
		t.Fatalf("expected level tag, got: %q", content)
	}
}

func TestLevelFiltering(t *testing.T) {
	path := setupLog(t, LevelWarn)

	Log("store", "info message")
	Debug("store", "debug message")
	Warn("store", "warn message")
	WithError("store", errors.New("boom"), "save")

	content := readLog(t, path)
	if strings.Contains(content, "info message") || strings.Contains(content, "debug message") {
		t.Fatalf("messages below warn were written: %q", content)
	}
	if !strings.Contains(content, "warn message") {
		t.Fatalf("warn message missing: %q", content)
	}
	if !strings.Contains(content, "save: boom") {
		t.Fatalf("error message missing: %q", content)
	}
}

func TestDisabledIsSilent(t *testing.T) {
	path := setupLog(t, LevelDebug)
	Disable()

	Error("store", "should not write")

	if strings.Contains(readLog(t, path), "should not write") {
		t.Fatal("wrote after Disable")
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]Level{
		"debug":   LevelDebug,
		"WARN":    LevelWarn,
		"warning": LevelWarn,
		"error":   LevelError,
		"":        LevelInfo,
		"bogus":   LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}
