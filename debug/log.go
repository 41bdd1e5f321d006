package debug

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Level is a log severity
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel maps a config string to a Level. Unknown values are info.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

var (
	file     *os.File
	mu       sync.Mutex
	enabled  bool
	minLevel = LevelInfo
	logPath  string
)

// Enable starts logging to dir/debug.log, truncating any previous run
func Enable(dir string, level Level) error {
	mu.Lock()
	defer mu.Unlock()

	if enabled {
		minLevel = level
		return nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	path := filepath.Join(dir, "debug.log")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}

	file = f
	enabled = true
	minLevel = level
	logPath = path

	// Write directly (can't call Log - we hold the mutex)
	write(LevelInfo, "debug", "=== logging started ===")

	return nil
}

// Disable stops logging and closes the file
func Disable() {
	mu.Lock()
	defer mu.Unlock()

	if file != nil {
		file.Close()
		file = nil
	}
	enabled = false
	logPath = ""
}

// SetLevel changes the minimum level written
func SetLevel(level Level) {
	mu.Lock()
	minLevel = level
	mu.Unlock()
}

// Path returns the active log file, or "" when disabled
func Path() string {
	mu.Lock()
	defer mu.Unlock()
	return logPath
}

// write assumes mu is held
func write(level Level, category, msg string) {
	if !enabled || file == nil || level < minLevel {
		return
	}
	ts := time.Now().Format("15:04:05.000")
	fmt.Fprintf(file, "[%s] %-5s %-10s %s\n", ts, level, category, msg)
	file.Sync() // flush immediately so we see logs even on crash
}

func logf(level Level, category, format string, args ...any) {
	mu.Lock()
	defer mu.Unlock()
	if !enabled {
		return
	}
	write(level, category, fmt.Sprintf(format, args...))
}

// Log writes an info message under category
func Log(category, format string, args ...any) {
	logf(LevelInfo, category, format, args...)
}

func Debug(category, format string, args ...any) {
	logf(LevelDebug, category, format, args...)
}

func Warn(category, format string, args ...any) {
	logf(LevelWarn, category, format, args...)
}

func Error(category, format string, args ...any) {
	logf(LevelError, category, format, args...)
}

// WithError logs err under category if it is non-nil
func WithError(category string, err error, context string) {
	if err != nil {
		logf(LevelError, category, "%s: %v", context, err)
	}
}

// LogEvery logs only every N calls (use for high-frequency events like mouse motion)
var counters = make(map[string]int)

func LogEvery(n int, category, format string, args ...any) {
	mu.Lock()
	key := category + format
	counters[key]++
	count := counters[key]
	mu.Unlock()

	if count%n == 0 {
		Debug(category, format+" (every %d, count=%d)", append(args, n, count)...)
	}
}
