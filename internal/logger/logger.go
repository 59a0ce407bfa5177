// Package logger writes leveled lines to a file (or any writer) shared by the
// whole process. Stdout is left alone since the MCP server speaks on it.
package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
)

// Environment variable to configure log file path.
const EnvLogPath = "KVTRACK_LOG"

var (
	mu      sync.Mutex
	std     *log.Logger
	logFile *os.File
)

// InitFromEnv initializes the logger using KVTRACK_LOG, or kvtrack.log next
// to the executable.
func InitFromEnv() error {
	path := os.Getenv(EnvLogPath)
	if path == "" {
		path = "./kvtrack.log"
		if exePath, err := os.Executable(); err == nil {
			path = filepath.Join(filepath.Dir(exePath), "kvtrack.log")
		}
	}
	return Init(path)
}

// Init opens path in append mode, creating parent directories if needed.
// Calls after the first successful one are no-ops.
func Init(path string) error {
	mu.Lock()
	defer mu.Unlock()
	if std != nil {
		return nil
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	logFile = f
	std = newLogger(f)
	return nil
}

// InitWriter sends log lines to w, replacing any earlier destination.
func InitWriter(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	closeFile()
	std = newLogger(w)
}

func newLogger(w io.Writer) *log.Logger {
	return log.New(w, "", log.Ldate|log.Ltime|log.Lmicroseconds)
}

// Close closes the underlying log file, if open.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	err := closeFile()
	std = nil
	return err
}

func closeFile() error {
	if logFile == nil {
		return nil
	}
	err := logFile.Close()
	logFile = nil
	return err
}

// Infof logs informational messages.
func Infof(format string, args ...any) { write("INFO", format, args...) }

// Warnf logs warnings.
func Warnf(format string, args ...any) { write("WARN", format, args...) }

// Errorf logs errors.
func Errorf(format string, args ...any) { write("ERROR", format, args...) }

func write(level string, format string, args ...any) {
	mu.Lock()
	l := std
	mu.Unlock()
	if l == nil {
		// Fallback: initialize with default if not already.
		_ = InitFromEnv()
		mu.Lock()
		l = std
		mu.Unlock()
	}
	if l != nil {
		l.Printf("[%s] %s", level, fmt.Sprintf(format, args...))
	}
}
