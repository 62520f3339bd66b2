// Package logger holds the process logger shared by the brkalloc tools.
package logger

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// L is the global logger instance. It discards all output until Init enables it.
var L = discard()

const (
	logPrefix     = "brkalloc-"
	logSuffix     = ".log"
	retentionDays = 30
)

// Options configures the logger initialization.
type Options struct {
	Enabled bool       // If false, all logging is discarded
	Path    string     // Log file. "-" means stderr. Empty means a dated file in LogDir
	LogDir  string     // Directory for dated log files. Default: ~/.brkalloc/logs
	Level   slog.Level // Minimum log level
	JSON    bool       // JSON records instead of key=value text
}

// closer is the log file opened by the last Init, if any.
var closer io.Closer

// Init configures logging. Call from main() before any log calls.
// If opts.Enabled is false, all log output is discarded.
func Init(opts Options) error {
	Close()
	if !opts.Enabled {
		L = discard()
		return nil
	}

	var w io.Writer
	switch opts.Path {
	case "-":
		w = os.Stderr
	case "":
		f, err := openDated(opts.LogDir)
		if err != nil {
			return err
		}
		w, closer = f, f
	default:
		if err := os.MkdirAll(filepath.Dir(opts.Path), 0755); err != nil {
			return err
		}
		f, err := os.OpenFile(opts.Path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return err
		}
		w, closer = f, f
	}

	L = New(w, opts.Level, opts.JSON)
	return nil
}

// New builds a logger writing to w at level.
func New(w io.Writer, level slog.Level, json bool) *slog.Logger {
	hopts := &slog.HandlerOptions{Level: level}
	if json {
		return slog.New(slog.NewJSONHandler(w, hopts))
	}
	return slog.New(slog.NewTextHandler(w, hopts))
}

// Close closes the log file opened by Init and resets L to discard.
func Close() {
	if closer != nil {
		_ = closer.Close()
		closer = nil
		L = discard()
	}
}

func discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// openDated opens today's log file in logDir, pruning old ones first.
func openDated(logDir string) (*os.File, error) {
	if logDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		logDir = filepath.Join(home, ".brkalloc", "logs")
	}

	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, err
	}

	// Clean up old logs (best-effort, ignore errors)
	cleanOldLogs(logDir, time.Now())

	filename := filepath.Join(logDir, logPrefix+time.Now().Format(time.DateOnly)+logSuffix)
	return os.OpenFile(filename, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
}

// cleanOldLogs removes log files older than retentionDays.
func cleanOldLogs(logDir string, now time.Time) {
	cutoff := now.AddDate(0, 0, -retentionDays)

	entries, err := os.ReadDir(logDir)
	if err != nil {
		return
	}

	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(name, logPrefix) || !strings.HasSuffix(name, logSuffix) {
			continue
		}

		// brkalloc-2024-01-05.log
		dateStr := strings.TrimPrefix(strings.TrimSuffix(name, logSuffix), logPrefix)
		logDate, err := time.Parse(time.DateOnly, dateStr)
		if err != nil {
			continue
		}

		if logDate.Before(cutoff) {
			os.Remove(filepath.Join(logDir, name))
		}
	}
}

// Debug logs a debug message with optional key-value pairs.
func Debug(msg string, args ...any) { L.Debug(msg, args...) }

// Info logs an info message with optional key-value pairs.
func Info(msg string, args ...any) { L.Info(msg, args...) }

// Warn logs a warning message with optional key-value pairs.
func Warn(msg string, args ...any) { L.Warn(msg, args...) }

// Error logs an error message with optional key-value pairs.
func Error(msg string, args ...any) { L.Error(msg, args...) }
