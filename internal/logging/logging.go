// Package logging configures the application's structured loggers.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	structuredLogger *slog.Logger
	mu               sync.RWMutex
)

// Init initializes the logging system. Structured JSON goes to stdout; the
// level applies to all loggers derived through ForService.
func Init(level slog.Level) {
	mu.Lock()
	defer mu.Unlock()

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	structuredLogger = slog.New(handler)
	slog.SetDefault(structuredLogger)
}

// SetOutput redirects structured log output, primarily for tests.
func SetOutput(w io.Writer, level slog.Level) {
	mu.Lock()
	defer mu.Unlock()

	structuredLogger = slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(structuredLogger)
}

// Structured returns the globally configured structured logger.
// Falls back to slog.Default if Init has not been called.
func Structured() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	if structuredLogger == nil {
		return slog.Default()
	}
	return structuredLogger
}

// ForService returns a logger with the 'service' attribute added.
func ForService(serviceName string) *slog.Logger {
	return Structured().With("service", serviceName)
}

// InitFile initializes the logging system with rotating JSON logs written to
// filePath in addition to stdout. It returns a close function for the
// underlying file writer.
func InitFile(filePath string, level slog.Level) (func() error, error) {
	logDir := filepath.Dir(filePath)
	if logDir != "." {
		if err := os.MkdirAll(logDir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create log directory %s: %w", logDir, err)
		}
	}

	logWriter := &lumberjack.Logger{
		Filename:   filePath,
		MaxSize:    100, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
	}

	mu.Lock()
	defer mu.Unlock()

	handler := slog.NewJSONHandler(io.MultiWriter(os.Stdout, logWriter), &slog.HandlerOptions{Level: level})
	structuredLogger = slog.New(handler)
	slog.SetDefault(structuredLogger)

	return logWriter.Close, nil
}
