package config

import (
	"io"
	"log/slog"
	"os"

	slogmulti "github.com/samber/slog-multi"
	"gopkg.in/natefinch/lumberjack.v2"
)

// SetupLogger creates a dual-output logger: text to stderr, JSON to a
// rotating log file. Returns the logger and a cleanup function to close
// the file.
func SetupLogger(logFile string, level slog.Level) (*slog.Logger, func() error) {
	// Stderr handler (text for readability)
	stderrHandler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})

	if logFile == "" {
		return slog.New(stderrHandler), func() error { return nil }
	}

	// File handler (JSON for machine parsing), rotated so a long-lived
	// chat loop cannot grow the file unbounded.
	rotator := &lumberjack.Logger{
		Filename:   logFile,
		MaxSize:    10, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
	}
	fileHandler := slog.NewJSONHandler(rotator, &slog.HandlerOptions{
		Level: level,
	})

	// Fanout to both handlers
	logger := slog.New(slogmulti.Fanout(stderrHandler, fileHandler))

	cleanup := func() error {
		return rotator.Close()
	}

	return logger, cleanup
}

// SetupLoggerWithWriters creates a logger with custom writers (for testing).
func SetupLoggerWithWriters(stderr, file io.Writer, level slog.Level) *slog.Logger {
	stderrHandler := slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level})
	fileHandler := slog.NewJSONHandler(file, &slog.HandlerOptions{Level: level})
	return slog.New(slogmulti.Fanout(stderrHandler, fileHandler))
}
