package config

import (
	"io"
	"log/slog"
	"os"

	slogmulti "github.com/samber/slog-multi"
)

// SetupLogger builds the client logger: human-readable text on stderr,
// JSON appended to the log file so stream anomalies can be inspected
// after the TUI has redrawn over them. The returned func closes the
// log file.
func SetupLogger(logFile string, level slog.Level) (*slog.Logger, func() error) {
	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		// No log file, stderr alone still works.
		slog.Error("failed to open log file, using stderr only", "error", err, "file", logFile)
		handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
		return slog.New(handler), func() error { return nil }
	}

	return SetupLoggerWithWriters(os.Stderr, file, level), func() error { return file.Close() }
}

// SetupLoggerWithWriters builds the dual-output logger on
// caller-supplied writers.
func SetupLoggerWithWriters(stderr, file io.Writer, level slog.Level) *slog.Logger {
	stderrHandler := slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level})
	fileHandler := slog.NewJSONHandler(file, &slog.HandlerOptions{Level: level})
	return slog.New(slogmulti.Fanout(stderrHandler, fileHandler))
}
