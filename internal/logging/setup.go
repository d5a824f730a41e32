package logging

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/isseis/go-safe-pty-guard/internal/safefileio"
)

const (
	logFilePerm = 0o600
	logDirPerm  = 0o750
)

// ErrEmptyLogDirectory is returned when a log directory is required but empty.
var ErrEmptyLogDirectory = errors.New("log directory is empty")

// Options controls Setup.
type Options struct {
	// Level is a slog level name (debug, info, warn, error).
	Level string
	// LogDir, when set, receives a per-run JSON log file.
	LogDir string
	// RunID tags every record written to the log file.
	RunID string
	// Console receives human or machine readable output. Defaults to os.Stderr.
	Console io.Writer
	// Interactive selects a text console handler instead of JSON.
	Interactive bool
}

// GenerateRunID generates a new UUID v4 for run identification
func GenerateRunID() string {
	return uuid.New().String()
}

// ParseLevel parses a level name. Unknown names fall back to info and report false.
func ParseLevel(name string) (slog.Level, bool) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return slog.LevelInfo, false
	}
	return level, true
}

// Setup builds the handler stack described by opts and returns a logger for it.
// The returned closer releases the per-run log file, if any.
func Setup(opts Options) (*slog.Logger, io.Closer, error) {
	level, validLevel := ParseLevel(opts.Level)

	console := opts.Console
	if console == nil {
		console = os.Stderr
	}

	handlerOpts := &slog.HandlerOptions{Level: level}
	var consoleHandler slog.Handler
	if opts.Interactive {
		consoleHandler = slog.NewTextHandler(console, handlerOpts)
	} else {
		consoleHandler = slog.NewJSONHandler(console, handlerOpts)
	}
	handlers := []slog.Handler{consoleHandler}

	var closer io.Closer = nopCloser{}
	if opts.LogDir != "" {
		logFile, err := openRunLog(opts.LogDir, opts.RunID)
		if err != nil {
			return nil, nil, err
		}
		hostname, _ := os.Hostname()
		fileHandler := slog.NewJSONHandler(logFile, handlerOpts).WithAttrs([]slog.Attr{
			slog.String("hostname", hostname),
			slog.Int("pid", os.Getpid()),
			slog.String("run_id", opts.RunID),
		})
		handlers = append(handlers, fileHandler)
		closer = logFile
	}

	logger := slog.New(NewRedactingHandler(NewMultiHandler(handlers...), DefaultRedactionConfig()))
	if !validLevel {
		logger.Warn("Invalid log level provided, defaulting to INFO", "provided", opts.Level)
	}
	return logger, closer, nil
}

// openRunLog creates a fresh log file named after the host, time and run ID.
func openRunLog(dir, runID string) (*os.File, error) {
	if dir == "" {
		return nil, ErrEmptyLogDirectory
	}
	if err := os.MkdirAll(dir, logDirPerm); err != nil {
		return nil, fmt.Errorf("cannot create log directory %s: %w", dir, err)
	}

	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "localhost"
	}
	if runID == "" {
		runID = GenerateRunID()
	}
	name := fmt.Sprintf("%s_%s_%s.json", hostname, time.Now().UTC().Format("20060102T150405Z"), runID)
	path := filepath.Join(dir, name)

	f, err := safefileio.CreateExclusive(path, logFilePerm)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return f, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
