// Package logging configures the service's structured logger.
package logging

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Rotation limits for the log files written by NewWithDir.
const (
	maxFileSizeMB  = 10
	maxFileBackups = 5
)

// Logger wraps zerolog.Logger so packages share one configured instance.
type Logger struct {
	zerolog.Logger
}

// New creates a logger writing to stderr. format "json" emits JSON lines,
// anything else uses the console writer.
func New(level, format string) *Logger {
	return NewWithOutput(level, consoleWriter(format))
}

func consoleWriter(format string) io.Writer {
	if strings.EqualFold(format, "json") {
		return os.Stderr
	}
	return zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
}

// NewWithDir logs to stderr like New and also to rotating JSON files in dir:
// app.log gets every entry, warnings.log only warnings, errors.log errors and above.
// An empty dir behaves like New. The returned closer closes the files.
func NewWithDir(level, format, dir string) (*Logger, io.Closer, error) {
	if dir == "" {
		return New(level, format), nopCloser{}, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("create log dir: %w", err)
	}

	app := rotatingFile(dir, "app.log")
	warnings := rotatingFile(dir, "warnings.log")
	errs := rotatingFile(dir, "errors.log")

	w := zerolog.MultiLevelWriter(
		consoleWriter(format),
		levelRange{w: app, min: zerolog.TraceLevel, max: zerolog.PanicLevel},
		levelRange{w: warnings, min: zerolog.WarnLevel, max: zerolog.WarnLevel},
		levelRange{w: errs, min: zerolog.ErrorLevel, max: zerolog.PanicLevel},
	)
	return NewWithOutput(level, w), multiCloser{app, warnings, errs}, nil
}

func rotatingFile(dir, name string) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   filepath.Join(dir, name),
		MaxSize:    maxFileSizeMB,
		MaxBackups: maxFileBackups,
	}
}

// levelRange forwards only entries whose level lies in [min, max].
type levelRange struct {
	w        io.Writer
	min, max zerolog.Level
}

func (l levelRange) Write(p []byte) (int, error) { return l.w.Write(p) }

func (l levelRange) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	if level < l.min || level > l.max {
		return len(p), nil
	}
	return l.w.Write(p)
}

type multiCloser []io.Closer

func (m multiCloser) Close() error {
	var errs []error
	for _, c := range m {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// NewWithOutput creates a logger writing to w.
func NewWithOutput(level string, w io.Writer) *Logger {
	logger := zerolog.New(w).
		Level(ParseLevel(level)).
		With().
		Timestamp().
		Logger()
	return &Logger{Logger: logger}
}

// NewSilent discards everything.
func NewSilent() *Logger {
	return &Logger{Logger: zerolog.New(io.Discard)}
}

// ParseLevel maps a level name to a zerolog level, defaulting to info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Component returns a child logger tagged with a component name.
func (l *Logger) Component(name string) *Logger {
	return &Logger{Logger: l.With().Str("component", name).Logger()}
}
