package log

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Log file rotation limits.
const (
	DefaultMaxSizeMB  = 10
	DefaultMaxBackups = 3
	DefaultMaxAgeDays = 28
)

// NewSecureLogger creates a text logger that sanitizes its output.
// verbose selects Debug; otherwise only warnings and errors are written.
func NewSecureLogger(w io.Writer, verbose bool) *slog.Logger {
	return slog.New(NewSecureHandler(slog.NewTextHandler(w, handlerOptions(verbose))))
}

// NewSecureJSONLogger creates a JSON logger that sanitizes its output.
func NewSecureJSONLogger(w io.Writer, verbose bool) *slog.Logger {
	return slog.New(NewSecureHandler(slog.NewJSONHandler(w, handlerOptions(verbose))))
}

func handlerOptions(verbose bool) *slog.HandlerOptions {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return &slog.HandlerOptions{Level: level}
}

// Options selects where and how the application logs.
type Options struct {
	// Verbose enables Debug level.
	Verbose bool

	// JSON switches from text to JSON records.
	JSON bool

	// File, when set, sends logs to a rotated file instead of the console
	// writer. In verbose mode the console still receives a copy.
	File string
}

// NewFileWriter returns a size-rotated writer for path. The directory is
// created if needed.
func NewFileWriter(path string) (*lumberjack.Logger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, err
	}
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    DefaultMaxSizeMB,
		MaxBackups: DefaultMaxBackups,
		MaxAge:     DefaultMaxAgeDays,
		Compress:   true,
	}, nil
}

// New builds the application logger. console is used when no file is
// configured. The returned closer releases the log file and must be called
// before exit; it is a no-op without a file.
func New(console io.Writer, opts Options) (*slog.Logger, io.Closer, error) {
	out := console
	var closer io.Closer = nopCloser{}

	if opts.File != "" {
		fw, err := NewFileWriter(opts.File)
		if err != nil {
			return nil, nil, err
		}
		closer = fw
		out = fw
		if opts.Verbose {
			out = io.MultiWriter(console, fw)
		}
	}

	if opts.JSON {
		return NewSecureJSONLogger(out, opts.Verbose), closer, nil
	}
	return NewSecureLogger(out, opts.Verbose), closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
