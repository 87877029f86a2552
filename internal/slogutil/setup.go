package slogutil

import (
	"io"
	"log/slog"
)

// Options configures the process logger.
type Options struct {
	Level  slog.Level
	Format Format
	// File, when set, receives a copy of every record at FileLevel.
	File       string
	FileLevel  slog.Level
	MaxSize    string
	MaxBackups int
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Setup builds the logger writing to stderr and, when configured, to a log
// file. The returned closer releases the file.
func Setup(stderr io.Writer, opts Options) (*slog.Logger, io.Closer, error) {
	console := NewHandler(stderr, opts.Level, opts.Format)
	if opts.File == "" {
		return slog.New(console), nopCloser{}, nil
	}

	rf, err := OpenRotatingFile(opts.File, ParseSize(opts.MaxSize), opts.MaxBackups)
	if err != nil {
		return nil, nil, err
	}
	file := NewHandler(rf, opts.FileLevel, opts.Format)
	return slog.New(NewTeeHandler(console, file)), rf, nil
}
