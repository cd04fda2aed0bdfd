package logger

import (
	"io"
	"log/slog"

	slogmulti "github.com/samber/slog-multi"
)

// Options configures New.
type Options struct {
	// Console receives human readable log lines, usually stderr.
	Console io.Writer
	// Verbose lowers the console level to debug.
	Verbose bool
	// Tail, when set, keeps the most recent records as JSON lines
	// at debug level regardless of Verbose.
	Tail *TailBuffer
}

// New returns a logger that fans out to a colored console handler and,
// when configured, a JSON tail buffer.
func New(opts Options) *slog.Logger {
	level := slog.LevelInfo
	if opts.Verbose {
		level = slog.LevelDebug
	}

	var handlers []slog.Handler
	if opts.Console != nil {
		handlers = append(handlers, NewConsoleHandler(opts.Console, level))
	}
	if opts.Tail != nil {
		handlers = append(handlers, slog.NewJSONHandler(opts.Tail, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	if len(handlers) == 0 {
		return slog.New(slog.DiscardHandler)
	}
	return slog.New(slogmulti.Fanout(handlers...))
}
