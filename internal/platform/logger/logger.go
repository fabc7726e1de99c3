package logger

import (
	"io"
	"log/slog"
	"os"

	"alumnireg/internal/platform/config"
)

// New returns the process logger: JSON in production, text elsewhere.
func New(env string) *slog.Logger {
	return NewWithWriter(os.Stdout, env)
}

// NewWithWriter is New with an explicit sink.
func NewWithWriter(w io.Writer, env string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	var handler slog.Handler
	if env == config.EnvProduction {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		opts.Level = slog.LevelDebug
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler).With("service", "alumnireg")
}
