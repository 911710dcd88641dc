// Package logging provides slog setup for the service.
package logging

import (
	"io"
	"log/slog"
	"time"

	"github.com/lmittmann/tint"
)

// Setup installs the default slog logger: a colorized tint handler for dev,
// JSON for everything else.
func Setup(out io.Writer, env string) *slog.Logger {
	var handler slog.Handler
	if env == "dev" || env == "development" {
		handler = tint.NewHandler(out, &tint.Options{
			Level:      slog.LevelDebug,
			TimeFormat: time.TimeOnly,
		})
	} else {
		handler = slog.NewJSONHandler(out, nil)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}
