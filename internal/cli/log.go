// Package cli implements the regconvert command-line interface.
//
// Commands:
//   - convert: convert an affine transform between ITK, NiftyReg and FLIRT conventions
//   - grid: compute a padded, cropped or rescaled resampling grid for an image
//   - init-config: write a default configuration file
//
// All commands support --verbose (-v) for debug-level logging and --config
// for a YAML configuration file. The logger and configuration travel
// through context.Context.
package cli

import (
	"context"
	"io"

	"github.com/charmbracelet/log"

	"regconvert/pkg/config"
)

// newLogger creates a logger with timestamps that filters at level.
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

type ctxKey int

const (
	loggerKey ctxKey = iota
	configKey
)

func withLogger(ctx context.Context, l *log.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// loggerFromContext returns the attached logger or log.Default().
func loggerFromContext(ctx context.Context) *log.Logger {
	if l, ok := ctx.Value(loggerKey).(*log.Logger); ok {
		return l
	}
	return log.Default()
}

func withConfig(ctx context.Context, cfg *config.Config) context.Context {
	return context.WithValue(ctx, configKey, cfg)
}

// configFromContext returns the attached configuration or the defaults.
func configFromContext(ctx context.Context) *config.Config {
	if cfg, ok := ctx.Value(configKey).(*config.Config); ok {
		return cfg
	}
	return config.DefaultConfig()
}
