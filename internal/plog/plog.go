// Package plog configures the process's root zerolog logger from
// PIPELESS_LOG_LEVEL, the ambient logging stack every component derives
// its own scoped logger from.
package plog

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New builds the root logger for the process: JSON to stdout, RFC3339
// timestamps, level from PIPELESS_LOG_LEVEL (default info, invalid values
// fall back to info rather than aborting startup).
func New() zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339

	level := zerolog.InfoLevel
	if raw := os.Getenv("PIPELESS_LOG_LEVEL"); raw != "" {
		if parsed, err := zerolog.ParseLevel(raw); err == nil {
			level = parsed
		}
	}

	return zerolog.New(os.Stdout).Level(level).With().Timestamp().Logger()
}
