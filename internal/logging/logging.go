// Package logging provides structured logging for rowsource using zerolog.
//
// Packages log through WithPhase so every event carries the stage that
// produced it: load, csv_load, parquet_load, s3_fetch, query or manifest.
package logging

import (
	"io"
	"os"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

var logger atomic.Pointer[zerolog.Logger]

func init() {
	// Warnings and errors only until the CLI configures otherwise.
	l := zerolog.New(os.Stderr).Level(zerolog.WarnLevel).With().Timestamp().Logger()
	logger.Store(&l)
}

// Init configures the global logger to write to w.
// If debug is true, sets log level to Debug, otherwise Info.
// If human is true, uses a console writer instead of JSON lines.
func Init(w io.Writer, debug, human bool) {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}

	out := w
	if human {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339, NoColor: true}
	}

	l := zerolog.New(out).Level(level).With().Timestamp().Logger()
	logger.Store(&l)
}

// L returns the base logger.
func L() *zerolog.Logger {
	return logger.Load()
}

// WithPhase returns a logger with the phase field set.
func WithPhase(phase string) zerolog.Logger {
	return L().With().Str("phase", phase).Logger()
}

// SetLogger overrides the global logger (useful for testing).
func SetLogger(l zerolog.Logger) {
	logger.Store(&l)
}
