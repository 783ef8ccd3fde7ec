// Package logging provides the framework's structured logging, a thin
// zerolog wrapper scoped to a component the way cuemby-warren's pkg/log
// scopes a logger to a node or service.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Level selects the minimum severity logged.
type Level string

const (
	DebugLevel Level = "debug"
	InfoLevel  Level = "info"
	WarnLevel  Level = "warn"
	ErrorLevel Level = "error"
)

// Config holds logging configuration.
type Config struct {
	Level      Level
	JSONOutput bool
	Output     io.Writer
}

// Base is the package-wide root logger; components derive a scoped
// child from it via WithComponent rather than logging through Base
// directly.
var Base zerolog.Logger

// Init configures the package-wide root logger. Safe to call once at
// process startup; unconfigured use defaults to info-level console
// output on stdout.
func Init(cfg Config) {
	var level zerolog.Level
	switch cfg.Level {
	case DebugLevel:
		level = zerolog.DebugLevel
	case WarnLevel:
		level = zerolog.WarnLevel
	case ErrorLevel:
		level = zerolog.ErrorLevel
	default:
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	output := cfg.Output
	if output == nil {
		output = os.Stdout
	}

	if cfg.JSONOutput {
		Base = zerolog.New(output).With().Timestamp().Logger()
		return
	}
	Base = zerolog.New(zerolog.ConsoleWriter{Out: output, TimeFormat: time.RFC3339}).With().Timestamp().Logger()
}

func init() {
	Init(Config{Level: InfoLevel})
}

// WithComponent returns a child logger tagging every entry with
// component, e.g. "buffer", "structure", "scheduler", "dynamic".
func WithComponent(component string) zerolog.Logger {
	return Base.With().Str("component", component).Logger()
}

// WithEpoch returns a child logger additionally tagging epoch_seq.
func WithEpoch(logger zerolog.Logger, seq uint64) zerolog.Logger {
	return logger.With().Uint64("epoch_seq", seq).Logger()
}
