// Package logging provides structured logging with zerolog.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config holds logging configuration.
type Config struct {
	Level      string // debug, info, warn, error
	Format     string // json, console
	TimeFormat string // RFC3339, Unix, etc.
	// Output defaults to stdout.
	Output io.Writer
}

// DefaultConfig returns sensible default logging configuration.
func DefaultConfig() Config {
	return Config{
		Level:      "info",
		Format:     "json",
		TimeFormat: time.RFC3339,
	}
}

// Init initializes the global zerolog logger.
func Init(cfg Config) {
	// Set time format
	zerolog.TimeFieldFormat = cfg.TimeFormat

	// Parse log level
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}
	log.Logger = New(out, cfg.Format)
}

// New builds a logger writing to out in the given format.
func New(out io.Writer, format string) zerolog.Logger {
	output := out
	if format == "console" {
		output = zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: time.Kitchen,
		}
	}

	return zerolog.New(output).
		With().
		Timestamp().
		Caller().
		Logger()
}

// Logger returns a new logger with common fields for the service.
func Logger() zerolog.Logger {
	return log.Logger
}

// WithSession returns a logger with session context.
func WithSession(sessionId string) zerolog.Logger {
	return log.With().
		Str("sessionId", sessionId).
		Logger()
}

// WithJob returns a logger with correction job context.
func WithJob(sessionId, jobId, strategy string) zerolog.Logger {
	return log.With().
		Str("sessionId", sessionId).
		Str("jobId", jobId).
		Str("strategy", strategy).
		Logger()
}

// WithBatch returns a logger with correction batch context.
func WithBatch(jobId string, batch, total int) zerolog.Logger {
	return log.With().
		Str("jobId", jobId).
		Int("batch", batch).
		Int("batches", total).
		Logger()
}

// WithCollaborator returns a logger tagged with an external provider.
func WithCollaborator(collaborator, provider string) zerolog.Logger {
	return log.With().
		Str("collaborator", collaborator).
		Str("provider", provider).
		Logger()
}

// WithComponent returns a logger with a component tag.
func WithComponent(component string) zerolog.Logger {
	return log.With().
		Str("component", component).
		Logger()
}
