// Package logging configures zerolog for the ISBN Plus client and CLI.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/bluora/isbnplus-go/pkg/config"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogLevel represents the logging level.
type LogLevel string

const (
	// LevelDebug logs debug messages and above.
	LevelDebug LogLevel = "debug"

	// LevelInfo logs info messages and above.
	LevelInfo LogLevel = "info"

	// LevelWarn logs warning messages and above.
	LevelWarn LogLevel = "warn"

	// LevelError logs error messages only.
	LevelError LogLevel = "error"
)

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level to output.
	Level LogLevel

	// Pretty enables human-readable console output (default: false for JSON).
	Pretty bool

	// Output is the writer to output logs to (default: os.Stderr).
	Output io.Writer
}

// DefaultConfig returns a default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:  LevelInfo,
		Pretty: false,
		Output: os.Stderr,
	}
}

// FromConfig converts loaded settings into a logger configuration writing to out.
// Unset values keep their defaults.
func FromConfig(cfg config.LoggingConfig, out io.Writer) Config {
	c := DefaultConfig()
	if cfg.Level != "" {
		c.Level = LogLevel(cfg.Level)
	}
	c.Pretty = cfg.Pretty
	if out != nil {
		c.Output = out
	}
	return c
}

// Setup configures the global zerolog logger.
func Setup(cfg Config) zerolog.Logger {
	level := parseLevel(cfg.Level)
	zerolog.SetGlobalLevel(level)

	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}

	var output io.Writer = cfg.Output
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: cfg.Output}
	}

	logger := zerolog.New(output).With().Timestamp().Logger()

	// Set as global logger
	log.Logger = logger

	return logger
}

// parseLevel converts LogLevel to zerolog.Level.
func parseLevel(level LogLevel) zerolog.Level {
	switch strings.ToLower(string(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// NewLogger creates a new logger with the given component name.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// Log Level Guidelines:
//
// Debug: Detailed information for debugging
//   - Page cache hits
//   - Cursor rollovers and exhaustion
//   - Search request parameters
//   - Rate limiter waits
//
// Info: Normal operation events
//   - Pages fetched and decoded
//   - Result walks started and completed, with progress
//   - Server startup/shutdown
//
// Warn: Warning conditions that don't prevent operation
//   - Transport failures and remote rejections
//   - Undecodable response bodies
//   - Retry attempts and circuit breaker state changes
//   - TLS verification disabled
//
// Error: Error conditions requiring attention
//   - Incomplete credentials at fetch time
//   - Command failures in the CLI
//
// Context Fields:
//   - component: isbnplus-client, isbnplus-fetcher, isbnplus-cursor, ...
//   - page: 1-based page number
//   - key: absolute record index
//   - status: HTTP status code
//   - code: transport error code
//   - error_class: client, server, rate_limit, network, circuit_open
//   - duration: request or walk duration
