// Package logging configures the zerolog logger shared by all igstream
// packages.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Level is a minimum log level name.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Config holds logger configuration.
type Config struct {
	// Level is the minimum level written.
	Level Level

	// Pretty switches from JSON lines to colored console output.
	Pretty bool

	// Output defaults to os.Stderr so that records written to stdout stay
	// machine readable.
	Output io.Writer
}

// DefaultConfig returns info-level JSON logging to stderr.
func DefaultConfig() Config {
	return Config{
		Level:  LevelInfo,
		Output: os.Stderr,
	}
}

// ParseLevel validates a level name. Matching is case insensitive and
// "warning" is accepted for warn.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "info", "":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	}
	return "", fmt.Errorf("unknown log level %q", s)
}

// Setup installs the global zerolog logger and level and returns the logger.
func Setup(cfg Config) zerolog.Logger {
	zerolog.SetGlobalLevel(zerologLevel(cfg.Level))

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	if cfg.Pretty {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.TimeOnly}
	}

	logger := zerolog.New(out).With().Timestamp().Logger()
	log.Logger = logger
	return logger
}

func zerologLevel(level Level) zerolog.Level {
	switch level {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// NewLogger returns the global logger tagged with a component name.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// Level guidelines:
//
// Debug: pagination and stream internals
//   - page fetched (feed, cursor, edges)
//   - filter window left, sub-stream stopped early
//   - username resolution through a user's newest post
//
// Info: progress of a run
//   - elements streamed every N records
//   - CSV file written
//
// Warn: degraded but continuing
//   - retry after a server, network or 429 error
//   - rate limit cooldown started
//   - Redis unreachable, requests sent without spacing
//   - malformed node skipped
//
// Error: the run fails
//   - retries exhausted
//   - configuration invalid
//
// Common fields:
//   - component: client, ratelimit, pagination, stream, feeds, cli
//   - feed: feed request, e.g. tag:lisbon
//   - endpoint, status_code, error_class, attempt, backoff
//   - elements: records streamed so far
