// Package logger builds the zerolog loggers used across cellcount.
//
// Every package logs through a zerolog.Logger tagged with a "component"
// field (cli, pipeline, server). The MCP server speaks JSON-RPC on stdout,
// so loggers there must be built on stderr.
package logger

import (
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"
)

// New returns a JSON logger writing to w at the given level, with
// timestamps.
func New(w io.Writer, level zerolog.Level) zerolog.Logger {
	return zerolog.New(w).
		Level(level).
		With().
		Timestamp().
		Logger()
}

// NewConsole returns a human-readable logger writing to w.
func NewConsole(w io.Writer, level zerolog.Level) zerolog.Logger {
	return New(zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}, level)
}

// Nop returns a logger that discards everything.
func Nop() zerolog.Logger {
	return zerolog.Nop()
}

// WithComponent tags every event of l with component.
func WithComponent(l zerolog.Logger, component string) zerolog.Logger {
	return l.With().Str("component", component).Logger()
}

// ParseLevel maps a level name (debug, info, warn, error, disabled) to a
// zerolog level. Names are case-insensitive; "warning" is accepted for warn.
// An empty name means info.
func ParseLevel(name string) (zerolog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "":
		return zerolog.InfoLevel, nil
	case "warning":
		return zerolog.WarnLevel, nil
	}
	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(name)))
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("unknown log level %q", name)
	}
	return level, nil
}
