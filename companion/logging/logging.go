// Package logging builds the zerolog logger shared by the analyzer, extractor,
// turn orchestrator and CLI.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Output formats.
const (
	FormatJSON    = "json"
	FormatConsole = "console"
)

// Config holds logger configuration.
type Config struct {
	Level  string // debug, info, warn, error (default: info)
	Format string // json or console (default: json)
}

// New returns a logger writing to w (stderr when nil). Output stays on stderr
// by default so CLI results on stdout remain machine-readable.
func New(cfg Config, w io.Writer) (zerolog.Logger, error) {
	if w == nil {
		w = os.Stderr
	}

	level := zerolog.InfoLevel
	if s := strings.TrimSpace(cfg.Level); s != "" {
		l, err := zerolog.ParseLevel(strings.ToLower(s))
		if err != nil {
			return zerolog.Nop(), fmt.Errorf("log level %q: %w", cfg.Level, err)
		}
		level = l
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Format)) {
	case "", FormatJSON:
	case FormatConsole:
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	default:
		return zerolog.Nop(), fmt.Errorf("log format %q: want %s or %s", cfg.Format, FormatJSON, FormatConsole)
	}

	return zerolog.New(w).Level(level).With().Timestamp().Str("component", "companion").Logger(), nil
}
