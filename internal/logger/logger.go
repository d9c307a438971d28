// Package logger configures the global zerolog logger.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"podbeacon/internal/config"
)

// Setup points the global logger at the configured output. The returned
// closer should be deferred to close file outputs.
func Setup(cfg config.Logging) (func() error, error) {
	l, closer, err := New(cfg)
	if err != nil {
		return nil, err
	}
	zerolog.SetGlobalLevel(parseLevel(cfg.Level))
	log.Logger = l
	return closer, nil
}

// New creates a logger for cfg without touching the global one.
func New(cfg config.Logging) (zerolog.Logger, func() error, error) {
	w, closer, err := openOutput(cfg.Output)
	if err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("open log output: %w", err)
	}

	if strings.ToLower(cfg.Format) != "json" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly, NoColor: !isTerminal(w)}
	}

	l := zerolog.New(w).Level(parseLevel(cfg.Level)).With().Timestamp().Logger()
	return l, closer, nil
}

func parseLevel(s string) zerolog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func openOutput(output string) (io.Writer, func() error, error) {
	noop := func() error { return nil }

	switch strings.ToLower(output) {
	case "stdout":
		return os.Stdout, noop, nil
	case "stderr", "":
		return os.Stderr, noop, nil
	default:
		f, err := os.OpenFile(output, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
		if err != nil {
			return nil, nil, err
		}
		return f, f.Close, nil
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
