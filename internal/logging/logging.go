// Package logging builds the process-wide slog logger.
package logging

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/charmbracelet/log"
)

// ErrUnknownFormat is returned for a log format other than json, text, or logfmt.
var ErrUnknownFormat = errors.New("unknown log format")

// New returns a logger writing to w at the given level.
//
// The json format uses slog's JSON handler. The text and logfmt formats
// go through charmbracelet/log, which is easier to read on a terminal.
func New(w io.Writer, level, format string) (*slog.Logger, error) {
	var lvl slog.Level
	if level != "" {
		if err := lvl.UnmarshalText([]byte(level)); err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", level, err)
		}
	}

	switch strings.ToLower(format) {
	case "", "json":
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl})), nil
	case "text":
		return slog.New(newCharmLogger(w, lvl, log.TextFormatter)), nil
	case "logfmt":
		return slog.New(newCharmLogger(w, lvl, log.LogfmtFormatter)), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// charmbracelet/log levels share slog's numeric values.
func newCharmLogger(w io.Writer, lvl slog.Level, formatter log.Formatter) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		Level:           log.Level(lvl),
		Formatter:       formatter,
		ReportTimestamp: true,
	})
}

// Setup installs a logger built by New as the slog default.
func Setup(w io.Writer, level, format string) error {
	logger, err := New(w, level, format)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)
	return nil
}
