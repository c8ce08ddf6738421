// Package logging builds the structured logger shared by the core packages.
//
// Diagnostic output goes through a *pterm.Logger so it can be leveled and
// switched to JSON; messages meant for the user are printed by the commands.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/pterm/pterm"
)

// New creates a logger writing to w. level is one of trace, debug, info,
// warn or error (unknown values mean info); format "json" selects the JSON
// formatter, anything else the colorful one.
func New(level, format string, w io.Writer) *pterm.Logger {
	if w == nil {
		w = os.Stderr
	}

	logger := pterm.DefaultLogger.
		WithLevel(ParseLevel(level)).
		WithWriter(w)

	if strings.EqualFold(format, "json") {
		logger = logger.WithFormatter(pterm.LogFormatterJSON)
	}
	return logger
}

// Nop returns a logger that discards everything
func Nop() *pterm.Logger {
	return pterm.DefaultLogger.WithLevel(pterm.LogLevelDisabled).WithWriter(io.Discard)
}

// ParseLevel maps a config string to a pterm level
func ParseLevel(level string) pterm.LogLevel {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return pterm.LogLevelTrace
	case "debug":
		return pterm.LogLevelDebug
	case "warn", "warning":
		return pterm.LogLevelWarn
	case "error":
		return pterm.LogLevelError
	default:
		return pterm.LogLevelInfo
	}
}
