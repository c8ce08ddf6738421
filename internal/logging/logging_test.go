package logging

import (
	"bytes"
	"testing"

	"github.com/pterm/pterm"
	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]pterm.LogLevel{
		"trace":   pterm.LogLevelTrace,
		"DEBUG":   pterm.LogLevelDebug,
		" warn ":  pterm.LogLevelWarn,
		"warning": pterm.LogLevelWarn,
		"error":   pterm.LogLevelError,
		"info":    pterm.LogLevelInfo,
		"":        pterm.LogLevelInfo,
		"chatty":  pterm.LogLevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

func TestNewRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New("warn", "json", &buf)

	logger.Info("hidden")
	assert.Empty(t, buf.String())

	logger.Warn("shown", logger.Args("project", "/music/song"))
	assert.Contains(t, buf.String(), "shown")
	assert.Contains(t, buf.String(), "/music/song")
}

func TestNopDiscards(t *testing.T) {
	logger := Nop()
	logger.Error("nothing to see")
	assert.Equal(t, pterm.LogLevelDisabled, logger.Level)
}
