package logging

import (
	"bytes"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in       string
		expected log.Level
	}{
		{"debug", log.DebugLevel},
		{"DEBUG", log.DebugLevel},
		{"info", log.InfoLevel},
		{"warn", log.WarnLevel},
		{"warning", log.WarnLevel},
		{" error ", log.ErrorLevel},
		{"fatal", log.FatalLevel},
		{"", log.InfoLevel},
		{"verbose", log.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseLevel(tt.in))
		})
	}
}

func TestLogger_SetLogLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf)

	l.Debug("hidden")
	assert.Empty(t, buf.String())

	l.SetLogLevel("debug")
	l.Debug("shown", "key", "value")
	assert.Contains(t, buf.String(), "shown")
	assert.Contains(t, buf.String(), "key=value")
}

func TestLogger_Configure(t *testing.T) {
	t.Setenv(EnvLogLevel, "error")

	var buf bytes.Buffer
	l := New(&buf)
	l.Configure("")
	assert.Equal(t, log.ErrorLevel, l.GetLevel())

	l.Configure("debug")
	assert.Equal(t, log.DebugLevel, l.GetLevel())
}

func TestGet_Singleton(t *testing.T) {
	assert.Same(t, Get(), Get())
}
