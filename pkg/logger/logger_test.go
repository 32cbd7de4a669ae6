package logger

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func captureOutput(t *testing.T, level string, fn func()) string {
	t.Helper()
	buf := &bytes.Buffer{}
	SetOutput(buf)
	defer SetOutput(os.Stderr)

	InitLogger(level, true)
	fn()

	return buf.String()
}

func TestLogger(t *testing.T) {
	tests := []struct {
		name     string
		level    string
		logFn    func()
		contains []string
		excludes []string
	}{
		{
			name:     "info log",
			level:    "info",
			logFn:    func() { Info("test info message") },
			contains: []string{"test info message", "level=info"},
		},
		{
			name:     "debug log with debug level",
			level:    "debug",
			logFn:    func() { Debug("test debug message") },
			contains: []string{"test debug message", "level=debug"},
		},
		{
			name:     "debug log with info level",
			level:    "info",
			logFn:    func() { Debug("test debug message") },
			excludes: []string{"test debug message"},
		},
		{
			name:     "error log",
			level:    "error",
			logFn:    func() { Error("test error message") },
			contains: []string{"test error message", "level=error"},
		},
		{
			name:     "warn log with fields",
			level:    "warn",
			logFn:    func() { Warn("test warning", Fields{"key1": "value1", "key2": 42}) },
			contains: []string{"test warning", "level=warning", "key1=value1", "key2=42"},
		},
		{
			name:     "success log",
			level:    "info",
			logFn:    func() { Success("installed", Fields{"module": "acme"}) },
			contains: []string{"installed", "status=success", "module=acme"},
		},
		{
			name:     "invalid level falls back to info",
			level:    "chatty",
			logFn:    func() { Debug("hidden"); Info("shown") },
			contains: []string{"shown"},
			excludes: []string{"hidden"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := captureOutput(t, tt.level, tt.logFn)
			for _, want := range tt.contains {
				assert.Contains(t, out, want)
			}
			for _, unwanted := range tt.excludes {
				assert.NotContains(t, out, unwanted)
			}
		})
	}
}

func TestMergeFields(t *testing.T) {
	merged := mergeFields(Fields{"a": 1}, Fields{"b": 2}, Fields{"a": 3})
	assert.Equal(t, Fields{"a": 3, "b": 2}, merged)
}
