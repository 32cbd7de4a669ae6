// Package logger is the process-wide structured logger used by spm.
package logger

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// Fields is a type alias for log fields to make the API cleaner.
type Fields = logrus.Fields

var (
	logger   *logrus.Logger
	output   io.Writer = os.Stderr
	loggerMu sync.Mutex
)

// InitLogger initializes the global logger.
func InitLogger(logLevel string, noColor bool) {
	loggerMu.Lock()
	defer loggerMu.Unlock()

	l := logrus.New()
	l.SetOutput(output)

	// Parse log level
	level, err := logrus.ParseLevel(strings.ToLower(logLevel))
	if err != nil {
		level = logrus.InfoLevel // fallback to info level
	}
	l.SetLevel(level)

	if noColor {
		l.SetFormatter(&logrus.TextFormatter{
			DisableColors: true,
			FullTimestamp: false,
		})
	} else {
		l.SetFormatter(&logrus.TextFormatter{
			ForceColors:   true,
			FullTimestamp: false,
		})
	}

	logger = l
}

// SetOutput redirects log output. Tests use it to capture entries.
func SetOutput(w io.Writer) {
	loggerMu.Lock()
	output = w
	if logger != nil {
		logger.SetOutput(w)
	}
	loggerMu.Unlock()
}

// GetLogger returns the configured logger instance.
func GetLogger() *logrus.Logger {
	loggerMu.Lock()
	l := logger
	loggerMu.Unlock()
	if l == nil {
		InitLogger("info", true)
		loggerMu.Lock()
		l = logger
		loggerMu.Unlock()
	}
	return l
}

// Info logs an info message.
func Info(msg string, fields ...Fields) {
	GetLogger().WithFields(mergeFields(fields...)).Info(msg)
}

// Debug logs a debug message (only shown when debug level is enabled).
func Debug(msg string, fields ...Fields) {
	GetLogger().WithFields(mergeFields(fields...)).Debug(msg)
}

// Warn logs a warning message.
func Warn(msg string, fields ...Fields) {
	GetLogger().WithFields(mergeFields(fields...)).Warn(msg)
}

// Error logs an error message.
func Error(msg string, fields ...Fields) {
	GetLogger().WithFields(mergeFields(fields...)).Error(msg)
}

// Success logs a success message as info with success indicator.
func Success(msg string, fields ...Fields) {
	merged := mergeFields(fields...)
	merged["status"] = "success"
	GetLogger().WithFields(merged).Info(msg)
}

// mergeFields merges multiple field maps into one.
func mergeFields(fields ...Fields) Fields {
	result := make(Fields)
	for _, field := range fields {
		for k, v := range field {
			result[k] = v
		}
	}
	return result
}
