// Package logger is the process-wide structured logger. It never writes to
// stdout, which carries command output and the MCP stdio transport.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	mu      sync.Mutex
	log     = newLogger(os.Stderr, logrus.WarnLevel)
	logFile *os.File
)

func newLogger(w io.Writer, level logrus.Level) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(w)
	l.SetLevel(level)
	l.SetFormatter(textFormatter())
	return l
}

func textFormatter() logrus.Formatter {
	return &logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "15:04:05.000",
	}
}

// Init configures the level and destination. An empty path logs to stderr.
func Init(level, path string) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}

	mu.Lock()
	defer mu.Unlock()

	if logFile != nil {
		logFile.Close()
		logFile = nil
	}

	var w io.Writer = os.Stderr
	log.SetFormatter(textFormatter())
	if path != "" {
		f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		logFile = f
		w = f
		log.SetFormatter(&logrus.JSONFormatter{})
	}
	log.SetOutput(w)
	log.SetLevel(lvl)
	return nil
}

// SetOutput redirects log output, mainly for tests.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	log.SetOutput(w)
}

// Close closes the log file, if any, and falls back to stderr.
func Close() {
	mu.Lock()
	defer mu.Unlock()

	if logFile != nil {
		logFile.Close()
		logFile = nil
		log.SetOutput(os.Stderr)
		log.SetFormatter(textFormatter())
	}
}

// Info logs an info message.
func Info(format string, v ...interface{}) { log.Infof(format, v...) }

// Debug logs a debug message.
func Debug(format string, v ...interface{}) { log.Debugf(format, v...) }

// Warn logs a warning message.
func Warn(format string, v ...interface{}) { log.Warnf(format, v...) }

// Error logs an error message.
func Error(format string, v ...interface{}) { log.Errorf(format, v...) }

// WithFields returns an entry carrying structured fields, e.g. a device id.
func WithFields(fields logrus.Fields) *logrus.Entry {
	return log.WithFields(fields)
}

// Device returns an entry tagged with a device id.
func Device(id string) *logrus.Entry {
	return log.WithField("device", id)
}

// GetWriter returns a writer that logs each write at debug level, for
// libraries that want an io.Writer.
func GetWriter() io.Writer {
	return log.WriterLevel(logrus.DebugLevel)
}
