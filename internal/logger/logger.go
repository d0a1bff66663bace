// Package logger provides the leveled logging the reconstruction driver
// uses to report per-tile and per-building progress. core/reconstruct
// itself never imports this package — it stays a pure function — only
// cmd/roofer and internal/pool's callers log.
package logger

import (
	"fmt"
	"log"
	"os"
	"sort"
	"strings"
)

// LogLevel represents the severity of a log message
type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
)

// Logger provides leveled logging plus optional key/value context for the
// per-building fields the driver attaches (building id, status, duration).
type Logger struct {
	level  LogLevel
	logger *log.Logger
}

var defaultLogger *Logger

func init() {
	defaultLogger = New(INFO)
}

// New creates a new logger instance
func New(level LogLevel) *Logger {
	return &Logger{
		level:  level,
		logger: log.New(os.Stderr, "", log.Ldate|log.Ltime|log.Lshortfile),
	}
}

// SetLevel sets the global log level
func SetLevel(level LogLevel) {
	defaultLogger.level = level
}

// Debug logs a debug message
func Debug(format string, args ...interface{}) {
	defaultLogger.Debug(format, args...)
}

// Info logs an info message
func Info(format string, args ...interface{}) {
	defaultLogger.Info(format, args...)
}

// Warn logs a warning message
func Warn(format string, args ...interface{}) {
	defaultLogger.Warn(format, args...)
}

// Error logs an error message
func Error(format string, args ...interface{}) {
	defaultLogger.Error(format, args...)
}

// Fields is a small key/value bag attached to a single log line, used by the
// driver to report a building's id, status and duration alongside its
// message without moving this package to a structured-field logger
// wholesale; logging everywhere else stays plain leveled print-style.
type Fields map[string]interface{}

// InfoFields logs format at INFO with fields rendered as "key=value" pairs
// appended in sorted key order, e.g. the per-building summary
// cmd/roofer.runTile emits after each reconstruction.
func InfoFields(format string, fields Fields, args ...interface{}) {
	defaultLogger.logFields(INFO, format, fields, args...)
}

// WarnFields is InfoFields at WARN, used for per-building failures the
// driver reports without aborting the run.
func WarnFields(format string, fields Fields, args ...interface{}) {
	defaultLogger.logFields(WARN, format, fields, args...)
}

// Debug logs a debug message
func (l *Logger) Debug(format string, args ...interface{}) {
	if l.level <= DEBUG {
		l.log("DEBUG", format, args...)
	}
}

// Info logs an info message
func (l *Logger) Info(format string, args ...interface{}) {
	if l.level <= INFO {
		l.log("INFO", format, args...)
	}
}

// Warn logs a warning message
func (l *Logger) Warn(format string, args ...interface{}) {
	if l.level <= WARN {
		l.log("WARN", format, args...)
	}
}

// Error logs an error message
func (l *Logger) Error(format string, args ...interface{}) {
	if l.level <= ERROR {
		l.log("ERROR", format, args...)
	}
}

func (l *Logger) log(level, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	l.logger.Output(3, fmt.Sprintf("[%s] %s", level, msg))
}

func (l *Logger) logFields(level LogLevel, format string, fields Fields, args ...interface{}) {
	if l.level > level {
		return
	}
	name := [...]string{"DEBUG", "INFO", "WARN", "ERROR"}[level]
	msg := fmt.Sprintf(format, args...)
	if len(fields) > 0 {
		msg = msg + " " + formatFields(fields)
	}
	l.logger.Output(3, fmt.Sprintf("[%s] %s", name, msg))
}

func formatFields(fields Fields) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%v", k, fields[k])
	}
	return strings.Join(parts, " ")
}
