// Package logging builds the go-kit loggers used by Liquid's binaries. Library
// packages accept a log.Logger and never construct their own.
package logging

import (
	"fmt"
	"io"
	"strings"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

const (
	// TraceLevel indicates a log message's level of criticality
	TraceLevel = iota
	// DebugLevel indicates a log message's level of criticality
	DebugLevel
	// InfoLevel indicates a log message's level of criticality
	InfoLevel
	// WarnLevel indicates a log message's level of criticality
	WarnLevel
	// ErrorLevel indicates a log message's level of criticality
	ErrorLevel
	// FatalLevel indicates a log message's level of criticality
	FatalLevel
)

// LogLevelToString translates a log level enum to a string representation
func LogLevelToString(lvl int) string {
	switch lvl {
	case DebugLevel:
		return "DEBUG"
	case InfoLevel:
		return "INFO"
	case WarnLevel:
		return "WARN"
	case ErrorLevel:
		return "ERROR"
	case FatalLevel:
		return "FATAL"
	default:
		return "TRACE"
	}
}

// ParseLevel translates a level name into one of the level constants above
func ParseLevel(name string) (int, error) {
	for lvl := TraceLevel; lvl <= FatalLevel; lvl++ {
		if strings.EqualFold(name, LogLevelToString(lvl)) {
			return lvl, nil
		}
	}
	return 0, fmt.Errorf("unknown log level %q", name)
}

// filterOption maps a level constant onto a go-kit filter. go-kit has no trace
// or fatal levels, so those collapse onto debug and error respectively.
func filterOption(lvl int) level.Option {
	switch lvl {
	case TraceLevel, DebugLevel:
		return level.AllowDebug()
	case InfoLevel:
		return level.AllowInfo()
	case WarnLevel:
		return level.AllowWarn()
	default:
		return level.AllowError()
	}
}

// NewLogger creates a leveled logger writing logfmt (or json, if format is "json") to w
func NewLogger(w io.Writer, format string, lvl int) log.Logger {
	var logger log.Logger
	if format == "json" {
		logger = log.NewJSONLogger(log.NewSyncWriter(w))
	} else {
		logger = log.NewLogfmtLogger(log.NewSyncWriter(w))
	}
	logger = level.NewFilter(logger, filterOption(lvl))
	return log.With(logger, "ts", log.DefaultTimestampUTC, "caller", log.DefaultCaller)
}
