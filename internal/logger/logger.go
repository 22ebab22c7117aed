// Package logger builds the logrus logger shared by the command line tool and
// the MCP server.
//
// Logs always go to stderr in normal use: stdout carries operator prompts and
// the measurement report, or the MCP protocol when serving.
package logger

import (
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"
)

// Formats accepted by New.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// New creates a logger writing to w at the given level ("debug", "info",
// "warn", "error") in the given format ("text" or "json").
func New(level, format string, w io.Writer) (*logrus.Logger, error) {
	log := logrus.New()
	log.SetOutput(w)

	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	log.SetLevel(lvl)

	switch strings.ToLower(format) {
	case "", FormatText:
		log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "15:04:05",
		})
	case FormatJSON:
		log.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
		})
	default:
		return nil, fmt.Errorf("unknown log format %q: use %q or %q", format, FormatText, FormatJSON)
	}

	return log, nil
}

// ParseLevel converts a level name to a logrus level. An empty name means info.
func ParseLevel(level string) (logrus.Level, error) {
	switch strings.ToLower(level) {
	case "":
		return logrus.InfoLevel, nil
	case "debug", "info", "warn", "warning", "error":
		return logrus.ParseLevel(level)
	default:
		return logrus.InfoLevel, fmt.Errorf("unknown log level %q", level)
	}
}

// Discard returns a logger that drops everything. Components fall back to it
// when no logger is supplied.
func Discard() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	log.SetLevel(logrus.PanicLevel)
	return log
}

// OrDiscard returns log, or a discarding logger when log is nil.
func OrDiscard(log logrus.FieldLogger) logrus.FieldLogger {
	if log == nil {
		return Discard()
	}
	return log
}
