package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Logger is the structured logging surface used across services: an
// action tag, a human message, the request id and free-form details.
type Logger interface {
	Info(action, message, requestID string, details map[string]interface{})
	Debug(action, message, requestID string, details map[string]interface{})
	Error(action, message, requestID string, details map[string]interface{}, err error)
}

type zeroLogger struct {
	base zerolog.Logger
}

// New builds a JSON logger tagged with the service name and hostname.
// Set LOG_FORMAT=console for human-readable output, LOG_LEVEL to filter.
func New(service string) Logger {
	return NewWithOutput(service, os.Stdout)
}

func NewWithOutput(service string, output io.Writer) Logger {
	if os.Getenv("LOG_FORMAT") == "console" {
		output = zerolog.ConsoleWriter{Out: output, TimeFormat: "15:04:05"}
	}

	zerolog.TimeFieldFormat = time.RFC3339Nano

	hostname, _ := os.Hostname()
	base := zerolog.New(output).With().
		Timestamp().
		Str("service", service).
		Str("hostname", hostname).
		Logger().
		Level(parseLevel(os.Getenv("LOG_LEVEL")))

	return &zeroLogger{base: base}
}

func parseLevel(value string) zerolog.Level {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return zerolog.DebugLevel
	}
	if lvl, err := zerolog.ParseLevel(value); err == nil {
		return lvl
	}
	return zerolog.DebugLevel
}

func (l *zeroLogger) Info(action, message, requestID string, details map[string]interface{}) {
	l.emit(l.base.Info(), action, message, requestID, details)
}

func (l *zeroLogger) Debug(action, message, requestID string, details map[string]interface{}) {
	l.emit(l.base.Debug(), action, message, requestID, details)
}

func (l *zeroLogger) Error(action, message, requestID string, details map[string]interface{}, err error) {
	l.emit(l.base.Error().Err(err), action, message, requestID, details)
}

func (l *zeroLogger) emit(event *zerolog.Event, action, message, requestID string, details map[string]interface{}) {
	event = event.Str("action", action)
	if requestID != "" {
		event = event.Str("request_id", requestID)
	}
	if len(details) > 0 {
		event = event.Fields(details)
	}
	event.Msg(message)
}
