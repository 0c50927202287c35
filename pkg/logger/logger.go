// Package logger is a thin zerolog wrapper that stamps every entry with the
// service name and offers child loggers for request, user and component
// scope.
package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger wraps zerolog.Logger
type Logger struct {
	zerolog.Logger
}

// New builds the service logger. Development writes colored console output
// at debug level; other environments write JSON at info level. A non-empty
// level that zerolog understands overrides either default.
func New(serviceName, environment, level string) *Logger {
	var out io.Writer = os.Stdout
	lvl := zerolog.InfoLevel

	if environment == "development" {
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
		lvl = zerolog.DebugLevel
	}
	if parsed, err := zerolog.ParseLevel(level); err == nil && level != "" {
		lvl = parsed
	}

	return NewWithWriter(out, serviceName).WithLevel(lvl)
}

// NewWithWriter writes JSON to w. Tests pass a buffer.
func NewWithWriter(w io.Writer, serviceName string) *Logger {
	return &Logger{zerolog.New(w).With().Timestamp().Str("service", serviceName).Logger()}
}

// Nop discards everything
func Nop() *Logger {
	return &Logger{zerolog.Nop()}
}

func (l *Logger) WithLevel(level zerolog.Level) *Logger {
	return &Logger{l.Logger.Level(level)}
}

func (l *Logger) WithRequestID(requestID string) *Logger {
	return l.with("request_id", requestID)
}

// WithUserID tags entries with the authenticated subject
func (l *Logger) WithUserID(userID string) *Logger {
	return l.with("user_id", userID)
}

func (l *Logger) WithComponent(component string) *Logger {
	return l.with("component", component)
}

func (l *Logger) WithError(err error) *Logger {
	return &Logger{l.Logger.With().Err(err).Logger()}
}

func (l *Logger) with(key, value string) *Logger {
	return &Logger{l.Logger.With().Str(key, value).Logger()}
}
