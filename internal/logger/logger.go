// internal/logger/logger.go
package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger wraps zerolog.Logger with campaign-specific helpers
type Logger struct {
	zerolog.Logger
}

// New creates a Logger writing to stdout. format "console" or "text" gives
// human-readable output, anything else JSON.
func New(level string, format string) *Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}

	var out io.Writer = os.Stdout
	if format == "text" || format == "console" {
		out = zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}
	}

	l := zerolog.New(out).Level(lvl).With().Timestamp().Logger()
	return &Logger{Logger: l}
}

// Nop returns a logger that discards everything. Used by tests and as the
// fallback when a component is built without a logger.
func Nop() *Logger {
	return &Logger{Logger: zerolog.Nop()}
}

// WithComponent returns a new logger with the component name attached
func (l *Logger) WithComponent(component string) *Logger {
	if l == nil {
		return Nop()
	}
	return &Logger{
		Logger: l.With().Str("component", component).Logger(),
	}
}

// WithCampaign returns a new logger with the campaign ID attached
func (l *Logger) WithCampaign(campaignID string) *Logger {
	return &Logger{
		Logger: l.With().Str("campaign_id", campaignID).Logger(),
	}
}

// WithRequestID returns a new logger with the request ID attached
func (l *Logger) WithRequestID(requestID string) *Logger {
	return &Logger{
		Logger: l.With().Str("request_id", requestID).Logger(),
	}
}

// HTTPRequest logs an HTTP request
func (l *Logger) HTTPRequest(method, path string, statusCode int, duration time.Duration, clientIP string) {
	l.Info().
		Str("method", method).
		Str("path", path).
		Int("status", statusCode).
		Dur("duration", duration).
		Str("client_ip", clientIP).
		Msg("HTTP request")
}
