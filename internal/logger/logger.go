// Package logger wraps logrus with the fields every component and request
// log line carries.
package logger

import (
	"io"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type Logger struct {
	*logrus.Entry
}

// Component returns a logger tagged with the component name, the way every
// pipeline stage identifies itself.
func Component(name string) *Logger {
	return &Logger{Entry: New().WithField("component", name)}
}

// New reads ENVIRONMENT, LOG_LEVEL and LOG_OUTPUT at call time.
func New() *Logger {
	base := logrus.New()
	base.SetFormatter(formatter(os.Getenv("ENVIRONMENT")))
	base.SetOutput(output(os.Getenv("LOG_OUTPUT")))
	base.SetLevel(level(os.Getenv("LOG_LEVEL")))
	return &Logger{Entry: logrus.NewEntry(base)}
}

// formatter is a colored console for local runs and JSON elsewhere.
func formatter(env string) logrus.Formatter {
	if env == "" || env == "local" {
		return &logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.RFC3339Nano,
			ForceColors:     true,
		}
	}
	return &logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano}
}

// level accepts debug, warn and error; anything else is info.
func level(s string) logrus.Level {
	switch s {
	case "debug":
		return logrus.DebugLevel
	case "warn":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

// output picks the sink. The MCP server speaks on stdout, so it sets
// LOG_OUTPUT=stderr; tests can silence logs with LOG_OUTPUT=discard.
func output(s string) io.Writer {
	switch s {
	case "stderr":
		return os.Stderr
	case "discard":
		return io.Discard
	default:
		return os.Stdout
	}
}

// WithRequest tags an entry with the request id (X-Request-ID or a fresh
// uuid), method, path, remote address and user agent.
func (l *Logger) WithRequest(r *http.Request) *logrus.Entry {
	reqID := r.Header.Get("X-Request-ID")
	if reqID == "" {
		reqID = uuid.NewString()
	}
	return l.WithFields(logrus.Fields{
		"req_id":     reqID,
		"method":     r.Method,
		"path":       r.URL.Path,
		"remote_ip":  r.RemoteAddr,
		"user_agent": r.UserAgent(),
	})
}

// WithError logs the message only, keeping JSON output flat.
func (l *Logger) WithError(err error) *logrus.Entry {
	if err == nil {
		return l.Entry
	}
	return l.Entry.WithField("error", err.Error())
}
