package logging

import (
	"context"

	"github.com/sdejongh/sigrename/pkg/models"
)

// Level represents log severity
type Level int

const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

// Fields are the structured key/value pairs of a log line
type Fields map[string]interface{}

// Logger is implemented by FileLogger and NullLogger
type Logger interface {
	Debug(ctx context.Context, msg string, fields Fields)
	Info(ctx context.Context, msg string, fields Fields)
	Warn(ctx context.Context, msg string, fields Fields)

	// Error logs msg with err under the "error" key
	Error(ctx context.Context, msg string, err error, fields Fields)

	// WithFields returns a logger adding fields to every line
	WithFields(fields Fields) Logger

	// Close flushes and closes the underlying file
	Close() error
}

// ActionFields describes what happened to one file
func ActionFields(a models.ActionRecord) Fields {
	f := Fields{
		"name":   a.OriginalName,
		"action": a.Action,
		"format": a.Format,
		"basis":  a.Basis,
		"size":   a.Size,
	}
	if a.Origin != "" {
		f["origin"] = a.Origin
	}
	if a.OutputName != "" {
		f["output"] = a.OutputName
	}
	if a.Reason != "" {
		f["reason"] = a.Reason
	}
	return f
}
