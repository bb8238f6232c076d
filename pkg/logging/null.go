package logging

import "context"

// Discard is the logger used when logging is disabled
var Discard Logger = NullLogger{}

// NullLogger drops every line
type NullLogger struct{}

func (NullLogger) Debug(context.Context, string, Fields)        {}
func (NullLogger) Info(context.Context, string, Fields)         {}
func (NullLogger) Warn(context.Context, string, Fields)         {}
func (NullLogger) Error(context.Context, string, error, Fields) {}

func (n NullLogger) WithFields(Fields) Logger { return n }

func (NullLogger) Close() error { return nil }
