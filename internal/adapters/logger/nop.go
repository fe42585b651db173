package logger

import "context"

// NopLogger discards all log output.
type NopLogger struct{}

// Nop returns a logger that discards everything.
func Nop() NopLogger { return NopLogger{} }

func (NopLogger) Debug(context.Context, string, ...map[string]interface{})        {}
func (NopLogger) Info(context.Context, string, ...map[string]interface{})         {}
func (NopLogger) Warn(context.Context, string, ...map[string]interface{})         {}
func (NopLogger) Error(context.Context, error, string, ...map[string]interface{}) {}
