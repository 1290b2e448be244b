package mylog

import (
	"context"
	"os"
)

type Severity string

const (
	SeverityDebug Severity = "DEBUG"
	SeverityInfo  Severity = "INFO"
	SeverityWarn  Severity = "WARN"
	SeverityError Severity = "ERROR"
)

var New func(name string) Logger

func init() {
	if os.Getenv("GOOGLE_CLOUD_PROJECT") != "" || os.Getenv("LOG_FORMAT") == "json" {
		New = newStructuredLogger
		return
	}
	New = newStandardLogger
}

type Logger interface {
	Log(ctx context.Context, traceLabel string, severity Severity, format string, a ...any)
}
