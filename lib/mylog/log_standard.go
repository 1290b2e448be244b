package mylog

import (
	"context"
	"fmt"
	"log"

	"github.com/MarcGrol/paycheckpowerhouse/lib/mycontext"
)

// standardLogger writes human readable lines for local development.
type standardLogger struct {
	componentName string
}

func newStandardLogger(componentName string) Logger {
	return standardLogger{
		componentName: componentName,
	}
}

func (l standardLogger) Log(ctx context.Context, traceLabel string, severity Severity, format string, a ...any) {
	label := traceLabel
	if label == "" {
		label = "-"
	}
	log.Printf("%-5s %s [%s] %s: %s", severity, l.componentName, mycontext.RequestUIDFromContext(ctx), label, fmt.Sprintf(format, a...))
}
