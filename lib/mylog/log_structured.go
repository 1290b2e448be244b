package mylog

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/MarcGrol/paycheckpowerhouse/lib/mycontext"
)

// Field names as understood by Cloud Logging when parsing json from stdout
const (
	traceKey  = "logging.googleapis.com/trace"
	labelsKey = "logging.googleapis.com/labels"
)

type structuredLogger struct {
	componentName string
	zap           *zap.Logger
}

func newStructuredLogger(componentName string) Logger {
	return newStructuredLoggerTo(componentName, zapcore.Lock(os.Stdout))
}

func newStructuredLoggerTo(componentName string, out zapcore.WriteSyncer) Logger {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.MessageKey = "message"
	encoderConfig.LevelKey = "severity"
	encoderConfig.TimeKey = "time"
	encoderConfig.EncodeTime = zapcore.RFC3339NanoTimeEncoder
	encoderConfig.EncodeLevel = encodeSeverity

	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), out, zapcore.DebugLevel)

	return structuredLogger{
		componentName: componentName,
		zap:           zap.New(core).With(zap.String("component", componentName)),
	}
}

func (l structuredLogger) Log(ctx context.Context, traceLabel string, severity Severity, format string, a ...any) {
	fields := []zap.Field{
		zap.Any(labelsKey, map[string]string{
			"aggregate": traceLabel,
			"request":   mycontext.RequestUIDFromContext(ctx),
		}),
	}
	if trace := mycontext.TraceFromContext(ctx); trace != "" {
		fields = append(fields, zap.String(traceKey, trace))
	}

	msg := l.componentName + ":" + fmt.Sprintf(format, a...)

	switch severity {
	case SeverityDebug:
		l.zap.Debug(msg, fields...)
	case SeverityWarn:
		l.zap.Warn(msg, fields...)
	case SeverityError:
		l.zap.Error(msg, fields...)
	default:
		l.zap.Info(msg, fields...)
	}
}

func encodeSeverity(level zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	switch level {
	case zapcore.DebugLevel:
		enc.AppendString(string(SeverityDebug))
	case zapcore.InfoLevel:
		enc.AppendString(string(SeverityInfo))
	case zapcore.WarnLevel:
		enc.AppendString("WARNING")
	default:
		enc.AppendString(string(SeverityError))
	}
}
