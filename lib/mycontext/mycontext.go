package mycontext

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/google/uuid"
)

// CtxTraceContext is a context key for the trace context this (used by mylog)
type CtxTraceContext struct{}

// CtxRequestUID is a context key for the uid that correlates all log lines of a request
type CtxRequestUID struct{}

// ContextFromHTTPRequest derives the context of an incoming request. The request context
// is kept as parent so values set by earlier pipeline stages remain visible.
func ContextFromHTTPRequest(r *http.Request) context.Context {
	var trace string

	projectID := os.Getenv("GOOGLE_CLOUD_PROJECT")
	traceContext := r.Header.Get("X-Cloud-Trace-Context")
	traceParts := strings.Split(traceContext, "/")

	if len(traceParts) > 0 && len(traceParts[0]) > 0 {
		trace = fmt.Sprintf("projects/%s/traces/%s", projectID, traceParts[0])
	}

	requestUID := r.Header.Get("X-Request-ID")
	if requestUID == "" {
		requestUID = uuid.NewString()
	}

	ctx := context.WithValue(r.Context(), CtxTraceContext{}, trace)
	ctx = context.WithValue(ctx, CtxRequestUID{}, requestUID)

	return ctx
}

func TraceFromContext(c context.Context) string {
	trace, _ := c.Value(CtxTraceContext{}).(string)
	return trace
}

func RequestUIDFromContext(c context.Context) string {
	uid, _ := c.Value(CtxRequestUID{}).(string)
	return uid
}
