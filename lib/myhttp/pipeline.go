package myhttp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/MarcGrol/paycheckpowerhouse/lib/mycontext"
	"github.com/MarcGrol/paycheckpowerhouse/lib/myerrors"
)

// Stage wraps a handler with one step of request processing.
type Stage func(next http.Handler) http.Handler

// Pipeline is the ordered list of stages configured for a single route. There is no
// router-wide chain: every route states which stages it runs.
type Pipeline []Stage

func NewPipeline(stages ...Stage) Pipeline {
	return stages
}

// Then returns a handler where the first stage of the pipeline sees the request first.
func (p Pipeline) Then(h http.Handler) http.Handler {
	for i := len(p) - 1; i >= 0; i-- {
		h = p[i](h)
	}
	return h
}

func (p Pipeline) ThenFunc(f http.HandlerFunc) http.Handler {
	return p.Then(f)
}

// MaxBodySize caps the number of body bytes a handler can read.
func MaxBodySize(maxBytes int64) Stage {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			}
			next.ServeHTTP(w, r)
		})
	}
}

type ctxRawBodyKey struct{}

// RawBody reads the complete body before the handler runs and keeps the exact bytes in
// the request context. The body is replaced by a reader over the same bytes.
func RawBody(maxBytes int64, writer ResponseWriter) Stage {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := []byte{}
			if r.Body != nil {
				var err error
				raw, err = io.ReadAll(http.MaxBytesReader(w, r.Body, maxBytes))
				if err != nil {
					c := mycontext.ContextFromHTTPRequest(r)
					var tooLarge *http.MaxBytesError
					if errors.As(err, &tooLarge) {
						writer.WriteError(c, w, 1, myerrors.NewInvalidInputError(fmt.Errorf("body exceeds %d bytes", maxBytes)))
						return
					}
					writer.WriteError(c, w, 1, myerrors.NewInvalidInputError(fmt.Errorf("error reading body: %s", err)))
					return
				}
			}

			r = r.WithContext(context.WithValue(r.Context(), ctxRawBodyKey{}, raw))
			r.Body = io.NopCloser(bytes.NewReader(raw))

			next.ServeHTTP(w, r)
		})
	}
}

// RawBodyFromContext returns the bytes captured by the RawBody stage.
func RawBodyFromContext(c context.Context) ([]byte, bool) {
	raw, found := c.Value(ctxRawBodyKey{}).([]byte)
	return raw, found
}
