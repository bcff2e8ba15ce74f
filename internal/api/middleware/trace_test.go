package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/phrazzld/as400-api/internal/api/shared"
	"github.com/phrazzld/as400-api/internal/platform/logger"
)

func TestTraceMiddleware(t *testing.T) {
	var logBuf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&logBuf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	var traceID, loggerTraceID string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID = shared.GetTraceID(r.Context())
		loggerTraceID = logger.TraceID(r.Context())
		logger.FromContext(r.Context()).Info("inside handler")
	})

	rec := httptest.NewRecorder()
	NewTraceMiddleware(base)(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Len(t, traceID, 32)
	assert.Equal(t, traceID, loggerTraceID)
	assert.Equal(t, traceID, rec.Header().Get(TraceHeader))
	assert.Contains(t, logBuf.String(), `"trace_id":"`+traceID+`"`)
	assert.Contains(t, logBuf.String(), "inside handler")
}

func TestTraceMiddleware_IncomingHeader(t *testing.T) {
	tests := []struct {
		name   string
		header string
		reused bool
	}{
		{"well formed", "0af7651916cd43dd8448eb211c80319c", true},
		{"upper case", "0AF7651916CD43DD8448EB211C80319C", false},
		{"too short", "abc123", false},
		{"log injection", "0af7651916cd43dd8448eb211c80319c\nlevel=ERROR", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = shared.GetTraceID(r.Context())
			})
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set(TraceHeader, tt.header)

			NewTraceMiddleware(nil)(next).ServeHTTP(httptest.NewRecorder(), req)

			if tt.reused {
				assert.Equal(t, tt.header, got)
			} else {
				assert.NotEqual(t, tt.header, got)
				assert.Len(t, got, 32)
			}
		})
	}
}
