package shared

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/datemate/taskpoll/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRespondWithJSON(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/ai/tasks/x", nil)

	RespondWithJSON(w, r, http.StatusAccepted, map[string]string{"task_id": "x", "status": "pending"})

	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"task_id":"x","status":"pending"}`, w.Body.String())
}

func TestRespondWithErrorIncludesTraceID(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r = r.WithContext(context.WithValue(r.Context(), TraceIDKey, "trace-123"))

	RespondWithError(w, r, http.StatusNotFound, "task not found")

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "task not found", body.Error)
	assert.Equal(t, "trace-123", body.TraceID)
}

func TestRespondWithErrorOmitsMissingTraceID(t *testing.T) {
	w := httptest.NewRecorder()
	RespondWithError(w, httptest.NewRequest(http.MethodGet, "/", nil), http.StatusBadRequest, "bad")

	assert.NotContains(t, w.Body.String(), "trace_id")
}

func TestRespondWithErrorAndLog(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		elevate   bool
		wantLevel string
	}{
		{name: "server error", status: http.StatusInternalServerError, wantLevel: "ERROR"},
		{name: "client error", status: http.StatusBadRequest, wantLevel: "DEBUG"},
		{name: "elevated client error", status: http.StatusUnauthorized, elevate: true, wantLevel: "WARN"},
		{name: "rate limited", status: http.StatusTooManyRequests, wantLevel: "WARN"},
		{name: "unavailable", status: http.StatusServiceUnavailable, wantLevel: "ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf strings.Builder
			log := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

			ctx := context.WithValue(context.Background(), TraceIDKey, "trace-abc")
			ctx = logger.WithLogger(ctx, log)
			r := httptest.NewRequest(http.MethodPost, "/api/ai/tasks", nil).WithContext(ctx)
			w := httptest.NewRecorder()

			cause := errors.New("insert failed: postgres://app:secret@db/app")
			var opts []ResponseOption
			if tt.elevate {
				opts = append(opts, WithElevatedLogLevel())
			}
			RespondWithErrorAndLog(w, r, tt.status, "could not queue task", cause, opts...)

			var body ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, "could not queue task", body.Error)
			assert.NotContains(t, w.Body.String(), "postgres")

			out := buf.String()
			assert.Contains(t, out, "level="+tt.wantLevel)
			assert.Contains(t, out, "trace_id=trace-abc")
			assert.Contains(t, out, "error_type=")
			assert.NotContains(t, out, "secret")
		})
	}
}
