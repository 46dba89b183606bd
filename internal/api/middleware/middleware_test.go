package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/datemate/taskpoll/internal/api/shared"
	"github.com/datemate/taskpoll/internal/platform/logger"
	"github.com/datemate/taskpoll/internal/service/auth"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubJWT struct {
	userID uuid.UUID
	err    error
	got    string
}

func (s *stubJWT) GenerateToken(context.Context, uuid.UUID) (string, error) {
	return "", errors.New("not used")
}

func (s *stubJWT) ValidateToken(_ context.Context, token string) (*auth.Claims, error) {
	s.got = token
	if s.err != nil {
		return nil, s.err
	}
	return &auth.Claims{UserID: s.userID}, nil
}

func TestAuthenticate(t *testing.T) {
	userID := uuid.New()

	tests := []struct {
		name       string
		header     string
		jwtErr     error
		wantStatus int
		wantError  string
	}{
		{name: "valid token", header: "Bearer good", wantStatus: http.StatusOK},
		{name: "lowercase scheme", header: "bearer good", wantStatus: http.StatusOK},
		{name: "missing header", wantStatus: http.StatusUnauthorized, wantError: "Authorization header required"},
		{name: "wrong scheme", header: "Basic abc", wantStatus: http.StatusUnauthorized, wantError: "Invalid authorization format"},
		{name: "empty token", header: "Bearer ", wantStatus: http.StatusUnauthorized, wantError: "Invalid authorization format"},
		{name: "expired", header: "Bearer old", jwtErr: auth.ErrExpiredToken, wantStatus: http.StatusUnauthorized, wantError: "Token expired"},
		{name: "invalid", header: "Bearer bad", jwtErr: auth.ErrInvalidToken, wantStatus: http.StatusUnauthorized, wantError: "Invalid token"},
		{name: "unexpected", header: "Bearer x", jwtErr: errors.New("boom"), wantStatus: http.StatusInternalServerError, wantError: "Authentication error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			jwt := &stubJWT{userID: userID, err: tt.jwtErr}
			var gotUser uuid.UUID
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotUser, _ = shared.UserID(r.Context())
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/api/ai/tasks/x", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			NewAuthMiddleware(jwt).Authenticate(next).ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, userID, gotUser)
				assert.Equal(t, "good", jwt.got)
				return
			}
			var body shared.ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.wantError, body.Error)
		})
	}
}

func TestTraceMiddleware(t *testing.T) {
	log, buf := logger.GetTestLogger(t)

	var traceID string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID = shared.GetTraceID(r.Context())
		logger.FromContext(r.Context()).Info("inside handler")
	})

	NewTraceMiddleware(log)(next).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Len(t, traceID, 32)
	entries, err := buf.GetLogEntries()
	require.NoError(t, err)

	var found bool
	for _, e := range entries {
		if e["msg"] == "inside handler" {
			found = true
			assert.Equal(t, traceID, e["trace_id"])
		}
	}
	assert.True(t, found, "handler log entry carries the trace id")
}
