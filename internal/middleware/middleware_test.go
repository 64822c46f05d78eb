package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josh-kwaku/paysettle/internal/auth"
	"github.com/josh-kwaku/paysettle/internal/handler"
)

const testSecret = "test-jwt-secret"

func TestAuth(t *testing.T) {
	userID := uuid.New()
	token, err := auth.GenerateToken(userID, "manager@test.com", testSecret, time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantCode   string
	}{
		{"valid token", "Bearer " + token, http.StatusOK, ""},
		{"missing header", "", http.StatusUnauthorized, "MISSING_TOKEN"},
		{"wrong scheme", "Basic " + token, http.StatusUnauthorized, "INVALID_TOKEN"},
		{"garbage token", "Bearer not.a.jwt", http.StatusUnauthorized, "INVALID_TOKEN"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var gotUser uuid.UUID
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotUser, _ = auth.UserIDFromContext(r.Context())
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/api/v1/wallets/me", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rr := httptest.NewRecorder()
			Auth(testSecret)(next).ServeHTTP(rr, req)

			assert.Equal(t, tc.wantStatus, rr.Code)
			if tc.wantCode == "" {
				assert.Equal(t, userID, gotUser)
				return
			}
			var resp handler.APIResponse
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
			assert.Equal(t, tc.wantCode, resp.Error.Code)
		})
	}
}

func TestTracing(t *testing.T) {
	var seen string
	next := http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = TraceIDFromContext(r.Context())
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(traceIDHeader, "req-123")
	rr := httptest.NewRecorder()
	Tracing(next).ServeHTTP(rr, req)
	assert.Equal(t, "req-123", seen)
	assert.Equal(t, "req-123", rr.Header().Get(traceIDHeader))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(traceIDHeader, strings.Repeat("x", maxTraceIDLen+1))
	rr = httptest.NewRecorder()
	Tracing(next).ServeHTTP(rr, req)
	_, err := uuid.Parse(seen)
	assert.NoError(t, err)
}

func TestLoggingAndRecovery(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	panicky := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})
	h := Tracing(Logging(logger)(Recovery(panicky)))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/payment/verify", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	out := buf.String()
	assert.Contains(t, out, `"msg":"panic recovered"`)
	assert.Contains(t, out, `"msg":"request completed"`)
	assert.Contains(t, out, `"status":500`)
	assert.Contains(t, out, `"request_id"`)
}
