package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/boxpack-api/internal/api/shared"
	"github.com/phrazzld/boxpack-api/internal/mocks"
	"github.com/phrazzld/boxpack-api/internal/platform/logger"
	"github.com/phrazzld/boxpack-api/internal/service/auth"
)

// echoIdentity reports what Authenticate put into the context.
func echoIdentity(t *testing.T, gotID *uuid.UUID, gotManager *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := shared.UserID(r.Context())
		require.True(t, ok)
		*gotID = id
		*gotManager = shared.IsManager(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestAuthenticate(t *testing.T) {
	userID := uuid.New()

	tests := []struct {
		name       string
		header     string
		validateFn func(ctx context.Context, token string) (*auth.Claims, error)
		wantStatus int
		wantBody   string
	}{
		{
			name:   "valid manager token",
			header: "Bearer good",
			validateFn: func(_ context.Context, token string) (*auth.Claims, error) {
				assert.Equal(t, "good", token)
				return &auth.Claims{UserID: userID, IsManager: true}, nil
			},
			wantStatus: http.StatusNoContent,
		},
		{
			name:       "missing header",
			wantStatus: http.StatusUnauthorized,
			wantBody:   "Authorization header required",
		},
		{
			name:       "wrong scheme",
			header:     "Basic dXNlcjpwYXNz",
			wantStatus: http.StatusUnauthorized,
			wantBody:   "Invalid authorization format",
		},
		{
			name:   "expired",
			header: "Bearer old",
			validateFn: func(context.Context, string) (*auth.Claims, error) {
				return nil, auth.ErrExpiredToken
			},
			wantStatus: http.StatusUnauthorized,
			wantBody:   "Token expired",
		},
		{
			name:   "refresh token used as access token",
			header: "Bearer refresh",
			validateFn: func(context.Context, string) (*auth.Claims, error) {
				return nil, auth.ErrWrongTokenType
			},
			wantStatus: http.StatusUnauthorized,
			wantBody:   "Invalid token",
		},
		{
			name:   "unexpected failure",
			header: "Bearer x",
			validateFn: func(context.Context, string) (*auth.Claims, error) {
				return nil, errors.New("key store offline")
			},
			wantStatus: http.StatusInternalServerError,
			wantBody:   "Authentication error",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			m := NewAuthMiddleware(&mocks.MockJWTService{ValidateTokenFn: tc.validateFn})

			var gotID uuid.UUID
			var gotManager bool
			req := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()

			m.Authenticate(echoIdentity(t, &gotID, &gotManager)).ServeHTTP(w, req)

			assert.Equal(t, tc.wantStatus, w.Code)
			if tc.wantBody != "" {
				assert.Contains(t, w.Body.String(), tc.wantBody)
				return
			}
			assert.Equal(t, userID, gotID)
			assert.True(t, gotManager)
		})
	}
}

func TestRequireManager(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name       string
		ctx        func(context.Context) context.Context
		wantStatus int
	}{
		{"manager", func(ctx context.Context) context.Context { return shared.WithUser(ctx, uuid.New(), true) }, http.StatusOK},
		{"worker", func(ctx context.Context) context.Context { return shared.WithUser(ctx, uuid.New(), false) }, http.StatusForbidden},
		{"anonymous", func(ctx context.Context) context.Context { return ctx }, http.StatusUnauthorized},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/strategies", nil)
			req = req.WithContext(tc.ctx(req.Context()))
			w := httptest.NewRecorder()

			RequireManager(ok).ServeHTTP(w, req)
			assert.Equal(t, tc.wantStatus, w.Code)
		})
	}
}

func TestTraceMiddleware(t *testing.T) {
	log, buf := logger.NewTestLogger(t)

	var traceID string
	h := TraceMiddleware(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID = shared.GetTraceID(r.Context())
		logger.FromContext(r.Context()).Info("inside handler")
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Len(t, traceID, shared.TraceIDLength)
	entries := buf.Entries(t)
	require.Len(t, entries, 2)
	for _, e := range entries {
		assert.Equal(t, traceID, e["trace_id"])
	}
}
