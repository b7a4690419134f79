package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/boxpack-api/internal/api/shared"
	"github.com/phrazzld/boxpack-api/internal/domain"
	"github.com/phrazzld/boxpack-api/internal/service"
	"github.com/phrazzld/boxpack-api/internal/service/strategy"
)

type fakeUserService struct {
	RegisterFn     func(ctx context.Context, name, password string, isManager bool) (*domain.User, error)
	AuthenticateFn func(ctx context.Context, name, password string) (*domain.User, error)
	GetUserFn      func(ctx context.Context, id uuid.UUID) (*domain.User, error)
}

var _ service.UserService = (*fakeUserService)(nil)

func (f *fakeUserService) Register(ctx context.Context, name, password string, isManager bool) (*domain.User, error) {
	return f.RegisterFn(ctx, name, password, isManager)
}

func (f *fakeUserService) Authenticate(ctx context.Context, name, password string) (*domain.User, error) {
	return f.AuthenticateFn(ctx, name, password)
}

func (f *fakeUserService) GetUser(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return f.GetUserFn(ctx, id)
}

type fakeTaskService struct {
	CreateTaskFn     func(ctx context.Context, in service.CreateTaskInput) (*domain.Task, error)
	GetTaskFn        func(ctx context.Context, taskID uuid.UUID) (*domain.Task, error)
	ListCreatedByFn  func(ctx context.Context, userID uuid.UUID) ([]*domain.Task, error)
	ListAssignedToFn func(ctx context.Context, workerID uuid.UUID) ([]*domain.Task, error)
}

var _ service.TaskService = (*fakeTaskService)(nil)

func (f *fakeTaskService) CreateTask(ctx context.Context, in service.CreateTaskInput) (*domain.Task, error) {
	return f.CreateTaskFn(ctx, in)
}

func (f *fakeTaskService) GetTask(ctx context.Context, taskID uuid.UUID) (*domain.Task, error) {
	return f.GetTaskFn(ctx, taskID)
}

func (f *fakeTaskService) ListCreatedBy(ctx context.Context, userID uuid.UUID) ([]*domain.Task, error) {
	return f.ListCreatedByFn(ctx, userID)
}

func (f *fakeTaskService) ListAssignedTo(ctx context.Context, workerID uuid.UUID) ([]*domain.Task, error) {
	return f.ListAssignedToFn(ctx, workerID)
}

type fakeSubmitter struct {
	SubmitFn func(ctx context.Context, source []byte) (*strategy.ActiveStrategy, error)
	calls    int
}

func (f *fakeSubmitter) Submit(ctx context.Context, source []byte) (*strategy.ActiveStrategy, error) {
	f.calls++
	return f.SubmitFn(ctx, source)
}

func jsonRequest(t *testing.T, method, target string, body interface{}) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req.WithContext(shared.SetTraceID(req.Context()))
}

func asUser(req *http.Request, id uuid.UUID, isManager bool) *http.Request {
	return req.WithContext(shared.WithUser(req.Context(), id, isManager))
}

func withURLParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) shared.ErrorResponse {
	t.Helper()
	var body shared.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}
