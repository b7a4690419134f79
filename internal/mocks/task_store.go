package mocks

import (
	"context"
	"database/sql"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/phrazzld/boxpack-api/internal/domain"
	"github.com/phrazzld/boxpack-api/internal/store"
)

// MockTaskStore implements store.TaskStore for testing.
type MockTaskStore struct {
	CreateFn        func(ctx context.Context, task *domain.Task) error
	GetByIDFn       func(ctx context.Context, id uuid.UUID) (*domain.Task, error)
	ListByCreatorFn func(ctx context.Context, creatorID uuid.UUID) ([]*domain.Task, error)
	ListByWorkerFn  func(ctx context.Context, workerID uuid.UUID) ([]*domain.Task, error)

	mu    sync.Mutex
	Tasks map[uuid.UUID]*domain.Task
}

var _ store.TaskStore = (*MockTaskStore)(nil)

// NewMockTaskStore creates an empty in-memory store.
func NewMockTaskStore() *MockTaskStore {
	return &MockTaskStore{Tasks: make(map[uuid.UUID]*domain.Task)}
}

// Create implements store.TaskStore.
func (m *MockTaskStore) Create(ctx context.Context, task *domain.Task) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, task)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.Tasks[task.ID]; exists {
		return store.ErrDuplicate
	}
	m.Tasks[task.ID] = task
	return nil
}

// GetByID implements store.TaskStore.
func (m *MockTaskStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	task, ok := m.Tasks[id]
	if !ok {
		return nil, store.ErrTaskNotFound
	}
	return task, nil
}

// ListByCreator implements store.TaskStore.
func (m *MockTaskStore) ListByCreator(ctx context.Context, creatorID uuid.UUID) ([]*domain.Task, error) {
	if m.ListByCreatorFn != nil {
		return m.ListByCreatorFn(ctx, creatorID)
	}
	return m.filter(func(t *domain.Task) bool { return t.CreatorID == creatorID }), nil
}

// ListByWorker implements store.TaskStore.
func (m *MockTaskStore) ListByWorker(ctx context.Context, workerID uuid.UUID) ([]*domain.Task, error) {
	if m.ListByWorkerFn != nil {
		return m.ListByWorkerFn(ctx, workerID)
	}
	return m.filter(func(t *domain.Task) bool { return t.WorkerID != nil && *t.WorkerID == workerID }), nil
}

// WithTx returns the same mock.
func (m *MockTaskStore) WithTx(*sql.Tx) store.TaskStore {
	return m
}

func (m *MockTaskStore) filter(keep func(*domain.Task) bool) []*domain.Task {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := []*domain.Task{}
	for _, t := range m.Tasks {
		if keep(t) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}
