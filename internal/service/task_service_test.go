package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/boxpack-api/internal/domain"
	"github.com/phrazzld/boxpack-api/internal/domain/placement"
	"github.com/phrazzld/boxpack-api/internal/mocks"
	"github.com/phrazzld/boxpack-api/internal/platform/logger"
	"github.com/phrazzld/boxpack-api/internal/service"
	"github.com/phrazzld/boxpack-api/internal/store"
)

var boxItems = []placement.Item{
	{Name: "A", Dimensions: placement.Dimensions{X: 3, Y: 2, Z: 2}},
	{Name: "B", Dimensions: placement.Dimensions{X: 4, Y: 2, Z: 2}, Fragile: true},
}

var boxSpace = placement.Space{X: 10, Y: 10, Z: 10}

func TestNewTaskService_Validation(t *testing.T) {
	db, _ := newTxDB(t)
	placer := &mocks.MockPlacer{}
	tasks := mocks.NewMockTaskStore()
	users := mocks.NewMockUserStore()

	_, err := service.NewTaskService(nil, tasks, users, db, nil)
	assert.Error(t, err)
	_, err = service.NewTaskService(placer, nil, users, db, nil)
	assert.Error(t, err)
	_, err = service.NewTaskService(placer, tasks, nil, db, nil)
	assert.Error(t, err)
	_, err = service.NewTaskService(placer, tasks, users, nil, nil)
	assert.Error(t, err)
}

func TestTaskService_CreateTask(t *testing.T) {
	creator := &domain.User{ID: uuid.New(), Name: "manager"}
	worker := &domain.User{ID: uuid.New(), Name: "worker"}

	t.Run("places and stores", func(t *testing.T) {
		log, _ := logger.NewTestLogger(t)
		db, mock := newTxDB(t)
		mock.ExpectBegin()
		mock.ExpectCommit()

		placer := &mocks.MockPlacer{}
		tasks := mocks.NewMockTaskStore()
		svc, err := service.NewTaskService(placer, tasks, mocks.NewMockUserStore(creator, worker), db, log)
		require.NoError(t, err)

		task, err := svc.CreateTask(context.Background(), service.CreateTaskInput{
			CreatorID: creator.ID,
			WorkerID:  &worker.ID,
			Space:     boxSpace,
			Items:     boxItems,
		})
		require.NoError(t, err)

		assert.Equal(t, creator.ID, task.CreatorID)
		assert.Equal(t, worker.ID, *task.WorkerID)
		assert.Equal(t, placement.SequentialName, task.StrategyName)
		assert.Equal(t, uint64(1), task.StrategyVersion)
		require.Len(t, task.Items, 2)
		assert.Equal(t, placement.Position{X: 3}, task.Items[1].Position)
		assert.Same(t, task, tasks.Tasks[task.ID])
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("placement failure stores nothing", func(t *testing.T) {
		log, _ := logger.NewTestLogger(t)
		db, mock := newTxDB(t)

		placer := &mocks.MockPlacer{PlaceFn: func(context.Context, []placement.Item, placement.Space) (*placement.Result, error) {
			return nil, &placement.PlacementError{Kind: placement.ErrGeometryViolation, Stage: "verify", Message: "overlap"}
		}}
		tasks := mocks.NewMockTaskStore()
		svc, err := service.NewTaskService(placer, tasks, mocks.NewMockUserStore(creator), db, log)
		require.NoError(t, err)

		_, err = svc.CreateTask(context.Background(), service.CreateTaskInput{
			CreatorID: creator.ID, Space: boxSpace, Items: boxItems,
		})
		assert.ErrorIs(t, err, placement.ErrGeometryViolation)
		assert.Empty(t, tasks.Tasks)
		assert.NoError(t, mock.ExpectationsWereMet(), "no transaction is opened")
	})

	t.Run("unknown worker rolls back", func(t *testing.T) {
		log, _ := logger.NewTestLogger(t)
		db, mock := newTxDB(t)
		mock.ExpectBegin()
		mock.ExpectRollback()

		tasks := mocks.NewMockTaskStore()
		svc, err := service.NewTaskService(&mocks.MockPlacer{}, tasks, mocks.NewMockUserStore(creator), db, log)
		require.NoError(t, err)

		ghost := uuid.New()
		_, err = svc.CreateTask(context.Background(), service.CreateTaskInput{
			CreatorID: creator.ID, WorkerID: &ghost, Space: boxSpace, Items: boxItems,
		})
		assert.ErrorIs(t, err, service.ErrWorkerNotFound)
		assert.Empty(t, tasks.Tasks)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("store failure rolls back", func(t *testing.T) {
		log, _ := logger.NewTestLogger(t)
		db, mock := newTxDB(t)
		mock.ExpectBegin()
		mock.ExpectRollback()

		tasks := mocks.NewMockTaskStore()
		tasks.CreateFn = func(context.Context, *domain.Task) error {
			return errors.New("disk quota")
		}
		svc, err := service.NewTaskService(&mocks.MockPlacer{}, tasks, mocks.NewMockUserStore(creator), db, log)
		require.NoError(t, err)

		_, err = svc.CreateTask(context.Background(), service.CreateTaskInput{
			CreatorID: creator.ID, Space: boxSpace, Items: boxItems,
		})
		var svcErr *service.ServiceError
		require.ErrorAs(t, err, &svcErr)
		assert.Equal(t, "create_task", svcErr.Operation)
		assert.ErrorContains(t, err, "disk quota")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing creator", func(t *testing.T) {
		db, _ := newTxDB(t)
		placer := &mocks.MockPlacer{}
		svc, err := service.NewTaskService(placer, mocks.NewMockTaskStore(), mocks.NewMockUserStore(), db, nil)
		require.NoError(t, err)

		_, err = svc.CreateTask(context.Background(), service.CreateTaskInput{Space: boxSpace})
		assert.ErrorIs(t, err, domain.ErrValidation)
		assert.Zero(t, placer.Calls.Load())
	})
}

func TestTaskService_Reads(t *testing.T) {
	creator := uuid.New()
	worker := uuid.New()
	older := &domain.Task{ID: uuid.New(), CreatorID: creator, WorkerID: &worker, CreatedAt: time.Now().Add(-time.Hour)}
	newer := &domain.Task{ID: uuid.New(), CreatorID: creator, CreatedAt: time.Now()}

	db, _ := newTxDB(t)
	tasks := mocks.NewMockTaskStore()
	tasks.Tasks[older.ID] = older
	tasks.Tasks[newer.ID] = newer
	svc, err := service.NewTaskService(&mocks.MockPlacer{}, tasks, mocks.NewMockUserStore(), db, nil)
	require.NoError(t, err)
	ctx := context.Background()

	got, err := svc.GetTask(ctx, older.ID)
	require.NoError(t, err)
	assert.Same(t, older, got)

	_, err = svc.GetTask(ctx, uuid.New())
	assert.ErrorIs(t, err, store.ErrTaskNotFound)

	created, err := svc.ListCreatedBy(ctx, creator)
	require.NoError(t, err)
	assert.Equal(t, []*domain.Task{newer, older}, created)

	assigned, err := svc.ListAssignedTo(ctx, worker)
	require.NoError(t, err)
	assert.Equal(t, []*domain.Task{older}, assigned)

	tasks.ListByWorkerFn = func(context.Context, uuid.UUID) ([]*domain.Task, error) {
		return nil, errors.New("timeout")
	}
	_, err = svc.ListAssignedTo(ctx, worker)
	var svcErr *service.ServiceError
	assert.ErrorAs(t, err, &svcErr)

	tasks.GetByIDFn = func(context.Context, uuid.UUID) (*domain.Task, error) {
		return nil, errors.New("timeout")
	}
	_, err = svc.GetTask(ctx, older.ID)
	assert.ErrorAs(t, err, &svcErr)
}
