package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/phrazzld/boxpack-api/internal/domain"
	"github.com/phrazzld/boxpack-api/internal/domain/placement"
	"github.com/phrazzld/boxpack-api/internal/platform/logger"
	"github.com/phrazzld/boxpack-api/internal/store"
)

// Placer computes a verified placement. *strategy.Executor implements it.
type Placer interface {
	Place(ctx context.Context, items []placement.Item, space placement.Space) (*placement.Result, error)
}

// CreateTaskInput is everything needed to create a task.
type CreateTaskInput struct {
	CreatorID uuid.UUID
	WorkerID  *uuid.UUID
	Space     placement.Space
	Items     []placement.Item
}

// TaskService creates packing tasks and reads them back.
type TaskService interface {
	// CreateTask places the items with the active strategy and stores the
	// task with its placed items. Nothing is stored if placement fails.
	CreateTask(ctx context.Context, in CreateTaskInput) (*domain.Task, error)

	// GetTask returns a task with its items ordered by order_id.
	GetTask(ctx context.Context, taskID uuid.UUID) (*domain.Task, error)

	// ListCreatedBy returns the tasks a user created.
	ListCreatedBy(ctx context.Context, userID uuid.UUID) ([]*domain.Task, error)

	// ListAssignedTo returns the tasks assigned to a worker.
	ListAssignedTo(ctx context.Context, workerID uuid.UUID) ([]*domain.Task, error)
}

type taskService struct {
	placer    Placer
	taskStore store.TaskStore
	userStore store.UserStore
	db        store.TxBeginner
	logger    *slog.Logger
}

// NewTaskService creates a TaskService.
func NewTaskService(
	placer Placer,
	taskStore store.TaskStore,
	userStore store.UserStore,
	db store.TxBeginner,
	logger *slog.Logger,
) (TaskService, error) {
	if placer == nil {
		return nil, errors.New("placer cannot be nil")
	}
	if taskStore == nil {
		return nil, errors.New("taskStore cannot be nil")
	}
	if userStore == nil {
		return nil, errors.New("userStore cannot be nil")
	}
	if db == nil {
		return nil, errors.New("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &taskService{
		placer:    placer,
		taskStore: taskStore,
		userStore: userStore,
		db:        db,
		logger:    logger.With("component", "task_service"),
	}, nil
}

// CreateTask runs placement before opening a transaction so that a slow
// strategy never holds a database connection.
func (s *taskService) CreateTask(ctx context.Context, in CreateTaskInput) (*domain.Task, error) {
	log := s.logger
	if l := logger.FromContext(ctx); l != nil {
		log = l.With("component", "task_service")
	}

	if in.CreatorID == uuid.Nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, domain.ErrEmptyCreatorID)
	}

	result, err := s.placer.Place(ctx, in.Items, in.Space)
	if err != nil {
		// Placement errors already carry their kind; the API maps them.
		log.Warn("placement failed, task not created",
			slog.String("creator_id", in.CreatorID.String()),
			slog.Int("items", len(in.Items)),
			slog.String("error", err.Error()))
		return nil, err
	}

	task, err := domain.NewTask(in.CreatorID, in.WorkerID, in.Space, result)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	err = store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		if in.WorkerID != nil {
			if _, err := s.userStore.WithTx(tx).GetByID(ctx, *in.WorkerID); err != nil {
				if store.IsNotFoundError(err) {
					return ErrWorkerNotFound
				}
				return newTaskServiceError("create_task", "failed to look up worker", err)
			}
		}
		if err := s.taskStore.WithTx(tx).Create(ctx, task); err != nil {
			return newTaskServiceError("create_task", "failed to save task", err)
		}
		return nil
	})
	if err != nil {
		if !errors.Is(err, ErrWorkerNotFound) {
			log.Error("failed to store task",
				slog.String("task_id", task.ID.String()),
				slog.String("error", err.Error()))
		}
		return nil, err
	}

	log.Info("task created",
		slog.String("task_id", task.ID.String()),
		slog.String("strategy", task.StrategyName),
		slog.Uint64("strategy_version", task.StrategyVersion),
		slog.Int("items", len(task.Items)))
	return task, nil
}

// GetTask returns the task or store.ErrTaskNotFound.
func (s *taskService) GetTask(ctx context.Context, taskID uuid.UUID) (*domain.Task, error) {
	task, err := s.taskStore.GetByID(ctx, taskID)
	if err != nil {
		if store.IsNotFoundError(err) {
			return nil, err
		}
		s.logger.Error("failed to retrieve task", "error", err, "task_id", taskID)
		return nil, newTaskServiceError("get_task", "failed to retrieve task", err)
	}
	return task, nil
}

// ListCreatedBy lists tasks by creator.
func (s *taskService) ListCreatedBy(ctx context.Context, userID uuid.UUID) ([]*domain.Task, error) {
	tasks, err := s.taskStore.ListByCreator(ctx, userID)
	if err != nil {
		s.logger.Error("failed to list tasks by creator", "error", err, "user_id", userID)
		return nil, newTaskServiceError("list_created", "failed to list tasks", err)
	}
	return tasks, nil
}

// ListAssignedTo lists tasks by worker.
func (s *taskService) ListAssignedTo(ctx context.Context, workerID uuid.UUID) ([]*domain.Task, error) {
	tasks, err := s.taskStore.ListByWorker(ctx, workerID)
	if err != nil {
		s.logger.Error("failed to list tasks by worker", "error", err, "worker_id", workerID)
		return nil, newTaskServiceError("list_assigned", "failed to list tasks", err)
	}
	return tasks, nil
}
