package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/phrazzld/boxpack-api/internal/domain"
	"github.com/phrazzld/boxpack-api/internal/domain/placement"
	"github.com/phrazzld/boxpack-api/internal/platform/logger"
	"github.com/phrazzld/boxpack-api/internal/store"
)

const (
	insertTaskQuery = `
		INSERT INTO tasks (id, creator_id, worker_id, space_x, space_y, space_z,
			strategy_name, strategy_version, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	insertTaskItemQuery = `
		INSERT INTO task_items (task_id, order_id, name, position_x, position_y, position_z,
			width, height, depth, face_up, fragile)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	selectTaskColumns = `
		SELECT id, creator_id, worker_id, space_x, space_y, space_z,
			strategy_name, strategy_version, created_at
		FROM tasks
	`
	selectTaskItemsQuery = `
		SELECT order_id, name, position_x, position_y, position_z,
			width, height, depth, face_up, fragile
		FROM task_items
		WHERE task_id = $1
		ORDER BY order_id
	`
)

// PostgresTaskStore implements store.TaskStore. A task is one row in tasks
// plus one row per placed item in task_items.
type PostgresTaskStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresTaskStore creates a task store on db. A nil logger uses the
// default.
func NewPostgresTaskStore(db store.DBTX, logger *slog.Logger) *PostgresTaskStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresTaskStore{
		db:     db,
		logger: logger.With(slog.String("component", "task_store")),
	}
}

var _ store.TaskStore = (*PostgresTaskStore)(nil)

// Create inserts the task and its items. Run it inside a transaction so a
// failed item insert leaves no partial task behind.
func (s *PostgresTaskStore) Create(ctx context.Context, task *domain.Task) (err error) {
	log := s.log(ctx).With(slog.String("task_id", task.ID.String()))

	if verr := task.Validate(); verr != nil {
		return store.NewStoreError("task", "create", "validation failed",
			errors.Join(store.ErrInvalidEntity, verr))
	}

	_, err = s.db.ExecContext(ctx, insertTaskQuery,
		task.ID,
		task.CreatorID,
		nullUUID(task.WorkerID),
		task.Space.X,
		task.Space.Y,
		task.Space.Z,
		task.StrategyName,
		int64(task.StrategyVersion),
		task.CreatedAt,
	)
	if err != nil {
		if IsForeignKeyViolation(err) {
			log.Debug("task references unknown user", slog.String("error", err.Error()))
			return fmt.Errorf("%w: creator or worker: %v", store.ErrUserNotFound, err)
		}
		log.Error("failed to insert task", slog.String("error", err.Error()))
		return store.NewStoreError("task", "create", "insert failed", MapError(err))
	}

	if len(task.Items) == 0 {
		log.Info("task created", slog.Int("items", 0))
		return nil
	}

	stmt, err := s.db.PrepareContext(ctx, insertTaskItemQuery)
	if err != nil {
		log.Error("failed to prepare item insert", slog.String("error", err.Error()))
		return store.NewStoreError("task", "create", "prepare item insert failed", MapError(err))
	}
	defer func() {
		err = multierr.Append(err, stmt.Close())
	}()

	for _, item := range task.Items {
		_, err = stmt.ExecContext(ctx,
			task.ID,
			item.OrderID,
			item.Name,
			item.Position.X,
			item.Position.Y,
			item.Position.Z,
			item.Dimensions.X,
			item.Dimensions.Y,
			item.Dimensions.Z,
			item.FaceUp,
			item.Fragile,
		)
		if err != nil {
			log.Error("failed to insert task item",
				slog.Int("order_id", item.OrderID),
				slog.String("error", err.Error()))
			return store.NewStoreError("task", "create",
				fmt.Sprintf("insert item %d failed", item.OrderID), MapError(err))
		}
	}

	log.Info("task created", slog.Int("items", len(task.Items)))
	return nil
}

// GetByID returns the task with its items ordered by order_id, or
// store.ErrTaskNotFound.
func (s *PostgresTaskStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	task, err := scanTask(s.db.QueryRowContext(ctx, selectTaskColumns+` WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrTaskNotFound
	}
	if err != nil {
		s.log(ctx).Error("failed to read task",
			slog.String("task_id", id.String()),
			slog.String("error", err.Error()))
		return nil, store.NewStoreError("task", "get", "query failed", MapError(err))
	}

	items, err := s.items(ctx, id)
	if err != nil {
		return nil, err
	}
	task.Items = items
	return task, nil
}

// ListByCreator returns the tasks creatorID created, newest first, without
// items.
func (s *PostgresTaskStore) ListByCreator(ctx context.Context, creatorID uuid.UUID) ([]*domain.Task, error) {
	return s.list(ctx, "list by creator",
		selectTaskColumns+` WHERE creator_id = $1 ORDER BY created_at DESC, id`, creatorID)
}

// ListByWorker returns the tasks assigned to workerID, newest first,
// without items.
func (s *PostgresTaskStore) ListByWorker(ctx context.Context, workerID uuid.UUID) ([]*domain.Task, error) {
	return s.list(ctx, "list by worker",
		selectTaskColumns+` WHERE worker_id = $1 ORDER BY created_at DESC, id`, workerID)
}

// WithTx returns a store running on tx.
func (s *PostgresTaskStore) WithTx(tx *sql.Tx) store.TaskStore {
	return &PostgresTaskStore{db: tx, logger: s.logger}
}

func (s *PostgresTaskStore) list(ctx context.Context, op, query string, id uuid.UUID) (_ []*domain.Task, err error) {
	rows, err := s.db.QueryContext(ctx, query, id)
	if err != nil {
		s.log(ctx).Error("failed to list tasks",
			slog.String("operation", op),
			slog.String("error", err.Error()))
		return nil, store.NewStoreError("task", op, "query failed", MapError(err))
	}
	defer func() {
		err = multierr.Append(err, rows.Close())
	}()

	tasks := []*domain.Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, store.NewStoreError("task", op, "scan failed", err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("task", op, "row iteration failed", MapError(err))
	}
	return tasks, nil
}

func (s *PostgresTaskStore) items(ctx context.Context, taskID uuid.UUID) (_ []placement.PlacedItem, err error) {
	rows, err := s.db.QueryContext(ctx, selectTaskItemsQuery, taskID)
	if err != nil {
		return nil, store.NewStoreError("task", "get items", "query failed", MapError(err))
	}
	defer func() {
		err = multierr.Append(err, rows.Close())
	}()

	items := []placement.PlacedItem{}
	for rows.Next() {
		var it placement.PlacedItem
		if err := rows.Scan(
			&it.OrderID,
			&it.Name,
			&it.Position.X,
			&it.Position.Y,
			&it.Position.Z,
			&it.Dimensions.X,
			&it.Dimensions.Y,
			&it.Dimensions.Z,
			&it.FaceUp,
			&it.Fragile,
		); err != nil {
			return nil, store.NewStoreError("task", "get items", "scan failed", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("task", "get items", "row iteration failed", MapError(err))
	}
	return items, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*domain.Task, error) {
	var (
		task    domain.Task
		worker  uuid.NullUUID
		version int64
	)
	if err := row.Scan(
		&task.ID,
		&task.CreatorID,
		&worker,
		&task.Space.X,
		&task.Space.Y,
		&task.Space.Z,
		&task.StrategyName,
		&version,
		&task.CreatedAt,
	); err != nil {
		return nil, err
	}
	if worker.Valid {
		id := worker.UUID
		task.WorkerID = &id
	}
	task.StrategyVersion = uint64(version)
	task.CreatedAt = task.CreatedAt.UTC()
	return &task, nil
}

func nullUUID(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}

func (s *PostgresTaskStore) log(ctx context.Context) *slog.Logger {
	if l := logger.FromContext(ctx); l != nil {
		return l.With(slog.String("component", "task_store"))
	}
	return s.logger
}
