package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/boxpack-api/internal/domain"
	"github.com/phrazzld/boxpack-api/internal/domain/placement"
	"github.com/phrazzld/boxpack-api/internal/store"
)

var (
	taskColumns = []string{"id", "creator_id", "worker_id", "space_x", "space_y", "space_z",
		"strategy_name", "strategy_version", "created_at"}
	itemColumns = []string{"order_id", "name", "position_x", "position_y", "position_z",
		"width", "height", "depth", "face_up", "fragile"}
)

func testTask(worker *uuid.UUID) *domain.Task {
	return &domain.Task{
		ID:        uuid.New(),
		CreatorID: uuid.New(),
		WorkerID:  worker,
		Space:     placement.Space{X: 10, Y: 10, Z: 10},
		Items: []placement.PlacedItem{
			{OrderID: 1, Name: "A", Dimensions: placement.Dimensions{X: 2, Y: 1, Z: 1}},
			{OrderID: 2, Name: "B", Position: placement.Position{X: 2}, Dimensions: placement.Dimensions{X: 3, Y: 1, Z: 1}, Fragile: true},
		},
		StrategyName:    placement.SequentialName,
		StrategyVersion: 2,
		CreatedAt:       time.Date(2026, 4, 5, 6, 7, 8, 0, time.UTC),
	}
}

func expectTaskInsert(mock sqlmock.Sqlmock, task *domain.Task) *sqlmock.ExpectedExec {
	var worker interface{}
	if task.WorkerID != nil {
		worker = task.WorkerID.String()
	}
	return mock.ExpectExec(`INSERT INTO tasks`).WithArgs(
		task.ID, task.CreatorID, worker,
		task.Space.X, task.Space.Y, task.Space.Z,
		task.StrategyName, int64(task.StrategyVersion), task.CreatedAt,
	)
}

func TestPostgresTaskStore_Create(t *testing.T) {
	t.Run("task and items inserted", func(t *testing.T) {
		db, mock := newMockDB(t)
		worker := uuid.New()
		task := testTask(&worker)

		expectTaskInsert(mock, task).WillReturnResult(sqlmock.NewResult(0, 1))
		prep := mock.ExpectPrepare(`INSERT INTO task_items`)
		for _, it := range task.Items {
			prep.ExpectExec().WithArgs(
				task.ID, it.OrderID, it.Name,
				it.Position.X, it.Position.Y, it.Position.Z,
				it.Dimensions.X, it.Dimensions.Y, it.Dimensions.Z,
				it.FaceUp, it.Fragile,
			).WillReturnResult(sqlmock.NewResult(0, 1))
		}

		require.NoError(t, NewPostgresTaskStore(db, nil).Create(context.Background(), task))
	})

	t.Run("no items", func(t *testing.T) {
		db, mock := newMockDB(t)
		task := testTask(nil)
		task.Items = nil

		expectTaskInsert(mock, task).WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, NewPostgresTaskStore(db, nil).Create(context.Background(), task))
	})

	t.Run("unknown worker", func(t *testing.T) {
		db, mock := newMockDB(t)
		worker := uuid.New()
		task := testTask(&worker)

		expectTaskInsert(mock, task).
			WillReturnError(&pgconn.PgError{Code: foreignKeyViolationCode, ConstraintName: "tasks_worker_id_fkey"})

		err := NewPostgresTaskStore(db, nil).Create(context.Background(), task)
		assert.ErrorIs(t, err, store.ErrUserNotFound)
	})

	t.Run("item insert fails", func(t *testing.T) {
		db, mock := newMockDB(t)
		task := testTask(nil)

		expectTaskInsert(mock, task).WillReturnResult(sqlmock.NewResult(0, 1))
		prep := mock.ExpectPrepare(`INSERT INTO task_items`)
		prep.ExpectExec().WillReturnResult(sqlmock.NewResult(0, 1))
		prep.ExpectExec().WillReturnError(&pgconn.PgError{Code: checkViolationCode, ConstraintName: "task_items_width_check"})

		err := NewPostgresTaskStore(db, nil).Create(context.Background(), task)
		assert.ErrorIs(t, err, store.ErrInvalidEntity)
		assert.Contains(t, err.Error(), "insert item 2 failed")
	})

	t.Run("invalid task never reaches the database", func(t *testing.T) {
		db, _ := newMockDB(t)
		task := testTask(nil)
		task.Space.Y = 0

		err := NewPostgresTaskStore(db, nil).Create(context.Background(), task)
		assert.ErrorIs(t, err, store.ErrInvalidEntity)
		assert.ErrorIs(t, err, placement.ErrInvalidSpace)
	})
}

func TestPostgresTaskStore_GetByID(t *testing.T) {
	worker := uuid.New()
	task := testTask(&worker)

	t.Run("items ordered by order_id", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectQuery(`FROM tasks\s+WHERE id = \$1`).WithArgs(task.ID).WillReturnRows(
			sqlmock.NewRows(taskColumns).AddRow(
				task.ID.String(), task.CreatorID.String(), worker.String(),
				10.0, 10.0, 10.0, task.StrategyName, int64(2), task.CreatedAt))
		items := sqlmock.NewRows(itemColumns)
		for _, it := range task.Items {
			items.AddRow(it.OrderID, it.Name, it.Position.X, it.Position.Y, it.Position.Z,
				it.Dimensions.X, it.Dimensions.Y, it.Dimensions.Z, it.FaceUp, it.Fragile)
		}
		mock.ExpectQuery(`FROM task_items\s+WHERE task_id = \$1\s+ORDER BY order_id`).
			WithArgs(task.ID).WillReturnRows(items)

		got, err := NewPostgresTaskStore(db, nil).GetByID(context.Background(), task.ID)
		require.NoError(t, err)
		assert.Equal(t, task, got)
	})

	t.Run("not found", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectQuery(`FROM tasks`).WillReturnRows(sqlmock.NewRows(taskColumns))

		_, err := NewPostgresTaskStore(db, nil).GetByID(context.Background(), uuid.New())
		assert.ErrorIs(t, err, store.ErrTaskNotFound)
	})

	t.Run("items query fails", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectQuery(`FROM tasks`).WillReturnRows(
			sqlmock.NewRows(taskColumns).AddRow(
				task.ID.String(), task.CreatorID.String(), nil,
				10.0, 10.0, 10.0, task.StrategyName, int64(2), task.CreatedAt))
		mock.ExpectQuery(`FROM task_items`).WillReturnError(errors.New("conn reset"))

		_, err := NewPostgresTaskStore(db, nil).GetByID(context.Background(), task.ID)
		var se *store.StoreError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, "get items", se.Operation)
	})
}

func TestPostgresTaskStore_Lists(t *testing.T) {
	creator := uuid.New()
	worker := uuid.New()
	newer := time.Date(2026, 5, 2, 0, 0, 0, 0, time.UTC)
	older := newer.Add(-time.Hour)
	ids := []uuid.UUID{uuid.New(), uuid.New()}

	rows := func() *sqlmock.Rows {
		return sqlmock.NewRows(taskColumns).
			AddRow(ids[0].String(), creator.String(), worker.String(), 1.0, 2.0, 3.0, "custom", int64(5), newer).
			AddRow(ids[1].String(), creator.String(), nil, 1.0, 2.0, 3.0, placement.SequentialName, int64(1), older)
	}

	t.Run("by creator", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectQuery(`WHERE creator_id = \$1 ORDER BY created_at DESC`).WithArgs(creator).WillReturnRows(rows())

		got, err := NewPostgresTaskStore(db, nil).ListByCreator(context.Background(), creator)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, ids[0], got[0].ID)
		require.NotNil(t, got[0].WorkerID)
		assert.Equal(t, worker, *got[0].WorkerID)
		assert.Nil(t, got[1].WorkerID)
		assert.Equal(t, uint64(5), got[0].StrategyVersion)
		assert.Nil(t, got[0].Items)
	})

	t.Run("by worker, none", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectQuery(`WHERE worker_id = \$1 ORDER BY created_at DESC`).WithArgs(worker).
			WillReturnRows(sqlmock.NewRows(taskColumns))

		got, err := NewPostgresTaskStore(db, nil).ListByWorker(context.Background(), worker)
		require.NoError(t, err)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})

	t.Run("row error", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectQuery(`WHERE worker_id`).WillReturnRows(rows().RowError(1, errors.New("bad row")))

		_, err := NewPostgresTaskStore(db, nil).ListByWorker(context.Background(), worker)
		assert.Error(t, err)
	})
}
