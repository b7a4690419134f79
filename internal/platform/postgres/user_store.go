package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/phrazzld/boxpack-api/internal/domain"
	"github.com/phrazzld/boxpack-api/internal/platform/logger"
	"github.com/phrazzld/boxpack-api/internal/store"
)

const (
	insertUserQuery = `
		INSERT INTO users (id, name, hashed_password, is_manager, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	selectUserColumns = `SELECT id, name, hashed_password, is_manager, created_at, updated_at FROM users`
)

// PostgresUserStore implements store.UserStore.
type PostgresUserStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresUserStore creates a user store on db. A nil logger uses the
// default.
func NewPostgresUserStore(db store.DBTX, logger *slog.Logger) *PostgresUserStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresUserStore{
		db:     db,
		logger: logger.With(slog.String("component", "user_store")),
	}
}

var _ store.UserStore = (*PostgresUserStore)(nil)

// Create inserts user. Its password must already be hashed.
func (s *PostgresUserStore) Create(ctx context.Context, user *domain.User) error {
	log := s.log(ctx)

	if user.HashedPassword == "" {
		return store.NewStoreError("user", "create", "password is not hashed", store.ErrInvalidEntity)
	}
	if err := user.Validate(); err != nil {
		return store.NewStoreError("user", "create", "validation failed",
			errors.Join(store.ErrInvalidEntity, err))
	}

	_, err := s.db.ExecContext(ctx, insertUserQuery,
		user.ID,
		user.Name,
		user.HashedPassword,
		user.IsManager,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			log.Debug("user name already taken", slog.String("user_id", user.ID.String()))
			return MapUniqueViolation(err, store.ErrNameExists)
		}
		log.Error("failed to create user",
			slog.String("user_id", user.ID.String()),
			slog.String("error", err.Error()))
		return store.NewStoreError("user", "create", "insert failed", MapError(err))
	}

	log.Info("user created", slog.String("user_id", user.ID.String()))
	return nil
}

// GetByID returns store.ErrUserNotFound if no user has id.
func (s *PostgresUserStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return s.getOne(ctx, "get", selectUserColumns+` WHERE id = $1`, id)
}

// GetByName returns store.ErrUserNotFound if no user has name.
func (s *PostgresUserStore) GetByName(ctx context.Context, name string) (*domain.User, error) {
	return s.getOne(ctx, "get by name", selectUserColumns+` WHERE name = $1`, name)
}

// WithTx returns a store running on tx.
func (s *PostgresUserStore) WithTx(tx *sql.Tx) store.UserStore {
	return &PostgresUserStore{db: tx, logger: s.logger}
}

func (s *PostgresUserStore) getOne(ctx context.Context, op, query string, arg any) (*domain.User, error) {
	var user domain.User
	err := s.db.QueryRowContext(ctx, query, arg).Scan(
		&user.ID,
		&user.Name,
		&user.HashedPassword,
		&user.IsManager,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrUserNotFound
	}
	if err != nil {
		s.log(ctx).Error("failed to read user",
			slog.String("operation", op),
			slog.String("error", err.Error()))
		return nil, store.NewStoreError("user", op, "query failed", MapError(err))
	}
	return &user, nil
}

func (s *PostgresUserStore) log(ctx context.Context) *slog.Logger {
	if l := logger.FromContext(ctx); l != nil {
		return l.With(slog.String("component", "user_store"))
	}
	return s.logger
}
