package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/phrazzld/boxpack-api/internal/domain"
	"github.com/phrazzld/boxpack-api/internal/service/auth"
	"github.com/phrazzld/boxpack-api/internal/store"
)

// UserService registers and authenticates users.
type UserService interface {
	// Register creates a user with a unique name.
	// Returns store.ErrNameExists if the name is taken.
	Register(ctx context.Context, name, password string, isManager bool) (*domain.User, error)

	// Authenticate returns the user whose name and password match.
	// Returns auth.ErrInvalidCredentials otherwise, without saying which part was wrong.
	Authenticate(ctx context.Context, name, password string) (*domain.User, error)

	// GetUser retrieves a user by ID.
	GetUser(ctx context.Context, userID uuid.UUID) (*domain.User, error)
}

type userService struct {
	userStore store.UserStore
	passwords auth.PasswordVerifier
	db        store.TxBeginner
	logger    *slog.Logger
}

// NewUserService creates a UserService.
func NewUserService(
	userStore store.UserStore,
	passwords auth.PasswordVerifier,
	db store.TxBeginner,
	logger *slog.Logger,
) (UserService, error) {
	if userStore == nil {
		return nil, errors.New("userStore cannot be nil")
	}
	if passwords == nil {
		return nil, errors.New("passwords cannot be nil")
	}
	if db == nil {
		return nil, errors.New("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &userService{
		userStore: userStore,
		passwords: passwords,
		db:        db,
		logger:    logger.With("component", "user_service"),
	}, nil
}

// Register validates and hashes the password before storing the user.
func (s *userService) Register(ctx context.Context, name, password string, isManager bool) (*domain.User, error) {
	user, err := domain.NewUser(name, password, isManager)
	if err != nil {
		s.logger.Debug("rejected registration", "error", err)
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	hashed, err := s.passwords.Hash(password)
	if err != nil {
		return nil, newUserServiceError("register", "failed to hash password", err)
	}
	user.HashedPassword = hashed
	user.Password = ""

	err = store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		return s.userStore.WithTx(tx).Create(ctx, user)
	})
	if err != nil {
		if errors.Is(err, store.ErrNameExists) {
			s.logger.Debug("attempted to register an existing name", "name", user.Name)
			return nil, err
		}
		s.logger.Error("failed to save user", "error", err, "name", user.Name)
		return nil, newUserServiceError("register", "failed to save user", err)
	}

	s.logger.Info("user registered",
		"user_id", user.ID,
		"is_manager", user.IsManager)
	return user, nil
}

// Authenticate looks the user up by name and checks the password hash.
func (s *userService) Authenticate(ctx context.Context, name, password string) (*domain.User, error) {
	user, err := s.userStore.GetByName(ctx, name)
	if err != nil {
		if store.IsNotFoundError(err) {
			s.logger.Debug("login for unknown name")
			return nil, auth.ErrInvalidCredentials
		}
		s.logger.Error("failed to load user for login", "error", err)
		return nil, newUserServiceError("authenticate", "failed to load user", err)
	}

	if err := s.passwords.Compare(user.HashedPassword, password); err != nil {
		s.logger.Debug("login with wrong password", "user_id", user.ID)
		return nil, auth.ErrInvalidCredentials
	}
	return user, nil
}

// GetUser retrieves a user by ID.
func (s *userService) GetUser(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	user, err := s.userStore.GetByID(ctx, userID)
	if err != nil {
		if !store.IsNotFoundError(err) {
			s.logger.Error("failed to retrieve user", "error", err, "user_id", userID)
		}
		return nil, fmt.Errorf("failed to retrieve user: %w", err)
	}
	return user, nil
}
