// internal/service/user_service.go
package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/sirupsen/logrus"

	"finflow-lending/internal/domain"
	"finflow-lending/internal/repository"
	"finflow-lending/internal/util"
)

// MinPasswordLength is the shortest password accepted at registration.
const MinPasswordLength = 8

// PasswordHasher hashes and verifies user passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(hash, password string) bool
}

// UserService defines the interface for registration and sign-in.
type UserService interface {
	// Register creates the user and their empty wallet together.
	Register(ctx context.Context, email, fullName, password string, role domain.Role) (*domain.User, *domain.Wallet, error)
	// Login returns the user for valid credentials, or util.ErrUnauthorized.
	Login(ctx context.Context, email, password string) (*domain.User, error)
	GetUser(ctx context.Context, userID int64) (*domain.User, error)
}

type userService struct {
	dbExecutor       repository.DBExecutor // For non-transactional reads (e.g., *sqlx.DB)
	uow              *UnitOfWork
	userRepo         repository.UserRepository
	wallets          WalletService
	hasher           PasswordHasher
	allowAdminSignup bool
	logger           logrus.FieldLogger
}

// NewUserService creates a new instance of UserService. Self-registration as
// ADMIN is refused unless allowAdminSignup is set.
func NewUserService(
	dbExecutor repository.DBExecutor,
	uow *UnitOfWork,
	userRepo repository.UserRepository,
	wallets WalletService,
	hasher PasswordHasher,
	allowAdminSignup bool,
	logger logrus.FieldLogger,
) UserService {
	return &userService{
		dbExecutor:       dbExecutor,
		uow:              uow,
		userRepo:         userRepo,
		wallets:          wallets,
		hasher:           hasher,
		allowAdminSignup: allowAdminSignup,
		logger:           logger,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *userService) Register(ctx context.Context, email, fullName, password string, role domain.Role) (*domain.User, *domain.Wallet, error) {
	email = normalizeEmail(email)
	fullName = strings.TrimSpace(fullName)
	if role == "" {
		role = domain.RoleUser
	}

	if _, err := mail.ParseAddress(email); err != nil {
		return nil, nil, fmt.Errorf("register: %w: invalid email", util.ErrInvalidInput)
	}
	if fullName == "" {
		return nil, nil, fmt.Errorf("register: %w: full name is required", util.ErrInvalidInput)
	}
	if len(password) < MinPasswordLength {
		return nil, nil, fmt.Errorf("register: %w: password must be at least %d characters", util.ErrInvalidInput, MinPasswordLength)
	}
	if !role.Valid() {
		return nil, nil, fmt.Errorf("register: %w: unknown role %q", util.ErrInvalidInput, role)
	}
	if role == domain.RoleAdmin && !s.allowAdminSignup {
		return nil, nil, fmt.Errorf("register: %w: admin accounts cannot self-register", util.ErrForbidden)
	}

	passwordHash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, nil, fmt.Errorf("register: %w", err)
	}

	var (
		user   *domain.User
		wallet *domain.Wallet
	)
	err = s.uow.Do(ctx, func(q repository.DBExecutor) error {
		_, err := s.userRepo.GetUserByEmail(ctx, q, email)
		if err == nil {
			return fmt.Errorf("email %q is already registered: %w", email, util.ErrDuplicateEntry)
		}
		if !errors.Is(err, util.ErrNotFound) {
			return fmt.Errorf("failed to check existing user: %w", err)
		}

		user = domain.NewUser(email, fullName, passwordHash, role)
		if err := s.userRepo.CreateUser(ctx, q, user); err != nil {
			return err
		}
		wallet, err = s.wallets.CreateWallet(ctx, q, user.ID)
		return err
	})
	if err != nil {
		return nil, nil, fmt.Errorf("register: %w", err)
	}

	s.logger.WithFields(logrus.Fields{"user_id": user.ID, "role": user.Role}).Info("User registered")
	return user, wallet, nil
}

func (s *userService) Login(ctx context.Context, email, password string) (*domain.User, error) {
	user, err := s.userRepo.GetUserByEmail(ctx, s.dbExecutor, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, util.ErrNotFound) {
			return nil, fmt.Errorf("%w: incorrect email or password", util.ErrUnauthorized)
		}
		return nil, fmt.Errorf("login: %w", err)
	}
	if !s.hasher.Verify(user.PasswordHash, password) {
		return nil, fmt.Errorf("%w: incorrect email or password", util.ErrUnauthorized)
	}
	return user, nil
}

func (s *userService) GetUser(ctx context.Context, userID int64) (*domain.User, error) {
	user, err := s.userRepo.GetUserByID(ctx, s.dbExecutor, userID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}
