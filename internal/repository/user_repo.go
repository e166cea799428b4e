// internal/repository/user_repo.go
package repository

import (
	"context"

	"finflow-lending/internal/domain"
)

// UserRepository defines the interface for user data operations.
type UserRepository interface {
	// CreateUser inserts the user and sets its ID. A taken email yields util.ErrDuplicateEntry.
	CreateUser(ctx context.Context, q DBExecutor, user *domain.User) error
	GetUserByID(ctx context.Context, q DBExecutor, id int64) (*domain.User, error)
	GetUserByEmail(ctx context.Context, q DBExecutor, email string) (*domain.User, error)
}
