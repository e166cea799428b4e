// internal/repository/repayment_repo.go
package repository

import (
	"context"

	"finflow-lending/internal/domain"
)

// RepaymentRepository defines the interface for repayment data operations.
type RepaymentRepository interface {
	// CreateRepayment inserts the repayment and sets its ID. A reused idempotency
	// key yields util.ErrDuplicateEntry.
	CreateRepayment(ctx context.Context, q DBExecutor, repayment *domain.Repayment) error
	// GetRepaymentByIdempotencyKey returns util.ErrNotFound when the key is unused.
	GetRepaymentByIdempotencyKey(ctx context.Context, q DBExecutor, key string) (*domain.Repayment, error)
	// ListRepaymentsByLoanID returns a loan's repayments, newest first.
	ListRepaymentsByLoanID(ctx context.Context, q DBExecutor, loanID int64) ([]domain.Repayment, error)
}
