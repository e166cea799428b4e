// internal/repository/loan_repo.go
package repository

import (
	"context"
	"time"

	"finflow-lending/internal/domain"

	"github.com/shopspring/decimal"
)

// LoanRepository defines the interface for loan data operations.
//
// State changes are conditional updates: they only touch a loan that is still
// in the expected status and report util.ErrInvalidStateTransition otherwise,
// which keeps concurrent approvals and repayments from double-applying.
type LoanRepository interface {
	CreateLoan(ctx context.Context, q DBExecutor, loan *domain.Loan) error
	// GetLoanByID returns util.ErrLoanNotFound when the loan does not exist.
	GetLoanByID(ctx context.Context, q DBExecutor, id int64) (*domain.Loan, error)
	// ListLoansByUserID returns a user's loans, newest first.
	ListLoansByUserID(ctx context.Context, q DBExecutor, userID int64) ([]domain.Loan, error)
	// ListLoansByStatus returns loans in status, oldest first.
	ListLoansByStatus(ctx context.Context, q DBExecutor, status domain.LoanStatus) ([]domain.Loan, error)
	// CountLoansByStatus counts a user's loans in any of the given statuses.
	CountLoansByStatus(ctx context.Context, q DBExecutor, userID int64, statuses ...domain.LoanStatus) (int, error)
	// ActivateLoan moves an APPLIED loan to ACTIVE and records who approved it.
	ActivateLoan(ctx context.Context, q DBExecutor, loanID, approvedBy int64, approvedAt time.Time) error
	// RejectLoan moves an APPLIED loan to REJECTED.
	RejectLoan(ctx context.Context, q DBExecutor, loanID int64, reason string, at time.Time) error
	// ApplyRepayment decrements an ACTIVE loan's outstanding amount, closing the loan
	// when it reaches zero, and returns the new outstanding amount and status.
	// util.ErrInvalidAmount is returned when the payment exceeds what is outstanding.
	ApplyRepayment(ctx context.Context, q DBExecutor, loanID int64, amount decimal.Decimal) (decimal.Decimal, domain.LoanStatus, error)
}
