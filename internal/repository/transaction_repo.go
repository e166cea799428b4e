// internal/repository/transaction_repo.go
package repository

import (
	"context"

	"finflow-lending/internal/domain"

	"github.com/shopspring/decimal"
)

// TransactionRepository defines the interface for ledger data operations.
// The ledger is append-only: there is no update or delete.
type TransactionRepository interface {
	// CreateTransaction appends an entry and sets its ID.
	CreateTransaction(ctx context.Context, q DBExecutor, transaction *domain.Transaction) error
	// ListTransactionsByUserID returns up to limit entries, newest first.
	ListTransactionsByUserID(ctx context.Context, q DBExecutor, userID int64, limit int) ([]domain.Transaction, error)
	// GetTransactionByReference finds the entry a loan, repayment or top-up produced.
	GetTransactionByReference(ctx context.Context, q DBExecutor, source domain.TransactionSource, referenceID string) (*domain.Transaction, error)
	// SumTransactionsByUserID totals a user's credits and debits.
	SumTransactionsByUserID(ctx context.Context, q DBExecutor, userID int64) (credits, debits decimal.Decimal, err error)
}
