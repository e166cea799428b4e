// internal/repository/sqlstore/transaction_sql.go
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"finflow-lending/internal/domain"
	"finflow-lending/internal/repository"
	"finflow-lending/internal/util"

	"github.com/shopspring/decimal"
)

type transactionRow struct {
	ID          int64     `db:"id"`
	UserID      int64     `db:"user_id"`
	AmountCents int64     `db:"amount_cents"`
	Type        string    `db:"type"`
	Source      string    `db:"source"`
	ReferenceID string    `db:"reference_id"`
	Description string    `db:"description"`
	CreatedAt   time.Time `db:"created_at"`
}

func (r transactionRow) toDomain() *domain.Transaction {
	return &domain.Transaction{
		ID:          r.ID,
		UserID:      r.UserID,
		Amount:      domain.FromMinorUnits(r.AmountCents),
		Type:        domain.TransactionType(r.Type),
		Source:      domain.TransactionSource(r.Source),
		ReferenceID: r.ReferenceID,
		Description: r.Description,
		CreatedAt:   r.CreatedAt.UTC(),
	}
}

const transactionColumns = `id, user_id, amount_cents, type, source, reference_id, description, created_at`

// TransactionRepository implements repository.TransactionRepository on sqlx.
type TransactionRepository struct{}

// NewTransactionRepository creates a new TransactionRepository.
func NewTransactionRepository() repository.TransactionRepository {
	return &TransactionRepository{}
}

// CreateTransaction appends a ledger entry using the provided DBExecutor.
func (r *TransactionRepository) CreateTransaction(ctx context.Context, q repository.DBExecutor, transaction *domain.Transaction) error {
	query := q.Rebind(`INSERT INTO transactions (user_id, amount_cents, type, source, reference_id, description, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?) RETURNING id`)
	err := q.QueryRowContext(ctx, query,
		transaction.UserID,
		domain.ToMinorUnits(transaction.Amount),
		string(transaction.Type),
		string(transaction.Source),
		transaction.ReferenceID,
		transaction.Description,
		transaction.CreatedAt,
	).Scan(&transaction.ID)
	if err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}

// ListTransactionsByUserID retrieves up to limit ledger entries for a user, newest first.
func (r *TransactionRepository) ListTransactionsByUserID(ctx context.Context, q repository.DBExecutor, userID int64, limit int) ([]domain.Transaction, error) {
	var rows []transactionRow
	query := q.Rebind(`SELECT ` + transactionColumns + ` FROM transactions
		WHERE user_id = ? ORDER BY created_at DESC, id DESC LIMIT ?`)
	if err := q.SelectContext(ctx, &rows, query, userID, limit); err != nil {
		return nil, fmt.Errorf("failed to get transactions for user %d: %w", userID, err)
	}
	transactions := make([]domain.Transaction, 0, len(rows))
	for _, row := range rows {
		transactions = append(transactions, *row.toDomain())
	}
	return transactions, nil
}

// GetTransactionByReference finds the ledger entry written for a source object.
func (r *TransactionRepository) GetTransactionByReference(ctx context.Context, q repository.DBExecutor, source domain.TransactionSource, referenceID string) (*domain.Transaction, error) {
	var row transactionRow
	query := q.Rebind(`SELECT ` + transactionColumns + ` FROM transactions
		WHERE source = ? AND reference_id = ? ORDER BY id LIMIT 1`)
	if err := q.GetContext(ctx, &row, query, string(source), referenceID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, util.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get %s transaction %q: %w", source, referenceID, err)
	}
	return row.toDomain(), nil
}

// SumTransactionsByUserID totals a user's credits and debits.
func (r *TransactionRepository) SumTransactionsByUserID(ctx context.Context, q repository.DBExecutor, userID int64) (decimal.Decimal, decimal.Decimal, error) {
	var totals struct {
		Credits int64 `db:"credits"`
		Debits  int64 `db:"debits"`
	}
	query := q.Rebind(`SELECT
		COALESCE(SUM(CASE WHEN type = 'CREDIT' THEN amount_cents ELSE 0 END), 0) AS credits,
		COALESCE(SUM(CASE WHEN type = 'DEBIT' THEN amount_cents ELSE 0 END), 0) AS debits
		FROM transactions WHERE user_id = ?`)
	if err := q.GetContext(ctx, &totals, query, userID); err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("failed to sum transactions for user %d: %w", userID, err)
	}
	return domain.FromMinorUnits(totals.Credits), domain.FromMinorUnits(totals.Debits), nil
}
