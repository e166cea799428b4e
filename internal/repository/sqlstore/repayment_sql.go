// internal/repository/sqlstore/repayment_sql.go
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
	"finflow-lending/pkg/db"
)

type repaymentRow struct {
	ID             int64     `db:"id"`
	LoanID         int64     `db:"loan_id"`
	AmountCents    int64     `db:"amount_cents"`
	Type           string    `db:"type"`
	Status         string    `db:"status"`
	IdempotencyKey string    `db:"idempotency_key"`
	CreatedAt      time.Time `db:"created_at"`
}

func (r repaymentRow) toDomain() *domain.Repayment {
	return &domain.Repayment{
		ID:             r.ID,
		LoanID:         r.LoanID,
		Amount:         domain.FromMinorUnits(r.AmountCents),
		Type:           domain.RepaymentType(r.Type),
		Status:         domain.RepaymentStatus(r.Status),
		IdempotencyKey: r.IdempotencyKey,
		CreatedAt:      r.CreatedAt.UTC(),
	}
}

const repaymentColumns = `id, loan_id, amount_cents, type, status, idempotency_key, created_at`

// RepaymentRepository implements repository.RepaymentRepository on sqlx.
type RepaymentRepository struct{}

// NewRepaymentRepository creates a new RepaymentRepository.
func NewRepaymentRepository() repository.RepaymentRepository {
	return &RepaymentRepository{}
}

// CreateRepayment inserts a repayment. The UNIQUE idempotency_key constraint is
// what ultimately guarantees one repayment per key.
func (r *RepaymentRepository) CreateRepayment(ctx context.Context, q repository.DBExecutor, repayment *domain.Repayment) error {
	query := q.Rebind(`INSERT INTO repayments (loan_id, amount_cents, type, status, idempotency_key, created_at)
		VALUES (?, ?, ?, ?, ?, ?) RETURNING id`)
	err := q.QueryRowContext(ctx, query,
		repayment.LoanID,
		domain.ToMinorUnits(repayment.Amount),
		string(repayment.Type),
		string(repayment.Status),
		repayment.IdempotencyKey,
		repayment.CreatedAt,
	).Scan(&repayment.ID)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return fmt.Errorf("idempotency key %q: %w", repayment.IdempotencyKey, util.ErrDuplicateEntry)
		}
		return fmt.Errorf("failed to create repayment for loan %d: %w", repayment.LoanID, err)
	}
	return nil
}

// GetRepaymentByIdempotencyKey looks up the repayment recorded for key.
func (r *RepaymentRepository) GetRepaymentByIdempotencyKey(ctx context.Context, q repository.DBExecutor, key string) (*domain.Repayment, error) {
	var row repaymentRow
	query := q.Rebind(`SELECT ` + repaymentColumns + ` FROM repayments WHERE idempotency_key = ?`)
	if err := q.GetContext(ctx, &row, query, key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, util.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get repayment by idempotency key: %w", err)
	}
	return row.toDomain(), nil
}

// ListRepaymentsByLoanID returns a loan's repayments, newest first.
func (r *RepaymentRepository) ListRepaymentsByLoanID(ctx context.Context, q repository.DBExecutor, loanID int64) ([]domain.Repayment, error) {
	var rows []repaymentRow
	query := q.Rebind(`SELECT ` + repaymentColumns + ` FROM repayments WHERE loan_id = ? ORDER BY created_at DESC, id DESC`)
	if err := q.SelectContext(ctx, &rows, query, loanID); err != nil {
		return nil, fmt.Errorf("failed to list repayments for loan %d: %w", loanID, err)
	}
	repayments := make([]domain.Repayment, 0, len(rows))
	for _, row := range rows {
		repayments = append(repayments, *row.toDomain())
	}
	return repayments, nil
}
