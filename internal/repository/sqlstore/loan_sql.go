// internal/repository/sqlstore/loan_sql.go
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

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

// Interest rates are stored in basis points, i.e. with the same two-place
// scale as money.
type loanRow struct {
	ID               int64          `db:"id"`
	UserID           int64          `db:"user_id"`
	PrincipalCents   int64          `db:"principal_cents"`
	TenureMonths     int            `db:"tenure_months"`
	InterestRateBps  int64          `db:"interest_rate_bps"`
	EMICents         int64          `db:"emi_cents"`
	OutstandingCents int64          `db:"outstanding_cents"`
	Status           string         `db:"status"`
	ApprovedBy       sql.NullInt64  `db:"approved_by"`
	ApprovedAt       sql.NullTime   `db:"approved_at"`
	RejectionReason  sql.NullString `db:"rejection_reason"`
	CreatedAt        time.Time      `db:"created_at"`
	UpdatedAt        time.Time      `db:"updated_at"`
}

func (r loanRow) toDomain() *domain.Loan {
	loan := &domain.Loan{
		ID:                r.ID,
		UserID:            r.UserID,
		PrincipalAmount:   domain.FromMinorUnits(r.PrincipalCents),
		TenureMonths:      r.TenureMonths,
		InterestRate:      domain.FromMinorUnits(r.InterestRateBps),
		EMIAmount:         domain.FromMinorUnits(r.EMICents),
		OutstandingAmount: domain.FromMinorUnits(r.OutstandingCents),
		Status:            domain.LoanStatus(r.Status),
		CreatedAt:         r.CreatedAt.UTC(),
		UpdatedAt:         r.UpdatedAt.UTC(),
	}
	if r.ApprovedBy.Valid {
		approvedBy := r.ApprovedBy.Int64
		loan.ApprovedBy = &approvedBy
	}
	if r.ApprovedAt.Valid {
		approvedAt := r.ApprovedAt.Time.UTC()
		loan.ApprovedAt = &approvedAt
	}
	if r.RejectionReason.Valid {
		reason := r.RejectionReason.String
		loan.RejectionReason = &reason
	}
	return loan
}

func loansToDomain(rows []loanRow) []domain.Loan {
	loans := make([]domain.Loan, 0, len(rows))
	for _, row := range rows {
		loans = append(loans, *row.toDomain())
	}
	return loans
}

const loanColumns = `id, user_id, principal_cents, tenure_months, interest_rate_bps, emi_cents,
	outstanding_cents, status, approved_by, approved_at, rejection_reason, created_at, updated_at`

// LoanRepository implements repository.LoanRepository on sqlx.
type LoanRepository struct{}

// NewLoanRepository creates a new LoanRepository.
func NewLoanRepository() repository.LoanRepository {
	return &LoanRepository{}
}

// CreateLoan inserts a new loan and sets its ID.
func (r *LoanRepository) CreateLoan(ctx context.Context, q repository.DBExecutor, loan *domain.Loan) error {
	query := q.Rebind(`INSERT INTO loans (user_id, principal_cents, tenure_months, interest_rate_bps, emi_cents,
		outstanding_cents, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`)
	err := q.QueryRowContext(ctx, query,
		loan.UserID,
		domain.ToMinorUnits(loan.PrincipalAmount),
		loan.TenureMonths,
		domain.ToMinorUnits(loan.InterestRate),
		domain.ToMinorUnits(loan.EMIAmount),
		domain.ToMinorUnits(loan.OutstandingAmount),
		string(loan.Status),
		loan.CreatedAt,
		loan.UpdatedAt,
	).Scan(&loan.ID)
	if err != nil {
		return fmt.Errorf("failed to create loan for user %d: %w", loan.UserID, err)
	}
	return nil
}

// GetLoanByID retrieves a loan by its ID.
func (r *LoanRepository) GetLoanByID(ctx context.Context, q repository.DBExecutor, id int64) (*domain.Loan, error) {
	var row loanRow
	query := q.Rebind(`SELECT ` + loanColumns + ` FROM loans WHERE id = ?`)
	if err := q.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, util.ErrLoanNotFound
		}
		return nil, fmt.Errorf("failed to get loan %d: %w", id, err)
	}
	return row.toDomain(), nil
}

// ListLoansByUserID returns a user's loans, newest first.
func (r *LoanRepository) ListLoansByUserID(ctx context.Context, q repository.DBExecutor, userID int64) ([]domain.Loan, error) {
	var rows []loanRow
	query := q.Rebind(`SELECT ` + loanColumns + ` FROM loans WHERE user_id = ? ORDER BY created_at DESC, id DESC`)
	if err := q.SelectContext(ctx, &rows, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list loans for user %d: %w", userID, err)
	}
	return loansToDomain(rows), nil
}

// ListLoansByStatus returns all loans in status, oldest first.
func (r *LoanRepository) ListLoansByStatus(ctx context.Context, q repository.DBExecutor, status domain.LoanStatus) ([]domain.Loan, error) {
	var rows []loanRow
	query := q.Rebind(`SELECT ` + loanColumns + ` FROM loans WHERE status = ? ORDER BY created_at ASC, id ASC`)
	if err := q.SelectContext(ctx, &rows, query, string(status)); err != nil {
		return nil, fmt.Errorf("failed to list %s loans: %w", status, err)
	}
	return loansToDomain(rows), nil
}

// CountLoansByStatus counts a user's loans in any of statuses.
func (r *LoanRepository) CountLoansByStatus(ctx context.Context, q repository.DBExecutor, userID int64, statuses ...domain.LoanStatus) (int, error) {
	if len(statuses) == 0 {
		return 0, nil
	}
	names := make([]string, len(statuses))
	for i, s := range statuses {
		names[i] = string(s)
	}

	query, args, err := sqlx.In(`SELECT COUNT(*) FROM loans WHERE user_id = ? AND status IN (?)`, userID, names)
	if err != nil {
		return 0, fmt.Errorf("failed to build loan count query: %w", err)
	}
	var count int
	if err := q.GetContext(ctx, &count, q.Rebind(query), args...); err != nil {
		return 0, fmt.Errorf("failed to count loans for user %d: %w", userID, err)
	}
	return count, nil
}

// ActivateLoan moves an APPLIED loan to ACTIVE. The APPROVED step is recorded
// through approved_by/approved_at.
func (r *LoanRepository) ActivateLoan(ctx context.Context, q repository.DBExecutor, loanID, approvedBy int64, approvedAt time.Time) error {
	query := q.Rebind(`UPDATE loans SET status = ?, approved_by = ?, approved_at = ?, updated_at = ?
		WHERE id = ? AND status = ?`)
	result, err := q.ExecContext(ctx, query,
		string(domain.LoanStatusActive), approvedBy, approvedAt, approvedAt, loanID, string(domain.LoanStatusApplied))
	if err != nil {
		return fmt.Errorf("failed to activate loan %d: %w", loanID, err)
	}
	return expectOneRow(result, loanID)
}

// RejectLoan moves an APPLIED loan to REJECTED.
func (r *LoanRepository) RejectLoan(ctx context.Context, q repository.DBExecutor, loanID int64, reason string, at time.Time) error {
	query := q.Rebind(`UPDATE loans SET status = ?, rejection_reason = ?, updated_at = ?
		WHERE id = ? AND status = ?`)
	result, err := q.ExecContext(ctx, query,
		string(domain.LoanStatusRejected), reason, at, loanID, string(domain.LoanStatusApplied))
	if err != nil {
		return fmt.Errorf("failed to reject loan %d: %w", loanID, err)
	}
	return expectOneRow(result, loanID)
}

// ApplyRepayment decrements outstanding_cents and closes the loan in the same
// statement when the payment clears it. The outstanding CHECK constraint rejects
// a payment that a concurrent repayment has made too large.
func (r *LoanRepository) ApplyRepayment(ctx context.Context, q repository.DBExecutor, loanID int64, amount decimal.Decimal) (decimal.Decimal, domain.LoanStatus, error) {
	cents := domain.ToMinorUnits(amount)
	query := q.Rebind(`UPDATE loans SET outstanding_cents = outstanding_cents - ?,
		status = CASE WHEN outstanding_cents = ? THEN ? ELSE status END,
		updated_at = ?
		WHERE id = ? AND status = ?
		RETURNING outstanding_cents, status`)

	var (
		outstandingCents int64
		status           string
	)
	err := q.QueryRowContext(ctx, query,
		cents, cents, string(domain.LoanStatusClosed), domain.Now(), loanID, string(domain.LoanStatusActive),
	).Scan(&outstandingCents, &status)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return decimal.Zero, "", fmt.Errorf("loan %d is no longer active: %w", loanID, util.ErrInvalidStateTransition)
	case db.IsCheckViolation(err):
		return decimal.Zero, "", fmt.Errorf("payment exceeds outstanding amount of loan %d: %w", loanID, util.ErrInvalidAmount)
	case err != nil:
		return decimal.Zero, "", fmt.Errorf("failed to apply repayment to loan %d: %w", loanID, err)
	}
	return domain.FromMinorUnits(outstandingCents), domain.LoanStatus(status), nil
}

// expectOneRow turns a conditional update that matched nothing into
// util.ErrInvalidStateTransition.
func expectOneRow(result sql.Result, loanID int64) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected for loan %d: %w", loanID, err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("loan %d is not in %s status: %w", loanID, domain.LoanStatusApplied, util.ErrInvalidStateTransition)
	}
	return nil
}
