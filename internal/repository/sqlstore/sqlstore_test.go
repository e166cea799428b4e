// internal/repository/sqlstore/sqlstore_test.go
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finflow-lending/internal/domain"
	"finflow-lending/internal/util"
)

// newMockDB returns an sqlx handle that rebinds to PostgreSQL placeholders.
func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		mockDB.Close()
	})
	return sqlx.NewDb(mockDB, "postgres"), mock
}

func TestUpdateWalletBalance(t *testing.T) {
	ctx := context.Background()
	query := regexp.QuoteMeta(`UPDATE wallets SET balance_cents = balance_cents + $1, updated_at = $2`)

	t.Run("ReturnsNewBalance", func(t *testing.T) {
		conn, mock := newMockDB(t)
		mock.ExpectQuery(query).
			WithArgs(int64(-500), sqlmock.AnyArg(), int64(7)).
			WillReturnRows(sqlmock.NewRows([]string{"balance_cents"}).AddRow(int64(1050)))

		balance, err := NewWalletRepository().UpdateWalletBalance(ctx, conn, 7, decimal.NewFromInt(-5))
		require.NoError(t, err)
		assert.Equal(t, "10.5", balance.String())
	})

	t.Run("CheckViolationIsInsufficientFunds", func(t *testing.T) {
		conn, mock := newMockDB(t)
		mock.ExpectQuery(query).WillReturnError(&pq.Error{Code: "23514", Constraint: "wallets_balance_non_negative"})

		_, err := NewWalletRepository().UpdateWalletBalance(ctx, conn, 7, decimal.NewFromInt(-5))
		assert.True(t, errors.Is(err, util.ErrInsufficientFunds))
	})

	t.Run("MissingWallet", func(t *testing.T) {
		conn, mock := newMockDB(t)
		mock.ExpectQuery(query).WillReturnRows(sqlmock.NewRows([]string{"balance_cents"}))

		_, err := NewWalletRepository().UpdateWalletBalance(ctx, conn, 7, decimal.NewFromInt(5))
		assert.True(t, errors.Is(err, util.ErrWalletNotFound))
	})

	t.Run("OtherErrorsPassThrough", func(t *testing.T) {
		conn, mock := newMockDB(t)
		mock.ExpectQuery(query).WillReturnError(sql.ErrConnDone)

		_, err := NewWalletRepository().UpdateWalletBalance(ctx, conn, 7, decimal.NewFromInt(5))
		assert.True(t, errors.Is(err, sql.ErrConnDone))
		assert.False(t, errors.Is(err, util.ErrInsufficientFunds))
	})
}

func TestApplyRepayment(t *testing.T) {
	ctx := context.Background()
	query := regexp.QuoteMeta(`UPDATE loans SET outstanding_cents = outstanding_cents - $1`)

	t.Run("ClosesAtZero", func(t *testing.T) {
		conn, mock := newMockDB(t)
		mock.ExpectQuery(query).
			WithArgs(int64(250000), int64(250000), "CLOSED", sqlmock.AnyArg(), int64(3), "ACTIVE").
			WillReturnRows(sqlmock.NewRows([]string{"outstanding_cents", "status"}).AddRow(int64(0), "CLOSED"))

		outstanding, status, err := NewLoanRepository().ApplyRepayment(ctx, conn, 3, decimal.NewFromInt(2500))
		require.NoError(t, err)
		assert.True(t, outstanding.IsZero())
		assert.Equal(t, domain.LoanStatusClosed, status)
	})

	t.Run("CheckViolationIsInvalidAmount", func(t *testing.T) {
		conn, mock := newMockDB(t)
		mock.ExpectQuery(query).WillReturnError(&pq.Error{Code: "23514", Constraint: "loans_outstanding_non_negative"})

		_, _, err := NewLoanRepository().ApplyRepayment(ctx, conn, 3, decimal.NewFromInt(2500))
		assert.True(t, errors.Is(err, util.ErrInvalidAmount))
	})

	t.Run("NoActiveRowIsInvalidStateTransition", func(t *testing.T) {
		conn, mock := newMockDB(t)
		mock.ExpectQuery(query).WillReturnRows(sqlmock.NewRows([]string{"outstanding_cents", "status"}))

		_, _, err := NewLoanRepository().ApplyRepayment(ctx, conn, 3, decimal.NewFromInt(2500))
		assert.True(t, errors.Is(err, util.ErrInvalidStateTransition))
	})
}

func TestActivateLoanIsConditional(t *testing.T) {
	ctx := context.Background()
	query := regexp.QuoteMeta(`UPDATE loans SET status = $1, approved_by = $2, approved_at = $3, updated_at = $4`)
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	conn, mock := newMockDB(t)
	mock.ExpectExec(query).
		WithArgs("ACTIVE", int64(9), at, at, int64(4), "APPLIED").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(query).
		WithArgs("ACTIVE", int64(9), at, at, int64(4), "APPLIED").
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := NewLoanRepository()
	require.NoError(t, repo.ActivateLoan(ctx, conn, 4, 9, at))
	err := repo.ActivateLoan(ctx, conn, 4, 9, at)
	assert.True(t, errors.Is(err, util.ErrInvalidStateTransition))
}

func TestCountLoansByStatusExpandsStatuses(t *testing.T) {
	conn, mock := newMockDB(t)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM loans WHERE user_id = $1 AND status IN ($2, $3)`)).
		WithArgs(int64(2), "ACTIVE", "APPROVED").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(2)))

	count, err := NewLoanRepository().CountLoansByStatus(context.Background(), conn, 2, domain.LoanStatusActive, domain.LoanStatusApproved)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestGetLoanByIDMapsRow(t *testing.T) {
	ctx := context.Background()
	created := time.Date(2026, 2, 1, 9, 30, 0, 123000, time.UTC)

	t.Run("Found", func(t *testing.T) {
		conn, mock := newMockDB(t)
		rows := sqlmock.NewRows([]string{
			"id", "user_id", "principal_cents", "tenure_months", "interest_rate_bps", "emi_cents",
			"outstanding_cents", "status", "approved_by", "approved_at", "rejection_reason", "created_at", "updated_at",
		}).AddRow(int64(11), int64(2), int64(10000000), int64(12), int64(1250), int64(890000), int64(10680000),
			"ACTIVE", int64(1), created, nil, created, created)
		mock.ExpectQuery(regexp.QuoteMeta(`FROM loans WHERE id = $1`)).WithArgs(int64(11)).WillReturnRows(rows)

		loan, err := NewLoanRepository().GetLoanByID(ctx, conn, 11)
		require.NoError(t, err)
		assert.Equal(t, "100000", loan.PrincipalAmount.String())
		assert.Equal(t, "12.5", loan.InterestRate.String())
		assert.Equal(t, "8900", loan.EMIAmount.String())
		assert.Equal(t, "106800", loan.OutstandingAmount.String())
		assert.Equal(t, domain.LoanStatusActive, loan.Status)
		require.NotNil(t, loan.ApprovedBy)
		assert.Equal(t, int64(1), *loan.ApprovedBy)
		require.NotNil(t, loan.ApprovedAt)
		assert.True(t, created.Equal(*loan.ApprovedAt))
		assert.Nil(t, loan.RejectionReason)
	})

	t.Run("Missing", func(t *testing.T) {
		conn, mock := newMockDB(t)
		mock.ExpectQuery(regexp.QuoteMeta(`FROM loans WHERE id = $1`)).WillReturnError(sql.ErrNoRows)

		_, err := NewLoanRepository().GetLoanByID(ctx, conn, 11)
		assert.True(t, errors.Is(err, util.ErrLoanNotFound))
		assert.True(t, errors.Is(err, util.ErrNotFound))
	})
}

func TestCreateRepaymentDuplicateKey(t *testing.T) {
	conn, mock := newMockDB(t)
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO repayments`)).
		WithArgs(int64(5), int64(12345), "PARTIAL", "SUCCESS", "key-1", sqlmock.AnyArg()).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "repayments_idempotency_key_unique"})

	repayment := domain.NewRepayment(5, decimal.RequireFromString("123.45"), decimal.NewFromInt(10), "key-1")
	err := NewRepaymentRepository().CreateRepayment(context.Background(), conn, repayment)
	assert.True(t, errors.Is(err, util.ErrDuplicateEntry))
}

func TestGetRepaymentByIdempotencyKeyUnused(t *testing.T) {
	conn, mock := newMockDB(t)
	mock.ExpectQuery(regexp.QuoteMeta(`FROM repayments WHERE idempotency_key = $1`)).
		WithArgs("nope").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := NewRepaymentRepository().GetRepaymentByIdempotencyKey(context.Background(), conn, "nope")
	assert.True(t, errors.Is(err, util.ErrNotFound))
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	conn, mock := newMockDB(t)
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO users`)).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "users_email_key"})

	user := domain.NewUser("a@example.com", "A", "hash", domain.RoleUser)
	err := NewUserRepository().CreateUser(context.Background(), conn, user)
	assert.True(t, errors.Is(err, util.ErrDuplicateEntry))
}

func TestSumTransactionsByUserID(t *testing.T) {
	conn, mock := newMockDB(t)
	mock.ExpectQuery(regexp.QuoteMeta(`FROM transactions WHERE user_id = $1`)).
		WithArgs(int64(8)).
		WillReturnRows(sqlmock.NewRows([]string{"credits", "debits"}).AddRow(int64(1000050), int64(25)))

	credits, debits, err := NewTransactionRepository().SumTransactionsByUserID(context.Background(), conn, 8)
	require.NoError(t, err)
	assert.Equal(t, "10000.5", credits.String())
	assert.Equal(t, "0.25", debits.String())
}
