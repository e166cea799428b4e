// internal/domain/loan_test.go
package domain

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finflow-lending/internal/util"
)

func TestLoanStatusTransitions(t *testing.T) {
	allowed := map[LoanStatus][]LoanStatus{
		LoanStatusApplied:  {LoanStatusApproved, LoanStatusActive, LoanStatusRejected},
		LoanStatusApproved: {LoanStatusActive},
		LoanStatusActive:   {LoanStatusClosed},
	}
	all := []LoanStatus{LoanStatusApplied, LoanStatusApproved, LoanStatusActive, LoanStatusClosed, LoanStatusRejected}

	for _, from := range all {
		for _, to := range all {
			want := false
			for _, ok := range allowed[from] {
				if ok == to {
					want = true
				}
			}
			assert.Equal(t, want, from.CanTransitionTo(to), "%s -> %s", from, to)
		}
	}

	assert.False(t, LoanStatusApplied.IsDisbursed())
	assert.False(t, LoanStatusRejected.IsDisbursed())
	assert.True(t, LoanStatusActive.IsDisbursed())
	assert.True(t, LoanStatusClosed.IsDisbursed())
}

func TestValidateLoanTerms(t *testing.T) {
	twelve := decimal.NewFromInt(12)

	assert.NoError(t, ValidateLoanTerms(decimal.NewFromInt(1_000_000), 60, decimal.NewFromInt(50)))
	assert.NoError(t, ValidateLoanTerms(decimal.RequireFromString("0.01"), 1, decimal.Zero))

	assert.True(t, errors.Is(ValidateLoanTerms(decimal.Zero, 12, twelve), util.ErrInvalidAmount))
	assert.True(t, errors.Is(ValidateLoanTerms(decimal.RequireFromString("1000000.01"), 12, twelve), util.ErrInvalidAmount))
	assert.True(t, errors.Is(ValidateLoanTerms(decimal.NewFromInt(100), 61, twelve), util.ErrInvalidInput))
	assert.True(t, errors.Is(ValidateLoanTerms(decimal.NewFromInt(100), 12, decimal.NewFromInt(-1)), util.ErrInvalidInput))
	assert.True(t, errors.Is(ValidateLoanTerms(decimal.NewFromInt(100), 12, decimal.RequireFromString("12.345")), util.ErrInvalidInput))
}

func TestNewLoan(t *testing.T) {
	loan := NewLoan(3, decimal.NewFromInt(100000), 12, DefaultInterestRate)

	require.Equal(t, LoanStatusApplied, loan.Status)
	assert.Equal(t, int64(3), loan.UserID)
	assert.Equal(t, "8884.88", loan.EMIAmount.StringFixed(2))
	assert.True(t, loan.OutstandingAmount.Equal(loan.TotalAmount()))
	assert.Equal(t, "6618.56", loan.TotalInterest().StringFixed(2))
	assert.True(t, loan.IsOwnedBy(3))
	assert.False(t, loan.IsOwnedBy(4))
	assert.Equal(t, loan.CreatedAt, loan.UpdatedAt)
}

func TestClassifyRepayment(t *testing.T) {
	assert.Equal(t, RepaymentTypeFull, ClassifyRepayment(decimal.Zero))
	assert.Equal(t, RepaymentTypePartial, ClassifyRepayment(decimal.RequireFromString("0.01")))

	r := NewRepayment(1, decimal.RequireFromString("10.50"), decimal.NewFromInt(5), "k")
	assert.Equal(t, RepaymentStatusSuccess, r.Status)
	assert.True(t, r.Matches(1, decimal.RequireFromString("10.5")))
	assert.False(t, r.Matches(2, decimal.RequireFromString("10.5")))
	assert.False(t, r.Matches(1, decimal.NewFromInt(10)))
}
