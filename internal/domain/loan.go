// internal/domain/loan.go
package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal" // For precise monetary calculations

	"finflow-lending/internal/util"
)

// LoanStatus is a state in the loan lifecycle:
//
//	APPLIED -> APPROVED -> ACTIVE -> CLOSED
//	APPLIED -> REJECTED
//
// APPROVED only exists inside the disbursement unit of work; a persisted loan
// moves from APPLIED straight to ACTIVE with ApprovedBy/ApprovedAt recorded.
type LoanStatus string

const (
	LoanStatusApplied  LoanStatus = "APPLIED"
	LoanStatusApproved LoanStatus = "APPROVED"
	LoanStatusActive   LoanStatus = "ACTIVE"
	LoanStatusClosed   LoanStatus = "CLOSED"
	LoanStatusRejected LoanStatus = "REJECTED"
)

var loanTransitions = map[LoanStatus][]LoanStatus{
	LoanStatusApplied:  {LoanStatusApproved, LoanStatusActive, LoanStatusRejected},
	LoanStatusApproved: {LoanStatusActive},
	LoanStatusActive:   {LoanStatusClosed},
}

// CanTransitionTo reports whether the lifecycle allows moving from s to next.
func (s LoanStatus) CanTransitionTo(next LoanStatus) bool {
	for _, allowed := range loanTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsDisbursed reports whether the principal has already been paid out.
func (s LoanStatus) IsDisbursed() bool {
	return s == LoanStatusApproved || s == LoanStatusActive || s == LoanStatusClosed
}

// Origination limits.
var (
	MaxPrincipal        = decimal.NewFromInt(1_000_000)
	MaxEligibleAmount   = decimal.NewFromInt(500_000)
	MaxInterestRate     = decimal.NewFromInt(50)
	DefaultInterestRate = decimal.RequireFromString("12.00")
)

const (
	MinTenureMonths = 1
	MaxTenureMonths = 60
	// MaxOpenLoans is how many ACTIVE or APPROVED loans a user may hold at once.
	MaxOpenLoans = 2
)

// Loan is a borrower's loan. OutstandingAmount is set to EMI x tenure when the
// loan is created and only ever decreases, reaching zero exactly when it closes.
type Loan struct {
	ID                int64           `json:"id"`
	UserID            int64           `json:"user_id"`
	PrincipalAmount   decimal.Decimal `json:"principal_amount"`
	TenureMonths      int             `json:"tenure_months"`
	InterestRate      decimal.Decimal `json:"interest_rate"`
	EMIAmount         decimal.Decimal `json:"emi_amount"`
	OutstandingAmount decimal.Decimal `json:"outstanding_amount"`
	Status            LoanStatus      `json:"status"`
	ApprovedBy        *int64          `json:"approved_by,omitempty"`
	ApprovedAt        *time.Time      `json:"approved_at,omitempty"`
	RejectionReason   *string         `json:"rejection_reason,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// ValidateLoanTerms checks the origination ranges: principal in (0, 1,000,000]
// with cent precision, tenure in [1, 60] months and rate in [0, 50] percent.
func ValidateLoanTerms(principal decimal.Decimal, tenureMonths int, interestRate decimal.Decimal) error {
	if !IsValidAmount(principal) || principal.GreaterThan(MaxPrincipal) {
		return fmt.Errorf("%w: principal must be greater than 0 and at most %s", util.ErrInvalidAmount, MaxPrincipal)
	}
	if tenureMonths < MinTenureMonths || tenureMonths > MaxTenureMonths {
		return fmt.Errorf("%w: tenure must be between %d and %d months", util.ErrInvalidInput, MinTenureMonths, MaxTenureMonths)
	}
	if interestRate.IsNegative() || interestRate.GreaterThan(MaxInterestRate) || !HasMoneyScale(interestRate) {
		return fmt.Errorf("%w: interest rate must be between 0 and %s with at most 2 decimals", util.ErrInvalidInput, MaxInterestRate)
	}
	return nil
}

// NewLoan creates an APPLIED loan with its EMI and repayable total fixed.
// Terms must already have passed ValidateLoanTerms.
func NewLoan(userID int64, principal decimal.Decimal, tenureMonths int, interestRate decimal.Decimal) *Loan {
	quote := QuoteEMI(principal, interestRate, tenureMonths)
	now := Now()
	return &Loan{
		UserID:            userID,
		PrincipalAmount:   principal,
		TenureMonths:      tenureMonths,
		InterestRate:      interestRate,
		EMIAmount:         quote.EMIAmount,
		OutstandingAmount: quote.TotalAmount,
		Status:            LoanStatusApplied,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

// TotalAmount is the full amount repayable over the loan's life.
func (l *Loan) TotalAmount() decimal.Decimal {
	return l.EMIAmount.Mul(decimal.NewFromInt(int64(l.TenureMonths)))
}

// TotalInterest is the interest component of TotalAmount.
func (l *Loan) TotalInterest() decimal.Decimal {
	return l.TotalAmount().Sub(l.PrincipalAmount)
}

// IsOwnedBy reports whether userID is the borrower.
func (l *Loan) IsOwnedBy(userID int64) bool {
	return l.UserID == userID
}
