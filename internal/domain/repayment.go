// internal/domain/repayment.go
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type RepaymentType string

const (
	RepaymentTypePartial RepaymentType = "PARTIAL"
	RepaymentTypeFull    RepaymentType = "FULL"
)

type RepaymentStatus string

const (
	RepaymentStatusSuccess RepaymentStatus = "SUCCESS"
	RepaymentStatusFailed  RepaymentStatus = "FAILED"
	RepaymentStatusPending RepaymentStatus = "PENDING"
)

// Repayment is a single payment against a loan. It is written once per
// idempotency key and never changed afterwards.
type Repayment struct {
	ID             int64           `json:"id"`
	LoanID         int64           `json:"loan_id"`
	Amount         decimal.Decimal `json:"amount"`
	Type           RepaymentType   `json:"type"`
	Status         RepaymentStatus `json:"status"`
	IdempotencyKey string          `json:"idempotency_key"`
	CreatedAt      time.Time       `json:"created_at"`
}

// ClassifyRepayment returns FULL when the payment leaves nothing outstanding.
func ClassifyRepayment(newOutstanding decimal.Decimal) RepaymentType {
	if newOutstanding.Sign() <= 0 {
		return RepaymentTypeFull
	}
	return RepaymentTypePartial
}

// NewRepayment creates a successful repayment given the loan's outstanding
// amount after the payment was applied.
func NewRepayment(loanID int64, amount, newOutstanding decimal.Decimal, idempotencyKey string) *Repayment {
	return &Repayment{
		LoanID:         loanID,
		Amount:         amount,
		Type:           ClassifyRepayment(newOutstanding),
		Status:         RepaymentStatusSuccess,
		IdempotencyKey: idempotencyKey,
		CreatedAt:      Now(),
	}
}

// Matches reports whether a replayed request carries the same loan and amount
// as the stored repayment.
func (r *Repayment) Matches(loanID int64, amount decimal.Decimal) bool {
	return r.LoanID == loanID && r.Amount.Equal(amount)
}
