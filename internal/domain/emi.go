// internal/domain/emi.go
package domain

import "github.com/shopspring/decimal"

// emiPrecision is the number of decimal places kept for intermediate EMI
// arithmetic; only the final installment is rounded to cents.
const emiPrecision = 24

var (
	one            = decimal.NewFromInt(1)
	monthsPerYear  = decimal.NewFromInt(12)
	percentDivisor = decimal.NewFromInt(100)
	monthlyDivisor = monthsPerYear.Mul(percentDivisor)
)

// CalculateEMI returns the equated monthly installment for a reducing-balance loan:
//
//	r   = annualRate / 12 / 100
//	EMI = P * r * (1+r)^n / ((1+r)^n - 1)     (EMI = P / n when r is zero)
//
// rounded half-up to cents. A non-positive tenure yields zero.
func CalculateEMI(principal, annualRate decimal.Decimal, tenureMonths int) decimal.Decimal {
	if tenureMonths <= 0 {
		return decimal.Zero
	}
	n := decimal.NewFromInt(int64(tenureMonths))
	r := annualRate.DivRound(monthlyDivisor, emiPrecision)
	if r.IsZero() {
		return principal.DivRound(n, MoneyScale)
	}

	onePlusR := one.Add(r)
	growth := one
	for i := 0; i < tenureMonths; i++ {
		growth = growth.Mul(onePlusR).Round(emiPrecision)
	}

	emi := principal.Mul(r).Mul(growth).DivRound(growth.Sub(one), emiPrecision)
	return emi.Round(MoneyScale)
}

// EMIQuote is the repayment schedule summary shown before applying.
type EMIQuote struct {
	PrincipalAmount decimal.Decimal `json:"principal_amount"`
	InterestRate    decimal.Decimal `json:"interest_rate"`
	TenureMonths    int             `json:"tenure_months"`
	EMIAmount       decimal.Decimal `json:"emi_amount"`
	TotalInterest   decimal.Decimal `json:"total_interest"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
}

// QuoteEMI computes the installment and the totals it implies.
func QuoteEMI(principal, annualRate decimal.Decimal, tenureMonths int) EMIQuote {
	emi := CalculateEMI(principal, annualRate, tenureMonths)
	total := emi.Mul(decimal.NewFromInt(int64(tenureMonths)))
	return EMIQuote{
		PrincipalAmount: principal,
		InterestRate:    annualRate,
		TenureMonths:    tenureMonths,
		EMIAmount:       emi,
		TotalInterest:   total.Sub(principal),
		TotalAmount:     total,
	}
}
