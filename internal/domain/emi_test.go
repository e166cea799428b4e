// internal/domain/emi_test.go
package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestCalculateEMI(t *testing.T) {
	cases := []struct {
		name      string
		principal string
		rate      string
		tenure    int
		want      string
	}{
		{"StandardTwelveMonths", "100000", "12", 12, "8884.88"},
		{"TwoYears", "500000", "12", 24, "23536.74"},
		{"SmallLoan", "1000", "10", 12, "87.92"},
		{"SingleMonth", "1000", "12", 1, "1010.00"},
		{"ZeroRate", "120000", "0", 12, "10000.00"},
		{"ZeroRateRoundsToCents", "100", "0", 3, "33.33"},
		{"ZeroTenure", "1000", "12", 0, "0.00"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			emi := CalculateEMI(decimal.RequireFromString(tc.principal), decimal.RequireFromString(tc.rate), tc.tenure)
			assert.Equal(t, tc.want, emi.StringFixed(2))
			assert.True(t, HasMoneyScale(emi))
		})
	}
}

func TestQuoteEMI(t *testing.T) {
	quote := QuoteEMI(decimal.NewFromInt(100000), decimal.NewFromInt(12), 12)

	assert.Equal(t, "8884.88", quote.EMIAmount.StringFixed(2))
	assert.Equal(t, "106618.56", quote.TotalAmount.StringFixed(2))
	assert.Equal(t, "6618.56", quote.TotalInterest.StringFixed(2))
	assert.Equal(t, 12, quote.TenureMonths)
}
