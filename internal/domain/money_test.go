// internal/domain/money_test.go
package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestMinorUnits(t *testing.T) {
	assert.Equal(t, int64(12345), ToMinorUnits(decimal.RequireFromString("123.45")))
	assert.Equal(t, int64(-500), ToMinorUnits(decimal.NewFromInt(-5)))
	assert.Equal(t, int64(1), ToMinorUnits(decimal.RequireFromString("0.005")))
	assert.Equal(t, "123.45", FromMinorUnits(12345).String())
	assert.Equal(t, "0", FromMinorUnits(0).String())
}

func TestIsValidAmount(t *testing.T) {
	assert.True(t, IsValidAmount(decimal.RequireFromString("0.01")))
	assert.True(t, IsValidAmount(decimal.RequireFromString("10.50")))
	assert.False(t, IsValidAmount(decimal.Zero))
	assert.False(t, IsValidAmount(decimal.NewFromInt(-1)))
	assert.False(t, IsValidAmount(decimal.RequireFromString("1.001")))
}

func TestNowIsUTCMicroseconds(t *testing.T) {
	now := Now()
	assert.Equal(t, time.UTC, now.Location())
	assert.Zero(t, now.Nanosecond()%1000)
}

func TestTransactionSignedAmount(t *testing.T) {
	credit := NewTransaction(1, decimal.NewFromInt(10), TransactionTypeCredit, TransactionSourceWalletTopUp, "r", "")
	debit := NewTransaction(1, decimal.NewFromInt(10), TransactionTypeDebit, TransactionSourceEMIPayment, "r", "")

	assert.Equal(t, "10", credit.SignedAmount().String())
	assert.Equal(t, "-10", debit.SignedAmount().String())
}
