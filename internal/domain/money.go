// internal/domain/money.go
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// MoneyScale is the number of decimal places money is carried with (the minor unit).
const MoneyScale = 2

// ToMinorUnits converts an amount to cents. Callers validate the scale first
// with HasMoneyScale; any extra precision is rounded here.
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Round(MoneyScale).Shift(MoneyScale).IntPart()
}

// FromMinorUnits converts cents back to an amount.
func FromMinorUnits(cents int64) decimal.Decimal {
	return decimal.New(cents, -MoneyScale)
}

// HasMoneyScale reports whether amount has no more than two decimal places.
func HasMoneyScale(amount decimal.Decimal) bool {
	return amount.Equal(amount.Round(MoneyScale))
}

// IsValidAmount reports whether amount is a positive, cent-precise money value.
func IsValidAmount(amount decimal.Decimal) bool {
	return amount.IsPositive() && HasMoneyScale(amount)
}

// Now is the timestamp used for new records. Microsecond precision matches what
// PostgreSQL stores, so a record read back equals the one that was written.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}
