package persistence

import (
	"github.com/shopspring/decimal"
)

// parseDecimal converts a database-returned numeric string to a decimal.
// Empty strings become zero.
func parseDecimal(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}
