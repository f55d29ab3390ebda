package money

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// StroopDecimals is the number of decimal places the ledger keeps for every asset
const StroopDecimals = 7

// ToStroops converts a human-readable ledger amount ("12.5000000") into base units.
// Digits beyond StroopDecimals are truncated, never rounded up.
func ToStroops(amountStr string) (*big.Int, error) {
	amountStr = strings.TrimSpace(amountStr)
	if amountStr == "" {
		return nil, fmt.Errorf("amount is required")
	}

	d, err := decimal.NewFromString(amountStr)
	if err != nil {
		return nil, fmt.Errorf("invalid amount format %q: %w", amountStr, err)
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("amount cannot be negative: %s", amountStr)
	}

	return d.Shift(StroopDecimals).Truncate(0).BigInt(), nil
}

// FromStroops renders base units as a trimmed decimal string ("150000000" -> "15")
func FromStroops(amount *big.Int) string {
	if amount == nil {
		return "0"
	}
	return decimal.NewFromBigInt(amount, -StroopDecimals).String()
}

// MustStroops is ToStroops for literals known to be valid. It panics otherwise.
func MustStroops(amountStr string) *big.Int {
	v, err := ToStroops(amountStr)
	if err != nil {
		panic(err)
	}
	return v
}
