package ledger

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// Per-asset decimal precision. All balances exposed by this package are
// human-unit decimals; conversion to and from the network's integer
// base units must go through these constants. Using the wrong precision
// silently corrupts amounts by orders of magnitude.
const (
	// VaultDecimals is the precision of the yield vault share token
	VaultDecimals = 18
	// BaseDecimals is the precision of the base-currency token
	BaseDecimals = 18
	// SecondaryDecimals is the precision of the secondary token
	SecondaryDecimals = 6
)

// FromBaseUnits converts an integer base-unit amount to a human-unit decimal
func FromBaseUnits(raw *big.Int, decimals int32) decimal.Decimal {
	if raw == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(raw, -decimals)
}

// ToBaseUnits converts a human-unit decimal to integer base units,
// truncating any precision beyond the asset's declared decimals.
func ToBaseUnits(amount decimal.Decimal, decimals int32) *big.Int {
	return amount.Shift(decimals).Truncate(0).BigInt()
}
