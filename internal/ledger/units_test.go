package ledger

import (
	"math/big"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestFromBaseUnits(t *testing.T) {
	// 1.5 units at 18 decimals
	raw, _ := new(big.Int).SetString("1500000000000000000", 10)
	amount := FromBaseUnits(raw, BaseDecimals)
	assert.True(t, amount.Equal(decimal.NewFromFloat(1.5)), "got %s", amount)

	// 2.75 units at 6 decimals
	amount = FromBaseUnits(big.NewInt(2750000), SecondaryDecimals)
	assert.True(t, amount.Equal(decimal.NewFromFloat(2.75)), "got %s", amount)
}

func TestToBaseUnits(t *testing.T) {
	raw := ToBaseUnits(decimal.NewFromFloat(1.5), BaseDecimals)
	expected, _ := new(big.Int).SetString("1500000000000000000", 10)
	assert.Zero(t, raw.Cmp(expected), "got %s", raw)

	raw = ToBaseUnits(decimal.NewFromFloat(2.75), SecondaryDecimals)
	assert.Zero(t, raw.Cmp(big.NewInt(2750000)), "got %s", raw)
}

func TestUnitsRoundTripProperty(t *testing.T) {
	properties := gopter.NewProperties(gopter.DefaultTestParameters())

	properties.Property("integer amounts survive a units round trip", prop.ForAll(
		func(n int64) bool {
			amount := decimal.NewFromInt(n)
			raw := ToBaseUnits(amount, BaseDecimals)
			return FromBaseUnits(raw, BaseDecimals).Equal(amount)
		},
		gen.Int64Range(0, 1_000_000_000),
	))

	properties.TestingRun(t)
}
