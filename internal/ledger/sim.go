package ledger

import (
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// demoTxPrefix marks synthesized transaction identifiers. Simulated ids
// are deliberately not shaped like real 32-byte hashes; callers in
// simulated mode must not depend on the format.
const demoTxPrefix = "0xdemo"

// newDemoTxID synthesizes a transaction identifier for the simulated path
func newDemoTxID() string {
	return demoTxPrefix + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// IsDemoTxID reports whether a transaction id was synthesized by the
// simulated path rather than produced by the network.
func IsDemoTxID(txID string) bool {
	return strings.HasPrefix(txID, demoTxPrefix)
}

// simVault is the deterministic in-memory stand-in used whenever the
// live network is unreachable. It keeps the same interface contracts as
// the live path so drills compose like real sequences: a simulated
// deposit moves liquid balance into shares, a simulated SOS drains both.
type simVault struct {
	mu sync.Mutex

	shares    decimal.Decimal
	liquid    decimal.Decimal
	secondary decimal.Decimal
	apy       float64
}

func newSimVault(staked, liquid, secondary decimal.Decimal, apy float64) *simVault {
	return &simVault{
		shares:    staked,
		liquid:    liquid,
		secondary: secondary,
		apy:       apy,
	}
}

// snapshot returns the current simulated balances. Share price is fixed
// at 1:1 so the staked value equals the share balance.
func (v *simVault) snapshot() (shares, stakedValue, liquid, secondary decimal.Decimal, apy float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.shares, v.shares, v.liquid, v.secondary, v.apy
}

func (v *simVault) deposit(amount decimal.Decimal) (string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if amount.GreaterThan(v.liquid) {
		return "", fmt.Errorf("insufficient liquid balance: have %s, need %s", v.liquid, amount)
	}
	v.liquid = v.liquid.Sub(amount)
	v.shares = v.shares.Add(amount)
	return newDemoTxID(), nil
}

func (v *simVault) redeem(shares decimal.Decimal) (string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if shares.GreaterThan(v.shares) {
		return "", fmt.Errorf("insufficient staked shares: have %s, need %s", v.shares, shares)
	}
	v.shares = v.shares.Sub(shares)
	v.liquid = v.liquid.Add(shares)
	return newDemoTxID(), nil
}

func (v *simVault) transfer(amount decimal.Decimal) (string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if amount.GreaterThan(v.liquid) {
		return "", fmt.Errorf("insufficient liquid balance: have %s, need %s", v.liquid, amount)
	}
	v.liquid = v.liquid.Sub(amount)
	return newDemoTxID(), nil
}
