package domain

import "math/big"

// Balance is a per (account, asset) snapshot supplied by the chain state
// reader. Amounts are integer base units at the asset's precision.
// Invariant: Transferable <= Total.
type Balance struct {
	Total        *big.Int
	Transferable *big.Int // total minus reserved/locked
	Reserved     *big.Int
}

// NewBalance builds a snapshot from total and reserved amounts.
func NewBalance(total, reserved *big.Int) *Balance {
	return &Balance{
		Total:        new(big.Int).Set(total),
		Transferable: new(big.Int).Sub(total, reserved),
		Reserved:     new(big.Int).Set(reserved),
	}
}

// Reserves holds the two pool-side quantities of one liquidity source for
// an asset pair, read transactionally per quote.
type Reserves struct {
	Base   *big.Int // reserve of the input-side asset
	Target *big.Int // reserve of the output-side asset
}

// HasLiquidity reports whether both reserves are strictly positive.
func (r *Reserves) HasLiquidity() bool {
	if r == nil || r.Base == nil || r.Target == nil {
		return false
	}
	return r.Base.Sign() > 0 && r.Target.Sign() > 0
}
