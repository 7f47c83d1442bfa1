// Package amm computes constant-product swap quotes in integer base
// units. Rounding always goes against the user: floor for amounts paid
// out, ceiling for amounts charged, half-even for display ratios.
package amm

import "math/big"

// Rounding selects the division rounding mode where a caller must choose
// one explicitly.
type Rounding int

const (
	RoundFloor Rounding = iota
	RoundCeil
	RoundHalfEven
)

// DivFloor returns num/den rounded toward zero. Operands must be
// non-negative and den non-zero.
func DivFloor(num, den *big.Int) *big.Int {
	return new(big.Int).Quo(num, den)
}

// DivCeil returns num/den rounded away from zero.
func DivCeil(num, den *big.Int) *big.Int {
	q, r := new(big.Int).QuoRem(num, den, new(big.Int))
	if r.Sign() != 0 {
		q.Add(q, one)
	}
	return q
}

// DivHalfEven returns num/den with banker's rounding: ties go to the
// even quotient.
func DivHalfEven(num, den *big.Int) *big.Int {
	q, r := new(big.Int).QuoRem(num, den, new(big.Int))
	r.Lsh(r, 1) // 2*r vs den
	switch r.Cmp(den) {
	case 1:
		q.Add(q, one)
	case 0:
		if q.Bit(0) == 1 {
			q.Add(q, one)
		}
	}
	return q
}

// Div applies the given rounding mode.
func Div(num, den *big.Int, mode Rounding) *big.Int {
	switch mode {
	case RoundCeil:
		return DivCeil(num, den)
	case RoundHalfEven:
		return DivHalfEven(num, den)
	default:
		return DivFloor(num, den)
	}
}

var one = big.NewInt(1)
