package amm

import (
	"math/big"

	"sora-wallet-engine/internal/domain"
)

// BpsDenominator converts basis points to fractions: 30 bps = 0.3%.
const BpsDenominator = 10_000

// Quote is the result of one constant-product computation on a single
// liquidity source.
type Quote struct {
	// Amount is the computed side of the trade: output for OutGivenIn,
	// required input for InGivenOut.
	Amount *big.Int
	// LiquidityFee is charged in the input asset.
	LiquidityFee *big.Int
	// PriceImpact is the fractional loss versus the spot price, display
	// only.
	PriceImpact float64
}

// OutGivenIn computes the amount received for a fixed amount sold, net of
// the liquidity fee. The fee is charged on the input (ceiled), the output
// is floored. Returns nil when the pool has no liquidity. amountIn must
// be positive: the caller contract is to never invoke with a non-positive
// amount.
func OutGivenIn(reserves *domain.Reserves, amountIn *big.Int, feeBps uint32) *Quote {
	if !reserves.HasLiquidity() {
		return nil
	}

	fee := feeOn(amountIn, feeBps)
	effIn := new(big.Int).Sub(amountIn, fee)
	if effIn.Sign() <= 0 {
		return nil
	}

	// out = floor(reserveOut * effIn / (reserveIn + effIn))
	num := new(big.Int).Mul(reserves.Target, effIn)
	den := new(big.Int).Add(reserves.Base, effIn)
	out := DivFloor(num, den)

	return &Quote{
		Amount:       out,
		LiquidityFee: fee,
		PriceImpact:  impact(out, spotOut(reserves, amountIn)),
	}
}

// InGivenOut computes the amount that must be sold to receive a fixed
// amount, gross of the liquidity fee. Both the pool input and the fee
// gross-up are ceiled. Returns nil when the pool has no liquidity or the
// requested output cannot be drawn from the reserve.
func InGivenOut(reserves *domain.Reserves, amountOut *big.Int, feeBps uint32) *Quote {
	if !reserves.HasLiquidity() {
		return nil
	}
	if amountOut.Cmp(reserves.Target) >= 0 {
		return nil // pool cannot pay out its whole reserve
	}

	// effIn = ceil(reserveIn * amountOut / (reserveOut - amountOut))
	num := new(big.Int).Mul(reserves.Base, amountOut)
	den := new(big.Int).Sub(reserves.Target, amountOut)
	effIn := DivCeil(num, den)

	// Gross up so that effIn remains after the fee is taken.
	gross := DivCeil(
		new(big.Int).Mul(effIn, big.NewInt(BpsDenominator)),
		big.NewInt(int64(BpsDenominator-feeBps)),
	)
	fee := new(big.Int).Sub(gross, effIn)

	return &Quote{
		Amount:       gross,
		LiquidityFee: fee,
		PriceImpact:  impact(spotIn(reserves, amountOut), gross),
	}
}

// MinimumReceived bounds a DesiredInput trade: the least acceptable
// output after slippage, floored.
func MinimumReceived(out *big.Int, slippageBps uint32) *big.Int {
	num := new(big.Int).Mul(out, big.NewInt(int64(BpsDenominator-slippageBps)))
	return DivFloor(num, big.NewInt(BpsDenominator))
}

// MaximumSold bounds a DesiredOutput trade: the most acceptable input
// after slippage, ceiled.
func MaximumSold(in *big.Int, slippageBps uint32) *big.Int {
	num := new(big.Int).Mul(in, big.NewInt(int64(BpsDenominator+slippageBps)))
	return DivCeil(num, big.NewInt(BpsDenominator))
}

// PricePerUnit returns amountB/amountA adjusted for decimal precision,
// computed half-even at 18 fractional digits before conversion.
func PricePerUnit(amountA, amountB *big.Int, decA, decB uint8) float64 {
	if amountA.Sign() == 0 {
		return 0
	}
	scaled := new(big.Int).Mul(amountB, pow10(18+uint(decA)))
	q := DivHalfEven(scaled, new(big.Int).Mul(amountA, pow10(uint(decB))))
	f, _ := new(big.Rat).SetFrac(q, pow10(18)).Float64()
	return f
}

// feeOn charges feeBps on amount, ceiled so the pool never undercollects.
func feeOn(amount *big.Int, feeBps uint32) *big.Int {
	num := new(big.Int).Mul(amount, big.NewInt(int64(feeBps)))
	return DivCeil(num, big.NewInt(BpsDenominator))
}

// spotOut is the fee-free, impact-free output for amountIn.
func spotOut(r *domain.Reserves, amountIn *big.Int) *big.Int {
	return DivFloor(new(big.Int).Mul(amountIn, r.Target), r.Base)
}

// spotIn is the fee-free, impact-free input for amountOut.
func spotIn(r *domain.Reserves, amountOut *big.Int) *big.Int {
	return DivFloor(new(big.Int).Mul(amountOut, r.Base), r.Target)
}

// impact is 1 - num/den clamped to [0, 1]. Callers pass the smaller leg
// over the larger one (actual/spot output, or spot/actual input), so the
// result grows with the deviation from the spot price.
func impact(num, den *big.Int) float64 {
	if den.Sign() == 0 {
		return 0
	}
	ratio, _ := new(big.Rat).SetFrac(num, den).Float64()
	if ratio > 1 {
		ratio = 1
	}
	return 1 - ratio
}

func pow10(n uint) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
}
