package domain

import "math/big"

// Desired says which side of the trade the user fixed.
type Desired int

const (
	// DesiredInput fixes the amount sent; the quote computes the amount
	// received and a minimum-received bound.
	DesiredInput Desired = iota
	// DesiredOutput fixes the amount received; the quote computes the
	// amount sold and a maximum-sold bound.
	DesiredOutput
)

// String returns the runtime-side variant name.
func (d Desired) String() string {
	if d == DesiredOutput {
		return "WithDesiredOutput"
	}
	return "WithDesiredInput"
}

// SwapIntent is a single swap request as entered by the user. It is
// consumed once by the router, validator and encoder and never mutated;
// a changed amount produces a new intent.
type SwapIntent struct {
	FromAsset Asset
	ToAsset   Asset
	// Amount is the fixed side of the trade, in base units of FromAsset
	// for DesiredInput or of ToAsset for DesiredOutput.
	Amount  *big.Int
	Desired Desired
	// SlippageBps is the slippage tolerance in basis points (50 = 0.5%).
	SlippageBps     uint32
	SelectedMarkets []Market
	FilterMode      FilterMode
}

// SwapQuote is the derived pricing of one intent. Recomputed on every
// relevant input change, never persisted.
type SwapQuote struct {
	// Amount is the computed side: amount received for DesiredInput,
	// amount sold for DesiredOutput.
	Amount *big.Int
	// Limit is minimum-received (DesiredInput, floored) or maximum-sold
	// (DesiredOutput, ceiled) after slippage.
	Limit        *big.Int
	NetworkFee   *big.Int
	LiquidityFee *big.Int
	// PriceImpact is the fractional deviation from the spot price, for
	// display only.
	PriceImpact  float64
	PriceFromTo  float64
	PriceToFrom  float64
	Route        []Market
	DexID        uint32
}
