// Package sufficiency cross-checks prospective trades against account
// balances, including the case where the fee asset is one of the traded
// assets.
package sufficiency

import (
	"math/big"

	"sora-wallet-engine/internal/domain"
)

// CheckParams carries everything one balance check needs. Balances are
// transferable amounts.
type CheckParams struct {
	FromAsset   domain.Asset
	FromBalance *big.Int
	FromAmount  *big.Int

	Fee        *big.Int
	FeeAsset   domain.Asset
	FeeBalance *big.Int

	ToAsset   domain.Asset
	ToBalance *big.Int
	ToAmount  *big.Int
}

// CheckBalances returns the first asset whose transferable balance
// cannot cover its share of the trade, or nil when everything fits.
// When the sold asset also pays the fee, amount and fee are charged
// against the one balance together; otherwise the trade asset is
// checked before the fee asset, deterministically.
func CheckBalances(p CheckParams) *domain.Asset {
	if p.FromAsset.ID == p.FeeAsset.ID {
		need := new(big.Int).Add(p.FromAmount, p.Fee)
		if need.Cmp(p.FromBalance) > 0 {
			a := p.FromAsset
			return &a
		}
		return nil
	}

	if p.FromAmount.Cmp(p.FromBalance) > 0 {
		a := p.FromAsset
		return &a
	}
	if p.Fee.Cmp(p.FeeBalance) > 0 {
		a := p.FeeAsset
		return &a
	}
	return nil
}

// Result is the tri-state outcome of validating an intent against a
// quote.
type Result int

const (
	// Indeterminate means no quote is available yet, so nothing can be
	// checked.
	Indeterminate Result = iota
	OK
	Insufficient
)

// Validation is the validator's output; Asset is set only for
// Insufficient.
type Validation struct {
	Result Result
	Asset  *domain.Asset
}

// Validate checks an intent and its quote against current balances. A
// nil quote yields Indeterminate. For DesiredInput the sold amount is
// the intent amount; for DesiredOutput it is the quoted input.
func Validate(intent *domain.SwapIntent, quote *domain.SwapQuote, feeAsset domain.Asset, fromBalance, feeBalance, toBalance *big.Int) Validation {
	if quote == nil {
		return Validation{Result: Indeterminate}
	}

	fromAmount := intent.Amount
	toAmount := quote.Amount
	if intent.Desired == domain.DesiredOutput {
		fromAmount, toAmount = quote.Amount, intent.Amount
	}

	insufficient := CheckBalances(CheckParams{
		FromAsset:   intent.FromAsset,
		FromBalance: fromBalance,
		FromAmount:  fromAmount,
		Fee:         quote.NetworkFee,
		FeeAsset:    feeAsset,
		FeeBalance:  feeBalance,
		ToAsset:     intent.ToAsset,
		ToBalance:   toBalance,
		ToAmount:    toAmount,
	})
	if insufficient != nil {
		return Validation{Result: Insufficient, Asset: insufficient}
	}
	return Validation{Result: OK}
}

// EnoughReserveLeft reports whether at least minReserve of the native
// fee asset remains after a prospective transaction, so the account can
// still pay future fees. Advisory only: callers show a warning, never a
// hard block.
//
// nativeBalance is the transferable native balance; spentNative is how
// much of it the transaction itself moves (zero when the native asset is
// not traded); fee is always charged in the native asset.
func EnoughReserveLeft(nativeBalance, spentNative, fee, minReserve *big.Int) bool {
	left := new(big.Int).Sub(nativeBalance, spentNative)
	left.Sub(left, fee)
	return left.Cmp(minReserve) >= 0
}
