package amm

import "math/big"

// AmountFromPercent derives a trade amount as a percentage of a balance
// at the asset's own precision. When the traded asset also pays the
// network fee, the estimated fee is subtracted from the balance before
// the percentage is applied, clamped at zero so the result never goes
// negative. The rounding mode is an explicit parameter so callers cannot
// smuggle UI rounding into the engine; trade amounts use RoundFloor.
func AmountFromPercent(balance *big.Int, percent uint8, networkFee *big.Int, tradedPaysFee bool, mode Rounding) *big.Int {
	base := new(big.Int).Set(balance)
	if tradedPaysFee && networkFee != nil {
		base.Sub(base, networkFee)
		if base.Sign() < 0 {
			return new(big.Int)
		}
	}
	if percent >= 100 {
		return base
	}
	return Div(new(big.Int).Mul(base, big.NewInt(int64(percent))), big.NewInt(100), mode)
}
