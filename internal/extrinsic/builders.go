package extrinsic

import (
	"fmt"
	"math/big"

	"sora-wallet-engine/internal/domain"
)

// SwapAmount variant indices.
const (
	swapWithDesiredInput  uint8 = 0
	swapWithDesiredOutput uint8 = 1
)

// LiquiditySourceType variant indices.
const (
	sourceXYKPool uint8 = 0
	sourceTBCPool uint8 = 2
)

// FilterMode variant indices.
const (
	filterDisabled       uint8 = 0
	filterForbidSelected uint8 = 1
	filterAllowSelected  uint8 = 2
)

// Swap builds a liquidityProxy.swap call from an intent and the limit
// derived from its quote: the minimum received for a fixed input, the
// maximum sold for a fixed output. An empty market selection places no
// restriction on the liquidity sources.
func Swap(dexID uint32, intent *domain.SwapIntent, limit *big.Int) (*ChainCall, error) {
	if err := requirePositive("amount", intent.Amount); err != nil {
		return nil, err
	}
	if limit == nil || limit.Sign() < 0 {
		return nil, fmt.Errorf("%w: swap limit must be a non-negative integer", ErrEncoding)
	}

	var swapAmount Variant
	if intent.Desired == domain.DesiredOutput {
		swapAmount = Variant{Index: swapWithDesiredOutput, Fields: []Arg{
			{Name: "desired_amount_out", Value: U128{intent.Amount}},
			{Name: "max_amount_in", Value: U128{limit}},
		}}
	} else {
		swapAmount = Variant{Index: swapWithDesiredInput, Fields: []Arg{
			{Name: "desired_amount_in", Value: U128{intent.Amount}},
			{Name: "min_amount_out", Value: U128{limit}},
		}}
	}

	sources := VariantList{}
	for _, m := range intent.SelectedMarkets {
		idx, ok := sourceTypeIndex(m)
		if !ok {
			continue
		}
		sources = append(sources, Variant{Index: idx})
	}

	return &ChainCall{
		Pallet: PalletLiquidityProxy,
		Method: "swap",
		Args: []Arg{
			{Name: "dex_id", Value: U32(dexID)},
			{Name: "input_asset_id", Value: AssetID(intent.FromAsset.ID)},
			{Name: "output_asset_id", Value: AssetID(intent.ToAsset.ID)},
			{Name: "swap_amount", Value: swapAmount},
			{Name: "selected_source_types", Value: sources},
			{Name: "filter_mode", Value: Variant{Index: filterModeIndex(intent.FilterMode)}},
		},
	}, nil
}

// Transfer builds an assets.transfer call.
func Transfer(asset domain.AssetID, to [32]byte, amount *big.Int) (*ChainCall, error) {
	if err := requirePositive("amount", amount); err != nil {
		return nil, err
	}
	return &ChainCall{
		Pallet: PalletAssets,
		Method: "transfer",
		Args: []Arg{
			{Name: "asset_id", Value: AssetID(asset)},
			{Name: "to", Value: AccountID(to)},
			{Name: "amount", Value: U128{amount}},
		},
	}, nil
}

// Migrate builds an irohaMigration.migrate call claiming a legacy
// account.
func Migrate(irohaAddress, irohaPublicKey, irohaSignature string) *ChainCall {
	return &ChainCall{
		Pallet: PalletIrohaMigration,
		Method: "migrate",
		Args: []Arg{
			{Name: "iroha_address", Value: Str(irohaAddress)},
			{Name: "iroha_public_key", Value: Str(irohaPublicKey)},
			{Name: "iroha_signature", Value: Str(irohaSignature)},
		},
	}
}

// DepositLiquidity builds a poolXYK.depositLiquidity call.
func DepositLiquidity(dexID uint32, base, target domain.AssetID, baseDesired, targetDesired, baseMin, targetMin *big.Int) (*ChainCall, error) {
	for _, arg := range []struct {
		name string
		v    *big.Int
	}{
		{"input_a_desired", baseDesired},
		{"input_b_desired", targetDesired},
		{"input_a_min", baseMin},
		{"input_b_min", targetMin},
	} {
		if arg.v == nil || arg.v.Sign() < 0 {
			return nil, fmt.Errorf("%w: %s must be a non-negative integer", ErrEncoding, arg.name)
		}
	}
	return &ChainCall{
		Pallet: PalletPoolXYK,
		Method: "depositLiquidity",
		Args: []Arg{
			{Name: "dex_id", Value: U32(dexID)},
			{Name: "input_asset_a", Value: AssetID(base)},
			{Name: "input_asset_b", Value: AssetID(target)},
			{Name: "input_a_desired", Value: U128{baseDesired}},
			{Name: "input_b_desired", Value: U128{targetDesired}},
			{Name: "input_a_min", Value: U128{baseMin}},
			{Name: "input_b_min", Value: U128{targetMin}},
		},
	}, nil
}

// WithdrawLiquidity builds a poolXYK.withdrawLiquidity call.
func WithdrawLiquidity(dexID uint32, outputA, outputB domain.AssetID, markerAmount, outputAMin, outputBMin *big.Int) (*ChainCall, error) {
	if err := requirePositive("marker_asset_desired", markerAmount); err != nil {
		return nil, err
	}
	return &ChainCall{
		Pallet: PalletPoolXYK,
		Method: "withdrawLiquidity",
		Args: []Arg{
			{Name: "dex_id", Value: U32(dexID)},
			{Name: "output_asset_a", Value: AssetID(outputA)},
			{Name: "output_asset_b", Value: AssetID(outputB)},
			{Name: "marker_asset_desired", Value: U128{markerAmount}},
			{Name: "output_a_min", Value: U128{outputAMin}},
			{Name: "output_b_min", Value: U128{outputBMin}},
		},
	}, nil
}

// RegisterPair builds a tradingPair.register call.
func RegisterPair(dexID uint32, base, target domain.AssetID) *ChainCall {
	return &ChainCall{
		Pallet: PalletTradingPair,
		Method: "register",
		Args: []Arg{
			{Name: "dex_id", Value: U32(dexID)},
			{Name: "base_asset_id", Value: AssetID(base)},
			{Name: "target_asset_id", Value: AssetID(target)},
		},
	}
}

// InitializePool builds a poolXYK.initializePool call.
func InitializePool(dexID uint32, base, target domain.AssetID) *ChainCall {
	return &ChainCall{
		Pallet: PalletPoolXYK,
		Method: "initializePool",
		Args: []Arg{
			{Name: "dex_id", Value: U32(dexID)},
			{Name: "asset_a", Value: AssetID(base)},
			{Name: "asset_b", Value: AssetID(target)},
		},
	}
}

// ReferralBond builds a referrals.reserve call locking balance for
// referral fee coverage.
func ReferralBond(amount *big.Int) (*ChainCall, error) {
	if err := requirePositive("balance", amount); err != nil {
		return nil, err
	}
	return &ChainCall{
		Pallet: PalletReferrals,
		Method: "reserve",
		Args:   []Arg{{Name: "balance", Value: U128{amount}}},
	}, nil
}

// ReferralUnbond builds a referrals.unreserve call.
func ReferralUnbond(amount *big.Int) (*ChainCall, error) {
	if err := requirePositive("balance", amount); err != nil {
		return nil, err
	}
	return &ChainCall{
		Pallet: PalletReferrals,
		Method: "unreserve",
		Args:   []Arg{{Name: "balance", Value: U128{amount}}},
	}, nil
}

// SetReferrer builds a referrals.setReferrer call.
func SetReferrer(referrer [32]byte) *ChainCall {
	return &ChainCall{
		Pallet: PalletReferrals,
		Method: "setReferrer",
		Args:   []Arg{{Name: "referrer", Value: AccountID(referrer)}},
	}
}

// FaucetTransfer builds a faucet.transfer call for test networks.
func FaucetTransfer(asset domain.AssetID, target [32]byte, amount *big.Int) (*ChainCall, error) {
	if err := requirePositive("amount", amount); err != nil {
		return nil, err
	}
	return &ChainCall{
		Pallet: PalletFaucet,
		Method: "transfer",
		Args: []Arg{
			{Name: "asset_id", Value: AssetID(asset)},
			{Name: "target", Value: AccountID(target)},
			{Name: "amount", Value: U128{amount}},
		},
	}, nil
}

func sourceTypeIndex(m domain.Market) (uint8, bool) {
	switch m {
	case domain.MarketXYK:
		return sourceXYKPool, true
	case domain.MarketTBC:
		return sourceTBCPool, true
	default:
		// SMART is a routing policy, not a liquidity source.
		return 0, false
	}
}

func filterModeIndex(m domain.FilterMode) uint8 {
	switch m {
	case domain.FilterForbidSelected:
		return filterForbidSelected
	case domain.FilterAllowSelected:
		return filterAllowSelected
	default:
		return filterDisabled
	}
}

func requirePositive(name string, v *big.Int) error {
	if v == nil || v.Sign() <= 0 {
		return fmt.Errorf("%w: %s must be a positive integer", ErrEncoding, name)
	}
	return nil
}
