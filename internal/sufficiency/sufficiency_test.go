package sufficiency

import (
	"math/big"
	"testing"

	"sora-wallet-engine/internal/domain"
)

var (
	xor = domain.Asset{ID: domain.NativeAssetID, Symbol: "XOR", Decimals: 18}
	val = domain.Asset{ID: domain.ValAssetID, Symbol: "VAL", Decimals: 18}
)

func TestCheckBalances_FeeAssetAliased(t *testing.T) {
	// transferable=100 of the fee asset, trade needs 95 + fee 10: the
	// combined charge overdraws the single balance.
	got := CheckBalances(CheckParams{
		FromAsset:   xor,
		FromBalance: big.NewInt(100),
		FromAmount:  big.NewInt(95),
		Fee:         big.NewInt(10),
		FeeAsset:    xor,
		FeeBalance:  big.NewInt(100),
		ToAsset:     val,
		ToBalance:   big.NewInt(0),
		ToAmount:    big.NewInt(180),
	})
	if got == nil || got.ID != xor.ID {
		t.Errorf("insufficient asset = %v, want XOR", got)
	}

	// 90 + 10 fits exactly.
	got = CheckBalances(CheckParams{
		FromAsset:   xor,
		FromBalance: big.NewInt(100),
		FromAmount:  big.NewInt(90),
		Fee:         big.NewInt(10),
		FeeAsset:    xor,
		FeeBalance:  big.NewInt(100),
		ToAsset:     val,
		ToBalance:   big.NewInt(0),
		ToAmount:    big.NewInt(170),
	})
	if got != nil {
		t.Errorf("insufficient asset = %v, want nil", got)
	}
}

func TestCheckBalances_SeparateFeeAsset(t *testing.T) {
	base := CheckParams{
		FromAsset:   val,
		FromBalance: big.NewInt(100),
		FromAmount:  big.NewInt(100),
		Fee:         big.NewInt(10),
		FeeAsset:    xor,
		FeeBalance:  big.NewInt(10),
		ToAsset:     val,
		ToBalance:   big.NewInt(0),
		ToAmount:    big.NewInt(50),
	}
	if got := CheckBalances(base); got != nil {
		t.Errorf("exact fit: insufficient asset = %v, want nil", got)
	}

	// Trade asset short: reported before the fee asset.
	p := base
	p.FromAmount = big.NewInt(101)
	p.FeeBalance = big.NewInt(0) // fee also short
	if got := CheckBalances(p); got == nil || got.ID != val.ID {
		t.Errorf("insufficient asset = %v, want VAL (trade checked first)", got)
	}

	// Only the fee is short.
	p = base
	p.FeeBalance = big.NewInt(9)
	if got := CheckBalances(p); got == nil || got.ID != xor.ID {
		t.Errorf("insufficient asset = %v, want XOR", got)
	}
}

func TestValidate_Indeterminate(t *testing.T) {
	intent := &domain.SwapIntent{FromAsset: val, ToAsset: xor, Amount: big.NewInt(10), Desired: domain.DesiredInput}
	v := Validate(intent, nil, xor, big.NewInt(100), big.NewInt(100), big.NewInt(0))
	if v.Result != Indeterminate {
		t.Errorf("result = %v, want Indeterminate for nil quote", v.Result)
	}
}

func TestValidate_DesiredOutputUsesQuotedInput(t *testing.T) {
	// Fixed output of 50 requires a quoted input of 120, above the 100
	// balance.
	intent := &domain.SwapIntent{FromAsset: val, ToAsset: xor, Amount: big.NewInt(50), Desired: domain.DesiredOutput}
	quote := &domain.SwapQuote{Amount: big.NewInt(120), NetworkFee: big.NewInt(1)}
	v := Validate(intent, quote, xor, big.NewInt(100), big.NewInt(100), big.NewInt(0))
	if v.Result != Insufficient || v.Asset == nil || v.Asset.ID != val.ID {
		t.Errorf("validation = %+v, want insufficient VAL", v)
	}
}

func TestEnoughReserveLeft(t *testing.T) {
	// 100 native, spending 50 + fee 10 leaves 40: enough for a reserve
	// of 40, not for 41.
	if !EnoughReserveLeft(big.NewInt(100), big.NewInt(50), big.NewInt(10), big.NewInt(40)) {
		t.Error("expected reserve of 40 to be enough")
	}
	if EnoughReserveLeft(big.NewInt(100), big.NewInt(50), big.NewInt(10), big.NewInt(41)) {
		t.Error("expected reserve of 41 to be too much")
	}

	// Native asset untouched by the trade: only the fee drains it.
	if !EnoughReserveLeft(big.NewInt(100), big.NewInt(0), big.NewInt(10), big.NewInt(90)) {
		t.Error("expected fee-only drain to leave the reserve intact")
	}
}
