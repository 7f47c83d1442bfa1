package extrinsic

import (
	"errors"
	"math/big"
	"testing"

	"sora-wallet-engine/internal/domain"
)

var testResolver = StaticResolver{}.
	WithCall(PalletLiquidityProxy, "swap", 26, 0).
	WithCall(PalletAssets, "transfer", 21, 0).
	WithCall(PalletReferrals, "reserve", 57, 1)

var (
	xor = domain.Asset{ID: domain.NativeAssetID, Symbol: "XOR", Decimals: 18}
	val = domain.Asset{ID: domain.ValAssetID, Symbol: "VAL", Decimals: 18}
)

func swapIntent(desired domain.Desired, markets ...domain.Market) *domain.SwapIntent {
	return &domain.SwapIntent{
		FromAsset:       xor,
		ToAsset:         val,
		Amount:          big.NewInt(1000),
		Desired:         desired,
		SlippageBps:     50,
		SelectedMarkets: markets,
		FilterMode:      domain.FilterDisabled,
	}
}

func TestSwap_DesiredInputLayout(t *testing.T) {
	call, err := Swap(0, swapIntent(domain.DesiredInput), big.NewInt(1982))
	if err != nil {
		t.Fatalf("Swap: %v", err)
	}
	raw, err := Encode(call, testResolver)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	// call index(2) + dex_id(4) + assets(64) + variant(1+16+16) +
	// empty source list(1) + filter mode(1)
	if len(raw) != 105 {
		t.Fatalf("encoded length = %d, want 105", len(raw))
	}
	if raw[0] != 26 || raw[1] != 0 {
		t.Errorf("call index = %d.%d, want 26.0", raw[0], raw[1])
	}
	if raw[70] != 0x00 {
		t.Errorf("swap amount variant = %d, want WithDesiredInput (0)", raw[70])
	}
	// desired_amount_in = 1000, then min_amount_out = 1982, both LE.
	if raw[71] != 0xe8 || raw[72] != 0x03 {
		t.Errorf("desired_amount_in bytes = %x %x, want e8 03", raw[71], raw[72])
	}
	if raw[87] != 0xbe || raw[88] != 0x07 {
		t.Errorf("min_amount_out bytes = %x %x, want be 07", raw[87], raw[88])
	}
	if raw[103] != 0x00 {
		t.Errorf("source list length = %x, want empty", raw[103])
	}
	if raw[104] != filterDisabled {
		t.Errorf("filter mode = %d, want Disabled", raw[104])
	}
}

func TestSwap_DesiredOutputLayout(t *testing.T) {
	intent := swapIntent(domain.DesiredOutput)
	intent.FilterMode = domain.FilterAllowSelected
	call, err := Swap(0, intent, big.NewInt(1009))
	if err != nil {
		t.Fatalf("Swap: %v", err)
	}
	raw, err := Encode(call, testResolver)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	if raw[70] != 0x01 {
		t.Errorf("swap amount variant = %d, want WithDesiredOutput (1)", raw[70])
	}
	// desired_amount_out = 1000 comes first, max_amount_in = 1009 after.
	if raw[71] != 0xe8 || raw[72] != 0x03 {
		t.Errorf("desired_amount_out bytes = %x %x, want e8 03", raw[71], raw[72])
	}
	if raw[87] != 0xf1 || raw[88] != 0x03 {
		t.Errorf("max_amount_in bytes = %x %x, want f1 03", raw[87], raw[88])
	}
	if raw[len(raw)-1] != filterAllowSelected {
		t.Errorf("filter mode = %d, want AllowSelected", raw[len(raw)-1])
	}
}

func TestSwap_SourceTypes(t *testing.T) {
	// SMART is routing policy, not a liquidity source: only the two
	// concrete pools encode.
	call, err := Swap(0, swapIntent(domain.DesiredInput, domain.MarketXYK, domain.MarketSmart, domain.MarketTBC), big.NewInt(1))
	if err != nil {
		t.Fatalf("Swap: %v", err)
	}
	raw, err := Encode(call, testResolver)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	// Source list starts after the fixed-size prefix.
	list := raw[103 : len(raw)-1]
	if len(list) != 3 || list[0] != 0x08 || list[1] != sourceXYKPool || list[2] != sourceTBCPool {
		t.Errorf("source list = %x, want 08 00 02", list)
	}
}

func TestSwap_Validation(t *testing.T) {
	bad := swapIntent(domain.DesiredInput)
	bad.Amount = big.NewInt(0)
	if _, err := Swap(0, bad, big.NewInt(1)); !errors.Is(err, ErrEncoding) {
		t.Errorf("zero amount: err = %v, want ErrEncoding", err)
	}

	if _, err := Swap(0, swapIntent(domain.DesiredInput), nil); !errors.Is(err, ErrEncoding) {
		t.Errorf("nil limit: err = %v, want ErrEncoding", err)
	}
}

func TestTransfer(t *testing.T) {
	var to [32]byte
	to[31] = 0x7f
	call, err := Transfer(val.ID, to, big.NewInt(5))
	if err != nil {
		t.Fatalf("Transfer: %v", err)
	}
	raw, err := Encode(call, testResolver)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	// call index(2) + asset(32) + account(32) + amount(16)
	if len(raw) != 82 {
		t.Errorf("encoded length = %d, want 82", len(raw))
	}
	if raw[65] != 0x7f {
		t.Errorf("account id not encoded raw at expected offset")
	}

	if _, err := Transfer(val.ID, to, big.NewInt(0)); !errors.Is(err, ErrEncoding) {
		t.Errorf("zero amount: err = %v, want ErrEncoding", err)
	}
}

func TestEncode_UnknownCall(t *testing.T) {
	call := SetReferrer([32]byte{})
	if _, err := Encode(call, testResolver); !errors.Is(err, ErrUnknownCall) {
		t.Errorf("err = %v, want ErrUnknownCall", err)
	}
}

func TestEncode_BadAssetID(t *testing.T) {
	intent := swapIntent(domain.DesiredInput)
	intent.FromAsset.ID = "0xdeadbeef"
	call, err := Swap(0, intent, big.NewInt(1))
	if err != nil {
		t.Fatalf("Swap: %v", err)
	}
	if _, err := Encode(call, testResolver); !errors.Is(err, ErrEncoding) {
		t.Errorf("err = %v, want ErrEncoding for malformed asset id", err)
	}
}

func TestReferralBond(t *testing.T) {
	call, err := ReferralBond(big.NewInt(42))
	if err != nil {
		t.Fatalf("ReferralBond: %v", err)
	}
	raw, err := Encode(call, testResolver)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if len(raw) != 18 || raw[0] != 57 || raw[1] != 1 || raw[2] != 42 {
		t.Errorf("encoded = %x, want index 57.1 then 42 LE", raw)
	}
}
