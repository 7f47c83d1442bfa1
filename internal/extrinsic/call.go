// Package extrinsic models runtime calls and encodes them to the SCALE
// wire format expected by the chain.
package extrinsic

import (
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"sora-wallet-engine/internal/domain"
)

var (
	// ErrEncoding wraps any failure to render a call to bytes.
	ErrEncoding = errors.New("extrinsic encoding failed")
	// ErrUnknownCall means the resolver has no index for a pallet/method
	// pair.
	ErrUnknownCall = errors.New("unknown call")
)

// Pallet names as the runtime exposes them.
const (
	PalletLiquidityProxy = "liquidityProxy"
	PalletAssets         = "assets"
	PalletIrohaMigration = "irohaMigration"
	PalletPoolXYK        = "poolXYK"
	PalletTradingPair    = "tradingPair"
	PalletReferrals      = "referrals"
	PalletFaucet         = "faucet"
)

// ChainCall is a runtime call before index resolution: pallet and
// method by name plus an ordered argument list.
type ChainCall struct {
	Pallet string
	Method string
	Args   []Arg
}

// Arg is one named call argument. The name is documentation only; the
// wire format is positional.
type Arg struct {
	Name  string
	Value Value
}

// Value is anything that knows its own SCALE encoding.
type Value interface {
	scale(e *encoder) error
}

// U32 encodes as a 4-byte little-endian word.
type U32 uint32

// U128 encodes as a 16-byte little-endian balance. Negative or
// over-wide values are encoding errors.
type U128 struct{ Int *big.Int }

// Compact encodes with the variable-length compact scheme.
type Compact uint64

// Bytes encodes as a compact length prefix followed by the raw bytes.
type Bytes []byte

// Str encodes a UTF-8 string the same way as Bytes.
type Str string

// AccountID encodes as the raw 32 bytes of a public key.
type AccountID [32]byte

// AssetID encodes the chain's asset identifier, a struct wrapping a
// fixed 32-byte code, so the wire form is the raw code.
type AssetID domain.AssetID

// Variant encodes an enum value: one index byte followed by the
// variant's fields, if any.
type Variant struct {
	Index  uint8
	Fields []Arg
}

// VariantList encodes a vector of enum values with a compact length
// prefix.
type VariantList []Variant

// CallIndexResolver maps a pallet/method pair to its two-byte call
// index in the current runtime.
type CallIndexResolver interface {
	CallIndex(pallet, method string) (moduleIndex, callIndex uint8, err error)
}

// StaticResolver is a fixed pallet.method -> index table, typically
// filled from runtime metadata at connection time.
type StaticResolver map[string][2]uint8

// WithCall registers one call index and returns the resolver for
// chaining.
func (r StaticResolver) WithCall(pallet, method string, moduleIndex, callIndex uint8) StaticResolver {
	r[pallet+"."+method] = [2]uint8{moduleIndex, callIndex}
	return r
}

func (r StaticResolver) CallIndex(pallet, method string) (uint8, uint8, error) {
	idx, ok := r[pallet+"."+method]
	if !ok {
		return 0, 0, fmt.Errorf("%w: %s.%s", ErrUnknownCall, pallet, method)
	}
	return idx[0], idx[1], nil
}

var _ CallIndexResolver = StaticResolver(nil)

// parseAssetID turns the canonical 0x-prefixed 64-hex-digit asset id
// into its 32-byte code.
func parseAssetID(id domain.AssetID) ([32]byte, error) {
	var code [32]byte
	s := strings.TrimPrefix(string(id), "0x")
	raw, err := hex.DecodeString(s)
	if err != nil {
		return code, fmt.Errorf("%w: asset id %q: %v", ErrEncoding, id, err)
	}
	if len(raw) != 32 {
		return code, fmt.Errorf("%w: asset id %q: want 32 bytes, got %d", ErrEncoding, id, len(raw))
	}
	copy(code[:], raw)
	return code, nil
}
