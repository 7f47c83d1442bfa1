package extrinsic

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math/big"

	"sora-wallet-engine/internal/domain"
)

// encoder accumulates the SCALE byte stream for one call.
type encoder struct {
	buf bytes.Buffer
}

// Encode renders a call to its SCALE bytes: the resolved two-byte call
// index followed by the positional arguments.
func Encode(call *ChainCall, resolver CallIndexResolver) ([]byte, error) {
	moduleIdx, callIdx, err := resolver.CallIndex(call.Pallet, call.Method)
	if err != nil {
		return nil, err
	}

	e := &encoder{}
	e.buf.WriteByte(moduleIdx)
	e.buf.WriteByte(callIdx)
	for _, arg := range call.Args {
		if err := arg.Value.scale(e); err != nil {
			return nil, fmt.Errorf("argument %s of %s.%s: %w", arg.Name, call.Pallet, call.Method, err)
		}
	}
	return e.buf.Bytes(), nil
}

func (v U32) scale(e *encoder) error {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(v))
	e.buf.Write(b[:])
	return nil
}

func (v U128) scale(e *encoder) error {
	if v.Int == nil || v.Int.Sign() < 0 {
		return fmt.Errorf("%w: u128 must be a non-negative integer", ErrEncoding)
	}
	if v.Int.BitLen() > 128 {
		return fmt.Errorf("%w: value %s exceeds u128", ErrEncoding, v.Int)
	}
	var b [16]byte
	v.Int.FillBytes(b[:])
	// FillBytes is big-endian; the wire wants little-endian.
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
	e.buf.Write(b[:])
	return nil
}

func (v Compact) scale(e *encoder) error {
	n := uint64(v)
	switch {
	case n < 1<<6:
		e.buf.WriteByte(byte(n << 2))
	case n < 1<<14:
		var b [2]byte
		binary.LittleEndian.PutUint16(b[:], uint16(n<<2)|0b01)
		e.buf.Write(b[:])
	case n < 1<<30:
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], uint32(n<<2)|0b10)
		e.buf.Write(b[:])
	default:
		raw := new(big.Int).SetUint64(n).Bytes()
		// Big-endian to little-endian.
		for i, j := 0, len(raw)-1; i < j; i, j = i+1, j-1 {
			raw[i], raw[j] = raw[j], raw[i]
		}
		e.buf.WriteByte(byte(len(raw)-4)<<2 | 0b11)
		e.buf.Write(raw)
	}
	return nil
}

func (v Bytes) scale(e *encoder) error {
	if err := (Compact(len(v))).scale(e); err != nil {
		return err
	}
	e.buf.Write(v)
	return nil
}

func (v Str) scale(e *encoder) error {
	return Bytes(v).scale(e)
}

func (v AccountID) scale(e *encoder) error {
	e.buf.Write(v[:])
	return nil
}

func (v AssetID) scale(e *encoder) error {
	code, err := parseAssetID(domain.AssetID(v))
	if err != nil {
		return err
	}
	e.buf.Write(code[:])
	return nil
}

func (v Variant) scale(e *encoder) error {
	e.buf.WriteByte(v.Index)
	for _, f := range v.Fields {
		if err := f.Value.scale(e); err != nil {
			return err
		}
	}
	return nil
}

func (v VariantList) scale(e *encoder) error {
	if err := (Compact(len(v))).scale(e); err != nil {
		return err
	}
	for _, item := range v {
		if err := item.scale(e); err != nil {
			return err
		}
	}
	return nil
}
