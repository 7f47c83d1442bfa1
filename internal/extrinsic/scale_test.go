package extrinsic

import (
	"bytes"
	"math/big"
	"testing"
)

func scaleOf(t *testing.T, v Value) []byte {
	t.Helper()
	e := &encoder{}
	if err := v.scale(e); err != nil {
		t.Fatalf("scale: %v", err)
	}
	return e.buf.Bytes()
}

func TestCompact(t *testing.T) {
	cases := []struct {
		in   uint64
		want []byte
	}{
		{0, []byte{0x00}},
		{1, []byte{0x04}},
		{63, []byte{0xfc}},
		{64, []byte{0x01, 0x01}},
		{16383, []byte{0xfd, 0xff}},
		{16384, []byte{0x02, 0x00, 0x01, 0x00}},
		{1<<30 - 1, []byte{0xfe, 0xff, 0xff, 0xff}},
		{1 << 30, []byte{0x03, 0x00, 0x00, 0x00, 0x40}},
		{1 << 32, []byte{0x07, 0x00, 0x00, 0x00, 0x00, 0x01}},
	}
	for _, c := range cases {
		if got := scaleOf(t, Compact(c.in)); !bytes.Equal(got, c.want) {
			t.Errorf("Compact(%d) = %x, want %x", c.in, got, c.want)
		}
	}
}

func TestU128(t *testing.T) {
	got := scaleOf(t, U128{big.NewInt(1000)})
	if len(got) != 16 || got[0] != 0xe8 || got[1] != 0x03 || got[2] != 0 {
		t.Errorf("U128(1000) = %x, want little-endian 16 bytes starting e8 03", got)
	}

	max := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))
	got = scaleOf(t, U128{max})
	for i, b := range got {
		if b != 0xff {
			t.Fatalf("U128(max) byte %d = %x, want ff", i, b)
		}
	}

	e := &encoder{}
	for _, bad := range []U128{{nil}, {big.NewInt(-1)}, {new(big.Int).Lsh(big.NewInt(1), 128)}} {
		if err := bad.scale(e); err == nil {
			t.Errorf("U128(%v): expected error", bad.Int)
		}
	}
}

func TestU32(t *testing.T) {
	if got := scaleOf(t, U32(258)); !bytes.Equal(got, []byte{0x02, 0x01, 0x00, 0x00}) {
		t.Errorf("U32(258) = %x", got)
	}
}

func TestBytesAndStr(t *testing.T) {
	want := []byte{0x0c, 'a', 'b', 'c'}
	if got := scaleOf(t, Bytes("abc")); !bytes.Equal(got, want) {
		t.Errorf("Bytes = %x, want %x", got, want)
	}
	if got := scaleOf(t, Str("abc")); !bytes.Equal(got, want) {
		t.Errorf("Str = %x, want %x", got, want)
	}
}

func TestAssetID(t *testing.T) {
	got := scaleOf(t, AssetID("0x0200000000000000000000000000000000000000000000000000000000000000"))
	if len(got) != 32 || got[0] != 0x02 {
		t.Errorf("asset id encoding = %x, want 32 bytes starting 02", got)
	}

	e := &encoder{}
	for _, bad := range []AssetID{"0x02", "not hex", AssetID("0x" + string(make([]byte, 64)))} {
		if err := bad.scale(e); err == nil {
			t.Errorf("AssetID(%q): expected error", bad)
		}
	}
}

func TestVariantList(t *testing.T) {
	got := scaleOf(t, VariantList{{Index: 0}, {Index: 2}})
	if !bytes.Equal(got, []byte{0x08, 0x00, 0x02}) {
		t.Errorf("variant list = %x, want 08 00 02", got)
	}
}
