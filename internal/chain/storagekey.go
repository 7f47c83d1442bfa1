package chain

import (
	"encoding/binary"
	"math/bits"

	"golang.org/x/crypto/blake2b"
)

// Storage keys follow the standard layout: twox128(pallet) ++
// twox128(item) ++ hashed map keys.

// twox128 concatenates two seeded xxhash64 runs over the same input,
// little-endian.
func twox128(data []byte) []byte {
	out := make([]byte, 16)
	binary.LittleEndian.PutUint64(out[:8], xxhash64(data, 0))
	binary.LittleEndian.PutUint64(out[8:], xxhash64(data, 1))
	return out
}

// blake2b128Concat hashes the key and appends the key itself, keeping
// map keys recoverable from storage prefixes.
func blake2b128Concat(data []byte) []byte {
	h, _ := blake2b.New(16, nil)
	h.Write(data)
	return append(h.Sum(nil), data...)
}

// poolReservesKey is the storage key of the XYK pool reserves double
// map entry for (base, target).
func poolReservesKey(base, target [32]byte) []byte {
	key := twox128([]byte("PoolXYK"))
	key = append(key, twox128([]byte("Reserves"))...)
	key = append(key, blake2b128Concat(base[:])...)
	key = append(key, blake2b128Concat(target[:])...)
	return key
}

// xxhash64 is the seeded 64-bit xxHash. Implemented here because the
// storage key scheme needs seeds 0 and 1 and the common Go xxhash
// package exposes only the unseeded digest.
func xxhash64(data []byte, seed uint64) uint64 {
	const (
		p1 uint64 = 11400714785074694791
		p2 uint64 = 14029467366897019727
		p3 uint64 = 1609587929392839161
		p4 uint64 = 9650029242287828579
		p5 uint64 = 2870177450012600261
	)

	n := uint64(len(data))
	var h uint64
	if len(data) >= 32 {
		v1 := seed + p1 + p2
		v2 := seed + p2
		v3 := seed
		v4 := seed - p1
		for len(data) >= 32 {
			v1 = bits.RotateLeft64(v1+binary.LittleEndian.Uint64(data)*p2, 31) * p1
			v2 = bits.RotateLeft64(v2+binary.LittleEndian.Uint64(data[8:])*p2, 31) * p1
			v3 = bits.RotateLeft64(v3+binary.LittleEndian.Uint64(data[16:])*p2, 31) * p1
			v4 = bits.RotateLeft64(v4+binary.LittleEndian.Uint64(data[24:])*p2, 31) * p1
			data = data[32:]
		}
		h = bits.RotateLeft64(v1, 1) + bits.RotateLeft64(v2, 7) +
			bits.RotateLeft64(v3, 12) + bits.RotateLeft64(v4, 18)
		for _, v := range [4]uint64{v1, v2, v3, v4} {
			h ^= bits.RotateLeft64(v*p2, 31) * p1
			h = h*p1 + p4
		}
	} else {
		h = seed + p5
	}

	h += n
	for len(data) >= 8 {
		h ^= bits.RotateLeft64(binary.LittleEndian.Uint64(data)*p2, 31) * p1
		h = bits.RotateLeft64(h, 27)*p1 + p4
		data = data[8:]
	}
	if len(data) >= 4 {
		h ^= uint64(binary.LittleEndian.Uint32(data)) * p1
		h = bits.RotateLeft64(h, 23)*p2 + p3
		data = data[4:]
	}
	for _, b := range data {
		h ^= uint64(b) * p5
		h = bits.RotateLeft64(h, 11) * p1
	}

	h ^= h >> 33
	h *= p2
	h ^= h >> 29
	h *= p3
	h ^= h >> 32
	return h
}
