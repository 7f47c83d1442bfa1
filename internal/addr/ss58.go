// Package addr encodes and decodes SS58 account addresses.
package addr

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/mr-tron/base58"
	"golang.org/x/crypto/blake2b"
)

// SoraPrefix is the SS58 network prefix of the SORA main network.
const SoraPrefix uint16 = 69

// checksumPreamble is hashed in front of the payload per the SS58 spec.
var checksumPreamble = []byte("SS58PRE")

var (
	ErrInvalidAddress   = errors.New("invalid ss58 address")
	ErrChecksumMismatch = errors.New("ss58 checksum mismatch")
)

// Encode renders a 32-byte account id as an SS58 address under the given
// network prefix.
func Encode(accountID [32]byte, prefix uint16) string {
	var payload []byte
	if prefix < 64 {
		payload = append(payload, byte(prefix))
	} else {
		// Two-byte form per the SS58 registry encoding.
		first := 0x40 | byte((prefix>>2)&0x3f)
		second := byte((prefix&0x03)<<6) | byte((prefix>>8)&0x3f)
		payload = append(payload, first, second)
	}
	payload = append(payload, accountID[:]...)
	payload = append(payload, checksum(payload)...)
	return base58.Encode(payload)
}

// Decode parses an SS58 address back into its network prefix and
// account id, verifying the checksum.
func Decode(s string) (uint16, [32]byte, error) {
	var accountID [32]byte

	raw, err := base58.Decode(s)
	if err != nil {
		return 0, accountID, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}

	var prefix uint16
	var prefixLen int
	switch {
	case len(raw) == 1+32+2 && raw[0] < 64:
		prefix = uint16(raw[0])
		prefixLen = 1
	case len(raw) == 2+32+2 && raw[0]&0x40 != 0:
		lower := uint16(raw[0]&0x3f) << 2
		upper := uint16(raw[1]>>6) | uint16(raw[1]&0x3f)<<8
		prefix = lower | upper
		prefixLen = 2
	default:
		return 0, accountID, ErrInvalidAddress
	}

	body := raw[:prefixLen+32]
	if !bytes.Equal(raw[prefixLen+32:], checksum(body)) {
		return 0, accountID, ErrChecksumMismatch
	}

	copy(accountID[:], raw[prefixLen:prefixLen+32])
	return prefix, accountID, nil
}

// AccountID decodes an address and returns only the account id.
func AccountID(s string) ([32]byte, error) {
	_, id, err := Decode(s)
	return id, err
}

// checksum is the first two bytes of blake2b-512("SS58PRE" || payload).
func checksum(payload []byte) []byte {
	h, _ := blake2b.New512(nil)
	h.Write(checksumPreamble)
	h.Write(payload)
	return h.Sum(nil)[:2]
}
