// Package felt implements the 252-bit StarkNet field element: canonical
// hex encoding/decoding and the 251-bit MSB-first bit decomposition used
// by the Merkle-Patricia trie (spec §4.A), grounded on Beerus's
// src/util.rs (felt_to_bits/felt_from_bits) and backed by the standard
// library's math/big.
package felt

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strings"
)

// fieldModulus is the StarkNet prime: 2^251 + 17*2^192 + 1.
var fieldModulus = mustBig("3618502788666131213697322783095070105623107215331596699973092056135872020481")

func mustBig(dec string) *big.Int {
	n, ok := new(big.Int).SetString(dec, 10)
	if !ok {
		panic("felt: invalid modulus constant")
	}
	return n
}

// Felt is a 252-bit StarkNet field element, stored as the canonical
// (reduced, non-negative) big.Int value.
type Felt struct {
	v big.Int
}

// Zero is the additive identity.
func Zero() Felt { return Felt{} }

// FromBigInt reduces n modulo the field prime and returns the Felt.
func FromBigInt(n *big.Int) Felt {
	var f Felt
	f.v.Mod(n, fieldModulus)
	if f.v.Sign() < 0 {
		f.v.Add(&f.v, fieldModulus)
	}
	return f
}

// FromUint64 is a convenience constructor for small constants.
func FromUint64(n uint64) Felt {
	return FromBigInt(new(big.Int).SetUint64(n))
}

// FromHex parses a "0x"-prefixed hex string into a Felt. It accepts any
// valid hex (not just canonical form) since this is used to decode
// values received from the backend, not to validate them.
func FromHex(s string) (Felt, error) {
	s = strings.TrimSpace(s)
	trimmed := strings.TrimPrefix(s, "0x")
	trimmed = strings.TrimPrefix(trimmed, "0X")
	if trimmed == "" {
		return Zero(), fmt.Errorf("felt: empty hex string")
	}
	n, ok := new(big.Int).SetString(trimmed, 16)
	if !ok {
		return Zero(), fmt.Errorf("felt: invalid hex string %q", s)
	}
	if n.Sign() < 0 || n.Cmp(fieldModulus) >= 0 {
		return Zero(), fmt.Errorf("felt: value out of field range: %s", s)
	}
	return Felt{v: *n}, nil
}

// ParseCanonical parses s requiring strict canonical form: "0x" followed
// by lowercase hex with no leading zeros (except the single digit "0x0").
// Used where the spec's round-trip invariant (P6) must be enforced on
// externally supplied input, rather than merely decoded values.
func ParseCanonical(s string) (Felt, error) {
	if !strings.HasPrefix(s, "0x") {
		return Zero(), fmt.Errorf("felt: not canonical, missing 0x prefix: %q", s)
	}
	digits := s[2:]
	if digits == "" {
		return Zero(), fmt.Errorf("felt: not canonical, empty digits: %q", s)
	}
	if digits == "0" {
		return Zero(), nil
	}
	if digits[0] == '0' {
		return Zero(), fmt.Errorf("felt: not canonical, leading zero: %q", s)
	}
	for _, c := range digits {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return Zero(), fmt.Errorf("felt: not canonical, uppercase or invalid hex digit: %q", s)
		}
	}
	return FromHex(s)
}

// FromBytesBE decodes a 32-byte big-endian representation.
func FromBytesBE(b []byte) (Felt, error) {
	if len(b) != 32 {
		return Zero(), fmt.Errorf("felt: expected 32 bytes, got %d", len(b))
	}
	n := new(big.Int).SetBytes(b)
	if n.Cmp(fieldModulus) >= 0 {
		return Zero(), fmt.Errorf("felt: value out of field range")
	}
	return Felt{v: *n}, nil
}

// Hex returns the canonical lowercase hex encoding: "0x0" for zero, and
// "0x" followed by the minimal hex digits (no leading zeros) otherwise.
func (f Felt) Hex() string {
	if f.v.Sign() == 0 {
		return "0x0"
	}
	return "0x" + f.v.Text(16)
}

// String implements fmt.Stringer as the canonical hex form.
func (f Felt) String() string { return f.Hex() }

// BigInt returns a copy of the underlying value.
func (f Felt) BigInt() *big.Int { return new(big.Int).Set(&f.v) }

// IsZero reports whether f is the additive identity.
func (f Felt) IsZero() bool { return f.v.Sign() == 0 }

// Equal reports whether f and g represent the same field element.
func (f Felt) Equal(g Felt) bool { return f.v.Cmp(&g.v) == 0 }

// BytesBE returns the 32-byte big-endian representation, zero-padded.
func (f Felt) BytesBE() [32]byte {
	var out [32]byte
	b := f.v.Bytes()
	copy(out[32-len(b):], b)
	return out
}

// ToBits251 decomposes the Felt into its 251-bit MSB-first representation,
// dropping the top 5 bits of the 256-bit big-endian byte form. The top 4
// are always zero; the fifth (the 2^251 place) is set only for values of
// 2^251 or more, and is discarded. This matches Beerus's felt_to_bits
// exactly.
func (f Felt) ToBits251() [251]bool {
	raw := f.BytesBE()
	var bits [256]bool
	for i, byteVal := range raw {
		for j := 0; j < 8; j++ {
			bits[i*8+j] = (byteVal>>(7-j))&1 == 1
		}
	}
	var out [251]bool
	copy(out[:], bits[5:])
	return out
}

// FeltFromBits251 reconstructs a Felt from its 251-bit MSB-first
// representation, optionally masking the first `mask` bits to zero
// before reconstruction (used by the trie to apply an edge node's path
// length). mask must be in 0..251. This matches Beerus's felt_from_bits.
func FeltFromBits251(bits [251]bool, mask int) (Felt, error) {
	if mask < 0 || mask > 251 {
		return Zero(), fmt.Errorf("felt: mask cannot be bigger than 251, got %d", mask)
	}

	var raw [32]byte
	for i := mask; i < 251; i++ {
		if !bits[i] {
			continue
		}
		bitIndex := 5 + i
		byteIndex := bitIndex / 8
		bitInByte := bitIndex % 8
		raw[byteIndex] |= 1 << (7 - bitInByte)
	}
	return FromBytesBE(raw[:])
}

// Add returns f+g reduced modulo the field prime.
func (f Felt) Add(g Felt) Felt {
	sum := new(big.Int).Add(&f.v, &g.v)
	return FromBigInt(sum)
}

// MarshalJSON encodes f as its canonical hex string, matching the
// StarkNet JSON-RPC spec's Felt wire representation.
func (f Felt) MarshalJSON() ([]byte, error) {
	return []byte(`"` + f.Hex() + `"`), nil
}

// UnmarshalJSON decodes a canonical (or non-canonical) hex string into f.
func (f *Felt) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("felt: %w", err)
	}
	parsed, err := FromHex(s)
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}
