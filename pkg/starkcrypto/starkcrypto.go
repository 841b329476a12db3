// Package starkcrypto wraps the Pedersen and Poseidon hash functions
// used by the trie verifier (spec §4.A/§4.B), treated per spec as
// external functional contracts rather than something this repo
// reimplements. The actual field arithmetic is delegated to
// github.com/NethermindEth/starknet.go's curve package, the StarkNet
// ecosystem's standard Go implementation of the stark curve (the
// teacher's gnark-crypto dependency targets BN254/BLS12-381 and has no
// stark-curve support, so it could not serve this role — see DESIGN.md).
package starkcrypto

import (
	"math/big"

	"github.com/NethermindEth/starknet.go/curve"

	"github.com/certen/starknet-lite-proxy/pkg/felt"
)

// Pedersen computes the 2-ary Pedersen hash of a and b.
func Pedersen(a, b felt.Felt) felt.Felt {
	result, err := curve.Curve.PedersenHash([]*big.Int{a.BigInt(), b.BigInt()})
	if err != nil {
		// The underlying implementation only errors on malformed inputs,
		// which cannot occur since a/b are already field elements.
		panic("starkcrypto: pedersen hash failed on well-formed input: " + err.Error())
	}
	return felt.FromBigInt(result)
}

// PedersenChain folds Pedersen across a sequence of at least two
// elements, left to right: Pedersen(...Pedersen(Pedersen(e0,e1),e2)...).
func PedersenChain(elements ...felt.Felt) felt.Felt {
	if len(elements) < 2 {
		panic("starkcrypto: PedersenChain requires at least two elements")
	}
	acc := Pedersen(elements[0], elements[1])
	for _, e := range elements[2:] {
		acc = Pedersen(acc, e)
	}
	return acc
}

// PoseidonArray computes the n-ary Poseidon hash over elements, used for
// the global state commitment (spec §4.B: Poseidon("STARKNET_STATE_V0",
// storage_commitment, class_commitment)).
func PoseidonArray(elements ...felt.Felt) felt.Felt {
	ints := make([]*big.Int, len(elements))
	for i, e := range elements {
		ints[i] = e.BigInt()
	}
	result := curve.Curve.PoseidonArray(ints...)
	return felt.FromBigInt(result)
}

// FeltFromASCII encodes a short ASCII tag (e.g. "STARKNET_STATE_V0") as a
// Felt the way StarkNet short-strings are represented: the string's bytes
// taken as a big-endian integer.
func FeltFromASCII(s string) felt.Felt {
	n := new(big.Int).SetBytes([]byte(s))
	return felt.FromBigInt(n)
}
