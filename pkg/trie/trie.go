// Package trie implements the StarkNet Merkle-Patricia proof verifier
// (spec §4.B): reconstructing a storage-trie root and a contract-trie
// commitment from a leaf up to a claimed global state root. Grounded on
// Beerus's src/proof.rs (GetProofResult::verify/parse_proof/
// calculate_contract_state_hash/calculate_global_root), reimplemented
// against this repo's pkg/felt and pkg/starkcrypto instead of
// starknet-crypto's FieldElement.
package trie

import (
	"errors"
	"fmt"

	"github.com/certen/starknet-lite-proxy/pkg/felt"
	"github.com/certen/starknet-lite-proxy/pkg/starkcrypto"
)

// stateHashVersion is the trailing constant in the contract state hash
// formula: Pedersen(Pedersen(Pedersen(class_hash, root), nonce), 0).
var stateHashVersion = felt.Zero()

// globalStateDomain is the ASCII domain separator hashed into the
// global root: Poseidon("STARKNET_STATE_V0", storage_commitment, class_commitment).
var globalStateDomain = starkcrypto.FeltFromASCII("STARKNET_STATE_V0")

// EdgePath is the (len, value) pair compressed along an Edge node.
type EdgePath struct {
	Len   int
	Value felt.Felt
}

// BinaryNode is an internal trie node with two fixed children.
type BinaryNode struct {
	Left  felt.Felt
	Right felt.Felt
}

// EdgeNode is a path-compression node.
type EdgeNode struct {
	Child felt.Felt
	Path  EdgePath
}

// ProofNode is exactly one of Binary or Edge; exactly one field is set.
type ProofNode struct {
	Binary *BinaryNode
	Edge   *EdgeNode
}

// ContractData is the per-contract section of a getProof response.
type ContractData struct {
	ClassHash     felt.Felt
	Root          felt.Felt
	Nonce         felt.Felt
	StorageProofs [][]ProofNode
}

// GetProofResult is the full getProof response this verifier checks.
type GetProofResult struct {
	ClassCommitment *felt.Felt
	StateCommitment *felt.Felt
	ContractData    *ContractData
	ContractProof   []ProofNode
}

// Errors mirror the taxonomy in spec §4.B, mapped onto JSON-RPC codes by
// the caller (pkg/rpcerr.TrustFailure wraps whichever of these occurs).
var (
	ErrMissingContractData    = errors.New("trie: no contract data in proof result")
	ErrMissingStorageProofs   = errors.New("trie: no storage proof in contract data")
	ErrMissingClassCommitment = errors.New("trie: no class commitment in proof result")
	ErrMissingStateCommitment = errors.New("trie: no state commitment in proof result")
	ErrNoReconstruction       = errors.New("trie: proof does not reconstruct to any root")
)

// RootMismatchError reports a successfully reconstructed root that does
// not equal the root it was checked against.
type RootMismatchError struct {
	Provided felt.Felt
	Computed felt.Felt
	Context  string
}

func (e *RootMismatchError) Error() string {
	return fmt.Sprintf("trie: %s mismatch: provided=%s computed=%s", e.Context, e.Provided.Hex(), e.Computed.Hex())
}

// CommitmentMismatchError reports a global-root verification failure.
type CommitmentMismatchError struct {
	StateCommitment felt.Felt
	ParsedGlobal    felt.Felt
	GlobalRoot      felt.Felt
}

func (e *CommitmentMismatchError) Error() string {
	return fmt.Sprintf("trie: commitment mismatch: state=%s parsed=%s global=%s",
		e.StateCommitment.Hex(), e.ParsedGlobal.Hex(), e.GlobalRoot.Hex())
}

// Verify checks both the storage-inclusion proof and the contract-
// inclusion proof against globalRoot. Both must succeed; the first
// failure is returned.
func Verify(globalRoot felt.Felt, contractAddress felt.Felt, key felt.Felt, value felt.Felt, result GetProofResult) error {
	contractData := result.ContractData
	if contractData == nil {
		return ErrMissingContractData
	}
	if len(contractData.StorageProofs) == 0 {
		return ErrMissingStorageProofs
	}

	if err := verifyStorageProof(contractData, key, value); err != nil {
		return err
	}
	return verifyContractProof(result, contractData, globalRoot, contractAddress)
}

func verifyStorageProof(contractData *ContractData, key, value felt.Felt) error {
	computed, err := reconstructRoot(key, value, contractData.StorageProofs[0])
	if err != nil {
		return err
	}
	if !computed.Equal(contractData.Root) {
		return &RootMismatchError{Provided: contractData.Root, Computed: computed, Context: "storage root"}
	}
	return nil
}

func verifyContractProof(result GetProofResult, contractData *ContractData, globalRoot, contractAddress felt.Felt) error {
	if result.ClassCommitment == nil {
		return ErrMissingClassCommitment
	}
	if result.StateCommitment == nil {
		return ErrMissingStateCommitment
	}

	stateHash := ContractStateHash(contractData.ClassHash, contractData.Root, contractData.Nonce)

	storageCommitment, err := reconstructRoot(contractAddress, stateHash, result.ContractProof)
	if err != nil {
		return err
	}

	parsedGlobal := GlobalRoot(*result.ClassCommitment, storageCommitment)
	if !result.StateCommitment.Equal(parsedGlobal) || !globalRoot.Equal(parsedGlobal) {
		return &CommitmentMismatchError{
			StateCommitment: *result.StateCommitment,
			ParsedGlobal:    parsedGlobal,
			GlobalRoot:      globalRoot,
		}
	}
	return nil
}

// ContractStateHash computes Pedersen(Pedersen(Pedersen(classHash, root), nonce), stateHashVersion).
func ContractStateHash(classHash, root, nonce felt.Felt) felt.Felt {
	hash := starkcrypto.Pedersen(classHash, root)
	hash = starkcrypto.Pedersen(hash, nonce)
	return starkcrypto.Pedersen(hash, stateHashVersion)
}

// GlobalRoot computes Poseidon("STARKNET_STATE_V0", storageCommitment, classCommitment).
func GlobalRoot(classCommitment, storageCommitment felt.Felt) felt.Felt {
	return starkcrypto.PoseidonArray(globalStateDomain, storageCommitment, classCommitment)
}

// reconstructRoot walks proof from leaf toward root (the proof array is
// given leaf-last, so iteration is in reverse) and returns the
// reconstructed hash at the top of the walk. key is the storage key (for
// a storage proof) or the contract address (for a contract proof); value
// is the leaf value (storage value, or contract state hash).
func reconstructRoot(key, value felt.Felt, proof []ProofNode) (felt.Felt, error) {
	keyBits := key.ToBits251()

	hold := value
	pathLen := 0

	for i := len(proof) - 1; i >= 0; i-- {
		node := proof[i]
		leafIndex := len(proof) - 1 - i

		switch {
		case node.Edge != nil:
			edge := node.Edge
			if edge.Path.Len < 1 || edge.Path.Len > 251 {
				return felt.Zero(), ErrNoReconstruction
			}

			provided := starkcrypto.Pedersen(edge.Child, edge.Path.Value).Add(felt.FromUint64(uint64(edge.Path.Len)))

			if leafIndex == 0 {
				mask := 251 - edge.Path.Len
				masked, err := felt.FeltFromBits251(keyBits, mask)
				if err != nil {
					return felt.Zero(), ErrNoReconstruction
				}
				expected := starkcrypto.Pedersen(value, masked).Add(felt.FromUint64(uint64(edge.Path.Len)))
				if !provided.Equal(expected) {
					return felt.Zero(), ErrNoReconstruction
				}
			}

			pathLen += edge.Path.Len
			hold = provided

		case node.Binary != nil:
			binary := node.Binary
			pathLen++
			if pathLen > 251 {
				return felt.Zero(), ErrNoReconstruction
			}

			bitIndex := 251 - pathLen
			var expected felt.Felt
			if !keyBits[bitIndex] {
				expected = starkcrypto.Pedersen(hold, binary.Right)
			} else {
				expected = starkcrypto.Pedersen(binary.Left, hold)
			}

			computed := starkcrypto.Pedersen(binary.Left, binary.Right)
			if !computed.Equal(expected) {
				return felt.Zero(), ErrNoReconstruction
			}
			hold = computed

		default:
			return felt.Zero(), fmt.Errorf("trie: proof node %d has neither binary nor edge set", i)
		}
	}

	return hold, nil
}
