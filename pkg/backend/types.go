package backend

import (
	"encoding/json"
	"fmt"

	"github.com/certen/starknet-lite-proxy/pkg/felt"
	"github.com/certen/starknet-lite-proxy/pkg/trie"
)

// BlockTag is the "latest"/"pending" arm of BlockID (spec §3).
type BlockTag string

const (
	TagLatest  BlockTag = "latest"
	TagPending BlockTag = "pending"
)

// BlockID is the tagged union a client may supply: {Number}, {Hash}, or
// {Tag: Latest|Pending}. Exactly one of Number/Hash/Tag is set.
type BlockID struct {
	Number *uint64
	Hash   *felt.Felt
	Tag    BlockTag
}

func NumberID(n uint64) BlockID    { return BlockID{Number: &n} }
func HashID(h felt.Felt) BlockID   { return BlockID{Hash: &h} }
func LatestID() BlockID            { return BlockID{Tag: TagLatest} }
func PendingID() BlockID           { return BlockID{Tag: TagPending} }

// MarshalJSON encodes the block id the way the StarkNet JSON-RPC spec
// expects it on the wire: a tag string, or a one-field object.
func (b BlockID) MarshalJSON() ([]byte, error) {
	switch {
	case b.Number != nil:
		return json.Marshal(struct {
			BlockNumber uint64 `json:"block_number"`
		}{*b.Number})
	case b.Hash != nil:
		return json.Marshal(struct {
			BlockHash felt.Felt `json:"block_hash"`
		}{*b.Hash})
	case b.Tag != "":
		return json.Marshal(string(b.Tag))
	default:
		return nil, fmt.Errorf("backend: empty BlockID")
	}
}

// UnmarshalJSON accepts every shape MarshalJSON can produce, plus the
// "pending"/"latest" block tag strings.
func (b *BlockID) UnmarshalJSON(data []byte) error {
	var tag string
	if err := json.Unmarshal(data, &tag); err == nil {
		switch BlockTag(tag) {
		case TagLatest:
			*b = LatestID()
		case TagPending:
			*b = PendingID()
		default:
			return fmt.Errorf("backend: unrecognized block tag %q", tag)
		}
		return nil
	}

	var byNumber struct {
		BlockNumber *uint64 `json:"block_number"`
	}
	if err := json.Unmarshal(data, &byNumber); err == nil && byNumber.BlockNumber != nil {
		*b = NumberID(*byNumber.BlockNumber)
		return nil
	}

	var byHash struct {
		BlockHash *felt.Felt `json:"block_hash"`
	}
	if err := json.Unmarshal(data, &byHash); err == nil && byHash.BlockHash != nil {
		*b = HashID(*byHash.BlockHash)
		return nil
	}

	return fmt.Errorf("backend: could not parse block id from %s", string(data))
}

// Header is the subset of a StarkNet block header the resolver needs to
// validate a historical lookup (spec §4.D).
type Header struct {
	BlockNumber uint64    `json:"block_number"`
	BlockHash   felt.Felt `json:"block_hash"`
	NewRoot     felt.Felt `json:"new_root"`
}

// wireEdgePath/wireProofNode mirror the JSON shape of a StarkNet proof
// node: {"binary":{"left":...,"right":...}} or
// {"edge":{"child":...,"path":{"len":...,"value":...}}}.
type wireEdgePath struct {
	Len   int       `json:"len"`
	Value felt.Felt `json:"value"`
}

type wireBinary struct {
	Left  felt.Felt `json:"left"`
	Right felt.Felt `json:"right"`
}

type wireEdge struct {
	Child felt.Felt    `json:"child"`
	Path  wireEdgePath `json:"path"`
}

type wireProofNode struct {
	Binary *wireBinary `json:"binary,omitempty"`
	Edge   *wireEdge   `json:"edge,omitempty"`
}

func (n wireProofNode) toTrie() (trie.ProofNode, error) {
	switch {
	case n.Binary != nil:
		return trie.ProofNode{Binary: &trie.BinaryNode{Left: n.Binary.Left, Right: n.Binary.Right}}, nil
	case n.Edge != nil:
		return trie.ProofNode{Edge: &trie.EdgeNode{
			Child: n.Edge.Child,
			Path:  trie.EdgePath{Len: n.Edge.Path.Len, Value: n.Edge.Path.Value},
		}}, nil
	default:
		return trie.ProofNode{}, fmt.Errorf("backend: proof node has neither binary nor edge")
	}
}

func decodeProofNodes(raw []wireProofNode) ([]trie.ProofNode, error) {
	out := make([]trie.ProofNode, len(raw))
	for i, n := range raw {
		node, err := n.toTrie()
		if err != nil {
			return nil, err
		}
		out[i] = node
	}
	return out, nil
}

// wireContractData/wireGetProofResult mirror getProof's wire shape.
type wireContractData struct {
	ClassHash     felt.Felt         `json:"class_hash"`
	Root          felt.Felt         `json:"root"`
	Nonce         felt.Felt         `json:"nonce"`
	StorageProofs [][]wireProofNode `json:"storage_proofs"`
}

type wireGetProofResult struct {
	ClassCommitment *felt.Felt        `json:"class_commitment,omitempty"`
	StateCommitment *felt.Felt        `json:"state_commitment,omitempty"`
	ContractData    *wireContractData `json:"contract_data,omitempty"`
	ContractProof   []wireProofNode   `json:"contract_proof"`
}

func (r wireGetProofResult) toTrie() (trie.GetProofResult, error) {
	out := trie.GetProofResult{
		ClassCommitment: r.ClassCommitment,
		StateCommitment: r.StateCommitment,
	}

	contractProof, err := decodeProofNodes(r.ContractProof)
	if err != nil {
		return trie.GetProofResult{}, err
	}
	out.ContractProof = contractProof

	if r.ContractData != nil {
		storageProofs := make([][]trie.ProofNode, len(r.ContractData.StorageProofs))
		for i, sp := range r.ContractData.StorageProofs {
			decoded, err := decodeProofNodes(sp)
			if err != nil {
				return trie.GetProofResult{}, err
			}
			storageProofs[i] = decoded
		}
		out.ContractData = &trie.ContractData{
			ClassHash:     r.ContractData.ClassHash,
			Root:          r.ContractData.Root,
			Nonce:         r.ContractData.Nonce,
			StorageProofs: storageProofs,
		}
	}

	return out, nil
}
