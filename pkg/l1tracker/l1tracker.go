// Copyright 2025 Certen Protocol
//
// Package l1tracker implements the L1-anchored state tracker (spec
// §4.C): a background loop that calls the L2 core contract on Ethereum
// to obtain the canonical (block_number, block_hash, state_root) triple
// and publishes it under a read/write lock. Grounded on the teacher's
// pkg/anchor/event_watcher.go background-poll-loop shape and
// pkg/ethereum/client.go's ethclient wiring, retargeted from watching
// CertenAnchorV3 contract events to polling StarkNet's L2 core contract
// via raw eth_call.
package l1tracker

import (
	"context"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/certen/starknet-lite-proxy/pkg/felt"
	"github.com/certen/starknet-lite-proxy/pkg/logging"
)

// Network identifies which StarkNet/Ethereum pairing to track.
type Network string

const (
	Mainnet Network = "MAINNET"
	Sepolia Network = "SEPOLIA"
)

// Baked-in constants (spec §6): the L2 core contract address and chain
// id per network, and the first 4 bytes of the keccak of each accessor's
// selector.
const (
	mainnetCoreContract = "0xc662c410C0ECf747543f5bA90660f6ABeBD9C8c4"
	mainnetChainID      = "0x534e5f4d41494e"

	sepoliaCoreContract = "0xE2Bb56ee936fd6433DC0F6e7e3b8365C906AA057"
	sepoliaChainID      = "0x534e5f5345504f4c4941"

	selectorStateBlockNumber = "35befa5d"
	selectorStateBlockHash   = "382d83e3"
	selectorStateRoot        = "9588eca2"
)

// CoreContractAddress returns the baked-in L2 core contract address for
// the given network.
func CoreContractAddress(network Network) (common.Address, error) {
	switch network {
	case Mainnet:
		return common.HexToAddress(mainnetCoreContract), nil
	case Sepolia:
		return common.HexToAddress(sepoliaCoreContract), nil
	default:
		return common.Address{}, fmt.Errorf("l1tracker: unknown network %q", network)
	}
}

// ChainID returns the StarkNet chain id (itself a Felt) for the network.
func ChainID(network Network) (felt.Felt, error) {
	switch network {
	case Mainnet:
		return felt.FromHex(mainnetChainID)
	case Sepolia:
		return felt.FromHex(sepoliaChainID)
	default:
		return felt.Zero(), fmt.Errorf("l1tracker: unknown network %q", network)
	}
}

// State is the consistent snapshot published by the tracker: all three
// fields always refer to the same committed L2 block (spec §3).
type State struct {
	BlockNumber uint64
	BlockHash   felt.Felt
	Root        felt.Felt
}

func (s State) equal(other State) bool {
	return s.BlockNumber == other.BlockNumber && s.BlockHash.Equal(other.BlockHash) && s.Root.Equal(other.Root)
}

// Tracker runs the background L1-polling loop and serves snapshots of
// the latest state behind a read/write lock.
type Tracker struct {
	eth           *ethclient.Client
	coreContract  common.Address
	pollInterval  time.Duration
	log           *logging.Logger

	mu    sync.RWMutex
	state State
}

// New connects to the L1 execution RPC and constructs a Tracker for the
// given network. It does not start polling; call Init, then Run.
func New(ethExecutionRPC string, network Network, pollInterval time.Duration, log *logging.Logger) (*Tracker, error) {
	client, err := ethclient.Dial(ethExecutionRPC)
	if err != nil {
		return nil, fmt.Errorf("l1tracker: failed to connect to L1 execution RPC: %w", err)
	}

	coreContract, err := CoreContractAddress(network)
	if err != nil {
		client.Close()
		return nil, err
	}

	return &Tracker{
		eth:          client,
		coreContract: coreContract,
		pollInterval: pollInterval,
		log:          log.With("l1tracker"),
	}, nil
}

// Snapshot returns a copy of the current published state. Safe for
// concurrent use; the caller never observes a mixed-block triple.
func (t *Tracker) Snapshot() State {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.state
}

// Init performs one synchronous poll pass and publishes the result.
// Per spec §4.C this must succeed before the RPC front-end accepts
// traffic; callers should treat a non-nil error as fatal to startup.
func (t *Tracker) Init(ctx context.Context) error {
	state, err := t.poll(ctx)
	if err != nil {
		return fmt.Errorf("l1tracker: initial sync failed: %w", err)
	}
	t.publish(state)
	t.log.Info("initial sync complete: block=%d hash=%s root=%s", state.BlockNumber, state.BlockHash.Hex(), state.Root.Hex())
	return nil
}

// Run polls at the configured interval until ctx is cancelled. Failures
// after the initial pass are logged and retried next tick, never fatal
// (spec §4.C).
func (t *Tracker) Run(ctx context.Context) {
	ticker := time.NewTicker(t.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			t.log.Info("stopping")
			return
		case <-ticker.C:
			state, err := t.poll(ctx)
			if err != nil {
				t.log.Error("poll failed, retrying next tick: %v", err)
				continue
			}
			if !state.equal(t.Snapshot()) {
				t.publish(state)
				t.log.Info("advanced to block=%d hash=%s root=%s", state.BlockNumber, state.BlockHash.Hex(), state.Root.Hex())
			}
		}
	}
}

func (t *Tracker) publish(state State) {
	t.mu.Lock()
	t.state = state
	t.mu.Unlock()
}

// poll executes the three L1 calls described in spec §4.C and returns
// the decoded triple without publishing it.
func (t *Tracker) poll(ctx context.Context) (State, error) {
	blockNumber, err := t.callUint64(ctx, selectorStateBlockNumber)
	if err != nil {
		return State{}, fmt.Errorf("stateBlockNumber: %w", err)
	}

	blockHash, err := t.callFelt(ctx, selectorStateBlockHash)
	if err != nil {
		return State{}, fmt.Errorf("stateBlockHash: %w", err)
	}

	root, err := t.callFelt(ctx, selectorStateRoot)
	if err != nil {
		return State{}, fmt.Errorf("stateRoot: %w", err)
	}

	return State{BlockNumber: blockNumber, BlockHash: blockHash, Root: root}, nil
}

// call invokes the core contract with the given 4-byte selector and
// returns the raw 32-byte big-endian return value.
func (t *Tracker) call(ctx context.Context, selectorHex string) ([]byte, error) {
	data, err := hex.DecodeString(strings.TrimPrefix(selectorHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("l1tracker: invalid selector %q: %w", selectorHex, err)
	}

	out, err := t.eth.CallContract(ctx, ethereum.CallMsg{
		To:   &t.coreContract,
		Data: data,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("l1tracker: eth_call failed: %w", err)
	}
	if len(out) != 32 {
		return nil, fmt.Errorf("l1tracker: expected 32-byte return value, got %d bytes", len(out))
	}
	return out, nil
}

func (t *Tracker) callUint64(ctx context.Context, selectorHex string) (uint64, error) {
	raw, err := t.call(ctx, selectorHex)
	if err != nil {
		return 0, err
	}
	return new(big.Int).SetBytes(raw[24:]).Uint64(), nil
}

func (t *Tracker) callFelt(ctx context.Context, selectorHex string) (felt.Felt, error) {
	raw, err := t.call(ctx, selectorHex)
	if err != nil {
		return felt.Zero(), err
	}
	return felt.FromBytesBE(raw)
}

// Close releases the underlying L1 connection.
func (t *Tracker) Close() {
	t.eth.Close()
}
