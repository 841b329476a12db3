// Package executor implements the call executor (spec §4.F): drives an
// external blockifier-like VM engine through a synthesized, all-zero/one
// execution context, wiring a StateReader (pkg/stateproxy) as the state
// source, and dispatches the CPU-bound call onto a bounded worker pool
// so the async RPC front-end is never blocked directly. Grounded on
// Beerus's src/exe/mod.rs (the exact field-by-field CallEntryPoint/
// BlockInfo/ChainInfo wiring this package mirrors) — no Go blockifier or
// Cairo-VM equivalent exists anywhere in the example pack, so the VM
// interface is the seam a real engine would plug into (see DESIGN.md).
package executor

import (
	"context"
	"fmt"
	"math"

	"github.com/certen/starknet-lite-proxy/pkg/felt"
)

// StateReader is the read-only state surface the VM pulls from during a
// call. It is the read-side subset of pkg/stateproxy.Proxy's methods, kept
// as a narrow local interface (rather than importing stateproxy) so the VM
// seam has no dependency on how the proxy itself is implemented.
type StateReader interface {
	GetStorageAt(ctx context.Context, address, key felt.Felt) (felt.Felt, error)
	GetNonceAt(ctx context.Context, address felt.Felt) (felt.Felt, error)
	GetClassHashAt(ctx context.Context, address felt.Felt) (felt.Felt, error)
	GetCompiledContractClass(ctx context.Context, classHash felt.Felt) ([]byte, error)
	GetCompiledClassHash(ctx context.Context, classHash felt.Felt) (felt.Felt, error)
}

// FunctionCall is the client-supplied call request (the RPC front-end's
// "call" params, spec §4.G category 3).
type FunctionCall struct {
	ContractAddress    felt.Felt
	EntryPointSelector felt.Felt
	Calldata           []felt.Felt
}

// ExecutionContext synthesizes the block/chain context a read-only call
// needs (spec §4.F): block number, timestamp, sequencer address, gas
// prices, fee-token addresses are all zeros/ones since they do not
// affect a pure storage read.
type ExecutionContext struct {
	BlockNumber       uint64
	BlockTimestamp    uint64
	SequencerAddress  felt.Felt
	GasPriceWei       felt.Felt
	GasPriceFri       felt.Felt
	EthFeeTokenAddr   felt.Felt
	StrkFeeTokenAddr  felt.Felt
}

// NewExecutionContext builds the all-zero/one context spec §4.F
// describes. blockNumber is carried through only for bookkeeping; it
// does not affect the result of a pure read.
func NewExecutionContext(blockNumber uint64) ExecutionContext {
	return ExecutionContext{
		BlockNumber:      blockNumber,
		BlockTimestamp:   0,
		SequencerAddress: felt.Zero(),
		GasPriceWei:      felt.FromUint64(1),
		GasPriceFri:      felt.FromUint64(1),
		EthFeeTokenAddr:  felt.Zero(),
		StrkFeeTokenAddr: felt.Zero(),
	}
}

// EntryPointType mirrors the StarkNet entry-point kind; the executor
// always dispatches External per spec §4.F.
type EntryPointType string

const EntryPointTypeExternal EntryPointType = "EXTERNAL"

// CallEntryPoint is the field-by-field wiring spec §4.F hands to the VM:
// entry_point_type=External, caller_address=0, initial_gas=u64::MAX.
type CallEntryPoint struct {
	EntryPointType     EntryPointType
	Selector           felt.Felt
	Calldata           []felt.Felt
	StorageAddress     felt.Felt
	CallerAddress      felt.Felt
	InitialGas         uint64
}

// NewCallEntryPoint builds the CallEntryPoint for fc exactly as spec
// §4.F wires it.
func NewCallEntryPoint(fc FunctionCall) CallEntryPoint {
	return CallEntryPoint{
		EntryPointType: EntryPointTypeExternal,
		Selector:       fc.EntryPointSelector,
		Calldata:       fc.Calldata,
		StorageAddress: fc.ContractAddress,
		CallerAddress:  felt.Zero(),
		InitialGas:     math.MaxUint64,
	}
}

// CallResult is CallInfo.execution.retdata: the sequence of Felts the VM
// returned (spec §4.F).
type CallResult struct {
	Retdata []felt.Felt
}

// Error categories mirror spec §4.F: EntryPointExecution, Transaction,
// State. Each wraps the underlying cause.
type ErrorCategory string

const (
	CategoryEntryPointExecution ErrorCategory = "entry_point_execution"
	CategoryTransaction         ErrorCategory = "transaction"
	CategoryState               ErrorCategory = "state"
)

// Error is the typed error the VM and Executor return, carrying the
// spec §4.F error-family tag the RPC front-end maps to JSON-RPC code 500.
type Error struct {
	Category ErrorCategory
	cause    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("executor: %s: %v", e.Category, e.cause)
}

func (e *Error) Unwrap() error { return e.cause }

func newError(category ErrorCategory, cause error) *Error {
	return &Error{Category: category, cause: cause}
}

// StateReadError wraps a StateReader failure encountered mid-call.
func StateReadError(cause error) *Error { return newError(CategoryState, cause) }

// EntryPointExecutionError wraps a VM-level entry-point failure.
func EntryPointExecutionError(cause error) *Error {
	return newError(CategoryEntryPointExecution, cause)
}

// TransactionError wraps a transaction-construction/validation failure.
func TransactionError(cause error) *Error { return newError(CategoryTransaction, cause) }

// VM is the external execution engine seam (spec §1: the L2 VM /
// bytecode interpreter is explicitly out of scope; this interface is
// the contract a real blockifier-equivalent would implement).
type VM interface {
	ExecuteEntryPoint(ctx context.Context, call CallEntryPoint, execCtx ExecutionContext, reader StateReader) (CallResult, error)
}

// Executor drives a VM through a bounded worker pool so CPU-bound
// execution never blocks the async RPC front-end directly (spec §4.F/§5).
type Executor struct {
	vm   VM
	pool *Pool
}

// New constructs an Executor backed by vm and a worker pool of the given
// size (0 uses DefaultPoolSize).
func New(vm VM, poolSize int) *Executor {
	return &Executor{vm: vm, pool: NewPool(poolSize)}
}

// Call dispatches a single read-only entry-point call onto the worker
// pool and returns its retdata or the VM's error (a categorized Error for
// DefaultVM). A failed submission or a cancelled ctx returns a plain,
// uncategorized error.
func (e *Executor) Call(ctx context.Context, fc FunctionCall, blockNumber uint64, reader StateReader) (CallResult, error) {
	callEntryPoint := NewCallEntryPoint(fc)
	execCtx := NewExecutionContext(blockNumber)

	type outcome struct {
		result CallResult
		err    error
	}
	out := make(chan outcome, 1)

	submitErr := e.pool.Submit(ctx, func() {
		result, err := e.vm.ExecuteEntryPoint(ctx, callEntryPoint, execCtx, reader)
		out <- outcome{result: result, err: err}
	})
	if submitErr != nil {
		return CallResult{}, fmt.Errorf("executor: submit call: %w", submitErr)
	}

	select {
	case <-ctx.Done():
		return CallResult{}, ctx.Err()
	case o := <-out:
		return o.result, o.err
	}
}

// Close shuts down the worker pool, waiting for in-flight jobs to drain.
func (e *Executor) Close() { e.pool.Close() }
