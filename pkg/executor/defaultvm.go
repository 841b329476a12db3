package executor

import (
	"context"
	"fmt"
)

// DefaultVM is the in-process placeholder VM this repo ships absent any
// Go blockifier/Cairo-VM equivalent anywhere in the example pack (see
// DESIGN.md). It performs the class hash, nonce and compiled class
// lookups through the StateReader (it issues no storage reads, so the
// verified GetStorageAt path is not exercised by it), then reports that actual
// Cairo bytecode interpretation is unavailable rather than fabricating a
// result. A real execution engine implements VM and is swapped in
// without touching Executor or the RPC front-end.
type DefaultVM struct{}

// ExecuteEntryPoint resolves the class hash, nonce, and compiled class
// backing call.StorageAddress through reader (mirroring the lookups
// Beerus's StateReader performs during a blockifier call), then returns
// an EntryPointExecutionError since no bytecode interpreter is wired in.
func (DefaultVM) ExecuteEntryPoint(ctx context.Context, call CallEntryPoint, execCtx ExecutionContext, reader StateReader) (CallResult, error) {
	classHash, err := reader.GetClassHashAt(ctx, call.StorageAddress)
	if err != nil {
		return CallResult{}, StateReadError(fmt.Errorf("resolve class hash: %w", err))
	}

	if _, err := reader.GetNonceAt(ctx, call.StorageAddress); err != nil {
		return CallResult{}, StateReadError(fmt.Errorf("resolve nonce: %w", err))
	}

	if _, err := reader.GetCompiledContractClass(ctx, classHash); err != nil {
		return CallResult{}, StateReadError(fmt.Errorf("resolve compiled class: %w", err))
	}

	return CallResult{}, EntryPointExecutionError(fmt.Errorf(
		"no Cairo bytecode interpreter is wired in; class %s resolved but not executed", classHash.Hex()))
}
