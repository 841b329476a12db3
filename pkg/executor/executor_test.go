package executor

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/certen/starknet-lite-proxy/pkg/felt"
)

type stubReader struct {
	classHash felt.Felt
	classErr  error
	nonceErr  error
	classBody []byte
	classBodyErr error
}

func (s *stubReader) GetStorageAt(ctx context.Context, address, key felt.Felt) (felt.Felt, error) {
	return felt.Zero(), nil
}
func (s *stubReader) GetNonceAt(ctx context.Context, address felt.Felt) (felt.Felt, error) {
	return felt.Zero(), s.nonceErr
}
func (s *stubReader) GetClassHashAt(ctx context.Context, address felt.Felt) (felt.Felt, error) {
	return s.classHash, s.classErr
}
func (s *stubReader) GetCompiledContractClass(ctx context.Context, classHash felt.Felt) ([]byte, error) {
	return s.classBody, s.classBodyErr
}
func (s *stubReader) GetCompiledClassHash(ctx context.Context, classHash felt.Felt) (felt.Felt, error) {
	return felt.Zero(), errors.New("undeclared")
}

func TestDefaultVM_ResolvesStateThenReportsNoInterpreter(t *testing.T) {
	reader := &stubReader{classHash: felt.FromUint64(7), classBody: []byte(`{}`)}
	vm := DefaultVM{}

	_, err := vm.ExecuteEntryPoint(context.Background(), CallEntryPoint{StorageAddress: felt.FromUint64(1)}, NewExecutionContext(0), reader)
	require.Error(t, err)

	var execErr *Error
	require.True(t, errors.As(err, &execErr))
	require.Equal(t, CategoryEntryPointExecution, execErr.Category)
}

func TestDefaultVM_PropagatesStateReadFailure(t *testing.T) {
	reader := &stubReader{classErr: errors.New("backend unreachable")}
	vm := DefaultVM{}

	_, err := vm.ExecuteEntryPoint(context.Background(), CallEntryPoint{}, NewExecutionContext(0), reader)
	var execErr *Error
	require.True(t, errors.As(err, &execErr))
	require.Equal(t, CategoryState, execErr.Category)
}

func TestExecutor_Call_DispatchesToPool(t *testing.T) {
	reader := &stubReader{classHash: felt.FromUint64(1), classBody: []byte(`{}`)}
	exec := New(DefaultVM{}, 2)
	defer exec.Close()

	_, err := exec.Call(context.Background(), FunctionCall{ContractAddress: felt.FromUint64(1)}, 0, reader)
	require.Error(t, err)
	var execErr *Error
	require.True(t, errors.As(err, &execErr))
}

func TestExecutor_Call_RespectsCancellation(t *testing.T) {
	exec := New(DefaultVM{}, 1)
	defer exec.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := exec.Call(ctx, FunctionCall{}, 0, &stubReader{})
	require.Error(t, err)
}

func TestPool_SubmitAndClose(t *testing.T) {
	pool := NewPool(2)
	done := make(chan struct{})
	err := pool.Submit(context.Background(), func() { close(done) })
	require.NoError(t, err)
	<-done
	pool.Close()
}
