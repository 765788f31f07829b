package errz

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCompileError(t *testing.T) {
	tests := []struct {
		err      *CompileError
		expected string
	}{
		{&CompileError{Line: 1, Where: " at 'x'", Message: "Expect ';' after value."}, "[line 1] Error at 'x': Expect ';' after value."},
		{&CompileError{Line: 3, Where: " at end", Message: "Expect '}' after block."}, "[line 3] Error at end: Expect '}' after block."},
		{&CompileError{Line: 2, Message: "Unterminated string."}, "[line 2] Error: Unterminated string."},
	}
	for _, tt := range tests {
		require.Equal(t, tt.expected, tt.err.Error())
	}
	require.Equal(t, "syntax error: [line 2] Error: Unterminated string.", tests[2].err.FriendlyErrorMessage())
}

func TestRuntimeError(t *testing.T) {
	err := NewRuntimeError(ErrArity, []StackFrame{
		{Function: "add", Line: 2},
		{Function: "script", Line: 5},
	}, "Expected %d arguments but got %d.", 2, 1)

	require.Equal(t, "Expected 2 arguments but got 1.\n[line 2] in add()\n[line 5] in script", err.Error())
	require.Equal(t, 2, err.Line())
	require.Equal(t, "arity error", err.Kind.String())

	var rerr *RuntimeError
	wrapped := fmt.Errorf("run: %w", err)
	require.True(t, errors.As(wrapped, &rerr))
	require.Equal(t, ErrArity, rerr.Kind)

	var friendly FriendlyError = err
	require.Contains(t, friendly.FriendlyErrorMessage(), "arity error: Expected 2")
}

func TestRuntimeErrorCause(t *testing.T) {
	cause := errors.New("boom")
	err := NewRuntimeError(ErrRuntime, nil, "native failed").WithCause(cause)
	require.Equal(t, "native failed", err.Error())
	require.ErrorIs(t, err, cause)
	require.Equal(t, 0, err.Line())
}

func TestStackFrameString(t *testing.T) {
	require.Equal(t, "[line 1] in script", StackFrame{Line: 1}.String())
	require.Equal(t, "[line 4] in fib()", StackFrame{Function: "fib", Line: 4}.String())
	require.Equal(t, "", FormatStackTrace(nil))
}
