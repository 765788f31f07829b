package op

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGetInfo(t *testing.T) {
	info := GetInfo(Closure)
	require.Equal(t, "OP_CLOSURE", info.Name)
	require.Equal(t, 1, info.OperandCount)
	require.Equal(t, LayoutClosure, info.Layout)
	require.Equal(t, Closure, info.Code)
}

func TestGetInfoAllOpcodes(t *testing.T) {
	tests := []struct {
		code     Code
		name     string
		operands int
	}{
		{Constant, "OP_CONSTANT", 1},
		{Nil, "OP_NIL", 0},
		{True, "OP_TRUE", 0},
		{False, "OP_FALSE", 0},
		{Pop, "OP_POP", 0},
		{GetLocal, "OP_GET_LOCAL", 1},
		{SetLocal, "OP_SET_LOCAL", 1},
		{GetGlobal, "OP_GET_GLOBAL", 1},
		{DefineGlobal, "OP_DEFINE_GLOBAL", 1},
		{SetGlobal, "OP_SET_GLOBAL", 1},
		{GetUpvalue, "OP_GET_UPVALUE", 1},
		{SetUpvalue, "OP_SET_UPVALUE", 1},
		{GetProperty, "OP_GET_PROPERTY", 1},
		{SetProperty, "OP_SET_PROPERTY", 1},
		{GetSuper, "OP_GET_SUPER", 1},
		{Equal, "OP_EQUAL", 0},
		{Greater, "OP_GREATER", 0},
		{Less, "OP_LESS", 0},
		{Add, "OP_ADD", 0},
		{Subtract, "OP_SUBTRACT", 0},
		{Multiply, "OP_MULTIPLY", 0},
		{Divide, "OP_DIVIDE", 0},
		{Not, "OP_NOT", 0},
		{Negate, "OP_NEGATE", 0},
		{Print, "OP_PRINT", 0},
		{Jump, "OP_JUMP", 2},
		{JumpIfFalse, "OP_JUMP_IF_FALSE", 2},
		{Loop, "OP_LOOP", 2},
		{Call, "OP_CALL", 1},
		{Invoke, "OP_INVOKE", 2},
		{SuperInvoke, "OP_SUPER_INVOKE", 2},
		{Closure, "OP_CLOSURE", 1},
		{CloseUpvalue, "OP_CLOSE_UPVALUE", 0},
		{Return, "OP_RETURN", 0},
		{Class, "OP_CLASS", 1},
		{Inherit, "OP_INHERIT", 0},
		{Method, "OP_METHOD", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := GetInfo(tt.code)
			require.Equal(t, tt.code, info.Code)
			require.Equal(t, tt.name, info.Name)
			require.Equal(t, tt.operands, info.OperandCount)
			require.Equal(t, tt.name, tt.code.String())
		})
	}
}

func TestUnknownOpcode(t *testing.T) {
	info := GetInfo(Code(200))
	require.Equal(t, "", info.Name)
	require.Equal(t, "OP_UNKNOWN", Code(200).String())
}
