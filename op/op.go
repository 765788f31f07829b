// Package op defines opcodes used by the Lox compiler and virtual machine.
package op

// Code is a one-byte opcode that indicates an operation to execute.
type Code uint8

const (
	// Constants and literals
	Constant Code = iota
	Nil
	True
	False

	// Stack
	Pop

	// Variables
	GetLocal
	SetLocal
	GetGlobal
	DefineGlobal
	SetGlobal
	GetUpvalue
	SetUpvalue
	GetProperty
	SetProperty
	GetSuper

	// Operations
	Equal
	Greater
	Less
	Add
	Subtract
	Multiply
	Divide
	Not
	Negate

	// Statements
	Print

	// Jump
	Jump
	JumpIfFalse
	Loop

	// Execution
	Call
	Invoke
	SuperInvoke
	Closure
	CloseUpvalue
	Return

	// Classes
	Class
	Inherit
	Method
)

// Layout describes how the operand bytes following an opcode are encoded.
type Layout uint8

const (
	// LayoutSimple has no operands.
	LayoutSimple Layout = iota
	// LayoutByte has a single byte operand: a slot, upvalue index or
	// argument count.
	LayoutByte
	// LayoutConstant has a single byte index into the constant pool.
	LayoutConstant
	// LayoutJump has a two byte big-endian forward offset.
	LayoutJump
	// LayoutLoop has a two byte big-endian backward offset.
	LayoutLoop
	// LayoutInvoke has a constant index for the method name followed by an
	// argument count.
	LayoutInvoke
	// LayoutClosure has a constant index for the function followed by an
	// (isLocal, index) byte pair for each of the function's upvalues.
	LayoutClosure
)

// Info contains information about an opcode.
type Info struct {
	Code   Code
	Name   string
	Layout Layout
	// OperandCount is the number of fixed operand bytes. Closure instructions
	// carry two more bytes per captured upvalue.
	OperandCount int
}

var infos = make([]Info, 256)

func init() {
	type opInfo struct {
		op     Code
		name   string
		layout Layout
	}
	ops := []opInfo{
		{Add, "OP_ADD", LayoutSimple},
		{Call, "OP_CALL", LayoutByte},
		{Class, "OP_CLASS", LayoutConstant},
		{CloseUpvalue, "OP_CLOSE_UPVALUE", LayoutSimple},
		{Closure, "OP_CLOSURE", LayoutClosure},
		{Constant, "OP_CONSTANT", LayoutConstant},
		{DefineGlobal, "OP_DEFINE_GLOBAL", LayoutConstant},
		{Divide, "OP_DIVIDE", LayoutSimple},
		{Equal, "OP_EQUAL", LayoutSimple},
		{False, "OP_FALSE", LayoutSimple},
		{GetGlobal, "OP_GET_GLOBAL", LayoutConstant},
		{GetLocal, "OP_GET_LOCAL", LayoutByte},
		{GetProperty, "OP_GET_PROPERTY", LayoutConstant},
		{GetSuper, "OP_GET_SUPER", LayoutConstant},
		{GetUpvalue, "OP_GET_UPVALUE", LayoutByte},
		{Greater, "OP_GREATER", LayoutSimple},
		{Inherit, "OP_INHERIT", LayoutSimple},
		{Invoke, "OP_INVOKE", LayoutInvoke},
		{Jump, "OP_JUMP", LayoutJump},
		{JumpIfFalse, "OP_JUMP_IF_FALSE", LayoutJump},
		{Less, "OP_LESS", LayoutSimple},
		{Loop, "OP_LOOP", LayoutLoop},
		{Method, "OP_METHOD", LayoutConstant},
		{Multiply, "OP_MULTIPLY", LayoutSimple},
		{Negate, "OP_NEGATE", LayoutSimple},
		{Nil, "OP_NIL", LayoutSimple},
		{Not, "OP_NOT", LayoutSimple},
		{Pop, "OP_POP", LayoutSimple},
		{Print, "OP_PRINT", LayoutSimple},
		{Return, "OP_RETURN", LayoutSimple},
		{SetGlobal, "OP_SET_GLOBAL", LayoutConstant},
		{SetLocal, "OP_SET_LOCAL", LayoutByte},
		{SetProperty, "OP_SET_PROPERTY", LayoutConstant},
		{SetUpvalue, "OP_SET_UPVALUE", LayoutByte},
		{Subtract, "OP_SUBTRACT", LayoutSimple},
		{SuperInvoke, "OP_SUPER_INVOKE", LayoutInvoke},
		{True, "OP_TRUE", LayoutSimple},
	}
	for _, o := range ops {
		infos[o.op] = Info{
			Code:         o.op,
			Name:         o.name,
			Layout:       o.layout,
			OperandCount: operandBytes(o.layout),
		}
	}
}

func operandBytes(layout Layout) int {
	switch layout {
	case LayoutByte, LayoutConstant, LayoutClosure:
		return 1
	case LayoutJump, LayoutLoop, LayoutInvoke:
		return 2
	default:
		return 0
	}
}

// GetInfo returns information about the given opcode. Unknown opcodes return
// an Info with an empty Name.
func GetInfo(op Code) Info {
	return infos[op]
}

// String returns the opcode name, for example "OP_CONSTANT".
func (c Code) String() string {
	if name := infos[c].Name; name != "" {
		return name
	}
	return "OP_UNKNOWN"
}
