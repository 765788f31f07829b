// Package value defines the Value type manipulated by the Lox virtual machine.
//
// A Value is a small sum type: nil, a boolean, a number, or a reference to an
// object that lives on the heap. Object references are handles into the heap
// arena rather than pointers, so a Value can be copied freely and compared
// with ==.
package value

import (
	"math"
	"strconv"
)

// Kind identifies which variant a Value holds.
type Kind uint8

const (
	Nil Kind = iota
	Bool
	Number
	Object
)

// String returns a name for the kind.
func (k Kind) String() string {
	switch k {
	case Nil:
		return "nil"
	case Bool:
		return "bool"
	case Number:
		return "number"
	case Object:
		return "object"
	default:
		return "unknown"
	}
}

// Ref is a handle to an object on the heap. Refs are 1-based so the zero Ref
// never names a live object.
type Ref uint32

// NoRef is the zero Ref.
const NoRef Ref = 0

// Valid reports whether the Ref may name an object.
func (r Ref) Valid() bool {
	return r != NoRef
}

// Index returns the arena slot index for the Ref.
func (r Ref) Index() int {
	return int(r) - 1
}

// RefAt returns the Ref for the given arena slot index.
func RefAt(index int) Ref {
	return Ref(index + 1)
}

// Value is a Lox value.
type Value struct {
	kind Kind
	num  float64 // number payload, or 1/0 for booleans
	ref  Ref
}

// NilValue is the Lox nil.
var NilValue = Value{}

// True and False are the two boolean values.
var (
	True  = Value{kind: Bool, num: 1}
	False = Value{kind: Bool}
)

// NewBool returns a boolean Value.
func NewBool(b bool) Value {
	if b {
		return True
	}
	return False
}

// NewNumber returns a number Value.
func NewNumber(n float64) Value {
	return Value{kind: Number, num: n}
}

// NewObject returns a Value referencing a heap object.
func NewObject(ref Ref) Value {
	return Value{kind: Object, ref: ref}
}

// Kind returns the variant held by the Value.
func (v Value) Kind() Kind { return v.kind }

func (v Value) IsNil() bool    { return v.kind == Nil }
func (v Value) IsBool() bool   { return v.kind == Bool }
func (v Value) IsNumber() bool { return v.kind == Number }
func (v Value) IsObject() bool { return v.kind == Object }

// AsBool returns the boolean payload and whether the Value is a boolean.
func (v Value) AsBool() (bool, bool) {
	if v.kind != Bool {
		return false, false
	}
	return v.num != 0, true
}

// AsNumber returns the number payload and whether the Value is a number.
func (v Value) AsNumber() (float64, bool) {
	if v.kind != Number {
		return 0, false
	}
	return v.num, true
}

// AsRef returns the object handle and whether the Value is an object.
func (v Value) AsRef() (Ref, bool) {
	if v.kind != Object {
		return NoRef, false
	}
	return v.ref, true
}

// IsFalsey reports whether the Value is nil or false. Every other value,
// including 0 and the empty string, is truthy.
func (v Value) IsFalsey() bool {
	switch v.kind {
	case Nil:
		return true
	case Bool:
		return v.num == 0
	default:
		return false
	}
}

// Equal compares two Values. Numbers compare by IEEE equality so NaN is not
// equal to itself. Objects compare by identity, which is also content
// equality for strings because all strings are interned.
func Equal(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case Nil:
		return true
	case Bool, Number:
		return a.num == b.num
	case Object:
		return a.ref == b.ref
	default:
		return false
	}
}

// FormatNumber renders a number the way Lox prints it: integral values have
// no fractional part and everything else uses the shortest representation
// that round trips.
func FormatNumber(n float64) string {
	switch {
	case math.IsInf(n, 1):
		return "inf"
	case math.IsInf(n, -1):
		return "-inf"
	case math.IsNaN(n):
		return "nan"
	}
	return strconv.FormatFloat(n, 'g', -1, 64)
}

// String renders non-object Values. Objects need the heap to be rendered and
// show up here only as their handle.
func (v Value) String() string {
	switch v.kind {
	case Nil:
		return "nil"
	case Bool:
		if v.num != 0 {
			return "true"
		}
		return "false"
	case Number:
		return FormatNumber(v.num)
	case Object:
		return "<ref " + strconv.FormatUint(uint64(v.ref), 10) + ">"
	default:
		return "<invalid>"
	}
}
