package object

import (
	"github.com/deepnoodle-ai/lox/value"
)

// Closure is a runtime function instance: a Function plus the upvalues it
// captured when the closure was created.
type Closure struct {
	Function value.Ref
	Upvalues []value.Ref
}

func (c *Closure) Type() Type { return CLOSURE }

func (c *Closure) size() int { return 32 + 4*len(c.Upvalues) }

func (c *Closure) traverse(mark func(value.Value)) {
	mark(value.NewObject(c.Function))
	for _, uv := range c.Upvalues {
		// Slots are filled in after the closure is allocated
		if uv.Valid() {
			mark(value.NewObject(uv))
		}
	}
}

// Upvalue is a variable captured by a closure. While the function that
// declared the variable is running the upvalue is open and refers to the
// variable's slot on the VM stack. When that function returns, the VM closes
// the upvalue, copying the value out of the stack. Closing happens once.
type Upvalue struct {
	open   bool
	slot   int
	closed value.Value
}

// NewOpenUpvalue returns an upvalue referring to a stack slot.
func NewOpenUpvalue(slot int) *Upvalue {
	return &Upvalue{open: true, slot: slot}
}

func (u *Upvalue) Type() Type { return UPVALUE }

func (u *Upvalue) size() int { return 32 }

func (u *Upvalue) traverse(mark func(value.Value)) {
	if !u.open {
		mark(u.closed)
	}
}

// IsOpen reports whether the upvalue still refers to a stack slot.
func (u *Upvalue) IsOpen() bool {
	return u.open
}

// Slot returns the stack slot of an open upvalue.
func (u *Upvalue) Slot() (int, bool) {
	return u.slot, u.open
}

// Get reads the captured variable.
func (u *Upvalue) Get(stack []value.Value) value.Value {
	if u.open {
		return stack[u.slot]
	}
	return u.closed
}

// Set writes the captured variable.
func (u *Upvalue) Set(stack []value.Value, v value.Value) {
	if u.open {
		stack[u.slot] = v
		return
	}
	u.closed = v
}

// Close moves the variable off the stack. Closing a closed upvalue is a
// no-op.
func (u *Upvalue) Close(stack []value.Value) {
	if !u.open {
		return
	}
	u.closed = stack[u.slot]
	u.open = false
}
