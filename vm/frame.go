package vm

import (
	"github.com/deepnoodle-ai/lox/bytecode"
	"github.com/deepnoodle-ai/lox/object"
	"github.com/deepnoodle-ai/lox/value"
)

// frame is one active call. The callee, or the receiver for methods, sits in
// the stack slot at base, followed by the arguments and then the locals.
type frame struct {
	closureRef value.Ref
	closure    *object.Closure
	function   *object.Function
	chunk      *bytecode.Chunk
	ip         int
	base       int
}

func (f *frame) activate(ref value.Ref, closure *object.Closure, fn *object.Function, base int) {
	f.closureRef = ref
	f.closure = closure
	f.function = fn
	f.chunk = fn.Chunk
	f.ip = 0
	f.base = base
}

// line returns the source line of the instruction being executed.
func (f *frame) line() int {
	ip := f.ip - 1
	if ip < 0 {
		ip = 0
	}
	return f.chunk.LineAt(ip)
}
