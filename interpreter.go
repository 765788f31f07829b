package lox

import (
	"github.com/deepnoodle-ai/lox/value"
	"github.com/deepnoodle-ai/lox/vm"
)

// Interpreter provides stateful execution for a REPL. Unlike Interpret,
// which creates a fresh VM on each call, an Interpreter keeps one VM so that
// globals defined by one call remain visible to the next. A runtime error
// does not discard globals defined before it.
type Interpreter struct {
	machine *vm.VirtualMachine
}

// NewInterpreter creates an Interpreter with the given options.
func NewInterpreter(opts ...Option) *Interpreter {
	o := collectOptions(opts...)
	return &Interpreter{machine: vm.New(o.vmOpts()...)}
}

// Interpret compiles and runs source in the interpreter's VM.
func (i *Interpreter) Interpret(source string) (Result, error) {
	err := i.machine.Interpret(source)
	return Classify(err), err
}

// Global returns the printed form of a global variable.
func (i *Interpreter) Global(name string) (string, bool) {
	v, ok := i.machine.Get(name)
	if !ok {
		return "", false
	}
	return i.machine.Format(v), true
}

// GlobalNames returns the names of all globals, natives included.
func (i *Interpreter) GlobalNames() []string {
	return i.machine.GlobalNames()
}

// Value returns the raw value of a global variable.
func (i *Interpreter) Value(name string) (value.Value, bool) {
	return i.machine.Get(name)
}

// VM returns the underlying virtual machine.
func (i *Interpreter) VM() *vm.VirtualMachine {
	return i.machine
}
