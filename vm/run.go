package vm

import (
	"bytes"
)

// Interpret runs source in a new Virtual Machine.
func Interpret(source string, options ...Option) error {
	return New(options...).Interpret(source)
}

// Run the given source code in a new VM and return what it printed. Used
// for testing.
func run(source string, options ...Option) (string, error) {
	var out bytes.Buffer
	options = append([]Option{WithOutput(&out)}, options...)
	err := New(options...).Interpret(source)
	return out.String(), err
}
