package vm

import (
	"io"

	"github.com/deepnoodle-ai/lox/object"
	"github.com/rs/zerolog"
)

// Option is a configuration function for a Virtual Machine.
type Option func(*VirtualMachine)

// WithOutput sets where print statements write. The default is os.Stdout.
func WithOutput(w io.Writer) Option {
	return func(vm *VirtualMachine) {
		vm.output = w
	}
}

// WithLogger sets the logger used by the VM, its heap and its compiler.
func WithLogger(logger zerolog.Logger) Option {
	return func(vm *VirtualMachine) {
		vm.logger = logger
	}
}

// WithObserver sets an observer for VM execution events.
// The observer receives callbacks for instruction steps, function calls,
// and function returns.
//
// Observer methods are called synchronously during execution, so
// implementations should be fast to avoid impacting performance.
// Returning false from any observer method halts execution immediately.
func WithObserver(observer Observer) Option {
	return func(vm *VirtualMachine) {
		vm.observer = observer
	}
}

// WithGCStress makes the heap collect before every allocation.
func WithGCStress(enabled bool) Option {
	return func(vm *VirtualMachine) {
		vm.heapOptions = append(vm.heapOptions, object.WithStressGC(enabled))
	}
}

// WithGCThreshold sets the initial and minimum collection threshold in bytes.
func WithGCThreshold(bytes int) Option {
	return func(vm *VirtualMachine) {
		vm.heapOptions = append(vm.heapOptions, object.WithMinHeap(bytes))
	}
}

// WithGCGrowFactor sets how far the threshold grows past the live size after
// each collection.
func WithGCGrowFactor(factor float64) Option {
	return func(vm *VirtualMachine) {
		vm.heapOptions = append(vm.heapOptions, object.WithGrowFactor(factor))
	}
}

// WithNative defines a global native function. An arity of -1 accepts any
// number of arguments.
func WithNative(name string, arity int, fn object.NativeFunc) Option {
	return func(vm *VirtualMachine) {
		vm.natives = append(vm.natives, native{name: name, arity: arity, fn: fn})
	}
}
