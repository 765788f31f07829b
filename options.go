package lox

import (
	"io"

	"github.com/deepnoodle-ai/lox/object"
	"github.com/deepnoodle-ai/lox/vm"
	"github.com/rs/zerolog"
)

// Option configures a Lox compilation or execution.
type Option func(*options)

type options struct {
	output     io.Writer
	logger     *zerolog.Logger
	observer   vm.Observer
	stress     bool
	threshold  int
	growFactor float64
	natives    []native
}

type native struct {
	name  string
	arity int
	fn    object.NativeFunc
}

func collectOptions(opts ...Option) *options {
	o := &options{}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	return o
}

func (o *options) vmOpts() []vm.Option {
	var opts []vm.Option
	if o.output != nil {
		opts = append(opts, vm.WithOutput(o.output))
	}
	if o.logger != nil {
		opts = append(opts, vm.WithLogger(*o.logger))
	}
	if o.observer != nil {
		opts = append(opts, vm.WithObserver(o.observer))
	}
	if o.stress {
		opts = append(opts, vm.WithGCStress(true))
	}
	if o.threshold > 0 {
		opts = append(opts, vm.WithGCThreshold(o.threshold))
	}
	if o.growFactor > 0 {
		opts = append(opts, vm.WithGCGrowFactor(o.growFactor))
	}
	for _, n := range o.natives {
		opts = append(opts, vm.WithNative(n.name, n.arity, n.fn))
	}
	return opts
}

func (o *options) heapOpts() []object.Option {
	var opts []object.Option
	if o.logger != nil {
		opts = append(opts, object.WithLogger(*o.logger))
	}
	if o.stress {
		opts = append(opts, object.WithStressGC(true))
	}
	if o.threshold > 0 {
		opts = append(opts, object.WithMinHeap(o.threshold))
	}
	if o.growFactor > 0 {
		opts = append(opts, object.WithGrowFactor(o.growFactor))
	}
	return opts
}

// WithOutput sets where print statements write. The default is os.Stdout.
func WithOutput(w io.Writer) Option {
	return func(o *options) {
		o.output = w
	}
}

// WithLogger sets the logger for the compiler, VM and garbage collector.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) {
		o.logger = &logger
	}
}

// WithObserver sets an observer for VM execution events.
// The observer receives callbacks for instruction steps, function calls,
// and function returns. This enables profilers, debuggers, code coverage
// tools, and execution tracers.
func WithObserver(observer vm.Observer) Option {
	return func(o *options) {
		o.observer = observer
	}
}

// WithGCStress collects garbage before every allocation.
func WithGCStress(enabled bool) Option {
	return func(o *options) {
		o.stress = enabled
	}
}

// WithGCThreshold sets the heap size in bytes that triggers the first
// collection, and below which the threshold never drops.
func WithGCThreshold(bytes int) Option {
	return func(o *options) {
		o.threshold = bytes
	}
}

// WithGCGrowFactor sets the multiple of the live heap size at which the
// next collection runs.
func WithGCGrowFactor(factor float64) Option {
	return func(o *options) {
		o.growFactor = factor
	}
}

// WithNative makes a Go function callable from Lox as a global. An arity of
// -1 accepts any number of arguments.
func WithNative(name string, arity int, fn object.NativeFunc) Option {
	return func(o *options) {
		o.natives = append(o.natives, native{name: name, arity: arity, fn: fn})
	}
}
