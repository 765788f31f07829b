package vm

import (
	"github.com/deepnoodle-ai/lox/op"
	"github.com/rs/zerolog"
)

// StepMode controls when OnStep callbacks are triggered.
type StepMode uint8

const (
	// StepAll calls OnStep for every instruction.
	// Use for: detailed tracing, instruction-level debugging.
	StepAll StepMode = iota

	// StepNone never calls OnStep.
	// Use for: profilers that only need Call/Return events.
	StepNone

	// StepSampled calls OnStep every N instructions.
	// Use for: statistical profiling.
	StepSampled

	// StepOnLine calls OnStep when the source line or call depth changes.
	// Use for: coverage tools, line-level debugging.
	StepOnLine
)

// ObserverConfig specifies what events an observer wants to receive.
// Use NewObserverConfig() to create configs with safe defaults.
type ObserverConfig struct {
	// StepMode controls OnStep callback frequency.
	StepMode StepMode

	// SampleInterval is the number of instructions between OnStep calls
	// when StepMode is StepSampled. Values <= 0 are treated as 1.
	SampleInterval int

	// ObserveCalls enables OnCall callbacks.
	ObserveCalls bool

	// ObserveReturns enables OnReturn callbacks.
	ObserveReturns bool

	// CaptureStack fills StepEvent.Stack with the printed form of every
	// value on the stack. This is slow.
	CaptureStack bool
}

// NewObserverConfig creates a config with safe defaults.
// ObserveCalls and ObserveReturns default to true.
func NewObserverConfig(mode StepMode) ObserverConfig {
	return ObserverConfig{
		StepMode:       mode,
		SampleInterval: 1000,
		ObserveCalls:   true,
		ObserveReturns: true,
	}
}

// NormalizeConfig validates and clamps config values.
func NormalizeConfig(cfg ObserverConfig) ObserverConfig {
	if cfg.StepMode == StepSampled && cfg.SampleInterval <= 0 {
		cfg.SampleInterval = 1
	}
	return cfg
}

// Observer is an interface for observing VM execution events.
//
// All methods are optional - implementations can embed NoOpObserver
// to provide default no-op implementations for methods they don't need.
type Observer interface {
	// Config returns the observer's configuration.
	// Called once when the observer is attached to the VM.
	Config() ObserverConfig

	// OnStep is called based on the StepMode in the observer's config,
	// before the instruction executes. Returns false to halt execution.
	OnStep(event StepEvent) bool

	// OnCall is called when a closure is invoked (if ObserveCalls is true).
	// Returns false to halt execution.
	OnCall(event CallEvent) bool

	// OnReturn is called when a closure returns (if ObserveReturns is true).
	// Returns false to halt execution.
	OnReturn(event ReturnEvent) bool
}

// StepEvent contains information about a single instruction step.
type StepEvent struct {
	// Offset is the byte offset of the instruction in its chunk.
	Offset int

	// Opcode is the operation being executed.
	Opcode op.Code

	// OpcodeName is the human-readable name of the opcode.
	OpcodeName string

	// Function is the name of the executing function.
	Function string

	// Line is the source line of the instruction.
	Line int

	// StackDepth is the current depth of the value stack.
	StackDepth int

	// FrameDepth is the current depth of the call stack.
	FrameDepth int

	// Stack holds the stack contents, bottom first, when the observer
	// asked for them with CaptureStack.
	Stack []string
}

// CallEvent contains information about a function call.
type CallEvent struct {
	// FunctionName is the name of the function being called.
	FunctionName string

	// ArgCount is the number of arguments passed to the function.
	ArgCount int

	// Line is the source line of the call site.
	Line int

	// FrameDepth is the call stack depth after the call.
	FrameDepth int
}

// ReturnEvent contains information about a function return.
type ReturnEvent struct {
	// FunctionName is the name of the function returning.
	FunctionName string

	// Line is the source line of the return.
	Line int

	// FrameDepth is the call stack depth after returning.
	FrameDepth int
}

// NoOpObserver is an Observer implementation that does nothing.
// Embed this in your observer to provide default implementations
// for methods you don't need.
type NoOpObserver struct{}

func (NoOpObserver) Config() ObserverConfig {
	return NewObserverConfig(StepAll)
}

func (NoOpObserver) OnStep(StepEvent) bool     { return true }
func (NoOpObserver) OnCall(CallEvent) bool     { return true }
func (NoOpObserver) OnReturn(ReturnEvent) bool { return true }

var _ Observer = NoOpObserver{}

// TraceObserver logs every instruction with the stack, and every call and
// return, at trace level.
type TraceObserver struct {
	logger zerolog.Logger
}

// NewTraceObserver returns an observer that writes an execution trace to
// logger.
func NewTraceObserver(logger zerolog.Logger) *TraceObserver {
	return &TraceObserver{logger: logger}
}

func (t *TraceObserver) Config() ObserverConfig {
	cfg := NewObserverConfig(StepAll)
	cfg.CaptureStack = true
	return cfg
}

func (t *TraceObserver) OnStep(event StepEvent) bool {
	t.logger.Trace().
		Str("fn", event.Function).
		Int("offset", event.Offset).
		Int("line", event.Line).
		Strs("stack", event.Stack).
		Msg(event.OpcodeName)
	return true
}

func (t *TraceObserver) OnCall(event CallEvent) bool {
	t.logger.Trace().
		Str("fn", event.FunctionName).
		Int("args", event.ArgCount).
		Int("depth", event.FrameDepth).
		Msg("call")
	return true
}

func (t *TraceObserver) OnReturn(event ReturnEvent) bool {
	t.logger.Trace().
		Str("fn", event.FunctionName).
		Int("depth", event.FrameDepth).
		Msg("return")
	return true
}
