package vm

import (
	"github.com/deepnoodle-ai/lox/errz"
	"github.com/deepnoodle-ai/lox/object"
	"github.com/deepnoodle-ai/lox/op"
	"github.com/deepnoodle-ai/lox/table"
	"github.com/deepnoodle-ai/lox/value"
)

// captureStack builds a stack trace from the current call frames, innermost
// first.
func (vm *VirtualMachine) captureStack() []errz.StackFrame {
	frames := make([]errz.StackFrame, 0, vm.frameCount)
	for i := vm.frameCount - 1; i >= 0; i-- {
		f := &vm.frames[i]
		frames = append(frames, errz.StackFrame{
			Function: vm.heap.FunctionName(f.function),
			Line:     f.line(),
		})
	}
	return frames
}

// runtimeError creates a RuntimeError carrying the current stack trace.
func (vm *VirtualMachine) runtimeError(kind errz.ErrorKind, format string, args ...any) *errz.RuntimeError {
	return errz.NewRuntimeError(kind, vm.captureStack(), format, args...)
}

// typeError creates a type error with a stack trace.
func (vm *VirtualMachine) typeError(format string, args ...any) *errz.RuntimeError {
	return vm.runtimeError(errz.ErrType, format, args...)
}

// evalError creates a general runtime error with a stack trace.
func (vm *VirtualMachine) evalError(format string, args ...any) *errz.RuntimeError {
	return vm.runtimeError(errz.ErrRuntime, format, args...)
}

// undefinedVariable reports a missing global, suggesting similar names.
func (vm *VirtualMachine) undefinedVariable(name value.Ref) *errz.RuntimeError {
	missing := vm.heap.Chars(name)
	return vm.runtimeError(errz.ErrName, "Undefined variable '%s'.", missing).
		WithHint(errz.Hint(errz.Suggest(missing, vm.GlobalNames())))
}

// undefinedProperty reports a missing property, suggesting similar method
// names of class and field names of receiver.
func (vm *VirtualMachine) undefinedProperty(class *object.Class, receiver value.Value, name value.Ref) *errz.RuntimeError {
	var candidates []string
	collect := func(key table.Key, _ value.Value) bool {
		candidates = append(candidates, vm.heap.Chars(key.Ref))
		return true
	}
	class.Methods.Range(collect)
	if instance, ok := vm.heap.AsInstance(receiver); ok {
		instance.Fields.Range(collect)
	}
	missing := vm.heap.Chars(name)
	return vm.runtimeError(errz.ErrName, "Undefined property '%s'.", missing).
		WithHint(errz.Hint(errz.Suggest(missing, candidates)))
}

func (vm *VirtualMachine) halted() error {
	return vm.evalError("Execution halted.").WithCause(ErrHalted)
}

func (vm *VirtualMachine) observeStep(f *frame, opcode op.Code) error {
	cfg := vm.observerConfig
	line := f.chunk.LineAt(f.ip)
	switch cfg.StepMode {
	case StepNone:
		return nil
	case StepSampled:
		vm.stepCount++
		if vm.stepCount < cfg.SampleInterval {
			return nil
		}
		vm.stepCount = 0
	case StepOnLine:
		if line == vm.lastLine && vm.frameCount == vm.lastDepth {
			return nil
		}
		vm.lastLine, vm.lastDepth = line, vm.frameCount
	}
	event := StepEvent{
		Offset:     f.ip,
		Opcode:     opcode,
		OpcodeName: op.GetInfo(opcode).Name,
		Function:   vm.heap.FunctionName(f.function),
		Line:       line,
		StackDepth: vm.sp,
		FrameDepth: vm.frameCount,
	}
	if cfg.CaptureStack {
		event.Stack = make([]string, vm.sp)
		for i, v := range vm.stack[:vm.sp] {
			event.Stack[i] = vm.heap.Format(v)
		}
	}
	if !vm.observer.OnStep(event) {
		return vm.halted()
	}
	return nil
}

func (vm *VirtualMachine) observeReturn(f *frame) error {
	if !vm.observerConfig.ObserveReturns {
		return nil
	}
	event := ReturnEvent{
		FunctionName: vm.heap.FunctionName(f.function),
		Line:         f.line(),
		FrameDepth:   vm.frameCount,
	}
	if !vm.observer.OnReturn(event) {
		return vm.halted()
	}
	return nil
}
