package vm

import (
	"github.com/deepnoodle-ai/lox/errz"
	"github.com/deepnoodle-ai/lox/object"
	"github.com/deepnoodle-ai/lox/value"
)

// callValue calls the callee that sits below argc arguments on the stack.
func (vm *VirtualMachine) callValue(callee value.Value, argc int) error {
	ref, ok := callee.AsRef()
	if !ok {
		return vm.typeError("Can only call functions and classes.")
	}
	switch obj := vm.heap.Get(ref).(type) {
	case *object.BoundMethod:
		// The receiver takes the callee's slot and becomes "this"
		vm.stack[vm.sp-argc-1] = obj.Receiver
		return vm.call(obj.Method, argc)
	case *object.Class:
		instance, _ := vm.heap.NewInstance(ref)
		vm.stack[vm.sp-argc-1] = value.NewObject(instance)
		if initializer, ok := obj.Methods.Get(vm.heap.Key(vm.initString)); ok {
			initRef, _ := initializer.AsRef()
			return vm.call(initRef, argc)
		}
		if argc != 0 {
			return vm.runtimeError(errz.ErrArity, "Expected 0 arguments but got %d.", argc)
		}
		return nil
	case *object.Closure:
		return vm.call(ref, argc)
	case *object.Native:
		return vm.callNative(obj, argc)
	default:
		return vm.typeError("Can only call functions and classes.")
	}
}

// call pushes a frame for a closure whose arguments are on the stack.
func (vm *VirtualMachine) call(ref value.Ref, argc int) error {
	closure, ok := vm.heap.AsClosure(value.NewObject(ref))
	if !ok {
		return vm.typeError("Can only call functions and classes.")
	}
	fn, _ := vm.heap.AsFunction(value.NewObject(closure.Function))
	if argc != fn.Arity {
		return vm.runtimeError(errz.ErrArity, "Expected %d arguments but got %d.", fn.Arity, argc)
	}
	if vm.frameCount == FramesMax {
		return vm.runtimeError(errz.ErrOverflow, "Stack overflow.")
	}
	var callLine int
	if vm.activeFrame != nil {
		callLine = vm.activeFrame.line()
	}
	f := &vm.frames[vm.frameCount]
	vm.frameCount++
	f.activate(ref, closure, fn, vm.sp-argc-1)
	vm.activeFrame = f

	if vm.observer != nil && vm.observerConfig.ObserveCalls {
		event := CallEvent{
			FunctionName: vm.heap.FunctionName(fn),
			ArgCount:     argc,
			Line:         callLine,
			FrameDepth:   vm.frameCount,
		}
		if !vm.observer.OnCall(event) {
			return vm.halted()
		}
	}
	return nil
}

func (vm *VirtualMachine) callNative(n *object.Native, argc int) error {
	if n.Arity >= 0 && argc != n.Arity {
		return vm.runtimeError(errz.ErrArity, "Expected %d arguments but got %d.", n.Arity, argc)
	}
	args := make([]value.Value, argc)
	copy(args, vm.stack[vm.sp-argc:vm.sp])
	result, err := n.Fn(args)
	if err != nil {
		return vm.evalError("%s", err.Error()).WithCause(err)
	}
	vm.sp -= argc + 1
	vm.push(result)
	return nil
}

// invoke calls a method on the receiver below argc arguments without
// creating a bound method. A field holding a callable takes precedence.
func (vm *VirtualMachine) invoke(name value.Ref, argc int) error {
	receiver := vm.peek(argc)
	instance, ok := vm.heap.AsInstance(receiver)
	if !ok {
		return vm.typeError("Only instances have methods.")
	}
	if v, ok := instance.Fields.Get(vm.heap.Key(name)); ok {
		vm.stack[vm.sp-argc-1] = v
		return vm.callValue(v, argc)
	}
	return vm.invokeFromClass(instance.Class, name, argc)
}

func (vm *VirtualMachine) invokeFromClass(classRef, name value.Ref, argc int) error {
	class, ok := vm.heap.AsClass(value.NewObject(classRef))
	if !ok {
		return vm.typeError("Only instances have methods.")
	}
	method, ok := class.Methods.Get(vm.heap.Key(name))
	if !ok {
		return vm.undefinedProperty(class, vm.peek(argc), name)
	}
	methodRef, _ := method.AsRef()
	return vm.call(methodRef, argc)
}

// bindMethod replaces the receiver on top of the stack with its method
// bound to it.
func (vm *VirtualMachine) bindMethod(classRef, name value.Ref) error {
	class, ok := vm.heap.AsClass(value.NewObject(classRef))
	if !ok {
		return vm.typeError("Only instances have properties.")
	}
	method, ok := class.Methods.Get(vm.heap.Key(name))
	if !ok {
		return vm.undefinedProperty(class, vm.peek(0), name)
	}
	methodRef, _ := method.AsRef()
	bound := vm.heap.NewBoundMethod(vm.peek(0), methodRef)
	vm.pop()
	vm.push(value.NewObject(bound))
	return nil
}

// defineMethod adds the closure on top of the stack to the class below it.
func (vm *VirtualMachine) defineMethod(name value.Ref) {
	method := vm.peek(0)
	class, _ := vm.heap.AsClass(vm.peek(1))
	class.Methods.Set(vm.heap.Key(name), method)
	vm.pop()
}

// captureUpvalue returns the open upvalue for a stack slot, creating it if
// no closure has captured the slot yet.
func (vm *VirtualMachine) captureUpvalue(slot int) value.Ref {
	i := len(vm.openUpvalues)
	for i > 0 {
		ref := vm.openUpvalues[i-1]
		s, _ := vm.upvalue(ref).Slot()
		if s == slot {
			return ref
		}
		if s < slot {
			break
		}
		i--
	}
	ref, _ := vm.heap.NewUpvalue(slot)
	vm.openUpvalues = append(vm.openUpvalues, value.NoRef)
	copy(vm.openUpvalues[i+1:], vm.openUpvalues[i:])
	vm.openUpvalues[i] = ref
	return ref
}

// closeUpvalues closes every open upvalue at or above the given slot.
func (vm *VirtualMachine) closeUpvalues(last int) {
	for n := len(vm.openUpvalues); n > 0; n-- {
		ref := vm.openUpvalues[n-1]
		uv := vm.upvalue(ref)
		if s, _ := uv.Slot(); s < last {
			break
		}
		uv.Close(vm.stack)
		vm.openUpvalues = vm.openUpvalues[:n-1]
	}
}
