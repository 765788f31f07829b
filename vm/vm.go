// Package vm provides a VirtualMachine that executes compiled Lox code.
package vm

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/deepnoodle-ai/lox/compiler"
	"github.com/deepnoodle-ai/lox/errz"
	"github.com/deepnoodle-ai/lox/object"
	"github.com/deepnoodle-ai/lox/op"
	"github.com/deepnoodle-ai/lox/table"
	"github.com/deepnoodle-ai/lox/value"
	"github.com/gofrs/uuid"
	"github.com/rs/zerolog"
)

const (
	// FramesMax is the maximum call depth.
	FramesMax = 64

	// StackMax is the number of value stack slots: enough for every frame
	// to address its full set of locals.
	StackMax = FramesMax * 256
)

// ErrHalted is the cause of the runtime error returned when an observer
// stops execution.
var ErrHalted = errors.New("execution halted by observer")

// errStackOverflow is panicked by push and recovered at the run boundary.
var errStackOverflow = errors.New("value stack overflow")

type native struct {
	name  string
	arity int
	fn    object.NativeFunc
}

// VirtualMachine executes Lox programs. Globals and the heap persist across
// calls to Interpret, so one VirtualMachine can back a REPL session. A
// VirtualMachine is not safe for concurrent use.
type VirtualMachine struct {
	id     uuid.UUID
	heap   *object.Heap
	output io.Writer
	logger zerolog.Logger

	stack []value.Value
	sp    int

	frames      [FramesMax]frame
	frameCount  int
	activeFrame *frame

	globals *table.Table

	// Open upvalues ordered by stack slot, lowest first
	openUpvalues []value.Ref

	initString value.Ref
	natives    []native
	started    time.Time

	heapOptions []object.Option

	// observer receives callbacks for VM execution events. If nil, no
	// callbacks are made.
	observer       Observer
	observerConfig ObserverConfig
	stepCount      int
	lastLine       int
	lastDepth      int
}

// New creates a new Virtual Machine with its own heap.
func New(options ...Option) *VirtualMachine {
	vm := &VirtualMachine{
		id:      uuid.Must(uuid.NewV4()),
		output:  os.Stdout,
		logger:  zerolog.Nop(),
		stack:   make([]value.Value, StackMax),
		globals: table.New(),
		started: time.Now(),
	}
	for _, opt := range options {
		opt(vm)
	}
	vm.logger = vm.logger.With().Str("vm", vm.id.String()).Logger()
	if vm.observer != nil {
		vm.observerConfig = NormalizeConfig(vm.observer.Config())
	}

	heapOptions := append([]object.Option{object.WithLogger(vm.logger)}, vm.heapOptions...)
	vm.heap = object.NewHeap(heapOptions...)
	vm.heap.AddRoots(vm)

	vm.initString = vm.heap.Intern("init")
	vm.defineNative("clock", 0, vm.clock)
	for _, n := range vm.natives {
		vm.defineNative(n.name, n.arity, n.fn)
	}
	return vm
}

// ID returns the instance id attached to the VM's log messages.
func (vm *VirtualMachine) ID() uuid.UUID {
	return vm.id
}

// Heap returns the heap owning every object of this VM.
func (vm *VirtualMachine) Heap() *object.Heap {
	return vm.heap
}

// Get returns the value of a global variable.
func (vm *VirtualMachine) Get(name string) (value.Value, bool) {
	return vm.globals.Get(vm.heap.Key(vm.heap.Intern(name)))
}

// GlobalNames returns the names of all global variables, natives included.
func (vm *VirtualMachine) GlobalNames() []string {
	var names []string
	vm.globals.Range(func(key table.Key, _ value.Value) bool {
		names = append(names, vm.heap.Chars(key.Ref))
		return true
	})
	return names
}

// Format renders v the way the print statement does.
func (vm *VirtualMachine) Format(v value.Value) string {
	return vm.heap.Format(v)
}

// Interpret compiles and runs source. A compile failure returns the
// *multierror.Error from the compiler and runs nothing. A runtime failure
// returns an *errz.RuntimeError and leaves the VM ready for the next call.
func (vm *VirtualMachine) Interpret(source string) error {
	fnRef, err := compiler.Compile(vm.heap, source, compiler.WithLogger(vm.logger))
	if err != nil {
		vm.logger.Debug().Err(err).Msg("compile failed")
		return err
	}
	return vm.Run(fnRef)
}

// Run executes a compiled top-level function on this VM.
func (vm *VirtualMachine) Run(fnRef value.Ref) (err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = vm.recoverError(r)
		}
		if err != nil {
			vm.logger.Debug().Err(err).Msg("runtime error")
			vm.resetStack()
		}
		vm.logger.Debug().Dur("elapsed", time.Since(start)).Msg("run complete")
	}()

	if _, ok := vm.heap.AsFunction(value.NewObject(fnRef)); !ok {
		return fmt.Errorf("vm: ref %d is not a function", fnRef)
	}
	vm.push(value.NewObject(fnRef))
	closureRef, _ := vm.heap.NewClosure(fnRef, 0)
	vm.pop()
	vm.push(value.NewObject(closureRef))
	if err := vm.call(closureRef, 0); err != nil {
		return err
	}
	return vm.eval()
}

func (vm *VirtualMachine) recoverError(r any) error {
	if e, ok := r.(error); ok && errors.Is(e, errStackOverflow) {
		return vm.runtimeError(errz.ErrOverflow, "Stack overflow.").WithCause(e)
	}
	return vm.runtimeError(errz.ErrRuntime, "panic: %v", r)
}

// resetStack discards the frames of a failed run. Upvalues still open are
// closed first, so closures that escaped keep the values they captured.
func (vm *VirtualMachine) resetStack() {
	vm.closeUpvalues(0)
	vm.sp = 0
	vm.frameCount = 0
	vm.activeFrame = nil
	vm.openUpvalues = nil
}

// Stats returns the heap counters.
func (vm *VirtualMachine) Stats() object.Stats {
	return vm.heap.Stats()
}

// MarkRoots marks everything the running program can reach directly.
func (vm *VirtualMachine) MarkRoots(mark func(value.Value)) {
	for _, v := range vm.stack[:vm.sp] {
		mark(v)
	}
	for i := 0; i < vm.frameCount; i++ {
		mark(value.NewObject(vm.frames[i].closureRef))
	}
	for _, ref := range vm.openUpvalues {
		mark(value.NewObject(ref))
	}
	vm.globals.Range(func(key table.Key, v value.Value) bool {
		mark(value.NewObject(key.Ref))
		mark(v)
		return true
	})
	if vm.initString.Valid() {
		mark(value.NewObject(vm.initString))
	}
}

func (vm *VirtualMachine) defineNative(name string, arity int, fn object.NativeFunc) {
	// Both objects stay on the stack until the globals table holds them
	nameRef := vm.heap.Intern(name)
	vm.push(value.NewObject(nameRef))
	fnRef := vm.heap.NewNative(name, arity, fn)
	vm.push(value.NewObject(fnRef))
	vm.globals.Set(vm.heap.Key(nameRef), vm.stack[vm.sp-1])
	vm.pop()
	vm.pop()
}

func (vm *VirtualMachine) clock([]value.Value) (value.Value, error) {
	return value.NewNumber(time.Since(vm.started).Seconds()), nil
}

// Evaluate the active frame until the top-level function returns.
func (vm *VirtualMachine) eval() error {
	for {
		f := vm.activeFrame
		opcode := op.Code(f.chunk.Code[f.ip])

		if vm.observer != nil {
			if err := vm.observeStep(f, opcode); err != nil {
				return err
			}
		}

		// Operands are fetched relative to the advanced ip
		f.ip++

		switch opcode {
		case op.Constant:
			vm.push(vm.readConstant())
		case op.Nil:
			vm.push(value.NilValue)
		case op.True:
			vm.push(value.True)
		case op.False:
			vm.push(value.False)
		case op.Pop:
			vm.pop()
		case op.GetLocal:
			slot := int(vm.fetch())
			vm.push(vm.stack[f.base+slot])
		case op.SetLocal:
			slot := int(vm.fetch())
			vm.stack[f.base+slot] = vm.peek(0)
		case op.GetGlobal:
			name := vm.readString()
			v, ok := vm.globals.Get(vm.heap.Key(name))
			if !ok {
				return vm.undefinedVariable(name)
			}
			vm.push(v)
		case op.DefineGlobal:
			name := vm.readString()
			vm.globals.Set(vm.heap.Key(name), vm.peek(0))
			vm.pop()
		case op.SetGlobal:
			name := vm.readString()
			key := vm.heap.Key(name)
			if vm.globals.Set(key, vm.peek(0)) {
				// Assignment never creates a global
				vm.globals.Delete(key)
				return vm.undefinedVariable(name)
			}
		case op.GetUpvalue:
			slot := vm.fetch()
			vm.push(vm.upvalue(f.closure.Upvalues[slot]).Get(vm.stack))
		case op.SetUpvalue:
			slot := vm.fetch()
			vm.upvalue(f.closure.Upvalues[slot]).Set(vm.stack, vm.peek(0))
		case op.GetProperty:
			instance, ok := vm.heap.AsInstance(vm.peek(0))
			if !ok {
				return vm.typeError("Only instances have properties.")
			}
			name := vm.readString()
			if v, ok := instance.Fields.Get(vm.heap.Key(name)); ok {
				vm.pop()
				vm.push(v)
				break
			}
			if err := vm.bindMethod(instance.Class, name); err != nil {
				return err
			}
		case op.SetProperty:
			instance, ok := vm.heap.AsInstance(vm.peek(1))
			if !ok {
				return vm.typeError("Only instances have fields.")
			}
			name := vm.readString()
			instance.Fields.Set(vm.heap.Key(name), vm.peek(0))
			v := vm.pop()
			vm.pop()
			vm.push(v)
		case op.GetSuper:
			name := vm.readString()
			superclass, _ := vm.pop().AsRef()
			if err := vm.bindMethod(superclass, name); err != nil {
				return err
			}
		case op.Equal:
			b := vm.pop()
			a := vm.pop()
			vm.push(value.NewBool(value.Equal(a, b)))
		case op.Greater, op.Less, op.Subtract, op.Multiply, op.Divide:
			if err := vm.binaryNumberOp(opcode); err != nil {
				return err
			}
		case op.Add:
			switch {
			case vm.heap.IsString(vm.peek(0)) && vm.heap.IsString(vm.peek(1)):
				vm.concatenate()
			case vm.peek(0).IsNumber() && vm.peek(1).IsNumber():
				b, _ := vm.pop().AsNumber()
				a, _ := vm.pop().AsNumber()
				vm.push(value.NewNumber(a + b))
			default:
				return vm.typeError("Operands must be two numbers or two strings.")
			}
		case op.Not:
			vm.push(value.NewBool(vm.pop().IsFalsey()))
		case op.Negate:
			n, ok := vm.peek(0).AsNumber()
			if !ok {
				return vm.typeError("Operand must be a number.")
			}
			vm.pop()
			vm.push(value.NewNumber(-n))
		case op.Print:
			fmt.Fprintln(vm.output, vm.heap.Format(vm.pop()))
		case op.Jump:
			offset := int(vm.fetchShort())
			f.ip += offset
		case op.JumpIfFalse:
			offset := int(vm.fetchShort())
			if vm.peek(0).IsFalsey() {
				f.ip += offset
			}
		case op.Loop:
			offset := int(vm.fetchShort())
			f.ip -= offset
		case op.Call:
			argc := int(vm.fetch())
			if err := vm.callValue(vm.peek(argc), argc); err != nil {
				return err
			}
		case op.Invoke:
			name := vm.readString()
			argc := int(vm.fetch())
			if err := vm.invoke(name, argc); err != nil {
				return err
			}
		case op.SuperInvoke:
			name := vm.readString()
			argc := int(vm.fetch())
			superclass, _ := vm.pop().AsRef()
			if err := vm.invokeFromClass(superclass, name, argc); err != nil {
				return err
			}
		case op.Closure:
			fnValue := vm.readConstant()
			fnRef, _ := fnValue.AsRef()
			fn, ok := vm.heap.AsFunction(fnValue)
			if !ok {
				return vm.evalError("closure operand is not a function")
			}
			ref, closure := vm.heap.NewClosure(fnRef, fn.UpvalueCount)
			// The closure must be reachable before capturing allocates
			vm.push(value.NewObject(ref))
			for i := range closure.Upvalues {
				isLocal := vm.fetch()
				index := int(vm.fetch())
				if isLocal == 1 {
					closure.Upvalues[i] = vm.captureUpvalue(f.base + index)
				} else {
					closure.Upvalues[i] = f.closure.Upvalues[index]
				}
			}
		case op.CloseUpvalue:
			vm.closeUpvalues(vm.sp - 1)
			vm.pop()
		case op.Return:
			result := vm.pop()
			vm.closeUpvalues(f.base)
			vm.frameCount--
			if vm.observer != nil {
				if err := vm.observeReturn(f); err != nil {
					return err
				}
			}
			if vm.frameCount == 0 {
				vm.pop()
				vm.activeFrame = nil
				return nil
			}
			vm.sp = f.base
			vm.push(result)
			vm.activeFrame = &vm.frames[vm.frameCount-1]
		case op.Class:
			name := vm.readString()
			ref, _ := vm.heap.NewClass(name)
			vm.push(value.NewObject(ref))
		case op.Inherit:
			superclass, ok := vm.heap.AsClass(vm.peek(1))
			if !ok {
				return vm.typeError("Superclass must be a class.")
			}
			subclass, _ := vm.heap.AsClass(vm.peek(0))
			subclass.Methods.AddAll(superclass.Methods)
			vm.pop()
		case op.Method:
			vm.defineMethod(vm.readString())
		default:
			return vm.evalError("unknown opcode: %d", opcode)
		}
	}
}

func (vm *VirtualMachine) binaryNumberOp(opcode op.Code) error {
	b, bok := vm.peek(0).AsNumber()
	a, aok := vm.peek(1).AsNumber()
	if !aok || !bok {
		return vm.typeError("Operands must be numbers.")
	}
	vm.pop()
	vm.pop()
	switch opcode {
	case op.Greater:
		vm.push(value.NewBool(a > b))
	case op.Less:
		vm.push(value.NewBool(a < b))
	case op.Subtract:
		vm.push(value.NewNumber(a - b))
	case op.Multiply:
		vm.push(value.NewNumber(a * b))
	case op.Divide:
		vm.push(value.NewNumber(a / b))
	}
	return nil
}

// concatenate replaces the two strings on top of the stack with their
// concatenation. The operands stay on the stack while the result is
// interned.
func (vm *VirtualMachine) concatenate() {
	b, _ := vm.heap.AsString(vm.peek(0))
	a, _ := vm.heap.AsString(vm.peek(1))
	ref := vm.heap.Intern(a.Chars + b.Chars)
	vm.pop()
	vm.pop()
	vm.push(value.NewObject(ref))
}

func (vm *VirtualMachine) pop() value.Value {
	vm.sp--
	return vm.stack[vm.sp]
}

func (vm *VirtualMachine) push(v value.Value) {
	if vm.sp >= len(vm.stack) {
		panic(errStackOverflow)
	}
	vm.stack[vm.sp] = v
	vm.sp++
}

func (vm *VirtualMachine) peek(distance int) value.Value {
	return vm.stack[vm.sp-1-distance]
}

func (vm *VirtualMachine) fetch() byte {
	f := vm.activeFrame
	b := f.chunk.Code[f.ip]
	f.ip++
	return b
}

func (vm *VirtualMachine) fetchShort() uint16 {
	f := vm.activeFrame
	v := f.chunk.ReadUint16(f.ip)
	f.ip += 2
	return v
}

func (vm *VirtualMachine) readConstant() value.Value {
	return vm.activeFrame.chunk.Constants[vm.fetch()]
}

func (vm *VirtualMachine) readString() value.Ref {
	ref, _ := vm.readConstant().AsRef()
	return ref
}

func (vm *VirtualMachine) upvalue(ref value.Ref) *object.Upvalue {
	uv, _ := vm.heap.AsUpvalue(value.NewObject(ref))
	return uv
}
