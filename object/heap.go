package object

import (
	"fmt"

	"github.com/deepnoodle-ai/lox/bytecode"
	"github.com/deepnoodle-ai/lox/table"
	"github.com/deepnoodle-ai/lox/value"
	"github.com/rs/zerolog"
)

// Roots is implemented by components that hold references into the heap
// which the collector cannot discover by itself: the VM's stack, frames and
// globals, or the compiler's functions under construction.
type Roots interface {
	MarkRoots(mark func(value.Value))
}

type slot struct {
	obj  Object
	size int
}

// Heap owns every Lox object. Objects are stored in slots addressed by
// value.Ref and freed slots are recycled through a free list.
type Heap struct {
	slots   []slot
	free    []int
	marks   []uint64
	gray    []value.Ref
	strings *table.Table
	roots   []Roots

	bytesAllocated int
	nextGC         int
	minHeap        int
	growFactor     float64
	stress         bool
	collecting     bool

	stats  Stats
	logger zerolog.Logger
}

// NewHeap returns an empty heap.
func NewHeap(options ...Option) *Heap {
	h := &Heap{
		strings:    table.New(),
		nextGC:     DefaultMinHeap,
		minHeap:    DefaultMinHeap,
		growFactor: DefaultGrowFactor,
		logger:     zerolog.Nop(),
	}
	for _, opt := range options {
		opt(h)
	}
	return h
}

// AddRoots registers a root source. Sources are consulted at the start of
// every collection until removed.
func (h *Heap) AddRoots(r Roots) {
	h.roots = append(h.roots, r)
}

// RemoveRoots unregisters a root source.
func (h *Heap) RemoveRoots(r Roots) {
	for i, existing := range h.roots {
		if existing == r {
			h.roots = append(h.roots[:i], h.roots[i+1:]...)
			return
		}
	}
}

// allocate stores obj in a slot and returns its handle. A collection may run
// first, so anything the caller still needs must already be reachable from a
// root. obj itself is not reachable until the caller stores the handle.
func (h *Heap) allocate(obj Object) value.Ref {
	size := obj.size()
	if h.stress || h.bytesAllocated+size > h.nextGC {
		h.Collect()
	}
	var index int
	if n := len(h.free); n > 0 {
		index = h.free[n-1]
		h.free = h.free[:n-1]
	} else {
		index = len(h.slots)
		h.slots = append(h.slots, slot{})
	}
	h.slots[index] = slot{obj: obj, size: size}
	h.bytesAllocated += size
	h.stats.Allocations++
	return value.RefAt(index)
}

// Get returns the object named by ref, or nil if the slot is free or the ref
// is out of range.
func (h *Heap) Get(ref value.Ref) Object {
	index := ref.Index()
	if index < 0 || index >= len(h.slots) {
		return nil
	}
	return h.slots[index].obj
}

func (h *Heap) get(v value.Value) Object {
	ref, ok := v.AsRef()
	if !ok {
		return nil
	}
	return h.Get(ref)
}

// TypeOf returns the object type of v, or "" if v is not an object.
func (h *Heap) TypeOf(v value.Value) Type {
	if obj := h.get(v); obj != nil {
		return obj.Type()
	}
	return ""
}

// IsString reports whether v is a string.
func (h *Heap) IsString(v value.Value) bool {
	_, ok := h.AsString(v)
	return ok
}

// AsString returns the string v refers to.
func (h *Heap) AsString(v value.Value) (*String, bool) {
	s, ok := h.get(v).(*String)
	return s, ok
}

// AsFunction returns the function v refers to.
func (h *Heap) AsFunction(v value.Value) (*Function, bool) {
	f, ok := h.get(v).(*Function)
	return f, ok
}

// AsNative returns the native function v refers to.
func (h *Heap) AsNative(v value.Value) (*Native, bool) {
	n, ok := h.get(v).(*Native)
	return n, ok
}

// AsClosure returns the closure v refers to.
func (h *Heap) AsClosure(v value.Value) (*Closure, bool) {
	c, ok := h.get(v).(*Closure)
	return c, ok
}

// AsUpvalue returns the upvalue v refers to.
func (h *Heap) AsUpvalue(v value.Value) (*Upvalue, bool) {
	u, ok := h.get(v).(*Upvalue)
	return u, ok
}

// AsClass returns the class v refers to.
func (h *Heap) AsClass(v value.Value) (*Class, bool) {
	c, ok := h.get(v).(*Class)
	return c, ok
}

// AsInstance returns the instance v refers to.
func (h *Heap) AsInstance(v value.Value) (*Instance, bool) {
	i, ok := h.get(v).(*Instance)
	return i, ok
}

// AsBoundMethod returns the bound method v refers to.
func (h *Heap) AsBoundMethod(v value.Value) (*BoundMethod, bool) {
	b, ok := h.get(v).(*BoundMethod)
	return b, ok
}

// Intern returns the string with the given content, allocating it only if
// no equal string exists yet.
func (h *Heap) Intern(chars string) value.Ref {
	hash := table.HashString(chars)
	if ref, ok := h.strings.FindString(hash, func(r value.Ref) bool {
		s, ok := h.Get(r).(*String)
		return ok && s.Chars == chars
	}); ok {
		return ref
	}
	ref := h.allocate(&String{Chars: chars, Hash: hash})
	h.strings.Set(table.Key{Ref: ref, Hash: hash}, value.NilValue)
	return ref
}

// Key returns the table key for an interned string.
func (h *Heap) Key(ref value.Ref) table.Key {
	s, ok := h.Get(ref).(*String)
	if !ok {
		panic(fmt.Sprintf("heap: ref %d is not a string", ref))
	}
	return table.Key{Ref: ref, Hash: s.Hash}
}

// Chars returns the content of the string named by ref.
func (h *Heap) Chars(ref value.Ref) string {
	if s, ok := h.Get(ref).(*String); ok {
		return s.Chars
	}
	return ""
}

// NewFunction allocates an empty function with its own chunk.
func (h *Heap) NewFunction() (value.Ref, *Function) {
	fn := &Function{Chunk: bytecode.NewChunk()}
	return h.allocate(fn), fn
}

// NewNative allocates a native function.
func (h *Heap) NewNative(name string, arity int, fn NativeFunc) value.Ref {
	return h.allocate(&Native{Name: name, Arity: arity, Fn: fn})
}

// NewClosure allocates a closure over function. The upvalue slots start out
// empty and are filled in by the caller.
func (h *Heap) NewClosure(function value.Ref, upvalueCount int) (value.Ref, *Closure) {
	c := &Closure{Function: function, Upvalues: make([]value.Ref, upvalueCount)}
	return h.allocate(c), c
}

// NewUpvalue allocates an open upvalue for a stack slot.
func (h *Heap) NewUpvalue(slot int) (value.Ref, *Upvalue) {
	u := NewOpenUpvalue(slot)
	return h.allocate(u), u
}

// NewClass allocates a class with an empty method table.
func (h *Heap) NewClass(name value.Ref) (value.Ref, *Class) {
	c := &Class{Name: name, Methods: table.New()}
	return h.allocate(c), c
}

// NewInstance allocates an instance of class with no fields.
func (h *Heap) NewInstance(class value.Ref) (value.Ref, *Instance) {
	i := &Instance{Class: class, Fields: table.New()}
	return h.allocate(i), i
}

// NewBoundMethod allocates a method bound to a receiver.
func (h *Heap) NewBoundMethod(receiver value.Value, method value.Ref) value.Ref {
	return h.allocate(&BoundMethod{Receiver: receiver, Method: method})
}

// FunctionName returns the name of a function as shown in stack traces, or
// "script" for the top-level function.
func (h *Heap) FunctionName(fn *Function) string {
	if !fn.Name.Valid() {
		return "script"
	}
	return h.Chars(fn.Name)
}

// Format renders a value the way the print statement shows it.
func (h *Heap) Format(v value.Value) string {
	ref, ok := v.AsRef()
	if !ok {
		return v.String()
	}
	switch obj := h.Get(ref).(type) {
	case *String:
		return obj.Chars
	case *Function:
		return h.formatFunction(obj)
	case *Native:
		return "<native fn>"
	case *Closure:
		return h.formatFunction(h.Get(obj.Function).(*Function))
	case *Upvalue:
		return "upvalue"
	case *Class:
		return h.Chars(obj.Name)
	case *Instance:
		class := h.Get(obj.Class).(*Class)
		return h.Chars(class.Name) + " instance"
	case *BoundMethod:
		closure := h.Get(obj.Method).(*Closure)
		return h.formatFunction(h.Get(closure.Function).(*Function))
	default:
		return v.String()
	}
}

func (h *Heap) formatFunction(fn *Function) string {
	if !fn.Name.Valid() {
		return "<script>"
	}
	return "<fn " + h.Chars(fn.Name) + ">"
}

// BytesAllocated returns the number of bytes charged to live and not yet
// collected objects.
func (h *Heap) BytesAllocated() int {
	return h.bytesAllocated
}

// NextGC returns the allocation threshold that triggers the next collection.
func (h *Heap) NextGC() int {
	return h.nextGC
}

// Len returns the number of objects on the heap.
func (h *Heap) Len() int {
	return len(h.slots) - len(h.free)
}
