// Package object provides the heap objects of the Lox virtual machine and
// the garbage-collected heap that owns them.
//
// Objects are stored in an arena of indexed slots owned by a Heap. Values
// refer to objects through value.Ref handles, and the Heap offers checked
// downcasts from a Value to each concrete object type:
//
//	if closure, ok := heap.AsClosure(v); ok {
//		// use closure.Function, closure.Upvalues
//	}
//
// The Type() method of each object returns a string name of its type, such
// as "string" or "closure".
package object

import (
	"github.com/deepnoodle-ai/lox/bytecode"
	"github.com/deepnoodle-ai/lox/table"
	"github.com/deepnoodle-ai/lox/value"
)

// Type of an object as a string.
type Type string

// Type constants
const (
	BOUND_METHOD Type = "bound_method"
	CLASS        Type = "class"
	CLOSURE      Type = "closure"
	FUNCTION     Type = "function"
	INSTANCE     Type = "instance"
	NATIVE       Type = "native"
	STRING       Type = "string"
	UPVALUE      Type = "upvalue"
)

// Object is implemented by every value that lives on the heap.
type Object interface {
	// Type of the object.
	Type() Type

	// size is the number of bytes charged to the heap for the object.
	size() int

	// traverse reports every value the object references to the collector.
	traverse(mark func(value.Value))
}

// String is an immutable interned string.
type String struct {
	Chars string
	Hash  uint32
}

func (s *String) Type() Type { return STRING }

func (s *String) size() int { return 32 + len(s.Chars) }

func (s *String) traverse(func(value.Value)) {}

// Function is a compiled function body. Name is NoRef for the top-level
// script.
type Function struct {
	Arity        int
	UpvalueCount int
	Chunk        *bytecode.Chunk
	Name         value.Ref
}

func (f *Function) Type() Type { return FUNCTION }

func (f *Function) size() int { return 64 }

func (f *Function) traverse(mark func(value.Value)) {
	if f.Name.Valid() {
		mark(value.NewObject(f.Name))
	}
	for _, c := range f.Chunk.Constants {
		mark(c)
	}
}

// NativeFunc is the Go implementation of a native function.
type NativeFunc func(args []value.Value) (value.Value, error)

// Native is a function implemented in Go. An Arity of -1 accepts any number
// of arguments.
type Native struct {
	Name  string
	Arity int
	Fn    NativeFunc
}

func (n *Native) Type() Type { return NATIVE }

func (n *Native) size() int { return 48 }

func (n *Native) traverse(func(value.Value)) {}

// Class holds a class name and its method table. Inherited methods are
// copied into Methods when the class is created.
type Class struct {
	Name    value.Ref
	Methods *table.Table
}

func (c *Class) Type() Type { return CLASS }

func (c *Class) size() int { return 48 }

func (c *Class) traverse(mark func(value.Value)) {
	mark(value.NewObject(c.Name))
	traverseTable(c.Methods, mark)
}

// Instance is an object created by calling a class.
type Instance struct {
	Class  value.Ref
	Fields *table.Table
}

func (i *Instance) Type() Type { return INSTANCE }

func (i *Instance) size() int { return 48 }

func (i *Instance) traverse(mark func(value.Value)) {
	mark(value.NewObject(i.Class))
	traverseTable(i.Fields, mark)
}

// BoundMethod pairs a method closure with the receiver it was accessed on.
type BoundMethod struct {
	Receiver value.Value
	Method   value.Ref
}

func (b *BoundMethod) Type() Type { return BOUND_METHOD }

func (b *BoundMethod) size() int { return 40 }

func (b *BoundMethod) traverse(mark func(value.Value)) {
	mark(b.Receiver)
	mark(value.NewObject(b.Method))
}

func traverseTable(t *table.Table, mark func(value.Value)) {
	t.Range(func(key table.Key, v value.Value) bool {
		mark(value.NewObject(key.Ref))
		mark(v)
		return true
	})
}
