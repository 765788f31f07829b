package lox

import (
	"io"

	"github.com/deepnoodle-ai/lox/bytecode"
	"github.com/deepnoodle-ai/lox/compiler"
	"github.com/deepnoodle-ai/lox/dis"
	"github.com/deepnoodle-ai/lox/object"
	"github.com/deepnoodle-ai/lox/value"
)

// Program is the compiled representation of Lox source code, together with
// the heap that owns its functions and constants.
type Program struct {
	heap   *object.Heap
	script value.Ref
	source string
}

// Listing is the disassembly of one compiled function.
type Listing struct {
	Name         string            `json:"name"`
	Arity        int               `json:"arity"`
	Upvalues     int               `json:"upvalues"`
	Stats        bytecode.Stats    `json:"stats"`
	Instructions []dis.Instruction `json:"instructions"`
}

// Compile compiles source without running it, for inspection and
// disassembly. The Program owns a heap of its own and cannot be executed;
// use Interpret or an Interpreter to run code. Compile errors are returned
// as a *multierror.Error of *errz.CompileError values.
func Compile(source string, opts ...Option) (*Program, error) {
	o := collectOptions(opts...)
	heap := object.NewHeap(o.heapOpts()...)
	var compilerOpts []compiler.Option
	if o.logger != nil {
		compilerOpts = append(compilerOpts, compiler.WithLogger(*o.logger))
	}
	script, err := compiler.Compile(heap, source, compilerOpts...)
	if err != nil {
		return nil, err
	}
	return &Program{heap: heap, script: script, source: source}, nil
}

// Source returns the original source code that was compiled.
func (p *Program) Source() string {
	return p.source
}

// Disassemble returns a listing for the top-level function followed by every
// nested function, depth first.
func (p *Program) Disassemble() ([]Listing, error) {
	var listings []Listing
	for _, ref := range dis.Functions(p.heap, p.script) {
		fn, _ := p.heap.AsFunction(value.NewObject(ref))
		instructions, err := dis.Disassemble(p.heap, fn.Chunk)
		if err != nil {
			return nil, err
		}
		listings = append(listings, Listing{
			Name:         p.heap.FunctionName(fn),
			Arity:        fn.Arity,
			Upvalues:     fn.UpvalueCount,
			Stats:        fn.Chunk.Stats(),
			Instructions: instructions,
		})
	}
	return listings, nil
}

// Print writes the text disassembly of every function in the program to w.
func (p *Program) Print(w io.Writer) {
	for i, ref := range dis.Functions(p.heap, p.script) {
		if i > 0 {
			io.WriteString(w, "\n")
		}
		fn, _ := p.heap.AsFunction(value.NewObject(ref))
		dis.Print(w, p.heap, fn.Chunk, p.heap.FunctionName(fn))
	}
}
