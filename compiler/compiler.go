// Package compiler compiles Lox source code directly into bytecode.
//
// # Single-Pass Compilation
//
// There is no syntax tree. The compiler pulls tokens from the lexer one at a
// time and emits bytecode into the chunk of the function being compiled as
// soon as it has seen enough of the source to know what to emit.
//
// Expressions are parsed with a Pratt parser: every token type maps to a
// prefix rule, an infix rule and a precedence. Statements dispatch on their
// leading keyword.
//
// # Functions and Scopes
//
// Each function being compiled gets its own funcState holding its locals,
// captured upvalues and scope depth. Nested function declarations push a new
// funcState that links to the enclosing one, so an identifier that is not a
// local of the current function can be resolved as an upvalue by walking
// outwards. Top-level variables are globals and are looked up by name at run
// time.
//
// Forward jumps are emitted with a Placeholder offset and patched once the
// jump target is known. Backward jumps for loops compute their offset
// directly.
//
// # Errors
//
// A syntax error puts the compiler in panic mode: further errors are
// suppressed until it resynchronizes at a statement boundary. All errors are
// collected, so a single pass reports every independent problem. Compilation
// fails if any error occurred.
package compiler

import (
	"errors"
	"math"
	"strings"

	"github.com/deepnoodle-ai/lox/dis"
	"github.com/deepnoodle-ai/lox/errz"
	"github.com/deepnoodle-ai/lox/internal/lexer"
	"github.com/deepnoodle-ai/lox/internal/token"
	"github.com/deepnoodle-ai/lox/object"
	"github.com/deepnoodle-ai/lox/op"
	"github.com/deepnoodle-ai/lox/value"
	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"
)

const (
	// MaxArgs is the maximum number of arguments or parameters a function
	// can have.
	MaxArgs = 255

	// MaxLocals is the maximum number of local variables in one function,
	// including the reserved slot zero.
	MaxLocals = 256

	// MaxUpvalues is the maximum number of variables one function can
	// capture.
	MaxUpvalues = 256

	// MaxConstants is the maximum number of constants in one chunk.
	MaxConstants = 256

	// Placeholder is a temporary jump offset written during compilation,
	// which is always replaced before compilation is complete.
	Placeholder = uint16(math.MaxUint16)
)

// Compiler compiles Lox source into functions on a heap.
type Compiler struct {
	heap   *object.Heap
	logger zerolog.Logger

	lexer    *lexer.Lexer
	current  token.Token
	previous token.Token

	// The function being compiled, innermost first
	fn *funcState

	// The class being compiled, if any
	class *classState

	errors    *multierror.Error
	panicMode bool
}

// Option is a configuration function for a Compiler.
type Option func(*Compiler)

// WithLogger sets the logger. At trace level the disassembly of each
// compiled function is logged.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Compiler) {
		c.logger = logger
	}
}

// New returns a Compiler that allocates functions and constants on heap.
func New(heap *object.Heap, options ...Option) *Compiler {
	c := &Compiler{
		heap:   heap,
		logger: zerolog.Nop(),
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// Compile compiles source on the given heap and returns the top-level
// function.
func Compile(heap *object.Heap, source string, options ...Option) (value.Ref, error) {
	return New(heap, options...).Compile(source)
}

// Compile compiles source into a top-level function and returns its handle.
// On failure the returned error is a *multierror.Error whose members are
// *errz.CompileError values, in source order.
func (c *Compiler) Compile(source string) (value.Ref, error) {
	c.lexer = lexer.New(source)
	c.errors = nil
	c.panicMode = false
	c.fn = nil
	c.class = nil

	// Functions under construction are only reachable through the compiler
	c.heap.AddRoots(c)
	defer c.heap.RemoveRoots(c)

	c.beginFunction(kindScript)
	c.advance()
	for !c.match(token.EOF) {
		c.declaration()
	}
	script, _ := c.endFunction()

	if err := c.errors.ErrorOrNil(); err != nil {
		return value.NoRef, err
	}
	return script, nil
}

// MarkRoots marks every function still being compiled.
func (c *Compiler) MarkRoots(mark func(value.Value)) {
	for fs := c.fn; fs != nil; fs = fs.enclosing {
		mark(value.NewObject(fs.ref))
	}
}

// Errors returns the individual compile errors in err, which may wrap an
// error returned by Compile. It returns nil when err holds no compile errors.
func Errors(err error) []*errz.CompileError {
	var merr *multierror.Error
	if errors.As(err, &merr) {
		var out []*errz.CompileError
		for _, e := range merr.Errors {
			var cerr *errz.CompileError
			if errors.As(e, &cerr) {
				out = append(out, cerr)
			}
		}
		return out
	}
	var cerr *errz.CompileError
	if errors.As(err, &cerr) {
		return []*errz.CompileError{cerr}
	}
	return nil
}

func formatErrors(errs []error) string {
	lines := make([]string, len(errs))
	for i, err := range errs {
		lines[i] = err.Error()
	}
	return strings.Join(lines, "\n")
}

/* Tokens */

func (c *Compiler) advance() {
	c.previous = c.current
	for {
		c.current = c.lexer.Next()
		if c.current.Type != token.ERROR {
			break
		}
		c.errorAtCurrent(c.current.Literal)
	}
}

func (c *Compiler) check(typ token.Type) bool {
	return c.current.Type == typ
}

func (c *Compiler) match(typ token.Type) bool {
	if !c.check(typ) {
		return false
	}
	c.advance()
	return true
}

func (c *Compiler) consume(typ token.Type, message string) {
	if c.check(typ) {
		c.advance()
		return
	}
	c.errorAtCurrent(message)
}

/* Errors */

func (c *Compiler) errorAt(tok token.Token, message string) {
	if c.panicMode {
		return
	}
	c.panicMode = true
	var where string
	switch tok.Type {
	case token.EOF:
		where = " at end"
	case token.ERROR:
		// The message is the lexeme
	default:
		where = " at '" + tok.Literal + "'"
	}
	c.errors = multierror.Append(c.errors, &errz.CompileError{
		Line:    tok.Line,
		Where:   where,
		Message: message,
	})
	c.errors.ErrorFormat = formatErrors
}

func (c *Compiler) error(message string) {
	c.errorAt(c.previous, message)
}

func (c *Compiler) errorAtCurrent(message string) {
	c.errorAt(c.current, message)
}

// synchronize skips tokens until a likely statement boundary.
func (c *Compiler) synchronize() {
	c.panicMode = false
	for c.current.Type != token.EOF {
		if c.previous.Type == token.SEMICOLON {
			return
		}
		switch c.current.Type {
		case token.CLASS, token.FUN, token.VAR, token.FOR,
			token.IF, token.WHILE, token.PRINT, token.RETURN:
			return
		}
		c.advance()
	}
}

/* Emitting */

// emit appends an instruction to the current chunk and returns its position.
func (c *Compiler) emit(code op.Code, operands ...byte) int {
	chunk := c.fn.function.Chunk
	pos := chunk.Len()
	line := c.previous.Line
	chunk.WriteOp(code, line)
	for _, operand := range operands {
		chunk.Write(operand, line)
	}
	return pos
}

func (c *Compiler) emitBytes(bytes ...byte) {
	chunk := c.fn.function.Chunk
	for _, b := range bytes {
		chunk.Write(b, c.previous.Line)
	}
}

// emitJump emits a jump with a Placeholder offset and returns the position
// of the offset for patchJump.
func (c *Compiler) emitJump(code op.Code) int {
	return c.emit(code, byte(Placeholder>>8), byte(Placeholder&0xff)) + 1
}

// patchJump points the jump whose offset is at pos to the next instruction.
func (c *Compiler) patchJump(pos int) {
	chunk := c.fn.function.Chunk
	// -2 to skip over the offset itself
	delta := chunk.Len() - pos - 2
	if delta > math.MaxUint16 {
		c.error("Too much code to jump over.")
		return
	}
	chunk.PutUint16(pos, uint16(delta))
}

// emitLoop emits a backward jump to loopStart.
func (c *Compiler) emitLoop(loopStart int) {
	chunk := c.fn.function.Chunk
	// +3 for the loop instruction and its offset
	delta := chunk.Len() - loopStart + 3
	if delta > math.MaxUint16 {
		c.error("Loop body too large.")
		delta = 0
	}
	c.emit(op.Loop, byte(delta>>8), byte(delta&0xff))
}

func (c *Compiler) emitReturn() {
	if c.fn.kind == kindInitializer {
		c.emit(op.GetLocal, 0)
	} else {
		c.emit(op.Nil)
	}
	c.emit(op.Return)
}

func (c *Compiler) makeConstant(v value.Value) byte {
	index := c.fn.function.Chunk.AddConstant(v)
	if index >= MaxConstants {
		c.error("Too many constants in one chunk.")
		return 0
	}
	return byte(index)
}

func (c *Compiler) emitConstant(v value.Value) {
	c.emit(op.Constant, c.makeConstant(v))
}

func (c *Compiler) identifierConstant(name string) byte {
	return c.makeConstant(value.NewObject(c.heap.Intern(name)))
}

func (c *Compiler) logFunction(ref value.Ref, fn *object.Function) {
	if e := c.logger.Trace(); e.Enabled() {
		name := c.heap.FunctionName(fn)
		var b strings.Builder
		dis.Print(&b, c.heap, fn.Chunk, name)
		e.Str("function", name).Uint32("ref", uint32(ref)).Msg("compiled\n" + b.String())
	}
}
