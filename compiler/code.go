package compiler

import (
	"github.com/deepnoodle-ai/lox/internal/token"
	"github.com/deepnoodle-ai/lox/object"
	"github.com/deepnoodle-ai/lox/op"
	"github.com/deepnoodle-ai/lox/value"
)

type functionKind int

const (
	kindFunction functionKind = iota
	kindInitializer
	kindMethod
	kindScript
)

// uninitialized marks a local that is declared but whose initializer has not
// finished compiling.
const uninitialized = -1

type local struct {
	name       string
	depth      int
	isCaptured bool
}

// upvalue describes where a closure captures a variable from: a local slot
// of the enclosing function, or one of the enclosing function's upvalues.
type upvalue struct {
	index   byte
	isLocal bool
}

// funcState tracks a function while its body is being compiled.
type funcState struct {
	enclosing  *funcState
	ref        value.Ref
	function   *object.Function
	kind       functionKind
	locals     []local
	upvalues   []upvalue
	scopeDepth int
}

type classState struct {
	enclosing     *classState
	hasSuperclass bool
}

// beginFunction starts compiling a new function nested in the current one.
// For anything but the script, the function is named after the previous
// token.
func (c *Compiler) beginFunction(kind functionKind) {
	ref, fn := c.heap.NewFunction()
	fs := &funcState{
		enclosing: c.fn,
		ref:       ref,
		function:  fn,
		kind:      kind,
	}
	c.fn = fs
	if kind != kindScript {
		fn.Name = c.heap.Intern(c.previous.Literal)
	}
	// Slot zero holds the receiver in methods and the callee otherwise
	slotZero := local{depth: 0}
	if kind == kindMethod || kind == kindInitializer {
		slotZero.name = "this"
	}
	fs.locals = append(fs.locals, slotZero)
}

// endFunction finishes the current function and returns to the enclosing
// one. The returned upvalues are the capture descriptors for the closure
// instruction.
func (c *Compiler) endFunction() (value.Ref, []upvalue) {
	c.emitReturn()
	fs := c.fn
	fs.function.UpvalueCount = len(fs.upvalues)
	if c.errors == nil {
		c.logFunction(fs.ref, fs.function)
	}
	c.fn = fs.enclosing
	return fs.ref, fs.upvalues
}

func (c *Compiler) beginScope() {
	c.fn.scopeDepth++
}

// endScope discards the locals of the innermost scope. Captured locals are
// moved into their upvalues instead of being popped.
func (c *Compiler) endScope() {
	fs := c.fn
	fs.scopeDepth--
	for len(fs.locals) > 0 && fs.locals[len(fs.locals)-1].depth > fs.scopeDepth {
		if fs.locals[len(fs.locals)-1].isCaptured {
			c.emit(op.CloseUpvalue)
		} else {
			c.emit(op.Pop)
		}
		fs.locals = fs.locals[:len(fs.locals)-1]
	}
}

func (c *Compiler) addLocal(name string) {
	if len(c.fn.locals) == MaxLocals {
		c.error("Too many local variables in function.")
		return
	}
	c.fn.locals = append(c.fn.locals, local{name: name, depth: uninitialized})
}

// declareVariable records a new local named after the previous token. Globals
// are late bound and need no declaration.
func (c *Compiler) declareVariable() {
	fs := c.fn
	if fs.scopeDepth == 0 {
		return
	}
	name := c.previous.Literal
	for i := len(fs.locals) - 1; i >= 0; i-- {
		l := fs.locals[i]
		if l.depth != uninitialized && l.depth < fs.scopeDepth {
			break
		}
		if l.name == name {
			c.error("Already a variable with this name in this scope.")
		}
	}
	c.addLocal(name)
}

// parseVariable consumes a variable name and returns the constant index of
// the name for globals, or 0 for locals.
func (c *Compiler) parseVariable(message string) byte {
	c.consume(token.IDENT, message)
	c.declareVariable()
	if c.fn.scopeDepth > 0 {
		return 0
	}
	return c.identifierConstant(c.previous.Literal)
}

func (c *Compiler) markInitialized() {
	fs := c.fn
	if fs.scopeDepth == 0 {
		return
	}
	fs.locals[len(fs.locals)-1].depth = fs.scopeDepth
}

func (c *Compiler) defineVariable(global byte) {
	if c.fn.scopeDepth > 0 {
		c.markInitialized()
		return
	}
	c.emit(op.DefineGlobal, global)
}

// resolveLocal returns the slot of the named local in fs, or -1.
func (c *Compiler) resolveLocal(fs *funcState, name string) int {
	for i := len(fs.locals) - 1; i >= 0; i-- {
		if fs.locals[i].name == name {
			if fs.locals[i].depth == uninitialized {
				c.error("Can't read local variable in its own initializer.")
			}
			return i
		}
	}
	return -1
}

// resolveUpvalue returns the index of the upvalue through which fs reaches
// the named variable of an enclosing function, or -1. Intermediate functions
// get forwarding upvalues along the way.
func (c *Compiler) resolveUpvalue(fs *funcState, name string) int {
	if fs.enclosing == nil {
		return -1
	}
	if slot := c.resolveLocal(fs.enclosing, name); slot != -1 {
		fs.enclosing.locals[slot].isCaptured = true
		return c.addUpvalue(fs, byte(slot), true)
	}
	if index := c.resolveUpvalue(fs.enclosing, name); index != -1 {
		return c.addUpvalue(fs, byte(index), false)
	}
	return -1
}

func (c *Compiler) addUpvalue(fs *funcState, index byte, isLocal bool) int {
	for i, uv := range fs.upvalues {
		if uv.index == index && uv.isLocal == isLocal {
			return i
		}
	}
	if len(fs.upvalues) == MaxUpvalues {
		c.error("Too many closure variables in function.")
		return 0
	}
	fs.upvalues = append(fs.upvalues, upvalue{index: index, isLocal: isLocal})
	return len(fs.upvalues) - 1
}
