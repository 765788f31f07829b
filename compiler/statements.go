package compiler

import (
	"github.com/deepnoodle-ai/lox/internal/token"
	"github.com/deepnoodle-ai/lox/op"
	"github.com/deepnoodle-ai/lox/value"
)

func (c *Compiler) declaration() {
	switch {
	case c.match(token.CLASS):
		c.classDeclaration()
	case c.match(token.FUN):
		c.funDeclaration()
	case c.match(token.VAR):
		c.varDeclaration()
	default:
		c.statement()
	}
	if c.panicMode {
		c.synchronize()
	}
}

func (c *Compiler) statement() {
	switch {
	case c.match(token.PRINT):
		c.printStatement()
	case c.match(token.FOR):
		c.forStatement()
	case c.match(token.IF):
		c.ifStatement()
	case c.match(token.RETURN):
		c.returnStatement()
	case c.match(token.WHILE):
		c.whileStatement()
	case c.match(token.LBRACE):
		c.beginScope()
		c.block()
		c.endScope()
	default:
		c.expressionStatement()
	}
}

func (c *Compiler) block() {
	for !c.check(token.RBRACE) && !c.check(token.EOF) {
		c.declaration()
	}
	c.consume(token.RBRACE, "Expect '}' after block.")
}

func (c *Compiler) varDeclaration() {
	global := c.parseVariable("Expect variable name.")
	if c.match(token.ASSIGN) {
		c.expression()
	} else {
		c.emit(op.Nil)
	}
	c.consume(token.SEMICOLON, "Expect ';' after variable declaration.")
	c.defineVariable(global)
}

func (c *Compiler) funDeclaration() {
	global := c.parseVariable("Expect function name.")
	// A function may refer to itself, so it is initialized before its body
	c.markInitialized()
	c.function(kindFunction)
	c.defineVariable(global)
}

// function compiles a parameter list and body into a new function and emits
// the closure instruction that creates it at run time.
func (c *Compiler) function(kind functionKind) {
	c.beginFunction(kind)
	c.beginScope()

	c.consume(token.LPAREN, "Expect '(' after function name.")
	if !c.check(token.RPAREN) {
		for {
			c.fn.function.Arity++
			if c.fn.function.Arity > MaxArgs {
				c.errorAtCurrent("Can't have more than 255 parameters.")
			}
			constant := c.parseVariable("Expect parameter name.")
			c.defineVariable(constant)
			if !c.match(token.COMMA) {
				break
			}
		}
	}
	c.consume(token.RPAREN, "Expect ')' after parameters.")
	c.consume(token.LBRACE, "Expect '{' before function body.")
	c.block()

	// The outermost scope ends with the function, no pops needed
	ref, upvalues := c.endFunction()
	c.emit(op.Closure, c.makeConstant(value.NewObject(ref)))
	for _, uv := range upvalues {
		isLocal := byte(0)
		if uv.isLocal {
			isLocal = 1
		}
		c.emitBytes(isLocal, uv.index)
	}
}

func (c *Compiler) classDeclaration() {
	c.consume(token.IDENT, "Expect class name.")
	className := c.previous.Literal
	nameConstant := c.identifierConstant(className)
	c.declareVariable()

	c.emit(op.Class, nameConstant)
	c.defineVariable(nameConstant)

	c.class = &classState{enclosing: c.class}

	if c.match(token.LT) {
		c.consume(token.IDENT, "Expect superclass name.")
		c.variable(false)
		if className == c.previous.Literal {
			c.error("A class can't inherit from itself.")
		}
		// The superclass lives in a local named super for the class body
		c.beginScope()
		c.addLocal("super")
		c.defineVariable(0)

		c.namedVariable(className, false)
		c.emit(op.Inherit)
		c.class.hasSuperclass = true
	}

	// Keep the class on the stack while methods are bound to it
	c.namedVariable(className, false)
	c.consume(token.LBRACE, "Expect '{' before class body.")
	for !c.check(token.RBRACE) && !c.check(token.EOF) {
		c.method()
	}
	c.consume(token.RBRACE, "Expect '}' after class body.")
	c.emit(op.Pop)

	if c.class.hasSuperclass {
		c.endScope()
	}
	c.class = c.class.enclosing
}

func (c *Compiler) method() {
	c.consume(token.IDENT, "Expect method name.")
	name := c.previous.Literal
	constant := c.identifierConstant(name)
	kind := kindMethod
	if name == "init" {
		kind = kindInitializer
	}
	c.function(kind)
	c.emit(op.Method, constant)
}

func (c *Compiler) expressionStatement() {
	c.expression()
	c.consume(token.SEMICOLON, "Expect ';' after expression.")
	c.emit(op.Pop)
}

func (c *Compiler) printStatement() {
	c.expression()
	c.consume(token.SEMICOLON, "Expect ';' after value.")
	c.emit(op.Print)
}

func (c *Compiler) returnStatement() {
	if c.fn.kind == kindScript {
		c.error("Can't return from top-level code.")
	}
	if c.match(token.SEMICOLON) {
		c.emitReturn()
		return
	}
	if c.fn.kind == kindInitializer {
		c.error("Can't return a value from an initializer.")
	}
	c.expression()
	c.consume(token.SEMICOLON, "Expect ';' after return value.")
	c.emit(op.Return)
}

// ifStatement leaves the condition on the stack across the jump, so each
// branch starts by popping it.
func (c *Compiler) ifStatement() {
	c.consume(token.LPAREN, "Expect '(' after 'if'.")
	c.expression()
	c.consume(token.RPAREN, "Expect ')' after condition.")

	thenJump := c.emitJump(op.JumpIfFalse)
	c.emit(op.Pop)
	c.statement()

	elseJump := c.emitJump(op.Jump)
	c.patchJump(thenJump)
	c.emit(op.Pop)

	if c.match(token.ELSE) {
		c.statement()
	}
	c.patchJump(elseJump)
}

func (c *Compiler) whileStatement() {
	loopStart := c.fn.function.Chunk.Len()
	c.consume(token.LPAREN, "Expect '(' after 'while'.")
	c.expression()
	c.consume(token.RPAREN, "Expect ')' after condition.")

	exitJump := c.emitJump(op.JumpIfFalse)
	c.emit(op.Pop)
	c.statement()
	c.emitLoop(loopStart)

	c.patchJump(exitJump)
	c.emit(op.Pop)
}

// forStatement compiles the increment clause before the body in the
// bytecode, so the body jumps back to the increment and the increment jumps
// back to the condition.
func (c *Compiler) forStatement() {
	c.beginScope()
	c.consume(token.LPAREN, "Expect '(' after 'for'.")
	switch {
	case c.match(token.SEMICOLON):
		// No initializer
	case c.match(token.VAR):
		c.varDeclaration()
	default:
		c.expressionStatement()
	}

	loopStart := c.fn.function.Chunk.Len()
	exitJump := -1
	if !c.match(token.SEMICOLON) {
		c.expression()
		c.consume(token.SEMICOLON, "Expect ';' after loop condition.")
		exitJump = c.emitJump(op.JumpIfFalse)
		c.emit(op.Pop)
	}

	if !c.match(token.RPAREN) {
		bodyJump := c.emitJump(op.Jump)
		incrementStart := c.fn.function.Chunk.Len()
		c.expression()
		c.emit(op.Pop)
		c.consume(token.RPAREN, "Expect ')' after for clauses.")

		c.emitLoop(loopStart)
		loopStart = incrementStart
		c.patchJump(bodyJump)
	}

	c.statement()
	c.emitLoop(loopStart)

	if exitJump != -1 {
		c.patchJump(exitJump)
		c.emit(op.Pop)
	}
	c.endScope()
}
