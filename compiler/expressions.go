package compiler

import (
	"strconv"

	"github.com/deepnoodle-ai/lox/internal/token"
	"github.com/deepnoodle-ai/lox/op"
	"github.com/deepnoodle-ai/lox/value"
)

// precedence levels, lowest to highest
type precedence int

const (
	precNone       precedence = iota
	precAssignment            // =
	precOr                    // or
	precAnd                   // and
	precEquality              // == !=
	precComparison            // < > <= >=
	precTerm                  // + -
	precFactor                // * /
	precUnary                 // ! -
	precCall                  // . ()
	precPrimary
)

type parseFn func(c *Compiler, canAssign bool)

type parseRule struct {
	prefix     parseFn
	infix      parseFn
	precedence precedence
}

var rules map[token.Type]parseRule

func init() {
	rules = map[token.Type]parseRule{
		token.LPAREN:    {(*Compiler).grouping, (*Compiler).call, precCall},
		token.PERIOD:    {nil, (*Compiler).dot, precCall},
		token.MINUS:     {(*Compiler).unary, (*Compiler).binary, precTerm},
		token.PLUS:      {nil, (*Compiler).binary, precTerm},
		token.SLASH:     {nil, (*Compiler).binary, precFactor},
		token.ASTERISK:  {nil, (*Compiler).binary, precFactor},
		token.BANG:      {(*Compiler).unary, nil, precNone},
		token.NOT_EQ:    {nil, (*Compiler).binary, precEquality},
		token.EQ:        {nil, (*Compiler).binary, precEquality},
		token.GT:        {nil, (*Compiler).binary, precComparison},
		token.GT_EQUALS: {nil, (*Compiler).binary, precComparison},
		token.LT:        {nil, (*Compiler).binary, precComparison},
		token.LT_EQUALS: {nil, (*Compiler).binary, precComparison},
		token.IDENT:     {(*Compiler).variable, nil, precNone},
		token.STRING:    {(*Compiler).string, nil, precNone},
		token.NUMBER:    {(*Compiler).number, nil, precNone},
		token.AND:       {nil, (*Compiler).and, precAnd},
		token.OR:        {nil, (*Compiler).or, precOr},
		token.FALSE:     {(*Compiler).literal, nil, precNone},
		token.NIL:       {(*Compiler).literal, nil, precNone},
		token.TRUE:      {(*Compiler).literal, nil, precNone},
		token.SUPER:     {(*Compiler).super, nil, precNone},
		token.THIS:      {(*Compiler).this, nil, precNone},
	}
}

// getRule returns the rule for a token type. Types without an entry have no
// prefix or infix meaning.
func getRule(typ token.Type) parseRule {
	return rules[typ]
}

func (c *Compiler) expression() {
	c.parsePrecedence(precAssignment)
}

// parsePrecedence parses any expression at the given precedence or higher.
func (c *Compiler) parsePrecedence(prec precedence) {
	c.advance()
	prefix := getRule(c.previous.Type).prefix
	if prefix == nil {
		c.error("Expect expression.")
		return
	}
	canAssign := prec <= precAssignment
	prefix(c, canAssign)

	for prec <= getRule(c.current.Type).precedence {
		c.advance()
		infix := getRule(c.previous.Type).infix
		infix(c, canAssign)
	}

	if canAssign && c.match(token.ASSIGN) {
		c.error("Invalid assignment target.")
	}
}

func (c *Compiler) number(bool) {
	n, err := strconv.ParseFloat(c.previous.Literal, 64)
	if err != nil {
		c.error("Invalid number literal.")
		return
	}
	c.emitConstant(value.NewNumber(n))
}

func (c *Compiler) string(bool) {
	lexeme := c.previous.Literal
	// Trim the surrounding quotes
	ref := c.heap.Intern(lexeme[1 : len(lexeme)-1])
	c.emitConstant(value.NewObject(ref))
}

func (c *Compiler) literal(bool) {
	switch c.previous.Type {
	case token.FALSE:
		c.emit(op.False)
	case token.NIL:
		c.emit(op.Nil)
	case token.TRUE:
		c.emit(op.True)
	}
}

func (c *Compiler) grouping(bool) {
	c.expression()
	c.consume(token.RPAREN, "Expect ')' after expression.")
}

func (c *Compiler) unary(bool) {
	operator := c.previous.Type
	c.parsePrecedence(precUnary)
	switch operator {
	case token.BANG:
		c.emit(op.Not)
	case token.MINUS:
		c.emit(op.Negate)
	}
}

func (c *Compiler) binary(bool) {
	operator := c.previous.Type
	c.parsePrecedence(getRule(operator).precedence + 1)
	switch operator {
	case token.NOT_EQ:
		c.emit(op.Equal)
		c.emit(op.Not)
	case token.EQ:
		c.emit(op.Equal)
	case token.GT:
		c.emit(op.Greater)
	case token.GT_EQUALS:
		c.emit(op.Less)
		c.emit(op.Not)
	case token.LT:
		c.emit(op.Less)
	case token.LT_EQUALS:
		c.emit(op.Greater)
		c.emit(op.Not)
	case token.PLUS:
		c.emit(op.Add)
	case token.MINUS:
		c.emit(op.Subtract)
	case token.ASTERISK:
		c.emit(op.Multiply)
	case token.SLASH:
		c.emit(op.Divide)
	}
}

// and leaves a falsey left operand on the stack as the result, otherwise it
// discards it and evaluates the right operand.
func (c *Compiler) and(bool) {
	endJump := c.emitJump(op.JumpIfFalse)
	c.emit(op.Pop)
	c.parsePrecedence(precAnd)
	c.patchJump(endJump)
}

// or leaves a truthy left operand on the stack as the result, otherwise it
// discards it and evaluates the right operand.
func (c *Compiler) or(bool) {
	elseJump := c.emitJump(op.JumpIfFalse)
	endJump := c.emitJump(op.Jump)
	c.patchJump(elseJump)
	c.emit(op.Pop)
	c.parsePrecedence(precOr)
	c.patchJump(endJump)
}

func (c *Compiler) call(bool) {
	argCount := c.argumentList()
	c.emit(op.Call, argCount)
}

func (c *Compiler) argumentList() byte {
	argCount := 0
	if !c.check(token.RPAREN) {
		for {
			c.expression()
			if argCount == MaxArgs {
				c.error("Can't have more than 255 arguments.")
			}
			argCount++
			if !c.match(token.COMMA) {
				break
			}
		}
	}
	c.consume(token.RPAREN, "Expect ')' after arguments.")
	return byte(argCount)
}

func (c *Compiler) dot(canAssign bool) {
	c.consume(token.IDENT, "Expect property name after '.'.")
	name := c.identifierConstant(c.previous.Literal)
	switch {
	case canAssign && c.match(token.ASSIGN):
		c.expression()
		c.emit(op.SetProperty, name)
	case c.match(token.LPAREN):
		argCount := c.argumentList()
		c.emit(op.Invoke, name, argCount)
	default:
		c.emit(op.GetProperty, name)
	}
}

func (c *Compiler) variable(canAssign bool) {
	c.namedVariable(c.previous.Literal, canAssign)
}

// namedVariable emits a load of the named variable, or a store if an
// assignment follows and is allowed here.
func (c *Compiler) namedVariable(name string, canAssign bool) {
	var getOp, setOp op.Code
	var arg byte
	if slot := c.resolveLocal(c.fn, name); slot != -1 {
		arg, getOp, setOp = byte(slot), op.GetLocal, op.SetLocal
	} else if index := c.resolveUpvalue(c.fn, name); index != -1 {
		arg, getOp, setOp = byte(index), op.GetUpvalue, op.SetUpvalue
	} else {
		arg, getOp, setOp = c.identifierConstant(name), op.GetGlobal, op.SetGlobal
	}
	if canAssign && c.match(token.ASSIGN) {
		c.expression()
		c.emit(setOp, arg)
	} else {
		c.emit(getOp, arg)
	}
}

func (c *Compiler) this(bool) {
	if c.class == nil {
		c.error("Can't use 'this' outside of a class.")
		return
	}
	c.variable(false)
}

func (c *Compiler) super(bool) {
	if c.class == nil {
		c.error("Can't use 'super' outside of a class.")
	} else if !c.class.hasSuperclass {
		c.error("Can't use 'super' in a class with no superclass.")
	}
	c.consume(token.PERIOD, "Expect '.' after 'super'.")
	c.consume(token.IDENT, "Expect superclass method name.")
	name := c.identifierConstant(c.previous.Literal)

	c.namedVariable("this", false)
	if c.match(token.LPAREN) {
		argCount := c.argumentList()
		c.namedVariable("super", false)
		c.emit(op.SuperInvoke, name, argCount)
	} else {
		c.namedVariable("super", false)
		c.emit(op.GetSuper, name)
	}
}
