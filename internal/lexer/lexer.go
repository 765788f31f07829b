// Package lexer scans Lox source code into tokens on demand.
package lexer

import (
	"github.com/deepnoodle-ai/lox/internal/token"
)

// Lexer produces tokens lazily from an input string. It holds no state beyond
// its cursor, so restarting a scan means constructing a new Lexer.
type Lexer struct {
	input   string
	start   int // start of the lexeme being scanned
	current int // position of the next unread byte
	line    int
}

// New returns a Lexer positioned at the start of the input.
func New(input string) *Lexer {
	return &Lexer{input: input, line: 1}
}

// Next scans and returns the next token. Once the input is exhausted every
// call returns an EOF token. Lexical problems are reported as ERROR tokens
// whose Literal is the message.
func (l *Lexer) Next() token.Token {
	l.skipWhitespace()
	l.start = l.current
	if l.isAtEnd() {
		return l.makeToken(token.EOF)
	}
	c := l.advance()
	switch {
	case isAlpha(c):
		return l.identifier()
	case isDigit(c):
		return l.number()
	}
	switch c {
	case '(':
		return l.makeToken(token.LPAREN)
	case ')':
		return l.makeToken(token.RPAREN)
	case '{':
		return l.makeToken(token.LBRACE)
	case '}':
		return l.makeToken(token.RBRACE)
	case ';':
		return l.makeToken(token.SEMICOLON)
	case ',':
		return l.makeToken(token.COMMA)
	case '.':
		return l.makeToken(token.PERIOD)
	case '-':
		return l.makeToken(token.MINUS)
	case '+':
		return l.makeToken(token.PLUS)
	case '/':
		return l.makeToken(token.SLASH)
	case '*':
		return l.makeToken(token.ASTERISK)
	case '!':
		return l.makeTwoCharToken('=', token.NOT_EQ, token.BANG)
	case '=':
		return l.makeTwoCharToken('=', token.EQ, token.ASSIGN)
	case '<':
		return l.makeTwoCharToken('=', token.LT_EQUALS, token.LT)
	case '>':
		return l.makeTwoCharToken('=', token.GT_EQUALS, token.GT)
	case '"':
		return l.string()
	}
	return l.errorToken("Unexpected character.")
}

func (l *Lexer) isAtEnd() bool {
	return l.current >= len(l.input)
}

func (l *Lexer) advance() byte {
	c := l.input[l.current]
	l.current++
	return c
}

func (l *Lexer) peek() byte {
	if l.isAtEnd() {
		return 0
	}
	return l.input[l.current]
}

func (l *Lexer) peekNext() byte {
	if l.current+1 >= len(l.input) {
		return 0
	}
	return l.input[l.current+1]
}

func (l *Lexer) match(expected byte) bool {
	if l.isAtEnd() || l.input[l.current] != expected {
		return false
	}
	l.current++
	return true
}

func (l *Lexer) skipWhitespace() {
	for {
		switch l.peek() {
		case ' ', '\r', '\t':
			l.advance()
		case '\n':
			l.line++
			l.advance()
		case '/':
			if l.peekNext() != '/' {
				return
			}
			// A comment goes until the end of the line
			for l.peek() != '\n' && !l.isAtEnd() {
				l.advance()
			}
		default:
			return
		}
	}
}

func (l *Lexer) identifier() token.Token {
	for isAlpha(l.peek()) || isDigit(l.peek()) {
		l.advance()
	}
	return l.makeToken(token.LookupIdentifier(l.input[l.start:l.current]))
}

func (l *Lexer) number() token.Token {
	for isDigit(l.peek()) {
		l.advance()
	}
	// Look for a fractional part
	if l.peek() == '.' && isDigit(l.peekNext()) {
		l.advance()
		for isDigit(l.peek()) {
			l.advance()
		}
	}
	return l.makeToken(token.NUMBER)
}

func (l *Lexer) string() token.Token {
	for l.peek() != '"' && !l.isAtEnd() {
		if l.peek() == '\n' {
			l.line++
		}
		l.advance()
	}
	if l.isAtEnd() {
		return l.errorToken("Unterminated string.")
	}
	l.advance() // closing quote
	return l.makeToken(token.STRING)
}

func (l *Lexer) makeTwoCharToken(next byte, two, one token.Type) token.Token {
	if l.match(next) {
		return l.makeToken(two)
	}
	return l.makeToken(one)
}

func (l *Lexer) makeToken(typ token.Type) token.Token {
	return token.Token{
		Type:    typ,
		Literal: l.input[l.start:l.current],
		Line:    l.line,
	}
}

func (l *Lexer) errorToken(message string) token.Token {
	return token.Token{
		Type:    token.ERROR,
		Literal: message,
		Line:    l.line,
	}
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isAlpha(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '_'
}
