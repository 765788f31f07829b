// Package token defines language keywords and tokens used when lexing source code.
package token

// Type describes the type of a token as a string.
type Type string

// Token represents one token lexed from the input source code. Literal is the
// exact lexeme as it appears in the source, except for ERROR tokens where it
// holds the error message.
type Token struct {
	Type    Type
	Literal string
	Line    int
}

// Token types
const (
	AND       Type = "and"
	ASSIGN    Type = "="
	ASTERISK  Type = "*"
	BANG      Type = "!"
	CLASS     Type = "class"
	COMMA     Type = ","
	ELSE      Type = "else"
	EOF       Type = "EOF"
	EQ        Type = "=="
	ERROR     Type = "ERROR"
	FALSE     Type = "false"
	FOR       Type = "for"
	FUN       Type = "fun"
	GT        Type = ">"
	GT_EQUALS Type = ">="
	IDENT     Type = "IDENT"
	IF        Type = "if"
	LBRACE    Type = "{"
	LPAREN    Type = "("
	LT        Type = "<"
	LT_EQUALS Type = "<="
	MINUS     Type = "-"
	NIL       Type = "nil"
	NOT_EQ    Type = "!="
	NUMBER    Type = "NUMBER"
	OR        Type = "or"
	PERIOD    Type = "."
	PLUS      Type = "+"
	PRINT     Type = "print"
	RBRACE    Type = "}"
	RETURN    Type = "return"
	RPAREN    Type = ")"
	SEMICOLON Type = ";"
	SLASH     Type = "/"
	STRING    Type = "STRING"
	SUPER     Type = "super"
	THIS      Type = "this"
	TRUE      Type = "true"
	VAR       Type = "var"
	WHILE     Type = "while"
)

// Reserved keywords
var keywords = map[string]Type{
	"and":    AND,
	"class":  CLASS,
	"else":   ELSE,
	"false":  FALSE,
	"for":    FOR,
	"fun":    FUN,
	"if":     IF,
	"nil":    NIL,
	"or":     OR,
	"print":  PRINT,
	"return": RETURN,
	"super":  SUPER,
	"this":   THIS,
	"true":   TRUE,
	"var":    VAR,
	"while":  WHILE,
}

// LookupIdentifier used to determinate whether identifier is keyword nor not
func LookupIdentifier(identifier string) Type {
	if tok, ok := keywords[identifier]; ok {
		return tok
	}
	return IDENT
}

// Keywords returns the reserved words of the language in no particular order.
func Keywords() []string {
	names := make([]string, 0, len(keywords))
	for name := range keywords {
		names = append(names, name)
	}
	return names
}
