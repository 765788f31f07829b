package lexer

import (
	"testing"

	"github.com/deepnoodle-ai/lox/internal/token"
	"github.com/stretchr/testify/require"
)

type expectedToken struct {
	expectedType    token.Type
	expectedLiteral string
}

func checkTokens(t *testing.T, input string, tests []expectedToken) {
	t.Helper()
	l := New(input)
	for i, tt := range tests {
		tok := l.Next()
		if tok.Type != tt.expectedType {
			t.Fatalf("tests[%d] - tokentype wrong, expected=%q, got=%q", i, tt.expectedType, tok.Type)
		}
		if tok.Literal != tt.expectedLiteral {
			t.Fatalf("tests[%d] - Literal wrong, expected=%q, got=%q", i, tt.expectedLiteral, tok.Literal)
		}
	}
}

func TestNil(t *testing.T) {
	checkTokens(t, "var a = nil;", []expectedToken{
		{token.VAR, "var"},
		{token.IDENT, "a"},
		{token.ASSIGN, "="},
		{token.NIL, "nil"},
		{token.SEMICOLON, ";"},
		{token.EOF, ""},
	})
}

func TestNextToken1(t *testing.T) {
	checkTokens(t, "(){};,.-+/*! != = == > >= < <=", []expectedToken{
		{token.LPAREN, "("},
		{token.RPAREN, ")"},
		{token.LBRACE, "{"},
		{token.RBRACE, "}"},
		{token.SEMICOLON, ";"},
		{token.COMMA, ","},
		{token.PERIOD, "."},
		{token.MINUS, "-"},
		{token.PLUS, "+"},
		{token.SLASH, "/"},
		{token.ASTERISK, "*"},
		{token.BANG, "!"},
		{token.NOT_EQ, "!="},
		{token.ASSIGN, "="},
		{token.EQ, "=="},
		{token.GT, ">"},
		{token.GT_EQUALS, ">="},
		{token.LT, "<"},
		{token.LT_EQUALS, "<="},
		{token.EOF, ""},
	})
}

func TestKeywordsAndIdentifiers(t *testing.T) {
	input := "class Foo < Bar { init() { this.x = super.y; } } fun funny _under or and"
	checkTokens(t, input, []expectedToken{
		{token.CLASS, "class"},
		{token.IDENT, "Foo"},
		{token.LT, "<"},
		{token.IDENT, "Bar"},
		{token.LBRACE, "{"},
		{token.IDENT, "init"},
		{token.LPAREN, "("},
		{token.RPAREN, ")"},
		{token.LBRACE, "{"},
		{token.THIS, "this"},
		{token.PERIOD, "."},
		{token.IDENT, "x"},
		{token.ASSIGN, "="},
		{token.SUPER, "super"},
		{token.PERIOD, "."},
		{token.IDENT, "y"},
		{token.SEMICOLON, ";"},
		{token.RBRACE, "}"},
		{token.RBRACE, "}"},
		{token.FUN, "fun"},
		{token.IDENT, "funny"},
		{token.IDENT, "_under"},
		{token.OR, "or"},
		{token.AND, "and"},
		{token.EOF, ""},
	})
}

func TestNumbers(t *testing.T) {
	checkTokens(t, "123 4.5 6. .7", []expectedToken{
		{token.NUMBER, "123"},
		{token.NUMBER, "4.5"},
		{token.NUMBER, "6"},
		{token.PERIOD, "."},
		{token.PERIOD, "."},
		{token.NUMBER, "7"},
		{token.EOF, ""},
	})
}

func TestStrings(t *testing.T) {
	checkTokens(t, `"hello" "" "a b"`, []expectedToken{
		{token.STRING, `"hello"`},
		{token.STRING, `""`},
		{token.STRING, `"a b"`},
		{token.EOF, ""},
	})
}

func TestUnterminatedString(t *testing.T) {
	l := New(`print "oops`)
	require.Equal(t, token.PRINT, l.Next().Type)
	tok := l.Next()
	require.Equal(t, token.ERROR, tok.Type)
	require.Equal(t, "Unterminated string.", tok.Literal)
	require.Equal(t, token.EOF, l.Next().Type)
}

func TestUnexpectedCharacter(t *testing.T) {
	l := New("a @ b")
	require.Equal(t, token.IDENT, l.Next().Type)
	tok := l.Next()
	require.Equal(t, token.ERROR, tok.Type)
	require.Equal(t, "Unexpected character.", tok.Literal)
	require.Equal(t, "b", l.Next().Literal)
}

func TestLinesAndComments(t *testing.T) {
	input := "var a; // a comment ( not tokens\n\nprint \"multi\nline\";\nb"
	l := New(input)
	var tokens []token.Token
	for {
		tok := l.Next()
		tokens = append(tokens, tok)
		if tok.Type == token.EOF {
			break
		}
	}
	require.Len(t, tokens, 8)
	require.Equal(t, 1, tokens[0].Line)
	require.Equal(t, token.PRINT, tokens[3].Type)
	require.Equal(t, 3, tokens[3].Line)
	// The string token reports the line where it ends
	require.Equal(t, 4, tokens[4].Line)
	require.Equal(t, "b", tokens[6].Literal)
	require.Equal(t, 5, tokens[6].Line)
}

func TestEOFRepeats(t *testing.T) {
	l := New("")
	for i := 0; i < 3; i++ {
		require.Equal(t, token.EOF, l.Next().Type)
	}
}
