package expr

import (
	"errors"
	"testing"
)

func TestLexer_Tokens(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []Token
	}{
		{
			name:  "comparison",
			input: "ALP <= 3",
			expected: []Token{
				{Type: TokenIdent, Value: "ALP", Pos: 0},
				{Type: TokenLessEqual, Pos: 4},
				{Type: TokenInt, Value: "3", Pos: 7},
				{Type: TokenEOF, Pos: 8},
			},
		},
		{
			name:  "keywords are lower case",
			input: "and or not in AND",
			expected: []Token{
				{Type: TokenAnd, Pos: 0},
				{Type: TokenOr, Pos: 4},
				{Type: TokenNot, Pos: 7},
				{Type: TokenIn, Pos: 11},
				{Type: TokenIdent, Value: "AND", Pos: 14},
				{Type: TokenEOF, Pos: 17},
			},
		},
		{
			name:  "range",
			input: "x in 1..3",
			expected: []Token{
				{Type: TokenIdent, Value: "x", Pos: 0},
				{Type: TokenIn, Pos: 2},
				{Type: TokenInt, Value: "1", Pos: 5},
				{Type: TokenRange, Pos: 6},
				{Type: TokenInt, Value: "3", Pos: 8},
				{Type: TokenEOF, Pos: 9},
			},
		},
		{
			name:  "negative literal",
			input: "a-1 - b",
			expected: []Token{
				{Type: TokenIdent, Value: "a", Pos: 0},
				{Type: TokenInt, Value: "-1", Pos: 1},
				{Type: TokenMinus, Pos: 4},
				{Type: TokenIdent, Value: "b", Pos: 6},
				{Type: TokenEOF, Pos: 7},
			},
		},
		{
			name:  "operators and delimiters",
			input: "=!=<>>=+(,)",
			expected: []Token{
				{Type: TokenEqual, Pos: 0},
				{Type: TokenNotEqual, Pos: 1},
				{Type: TokenLess, Pos: 3},
				{Type: TokenGreaterEqual, Pos: 4},
				{Type: TokenGreater, Pos: 6},
				{Type: TokenPlus, Pos: 7},
				{Type: TokenLeftParen, Pos: 8},
				{Type: TokenComma, Pos: 9},
				{Type: TokenRightParen, Pos: 10},
				{Type: TokenEOF, Pos: 11},
			},
		},
		{
			name:  "identifier with digits and underscore",
			input: "idx_P1 count_row",
			expected: []Token{
				{Type: TokenIdent, Value: "idx_P1", Pos: 0},
				{Type: TokenIdent, Value: "count_row", Pos: 7},
				{Type: TokenEOF, Pos: 16},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens, err := Tokenize(tt.input)
			if err != nil {
				t.Fatalf("Tokenize() error = %v", err)
			}
			if len(tokens) != len(tt.expected) {
				t.Fatalf("expected %d tokens, got %d: %v", len(tt.expected), len(tokens), tokens)
			}
			for i, tok := range tokens {
				if tok != tt.expected[i] {
					t.Errorf("token %d: expected %+v, got %+v", i, tt.expected[i], tok)
				}
			}
		})
	}
}

func TestLexer_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		pos   int
	}{
		{"bare bang", "a ! b", 2},
		{"single dot", "1.5", 1},
		{"unknown character", "a @ b", 2},
		{"too large", "3000000000", 0},
		{"too small", "x = -2147483649", 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Tokenize(tt.input)
			if !errors.Is(err, ErrLex) {
				t.Fatalf("expected lexical error, got %v", err)
			}
			var e *Error
			if !errors.As(err, &e) {
				t.Fatalf("expected *Error, got %T", err)
			}
			if e.Pos != tt.pos {
				t.Errorf("expected position %d, got %d", tt.pos, e.Pos)
			}
		})
	}
}

func TestLexer_Int32Bounds(t *testing.T) {
	tokens, err := Tokenize("2147483647 -2147483648")
	if err != nil {
		t.Fatalf("Tokenize() error = %v", err)
	}
	if tokens[0].Value != "2147483647" || tokens[1].Value != "-2147483648" {
		t.Errorf("unexpected tokens %v", tokens)
	}
}
