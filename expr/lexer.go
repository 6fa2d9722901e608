package expr

import (
	"math"
	"strconv"
)

// Lexer tokenizes expression source text
type Lexer struct {
	input string
	pos   int // offset of ch
	ch    byte
}

// NewLexer creates a new lexer
func NewLexer(input string) *Lexer {
	l := &Lexer{input: input, pos: -1}
	l.readChar()
	return l
}

// readChar advances to the next byte; ch is 0 at end of input
func (l *Lexer) readChar() {
	l.pos++
	if l.pos >= len(l.input) {
		l.ch = 0
		l.pos = len(l.input)
		return
	}
	l.ch = l.input[l.pos]
}

// peekChar looks at the next byte without advancing
func (l *Lexer) peekChar() byte {
	if l.pos+1 >= len(l.input) {
		return 0
	}
	return l.input[l.pos+1]
}

func (l *Lexer) skipWhitespace() {
	for l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' {
		l.readChar()
	}
}

func isLetter(ch byte) bool {
	return ch >= 'a' && ch <= 'z' || ch >= 'A' && ch <= 'Z' || ch == '_'
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func (l *Lexer) readIdentifier() string {
	start := l.pos
	for isLetter(l.ch) || isDigit(l.ch) {
		l.readChar()
	}
	return l.input[start:l.pos]
}

func (l *Lexer) readNumber() string {
	start := l.pos
	if l.ch == '-' {
		l.readChar()
	}
	for isDigit(l.ch) {
		l.readChar()
	}
	return l.input[start:l.pos]
}

// single emits a one-byte token
func (l *Lexer) single(t TokenType) Token {
	tok := Token{Type: t, Pos: l.pos}
	l.readChar()
	return tok
}

// pair emits a two-byte token; the caller has checked the second byte
func (l *Lexer) pair(t TokenType) Token {
	tok := Token{Type: t, Pos: l.pos}
	l.readChar()
	l.readChar()
	return tok
}

// NextToken returns the next token
func (l *Lexer) NextToken() (Token, error) {
	l.skipWhitespace()

	pos := l.pos
	switch l.ch {
	case 0:
		return Token{Type: TokenEOF, Pos: pos}, nil
	case '=':
		return l.single(TokenEqual), nil
	case '!':
		if l.peekChar() == '=' {
			return l.pair(TokenNotEqual), nil
		}
		return Token{}, errorf(ErrLex, pos, "'!' must be followed by '='")
	case '<':
		if l.peekChar() == '=' {
			return l.pair(TokenLessEqual), nil
		}
		return l.single(TokenLess), nil
	case '>':
		if l.peekChar() == '=' {
			return l.pair(TokenGreaterEqual), nil
		}
		return l.single(TokenGreater), nil
	case '.':
		if l.peekChar() == '.' {
			return l.pair(TokenRange), nil
		}
		return Token{}, errorf(ErrLex, pos, "'.' must be followed by '.'")
	case '+':
		return l.single(TokenPlus), nil
	case '-':
		if !isDigit(l.peekChar()) {
			return l.single(TokenMinus), nil
		}
		return l.number(pos)
	case '(':
		return l.single(TokenLeftParen), nil
	case ')':
		return l.single(TokenRightParen), nil
	case ',':
		return l.single(TokenComma), nil
	}

	switch {
	case isDigit(l.ch):
		return l.number(pos)
	case isLetter(l.ch):
		value := l.readIdentifier()
		if kw, ok := keywords[value]; ok {
			return Token{Type: kw, Pos: pos}, nil
		}
		return Token{Type: TokenIdent, Value: value, Pos: pos}, nil
	}
	return Token{}, errorf(ErrLex, pos, "unexpected character %q", l.ch)
}

func (l *Lexer) number(pos int) (Token, error) {
	value := l.readNumber()
	if _, err := strconv.ParseInt(value, 10, 32); err != nil {
		return Token{}, errorf(ErrLex, pos, "integer %s out of range [%d, %d]", value, math.MinInt32, math.MaxInt32)
	}
	return Token{Type: TokenInt, Value: value, Pos: pos}, nil
}

// Tokenize returns all tokens from the input, terminated by TokenEOF
func Tokenize(input string) ([]Token, error) {
	lexer := NewLexer(input)
	var tokens []Token

	for {
		tok, err := lexer.NextToken()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
		if tok.Type == TokenEOF {
			return tokens, nil
		}
	}
}
