package expr

// TokenType represents the type of a token
type TokenType int

const (
	TokenEOF TokenType = iota

	// Literals
	TokenIdent
	TokenInt

	// Keywords
	TokenAnd
	TokenOr
	TokenNot
	TokenIn

	// Operators
	TokenEqual        // =
	TokenNotEqual     // !=
	TokenLess         // <
	TokenLessEqual    // <=
	TokenGreater      // >
	TokenGreaterEqual // >=
	TokenRange        // ..
	TokenPlus         // +
	TokenMinus        // -

	// Delimiters
	TokenLeftParen  // (
	TokenRightParen // )
	TokenComma      // ,
)

var tokenNames = [...]string{
	TokenEOF:          "end of input",
	TokenIdent:        "identifier",
	TokenInt:          "integer",
	TokenAnd:          "and",
	TokenOr:           "or",
	TokenNot:          "not",
	TokenIn:           "in",
	TokenEqual:        "=",
	TokenNotEqual:     "!=",
	TokenLess:         "<",
	TokenLessEqual:    "<=",
	TokenGreater:      ">",
	TokenGreaterEqual: ">=",
	TokenRange:        "..",
	TokenPlus:         "+",
	TokenMinus:        "-",
	TokenLeftParen:    "(",
	TokenRightParen:   ")",
	TokenComma:        ",",
}

func (t TokenType) String() string {
	if t >= 0 && int(t) < len(tokenNames) {
		return tokenNames[t]
	}
	return "unknown token"
}

// Token represents a lexical token. Only identifiers and integers carry text.
type Token struct {
	Type  TokenType
	Value string
	Pos   int
}

// describe names the token for error messages
func (t Token) describe() string {
	switch t.Type {
	case TokenIdent, TokenInt:
		return t.Type.String() + " " + t.Value
	case TokenEOF:
		return t.Type.String()
	default:
		return "'" + t.Type.String() + "'"
	}
}

var keywords = map[string]TokenType{
	"and": TokenAnd,
	"or":  TokenOr,
	"not": TokenNot,
	"in":  TokenIn,
}
