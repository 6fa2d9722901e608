package expr

import (
	"strconv"
)

// functionArity maps built-in function names to their fixed argument count.
// -1 means variadic with at least one argument.
var functionArity = map[string]int{
	"min": -1,
	"max": -1,
	"abs": 1,
	"if":  3,
	"pi":  1,
	"any": 1,
	"all": 1,
}

var functionOps = map[string]NodeOp{
	"min": NodeMin,
	"max": NodeMax,
	"abs": NodeAbs,
	"if":  NodeIf,
	"pi":  NodePi,
	"any": NodeAny,
	"all": NodeAll,
}

var relationalOps = map[TokenType]NodeOp{
	TokenEqual:        NodeEq,
	TokenNotEqual:     NodeNe,
	TokenLess:         NodeLt,
	TokenLessEqual:    NodeLe,
	TokenGreater:      NodeGt,
	TokenGreaterEqual: NodeGe,
}

// Parser builds an expression tree from tokens by recursive descent
type Parser struct {
	tokens       []Token
	pos          int
	depthCounter *depthCounter
}

// NewParser creates a new parser
func NewParser(tokens []Token) *Parser {
	return &Parser{
		tokens:       tokens,
		depthCounter: newDepthCounter(),
	}
}

// current returns the current token
func (p *Parser) current() Token {
	if p.pos >= len(p.tokens) {
		end := 0
		if len(p.tokens) > 0 {
			end = p.tokens[len(p.tokens)-1].Pos
		}
		return Token{Type: TokenEOF, Pos: end}
	}
	return p.tokens[p.pos]
}

// peek returns the next token without advancing
func (p *Parser) peek() Token {
	if p.pos+1 >= len(p.tokens) {
		return Token{Type: TokenEOF}
	}
	return p.tokens[p.pos+1]
}

func (p *Parser) advance() {
	p.pos++
}

// expect checks the current token and advances past it
func (p *Parser) expect(tokType TokenType) error {
	if tok := p.current(); tok.Type != tokType {
		return errorf(ErrSyntax, tok.Pos, "expected '%v', found %s", tokType, tok.describe())
	}
	p.advance()
	return nil
}

// Parse parses expression source into a tree. Empty input yields a
// true-literal so an unset expression always passes.
func Parse(src string) (*Node, error) {
	if err := checkSource(src); err != nil {
		return nil, err
	}
	tokens, err := Tokenize(src)
	if err != nil {
		return nil, err
	}
	if err := checkTokens(tokens); err != nil {
		return nil, err
	}

	p := NewParser(tokens)
	if p.current().Type == TokenEOF {
		return &Node{Op: NodeTrue, Pos: 0}, nil
	}
	root, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if tok := p.current(); tok.Type != TokenEOF {
		return nil, errorf(ErrSyntax, tok.Pos, "unexpected %s after expression", tok.describe())
	}
	return root, nil
}

// parseOr parses or expressions (lowest precedence)
func (p *Parser) parseOr() (*Node, error) {
	if err := p.depthCounter.enter(p.current().Pos); err != nil {
		return nil, err
	}
	defer p.depthCounter.exit()

	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.current().Type == TokenOr {
		pos := p.current().Pos
		p.advance()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &Node{Op: NodeOr, Children: []*Node{left, right}, Pos: pos}
	}
	return left, nil
}

// parseAnd parses and expressions
func (p *Parser) parseAnd() (*Node, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.current().Type == TokenAnd {
		pos := p.current().Pos
		p.advance()
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = &Node{Op: NodeAnd, Children: []*Node{left, right}, Pos: pos}
	}
	return left, nil
}

// parseNot parses prefix not, which is right associative
func (p *Parser) parseNot() (*Node, error) {
	if p.current().Type != TokenNot {
		return p.parseRelational()
	}
	pos := p.current().Pos
	if err := p.depthCounter.enter(pos); err != nil {
		return nil, err
	}
	defer p.depthCounter.exit()

	p.advance()
	child, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	return &Node{Op: NodeNot, Children: []*Node{child}, Pos: pos}, nil
}

// parseRelational parses at most one comparison or range test
func (p *Parser) parseRelational() (*Node, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}

	tok := p.current()
	var node *Node
	if op, ok := relationalOps[tok.Type]; ok {
		p.advance()
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		node = &Node{Op: op, Children: []*Node{left, right}, Pos: tok.Pos}
	} else if tok.Type == TokenIn {
		p.advance()
		low, err := p.parseRangeBound()
		if err != nil {
			return nil, err
		}
		if err := p.expect(TokenRange); err != nil {
			return nil, err
		}
		high, err := p.parseRangeBound()
		if err != nil {
			return nil, err
		}
		node = &Node{Op: NodeInRange, Children: []*Node{left}, Ints: []int32{low, high}, Pos: tok.Pos}
	} else {
		return left, nil
	}

	next := p.current()
	if _, chained := relationalOps[next.Type]; chained || next.Type == TokenIn {
		return nil, errorf(ErrSyntax, next.Pos, "comparison operators do not chain; found %s after a comparison", next.describe())
	}
	return node, nil
}

func (p *Parser) parseRangeBound() (int32, error) {
	tok := p.current()
	if tok.Type != TokenInt {
		return 0, errorf(ErrSyntax, tok.Pos, "expected 'integer' range bound, found %s", tok.describe())
	}
	p.advance()
	return atoi32(tok.Value), nil
}

// parseAdditive parses left-associative + and - chains
func (p *Parser) parseAdditive() (*Node, error) {
	left, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		tok := p.current()
		switch {
		case tok.Type == TokenPlus || tok.Type == TokenMinus:
			p.advance()
			right, err := p.parsePrimary()
			if err != nil {
				return nil, err
			}
			op := NodeAdd
			if tok.Type == TokenMinus {
				op = NodeSub
			}
			left = &Node{Op: op, Children: []*Node{left, right}, Pos: tok.Pos}
		case tok.Type == TokenInt && tok.Value[0] == '-':
			// "x -1" lexes as x followed by the literal -1
			p.advance()
			lit := &Node{Op: NodeInt, Ints: []int32{atoi32(tok.Value)}, Pos: tok.Pos}
			left = &Node{Op: NodeAdd, Children: []*Node{left, lit}, Pos: tok.Pos}
		default:
			return left, nil
		}
	}
}

// parsePrimary parses literals, identifiers, calls and parentheses
func (p *Parser) parsePrimary() (*Node, error) {
	tok := p.current()
	switch tok.Type {
	case TokenInt:
		p.advance()
		return &Node{Op: NodeInt, Ints: []int32{atoi32(tok.Value)}, Pos: tok.Pos}, nil
	case TokenIdent:
		if p.peek().Type == TokenLeftParen {
			return p.parseCall()
		}
		p.advance()
		return &Node{Op: NodeIdent, Name: tok.Value, Pos: tok.Pos}, nil
	case TokenLeftParen:
		p.advance()
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if err := p.expect(TokenRightParen); err != nil {
			return nil, err
		}
		return inner, nil
	default:
		return nil, errorf(ErrSyntax, tok.Pos, "expected expression, found %s", tok.describe())
	}
}

// parseCall parses name(arg, ...) for the built-in functions
func (p *Parser) parseCall() (*Node, error) {
	tok := p.current()
	arity, ok := functionArity[tok.Value]
	if !ok {
		return nil, errorf(ErrSyntax, tok.Pos, "unknown function %s", tok.Value)
	}
	if err := p.depthCounter.enter(tok.Pos); err != nil {
		return nil, err
	}
	defer p.depthCounter.exit()

	p.advance() // name
	p.advance() // (

	var args []*Node
	if p.current().Type != TokenRightParen {
		for {
			arg, err := p.parseOr()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if p.current().Type != TokenComma {
				break
			}
			p.advance()
		}
	}
	if err := p.expect(TokenRightParen); err != nil {
		return nil, err
	}

	switch {
	case arity < 0 && len(args) == 0:
		return nil, errorf(ErrSyntax, tok.Pos, "%s requires at least 1 argument", tok.Value)
	case arity >= 0 && len(args) != arity:
		return nil, errorf(ErrSyntax, tok.Pos, "%s requires exactly %d %s, got %d", tok.Value, arity, plural(arity, "argument"), len(args))
	}
	return &Node{Op: functionOps[tok.Value], Children: args, Pos: tok.Pos}, nil
}

// atoi32 converts a literal the lexer has already range-checked
func atoi32(s string) int32 {
	v, _ := strconv.ParseInt(s, 10, 32)
	return int32(v)
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
