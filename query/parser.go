package query

import (
	"fmt"
	"strconv"
	"strings"
)

// Parser parses filter strings into expression trees
type Parser struct {
	tokens       []Token
	pos          int
	depthCounter *ExpressionDepthCounter
}

// NewParser creates a new parser
func NewParser(tokens []Token) *Parser {
	return &Parser{
		tokens:       tokens,
		pos:          0,
		depthCounter: NewExpressionDepthCounter(),
	}
}

// current returns the current token
func (p *Parser) current() Token {
	if p.pos >= len(p.tokens) {
		return Token{Type: TokenEOF, Value: ""}
	}
	return p.tokens[p.pos]
}

// peek returns the next token without advancing
func (p *Parser) peek() Token {
	if p.pos+1 >= len(p.tokens) {
		return Token{Type: TokenEOF, Value: ""}
	}
	return p.tokens[p.pos+1]
}

// advance moves to the next token
func (p *Parser) advance() {
	p.pos++
}

// expect checks if current token matches expected type and advances
func (p *Parser) expect(tokType TokenType) error {
	if p.current().Type != tokType {
		return fmt.Errorf("expected %v, got %v", tokType, describe(p.current()))
	}
	p.advance()
	return nil
}

func describe(tok Token) string {
	switch tok.Type {
	case TokenNumber, TokenIdent, TokenBool, TokenError:
		return fmt.Sprintf("%v %q", tok.Type, tok.Value)
	default:
		return tok.Type.String()
	}
}

// term is a parsed subexpression of either kind. Parentheses may hold a
// predicate or a value, so kinds are only checked where they meet an
// operator.
type term struct {
	pred  Expression
	value ValueExpression
}

func (t term) asPredicate(context string) (Expression, error) {
	if t.pred == nil {
		return nil, fmt.Errorf("%s requires a condition, got value %s", context, t.value)
	}
	return t.pred, nil
}

func (t term) asValue(context string) (ValueExpression, error) {
	if t.value == nil {
		return nil, fmt.Errorf("%s requires a value, got condition %s", context, t.pred)
	}
	return t.value, nil
}

// Parse parses a filter predicate. An empty filter matches every row.
func Parse(filter string) (Expression, error) {
	// Validate query length
	if err := ValidateQuery(filter); err != nil {
		return nil, err
	}

	tokens := Tokenize(filter)
	if last := tokens[len(tokens)-1]; last.Type == TokenError {
		return nil, fmt.Errorf("unexpected character %q", last.Value)
	}

	// Validate token count
	if err := ValidateTokens(tokens); err != nil {
		return nil, err
	}

	parser := NewParser(tokens)
	if parser.current().Type == TokenEOF {
		return &BoolLiteral{Value: true}, nil
	}

	t, err := parser.parseOr()
	if err != nil {
		return nil, err
	}
	if parser.current().Type != TokenEOF {
		return nil, fmt.Errorf("unexpected %v after filter", describe(parser.current()))
	}
	return t.asPredicate("filter")
}

// parseOr parses OR expressions (lowest precedence)
func (p *Parser) parseOr() (term, error) {
	if err := p.depthCounter.Enter(); err != nil {
		return term{}, err
	}
	defer p.depthCounter.Exit()

	left, err := p.parseAnd()
	if err != nil {
		return term{}, err
	}

	for p.current().Type == TokenOr {
		p.advance()
		right, err := p.parseAnd()
		if err != nil {
			return term{}, err
		}
		if left, err = p.binary(left, TokenOr, right); err != nil {
			return term{}, err
		}
	}

	return left, nil
}

// parseAnd parses AND expressions (higher precedence than OR)
func (p *Parser) parseAnd() (term, error) {
	left, err := p.parseNot()
	if err != nil {
		return term{}, err
	}

	for p.current().Type == TokenAnd {
		p.advance()
		right, err := p.parseNot()
		if err != nil {
			return term{}, err
		}
		if left, err = p.binary(left, TokenAnd, right); err != nil {
			return term{}, err
		}
	}

	return left, nil
}

func (p *Parser) binary(left term, op TokenType, right term) (term, error) {
	l, err := left.asPredicate(op.String())
	if err != nil {
		return term{}, err
	}
	r, err := right.asPredicate(op.String())
	if err != nil {
		return term{}, err
	}
	return term{pred: &BinaryExpr{Left: l, Operator: op, Right: r}}, nil
}

// parseNot parses NOT prefixes
func (p *Parser) parseNot() (term, error) {
	if p.current().Type != TokenNot {
		return p.parseComparison()
	}
	if err := p.depthCounter.Enter(); err != nil {
		return term{}, err
	}
	defer p.depthCounter.Exit()

	p.advance()
	operand, err := p.parseNot()
	if err != nil {
		return term{}, err
	}
	pred, err := operand.asPredicate("NOT")
	if err != nil {
		return term{}, err
	}
	return term{pred: &NotExpr{Expr: pred}}, nil
}

// parseComparison parses comparison and BETWEEN expressions
func (p *Parser) parseComparison() (term, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return term{}, err
	}

	operator := p.current().Type
	switch operator {
	case TokenEqual, TokenNotEqual, TokenLess, TokenGreater, TokenLessEqual, TokenGreaterEqual:
		p.advance()
		l, err := left.asValue(operator.String())
		if err != nil {
			return term{}, err
		}
		right, err := p.parseAdditive()
		if err != nil {
			return term{}, err
		}
		r, err := right.asValue(operator.String())
		if err != nil {
			return term{}, err
		}
		return term{pred: &ComparisonExpr{Left: l, Operator: operator, Right: r}}, nil

	case TokenBetween:
		return p.parseBetween(left, false)

	case TokenNot:
		if p.peek().Type == TokenBetween {
			p.advance()
			return p.parseBetween(left, true)
		}
	}

	return left, nil
}

// parseBetween parses BETWEEN lo AND hi; the current token is BETWEEN
func (p *Parser) parseBetween(left term, negate bool) (term, error) {
	p.advance()
	value, err := left.asValue("BETWEEN")
	if err != nil {
		return term{}, err
	}
	low, err := p.parseValue("BETWEEN")
	if err != nil {
		return term{}, err
	}
	if err := p.expect(TokenAnd); err != nil {
		return term{}, fmt.Errorf("BETWEEN: %w", err)
	}
	high, err := p.parseValue("BETWEEN")
	if err != nil {
		return term{}, err
	}
	return term{pred: &BetweenExpr{Value: value, Low: low, High: high, Negate: negate}}, nil
}

func (p *Parser) parseValue(context string) (ValueExpression, error) {
	t, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	return t.asValue(context)
}

// parseAdditive parses left-associative + and - chains
func (p *Parser) parseAdditive() (term, error) {
	left, err := p.parseUnary()
	if err != nil {
		return term{}, err
	}

	for p.current().Type == TokenPlus || p.current().Type == TokenMinus {
		operator := p.current().Type
		p.advance()
		l, err := left.asValue(operator.String())
		if err != nil {
			return term{}, err
		}
		right, err := p.parseUnary()
		if err != nil {
			return term{}, err
		}
		r, err := right.asValue(operator.String())
		if err != nil {
			return term{}, err
		}
		left = term{value: &ArithmeticExpr{Left: l, Operator: operator, Right: r}}
	}

	return left, nil
}

// parseUnary parses unary minus; a negated number becomes a literal
func (p *Parser) parseUnary() (term, error) {
	if p.current().Type != TokenMinus {
		return p.parsePrimary()
	}
	if err := p.depthCounter.Enter(); err != nil {
		return term{}, err
	}
	defer p.depthCounter.Exit()

	p.advance()
	if p.current().Type == TokenNumber {
		n, err := strconv.ParseInt("-"+p.current().Value, 10, 64)
		if err != nil {
			return term{}, fmt.Errorf("invalid number: -%s", p.current().Value)
		}
		p.advance()
		return term{value: &LiteralExpr{Value: n}}, nil
	}
	operand, err := p.parseUnary()
	if err != nil {
		return term{}, err
	}
	v, err := operand.asValue("-")
	if err != nil {
		return term{}, err
	}
	return term{value: &ArithmeticExpr{Left: &LiteralExpr{Value: 0}, Operator: TokenMinus, Right: v}}, nil
}

// parsePrimary parses literals, columns, function calls, CASE and parentheses
func (p *Parser) parsePrimary() (term, error) {
	tok := p.current()
	switch tok.Type {
	case TokenNumber:
		n, err := strconv.ParseInt(tok.Value, 10, 64)
		if err != nil {
			return term{}, fmt.Errorf("invalid number: %s", tok.Value)
		}
		p.advance()
		return term{value: &LiteralExpr{Value: n}}, nil

	case TokenBool:
		p.advance()
		return term{pred: &BoolLiteral{Value: strings.EqualFold(tok.Value, "true")}}, nil

	case TokenIdent:
		if p.peek().Type == TokenLeftParen {
			return p.parseFunction()
		}
		if err := ValidateColumnName(tok.Value); err != nil {
			return term{}, err
		}
		p.advance()
		return term{value: &ColumnRef{Name: tok.Value}}, nil

	case TokenCase:
		return p.parseCase()

	case TokenLeftParen:
		p.advance()
		inner, err := p.parseOr()
		if err != nil {
			return term{}, err
		}
		if err := p.expect(TokenRightParen); err != nil {
			return term{}, err
		}
		return inner, nil

	default:
		return term{}, fmt.Errorf("expected expression, got %v", describe(tok))
	}
}

// parseFunction parses ABS(x), LEAST(x, ...) and GREATEST(x, ...)
func (p *Parser) parseFunction() (term, error) {
	name := strings.ToUpper(p.current().Value)
	arity, ok := functionArity[name]
	if !ok {
		return term{}, fmt.Errorf("unknown function: %s", p.current().Value)
	}
	if err := p.depthCounter.Enter(); err != nil {
		return term{}, err
	}
	defer p.depthCounter.Exit()

	p.advance() // name
	p.advance() // (

	var args []ValueExpression
	if p.current().Type != TokenRightParen {
		for {
			arg, err := p.parseValue(name)
			if err != nil {
				return term{}, err
			}
			args = append(args, arg)
			if p.current().Type != TokenComma {
				break
			}
			p.advance()
		}
	}
	if err := p.expect(TokenRightParen); err != nil {
		return term{}, err
	}

	if arity > 0 && len(args) != arity {
		return term{}, fmt.Errorf("%s requires %d argument(s), got %d", name, arity, len(args))
	}
	if len(args) == 0 {
		return term{}, fmt.Errorf("%s requires at least 1 argument", name)
	}
	return term{value: &FunctionCall{Name: name, Args: args}}, nil
}

// parseCase parses CASE WHEN cond THEN value [WHEN ...] ELSE value END
func (p *Parser) parseCase() (term, error) {
	if err := p.depthCounter.Enter(); err != nil {
		return term{}, err
	}
	defer p.depthCounter.Exit()

	p.advance() // CASE

	c := &CaseExpr{}
	for p.current().Type == TokenWhen {
		p.advance()
		cond, err := p.parseOr()
		if err != nil {
			return term{}, err
		}
		pred, err := cond.asPredicate("WHEN")
		if err != nil {
			return term{}, err
		}
		if err := p.expect(TokenThen); err != nil {
			return term{}, fmt.Errorf("CASE: %w", err)
		}
		result, err := p.parseValue("THEN")
		if err != nil {
			return term{}, err
		}
		c.Whens = append(c.Whens, WhenClause{Condition: pred, Result: result})
	}
	if len(c.Whens) == 0 {
		return term{}, fmt.Errorf("CASE requires at least one WHEN")
	}

	if err := p.expect(TokenElse); err != nil {
		return term{}, fmt.Errorf("CASE: %w", err)
	}
	elseValue, err := p.parseValue("ELSE")
	if err != nil {
		return term{}, err
	}
	c.Else = elseValue

	if err := p.expect(TokenEnd); err != nil {
		return term{}, fmt.Errorf("CASE: %w", err)
	}
	return term{value: c}, nil
}
