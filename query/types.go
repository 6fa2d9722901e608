package query

import (
	"fmt"
	"strconv"
	"strings"
)

// TokenType represents the type of a token
type TokenType int

const (
	// Keywords
	TokenAnd TokenType = iota
	TokenOr
	TokenNot
	TokenBetween
	TokenCase
	TokenWhen
	TokenThen
	TokenElse
	TokenEnd

	// Operators
	TokenEqual        // =
	TokenNotEqual     // != or <>
	TokenLess         // <
	TokenGreater      // >
	TokenLessEqual    // <=
	TokenGreaterEqual // >=
	TokenPlus         // +
	TokenMinus        // -

	// Delimiters
	TokenLeftParen  // (
	TokenRightParen // )
	TokenComma      // ,

	// Literals
	TokenNumber
	TokenIdent
	TokenBool

	// Special
	TokenEOF
	TokenError
)

var tokenNames = map[TokenType]string{
	TokenAnd:          "AND",
	TokenOr:           "OR",
	TokenNot:          "NOT",
	TokenBetween:      "BETWEEN",
	TokenCase:         "CASE",
	TokenWhen:         "WHEN",
	TokenThen:         "THEN",
	TokenElse:         "ELSE",
	TokenEnd:          "END",
	TokenEqual:        "=",
	TokenNotEqual:     "!=",
	TokenLess:         "<",
	TokenGreater:      ">",
	TokenLessEqual:    "<=",
	TokenGreaterEqual: ">=",
	TokenPlus:         "+",
	TokenMinus:        "-",
	TokenLeftParen:    "(",
	TokenRightParen:   ")",
	TokenComma:        ",",
	TokenNumber:       "number",
	TokenIdent:        "identifier",
	TokenBool:         "boolean",
	TokenEOF:          "end of query",
	TokenError:        "invalid character",
}

func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return "TokenType(" + strconv.Itoa(int(t)) + ")"
}

// Token represents a lexical token
type Token struct {
	Type  TokenType
	Value string
}

// Row is one record as the filter sees it: integer columns by name
type Row interface {
	Value(column string) (int64, bool)
}

// MapRow is a Row backed by a map
type MapRow map[string]int64

// Value returns the named column
func (m MapRow) Value(column string) (int64, bool) {
	v, ok := m[column]
	return v, ok
}

// Expression represents a boolean expression in a filter
type Expression interface {
	Evaluate(row Row) (bool, error)
	String() string
}

// ValueExpression represents an integer-valued expression
type ValueExpression interface {
	EvaluateValue(row Row) (int64, error)
	String() string
}

// BinaryExpr represents a binary expression (AND/OR)
type BinaryExpr struct {
	Left     Expression
	Operator TokenType // TokenAnd or TokenOr
	Right    Expression
}

// NotExpr negates an expression
type NotExpr struct {
	Expr Expression
}

// BoolLiteral is TRUE or FALSE
type BoolLiteral struct {
	Value bool
}

// ComparisonExpr represents a comparison expression
type ComparisonExpr struct {
	Left     ValueExpression
	Operator TokenType
	Right    ValueExpression
}

// BetweenExpr tests Value against an inclusive range
type BetweenExpr struct {
	Value  ValueExpression
	Low    ValueExpression
	High   ValueExpression
	Negate bool
}

// ColumnRef reads a named column
type ColumnRef struct {
	Name string
}

// LiteralExpr is an integer constant
type LiteralExpr struct {
	Value int64
}

// ArithmeticExpr represents + and -
type ArithmeticExpr struct {
	Left     ValueExpression
	Operator TokenType // TokenPlus or TokenMinus
	Right    ValueExpression
}

// FunctionCall represents ABS, LEAST and GREATEST
type FunctionCall struct {
	Name string // upper case
	Args []ValueExpression
}

// CaseExpr represents CASE WHEN ... THEN ... ELSE ... END
type CaseExpr struct {
	Whens []WhenClause
	Else  ValueExpression
}

// WhenClause is one WHEN cond THEN result arm
type WhenClause struct {
	Condition Expression
	Result    ValueExpression
}

// Evaluate evaluates a binary expression. AND and OR short-circuit.
func (b *BinaryExpr) Evaluate(row Row) (bool, error) {
	left, err := b.Left.Evaluate(row)
	if err != nil {
		return false, err
	}

	switch b.Operator {
	case TokenAnd:
		if !left {
			return false, nil
		}
	case TokenOr:
		if left {
			return true, nil
		}
	default:
		return false, fmt.Errorf("unsupported boolean operator %v", b.Operator)
	}
	return b.Right.Evaluate(row)
}

func (b *BinaryExpr) String() string {
	return "(" + b.Left.String() + " " + b.Operator.String() + " " + b.Right.String() + ")"
}

// Evaluate evaluates a negation
func (n *NotExpr) Evaluate(row Row) (bool, error) {
	v, err := n.Expr.Evaluate(row)
	return !v, err
}

func (n *NotExpr) String() string {
	return "(NOT " + n.Expr.String() + ")"
}

// Evaluate returns the literal
func (b *BoolLiteral) Evaluate(Row) (bool, error) {
	return b.Value, nil
}

func (b *BoolLiteral) String() string {
	if b.Value {
		return "TRUE"
	}
	return "FALSE"
}

// Evaluate evaluates a comparison expression
func (c *ComparisonExpr) Evaluate(row Row) (bool, error) {
	left, err := c.Left.EvaluateValue(row)
	if err != nil {
		return false, err
	}
	right, err := c.Right.EvaluateValue(row)
	if err != nil {
		return false, err
	}
	return compare(left, c.Operator, right)
}

func (c *ComparisonExpr) String() string {
	return "(" + c.Left.String() + " " + c.Operator.String() + " " + c.Right.String() + ")"
}

// Evaluate evaluates a range test
func (b *BetweenExpr) Evaluate(row Row) (bool, error) {
	v, err := b.Value.EvaluateValue(row)
	if err != nil {
		return false, err
	}
	low, err := b.Low.EvaluateValue(row)
	if err != nil {
		return false, err
	}
	high, err := b.High.EvaluateValue(row)
	if err != nil {
		return false, err
	}
	in := low <= v && v <= high
	return in != b.Negate, nil
}

func (b *BetweenExpr) String() string {
	op := " BETWEEN "
	if b.Negate {
		op = " NOT BETWEEN "
	}
	return "(" + b.Value.String() + op + b.Low.String() + " AND " + b.High.String() + ")"
}

// EvaluateValue reads the column
func (c *ColumnRef) EvaluateValue(row Row) (int64, error) {
	v, ok := row.Value(c.Name)
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownColumn, c.Name)
	}
	return v, nil
}

func (c *ColumnRef) String() string { return c.Name }

// EvaluateValue returns the literal
func (l *LiteralExpr) EvaluateValue(Row) (int64, error) {
	return l.Value, nil
}

func (l *LiteralExpr) String() string {
	if l.Value < 0 {
		return "(" + strconv.FormatInt(l.Value, 10) + ")"
	}
	return strconv.FormatInt(l.Value, 10)
}

// EvaluateValue evaluates + or -
func (a *ArithmeticExpr) EvaluateValue(row Row) (int64, error) {
	left, err := a.Left.EvaluateValue(row)
	if err != nil {
		return 0, err
	}
	right, err := a.Right.EvaluateValue(row)
	if err != nil {
		return 0, err
	}
	switch a.Operator {
	case TokenPlus:
		return left + right, nil
	case TokenMinus:
		return left - right, nil
	default:
		return 0, fmt.Errorf("unsupported arithmetic operator %v", a.Operator)
	}
}

func (a *ArithmeticExpr) String() string {
	return "(" + a.Left.String() + " " + a.Operator.String() + " " + a.Right.String() + ")"
}

// EvaluateValue evaluates the function's arguments and applies it
func (f *FunctionCall) EvaluateValue(row Row) (int64, error) {
	args := make([]int64, len(f.Args))
	for i, arg := range f.Args {
		v, err := arg.EvaluateValue(row)
		if err != nil {
			return 0, err
		}
		args[i] = v
	}
	return callFunction(f.Name, args)
}

func (f *FunctionCall) String() string {
	args := make([]string, len(f.Args))
	for i, a := range f.Args {
		args[i] = a.String()
	}
	return f.Name + "(" + strings.Join(args, ", ") + ")"
}

// EvaluateValue returns the result of the first matching arm
func (c *CaseExpr) EvaluateValue(row Row) (int64, error) {
	for _, when := range c.Whens {
		match, err := when.Condition.Evaluate(row)
		if err != nil {
			return 0, err
		}
		if match {
			return when.Result.EvaluateValue(row)
		}
	}
	return c.Else.EvaluateValue(row)
}

func (c *CaseExpr) String() string {
	var b strings.Builder
	b.WriteString("CASE")
	for _, when := range c.Whens {
		b.WriteString(" WHEN " + when.Condition.String() + " THEN " + when.Result.String())
	}
	b.WriteString(" ELSE " + c.Else.String() + " END")
	return b.String()
}
