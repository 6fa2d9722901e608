package expr

import (
	"errors"
	"fmt"
)

// Error kinds. A compile failure always carries exactly one of these, so
// callers can test with errors.Is(err, ErrSyntax) and friends.
var (
	// ErrLex is returned for text that cannot be tokenized
	ErrLex = errors.New("lexical error")

	// ErrSyntax is returned when the token stream does not form an expression
	ErrSyntax = errors.New("syntax error")

	// ErrArity is returned when an operator has the wrong number of operands
	ErrArity = errors.New("wrong number of operands")

	// ErrType is returned when an operand has the wrong expression type
	ErrType = errors.New("type error")

	// ErrAggregate is returned for an aggregated identifier in an illegal place
	ErrAggregate = errors.New("aggregation error")

	// ErrResolve is returned when an identifier names nothing in the context
	ErrResolve = errors.New("unknown identifier")

	// ErrInternal marks a compiler defect: a validated tree the compiler cannot handle
	ErrInternal = errors.New("internal compiler error")
)

// Error is the single error type produced by Tokenize, Parse, Validate and
// Compile. Engines never fail.
type Error struct {
	Kind error  // one of the Err* sentinels
	Pos  int    // byte offset in the source, -1 when unknown
	Msg  string // human-readable detail
}

func (e *Error) Error() string {
	if e.Pos >= 0 {
		return fmt.Sprintf("%v at offset %d: %s", e.Kind, e.Pos, e.Msg)
	}
	return fmt.Sprintf("%v: %s", e.Kind, e.Msg)
}

// Is reports whether target is the error's kind.
func (e *Error) Is(target error) bool {
	return e.Kind == target
}

// Unwrap returns the kind sentinel.
func (e *Error) Unwrap() error {
	return e.Kind
}

func errorf(kind error, pos int, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

// nodeError reports a problem with a validated node, appending its dump.
func nodeError(kind error, n *Node, format string, args ...interface{}) *Error {
	msg := fmt.Sprintf(format, args...)
	return &Error{Kind: kind, Pos: n.Pos, Msg: msg + " in " + n.Dump()}
}
