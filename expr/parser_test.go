package expr

import (
	"errors"
	"strings"
	"testing"

	"github.com/go-quicktest/qt"
)

func TestParse_Dump(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty is true", "", "(true)"},
		{"whitespace is true", "  \t", "(true)"},
		{"comparison", "ALP = 1", "(= (identifier ALP) (int 1))"},
		{"and binds tighter than or", "a = 1 or b = 2 and c = 3",
			"(or (= (identifier a) (int 1)) (and (= (identifier b) (int 2)) (= (identifier c) (int 3))))"},
		{"or is left associative", "a = 1 or b = 2 or c = 3",
			"(or (or (= (identifier a) (int 1)) (= (identifier b) (int 2))) (= (identifier c) (int 3)))"},
		{"not is right associative", "not not a = 1", "(not (not (= (identifier a) (int 1))))"},
		{"range", "ALP in 1..3", "(in 1..3 (identifier ALP))"},
		{"negative range", "a in -2..-1", "(in -2..-1 (identifier a))"},
		{"additive chain", "a + b - 1", "(- (+ (identifier a) (identifier b)) (int 1))"},
		{"negative literal after operand", "a -1", "(+ (identifier a) (int -1))"},
		{"subtract negative", "a - -1", "(- (identifier a) (int -1))"},
		{"parentheses", "(a + 1) = 2", "(= (+ (identifier a) (int 1)) (int 2))"},
		{"variadic min", "min(a, b, 3)", "(min (identifier a) (identifier b) (int 3))"},
		{"if", "if(a < b, 1, 2)", "(if (< (identifier a) (identifier b)) (int 1) (int 2))"},
		{"any", "any(ALP = 1)", "(any (= (identifier ALP) (int 1)))"},
		{"pi", "pi(P1) <= 3", "(<= (pi (identifier P1)) (int 3))"},
		{"boolean argument", "if(a = 1 or b = 1, 1, 0)",
			"(if (or (= (identifier a) (int 1)) (= (identifier b) (int 1))) (int 1) (int 0))"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root, err := Parse(tt.input)
			qt.Assert(t, qt.IsNil(err))
			qt.Assert(t, qt.Equals(root.Dump(), tt.want))
		})
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr string
	}{
		{"chained comparison", "a = 1 = 2", "do not chain"},
		{"comparison then range", "a < 1 in 1..3", "do not chain"},
		{"unknown function", "foo(1)", "unknown function foo"},
		{"fixed arity", "abs(1, 2)", "abs requires exactly 1 argument, got 2"},
		{"if arity", "if(a = 1, 2)", "if requires exactly 3 arguments, got 2"},
		{"variadic needs one", "min()", "min requires at least 1 argument"},
		{"range without bound", "a in 1", "expected '..'"},
		{"range with identifier", "a in 1..b", "range bound"},
		{"unclosed paren", "(a = 1", "expected ')'"},
		{"trailing tokens", "a = 1 b", "unexpected identifier b"},
		{"missing operand", "a !=", "expected expression"},
		{"unary minus", "-a = 1", "expected expression"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.input)
			qt.Assert(t, qt.ErrorIs(err, ErrSyntax))
			qt.Assert(t, qt.StringContains(err.Error(), tt.wantErr))
		})
	}
}

func TestParse_Limits(t *testing.T) {
	t.Run("depth", func(t *testing.T) {
		src := strings.Repeat("(", MaxDepth+1) + "a" + strings.Repeat(")", MaxDepth+1)
		_, err := Parse(src)
		qt.Assert(t, qt.ErrorIs(err, ErrSyntax))
		qt.Assert(t, qt.StringContains(err.Error(), "nested deeper"))
	})

	t.Run("depth at limit", func(t *testing.T) {
		src := strings.Repeat("(", MaxDepth-1) + "a" + strings.Repeat(")", MaxDepth-1)
		_, err := Parse(src)
		qt.Assert(t, qt.IsNil(err))
	})

	t.Run("length", func(t *testing.T) {
		_, err := Parse(strings.Repeat(" ", MaxSourceLength+1))
		qt.Assert(t, qt.StringContains(err.Error(), "too long"))
	})

	t.Run("tokens", func(t *testing.T) {
		_, err := Parse(strings.Repeat("a+", MaxTokens/2) + "a")
		qt.Assert(t, qt.StringContains(err.Error(), "too many tokens"))
	})
}

func TestParse_Positions(t *testing.T) {
	root, err := Parse("a = 1 and b = 2")
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(root.Pos, 6))
	qt.Assert(t, qt.Equals(root.Children[1].Children[0].Pos, 10))

	_, err = Parse("a = ")
	var e *Error
	qt.Assert(t, qt.IsTrue(errors.As(err, &e)))
	qt.Assert(t, qt.Equals(e.Pos, 4))
}

func TestNode_Walk(t *testing.T) {
	root, err := Parse("min(a, b) < c and d = 1")
	qt.Assert(t, qt.IsNil(err))

	var names []string
	root.Walk(func(n *Node) bool {
		if n.Op == NodeMin {
			return false
		}
		if n.Op == NodeIdent {
			names = append(names, n.Name)
		}
		return true
	})
	qt.Assert(t, qt.DeepEquals(names, []string{"c", "d"}))
}
