package expr

import (
	"testing"

	"github.com/go-quicktest/qt"
	"github.com/google/go-cmp/cmp"
)

func mustCompile(t *testing.T, ctx Context, src string) *Program {
	t.Helper()
	root, err := Parse(src)
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.IsNil(Validate(root, ctx)))
	p, err := Compile(ctx, root)
	qt.Assert(t, qt.IsNil(err))
	return p
}

func TestCompile_Operations(t *testing.T) {
	tests := []struct {
		name  string
		ctx   Context
		input string
		want  []Operation
	}{
		{
			name:  "comparison",
			ctx:   atlContext(),
			input: "LNP = 1",
			want: []Operation{
				{Op: OpColumn, Out: 0, Column: 1},
				{Op: OpConst, Out: 1, Literal: 1},
				{Op: OpEq, Out: 0, In: []InputRef{Slot(0), Slot(1)}},
			},
		},
		{
			name:  "empty",
			ctx:   atlContext(),
			input: "",
			want:  []Operation{{Op: OpTrue, Out: 0}},
		},
		{
			name:  "short-circuit and",
			ctx:   atlContext(),
			input: "ALP = 1 and LNP = 2",
			want: []Operation{
				{Op: OpColumn, Out: 0, Column: 0},
				{Op: OpConst, Out: 1, Literal: 1},
				{Op: OpEq, Out: 1, In: []InputRef{Slot(0), Slot(1)}},
				{Op: OpJumpIfFalse, Out: 0, In: []InputRef{Slot(1)}, Jump: 8},
				{Op: OpColumn, Out: 2, Column: 1},
				{Op: OpConst, Out: 3, Literal: 2},
				{Op: OpEq, Out: 2, In: []InputRef{Slot(2), Slot(3)}},
				{Op: OpAnd, Out: 0, In: []InputRef{Slot(1), Slot(2)}},
			},
		},
		{
			name:  "any loop",
			ctx:   btlContext(),
			input: "any(ALP = 1)",
			want: []Operation{
				{Op: OpLoop, Out: 0, Loop: 0, Agg: 0, Jump: 6},
				{Op: OpEntity, Out: 0, In: []InputRef{{Kind: RefMember, Index: 0, Loop: 0, Pref: true}}},
				{Op: OpConst, Out: 1, Literal: 1},
				{Op: OpEq, Out: 1, In: []InputRef{Slot(0), Slot(1)}},
				{Op: OpBreakIfTrue, Out: 0, In: []InputRef{Slot(1)}, Loop: 0, Jump: 6},
				{Op: OpJump, Jump: 0},
			},
		},
		{
			name:  "all loop defaults true",
			ctx:   btlContext(),
			input: "all(idx_GRN = 4)",
			want: []Operation{
				{Op: OpLoop, Out: 0, Loop: 0, Agg: 0, Literal: 1, Jump: 6},
				{Op: OpEntity, Out: 0, In: []InputRef{{Kind: RefMember, Index: 0, Loop: 0}}},
				{Op: OpConst, Out: 1, Literal: 4},
				{Op: OpEq, Out: 1, In: []InputRef{Slot(0), Slot(1)}},
				{Op: OpBreakIfFalse, Out: 0, In: []InputRef{Slot(1)}, Loop: 0, Jump: 6},
				{Op: OpJump, Jump: 0},
			},
		},
		{
			name:  "fold over group",
			ctx:   btlContext(),
			input: "min(LNP, Hill) < 3",
			want: []Operation{
				{Op: OpColumn, Out: 1, Column: 4},
				{Op: OpMin, Out: 0, In: []InputRef{{Kind: RefMembers, Index: 0, Pref: true}, Slot(1)}},
				{Op: OpConst, Out: 2, Literal: 3},
				{Op: OpLt, Out: 0, In: []InputRef{Slot(0), Slot(2)}},
			},
		},
		{
			name:  "axis helpers",
			ctx:   atlContext(),
			input: "pi(row) < pi(col)",
			want: []Operation{
				{Op: OpEntity, Out: 1, In: []InputRef{{Kind: RefRow}}},
				{Op: OpPrefFor, Out: 0, In: []InputRef{Slot(1)}},
				{Op: OpEntity, Out: 3, In: []InputRef{{Kind: RefCol}}},
				{Op: OpPrefFor, Out: 2, In: []InputRef{Slot(3)}},
				{Op: OpLt, Out: 0, In: []InputRef{Slot(0), Slot(2)}},
			},
		},
		{
			name:  "reserved columns",
			ctx:   atlContext(),
			input: "P2 = exhaust - num_prefs",
			want: []Operation{
				{Op: OpColumn, Out: 0, Column: 9},
				{Op: OpColumn, Out: 2, Column: 5},
				{Op: OpColumn, Out: 3, Column: 6},
				{Op: OpSub, Out: 1, In: []InputRef{Slot(2), Slot(3)}},
				{Op: OpEq, Out: 0, In: []InputRef{Slot(0), Slot(1)}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := mustCompile(t, tt.ctx, tt.input)
			if diff := cmp.Diff(tt.want, p.Ops); diff != "" {
				t.Errorf("operations mismatch (-want +got):\n%s\n%s", diff, p)
			}
		})
	}
}

func TestCompile_Deterministic(t *testing.T) {
	inputs := []string{
		"ALP < LNP and (GRN = 1 or ONE in 1..3)",
		"any(ALP < 3 and all(LNP > 1)) or min(GRN, ONE) = 1",
		"if(num_prefs > 2, abs(P1 - P2), 0) >= 1",
	}
	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			a := mustCompile(t, btlContext(), input)
			b := mustCompile(t, btlContext(), input)
			if diff := cmp.Diff(a, b); diff != "" {
				t.Errorf("programs differ (-first +second):\n%s", diff)
			}
		})
	}
}

func TestCompile_ProgramShape(t *testing.T) {
	p := mustCompile(t, btlContext(), "any(ALP < 3 and all(LNP > 1)) or any(ALP = 1)")
	qt.Assert(t, qt.Equals(p.MaxLoopDepth, 2))
	qt.Assert(t, qt.DeepEquals(p.Aggregates, []Aggregate{{Group: 0}, {Group: 1}}))
	qt.Assert(t, qt.Equals(p.Result, TypeBool))
	qt.Assert(t, qt.IsTrue(p.Aggregating()))

	flat := mustCompile(t, atlContext(), "ALP = 1")
	qt.Assert(t, qt.IsFalse(flat.Aggregating()))
	qt.Assert(t, qt.Equals(flat.MaxLoopDepth, 0))
}

func TestCompile_Errors(t *testing.T) {
	tests := []struct {
		name    string
		ctx     Context
		input   string
		value   bool
		wantErr error
		wantPos int
	}{
		{name: "unknown identifier", ctx: atlContext(), input: "ALP = 1 and Foo = 2", wantErr: ErrResolve, wantPos: 12},
		{name: "preference out of range", ctx: atlContext(), input: "P6 = 1", wantErr: ErrResolve, wantPos: 0},
		{name: "count row above the line", ctx: btlContext(), input: "count_row = 2", wantErr: ErrResolve, wantPos: 0},
		{name: "predicate must be boolean", ctx: atlContext(), input: "ALP + 1", wantErr: ErrType, wantPos: 4},
		{name: "value must be integer", ctx: atlContext(), input: "ALP = 1", value: true, wantErr: ErrType, wantPos: 4},
		{name: "syntax", ctx: atlContext(), input: "ALP =", wantErr: ErrSyntax, wantPos: 5},
		{name: "aggregation", ctx: btlContext(), input: "ALP = 1", wantErr: ErrAggregate, wantPos: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var err error
			if tt.value {
				_, err = CompileValue(tt.input, tt.ctx)
			} else {
				_, err = CompilePredicate(tt.input, tt.ctx)
			}
			qt.Assert(t, qt.ErrorIs(err, tt.wantErr))
			var e *Error
			qt.Assert(t, qt.ErrorAs(err, &e))
			qt.Assert(t, qt.Equals(e.Pos, tt.wantPos))
		})
	}
}

func TestCompile_Internal(t *testing.T) {
	// not validated: no types recorded
	root, err := Parse("ALP = 1")
	qt.Assert(t, qt.IsNil(err))
	_, err = Compile(atlContext(), root)
	qt.Assert(t, qt.ErrorIs(err, ErrInternal))

	// a loop whose aggregate was never recorded
	loop := &Node{Op: NodeAny, Type: TypeBool, Children: []*Node{{Op: NodeTrue, Type: TypeBool}}}
	_, err = Compile(btlContext(), loop)
	qt.Assert(t, qt.ErrorIs(err, ErrInternal))

	// integer literal without a value
	lit := &Node{Op: NodeInt, Type: TypeInt}
	_, err = Compile(atlContext(), lit)
	qt.Assert(t, qt.ErrorIs(err, ErrInternal))
}

func TestCompileFirstPreferred(t *testing.T) {
	t.Run("above the line", func(t *testing.T) {
		p, err := CompileFirstPreferred(atlContext(), []string{"ALP", "LNP"})
		qt.Assert(t, qt.IsNil(err))
		qt.Assert(t, qt.Equals(p.Result, TypeInt))
		qt.Assert(t, qt.IsFalse(p.Aggregating()))
		qt.Assert(t, qt.DeepEquals(p.Ops, []Operation{{
			Op:  OpFirstPreferred,
			Out: 0,
			In: []InputRef{
				{Kind: RefEntity, Index: 0, Pref: true},
				{Kind: RefEntity, Index: 1, Pref: true},
			},
		}}))
	})

	t.Run("groups below the line", func(t *testing.T) {
		p, err := CompileFirstPreferred(btlContext(), []string{"ALP", "Hill"})
		qt.Assert(t, qt.IsNil(err))
		qt.Assert(t, qt.IsTrue(p.Aggregating()))
		qt.Assert(t, qt.DeepEquals(p.Ops[0].In, []InputRef{
			{Kind: RefMembers, Index: 0, Pref: true},
			{Kind: RefEntity, Index: 4, Pref: true},
		}))
	})

	t.Run("unknown name", func(t *testing.T) {
		_, err := CompileFirstPreferred(atlContext(), []string{"ALP", "Nobody"})
		qt.Assert(t, qt.ErrorIs(err, ErrResolve))
	})

	t.Run("no names", func(t *testing.T) {
		_, err := CompileFirstPreferred(atlContext(), nil)
		qt.Assert(t, qt.ErrorIs(err, ErrArity))
	})
}

func TestProgram_String(t *testing.T) {
	p := mustCompile(t, btlContext(), "any(ALP = 1)")
	want := "agg0 = group 0\n" +
		"  0  loop ?0 loop0 agg0 default=false ->6\n" +
		"  1  index $0 pref(agg0[loop0])\n" +
		"  2  const $1 1\n" +
		"  3  eq ?1 $0 $1\n" +
		"  4  break-if-true ?0 ?1 loop0 ->6\n" +
		"  5  jump ->0\n"
	qt.Assert(t, qt.Equals(p.String(), want))
}
