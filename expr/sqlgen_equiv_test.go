package expr_test

import (
	"testing"

	"github.com/go-quicktest/qt"

	"github.com/vegasq/prefcat/expr"
	"github.com/vegasq/prefcat/query"
)

// layoutRow exposes an engine row to the store filter by column name
type layoutRow struct {
	index map[string]int
	data  []int32
}

func (r layoutRow) Value(column string) (int64, bool) {
	i, ok := r.index[column]
	if !ok {
		return 0, false
	}
	return int64(r.data[i]), true
}

func columnIndex(l expr.Layout) map[string]int {
	index := make(map[string]int, l.Width())
	for i := 0; i < l.Width(); i++ {
		index[l.ColumnName(i)] = i
	}
	return index
}

// Rows the engine accepts are exactly the rows the generated filter accepts.
func TestToSQL_SelectsSameRows(t *testing.T) {
	inputs := []string{
		"",
		"ALP = 1",
		"ALP < LNP and num_prefs >= 2",
		"not (GRN in 1..3) or P1 = idx_ONE",
		"min(ALP, LNP, GRN) <= 2",
		"max(ALP, -3) = 999",
		"abs(ALP - LNP) = 1",
		"if(num_prefs > 2, P3, P1) = idx_GRN",
		"exhaust - num_prefs = 1",
		"ALP -1 = 1 or LNP + 1 = 3",
		"count_ALP = 2 and IND > 3",
	}

	ctx := expr.TestATLContext()
	layout := expr.Layout{Entities: ctx.NumEntities()}
	index := columnIndex(layout)

	var rows [][]int32
	rankings := [][]int32{nil, {0}, {1, 0}, {2, 3, 1, 0}, {4, 3, 2, 1, 0}, {3, 1}, {2, 0, 4}, {1, 2}}
	for _, r := range rankings {
		rows = append(rows, expr.TestBallotRow(ctx, r...))
	}

	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			root, err := expr.Parse(input)
			qt.Assert(t, qt.IsNil(err))
			qt.Assert(t, qt.IsNil(expr.Validate(root, ctx)))

			sql, ok := expr.ToSQL(root, ctx, layout)
			qt.Assert(t, qt.IsTrue(ok))
			filter, err := query.Parse(sql)
			qt.Assert(t, qt.IsNil(err), qt.Commentf("generated %s", sql))

			p, err := expr.Compile(ctx, root)
			qt.Assert(t, qt.IsNil(err))
			engine, err := expr.NewEngine(p, ctx)
			qt.Assert(t, qt.IsNil(err))

			for i, data := range rows {
				want := engine.Bool(data)
				got, err := filter.Evaluate(layoutRow{index: index, data: data})
				qt.Assert(t, qt.IsNil(err))
				qt.Check(t, qt.Equals(got, want), qt.Commentf("ranking %v, filter %s", rankings[i], sql))
			}
		})
	}
}

func TestToSQL_SelectsSameRowsBelowTheLine(t *testing.T) {
	ctx := expr.TestBTLContext()
	layout := expr.Layout{Entities: ctx.NumEntities()}
	index := columnIndex(layout)

	for _, input := range []string{"Smith < Jones", "P2 = idx_Hill or Ng in 1..2", "min(Brown, Green) = 1"} {
		t.Run(input, func(t *testing.T) {
			p, err := expr.CompilePredicate(input, ctx)
			qt.Assert(t, qt.IsNil(err))
			engine, err := expr.NewEngine(p, ctx)
			qt.Assert(t, qt.IsNil(err))

			root, err := expr.Parse(input)
			qt.Assert(t, qt.IsNil(err))
			sql, ok := expr.ToSQL(root, ctx, layout)
			qt.Assert(t, qt.IsTrue(ok))
			filter, err := query.Parse(sql)
			qt.Assert(t, qt.IsNil(err))

			for _, r := range [][]int32{nil, {0, 1}, {1, 0}, {5, 4}, {2, 3, 4, 5, 0, 1}, {3}} {
				data := expr.TestBallotRow(ctx, r...)
				got, err := filter.Evaluate(layoutRow{index: index, data: data})
				qt.Assert(t, qt.IsNil(err))
				qt.Check(t, qt.Equals(got, engine.Bool(data)), qt.Commentf("ranking %v", r))
			}
		})
	}
}

// Arithmetic close to the int32 limits is pushed down only while no row can
// overflow it, and then agrees with the engine.
func TestToSQL_ArithmeticLimits(t *testing.T) {
	tests := []struct {
		input       string
		convertible bool
	}{
		{"num_prefs + 2147482000 > 0", true},
		{"ALP - 2147482000 < 0", true},
		{"abs(-2147483647) > 0", true},
		{"if(ALP < 3, 2147482000, -2147482000) + num_prefs > 0", true},
		{"num_prefs + 2147483647 > 0", false},
		{"abs(-2147483648) > 0", false},
		{"ALP - 2147483647 - 2147483647 < 0", false},
		{"max(ALP, 2147483000) + 999 > 0", false},
	}

	ctx := expr.TestATLContext()
	layout := expr.Layout{Entities: ctx.NumEntities()}
	index := columnIndex(layout)

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			root, err := expr.Parse(tt.input)
			qt.Assert(t, qt.IsNil(err))
			qt.Assert(t, qt.IsNil(expr.Validate(root, ctx)))

			sql, ok := expr.ToSQL(root, ctx, layout)
			qt.Assert(t, qt.Equals(ok, tt.convertible), qt.Commentf("generated %s", sql))
			if !ok {
				return
			}
			filter, err := query.Parse(sql)
			qt.Assert(t, qt.IsNil(err))

			engine, err := expr.NewEngine(mustCompile(t, ctx, root), ctx)
			qt.Assert(t, qt.IsNil(err))
			for _, r := range [][]int32{nil, {0, 1}, {2, 0, 4}} {
				data := expr.TestBallotRow(ctx, r...)
				got, err := filter.Evaluate(layoutRow{index: index, data: data})
				qt.Assert(t, qt.IsNil(err))
				qt.Check(t, qt.Equals(got, engine.Bool(data)), qt.Commentf("ranking %v, filter %s", r, sql))
			}
		})
	}
}

func mustCompile(t *testing.T, ctx expr.Context, root *expr.Node) *expr.Program {
	t.Helper()
	p, err := expr.Compile(ctx, root)
	qt.Assert(t, qt.IsNil(err))
	return p
}
