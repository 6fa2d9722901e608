package expr

import (
	"math"
	"strconv"
	"strings"
)

// CanConvertToSQL reports whether root can be pushed down to the store as a
// filter predicate
func CanConvertToSQL(root *Node, ctx Context) bool {
	_, ok := ToSQL(root, ctx, Layout{Entities: ctx.NumEntities()})
	return ok
}

// ToSQL renders root in the store filter dialect, naming columns after
// layout. It fails for anything that depends on the table axes or on
// aggregated groups, and for pi, which has no column-level equivalent. It
// also fails when arithmetic could leave the int32 range: engines wrap and
// the store does not.
func ToSQL(root *Node, ctx Context, layout Layout) (string, bool) {
	g := sqlGen{ctx: ctx, layout: layout}
	if !g.arithmeticFits(root) || !g.node(root) {
		return "", false
	}
	return g.b.String(), true
}

// valueRange is the closed interval an integer subtree can take
type valueRange struct{ lo, hi int64 }

func (r valueRange) fits() bool { return r.lo >= math.MinInt32 && r.hi <= math.MaxInt32 }

// arithmeticFits reports whether every +, - and abs in the tree stays in
// int32 for any row Fill can produce
func (g *sqlGen) arithmeticFits(root *Node) bool {
	ok := true
	root.Walk(func(n *Node) bool {
		switch n.Op {
		case NodeAdd, NodeSub, NodeAbs:
			r, known := g.rangeOf(n)
			ok = ok && known && r.fits()
		}
		return ok
	})
	return ok
}

// rangeOf bounds an integer subtree. Columns hold preference numbers,
// entity numbers and counts, all within [0, max(Unreached, G+1)].
func (g *sqlGen) rangeOf(n *Node) (valueRange, bool) {
	switch n.Op {
	case NodeInt:
		if len(n.Ints) != 1 {
			return valueRange{}, false
		}
		return valueRange{int64(n.Ints[0]), int64(n.Ints[0])}, true

	case NodeIdent:
		id, err := resolveIdent(g.ctx, n.Name)
		if err != nil {
			return valueRange{}, false
		}
		switch id.kind {
		case identColumn:
			return valueRange{0, int64(max(Unreached, int32(g.layout.Entities+1)))}, true
		case identIndex, identCount:
			return valueRange{int64(id.value), int64(id.value)}, true
		}
		return valueRange{}, false

	case NodeAdd, NodeSub:
		if len(n.Children) != 2 {
			return valueRange{}, false
		}
		a, ok := g.rangeOf(n.Children[0])
		if !ok {
			return valueRange{}, false
		}
		b, ok := g.rangeOf(n.Children[1])
		if !ok {
			return valueRange{}, false
		}
		if n.Op == NodeAdd {
			return valueRange{a.lo + b.lo, a.hi + b.hi}, true
		}
		return valueRange{a.lo - b.hi, a.hi - b.lo}, true

	case NodeAbs:
		if len(n.Children) != 1 {
			return valueRange{}, false
		}
		a, ok := g.rangeOf(n.Children[0])
		switch {
		case !ok:
			return valueRange{}, false
		case a.lo >= 0:
			return a, true
		case a.hi <= 0:
			return valueRange{-a.hi, -a.lo}, true
		}
		return valueRange{0, max(-a.lo, a.hi)}, true

	case NodeMin, NodeMax, NodeIf:
		args := n.Children
		if n.Op == NodeIf {
			if len(args) != 3 {
				return valueRange{}, false
			}
			args = args[1:]
		}
		var r valueRange
		for i, c := range args {
			cr, ok := g.rangeOf(c)
			if !ok {
				return valueRange{}, false
			}
			switch {
			case i == 0:
				r = cr
			case n.Op == NodeMin:
				r = valueRange{min(r.lo, cr.lo), min(r.hi, cr.hi)}
			case n.Op == NodeMax:
				r = valueRange{max(r.lo, cr.lo), max(r.hi, cr.hi)}
			default:
				r = valueRange{min(r.lo, cr.lo), max(r.hi, cr.hi)}
			}
		}
		return r, len(args) > 0
	}
	return valueRange{}, false
}

type sqlGen struct {
	ctx    Context
	layout Layout
	b      strings.Builder
}

var sqlOperators = map[NodeOp]string{
	NodeEq:  "=",
	NodeNe:  "!=",
	NodeLt:  "<",
	NodeLe:  "<=",
	NodeGt:  ">",
	NodeGe:  ">=",
	NodeAnd: "AND",
	NodeOr:  "OR",
	NodeAdd: "+",
	NodeSub: "-",
}

func (g *sqlGen) literal(v int32) {
	if v < 0 {
		g.b.WriteString("(" + strconv.Itoa(int(v)) + ")")
		return
	}
	g.b.WriteString(strconv.Itoa(int(v)))
}

func (g *sqlGen) node(n *Node) bool {
	switch n.Op {
	case NodeTrue:
		g.b.WriteString("TRUE")
		return true

	case NodeInt:
		if len(n.Ints) != 1 {
			return false
		}
		g.literal(n.Ints[0])
		return true

	case NodeIdent:
		id, err := resolveIdent(g.ctx, n.Name)
		if err != nil {
			return false
		}
		switch id.kind {
		case identColumn:
			g.b.WriteString(g.layout.ColumnName(id.column))
		case identIndex, identCount:
			g.literal(id.value)
		default:
			return false
		}
		return true

	case NodeInRange:
		if len(n.Children) != 1 || len(n.Ints) != 2 {
			return false
		}
		g.b.WriteString("(")
		if !g.node(n.Children[0]) {
			return false
		}
		g.b.WriteString(" BETWEEN ")
		g.literal(n.Ints[0])
		g.b.WriteString(" AND ")
		g.literal(n.Ints[1])
		g.b.WriteString(")")
		return true

	case NodeNot:
		if len(n.Children) != 1 {
			return false
		}
		g.b.WriteString("(NOT ")
		if !g.node(n.Children[0]) {
			return false
		}
		g.b.WriteString(")")
		return true

	case NodeAbs:
		if len(n.Children) != 1 {
			return false
		}
		return g.call("ABS", n.Children)

	case NodeMin, NodeMax:
		if len(n.Children) == 1 {
			return g.node(n.Children[0])
		}
		if n.Op == NodeMin {
			return g.call("LEAST", n.Children)
		}
		return g.call("GREATEST", n.Children)

	case NodeIf:
		if len(n.Children) != 3 {
			return false
		}
		g.b.WriteString("CASE WHEN ")
		if !g.node(n.Children[0]) {
			return false
		}
		g.b.WriteString(" THEN ")
		if !g.node(n.Children[1]) {
			return false
		}
		g.b.WriteString(" ELSE ")
		if !g.node(n.Children[2]) {
			return false
		}
		g.b.WriteString(" END")
		return true
	}

	sym, ok := sqlOperators[n.Op]
	if !ok || len(n.Children) != 2 {
		return false
	}
	g.b.WriteString("(")
	if !g.node(n.Children[0]) {
		return false
	}
	g.b.WriteString(" " + sym + " ")
	if !g.node(n.Children[1]) {
		return false
	}
	g.b.WriteString(")")
	return true
}

func (g *sqlGen) call(name string, args []*Node) bool {
	g.b.WriteString(name + "(")
	for i, a := range args {
		if i > 0 {
			g.b.WriteString(", ")
		}
		if !g.node(a) {
			return false
		}
	}
	g.b.WriteString(")")
	return true
}
