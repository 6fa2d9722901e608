package pivot

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/plan-systems/klog"

	"github.com/vegasq/prefcat/contest"
	"github.com/vegasq/prefcat/expr"
	"github.com/vegasq/prefcat/query"
)

// Bucket label of an empty axis and of ballots ranking none of a
// preferred_first list
const (
	LabelAll  = "all"
	LabelNone = "none"
)

// unbound is the axis value seen by the cell predicate when a bucket has no
// entity; it reads as unreached
const unbound int32 = -1

type axisKind int

const (
	axisSingle axisKind = iota
	axisEntities
	axisFirstPreferred
	axisValue
)

// axisPlan maps a ballot to its buckets on one axis
type axisPlan struct {
	kind     axisKind
	labels   []string
	bind     []int32 // value bound to row or col for each bucket
	grouped  bool
	shortcut *expr.Program // axisFirstPreferred, axisValue
	low      int32         // axisValue
}

// Plan is a compiled Query. Plans are immutable and may be run any number
// of times, concurrently.
type Plan struct {
	Query Query
	Mode  contest.Mode

	// Layout is the row shape the plan's programs read
	Layout expr.Layout

	// Prefilter is the filter rendered for the store, or nil when the
	// filter runs in the engine. Rows handed to Run must already have
	// passed it.
	Prefilter    query.Expression
	PrefilterSQL string

	ctx    expr.Context
	filter *expr.Program // nil when absent or prefiltered
	cell   *expr.Program // nil when every cell counts
	rows   axisPlan
	cols   axisPlan
}

// Compile resolves a query against a catalogue. The filter, the two axis
// shortcuts and the cell predicate are compiled independently against one
// context.
func Compile(q *Query, cat *contest.Catalogue, mode contest.Mode) (*Plan, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	rowGrouped, err := groupedAxis(q.Rows, cat, mode)
	if err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	colGrouped, err := groupedAxis(q.Cols, cat, mode)
	if err != nil {
		return nil, fmt.Errorf("cols: %w", err)
	}

	ctx := cat.Context(mode, rowGrouped, colGrouped)
	p := &Plan{
		Query:  *q,
		Mode:   mode,
		Layout: expr.Layout{Entities: ctx.NumEntities()},
		ctx:    ctx,
	}

	if err := p.compileFilter(cat); err != nil {
		return nil, err
	}
	if p.rows, err = p.compileAxis(q.Rows, rowGrouped, cat); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	if p.cols, err = p.compileAxis(q.Cols, colGrouped, cat); err != nil {
		return nil, fmt.Errorf("cols: %w", err)
	}
	if n := len(p.rows.labels) * len(p.cols.labels); n > MaxCells {
		return nil, fmt.Errorf("%w: %d cells, maximum is %d", ErrTooManyCells, n, MaxCells)
	}
	if err := p.compileCell(cat); err != nil {
		return nil, err
	}

	klog.V(2).Infof("pivot: compiled %q (%s)\n%s", q.Title, mode, p.Describe())
	return p, nil
}

// groupedAxis reports whether an entities axis names groups below the line.
// The names must be all groups or all candidates.
func groupedAxis(a Axis, cat *contest.Catalogue, mode contest.Mode) (bool, error) {
	if mode != contest.BelowTheLine || len(a.Entities) == 0 {
		return false, nil
	}
	groups := 0
	for _, name := range a.Entities {
		if _, ok := cat.Group(name); ok {
			groups++
		}
	}
	switch {
	case groups == 0:
		return false, nil
	case groups < len(a.Entities):
		return false, fmt.Errorf("%w: entities mix groups and candidates", ErrInvalidQuery)
	case a.Exhaust:
		return false, fmt.Errorf("%w: exhaust cannot be used with a grouped axis", ErrInvalidQuery)
	}
	return true, nil
}

// parse parses and validates one source expression and checks its type.
// Only the cell expression may read the axes.
func (p *Plan) parse(section, src string, want expr.Type, cat *contest.Catalogue) (*expr.Node, error) {
	root, err := expr.Parse(src)
	if err != nil {
		return nil, explain(section, err, cat)
	}
	if section != "cell" && readsAxis(root) {
		return nil, fmt.Errorf("%s: %w", section, ErrAxisReference)
	}
	if err := expr.Validate(root, p.ctx); err != nil {
		return nil, explain(section, err, cat)
	}
	if root.Type != want {
		return nil, fmt.Errorf("%s: %w", section, &expr.Error{Kind: expr.ErrType, Pos: root.Pos, Msg: "expression must be " + want.String() + ", got " + root.Type.String()})
	}
	return root, nil
}

// explain adds name suggestions to an unknown identifier error
func explain(section string, err error, cat *contest.Catalogue) error {
	var e *expr.Error
	if errors.As(err, &e) && errors.Is(e, expr.ErrResolve) {
		if s := cat.Suggest(e.Msg); len(s) > 0 {
			return fmt.Errorf("%s: %w (did you mean %s?)", section, err, strings.Join(s, ", "))
		}
	}
	return fmt.Errorf("%s: %w", section, err)
}

// readsAxis reports whether the tree names row, col or their group sizes
func readsAxis(root *expr.Node) bool {
	found := false
	root.Walk(func(n *expr.Node) bool {
		if n.Op == expr.NodeIdent {
			switch n.Name {
			case expr.NameRow, expr.NameCol, expr.PrefixCount + expr.NameRow, expr.PrefixCount + expr.NameCol:
				found = true
			}
		}
		return !found
	})
	return found
}

func (p *Plan) compileFilter(cat *contest.Catalogue) error {
	root, err := p.parse("filter", p.Query.Filter, expr.TypeBool, cat)
	if err != nil {
		return err
	}
	if root.Op == expr.NodeTrue {
		return nil
	}

	if sql, ok := expr.ToSQL(root, p.ctx, p.Layout); ok {
		pre, err := query.Parse(sql)
		if err == nil {
			p.Prefilter, p.PrefilterSQL = pre, sql
			return nil
		}
		klog.Warningf("pivot: store rejected filter %q (%v), filtering in the engine", sql, err)
	}

	p.filter, err = expr.Compile(p.ctx, root)
	if err != nil {
		return fmt.Errorf("filter: %w", err)
	}
	return nil
}

func (p *Plan) compileAxis(a Axis, grouped bool, cat *contest.Catalogue) (axisPlan, error) {
	switch {
	case len(a.Entities) > 0:
		ap := axisPlan{kind: axisEntities, grouped: grouped}
		for _, name := range a.Entities {
			var (
				v  int
				ok bool
			)
			if grouped {
				v, ok = p.ctx.LookupGroup(name)
			} else {
				v, ok = p.ctx.LookupEntity(name)
			}
			if !ok {
				return axisPlan{}, explain("entities", &expr.Error{Kind: expr.ErrResolve, Pos: -1, Msg: name}, cat)
			}
			ap.labels = append(ap.labels, name)
			ap.bind = append(ap.bind, int32(v))
		}
		if a.Exhaust {
			ap.labels = append(ap.labels, expr.NameExhaust)
			ap.bind = append(ap.bind, int32(p.ctx.NumEntities()))
		}
		return ap, nil

	case len(a.PreferredFirst) > 0:
		prog, err := expr.CompileFirstPreferred(p.ctx, a.PreferredFirst)
		if err != nil {
			return axisPlan{}, explain("preferred_first", err, cat)
		}
		ap := axisPlan{kind: axisFirstPreferred, shortcut: prog}
		for _, name := range a.PreferredFirst {
			v := unbound
			if e, ok := p.ctx.LookupEntity(name); ok {
				v = int32(e)
			}
			ap.labels = append(ap.labels, name)
			ap.bind = append(ap.bind, v)
		}
		ap.labels = append(ap.labels, LabelNone)
		ap.bind = append(ap.bind, unbound)
		return ap, nil

	case a.Expr != "":
		root, err := p.parse("expr", a.Expr, expr.TypeInt, cat)
		if err != nil {
			return axisPlan{}, err
		}
		if n := int64(a.High) - int64(a.Low) + 1; n > MaxCells {
			return axisPlan{}, fmt.Errorf("%w: %d buckets, maximum is %d", ErrTooManyCells, n, MaxCells)
		}
		prog, err := expr.Compile(p.ctx, root)
		if err != nil {
			return axisPlan{}, fmt.Errorf("expr: %w", err)
		}
		ap := axisPlan{kind: axisValue, shortcut: prog, low: a.Low}
		for v := a.Low; ; v++ {
			ap.labels = append(ap.labels, strconv.Itoa(int(v)))
			ap.bind = append(ap.bind, v)
			if v == a.High {
				break
			}
		}
		return ap, nil
	}

	return axisPlan{kind: axisSingle, labels: []string{LabelAll}, bind: []int32{unbound}}, nil
}

func (p *Plan) compileCell(cat *contest.Catalogue) error {
	root, err := p.parse("cell", p.Query.Cell, expr.TypeBool, cat)
	if err != nil {
		return err
	}
	if root.Op == expr.NodeTrue {
		return nil
	}
	p.cell, err = expr.Compile(p.ctx, root)
	if err != nil {
		return fmt.Errorf("cell: %w", err)
	}
	return nil
}

// Describe returns a disassembly of the plan's programs
func (p *Plan) Describe() string {
	var b strings.Builder
	fmt.Fprintf(&b, "layout: %d entities, width %d\n", p.Layout.Entities, p.Layout.Width())
	if p.Prefilter != nil {
		fmt.Fprintf(&b, "prefilter: %s\n", p.PrefilterSQL)
	}
	section := func(name string, prog *expr.Program) {
		if prog != nil {
			fmt.Fprintf(&b, "%s:\n%s", name, prog)
		}
	}
	section("filter", p.filter)
	section("rows", p.rows.shortcut)
	section("cols", p.cols.shortcut)
	section("cell", p.cell)
	fmt.Fprintf(&b, "table: %d x %d\n", len(p.rows.labels), len(p.cols.labels))
	return b.String()
}

// RowLabels returns the labels of the row buckets
func (p *Plan) RowLabels() []string {
	return append([]string(nil), p.rows.labels...)
}

// ColLabels returns the labels of the column buckets
func (p *Plan) ColLabels() []string {
	return append([]string(nil), p.cols.labels...)
}
