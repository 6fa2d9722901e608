package expr

import (
	"strconv"
	"strings"
)

// Axis identifies a pivot table dimension
type Axis int

const (
	AxisNone Axis = iota
	AxisRow
	AxisCol
)

func (a Axis) String() string {
	switch a {
	case AxisRow:
		return "row"
	case AxisCol:
		return "col"
	default:
		return "none"
	}
}

// Context resolves names for the compiler. In above-the-line mode the
// entities are groups; below the line they are candidates, and a group name
// stands for the list of its member candidates.
type Context interface {
	// NumEntities returns the number of groups (ATL) or candidates (BTL)
	NumEntities() int

	// LookupEntity finds a group (ATL) or candidate (BTL) by short name
	LookupEntity(name string) (int, bool)

	// NumGroups returns the number of groups in either mode
	NumGroups() int

	// LookupGroup finds a group by short name in either mode
	LookupGroup(name string) (int, bool)

	// GroupMembers returns the ordered member candidates of a group. Below
	// the line these are entity numbers.
	GroupMembers(group int) []int

	// BelowTheLine reports whether entities are candidates
	BelowTheLine() bool

	// AxisGrouped reports whether the axis is bound to groups while entities
	// are candidates, making row/col aggregated identifiers
	AxisGrouped(axis Axis) bool
}

// Aggregate names a list of member candidates walked by any/all or folded by
// min/max: a fixed group, or whichever group is bound to an axis.
type Aggregate struct {
	Axis  Axis
	Group int // used when Axis is AxisNone
}

func (a Aggregate) String() string {
	if a.Axis != AxisNone {
		return a.Axis.String()
	}
	return "group " + strconv.Itoa(a.Group)
}

// Reserved identifier names and prefixes
const (
	NameNumPrefs = "num_prefs"
	NameExhaust  = "exhaust"
	NameRow      = "row"
	NameCol      = "col"

	PrefixIndex = "idx_"
	PrefixCount = "count_"
	PrefixPref  = "P"
)

type identKind int

const (
	identColumn    identKind = iota // fixed data column
	identAxis                       // entity bound to an axis
	identIndex                      // constant entity number
	identCount                      // constant group size
	identAxisCount                  // size of the group bound to an axis
	identAggregate                  // member of an aggregate
)

// ident is the resolution of one identifier against a Context and Layout
type ident struct {
	kind   identKind
	column int // identColumn
	value  int32
	axis   Axis
	agg    Aggregate
	pref   bool // identAggregate: read the member's preference number
}

// resolveIdent classifies name. The same rules serve the validator, the
// compiler and the SQL generator so all three agree.
func resolveIdent(ctx Context, name string) (ident, error) {
	layout := Layout{Entities: ctx.NumEntities()}

	switch name {
	case NameNumPrefs:
		return ident{kind: identColumn, column: layout.NumPrefsColumn()}, nil
	case NameExhaust:
		return ident{kind: identColumn, column: layout.ExhaustColumn()}, nil
	case NameRow, NameCol:
		axis := AxisRow
		if name == NameCol {
			axis = AxisCol
		}
		if ctx.AxisGrouped(axis) {
			return ident{kind: identAggregate, agg: Aggregate{Axis: axis}}, nil
		}
		return ident{kind: identAxis, axis: axis}, nil
	}

	if n, ok := prefNumber(name); ok {
		if n < 1 || n > layout.Entities {
			return ident{}, &Error{Kind: ErrResolve, Pos: -1, Msg: name + ": preference number must be between 1 and " + strconv.Itoa(layout.Entities)}
		}
		return ident{kind: identColumn, column: layout.EntityAtColumn(n)}, nil
	}

	if rest, ok := strings.CutPrefix(name, PrefixIndex); ok {
		if e, ok := ctx.LookupEntity(rest); ok {
			return ident{kind: identIndex, value: int32(e)}, nil
		}
		if g, ok := ctx.LookupGroup(rest); ok && ctx.BelowTheLine() {
			return ident{kind: identAggregate, agg: Aggregate{Group: g}}, nil
		}
	}

	if rest, ok := strings.CutPrefix(name, PrefixCount); ok {
		switch rest {
		case NameRow, NameCol:
			axis := AxisRow
			if rest == NameCol {
				axis = AxisCol
			}
			if ctx.BelowTheLine() && !ctx.AxisGrouped(axis) {
				return ident{}, &Error{Kind: ErrResolve, Pos: -1, Msg: name + ": the " + axis.String() + " axis is not bound to groups"}
			}
			return ident{kind: identAxisCount, axis: axis}, nil
		}
		if g, ok := ctx.LookupGroup(rest); ok {
			return ident{kind: identCount, value: int32(len(ctx.GroupMembers(g)))}, nil
		}
	}

	if e, ok := ctx.LookupEntity(name); ok {
		return ident{kind: identColumn, column: layout.PrefForColumn(e)}, nil
	}
	if ctx.BelowTheLine() {
		if g, ok := ctx.LookupGroup(name); ok {
			return ident{kind: identAggregate, agg: Aggregate{Group: g}, pref: true}, nil
		}
	}
	return ident{}, &Error{Kind: ErrResolve, Pos: -1, Msg: name}
}

// prefNumber parses P<n>
func prefNumber(name string) (int, bool) {
	digits, ok := strings.CutPrefix(name, PrefixPref)
	if !ok || digits == "" {
		return 0, false
	}
	for i := 0; i < len(digits); i++ {
		if !isDigit(digits[i]) {
			return 0, false
		}
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0, false
	}
	return n, true
}
