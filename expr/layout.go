package expr

import "strconv"

// Unreached is the preference value of an entity the ballot never ranks, and
// the value of an unused entity-at-preference slot
const Unreached int32 = 999

// Layout describes the integer row an engine reads for one ballot. With G
// entities and A axis literals the row holds, in order:
//
//	[0, G)          preference number given to each entity
//	G               preference number of exhaust (preferences expressed + 1)
//	G+1, G+2        number of preferences expressed (twice)
//	[G+3, 2G+3)     entity at preference 1..G
//	[2G+3, 2G+3+A)  axis literals appended once per query
//
// The exhaust slot doubles as the preference of pseudo-entity G, so pi(G)
// and the exhaust identifier read the same column.
//
// The width is 2G+3+A. Descriptions that give 2G+2+A count the G
// preference slots and the exhaust slot as one block of G+1; the column
// order is the same.
type Layout struct {
	Entities int
	Literals int
}

// Width returns the row length
func (l Layout) Width() int {
	return 2*l.Entities + 3 + l.Literals
}

// PrefForColumn returns the column holding the preference given to entity e
func (l Layout) PrefForColumn(e int) int {
	return e
}

// ExhaustColumn returns the column holding the preference number of exhaust
func (l Layout) ExhaustColumn() int {
	return l.Entities
}

// NumPrefsColumn returns the column holding the number of preferences
func (l Layout) NumPrefsColumn() int {
	return l.Entities + 1
}

// EntityAtColumn returns the column holding the entity ranked at preference n (1-based)
func (l Layout) EntityAtColumn(n int) int {
	return l.Entities + 2 + n
}

// LiteralColumn returns the column of axis literal k
func (l Layout) LiteralColumn(k int) int {
	return 2*l.Entities + 3 + k
}

// ColumnName returns the store column name of column i
func (l Layout) ColumnName(i int) string {
	g := l.Entities
	switch {
	case i < 0 || i >= l.Width():
		return ""
	case i < g:
		return "pfor_" + strconv.Itoa(i)
	case i == g:
		return "pfor_exhaust"
	case i == g+1:
		return "num_prefs"
	case i == g+2:
		return "num_prefs_dup"
	case i < 2*g+3:
		return "pref_" + strconv.Itoa(i-g-2)
	default:
		return "axis_" + strconv.Itoa(i-2*g-3)
	}
}

// Fill writes the ballot columns of a row from a ranking, the entity numbers
// in preference order. The ranking is cut at the first entity that is out of
// range or already ranked. Axis literals are left untouched. Fill returns the
// number of preferences expressed.
func (l Layout) Fill(dst []int32, ranking []int32) int {
	g := l.Entities
	for i := 0; i < g; i++ {
		dst[i] = Unreached
		dst[g+3+i] = Unreached
	}

	n := 0
	for _, e := range ranking {
		if e < 0 || int(e) >= g || dst[e] != Unreached {
			break
		}
		n++
		dst[e] = int32(n)
		dst[g+2+n] = e
	}

	dst[g] = int32(n + 1)
	dst[g+1] = int32(n)
	dst[g+2] = int32(n)
	return n
}
