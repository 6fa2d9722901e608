package contest

import "github.com/vegasq/prefcat/expr"

// Context returns the identifier resolution context for one counting mode.
// rowGrouped and colGrouped bind the pivot axes to groups rather than to
// entities; they only matter below the line.
func (c *Catalogue) Context(mode Mode, rowGrouped, colGrouped bool) expr.Context {
	ctx := &resolver{cat: c, btl: mode == BelowTheLine}
	if ctx.btl {
		ctx.grouped[expr.AxisRow] = rowGrouped
		ctx.grouped[expr.AxisCol] = colGrouped
	}
	return ctx
}

type resolver struct {
	cat     *Catalogue
	btl     bool
	grouped [3]bool // indexed by expr.Axis
}

func (x *resolver) NumEntities() int {
	if x.btl {
		return x.cat.NumCandidates()
	}
	return len(x.cat.Groups)
}

func (x *resolver) LookupEntity(name string) (int, bool) {
	if x.btl {
		return x.cat.Candidate(name)
	}
	return x.cat.Group(name)
}

func (x *resolver) NumGroups() int {
	return len(x.cat.Groups)
}

func (x *resolver) LookupGroup(name string) (int, bool) {
	return x.cat.Group(name)
}

func (x *resolver) GroupMembers(group int) []int {
	if group < 0 || group >= len(x.cat.members) {
		return nil
	}
	return x.cat.members[group]
}

func (x *resolver) BelowTheLine() bool {
	return x.btl
}

func (x *resolver) AxisGrouped(axis expr.Axis) bool {
	if axis < 0 || int(axis) >= len(x.grouped) {
		return false
	}
	return x.grouped[axis]
}
