package expr

// testContext is a small contest: five groups of six candidates. Above the
// line the groups are the entities.
type testContext struct {
	candidates []string
	groups     []testGroup
	btl        bool
	grouped    map[Axis]bool
}

type testGroup struct {
	name    string
	members []int
}

func newTestContext(btl bool, groupedAxes ...Axis) *testContext {
	c := &testContext{
		candidates: []string{"Smith", "Jones", "Brown", "Green", "Hill", "Ng"},
		groups: []testGroup{
			{"ALP", []int{0, 1}},
			{"LNP", []int{2, 3}},
			{"GRN", []int{4}},
			{"ONE", []int{5}},
			{"IND", nil},
		},
		btl:     btl,
		grouped: map[Axis]bool{},
	}
	for _, a := range groupedAxes {
		c.grouped[a] = true
	}
	return c
}

func atlContext() *testContext { return newTestContext(false) }
func btlContext() *testContext { return newTestContext(true) }

func (c *testContext) NumEntities() int {
	if c.btl {
		return len(c.candidates)
	}
	return len(c.groups)
}

func (c *testContext) LookupEntity(name string) (int, bool) {
	if c.btl {
		for i, n := range c.candidates {
			if n == name {
				return i, true
			}
		}
		return 0, false
	}
	return c.LookupGroup(name)
}

func (c *testContext) NumGroups() int { return len(c.groups) }

func (c *testContext) LookupGroup(name string) (int, bool) {
	for i, g := range c.groups {
		if g.name == name {
			return i, true
		}
	}
	return 0, false
}

func (c *testContext) GroupMembers(group int) []int { return c.groups[group].members }
func (c *testContext) BelowTheLine() bool          { return c.btl }
func (c *testContext) AxisGrouped(axis Axis) bool  { return c.btl && c.grouped[axis] }

// ballotRow builds the engine row for a ranking given as entity numbers
func ballotRow(ctx Context, ranking ...int32) []int32 {
	l := Layout{Entities: ctx.NumEntities()}
	data := make([]int32, l.Width())
	l.Fill(data, ranking)
	return data
}
