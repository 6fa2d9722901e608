package expr

import (
	"fmt"
)

// Engine evaluates one compiled program against ballot rows. An engine owns
// its stacks and is not safe for concurrent use; create one per worker.
type Engine interface {
	// Bind sets the entities (or groups, for a grouped axis) bound to the
	// row and column axes for the following evaluations
	Bind(row, col int32)

	// Bool runs a boolean program over one row
	Bool(data []int32) bool

	// Int runs an integer program over one row
	Int(data []int32) int32
}

// NewEngine returns the cheapest engine able to run p
func NewEngine(p *Program, ctx Context) (Engine, error) {
	if p.Aggregating() {
		return NewAggregatingEngine(p, ctx)
	}
	return NewFlatEngine(p, ctx)
}

// machine holds the state shared by both engines
type machine struct {
	prog     *Program
	entities int32
	sizes    []int32 // candidates per group
	ints     []int32
	bools    []bool
	row, col int32

	// aggregating engine only
	members [][]int
	loops   loopStack
}

func newMachine(p *Program, ctx Context) machine {
	sizes := make([]int32, ctx.NumGroups())
	for g := range sizes {
		sizes[g] = int32(len(ctx.GroupMembers(g)))
	}
	return machine{
		prog:     p,
		entities: int32(ctx.NumEntities()),
		sizes:    sizes,
		ints:     make([]int32, max(p.NumInts, 1)),
		bools:    make([]bool, max(p.NumBools, 1)),
	}
}

func (m *machine) Bind(row, col int32) {
	m.row, m.col = row, col
}

// prefFor reads the preference given to entity e; pseudo-entity G is exhaust
func (m *machine) prefFor(data []int32, e int32) int32 {
	if e < 0 || e > m.entities || int(e) >= len(data) {
		return Unreached
	}
	return data[e]
}

func (m *machine) groupSize(g int32) int32 {
	if g < 0 || int(g) >= len(m.sizes) {
		return 0
	}
	return m.sizes[g]
}

// input reads an integer input
func (m *machine) input(in InputRef, data []int32) int32 {
	var e int32
	switch in.Kind {
	case RefSlot:
		return m.ints[in.Index]
	case RefRow:
		e = m.row
	case RefCol:
		e = m.col
	case RefEntity:
		e = int32(in.Index)
	case RefMember:
		members := m.members[in.Index]
		i := m.loops.at(in.Loop)
		if i < 0 || i >= len(members) {
			return Unreached
		}
		e = int32(members[i])
	default:
		return 0
	}
	if in.Pref {
		return m.prefFor(data, e)
	}
	return e
}

// fold reduces the inputs of a min/max operation, expanding RefMembers
func (m *machine) fold(op *Operation, data []int32, less func(a, b int32) bool) int32 {
	var acc int32
	first := true
	take := func(v int32) {
		if first || less(v, acc) {
			acc, first = v, false
		}
	}
	for _, in := range op.In {
		if in.Kind != RefMembers {
			take(m.input(in, data))
			continue
		}
		for _, e := range m.members[in.Index] {
			v := int32(e)
			if in.Pref {
				v = m.prefFor(data, v)
			}
			take(v)
		}
	}
	if first {
		// every operand was an empty group
		return Unreached
	}
	return acc
}

func lessInt(a, b int32) bool { return a < b }
func moreInt(a, b int32) bool { return a > b }

// bestMember returns the lowest preference among members of a group
func (m *machine) bestMember(in InputRef, data []int32) int32 {
	best := Unreached
	for _, e := range m.members[in.Index] {
		if p := m.prefFor(data, int32(e)); p < best {
			best = p
		}
	}
	return best
}

func (m *machine) firstPreferred(op *Operation, data []int32) int32 {
	best, at := Unreached, int32(len(op.In))
	for i, in := range op.In {
		var p int32
		if in.Kind == RefMembers {
			p = m.bestMember(in, data)
		} else {
			p = m.input(in, data)
		}
		if p < best {
			best, at = p, int32(i)
		}
	}
	return at
}

// step executes op at pc and returns the next pc. Loop operations are
// handled by the aggregating engine.
func (m *machine) step(pc int, op *Operation, data []int32) int {
	switch op.Op {
	case OpTrue:
		m.bools[op.Out] = true
	case OpConst:
		m.ints[op.Out] = op.Literal
	case OpColumn:
		if op.Column < len(data) {
			m.ints[op.Out] = data[op.Column]
		} else {
			m.ints[op.Out] = Unreached
		}
	case OpEntity:
		m.ints[op.Out] = m.input(op.In[0], data)
	case OpPrefFor:
		m.ints[op.Out] = m.prefFor(data, m.input(op.In[0], data))
	case OpGroupSize:
		m.ints[op.Out] = m.groupSize(m.input(op.In[0], data))
	case OpInRange:
		v := m.input(op.In[0], data)
		m.bools[op.Out] = op.Low <= v && v <= op.High
	case OpEq:
		m.bools[op.Out] = m.input(op.In[0], data) == m.input(op.In[1], data)
	case OpNe:
		m.bools[op.Out] = m.input(op.In[0], data) != m.input(op.In[1], data)
	case OpLt:
		m.bools[op.Out] = m.input(op.In[0], data) < m.input(op.In[1], data)
	case OpLe:
		m.bools[op.Out] = m.input(op.In[0], data) <= m.input(op.In[1], data)
	case OpGt:
		m.bools[op.Out] = m.input(op.In[0], data) > m.input(op.In[1], data)
	case OpGe:
		m.bools[op.Out] = m.input(op.In[0], data) >= m.input(op.In[1], data)
	case OpNot:
		m.bools[op.Out] = !m.bools[op.In[0].Index]
	case OpAnd:
		m.bools[op.Out] = m.bools[op.In[0].Index] && m.bools[op.In[1].Index]
	case OpOr:
		m.bools[op.Out] = m.bools[op.In[0].Index] || m.bools[op.In[1].Index]
	case OpAdd:
		m.ints[op.Out] = m.input(op.In[0], data) + m.input(op.In[1], data)
	case OpSub:
		m.ints[op.Out] = m.input(op.In[0], data) - m.input(op.In[1], data)
	case OpAbs:
		v := m.input(op.In[0], data)
		if v < 0 {
			v = -v
		}
		m.ints[op.Out] = v
	case OpMin:
		m.ints[op.Out] = m.fold(op, data, lessInt)
	case OpMax:
		m.ints[op.Out] = m.fold(op, data, moreInt)
	case OpIf:
		if m.bools[op.In[0].Index] {
			m.ints[op.Out] = m.input(op.In[1], data)
		} else {
			m.ints[op.Out] = m.input(op.In[2], data)
		}
	case OpJump:
		return op.Jump
	case OpJumpIfTrue:
		if m.bools[op.In[0].Index] {
			m.bools[op.Out] = true
			return op.Jump
		}
	case OpJumpIfFalse:
		if !m.bools[op.In[0].Index] {
			m.bools[op.Out] = false
			return op.Jump
		}
	case OpFirstPreferred:
		m.ints[op.Out] = m.firstPreferred(op, data)
	}
	return pc + 1
}

// flatEngine runs programs without aggregates: straight-line code plus
// short-circuit jumps
type flatEngine struct {
	machine
}

// NewFlatEngine returns an engine for a program without aggregates
func NewFlatEngine(p *Program, ctx Context) (Engine, error) {
	if p.Aggregating() {
		return nil, fmt.Errorf("flat engine: program reads %d aggregate(s)", len(p.Aggregates))
	}
	return &flatEngine{machine: newMachine(p, ctx)}, nil
}

func (e *flatEngine) run(data []int32) {
	ops := e.prog.Ops
	for pc := 0; pc < len(ops); {
		pc = e.step(pc, &ops[pc], data)
	}
}

func (e *flatEngine) Bool(data []int32) bool {
	e.run(data)
	return e.bools[0]
}

func (e *flatEngine) Int(data []int32) int32 {
	e.run(data)
	return e.ints[0]
}

// loopStack holds one position per loop nesting depth, -1 when the loop at
// that depth is not running. Its capacity is fixed at construction.
type loopStack []int

func newLoopStack(depth int) loopStack {
	s := make(loopStack, depth)
	for i := range s {
		s[i] = -1
	}
	return s
}

func (s loopStack) at(d int) int { return s[d] }

// next starts the loop at depth d or moves to its next member
func (s loopStack) next(d int) int {
	s[d]++
	return s[d]
}

// pop marks the loop at depth d finished
func (s loopStack) pop(d int) { s[d] = -1 }

// aggregatingEngine adds any/all loops and group folds
type aggregatingEngine struct {
	machine
	ctx  Context
	axis []int // indices of aggregates bound to an axis
}

// NewAggregatingEngine returns an engine able to run any program
func NewAggregatingEngine(p *Program, ctx Context) (Engine, error) {
	e := &aggregatingEngine{machine: newMachine(p, ctx), ctx: ctx}
	e.members = make([][]int, len(p.Aggregates))
	e.loops = newLoopStack(p.MaxLoopDepth)
	numGroups := ctx.NumGroups()
	for i, agg := range p.Aggregates {
		if agg.Axis != AxisNone {
			e.axis = append(e.axis, i)
			continue
		}
		if agg.Group < 0 || agg.Group >= numGroups {
			return nil, fmt.Errorf("aggregating engine: %v out of range", agg)
		}
		e.members[i] = ctx.GroupMembers(agg.Group)
	}
	return e, nil
}

func (e *aggregatingEngine) Bind(row, col int32) {
	e.machine.Bind(row, col)
	numGroups := int32(e.ctx.NumGroups())
	for _, i := range e.axis {
		g := row
		if e.prog.Aggregates[i].Axis == AxisCol {
			g = col
		}
		if g < 0 || g >= numGroups {
			e.members[i] = nil
			continue
		}
		e.members[i] = e.ctx.GroupMembers(int(g))
	}
}

func (e *aggregatingEngine) run(data []int32) {
	ops := e.prog.Ops
	for pc := 0; pc < len(ops); {
		op := &ops[pc]
		switch op.Op {
		case OpLoop:
			if e.loops.next(op.Loop) >= len(e.members[op.Agg]) {
				e.loops.pop(op.Loop)
				e.bools[op.Out] = op.Literal != 0
				pc = op.Jump
				continue
			}
			pc++
		case OpBreakIfTrue, OpBreakIfFalse:
			v := e.bools[op.In[0].Index]
			if v == (op.Op == OpBreakIfTrue) {
				e.loops.pop(op.Loop)
				e.bools[op.Out] = v
				pc = op.Jump
				continue
			}
			pc++
		default:
			pc = e.step(pc, op, data)
		}
	}
}

func (e *aggregatingEngine) Bool(data []int32) bool {
	e.run(data)
	return e.bools[0]
}

func (e *aggregatingEngine) Int(data []int32) int32 {
	e.run(data)
	return e.ints[0]
}
