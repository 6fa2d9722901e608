package expr

import (
	"github.com/pkg/errors"
)

// loopFrame is an any/all loop being compiled
type loopFrame struct {
	agg   Aggregate
	depth int
}

// compiler emits operations for one program. Slots come from two bump
// allocators and are never reused, so numbering depends only on the tree.
type compiler struct {
	ctx      Context
	layout   Layout
	ops      []Operation
	ints     int
	bools    int
	aggs     []Aggregate
	aggIndex map[Aggregate]int
	loops    []loopFrame
	maxDepth int
}

func newCompiler(ctx Context) *compiler {
	return &compiler{
		ctx:      ctx,
		layout:   Layout{Entities: ctx.NumEntities()},
		aggIndex: make(map[Aggregate]int),
	}
}

func (c *compiler) newInt() int {
	s := c.ints
	c.ints++
	return s
}

func (c *compiler) newBool() int {
	s := c.bools
	c.bools++
	return s
}

func (c *compiler) emit(op Operation) int {
	c.ops = append(c.ops, op)
	return len(c.ops) - 1
}

// aggregate returns the program-wide index of agg, registering it on first use
func (c *compiler) aggregate(agg Aggregate) int {
	if i, ok := c.aggIndex[agg]; ok {
		return i
	}
	c.aggs = append(c.aggs, agg)
	c.aggIndex[agg] = len(c.aggs) - 1
	return len(c.aggs) - 1
}

func (c *compiler) program(result Type) *Program {
	return &Program{
		Ops:          c.ops,
		Aggregates:   c.aggs,
		NumInts:      c.ints,
		NumBools:     c.bools,
		MaxLoopDepth: c.maxDepth,
		Result:       result,
	}
}

// Compile turns a validated tree into a Program. A boolean tree leaves its
// result in bool slot 0, an integer tree in int slot 0.
func Compile(ctx Context, root *Node) (*Program, error) {
	c := newCompiler(ctx)
	switch root.Type {
	case TypeBool:
		if err := c.compile(root, c.newBool()); err != nil {
			return nil, err
		}
	case TypeInt:
		if err := c.compile(root, c.newInt()); err != nil {
			return nil, err
		}
	default:
		return nil, errors.Wrapf(ErrInternal, "compile: tree %s was not validated", root.Dump())
	}
	return c.program(root.Type), nil
}

// internal reports a node the validator should not have let through
func internal(n *Node, what string) error {
	return errors.Wrapf(ErrInternal, "compile %v: %s in %s", n.Op, what, n.Dump())
}

func (c *compiler) want(n *Node, count int) error {
	if len(n.Children) != count {
		return internal(n, "unexpected operand count")
	}
	return nil
}

// intOperand compiles an integer child into a fresh slot
func (c *compiler) intOperand(n *Node) (InputRef, error) {
	s := c.newInt()
	if err := c.compile(n, s); err != nil {
		return InputRef{}, err
	}
	return Slot(s), nil
}

// boolOperand compiles a boolean child into a fresh slot
func (c *compiler) boolOperand(n *Node) (int, error) {
	s := c.newBool()
	if err := c.compile(n, s); err != nil {
		return 0, err
	}
	return s, nil
}

var relationalOpcodes = map[NodeOp]Opcode{
	NodeEq: OpEq,
	NodeNe: OpNe,
	NodeLt: OpLt,
	NodeLe: OpLe,
	NodeGt: OpGt,
	NodeGe: OpGe,
}

// compile emits n with its result in slot out of the stack matching n.Type
func (c *compiler) compile(n *Node, out int) error {
	switch n.Op {
	case NodeTrue:
		c.emit(Operation{Op: OpTrue, Out: out})
		return nil

	case NodeInt:
		if len(n.Ints) != 1 {
			return internal(n, "literal without a value")
		}
		c.emit(Operation{Op: OpConst, Out: out, Literal: n.Ints[0]})
		return nil

	case NodeIdent:
		return c.compileIdent(n, out)

	case NodeInRange:
		if err := c.want(n, 1); err != nil {
			return err
		}
		if len(n.Ints) != 2 {
			return internal(n, "range without bounds")
		}
		in, err := c.intOperand(n.Children[0])
		if err != nil {
			return err
		}
		c.emit(Operation{Op: OpInRange, Out: out, In: []InputRef{in}, Low: n.Ints[0], High: n.Ints[1]})
		return nil

	case NodeEq, NodeNe, NodeLt, NodeLe, NodeGt, NodeGe, NodeAdd, NodeSub:
		if err := c.want(n, 2); err != nil {
			return err
		}
		left, err := c.intOperand(n.Children[0])
		if err != nil {
			return err
		}
		right, err := c.intOperand(n.Children[1])
		if err != nil {
			return err
		}
		op := OpAdd
		switch n.Op {
		case NodeAdd:
		case NodeSub:
			op = OpSub
		default:
			op = relationalOpcodes[n.Op]
		}
		c.emit(Operation{Op: op, Out: out, In: []InputRef{left, right}})
		return nil

	case NodeNot:
		if err := c.want(n, 1); err != nil {
			return err
		}
		in, err := c.boolOperand(n.Children[0])
		if err != nil {
			return err
		}
		c.emit(Operation{Op: OpNot, Out: out, In: []InputRef{Slot(in)}})
		return nil

	case NodeAnd, NodeOr:
		return c.compileShortCircuit(n, out)

	case NodeAbs, NodePi:
		if err := c.want(n, 1); err != nil {
			return err
		}
		in, err := c.intOperand(n.Children[0])
		if err != nil {
			return err
		}
		op := OpAbs
		if n.Op == NodePi {
			op = OpPrefFor
		}
		c.emit(Operation{Op: op, Out: out, In: []InputRef{in}})
		return nil

	case NodeMin, NodeMax:
		return c.compileFold(n, out)

	case NodeIf:
		if err := c.want(n, 3); err != nil {
			return err
		}
		cond, err := c.boolOperand(n.Children[0])
		if err != nil {
			return err
		}
		then, err := c.intOperand(n.Children[1])
		if err != nil {
			return err
		}
		els, err := c.intOperand(n.Children[2])
		if err != nil {
			return err
		}
		c.emit(Operation{Op: OpIf, Out: out, In: []InputRef{Slot(cond), then, els}})
		return nil

	case NodeAny, NodeAll:
		return c.compileLoop(n, out)
	}
	return internal(n, "unknown operator")
}

// compileShortCircuit emits the left operand, a conditional jump past the
// right operand, the right operand and the combining operation. The jump
// writes the result itself when taken.
func (c *compiler) compileShortCircuit(n *Node, out int) error {
	if err := c.want(n, 2); err != nil {
		return err
	}
	left, err := c.boolOperand(n.Children[0])
	if err != nil {
		return err
	}

	jumpOp, op := OpJumpIfFalse, OpAnd
	if n.Op == NodeOr {
		jumpOp, op = OpJumpIfTrue, OpOr
	}
	jump := c.emit(Operation{Op: jumpOp, Out: out, In: []InputRef{Slot(left)}})

	right, err := c.boolOperand(n.Children[1])
	if err != nil {
		return err
	}
	c.emit(Operation{Op: op, Out: out, In: []InputRef{Slot(left), Slot(right)}})
	c.ops[jump].Jump = len(c.ops)
	return nil
}

// compileFold emits min/max. A bare aggregated identifier operand becomes a
// RefMembers input folded over every member of its group.
func (c *compiler) compileFold(n *Node, out int) error {
	if len(n.Children) == 0 {
		return internal(n, "no operands")
	}
	in := make([]InputRef, 0, len(n.Children))
	for _, child := range n.Children {
		if child.Op == NodeIdent {
			id, err := c.resolve(child)
			if err != nil {
				return err
			}
			if id.kind == identAggregate {
				in = append(in, InputRef{Kind: RefMembers, Index: c.aggregate(id.agg), Pref: id.pref})
				continue
			}
		}
		ref, err := c.intOperand(child)
		if err != nil {
			return err
		}
		in = append(in, ref)
	}
	op := OpMin
	if n.Op == NodeMax {
		op = OpMax
	}
	c.emit(Operation{Op: op, Out: out, In: in})
	return nil
}

// compileLoop emits an any/all loop:
//
//	head:  loop       advance counter; when exhausted write default, jump end
//	       <body>
//	       break-if   write result and jump end once the body decides
//	       jump head
//	end:
func (c *compiler) compileLoop(n *Node, out int) error {
	if err := c.want(n, 1); err != nil {
		return err
	}
	if n.Agg == nil {
		return internal(n, "loop without an aggregate")
	}

	depth := len(c.loops)
	c.loops = append(c.loops, loopFrame{agg: *n.Agg, depth: depth})
	if depth+1 > c.maxDepth {
		c.maxDepth = depth + 1
	}

	isAll := n.Op == NodeAll
	var dflt int32
	breakOp := OpBreakIfTrue
	if isAll {
		dflt = 1
		breakOp = OpBreakIfFalse
	}

	head := c.emit(Operation{Op: OpLoop, Out: out, Loop: depth, Agg: c.aggregate(*n.Agg), Literal: dflt})
	body, err := c.boolOperand(n.Children[0])
	if err != nil {
		return err
	}
	brk := c.emit(Operation{Op: breakOp, Out: out, In: []InputRef{Slot(body)}, Loop: depth})
	c.emit(Operation{Op: OpJump, Jump: head})

	end := len(c.ops)
	c.ops[head].Jump = end
	c.ops[brk].Jump = end
	c.loops = c.loops[:depth]
	return nil
}

func (c *compiler) resolve(n *Node) (ident, error) {
	id, err := resolveIdent(c.ctx, n.Name)
	if e, ok := err.(*Error); ok {
		e.Pos = n.Pos
	}
	return id, err
}

func (c *compiler) compileIdent(n *Node, out int) error {
	id, err := c.resolve(n)
	if err != nil {
		return err
	}

	switch id.kind {
	case identColumn:
		c.emit(Operation{Op: OpColumn, Out: out, Column: id.column})
	case identAxis:
		c.emit(Operation{Op: OpEntity, Out: out, In: []InputRef{axisRef(id.axis)}})
	case identIndex:
		c.emit(Operation{Op: OpEntity, Out: out, In: []InputRef{{Kind: RefEntity, Index: int(id.value)}}})
	case identCount:
		c.emit(Operation{Op: OpConst, Out: out, Literal: id.value})
	case identAxisCount:
		c.emit(Operation{Op: OpGroupSize, Out: out, In: []InputRef{axisRef(id.axis)}})
	case identAggregate:
		for i := len(c.loops) - 1; i >= 0; i-- {
			if c.loops[i].agg == id.agg {
				ref := InputRef{Kind: RefMember, Index: c.aggregate(id.agg), Loop: c.loops[i].depth, Pref: id.pref}
				c.emit(Operation{Op: OpEntity, Out: out, In: []InputRef{ref}})
				return nil
			}
		}
		return internal(n, "aggregated identifier outside its loop")
	default:
		return internal(n, "unclassified identifier")
	}
	return nil
}

func axisRef(axis Axis) InputRef {
	if axis == AxisCol {
		return InputRef{Kind: RefCol}
	}
	return InputRef{Kind: RefRow}
}

// CompileFirstPreferred compiles the N-party-preferred classifier: its
// integer result is the position in names of the entity the ballot ranks
// first, or len(names) when it ranks none of them. Below the line a group
// name stands for its best-ranked member.
func CompileFirstPreferred(ctx Context, names []string) (*Program, error) {
	if len(names) == 0 {
		return nil, errorf(ErrArity, -1, "first-preferred requires at least 1 name")
	}
	c := newCompiler(ctx)
	in := make([]InputRef, 0, len(names))
	for _, name := range names {
		if e, ok := ctx.LookupEntity(name); ok {
			in = append(in, InputRef{Kind: RefEntity, Index: e, Pref: true})
			continue
		}
		if g, ok := ctx.LookupGroup(name); ok && ctx.BelowTheLine() {
			in = append(in, InputRef{Kind: RefMembers, Index: c.aggregate(Aggregate{Group: g}), Pref: true})
			continue
		}
		return nil, errorf(ErrResolve, -1, "%s", name)
	}
	c.emit(Operation{Op: OpFirstPreferred, Out: c.newInt(), In: in})
	return c.program(TypeInt), nil
}

// CompilePredicate parses, validates and compiles a boolean expression
func CompilePredicate(src string, ctx Context) (*Program, error) {
	return compileSource(src, ctx, TypeBool)
}

// CompileValue parses, validates and compiles an integer expression
func CompileValue(src string, ctx Context) (*Program, error) {
	return compileSource(src, ctx, TypeInt)
}

func compileSource(src string, ctx Context, want Type) (*Program, error) {
	root, err := Parse(src)
	if err != nil {
		return nil, err
	}
	if err := Validate(root, ctx); err != nil {
		return nil, err
	}
	if root.Type != want {
		return nil, errorf(ErrType, root.Pos, "expression must be %s, got %s", want, root.Type)
	}
	return Compile(ctx, root)
}
