package expr

// Validate checks a parsed tree before compilation. The first pass enforces
// operand counts and types and records each node's Type. The second pass
// decides where aggregated identifiers may appear and records the aggregate
// walked by each any/all node in Node.Agg.
func Validate(root *Node, ctx Context) error {
	if err := checkTypes(root); err != nil {
		return err
	}
	return checkAggregates(root, nil, false, ctx)
}

// operandRule describes what a node requires of its children
type operandRule struct {
	min, max int    // child count bounds, max -1 for unbounded
	operands []Type // per child; the last entry repeats
	result   Type
}

var operandRules = map[NodeOp]operandRule{
	NodeTrue:    {0, 0, nil, TypeBool},
	NodeInt:     {0, 0, nil, TypeInt},
	NodeIdent:   {0, 0, nil, TypeInt},
	NodeInRange: {1, 1, []Type{TypeInt}, TypeBool},
	NodeEq:      {2, 2, []Type{TypeInt}, TypeBool},
	NodeNe:      {2, 2, []Type{TypeInt}, TypeBool},
	NodeLt:      {2, 2, []Type{TypeInt}, TypeBool},
	NodeLe:      {2, 2, []Type{TypeInt}, TypeBool},
	NodeGt:      {2, 2, []Type{TypeInt}, TypeBool},
	NodeGe:      {2, 2, []Type{TypeInt}, TypeBool},
	NodeNot:     {1, 1, []Type{TypeBool}, TypeBool},
	NodeAnd:     {2, 2, []Type{TypeBool}, TypeBool},
	NodeOr:      {2, 2, []Type{TypeBool}, TypeBool},
	NodeAdd:     {2, 2, []Type{TypeInt}, TypeInt},
	NodeSub:     {2, 2, []Type{TypeInt}, TypeInt},
	NodeAbs:     {1, 1, []Type{TypeInt}, TypeInt},
	NodeMin:     {1, -1, []Type{TypeInt}, TypeInt},
	NodeMax:     {1, -1, []Type{TypeInt}, TypeInt},
	NodeIf:      {3, 3, []Type{TypeBool, TypeInt, TypeInt}, TypeInt},
	NodePi:      {1, 1, []Type{TypeInt}, TypeInt},
	NodeAny:     {1, 1, []Type{TypeBool}, TypeBool},
	NodeAll:     {1, 1, []Type{TypeBool}, TypeBool},
}

// checkTypes validates n bottom-up and sets n.Type
func checkTypes(n *Node) error {
	rule, ok := operandRules[n.Op]
	if !ok {
		return nodeError(ErrInternal, n, "unknown operator %v", n.Op)
	}

	count := len(n.Children)
	switch {
	case rule.min == rule.max && count != rule.min:
		return nodeError(ErrArity, n, "%v requires exactly %d %s, got %d", n.Op, rule.min, plural(rule.min, "operand"), count)
	case count < rule.min:
		return nodeError(ErrArity, n, "%v requires at least %d %s, got %d", n.Op, rule.min, plural(rule.min, "operand"), count)
	case rule.max >= 0 && count > rule.max:
		return nodeError(ErrArity, n, "%v accepts at most %d %s, got %d", n.Op, rule.max, plural(rule.max, "operand"), count)
	}

	switch n.Op {
	case NodeInt:
		if len(n.Ints) != 1 {
			return nodeError(ErrArity, n, "int literal requires exactly 1 value, got %d", len(n.Ints))
		}
	case NodeInRange:
		if len(n.Ints) != 2 {
			return nodeError(ErrArity, n, "in requires a low and a high bound, got %d values", len(n.Ints))
		}
	case NodeIdent:
		if n.Name == "" {
			return nodeError(ErrArity, n, "identifier requires a name")
		}
	}

	for i, c := range n.Children {
		if err := checkTypes(c); err != nil {
			return err
		}
		want := rule.operands[len(rule.operands)-1]
		if i < len(rule.operands) {
			want = rule.operands[i]
		}
		if c.Type != want {
			return nodeError(ErrType, n, "%v requires %s operand %d, got %s", n.Op, want, i+1, c.Type)
		}
	}

	n.Type = rule.result
	return nil
}

// aggregateOf returns the aggregate an identifier stands for, if any.
// Unresolvable names are left for the compiler to report.
func aggregateOf(n *Node, ctx Context) (Aggregate, bool) {
	if n.Op != NodeIdent {
		return Aggregate{}, false
	}
	id, err := resolveIdent(ctx, n.Name)
	if err != nil || id.kind != identAggregate {
		return Aggregate{}, false
	}
	return id.agg, true
}

func isFold(parent *Node) bool {
	return parent != nil && (parent.Op == NodeMin || parent.Op == NodeMax)
}

// checkAggregates enforces placement of aggregated identifiers
func checkAggregates(n, parent *Node, inLoop bool, ctx Context) error {
	if agg, ok := aggregateOf(n, ctx); ok {
		if !inLoop && !isFold(parent) {
			return nodeError(ErrAggregate, n, "%s stands for the members of %v and must appear inside any() or all(), or directly in min() or max()", n.Name, agg)
		}
		return nil
	}

	if n.Op == NodeAny || n.Op == NodeAll {
		found := map[Aggregate]bool{}
		for _, c := range n.Children {
			collectAggregates(c, n, ctx, found)
		}
		if len(found) != 1 {
			return nodeError(ErrAggregate, n, "%v requires exactly one aggregated identifier, found %d", n.Op, len(found))
		}
		for agg := range found {
			a := agg
			n.Agg = &a
		}
		inLoop = true
	}

	for _, c := range n.Children {
		if err := checkAggregates(c, n, inLoop, ctx); err != nil {
			return err
		}
	}
	return nil
}

// collectAggregates gathers the distinct aggregates a loop body reads
// directly, skipping nested loops and min/max folds which own theirs
func collectAggregates(n, parent *Node, ctx Context, found map[Aggregate]bool) {
	if agg, ok := aggregateOf(n, ctx); ok {
		if !isFold(parent) {
			found[agg] = true
		}
		return
	}
	if n.Op == NodeAny || n.Op == NodeAll {
		return
	}
	for _, c := range n.Children {
		collectAggregates(c, n, ctx, found)
	}
}
