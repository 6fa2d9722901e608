package expr

import (
	"strconv"
	"strings"
)

// NodeOp is the operator tag of an expression tree node
type NodeOp int

const (
	NodeTrue NodeOp = iota
	NodeInt
	NodeIdent
	NodeInRange
	NodeEq
	NodeNe
	NodeLt
	NodeLe
	NodeGt
	NodeGe
	NodeNot
	NodeAnd
	NodeOr
	NodeAdd
	NodeSub
	NodeAbs
	NodeMin
	NodeMax
	NodeIf
	NodePi
	NodeAny
	NodeAll
)

var nodeNames = [...]string{
	NodeTrue:    "true",
	NodeInt:     "int",
	NodeIdent:   "identifier",
	NodeInRange: "in",
	NodeEq:      "=",
	NodeNe:      "!=",
	NodeLt:      "<",
	NodeLe:      "<=",
	NodeGt:      ">",
	NodeGe:      ">=",
	NodeNot:     "not",
	NodeAnd:     "and",
	NodeOr:      "or",
	NodeAdd:     "+",
	NodeSub:     "-",
	NodeAbs:     "abs",
	NodeMin:     "min",
	NodeMax:     "max",
	NodeIf:      "if",
	NodePi:      "pi",
	NodeAny:     "any",
	NodeAll:     "all",
}

// String returns the operator's display name
func (op NodeOp) String() string {
	if op >= 0 && int(op) < len(nodeNames) {
		return nodeNames[op]
	}
	return "NodeOp(" + strconv.Itoa(int(op)) + ")"
}

// relational reports whether op is a comparison
func (op NodeOp) relational() bool {
	return op >= NodeEq && op <= NodeGe
}

// Type is the expression type of a node
type Type int

const (
	TypeUnknown Type = iota
	TypeBool
	TypeInt
)

func (t Type) String() string {
	switch t {
	case TypeBool:
		return "boolean"
	case TypeInt:
		return "integer"
	default:
		return "unknown"
	}
}

// Node is an expression tree node. Each node owns its children.
type Node struct {
	Op       NodeOp
	Children []*Node
	Ints     []int32 // value of NodeInt, bounds of NodeInRange
	Name     string  // NodeIdent
	Type     Type    // set by Validate
	Agg      *Aggregate
	Pos      int
}

// Dump renders a structural dump of the subtree, e.g. (abs (int 1) (int 2))
func (n *Node) Dump() string {
	var b strings.Builder
	n.dump(&b)
	return b.String()
}

func (n *Node) dump(b *strings.Builder) {
	b.WriteByte('(')
	b.WriteString(n.Op.String())
	switch n.Op {
	case NodeIdent:
		b.WriteByte(' ')
		b.WriteString(n.Name)
	case NodeInt:
		for _, v := range n.Ints {
			b.WriteByte(' ')
			b.WriteString(strconv.Itoa(int(v)))
		}
	case NodeInRange:
		if len(n.Ints) == 2 {
			b.WriteString(" " + strconv.Itoa(int(n.Ints[0])) + ".." + strconv.Itoa(int(n.Ints[1])))
		}
	}
	for _, c := range n.Children {
		b.WriteByte(' ')
		c.dump(b)
	}
	b.WriteByte(')')
}

// Walk calls fn for n and each descendant in pre-order. If fn returns
// false the children of that node are skipped.
func (n *Node) Walk(fn func(*Node) bool) {
	if !fn(n) {
		return
	}
	for _, c := range n.Children {
		c.Walk(fn)
	}
}
