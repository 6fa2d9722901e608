package expr

import (
	"fmt"
	"strconv"
	"strings"
)

// Opcode is the operator of a compiled Operation
type Opcode uint8

const (
	OpTrue           Opcode = iota // bools[Out] = true
	OpConst                        // ints[Out] = Literal
	OpColumn                       // ints[Out] = data[Column]
	OpEntity                       // ints[Out] = In[0] (entity number, or its preference when Pref)
	OpPrefFor                      // ints[Out] = preference given to entity In[0], 999 out of range
	OpGroupSize                    // ints[Out] = number of candidates in the group In[0]
	OpInRange                      // bools[Out] = Low <= In[0] <= High
	OpEq                           // bools[Out] = In[0] == In[1]
	OpNe                           // bools[Out] = In[0] != In[1]
	OpLt                           // bools[Out] = In[0] < In[1]
	OpLe                           // bools[Out] = In[0] <= In[1]
	OpGt                           // bools[Out] = In[0] > In[1]
	OpGe                           // bools[Out] = In[0] >= In[1]
	OpNot                          // bools[Out] = !bools[In[0]]
	OpAnd                          // bools[Out] = bools[In[0]] && bools[In[1]]
	OpOr                           // bools[Out] = bools[In[0]] || bools[In[1]]
	OpAdd                          // ints[Out] = In[0] + In[1]
	OpSub                          // ints[Out] = In[0] - In[1]
	OpAbs                          // ints[Out] = |In[0]|
	OpMin                          // ints[Out] = min(In...), folding RefMembers inputs
	OpMax                          // ints[Out] = max(In...), folding RefMembers inputs
	OpIf                           // ints[Out] = bools[In[0]] ? In[1] : In[2]
	OpJump                         // pc = Jump
	OpJumpIfTrue                   // if bools[In[0]] { bools[Out] = true; pc = Jump }
	OpJumpIfFalse                  // if !bools[In[0]] { bools[Out] = false; pc = Jump }
	OpLoop                         // advance loop Loop over Aggregates[Agg]; when done bools[Out] = Literal != 0, pc = Jump
	OpBreakIfTrue                  // if bools[In[0]] { bools[Out] = true; end loop Loop; pc = Jump }
	OpBreakIfFalse                 // if !bools[In[0]] { bools[Out] = false; end loop Loop; pc = Jump }
	OpFirstPreferred               // ints[Out] = position of the input preferred first, len(In) if none
)

var opcodeNames = [...]string{
	OpTrue:           "true",
	OpConst:          "const",
	OpColumn:         "column",
	OpEntity:         "index",
	OpPrefFor:        "pi",
	OpGroupSize:      "count",
	OpInRange:        "in",
	OpEq:             "eq",
	OpNe:             "ne",
	OpLt:             "lt",
	OpLe:             "le",
	OpGt:             "gt",
	OpGe:             "ge",
	OpNot:            "not",
	OpAnd:            "and",
	OpOr:             "or",
	OpAdd:            "add",
	OpSub:            "sub",
	OpAbs:            "abs",
	OpMin:            "min",
	OpMax:            "max",
	OpIf:             "if",
	OpJump:           "jump",
	OpJumpIfTrue:     "jump-if-true",
	OpJumpIfFalse:    "jump-if-false",
	OpLoop:           "loop",
	OpBreakIfTrue:    "break-if-true",
	OpBreakIfFalse:   "break-if-false",
	OpFirstPreferred: "first-preferred",
}

func (op Opcode) String() string {
	if int(op) < len(opcodeNames) {
		return opcodeNames[op]
	}
	return "Opcode(" + strconv.Itoa(int(op)) + ")"
}

// boolResult reports whether the opcode writes the boolean stack
func (op Opcode) boolResult() bool {
	switch op {
	case OpTrue, OpInRange, OpEq, OpNe, OpLt, OpLe, OpGt, OpGe, OpNot, OpAnd, OpOr,
		OpJumpIfTrue, OpJumpIfFalse, OpLoop, OpBreakIfTrue, OpBreakIfFalse:
		return true
	}
	return false
}

// RefKind says where an input's value comes from
type RefKind uint8

const (
	RefSlot    RefKind = iota // a stack slot: ints, or bools for boolean opcodes
	RefRow                    // the entity bound to the row axis
	RefCol                    // the entity bound to the column axis
	RefEntity                 // constant entity number Index
	RefMember                 // member of Aggregates[Index] at loop Loop's position
	RefMembers                // every member of Aggregates[Index]; only folding opcodes
)

// InputRef is a tagged reference to an operation input. Entity references
// (all kinds but RefSlot) yield the entity number, or with Pref the
// preference number the ballot gives that entity.
type InputRef struct {
	Kind  RefKind
	Index int
	Loop  int
	Pref  bool
}

// Slot returns a reference to stack slot i
func Slot(i int) InputRef {
	return InputRef{Kind: RefSlot, Index: i}
}

func (r InputRef) String() string {
	var s string
	switch r.Kind {
	case RefSlot:
		return "$" + strconv.Itoa(r.Index)
	case RefRow:
		s = "row"
	case RefCol:
		s = "col"
	case RefEntity:
		s = "entity" + strconv.Itoa(r.Index)
	case RefMember:
		s = "agg" + strconv.Itoa(r.Index) + "[loop" + strconv.Itoa(r.Loop) + "]"
	case RefMembers:
		s = "agg" + strconv.Itoa(r.Index) + "[*]"
	default:
		s = "?"
	}
	if r.Pref {
		s = "pref(" + s + ")"
	}
	return s
}

// Operation is one compiled instruction
type Operation struct {
	Op      Opcode
	Out     int
	In      []InputRef
	Column  int
	Jump    int
	Literal int32
	Low     int32
	High    int32
	Loop    int
	Agg     int
}

func (o Operation) String() string {
	var b strings.Builder
	b.WriteString(o.Op.String())
	if o.Op == OpJump {
		fmt.Fprintf(&b, " ->%d", o.Jump)
		return b.String()
	}
	if o.Op.boolResult() {
		fmt.Fprintf(&b, " ?%d", o.Out)
	} else {
		fmt.Fprintf(&b, " $%d", o.Out)
	}
	for i, in := range o.In {
		b.WriteByte(' ')
		if in.Kind == RefSlot && (o.Op.boolInputs() || o.Op == OpIf && i == 0) {
			b.WriteString("?" + strconv.Itoa(in.Index))
		} else {
			b.WriteString(in.String())
		}
	}
	switch o.Op {
	case OpConst:
		fmt.Fprintf(&b, " %d", o.Literal)
	case OpColumn:
		fmt.Fprintf(&b, " col%d", o.Column)
	case OpInRange:
		fmt.Fprintf(&b, " %d..%d", o.Low, o.High)
	case OpLoop:
		fmt.Fprintf(&b, " loop%d agg%d default=%t ->%d", o.Loop, o.Agg, o.Literal != 0, o.Jump)
	case OpBreakIfTrue, OpBreakIfFalse:
		fmt.Fprintf(&b, " loop%d ->%d", o.Loop, o.Jump)
	case OpJumpIfTrue, OpJumpIfFalse:
		fmt.Fprintf(&b, " ->%d", o.Jump)
	}
	return b.String()
}

// boolInputs reports whether RefSlot inputs address the boolean stack
func (op Opcode) boolInputs() bool {
	switch op {
	case OpNot, OpAnd, OpOr, OpJumpIfTrue, OpJumpIfFalse, OpBreakIfTrue, OpBreakIfFalse:
		return true
	}
	return false
}

// Program is a compiled expression. Programs are immutable once built and
// may be shared by any number of engines.
type Program struct {
	Ops          []Operation
	Aggregates   []Aggregate
	NumInts      int
	NumBools     int
	MaxLoopDepth int
	Result       Type // TypeBool: read bools[0]; TypeInt: read ints[0]
}

// Aggregating reports whether the program reads aggregated groups and so
// needs the aggregating engine
func (p *Program) Aggregating() bool {
	return len(p.Aggregates) > 0
}

// String returns a disassembly, one operation per line
func (p *Program) String() string {
	var b strings.Builder
	for i, a := range p.Aggregates {
		fmt.Fprintf(&b, "agg%d = %v\n", i, a)
	}
	for i, op := range p.Ops {
		fmt.Fprintf(&b, "%3d  %v\n", i, op)
	}
	return b.String()
}
