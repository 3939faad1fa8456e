// Package mir is the register-based intermediate form instruction
// selection lowers IR into: registers instead of SSA values with
// implicit types, basic blocks and functions structurally analogous to
// internal/ir/cfg, and a module that additionally interns constants by
// raw bit pattern rather than by type+value.
package mir

// NodeType discriminates every node in the MIR value hierarchy, the
// same closed-enum-plus-dyncast shape internal/ir/cfg uses one level
// up.
type NodeType int

const (
	NodeSSARegister NodeType = iota
	NodeVirtualRegister
	NodeCalleeRegister
	NodeHardwareRegister
	NodeConstant
	NodeBasicBlock
	NodeFunction
)

var nodeTypeNames = map[NodeType]string{
	NodeSSARegister:     "SSARegister",
	NodeVirtualRegister: "VirtualRegister",
	NodeCalleeRegister:  "CalleeRegister",
	NodeHardwareRegister: "HardwareRegister",
	NodeConstant:        "Constant",
	NodeBasicBlock:      "BasicBlock",
	NodeFunction:        "Function",
}

func (n NodeType) String() string {
	if s, ok := nodeTypeNames[n]; ok {
		return s
	}
	return "<invalid mir node>"
}

// IsRegister reports whether this node type is one of the four
// register variants.
func (n NodeType) IsRegister() bool {
	switch n {
	case NodeSSARegister, NodeVirtualRegister, NodeCalleeRegister, NodeHardwareRegister:
		return true
	default:
		return false
	}
}

// Value is anything usable as an MIR instruction operand: a register,
// a constant, or a basic block (jump/branch targets are operands of
// their terminator, exactly as in internal/ir/cfg).
type Value interface {
	NodeType() NodeType
	Users() []*Instruction

	addUser(*Instruction)
	removeUser(*Instruction)
}

// valueBase implements the common parts of Value. The user set is a
// counted multiset (map to int, not bool), as in internal/ir/cfg,
// because an instruction may read the same register from two
// different operand positions (e.g. a self-compare), and removing one
// such use must not drop the reverse edge entirely.
type valueBase struct {
	kind NodeType

	userOrder []*Instruction
	userCount map[*Instruction]int
}

func (v *valueBase) NodeType() NodeType { return v.kind }

func (v *valueBase) Users() []*Instruction {
	out := make([]*Instruction, len(v.userOrder))
	copy(out, v.userOrder)
	return out
}

func (v *valueBase) addUser(inst *Instruction) {
	if v.userCount == nil {
		v.userCount = make(map[*Instruction]int)
	}
	if v.userCount[inst] == 0 {
		v.userOrder = append(v.userOrder, inst)
	}
	v.userCount[inst]++
}

func (v *valueBase) removeUser(inst *Instruction) {
	n, ok := v.userCount[inst]
	if !ok {
		return
	}
	n--
	if n <= 0 {
		delete(v.userCount, inst)
		for i, o := range v.userOrder {
			if o == inst {
				v.userOrder = append(v.userOrder[:i], v.userOrder[i+1:]...)
				break
			}
		}
	} else {
		v.userCount[inst] = n
	}
}
