package cfg

// NodeType is the single discriminant shared by every node in the
// Value hierarchy. common.Kinded[NodeType] is satisfied by every
// concrete node so the generic Is/Cast/TryCast helpers in
// internal/common work uniformly across the hierarchy.
type NodeType int

const (
	NodeIntConst NodeType = iota
	NodeFloatConst
	NodeUndefConst
	NodeNullPtrConst
	NodeRecordConst

	NodeGlobalVariable
	NodeGlobalConstant
	NodeFunction
	NodeParameter
	NodeBasicBlock

	NodeAlloca
	NodeLoad
	NodeStore
	NodeGetElementPointer
	NodeArithmetic
	NodeUnaryArithmetic
	NodeCompare
	NodeConversion
	NodePhi
	NodeCall
	NodeReturn
	NodeGoto
	NodeBranch
	NodeSelect
	NodeInsertValue
	NodeExtractValue
	NodeUnreachable
)

var nodeTypeNames = map[NodeType]string{
	NodeIntConst: "IntConst", NodeFloatConst: "FloatConst",
	NodeUndefConst: "UndefConst", NodeNullPtrConst: "NullPtrConst",
	NodeRecordConst: "RecordConst", NodeGlobalVariable: "GlobalVariable",
	NodeGlobalConstant: "GlobalConstant", NodeFunction: "Function",
	NodeParameter: "Parameter", NodeBasicBlock: "BasicBlock",
	NodeAlloca: "Alloca", NodeLoad: "Load", NodeStore: "Store",
	NodeGetElementPointer: "GetElementPointer", NodeArithmetic: "ArithmeticInst",
	NodeUnaryArithmetic: "UnaryArithmeticInst", NodeCompare: "CompareInst",
	NodeConversion: "ConversionInst", NodePhi: "Phi", NodeCall: "Call",
	NodeReturn: "Return", NodeGoto: "Goto", NodeBranch: "Branch",
	NodeSelect: "Select", NodeInsertValue: "InsertValue",
	NodeExtractValue: "ExtractValue", NodeUnreachable: "Unreachable",
}

func (n NodeType) String() string {
	if s, ok := nodeTypeNames[n]; ok {
		return s
	}
	return "<invalid node>"
}

// IsTerminator reports whether nodes of this kind may only appear as
// the last instruction of a basic block.
func (n NodeType) IsTerminator() bool {
	switch n {
	case NodeReturn, NodeGoto, NodeBranch, NodeUnreachable:
		return true
	default:
		return false
	}
}

// Value is the root of the IR node hierarchy. Every
// concrete node embeds valueBase, which implements all of its methods,
// including the two unexported edge-maintenance methods; those remain
// unexported so the hierarchy stays closed to this package.
type Value interface {
	Kind() NodeType
	Type() *Type
	Name() string
	HasName() bool
	SetName(string)
	Users() []User
	PointerInfo() *PointerInfo
	SetPointerInfo(PointerInfo)

	addUser(User)
	removeUser(User)
}

// User is a Value that owns an ordered sequence of operand edges.
// Operands returns the live backing slice (not a copy); callers must
// still mutate operands only through SetOperand so the reverse
// user-edge stays consistent.
type User interface {
	Value
	Operands() []Value
	SetOperand(i int, v Value)
	NumOperands() int
}

// valueBase implements Value. Concrete node types embed it by value.
// Nodes that are Users embed it through userBase and must call
// userBase.initSelf once, after construction, so that SetOperand
// registers the concrete node (e.g. *Instruction) with addUser/removeUser
// rather than the embedded base itself -- the standard Go workaround for
// the absence of a "self" reference in the C++ CRTP-based original.
type valueBase struct {
	kind    NodeType
	typ     *Type
	name    string
	ptrInfo *PointerInfo

	userOrder []User
	userCount map[User]int
}

func (v *valueBase) Kind() NodeType          { return v.kind }
func (v *valueBase) Type() *Type             { return v.typ }
func (v *valueBase) Name() string            { return v.name }
func (v *valueBase) HasName() bool           { return v.name != "" }
func (v *valueBase) SetName(n string)        { v.name = n }
func (v *valueBase) PointerInfo() *PointerInfo {
	return v.ptrInfo
}
func (v *valueBase) SetPointerInfo(pi PointerInfo) {
	cp := pi
	v.ptrInfo = &cp
}

func (v *valueBase) Users() []User {
	out := make([]User, len(v.userOrder))
	copy(out, v.userOrder)
	return out
}

func (v *valueBase) addUser(u User) {
	if v.userCount == nil {
		v.userCount = make(map[User]int)
	}
	if v.userCount[u] == 0 {
		v.userOrder = append(v.userOrder, u)
	}
	v.userCount[u]++
}

func (v *valueBase) removeUser(u User) {
	n, ok := v.userCount[u]
	if !ok {
		return
	}
	n--
	if n <= 0 {
		delete(v.userCount, u)
		for i, o := range v.userOrder {
			if o == u {
				v.userOrder = append(v.userOrder[:i], v.userOrder[i+1:]...)
				break
			}
		}
	} else {
		v.userCount[u] = n
	}
}

// userBase additionally implements User. self must be assigned by the
// concrete constructor immediately after allocation.
type userBase struct {
	valueBase
	self     User
	operands []Value
}

func (u *userBase) initSelf(self User, typ *Type, kind NodeType, numOperands int) {
	u.typ = typ
	u.kind = kind
	u.self = self
	u.operands = make([]Value, numOperands)
}

func (u *userBase) Operands() []Value { return u.operands }
func (u *userBase) NumOperands() int  { return len(u.operands) }

// SetOperand installs v as operand i, maintaining the reverse user-edge
// on both the old and new operand: first remove the reverse edge from
// the previous operand, then install the new operand and add its
// reverse edge.
func (u *userBase) SetOperand(i int, v Value) {
	old := u.operands[i]
	if old != nil {
		old.removeUser(u.self)
	}
	u.operands[i] = v
	if v != nil {
		v.addUser(u.self)
	}
}

// ReplaceAllUsesWith redirects every use of v to repl: it walks v's
// user set and rewrites each operand slot equal to v via SetOperand.
// Users are snapshotted first since SetOperand mutates the very set
// being iterated.
func ReplaceAllUsesWith(v Value, repl Value) {
	for _, u := range v.Users() {
		ops := u.Operands()
		for i, op := range ops {
			if op == v {
				u.SetOperand(i, repl)
			}
		}
	}
}
