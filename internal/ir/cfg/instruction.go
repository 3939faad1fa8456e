package cfg

import "scathac/internal/common"

// Instruction is every non-terminator and terminator operation inside a
// basic block. Rather than one concrete Go type per subvariant,
// Instruction is a single tagged struct discriminated by Kind() -- the
// same shape the rest of this package's node hierarchy uses, applied
// one level deeper here because the per-kind payloads are small enough
// that a family of accessor methods reads better than a family of
// nearly-identical wrapper types. Each accessor below documents which
// Kind()s it is valid for; calling one on the wrong kind panics, since
// that indicates a compiler bug rather than a user-facing condition.
type Instruction struct {
	userBase
	parent *BasicBlock

	// Alloca
	allocType  *Type
	allocCount Value // NewAlloca stores a constant i64 1 when given nil

	// GetElementPointer: Operands()[0] is the base pointer,
	// Operands()[1] is the optional runtime array index (nil if none).
	// gepOffsets is the static constant-struct-index / offset sequence
	// applied after the runtime index, in source order.
	gepOffsets []GEPStep

	// ArithmeticInst / UnaryArithmeticInst
	arithOp ArithOp

	// CompareInst
	cmpMode CompareMode
	cmpPred ComparePred

	// ConversionInst
	convOp ConvOp

	// Call
	tailCall bool

	// Phi: Operands()[i] corresponds to phiBlocks[i], and phiBlocks must
	// equal the block's predecessor list.
	phiBlocks []*BasicBlock
}

func (i *Instruction) Parent() *BasicBlock { return i.parent }

// GEPStep is one element of a GetElementPointer's static offset
// sequence: either a constant struct-member index (applied via the
// member's precomputed byte offset) or a raw byte offset.
type GEPStep struct {
	StructIndex int  // -1 if this step is a raw byte offset instead
	ByteOffset  int
}

type ArithOp int

const (
	Add ArithOp = iota
	Sub
	Mul
	SDiv
	UDiv
	SRem
	URem
	Shl
	LShr
	AShr
	And
	Or
	Xor
	FAdd
	FSub
	FMul
	FDiv
	Neg  // unary
	Not  // unary, bitwise complement
	FNeg // unary
)

func (op ArithOp) String() string {
	names := [...]string{"add", "sub", "mul", "sdiv", "udiv", "srem", "urem",
		"shl", "lshr", "ashr", "and", "or", "xor", "fadd", "fsub", "fmul", "fdiv",
		"neg", "not", "fneg"}
	if int(op) < len(names) {
		return names[op]
	}
	return "<invalid arith op>"
}

// CompareMode selects the operand interpretation for CompareInst.
type CompareMode int

const (
	Signed CompareMode = iota
	Unsigned
	Ordered // float
)

// ComparePred is the relation tested.
type ComparePred int

const (
	CmpEQ ComparePred = iota
	CmpNE
	CmpLT
	CmpLE
	CmpGT
	CmpGE
)

func (p ComparePred) String() string {
	return [...]string{"eq", "ne", "lt", "le", "gt", "ge"}[p]
}

// ConvOp enumerates ConversionInst's operator.
type ConvOp int

const (
	SExt ConvOp = iota
	ZExt
	Trunc
	SIToFP
	UIToFP
	FPToSI
	FPToUI
	FPExt
	FPTrunc
	Bitcast
	PtrToInt
	IntToPtr
)

func (op ConvOp) String() string {
	names := [...]string{"sext", "zext", "trunc", "sitofp", "uitofp",
		"fptosi", "fptoui", "fpext", "fptrunc", "bitcast", "ptrtoint", "inttoptr"}
	return names[op]
}

func newInst(kind NodeType, typ *Type, numOperands int) *Instruction {
	inst := &Instruction{}
	inst.initSelf(inst, typ, kind, numOperands)
	return inst
}

// NewAlloca allocates storage for a value of allocType; count is nil
// for a single-element allocation or a Value operand for a dynamically
// sized one.
func NewAlloca(ctx *Context, allocType *Type, count Value, name string) *Instruction {
	inst := newInst(NodeAlloca, ctx.PointerType(), 1)
	inst.allocType = allocType
	inst.name = name
	if count == nil {
		count = ctx.IntConst(common.NewAPInt(64, 1), ctx.IntegerType(64))
	}
	inst.SetOperand(0, count)
	inst.allocCount = count
	return inst
}

func (i *Instruction) AllocType() *Type { return i.allocType }

// NewLoad reads Type() from the pointer operand.
func NewLoad(ptr Value, typ *Type, name string) *Instruction {
	inst := newInst(NodeLoad, typ, 1)
	inst.name = name
	inst.SetOperand(0, ptr)
	return inst
}

// NewStore writes val to ptr; Store has void type.
func NewStore(ctx *Context, ptr, val Value) *Instruction {
	inst := newInst(NodeStore, ctx.VoidType(), 2)
	inst.SetOperand(0, ptr)
	inst.SetOperand(1, val)
	return inst
}

// NewGEP computes a pointer offset from base.
// index is the optional runtime array index (nil if none).
func NewGEP(ctx *Context, base, index Value, steps []GEPStep, name string) *Instruction {
	inst := newInst(NodeGetElementPointer, ctx.PointerType(), 2)
	inst.name = name
	inst.SetOperand(0, base)
	inst.SetOperand(1, index)
	inst.gepOffsets = append([]GEPStep(nil), steps...)
	return inst
}

func (i *Instruction) GEPSteps() []GEPStep { return i.gepOffsets }

func NewArithmetic(op ArithOp, lhs, rhs Value, typ *Type, name string) *Instruction {
	inst := newInst(NodeArithmetic, typ, 2)
	inst.arithOp = op
	inst.name = name
	inst.SetOperand(0, lhs)
	inst.SetOperand(1, rhs)
	return inst
}

func NewUnaryArithmetic(op ArithOp, operand Value, typ *Type, name string) *Instruction {
	inst := newInst(NodeUnaryArithmetic, typ, 1)
	inst.arithOp = op
	inst.name = name
	inst.SetOperand(0, operand)
	return inst
}

func (i *Instruction) ArithOp() ArithOp { return i.arithOp }

func NewCompare(ctx *Context, mode CompareMode, pred ComparePred, lhs, rhs Value, name string) *Instruction {
	inst := newInst(NodeCompare, ctx.IntegerType(1), 2)
	inst.cmpMode = mode
	inst.cmpPred = pred
	inst.name = name
	inst.SetOperand(0, lhs)
	inst.SetOperand(1, rhs)
	return inst
}

func (i *Instruction) CompareMode() CompareMode { return i.cmpMode }
func (i *Instruction) ComparePred() ComparePred { return i.cmpPred }

func NewConversion(op ConvOp, operand Value, typ *Type, name string) *Instruction {
	inst := newInst(NodeConversion, typ, 1)
	inst.convOp = op
	inst.name = name
	inst.SetOperand(0, operand)
	return inst
}

func (i *Instruction) ConvOp() ConvOp { return i.convOp }

// NewPhi creates a phi node with one operand slot per predecessor
// block, in the same order.
func NewPhi(typ *Type, incoming []PhiEdge, name string) *Instruction {
	inst := newInst(NodePhi, typ, len(incoming))
	inst.name = name
	for idx, e := range incoming {
		inst.SetOperand(idx, e.Value)
		inst.phiBlocks = append(inst.phiBlocks, e.Block)
	}
	return inst
}

type PhiEdge struct {
	Block *BasicBlock
	Value Value
}

// IncomingBlocks returns the predecessor blocks in operand order.
func (i *Instruction) IncomingBlocks() []*BasicBlock { return i.phiBlocks }

// ValueFor returns the incoming value for predecessor pred, or nil if
// pred is not among the phi's incoming edges.
func (i *Instruction) ValueFor(pred *BasicBlock) Value {
	for idx, b := range i.phiBlocks {
		if b == pred {
			return i.operands[idx]
		}
	}
	return nil
}

// SetIncoming sets (or adds, if pred is new) the incoming value for
// predecessor pred.
func (i *Instruction) SetIncoming(pred *BasicBlock, v Value) {
	for idx, b := range i.phiBlocks {
		if b == pred {
			i.SetOperand(idx, v)
			return
		}
	}
	i.operands = append(i.operands, nil)
	i.SetOperand(len(i.operands)-1, v)
	i.phiBlocks = append(i.phiBlocks, pred)
}

// RemoveIncoming drops the incoming edge from pred, used when a
// predecessor edge is removed by simplifyCFG.
func (i *Instruction) RemoveIncoming(pred *BasicBlock) {
	for idx, b := range i.phiBlocks {
		if b == pred {
			i.SetOperand(idx, nil)
			i.operands = append(i.operands[:idx], i.operands[idx+1:]...)
			i.phiBlocks = append(i.phiBlocks[:idx], i.phiBlocks[idx+1:]...)
			return
		}
	}
}

// NewCall invokes callee (a *Function or any indirect Callable value)
// with args. SetTailCall marks the call as a tail call; instruction
// selection copies the mark into MIR, where DestroySSA turns a marked
// self-call followed by its return into a jump. The IR-level tre pass
// does not read the mark.
func NewCall(callee Value, args []Value, retType *Type, name string) *Instruction {
	inst := newInst(NodeCall, retType, 1+len(args))
	inst.name = name
	inst.SetOperand(0, callee)
	for idx, a := range args {
		inst.SetOperand(1+idx, a)
	}
	return inst
}

func (i *Instruction) Callee() Value      { return i.operands[0] }
func (i *Instruction) Args() []Value      { return i.operands[1:] }
func (i *Instruction) IsTailCall() bool   { return i.tailCall }
func (i *Instruction) SetTailCall(b bool) { i.tailCall = b }

// NewReturn: operands is empty for a void return, or one value operand.
func NewReturn(ctx *Context, val Value) *Instruction {
	n := 0
	if val != nil {
		n = 1
	}
	inst := newInst(NodeReturn, ctx.VoidType(), n)
	if val != nil {
		inst.SetOperand(0, val)
	}
	return inst
}

// NewGoto is an unconditional terminator to target.
func NewGoto(ctx *Context, target *BasicBlock) *Instruction {
	inst := newInst(NodeGoto, ctx.VoidType(), 1)
	inst.SetOperand(0, target)
	return inst
}

func (i *Instruction) Target() *BasicBlock { return i.operands[0].(*BasicBlock) }

// NewBranch is a conditional terminator.
func NewBranch(ctx *Context, cond Value, ifTrue, ifFalse *BasicBlock) *Instruction {
	inst := newInst(NodeBranch, ctx.VoidType(), 3)
	inst.SetOperand(0, cond)
	inst.SetOperand(1, ifTrue)
	inst.SetOperand(2, ifFalse)
	return inst
}

func (i *Instruction) Condition() Value    { return i.operands[0] }
func (i *Instruction) TrueTarget() *BasicBlock  { return i.operands[1].(*BasicBlock) }
func (i *Instruction) FalseTarget() *BasicBlock { return i.operands[2].(*BasicBlock) }

// SetTrueTarget / SetFalseTarget update a Branch's successors, used by
// simplifyCFG when threading trivial branches.
func (i *Instruction) SetTrueTarget(bb *BasicBlock)  { i.SetOperand(1, bb) }
func (i *Instruction) SetFalseTarget(bb *BasicBlock) { i.SetOperand(2, bb) }

func NewUnreachable(ctx *Context) *Instruction {
	return newInst(NodeUnreachable, ctx.VoidType(), 0)
}

func NewSelect(cond, ifTrue, ifFalse Value, typ *Type, name string) *Instruction {
	inst := newInst(NodeSelect, typ, 3)
	inst.name = name
	inst.SetOperand(0, cond)
	inst.SetOperand(1, ifTrue)
	inst.SetOperand(2, ifFalse)
	return inst
}

// NewInsertValue returns a new aggregate equal to agg with the member
// at the given GEP-style step sequence replaced by val.
func NewInsertValue(agg, val Value, steps []GEPStep, name string) *Instruction {
	inst := newInst(NodeInsertValue, agg.Type(), 2)
	inst.name = name
	inst.SetOperand(0, agg)
	inst.SetOperand(1, val)
	inst.gepOffsets = append([]GEPStep(nil), steps...)
	return inst
}

func NewExtractValue(agg Value, steps []GEPStep, typ *Type, name string) *Instruction {
	inst := newInst(NodeExtractValue, typ, 1)
	inst.name = name
	inst.SetOperand(0, agg)
	inst.gepOffsets = append([]GEPStep(nil), steps...)
	return inst
}

// HasSideEffects reports whether DCE may remove this instruction purely
// because it has no users.
func (i *Instruction) HasSideEffects() bool {
	switch i.Kind() {
	case NodeStore, NodeCall, NodeReturn, NodeGoto, NodeBranch, NodeUnreachable:
		return true
	default:
		return false
	}
}
