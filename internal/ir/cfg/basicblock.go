package cfg

// BasicBlock is an intrusive ordered sequence of instructions whose
// last instruction must be a terminator. It is
// itself a Value (not a User): it has no operands of its own, but is
// referenced as an operand by the terminators of its predecessors (a
// Goto's target, a Branch's true/false targets), so predecessors are
// recovered implicitly from Users() rather than stored explicitly.
type BasicBlock struct {
	valueBase
	parent *Function
	insts  []*Instruction
}

func NewBasicBlock(ctx *Context, name string) *BasicBlock {
	return &BasicBlock{valueBase: valueBase{kind: NodeBasicBlock, typ: ctx.VoidType(), name: name}}
}

func (b *BasicBlock) Parent() *Function      { return b.parent }
func (b *BasicBlock) Instructions() []*Instruction { return b.insts }

// Terminator returns the block's last instruction, or nil if the block
// is currently empty (only legal transiently during construction --
// every finished block must end in a terminator).
func (b *BasicBlock) Terminator() *Instruction {
	if len(b.insts) == 0 {
		return nil
	}
	last := b.insts[len(b.insts)-1]
	if !last.Kind().IsTerminator() {
		return nil
	}
	return last
}

// PushInst appends inst to the end of the block, assigning it a unique
// name via the owning function's name factory if it produces a value.
func (b *BasicBlock) PushInst(inst *Instruction) {
	inst.parent = b
	if b.parent != nil && inst.HasName() {
		inst.name = b.parent.UniqueName(inst.name)
	}
	b.insts = append(b.insts, inst)
}

// InsertInstBefore inserts inst immediately before anchor.
func (b *BasicBlock) InsertInstBefore(anchor, inst *Instruction) {
	inst.parent = b
	if b.parent != nil && inst.HasName() {
		inst.name = b.parent.UniqueName(inst.name)
	}
	for i, e := range b.insts {
		if e == anchor {
			b.insts = append(b.insts, nil)
			copy(b.insts[i+1:], b.insts[i:])
			b.insts[i] = inst
			return
		}
	}
	b.insts = append(b.insts, inst)
}

// EraseInst removes inst from the block. The caller must ensure inst
// has no remaining users (or have replaced them with undef) and must
// clear its operand edges first; EraseInst itself only unlinks the
// instruction from the block's list.
func (b *BasicBlock) EraseInst(inst *Instruction) {
	for i, e := range b.insts {
		if e == inst {
			b.insts = append(b.insts[:i], b.insts[i+1:]...)
			return
		}
	}
}

// Predecessors recovers the set of blocks whose terminator references
// this block by scanning its user set -- predecessors are never stored
// explicitly.
func (b *BasicBlock) Predecessors() []*BasicBlock {
	seen := make(map[*BasicBlock]bool)
	var preds []*BasicBlock
	for _, u := range b.Users() {
		inst, ok := u.(*Instruction)
		if !ok || inst.parent == nil {
			continue
		}
		if !seen[inst.parent] {
			seen[inst.parent] = true
			preds = append(preds, inst.parent)
		}
	}
	return preds
}

// Successors returns the blocks this block's terminator transfers
// control to, in operand order.
func (b *BasicBlock) Successors() []*BasicBlock {
	term := b.Terminator()
	if term == nil {
		return nil
	}
	var out []*BasicBlock
	switch term.Kind() {
	case NodeGoto:
		out = append(out, term.Operands()[0].(*BasicBlock))
	case NodeBranch:
		out = append(out, term.Operands()[1].(*BasicBlock), term.Operands()[2].(*BasicBlock))
	}
	return out
}

// Phis returns the block's leading Phi instructions.
func (b *BasicBlock) Phis() []*Instruction {
	var out []*Instruction
	for _, inst := range b.insts {
		if inst.Kind() != NodePhi {
			break
		}
		out = append(out, inst)
	}
	return out
}
