package mir

// BasicBlock is an intrusive ordered sequence of MIR instructions
// whose last instruction must be a terminator. Structurally analogous
// to internal/ir/cfg.BasicBlock: it is itself a Value referenced as a
// jump/branch operand, so predecessors are recovered from Users()
// rather than stored explicitly.
type BasicBlock struct {
	valueBase
	name   string
	parent *Function
	insts  []*Instruction
}

func NewBasicBlock(name string) *BasicBlock {
	bb := &BasicBlock{name: name}
	bb.kind = NodeBasicBlock
	return bb
}

func (b *BasicBlock) Name() string                 { return b.name }
func (b *BasicBlock) Parent() *Function             { return b.parent }
func (b *BasicBlock) Instructions() []*Instruction  { return b.insts }

func (b *BasicBlock) IsEntry() bool {
	return b.parent != nil && b.parent.Entry() == b
}

// Terminator returns the block's last instruction, or nil if the
// block is currently empty or not yet terminated.
func (b *BasicBlock) Terminator() *Instruction {
	if len(b.insts) == 0 {
		return nil
	}
	last := b.insts[len(b.insts)-1]
	if !last.Opcode().IsTerminator() {
		return nil
	}
	return last
}

func (b *BasicBlock) PushInst(inst *Instruction) {
	inst.parent = b
	b.insts = append(b.insts, inst)
}

// InsertInstBefore inserts inst immediately before anchor.
func (b *BasicBlock) InsertInstBefore(anchor, inst *Instruction) {
	inst.parent = b
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

// EraseInst unlinks inst from the block, first severing its operand
// and destination edges.
func (b *BasicBlock) EraseInst(inst *Instruction) {
	inst.ClearOperands()
	inst.SetDest(nil)
	for i, e := range b.insts {
		if e == inst {
			b.insts = append(b.insts[:i], b.insts[i+1:]...)
			return
		}
	}
}

// Predecessors recovers the blocks whose terminator references this
// block by scanning its user set.
func (b *BasicBlock) Predecessors() []*BasicBlock {
	seen := make(map[*BasicBlock]bool)
	var preds []*BasicBlock
	for _, inst := range b.Users() {
		if inst.parent == nil {
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
	switch term.Opcode() {
	case InstJump:
		return []*BasicBlock{term.Target()}
	case InstCondJump:
		return []*BasicBlock{term.TrueTarget(), term.FalseTarget()}
	default:
		return nil
	}
}

// Phis returns the block's leading Phi instructions.
func (b *BasicBlock) Phis() []*Instruction {
	var out []*Instruction
	for _, inst := range b.insts {
		if inst.Opcode() != InstPhi {
			break
		}
		out = append(out, inst)
	}
	return out
}
