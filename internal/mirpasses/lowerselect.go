package mirpasses

import "scathac/internal/mir"

// LowerSelect expands every InstSelect into an explicit if/else
// diamond: a Test against the condition, a conditional jump, two
// single-Move blocks (one per arm), and a merge block holding
// whatever instructions originally followed the Select. The bytecode
// ISA has no cmov-style instruction (see the VM instruction-set list:
// mov/arith/cmp/test/set/jump/load/store/call/trap, nothing
// conditional-move shaped), so Select can't survive past this pass
// the way it can on a target with a real cmov. Runs before
// ComputeLiveSets so liveness and register allocation see the
// diamond's real control flow rather than a single-block value
// materialization that never actually executes that way.
func LowerSelect(fn *mir.Function) bool {
	changed := false
	for {
		sel, bb := findSelect(fn)
		if sel == nil {
			break
		}
		lowerOneSelect(fn, bb, sel)
		changed = true
	}
	return changed
}

func findSelect(fn *mir.Function) (*mir.Instruction, *mir.BasicBlock) {
	for _, bb := range fn.Blocks() {
		for _, inst := range bb.Instructions() {
			if inst.Opcode() == mir.InstSelect {
				return inst, bb
			}
		}
	}
	return nil, nil
}

func lowerOneSelect(fn *mir.Function, bb *mir.BasicBlock, sel *mir.Instruction) {
	insts := bb.Instructions()
	idx := -1
	for i, in := range insts {
		if in == sel {
			idx = i
			break
		}
	}
	tail := append([]*mir.Instruction(nil), insts[idx+1:]...)

	merge := mir.NewBasicBlock(bb.Name() + ".select.merge")
	trueBlk := mir.NewBasicBlock(bb.Name() + ".select.true")
	falseBlk := mir.NewBasicBlock(bb.Name() + ".select.false")

	for i := len(insts) - 1; i >= idx; i-- {
		bb.EraseInst(insts[i])
	}

	cond := sel.Operands()[0]
	condWidth := wordBits
	if r, ok := cond.(*mir.Register); ok {
		condWidth = r.Words() * wordBits
	}
	bb.PushInst(mir.NewTest(mir.Unsigned, nil, cond, condWidth))
	bb.PushInst(mir.NewCondJump(mir.JumpNE, trueBlk, falseBlk))

	dest := sel.Dest()
	destWidth := dest.Words() * wordBits
	trueBlk.PushInst(mir.NewMove(dest, sel.Operands()[1], destWidth))
	trueBlk.PushInst(mir.NewJump(merge))
	falseBlk.PushInst(mir.NewMove(dest, sel.Operands()[2], destWidth))
	falseBlk.PushInst(mir.NewJump(merge))

	for _, in := range tail {
		merge.PushInst(in)
	}

	fn.InsertBlockAfter(bb, trueBlk)
	fn.InsertBlockAfter(trueBlk, falseBlk)
	fn.InsertBlockAfter(falseBlk, merge)

	sel.ClearOperands()
	sel.SetDest(nil)
}
