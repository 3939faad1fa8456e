package mirpasses

import "scathac/internal/mir"

// DeadCodeElim removes instructions whose destination register has no
// users and whose opcode has no side effects, repeating to a fixed
// point since removing one instruction can make its own operands'
// sole remaining definitions dead in turn. It is not as powerful as
// the IR-level dce (internal/passes) since an instruction with no
// destination -- Compare or Test feeding a later Set or CondJump --
// is never a removal candidate here even when its flags go unread;
// that dead-cycle case is expected to already have been caught by IR
// DCE before instruction selection runs.
func DeadCodeElim(fn *mir.Function) bool {
	changed := false
	for {
		removedThisRound := false
		for _, bb := range fn.Blocks() {
			insts := append([]*mir.Instruction(nil), bb.Instructions()...)
			for _, inst := range insts {
				if inst.Opcode().HasSideEffects() {
					continue
				}
				d := inst.Dest()
				if d == nil {
					continue
				}
				if len(d.Users()) > 0 {
					continue
				}
				bb.EraseInst(inst)
				fn.EraseRegister(d)
				removedThisRound = true
				changed = true
			}
		}
		if !removedThisRound {
			break
		}
	}
	return changed
}
