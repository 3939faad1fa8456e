package mirpasses

import "scathac/internal/mir"

// AllocateRegisters colors fn's interference graph and rewrites every
// virtual register to the hardware register its color names, then
// elides the copies that coloring made redundant (a Move between two
// hardware registers with the same index). Requires fn to already be
// out of SSA form (DestroySSA must have run).
func AllocateRegisters(fn *mir.Function) {
	ig := ComputeInterference(fn)
	ig.Colorize()

	for _, reg := range ig.order {
		hw := fn.HardwareRegisterAt(ig.Color(reg), reg.Words())
		mergeRegister(fn, reg, hw)
	}

	elideRedundantCopies(fn)
}

// elideRedundantCopies removes Move instructions whose source and
// destination resolved, after coloring, to the same hardware index.
func elideRedundantCopies(fn *mir.Function) {
	for _, bb := range fn.Blocks() {
		insts := append([]*mir.Instruction(nil), bb.Instructions()...)
		for _, inst := range insts {
			if inst.Opcode() != mir.InstMove {
				continue
			}
			dst := inst.Dest()
			src, ok := inst.Operands()[0].(*mir.Register)
			if !ok || dst == nil {
				continue
			}
			if dst.NodeType() == mir.NodeHardwareRegister && src.NodeType() == mir.NodeHardwareRegister &&
				dst.Index() == src.Index() {
				bb.EraseInst(inst)
			}
		}
	}
}
