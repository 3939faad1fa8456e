package mirpasses

import "scathac/internal/mir"

// CopyCoalesce removes Move instructions whose destination virtual
// register can be folded into its source: dest must be defined
// nowhere but this move, and src must not be read again after it (not
// a member of the move's live-out set). Under those two conditions
// dest's entire live range begins at the move and src's ends there,
// so the two ranges never overlap elsewhere and renaming every use of
// dest to src is safe. This is a narrower, cheaper test than a full
// interference-graph coalesce (Briggs/George style, which can also
// merge registers whose ranges overlap only at the copy itself when
// the combined range still doesn't interfere with a third register);
// destroySSA's phi-elimination copies are exactly the case this
// captures, since each such copy's destination is fresh.
//
// Returns true if any move was folded away; callers loop until it
// returns false, since folding one copy can make a register that
// fed it newly eligible.
func CopyCoalesce(fn *mir.Function) bool {
	liveness := ComputeLiveSets(fn)
	liveOut := liveness.PerInstructionLiveOut(fn)

	changed := false
	for _, bb := range fn.Blocks() {
		insts := append([]*mir.Instruction(nil), bb.Instructions()...)
		for _, inst := range insts {
			if inst.Opcode() != mir.InstMove {
				continue
			}
			dest := inst.Dest()
			src, ok := inst.Operands()[0].(*mir.Register)
			if !ok || dest == nil {
				continue
			}
			if dest.NodeType() != mir.NodeVirtualRegister || src.NodeType() != mir.NodeVirtualRegister {
				continue
			}
			if dest.Words() != src.Words() {
				continue
			}
			if len(dest.Defs()) != 1 || dest.Defs()[0] != inst {
				continue
			}
			if liveOut[inst][src] {
				continue
			}
			mergeRegister(fn, dest, src)
			bb.EraseInst(inst)
			changed = true
		}
	}
	return changed
}

// mergeRegister rewrites every def and use of old to point at into
// instead, then drops old from the function's register set.
func mergeRegister(fn *mir.Function, old, into *mir.Register) {
	for _, def := range old.Defs() {
		def.SetDest(into)
	}
	for _, user := range old.Users() {
		for idx, op := range user.Operands() {
			if op == mir.Value(old) {
				user.SetOperand(idx, into)
			}
		}
	}
	fn.EraseRegister(old)
}
