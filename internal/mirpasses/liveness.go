// Package mirpasses implements the MIR-to-MIR transformation pipeline
// that runs between instruction selection (internal/isel) and assembly
// emission (internal/assembly): select lowering, dead code
// elimination, SSA destruction, copy coalescing, register allocation,
// devirtualization of callee registers, and jump elision, in the order
// Run applies them, plus the liveness analysis that copy coalescing
// and register allocation build on.
package mirpasses

import "scathac/internal/mir"

// wordBits is the bit width of one MIR register word; mirrors
// internal/isel.WordSize*8 without importing isel, since mirpasses has
// no other reason to depend on the selection layer.
const wordBits = 64

// Liveness holds a function's live-in and live-out register sets, one
// per basic block, computed over the function's control-flow graph by
// backward fixed-point iteration. Phi operands are attributed to the
// corresponding predecessor's live-out set rather than the phi's own
// block, the standard SSA liveness convention.
type Liveness struct {
	liveIn  map[*mir.BasicBlock]map[*mir.Register]bool
	liveOut map[*mir.BasicBlock]map[*mir.Register]bool
}

// LiveIn returns the registers live at bb's entry.
func (l *Liveness) LiveIn(bb *mir.BasicBlock) map[*mir.Register]bool { return l.liveIn[bb] }

// LiveOut returns the registers live at bb's exit.
func (l *Liveness) LiveOut(bb *mir.BasicBlock) map[*mir.Register]bool { return l.liveOut[bb] }

// ComputeLiveSets computes live-in/live-out sets for every block of fn.
// It accepts fn before or after DestroySSA: any phis still present have
// their operands resolved against the matching predecessor, and
// CopyCoalesce and ComputeInterference call it on phi-free code.
func ComputeLiveSets(fn *mir.Function) *Liveness {
	blocks := fn.Blocks()
	l := &Liveness{
		liveIn:  make(map[*mir.BasicBlock]map[*mir.Register]bool, len(blocks)),
		liveOut: make(map[*mir.BasicBlock]map[*mir.Register]bool, len(blocks)),
	}
	for _, bb := range blocks {
		l.liveIn[bb] = map[*mir.Register]bool{}
		l.liveOut[bb] = map[*mir.Register]bool{}
	}

	for changed := true; changed; {
		changed = false
		for i := len(blocks) - 1; i >= 0; i-- {
			bb := blocks[i]

			out := map[*mir.Register]bool{}
			for _, succ := range bb.Successors() {
				for r := range l.liveIn[succ] {
					out[r] = true
				}
				for _, phi := range succ.Phis() {
					if v := phi.ValueFor(bb); v != nil {
						if r, ok := v.(*mir.Register); ok {
							out[r] = true
						}
					}
				}
			}

			in := copySet(out)
			insts := bb.Instructions()
			for i := len(insts) - 1; i >= 0; i-- {
				inst := insts[i]
				if inst.Opcode() == mir.InstPhi {
					continue // phi uses are live-out of predecessors, not live-in here
				}
				if d := inst.Dest(); d != nil {
					delete(in, d)
				}
				for _, op := range inst.Operands() {
					if r, ok := op.(*mir.Register); ok {
						in[r] = true
					}
				}
			}
			for _, phi := range bb.Phis() {
				if d := phi.Dest(); d != nil {
					delete(in, d)
				}
			}

			if !equalSet(in, l.liveIn[bb]) {
				l.liveIn[bb] = in
				changed = true
			}
			if !equalSet(out, l.liveOut[bb]) {
				l.liveOut[bb] = out
				changed = true
			}
		}
	}
	return l
}

// PerInstructionLiveOut returns, for every instruction in fn, the set
// of registers live immediately after it executes. Built by replaying
// the same backward scan ComputeLiveSets used per block, seeded from
// each block's already-converged live-out set.
func (l *Liveness) PerInstructionLiveOut(fn *mir.Function) map[*mir.Instruction]map[*mir.Register]bool {
	result := make(map[*mir.Instruction]map[*mir.Register]bool)
	for _, bb := range fn.Blocks() {
		live := copySet(l.liveOut[bb])
		insts := bb.Instructions()
		for i := len(insts) - 1; i >= 0; i-- {
			inst := insts[i]
			result[inst] = copySet(live)
			if inst.Opcode() == mir.InstPhi {
				continue
			}
			if d := inst.Dest(); d != nil {
				delete(live, d)
			}
			for _, op := range inst.Operands() {
				if r, ok := op.(*mir.Register); ok {
					live[r] = true
				}
			}
		}
		for _, phi := range bb.Phis() {
			if d := phi.Dest(); d != nil {
				delete(live, d)
			}
		}
	}
	return result
}

func copySet(s map[*mir.Register]bool) map[*mir.Register]bool {
	out := make(map[*mir.Register]bool, len(s))
	for r := range s {
		out[r] = true
	}
	return out
}

func equalSet(a, b map[*mir.Register]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for r := range a {
		if !b[r] {
			return false
		}
	}
	return true
}
