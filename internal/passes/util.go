// Package passes implements the canonical IR-to-IR transforms: dead
// code and dead function elimination, scalar promotion (SROA and
// mem2reg), algebraic simplification and constant propagation, CFG
// simplification, tail recursion elimination, loop rotation, global
// value numbering, and inlining. Each transform is registered with a
// pipeline.Registry via RegisterAll so the driver (or a test) can
// build a registry containing exactly the passes it wants.
package passes

import (
	"scathac/internal/ir/cfg"
	"scathac/internal/pipeline"
)

// eraseInstruction detaches inst from its operands' use lists and
// unlinks it from its block. The caller is responsible for having
// already redirected any of inst's own users elsewhere (or confirmed
// it has none) -- erasing a still-used instruction would silently
// leave dangling operand slots pointing at a detached value.
func eraseInstruction(inst *cfg.Instruction) {
	for i := range inst.Operands() {
		inst.SetOperand(i, nil)
	}
	inst.Parent().EraseInst(inst)
}

// asConstInt extracts an integer constant's APInt, reporting ok=false
// for any other value kind (including undef, which constant folding
// must not treat as a concrete value).
func asConstInt(v cfg.Value) (*cfg.ConstantInt, bool) {
	c, ok := v.(*cfg.ConstantInt)
	return c, ok
}

// RegisterAll registers every canonical transform and the two module
// passes (inline, deadfuncelim) into reg under their pipeline grammar
// names.
func RegisterAll(reg *pipeline.Registry) {
	registerDCE(reg)
	registerSimplifyCFG(reg)
	registerMem2Reg(reg)
	registerSROA(reg)
	registerInstCombine(reg)
	registerPropConst(reg)
	registerGVN(reg)
	registerTRE(reg)
	registerLoopRotate(reg)
	registerInline(reg)
	registerDeadFuncElim(reg)
}
