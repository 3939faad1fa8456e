package mirpasses

import "scathac/internal/mir"

// Run executes the full MIR pass pipeline over every function defined
// in mod, in the order codegen's top-level driver applies them: select
// lowering (a pre-pass this port needs that original_source's
// target didn't, since this ISA has no cmov), dead code elimination,
// SSA destruction, copy coalescing (repeated to a fixed point, since
// each fold can make another move newly eligible), register
// allocation (which computes its own fresh liveness via
// ComputeInterference), callee-register devirtualization, then jump
// elision immediately before the module is handed to
// internal/assembly. External declarations (functions with no body)
// are skipped.
func Run(mod *mir.Module) {
	for _, fn := range mod.Functions() {
		if len(fn.Blocks()) == 0 {
			continue
		}
		LowerSelect(fn)
		DeadCodeElim(fn)
		DestroySSA(fn)
		for CopyCoalesce(fn) {
		}
		AllocateRegisters(fn)
		Devirtualize(fn)
		ElideJumps(fn)
	}
}
