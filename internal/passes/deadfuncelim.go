package passes

import (
	"scathac/internal/ir/analysis"
	"scathac/internal/ir/cfg"
	"scathac/internal/pipeline"
)

// deadFuncElim deletes every function unreachable from an externally
// visible root by walking the module's static call graph. A function
// with any indirect call reachable from a root is treated
// conservatively: its own callees can't be enumerated from the call
// graph alone, but the function itself is still just a node -- it's
// kept or dropped by reachability like any other.
func deadFuncElim(ctx *cfg.Context, mod *cfg.Module, _ pipeline.FunctionPass, _ pipeline.Args) bool {
	cg := analysis.BuildCallGraph(mod)
	reachable := map[*cfg.Function]bool{}
	var worklist []*cfg.Function
	for _, fn := range mod.Functions() {
		if fn.Visibility() == cfg.External {
			reachable[fn] = true
			worklist = append(worklist, fn)
		}
	}
	for len(worklist) > 0 {
		fn := worklist[len(worklist)-1]
		worklist = worklist[:len(worklist)-1]
		node, ok := cg.Nodes[fn]
		if !ok {
			continue
		}
		for _, callee := range node.Callees {
			if !reachable[callee] {
				reachable[callee] = true
				worklist = append(worklist, callee)
			}
		}
	}

	modified := false
	for _, fn := range append([]*cfg.Function(nil), mod.Functions()...) {
		if reachable[fn] {
			continue
		}
		mod.EraseFunction(fn)
		modified = true
	}
	return modified
}

func registerDeadFuncElim(reg *pipeline.Registry) {
	reg.RegisterModulePass(&pipeline.ModulePassDescriptor{
		Name:     "deadfuncelim",
		Category: pipeline.Simplification,
		Run:      deadFuncElim,
	})
}
