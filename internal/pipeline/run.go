package pipeline

import "scathac/internal/ir/cfg"

// Run executes every step against mod in order, reporting whether any
// step modified the module. A bare function-pass step is the grammar's
// foreach sugar: it runs over every function currently in the module,
// in module order, and a function added mid-iteration by an earlier
// function in that same pass (none of the canonical transforms do
// this, but nothing stops a future one) is not visited -- the function
// slice is snapshotted before the loop starts.
func (p *Pipeline) Run(ctx *cfg.Context, mod *cfg.Module) bool {
	modified := false
	for _, step := range p.Steps {
		switch {
		case step.Func != nil:
			if runForeach(ctx, mod, step.Func.Desc.Run, step.Func.Args) {
				modified = true
			}
		case step.Module != nil:
			fp := composeFuncSteps(step.Module.FPasses)
			if step.Module.Desc.Run(ctx, mod, fp, step.Module.Args) {
				modified = true
			}
		}
	}
	return modified
}

func runForeach(ctx *cfg.Context, mod *cfg.Module, fn FunctionPass, args Args) bool {
	modified := false
	for _, f := range mod.Functions() {
		if fn(ctx, f, args) {
			modified = true
		}
	}
	return modified
}

// composeFuncSteps builds one FunctionPass that runs each of steps in
// order against the same function, ORing their "modified" results.
func composeFuncSteps(steps []FuncStep) FunctionPass {
	if len(steps) == 0 {
		return noopFunctionPass
	}
	return func(ctx *cfg.Context, fn *cfg.Function, _ Args) bool {
		modified := false
		for _, s := range steps {
			if s.Desc.Run(ctx, fn, s.Args) {
				modified = true
			}
		}
		return modified
	}
}
