package passes

import (
	"scathac/internal/ir/analysis"
	"scathac/internal/ir/cfg"
	"scathac/internal/pipeline"
)

// inline replaces a direct call to a single-basic-block callee with a
// clone of that block's instructions, substituting the call's
// arguments for the callee's parameters and the callee's return value
// for the call's own result. It refuses an indirect call (no resolved
// callee to clone), a callee with more than one block (inlining
// control flow would require splitting the caller's block and
// reconciling the split with a phi, which this pass doesn't do), a
// callee above max-callee-size instructions, and a callee that is its
// own or a mutual recursive partner of the caller, per the call
// graph's strongly-connected-component decomposition.
func inline(ctx *cfg.Context, mod *cfg.Module, fp pipeline.FunctionPass, args pipeline.Args) bool {
	maxSize := int(args.Number("max-callee-size"))
	cg := analysis.BuildCallGraph(mod)
	modified := false
	for _, fn := range mod.Functions() {
		if inlineCallsInFunction(ctx, fn, cg, maxSize) {
			modified = true
			if fp != nil {
				fp(ctx, fn, pipeline.Args{})
			}
		}
	}
	return modified
}

func inlineCallsInFunction(ctx *cfg.Context, fn *cfg.Function, cg *analysis.CallGraph, maxSize int) bool {
	modified := false
	for _, bb := range fn.Blocks() {
		for _, inst := range append([]*cfg.Instruction(nil), bb.Instructions()...) {
			if inst.Kind() != cfg.NodeCall {
				continue
			}
			callee, ok := inst.Callee().(*cfg.Function)
			if !ok {
				continue
			}
			if cg.InSameSCC(fn, callee) {
				continue
			}
			if !inlinable(callee, maxSize) {
				continue
			}
			if inlineCall(ctx, inst, callee) {
				modified = true
			}
		}
	}
	return modified
}

func inlinable(callee *cfg.Function, maxSize int) bool {
	if len(callee.Blocks()) != 1 {
		return false
	}
	block := callee.Entry()
	term := block.Terminator()
	if term == nil || term.Kind() != cfg.NodeReturn {
		return false
	}
	return len(block.Instructions()) <= maxSize
}

func inlineCall(ctx *cfg.Context, call *cfg.Instruction, callee *cfg.Function) bool {
	block := callee.Entry()
	term := block.Terminator()

	remap := make(map[cfg.Value]cfg.Value)
	for i, p := range callee.Params() {
		remap[cfg.Value(p)] = call.Args()[i]
	}

	callerBlock := call.Parent()
	for _, inst := range block.Instructions() {
		if inst == term {
			continue
		}
		clone, ok := cloneForInline(ctx, inst, remap)
		if !ok {
			return false
		}
		remap[cfg.Value(inst)] = clone
		callerBlock.InsertInstBefore(call, clone)
	}

	if ops := term.Operands(); len(ops) == 1 {
		cfg.ReplaceAllUsesWith(call, remapValue(ops[0], remap))
	}
	eraseInstruction(call)
	return true
}

func remapValue(v cfg.Value, remap map[cfg.Value]cfg.Value) cfg.Value {
	if r, ok := remap[v]; ok {
		return r
	}
	return v
}

// cloneForInline duplicates a callee instruction into the caller,
// resolving its operands through remap. It covers every non-terminator,
// non-phi instruction kind the IR defines; a callee containing a phi
// (impossible for a single, predecessor-less entry block) or any kind
// this switch doesn't know about fails the clone.
func cloneForInline(ctx *cfg.Context, inst *cfg.Instruction, remap map[cfg.Value]cfg.Value) (*cfg.Instruction, bool) {
	ops := inst.Operands()
	resolve := func(v cfg.Value) cfg.Value { return remapValue(v, remap) }
	switch inst.Kind() {
	case cfg.NodeAlloca:
		return cfg.NewAlloca(ctx, inst.AllocType(), resolve(ops[0]), inst.Name()), true
	case cfg.NodeLoad:
		return cfg.NewLoad(resolve(ops[0]), inst.Type(), inst.Name()), true
	case cfg.NodeStore:
		return cfg.NewStore(ctx, resolve(ops[0]), resolve(ops[1])), true
	case cfg.NodeGetElementPointer:
		var index cfg.Value
		if ops[1] != nil {
			index = resolve(ops[1])
		}
		return cfg.NewGEP(ctx, resolve(ops[0]), index, inst.GEPSteps(), inst.Name()), true
	case cfg.NodeArithmetic:
		return cfg.NewArithmetic(inst.ArithOp(), resolve(ops[0]), resolve(ops[1]), inst.Type(), inst.Name()), true
	case cfg.NodeUnaryArithmetic:
		return cfg.NewUnaryArithmetic(inst.ArithOp(), resolve(ops[0]), inst.Type(), inst.Name()), true
	case cfg.NodeCompare:
		return cfg.NewCompare(ctx, inst.CompareMode(), inst.ComparePred(), resolve(ops[0]), resolve(ops[1]), inst.Name()), true
	case cfg.NodeConversion:
		return cfg.NewConversion(inst.ConvOp(), resolve(ops[0]), inst.Type(), inst.Name()), true
	case cfg.NodeSelect:
		return cfg.NewSelect(resolve(ops[0]), resolve(ops[1]), resolve(ops[2]), inst.Type(), inst.Name()), true
	case cfg.NodeExtractValue:
		return cfg.NewExtractValue(resolve(ops[0]), inst.GEPSteps(), inst.Type(), inst.Name()), true
	case cfg.NodeInsertValue:
		return cfg.NewInsertValue(resolve(ops[0]), resolve(ops[1]), inst.GEPSteps(), inst.Name()), true
	case cfg.NodeCall:
		args := make([]cfg.Value, len(inst.Args()))
		for i, a := range inst.Args() {
			args[i] = resolve(a)
		}
		clone := cfg.NewCall(resolve(inst.Callee()), args, inst.Type(), inst.Name())
		clone.SetTailCall(false) // no longer in tail position once inlined
		return clone, true
	default:
		return nil, false
	}
}

func registerInline(reg *pipeline.Registry) {
	reg.RegisterModulePass(&pipeline.ModulePassDescriptor{
		Name:     "inline",
		Category: pipeline.Canonicalization,
		Args: []pipeline.ArgSpec{
			{Name: "max-callee-size", Type: pipeline.ArgNumber, Default: pipeline.ArgValue{Type: pipeline.ArgNumber, Num: 25}},
		},
		Run: inline,
	})
}
