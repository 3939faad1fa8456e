package passes

import (
	"scathac/internal/ir/analysis"
	"scathac/internal/ir/cfg"
	"scathac/internal/pipeline"
)

// looprotate converts a while-form loop (the exit test at the top,
// taken on every iteration including the first) into do-while form (a
// clone of the test at the bottom, on the backedge) by duplicating the
// header's condition-computing instructions into the loop's single
// latch. This exposes the loop body to the scheduler as straight-line
// code with a single conditional backedge instead of an unconditional
// jump back to a separate test block.
//
// The transform only fires for the restricted shape it can prove
// correct: a loop with exactly one latch and one entering
// (non-latch) predecessor, a header containing nothing but phis and
// side-effect-free instructions ending in a Branch, an exit block with
// no phis, and -- the key restriction -- none of the header's own
// values (its phis included) used anywhere outside the header. Once
// the latch starts branching straight to the body, the header is only
// ever entered once (the first iteration); a header value with a user
// in the body would need a new phi reconciling the header path and
// the rotated latch path, which this pass doesn't construct.
func looprotate(ctx *cfg.Context, fn *cfg.Function, _ pipeline.Args) bool {
	forest := analysis.Loops(fn)
	modified := false
	for _, loop := range allLoops(forest) {
		if rotateLoop(ctx, fn, loop) {
			modified = true
		}
	}
	if modified {
		fn.InvalidateAnalyses()
	}
	return modified
}

func allLoops(forest *analysis.LoopForest) []*analysis.Loop {
	var out []*analysis.Loop
	var walk func([]*analysis.Loop)
	walk = func(loops []*analysis.Loop) {
		for _, l := range loops {
			out = append(out, l)
			walk(l.Nested)
		}
	}
	walk(forest.Top)
	return out
}

func rotateLoop(ctx *cfg.Context, fn *cfg.Function, loop *analysis.Loop) bool {
	header := loop.Header
	term := header.Terminator()
	if term == nil || term.Kind() != cfg.NodeBranch {
		return false
	}

	var latch, preheader *cfg.BasicBlock
	for _, pred := range header.Predecessors() {
		if loop.Contains(pred) {
			if latch != nil {
				return false // multiple latches: not handled
			}
			latch = pred
		} else {
			if preheader != nil {
				return false // multiple entering edges: not handled
			}
			preheader = pred
		}
	}
	if latch == nil || preheader == nil {
		return false
	}
	if latchTerm := latch.Terminator(); latchTerm == nil || latchTerm.Kind() != cfg.NodeGoto || latchTerm.Target() != header {
		return false
	}

	bodyTarget, exitTarget := term.TrueTarget(), term.FalseTarget()
	if loop.Contains(bodyTarget) == loop.Contains(exitTarget) {
		return false // both or neither successor in-loop: not a simple guard
	}
	if !loop.Contains(bodyTarget) {
		bodyTarget, exitTarget = exitTarget, bodyTarget
	}
	if len(exitTarget.Phis()) != 0 {
		return false
	}
	for _, inst := range header.Instructions() {
		if inst == term {
			continue
		}
		for _, u := range inst.Users() {
			user, ok := u.(*cfg.Instruction)
			if !ok || user.Parent() != header {
				return false
			}
		}
	}

	remap := make(map[*cfg.Instruction]cfg.Value)
	for _, phi := range header.Phis() {
		v := phi.ValueFor(latch)
		if v == nil {
			return false
		}
		remap[phi] = v
	}

	var cloned []*cfg.Instruction
	for _, inst := range header.Instructions() {
		if inst.Kind() == cfg.NodePhi || inst == term {
			continue
		}
		if inst.HasSideEffects() {
			return false
		}
		clone, ok := cloneInstruction(ctx, inst, remap)
		if !ok {
			return false
		}
		remap[inst] = clone
		cloned = append(cloned, clone)
	}
	cond := resolveOperand(term.Condition(), remap)

	latchTerm := latch.Terminator()
	eraseInstruction(latchTerm)
	for _, c := range cloned {
		latch.PushInst(c)
	}
	latch.PushInst(cfg.NewBranch(ctx, cond, bodyTarget, exitTarget))
	for _, phi := range header.Phis() {
		phi.RemoveIncoming(latch)
	}
	return true
}

func resolveOperand(v cfg.Value, remap map[*cfg.Instruction]cfg.Value) cfg.Value {
	if src, ok := v.(*cfg.Instruction); ok {
		if r, found := remap[src]; found {
			return r
		}
	}
	return v
}

// cloneInstruction duplicates a pure instruction, resolving any
// operand that is itself a header instruction (phi or already-cloned)
// through remap; an operand resolving to nothing in remap is assumed
// to be defined outside the loop and is reused as-is.
func cloneInstruction(ctx *cfg.Context, inst *cfg.Instruction, remap map[*cfg.Instruction]cfg.Value) (*cfg.Instruction, bool) {
	resolve := func(v cfg.Value) cfg.Value { return resolveOperand(v, remap) }
	ops := inst.Operands()
	switch inst.Kind() {
	case cfg.NodeArithmetic:
		return cfg.NewArithmetic(inst.ArithOp(), resolve(ops[0]), resolve(ops[1]), inst.Type(), inst.Name()), true
	case cfg.NodeUnaryArithmetic:
		return cfg.NewUnaryArithmetic(inst.ArithOp(), resolve(ops[0]), inst.Type(), inst.Name()), true
	case cfg.NodeCompare:
		return cfg.NewCompare(ctx, inst.CompareMode(), inst.ComparePred(), resolve(ops[0]), resolve(ops[1]), inst.Name()), true
	case cfg.NodeConversion:
		return cfg.NewConversion(inst.ConvOp(), resolve(ops[0]), inst.Type(), inst.Name()), true
	case cfg.NodeGetElementPointer:
		var index cfg.Value
		if ops[1] != nil {
			index = resolve(ops[1])
		}
		return cfg.NewGEP(ctx, resolve(ops[0]), index, inst.GEPSteps(), inst.Name()), true
	default:
		return nil, false
	}
}

func registerLoopRotate(reg *pipeline.Registry) {
	reg.RegisterFunctionPass(&pipeline.FunctionPassDescriptor{
		Name:     "looprotate",
		Category: pipeline.Canonicalization,
		Run:      looprotate,
	})
}
