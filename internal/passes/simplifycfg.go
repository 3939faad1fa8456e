package passes

import (
	"scathac/internal/ir/cfg"
	"scathac/internal/pipeline"
)

// simplifyCFG folds branches on a constant condition to a single goto,
// merges a block into its unique unconditional predecessor-successor
// partner, threads an empty goto-only block directly into its
// successor when that successor has no phis to reconcile, and removes
// every block no longer reachable from entry. Each sub-transform can
// expose opportunities for the others, so the whole pass iterates to a
// fixpoint.
func simplifyCFG(ctx *cfg.Context, fn *cfg.Function, _ pipeline.Args) bool {
	modified := false
	for {
		changed := false
		if foldConstantBranches(ctx, fn) {
			changed = true
		}
		if mergeStraightLineBlocks(fn) {
			changed = true
		}
		if threadEmptyBlocks(ctx, fn) {
			changed = true
		}
		if removeUnreachableBlocks(fn) {
			changed = true
		}
		if !changed {
			break
		}
		modified = true
	}
	if modified {
		fn.InvalidateAnalyses()
	}
	return modified
}

func foldConstantBranches(ctx *cfg.Context, fn *cfg.Function) bool {
	modified := false
	for _, bb := range fn.Blocks() {
		term := bb.Terminator()
		if term == nil || term.Kind() != cfg.NodeBranch {
			continue
		}
		c, ok := asConstInt(term.Condition())
		if !ok {
			continue
		}
		taken, dropped := term.TrueTarget(), term.FalseTarget()
		if c.Val.Value.Sign() == 0 {
			taken, dropped = term.FalseTarget(), term.TrueTarget()
		}
		eraseInstruction(term)
		bb.PushInst(cfg.NewGoto(ctx, taken))
		if dropped != taken {
			removeIncomingFrom(dropped, bb)
		}
		modified = true
	}
	return modified
}

// mergeStraightLineBlocks folds a successor into its sole predecessor
// when the edge between them is the successor's only inbound edge:
// the successor's phis then have exactly one incoming value each, so
// they're replaced outright rather than renamed.
func mergeStraightLineBlocks(fn *cfg.Function) bool {
	modified := false
	for _, bb := range fn.Blocks() {
		term := bb.Terminator()
		if term == nil || term.Kind() != cfg.NodeGoto {
			continue
		}
		succ := term.Target()
		if succ == bb || len(succ.Predecessors()) != 1 {
			continue
		}
		eraseInstruction(term)
		for _, phi := range succ.Phis() {
			cfg.ReplaceAllUsesWith(phi, phi.ValueFor(bb))
		}
		for _, inst := range append([]*cfg.Instruction(nil), succ.Instructions()...) {
			if inst.Kind() == cfg.NodePhi {
				eraseInstruction(inst)
				continue
			}
			succ.EraseInst(inst)
			bb.PushInst(inst)
		}
		fn.EraseBlock(succ)
		modified = true
	}
	return modified
}

// threadEmptyBlocks redirects every predecessor of a block whose sole
// content is an unconditional goto straight to that goto's target,
// skipping the empty block entirely -- but only when the target has no
// phis, since phi incoming-edge identity would otherwise need to be
// rewritten per original predecessor rather than simply dropped.
func threadEmptyBlocks(ctx *cfg.Context, fn *cfg.Function) bool {
	modified := false
	for _, bb := range fn.Blocks() {
		if bb == fn.Entry() {
			continue
		}
		insts := bb.Instructions()
		if len(insts) != 1 || insts[0].Kind() != cfg.NodeGoto {
			continue
		}
		target := insts[0].Target()
		if target == bb || len(target.Phis()) != 0 {
			continue
		}
		for _, pred := range bb.Predecessors() {
			predTerm := pred.Terminator()
			switch predTerm.Kind() {
			case cfg.NodeGoto:
				predTerm.SetOperand(0, target)
			case cfg.NodeBranch:
				if predTerm.TrueTarget() == bb {
					predTerm.SetTrueTarget(target)
				}
				if predTerm.FalseTarget() == bb {
					predTerm.SetFalseTarget(target)
				}
			}
			modified = true
		}
	}
	return modified
}

func removeUnreachableBlocks(fn *cfg.Function) bool {
	entry := fn.Entry()
	if entry == nil {
		return false
	}
	reachable := map[*cfg.BasicBlock]bool{entry: true}
	worklist := []*cfg.BasicBlock{entry}
	for len(worklist) > 0 {
		bb := worklist[len(worklist)-1]
		worklist = worklist[:len(worklist)-1]
		for _, succ := range bb.Successors() {
			if !reachable[succ] {
				reachable[succ] = true
				worklist = append(worklist, succ)
			}
		}
	}
	modified := false
	for _, bb := range append([]*cfg.BasicBlock(nil), fn.Blocks()...) {
		if reachable[bb] {
			continue
		}
		for _, succ := range bb.Successors() {
			removeIncomingFrom(succ, bb)
		}
		for _, inst := range append([]*cfg.Instruction(nil), bb.Instructions()...) {
			eraseInstruction(inst)
		}
		fn.EraseBlock(bb)
		modified = true
	}
	return modified
}

func removeIncomingFrom(target, pred *cfg.BasicBlock) {
	for _, phi := range target.Phis() {
		phi.RemoveIncoming(pred)
	}
}

func registerSimplifyCFG(reg *pipeline.Registry) {
	reg.RegisterFunctionPass(&pipeline.FunctionPassDescriptor{
		Name:     "simplifycfg",
		Category: pipeline.Simplification,
		Run:      simplifyCFG,
	})
}
