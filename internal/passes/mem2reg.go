package passes

import (
	"scathac/internal/ir/analysis"
	"scathac/internal/ir/cfg"
	"scathac/internal/pipeline"
)

// mem2reg promotes every alloca in fn's entry block whose sole uses
// are direct, type-matching loads and stores into SSA values, inserting
// phi nodes at the iterated dominance frontier of its store sites per
// Cytron et al.'s classical construction, then renaming loads/stores to
// SSA def-use edges by a single dominator-tree-order walk. An alloca
// with any other kind of use (its address taken and passed elsewhere,
// a store of mismatched type, etc.) is left alone.
func mem2reg(ctx *cfg.Context, fn *cfg.Function, _ pipeline.Args) bool {
	allocas := promotableAllocas(fn)
	if len(allocas) == 0 {
		return false
	}
	dt := analysis.Dominance(fn)
	children := domChildren(fn, dt)
	for _, alloc := range allocas {
		promoteOne(ctx, fn, dt, children, alloc)
	}
	return true
}

func promotableAllocas(fn *cfg.Function) []*cfg.Instruction {
	entry := fn.Entry()
	if entry == nil {
		return nil
	}
	var out []*cfg.Instruction
	for _, inst := range entry.Instructions() {
		if inst.Kind() != cfg.NodeAlloca {
			continue
		}
		if isPromotable(inst) {
			out = append(out, inst)
		}
	}
	return out
}

func isPromotable(alloc *cfg.Instruction) bool {
	for _, u := range alloc.Users() {
		inst, ok := u.(*cfg.Instruction)
		if !ok {
			return false
		}
		switch inst.Kind() {
		case cfg.NodeLoad:
			if inst.Operands()[0] != cfg.Value(alloc) {
				return false
			}
			if inst.Type() != alloc.AllocType() {
				return false
			}
		case cfg.NodeStore:
			if inst.Operands()[0] != cfg.Value(alloc) {
				return false
			}
			if inst.Operands()[1].Type() != alloc.AllocType() {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func domChildren(fn *cfg.Function, dt *analysis.DomTree) map[*cfg.BasicBlock][]*cfg.BasicBlock {
	children := make(map[*cfg.BasicBlock][]*cfg.BasicBlock)
	for _, bb := range fn.Blocks() {
		if idom := dt.IDom(bb); idom != nil {
			children[idom] = append(children[idom], bb)
		}
	}
	return children
}

func promoteOne(ctx *cfg.Context, fn *cfg.Function, dt *analysis.DomTree, children map[*cfg.BasicBlock][]*cfg.BasicBlock, alloc *cfg.Instruction) {
	defBlocks := map[*cfg.BasicBlock]bool{}
	for _, u := range alloc.Users() {
		if inst, ok := u.(*cfg.Instruction); ok && inst.Kind() == cfg.NodeStore {
			defBlocks[inst.Parent()] = true
		}
	}

	phiBlocks := iteratedFrontier(dt, defBlocks)
	phis := make(map[*cfg.BasicBlock]*cfg.Instruction, len(phiBlocks))
	allocType := alloc.AllocType()
	for bb := range phiBlocks {
		phi := cfg.NewPhi(allocType, nil, alloc.Name())
		insertPhi(bb, phi)
		phis[bb] = phi
	}

	undef := ctx.UndefConst(allocType)
	var rename func(bb *cfg.BasicBlock, current cfg.Value)
	rename = func(bb *cfg.BasicBlock, current cfg.Value) {
		if phi, ok := phis[bb]; ok {
			current = cfg.Value(phi)
		}
		for _, inst := range append([]*cfg.Instruction(nil), bb.Instructions()...) {
			switch {
			case inst.Kind() == cfg.NodeLoad && inst.Operands()[0] == cfg.Value(alloc):
				cfg.ReplaceAllUsesWith(inst, current)
				eraseInstruction(inst)
			case inst.Kind() == cfg.NodeStore && inst.Operands()[0] == cfg.Value(alloc):
				current = inst.Operands()[1]
				eraseInstruction(inst)
			}
		}
		for _, succ := range bb.Successors() {
			if phi, ok := phis[succ]; ok {
				phi.SetIncoming(bb, current)
			}
		}
		for _, kid := range children[bb] {
			rename(kid, current)
		}
	}
	rename(fn.Entry(), cfg.Value(undef))
	eraseInstruction(alloc)
}

// insertPhi prepends phi to bb's instruction list, after any phis
// already there, matching Phis()'s "leading Phi instructions" contract.
func insertPhi(bb *cfg.BasicBlock, phi *cfg.Instruction) {
	existing := bb.Phis()
	if len(existing) == 0 {
		if len(bb.Instructions()) == 0 {
			bb.PushInst(phi)
		} else {
			bb.InsertInstBefore(bb.Instructions()[0], phi)
		}
		return
	}
	last := existing[len(existing)-1]
	insts := bb.Instructions()
	for i, inst := range insts {
		if inst == last {
			if i+1 < len(insts) {
				bb.InsertInstBefore(insts[i+1], phi)
			} else {
				bb.PushInst(phi)
			}
			return
		}
	}
}

// iteratedFrontier computes DF+(defBlocks): the dominance frontier of
// defBlocks, then the frontier of that result, iterated to a fixpoint
// -- the standard construction for where SSA needs phi nodes when a
// variable is defined in more than one block.
func iteratedFrontier(dt *analysis.DomTree, defBlocks map[*cfg.BasicBlock]bool) map[*cfg.BasicBlock]bool {
	result := map[*cfg.BasicBlock]bool{}
	worklist := make([]*cfg.BasicBlock, 0, len(defBlocks))
	for bb := range defBlocks {
		worklist = append(worklist, bb)
	}
	for len(worklist) > 0 {
		bb := worklist[len(worklist)-1]
		worklist = worklist[:len(worklist)-1]
		for _, df := range dt.Frontier(bb) {
			if !result[df] {
				result[df] = true
				worklist = append(worklist, df)
			}
		}
	}
	return result
}

func registerMem2Reg(reg *pipeline.Registry) {
	reg.RegisterFunctionPass(&pipeline.FunctionPassDescriptor{
		Name:     "memtoreg",
		Category: pipeline.Canonicalization,
		Run:      mem2reg,
	})
}
