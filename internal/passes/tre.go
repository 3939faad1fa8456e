package passes

import (
	"scathac/internal/ir/cfg"
	"scathac/internal/pipeline"
)

// tre (tail recursion elimination) rewrites every self-tail-call --
// a call to fn itself immediately followed by a return of that call's
// result (or, for a void function, by a bare return with the call
// otherwise unused) -- into a backedge, turning linear stack growth
// into a loop. Parameters are threaded through a phi inserted at a new
// loop-header block spliced in right after the entry block; the
// original entry becomes a one-instruction preheader so the phi's
// "first iteration" incoming value is a real CFG edge rather than a
// value with no predecessor to attach to.
func tre(ctx *cfg.Context, fn *cfg.Function, _ pipeline.Args) bool {
	oldEntry := fn.Entry()
	if oldEntry == nil {
		return false
	}
	sites := findTailCallSites(fn)
	if len(sites) == 0 {
		return false
	}

	loopHeader := cfg.NewBasicBlock(ctx, "tailrecur.loop")
	fn.InsertBlockAfter(oldEntry, loopHeader)
	for _, inst := range append([]*cfg.Instruction(nil), oldEntry.Instructions()...) {
		oldEntry.EraseInst(inst)
		loopHeader.PushInst(inst)
	}
	oldEntry.PushInst(cfg.NewGoto(ctx, loopHeader))

	phis := make([]*cfg.Instruction, len(fn.Params()))
	for i, p := range fn.Params() {
		phi := cfg.NewPhi(p.Type(), nil, p.Name())
		insertPhi(loopHeader, phi)
		cfg.ReplaceAllUsesWith(p, phi)
		phi.SetIncoming(oldEntry, p)
		phis[i] = phi
	}

	for _, site := range sites {
		// site.call may have been re-parented from oldEntry into
		// loopHeader by the splice above (a self-call in the entry
		// block itself) -- read its current parent, not the
		// pre-splice block captured at detection time.
		block := site.call.Parent()
		for i, arg := range site.call.Args() {
			phis[i].SetIncoming(block, arg)
		}
		eraseInstruction(site.ret)
		eraseInstruction(site.call)
		block.PushInst(cfg.NewGoto(ctx, loopHeader))
	}

	fn.InvalidateAnalyses()
	return true
}

type tailCallSite struct {
	call *cfg.Instruction
	ret  *cfg.Instruction
}

func findTailCallSites(fn *cfg.Function) []tailCallSite {
	var sites []tailCallSite
	for _, bb := range fn.Blocks() {
		insts := bb.Instructions()
		if len(insts) < 2 {
			continue
		}
		ret := insts[len(insts)-1]
		call := insts[len(insts)-2]
		if ret.Kind() != cfg.NodeReturn || call.Kind() != cfg.NodeCall {
			continue
		}
		if call.Callee() != cfg.Value(fn) {
			continue
		}
		if !isTailReturnOf(ret, call) {
			continue
		}
		sites = append(sites, tailCallSite{call: call, ret: ret})
	}
	return sites
}

func isTailReturnOf(ret, call *cfg.Instruction) bool {
	ops := ret.Operands()
	if len(ops) == 0 {
		return call.Type().IsVoid() && len(call.Users()) == 0
	}
	if len(ops) != 1 || ops[0] != cfg.Value(call) {
		return false
	}
	users := call.Users()
	return len(users) == 1 && users[0] == cfg.User(ret)
}

func registerTRE(reg *pipeline.Registry) {
	reg.RegisterFunctionPass(&pipeline.FunctionPassDescriptor{
		Name:     "tailrecur",
		Category: pipeline.Canonicalization,
		Run:      tre,
	})
}
