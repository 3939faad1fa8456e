package mirpasses

import "scathac/internal/mir"

// DestroySSA converts every SSARegister in fn to a VirtualRegister,
// rewrites self-recursive tail calls into a jump back to the loop
// body, and replaces each remaining phi with copy instructions
// inserted at the end of its predecessors: a phi
// `dest = phi [v1, pred1], [v2, pred2]` becomes a Move(dest, v1) at
// the end of pred1 and a Move(dest, v2) at the end of pred2, after
// which the phi itself is erased.
func DestroySSA(fn *mir.Function) {
	rewriteSelfTailCalls(fn)

	renamed := make(map[*mir.Register]*mir.Register)
	rename := func(old *mir.Register) *mir.Register {
		if old.NodeType() != mir.NodeSSARegister {
			return old
		}
		if nr, ok := renamed[old]; ok {
			return nr
		}
		nr := mir.NewVirtualRegister()
		nr.SetWords(old.Words())
		fn.AddRegister(nr)
		renamed[old] = nr
		return nr
	}

	type copyJob struct {
		pred  *mir.BasicBlock
		dest  *mir.Register
		src   mir.Value
		words int
	}
	var copies []copyJob
	var deadPhis []*mir.Instruction
	for _, bb := range fn.Blocks() {
		for _, phi := range bb.Phis() {
			for _, pred := range phi.IncomingBlocks() {
				copies = append(copies, copyJob{
					pred:  pred,
					dest:  phi.Dest(),
					src:   phi.ValueFor(pred),
					words: phi.Dest().Words(),
				})
			}
			deadPhis = append(deadPhis, phi)
		}
	}

	for _, bb := range fn.Blocks() {
		insts := append([]*mir.Instruction(nil), bb.Instructions()...)
		for _, inst := range insts {
			if d := inst.Dest(); d != nil && d.NodeType() == mir.NodeSSARegister {
				inst.SetDest(rename(d))
			}
			for idx, op := range inst.Operands() {
				if r, ok := op.(*mir.Register); ok && r.NodeType() == mir.NodeSSARegister {
					inst.SetOperand(idx, rename(r))
				}
			}
		}
	}

	for _, cj := range copies {
		dest := rename(cj.dest)
		src := cj.src
		if r, ok := cj.src.(*mir.Register); ok {
			src = rename(r)
		}
		mv := mir.NewMove(dest, src, cj.words*wordBits)
		if term := cj.pred.Terminator(); term != nil {
			cj.pred.InsertInstBefore(term, mv)
		} else {
			cj.pred.PushInst(mv)
		}
	}

	for _, phi := range deadPhis {
		phi.Parent().EraseInst(phi)
	}
}

// rewriteSelfTailCalls finds call sites of the shape
// `dest = call fn, args...; return dest` (or a void call immediately
// followed by a bare return) where the callee is fn itself and the
// call is marked as a tail call, and replaces the call+return pair
// with a parallel copy of args into fn's parameter registers followed
// by a Jump to fn.BodyEntry() -- turning self-recursion into a loop,
// exactly as ordinary tail-call elimination would, without needing a
// VM-level tail-jump-between-functions instruction. The copy goes
// through temporaries first so an argument that reads one parameter
// to compute another (`f(b, a)` assigning into params (a, b)) isn't
// corrupted by an earlier write in the same rewrite.
func rewriteSelfTailCalls(fn *mir.Function) {
	params := fn.Params()
	for _, bb := range fn.Blocks() {
		term := bb.Terminator()
		if term == nil || term.Opcode() != mir.InstReturn {
			continue
		}
		insts := bb.Instructions()
		if len(insts) < 2 {
			continue
		}
		call := insts[len(insts)-2]
		if call.Opcode() != mir.InstCall || !call.IsTailCall() {
			continue
		}
		if call.Callee() != fn {
			continue
		}
		if term.NumOperands() == 1 {
			retVal, ok := term.Operands()[0].(*mir.Register)
			if !ok || retVal != call.Dest() {
				continue
			}
		} else if call.Dest() != nil {
			continue
		}
		args := call.Args()
		if len(args) != len(params) {
			continue
		}

		temps := make([]*mir.Register, len(args))
		for i, a := range args {
			t := mir.NewVirtualRegister()
			t.SetWords(params[i].Words())
			fn.AddRegister(t)
			temps[i] = t
			bb.InsertInstBefore(call, mir.NewMove(t, a, params[i].Words()*wordBits))
		}
		for i, p := range params {
			bb.InsertInstBefore(call, mir.NewMove(p, temps[i], p.Words()*wordBits))
		}

		bb.EraseInst(term)
		bb.EraseInst(call)
		bb.PushInst(mir.NewJump(fn.BodyEntry()))
	}
}
