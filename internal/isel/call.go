package isel

import (
	"scathac/internal/ir/cfg"
	"scathac/internal/mir"
)

// selectCall lowers a call site per §4.5's calling convention: each
// argument is copied into a CalleeRegister sized by its type
// immediately before the Call instruction, mirroring
// materializeCallingConvention's entry-side counterpart. A callee with
// no body is a foreign declaration: it is registered in the module's
// FFI table (see mir.Module.DeclareExtern) and lowered to CallExt
// instead of an ordinary internal Call.
func (s *selector) selectCall(inst *cfg.Instruction, mbb *mir.BasicBlock) {
	args := s.materializeArgs(inst.Args(), mbb)

	var dest *mir.Register
	if !inst.Type().IsVoid() {
		dest = s.dest(inst)
	}

	if callee, ok := inst.Callee().(*cfg.Function); ok {
		if len(callee.Blocks()) == 0 {
			sig, err := signatureOf(callee)
			if err != nil {
				panic(err.Error())
			}
			index := s.out.DeclareExtern(sig)
			mbb.PushInst(mir.NewCallExt(dest, externSlot, index, args))
			return
		}
		mcallee, ok := s.fns[callee]
		if !ok {
			panic("isel: call to a function not present in the module being lowered: " + callee.Name())
		}
		call := mir.NewCall(dest, mcallee, args, inst.IsTailCall())
		mbb.PushInst(call)
		return
	}

	calleeReg := s.desc.resolve(inst.Callee())
	mbb.PushInst(mir.NewCallIndirect(dest, calleeReg, args))
}

// externSlot is the single FFI table slot a compiled module's own
// CallExt sites address; internal/ffi.Table performs the real,
// possibly multi-library slot assignment at VM load time.
const externSlot = 0

func (s *selector) materializeArgs(cfgArgs []cfg.Value, mbb *mir.BasicBlock) []mir.Value {
	args := make([]mir.Value, len(cfgArgs))
	for i, a := range cfgArgs {
		src := s.desc.resolve(a)
		creg := mir.NewCalleeRegister()
		creg.SetWords(NumWords(a.Type()))
		s.mfn.AddRegister(creg)
		mbb.PushInst(mir.NewMove(creg, src, widthOf(a.Type())))
		args[i] = creg
	}
	return args
}
