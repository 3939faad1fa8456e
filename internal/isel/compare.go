package isel

import (
	"scathac/internal/ir/cfg"
	"scathac/internal/mir"
)

var cmpModeTable = map[cfg.CompareMode]mir.CompareMode{
	cfg.Signed: mir.Signed, cfg.Unsigned: mir.Unsigned, cfg.Ordered: mir.Float,
}

var cmpPredTable = map[cfg.ComparePred]mir.ComparePred{
	cfg.CmpEQ: mir.CmpEQ, cfg.CmpNE: mir.CmpNE, cfg.CmpLT: mir.CmpLT,
	cfg.CmpLE: mir.CmpLE, cfg.CmpGT: mir.CmpGT, cfg.CmpGE: mir.CmpGE,
}

// selectCompare lowers a boolean-valued IR compare into the VM's two-
// instruction idiom: cmp sets the two-bit flag register, set{pred}
// materializes the boolean result. A compare feeding a Branch
// terminator is lowered again (without a Set) by selectBranch --
// flags are cheap to recompute and keeping each IR instruction's
// lowering self-contained avoids a cross-instruction "already
// selected" bookkeeping pass.
func (s *selector) selectCompare(inst *cfg.Instruction, mbb *mir.BasicBlock) {
	dest := s.dest(inst)
	lhs := s.desc.resolve(inst.Operands()[0])
	rhs := s.desc.resolve(inst.Operands()[1])
	mode := cmpModeTable[inst.CompareMode()]
	mbb.PushInst(mir.NewCompare(mode, nil, lhs, rhs, widthOf(inst.Operands()[0].Type())))
	mbb.PushInst(mir.NewSet(cmpPredTable[inst.ComparePred()], dest))
}

var convOpTable = map[cfg.ConvOp]mir.ConvOp{
	cfg.SExt: mir.SExt, cfg.ZExt: mir.ZExt, cfg.Trunc: mir.Trunc,
	cfg.SIToFP: mir.SIToFP, cfg.UIToFP: mir.UIToFP,
	cfg.FPToSI: mir.FPToSI, cfg.FPToUI: mir.FPToUI,
	cfg.FPExt: mir.FPExt, cfg.FPTrunc: mir.FPTrunc,
	cfg.Bitcast: mir.Bitcast, cfg.PtrToInt: mir.PtrToInt, cfg.IntToPtr: mir.IntToPtr,
}

func (s *selector) selectConversion(inst *cfg.Instruction, mbb *mir.BasicBlock) {
	dest := s.dest(inst)
	operand := s.desc.resolve(inst.Operands()[0])
	mbb.PushInst(mir.NewConvert(convOpTable[inst.ConvOp()], dest, operand))
}
