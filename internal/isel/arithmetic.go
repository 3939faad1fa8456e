package isel

import (
	"scathac/internal/ir/cfg"
	"scathac/internal/mir"
)

var arithOpTable = map[cfg.ArithOp]mir.ArithOp{
	cfg.Add: mir.Add, cfg.Sub: mir.Sub, cfg.Mul: mir.Mul,
	cfg.SDiv: mir.SDiv, cfg.UDiv: mir.UDiv, cfg.SRem: mir.SRem, cfg.URem: mir.URem,
	cfg.Shl: mir.Shl, cfg.LShr: mir.LShr, cfg.AShr: mir.AShr,
	cfg.And: mir.And, cfg.Or: mir.Or, cfg.Xor: mir.Xor,
	cfg.FAdd: mir.FAdd, cfg.FSub: mir.FSub, cfg.FMul: mir.FMul, cfg.FDiv: mir.FDiv,
}

func (s *selector) selectArithmetic(inst *cfg.Instruction, mbb *mir.BasicBlock) {
	dest := s.dest(inst)
	op, ok := arithOpTable[inst.ArithOp()]
	if !ok {
		panic("isel: unary-only arith op reached selectArithmetic: " + inst.ArithOp().String())
	}
	lhs := s.desc.resolve(inst.Operands()[0])
	rhs := s.desc.resolve(inst.Operands()[1])
	mbb.PushInst(mir.NewArith(op, dest, lhs, rhs, widthOf(inst.Type())))
}

// selectUnaryArithmetic expands neg/not/fneg into the two-operand form
// the VM's instruction set actually offers (sub/xor/fsub against an
// identity constant), matching §4.8's instruction classes, which list
// no dedicated unary opcode family.
func (s *selector) selectUnaryArithmetic(inst *cfg.Instruction, mbb *mir.BasicBlock) {
	dest := s.dest(inst)
	operand := s.desc.resolve(inst.Operands()[0])
	width := widthOf(inst.Type())
	switch inst.ArithOp() {
	case cfg.Neg:
		mbb.PushInst(mir.NewArith(mir.Sub, dest, s.out.Constant(0), operand, width))
	case cfg.FNeg:
		mbb.PushInst(mir.NewArith(mir.FSub, dest, s.out.Constant(0), operand, width))
	case cfg.Not:
		allOnes := ^uint64(0)
		if width < 64 {
			allOnes = (uint64(1) << uint(width)) - 1
		}
		mbb.PushInst(mir.NewArith(mir.Xor, dest, operand, s.out.Constant(allOnes), width))
	default:
		panic("isel: unsupported unary arith op: " + inst.ArithOp().String())
	}
}
