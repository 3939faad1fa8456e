package isel

import (
	"scathac/internal/ir/cfg"
	"scathac/internal/mir"
)

func (s *selector) selectPhi(inst *cfg.Instruction, mbb *mir.BasicBlock) {
	dest := s.dest(inst)
	incoming := make([]mir.PhiEdge, len(inst.IncomingBlocks()))
	for i, pred := range inst.IncomingBlocks() {
		incoming[i] = mir.PhiEdge{
			Block: s.desc.block(pred),
			Value: s.desc.resolve(inst.ValueFor(pred)),
		}
	}
	mbb.PushInst(mir.NewPhi(dest, incoming))
}

func (s *selector) selectReturn(inst *cfg.Instruction, mbb *mir.BasicBlock) {
	if inst.NumOperands() == 0 {
		mbb.PushInst(mir.NewReturn(nil))
		return
	}
	mbb.PushInst(mir.NewReturn(s.desc.resolve(inst.Operands()[0])))
}

// selectBranch recomputes the condition's comparison (if the
// condition is itself a Compare instruction) directly into flags and
// jumps on them, avoiding a materialized boolean register in the
// common case; otherwise it falls back to testing the resolved
// condition value against zero.
func (s *selector) selectBranch(inst *cfg.Instruction, mbb *mir.BasicBlock) {
	trueBB := s.desc.block(inst.TrueTarget())
	falseBB := s.desc.block(inst.FalseTarget())

	if cmp, ok := inst.Condition().(*cfg.Instruction); ok && cmp.Kind() == cfg.NodeCompare {
		lhs := s.desc.resolve(cmp.Operands()[0])
		rhs := s.desc.resolve(cmp.Operands()[1])
		mbb.PushInst(mir.NewCompare(cmpModeTable[cmp.CompareMode()], nil, lhs, rhs, widthOf(cmp.Operands()[0].Type())))
		mbb.PushInst(mir.NewCondJump(jumpCondFor(cmp.ComparePred()), trueBB, falseBB))
		return
	}

	cond := s.desc.resolve(inst.Condition())
	mbb.PushInst(mir.NewTest(mir.Unsigned, nil, cond, widthOf(inst.Condition().Type())))
	mbb.PushInst(mir.NewCondJump(mir.JumpNE, trueBB, falseBB))
}

func jumpCondFor(pred cfg.ComparePred) mir.JumpCond {
	switch pred {
	case cfg.CmpEQ:
		return mir.JumpEQ
	case cfg.CmpNE:
		return mir.JumpNE
	case cfg.CmpLT:
		return mir.JumpLT
	case cfg.CmpLE:
		return mir.JumpLE
	case cfg.CmpGT:
		return mir.JumpGT
	default:
		return mir.JumpGE
	}
}

func (s *selector) selectSelect(inst *cfg.Instruction, mbb *mir.BasicBlock) {
	dest := s.dest(inst)
	cond := s.desc.resolve(inst.Operands()[0])
	ifTrue := s.desc.resolve(inst.Operands()[1])
	ifFalse := s.desc.resolve(inst.Operands()[2])
	mbb.PushInst(mir.NewSelect(dest, cond, ifTrue, ifFalse))
}
