// Package isel lowers a typed SSA IR module (internal/ir/cfg) into the
// register-based MIR (internal/mir) that the MIR passes and the
// assembler operate on. Lowering runs one basic block at a time,
// resolving each IR value to an MIR operand through a per-function
// registerDescriptor and dispatching each instruction to a per-kind
// selector, mirroring original_source's per-block selection-DAG
// pattern matching with the DAG layer collapsed away: internal/ir/cfg
// already is a def-use graph (Operands()/Users()), so no separate
// SelectionNode indirection is needed to walk it bottom-up.
package isel

import (
	"fmt"

	"scathac/internal/common"
	"scathac/internal/ir/cfg"
	"scathac/internal/mir"
)

// WordSize is the target machine word width in bytes; a value of a
// given IR type occupies NumWords(type) consecutive registers.
const WordSize = 8

// NumWords returns how many machine words a value of type t occupies.
func NumWords(t *cfg.Type) int {
	if t.IsVoid() {
		return 0
	}
	size := t.Size()
	if size == 0 {
		return 0
	}
	return (size + WordSize - 1) / WordSize
}

// Lower builds an MIR module from mod. Functions are declared up front
// so call sites can reference callees defined later in module order.
func Lower(mod *cfg.Module) *mir.Module {
	out := mir.NewModule()
	fns := make(map[*cfg.Function]*mir.Function, len(mod.Functions()))
	for _, fn := range mod.Functions() {
		mfn := mir.NewFunction(fn.Name())
		out.AddFunction(mfn)
		fns[fn] = mfn
	}
	for _, fn := range mod.Functions() {
		lowerFunction(out, fn, fns[fn], fns)
	}
	return out
}

func lowerFunction(out *mir.Module, fn *cfg.Function, mfn *mir.Function, fns map[*cfg.Function]*mir.Function) {
	if len(fn.Blocks()) == 0 {
		return // external declaration, no body to select
	}
	desc := newRegisterDescriptor(out, mfn)
	sel := &selector{out: out, mfn: mfn, desc: desc, fns: fns}

	entryMoves := sel.materializeCallingConvention(fn)

	// The parameter-materialization copies live in their own prologue
	// block ahead of the IR's actual entry block, not folded into it:
	// destroySSA's self-tail-call-to-jump rewrite targets the IR
	// entry's corresponding MIR block directly, and if the copies
	// lived there a looped-back jump would re-run them against
	// now-stale CalleeRegister contents instead of the fresh values
	// the tail call just wrote into the loop's registers.
	if len(entryMoves) > 0 {
		prologue := mir.NewBasicBlock(fn.Blocks()[0].Name() + ".prologue")
		mfn.PushBlock(prologue)
		for _, mv := range entryMoves {
			prologue.PushInst(mv)
		}
		body := desc.block(fn.Blocks()[0])
		prologue.PushInst(mir.NewJump(body))
		mfn.SetBodyEntry(body)
	}

	// Pre-bind a destination register for every value-producing
	// instruction before emitting anything: a phi's incoming value may
	// be defined in a block that comes later in block order (a loop's
	// latch feeding its header), so resolution can't be deferred to
	// the point each instruction is actually selected.
	for _, bb := range fn.Blocks() {
		for _, inst := range bb.Instructions() {
			if !inst.Type().IsVoid() {
				sel.dest(inst)
			}
		}
	}

	for _, bb := range fn.Blocks() {
		mbb := desc.block(bb)
		if mbb.Parent() == nil {
			mfn.PushBlock(mbb)
		}
		for _, inst := range bb.Instructions() {
			sel.selectInstruction(inst, mbb)
		}
	}
}

// materializeCallingConvention gives each parameter a CalleeRegister
// sized by its type and binds the parameter's IR value to a fresh
// SSARegister, returning the leading moves that copy the incoming
// argument into that body-visible register -- the "materializes
// copies into callee-argument registers" step of §4.5's calling
// convention.
func (s *selector) materializeCallingConvention(fn *cfg.Function) []*mir.Instruction {
	moves := make([]*mir.Instruction, 0, len(fn.Params()))
	paramRegs := make([]*mir.Register, 0, len(fn.Params()))
	for _, p := range fn.Params() {
		words := NumWords(p.Type())
		creg := mir.NewCalleeRegister()
		creg.SetWords(words)
		s.mfn.AddRegister(creg)

		sreg := mir.NewSSARegister()
		sreg.SetWords(words)
		s.mfn.AddRegister(sreg)
		s.desc.bind(p, sreg)
		paramRegs = append(paramRegs, sreg)

		moves = append(moves, mir.NewMove(sreg, creg, p.Type().Size()*8))
	}
	s.mfn.SetParams(paramRegs)
	return moves
}

type selector struct {
	out  *mir.Module
	mfn  *mir.Function
	desc *registerDescriptor
	fns  map[*cfg.Function]*mir.Function
}

// selectInstruction is the per-IR-instruction-kind matcher dispatch:
// a plain Go type switch stands in for the macro-based SD_MATCH_CASE
// registration original_source uses, since Go has neither macros nor
// the static-initializer trick that drove that design.
func (s *selector) selectInstruction(inst *cfg.Instruction, mbb *mir.BasicBlock) {
	switch inst.Kind() {
	case cfg.NodeAlloca:
		s.selectAlloca(inst, mbb)
	case cfg.NodeLoad:
		s.selectLoad(inst, mbb)
	case cfg.NodeStore:
		s.selectStore(inst, mbb)
	case cfg.NodeGetElementPointer:
		s.selectGEP(inst, mbb)
	case cfg.NodeArithmetic:
		s.selectArithmetic(inst, mbb)
	case cfg.NodeUnaryArithmetic:
		s.selectUnaryArithmetic(inst, mbb)
	case cfg.NodeCompare:
		s.selectCompare(inst, mbb)
	case cfg.NodeConversion:
		s.selectConversion(inst, mbb)
	case cfg.NodePhi:
		s.selectPhi(inst, mbb)
	case cfg.NodeCall:
		s.selectCall(inst, mbb)
	case cfg.NodeReturn:
		s.selectReturn(inst, mbb)
	case cfg.NodeGoto:
		mbb.PushInst(mir.NewJump(s.desc.block(inst.Target())))
	case cfg.NodeBranch:
		s.selectBranch(inst, mbb)
	case cfg.NodeSelect:
		s.selectSelect(inst, mbb)
	case cfg.NodeUnreachable:
		mbb.PushInst(mir.NewTrap())
	case cfg.NodeInsertValue, cfg.NodeExtractValue:
		panic(fmt.Sprintf("isel: %s reached instruction selection; aggregates must be scalarized by sroa/mem2reg first", inst.Kind()))
	default:
		panic(fmt.Sprintf("isel: unhandled instruction kind %s", inst.Kind()))
	}
}

// dest returns inst's destination register, which the pre-binding pass
// in lowerFunction has already created; selectors never produce a
// register later than this lazily for an instruction kind that has
// none pre-bound.
func (s *selector) dest(inst *cfg.Instruction) *mir.Register {
	if mv, ok := s.desc.values[inst]; ok {
		return mv.(*mir.Register)
	}
	reg := mir.NewSSARegister()
	reg.SetWords(NumWords(inst.Type()))
	s.mfn.AddRegister(reg)
	s.desc.bind(inst, reg)
	return reg
}

func widthOf(t *cfg.Type) int {
	if t.IsFloat() || t.IsInteger() {
		return t.Bits()
	}
	return WordSize * 8
}
