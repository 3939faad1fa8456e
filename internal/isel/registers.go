package isel

import (
	"scathac/internal/common"
	"scathac/internal/ir/cfg"
	"scathac/internal/mir"
)

// registerDescriptor resolves IR values to MIR operands within one
// function, mirroring original_source's CodeGen/IR2ByteCode
// RegisterDescriptor: a named value is assigned a register the first
// time it is resolved and every later reference reuses it; constants
// resolve directly to an immediate value with no register allocated
// at all, and basic blocks resolve to their MIR counterpart (created
// lazily so a forward branch target need not already exist).
type registerDescriptor struct {
	fn     *mir.Function
	module *mir.Module
	values map[cfg.Value]mir.Value
	blocks map[*cfg.BasicBlock]*mir.BasicBlock
}

func newRegisterDescriptor(mod *mir.Module, fn *mir.Function) *registerDescriptor {
	return &registerDescriptor{
		fn:     fn,
		module: mod,
		values: make(map[cfg.Value]mir.Value),
		blocks: make(map[*cfg.BasicBlock]*mir.BasicBlock),
	}
}

func (d *registerDescriptor) block(bb *cfg.BasicBlock) *mir.BasicBlock {
	if mbb, ok := d.blocks[bb]; ok {
		return mbb
	}
	mbb := mir.NewBasicBlock(bb.Name())
	d.blocks[bb] = mbb
	return mbb
}

// bind records that v resolves to reg, used once by whichever selector
// first produces v's value (a parameter at function entry, or an
// instruction's destination register).
func (d *registerDescriptor) bind(v cfg.Value, reg *mir.Register) {
	d.values[v] = reg
}

// resolve returns the MIR operand for v: its already-bound register,
// a freshly interned Constant for an integer/float/undef/null-pointer
// constant, or its lazily created MIR basic block. Aggregate constants
// and globals are not expected to survive to instruction selection
// (sroa/mem2reg scalarize aggregates; globals are addressed through
// their own alloca-equivalent lowering, out of scope for this pass).
func (d *registerDescriptor) resolve(v cfg.Value) mir.Value {
	if v == nil {
		return nil
	}
	if bb, ok := v.(*cfg.BasicBlock); ok {
		return d.block(bb)
	}
	if mv, ok := d.values[v]; ok {
		return mv
	}
	switch c := v.(type) {
	case *cfg.ConstantInt:
		return d.module.Constant(c.Val.Value.Uint64())
	case *cfg.ConstantFloat:
		return d.module.Constant(floatBits(c.Val))
	case *cfg.ConstantUndef:
		return d.module.Constant(0)
	case *cfg.ConstantNullPtr:
		return d.module.Constant(0)
	default:
		panic("isel: value has no register binding and is not a resolvable constant: " + v.Kind().String())
	}
}

func floatBits(v common.APFloat) uint64 {
	if v.Bits == 32 {
		return uint64(float32ToBits(float32(v.Value)))
	}
	return float64ToBits(v.Value)
}
