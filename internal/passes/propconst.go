package passes

import (
	"scathac/internal/common"
	"scathac/internal/ir/cfg"
	"scathac/internal/pipeline"
)

// propconst folds a phi all of whose incoming values are the same
// constant into that constant directly, and folds integer-to-integer
// conversions (sext, zext, trunc, bitcast) of a constant operand.
// instcombine owns arithmetic folding, and neither pass folds
// compares; this pass owns the two shapes that only appear once a
// branch or loop has been simplified away, so it is most useful after
// simplifycfg has pruned dead edges out of a phi's incoming set.
func propconst(ctx *cfg.Context, fn *cfg.Function, _ pipeline.Args) bool {
	modified := false
	for _, bb := range fn.Blocks() {
		for _, inst := range append([]*cfg.Instruction(nil), bb.Instructions()...) {
			switch inst.Kind() {
			case cfg.NodePhi:
				if foldUniformPhi(inst) {
					modified = true
				}
			case cfg.NodeConversion:
				if foldConversion(ctx, inst) {
					modified = true
				}
			}
		}
	}
	return modified
}

func foldUniformPhi(phi *cfg.Instruction) bool {
	var uniform *cfg.ConstantInt
	for _, op := range phi.Operands() {
		c, ok := asConstInt(op)
		if !ok {
			return false
		}
		if uniform == nil {
			uniform = c
		} else if !uniform.Val.Eq(c.Val) {
			return false
		}
	}
	if uniform == nil {
		return false
	}
	replaceWithValue(phi, uniform)
	return true
}

func foldConversion(ctx *cfg.Context, inst *cfg.Instruction) bool {
	c, ok := asConstInt(inst.Operands()[0])
	if !ok {
		return false
	}
	dstType := inst.Type()
	if !dstType.IsInteger() {
		return false
	}
	var v common.APInt
	switch inst.ConvOp() {
	case cfg.ZExt, cfg.Trunc, cfg.Bitcast:
		v = common.APInt{Bits: dstType.Bits(), Value: c.Val.Value}.Truncated()
	case cfg.SExt:
		v = common.APInt{Bits: dstType.Bits(), Value: c.Val.SignExtend()}.Truncated()
	default:
		return false
	}
	replaceWithValue(inst, ctx.IntConst(v, dstType))
	return true
}

func registerPropConst(reg *pipeline.Registry) {
	reg.RegisterFunctionPass(&pipeline.FunctionPassDescriptor{
		Name:     "propconst",
		Category: pipeline.Canonicalization,
		Run:      propconst,
	})
}
