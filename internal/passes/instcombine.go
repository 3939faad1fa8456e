package passes

import (
	"math/big"

	"scathac/internal/common"
	"scathac/internal/ir/cfg"
	"scathac/internal/pipeline"
)

// instcombine folds binary and unary arithmetic over constant integer
// operands and rewrites a fixed set of algebraic identities (additive
// and multiplicative identity/absorption, self-subtraction,
// self-xor, idempotent and/or) into their simpler equivalent. It does
// not touch floating point arithmetic: float folding would have to
// reproduce the VM's own rounding, and nothing here has access to that.
func instcombine(ctx *cfg.Context, fn *cfg.Function, _ pipeline.Args) bool {
	modified := false
	for _, bb := range fn.Blocks() {
		for _, inst := range append([]*cfg.Instruction(nil), bb.Instructions()...) {
			if rewriteInstruction(ctx, inst) {
				modified = true
			}
		}
	}
	return modified
}

func rewriteInstruction(ctx *cfg.Context, inst *cfg.Instruction) bool {
	switch inst.Kind() {
	case cfg.NodeArithmetic:
		return combineArithmetic(ctx, inst)
	case cfg.NodeUnaryArithmetic:
		return combineUnary(ctx, inst)
	}
	return false
}

func combineArithmetic(ctx *cfg.Context, inst *cfg.Instruction) bool {
	lhs, rhs := inst.Operands()[0], inst.Operands()[1]
	lc, lok := asConstInt(lhs)
	rc, rok := asConstInt(rhs)

	if lok && rok {
		if folded, ok := foldArithmetic(ctx, inst.ArithOp(), lc, rc, inst.Type()); ok {
			replaceWithValue(inst, folded)
			return true
		}
	}

	if repl, ok := simplifyIdentity(ctx, inst.ArithOp(), lhs, rhs, inst.Type(), rok, rc); ok {
		replaceWithValue(inst, repl)
		return true
	}
	return false
}

// simplifyIdentity catches algebraic identities that don't require
// both operands to be constant.
func simplifyIdentity(ctx *cfg.Context, op cfg.ArithOp, lhs, rhs cfg.Value, typ *cfg.Type, rok bool, rc *cfg.ConstantInt) (cfg.Value, bool) {
	switch op {
	case cfg.Sub:
		if lhs == rhs {
			return zeroConst(ctx, typ), true
		}
	case cfg.Xor:
		if lhs == rhs {
			return zeroConst(ctx, typ), true
		}
	case cfg.And:
		if lhs == rhs {
			return lhs, true
		}
		if rok && rc.Val.Value.Sign() == 0 {
			return rc, true
		}
	case cfg.Or:
		if lhs == rhs {
			return lhs, true
		}
	case cfg.Mul:
		if rok {
			if rc.Val.Value.Sign() == 0 {
				return rc, true
			}
			if rc.Val.Value.Cmp(big.NewInt(1)) == 0 {
				return lhs, true
			}
		}
		return nil, false
	}
	if rok && rc.Val.Value.Sign() == 0 {
		switch op {
		case cfg.Add, cfg.Sub, cfg.Or, cfg.Xor, cfg.Shl, cfg.LShr, cfg.AShr:
			return lhs, true
		}
	}
	return nil, false
}

func zeroConst(ctx *cfg.Context, typ *cfg.Type) *cfg.ConstantInt {
	return ctx.IntConst(common.NewAPInt(typ.Bits(), 0), typ)
}

func combineUnary(ctx *cfg.Context, inst *cfg.Instruction) bool {
	c, ok := asConstInt(inst.Operands()[0])
	if !ok {
		return false
	}
	var v *big.Int
	switch inst.ArithOp() {
	case cfg.Neg:
		v = new(big.Int).Neg(c.Val.Value)
	case cfg.Not:
		mask := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), uint(c.Val.Bits)), big.NewInt(1))
		v = new(big.Int).Xor(c.Val.Value, mask)
	default:
		return false
	}
	folded := ctx.IntConst(common.APInt{Bits: c.Val.Bits, Value: v}.Truncated(), inst.Type())
	replaceWithValue(inst, folded)
	return true
}

func foldArithmetic(ctx *cfg.Context, op cfg.ArithOp, lc, rc *cfg.ConstantInt, typ *cfg.Type) (*cfg.ConstantInt, bool) {
	l, r := lc.Val.Value, rc.Val.Value
	var v *big.Int
	switch op {
	case cfg.Add:
		v = new(big.Int).Add(l, r)
	case cfg.Sub:
		v = new(big.Int).Sub(l, r)
	case cfg.Mul:
		v = new(big.Int).Mul(l, r)
	case cfg.SDiv:
		if r.Sign() == 0 {
			return nil, false
		}
		v = new(big.Int).Quo(lc.Val.SignExtend(), rc.Val.SignExtend())
	case cfg.UDiv:
		if r.Sign() == 0 {
			return nil, false
		}
		v = new(big.Int).Div(l, r)
	case cfg.SRem:
		if r.Sign() == 0 {
			return nil, false
		}
		v = new(big.Int).Rem(lc.Val.SignExtend(), rc.Val.SignExtend())
	case cfg.URem:
		if r.Sign() == 0 {
			return nil, false
		}
		v = new(big.Int).Mod(l, r)
	case cfg.Shl:
		v = new(big.Int).Lsh(l, uint(r.Uint64()))
	case cfg.LShr:
		v = new(big.Int).Rsh(l, uint(r.Uint64()))
	case cfg.AShr:
		v = new(big.Int).Rsh(lc.Val.SignExtend(), uint(r.Uint64()))
		if v.Sign() < 0 {
			v = new(big.Int).Add(v, new(big.Int).Lsh(big.NewInt(1), uint(lc.Val.Bits)))
		}
	case cfg.And:
		v = new(big.Int).And(l, r)
	case cfg.Or:
		v = new(big.Int).Or(l, r)
	case cfg.Xor:
		v = new(big.Int).Xor(l, r)
	default:
		return nil, false
	}
	return ctx.IntConst(common.APInt{Bits: lc.Val.Bits, Value: v}.Truncated(), typ), true
}

func replaceWithValue(inst *cfg.Instruction, repl cfg.Value) {
	cfg.ReplaceAllUsesWith(inst, repl)
	eraseInstruction(inst)
}

func registerInstCombine(reg *pipeline.Registry) {
	reg.RegisterFunctionPass(&pipeline.FunctionPassDescriptor{
		Name:     "instcombine",
		Category: pipeline.Canonicalization,
		Run:      instcombine,
	})
}
