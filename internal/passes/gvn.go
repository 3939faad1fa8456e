package passes

import (
	"scathac/internal/ir/analysis"
	"scathac/internal/ir/cfg"
	"scathac/internal/pipeline"
)

// gvn numbers pure expressions (arithmetic, compares, conversions, and
// address computations) by structural equality of opcode, operands,
// and type, walking the dominator tree so that a redundant computation
// is only ever replaced by an equivalent one that provably executes
// before it on every path that reaches it. Loads are deliberately
// excluded -- recognizing two loads as equivalent requires alias
// analysis this IR doesn't have yet.
func gvn(ctx *cfg.Context, fn *cfg.Function, _ pipeline.Args) bool {
	entry := fn.Entry()
	if entry == nil {
		return false
	}
	dt := analysis.Dominance(fn)
	children := domChildren(fn, dt)
	table := make(map[gvnKey]*cfg.Instruction)
	modified := false

	var walk func(bb *cfg.BasicBlock)
	walk = func(bb *cfg.BasicBlock) {
		var added []gvnKey
		for _, inst := range append([]*cfg.Instruction(nil), bb.Instructions()...) {
			key, ok := gvnKeyOf(inst)
			if !ok {
				continue
			}
			if existing, found := table[key]; found {
				replaceWithValue(inst, existing)
				modified = true
				continue
			}
			table[key] = inst
			added = append(added, key)
		}
		for _, kid := range children[bb] {
			walk(kid)
		}
		for _, key := range added {
			delete(table, key)
		}
	}
	walk(entry)

	if modified {
		fn.InvalidateAnalyses()
	}
	return modified
}

// gvnKey is the value-number identity of a pure instruction: two
// instructions with equal keys compute the same value whenever they
// execute, since their operands (by SSA-value identity) and opcode
// match exactly.
type gvnKey struct {
	kind cfg.NodeType
	op   int
	a, b cfg.Value
	typ  *cfg.Type
}

func gvnKeyOf(inst *cfg.Instruction) (gvnKey, bool) {
	ops := inst.Operands()
	key := gvnKey{kind: inst.Kind(), typ: inst.Type()}
	switch inst.Kind() {
	case cfg.NodeArithmetic:
		key.op = int(inst.ArithOp())
		key.a, key.b = ops[0], ops[1]
	case cfg.NodeUnaryArithmetic:
		key.op = int(inst.ArithOp())
		key.a = ops[0]
	case cfg.NodeCompare:
		key.op = int(inst.CompareMode())<<8 | int(inst.ComparePred())
		key.a, key.b = ops[0], ops[1]
	case cfg.NodeConversion:
		key.op = int(inst.ConvOp())
		key.a = ops[0]
	case cfg.NodeGetElementPointer:
		steps := inst.GEPSteps()
		if len(steps) != 1 || ops[1] != nil {
			return gvnKey{}, false
		}
		key.op = steps[0].StructIndex<<32 | steps[0].ByteOffset
		key.a = ops[0]
	default:
		return gvnKey{}, false
	}
	return key, true
}

func registerGVN(reg *pipeline.Registry) {
	reg.RegisterFunctionPass(&pipeline.FunctionPassDescriptor{
		Name:     "gvn",
		Category: pipeline.Canonicalization,
		Run:      gvn,
	})
}
