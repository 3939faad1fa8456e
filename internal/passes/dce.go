package passes

import (
	"scathac/internal/ir/cfg"
	"scathac/internal/pipeline"
)

// dce removes every instruction with no side effects and no users,
// to a fixpoint: removing one dead instruction can make its operands
// dead in turn (including a phi whose only remaining user is another
// now-dead phi in a cycle), so a single top-to-bottom pass is not
// enough -- iterate until a full pass removes nothing.
func dce(ctx *cfg.Context, fn *cfg.Function, _ pipeline.Args) bool {
	modified := false
	for {
		var dead []*cfg.Instruction
		for _, bb := range fn.Blocks() {
			for _, inst := range bb.Instructions() {
				if inst.HasSideEffects() {
					continue
				}
				if len(inst.Users()) == 0 {
					dead = append(dead, inst)
				}
			}
		}
		if len(dead) == 0 {
			break
		}
		for _, inst := range dead {
			eraseInstruction(inst)
		}
		modified = true
	}
	return modified
}

func registerDCE(reg *pipeline.Registry) {
	reg.RegisterFunctionPass(&pipeline.FunctionPassDescriptor{
		Name:     "dce",
		Category: pipeline.Simplification,
		Run:      dce,
	})
}
