package mir

import "fmt"

// AssertInvariants checks the structural invariants an MIR module must
// hold after every pass up to jump elision: use-def consistency (spec
// property 5) and terminator placement, mirroring
// internal/ir/cfg.AssertInvariants one level down the pipeline.
// ElideJumps erases fall-through jumps, so after it a non-empty block
// that falls through fails the terminator check.
func AssertInvariants(mod *Module) error {
	for _, fn := range mod.Functions() {
		if err := assertFunctionInvariants(fn); err != nil {
			return fmt.Errorf("function %q: %w", fn.Name(), err)
		}
	}
	return nil
}

func assertFunctionInvariants(fn *Function) error {
	for _, bb := range fn.Blocks() {
		for idx, inst := range bb.Instructions() {
			isLast := idx == len(bb.Instructions())-1
			if inst.Opcode().IsTerminator() && !isLast {
				return fmt.Errorf("terminator %s not last in block %q", inst.Opcode(), bb.Name())
			}
			if !inst.Opcode().IsTerminator() && isLast {
				return fmt.Errorf("block %q does not end in a terminator", bb.Name())
			}
			for _, op := range inst.Operands() {
				if op == nil {
					continue
				}
				if !userOf(op, inst) {
					return fmt.Errorf("instruction %v is not recorded as a user of its own operand", inst.Opcode())
				}
			}
		}
	}
	return nil
}

func userOf(v Value, inst *Instruction) bool {
	for _, u := range v.Users() {
		if u == inst {
			return true
		}
	}
	return false
}
