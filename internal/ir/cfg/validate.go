package cfg

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
)

// AssertInvariants walks the whole module and checks the structural
// invariants the IR must satisfy at all times: terminators only at
// block end, phi nodes only at block start with as many incoming
// entries as the block has predecessors, and every use recorded in the
// used value's user set. It does not check which blocks a phi's
// incoming entries name, and it does not check operand types. It is
// the Go counterpart of scatha's assertInvariants (original_source's
// lib/IR/Validate.h); passes are expected to leave it passing after
// every transformation.
//
// Unlike the original, which presumably aborts on the first violation,
// this collects every violation it finds via go-multierror so a single
// CI run surfaces the whole list at once.
func AssertInvariants(mod *Module) error {
	var result *multierror.Error
	for _, f := range mod.Functions() {
		if err := assertFunctionInvariants(f); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

func assertFunctionInvariants(f *Function) error {
	var result *multierror.Error
	for bi, bb := range f.Blocks() {
		if bb.Parent() != f {
			result = multierror.Append(result, fmt.Errorf("function %s: block %s has wrong parent", f.Name(), bb.Name()))
		}
		insts := bb.Instructions()
		for ii, inst := range insts {
			isLast := ii == len(insts)-1
			if inst.Kind().IsTerminator() != isLast {
				result = multierror.Append(result, fmt.Errorf(
					"function %s block %s: terminator-ness mismatch at instruction %d (%s)",
					f.Name(), bb.Name(), ii, inst.Kind()))
			}
			if inst.Kind() == NodePhi && ii != 0 {
				hasNonPhiBefore := false
				for _, prior := range insts[:ii] {
					if prior.Kind() != NodePhi {
						hasNonPhiBefore = true
						break
					}
				}
				if hasNonPhiBefore {
					result = multierror.Append(result, fmt.Errorf(
						"function %s block %s: phi instruction %d not at block start", f.Name(), bb.Name(), ii))
				}
			}
			if inst.Kind() == NodePhi {
				preds := bb.Predecessors()
				if len(inst.IncomingBlocks()) != len(preds) {
					result = multierror.Append(result, fmt.Errorf(
						"function %s block %s: phi incoming count %d != predecessor count %d",
						f.Name(), bb.Name(), len(inst.IncomingBlocks()), len(preds)))
				}
			}
			for oi, op := range inst.Operands() {
				if op == nil {
					continue
				}
				found := false
				for _, u := range op.Users() {
					if u == User(inst) {
						found = true
						break
					}
				}
				if !found {
					result = multierror.Append(result, fmt.Errorf(
						"function %s block %s instruction %d: operand %d not recorded in use-def set",
						f.Name(), bb.Name(), ii, oi))
				}
			}
		}
		if bi == 0 {
			continue
		}
	}
	return result.ErrorOrNil()
}
