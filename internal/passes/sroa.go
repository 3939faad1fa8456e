package passes

import (
	"scathac/internal/ir/cfg"
	"scathac/internal/pipeline"
)

// sroa (scalar replacement of aggregates) splits a struct- or
// array-typed alloca into one alloca per disjoint slot when every use
// of the aggregate is a single-step, statically-indexed
// GetElementPointer feeding only direct loads/stores of the slot's own
// type. A dynamic index, a multi-step GEP, or any other kind of use
// disqualifies the whole alloca -- mem2reg then finishes the job of
// promoting the resulting scalar allocas to SSA registers.
func sroa(ctx *cfg.Context, fn *cfg.Function, _ pipeline.Args) bool {
	entry := fn.Entry()
	if entry == nil {
		return false
	}
	modified := false
	for _, alloc := range append([]*cfg.Instruction(nil), entry.Instructions()...) {
		if alloc.Kind() != cfg.NodeAlloca {
			continue
		}
		allocType := alloc.AllocType()
		if !allocType.IsStruct() && !allocType.IsArray() {
			continue
		}
		geps, ok := sroaPlan(alloc, allocType)
		if !ok || len(geps) == 0 {
			continue
		}
		splitAlloca(ctx, fn, alloc, allocType, geps)
		modified = true
	}
	return modified
}

// sroaPlan validates that alloc is eligible for splitting and returns
// every GEP that addresses one of its slots, keyed by slot index.
func sroaPlan(alloc *cfg.Instruction, allocType *cfg.Type) (map[int]*cfg.Instruction, bool) {
	geps := make(map[int]*cfg.Instruction)
	for _, u := range alloc.Users() {
		gep, ok := u.(*cfg.Instruction)
		if !ok || gep.Kind() != cfg.NodeGetElementPointer {
			return nil, false
		}
		if gep.Operands()[1] != nil {
			return nil, false // dynamic index: not staticaly sliceable
		}
		steps := gep.GEPSteps()
		if len(steps) != 1 {
			return nil, false
		}
		slot, slotType, ok := sroaSlot(allocType, steps[0])
		if !ok {
			return nil, false
		}
		if existing, dup := geps[slot]; dup && existing != gep {
			return nil, false
		}
		if !isGEPSlotPromotable(gep, slotType) {
			return nil, false
		}
		geps[slot] = gep
	}
	return geps, true
}

// sroaSlot resolves a single GEPStep against allocType, returning the
// slot index and the type stored at that slot.
func sroaSlot(allocType *cfg.Type, step cfg.GEPStep) (int, *cfg.Type, bool) {
	if allocType.IsStruct() {
		if step.StructIndex < 0 || step.StructIndex >= len(allocType.Members()) {
			return 0, nil, false
		}
		return step.StructIndex, allocType.Members()[step.StructIndex], true
	}
	// Array: the step must be a raw byte offset landing exactly on an
	// element boundary.
	elem := allocType.Elem()
	if elem.Size() == 0 || step.ByteOffset%elem.Size() != 0 {
		return 0, nil, false
	}
	idx := step.ByteOffset / elem.Size()
	if idx < 0 || idx >= allocType.Count() {
		return 0, nil, false
	}
	return idx, elem, true
}

func isGEPSlotPromotable(gep *cfg.Instruction, slotType *cfg.Type) bool {
	for _, u := range gep.Users() {
		inst, ok := u.(*cfg.Instruction)
		if !ok {
			return false
		}
		switch inst.Kind() {
		case cfg.NodeLoad:
			if inst.Operands()[0] != cfg.Value(gep) || inst.Type() != slotType {
				return false
			}
		case cfg.NodeStore:
			if inst.Operands()[0] != cfg.Value(gep) || inst.Operands()[1].Type() != slotType {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func splitAlloca(ctx *cfg.Context, fn *cfg.Function, alloc *cfg.Instruction, allocType *cfg.Type, geps map[int]*cfg.Instruction) {
	entry := fn.Entry()
	for slot, gep := range geps {
		slotType := slotTypeOf(allocType, slot)
		slotAlloc := cfg.NewAlloca(ctx, slotType, nil, fn.UniqueName(alloc.Name()))
		entry.InsertInstBefore(alloc, slotAlloc)
		cfg.ReplaceAllUsesWith(gep, slotAlloc)
		eraseInstruction(gep)
	}
	eraseInstruction(alloc)
}

func slotTypeOf(allocType *cfg.Type, slot int) *cfg.Type {
	if allocType.IsStruct() {
		return allocType.Members()[slot]
	}
	return allocType.Elem()
}

func registerSROA(reg *pipeline.Registry) {
	reg.RegisterFunctionPass(&pipeline.FunctionPassDescriptor{
		Name:     "sroa",
		Category: pipeline.Canonicalization,
		Run:      sroa,
	})
}
