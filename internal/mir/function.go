package mir

// Function owns an ordered list of basic blocks (the first is the
// entry) and four register sets, one per register kind. It mirrors
// internal/ir/cfg.Function structurally but additionally tracks
// numUsedRegisters, the hardware-file high-water mark devirtualize
// assigns once register allocation has run.
type Function struct {
	name   string
	module *Module
	blocks []*BasicBlock

	ssaRegs     RegisterSet
	virtualRegs RegisterSet
	calleeRegs  RegisterSet
	hwRegs      RegisterSet

	numUsedRegisters int

	// params holds each parameter's body-visible register, in
	// declaration order, so destroySSA's self-tail-call rewrite can
	// find where to write a recursive call's next-iteration arguments.
	params []*Register

	// bodyEntry is the block control reaches after the parameter-
	// materialization prologue (or Entry() itself, for a function
	// with no parameters and hence no prologue). destroySSA's
	// self-tail-call rewrite jumps here instead of to Entry() so it
	// never re-runs the prologue's CalleeRegister copies.
	bodyEntry *BasicBlock
}

func NewFunction(name string) *Function {
	return &Function{name: name}
}

func (f *Function) Name() string            { return f.name }
func (f *Function) Module() *Module         { return f.module }
func (f *Function) Blocks() []*BasicBlock   { return f.blocks }

func (f *Function) Entry() *BasicBlock {
	if len(f.blocks) == 0 {
		return nil
	}
	return f.blocks[0]
}

func (f *Function) SSARegisters() *RegisterSet     { return &f.ssaRegs }
func (f *Function) VirtualRegisters() *RegisterSet { return &f.virtualRegs }
func (f *Function) CalleeRegisters() *RegisterSet  { return &f.calleeRegs }
func (f *Function) HardwareRegisters() *RegisterSet { return &f.hwRegs }

func (f *Function) NumUsedRegisters() int    { return f.numUsedRegisters }
func (f *Function) SetNumUsedRegisters(n int) { f.numUsedRegisters = n }

func (f *Function) Params() []*Register   { return f.params }
func (f *Function) SetParams(p []*Register) { f.params = p }

// BodyEntry returns the block where the function's actual logic
// starts, skipping any parameter-materialization prologue; it falls
// back to Entry() if SetBodyEntry was never called.
func (f *Function) BodyEntry() *BasicBlock {
	if f.bodyEntry != nil {
		return f.bodyEntry
	}
	return f.Entry()
}

func (f *Function) SetBodyEntry(bb *BasicBlock) { f.bodyEntry = bb }

// PushBlock appends bb as the function's last block.
func (f *Function) PushBlock(bb *BasicBlock) {
	bb.parent = f
	f.blocks = append(f.blocks, bb)
}

// InsertBlockAfter inserts bb immediately after anchor in block order.
func (f *Function) InsertBlockAfter(anchor, bb *BasicBlock) {
	bb.parent = f
	for i, b := range f.blocks {
		if b == anchor {
			f.blocks = append(f.blocks, nil)
			copy(f.blocks[i+2:], f.blocks[i+1:])
			f.blocks[i+1] = bb
			return
		}
	}
	f.blocks = append(f.blocks, bb)
}

// ReorderBlocks replaces the block list wholesale, used by the elide-
// jumps pass to install a fall-through-maximizing emission order.
func (f *Function) ReorderBlocks(order []*BasicBlock) { f.blocks = order }

// EraseBlock removes bb from the function. The caller must have
// already severed its instructions' uses.
func (f *Function) EraseBlock(bb *BasicBlock) {
	for i, b := range f.blocks {
		if b == bb {
			f.blocks = append(f.blocks[:i], f.blocks[i+1:]...)
			return
		}
	}
}

// registerSet returns the set matching reg's kind.
func (f *Function) registerSet(kind NodeType) *RegisterSet {
	switch kind {
	case NodeSSARegister:
		return &f.ssaRegs
	case NodeVirtualRegister:
		return &f.virtualRegs
	case NodeCalleeRegister:
		return &f.calleeRegs
	case NodeHardwareRegister:
		return &f.hwRegs
	default:
		return nil
	}
}

// AddRegister adds reg to the register set matching its kind,
// assigning its function-unique flat index.
func (f *Function) AddRegister(reg *Register) {
	reg.parent = f
	if s := f.registerSet(reg.NodeType()); s != nil {
		s.Add(reg)
	}
}

// HardwareRegisterAt returns the function's hardware register at a
// specific architectural index, creating it sized to words if it
// doesn't exist yet, or widening an existing one if words is larger
// than what it was created with. Register allocation and devirtualize
// both assign hardware indices they've computed themselves (a graph
// color, a local-count-plus-metadata offset) rather than taking the
// set's next free slot.
func (f *Function) HardwareRegisterAt(idx, words int) *Register {
	if r := f.hwRegs.At(idx); r != nil {
		if words > r.Words() {
			r.SetWords(words)
		}
		return r
	}
	r := NewHardwareRegister(idx)
	r.SetWords(words)
	r.parent = f
	f.hwRegs.SetAt(idx, r)
	return r
}

// EraseRegister removes reg from its function-level register set.
func (f *Function) EraseRegister(reg *Register) {
	if s := f.registerSet(reg.NodeType()); s != nil {
		s.Erase(reg)
	}
}
