package mir

// Register is the unit of storage MIR instructions read and write.
// Which of the four kinds a register is determines what "index"
// means: for SSARegister/VirtualRegister it is the position within
// the function's corresponding RegisterSet; for HardwareRegister it
// is also the fixed architectural file slot assigned by register
// allocation or devirtualize.
// A register tracks its def-set (normally a single instruction before
// destroySSA, potentially several after coalescing) and, via
// valueBase, its use-multiset.
type Register struct {
	valueBase
	index  int
	parent *Function
	words  int

	defOrder []*Instruction
	defSet   map[*Instruction]bool
}

// Words reports how many consecutive machine words (see
// internal/isel.WordSize) this register's value occupies; devirtualize
// assigns that many consecutive hardware indices when it colors the
// register. Defaults to 1.
func (r *Register) Words() int {
	if r.words <= 0 {
		return 1
	}
	return r.words
}

func (r *Register) SetWords(n int) { r.words = n }

func newRegister(kind NodeType) *Register {
	return &Register{valueBase: valueBase{kind: kind}, index: -1}
}

// NewSSARegister creates a register in single-assignment form, as
// instruction selection produces before destroySSA runs.
func NewSSARegister() *Register { return newRegister(NodeSSARegister) }

// NewVirtualRegister creates a register destroySSA introduces in place
// of phi nodes; one of unbounded many before register allocation maps
// it onto a hardware register.
func NewVirtualRegister() *Register { return newRegister(NodeVirtualRegister) }

// NewCalleeRegister creates a register representing a callee's
// argument slot, realized as a concrete hardware register only after
// devirtualize runs.
func NewCalleeRegister() *Register { return newRegister(NodeCalleeRegister) }

// NewHardwareRegister creates a register with a fixed index in the
// architectural file.
func NewHardwareRegister(hwIndex int) *Register {
	r := newRegister(NodeHardwareRegister)
	r.index = hwIndex
	return r
}

func (r *Register) Index() int        { return r.index }
func (r *Register) setIndex(i int)    { r.index = i }
func (r *Register) Parent() *Function { return r.parent }

// Defs returns the instructions that define this register, in
// insertion order.
func (r *Register) Defs() []*Instruction {
	out := make([]*Instruction, len(r.defOrder))
	copy(out, r.defOrder)
	return out
}

func (r *Register) addDef(inst *Instruction) {
	if r.defSet == nil {
		r.defSet = make(map[*Instruction]bool)
	}
	if !r.defSet[inst] {
		r.defSet[inst] = true
		r.defOrder = append(r.defOrder, inst)
	}
}

func (r *Register) removeDef(inst *Instruction) {
	if !r.defSet[inst] {
		return
	}
	delete(r.defSet, inst)
	for i, d := range r.defOrder {
		if d == inst {
			r.defOrder = append(r.defOrder[:i], r.defOrder[i+1:]...)
			break
		}
	}
}

// RegisterSet holds a function's registers of one kind: an insertion-
// ordered list for iteration plus an index-stable flat slice for O(1)
// lookup by Register.Index. Erase nils the flat slot rather than
// shifting it, so surviving registers keep the index register
// allocation and the interference graph built over it rely on.
type RegisterSet struct {
	ordered []*Register
	flat    []*Register
}

// Add appends reg to the set, assigning it the next flat index.
func (s *RegisterSet) Add(reg *Register) {
	reg.setIndex(len(s.flat))
	s.ordered = append(s.ordered, reg)
	s.flat = append(s.flat, reg)
}

// Erase removes reg from the set. Its flat slot becomes nil so other
// registers' indices stay stable.
func (s *RegisterSet) Erase(reg *Register) {
	if idx := reg.Index(); idx >= 0 && idx < len(s.flat) && s.flat[idx] == reg {
		s.flat[idx] = nil
	}
	for i, o := range s.ordered {
		if o == reg {
			s.ordered = append(s.ordered[:i], s.ordered[i+1:]...)
			break
		}
	}
}

// At returns the register at flat index idx, or nil if it was erased
// or idx has never been populated.
func (s *RegisterSet) At(idx int) *Register {
	if idx < 0 || idx >= len(s.flat) {
		return nil
	}
	return s.flat[idx]
}

// SetAt installs reg at a specific flat index rather than the next
// free one, growing the flat slice with holes as needed. Used by
// register allocation and devirtualize, which both compute a hardware
// index externally (graph color, or local-count-plus-metadata offset)
// instead of taking the set's next insertion slot.
func (s *RegisterSet) SetAt(idx int, reg *Register) {
	for len(s.flat) <= idx {
		s.flat = append(s.flat, nil)
	}
	reg.setIndex(idx)
	s.flat[idx] = reg
	s.ordered = append(s.ordered, reg)
}

// Len returns the size of the flat index space (including erased
// holes); All returns only the live registers.
func (s *RegisterSet) Len() int { return len(s.flat) }

// All returns the live registers in insertion order.
func (s *RegisterSet) All() []*Register {
	out := make([]*Register, len(s.ordered))
	copy(out, s.ordered)
	return out
}

// Flat returns the index-stable backing slice; erased slots are nil.
func (s *RegisterSet) Flat() []*Register { return s.flat }
