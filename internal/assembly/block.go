package assembly

// Block is a labeled, ordered run of Instructions: the unit both
// intra-stream jumps/calls (by direct pointer) and cross-stream links
// (by label) target, and the symbol table's unit of naming. public
// records whether the label is recorded in the binary's symbol table
// for external linkage (an exported function's entry block) versus
// being purely an intra-function jump target.
type Block struct {
	label  string
	public bool
	insts  []*Instruction

	offset    int
	hasOffset bool
}

func NewBlock(label string, public bool) *Block {
	return &Block{label: label, public: public}
}

func (b *Block) Label() string                { return b.label }
func (b *Block) Public() bool                  { return b.public }
func (b *Block) Instructions() []*Instruction { return b.insts }
func (b *Block) Add(inst *Instruction)        { b.insts = append(b.insts, inst) }

// Offset is this block's byte offset within its stream's encoded text,
// assigned by AssemblyStream.Layout; valid only after Layout has run.
func (b *Block) Offset() int { return b.offset }

// Size is the block's total encoded byte length.
func (b *Block) Size() int {
	n := 0
	for _, inst := range b.insts {
		n += inst.EncodedSize()
	}
	return n
}
