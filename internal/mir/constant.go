package mir

// Constant is a raw 64-bit bit pattern used as an instruction operand.
// Unlike IR's typed ConstantInt/ConstantFloat, MIR constants carry no
// type of their own -- the consuming instruction's width/InstData
// says how the bits are interpreted -- so a Module interns them by raw
// value alone, mirroring original_source's Module::constant, which
// dedups via a map keyed on the uint64 rather than on (type, value).
type Constant struct {
	valueBase
	value uint64
}

func newConstant(value uint64) *Constant {
	c := &Constant{value: value}
	c.kind = NodeConstant
	return c
}

func (c *Constant) Value() uint64 { return c.value }
