package assembly

import (
	"fmt"

	"scathac/internal/bytecode/opcode"
)

// AssemblyStream is a thin ordered list of Blocks, one level up from
// original_source's Assembly2 AssemblyStream (itself a thin
// std::list<Instruction> wrapper): a stream holds every block of a
// compiled unit, in emission order, and Go's slice-of-pointer-to-Block
// gives stable block identity without needing an intrusive list.
type AssemblyStream struct {
	blocks  []*Block
	laidOut bool
}

func NewAssemblyStream() *AssemblyStream { return &AssemblyStream{} }

func (s *AssemblyStream) Add(b *Block)     { s.blocks = append(s.blocks, b) }
func (s *AssemblyStream) Blocks() []*Block { return s.blocks }

func (s *AssemblyStream) findBlock(label string) (*Block, bool) {
	for _, b := range s.blocks {
		if b.label == label {
			return b, true
		}
	}
	return nil, false
}

// Layout is the first of §4.7's two passes: it assigns every block a
// byte offset by summing encoded instruction sizes in emission order,
// so the second pass (Encode) can write every in-stream jump/call
// target as a final relative offset instead of a forward reference.
func (s *AssemblyStream) Layout() {
	offset := 0
	for _, b := range s.blocks {
		b.offset = offset
		b.hasOffset = true
		offset += b.Size()
	}
	s.laidOut = true
}

// Size is the stream's total encoded byte length; valid only after
// Layout.
func (s *AssemblyStream) Size() int {
	n := 0
	for _, b := range s.blocks {
		n += b.Size()
	}
	return n
}

// Relocation records a byte offset, within this stream's Encode
// output, of an 8-byte relative-offset field a later Linker.Link pass
// must patch because the instruction's call target is a label this
// stream couldn't resolve to a local Block (a call into another
// compilation unit).
type Relocation struct {
	Offset int
	Label  string
}

// Encode is §4.7's second layout pass: it walks every block in order
// and writes each instruction's fixed-shape byte encoding. A jump/call
// whose target Block is known (same-stream pointer) writes the final
// relative offset directly; a call left as a bare label (NewCallLabel)
// writes an 8-byte placeholder and records a Relocation for
// Linker.Link to patch once the label's home stream is known.
func (s *AssemblyStream) Encode() ([]byte, []Relocation, error) {
	if !s.laidOut {
		return nil, nil, fmt.Errorf("assembly: Encode called before Layout")
	}
	var buf []byte
	var relocs []Relocation
	for _, b := range s.blocks {
		for idx, inst := range b.Instructions() {
			before := len(buf)
			buf = append(buf, byte(inst.op))
			switch {
			case inst.target != nil:
				if !inst.target.hasOffset {
					return nil, nil, &AssembleError{Block: b.label, Index: idx, Reason: fmt.Sprintf("branch target %q has no offset", inst.target.label)}
				}
				rel := int64(inst.target.offset) - int64(before+inst.EncodedSize())
				buf = appendInt64(buf, rel)
			case inst.label != "":
				if target, ok := s.findBlock(inst.label); ok {
					rel := int64(target.offset) - int64(before+inst.EncodedSize())
					buf = appendInt64(buf, rel)
				} else {
					relocs = append(relocs, Relocation{Offset: len(buf), Label: inst.label})
					buf = appendInt64(buf, 0)
				}
			default:
				buf = encodeOperands(buf, inst)
			}
			if got, want := len(buf)-before, inst.EncodedSize(); got != want {
				return nil, nil, &AssembleError{Block: b.label, Index: idx, Reason: fmt.Sprintf("%s encoded to %d bytes, want %d", inst.op, got, want)}
			}
		}
	}
	return buf, relocs, nil
}

func appendUint8(buf []byte, v uint8) []byte { return append(buf, v) }

func appendUint32(buf []byte, v uint32) []byte {
	return append(buf, byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
}

func appendUint64(buf []byte, v uint64) []byte {
	return append(buf,
		byte(v), byte(v>>8), byte(v>>16), byte(v>>24),
		byte(v>>32), byte(v>>40), byte(v>>48), byte(v>>56))
}

func appendInt64(buf []byte, v int64) []byte { return appendUint64(buf, uint64(v)) }

// appendOperand writes a Register/Immediate operand in the generic
// tagged shape opcode.OperandBytes' mov/arith/compare/test/store cases
// all budget 9 bytes for: a one-byte kind tag (0 register, 1
// immediate) followed by an 8-byte payload.
func appendOperand(buf []byte, o Operand) []byte {
	if o.kind == KindRegister {
		buf = append(buf, 0)
		return appendUint64(buf, uint64(o.reg))
	}
	buf = append(buf, 1)
	return appendUint64(buf, o.imm)
}

func encodeOperands(buf []byte, inst *Instruction) []byte {
	op := inst.op
	switch {
	case op == opcode.LincSP:
		buf = appendUint8(buf, inst.dest.reg)
		return appendUint64(buf, inst.value.imm)
	case op == opcode.CallExt:
		buf = appendUint32(buf, inst.ffiSlot)
		return appendUint32(buf, inst.ffiIndex)
	case op == opcode.CallV:
		return appendUint8(buf, inst.src.reg)
	case op == opcode.Ret, op == opcode.Trap:
		return buf
	case op.IsSetFamily():
		return appendUint8(buf, inst.dest.reg)
	case op.IsMovFamily():
		buf = appendUint8(buf, inst.dest.reg)
		return appendOperand(buf, inst.src)
	case op.IsArithFamily():
		buf = appendUint8(buf, inst.dest.reg)
		return appendOperand(buf, inst.rhs)
	case op.IsCompareOrTestFamily():
		buf = appendUint8(buf, inst.lhs.reg)
		return appendOperand(buf, inst.rhs)
	case op.IsLoadFamily():
		buf = appendUint8(buf, inst.dest.reg)
		return appendUint8(buf, inst.base.reg)
	case op.IsStoreFamily():
		buf = appendUint8(buf, inst.base.reg)
		return appendOperand(buf, inst.value)
	default:
		return buf
	}
}
