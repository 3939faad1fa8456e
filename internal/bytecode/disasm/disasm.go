// Package disasm decodes a linked text section back into a readable
// instruction listing -- the shared decode step behind both `svm
// --print` and the standalone `scdis` driver. It walks the exact
// operand encoding internal/assembly/stream.go's Encode writes (and
// internal/vm/vm.go's interpreter loop already decodes at run time),
// independently of both: a disassembler earning its keep should not
// have to trust the engine it inspects.
package disasm

import (
	"encoding/binary"
	"fmt"
	"io"
	"strings"

	"scathac/internal/bytecode/opcode"
	"scathac/internal/debuginfo"
)

// Instruction is one decoded instruction: its byte offset, opcode,
// and a pre-formatted operand string.
type Instruction struct {
	Offset   int
	Op       opcode.OpCode
	Operands string
}

// Decode walks text from offset 0, decoding one instruction at a
// time. A truncated trailing instruction (fewer bytes remain than
// OperandBytes() demands) is reported as an error rather than
// silently dropped.
func Decode(text []byte) ([]Instruction, error) {
	var insts []Instruction
	off := 0
	for off < len(text) {
		op := opcode.OpCode(text[off])
		if !op.Valid() {
			return insts, fmt.Errorf("disasm: invalid opcode byte 0x%02x at offset %d", text[off], off)
		}
		n := op.OperandBytes()
		if off+1+n > len(text) {
			return insts, fmt.Errorf("disasm: truncated operand for %s at offset %d", op, off)
		}
		operands := text[off+1 : off+1+n]
		insts = append(insts, Instruction{
			Offset:   off,
			Op:       op,
			Operands: formatOperands(op, off, n, operands),
		})
		off += 1 + n
	}
	return insts, nil
}

func formatOperands(op opcode.OpCode, instOffset, n int, b []byte) string {
	switch {
	case op == opcode.LincSP:
		return fmt.Sprintf("r%d, %d", b[0], binary.LittleEndian.Uint64(b[1:9]))
	case op == opcode.Call:
		rel := int64(binary.LittleEndian.Uint64(b))
		return fmt.Sprintf("%+d (-> %d)", rel, instOffset+1+n+int(rel))
	case op == opcode.CallExt:
		return fmt.Sprintf("slot=%d, index=%d", binary.LittleEndian.Uint32(b[0:4]), binary.LittleEndian.Uint32(b[4:8]))
	case op == opcode.CallV:
		return fmt.Sprintf("r%d", b[0])
	case op == opcode.Ret, op == opcode.Trap:
		return ""
	case op.IsJump():
		rel := int64(binary.LittleEndian.Uint64(b))
		return fmt.Sprintf("%+d (-> %d)", rel, instOffset+1+n+int(rel))
	case op.IsSetFamily():
		return fmt.Sprintf("r%d", b[0])
	case op.IsMovFamily():
		return fmt.Sprintf("r%d, %s", b[0], formatOperand(b[1:]))
	case op.IsArithFamily():
		return fmt.Sprintf("r%d, %s", b[0], formatOperand(b[1:]))
	case op.IsCompareOrTestFamily():
		return fmt.Sprintf("r%d, %s", b[0], formatOperand(b[1:]))
	case op.IsLoadFamily():
		return fmt.Sprintf("r%d, [r%d]", b[0], b[1])
	case op.IsStoreFamily():
		return fmt.Sprintf("[r%d], %s", b[0], formatOperand(b[1:]))
	default:
		return ""
	}
}

// formatOperand decodes the generic 9-byte kind-tag-plus-payload
// operand shape appendOperand writes: tag 0 is a register index, tag
// 1 an immediate.
func formatOperand(b []byte) string {
	if b[0] == 0 {
		return fmt.Sprintf("r%d", binary.LittleEndian.Uint64(b[1:9]))
	}
	return fmt.Sprintf("#%d", binary.LittleEndian.Uint64(b[1:9]))
}

// Fprint writes insts to w, one per line, as "<offset>: <mnemonic>
// <operands>". If sidecar is non-nil, a function label from
// sidecar.Labels is printed on its own line immediately before the
// instruction at that offset.
func Fprint(w io.Writer, insts []Instruction, sidecar *debuginfo.Sidecar) {
	for _, inst := range insts {
		if sidecar != nil {
			if label, ok := sidecar.Labels[inst.Offset]; ok {
				fmt.Fprintf(w, "%s:\n", label.Name)
			}
		}
		line := fmt.Sprintf("%6d: %s", inst.Offset, inst.Op)
		if inst.Operands != "" {
			line += " " + inst.Operands
		}
		fmt.Fprintln(w, line)
	}
}

// String renders insts the same way Fprint does, without a sidecar.
func String(insts []Instruction) string {
	var sb strings.Builder
	Fprint(&sb, insts, nil)
	return sb.String()
}
