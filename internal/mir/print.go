package mir

import (
	"fmt"
	"strings"
)

// Print renders fn as text for the --print-mir diagnostic surface
// (see SPEC_FULL's supplemented-features notes); it is a debug dump,
// not a format parse reconstructs a Function from.
func Print(fn *Function) string {
	var b strings.Builder
	fmt.Fprintf(&b, "func %s {\n", fn.Name())
	for _, bb := range fn.Blocks() {
		fmt.Fprintf(&b, "%s:\n", bb.Name())
		for _, inst := range bb.Instructions() {
			b.WriteString("  ")
			b.WriteString(printInst(inst))
			b.WriteByte('\n')
		}
	}
	b.WriteString("}\n")
	return b.String()
}

func printInst(inst *Instruction) string {
	var b strings.Builder
	if d := inst.Dest(); d != nil {
		fmt.Fprintf(&b, "%s = ", printValue(d))
	}
	b.WriteString(inst.Opcode().String())
	for _, op := range inst.Operands() {
		b.WriteByte(' ')
		b.WriteString(printValue(op))
	}
	return b.String()
}

func printValue(v Value) string {
	if v == nil {
		return "<nil>"
	}
	switch vv := v.(type) {
	case *Register:
		return fmt.Sprintf("%s%d", regPrefix(vv.NodeType()), vv.Index())
	case *Constant:
		return fmt.Sprintf("%d", vv.Value())
	case *BasicBlock:
		return vv.Name()
	case calleeFunctionValue:
		return vv.fn.Name()
	default:
		return fmt.Sprintf("%v", v)
	}
}

func regPrefix(kind NodeType) string {
	switch kind {
	case NodeSSARegister:
		return "%s"
	case NodeVirtualRegister:
		return "%v"
	case NodeCalleeRegister:
		return "%c"
	case NodeHardwareRegister:
		return "$r"
	default:
		return "%?"
	}
}
