package cfg

import (
	"fmt"
	"strings"
)

// Print renders mod as human-readable IR text, the format Parse reads
// back. Grounded on original_source/include/scatha/IR/Print.h.
func Print(mod *Module) string {
	var sb strings.Builder
	for _, st := range mod.StructTypes() {
		fmt.Fprintf(&sb, "structure %s {%s}\n", st.Name(), joinTypes(st.Members()))
	}
	for _, g := range mod.Globals() {
		printGlobal(&sb, g)
	}
	for _, f := range mod.Functions() {
		PrintFunction(&sb, f)
	}
	return sb.String()
}

func joinTypes(types []*Type) string {
	parts := make([]string, len(types))
	for i, t := range types {
		parts[i] = t.String()
	}
	return strings.Join(parts, ", ")
}

func printGlobal(sb *strings.Builder, g Value) {
	switch gv := g.(type) {
	case *GlobalVariable:
		fmt.Fprintf(sb, "%s global @%s %s = %s\n", gv.Visibility(), gv.Name(), gv.Type(), valueRef(gv.Initializer()))
	case *GlobalConstant:
		fmt.Fprintf(sb, "%s constant @%s %s = %s\n", gv.Visibility(), gv.Name(), gv.Type(), valueRef(gv.Initializer()))
	}
}

// PrintFunction renders a single function; Print calls it once per
// function in module order.
func PrintFunction(sb *strings.Builder, f *Function) {
	fmt.Fprintf(sb, "%s func @%s(%s) -> %s {\n", f.Visibility(), f.Name(), joinParams(f.Params()), f.Type().Return())
	for _, bb := range f.Blocks() {
		fmt.Fprintf(sb, "%s:\n", bb.Name())
		for _, inst := range bb.Instructions() {
			fmt.Fprintf(sb, "  %s\n", printInst(inst))
		}
	}
	sb.WriteString("}\n")
}

func joinParams(params []*Parameter) string {
	parts := make([]string, len(params))
	for i, p := range params {
		parts[i] = fmt.Sprintf("%s %%%s", p.Type(), p.Name())
	}
	return strings.Join(parts, ", ")
}

func valueRef(v Value) string {
	if v == nil {
		return "<nil>"
	}
	switch c := v.(type) {
	case *ConstantInt:
		return c.Val.String()
	case *ConstantFloat:
		return c.Val.String()
	case *ConstantUndef:
		return "undef"
	case *ConstantNullPtr:
		return "null"
	case *BasicBlock:
		return "label %" + c.Name()
	case *Function:
		return "@" + c.Name()
	case *Parameter:
		return "%" + c.Name()
	default:
		if v.HasName() {
			return "%" + v.Name()
		}
		return "<anon>"
	}
}

func dest(inst *Instruction) string {
	if inst.Type().IsVoid() || !inst.HasName() {
		return ""
	}
	return fmt.Sprintf("%%%s = ", inst.Name())
}

func printInst(inst *Instruction) string {
	d := dest(inst)
	switch inst.Kind() {
	case NodeAlloca:
		return fmt.Sprintf("%salloca %s, %s", d, inst.AllocType(), valueRef(inst.Operands()[0]))
	case NodeLoad:
		return fmt.Sprintf("%sload %s, %s", d, inst.Type(), valueRef(inst.Operands()[0]))
	case NodeStore:
		return fmt.Sprintf("store %s, %s", valueRef(inst.Operands()[0]), valueRef(inst.Operands()[1]))
	case NodeGetElementPointer:
		return fmt.Sprintf("%sgep %s, %s", d, valueRef(inst.Operands()[0]), valueRef(inst.Operands()[1]))
	case NodeArithmetic:
		return fmt.Sprintf("%s%s %s, %s", d, inst.ArithOp(), valueRef(inst.Operands()[0]), valueRef(inst.Operands()[1]))
	case NodeUnaryArithmetic:
		return fmt.Sprintf("%s%s %s", d, inst.ArithOp(), valueRef(inst.Operands()[0]))
	case NodeCompare:
		return fmt.Sprintf("%scmp.%s.%s %s, %s", d, cmpModeStr(inst.CompareMode()), inst.ComparePred(),
			valueRef(inst.Operands()[0]), valueRef(inst.Operands()[1]))
	case NodeConversion:
		return fmt.Sprintf("%s%s %s to %s", d, inst.ConvOp(), valueRef(inst.Operands()[0]), inst.Type())
	case NodePhi:
		parts := make([]string, len(inst.IncomingBlocks()))
		for i, b := range inst.IncomingBlocks() {
			parts[i] = fmt.Sprintf("[%s : %s]", b.Name(), valueRef(inst.Operands()[i]))
		}
		return fmt.Sprintf("%sphi %s", d, strings.Join(parts, ", "))
	case NodeCall:
		args := make([]string, len(inst.Args()))
		for i, a := range inst.Args() {
			args[i] = valueRef(a)
		}
		tail := ""
		if inst.IsTailCall() {
			tail = "tail "
		}
		return fmt.Sprintf("%s%scall %s(%s)", d, tail, valueRef(inst.Callee()), strings.Join(args, ", "))
	case NodeReturn:
		if inst.NumOperands() == 0 {
			return "return"
		}
		return fmt.Sprintf("return %s", valueRef(inst.Operands()[0]))
	case NodeGoto:
		return fmt.Sprintf("goto label %%%s", inst.Target().Name())
	case NodeBranch:
		return fmt.Sprintf("branch %s, label %%%s, label %%%s",
			valueRef(inst.Condition()), inst.TrueTarget().Name(), inst.FalseTarget().Name())
	case NodeSelect:
		return fmt.Sprintf("%sselect %s, %s, %s", d, valueRef(inst.Operands()[0]), valueRef(inst.Operands()[1]), valueRef(inst.Operands()[2]))
	case NodeInsertValue:
		return fmt.Sprintf("%sinsert_value %s, %s", d, valueRef(inst.Operands()[0]), valueRef(inst.Operands()[1]))
	case NodeExtractValue:
		return fmt.Sprintf("%sextract_value %s", d, valueRef(inst.Operands()[0]))
	case NodeUnreachable:
		return "unreachable"
	default:
		return "<unknown inst>"
	}
}

func cmpModeStr(m CompareMode) string {
	switch m {
	case Signed:
		return "s"
	case Unsigned:
		return "u"
	default:
		return "f"
	}
}
