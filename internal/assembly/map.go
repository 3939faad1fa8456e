package assembly

import (
	"fmt"

	"scathac/internal/bytecode/opcode"
	"scathac/internal/mir"
)

// AssembleError reports an illegal opcode-overload combination or
// other instruction-selection failure discovered while assembling one
// MIR instruction, tagged with enough context to locate it -- no
// source span survives this late in the pipeline (register
// allocation and devirtualize have already erased the IR-level
// provenance), so function/block/index stands in for it, the same
// granularity original_source's own late-pipeline assertions report
// at.
type AssembleError struct {
	Function, Block string
	Index           int
	Reason          string
}

func (e *AssembleError) Error() string {
	return fmt.Sprintf("%s:%s[%d]: %s", e.Function, e.Block, e.Index, e.Reason)
}

// mapMove resolves mir's width-polymorphic InstMove to a concrete
// mov{8,16,32,64}, mirroring Map.h's mapMove(ValueType dest, ValueType
// source): dest must be a register (enforced by the caller, which
// only ever builds Reg operands for a Move's dest); width alone then
// selects the encoding, since the VM's operand tag byte distinguishes
// a register source from an immediate at run time rather than at
// encode time.
func mapMove(width int) (opcode.OpCode, error) {
	switch width {
	case 8:
		return opcode.Mov8, nil
	case 16:
		return opcode.Mov16, nil
	case 32:
		return opcode.Mov32, nil
	case 64:
		return opcode.Mov64, nil
	default:
		return 0, fmt.Errorf("mov: unsupported width %d", width)
	}
}

// mapArithmetic resolves an InstArith's (operator, width) to its
// concrete opcode.
func mapArithmetic(op mir.ArithOp, width int) (opcode.OpCode, error) {
	if width != 32 && width != 64 {
		return 0, fmt.Errorf("arithmetic: unsupported width %d", width)
	}
	is32 := width == 32
	pick := func(o32, o64 opcode.OpCode) (opcode.OpCode, error) {
		if is32 {
			return o32, nil
		}
		return o64, nil
	}
	switch op {
	case mir.Add:
		return pick(opcode.Add32, opcode.Add64)
	case mir.Sub:
		return pick(opcode.Sub32, opcode.Sub64)
	case mir.Mul:
		return pick(opcode.Mul32, opcode.Mul64)
	case mir.SDiv:
		return pick(opcode.SDiv32, opcode.SDiv64)
	case mir.UDiv:
		return pick(opcode.UDiv32, opcode.UDiv64)
	case mir.SRem:
		return pick(opcode.SRem32, opcode.SRem64)
	case mir.URem:
		return pick(opcode.URem32, opcode.URem64)
	case mir.Shl:
		return pick(opcode.Shl32, opcode.Shl64)
	case mir.LShr:
		return pick(opcode.LShr32, opcode.LShr64)
	case mir.AShr:
		return pick(opcode.AShr32, opcode.AShr64)
	case mir.And:
		return pick(opcode.And32, opcode.And64)
	case mir.Or:
		return pick(opcode.Or32, opcode.Or64)
	case mir.Xor:
		return pick(opcode.Xor32, opcode.Xor64)
	case mir.FAdd:
		return pick(opcode.FAdd32, opcode.FAdd64)
	case mir.FSub:
		return pick(opcode.FSub32, opcode.FSub64)
	case mir.FMul:
		return pick(opcode.FMul32, opcode.FMul64)
	case mir.FDiv:
		return pick(opcode.FDiv32, opcode.FDiv64)
	default:
		return 0, fmt.Errorf("arithmetic: unhandled operator %v", op)
	}
}

// mapCompare resolves InstCompare to cmp{s,u,f}{32,64}.
func mapCompare(mode mir.CompareMode, width int) (opcode.OpCode, error) {
	switch {
	case mode == mir.Signed && width == 32:
		return opcode.CmpS32, nil
	case mode == mir.Signed && width == 64:
		return opcode.CmpS64, nil
	case mode == mir.Unsigned && width == 32:
		return opcode.CmpU32, nil
	case mode == mir.Unsigned && width == 64:
		return opcode.CmpU64, nil
	case mode == mir.Float && width == 32:
		return opcode.CmpF32, nil
	case mode == mir.Float && width == 64:
		return opcode.CmpF64, nil
	default:
		return 0, fmt.Errorf("compare: unsupported (mode %v, width %d)", mode, width)
	}
}

// mapTest resolves InstTest to test{s,u}{8,16,32,64}; unlike compare,
// test has no float form (spec's instruction-set list names only
// testsN/testuN).
func mapTest(mode mir.CompareMode, width int) (opcode.OpCode, error) {
	if mode == mir.Float {
		return 0, fmt.Errorf("test: no float form")
	}
	signed := mode == mir.Signed
	switch {
	case signed && width == 8:
		return opcode.TestS8, nil
	case signed && width == 16:
		return opcode.TestS16, nil
	case signed && width == 32:
		return opcode.TestS32, nil
	case signed && width == 64:
		return opcode.TestS64, nil
	case !signed && width == 8:
		return opcode.TestU8, nil
	case !signed && width == 16:
		return opcode.TestU16, nil
	case !signed && width == 32:
		return opcode.TestU32, nil
	case !signed && width == 64:
		return opcode.TestU64, nil
	default:
		return 0, fmt.Errorf("test: unsupported width %d", width)
	}
}

// mapSet resolves InstSet to set{eq,ne,lt,le,gt,ge}.
func mapSet(pred mir.ComparePred) (opcode.OpCode, error) {
	switch pred {
	case mir.CmpEQ:
		return opcode.SetEQ, nil
	case mir.CmpNE:
		return opcode.SetNE, nil
	case mir.CmpLT:
		return opcode.SetLT, nil
	case mir.CmpLE:
		return opcode.SetLE, nil
	case mir.CmpGT:
		return opcode.SetGT, nil
	case mir.CmpGE:
		return opcode.SetGE, nil
	default:
		return 0, fmt.Errorf("set: unhandled predicate %v", pred)
	}
}

// mapJump resolves an InstCondJump's condition to j{eq,ne,lt,le,gt,ge};
// a plain InstJump always maps to Jmp directly and never reaches this
// function.
func mapJump(cond mir.JumpCond) (opcode.OpCode, error) {
	switch cond {
	case mir.JumpEQ:
		return opcode.JEQ, nil
	case mir.JumpNE:
		return opcode.JNE, nil
	case mir.JumpLT:
		return opcode.JLT, nil
	case mir.JumpLE:
		return opcode.JLE, nil
	case mir.JumpGT:
		return opcode.JGT, nil
	case mir.JumpGE:
		return opcode.JGE, nil
	default:
		return 0, fmt.Errorf("jump: unhandled condition %v", cond)
	}
}

// mapLoadStore resolves an InstLoad/InstStore's width to load/storeN.
func mapLoadStore(isLoad bool, width int) (opcode.OpCode, error) {
	loads := [...]opcode.OpCode{opcode.Load8, opcode.Load16, opcode.Load32, opcode.Load64}
	stores := [...]opcode.OpCode{opcode.Store8, opcode.Store16, opcode.Store32, opcode.Store64}
	var idx int
	switch width {
	case 8:
		idx = 0
	case 16:
		idx = 1
	case 32:
		idx = 2
	case 64:
		idx = 3
	default:
		return 0, fmt.Errorf("load/store: unsupported width %d", width)
	}
	if isLoad {
		return loads[idx], nil
	}
	return stores[idx], nil
}
