package assembly

import (
	"fmt"

	"scathac/internal/mir"
)

// Assemble lowers a post-mirpasses MIR module (every register already
// a HardwareRegister, blocks already reordered by ElideJumps) into one
// AssemblyStream: one Block per MIR basic block, instructions chosen
// by the map* overload-resolution functions. Every function's entry
// block is marked public so its name lands in the linked Program's
// symbol table; addr() then resolves InstCall's callee directly to
// that Block, since the whole module is assembled into a single
// stream and no cross-stream label is needed for an ordinary internal
// call.
//
// Known simplification: MIR Load/Store carry an optional dynamic
// Index() operand for addressing-mode fusion, but internal/isel's GEP
// lowering is documented as never producing one (its dynamic-index
// case always folds into an explicit Arith beforehand), so Assemble
// rejects a non-nil Index() as an internal error rather than
// implementing fused addressing modes this port never emits.
func Assemble(mod *mir.Module) (*AssemblyStream, error) {
	stream := NewAssemblyStream()
	blocks := make(map[*mir.BasicBlock]*Block)
	entries := make(map[*mir.Function]*Block)

	for _, fn := range mod.Functions() {
		if len(fn.Blocks()) == 0 {
			continue
		}
		for i, bb := range fn.Blocks() {
			label := fn.Name()
			if i > 0 {
				label = fmt.Sprintf("%s.%s", fn.Name(), bb.Name())
			}
			b := NewBlock(label, i == 0)
			blocks[bb] = b
			stream.Add(b)
			if i == 0 {
				entries[fn] = b
			}
		}
	}

	for _, fn := range mod.Functions() {
		if len(fn.Blocks()) == 0 {
			continue
		}
		if err := assembleFunction(fn, blocks, entries); err != nil {
			return nil, err
		}
	}

	return stream, nil
}

func assembleFunction(fn *mir.Function, blocks map[*mir.BasicBlock]*Block, entries map[*mir.Function]*Block) error {
	fnBlocks := fn.Blocks()
	for bi, bb := range fnBlocks {
		out := blocks[bb]
		var nextBlock *mir.BasicBlock
		if bi+1 < len(fnBlocks) {
			nextBlock = fnBlocks[bi+1]
		}
		for ii, inst := range bb.Instructions() {
			if err := translateInstruction(fn, bb, inst, ii, out, blocks, entries, nextBlock); err != nil {
				return err
			}
		}
	}
	return nil
}

func operandOf(v mir.Value) (Operand, error) {
	switch vv := v.(type) {
	case *mir.Register:
		if vv.NodeType() != mir.NodeHardwareRegister {
			return Operand{}, fmt.Errorf("assemble: operand register %v not yet allocated to hardware", vv)
		}
		return Reg(uint8(vv.Index())), nil
	case *mir.Constant:
		return Imm(vv.Value()), nil
	default:
		return Operand{}, fmt.Errorf("assemble: unsupported operand value %T", v)
	}
}

func hwIndex(r *mir.Register) (uint8, error) {
	if r == nil {
		return 0, fmt.Errorf("assemble: nil register")
	}
	if r.NodeType() != mir.NodeHardwareRegister {
		return 0, fmt.Errorf("assemble: register %v not yet allocated to hardware", r)
	}
	return uint8(r.Index()), nil
}

// resultRegister is the hardware register a function's return value
// (and, for the top-level entry point, the program's exit status) is
// read from, per §6's "the exit code of the loaded program is
// whatever it places in register 0".
const resultRegister = 0

func translateInstruction(
	fn *mir.Function, bb *mir.BasicBlock, inst *mir.Instruction, idx int,
	out *Block, blocks map[*mir.BasicBlock]*Block, entries map[*mir.Function]*Block,
	nextBlock *mir.BasicBlock,
) error {
	errAt := func(reason string) error {
		return &AssembleError{Function: fn.Name(), Block: bb.Name(), Index: idx, Reason: reason}
	}

	switch inst.Opcode() {
	case mir.InstMove:
		dest, err := hwIndex(inst.Dest())
		if err != nil {
			return errAt(err.Error())
		}
		// A stack allocation from isel: InstData holds its byte count.
		if n := inst.InstData(); n != 0 {
			out.Add(NewLincSP(dest, n))
			break
		}
		src, err := operandOf(inst.Operands()[0])
		if err != nil {
			return errAt(err.Error())
		}
		op, err := mapMove(inst.Width())
		if err != nil {
			return errAt(err.Error())
		}
		out.Add(NewMov(op, dest, src))

	case mir.InstArith:
		dest, err := hwIndex(inst.Dest())
		if err != nil {
			return errAt(err.Error())
		}
		lhs, err := operandOf(inst.Operands()[0])
		if err != nil {
			return errAt(err.Error())
		}
		rhs, err := operandOf(inst.Operands()[1])
		if err != nil {
			return errAt(err.Error())
		}
		op, err := mapArithmetic(inst.ArithOp(), inst.Width())
		if err != nil {
			return errAt(err.Error())
		}
		// The ISA's arithmetic op is accumulate-style (dest := dest <op>
		// rhs): when lhs isn't already dest's register, materialize it
		// there first, exactly as a copy-coalesced regalloc output would
		// already arrange in the common case.
		if lhs.Kind() != KindRegister || lhs.Register() != dest {
			movOp, err := mapMove(inst.Width())
			if err != nil {
				return errAt(err.Error())
			}
			out.Add(NewMov(movOp, dest, lhs))
		}
		out.Add(NewArith(op, dest, Reg(dest), rhs))

	case mir.InstCompare:
		lhs, err := hwIndex(asRegister(inst.Operands()[0]))
		if err != nil {
			return errAt(err.Error())
		}
		rhs, err := operandOf(inst.Operands()[1])
		if err != nil {
			return errAt(err.Error())
		}
		op, err := mapCompare(inst.CompareMode(), inst.Width())
		if err != nil {
			return errAt(err.Error())
		}
		out.Add(NewCompareOrTest(op, lhs, rhs))

	case mir.InstTest:
		lhs, err := hwIndex(asRegister(inst.Operands()[0]))
		if err != nil {
			return errAt(err.Error())
		}
		op, err := mapTest(inst.CompareMode(), inst.Width())
		if err != nil {
			return errAt(err.Error())
		}
		out.Add(NewCompareOrTest(op, lhs, Imm(0)))

	case mir.InstSet:
		dest, err := hwIndex(inst.Dest())
		if err != nil {
			return errAt(err.Error())
		}
		op, err := mapSet(inst.ComparePred())
		if err != nil {
			return errAt(err.Error())
		}
		out.Add(NewSet(op, dest))

	case mir.InstLoad:
		if inst.Index() != nil {
			return errAt("dynamic addressing-mode fusion for load is not implemented")
		}
		dest, err := hwIndex(inst.Dest())
		if err != nil {
			return errAt(err.Error())
		}
		base, err := hwIndex(asRegister(inst.Base()))
		if err != nil {
			return errAt(err.Error())
		}
		op, err := mapLoadStore(true, inst.Width())
		if err != nil {
			return errAt(err.Error())
		}
		out.Add(NewLoad(op, dest, base))

	case mir.InstStore:
		if inst.Index() != nil {
			return errAt("dynamic addressing-mode fusion for store is not implemented")
		}
		base, err := hwIndex(asRegister(inst.Base()))
		if err != nil {
			return errAt(err.Error())
		}
		val, err := operandOf(inst.Operands()[2])
		if err != nil {
			return errAt(err.Error())
		}
		op, err := mapLoadStore(false, inst.Width())
		if err != nil {
			return errAt(err.Error())
		}
		out.Add(NewStore(op, base, val))

	case mir.InstCall:
		callee := inst.Callee()
		target, ok := entries[callee]
		if !ok {
			return errAt(fmt.Sprintf("callee %q has no assembled body", callee.Name()))
		}
		out.Add(NewCall(target))
		if inst.Dest() != nil {
			dest, err := hwIndex(inst.Dest())
			if err != nil {
				return errAt(err.Error())
			}
			if dest != resultRegister {
				op, _ := mapMove(64)
				out.Add(NewMov(op, dest, Reg(resultRegister)))
			}
		}

	case mir.InstCallExt:
		out.Add(NewCallExt(inst.FFISlot(), inst.FFIIndex()))
		if inst.Dest() != nil {
			dest, err := hwIndex(inst.Dest())
			if err != nil {
				return errAt(err.Error())
			}
			if dest != resultRegister {
				op, _ := mapMove(64)
				out.Add(NewMov(op, dest, Reg(resultRegister)))
			}
		}

	case mir.InstCallIndirect:
		reg, err := hwIndex(asRegister(inst.CalleeValue()))
		if err != nil {
			return errAt(err.Error())
		}
		out.Add(NewCallV(reg))
		if inst.Dest() != nil {
			dest, err := hwIndex(inst.Dest())
			if err != nil {
				return errAt(err.Error())
			}
			if dest != resultRegister {
				op, _ := mapMove(64)
				out.Add(NewMov(op, dest, Reg(resultRegister)))
			}
		}

	case mir.InstReturn:
		if inst.NumOperands() == 1 {
			val, err := operandOf(inst.Operands()[0])
			if err != nil {
				return errAt(err.Error())
			}
			if val.Kind() != KindRegister || val.Register() != resultRegister {
				op, _ := mapMove(64)
				out.Add(NewMov(op, resultRegister, val))
			}
		}
		out.Add(NewRet())

	case mir.InstJump:
		target := blocks[inst.Target()]
		out.Add(NewJump(target))

	case mir.InstCondJump:
		op, err := mapJump(inst.JumpCond())
		if err != nil {
			return errAt(err.Error())
		}
		out.Add(NewCondJump(op, blocks[inst.TrueTarget()]))
		if inst.FalseTarget() != nextBlock {
			out.Add(NewJump(blocks[inst.FalseTarget()]))
		}

	case mir.InstSelect:
		return errAt("select survived mirpasses.LowerSelect; Run must execute it before Assemble")

	case mir.InstTrap:
		out.Add(NewTrap())

	case mir.InstPhi:
		return errAt("phi survived destroySSA; mirpasses.Run must run before Assemble")

	default:
		return errAt(fmt.Sprintf("unhandled MIR opcode %v", inst.Opcode()))
	}
	return nil
}

func asRegister(v mir.Value) *mir.Register {
	r, _ := v.(*mir.Register)
	return r
}
