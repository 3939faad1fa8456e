package isel

import (
	"testing"

	"scathac/internal/common"
	"scathac/internal/ir/cfg"
	"scathac/internal/mir"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLowerAddOneReturnsArithAndReturn(t *testing.T) {
	ctx := cfg.NewContext()
	i32 := ctx.IntegerType(32)
	fnType := ctx.FunctionType(i32, []*cfg.Type{i32})
	fn := ctx.NewFunction("addOne", fnType, []string{"n"}, cfg.External)
	entry := cfg.NewBasicBlock(ctx, "entry")
	fn.PushBlock(entry)

	sum := cfg.NewArithmetic(cfg.Add, fn.Params()[0], ctx.IntConst(common.NewAPInt(32, 1), i32), i32, "sum")
	entry.PushInst(sum)
	entry.PushInst(cfg.NewReturn(ctx, sum))

	mod := cfg.NewModule(ctx)
	mod.AddFunction(fn)

	mmod := Lower(mod)
	require.NoError(t, mir.AssertInvariants(mmod))

	mfn := mmod.FindFunction("addOne")
	require.NotNil(t, mfn)
	require.Len(t, mfn.Blocks(), 2, "expected a param-materialization prologue plus the body")

	prologue := mfn.Blocks()[0].Instructions()
	require.Len(t, prologue, 2, "expected a param move and a jump into the body")
	assert.Equal(t, mir.InstMove, prologue[0].Opcode())
	assert.Equal(t, mir.InstJump, prologue[1].Opcode())

	body := mfn.Blocks()[1].Instructions()
	require.True(t, len(body) >= 2, "expected at least an add and a return")
	last := body[len(body)-1]
	assert.Equal(t, mir.InstReturn, last.Opcode())
}

func TestLowerBranchOnCompareUsesCondJump(t *testing.T) {
	ctx := cfg.NewContext()
	i32 := ctx.IntegerType(32)
	fnType := ctx.FunctionType(i32, []*cfg.Type{i32})
	fn := ctx.NewFunction("clamp", fnType, []string{"n"}, cfg.External)
	entry := cfg.NewBasicBlock(ctx, "entry")
	ifTrue := cfg.NewBasicBlock(ctx, "ifTrue")
	ifFalse := cfg.NewBasicBlock(ctx, "ifFalse")
	fn.PushBlock(entry)
	fn.PushBlock(ifTrue)
	fn.PushBlock(ifFalse)

	cmp := cfg.NewCompare(ctx, cfg.Signed, cfg.CmpLT, fn.Params()[0], ctx.IntConst(common.NewAPInt(32, 0), i32), "isneg")
	entry.PushInst(cmp)
	entry.PushInst(cfg.NewBranch(ctx, cmp, ifTrue, ifFalse))
	ifTrue.PushInst(cfg.NewReturn(ctx, ctx.IntConst(common.NewAPInt(32, 0), i32)))
	ifFalse.PushInst(cfg.NewReturn(ctx, fn.Params()[0]))

	mod := cfg.NewModule(ctx)
	mod.AddFunction(fn)

	mmod := Lower(mod)
	require.NoError(t, mir.AssertInvariants(mmod))

	mfn := mmod.FindFunction("clamp")
	require.NotNil(t, mfn)
	require.Len(t, mfn.Blocks(), 4, "expected a prologue plus entry/ifTrue/ifFalse")
	term := mfn.Blocks()[1].Terminator()
	require.NotNil(t, term)
	assert.Equal(t, mir.InstCondJump, term.Opcode())
	assert.Equal(t, mir.JumpLT, term.JumpCond())
}

func TestLowerCallMaterializesCalleeRegisters(t *testing.T) {
	ctx := cfg.NewContext()
	i32 := ctx.IntegerType(32)
	calleeType := ctx.FunctionType(i32, []*cfg.Type{i32})
	callee := ctx.NewFunction("inc", calleeType, []string{"x"}, cfg.Internal)
	calleeEntry := cfg.NewBasicBlock(ctx, "entry")
	callee.PushBlock(calleeEntry)
	calleeEntry.PushInst(cfg.NewReturn(ctx, callee.Params()[0]))

	callerType := ctx.FunctionType(i32, nil)
	caller := ctx.NewFunction("main", callerType, nil, cfg.External)
	callerEntry := cfg.NewBasicBlock(ctx, "entry")
	caller.PushBlock(callerEntry)
	call := cfg.NewCall(callee, []cfg.Value{ctx.IntConst(common.NewAPInt(32, 41), i32)}, i32, "r")
	callerEntry.PushInst(call)
	callerEntry.PushInst(cfg.NewReturn(ctx, call))

	mod := cfg.NewModule(ctx)
	mod.AddFunction(callee)
	mod.AddFunction(caller)

	mmod := Lower(mod)
	require.NoError(t, mir.AssertInvariants(mmod))

	mmain := mmod.FindFunction("main")
	var sawCall bool
	for _, inst := range mmain.Blocks()[0].Instructions() {
		if inst.Opcode() == mir.InstCall {
			sawCall = true
			require.Len(t, inst.Args(), 1)
			_, isCalleeReg := inst.Args()[0].(*mir.Register)
			assert.True(t, isCalleeReg)
		}
	}
	assert.True(t, sawCall)
}

func TestLowerCallToExternalFunctionEmitsCallExt(t *testing.T) {
	ctx := cfg.NewContext()
	i32 := ctx.IntegerType(32)
	externType := ctx.FunctionType(i32, []*cfg.Type{i32})
	extern := ctx.NewFunction("host_add", externType, []string{"x"}, cfg.External)
	// No blocks pushed: extern is a declaration only.

	callerType := ctx.FunctionType(i32, nil)
	caller := ctx.NewFunction("main", callerType, nil, cfg.External)
	callerEntry := cfg.NewBasicBlock(ctx, "entry")
	caller.PushBlock(callerEntry)
	call := cfg.NewCall(extern, []cfg.Value{ctx.IntConst(common.NewAPInt(32, 7), i32)}, i32, "r")
	callerEntry.PushInst(call)
	callerEntry.PushInst(cfg.NewReturn(ctx, call))

	mod := cfg.NewModule(ctx)
	mod.AddFunction(extern)
	mod.AddFunction(caller)

	mmod := Lower(mod)
	require.NoError(t, mir.AssertInvariants(mmod))

	require.Len(t, mmod.Externs(), 1)
	assert.Equal(t, "host_add", mmod.Externs()[0].Name)

	mmain := mmod.FindFunction("main")
	var sawCallExt bool
	for _, inst := range mmain.Blocks()[0].Instructions() {
		if inst.Opcode() == mir.InstCallExt {
			sawCallExt = true
			assert.Equal(t, uint32(0), inst.FFISlot())
			assert.Equal(t, uint32(0), inst.FFIIndex())
		}
	}
	assert.True(t, sawCallExt)
}
