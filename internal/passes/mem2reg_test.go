package passes

import (
	"testing"

	"scathac/internal/common"
	"scathac/internal/ir/cfg"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildCounterLoop builds:
//
//	entry: %acc = alloca i32; store 0, %acc; goto loop
//	loop:  %v = load %acc; %next = add %v, 1; store %next, %acc
//	       %cond = icmp lt %next, 10; branch %cond, loop, exit
//	exit:  %r = load %acc; return %r
func buildCounterLoop(ctx *cfg.Context) (*cfg.Function, *cfg.Instruction) {
	i32 := ctx.IntegerType(32)
	fnType := ctx.FunctionType(i32, nil)
	fn := ctx.NewFunction("counter", fnType, nil, cfg.External)

	entry := cfg.NewBasicBlock(ctx, "entry")
	loop := cfg.NewBasicBlock(ctx, "loop")
	exit := cfg.NewBasicBlock(ctx, "exit")
	fn.PushBlock(entry)
	fn.PushBlock(loop)
	fn.PushBlock(exit)

	alloc := cfg.NewAlloca(ctx, i32, nil, "acc")
	entry.PushInst(alloc)
	entry.PushInst(cfg.NewStore(ctx, alloc, ctx.IntConst(common.NewAPInt(32, 0), i32)))
	entry.PushInst(cfg.NewGoto(ctx, loop))

	v := cfg.NewLoad(alloc, i32, "v")
	loop.PushInst(v)
	next := cfg.NewArithmetic(cfg.Add, v, ctx.IntConst(common.NewAPInt(32, 1), i32), i32, "next")
	loop.PushInst(next)
	loop.PushInst(cfg.NewStore(ctx, alloc, next))
	cond := cfg.NewCompare(ctx, cfg.Signed, cfg.CmpLT, next, ctx.IntConst(common.NewAPInt(32, 10), i32), "cond")
	loop.PushInst(cond)
	loop.PushInst(cfg.NewBranch(ctx, cond, loop, exit))

	r := cfg.NewLoad(alloc, i32, "r")
	exit.PushInst(r)
	exit.PushInst(cfg.NewReturn(ctx, r))

	return fn, alloc
}

func TestMem2RegPromotesLoopCounter(t *testing.T) {
	ctx := cfg.NewContext()
	fn, alloc := buildCounterLoop(ctx)

	modified := mem2reg(ctx, fn, nil)
	require.True(t, modified)

	for _, bb := range fn.Blocks() {
		for _, inst := range bb.Instructions() {
			assert.NotEqual(t, cfg.NodeAlloca, inst.Kind())
			assert.NotEqual(t, cfg.NodeLoad, inst.Kind())
			assert.NotEqual(t, cfg.NodeStore, inst.Kind())
		}
	}
	assert.Empty(t, alloc.Users())
	require.NoError(t, cfg.AssertInvariants(moduleOf(ctx, fn)))
	assert.False(t, mem2reg(ctx, fn, nil), "no allocas left to promote on a second run")
}

func TestMem2RegLeavesEscapingAllocaAlone(t *testing.T) {
	ctx := cfg.NewContext()
	i32 := ctx.IntegerType(32)
	voidFn := ctx.FunctionType(ctx.VoidType(), []*cfg.Type{ctx.PointerType()})
	callee := ctx.NewFunction("escape", voidFn, []string{"p"}, cfg.External)

	fnType := ctx.FunctionType(i32, nil)
	fn := ctx.NewFunction("f", fnType, nil, cfg.External)
	entry := cfg.NewBasicBlock(ctx, "entry")
	fn.PushBlock(entry)

	alloc := cfg.NewAlloca(ctx, i32, nil, "x")
	entry.PushInst(alloc)
	call := cfg.NewCall(callee, []cfg.Value{alloc}, ctx.VoidType(), "")
	entry.PushInst(call)
	entry.PushInst(cfg.NewReturn(ctx, ctx.IntConst(common.NewAPInt(32, 0), i32)))

	modified := mem2reg(ctx, fn, nil)
	assert.False(t, modified)
	assert.Equal(t, cfg.NodeAlloca, alloc.Kind())
}
