package passes

import (
	"testing"

	"scathac/internal/common"
	"scathac/internal/ir/cfg"
	"scathac/internal/pipeline"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildAddOneCallee(ctx *cfg.Context) *cfg.Function {
	i32 := ctx.IntegerType(32)
	fnType := ctx.FunctionType(i32, []*cfg.Type{i32})
	callee := ctx.NewFunction("addone", fnType, []string{"x"}, cfg.Internal)
	entry := cfg.NewBasicBlock(ctx, "entry")
	callee.PushBlock(entry)
	x := callee.Params()[0]
	sum := cfg.NewArithmetic(cfg.Add, x, ctx.IntConst(common.NewAPInt(32, 1), i32), i32, "sum")
	entry.PushInst(sum)
	entry.PushInst(cfg.NewReturn(ctx, sum))
	return callee
}

func TestInlineSubstitutesArgsAndReturn(t *testing.T) {
	ctx := cfg.NewContext()
	i32 := ctx.IntegerType(32)
	callee := buildAddOneCallee(ctx)

	fnType := ctx.FunctionType(i32, []*cfg.Type{i32})
	caller := ctx.NewFunction("caller", fnType, []string{"n"}, cfg.External)
	entry := cfg.NewBasicBlock(ctx, "entry")
	caller.PushBlock(entry)
	n := caller.Params()[0]
	call := cfg.NewCall(cfg.Value(callee), []cfg.Value{n}, i32, "r")
	entry.PushInst(call)
	entry.PushInst(cfg.NewReturn(ctx, call))

	mod := cfg.NewModule(ctx)
	mod.AddFunction(caller)
	mod.AddFunction(callee)

	modified := inline(ctx, mod, nil, pipelineArgsWithMaxSize(25))
	require.True(t, modified)

	for _, inst := range entry.Instructions() {
		assert.NotEqual(t, cfg.NodeCall, inst.Kind())
	}
	ret := entry.Terminator()
	require.Equal(t, cfg.NodeReturn, ret.Kind())
	sum, ok := ret.Operands()[0].(*cfg.Instruction)
	require.True(t, ok)
	assert.Equal(t, cfg.NodeArithmetic, sum.Kind())
	assert.Equal(t, cfg.Value(n), sum.Operands()[0], "the cloned add must reference the caller's own argument, not the callee's parameter")
}

func TestInlineRefusesMultiBlockCallee(t *testing.T) {
	ctx := cfg.NewContext()
	i32 := ctx.IntegerType(32)
	fnType := ctx.FunctionType(i32, []*cfg.Type{i32})
	callee := ctx.NewFunction("multi", fnType, []string{"x"}, cfg.Internal)
	b1 := cfg.NewBasicBlock(ctx, "b1")
	b2 := cfg.NewBasicBlock(ctx, "b2")
	callee.PushBlock(b1)
	callee.PushBlock(b2)
	b1.PushInst(cfg.NewGoto(ctx, b2))
	b2.PushInst(cfg.NewReturn(ctx, callee.Params()[0]))

	caller := ctx.NewFunction("caller", fnType, []string{"n"}, cfg.External)
	entry := cfg.NewBasicBlock(ctx, "entry")
	caller.PushBlock(entry)
	call := cfg.NewCall(cfg.Value(callee), []cfg.Value{caller.Params()[0]}, i32, "r")
	entry.PushInst(call)
	entry.PushInst(cfg.NewReturn(ctx, call))

	mod := cfg.NewModule(ctx)
	mod.AddFunction(caller)
	mod.AddFunction(callee)

	assert.False(t, inline(ctx, mod, nil, pipelineArgsWithMaxSize(25)))
	found := false
	for _, inst := range entry.Instructions() {
		if inst.Kind() == cfg.NodeCall {
			found = true
		}
	}
	assert.True(t, found, "the call to a multi-block callee must survive untouched")
}

func TestInlineRefusesSelfRecursiveCallee(t *testing.T) {
	ctx := cfg.NewContext()
	i32 := ctx.IntegerType(32)
	fnType := ctx.FunctionType(i32, []*cfg.Type{i32})
	fn := ctx.NewFunction("f", fnType, []string{"n"}, cfg.External)
	entry := cfg.NewBasicBlock(ctx, "entry")
	fn.PushBlock(entry)
	call := cfg.NewCall(cfg.Value(fn), []cfg.Value{fn.Params()[0]}, i32, "r")
	entry.PushInst(call)
	entry.PushInst(cfg.NewReturn(ctx, call))

	mod := cfg.NewModule(ctx)
	mod.AddFunction(fn)

	assert.False(t, inline(ctx, mod, nil, pipelineArgsWithMaxSize(25)), "a function may not be inlined into itself")
}

func TestInlineRefusesAboveMaxCalleeSize(t *testing.T) {
	ctx := cfg.NewContext()
	i32 := ctx.IntegerType(32)
	callee := buildAddOneCallee(ctx) // 2 instructions: add, return

	fnType := ctx.FunctionType(i32, []*cfg.Type{i32})
	caller := ctx.NewFunction("caller", fnType, []string{"n"}, cfg.External)
	entry := cfg.NewBasicBlock(ctx, "entry")
	caller.PushBlock(entry)
	call := cfg.NewCall(cfg.Value(callee), []cfg.Value{caller.Params()[0]}, i32, "r")
	entry.PushInst(call)
	entry.PushInst(cfg.NewReturn(ctx, call))

	mod := cfg.NewModule(ctx)
	mod.AddFunction(caller)
	mod.AddFunction(callee)

	assert.False(t, inline(ctx, mod, nil, pipelineArgsWithMaxSize(1)))
}

func pipelineArgsWithMaxSize(n float64) pipeline.Args {
	return pipeline.Args{"max-callee-size": pipeline.ArgValue{Type: pipeline.ArgNumber, Num: n}}
}
