package passes

import (
	"testing"

	"scathac/internal/ir/cfg"
	"scathac/internal/pipeline"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildLeafReturningZero(ctx *cfg.Context, name string, vis cfg.Visibility) *cfg.Function {
	i32 := ctx.IntegerType(32)
	fnType := ctx.FunctionType(i32, nil)
	fn := ctx.NewFunction(name, fnType, nil, vis)
	entry := cfg.NewBasicBlock(ctx, "entry")
	fn.PushBlock(entry)
	entry.PushInst(cfg.NewReturn(ctx, zeroConst(ctx, i32)))
	return fn
}

func TestDeadFuncElimRemovesUnreachableInternal(t *testing.T) {
	ctx := cfg.NewContext()
	root := buildLeafReturningZero(ctx, "main", cfg.External)
	unused := buildLeafReturningZero(ctx, "unused", cfg.Internal)

	mod := cfg.NewModule(ctx)
	mod.AddFunction(root)
	mod.AddFunction(unused)

	modified := deadFuncElim(ctx, mod, nil, pipeline.Args{})
	require.True(t, modified)
	assert.Nil(t, mod.FindFunction("unused"))
	assert.NotNil(t, mod.FindFunction("main"))
}

func TestDeadFuncElimKeepsTransitivelyReachableChain(t *testing.T) {
	ctx := cfg.NewContext()
	i32 := ctx.IntegerType(32)

	leaf := buildLeafReturningZero(ctx, "leaf", cfg.Internal)

	fnType := ctx.FunctionType(i32, nil)
	middle := ctx.NewFunction("middle", fnType, nil, cfg.Internal)
	mEntry := cfg.NewBasicBlock(ctx, "entry")
	middle.PushBlock(mEntry)
	call := cfg.NewCall(cfg.Value(leaf), nil, i32, "r")
	mEntry.PushInst(call)
	mEntry.PushInst(cfg.NewReturn(ctx, call))

	root := ctx.NewFunction("main", fnType, nil, cfg.External)
	rEntry := cfg.NewBasicBlock(ctx, "entry")
	root.PushBlock(rEntry)
	call2 := cfg.NewCall(cfg.Value(middle), nil, i32, "r2")
	rEntry.PushInst(call2)
	rEntry.PushInst(cfg.NewReturn(ctx, call2))

	mod := cfg.NewModule(ctx)
	mod.AddFunction(root)
	mod.AddFunction(middle)
	mod.AddFunction(leaf)

	modified := deadFuncElim(ctx, mod, nil, pipeline.Args{})
	assert.False(t, modified, "every function is reachable from the external root")
	for _, name := range []string{"main", "middle", "leaf"} {
		assert.NotNil(t, mod.FindFunction(name), "%s must survive", name)
	}
}
