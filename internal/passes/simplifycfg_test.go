package passes

import (
	"testing"

	"scathac/internal/common"
	"scathac/internal/ir/cfg"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimplifyCFGFoldsConstantBranch(t *testing.T) {
	ctx := cfg.NewContext()
	i32 := ctx.IntegerType(32)
	fnType := ctx.FunctionType(i32, nil)
	fn := ctx.NewFunction("f", fnType, nil, cfg.External)

	entry := cfg.NewBasicBlock(ctx, "entry")
	left := cfg.NewBasicBlock(ctx, "left")
	right := cfg.NewBasicBlock(ctx, "right")
	fn.PushBlock(entry)
	fn.PushBlock(left)
	fn.PushBlock(right)

	one := ctx.IntConst(common.NewAPInt(1, 1), ctx.IntegerType(1))
	entry.PushInst(cfg.NewBranch(ctx, one, left, right))
	left.PushInst(cfg.NewReturn(ctx, ctx.IntConst(common.NewAPInt(32, 1), i32)))
	right.PushInst(cfg.NewReturn(ctx, ctx.IntConst(common.NewAPInt(32, 2), i32)))

	modified := simplifyCFG(ctx, fn, nil)
	require.True(t, modified)
	require.NoError(t, cfg.AssertInvariants(moduleOf(ctx, fn)))

	// The folded goto to left is merged away in the same run, so entry
	// ends in left's return of 1.
	term := entry.Terminator()
	require.Equal(t, cfg.NodeReturn, term.Kind())
	c, ok := asConstInt(term.Operands()[0])
	require.True(t, ok)
	assert.Equal(t, int64(1), c.Val.Value.Int64())
	assert.False(t, simplifyCFG(ctx, fn, nil), "second run must be a no-op")
}

func TestSimplifyCFGMergesStraightLineBlocks(t *testing.T) {
	ctx := cfg.NewContext()
	i32 := ctx.IntegerType(32)
	fnType := ctx.FunctionType(i32, nil)
	fn := ctx.NewFunction("f", fnType, nil, cfg.External)

	entry := cfg.NewBasicBlock(ctx, "entry")
	next := cfg.NewBasicBlock(ctx, "next")
	fn.PushBlock(entry)
	fn.PushBlock(next)

	v := ctx.IntConst(common.NewAPInt(32, 7), i32)
	entry.PushInst(cfg.NewGoto(ctx, next))
	next.PushInst(cfg.NewReturn(ctx, v))

	modified := simplifyCFG(ctx, fn, nil)
	require.True(t, modified)
	assert.Len(t, fn.Blocks(), 1)
	require.NoError(t, cfg.AssertInvariants(moduleOf(ctx, fn)))
}

func TestSimplifyCFGRemovesUnreachableBlocks(t *testing.T) {
	ctx := cfg.NewContext()
	i32 := ctx.IntegerType(32)
	fnType := ctx.FunctionType(i32, nil)
	fn := ctx.NewFunction("f", fnType, nil, cfg.External)

	entry := cfg.NewBasicBlock(ctx, "entry")
	dead := cfg.NewBasicBlock(ctx, "dead")
	fn.PushBlock(entry)
	fn.PushBlock(dead)

	entry.PushInst(cfg.NewReturn(ctx, ctx.IntConst(common.NewAPInt(32, 0), i32)))
	dead.PushInst(cfg.NewReturn(ctx, ctx.IntConst(common.NewAPInt(32, 1), i32)))

	modified := simplifyCFG(ctx, fn, nil)
	require.True(t, modified)
	assert.Len(t, fn.Blocks(), 1)
}

func moduleOf(ctx *cfg.Context, fn *cfg.Function) *cfg.Module {
	mod := cfg.NewModule(ctx)
	mod.AddFunction(fn)
	return mod
}
