package passes

import (
	"testing"

	"scathac/internal/common"
	"scathac/internal/ir/cfg"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGVNReusesDominatingExpression(t *testing.T) {
	ctx := cfg.NewContext()
	i32 := ctx.IntegerType(32)
	fnType := ctx.FunctionType(i32, []*cfg.Type{i32})
	fn := ctx.NewFunction("f", fnType, []string{"x"}, cfg.External)

	entry := cfg.NewBasicBlock(ctx, "entry")
	next := cfg.NewBasicBlock(ctx, "next")
	fn.PushBlock(entry)
	fn.PushBlock(next)

	x := fn.Params()[0]
	one := ctx.IntConst(common.NewAPInt(32, 1), i32)
	first := cfg.NewArithmetic(cfg.Add, x, one, i32, "first")
	entry.PushInst(first)
	entry.PushInst(cfg.NewGoto(ctx, next))

	second := cfg.NewArithmetic(cfg.Add, x, one, i32, "second")
	next.PushInst(second)
	next.PushInst(cfg.NewReturn(ctx, second))

	modified := gvn(ctx, fn, nil)
	require.True(t, modified)
	ret := next.Terminator()
	assert.Equal(t, cfg.Value(first), ret.Operands()[0])
	require.NoError(t, cfg.AssertInvariants(moduleOf(ctx, fn)))
	assert.False(t, gvn(ctx, fn, nil), "second run must be a no-op")
}

func TestGVNDoesNotMergeSiblingBranches(t *testing.T) {
	ctx := cfg.NewContext()
	i32 := ctx.IntegerType(32)
	fnType := ctx.FunctionType(i32, []*cfg.Type{i32})
	fn := ctx.NewFunction("f", fnType, []string{"x"}, cfg.External)

	entry := cfg.NewBasicBlock(ctx, "entry")
	left := cfg.NewBasicBlock(ctx, "left")
	right := cfg.NewBasicBlock(ctx, "right")
	fn.PushBlock(entry)
	fn.PushBlock(left)
	fn.PushBlock(right)

	x := fn.Params()[0]
	one := ctx.IntConst(common.NewAPInt(32, 1), i32)
	cond := ctx.IntConst(common.NewAPInt(1, 1), ctx.IntegerType(1))
	entry.PushInst(cfg.NewBranch(ctx, cond, left, right))

	leftAdd := cfg.NewArithmetic(cfg.Add, x, one, i32, "leftadd")
	left.PushInst(leftAdd)
	left.PushInst(cfg.NewReturn(ctx, leftAdd))

	rightAdd := cfg.NewArithmetic(cfg.Add, x, one, i32, "rightadd")
	right.PushInst(rightAdd)
	right.PushInst(cfg.NewReturn(ctx, rightAdd))

	modified := gvn(ctx, fn, nil)
	assert.False(t, modified, "neither branch dominates the other, so neither add may replace the other")
	assert.Equal(t, cfg.Value(leftAdd), left.Terminator().Operands()[0])
	assert.Equal(t, cfg.Value(rightAdd), right.Terminator().Operands()[0])
}
