package passes

import (
	"testing"

	"scathac/internal/common"
	"scathac/internal/ir/cfg"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPropConstFoldsUniformPhi(t *testing.T) {
	ctx := cfg.NewContext()
	i32 := ctx.IntegerType(32)
	fnType := ctx.FunctionType(i32, nil)
	fn := ctx.NewFunction("f", fnType, nil, cfg.External)

	entry := cfg.NewBasicBlock(ctx, "entry")
	left := cfg.NewBasicBlock(ctx, "left")
	right := cfg.NewBasicBlock(ctx, "right")
	join := cfg.NewBasicBlock(ctx, "join")
	fn.PushBlock(entry)
	fn.PushBlock(left)
	fn.PushBlock(right)
	fn.PushBlock(join)

	cond := ctx.IntConst(common.NewAPInt(1, 1), ctx.IntegerType(1))
	entry.PushInst(cfg.NewBranch(ctx, cond, left, right))
	left.PushInst(cfg.NewGoto(ctx, join))
	right.PushInst(cfg.NewGoto(ctx, join))

	seven := ctx.IntConst(common.NewAPInt(32, 7), i32)
	phi := cfg.NewPhi(i32, nil, "p")
	join.PushInst(phi)
	phi.SetIncoming(left, seven)
	phi.SetIncoming(right, seven)
	join.PushInst(cfg.NewReturn(ctx, phi))

	modified := propconst(ctx, fn, nil)
	require.True(t, modified)
	ret := join.Terminator()
	c, ok := asConstInt(ret.Operands()[0])
	require.True(t, ok)
	assert.Equal(t, int64(7), c.Val.Value.Int64())
	assert.False(t, propconst(ctx, fn, nil), "second run must be a no-op")
}

func TestPropConstLeavesDivergentPhiAlone(t *testing.T) {
	ctx := cfg.NewContext()
	i32 := ctx.IntegerType(32)
	fnType := ctx.FunctionType(i32, nil)
	fn := ctx.NewFunction("f", fnType, nil, cfg.External)

	entry := cfg.NewBasicBlock(ctx, "entry")
	left := cfg.NewBasicBlock(ctx, "left")
	right := cfg.NewBasicBlock(ctx, "right")
	join := cfg.NewBasicBlock(ctx, "join")
	fn.PushBlock(entry)
	fn.PushBlock(left)
	fn.PushBlock(right)
	fn.PushBlock(join)

	cond := ctx.IntConst(common.NewAPInt(1, 1), ctx.IntegerType(1))
	entry.PushInst(cfg.NewBranch(ctx, cond, left, right))
	left.PushInst(cfg.NewGoto(ctx, join))
	right.PushInst(cfg.NewGoto(ctx, join))

	phi := cfg.NewPhi(i32, nil, "p")
	join.PushInst(phi)
	phi.SetIncoming(left, ctx.IntConst(common.NewAPInt(32, 1), i32))
	phi.SetIncoming(right, ctx.IntConst(common.NewAPInt(32, 2), i32))
	join.PushInst(cfg.NewReturn(ctx, phi))

	assert.False(t, propconst(ctx, fn, nil))
}

func TestPropConstFoldsSignExtend(t *testing.T) {
	ctx := cfg.NewContext()
	i8 := ctx.IntegerType(8)
	i32 := ctx.IntegerType(32)
	fnType := ctx.FunctionType(i32, nil)
	fn := ctx.NewFunction("f", fnType, nil, cfg.External)
	entry := cfg.NewBasicBlock(ctx, "entry")
	fn.PushBlock(entry)

	negOne := ctx.IntConst(common.NewAPInt(8, 0xFF), i8)
	ext := cfg.NewConversion(cfg.SExt, negOne, i32, "ext")
	entry.PushInst(ext)
	entry.PushInst(cfg.NewReturn(ctx, ext))

	require.True(t, propconst(ctx, fn, nil))
	ret := entry.Terminator()
	c, ok := asConstInt(ret.Operands()[0])
	require.True(t, ok)
	assert.Equal(t, int64(4294967295), c.Val.Value.Int64(), "sign-extending 0xFF:i8 into i32 yields the all-ones 32-bit pattern")
}
