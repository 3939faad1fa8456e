package passes

import (
	"testing"

	"scathac/internal/common"
	"scathac/internal/ir/cfg"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildWhileCountUp builds a while-form counting loop with a separate
// latch block; the body's increment reads the header's induction phi:
//
//	entry:  goto header
//	header: %i = phi [0, entry], [%next, body]
//	        %cond = icmp lt %i, 10
//	        branch %cond, body, exit
//	body:   %next = add %i, 1
//	        goto header
//	exit:   return 0
func buildWhileCountUp(ctx *cfg.Context) (*cfg.Function, *cfg.BasicBlock, *cfg.BasicBlock, *cfg.BasicBlock) {
	i32 := ctx.IntegerType(32)
	fnType := ctx.FunctionType(i32, nil)
	fn := ctx.NewFunction("f", fnType, nil, cfg.External)

	entry := cfg.NewBasicBlock(ctx, "entry")
	header := cfg.NewBasicBlock(ctx, "header")
	body := cfg.NewBasicBlock(ctx, "body")
	exit := cfg.NewBasicBlock(ctx, "exit")
	fn.PushBlock(entry)
	fn.PushBlock(header)
	fn.PushBlock(body)
	fn.PushBlock(exit)

	zero := ctx.IntConst(common.NewAPInt(32, 0), i32)
	ten := ctx.IntConst(common.NewAPInt(32, 10), i32)
	one := ctx.IntConst(common.NewAPInt(32, 1), i32)

	entry.PushInst(cfg.NewGoto(ctx, header))

	iPhi := cfg.NewPhi(i32, nil, "i")
	header.PushInst(iPhi)
	cond := cfg.NewCompare(ctx, cfg.Signed, cfg.CmpLT, iPhi, ten, "cond")
	header.PushInst(cond)
	header.PushInst(cfg.NewBranch(ctx, cond, body, exit))

	next := cfg.NewArithmetic(cfg.Add, iPhi, one, i32, "next")
	body.PushInst(next)
	body.PushInst(cfg.NewGoto(ctx, header))

	iPhi.SetIncoming(entry, zero)
	iPhi.SetIncoming(body, next)

	exit.PushInst(cfg.NewReturn(ctx, zero))

	return fn, entry, header, body
}

func TestLoopRotateConvertsWhileToDoWhile(t *testing.T) {
	ctx := cfg.NewContext()
	fn, _, header, body := buildWhileCountUp(ctx)

	modified := looprotate(ctx, fn, nil)
	require.True(t, modified)
	require.NoError(t, cfg.AssertInvariants(moduleOf(ctx, fn)))

	bodyTerm := body.Terminator()
	require.Equal(t, cfg.NodeBranch, bodyTerm.Kind(), "the latch now carries its own copy of the exit test")
	headerTerm := header.Terminator()
	require.Equal(t, cfg.NodeBranch, headerTerm.Kind())
}

// buildWhileWithEscapingHeaderValue is identical to buildWhileCountUp
// except the header's own compare result is also consumed in the body,
// which looprotate must refuse to rotate: after rotation the header
// only runs once, so a body use of a header value would go stale.
func buildWhileWithEscapingHeaderValue(ctx *cfg.Context) *cfg.Function {
	i32 := ctx.IntegerType(32)
	fnType := ctx.FunctionType(i32, nil)
	fn := ctx.NewFunction("f", fnType, nil, cfg.External)

	entry := cfg.NewBasicBlock(ctx, "entry")
	header := cfg.NewBasicBlock(ctx, "header")
	body := cfg.NewBasicBlock(ctx, "body")
	exit := cfg.NewBasicBlock(ctx, "exit")
	fn.PushBlock(entry)
	fn.PushBlock(header)
	fn.PushBlock(body)
	fn.PushBlock(exit)

	zero := ctx.IntConst(common.NewAPInt(32, 0), i32)
	ten := ctx.IntConst(common.NewAPInt(32, 10), i32)
	one := ctx.IntConst(common.NewAPInt(32, 1), i32)

	entry.PushInst(cfg.NewGoto(ctx, header))

	iPhi := cfg.NewPhi(i32, nil, "i")
	header.PushInst(iPhi)
	cond := cfg.NewCompare(ctx, cfg.Signed, cfg.CmpLT, iPhi, ten, "cond")
	header.PushInst(cond)
	header.PushInst(cfg.NewBranch(ctx, cond, body, exit))

	// body uses the header's own compare result directly -- the escape
	// this pass must detect and refuse.
	widened := cfg.NewConversion(cfg.ZExt, cond, i32, "widened")
	body.PushInst(widened)
	next := cfg.NewArithmetic(cfg.Add, iPhi, one, i32, "next")
	body.PushInst(next)
	body.PushInst(cfg.NewGoto(ctx, header))

	iPhi.SetIncoming(entry, zero)
	iPhi.SetIncoming(body, next)

	exit.PushInst(cfg.NewReturn(ctx, zero))

	return fn
}

func TestLoopRotateRefusesWhenHeaderValueEscapesToBody(t *testing.T) {
	ctx := cfg.NewContext()
	fn := buildWhileWithEscapingHeaderValue(ctx)
	assert.False(t, looprotate(ctx, fn, nil), "rotating would leave the body's use of the header compare stale")
}
