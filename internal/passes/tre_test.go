package passes

import (
	"testing"

	"scathac/internal/common"
	"scathac/internal/ir/cfg"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildCountdown builds a function that self-tail-calls from a branch
// target, not the entry block itself:
//
//	entry: %cond = icmp gt %n, 0; branch %cond, recur, base
//	base:  return 0
//	recur: %n1 = sub %n, 1; %r = call f(%n1); return %r
func buildCountdown(ctx *cfg.Context) (*cfg.Function, *cfg.BasicBlock) {
	i32 := ctx.IntegerType(32)
	fnType := ctx.FunctionType(i32, []*cfg.Type{i32})
	fn := ctx.NewFunction("f", fnType, []string{"n"}, cfg.External)

	entry := cfg.NewBasicBlock(ctx, "entry")
	base := cfg.NewBasicBlock(ctx, "base")
	recur := cfg.NewBasicBlock(ctx, "recur")
	fn.PushBlock(entry)
	fn.PushBlock(base)
	fn.PushBlock(recur)

	n := fn.Params()[0]
	zero := ctx.IntConst(common.NewAPInt(32, 0), i32)
	cond := cfg.NewCompare(ctx, cfg.Signed, cfg.CmpGT, n, zero, "cond")
	entry.PushInst(cond)
	entry.PushInst(cfg.NewBranch(ctx, cond, recur, base))

	base.PushInst(cfg.NewReturn(ctx, zero))

	one := ctx.IntConst(common.NewAPInt(32, 1), i32)
	n1 := cfg.NewArithmetic(cfg.Sub, n, one, i32, "n1")
	recur.PushInst(n1)
	call := cfg.NewCall(cfg.Value(fn), []cfg.Value{n1}, i32, "r")
	recur.PushInst(call)
	recur.PushInst(cfg.NewReturn(ctx, call))

	return fn, recur
}

func TestTREEliminatesSelfTailCallInBranchBlock(t *testing.T) {
	ctx := cfg.NewContext()
	fn, recur := buildCountdown(ctx)

	modified := tre(ctx, fn, nil)
	require.True(t, modified)

	// recur no longer calls f; it now threads its arguments into the
	// loop header and jumps back.
	for _, inst := range recur.Instructions() {
		assert.NotEqual(t, cfg.NodeCall, inst.Kind())
		assert.NotEqual(t, cfg.NodeReturn, inst.Kind())
	}
	term := recur.Terminator()
	require.Equal(t, cfg.NodeGoto, term.Kind())
	require.NoError(t, cfg.AssertInvariants(moduleOf(ctx, fn)))
	assert.False(t, tre(ctx, fn, nil), "no self-tail-calls left on a second run")
}

// buildEntrySelfCall builds a self-tail-call sitting directly in the
// function's entry block, pinning down the fix for the bug where the
// call/return pair's parent block changes out from under the detected
// site once the entry's instructions are spliced into the new loop
// header.
//
//	entry: %n1 = sub %n, 1; %r = call f(%n1); return %r
func buildEntrySelfCall(ctx *cfg.Context) *cfg.Function {
	i32 := ctx.IntegerType(32)
	fnType := ctx.FunctionType(i32, []*cfg.Type{i32})
	fn := ctx.NewFunction("f", fnType, []string{"n"}, cfg.External)
	entry := cfg.NewBasicBlock(ctx, "entry")
	fn.PushBlock(entry)

	n := fn.Params()[0]
	one := ctx.IntConst(common.NewAPInt(32, 1), i32)
	n1 := cfg.NewArithmetic(cfg.Sub, n, one, i32, "n1")
	entry.PushInst(n1)
	call := cfg.NewCall(cfg.Value(fn), []cfg.Value{n1}, i32, "r")
	entry.PushInst(call)
	entry.PushInst(cfg.NewReturn(ctx, call))
	return fn
}

func TestTREEliminatesSelfTailCallInEntryBlock(t *testing.T) {
	ctx := cfg.NewContext()
	fn := buildEntrySelfCall(ctx)

	modified := tre(ctx, fn, nil)
	require.True(t, modified)
	require.NoError(t, cfg.AssertInvariants(moduleOf(ctx, fn)))

	// the loop header must end in a Goto back to itself, not be left
	// without a terminator by a stale pre-splice block reference.
	require.Len(t, fn.Blocks(), 2)
	loopHeader := fn.Blocks()[1]
	term := loopHeader.Terminator()
	require.NotNil(t, term, "loop header must have a terminator after the splice")
	require.Equal(t, cfg.NodeGoto, term.Kind())
	assert.Equal(t, loopHeader, term.Target())
}
