package cfg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scathac/internal/common"
)

func TestStructLayoutNaturalAlignment(t *testing.T) {
	ctx := NewContext()

	// {i32, {i32,i32,i32}, i8} -> size 20, align 4.
	inner := ctx.AnonymousStruct([]*Type{ctx.IntegerType(32), ctx.IntegerType(32), ctx.IntegerType(32)})
	outer := ctx.AnonymousStruct([]*Type{ctx.IntegerType(32), inner, ctx.IntegerType(8)})
	assert.Equal(t, 20, outer.Size())
	assert.Equal(t, 4, outer.Align())

	// {i64, {i32,i32,i32}, i8} -> size 24, align 8.
	outer2 := ctx.AnonymousStruct([]*Type{ctx.IntegerType(64), inner, ctx.IntegerType(8)})
	assert.Equal(t, 24, outer2.Size())
	assert.Equal(t, 8, outer2.Align())
}

func TestStructuralTypesAreInterned(t *testing.T) {
	ctx := NewContext()
	a := ctx.AnonymousStruct([]*Type{ctx.IntegerType(32), ctx.IntegerType(8)})
	b := ctx.AnonymousStruct([]*Type{ctx.IntegerType(32), ctx.IntegerType(8)})
	assert.Same(t, a, b, "equal member sequences must intern to the same pointer")

	n1 := ctx.NamedStruct("Point")
	n2 := ctx.NamedStruct("Point")
	assert.NotSame(t, n1, n2, "named structs are identity-based, never interned")
}

func TestSetOperandMaintainsUseDefEdges(t *testing.T) {
	ctx := NewContext()
	i32 := ctx.IntegerType(32)
	one := ctx.IntConst(common.NewAPInt(32, 1), i32)
	two := ctx.IntConst(common.NewAPInt(32, 2), i32)
	three := ctx.IntConst(common.NewAPInt(32, 3), i32)

	add := NewArithmetic(Add, one, two, i32, "sum")
	require.Len(t, one.Users(), 1)
	require.Contains(t, one.Users(), User(add))

	add.SetOperand(1, three)
	assert.Empty(t, two.Users(), "replaced operand must lose its reverse edge")
	assert.Contains(t, three.Users(), User(add))
	assert.Equal(t, three, add.Operands()[1])
}

func TestReplaceAllUsesWith(t *testing.T) {
	ctx := NewContext()
	i32 := ctx.IntegerType(32)
	old := ctx.IntConst(common.NewAPInt(32, 1), i32)
	repl := ctx.IntConst(common.NewAPInt(32, 2), i32)

	a := NewArithmetic(Add, old, old, i32, "a")
	b := NewUnaryArithmetic(Neg, old, i32, "b")

	ReplaceAllUsesWith(old, repl)
	assert.Empty(t, old.Users())
	assert.Equal(t, repl, a.Operands()[0])
	assert.Equal(t, repl, a.Operands()[1])
	assert.Equal(t, repl, b.Operands()[0])
	assert.ElementsMatch(t, []User{a, b}, repl.Users())
}

func buildStraightLineFunction(ctx *Context) *Function {
	i32 := ctx.IntegerType(32)
	fnType := ctx.FunctionType(i32, []*Type{i32, i32})
	fn := ctx.NewFunction("add2", fnType, []string{"a", "b"}, External)

	entry := NewBasicBlock(ctx, "entry")
	fn.PushBlock(entry)

	a, b := fn.Params()[0], fn.Params()[1]
	sum := NewArithmetic(Add, a, b, i32, "sum")
	entry.PushInst(sum)
	entry.PushInst(NewReturn(ctx, sum))
	return fn
}

func TestAssertInvariantsOnWellFormedFunction(t *testing.T) {
	ctx := NewContext()
	mod := NewModule(ctx)
	mod.AddFunction(buildStraightLineFunction(ctx))
	assert.NoError(t, AssertInvariants(mod))
}

func TestAssertInvariantsCatchesMisplacedTerminator(t *testing.T) {
	ctx := NewContext()
	i32 := ctx.IntegerType(32)
	fnType := ctx.FunctionType(i32, nil)
	fn := ctx.NewFunction("bad", fnType, nil, Internal)
	entry := NewBasicBlock(ctx, "entry")
	fn.PushBlock(entry)
	entry.PushInst(NewReturn(ctx, ctx.IntConst(common.NewAPInt(32, 0), i32)))
	entry.PushInst(NewUnreachable(ctx)) // two terminators in one block

	mod := NewModule(ctx)
	mod.AddFunction(fn)
	err := AssertInvariants(mod)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "terminator-ness mismatch")
}

func TestPrintParseRoundTripStraightLine(t *testing.T) {
	ctx := NewContext()
	mod := NewModule(ctx)
	mod.AddFunction(buildStraightLineFunction(ctx))

	text := Print(mod)
	parsed, err := Parse(NewContext(), text)
	require.NoError(t, err)
	require.Len(t, parsed.Functions(), 1)

	again := Print(parsed)
	assert.Equal(t, text, again, "parse(print(F)) must print identically to F")
}

func TestPrintParseRoundTripBranching(t *testing.T) {
	ctx := NewContext()
	i32 := ctx.IntegerType(32)
	fnType := ctx.FunctionType(i32, []*Type{i32})
	fn := ctx.NewFunction("abs", fnType, []string{"x"}, External)

	entry := NewBasicBlock(ctx, "entry")
	neg := NewBasicBlock(ctx, "neg")
	done := NewBasicBlock(ctx, "done")
	fn.PushBlock(entry)
	fn.PushBlock(neg)
	fn.PushBlock(done)

	x := fn.Params()[0]
	zero := ctx.IntConst(common.NewAPInt(32, 0), i32)
	cmp := NewCompare(ctx, Signed, CmpLT, x, zero, "isneg")
	entry.PushInst(cmp)
	entry.PushInst(NewBranch(ctx, cmp, neg, done))

	negated := NewArithmetic(Sub, zero, x, i32, "negated")
	neg.PushInst(negated)
	neg.PushInst(NewGoto(ctx, done))

	done.PushInst(NewUnreachable(ctx))

	mod := NewModule(ctx)
	mod.AddFunction(fn)
	require.NoError(t, AssertInvariants(mod))

	text := Print(mod)
	parsed, err := Parse(NewContext(), text)
	require.NoError(t, err)
	assert.Equal(t, text, Print(parsed))
}

func TestParseRejectsPhi(t *testing.T) {
	src := "external func @f() -> i32 {\n" +
		"entry:\n" +
		"  %x = phi [entry : 1]\n" +
		"  return %x\n" +
		"}\n"
	_, err := Parse(NewContext(), src)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported instruction opcode")
}

func TestBasicBlockPredecessorsAndSuccessors(t *testing.T) {
	ctx := NewContext()
	fn := buildStraightLineFunction(ctx)
	entry := fn.Entry()
	assert.Empty(t, entry.Predecessors())
	assert.Empty(t, entry.Successors(), "return has no successors")
}
