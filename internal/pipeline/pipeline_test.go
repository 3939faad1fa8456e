package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scathac/internal/common"
	"scathac/internal/ir/cfg"
)

// countingFunctionPass increments *n each time it runs and reports
// modified iff args.Flag("touch") is true.
func countingFunctionPass(n *int) FunctionPass {
	return func(ctx *cfg.Context, fn *cfg.Function, args Args) bool {
		*n++
		return args.Flag("touch")
	}
}

func buildTestRegistry(n *int) *Registry {
	reg := NewRegistry()
	reg.RegisterFunctionPass(&FunctionPassDescriptor{
		Name:     "dce",
		Category: Simplification,
		Args:     []ArgSpec{{Name: "touch", Type: ArgFlag, Default: ArgValue{Type: ArgFlag, Flag: false}}},
		Run:      countingFunctionPass(n),
	})
	reg.RegisterFunctionPass(&FunctionPassDescriptor{
		Name: "instcombine",
		Run:  countingFunctionPass(n),
	})
	reg.RegisterModulePass(&ModulePassDescriptor{
		Name: "inline",
		Args: []ArgSpec{
			{Name: "max-callee-size", Type: ArgNumber, Default: ArgValue{Type: ArgNumber, Num: 80}},
		},
		Run: func(ctx *cfg.Context, mod *cfg.Module, fp FunctionPass, args Args) bool {
			modified := false
			for _, f := range mod.Functions() {
				if fp(ctx, f, args) {
					modified = true
				}
			}
			return modified
		},
	})
	return reg
}

func emptyModule() (*cfg.Context, *cfg.Module) {
	ctx := cfg.NewContext()
	mod := cfg.NewModule(ctx)
	i32 := ctx.IntegerType(32)
	fnType := ctx.FunctionType(i32, nil)
	fn := ctx.NewFunction("f", fnType, nil, cfg.External)
	entry := cfg.NewBasicBlock(ctx, "entry")
	fn.PushBlock(entry)
	entry.PushInst(cfg.NewReturn(ctx, ctx.IntConst(common.NewAPInt(32, 0), i32)))
	mod.AddFunction(fn)
	return ctx, mod
}

func TestParseBareFunctionPassSugar(t *testing.T) {
	var n int
	reg := buildTestRegistry(&n)
	pl, err := Parse(reg, "dce")
	require.NoError(t, err)
	require.Len(t, pl.Steps, 1)
	require.NotNil(t, pl.Steps[0].Func)
	assert.Equal(t, "dce", pl.Steps[0].Func.Name)
	assert.Equal(t, false, pl.Steps[0].Func.Args["touch"].Flag)
}

func TestParseBareFlagArgBindsTrue(t *testing.T) {
	var n int
	reg := buildTestRegistry(&n)
	pl, err := Parse(reg, "dce[touch]")
	require.NoError(t, err)
	assert.Equal(t, true, pl.Steps[0].Func.Args["touch"].Flag)
}

func TestParseModulePassWithFPassList(t *testing.T) {
	var n int
	reg := buildTestRegistry(&n)
	pl, err := Parse(reg, "inline[max-callee-size:40](instcombine, dce[touch])")
	require.NoError(t, err)
	require.Len(t, pl.Steps, 1)
	mstep := pl.Steps[0].Module
	require.NotNil(t, mstep)
	assert.Equal(t, float64(40), mstep.Args["max-callee-size"].Num)
	require.Len(t, mstep.FPasses, 2)
	assert.Equal(t, "instcombine", mstep.FPasses[0].Name)
	assert.Equal(t, "dce", mstep.FPasses[1].Name)
	assert.True(t, mstep.FPasses[1].Args["touch"].Flag)
}

func TestParseUnknownPassIsSemanticError(t *testing.T) {
	reg := NewRegistry()
	_, err := Parse(reg, "nosuchpass")
	require.Error(t, err)
	var semErr *PipelineSemanticError
	assert.ErrorAs(t, err, &semErr)
}

func TestParseLexicalErrorReportsPosition(t *testing.T) {
	reg := NewRegistry()
	_, err := Parse(reg, "dce[touch: $bad]")
	require.Error(t, err)
	var lexErr *PipelineLexicalError
	require.ErrorAs(t, err, &lexErr)
	assert.Equal(t, 1, lexErr.Line)
}

func TestParseSyntaxErrorMissingBracket(t *testing.T) {
	var n int
	reg := buildTestRegistry(&n)
	_, err := Parse(reg, "dce[touch")
	require.Error(t, err)
	var synErr *PipelineSyntaxError
	assert.ErrorAs(t, err, &synErr)
}

func TestRunExecutesForeachOverModuleFunctions(t *testing.T) {
	var n int
	reg := buildTestRegistry(&n)
	ctx, mod := emptyModule()
	pl, err := Parse(reg, "dce")
	require.NoError(t, err)
	modified := pl.Run(ctx, mod)
	assert.False(t, modified)
	assert.Equal(t, 1, n)
}

func TestPrintSpellsOutBoundArgumentValues(t *testing.T) {
	var n int
	reg := buildTestRegistry(&n)
	pl1, err := Parse(reg, "inline[max-callee-size:40](dce[touch], instcombine)")
	require.NoError(t, err)
	assert.Equal(t, "inline[max-callee-size:40](dce[touch:true], instcombine)", Print(pl1))
}

func TestParseCommaSeparatedPipeline(t *testing.T) {
	var n int
	reg := buildTestRegistry(&n)
	pl, err := Parse(reg, "instcombine, dce, instcombine")
	require.NoError(t, err)
	require.Len(t, pl.Steps, 3)
}
