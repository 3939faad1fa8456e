package passes

import (
	"testing"

	"scathac/internal/common"
	"scathac/internal/ir/cfg"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSROASplitsStructAlloca(t *testing.T) {
	ctx := cfg.NewContext()
	i32 := ctx.IntegerType(32)
	pairType := ctx.AnonymousStruct([]*cfg.Type{i32, i32})
	fnType := ctx.FunctionType(i32, nil)
	fn := ctx.NewFunction("f", fnType, nil, cfg.External)
	entry := cfg.NewBasicBlock(ctx, "entry")
	fn.PushBlock(entry)

	alloc := cfg.NewAlloca(ctx, pairType, nil, "pair")
	entry.PushInst(alloc)

	gep0 := cfg.NewGEP(ctx, alloc, nil, []cfg.GEPStep{{StructIndex: 0}}, "p0")
	entry.PushInst(gep0)
	entry.PushInst(cfg.NewStore(ctx, gep0, ctx.IntConst(common.NewAPInt(32, 1), i32)))

	gep1 := cfg.NewGEP(ctx, alloc, nil, []cfg.GEPStep{{StructIndex: 1}}, "p1")
	entry.PushInst(gep1)
	entry.PushInst(cfg.NewStore(ctx, gep1, ctx.IntConst(common.NewAPInt(32, 2), i32)))

	load0 := cfg.NewLoad(gep0, i32, "v0")
	entry.PushInst(load0)
	entry.PushInst(cfg.NewReturn(ctx, load0))

	modified := sroa(ctx, fn, nil)
	require.True(t, modified)
	allocaCount := 0
	for _, inst := range entry.Instructions() {
		assert.NotEqual(t, cfg.NodeGetElementPointer, inst.Kind())
		if inst.Kind() == cfg.NodeAlloca {
			allocaCount++
			assert.Equal(t, i32, inst.AllocType(), "each split slot is a scalar i32, not the original struct")
		}
	}
	assert.Equal(t, 2, allocaCount, "one scalar alloca per struct slot, replacing the original")
	require.NoError(t, cfg.AssertInvariants(moduleOf(ctx, fn)))
}

func TestSROARefusesDynamicIndexGEP(t *testing.T) {
	ctx := cfg.NewContext()
	i32 := ctx.IntegerType(32)
	arrType := ctx.ArrayType(i32, 4)
	fnType := ctx.FunctionType(i32, []*cfg.Type{i32})
	fn := ctx.NewFunction("f", fnType, []string{"idx"}, cfg.External)
	entry := cfg.NewBasicBlock(ctx, "entry")
	fn.PushBlock(entry)

	idx := fn.Params()[0]
	alloc := cfg.NewAlloca(ctx, arrType, nil, "arr")
	entry.PushInst(alloc)
	gep := cfg.NewGEP(ctx, alloc, idx, []cfg.GEPStep{{StructIndex: -1}}, "elem")
	entry.PushInst(gep)
	load := cfg.NewLoad(gep, i32, "v")
	entry.PushInst(load)
	entry.PushInst(cfg.NewReturn(ctx, load))

	modified := sroa(ctx, fn, nil)
	assert.False(t, modified)
	assert.Equal(t, cfg.NodeAlloca, alloc.Kind())
}
