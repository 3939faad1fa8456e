package mirpasses

import "scathac/internal/mir"

// ElideJumps reorders fn's blocks along a depth-first walk of the
// control-flow graph starting from the entry block, so that as many
// control-flow edges as possible become plain fall-through, then
// erases every unconditional Jump whose target immediately follows it
// in the new order. Blocks the walk never reaches (dead code dce
// should already have removed) are appended afterward in their
// original relative order, so nothing is silently dropped from the
// function.
//
// original_source's version performs the reorder and the erase in one
// recursive pass over an intrusive list (extracting and re-inserting
// blocks as it walks); this port separates them into a plain
// preorder-collecting DFS followed by a single linear erase pass,
// same end state, without needing an intrusive-list splice.
func ElideJumps(fn *mir.Function) {
	blocks := fn.Blocks()
	if len(blocks) == 0 {
		return
	}

	visited := make(map[*mir.BasicBlock]bool, len(blocks))
	order := make([]*mir.BasicBlock, 0, len(blocks))
	var dfs func(bb *mir.BasicBlock)
	dfs = func(bb *mir.BasicBlock) {
		if visited[bb] {
			return
		}
		visited[bb] = true
		order = append(order, bb)
		for _, succ := range bb.Successors() {
			dfs(succ)
		}
	}
	dfs(blocks[0])
	for _, bb := range blocks {
		if !visited[bb] {
			order = append(order, bb)
		}
	}
	fn.ReorderBlocks(order)

	for i, bb := range order {
		term := bb.Terminator()
		if term == nil || term.Opcode() != mir.InstJump {
			continue
		}
		if i+1 < len(order) && term.Target() == order[i+1] {
			bb.EraseInst(term)
		}
	}
}
