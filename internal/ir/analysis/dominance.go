// Package analysis computes the lazily-cached, CFG-edge-invalidated
// function analyses the pass pipeline depends on: dominance, the loop
// nesting forest, and the static call graph. It lives apart from
// internal/ir/cfg so that cfg never needs to import analysis -- results
// are attached to a Function via its opaque AnalysisCache instead.
package analysis

import (
	"sort"

	"scathac/internal/ir/cfg"
)

const domCacheKey = "analysis.dominance"

// DomTree is a function's immediate-dominator tree, computed by the
// Lengauer-Tarjan algorithm. It additionally caches dominance frontiers
// on first request.
type DomTree struct {
	fn       *cfg.Function
	order    []*cfg.BasicBlock // DFS preorder over the CFG from entry
	idom     map[*cfg.BasicBlock]*cfg.BasicBlock
	frontier map[*cfg.BasicBlock][]*cfg.BasicBlock // lazily populated
}

// Dominance returns fn's dominator tree, computing and caching it on
// the function if not already present. The cache is invalidated by any
// CFG-edge mutation via Function.InvalidateAnalyses.
func Dominance(fn *cfg.Function) *DomTree {
	if cached, ok := fn.AnalysisCache(domCacheKey); ok {
		return cached.(*DomTree)
	}
	dt := computeDominance(fn)
	fn.SetAnalysisCache(domCacheKey, dt)
	return dt
}

// IDom returns bb's immediate dominator, or nil for the entry block.
func (dt *DomTree) IDom(bb *cfg.BasicBlock) *cfg.BasicBlock {
	return dt.idom[bb]
}

// Dominates reports whether a dominates b (reflexively: a dominates
// itself).
func (dt *DomTree) Dominates(a, b *cfg.BasicBlock) bool {
	for n := b; n != nil; n = dt.idom[n] {
		if n == a {
			return true
		}
	}
	return false
}

// Frontier returns bb's dominance frontier: blocks merged-into from a
// path that does not all pass through bb's strict dominance.
func (dt *DomTree) Frontier(bb *cfg.BasicBlock) []*cfg.BasicBlock {
	if dt.frontier == nil {
		dt.frontier = computeFrontiers(dt)
	}
	return dt.frontier[bb]
}

// computeDominance implements the "simple" (unbalanced-link)
// Lengauer-Tarjan algorithm: DFS numbering, semidominator computation
// via a union-find ancestor structure with path compression, then a
// single pass to materialize immediate dominators from semidominators.
func computeDominance(fn *cfg.Function) *DomTree {
	entry := fn.Entry()
	dt := &DomTree{fn: fn, idom: make(map[*cfg.BasicBlock]*cfg.BasicBlock)}
	if entry == nil {
		return dt
	}

	var (
		order    []*cfg.BasicBlock
		num      = make(map[*cfg.BasicBlock]int) // DFS preorder number
		parent   = make(map[*cfg.BasicBlock]*cfg.BasicBlock)
		pred     = make(map[*cfg.BasicBlock][]*cfg.BasicBlock)
		semi     = make(map[*cfg.BasicBlock]*cfg.BasicBlock)
		ancestor = make(map[*cfg.BasicBlock]*cfg.BasicBlock)
		label    = make(map[*cfg.BasicBlock]*cfg.BasicBlock)
		bucket   = make(map[*cfg.BasicBlock][]*cfg.BasicBlock)
	)

	var dfs func(v *cfg.BasicBlock)
	dfs = func(v *cfg.BasicBlock) {
		if _, seen := num[v]; seen {
			return
		}
		num[v] = len(order)
		order = append(order, v)
		semi[v] = v
		label[v] = v
		for _, w := range v.Successors() {
			pred[w] = append(pred[w], v)
			if _, seen := num[w]; !seen {
				parent[w] = v
				dfs(w)
			}
		}
	}
	dfs(entry)

	var find func(v *cfg.BasicBlock) *cfg.BasicBlock
	find = func(v *cfg.BasicBlock) *cfg.BasicBlock {
		a := ancestor[v]
		if a == nil {
			return v
		}
		if ancestor[a] != nil {
			root := find(a)
			if num[semi[label[a]]] < num[semi[label[v]]] {
				label[v] = label[a]
			}
			ancestor[v] = root
		}
		if num[semi[label[ancestor[v]]]] < num[semi[label[v]]] {
			return label[ancestor[v]]
		}
		return label[v]
	}

	// Process vertices in reverse DFS order (excluding the root).
	for i := len(order) - 1; i >= 1; i-- {
		w := order[i]
		for _, v := range pred[w] {
			if _, seen := num[v]; !seen {
				continue // unreachable predecessor, ignore
			}
			var u *cfg.BasicBlock
			if num[v] <= num[w] {
				u = v
			} else {
				u = find(v)
			}
			if num[semi[u]] < num[semi[w]] {
				semi[w] = semi[u]
			}
		}
		bucket[semi[w]] = append(bucket[semi[w]], w)
		ancestor[w] = parent[w]

		for _, v := range bucket[parent[w]] {
			u := find(v)
			if num[semi[u]] < num[semi[v]] {
				dt.idom[v] = u
			} else {
				dt.idom[v] = parent[w]
			}
		}
		delete(bucket, parent[w])
	}
	for i := 1; i < len(order); i++ {
		w := order[i]
		if dt.idom[w] != semi[w] {
			dt.idom[w] = dt.idom[dt.idom[w]]
		}
	}
	dt.order = order
	return dt
}

// computeFrontiers follows the standard Cytron et al. algorithm: for
// each block with more than one predecessor, walk up from each
// predecessor to (but not including) the block's immediate dominator,
// adding the block to each visited node's frontier.
func computeFrontiers(dt *DomTree) map[*cfg.BasicBlock][]*cfg.BasicBlock {
	df := make(map[*cfg.BasicBlock][]*cfg.BasicBlock)
	seen := make(map[*cfg.BasicBlock]map[*cfg.BasicBlock]bool)
	add := func(node, b *cfg.BasicBlock) {
		if seen[node] == nil {
			seen[node] = make(map[*cfg.BasicBlock]bool)
		}
		if !seen[node][b] {
			seen[node][b] = true
			df[node] = append(df[node], b)
		}
	}
	for _, b := range dt.order {
		preds := b.Predecessors()
		if len(preds) < 2 {
			continue
		}
		idomB := dt.idom[b]
		for _, p := range preds {
			runner := p
			for runner != nil && runner != idomB {
				add(runner, b)
				runner = dt.idom[runner]
			}
		}
	}
	for _, blocks := range df {
		sort.Slice(blocks, func(i, j int) bool { return blocks[i].Name() < blocks[j].Name() })
	}
	return df
}
