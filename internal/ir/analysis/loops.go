package analysis

import "scathac/internal/ir/cfg"

const loopCacheKey = "analysis.loops"

// Loop is a single natural loop: a header block dominating every block
// in its body, reached by at least one back edge into the header.
// Loops nest by strict body containment; Parent is nil for an outermost
// loop.
type Loop struct {
	Header *cfg.BasicBlock
	Body   []*cfg.BasicBlock // header included, includes nested loops' blocks
	Parent *Loop
	Nested []*Loop
}

// Depth returns the loop's nesting depth, 1 for an outermost loop.
func (l *Loop) Depth() int {
	d := 1
	for p := l.Parent; p != nil; p = p.Parent {
		d++
	}
	return d
}

// Contains reports whether bb is part of this loop's body.
func (l *Loop) Contains(bb *cfg.BasicBlock) bool {
	for _, b := range l.Body {
		if b == bb {
			return true
		}
	}
	return false
}

// LoopForest is the set of a function's outermost natural loops; inner
// loops are reached via Loop.Nested.
type LoopForest struct {
	Top []*Loop
	// ByHeader indexes every loop (at any depth) by its header block.
	ByHeader map[*cfg.BasicBlock]*Loop
}

// Loops computes fn's loop nesting forest, caching it on the function.
// Header blocks are discovered as the targets of back edges (an edge
// u->h where h dominates u per fn's dominator tree); each header's
// natural loop body is the set of blocks that can reach u by walking
// predecessors without passing through h, a standard SCC-free
// construction equivalent to Tarjan's approach for reducible CFGs.
func Loops(fn *cfg.Function) *LoopForest {
	if cached, ok := fn.AnalysisCache(loopCacheKey); ok {
		return cached.(*LoopForest)
	}
	lf := computeLoops(fn)
	fn.SetAnalysisCache(loopCacheKey, lf)
	return lf
}

func computeLoops(fn *cfg.Function) *LoopForest {
	dt := Dominance(fn)
	lf := &LoopForest{ByHeader: make(map[*cfg.BasicBlock]*Loop)}

	for _, bb := range fn.Blocks() {
		for _, succ := range bb.Successors() {
			if dt.Dominates(succ, bb) {
				recordBackEdge(lf, dt, succ, bb)
			}
		}
	}

	// Nest loops by header dominance: a loop is nested inside the
	// smallest enclosing loop whose header strictly dominates its own
	// header and whose body contains it.
	var headers []*cfg.BasicBlock
	for h := range lf.ByHeader {
		headers = append(headers, h)
	}
	for _, h := range headers {
		loop := lf.ByHeader[h]
		var best *Loop
		for _, other := range lf.ByHeader {
			if other == loop || !other.Contains(h) {
				continue
			}
			if best == nil || len(other.Body) < len(best.Body) {
				best = other
			}
		}
		loop.Parent = best
	}
	for _, loop := range lf.ByHeader {
		if loop.Parent == nil {
			lf.Top = append(lf.Top, loop)
		} else {
			loop.Parent.Nested = append(loop.Parent.Nested, loop)
		}
	}
	return lf
}

// recordBackEdge merges the natural loop for back edge latch->header
// into any existing loop with the same header (a header may have
// several back edges, e.g. a loop with multiple continue points).
func recordBackEdge(lf *LoopForest, dt *DomTree, header, latch *cfg.BasicBlock) {
	loop, ok := lf.ByHeader[header]
	if !ok {
		loop = &Loop{Header: header, Body: []*cfg.BasicBlock{header}}
		lf.ByHeader[header] = loop
	}
	if loop.Contains(latch) {
		return
	}
	inBody := map[*cfg.BasicBlock]bool{header: true}
	for _, b := range loop.Body {
		inBody[b] = true
	}
	worklist := []*cfg.BasicBlock{latch}
	for len(worklist) > 0 {
		b := worklist[len(worklist)-1]
		worklist = worklist[:len(worklist)-1]
		if inBody[b] {
			continue
		}
		inBody[b] = true
		worklist = append(worklist, b.Predecessors()...)
	}
	loop.Body = loop.Body[:0]
	for b := range inBody {
		loop.Body = append(loop.Body, b)
	}
}
