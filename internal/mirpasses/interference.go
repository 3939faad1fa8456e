package mirpasses

import (
	"sort"

	"scathac/internal/mir"
)

// InterferenceGraph is an undirected graph over a function's virtual
// registers: two registers are joined by an edge if some program
// point has both simultaneously live. Register allocation assigns
// each node a color (a hardware register index) such that adjacent
// nodes never share an index range.
type InterferenceGraph struct {
	nodes map[*mir.Register]*igNode
	order []*mir.Register // insertion order, for a deterministic Colorize tie-break
	numColors int
}

type igNode struct {
	reg       *mir.Register
	color     int // -1 until Colorize assigns it
	neighbors map[*mir.Register]bool
}

// ComputeInterference builds fn's interference graph over its virtual
// registers (SSARegisters must already have been destroyed). Two
// registers interfere when one is some instruction's destination and
// the other is in that instruction's live-out set.
func ComputeInterference(fn *mir.Function) *InterferenceGraph {
	liveness := ComputeLiveSets(fn)
	liveOut := liveness.PerInstructionLiveOut(fn)

	ig := &InterferenceGraph{nodes: make(map[*mir.Register]*igNode)}
	for _, bb := range fn.Blocks() {
		for _, inst := range bb.Instructions() {
			d := inst.Dest()
			if d == nil || d.NodeType() != mir.NodeVirtualRegister {
				continue
			}
			ig.addRegister(d)
			for r := range liveOut[inst] {
				if r == d || r.NodeType() != mir.NodeVirtualRegister {
					continue
				}
				ig.addRegister(r)
				ig.addEdge(d, r)
			}
		}
	}
	return ig
}

func (ig *InterferenceGraph) addRegister(r *mir.Register) {
	if _, ok := ig.nodes[r]; ok {
		return
	}
	ig.nodes[r] = &igNode{reg: r, color: -1, neighbors: make(map[*mir.Register]bool)}
	ig.order = append(ig.order, r)
}

func (ig *InterferenceGraph) addEdge(a, b *mir.Register) {
	ig.nodes[a].neighbors[b] = true
	ig.nodes[b].neighbors[a] = true
}

// NumColors returns the number of distinct hardware indices Colorize
// used, valid after Colorize has run.
func (ig *InterferenceGraph) NumColors() int { return ig.numColors }

// Color returns r's assigned color, or -1 if r was never added to the
// graph (it is never a register-allocation-eligible def) or Colorize
// hasn't run yet.
func (ig *InterferenceGraph) Color(r *mir.Register) int {
	if n, ok := ig.nodes[r]; ok {
		return n.color
	}
	return -1
}

// Colorize greedily assigns each node the lowest hardware index whose
// Words()-wide slot doesn't overlap any already-colored neighbor's
// slot, visiting nodes by descending interference degree (the
// classic Chaitin-Briggs simplify heuristic: most-constrained first)
// and breaking ties by ascending register index for determinism
// across runs over an otherwise-identical graph.
func (ig *InterferenceGraph) Colorize() {
	order := append([]*mir.Register(nil), ig.order...)
	sort.SliceStable(order, func(i, j int) bool {
		di, dj := len(ig.nodes[order[i]].neighbors), len(ig.nodes[order[j]].neighbors)
		if di != dj {
			return di > dj
		}
		return order[i].Index() < order[j].Index()
	})

	maxColor := -1
	for _, reg := range order {
		node := ig.nodes[reg]
		words := reg.Words()
		color := 0
		for conflicts(ig, node, color, words) {
			color++
		}
		node.color = color
		if top := color + words - 1; top > maxColor {
			maxColor = top
		}
	}
	ig.numColors = maxColor + 1
}

func conflicts(ig *InterferenceGraph, node *igNode, color, words int) bool {
	for nb := range node.neighbors {
		nn := ig.nodes[nb]
		if nn.color < 0 {
			continue
		}
		if rangesOverlap(color, words, nn.color, nb.Words()) {
			return true
		}
	}
	return false
}

func rangesOverlap(a0, aw, b0, bw int) bool {
	return a0 < b0+bw && b0 < a0+aw
}
