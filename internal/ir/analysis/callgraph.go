package analysis

import "scathac/internal/ir/cfg"

// CallGraphNode is one function's entry in the static call graph: its
// direct callees (resolved statically -- an indirect call through a
// non-Function value contributes no edge, since its target is unknown
// until runtime) and direct callers.
type CallGraphNode struct {
	Fn       *cfg.Function
	Callees  []*cfg.Function
	Callers  []*cfg.Function
	sccID    int
	hasIndirectCall bool
}

// HasIndirectCall reports whether Fn contains a call whose callee is
// not a statically known *cfg.Function, e.g. a call through a function
// pointer loaded from memory. Such a node must be treated as a leaf for
// inlining/dead-function-elimination purposes but may in reality call
// anything.
func (n *CallGraphNode) HasIndirectCall() bool { return n.hasIndirectCall }

// CallGraph is the whole module's static call graph plus its strongly
// connected components, each either a single non-recursive function or
// a cycle of mutually recursive functions.
type CallGraph struct {
	Nodes map[*cfg.Function]*CallGraphNode
	SCCs  [][]*cfg.Function // in reverse topological order (callees before callers)
}

// InSameSCC reports whether a and b belong to the same strongly
// connected component, i.e. participate in mutual (possibly indirect)
// recursion.
func (cg *CallGraph) InSameSCC(a, b *cfg.Function) bool {
	na, oka := cg.Nodes[a]
	nb, okb := cg.Nodes[b]
	return oka && okb && na.sccID == nb.sccID
}

// BuildCallGraph scans every function in mod for direct call sites and
// computes strongly connected components via Tarjan's algorithm, so
// that e.g. deadfuncelim can find functions unreachable from any root,
// and inline can refuse to inline a function into itself via a
// recursive cycle.
func BuildCallGraph(mod *cfg.Module) *CallGraph {
	cg := &CallGraph{Nodes: make(map[*cfg.Function]*CallGraphNode)}
	order := mod.Functions()
	for _, fn := range order {
		cg.Nodes[fn] = &CallGraphNode{Fn: fn}
	}
	for _, fn := range mod.Functions() {
		node := cg.Nodes[fn]
		seen := make(map[*cfg.Function]bool)
		for _, bb := range fn.Blocks() {
			for _, inst := range bb.Instructions() {
				if inst.Kind() != cfg.NodeCall {
					continue
				}
				callee, ok := inst.Callee().(*cfg.Function)
				if !ok {
					node.hasIndirectCall = true
					continue
				}
				if seen[callee] {
					continue
				}
				seen[callee] = true
				node.Callees = append(node.Callees, callee)
				if calleeNode, ok := cg.Nodes[callee]; ok {
					calleeNode.Callers = append(calleeNode.Callers, fn)
				}
			}
		}
	}
	tarjanSCC(cg, order)
	return cg
}

// tarjanSCC runs Tarjan's strongly connected components algorithm over
// the call graph, recording each node's component id and appending
// components to cg.SCCs as they're popped off the stack (which yields
// reverse topological order: a callee's component is finished, and
// appended, strictly before its caller's). Roots are visited in order
// so the resulting SCC order is deterministic across runs.
func tarjanSCC(cg *CallGraph, order []*cfg.Function) {
	var (
		index   = 0
		indices = make(map[*cfg.Function]int)
		low     = make(map[*cfg.Function]int)
		onStack = make(map[*cfg.Function]bool)
		stack   []*cfg.Function
	)

	var strongconnect func(v *cfg.Function)
	strongconnect = func(v *cfg.Function) {
		indices[v] = index
		low[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range cg.Nodes[v].Callees {
			if _, ok := indices[w]; !ok {
				strongconnect(w)
				if low[w] < low[v] {
					low[v] = low[w]
				}
			} else if onStack[w] {
				if indices[w] < low[v] {
					low[v] = indices[w]
				}
			}
		}

		if low[v] == indices[v] {
			var comp []*cfg.Function
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				cg.Nodes[w].sccID = len(cg.SCCs)
				comp = append(comp, w)
				if w == v {
					break
				}
			}
			cg.SCCs = append(cg.SCCs, comp)
		}
	}

	for _, fn := range order {
		if _, ok := indices[fn]; !ok {
			strongconnect(fn)
		}
	}
}
