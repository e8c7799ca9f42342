package campaign

import (
	"slices"
	"strings"
)

// successorGraph maps mission id -> successor ids.
type successorGraph map[string][]string

// findCycles returns every strongly connected component that forms a cycle:
// components with more than one mission, or a single mission that lists
// itself as a successor.
//
// Missions are visited in declaration order so the reported cycles are
// deterministic for a given definition.
func findCycles(order []string, graph successorGraph) [][]string {
	var cycles [][]string
	for _, scc := range tarjanSCC(order, graph) {
		if len(scc) > 1 || hasSelfLoop(scc[0], graph) {
			cycles = append(cycles, scc)
		}
	}
	return cycles
}

// hasSelfLoop checks if a mission lists itself as a successor.
func hasSelfLoop(node string, graph successorGraph) bool {
	return slices.Contains(graph[node], node)
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm.
func tarjanSCC(order []string, graph successorGraph) [][]string {
	var (
		index   = 0
		stack   []string
		indices = make(map[string]int)
		lowlink = make(map[string]int)
		onStack = make(map[string]bool)
		sccs    [][]string
	)

	var strongConnect func(string)
	strongConnect = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range graph[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		// v is a root node: pop the stack and emit the component
		if lowlink[v] == indices[v] {
			var scc []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			slices.Reverse(scc)
			sccs = append(sccs, scc)
		}
	}

	for _, v := range order {
		if _, visited := indices[v]; !visited {
			strongConnect(v)
		}
	}

	return sccs
}

// formatCycle renders a cycle as "a -> b -> a".
func formatCycle(scc []string) string {
	path := append(slices.Clone(scc), scc[0])
	return strings.Join(path, " -> ")
}
