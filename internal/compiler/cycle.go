package compiler

import (
	"slices"
	"strings"
)

// dependencyGraph maps filter name → filters it nests.
type dependencyGraph map[string][]string

// findCycles returns every nesting cycle in graph as a closed path, e.g.
// ["A", "B", "A"]. A self-nesting filter yields ["A", "A"].
//
// The algorithm:
//  1. Use Tarjan's algorithm to find strongly connected components
//  2. Report each SCC with size > 1 or a self-loop as a cycle
//
// Nodes are visited in sorted order so results are deterministic.
func findCycles(graph dependencyGraph) [][]string {
	var cycles [][]string
	for _, scc := range tarjanSCC(graph) {
		if len(scc) == 1 && !slices.Contains(graph[scc[0]], scc[0]) {
			continue
		}
		cycles = append(cycles, reconstructCyclePath(scc, graph))
	}
	return cycles
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm.
func tarjanSCC(graph dependencyGraph) [][]string {
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
			if _, known := graph[w]; !known {
				continue // dangling reference, reported elsewhere
			}
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		// If v is a root node, pop the stack and create an SCC
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
			slices.Sort(scc)
			sccs = append(sccs, scc)
		}
	}

	nodes := make([]string, 0, len(graph))
	for node := range graph {
		nodes = append(nodes, node)
	}
	slices.Sort(nodes)
	for _, node := range nodes {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}

	slices.SortFunc(sccs, func(a, b []string) int { return strings.Compare(a[0], b[0]) })
	return sccs
}

// reconstructCyclePath walks edges inside scc from its first member until
// it returns to the start.
func reconstructCyclePath(scc []string, graph dependencyGraph) []string {
	if len(scc) == 0 {
		return []string{}
	}

	inSCC := make(map[string]bool, len(scc))
	for _, node := range scc {
		inSCC[node] = true
	}

	start := scc[0]
	current := start
	path := []string{current}
	visited := make(map[string]bool)

	for {
		visited[current] = true

		var next string
		for _, neighbor := range graph[current] {
			if inSCC[neighbor] && (!visited[neighbor] || neighbor == start) {
				next = neighbor
				break
			}
		}
		if next == "" {
			break
		}

		path = append(path, next)
		if next == start {
			break
		}
		current = next
	}

	return path
}
