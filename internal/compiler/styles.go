package compiler

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/weftlabs/weft/internal/ir"
)

// FlattenStyles resolves the document's style-preset table into the flat
// form the renderer consumes: one merged map per preset name.
//
// Merging is per top-level key. Parents listed in extends are merged
// base-first in declaration order, then the preset's own value is merged
// last, so the preset overrides its parents and a later parent overrides
// an earlier one.
//
// Presets whose extends chain is broken (unknown parent, cycle) are
// reported and left out of the result; the remaining table is still
// returned so callers can choose to degrade rather than abort.
func FlattenStyles(doc *ir.Document) (map[string]any, []ValidationError) {
	flat := make(map[string]any, len(doc.Styles))
	if len(doc.Styles) == 0 {
		return flat, nil
	}

	var errs []ValidationError

	// E108: extends must name declared presets
	broken := make(map[string]bool)
	for name, preset := range doc.Styles {
		for _, parent := range preset.Extends {
			if _, ok := doc.Styles[parent]; !ok {
				errs = append(errs, ValidationError{
					Field:   "styles." + name,
					Message: fmt.Sprintf("extends unknown preset %q", parent),
					Code:    ErrStyleExtendsUnknown,
				})
				broken[name] = true
			}
		}
	}

	// E109: extends chains must not cycle. Unlike triggering rules, where a
	// loop can be an intentional feedback pattern, an extends cycle has no
	// base case to resolve from, so it is an error, not a warning.
	graph := buildExtendsGraph(doc.Styles)
	for _, scc := range tarjanSCC(graph) {
		if len(scc) > 1 || (len(scc) == 1 && hasSelfLoop(scc[0], graph)) {
			path := cyclePath(scc, graph)
			errs = append(errs, ValidationError{
				Field:   "styles." + path[0],
				Message: fmt.Sprintf("extends cycle: %s", strings.Join(path, " -> ")),
				Code:    ErrStyleExtendsCycle,
			})
			for _, name := range scc {
				broken[name] = true
			}
		}
	}

	// Brokenness propagates: a preset inheriting from a broken parent has
	// no resolvable base either.
	for changed := true; changed; {
		changed = false
		for name, preset := range doc.Styles {
			if broken[name] {
				continue
			}
			for _, parent := range preset.Extends {
				if broken[parent] {
					broken[name] = true
					changed = true
					break
				}
			}
		}
	}

	// Every surviving preset now has a fully declared, acyclic chain.
	memo := make(map[string]map[string]any)
	var flatten func(name string) map[string]any
	flatten = func(name string) map[string]any {
		if m, ok := memo[name]; ok {
			return m
		}
		preset := doc.Styles[name]
		out := make(map[string]any)
		for _, parent := range preset.Extends {
			maps.Copy(out, flatten(parent))
		}
		maps.Copy(out, preset.Value)
		memo[name] = out
		return out
	}

	for name := range doc.Styles {
		if broken[name] {
			continue
		}
		flat[name] = flatten(name)
	}

	// Map iteration produced the errors in random order; sort for stable
	// diagnostics output.
	slices.SortFunc(errs, func(a, b ValidationError) int {
		if c := strings.Compare(a.Field, b.Field); c != 0 {
			return c
		}
		return strings.Compare(a.Code, b.Code)
	})

	return flat, errs
}

// extendsGraph maps preset name -> presets it extends.
type extendsGraph map[string][]string

// buildExtendsGraph constructs the preset dependency graph. Edges to
// undeclared parents are dropped; they are reported separately.
func buildExtendsGraph(styles map[string]ir.StylePreset) extendsGraph {
	graph := make(extendsGraph, len(styles))
	for name, preset := range styles {
		// Initialize with empty slice if no edges (ensures node exists in graph)
		if graph[name] == nil {
			graph[name] = []string{}
		}
		for _, parent := range preset.Extends {
			if _, ok := styles[parent]; ok {
				graph[name] = append(graph[name], parent)
			}
		}
	}
	return graph
}

// hasSelfLoop checks if a node has an edge to itself.
func hasSelfLoop(node string, graph extendsGraph) bool {
	for _, neighbor := range graph[node] {
		if neighbor == node {
			return true
		}
	}
	return false
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm.
//
// Returns a list of SCCs, where each SCC is a list of preset names.
// Single-node SCCs without self-loops are NOT cycles.
func tarjanSCC(graph extendsGraph) [][]string {
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
		// Set the depth index for v
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		// Consider successors of v
		for _, w := range graph[v] {
			if _, visited := indices[w]; !visited {
				// Successor w has not yet been visited; recurse on it
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				// Successor w is on stack and hence in the current SCC
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
			sccs = append(sccs, scc)
		}
	}

	// Visit all nodes in a stable order so cycle paths are reproducible
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

	return sccs
}

// cyclePath builds a readable cycle path from an SCC by following edges
// within the component until the start node recurs. For self-loops the
// path is [name, name].
func cyclePath(scc []string, graph extendsGraph) []string {
	if len(scc) == 0 {
		return []string{}
	}
	if len(scc) == 1 {
		return []string{scc[0], scc[0]}
	}

	sccSet := make(map[string]bool, len(scc))
	for _, node := range scc {
		sccSet[node] = true
	}

	// Start at the lexically smallest member so the reported path does not
	// depend on traversal order.
	start := slices.Min(scc)
	current := start
	path := []string{current}
	visited := make(map[string]bool)

	for {
		visited[current] = true

		var next string
		for _, neighbor := range graph[current] {
			if sccSet[neighbor] && (!visited[neighbor] || neighbor == start) {
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
