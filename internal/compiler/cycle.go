package compiler

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/querylab/internal/ir"
)

// CycleWarning represents a cycle of foreign keys between tables.
//
// Cycles are warnings, not errors: the engine never enforces references,
// but a cyclic schema cannot be materialized into SQLite with foreign keys
// enforced, because no table can be filled first.
type CycleWarning struct {
	Path    []string `json:"path"`    // Cycle path: ["a", "b", "a"]
	Message string   `json:"message"` // Human-readable description
	Level   string   `json:"level"`   // "warning" or "info"
}

// AnalyzeCycles reports foreign key cycles in a schema.
//
// The algorithm:
//  1. Build a table → referenced tables graph from column foreign keys
//  2. Use Tarjan's algorithm to find strongly connected components
//  3. Report each SCC with size > 1 as a warning, and each self-reference
//     as info (a parent/child hierarchy in one table)
//
// A DAG (no cycles) returns an empty warning list.
func AnalyzeCycles(s *ir.Schema) []CycleWarning {
	graph := buildReferenceGraph(s)
	warnings := []CycleWarning{}

	for _, scc := range tarjanSCC(graph) {
		if len(scc) > 1 || hasSelfLoop(scc[0], graph) {
			warnings = append(warnings, cycleSCCToWarning(scc, graph))
		}
	}
	return warnings
}

// LoadOrder returns table names ordered so that every referenced table
// precedes the tables that reference it. Tables in a cycle keep their
// declaration order relative to each other; self-references are ignored.
func LoadOrder(s *ir.Schema) []string {
	g := buildReferenceGraph(s)
	declared := make(map[string]int, len(g.nodes))
	for i, n := range g.nodes {
		declared[n] = i
	}

	// Tarjan emits an SCC only after every SCC it reaches, which is
	// exactly dependency order.
	var order []string
	for _, scc := range tarjanSCC(g) {
		slices.SortFunc(scc, func(a, b string) int { return declared[a] - declared[b] })
		order = append(order, scc...)
	}
	return order
}

// referenceGraph maps table name → tables its foreign keys point at.
// Nodes are kept in declaration order so traversal is deterministic.
type referenceGraph struct {
	nodes []string
	edges map[string][]string
}

// buildReferenceGraph constructs the foreign key dependency graph.
// References to tables missing from the schema are skipped; Validate
// reports them.
func buildReferenceGraph(s *ir.Schema) referenceGraph {
	g := referenceGraph{edges: make(map[string][]string)}

	for _, t := range s.Tables {
		g.nodes = append(g.nodes, t.Name)
		g.edges[t.Name] = []string{} // ensures node exists in graph
	}

	for _, t := range s.Tables {
		for _, c := range t.Columns {
			if c.ForeignKey == nil {
				continue
			}
			target, ok := s.Table(c.ForeignKey.Table)
			if !ok {
				continue
			}
			if !slices.Contains(g.edges[t.Name], target.Name) {
				g.edges[t.Name] = append(g.edges[t.Name], target.Name)
			}
		}
	}

	return g
}

// hasSelfLoop checks if a node has an edge to itself.
func hasSelfLoop(node string, g referenceGraph) bool {
	return slices.Contains(g.edges[node], node)
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm.
//
// Returns a list of SCCs, where each SCC is a list of table names.
// Single-node SCCs without self-loops are NOT cycles.
func tarjanSCC(g referenceGraph) [][]string {
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

		for _, w := range g.edges[v] {
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
			sccs = append(sccs, scc)
		}
	}

	for _, node := range g.nodes {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}

	return sccs
}

// cycleSCCToWarning converts an SCC to a CycleWarning.
func cycleSCCToWarning(scc []string, g referenceGraph) CycleWarning {
	if len(scc) == 1 {
		table := scc[0]
		return CycleWarning{
			Path:    []string{table, table},
			Message: fmt.Sprintf("Self-referencing table: %s → %s", table, table),
			Level:   "info",
		}
	}

	path := reconstructCyclePath(scc, g)
	return CycleWarning{
		Path:    path,
		Message: fmt.Sprintf("Foreign key cycle: %s", strings.Join(path, " → ")),
		Level:   "warning",
	}
}

// reconstructCyclePath builds a cycle path from an SCC.
//
// Strategy: Start at the SCC member declared first, follow edges to other
// SCC members, continue until we return to start node.
func reconstructCyclePath(scc []string, g referenceGraph) []string {
	sccSet := make(map[string]bool)
	for _, node := range scc {
		sccSet[node] = true
	}

	var start string
	for _, n := range g.nodes {
		if sccSet[n] {
			start = n
			break
		}
	}

	current := start
	path := []string{current}
	visited := make(map[string]bool)

	for {
		visited[current] = true

		var next string
		for _, neighbor := range g.edges[current] {
			if sccSet[neighbor] && (!visited[neighbor] || neighbor == start) && neighbor != current {
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
