package compiler

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/roach88/ruleflow/internal/ir"
	"github.com/roach88/ruleflow/internal/rule"
)

// CycleWarning reports rules whose output can feed each other's selectors.
//
// Cycles are warnings, not errors, because they are often intentional:
//   - Growth rules such as A -> ABA
//   - Cellular automata, which never become inert
//   - Rule sets bounded by lifespans or a step cap
type CycleWarning struct {
	Path    []string `json:"path"`    // Cycle path: ["A -> ABA", "A -> ABA"]
	Message string   `json:"message"` // Human-readable description
	Level   string   `json:"level"`   // "warning" or "info"
}

// AnalyzeCycles performs static feedback analysis on instructions.
//
// It builds a graph where rule i has an edge to rule j when text written by
// i could be matched by j's selector, then finds strongly connected
// components. A component with more than one rule, or a rule feeding
// itself, means a flow may never become inert and will rely on its step
// cap.
//
// The algorithm:
//  1. Build the rule-to-rule feed graph from targets and selectors
//  2. Use Tarjan's algorithm to find strongly connected components
//  3. Report each SCC with size > 1 or self-loops as a potential cycle warning
//
// The analysis is conservative: range selectors match anything, and
// delete, shift and reverse rules write nothing new.
func AnalyzeCycles(instructions []ir.Instruction) []CycleWarning {
	if len(instructions) == 0 {
		return []CycleWarning{}
	}

	graph := buildFeedGraph(instructions)
	names := make([]string, len(instructions))
	for i, in := range instructions {
		names[i] = instructionName(i, in)
	}

	var warnings []CycleWarning
	for _, scc := range tarjanSCC(graph) {
		if len(scc) > 1 || (len(scc) == 1 && hasSelfLoop(scc[0], graph)) {
			warnings = append(warnings, cycleSCCToWarning(scc, graph, names))
		}
	}
	if warnings == nil {
		return []CycleWarning{}
	}
	return warnings
}

// feedGraph maps a rule index to the indices of rules its output can feed,
// ascending.
type feedGraph [][]int

func buildFeedGraph(instructions []ir.Instruction) feedGraph {
	graph := make(feedGraph, len(instructions))
	for i, from := range instructions {
		written := writtenTexts(from)
		if len(written) == 0 {
			continue
		}
		for j, to := range instructions {
			if feeds(written, to) {
				graph[i] = append(graph[i], j)
			}
		}
	}
	return graph
}

// writtenTexts returns the target texts an instruction writes, with
// wildcards removed for overwrites since those cells are left alone.
func writtenTexts(in ir.Instruction) []string {
	kind, _, err := rule.KindForOperator(in.Operator)
	if err != nil {
		return nil
	}
	switch kind {
	case rule.Substitute, rule.Insert, rule.Overwrite:
	default:
		return nil
	}
	var out []string
	for _, t := range in.Targets {
		if t.Kind != ir.TargetCells || len(t.Cells) == 0 {
			continue
		}
		text := ir.Text(t.Cells)
		if kind == rule.Overwrite {
			text = strings.ReplaceAll(text, string(rune(ir.Wildcard)), "")
			if text == "" {
				continue
			}
		}
		out = append(out, text)
	}
	return out
}

// feeds reports whether any written text could be matched by to's
// selectors. A literal feeds when it shares a quanta with the written text.
func feeds(written []string, to ir.Instruction) bool {
	for _, sel := range to.Selectors {
		for _, w := range written {
			switch sel.Kind {
			case ir.SelectorLiteral:
				lit := strings.ReplaceAll(ir.Text(sel.Cells), string(rune(ir.Wildcard)), "")
				if lit == "" || strings.ContainsAny(w, lit) {
					return true
				}
			case ir.SelectorRegex:
				re, err := regexp.Compile(sel.Pattern)
				if err != nil || re.MatchString(w) {
					return true
				}
			default:
				return true
			}
		}
	}
	return false
}

func instructionName(i int, in ir.Instruction) string {
	if in.Source != "" {
		return in.Source
	}
	return fmt.Sprintf("rules[%d]", i)
}

// hasSelfLoop checks if a node has an edge to itself.
func hasSelfLoop(node int, graph feedGraph) bool {
	for _, neighbor := range graph[node] {
		if neighbor == node {
			return true
		}
	}
	return false
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm.
// Nodes are visited in index order, so the result is deterministic.
func tarjanSCC(graph feedGraph) [][]int {
	var (
		index   = 0
		stack   []int
		indices = make(map[int]int)
		lowlink = make(map[int]int)
		onStack = make(map[int]bool)
		sccs    [][]int
	)

	var strongConnect func(int)
	strongConnect = func(v int) {
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

		// If v is a root node, pop the stack and create an SCC
		if lowlink[v] == indices[v] {
			var scc []int
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

	for node := range graph {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}

	return sccs
}

func cycleSCCToWarning(scc []int, graph feedGraph, names []string) CycleWarning {
	if len(scc) == 1 {
		name := names[scc[0]]
		return CycleWarning{
			Path:    []string{name, name},
			Message: fmt.Sprintf("Self-feeding rule: %s matches its own output", name),
			Level:   "warning",
		}
	}

	path := reconstructCyclePath(scc, graph)
	labels := make([]string, len(path))
	for i, n := range path {
		labels[i] = names[n]
	}
	return CycleWarning{
		Path:    labels,
		Message: fmt.Sprintf("Rules feed each other: %s", strings.Join(labels, " \u2192 ")),
		Level:   "warning",
	}
}

// reconstructCyclePath builds a cycle path from an SCC, starting at its
// lowest index and following edges to other members until it returns.
func reconstructCyclePath(scc []int, graph feedGraph) []int {
	if len(scc) == 0 {
		return []int{}
	}

	inSCC := make(map[int]bool)
	start := scc[0]
	for _, node := range scc {
		inSCC[node] = true
		start = min(start, node)
	}

	current := start
	path := []int{current}
	visited := make(map[int]bool)
	for {
		visited[current] = true

		next := -1
		for _, neighbor := range graph[current] {
			if inSCC[neighbor] && (!visited[neighbor] || neighbor == start) {
				next = neighbor
				break
			}
		}
		if next < 0 {
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
