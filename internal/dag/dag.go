// Package dag provides the job dependency graph: cycle detection,
// execution levels and downstream selection.
package dag

import (
	"fmt"
	"sort"
)

// Graph is a directed graph of jobs. An edge parent -> child means the child
// runs after the parent.
type Graph[T any] struct {
	nodes   map[string]T
	edges   map[string][]string // parent -> children (dependents)
	parents map[string][]string // child -> parents (dependencies)
}

// NewGraph creates a new empty graph.
func NewGraph[T any]() *Graph[T] {
	return &Graph[T]{
		nodes:   make(map[string]T),
		edges:   make(map[string][]string),
		parents: make(map[string][]string),
	}
}

// AddNode adds a node, or replaces the data of an existing one.
func (g *Graph[T]) AddNode(id string, data T) {
	if _, exists := g.nodes[id]; !exists {
		g.edges[id] = []string{}
		g.parents[id] = []string{}
	}
	g.nodes[id] = data
}

// AddEdge adds a directed edge from parent to child (child depends on parent).
func (g *Graph[T]) AddEdge(parentID, childID string) error {
	if _, exists := g.nodes[parentID]; !exists {
		return fmt.Errorf("unknown dependency %q", parentID)
	}
	if _, exists := g.nodes[childID]; !exists {
		return fmt.Errorf("unknown job %q", childID)
	}
	if parentID == childID {
		return fmt.Errorf("job %s depends on itself", parentID)
	}

	if !contains(g.edges[parentID], childID) {
		g.edges[parentID] = append(g.edges[parentID], childID)
	}
	if !contains(g.parents[childID], parentID) {
		g.parents[childID] = append(g.parents[childID], parentID)
	}
	return nil
}

// Node returns the data stored for id.
func (g *Graph[T]) Node(id string) (T, bool) {
	data, ok := g.nodes[id]
	return data, ok
}

// Parents returns the direct dependencies of id.
func (g *Graph[T]) Parents(id string) []string { return g.parents[id] }

// Children returns the direct dependents of id.
func (g *Graph[T]) Children(id string) []string { return g.edges[id] }

// IDs returns all node IDs, sorted.
func (g *Graph[T]) IDs() []string {
	ids := make([]string, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of nodes.
func (g *Graph[T]) Len() int { return len(g.nodes) }

// EdgeCount returns the number of edges.
func (g *Graph[T]) EdgeCount() int {
	count := 0
	for _, children := range g.edges {
		count += len(children)
	}
	return count
}

// FindCycle returns one cycle as a path whose first and last element are the
// same node, or nil when the graph is acyclic.
func (g *Graph[T]) FindCycle() []string {
	visited := make(map[string]bool)
	onStack := make(map[string]bool)
	from := make(map[string]string)

	var cycle []string
	var dfs func(id string) bool
	dfs = func(id string) bool {
		visited[id] = true
		onStack[id] = true

		for _, child := range g.edges[id] {
			if !visited[child] {
				from[child] = id
				if dfs(child) {
					return true
				}
			} else if onStack[child] {
				cycle = []string{child}
				for curr := id; curr != child; curr = from[curr] {
					cycle = append([]string{curr}, cycle...)
				}
				cycle = append([]string{child}, cycle...)
				return true
			}
		}

		onStack[id] = false
		return false
	}

	for _, id := range g.IDs() {
		if !visited[id] && dfs(id) {
			return cycle
		}
	}
	return nil
}

// CycleError reports a dependency cycle.
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("dependency cycle: %v", e.Path)
}

// Levels groups nodes by execution level. Level 0 holds jobs without
// dependencies; jobs at level N only depend on jobs at lower levels.
func (g *Graph[T]) Levels() ([][]string, error) {
	if cycle := g.FindCycle(); cycle != nil {
		return nil, &CycleError{Path: cycle}
	}
	if len(g.nodes) == 0 {
		return nil, nil
	}

	assigned := make(map[string]int, len(g.nodes))
	var level func(id string) int
	level = func(id string) int {
		if l, ok := assigned[id]; ok {
			return l
		}
		l := 0
		for _, p := range g.parents[id] {
			if pl := level(p) + 1; pl > l {
				l = pl
			}
		}
		assigned[id] = l
		return l
	}

	maxLevel := 0
	for id := range g.nodes {
		if l := level(id); l > maxLevel {
			maxLevel = l
		}
	}

	levels := make([][]string, maxLevel+1)
	for id, l := range assigned {
		levels[l] = append(levels[l], id)
	}
	for i := range levels {
		sort.Strings(levels[i])
	}
	return levels, nil
}

// Downstream returns the given nodes plus everything that depends on them,
// sorted. Unknown IDs are ignored.
func (g *Graph[T]) Downstream(ids ...string) []string {
	affected := make(map[string]bool)

	var mark func(id string)
	mark = func(id string) {
		if affected[id] {
			return
		}
		affected[id] = true
		for _, child := range g.edges[id] {
			mark(child)
		}
	}

	for _, id := range ids {
		if _, exists := g.nodes[id]; exists {
			mark(id)
		}
	}

	result := make([]string, 0, len(affected))
	for id := range affected {
		result = append(result, id)
	}
	sort.Strings(result)
	return result
}

// Roots returns nodes without dependencies, sorted.
func (g *Graph[T]) Roots() []string {
	var roots []string
	for id := range g.nodes {
		if len(g.parents[id]) == 0 {
			roots = append(roots, id)
		}
	}
	sort.Strings(roots)
	return roots
}

// Subgraph returns a graph with only the given nodes and the edges between them.
func (g *Graph[T]) Subgraph(ids []string) *Graph[T] {
	sub := NewGraph[T]()
	keep := make(map[string]bool, len(ids))
	for _, id := range ids {
		if data, exists := g.nodes[id]; exists {
			keep[id] = true
			sub.AddNode(id, data)
		}
	}
	for id := range keep {
		for _, child := range g.edges[id] {
			if keep[child] {
				_ = sub.AddEdge(id, child)
			}
		}
	}
	return sub
}

func contains(slice []string, s string) bool {
	for _, v := range slice {
		if v == s {
			return true
		}
	}
	return false
}
