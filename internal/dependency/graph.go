package dependency

import (
	"slices"

	"stevedore/internal/config"
)

// Node is one service in the graph together with the names it depends on.
type Node struct {
	Name      string
	DependsOn []string
}

// Graph answers dependency queries over services. It remembers the order in
// which nodes were added; every query that returns several names returns
// them in that order.
//
// A Graph is not thread-safe for writes. Once built it is only read.
type Graph struct {
	nodes map[string]*Node
	order []string
	index map[string]int
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{
		nodes: make(map[string]*Node),
		index: make(map[string]int),
	}
}

// FromModel builds the graph of every service in the model, in declaration
// order.
func FromModel(m *config.Model) *Graph {
	g := New()
	for _, svc := range m.Services() {
		g.AddNode(Node{Name: svc.Name, DependsOn: svc.DependsOn})
	}
	return g
}

// AddNode adds (or replaces) a node. A replaced node keeps its original
// position.
func (g *Graph) AddNode(n Node) {
	if g.nodes == nil {
		g.nodes = make(map[string]*Node)
		g.index = make(map[string]int)
	}
	copied := Node{Name: n.Name, DependsOn: slices.Clone(n.DependsOn)}
	if _, exists := g.nodes[n.Name]; !exists {
		g.index[n.Name] = len(g.order)
		g.order = append(g.order, n.Name)
	}
	g.nodes[n.Name] = &copied
}

// Get returns a copy of the node and whether it exists.
func (g *Graph) Get(name string) (Node, bool) {
	n, ok := g.nodes[name]
	if !ok {
		return Node{}, false
	}
	return Node{Name: n.Name, DependsOn: slices.Clone(n.DependsOn)}, true
}

// Names returns all node names in insertion order.
func (g *Graph) Names() []string {
	return slices.Clone(g.order)
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	return len(g.order)
}

// Dependencies returns the immediate dependencies of name.
func (g *Graph) Dependencies(name string) []string {
	if n, ok := g.nodes[name]; ok {
		return slices.Clone(n.DependsOn)
	}
	return nil
}

// Dependents returns the nodes that depend directly on name.
func (g *Graph) Dependents(name string) []string {
	var res []string
	for _, id := range g.order {
		if slices.Contains(g.nodes[id].DependsOn, name) {
			res = append(res, id)
		}
	}
	return res
}

// TransitiveDependents returns every node that depends on name directly or
// indirectly. name itself is not included.
func (g *Graph) TransitiveDependents(name string) []string {
	return g.closure([]string{name}, g.Dependents)
}

// TransitiveDependencies returns every node name depends on directly or
// indirectly. name itself is not included.
func (g *Graph) TransitiveDependencies(name string) []string {
	return g.closure([]string{name}, g.Dependencies)
}

// closure walks edges from roots and returns the reached nodes, excluding the
// roots, in insertion order.
func (g *Graph) closure(roots []string, next func(string) []string) []string {
	seen := make(map[string]bool, len(roots))
	for _, r := range roots {
		seen[r] = true
	}
	reached := make(map[string]bool)
	queue := slices.Clone(roots)
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, n := range next(cur) {
			if seen[n] {
				continue
			}
			seen[n] = true
			reached[n] = true
			queue = append(queue, n)
		}
	}
	return g.ordered(reached)
}

// ordered returns the members of set in insertion order.
func (g *Graph) ordered(set map[string]bool) []string {
	res := make([]string, 0, len(set))
	for _, id := range g.order {
		if set[id] {
			res = append(res, id)
		}
	}
	return res
}
