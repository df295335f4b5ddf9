package dependency

import (
	"slices"
	"sort"

	"stevedore/internal/config"
)

// Direction selects which way a target filter expands.
type Direction int

const (
	// DirectionStart expands targets with everything they depend on.
	DirectionStart Direction = iota
	// DirectionStop expands targets with everything that depends on them.
	DirectionStop
)

func (d Direction) String() string {
	if d == DirectionStop {
		return "stop"
	}
	return "start"
}

// Plan is an ordered sequence of levels. Every service of level i has all
// its dependencies in levels 0..i-1, so the services of one level may be
// started concurrently.
type Plan struct {
	Levels [][]string

	graph *Graph
	level map[string]int
}

// Resolve builds the graph of m and orders it.
func Resolve(m *config.Model) (*Plan, error) {
	return FromModel(m).Resolve()
}

// Resolve orders the graph into levels with Kahn's algorithm. Within a level
// services keep insertion order. Dependencies on names that are not in the
// graph are rejected before ordering starts.
func (g *Graph) Resolve() (*Plan, error) {
	for _, id := range g.order {
		for _, dep := range g.nodes[id].DependsOn {
			if _, ok := g.nodes[dep]; !ok {
				return nil, &config.UnknownDependencyError{Service: id, Dependency: dep}
			}
		}
	}

	dependents := make(map[string][]string, len(g.order))
	indegree := make(map[string]int, len(g.order))
	for _, id := range g.order {
		deps := g.nodes[id].DependsOn
		indegree[id] = len(deps)
		for _, dep := range deps {
			dependents[dep] = append(dependents[dep], id)
		}
	}

	var current []string
	for _, id := range g.order {
		if indegree[id] == 0 {
			current = append(current, id)
		}
	}

	plan := &Plan{graph: g, level: make(map[string]int, len(g.order))}
	for len(current) > 0 {
		for _, id := range current {
			plan.level[id] = len(plan.Levels)
		}
		plan.Levels = append(plan.Levels, current)

		var next []string
		for _, id := range current {
			for _, d := range dependents[id] {
				indegree[d]--
				if indegree[d] == 0 {
					next = append(next, d)
				}
			}
		}
		sort.Slice(next, func(i, j int) bool { return g.index[next[i]] < g.index[next[j]] })
		current = next
	}

	if len(plan.level) < len(g.order) {
		unplaced := make(map[string]bool)
		for _, id := range g.order {
			if _, ok := plan.level[id]; !ok {
				unplaced[id] = true
			}
		}
		return nil, &DependencyCycleError{Cycle: g.shortestCycle(unplaced)}
	}

	return plan, nil
}

// shortestCycle finds the shortest cycle among candidates by running a BFS
// along dependency edges from each candidate back to itself.
func (g *Graph) shortestCycle(candidates map[string]bool) []string {
	var best []string
	for _, start := range g.order {
		if !candidates[start] {
			continue
		}

		parent := make(map[string]string)
		visited := map[string]bool{start: true}
		queue := []string{start}
		last := ""
		for len(queue) > 0 && last == "" {
			cur := queue[0]
			queue = queue[1:]
			for _, dep := range g.nodes[cur].DependsOn {
				if !candidates[dep] {
					continue
				}
				if dep == start {
					last = cur
					break
				}
				if !visited[dep] {
					visited[dep] = true
					parent[dep] = cur
					queue = append(queue, dep)
				}
			}
		}
		if last == "" {
			continue
		}

		var path []string
		for n := last; n != start; n = parent[n] {
			path = append(path, n)
		}
		path = append(path, start)
		slices.Reverse(path)

		if best == nil || len(path) < len(best) {
			best = path
		}
	}
	return best
}

// Graph returns the graph the plan was resolved from.
func (p *Plan) Graph() *Graph {
	return p.graph
}

// StopLevels returns the levels in reverse: the last level started is the
// first one stopped.
func (p *Plan) StopLevels() [][]string {
	out := make([][]string, 0, len(p.Levels))
	for i := len(p.Levels) - 1; i >= 0; i-- {
		out = append(out, slices.Clone(p.Levels[i]))
	}
	return out
}

// LevelOf returns the level index of name.
func (p *Plan) LevelOf(name string) (int, bool) {
	l, ok := p.level[name]
	return l, ok
}

// Services returns every service of the plan, level by level.
func (p *Plan) Services() []string {
	var out []string
	for _, lvl := range p.Levels {
		out = append(out, lvl...)
	}
	return out
}

// Contains reports whether name is part of the plan.
func (p *Plan) Contains(name string) bool {
	_, ok := p.level[name]
	return ok
}

// Subset narrows the plan to targets. For DirectionStart the result also
// holds every transitive dependency of the targets, for DirectionStop every
// transitive dependent. Level order is preserved; levels left empty are
// dropped. No targets means the whole plan.
func (p *Plan) Subset(targets []string, dir Direction) (*Plan, error) {
	if len(targets) == 0 {
		return p.filter(func(string) bool { return true }), nil
	}

	keep := make(map[string]bool)
	for _, t := range targets {
		if !p.Contains(t) {
			return nil, &UnknownServiceError{Name: t}
		}
		keep[t] = true
		var extra []string
		if dir == DirectionStop {
			extra = p.graph.TransitiveDependents(t)
		} else {
			extra = p.graph.TransitiveDependencies(t)
		}
		for _, e := range extra {
			if p.Contains(e) {
				keep[e] = true
			}
		}
	}

	return p.filter(func(name string) bool { return keep[name] }), nil
}

func (p *Plan) filter(keep func(string) bool) *Plan {
	out := &Plan{graph: p.graph, level: make(map[string]int)}
	for _, lvl := range p.Levels {
		var kept []string
		for _, name := range lvl {
			if keep(name) {
				kept = append(kept, name)
			}
		}
		if len(kept) == 0 {
			continue
		}
		for _, name := range kept {
			out.level[name] = len(out.Levels)
		}
		out.Levels = append(out.Levels, kept)
	}
	return out
}
