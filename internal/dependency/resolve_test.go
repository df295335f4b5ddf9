package dependency

import (
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stevedore/internal/config"
)

func graphOf(nodes ...Node) *Graph {
	g := New()
	for _, n := range nodes {
		g.AddNode(n)
	}
	return g
}

func TestResolve_Levels(t *testing.T) {
	tests := []struct {
		name     string
		graph    *Graph
		expected [][]string
	}{
		{
			name: "independent branch shares first level",
			graph: graphOf(
				Node{Name: "A"},
				Node{Name: "B", DependsOn: []string{"A"}},
				Node{Name: "C"},
			),
			expected: [][]string{{"A", "C"}, {"B"}},
		},
		{
			name:     "chain",
			graph:    graphOf(Node{Name: "c", DependsOn: []string{"b"}}, Node{Name: "b", DependsOn: []string{"a"}}, Node{Name: "a"}),
			expected: [][]string{{"a"}, {"b"}, {"c"}},
		},
		{
			name: "diamond",
			graph: graphOf(
				Node{Name: "db"},
				Node{Name: "api", DependsOn: []string{"db"}},
				Node{Name: "worker", DependsOn: []string{"db"}},
				Node{Name: "proxy", DependsOn: []string{"api", "worker"}},
			),
			expected: [][]string{{"db"}, {"api", "worker"}, {"proxy"}},
		},
		{
			name:     "declaration order tie-break",
			graph:    graphOf(Node{Name: "z"}, Node{Name: "m"}, Node{Name: "a"}),
			expected: [][]string{{"z", "m", "a"}},
		},
		{
			name: "later level ordered by declaration not by discovery",
			graph: graphOf(
				Node{Name: "x", DependsOn: []string{"q"}},
				Node{Name: "p"},
				Node{Name: "q"},
				Node{Name: "y", DependsOn: []string{"p"}},
			),
			expected: [][]string{{"p", "q"}, {"x", "y"}},
		},
		{
			name:     "empty graph",
			graph:    New(),
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := tt.graph.Resolve()
			require.NoError(t, err)
			assert.Equal(t, tt.expected, plan.Levels)
		})
	}
}

func TestResolve_FromModel(t *testing.T) {
	model, err := config.NewModel(config.Document{Services: []config.ServiceDocument{
		{Name: "A", DescriptorPath: "/a.yml"},
		{Name: "B", DescriptorPath: "/b.yml", DependsOn: []string{"A"}},
		{Name: "C", DescriptorPath: "/c.yml"},
	}}, "")
	require.NoError(t, err)

	plan, err := Resolve(model)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"A", "C"}, {"B"}}, plan.Levels)
	assert.Equal(t, [][]string{{"B"}, {"A", "C"}}, plan.StopLevels())

	lvl, ok := plan.LevelOf("B")
	assert.True(t, ok)
	assert.Equal(t, 1, lvl)
	_, ok = plan.LevelOf("Z")
	assert.False(t, ok)
	assert.Equal(t, []string{"A", "C", "B"}, plan.Services())
}

func TestResolve_Cycles(t *testing.T) {
	tests := []struct {
		name          string
		graph         *Graph
		expectedCycle []string
	}{
		{
			name:          "self loop",
			graph:         graphOf(Node{Name: "a", DependsOn: []string{"a"}}),
			expectedCycle: []string{"a"},
		},
		{
			name: "two node cycle",
			graph: graphOf(
				Node{Name: "a", DependsOn: []string{"b"}},
				Node{Name: "b", DependsOn: []string{"a"}},
			),
			expectedCycle: []string{"a", "b"},
		},
		{
			name: "shortest cycle reported, blocked nodes excluded",
			graph: graphOf(
				Node{Name: "root"},
				Node{Name: "a", DependsOn: []string{"b"}},
				Node{Name: "b", DependsOn: []string{"c"}},
				Node{Name: "c", DependsOn: []string{"a", "d"}},
				Node{Name: "d", DependsOn: []string{"c"}},
				Node{Name: "blocked", DependsOn: []string{"a", "root"}},
			),
			expectedCycle: []string{"c", "d"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := tt.graph.Resolve()
			require.Error(t, err)
			assert.Nil(t, plan)

			var cycleErr *DependencyCycleError
			require.True(t, errors.As(err, &cycleErr))
			assert.Equal(t, tt.expectedCycle, cycleErr.Cycle)
		})
	}
}

func TestDependencyCycleError_Message(t *testing.T) {
	err := &DependencyCycleError{Cycle: []string{"a", "b"}}
	assert.Equal(t, "dependency cycle detected: a -> b -> a", err.Error())
}

func TestResolve_UnknownDependency(t *testing.T) {
	g := graphOf(Node{Name: "web", DependsOn: []string{"db"}})

	_, err := g.Resolve()
	require.Error(t, err)

	var unknown *config.UnknownDependencyError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, "db", unknown.Dependency)
}

// Every dependency of a service must sit in a strictly earlier level.
func TestResolve_LevelsRespectDependencies(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for round := 0; round < 50; round++ {
		n := 2 + rng.Intn(15)
		g := New()
		names := make([]string, n)
		for i := range names {
			names[i] = fmt.Sprintf("s%02d", i)
		}
		// Edges only point to lower indices so the graph is acyclic; nodes
		// are added in shuffled order to exercise forward references.
		nodes := make([]Node, n)
		for i := range nodes {
			nodes[i].Name = names[i]
			for j := 0; j < i; j++ {
				if rng.Intn(4) == 0 {
					nodes[i].DependsOn = append(nodes[i].DependsOn, names[j])
				}
			}
		}
		rng.Shuffle(len(nodes), func(i, j int) { nodes[i], nodes[j] = nodes[j], nodes[i] })
		for _, node := range nodes {
			g.AddNode(node)
		}

		plan, err := g.Resolve()
		require.NoError(t, err)

		seen := 0
		for _, lvl := range plan.Levels {
			seen += len(lvl)
		}
		require.Equal(t, n, seen, "every service appears exactly once")

		for _, node := range nodes {
			lvl, ok := plan.LevelOf(node.Name)
			require.True(t, ok)
			for _, dep := range node.DependsOn {
				depLvl, _ := plan.LevelOf(dep)
				assert.Less(t, depLvl, lvl, "%s must come after %s", node.Name, dep)
			}
		}
	}
}

func TestPlan_Subset(t *testing.T) {
	plan, err := newStackGraph().Resolve()
	require.NoError(t, err)
	require.Equal(t, [][]string{{"postgres", "traefik"}, {"gitea", "roundcube"}, {"drone"}}, plan.Levels)

	tests := []struct {
		name     string
		targets  []string
		dir      Direction
		expected [][]string
	}{
		{
			name:     "no targets keeps everything",
			dir:      DirectionStart,
			expected: plan.Levels,
		},
		{
			name:     "start pulls in dependencies",
			targets:  []string{"drone"},
			dir:      DirectionStart,
			expected: [][]string{{"postgres"}, {"gitea"}, {"drone"}},
		},
		{
			name:     "stop pulls in dependents",
			targets:  []string{"postgres"},
			dir:      DirectionStop,
			expected: [][]string{{"postgres"}, {"gitea", "roundcube"}, {"drone"}},
		},
		{
			name:     "stop of a leaf is just the leaf",
			targets:  []string{"drone"},
			dir:      DirectionStop,
			expected: [][]string{{"drone"}},
		},
		{
			name:     "multiple targets",
			targets:  []string{"traefik", "roundcube"},
			dir:      DirectionStart,
			expected: [][]string{{"postgres", "traefik"}, {"roundcube"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub, err := plan.Subset(tt.targets, tt.dir)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, sub.Levels)
		})
	}
}

func TestPlan_SubsetUnknownTarget(t *testing.T) {
	plan, err := newStackGraph().Resolve()
	require.NoError(t, err)

	_, err = plan.Subset([]string{"nginx"}, DirectionStart)
	var unknown *UnknownServiceError
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, "nginx", unknown.Name)
}
