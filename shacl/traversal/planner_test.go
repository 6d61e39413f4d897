package traversal

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/SDM-TIB/Trav-SHACL/shacl"
)

func namesOf(shapes []*shacl.Shape) []string {
	out := make([]string, len(shapes))
	for i, s := range shapes {
		out[i] = s.Name
	}
	return out
}

func TestOrderVisitsEveryShapeExactlyOnce(t *testing.T) {
	schema := buildTestSchema(t)
	order := NewPlanner(BFS, Heuristics{Target: true}).Order(schema)

	require.Len(t, order, schema.Len())
	seen := make(map[string]bool)
	for _, s := range order {
		require.False(t, seen[s.Name], "shape %q visited twice", s.Name)
		seen[s.Name] = true
	}
}

func TestOrderBFSStartsFromSeedAndReachesNeighboursBeforeTheirNeighbours(t *testing.T) {
	schema := buildTestSchema(t)
	order := NewPlanner(BFS, Heuristics{Degree: DegreeOut}).Order(schema)

	require.Equal(t, "Owner", order[0].Name, "DegreeOut picks Owner as the sole seed")
	require.Contains(t, namesOf(order), "Pet")
}

func TestOrderDFSPrioritizesForwardDependencies(t *testing.T) {
	schema := buildTestSchema(t)
	order := NewPlanner(DFS, Heuristics{Degree: DegreeOut}).Order(schema)

	require.Equal(t, "Owner", order[0].Name)
	require.Equal(t, "Pet", order[1].Name, "DFS follows Owner's outgoing reference to Pet before backtracking")
}

func TestOrderHandlesDisconnectedComponents(t *testing.T) {
	schema := shacl.NewSchema()
	_, err := schema.AddShape("Island")
	require.NoError(t, err)
	_, err = schema.AddShape("Mainland")
	require.NoError(t, err)

	order := NewPlanner(BFS, Heuristics{}).Order(schema)
	require.Len(t, order, 2)
	require.ElementsMatch(t, []string{"Island", "Mainland"}, namesOf(order))
}

func TestOrderBreaksTiesByParseOrder(t *testing.T) {
	schema := shacl.NewSchema()
	_, err := schema.AddShape("A")
	require.NoError(t, err)
	_, err = schema.AddShape("B")
	require.NoError(t, err)

	order := NewPlanner(BFS, Heuristics{}).Order(schema)
	require.Equal(t, "A", order[0].Name, "with no heuristics tied, the first-parsed shape seeds the traversal")
}
