package traversal

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/SDM-TIB/Trav-SHACL/shacl"
)

func buildTestSchema(t *testing.T) *shacl.Schema {
	t.Helper()
	schema := shacl.NewSchema()

	pet, err := schema.AddShape("Pet")
	require.NoError(t, err)
	pet.TargetKind = shacl.TargetClass
	pet.TargetQuery = "?x a <Dog> ."

	owner, err := schema.AddShape("Owner")
	require.NoError(t, err)
	owner.TargetKind = shacl.TargetClass
	owner.TargetQuery = "?x a <Person> ."
	owner.Constraints = []shacl.Constraint{
		{Kind: shacl.MinOnly, Path: "<hasPet>", Min: 1, ShapeRef: "Pet", OwningShape: "Owner"},
	}

	vet, err := schema.AddShape("Vet")
	require.NoError(t, err)

	schema.Link(owner.ID, "<hasPet>", pet.ID)
	return schema
}

func TestSeedCandidatesTargetFiltersUntargeted(t *testing.T) {
	schema := buildTestSchema(t)
	candidates := SeedCandidates(schema, Heuristics{Target: true})
	for _, c := range candidates {
		require.True(t, c.HasTarget(), "Vet has no target and must be filtered out")
	}
}

func TestSeedCandidatesDegreeOutPrefersMostReferencing(t *testing.T) {
	schema := buildTestSchema(t)
	candidates := SeedCandidates(schema, Heuristics{Degree: DegreeOut})
	require.Len(t, candidates, 1)
	require.Equal(t, "Owner", candidates[0].Name, "Owner is the only shape with an outgoing reference")
}

func TestSeedCandidatesDegreeInPrefersMostReferenced(t *testing.T) {
	schema := buildTestSchema(t)
	candidates := SeedCandidates(schema, Heuristics{Degree: DegreeIn})
	require.Len(t, candidates, 1)
	require.Equal(t, "Pet", candidates[0].Name)
}

func TestSeedCandidatesPropertiesSmallPrefersFewestConstraints(t *testing.T) {
	schema := buildTestSchema(t)
	candidates := SeedCandidates(schema, Heuristics{Properties: PropertiesSmall})
	for _, c := range candidates {
		require.Empty(t, c.Constraints, "Pet and Vet both have zero constraints, tied for fewest")
	}
}

func TestSeedCandidatesFallsBackToAllShapesWhenNothingQualifies(t *testing.T) {
	schema := shacl.NewSchema()
	candidates := SeedCandidates(schema, Heuristics{Target: true})
	require.Equal(t, schema.Shapes(), candidates)
}

func TestSeedCandidatesPrecedenceAppliesTargetThenDegreeThenProperties(t *testing.T) {
	schema := buildTestSchema(t)
	candidates := SeedCandidates(schema, Heuristics{Target: true, Degree: DegreeOut, Properties: PropertiesBig})
	require.Len(t, candidates, 1)
	require.Equal(t, "Owner", candidates[0].Name)
}
