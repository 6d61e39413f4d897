package validation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/SDM-TIB/Trav-SHACL/shacl"
	"github.com/SDM-TIB/Trav-SHACL/shacl/endpoint"
	"github.com/SDM-TIB/Trav-SHACL/shacl/query"
)

func newTestSchema(t *testing.T) (*shacl.Schema, *shacl.Shape) {
	t.Helper()
	schema := shacl.NewSchema()
	person, err := schema.AddShape("Person")
	require.NoError(t, err)
	person.TargetKind = shacl.TargetClass
	person.TargetQuery = "?x a <Person> ."
	person.Constraints = []shacl.Constraint{
		{Kind: shacl.MinOnly, Path: "<age>", Min: 1, OwningShape: "Person"},
		{Kind: shacl.MaxOnly, Path: "<age>", Max: 1, OwningShape: "Person"},
	}
	return schema, person
}

func newTestEngine(t *testing.T, schema *shacl.Schema, shapes ...*shacl.Shape) (*Engine, *endpoint.InMemoryEndpoint) {
	t.Helper()
	ep, err := endpoint.NewInMemoryEndpoint("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ep.Close() })

	planner := query.NewPlanner()
	plans := make(map[shacl.ShapeHandle]*query.Plan)
	var order []shacl.ShapeHandle
	for _, s := range shapes {
		plan, err := planner.PlanShape(schema, s)
		require.NoError(t, err)
		plans[s.ID] = plan
		order = append(order, s.ID)
	}

	return NewEngine(schema, plans, order, ep, Options{}, nil, nil), ep
}

func TestEngine_MinAndMaxCardinality(t *testing.T) {
	schema, person := newTestSchema(t)
	engine, ep := newTestEngine(t, schema, person)

	require.NoError(t, ep.AssertTriples([][3]string{
		{"<i1>", "a", "<Person>"},
		{"<i1>", "<age>", "\"30\""},

		{"<i2>", "a", "<Person>"},
		{"<i2>", "<age>", "\"30\""},
		{"<i2>", "<age>", "\"31\""},

		{"<i3>", "a", "<Person>"},
	}))

	require.NoError(t, engine.Run(context.Background()))

	_, valid := person.Targets.Valid["<i1>"]
	require.True(t, valid, "i1 has exactly one age, should be valid")

	_, violated := person.Targets.Violated["<i2>"]
	require.True(t, violated, "i2 has two ages, violates max(1)")

	_, violated = person.Targets.Violated["<i3>"]
	require.True(t, violated, "i3 has no age, violates min(1)")
}

func TestEngine_NoConstraintsMeansTargetMembershipSuffices(t *testing.T) {
	schema := shacl.NewSchema()
	dog, err := schema.AddShape("Dog")
	require.NoError(t, err)
	dog.TargetKind = shacl.TargetClass
	dog.TargetQuery = "?x a <Dog> ."

	engine, ep := newTestEngine(t, schema, dog)
	require.NoError(t, ep.AssertTriples([][3]string{{"<d1>", "a", "<Dog>"}}))

	require.NoError(t, engine.Run(context.Background()))

	_, valid := dog.Targets.Valid["<d1>"]
	require.True(t, valid)
}

func TestEngine_ShapeReferenceAcrossTraversal(t *testing.T) {
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
	schema.Link(owner.ID, "<hasPet>", pet.ID)

	engine, ep := newTestEngine(t, schema, pet, owner)
	require.NoError(t, ep.AssertTriples([][3]string{
		{"<d1>", "a", "<Dog>"},
		{"<p1>", "a", "<Person>"},
		{"<p1>", "<hasPet>", "<d1>"},
		{"<p2>", "a", "<Person>"},
	}))

	require.NoError(t, engine.Run(context.Background()))

	_, dogValid := pet.Targets.Valid["<d1>"]
	require.True(t, dogValid)

	_, ownerValid := owner.Targets.Valid["<p1>"]
	require.True(t, ownerValid, "p1's pet is valid, so the reference constraint holds")

	_, ownerViolated := owner.Targets.Violated["<p2>"]
	require.True(t, ownerViolated, "p2 has no pet at all")

	require.True(t, engine.state.Rules.Empty(), "every rule head should have resolved by the time Run returns")
}

// TestEngine_ForwardShapeReferenceSurvivesUnfavorableOrder is the
// reverse of TestEngine_ShapeReferenceAcrossTraversal: the referencing
// shape (Owner) is visited before the shape it depends on (Pet), and
// Pet itself fails its own bound. Owner's target must still come out
// violated — its shape-level rule has to survive Owner's own
// saturation pass and be resolved later, when Pet is visited.
func TestEngine_ForwardShapeReferenceSurvivesUnfavorableOrder(t *testing.T) {
	schema := shacl.NewSchema()
	owner, err := schema.AddShape("Owner")
	require.NoError(t, err)
	owner.TargetKind = shacl.TargetClass
	owner.TargetQuery = "?x a <Person> ."
	owner.Constraints = []shacl.Constraint{
		{Kind: shacl.MinOnly, Path: "<hasPet>", Min: 1, ShapeRef: "Pet", OwningShape: "Owner"},
	}

	pet, err := schema.AddShape("Pet")
	require.NoError(t, err)
	pet.TargetKind = shacl.TargetClass
	pet.TargetQuery = "?x a <Dog> ."
	pet.Constraints = []shacl.Constraint{
		{Kind: shacl.MinOnly, Path: "<vaccinated>", Min: 1, OwningShape: "Pet"},
	}
	schema.Link(owner.ID, "<hasPet>", pet.ID)

	engine, ep := newTestEngine(t, schema, owner, pet)
	require.NoError(t, ep.AssertTriples([][3]string{
		{"<p1>", "a", "<Person>"},
		{"<p1>", "<hasPet>", "<d1>"},
		{"<d1>", "a", "<Dog>"},
		// d1 is never vaccinated, so Pet violates its own bound, and
		// Owner's reference constraint must violate too.
	}))

	require.NoError(t, engine.Run(context.Background()))

	_, petViolated := pet.Targets.Violated["<d1>"]
	require.True(t, petViolated, "d1 has no vaccination record")

	_, ownerViolated := owner.Targets.Violated["<p1>"]
	require.True(t, ownerViolated, "p1's only pet fails its own shape, so the reference bound fails too")

	require.True(t, engine.state.Rules.Empty(), "Owner's shape-level rule must drain once Pet resolves it")
}

// TestEngine_MutualReferenceClosesTheCycle covers S3: two shapes
// referencing each other, each requiring at least one valid neighbour.
// Neither shape can be decided before the other, so both targets stay
// pending through saturation and come out valid by the closed-world
// default at the end of Run.
func TestEngine_MutualReferenceClosesTheCycle(t *testing.T) {
	schema := shacl.NewSchema()
	a, err := schema.AddShape("A")
	require.NoError(t, err)
	a.TargetKind = shacl.TargetClass
	a.TargetQuery = "?x a <A> ."
	a.Constraints = []shacl.Constraint{
		{Kind: shacl.MinOnly, Path: "<p>", Min: 1, ShapeRef: "B", OwningShape: "A"},
	}

	b, err := schema.AddShape("B")
	require.NoError(t, err)
	b.TargetKind = shacl.TargetClass
	b.TargetQuery = "?x a <B> ."
	b.Constraints = []shacl.Constraint{
		{Kind: shacl.MinOnly, Path: "<p>", Min: 1, ShapeRef: "A", OwningShape: "B"},
	}
	schema.Link(a.ID, "<p>", b.ID)
	schema.Link(b.ID, "<p>", a.ID)

	engine, ep := newTestEngine(t, schema, a, b)
	require.NoError(t, ep.AssertTriples([][3]string{
		{"<a>", "a", "<A>"},
		{"<b>", "a", "<B>"},
		{"<a>", "<p>", "<b>"},
		{"<b>", "<p>", "<a>"},
	}))

	require.NoError(t, engine.Run(context.Background()))

	_, aValid := a.Targets.Valid["<a>"]
	require.True(t, aValid, "the mutual reference cycle should close with a valid")

	_, bValid := b.Targets.Valid["<b>"]
	require.True(t, bValid)

	// Neither side's shape-level rule ever grounds to a decisive
	// literal here (each depends on the other, and neither can be
	// proven false), so the cycle is actually resolved by the
	// closed-world default at Run's end, not by saturate() draining
	// the rule map — Rules.Empty() would be false here by design.
}

// TestEngine_MaxZeroReference covers S4: a max(0) constraint against a
// class-typed referenced shape, which rewrites into a negated-reference
// check rather than a plain cardinality bound.
func TestEngine_MaxZeroReference(t *testing.T) {
	schema := shacl.NewSchema()
	a, err := schema.AddShape("A")
	require.NoError(t, err)
	a.TargetKind = shacl.TargetClass
	a.TargetQuery = "?x a <A> ."
	a.Constraints = []shacl.Constraint{
		{Kind: shacl.MaxOnly, Path: "<p>", Max: 0, ShapeRef: "B", OwningShape: "A"},
	}

	b, err := schema.AddShape("B")
	require.NoError(t, err)
	b.TargetKind = shacl.TargetClass
	b.TargetQuery = "?x a <B> ."
	schema.Link(a.ID, "<p>", b.ID)

	engine, ep := newTestEngine(t, schema, b, a)
	require.NoError(t, ep.AssertTriples([][3]string{
		{"<a1>", "a", "<A>"},
		{"<a1>", "<p>", "<b1>"},
		{"<b1>", "a", "<B>"},
		{"<a2>", "a", "<A>"},
	}))

	require.NoError(t, engine.Run(context.Background()))

	_, a1Violated := a.Targets.Violated["<a1>"]
	require.True(t, a1Violated, "a1 references a B-typed instance, violating max(0)")

	_, a2Valid := a.Targets.Valid["<a2>"]
	require.True(t, a2Valid, "a2 has no p edge at all")
}

// TestEngine_DisjunctionSatisfiesEitherOption covers S5: OR(max(0) on
// p, min(1) on q). A target satisfying either option is valid; one
// satisfying neither is violated.
func TestEngine_DisjunctionSatisfiesEitherOption(t *testing.T) {
	schema := shacl.NewSchema()
	a, err := schema.AddShape("A")
	require.NoError(t, err)
	a.TargetKind = shacl.TargetClass
	a.TargetQuery = "?x a <A> ."
	a.FlagDisjunction = true
	a.Constraints = []shacl.Constraint{
		{
			OwningShape: "A",
			Options: []shacl.ConstraintOption{
				{Path: "<p>", Max: 0, Min: shacl.NoBound},
				{Path: "<q>", Min: 1, Max: shacl.NoBound},
			},
		},
	}

	engine, ep := newTestEngine(t, schema, a)
	require.NoError(t, ep.AssertTriples([][3]string{
		{"<a1>", "a", "<A>"},
		{"<a1>", "<q>", "<v1>"},

		{"<a2>", "a", "<A>"},
		{"<a2>", "<p>", "<o1>"},

		{"<a3>", "a", "<A>"},
	}))

	require.NoError(t, engine.Run(context.Background()))

	_, a1Valid := a.Targets.Valid["<a1>"]
	require.True(t, a1Valid, "a1 satisfies min(1) q")

	_, a2Violated := a.Targets.Violated["<a2>"]
	require.True(t, a2Violated, "a2 has a p edge and no q edge, satisfying neither option")

	_, a3Valid := a.Targets.Valid["<a3>"]
	require.True(t, a3Valid, "a3 has no p edges at all, satisfying max(0) p")
}

// TestEngine_CardinalityRange covers S6: min(2) max(3) on a single
// path, exercising the planner's multi-witness lower bound alongside
// the existing HAVING-based upper bound.
func TestEngine_CardinalityRange(t *testing.T) {
	schema := shacl.NewSchema()
	a, err := schema.AddShape("A")
	require.NoError(t, err)
	a.TargetKind = shacl.TargetClass
	a.TargetQuery = "?x a <A> ."
	a.Constraints = []shacl.Constraint{
		{Kind: shacl.MinMax, Path: "<p>", Min: 2, Max: 3, OwningShape: "A"},
	}

	engine, ep := newTestEngine(t, schema, a)
	require.NoError(t, ep.AssertTriples([][3]string{
		{"<a1>", "a", "<A>"}, {"<a1>", "<p>", "<v1>"},

		{"<a2>", "a", "<A>"}, {"<a2>", "<p>", "<v1>"}, {"<a2>", "<p>", "<v2>"},

		{"<a3>", "a", "<A>"}, {"<a3>", "<p>", "<v1>"}, {"<a3>", "<p>", "<v2>"}, {"<a3>", "<p>", "<v3>"},

		{"<a4>", "a", "<A>"}, {"<a4>", "<p>", "<v1>"}, {"<a4>", "<p>", "<v2>"},
		{"<a4>", "<p>", "<v3>"}, {"<a4>", "<p>", "<v4>"},
	}))

	require.NoError(t, engine.Run(context.Background()))

	_, a1Violated := a.Targets.Violated["<a1>"]
	require.True(t, a1Violated, "a1 has 1 value, below min(2)")

	_, a2Valid := a.Targets.Valid["<a2>"]
	require.True(t, a2Valid, "a2 has exactly 2 values")

	_, a3Valid := a.Targets.Valid["<a3>"]
	require.True(t, a3Valid, "a3 has exactly 3 values")

	_, a4Violated := a.Targets.Violated["<a4>"]
	require.True(t, a4Violated, "a4 has 4 values, above max(3)")
}
