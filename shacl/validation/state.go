// Package validation is the ValidationEngine: it owns ValidationState,
// drives target retrieval, and runs the interleave/saturate closure
// that classifies every target as valid or violated (§4.3–§4.5).
package validation

import (
	"strings"

	"github.com/SDM-TIB/Trav-SHACL/shacl"
	"github.com/SDM-TIB/Trav-SHACL/shacl/query"
)

// ShapeState is the per-shape slice of ValidationState (§3).
type ShapeState struct {
	FilteringShape        shacl.ShapeHandle
	HasFilteringShape     bool
	Inferred              map[shacl.Atom]struct{}
	RemainingTargetsCount int
	RegisteredValid       map[string]struct{}
	RegisteredViolated    map[string]struct{}

	// MaxCounters tracks a max-with-shape-reference constraint's
	// running count of confirmed/pending neighbour atoms per target,
	// for the rows interleave couldn't decide immediately. saturate's
	// fixpoint reconsiders these every round instead of requerying.
	MaxCounters map[shacl.Atom]*maxCounter
}

func newShapeState() *ShapeState {
	return &ShapeState{
		Inferred:           make(map[shacl.Atom]struct{}),
		RegisteredValid:    make(map[string]struct{}),
		RegisteredViolated: make(map[string]struct{}),
		MaxCounters:        make(map[shacl.Atom]*maxCounter),
	}
}

// IsInferred reports whether a has been decisively classified.
func (ss *ShapeState) IsInferred(a shacl.Atom) bool {
	_, ok := ss.Inferred[a]
	return ok
}

// Infer adds a to the inferred set, returning true if it was new.
func (ss *ShapeState) Infer(a shacl.Atom) bool {
	if ss.IsInferred(a) {
		return false
	}
	ss.Inferred[a] = struct{}{}
	return true
}

// Forget drops a from the inferred set (§4.4's memory-reclamation step
// once a target is finally classified).
func (ss *ShapeState) Forget(a shacl.Atom) {
	delete(ss.Inferred, a)
}

// State is ValidationState (§3): the single mutable object the engine
// threads through the whole run.
type State struct {
	RemainingTargets    map[shacl.Atom]struct{}
	VisitedShapes       map[shacl.ShapeHandle]struct{}
	EvaluatedPredicates map[string]struct{}
	PredsToShapes       map[string]shacl.ShapeHandle
	Rules               *shacl.RuleMap
	RuleNumber          int
	TotalRuleNumber     int

	Shapes map[shacl.ShapeHandle]*ShapeState

	// ValidAfterTermination holds targets still pending once every shape
	// has been visited — the closed-world default (§4.5, last paragraph).
	ValidAfterTermination map[shacl.Atom]struct{}
}

// NewState builds an empty ValidationState for schema, registering
// every constraint-query id each shape owns under PredsToShapes.
func NewState(schema *shacl.Schema, plans map[shacl.ShapeHandle]*query.Plan) *State {
	st := &State{
		RemainingTargets:       make(map[shacl.Atom]struct{}),
		VisitedShapes:          make(map[shacl.ShapeHandle]struct{}),
		EvaluatedPredicates:    make(map[string]struct{}),
		PredsToShapes:          make(map[string]shacl.ShapeHandle),
		Rules:                  shacl.NewRuleMap(),
		Shapes:                 make(map[shacl.ShapeHandle]*ShapeState),
		ValidAfterTermination:  make(map[shacl.Atom]struct{}),
	}

	for _, s := range schema.Shapes() {
		st.Shapes[s.ID] = newShapeState()
		st.PredsToShapes[s.Name] = s.ID

		plan := plans[s.ID]
		if plan == nil {
			continue
		}
		if plan.Min != nil {
			st.PredsToShapes[plan.Min.ID] = s.ID
		}
		for _, q := range plan.Max {
			st.PredsToShapes[q.ID] = s.ID
		}
	}
	return st
}

// registerTarget records a's final classification on both the owning
// shape (shacl.Shape.Targets, read by downstream reporting) and the
// invalidating shape's per-run ledger (ShapeState.Registered*, read by
// alreadyRegistered), appends one Tracer row, and drops a from
// RemainingTargets — a is always the positive-form target atom,
// whichever verdict it received. registerTarget is the single place a
// target leaves RemainingTargets, whether called from a shape's own
// evaluation, the closed-world default, or a later shape's saturation
// pass resolving an earlier shape's pending shape-level rule (§4.4).
func (e *Engine) registerTarget(a shacl.Atom, valid bool, invalidatingShape shacl.ShapeHandle) {
	shapeID, ok := e.state.PredsToShapes[a.Predicate]
	if !ok {
		return
	}
	shape := e.schema.Shape(shapeID)
	instance := wrapIRI(a.Individual)
	ss := e.state.Shapes[shapeID]

	if valid {
		shape.Targets.MarkValid(instance)
		ss.Infer(a)
		e.state.Shapes[invalidatingShape].RegisteredValid[a.Individual] = struct{}{}
	} else {
		shape.Targets.MarkViolated(instance)
		ss.Infer(a.Negate())
		e.state.Shapes[invalidatingShape].RegisteredViolated[a.Individual] = struct{}{}
	}

	delete(e.state.RemainingTargets, a)

	if e.tracer != nil {
		e.tracer.Record(e.schema.Shape(invalidatingShape).Name, valid)
	}
}

// wrapIRI normalizes an atom's individual into the bracketed form a
// VALUES clause splice expects. RemoteEndpoint's SPARQL-JSON bindings
// carry bare IRIs (§6: "type/datatype metadata is ignored"); the
// InMemoryEndpoint's narrower evaluator instead preserves whatever
// token form the original triples/queries used, which for a URI is
// already bracketed. Literal values (already quoted) are left alone
// either way.
func wrapIRI(individual string) string {
	if strings.HasPrefix(individual, "<") || strings.HasPrefix(individual, "\"") {
		return individual
	}
	return "<" + individual + ">"
}
