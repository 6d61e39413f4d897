package validation

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/SDM-TIB/Trav-SHACL/shacl"
	"github.com/SDM-TIB/Trav-SHACL/shacl/endpoint"
	"github.com/SDM-TIB/Trav-SHACL/shacl/query"
)

// Tracer records one registered-target event per call, in evaluation
// order, for shacl/report's traces.csv output (§6).
type Tracer interface {
	Record(shapeName string, valid bool)
}

// Options configures an Engine beyond its required collaborators.
type Options struct {
	// Selective enables filtering a shape's target query against an
	// already-evaluated neighbour's valid/invalid classification
	// (§4.3). Off by default: every shape pulls its full target set.
	Selective bool

	// FilterThreshold bounds how large a neighbour's valid/invalid
	// target list may be before it stops qualifying as a filtering
	// neighbour (§4.3). Zero selects the default, 256.
	FilterThreshold int
}

// Engine is the ValidationEngine (§4): it walks a schema's shapes in
// traversal order, retrieves each shape's targets, interleaves its
// constraint queries with the shape-reference rule base, and
// saturates the pending rule set to a fixpoint before moving on.
type Engine struct {
	schema   *shacl.Schema
	plans    map[shacl.ShapeHandle]*query.Plan
	order    []shacl.ShapeHandle
	endpoint endpoint.Endpoint
	state    *State

	filterThreshold int
	selective       bool
	tracer          Tracer
	log             *logrus.Entry
}

// NewEngine builds an Engine ready to Run. order is the traversal
// linearization (shacl/traversal.Planner's output); plans holds one
// materialized Plan per shape in order (shacl/query.Planner's output).
// log may be nil, in which case the engine runs silently.
func NewEngine(schema *shacl.Schema, plans map[shacl.ShapeHandle]*query.Plan, order []shacl.ShapeHandle, ep endpoint.Endpoint, opts Options, tracer Tracer, log *logrus.Entry) *Engine {
	threshold := opts.FilterThreshold
	if threshold <= 0 {
		threshold = defaultFilterThreshold
	}
	return &Engine{
		schema:          schema,
		plans:           plans,
		order:           order,
		endpoint:        ep,
		state:           NewState(schema, plans),
		filterThreshold: threshold,
		selective:       opts.Selective,
		tracer:          tracer,
		log:             log,
	}
}

// logf emits a phase-boundary diagnostic when a logger was supplied;
// it is a no-op otherwise.
func (e *Engine) logf(format string, args ...interface{}) {
	if e.log == nil {
		return
	}
	e.log.Debugf(format, args...)
}

// Schema returns the schema being validated; once Run returns, every
// shape's Targets partition reflects the final classification.
func (e *Engine) Schema() *shacl.Schema {
	return e.schema
}

// ShapeStats summarizes one shape's final target partition, for
// shacl/report's stats.txt table.
type ShapeStats struct {
	Name     string
	Valid    int
	Violated int
}

// Stats returns one ShapeStats entry per shape, in traversal order.
func (e *Engine) Stats() []ShapeStats {
	out := make([]ShapeStats, 0, len(e.order))
	for _, h := range e.order {
		s := e.schema.Shape(h)
		out = append(out, ShapeStats{Name: s.Name, Valid: len(s.Targets.Valid), Violated: len(s.Targets.Violated)})
	}
	return out
}

// Run validates every shape's targets in traversal order (§4.2–§4.5),
// then applies the closed-world default to whatever targets are still
// undecided once every shape has been visited (§4.5 last paragraph).
func (e *Engine) Run(ctx context.Context) error {
	e.logf("validation starting, %d shapes in traversal order", len(e.order))
	for _, h := range e.order {
		shape := e.schema.Shape(h)
		e.logf("evaluating shape %q", shape.Name)
		if err := e.evalShape(ctx, shape); err != nil {
			return fmt.Errorf("evaluating shape %q: %w", shape.Name, err)
		}
		e.state.VisitedShapes[h] = struct{}{}
		e.logf("shape %q done: %d valid, %d violated", shape.Name, len(shape.Targets.Valid), len(shape.Targets.Violated))
	}
	e.closeRemaining()
	e.logf("validation complete, %d targets closed valid by default", len(e.state.ValidAfterTermination))
	return nil
}

// evalShape retrieves shape's pending targets and, unless it has no
// constraints at all (in which case membership in its target set is
// itself sufficient, §2), runs its constraint queries to classify
// them.
func (e *Engine) evalShape(ctx context.Context, shape *shacl.Shape) error {
	targets, err := e.retrieveNextTargets(ctx, shape)
	if err != nil {
		return err
	}
	if len(targets) == 0 {
		return nil
	}
	for _, a := range targets {
		e.state.RemainingTargets[a] = struct{}{}
	}

	if len(shape.Constraints) == 0 {
		for _, a := range targets {
			e.registerTarget(a, true, shape.ID)
		}
		return nil
	}

	return e.evalConstraintsQueries(ctx, shape, targets)
}

// evalConstraintsQueries runs the shape's min query and every
// non-skippable max query, saturates the resulting rule base to a
// fixpoint, and registers every target the fixpoint decided.
func (e *Engine) evalConstraintsQueries(ctx context.Context, shape *shacl.Shape, targets []shacl.Atom) error {
	plan := e.plans[shape.ID]

	if err := e.interleaveMinQuery(ctx, shape, targets); err != nil {
		return err
	}

	maxConstraints := upperBoundConstraints(shape)
	for i, q := range plan.Max {
		if i >= len(maxConstraints) {
			break
		}
		if err := e.interleaveMaxQuery(ctx, shape, q, maxConstraints[i], targets); err != nil {
			return err
		}
	}

	// The shape-level rule (head = shape.Name) lets a target whose
	// verdict depends on a still-unvisited referenced shape survive
	// this saturation pass undecided: it stays in the global rule map
	// for a later shape's saturate() call to resolve directly via
	// applyRules/negateUnmatchableHeads (§4.4).
	e.registerShapeRules(shape, targets)
	e.saturate()
	return nil
}

func (e *Engine) alreadyRegistered(ss *ShapeState, individual string) bool {
	if _, ok := ss.RegisteredValid[individual]; ok {
		return true
	}
	_, ok := ss.RegisteredViolated[individual]
	return ok
}

// closeRemaining applies the engine's closed-world default: once
// every shape has been visited, any target that never reached a
// decision is valid by default (§4.5).
func (e *Engine) closeRemaining() {
	for a := range e.state.RemainingTargets {
		owner, ok := e.state.PredsToShapes[a.Predicate]
		if !ok {
			continue
		}
		e.state.ValidAfterTermination[a] = struct{}{}
		e.registerTarget(a, true, owner)
	}
	e.state.RemainingTargets = make(map[shacl.Atom]struct{})
}
