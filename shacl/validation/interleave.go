package validation

import (
	"context"

	"github.com/SDM-TIB/Trav-SHACL/shacl"
	"github.com/SDM-TIB/Trav-SHACL/shacl/query"
)

// bodyStatus is the three-valued classification a rule body carries
// until the referenced literals it depends on are decided (§4.4).
type bodyStatus int

const (
	statusPending bodyStatus = iota
	statusTrue
	statusFalse
)

// classifyBody reports whether every literal in body is already
// decisively satisfied (true), at least one is decisively
// unsatisfied — which kills the whole conjunction (false) — or the
// conjunction is still undecided (pending).
func (e *Engine) classifyBody(body []shacl.Atom) bodyStatus {
	if len(body) == 0 {
		return statusTrue
	}
	allTrue := true
	for _, a := range body {
		owner, ok := e.state.PredsToShapes[a.Predicate]
		if !ok {
			allTrue = false
			continue
		}
		ls := e.state.Shapes[owner]
		switch {
		case ls.IsInferred(a):
			// literal satisfied, contributes nothing further
		case ls.IsInferred(a.Negate()):
			return statusFalse
		default:
			allTrue = false
		}
	}
	if allTrue {
		return statusTrue
	}
	return statusPending
}

func (e *Engine) classifyLiteral(a shacl.Atom) bodyStatus {
	return e.classifyBody([]shacl.Atom{a})
}

// interleaveMinQuery grounds every row the shape's min query returned
// into a head<=body rule. A head is a disjunction of its grounded
// rows (a multi-valued property can satisfy the bound through more
// than one combination): one decisively-true row settles the head
// immediately, and a target that produced no row at all — or only
// decisively-false rows — fails the bound outright, the "defensive
// rule" closing the cardinality check (§4.4).
func (e *Engine) interleaveMinQuery(ctx context.Context, shape *shacl.Shape, targets []shacl.Atom) error {
	plan := e.plans[shape.ID]
	if plan.Min == nil {
		return nil
	}
	q := plan.Min

	sparql := query.ClearSlot(query.ClearSlot(q.SPARQL, query.SlotFilterClause), query.SlotInterShapeType)
	stream, err := e.endpoint.RunQuery(ctx, sparql)
	if err != nil {
		return err
	}
	bindings, err := drainStream(stream)
	if err != nil {
		return err
	}

	rowsByIndividual := make(map[string][][]shacl.Atom)
	for _, b := range bindings {
		head, body, ok := q.RulePattern.Ground(bindingToMap(b))
		if !ok {
			continue
		}
		rowsByIndividual[head.Individual] = append(rowsByIndividual[head.Individual], body)
	}

	ss := e.state.Shapes[shape.ID]
	for _, t := range targets {
		head := shacl.Atom{Predicate: q.ID, Individual: t.Individual, Polarity: true}
		if ss.IsInferred(head) || ss.IsInferred(head.Negate()) {
			continue
		}

		decided, anyPending := false, false
		for _, body := range rowsByIndividual[t.Individual] {
			switch e.classifyBody(body) {
			case statusTrue:
				ss.Infer(head)
				e.state.Rules.Drop(head)
				decided = true
			case statusPending:
				anyPending = true
				e.state.Rules.Add(head, body)
			}
			if decided {
				break
			}
		}
		if decided {
			continue
		}
		if !anyPending {
			ss.Infer(head.Negate())
			e.state.Rules.Drop(head)
		}
	}
	return nil
}

// maxCounter tracks one target's running tally for a max-with-shape-
// reference constraint: how many referenced neighbours are already
// confirmed, and which rows are still pending a decision.
type maxCounter struct {
	bound     int
	trueCount int
	pending   []shacl.Atom
}

// resolveMaxCounter decides head once the counter admits a definite
// verdict: more confirmed neighbours than the bound allows is an
// outright violation; too few possible neighbours left — confirmed
// plus every still-pending one — to ever exceed the bound means it can
// never be violated.
func (e *Engine) resolveMaxCounter(ss *ShapeState, head shacl.Atom, ctr *maxCounter) bool {
	if ctr.trueCount > ctr.bound {
		ss.Infer(head)
		return true
	}
	if ctr.trueCount+len(ctr.pending) <= ctr.bound {
		ss.Infer(head.Negate())
		return true
	}
	return false
}

// interleaveMaxQuery runs one upper-bound constraint query and
// classifies its head per target (§4.4). A plain cardinality bound
// (no shape reference) was already phrased as a HAVING query whose
// mere presence in the results is the violation; a shape-referencing
// bound instead returns one row per candidate neighbour, so the
// engine tallies confirmed/pending neighbours via maxCounter and
// leaves undecided targets for saturate to reconsider.
func (e *Engine) interleaveMaxQuery(ctx context.Context, shape *shacl.Shape, q *query.Query, c shacl.Constraint, targets []shacl.Atom) error {
	if q.Skippable {
		return nil
	}
	ss := e.state.Shapes[shape.ID]

	if len(q.RefVars) == 0 {
		stream, err := e.endpoint.RunQuery(ctx, q.SPARQL)
		if err != nil {
			return err
		}
		bindings, err := drainStream(stream)
		if err != nil {
			return err
		}
		violated := make(map[string]struct{}, len(bindings))
		for _, b := range bindings {
			if v, ok := b[shacl.FocusVar]; ok {
				violated[v.Value] = struct{}{}
			}
		}
		for _, t := range targets {
			head := shacl.Atom{Predicate: q.ID, Individual: t.Individual, Polarity: true}
			if ss.IsInferred(head) || ss.IsInferred(head.Negate()) {
				continue
			}
			if _, ok := violated[t.Individual]; ok {
				ss.Infer(head)
			} else {
				ss.Infer(head.Negate())
			}
		}
		return nil
	}

	sparql := query.ClearSlot(query.ClearSlot(q.SPARQL, query.SlotFilterClause), query.SlotInterShapeType)
	stream, err := e.endpoint.RunQuery(ctx, sparql)
	if err != nil {
		return err
	}
	bindings, err := drainStream(stream)
	if err != nil {
		return err
	}

	counters := make(map[string]*maxCounter, len(targets))
	for _, t := range targets {
		counters[t.Individual] = &maxCounter{bound: c.Max}
	}
	for _, b := range bindings {
		head, body, ok := q.RulePattern.Ground(bindingToMap(b))
		if !ok || len(body) == 0 {
			continue
		}
		ctr, tracked := counters[head.Individual]
		if !tracked {
			continue
		}
		switch e.classifyBody(body) {
		case statusTrue:
			ctr.trueCount++
		case statusPending:
			ctr.pending = append(ctr.pending, body[0])
		}
	}

	for individual, ctr := range counters {
		head := shacl.Atom{Predicate: q.ID, Individual: individual, Polarity: true}
		if ss.IsInferred(head) || ss.IsInferred(head.Negate()) {
			continue
		}
		if e.resolveMaxCounter(ss, head, ctr) {
			continue
		}
		ss.MaxCounters[head] = ctr
	}
	return nil
}

// registerShapeRule inserts the shape-level rule shape's own verdict
// ultimately rests on: head (shape.Name, x, true), body = the min
// query's head atom plus one negated atom per surviving (non-skippable)
// max query — "surviving" meaning none of them is violated (§4.4,
// mirroring Validation.py's eval_constraints_queries, which adds this
// second rule per binding alongside the min/max query rules
// interleaveMinQuery/interleaveMaxQuery already registered).
//
// A body decidable right now resolves the target immediately; a body
// still pending is left in the global rule map, so a later shape's
// saturation pass — not just this shape's own — can resolve it once
// the neighbour atoms it depends on are decided (the forward-reference
// case §1 calls "the hardest part").
func (e *Engine) registerShapeRule(shape *shacl.Shape, t shacl.Atom) {
	plan := e.plans[shape.ID]
	ss := e.state.Shapes[shape.ID]
	if e.alreadyRegistered(ss, t.Individual) {
		return
	}

	var body []shacl.Atom
	if plan.Min != nil {
		body = append(body, shacl.Atom{Predicate: plan.Min.ID, Individual: t.Individual, Polarity: true})
	}
	for _, q := range plan.Max {
		if q.Skippable {
			continue
		}
		body = append(body, shacl.Atom{Predicate: q.ID, Individual: t.Individual, Polarity: false})
	}

	head := shacl.Atom{Predicate: shape.Name, Individual: t.Individual, Polarity: true}
	switch e.classifyBody(body) {
	case statusTrue:
		e.registerTarget(head, true, shape.ID)
	case statusFalse:
		e.registerTarget(head, false, shape.ID)
	default:
		e.state.Rules.Add(head, body)
	}
}

// registerShapeRules calls registerShapeRule for every target still
// pending a verdict after shape's own constraint queries ran.
func (e *Engine) registerShapeRules(shape *shacl.Shape, targets []shacl.Atom) {
	for _, t := range targets {
		e.registerShapeRule(shape, t)
	}
}
