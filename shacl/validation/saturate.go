package validation

import "github.com/SDM-TIB/Trav-SHACL/shacl"

// saturate runs the negate/apply fixpoint until a full round changes
// nothing (§4.5): negateUnmatchableHeads drops a head to false once
// every one of its candidate bodies is known false; applyRules
// promotes a head to true once any one candidate body is known true;
// reconsiderMaxCounters folds the max-query tallies into the same
// loop so a neighbour's classification can unblock a pending
// cardinality bound without a fresh query.
func (e *Engine) saturate() {
	e.logf("saturating: %d pending rule heads", e.state.Rules.Len())
	rounds := 0
	for {
		changed := e.negateUnmatchableHeads()
		changed = e.applyRules() || changed
		changed = e.reconsiderMaxCounters() || changed
		rounds++
		if !changed {
			e.logf("saturation fixpoint reached after %d round(s), %d rule heads remain", rounds, e.state.Rules.Len())
			return
		}
	}
}

// isShapeHead reports whether head is a shape-level verdict (its
// predicate is owner's own name, as registerShapeRule constructs it)
// rather than an intermediate min/max query-id head. Only a
// shape-level head resolving here is a target's final classification;
// everything else is bookkeeping the shape-level rule still depends
// on (§4.4).
func (e *Engine) isShapeHead(owner shacl.ShapeHandle, predicate string) bool {
	return e.schema.Shape(owner).Name == predicate
}

// applyRules promotes every rule-map head with at least one
// decisively-true body to true, dropping the rest of its candidates. A
// shape-level head is registered as a final verdict directly
// (mirroring Validation.py's apply_rules calling register_target
// rather than just asserting the literal), so a target whose bound
// depends on a shape visited after its own turn still gets classified
// the moment that shape's saturation pass decides it.
func (e *Engine) applyRules() bool {
	changed := false
	for _, head := range e.state.Rules.Heads() {
		owner, ok := e.state.PredsToShapes[head.Predicate]
		if !ok {
			continue
		}
		ss := e.state.Shapes[owner]
		if ss.IsInferred(head) || ss.IsInferred(head.Negate()) {
			e.state.Rules.Drop(head)
			continue
		}
		for _, body := range e.state.Rules.Bodies(head) {
			if e.classifyBody(body) == statusTrue {
				if e.isShapeHead(owner, head.Predicate) {
					e.registerTarget(head, true, owner)
				} else {
					ss.Infer(head)
				}
				e.state.Rules.Drop(head)
				changed = true
				break
			}
		}
	}
	return changed
}

// negateUnmatchableHeads drops a head to false once every surviving
// candidate body for it is decisively false, registering a shape-level
// head's violation directly (mirroring Validation.py's
// negate_unmatchable_heads), same reasoning as applyRules above.
func (e *Engine) negateUnmatchableHeads() bool {
	changed := false
	for _, head := range e.state.Rules.Heads() {
		owner, ok := e.state.PredsToShapes[head.Predicate]
		if !ok {
			continue
		}
		ss := e.state.Shapes[owner]
		if ss.IsInferred(head) || ss.IsInferred(head.Negate()) {
			continue
		}
		bodies := e.state.Rules.Bodies(head)
		if len(bodies) == 0 {
			continue
		}
		allFalse := true
		for _, body := range bodies {
			if e.classifyBody(body) != statusFalse {
				allFalse = false
				break
			}
		}
		if allFalse {
			if e.isShapeHead(owner, head.Predicate) {
				e.registerTarget(head, false, owner)
			} else {
				ss.Infer(head.Negate())
			}
			e.state.Rules.Drop(head)
			changed = true
		}
	}
	return changed
}

// reconsiderMaxCounters re-evaluates every shape-referencing max
// constraint still pending a decision, promoting newly-decided
// neighbour atoms out of each counter's pending list and resolving
// the head the moment the tally admits a definite verdict.
func (e *Engine) reconsiderMaxCounters() bool {
	changed := false
	for _, ss := range e.state.Shapes {
		for head, ctr := range ss.MaxCounters {
			var stillPending []shacl.Atom
			for _, a := range ctr.pending {
				switch e.classifyLiteral(a) {
				case statusTrue:
					ctr.trueCount++
				case statusFalse:
					// falsified neighbour never counts
				default:
					stillPending = append(stillPending, a)
				}
			}
			ctr.pending = stillPending
			if e.resolveMaxCounter(ss, head, ctr) {
				delete(ss.MaxCounters, head)
				changed = true
			}
		}
	}
	return changed
}
