package validation

import (
	"context"
	"strings"

	"github.com/SDM-TIB/Trav-SHACL/shacl"
	"github.com/SDM-TIB/Trav-SHACL/shacl/query"
)

const (
	defaultFilterThreshold  = 256 // §4.3: neighbour-pick threshold
	maxInstancesPerFilterQ  = 115 // §4.3: by-valid/by-invalid query split
	maxInstancesPerRewriteQ = 80  // §4.4: interleave's VALUES split
)

// bestFilteringNeighbor picks an already-visited shape referenced by
// shape that has a nonzero invalid-target count, both counts below the
// configured threshold, a target query of its own, and no targets left
// pending after its own retrieval (RemainingTargetsCount == 0) (§4.3
// step 1). When several neighbours qualify, which one is returned
// depends on map iteration order over VisitedShapes.
func (e *Engine) bestFilteringNeighbor(shape *shacl.Shape) (shacl.ShapeHandle, bool) {
	var best shacl.ShapeHandle
	found := false

	for visited := range e.state.VisitedShapes {
		referenced := false
		for _, h := range shape.ReferencedShapes {
			if h == visited {
				referenced = true
				break
			}
		}
		if !referenced {
			continue
		}

		prev := e.schema.Shape(visited)
		lenValid := len(prev.Targets.Valid)
		lenInvalid := len(prev.Targets.Violated)

		within := lenValid < e.filterThreshold && lenInvalid < e.filterThreshold
		if !within {
			continue
		}
		if lenInvalid > 0 && prev.HasTarget() && e.state.Shapes[visited].RemainingTargetsCount == 0 {
			best, found = visited, true
		}
	}
	return best, found
}

// retrieveNextTargets runs the target query for shape (possibly
// rewritten against a filtering neighbour's classifications) and
// returns the surviving pending targets, registering any
// immediately-resolved ones along the way (§4.3).
func (e *Engine) retrieveNextTargets(ctx context.Context, shape *shacl.Shape) ([]shacl.Atom, error) {
	if !shape.HasTarget() {
		return nil, nil
	}

	ss := e.state.Shapes[shape.ID]
	filtering, hasFiltering := e.bestFilteringNeighbor(shape)
	ss.FilteringShape = filtering
	ss.HasFilteringShape = hasFiltering

	var pending []shacl.Atom
	var err error
	if e.selective && hasFiltering {
		pending, err = e.extractTargetsWithFilter(ctx, shape, filtering)
	} else {
		pending, err = e.extractTargets(ctx, shape)
	}
	if err != nil {
		return nil, err
	}

	if shape.FlagDisjunction {
		pending, err = e.filterByDisjunction(ctx, shape, pending)
		if err != nil {
			return nil, err
		}
	}

	pending, err = e.filterByRawConstraints(ctx, shape, pending)
	if err != nil {
		return nil, err
	}

	ss.RemainingTargetsCount = len(pending)
	return pending, nil
}

// extractTargets runs the shape's plain target query unfiltered.
func (e *Engine) extractTargets(ctx context.Context, shape *shacl.Shape) ([]shacl.Atom, error) {
	plan := e.plans[shape.ID]
	stream, err := e.endpoint.RunQuery(ctx, plan.Target.SPARQL)
	if err != nil {
		return nil, err
	}
	bindings, err := drainStream(stream)
	if err != nil {
		return nil, err
	}

	out := make([]shacl.Atom, 0, len(bindings))
	for _, b := range bindings {
		v, ok := b[shacl.FocusVar]
		if !ok {
			continue
		}
		out = append(out, shacl.Atom{Predicate: shape.Name, Individual: v.Value, Polarity: true})
	}
	return out, nil
}

// extractTargetsWithFilter issues the by-valid or by-invalid filtered
// target query, whichever has the shorter instance list, split into
// chunks of at most 115 instances (§4.3 step 2). A target whose cnt
// already settles the owning constraint's bound is registered
// directly instead of being carried into interleave.
func (e *Engine) extractTargetsWithFilter(ctx context.Context, shape *shacl.Shape, filteringHandle shacl.ShapeHandle) ([]shacl.Atom, error) {
	filtering := e.schema.Shape(filteringHandle)
	validList := setToSlice(filtering.Targets.Valid)
	invalidList := setToSlice(filtering.Targets.Violated)

	if len(validList) == 0 && len(invalidList) == 0 {
		return e.extractTargets(ctx, shape)
	}

	var path string
	var c shacl.Constraint
	found := false
	for _, cc := range shape.Constraints {
		if cc.ShapeRef == filtering.Name {
			path, c, found = cc.Path, cc, true
			break
		}
	}
	if !found {
		return e.extractTargets(ctx, shape)
	}

	plan := e.plans[shape.ID]
	useValid := len(invalidList) == 0 || (len(validList) > 0 && len(validList) <= len(invalidList))

	var tmpl *query.Query
	var instances []string
	if useValid {
		tmpl, instances = plan.FilteredByValid[path], validList
	} else {
		tmpl, instances = plan.FilteredByInvalid[path], invalidList
	}
	if tmpl == nil {
		return e.extractTargets(ctx, shape)
	}

	var pending []shacl.Atom
	for _, part := range chunk(instances, maxInstancesPerFilterQ) {
		sparql := query.SpliceInstances(tmpl.SPARQL, part)
		stream, err := e.endpoint.RunQuery(ctx, sparql)
		if err != nil {
			return nil, err
		}
		bindings, err := drainStream(stream)
		if err != nil {
			return nil, err
		}
		for _, b := range bindings {
			xv, ok := b[shacl.FocusVar]
			if !ok {
				continue
			}
			cnt, ok := b.Count()
			if !ok {
				continue
			}
			a := shacl.Atom{Predicate: shape.Name, Individual: xv.Value, Polarity: true}
			violated := (c.Kind == shacl.MinOnly && cnt < c.Min) || (c.Kind == shacl.MaxOnly && cnt > c.Max)
			if violated {
				e.registerTarget(a, false, shape.ID)
			} else {
				pending = append(pending, a)
			}
		}
	}
	return pending, nil
}

// filterByDisjunction runs shape's "or" options query and drops any
// pending target absent from it as immediately invalid (§4.3 step 3).
func (e *Engine) filterByDisjunction(ctx context.Context, shape *shacl.Shape, pending []shacl.Atom) ([]shacl.Atom, error) {
	plan := e.plans[shape.ID]
	if plan.Disjunction == nil {
		return pending, nil
	}
	stream, err := e.endpoint.RunQuery(ctx, plan.Disjunction.SPARQL)
	if err != nil {
		return nil, err
	}
	bindings, err := drainStream(stream)
	if err != nil {
		return nil, err
	}

	allowed := make(map[string]struct{}, len(bindings))
	for _, b := range bindings {
		if v, ok := b[shacl.FocusVar]; ok {
			allowed[v.Value] = struct{}{}
		}
	}

	var kept []shacl.Atom
	for _, a := range pending {
		if _, ok := allowed[a.Individual]; ok {
			kept = append(kept, a)
			continue
		}
		e.registerTarget(a, false, shape.ID)
	}
	return kept, nil
}

// filterByRawConstraints runs one ASK-style query per pending target
// for each Raw SPARQL constraint, substituting "$this" (§4.3 step 4).
func (e *Engine) filterByRawConstraints(ctx context.Context, shape *shacl.Shape, pending []shacl.Atom) ([]shacl.Atom, error) {
	var raws []shacl.Constraint
	for _, c := range shape.Constraints {
		if c.Kind == shacl.Raw {
			raws = append(raws, c)
		}
	}
	if len(raws) == 0 {
		return pending, nil
	}

	violated := make(map[string]struct{})
	for _, c := range raws {
		for _, a := range pending {
			instanceQuery := strings.ReplaceAll(c.RawQuery, "$this", wrapIRI(a.Individual))
			stream, err := e.endpoint.RunQuery(ctx, instanceQuery)
			if err != nil {
				return nil, err
			}
			bindings, err := drainStream(stream)
			if err != nil {
				return nil, err
			}
			if len(bindings) > 0 {
				violated[a.Individual] = struct{}{}
			}
		}
	}

	var kept []shacl.Atom
	for _, a := range pending {
		if _, ok := violated[a.Individual]; ok {
			e.registerTarget(a, false, shape.ID)
			continue
		}
		kept = append(kept, a)
	}
	return kept, nil
}

func setToSlice(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
