// Package traversal picks a seed shape and linearizes a schema into a
// shape evaluation order (spec §4.2).
package traversal

import "github.com/SDM-TIB/Trav-SHACL/shacl"

// DegreeKind is the §4.2 `degree` heuristic.
type DegreeKind int

const (
	DegreeNone DegreeKind = iota
	DegreeIn
	DegreeOut
	DegreeInOut
	DegreeOutIn
)

// PropertiesKind is the §4.2 `properties` heuristic.
type PropertiesKind int

const (
	PropertiesNone PropertiesKind = iota
	PropertiesSmall
	PropertiesBig
)

// Heuristics configures seed-shape selection, applied in the fixed
// precedence §4.2 enumerates: target, then degree, then properties.
type Heuristics struct {
	Target     bool
	Degree     DegreeKind
	Properties PropertiesKind
}

// SeedCandidates returns every shape tied for "best" seed under h, in
// the schema's parse (insertion) order — ties are broken by the caller
// taking the first element (SPEC_FULL.md open question 1).
func SeedCandidates(schema *shacl.Schema, h Heuristics) []*shacl.Shape {
	candidates := schema.Shapes()

	if h.Target {
		filtered := filterShapes(candidates, func(s *shacl.Shape) bool { return s.HasTarget() })
		if len(filtered) > 0 {
			candidates = filtered
		}
	}

	switch h.Degree {
	case DegreeIn:
		candidates = byMaxDegree(candidates, (*shacl.Shape).InDegree)
	case DegreeOut:
		candidates = byMaxDegree(candidates, (*shacl.Shape).OutDegree)
	case DegreeInOut:
		candidates = byMaxDegree(candidates, (*shacl.Shape).InDegree)
		candidates = byMaxDegree(candidates, (*shacl.Shape).OutDegree)
	case DegreeOutIn:
		candidates = byMaxDegree(candidates, (*shacl.Shape).OutDegree)
		candidates = byMaxDegree(candidates, (*shacl.Shape).InDegree)
	}

	switch h.Properties {
	case PropertiesSmall:
		candidates = byExtremeCount(candidates, false)
	case PropertiesBig:
		candidates = byExtremeCount(candidates, true)
	}

	if len(candidates) == 0 {
		return schema.Shapes()
	}
	return candidates
}

func filterShapes(shapes []*shacl.Shape, pred func(*shacl.Shape) bool) []*shacl.Shape {
	var out []*shacl.Shape
	for _, s := range shapes {
		if pred(s) {
			out = append(out, s)
		}
	}
	return out
}

func byMaxDegree(shapes []*shacl.Shape, degree func(*shacl.Shape) int) []*shacl.Shape {
	if len(shapes) <= 1 {
		return shapes
	}
	max := -1
	for _, s := range shapes {
		if d := degree(s); d > max {
			max = d
		}
	}
	var out []*shacl.Shape
	for _, s := range shapes {
		if degree(s) == max {
			out = append(out, s)
		}
	}
	return out
}

func byExtremeCount(shapes []*shacl.Shape, wantMax bool) []*shacl.Shape {
	if len(shapes) <= 1 {
		return shapes
	}
	extreme := len(shapes[0].Constraints)
	for _, s := range shapes {
		n := len(s.Constraints)
		if (wantMax && n > extreme) || (!wantMax && n < extreme) {
			extreme = n
		}
	}
	var out []*shacl.Shape
	for _, s := range shapes {
		if len(s.Constraints) == extreme {
			out = append(out, s)
		}
	}
	return out
}
