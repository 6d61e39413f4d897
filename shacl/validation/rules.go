package validation

import "github.com/SDM-TIB/Trav-SHACL/shacl"

// upperBoundConstraints returns shape's max-bearing constraints in the
// same order shacl/query.Planner walks s.Constraints to build
// Plan.Max, so plan.Max[i] and the i-th element here describe the
// same constraint.
func upperBoundConstraints(s *shacl.Shape) []shacl.Constraint {
	var out []shacl.Constraint
	for _, c := range s.Constraints {
		if len(c.Options) > 0 {
			continue // a disjunction container is resolved separately, never as its own bound
		}
		if c.Kind == shacl.MaxOnly || c.Kind == shacl.MinMax {
			out = append(out, c)
		}
	}
	return out
}
