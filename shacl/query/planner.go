package query

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/SDM-TIB/Trav-SHACL/shacl"
)

// Planner is a deterministic, side-effect-free generator of target and
// constraint queries for one schema. It owns the single
// VariableGenerator every shape's constraints draw object variables
// from (§4.1).
type Planner struct {
	vars  *shacl.VariableGenerator
	cache *PlanCache
}

// NewPlanner creates a planner with a fresh variable generator.
func NewPlanner() *Planner {
	return &Planner{vars: shacl.NewVariableGenerator()}
}

// SetCache attaches a structural-hash plan cache (SPEC_FULL.md §4:
// hashstructure-keyed dedup of materialized query strings).
func (p *Planner) SetCache(c *PlanCache) {
	p.cache = c
}

// Plan is the full set of materialized queries for one shape.
type Plan struct {
	Target           *Query
	FilteredByValid  map[string]*Query // reference path -> query
	FilteredByInvalid map[string]*Query
	Min              *Query
	Max              []*Query
	Disjunction      *Query
}

// PlanShape materializes every query form §4.1 describes for one
// shape. Called once per shape before validation begins (§3: "constraint
// queries materialized once before validation").
func (p *Planner) PlanShape(schema *shacl.Schema, s *shacl.Shape) (*Plan, error) {
	if p.cache != nil {
		if cached, ok := p.cache.Get(s); ok {
			return cached, nil
		}
	}

	plan := &Plan{
		FilteredByValid:   make(map[string]*Query),
		FilteredByInvalid: make(map[string]*Query),
	}

	if s.HasTarget() {
		plan.Target = p.planPlainTarget(s)
		for path, refHandle := range s.ReferencedShapes {
			ref := schema.Shape(refHandle)
			c, ok := constraintForPath(s, path)
			if !ok {
				continue
			}
			valid, invalid := p.planFilteredTargets(s, ref, c)
			plan.FilteredByValid[path] = valid
			plan.FilteredByInvalid[path] = invalid
		}
	}

	lowerIdx := lowerBoundIndices(s)
	if len(lowerIdx) > 0 {
		plan.Min = p.planMinQuery(s, lowerIdx)
	}

	plan.Max = p.planMaxQueries(s, schema)

	if s.FlagDisjunction {
		plan.Disjunction = p.planDisjunction(s)
	}

	if p.cache != nil {
		p.cache.Put(s, plan)
	}
	return plan, nil
}

func constraintForPath(s *shacl.Shape, path string) (shacl.Constraint, bool) {
	for _, c := range s.Constraints {
		if c.Path == path && c.HasShapeRef() {
			return c, true
		}
	}
	return shacl.Constraint{}, false
}

// lowerBoundIndices and upperBoundIndices return indices into
// s.Constraints rather than copies, so the object variables the
// planner assigns below are written back onto the shape's own
// constraints (Constraint.ObjectVars then lists the same variables the
// query rule patterns use).
func lowerBoundIndices(s *shacl.Shape) []int {
	var out []int
	for i, c := range s.Constraints {
		if len(c.Options) > 0 {
			continue // a disjunction container is planned separately, never as its own bound
		}
		if c.Kind == shacl.MinOnly || c.Kind == shacl.MinMax {
			out = append(out, i)
		}
	}
	return out
}

func upperBoundIndices(s *shacl.Shape) []int {
	var out []int
	for i, c := range s.Constraints {
		if len(c.Options) > 0 {
			continue
		}
		if c.Kind == shacl.MaxOnly || c.Kind == shacl.MinMax {
			out = append(out, i)
		}
	}
	return out
}

// --- target queries ---

func (p *Planner) planPlainTarget(s *shacl.Shape) *Query {
	sparql := prefixString(s) + "SELECT DISTINCT ?" + shacl.FocusVar + " WHERE { " + s.TargetQuery + " }" + orderBySuffix(s)
	return &Query{ID: TargetQueryID(s.Name), Kind: PlainTarget, SPARQL: sparql}
}

// planFilteredTargets builds the by-valid and by-invalid forms for one
// outgoing reference (§4.1). by-valid counts COUNT(DISTINCT ?inst) over
// a VALUES-constrained instance list; by-invalid takes the symmetric
// (COUNT total - COUNT matches) form.
func (p *Planner) planFilteredTargets(s, ref *shacl.Shape, c shacl.Constraint) (valid, invalid *Query) {
	focus := shacl.FocusVar
	targetBody := s.TargetQuery

	validSPARQL := prefixString(s) +
		"SELECT DISTINCT ?" + focus + " (COUNT(DISTINCT ?inst) AS ?cnt) WHERE {\n " +
		targetBody + "\n" +
		"  OPTIONAL {\n    VALUES ?inst { " + SlotInstances + " }. \n" +
		"    ?" + focus + " " + c.Path + " ?inst .\n  }\n" +
		"}\nGROUP BY ?" + focus + orderBySuffix(s)

	invalidSPARQL := prefixString(s) +
		"SELECT DISTINCT ?" + focus + " ((COUNT(DISTINCT ?inst2) - COUNT(DISTINCT ?inst)) AS ?cnt) WHERE {\n " +
		targetBody + "\n" +
		"  OPTIONAL { ?" + focus + " " + c.Path + " ?inst2 . }\n" +
		"  OPTIONAL {\n    VALUES ?inst { " + SlotInstances + " }. \n" +
		"    ?" + focus + " " + c.Path + " ?inst .\n  }\n" +
		"}\nGROUP BY ?" + focus + orderBySuffix(s)

	_ = ref
	return &Query{ID: TargetQueryID(s.Name) + "_valid_" + c.Path, Kind: FilteredByValid, SPARQL: validSPARQL},
		&Query{ID: TargetQueryID(s.Name) + "_invalid_" + c.Path, Kind: FilteredByInvalid, SPARQL: invalidSPARQL}
}

// --- min / max constraint queries ---

func (p *Planner) planMinQuery(s *shacl.Shape, lowerIdx []int) *Query {
	id := MinQueryID(s.Name)
	var triples []string
	refVars := make(map[string]string)
	var body []shacl.AtomPattern

	for _, idx := range lowerIdx {
		c := &s.Constraints[idx]
		min := c.Min
		if min < 1 {
			min = 1
		}

		if !c.HasShapeRef() {
			v := p.vars.Next()
			c.ObjectVars = append(c.ObjectVars, v)
			if min <= 1 {
				triples = append(triples, patternTriple(shacl.FocusVar, c.Path, v, c.Datatype, c.Value))
			} else {
				triples = append(triples, cardinalitySubquery(c, v, min))
			}
			continue
		}

		// Shape-referencing: one object variable per required witness,
		// kept pairwise-distinct, each contributing its own body atom so
		// the rule only fires once `min` distinct neighbours are all
		// classified valid (mirrors QueryGenerator.add_cardinality_filter).
		var vars []string
		for i := 0; i < min; i++ {
			v := p.vars.Next()
			c.ObjectVars = append(c.ObjectVars, v)
			vars = append(vars, v)
			triples = append(triples, patternTriple(shacl.FocusVar, c.Path, v, c.Datatype, c.Value))
			refVars[v] = c.ShapeRef
			body = append(body, shacl.AtomPattern{Predicate: c.ShapeRef, Variable: v, Polarity: !c.Negated})
		}
		triples = append(triples, distinctnessFilters(vars)...)
	}

	sparql := prefixString(s) + "SELECT DISTINCT ?" + shacl.FocusVar + " " + projectVars(refVars) +
		" WHERE {\n " + strings.Join(triples, "\n ") + "\n " + SlotFilterClause + "\n " + SlotInterShapeType + "\n}" + orderBySuffix(s)

	rp := shacl.RulePattern{
		Head: shacl.AtomPattern{Predicate: id, Variable: shacl.FocusVar, Polarity: true},
		Body: body,
	}
	return &Query{ID: id, Kind: MinConstraint, SPARQL: sparql, RulePattern: rp, RefVars: refVars}
}

// cardinalitySubquery phrases a plain (no shape reference) lower bound
// above 1 as a nested GROUP BY/HAVING count, the same idiom
// planMaxQueries and planDisjunction already use for their own bounds —
// a single witness triple can't distinguish "exists" from "exists
// min-many times".
func cardinalitySubquery(c *shacl.Constraint, v string, min int) string {
	inner := patternTriple(shacl.FocusVar, c.Path, v, c.Datatype, c.Value)
	return fmt.Sprintf("{ SELECT ?%s WHERE { %s } GROUP BY ?%s HAVING (COUNT(DISTINCT ?%s) >= %d) }",
		shacl.FocusVar, inner, shacl.FocusVar, v, min)
}

// distinctnessFilters returns one FILTER(?a != ?b) clause per pair of
// vars, forcing a multi-witness shape-reference binding onto distinct
// neighbours.
func distinctnessFilters(vars []string) []string {
	var out []string
	for i := 0; i < len(vars); i++ {
		for j := i + 1; j < len(vars); j++ {
			out = append(out, "FILTER(?"+vars[i]+" != ?"+vars[j]+")")
		}
	}
	return out
}

func (p *Planner) planMaxQueries(s *shacl.Shape, schema *shacl.Schema) []*Query {
	upperIdx := upperBoundIndices(s)
	lowerIdx := lowerBoundIndices(s)

	var out []*Query
	for i, ci := range upperIdx {
		c := &s.Constraints[ci]
		skip := false
		if c.HasShapeRef() {
			for _, li := range lowerIdx {
				lc := &s.Constraints[li]
				if lc.HasShapeRef() && lc.ShapeRef == c.ShapeRef {
					skip = true
					break
				}
			}
		}

		id := MaxQueryID(s.Name, i)
		v := p.vars.Next()
		refVars := make(map[string]string)
		var body []shacl.AtomPattern

		maxZero := c.Max == 0 && c.HasShapeRef()
		var interShapeTriple string
		if maxZero {
			if ref, ok := schema.ShapeByName(c.ShapeRef); ok && ref.TargetKind == shacl.TargetClass {
				interShapeTriple = SlotInterShapeType
			}
		}

		var sparql string
		if !c.HasShapeRef() {
			// Open question #2: always emit the HAVING form for a plain
			// cardinality bound with no referenced shape.
			sparql = prefixString(s) + "SELECT DISTINCT ?" + shacl.FocusVar + " WHERE {\n " +
				patternTriple(shacl.FocusVar, c.Path, v, c.Datatype, c.Value) + "\n}\n" +
				"GROUP BY ?" + shacl.FocusVar + "\nHAVING (COUNT(DISTINCT ?" + v + ") >= " + strconv.Itoa(c.Max+1) + ")" + orderBySuffix(s)
		} else {
			c.ObjectVars = append(c.ObjectVars, v)
			refVars[v] = c.ShapeRef
			body = append(body, shacl.AtomPattern{Predicate: c.ShapeRef, Variable: v, Polarity: !c.Negated})
			sparql = prefixString(s) + "SELECT DISTINCT ?" + shacl.FocusVar + " ?" + v + " WHERE {\n " +
				patternTriple(shacl.FocusVar, c.Path, v, c.Datatype, c.Value) + "\n " +
				interShapeTriple + "\n " + SlotFilterClause + "\n}" + orderBySuffix(s)
		}

		rp := shacl.RulePattern{
			Head: shacl.AtomPattern{Predicate: id, Variable: shacl.FocusVar, Polarity: true},
			Body: body,
		}
		out = append(out, &Query{ID: id, Kind: MaxConstraint, SPARQL: sparql, RulePattern: rp, RefVars: refVars, MaxZero: maxZero, Skippable: skip})
	}
	return out
}

// planDisjunction builds the OR query: an outer SELECT whose body is
// the UNION of cardinality-graph-pattern subqueries, one per option.
func (p *Planner) planDisjunction(s *shacl.Shape) *Query {
	id := DisjunctionQueryID(s.Name)
	var disjunct []shacl.Constraint
	for _, c := range s.Constraints {
		if len(c.Options) > 0 {
			disjunct = append(disjunct, c)
		}
	}

	var unions []string
	for _, c := range disjunct {
		for _, opt := range c.Options {
			v := p.vars.Next()
			var inner, having string
			if opt.Max >= 0 {
				// Zero matches satisfies a max bound too, so the triple
				// has to be optional against the shape's own target
				// pattern instead of a mandatory join — otherwise a
				// focus with no matching triple at all would never
				// appear in this option's rows (§4.1 OR option).
				inner = s.TargetQuery + "\n      OPTIONAL { " + patternTriple(shacl.FocusVar, opt.Path, v, "", "") + " }"
				having = fmt.Sprintf("GROUP BY ?%s HAVING (COUNT(DISTINCT ?%s) <= %d)", shacl.FocusVar, v, opt.Max)
			} else if opt.Min >= 1 {
				inner = patternTriple(shacl.FocusVar, opt.Path, v, "", "")
				having = fmt.Sprintf("GROUP BY ?%s HAVING (COUNT(DISTINCT ?%s) >= %d)", shacl.FocusVar, v, opt.Min)
			}
			unions = append(unions, "{ SELECT ?"+shacl.FocusVar+" WHERE { "+inner+" } "+having+" }")
		}
	}

	sparql := prefixString(s) + "SELECT DISTINCT ?" + shacl.FocusVar + " WHERE {\n " +
		strings.Join(unions, "\nUNION\n") + "\n}" + orderBySuffix(s)

	return &Query{ID: id, Kind: Disjunction, SPARQL: sparql}
}

// --- string assembly helpers ---

func prefixString(s *shacl.Shape) string {
	if !s.IncludePrefixes || len(s.Prefixes) == 0 {
		return ""
	}
	var b strings.Builder
	for p, iri := range s.Prefixes {
		b.WriteString("PREFIX " + p + ": <" + iri + ">\n")
	}
	return b.String()
}

func orderBySuffix(s *shacl.Shape) string {
	if !s.OrderBy {
		return ""
	}
	return "\nORDER BY ?" + shacl.FocusVar
}

func patternTriple(focus, path, objVar, datatype, value string) string {
	var obj string
	if value != "" {
		obj = value
	} else {
		obj = "?" + objVar
	}

	subj := "?" + focus
	pred := path
	if strings.HasPrefix(path, "^") {
		// inverse path: the object variable is the subject, focus is the object
		pred = strings.TrimPrefix(path, "^")
		subj, obj = obj, subj
	}

	triple := subj + " " + pred + " " + obj + " ."
	if datatype != "" {
		triple += fmt.Sprintf(" FILTER(DATATYPE(?%s) = <%s>)", objVar, datatype)
	}
	return triple
}

func projectVars(refVars map[string]string) string {
	if len(refVars) == 0 {
		return ""
	}
	var vs []string
	for v := range refVars {
		vs = append(vs, "?"+v)
	}
	return strings.Join(vs, " ")
}

