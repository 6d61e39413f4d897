// Package query translates a shape's constraints into selective SPARQL
// query strings plus the rule patterns the validation engine grounds
// from their bindings (spec §4.1).
package query

import (
	"strconv"

	"github.com/SDM-TIB/Trav-SHACL/shacl"
)

// Kind tags the family of query a Query was generated for.
type Kind int

const (
	PlainTarget Kind = iota
	FilteredByValid
	FilteredByInvalid
	MinConstraint
	MaxConstraint
	Disjunction
)

// Query is the planner's materialized output: a stable id, the
// SPARQL-syntax string (with placeholder slots still present until the
// engine splices them), the rule pattern the query grounds, and the
// inter-shape reference-variable bookkeeping the engine needs to
// interpret bindings.
type Query struct {
	ID   string
	Kind Kind

	SPARQL string

	RulePattern shacl.RulePattern

	// RefVars maps an object variable (e.g. "p_0") to the shape name a
	// binding for it must resolve to, for every referenced-shape slot
	// this query grounds.
	RefVars map[string]string

	// MaxZero marks a max==0 reference constraint, forcing the
	// negated-reference rewrite (§4.1).
	MaxZero bool

	// Skippable marks a max-query subsumed by a min-query on the same
	// neighbour (§4.1 skip rule).
	Skippable bool
}

// TargetQueryID returns the synthetic id for a shape's plain/filtered
// target query.
func TargetQueryID(shapeName string) string {
	return shapeName + "_target"
}

// MinQueryID returns the stable id for a shape's single min query.
func MinQueryID(shapeName string) string {
	return shapeName + "_pos"
}

// MaxQueryID returns the stable id for the k-th max query of a shape.
func MaxQueryID(shapeName string, k int) string {
	return shapeName + "_max_" + strconv.Itoa(k)
}

// DisjunctionQueryID returns the stable id for a shape's OR query.
func DisjunctionQueryID(shapeName string) string {
	return shapeName + "_or"
}
