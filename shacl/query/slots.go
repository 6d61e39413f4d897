package query

import "strings"

// The three bit-exact placeholders the ValidationEngine splices at run
// time (§4.1 "Query-string slots").
const (
	SlotFilterClause  = "$filter_clause_to_add$"
	SlotInterShapeType = "$inter_shape_type_to_add$"
	SlotInstances     = "$instances_to_add$"
)

// SpliceInstances fills $instances_to_add$ with a space-separated IRI
// list, used by the filtered-by-valid/invalid target queries.
func SpliceInstances(sparql string, iris []string) string {
	return strings.Replace(sparql, SlotInstances, strings.Join(iris, " "), 1)
}

// SpliceFilterClause fills $filter_clause_to_add$ with a VALUES block
// restricting refVar to the filtering neighbour's known-valid
// instances. Nothing else is spliced in; focusVar is not used.
func SpliceFilterClause(sparql, focusVar, refVar string, iris []string) string {
	clause := "VALUES ?" + refVar + " { " + strings.Join(iris, " ") + " }"
	return strings.Replace(sparql, SlotFilterClause, clause, 1)
}

// SpliceInterShapeType fills $inter_shape_type_to_add$ with a typing
// triple for a referenced shape whose targets are class-typed (used by
// max==0 constraints so the filter stays evaluable, §4.1).
func SpliceInterShapeType(sparql, refVar, class string) string {
	triple := "?" + refVar + " a <" + class + "> ."
	return strings.Replace(sparql, SlotInterShapeType, triple, 1)
}

// ClearSlot removes a slot with no substitution, for queries that never
// needed it (e.g. a shape without a filtering neighbour yet).
func ClearSlot(sparql, slot string) string {
	return strings.Replace(sparql, slot, "", 1)
}
