package endpoint

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseQuery_FilteredTargetWithOptional(t *testing.T) {
	q, err := parseQuery(`SELECT DISTINCT ?x ?p_0 WHERE { ?x a <Person> . OPTIONAL { ?x <knows> ?p_0 . } }`)
	require.NoError(t, err)
	assert.True(t, q.Distinct)
	assert.Equal(t, []string{"x", "p_0"}, q.Vars)
	require.Len(t, q.Pattern.Triples, 1)
	require.Len(t, q.Pattern.Optional, 1)
	assert.Equal(t, "?x", q.Pattern.Triples[0].Subj)
}

func TestParseQuery_MinConstraintAggregate(t *testing.T) {
	q, err := parseQuery(`SELECT ?x (COUNT(DISTINCT ?p_0) AS ?cnt) WHERE { ?x <knows> ?p_0 . } GROUP BY ?x`)
	require.NoError(t, err)
	require.NotNil(t, q.Aggregate)
	assert.Equal(t, "p_0", q.Aggregate.VarA)
	assert.Equal(t, "", q.Aggregate.VarB)
	assert.Equal(t, "cnt", q.Aggregate.As)
	assert.Equal(t, "x", q.GroupBy)
}

func TestParseQuery_FilteredByInvalidDifferenceAggregate(t *testing.T) {
	q, err := parseQuery(`SELECT ?x ((COUNT(DISTINCT ?a) - COUNT(DISTINCT ?b)) AS ?cnt) WHERE { ?x a <Person> . } GROUP BY ?x HAVING (COUNT(DISTINCT ?cnt) >= 1)`)
	require.NoError(t, err)
	require.NotNil(t, q.Aggregate)
	assert.Equal(t, "a", q.Aggregate.VarA)
	assert.Equal(t, "b", q.Aggregate.VarB)
	require.NotNil(t, q.Having)
	assert.Equal(t, ">=", q.Having.Op)
	assert.Equal(t, 1, q.Having.N)
}

func TestParseQuery_Ask(t *testing.T) {
	q, err := parseQuery(`ASK { ?x a <Person> . }`)
	require.NoError(t, err)
	assert.True(t, q.Ask)
}

func TestParseQuery_DisjunctionUnion(t *testing.T) {
	q, err := parseQuery(`SELECT DISTINCT ?x WHERE { { SELECT ?x WHERE { ?x <p1> ?p_0 . } } UNION { SELECT ?x WHERE { ?x <p2> ?p_1 . } } }`)
	require.NoError(t, err)
	require.Len(t, q.Pattern.Union, 2)
	assert.Equal(t, "x", q.Pattern.Union[0].Var)
	assert.Equal(t, "x", q.Pattern.Union[1].Var)
}

func TestTokenize_DatatypeFilter(t *testing.T) {
	toks := tokenize(`?x <age> ?p_0 . FILTER(DATATYPE(?p_0) = <http://www.w3.org/2001/XMLSchema#integer>)`)
	assert.Contains(t, toks, "FILTER")
	assert.Contains(t, toks, "DATATYPE")
	assert.Contains(t, toks, "<http://www.w3.org/2001/XMLSchema#integer>")
}
