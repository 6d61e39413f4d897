package endpoint

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEndpoint(t *testing.T) *InMemoryEndpoint {
	t.Helper()
	e, err := NewInMemoryEndpoint("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })
	return e
}

func TestInMemoryEndpoint_PlainTargetQuery(t *testing.T) {
	e := newTestEndpoint(t)
	require.NoError(t, e.AssertTriples([][3]string{
		{"<i1>", "a", "<Person>"},
		{"<i2>", "a", "<Person>"},
		{"<i3>", "a", "<Dog>"},
	}))

	stream, err := e.RunQuery(context.Background(), `SELECT DISTINCT ?x WHERE { ?x a <Person> . }`)
	require.NoError(t, err)

	var got []string
	for stream.Next() {
		got = append(got, stream.Binding()["x"].Value)
	}
	require.NoError(t, stream.Err())
	assert.ElementsMatch(t, []string{"<i1>", "<i2>"}, got)
}

func TestInMemoryEndpoint_MinConstraintCount(t *testing.T) {
	e := newTestEndpoint(t)
	require.NoError(t, e.AssertTriples([][3]string{
		{"<i1>", "<knows>", "<i2>"},
		{"<i1>", "<knows>", "<i3>"},
		{"<i2>", "<knows>", "<i3>"},
	}))

	stream, err := e.RunQuery(context.Background(), `SELECT ?x (COUNT(DISTINCT ?p_0) AS ?cnt) WHERE { ?x <knows> ?p_0 . } GROUP BY ?x`)
	require.NoError(t, err)

	counts := map[string]string{}
	for stream.Next() {
		b := stream.Binding()
		counts[b["x"].Value] = b["cnt"].Value
	}
	require.NoError(t, stream.Err())
	assert.Equal(t, "2", counts["<i1>"])
	assert.Equal(t, "1", counts["<i2>"])
}

func TestInMemoryEndpoint_OptionalLeavesUnboundRowIntact(t *testing.T) {
	e := newTestEndpoint(t)
	require.NoError(t, e.AssertTriples([][3]string{
		{"<i1>", "a", "<Person>"},
		{"<i2>", "a", "<Person>"},
		{"<i1>", "<name>", "\"Alice\""},
	}))

	stream, err := e.RunQuery(context.Background(), `SELECT DISTINCT ?x ?p_0 WHERE { ?x a <Person> . OPTIONAL { ?x <name> ?p_0 . } }`)
	require.NoError(t, err)

	var rows []Binding
	for stream.Next() {
		rows = append(rows, stream.Binding())
	}
	require.NoError(t, stream.Err())
	assert.Len(t, rows, 2)
}

func TestInMemoryEndpoint_AskQuery(t *testing.T) {
	e := newTestEndpoint(t)
	require.NoError(t, e.AssertTriples([][3]string{{"<i1>", "a", "<Person>"}}))

	stream, err := e.RunQuery(context.Background(), `ASK { ?x a <Person> . }`)
	require.NoError(t, err)
	require.True(t, stream.Next())
	assert.Equal(t, "true", stream.Binding()["boolean"].Value)
}

func TestInMemoryEndpoint_ValuesRestrictsExistingBinding(t *testing.T) {
	e := newTestEndpoint(t)
	require.NoError(t, e.AssertTriples([][3]string{
		{"<i1>", "a", "<Person>"},
		{"<i2>", "a", "<Person>"},
	}))

	stream, err := e.RunQuery(context.Background(), `SELECT DISTINCT ?x WHERE { ?x a <Person> . VALUES ?x { <i1> } }`)
	require.NoError(t, err)

	var got []string
	for stream.Next() {
		got = append(got, stream.Binding()["x"].Value)
	}
	require.NoError(t, stream.Err())
	assert.Equal(t, []string{"<i1>"}, got)
}
