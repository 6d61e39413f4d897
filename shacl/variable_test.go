package shacl

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVariableGeneratorIssuesSequentialNames(t *testing.T) {
	g := NewVariableGenerator()
	require.Equal(t, "p_0", g.Next())
	require.Equal(t, "p_1", g.Next())
	require.Equal(t, "p_2", g.Next())
}

func TestVariableGeneratorSharedAcrossShapesNeverCollides(t *testing.T) {
	g := NewVariableGenerator()
	first := g.Next()
	second := g.Next()
	require.NotEqual(t, first, second)
}

func TestFocusVarIsFixed(t *testing.T) {
	require.Equal(t, "x", FocusVar)
}
