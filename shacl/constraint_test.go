package shacl

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConstraintValidateMinOnly(t *testing.T) {
	require.NoError(t, Constraint{Kind: MinOnly, Path: "<age>", Min: 1}.Validate())
	require.Error(t, Constraint{Kind: MinOnly, Path: "<age>", Min: 0}.Validate())
}

func TestConstraintValidateMaxOnly(t *testing.T) {
	require.NoError(t, Constraint{Kind: MaxOnly, Path: "<age>", Max: 0}.Validate())
	require.Error(t, Constraint{Kind: MaxOnly, Path: "<age>", Max: -1}.Validate())
}

func TestConstraintValidateMinMax(t *testing.T) {
	require.NoError(t, Constraint{Kind: MinMax, Path: "<age>", Min: 1, Max: 2}.Validate())
	require.Error(t, Constraint{Kind: MinMax, Path: "<age>", Min: 2, Max: 1}.Validate(), "min > max is contradictory")
	require.Error(t, Constraint{Kind: MinMax, Path: "<age>", Min: -1, Max: 1}.Validate())
}

func TestConstraintValidateRaw(t *testing.T) {
	require.NoError(t, Constraint{Kind: Raw, Path: "<age>", RawQuery: "ASK { ?x <age> ?a }"}.Validate())
	require.Error(t, Constraint{Kind: Raw, Path: "<age>"}.Validate(), "empty raw query body is invalid")
}

func TestConstraintValidateRejectsNegatedDisjunction(t *testing.T) {
	c := Constraint{
		Kind:    MinOnly,
		Path:    "<age>",
		Min:     1,
		Negated: true,
		Options: []ConstraintOption{{Min: 1, Path: "<age>"}},
	}
	require.Error(t, c.Validate())
}

func TestConstraintHasShapeRef(t *testing.T) {
	require.True(t, Constraint{ShapeRef: "Pet"}.HasShapeRef())
	require.False(t, Constraint{}.HasShapeRef())
}

func TestConstraintInversePathAndBasePath(t *testing.T) {
	c := Constraint{Path: "^<hasOwner>"}
	require.True(t, c.InversePath())
	require.Equal(t, "<hasOwner>", c.BasePath())

	plain := Constraint{Path: "<hasOwner>"}
	require.False(t, plain.InversePath())
	require.Equal(t, "<hasOwner>", plain.BasePath())
}

func TestConstraintString(t *testing.T) {
	require.Equal(t, "min(1) <age>", Constraint{Kind: MinOnly, Path: "<age>", Min: 1}.String())
	require.Equal(t, "max(2) <age>", Constraint{Kind: MaxOnly, Path: "<age>", Max: 2}.String())
	require.Equal(t, "min(1) max(2) <age>", Constraint{Kind: MinMax, Path: "<age>", Min: 1, Max: 2}.String())
	require.Equal(t, "raw(ASK {})", Constraint{Kind: Raw, RawQuery: "ASK {}"}.String())
}
