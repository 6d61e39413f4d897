// Package schema is the parser collaborator boundary (§1, §6): shape
// syntax itself is out of scope, but a concrete Go struct has to carry
// a parsed shape definition into shacl.Schema somehow. ShapeInput is
// that boundary, and Load reads the legacy --json fixture format.
package schema

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-multierror"

	"github.com/SDM-TIB/Trav-SHACL/shacl"
)

// ConstraintInput mirrors shacl.Constraint at the JSON boundary: every
// field is present regardless of Kind, and Kind itself arrives as a
// lowercase string tag.
type ConstraintInput struct {
	Kind     string `json:"kind"`
	Path     string `json:"path"`
	Datatype string `json:"datatype,omitempty"`
	Value    string `json:"value,omitempty"`

	ShapeRef string `json:"shapeRef,omitempty"`
	Negated  bool   `json:"negated,omitempty"`

	Min int `json:"min"`
	Max int `json:"max"`

	RawQuery string `json:"rawQuery,omitempty"`

	Options []ConstraintOptionInput `json:"options,omitempty"`
}

// ConstraintOptionInput mirrors shacl.ConstraintOption.
type ConstraintOptionInput struct {
	Min     int    `json:"min"`
	Max     int    `json:"max"`
	Path    string `json:"path"`
	Negated bool   `json:"negated,omitempty"`
}

// ShapeInput is the parsed-shape boundary struct (§6): one instance
// per shape in a shape directory, before shacl.Schema links
// cross-shape references into handles.
type ShapeInput struct {
	ID               string            `json:"id"`
	TargetDef        string            `json:"targetDef"`
	TargetType       string            `json:"targetType"` // "class" | "node" | ""
	TargetQuery      string            `json:"targetQuery"`
	Constraints      []ConstraintInput `json:"constraints"`
	ReferencedShapes map[string]string `json:"referencedShapes"` // path -> referenced shape id
	Prefixes         map[string]string `json:"prefixes,omitempty"`
	IncludePrefixes  bool              `json:"includePrefixes,omitempty"`
	OrderBy          bool              `json:"orderBy,omitempty"`
	FlagDisjunction  bool              `json:"flagDisjunction,omitempty"`
}

// Load reads every *.json file directly inside dir as one ShapeInput,
// aggregating every decode failure via go-multierror rather than
// stopping at the first one — a schema directory with ten malformed
// shapes should report all ten in a single pass.
func Load(dir string) ([]ShapeInput, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading shape directory %q: %w", dir, err)
	}

	var inputs []ShapeInput
	var errs *multierror.Error
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		raw, err := os.ReadFile(path)
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("reading %q: %w", path, err))
			continue
		}
		var in ShapeInput
		if err := json.Unmarshal(raw, &in); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("decoding %q: %w", path, err))
			continue
		}
		inputs = append(inputs, in)
	}

	if errs.ErrorOrNil() != nil {
		return nil, errs.ErrorOrNil()
	}
	if len(inputs) == 0 {
		return nil, &shacl.SchemaError{Msg: "shape directory " + dir + " contains no shapes"}
	}
	return inputs, nil
}

// Build assembles a *shacl.Schema from a set of ShapeInputs, adding
// every shape first and linking cross-shape references second (a
// reference may name a shape that sorts later in the input).
func Build(inputs []ShapeInput) (*shacl.Schema, error) {
	s := shacl.NewSchema()
	var errs *multierror.Error

	for _, in := range inputs {
		shape, err := s.AddShape(in.ID)
		if err != nil {
			errs = multierror.Append(errs, err)
			continue
		}
		applyShapeInput(shape, in)
	}
	if errs.ErrorOrNil() != nil {
		return nil, errs.ErrorOrNil()
	}

	for _, in := range inputs {
		shape, ok := s.ShapeByName(in.ID)
		if !ok {
			continue
		}
		for path, refID := range in.ReferencedShapes {
			ref, ok := s.ShapeByName(refID)
			if !ok {
				errs = multierror.Append(errs, fmt.Errorf("shape %q references unknown shape %q", in.ID, refID))
				continue
			}
			s.Link(shape.ID, path, ref.ID)
		}
	}
	if errs.ErrorOrNil() != nil {
		return nil, errs.ErrorOrNil()
	}

	for _, shape := range s.Shapes() {
		for _, c := range shape.Constraints {
			if err := c.Validate(); err != nil {
				errs = multierror.Append(errs, err)
			}
		}
	}
	if errs.ErrorOrNil() != nil {
		return nil, errs.ErrorOrNil()
	}

	return s, nil
}

func applyShapeInput(shape *shacl.Shape, in ShapeInput) {
	shape.TargetQuery = in.TargetQuery
	switch in.TargetType {
	case "class":
		shape.TargetKind = shacl.TargetClass
	case "node":
		shape.TargetKind = shacl.TargetNode
	default:
		shape.TargetKind = shacl.TargetNone
	}
	if in.Prefixes != nil {
		shape.Prefixes = in.Prefixes
	}
	shape.IncludePrefixes = in.IncludePrefixes
	shape.OrderBy = in.OrderBy
	shape.FlagDisjunction = in.FlagDisjunction

	shape.Constraints = make([]shacl.Constraint, 0, len(in.Constraints))
	for _, c := range in.Constraints {
		shape.Constraints = append(shape.Constraints, constraintFromInput(shape.Name, c))
	}
}

func constraintFromInput(owningShape string, c ConstraintInput) shacl.Constraint {
	out := shacl.Constraint{
		Path:        c.Path,
		Datatype:    c.Datatype,
		Value:       c.Value,
		ShapeRef:    c.ShapeRef,
		Negated:     c.Negated,
		Min:         c.Min,
		Max:         c.Max,
		RawQuery:    c.RawQuery,
		OwningShape: owningShape,
	}
	switch c.Kind {
	case "min":
		out.Kind = shacl.MinOnly
	case "max":
		out.Kind = shacl.MaxOnly
	case "minmax":
		out.Kind = shacl.MinMax
	case "raw":
		out.Kind = shacl.Raw
	}
	for _, opt := range c.Options {
		out.Options = append(out.Options, shacl.ConstraintOption{
			Min: opt.Min, Max: opt.Max, Path: opt.Path, Negated: opt.Negated,
		})
	}
	return out
}
