package shacl

import "fmt"

// ConstraintKind tags the Constraint variant (§3: "exactly one of min,
// max is meaningful per simple constraint").
type ConstraintKind int

const (
	MinOnly ConstraintKind = iota
	MaxOnly
	MinMax
	Raw
)

func (k ConstraintKind) String() string {
	switch k {
	case MinOnly:
		return "MinOnly"
	case MaxOnly:
		return "MaxOnly"
	case MinMax:
		return "MinMax"
	case Raw:
		return "Raw"
	default:
		return "Unknown"
	}
}

// NoBound marks an absent lower/upper bound (§3: "min = -1 means no
// lower bound, max = -1 means no upper bound").
const NoBound = -1

// ConstraintOption is one arm of a disjunction (§3 "options").
type ConstraintOption struct {
	Min, Max int
	Path     string
	Negated  bool
}

// Constraint is the tagged variant over a path out of the focus node.
// Dispatch on Kind, never on embedded-type assertions.
type Constraint struct {
	Kind ConstraintKind

	Path     string // predicate, or "^predicate" for an inverse path
	Datatype string // optional datatype filter, "" if absent
	Value    string // optional fixed object value, "" if absent

	ShapeRef string // referenced shape name, "" if this is a plain datatype/value constraint
	Negated  bool

	Min int // meaningful when Kind is MinOnly or MinMax
	Max int // meaningful when Kind is MaxOnly or MinMax

	RawQuery string // meaningful when Kind is Raw: an opaque ASK-style SPARQL body

	Options []ConstraintOption // non-empty when this constraint is a disjunction

	ObjectVars []string // generated object variables, one per expected cardinality slot

	OwningShape string // the shape this constraint belongs to
}

// HasShapeRef reports whether the constraint references another shape
// (an "outgoing reference" in the shape-reference graph).
func (c Constraint) HasShapeRef() bool {
	return c.ShapeRef != ""
}

// InversePath reports whether Path begins with "^".
func (c Constraint) InversePath() bool {
	return len(c.Path) > 0 && c.Path[0] == '^'
}

// BasePath strips the leading "^" from an inverse path.
func (c Constraint) BasePath() string {
	if c.InversePath() {
		return c.Path[1:]
	}
	return c.Path
}

func (c Constraint) String() string {
	switch c.Kind {
	case MinOnly:
		return fmt.Sprintf("min(%d) %s", c.Min, c.Path)
	case MaxOnly:
		return fmt.Sprintf("max(%d) %s", c.Max, c.Path)
	case MinMax:
		return fmt.Sprintf("min(%d) max(%d) %s", c.Min, c.Max, c.Path)
	case Raw:
		return fmt.Sprintf("raw(%s)", c.RawQuery)
	default:
		return "?"
	}
}

// Validate enforces the invariants §3 and SPEC_FULL.md open question 4
// require: min XOR max meaningful per simple variant, and a negated
// constraint never appears inside a disjunction.
func (c Constraint) Validate() error {
	if len(c.Options) > 0 && c.Negated {
		return fmt.Errorf("schema error: constraint on %q is negated inside a disjunction, which is unsupported", c.Path)
	}
	for _, opt := range c.Options {
		if opt.Negated {
			return fmt.Errorf("schema error: option on %q is negated inside a disjunction, which is unsupported", opt.Path)
		}
	}
	switch c.Kind {
	case MinOnly:
		if c.Min < 1 {
			return fmt.Errorf("schema error: MinOnly constraint on %q must have min >= 1, got %d", c.Path, c.Min)
		}
	case MaxOnly:
		if c.Max < 0 {
			return fmt.Errorf("schema error: MaxOnly constraint on %q must have max >= 0, got %d", c.Path, c.Max)
		}
	case MinMax:
		if c.Min < 0 || c.Max < 0 || c.Min > c.Max {
			return fmt.Errorf("schema error: MinMax constraint on %q has contradictory bounds min=%d max=%d", c.Path, c.Min, c.Max)
		}
	case Raw:
		if c.RawQuery == "" {
			return fmt.Errorf("schema error: Raw constraint on %q has an empty query body", c.Path)
		}
	}
	return nil
}
