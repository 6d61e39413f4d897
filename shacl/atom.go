// Package shacl is the in-memory term algebra and schema arena for the
// SHACL validation engine: atoms, rule patterns, constraints, shapes.
package shacl

import "fmt"

// Atom is the fundamental classification fact: a predicate (a shape id
// or a constraint-query id) holds, or does not hold, for one individual.
type Atom struct {
	Predicate string
	Individual string
	Polarity   bool
}

// NewAtom builds a positive atom.
func NewAtom(predicate, individual string) Atom {
	return Atom{Predicate: predicate, Individual: individual, Polarity: true}
}

// Negate returns the polarity-flipped twin of a.
func (a Atom) Negate() Atom {
	return Atom{Predicate: a.Predicate, Individual: a.Individual, Polarity: !a.Polarity}
}

// Negates reports whether a and other are negations of each other.
func (a Atom) Negates(other Atom) bool {
	return a.Predicate == other.Predicate && a.Individual == other.Individual && a.Polarity != other.Polarity
}

func (a Atom) String() string {
	sign := "+"
	if !a.Polarity {
		sign = "-"
	}
	return fmt.Sprintf("%s(%s,%s)", sign, a.Predicate, a.Individual)
}
