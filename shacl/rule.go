package shacl

import (
	"sort"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// AtomPattern is a template atom: Individual is either a fixed focus
// variable name ("x") or a generated object-variable name ("p_0", …).
// Grounding substitutes the binding's value for that variable.
type AtomPattern struct {
	Predicate string
	Variable  string
	Polarity  bool
}

// Ground substitutes the bound value for the pattern's variable,
// producing a concrete Atom.
func (p AtomPattern) Ground(binding map[string]string) (Atom, bool) {
	val, ok := binding[p.Variable]
	if !ok {
		return Atom{}, false
	}
	return Atom{Predicate: p.Predicate, Individual: val, Polarity: p.Polarity}, true
}

// RulePattern is head + body templates; grounding a binding produces one
// concrete Rule. All bodies sharing the same head are stored in a set
// (disjunction of conjunctions) inside RuleMap.
type RulePattern struct {
	Head AtomPattern
	Body []AtomPattern
}

// Ground substitutes binding values into head and body. A false return
// means the binding was missing a variable the pattern needs (the row
// is skipped per §7's "malformed binding" recovery).
func (rp RulePattern) Ground(binding map[string]string) (head Atom, body []Atom, ok bool) {
	head, ok = rp.Head.Ground(binding)
	if !ok {
		return Atom{}, nil, false
	}
	body = make([]Atom, 0, len(rp.Body))
	for _, bp := range rp.Body {
		a, ok := bp.Ground(binding)
		if !ok {
			return Atom{}, nil, false
		}
		body = append(body, a)
	}
	return head, body, true
}

// bodyKey produces a stable dedup key for a set of body atoms,
// independent of the order they were grounded in.
func bodyKey(body []Atom) string {
	keys := make([]string, len(body))
	for i, a := range body {
		keys[i] = a.String()
	}
	sort.Strings(keys)
	joined := strings.Join(keys, "|")
	return strconv.FormatUint(xxhash.Sum64String(joined), 16)
}

// RuleMap is the global pending-rule store: head atom -> set of
// candidate bodies, each body keyed by its content hash for dedup.
// Entries are added monotonically by interleave and removed once a
// body resolves the head to true or false, per the saturate apply step.
type RuleMap struct {
	rules map[Atom]map[string][]Atom
	count int
}

// NewRuleMap creates an empty rule map.
func NewRuleMap() *RuleMap {
	return &RuleMap{rules: make(map[Atom]map[string][]Atom)}
}

// Add inserts a grounded rule head <= body, skipping exact duplicates.
// Returns true if a new entry was created.
func (m *RuleMap) Add(head Atom, body []Atom) bool {
	bodies, ok := m.rules[head]
	if !ok {
		bodies = make(map[string][]Atom)
		m.rules[head] = bodies
	}
	key := bodyKey(body)
	if _, exists := bodies[key]; exists {
		return false
	}
	bodies[key] = body
	m.count++
	return true
}

// Bodies returns the current bodies for a head, or nil if none pending.
func (m *RuleMap) Bodies(head Atom) map[string][]Atom {
	return m.rules[head]
}

// Drop removes every pending body for head (the head has been classified).
func (m *RuleMap) Drop(head Atom) {
	if bodies, ok := m.rules[head]; ok {
		m.count -= len(bodies)
		delete(m.rules, head)
	}
}

// DropBody removes a single body under head, e.g. when it has been
// individually falsified but siblings remain.
func (m *RuleMap) DropBody(head Atom, key string) {
	if bodies, ok := m.rules[head]; ok {
		if _, exists := bodies[key]; exists {
			delete(bodies, key)
			m.count--
		}
		if len(bodies) == 0 {
			delete(m.rules, head)
		}
	}
}

// Heads returns every head atom currently pending, in stable order.
func (m *RuleMap) Heads() []Atom {
	heads := make([]Atom, 0, len(m.rules))
	for h := range m.rules {
		heads = append(heads, h)
	}
	sort.Slice(heads, func(i, j int) bool {
		if heads[i].Predicate != heads[j].Predicate {
			return heads[i].Predicate < heads[j].Predicate
		}
		return heads[i].Individual < heads[j].Individual
	})
	return heads
}

// Empty reports whether the map has no pending rules left (§8 property 7:
// rule-map drain).
func (m *RuleMap) Empty() bool {
	return len(m.rules) == 0
}

// Len returns the live pending-rule count (ValidationState.rule_number).
func (m *RuleMap) Len() int {
	return m.count
}
