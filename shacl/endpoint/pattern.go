package endpoint

import (
	"fmt"
	"strconv"
)

// Triple is a single graph-pattern triple, its subject/predicate/object
// each either a SPARQL variable ("?x"), a fixed term, or a literal.
type Triple struct {
	Subj, Pred, Obj string
	DatatypeVar     string // object var the FILTER(DATATYPE(...)) constrains, "" if none
	Datatype        string
}

// Values is a VALUES clause restricting one variable to a fixed set.
type Values struct {
	Var    string
	Values []string
}

// SubSelect is one UNION branch of a disjunction query: `{ SELECT ?v
// WHERE { pattern } [GROUP BY ?v HAVING (...)] }`.
type SubSelect struct {
	Var     string
	Pattern GraphPattern
	GroupBy string
	Having  *Having
}

// Having is a `HAVING (COUNT(DISTINCT ?var) OP N)` post-aggregate filter.
type Having struct {
	Var string
	Op  string // ">=" or "<="
	N   int
}

// GraphPattern is a group graph pattern: triples that must all match,
// optional sub-patterns that may leave their variables unbound, VALUES
// restrictions, and/or (mutually exclusively, for a disjunction body) a
// set of UNION branches.
type GraphPattern struct {
	Triples  []Triple
	Optional []GraphPattern
	Values   []Values
	Union    []SubSelect
}

// Aggregate is a projected aggregate expression: plain COUNT(DISTINCT v)
// or the (COUNT(DISTINCT a) - COUNT(DISTINCT b)) difference form the
// filtered-by-invalid target query uses.
type Aggregate struct {
	VarA, VarB string // VarB is "" for a plain count
	As         string
}

// Query is the parsed form of one planner-generated query string.
type Query struct {
	Ask       bool
	Distinct  bool
	Vars      []string
	Aggregate *Aggregate
	Pattern   GraphPattern
	GroupBy   string
	Having    *Having
}

type parser struct {
	tokens []string
	pos    int
}

func parseQuery(sparql string) (*Query, error) {
	toks := tokenize(sparql)
	p := &parser{tokens: toks}
	p.skipPrefixes()
	return p.parseTop()
}

func (p *parser) peek() string {
	if p.pos >= len(p.tokens) {
		return ""
	}
	return p.tokens[p.pos]
}

func (p *parser) next() string {
	t := p.peek()
	p.pos++
	return t
}

func (p *parser) expect(tok string) error {
	if p.peek() != tok {
		return fmt.Errorf("expected %q, got %q at token %d", tok, p.peek(), p.pos)
	}
	p.pos++
	return nil
}

func (p *parser) skipPrefixes() {
	for p.peek() == "PREFIX" {
		p.next()
		p.next() // "prefix:"
		p.next() // "<iri>"
	}
}

func (p *parser) parseTop() (*Query, error) {
	q := &Query{}
	if p.peek() == "ASK" {
		p.next()
		q.Ask = true
		pat, err := p.parseGroupGraphPattern()
		if err != nil {
			return nil, err
		}
		q.Pattern = pat
		return q, nil
	}

	if err := p.expect("SELECT"); err != nil {
		return nil, err
	}
	if p.peek() == "DISTINCT" {
		p.next()
		q.Distinct = true
	}

	for p.peek() != "WHERE" {
		tok := p.peek()
		if tok == "" {
			return nil, fmt.Errorf("unexpected end of query before WHERE")
		}
		if tok == "(" {
			agg, err := p.parseAggregate()
			if err != nil {
				return nil, err
			}
			q.Aggregate = agg
			continue
		}
		q.Vars = append(q.Vars, stripVar(tok))
		p.next()
	}
	p.next() // WHERE

	pat, err := p.parseGroupGraphPattern()
	if err != nil {
		return nil, err
	}
	q.Pattern = pat

	p.parseSolutionModifier(&q.GroupBy, &q.Having)
	return q, nil
}

// parseAggregate parses `(COUNT(DISTINCT ?v) AS ?cnt)` or
// `((COUNT(DISTINCT ?a) - COUNT(DISTINCT ?b)) AS ?cnt)`.
func (p *parser) parseAggregate() (*Aggregate, error) {
	if err := p.expect("("); err != nil {
		return nil, err
	}
	extraParen := false
	if p.peek() == "(" {
		extraParen = true
		p.next()
	}

	varA, err := p.parseCountExpr()
	if err != nil {
		return nil, err
	}
	agg := &Aggregate{VarA: varA}

	if p.peek() == "-" {
		p.next()
		varB, err := p.parseCountExpr()
		if err != nil {
			return nil, err
		}
		agg.VarB = varB
	}

	if extraParen {
		if err := p.expect(")"); err != nil {
			return nil, err
		}
	}
	if err := p.expect("AS"); err != nil {
		return nil, err
	}
	agg.As = stripVar(p.next())
	if err := p.expect(")"); err != nil {
		return nil, err
	}
	return agg, nil
}

func (p *parser) parseCountExpr() (string, error) {
	if err := p.expect("COUNT"); err != nil {
		return "", err
	}
	if err := p.expect("("); err != nil {
		return "", err
	}
	if p.peek() == "DISTINCT" {
		p.next()
	}
	v := stripVar(p.next())
	if err := p.expect(")"); err != nil {
		return "", err
	}
	return v, nil
}

func (p *parser) parseGroupGraphPattern() (GraphPattern, error) {
	var pat GraphPattern
	if err := p.expect("{"); err != nil {
		return pat, err
	}

	for p.peek() != "}" {
		switch p.peek() {
		case "":
			return pat, fmt.Errorf("unterminated group graph pattern")
		case "OPTIONAL":
			p.next()
			inner, err := p.parseGroupGraphPattern()
			if err != nil {
				return pat, err
			}
			pat.Optional = append(pat.Optional, inner)
		case "VALUES":
			p.next()
			v, err := p.parseValues()
			if err != nil {
				return pat, err
			}
			pat.Values = append(pat.Values, v)
		case "{":
			sub, err := p.parseSubSelect()
			if err != nil {
				return pat, err
			}
			pat.Union = append(pat.Union, sub)
			for p.peek() == "UNION" {
				p.next()
				sub, err := p.parseSubSelect()
				if err != nil {
					return pat, err
				}
				pat.Union = append(pat.Union, sub)
			}
		default:
			t, err := p.parseTriple()
			if err != nil {
				return pat, err
			}
			pat.Triples = append(pat.Triples, t)
		}
	}
	p.next() // "}"
	return pat, nil
}

func (p *parser) parseValues() (Values, error) {
	v := Values{Var: stripVar(p.next())}
	if err := p.expect("{"); err != nil {
		return v, err
	}
	for p.peek() != "}" {
		v.Values = append(v.Values, p.next())
	}
	p.next() // "}"
	if p.peek() == "." {
		p.next()
	}
	return v, nil
}

func (p *parser) parseTriple() (Triple, error) {
	t := Triple{Subj: p.next(), Pred: p.next(), Obj: p.next()}
	if err := p.expect("."); err != nil {
		return t, err
	}
	if p.peek() == "FILTER" {
		p.next()
		if err := p.expect("("); err != nil {
			return t, err
		}
		if err := p.expect("DATATYPE"); err != nil {
			return t, err
		}
		if err := p.expect("("); err != nil {
			return t, err
		}
		t.DatatypeVar = stripVar(p.next())
		if err := p.expect(")"); err != nil {
			return t, err
		}
		if err := p.expect("="); err != nil {
			return t, err
		}
		t.Datatype = p.next()
		if err := p.expect(")"); err != nil {
			return t, err
		}
	}
	return t, nil
}

// parseSubSelect parses `{ SELECT ?v WHERE { pattern } [GROUP BY ?v
// HAVING (...)] }`, one UNION branch of a disjunction query.
func (p *parser) parseSubSelect() (SubSelect, error) {
	var sub SubSelect
	if err := p.expect("{"); err != nil {
		return sub, err
	}
	if err := p.expect("SELECT"); err != nil {
		return sub, err
	}
	sub.Var = stripVar(p.next())
	if err := p.expect("WHERE"); err != nil {
		return sub, err
	}
	pat, err := p.parseGroupGraphPattern()
	if err != nil {
		return sub, err
	}
	sub.Pattern = pat
	p.parseSolutionModifier(&sub.GroupBy, &sub.Having)
	if err := p.expect("}"); err != nil {
		return sub, err
	}
	return sub, nil
}

func (p *parser) parseSolutionModifier(groupBy *string, having **Having) {
	if p.peek() == "GROUP" {
		p.next()
		p.next() // BY
		*groupBy = stripVar(p.next())
	}
	if p.peek() == "HAVING" {
		p.next()
		p.next() // "("
		p.next() // "COUNT"
		p.next() // "("
		if p.peek() == "DISTINCT" {
			p.next()
		}
		v := stripVar(p.next())
		p.next() // ")"
		op := p.next()
		n, _ := strconv.Atoi(p.next())
		p.next() // ")"
		*having = &Having{Var: v, Op: op, N: n}
	}
	if p.peek() == "ORDER" {
		p.next()
		p.next() // BY
		p.next() // var
	}
}

func stripVar(tok string) string {
	if len(tok) > 0 && tok[0] == '?' {
		return tok[1:]
	}
	return tok
}
