package endpoint

import "strings"

// tokenize splits a generated query string into whitespace-delimited
// tokens, treating the structural punctuation our planner emits as
// standalone tokens. It is deliberately narrow: InMemoryEndpoint only
// ever receives the fixed family of query shapes shacl/query.Planner
// produces, not arbitrary SPARQL (spec §1: the core "does not implement
// an inference engine beyond" its own rule shapes; likewise this
// evaluator is not a general SPARQL engine).
func tokenize(s string) []string {
	var tokens []string
	var cur strings.Builder

	flush := func() {
		if cur.Len() > 0 {
			tokens = append(tokens, cur.String())
			cur.Reset()
		}
	}

	for _, r := range s {
		inIRI := cur.Len() > 0 && strings.HasPrefix(cur.String(), "<") && !strings.HasSuffix(cur.String(), ">")
		switch {
		case inIRI && r != ' ' && r != '\n' && r != '\t' && r != '\r':
			// '.', '(' and ')' inside an <IRI> belong to the IRI
			cur.WriteRune(r)
		case r == '{' || r == '}' || r == '(' || r == ')' || r == '.':
			flush()
			tokens = append(tokens, string(r))
		case r == ' ' || r == '\n' || r == '\t' || r == '\r':
			flush()
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return tokens
}
