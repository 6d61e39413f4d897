package endpoint

import "context"

// InMemoryEndpoint implements Endpoint over a badger-backed triple
// store rather than a remote SPARQL service. It exists for tests and
// for small validation runs that want to avoid a network hop: it
// serializes the same query strings query.Planner generates to the
// same Binding shape a RemoteEndpoint would (§6), parsing and
// evaluating them itself instead of forwarding them.
type InMemoryEndpoint struct {
	store *store
}

// NewInMemoryEndpoint opens (or creates) a badger store at dir. An
// empty dir opens badger in pure in-memory mode.
func NewInMemoryEndpoint(dir string) (*InMemoryEndpoint, error) {
	s, err := newStore(dir)
	if err != nil {
		return nil, err
	}
	return &InMemoryEndpoint{store: s}, nil
}

// AssertTriples bulk-loads (subject, predicate, object) rows, e.g.
// parsed from an N-Triples test fixture.
func (e *InMemoryEndpoint) AssertTriples(rows [][3]string) error {
	triples := make([]triple, 0, len(rows))
	for _, r := range rows {
		triples = append(triples, triple{Subj: r[0], Pred: r[1], Obj: r[2]})
	}
	return e.store.Assert(triples)
}

// Close releases the underlying badger handle.
func (e *InMemoryEndpoint) Close() error { return e.store.Close() }

// RunQuery parses query (one of the fixed shapes query.Planner emits)
// and evaluates it against the loaded triples.
func (e *InMemoryEndpoint) RunQuery(ctx context.Context, query string) (BindingStream, error) {
	if err := ctx.Err(); err != nil {
		return nil, &QueryError{Query: query, Err: err}
	}

	parsed, err := parseQuery(query)
	if err != nil {
		return nil, &QueryError{Query: query, Err: err}
	}

	bindings, err := evaluate(e.store, parsed)
	if err != nil {
		return nil, &QueryError{Query: query, Err: err}
	}
	return NewSliceStream(bindings), nil
}
