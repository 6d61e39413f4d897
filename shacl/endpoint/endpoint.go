// Package endpoint is the EndpointClient boundary (spec §4.4, §6): a
// singleton that issues textual SELECT/ASK queries and returns a finite
// ordered sequence of variable bindings.
package endpoint

import (
	"context"
	"strconv"
)

// BindingValue is one variable's bound value. Type/datatype metadata is
// ignored by the core (§6).
type BindingValue struct {
	Value string
}

// Binding maps a variable name (without leading "?") to its value.
type Binding map[string]BindingValue

// Count reads the aggregate `cnt` binding the filtered target queries
// and HAVING-form max queries produce. A missing/unparseable cnt is
// reported as !ok so the caller can apply §7's "missing variable" skip.
func (b Binding) Count() (int, bool) {
	v, ok := b["cnt"]
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(v.Value)
	return n, err == nil
}

// BindingStream is a finite ordered sequence of bindings, pulled lazily
// — the caller consumes the entire sequence before the engine's next
// call (spec §5: "the streaming of bindings is pull-based").
type BindingStream interface {
	Next() bool
	Binding() Binding
	Err() error
	Close() error
}

// Endpoint is the EndpointClient interface: issue a query string,
// receive a finite ordered binding stream. The engine never retries a
// failed call itself (§4.6) — a QueryError propagates and aborts.
type Endpoint interface {
	RunQuery(ctx context.Context, query string) (BindingStream, error)
}

// QueryError wraps a transport or protocol failure (§7 taxonomy).
type QueryError struct {
	Query string
	Err   error
}

func (e *QueryError) Error() string {
	return "query error: " + e.Err.Error() + " (query: " + truncate(e.Query, 120) + ")"
}

func (e *QueryError) Unwrap() error { return e.Err }

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}

// sliceStream is the simplest BindingStream: a pre-collected slice.
// Both Remote and InMemory implementations build results through it.
type sliceStream struct {
	bindings []Binding
	pos      int
}

// NewSliceStream wraps a pre-materialized slice of bindings as a
// BindingStream.
func NewSliceStream(bindings []Binding) BindingStream {
	return &sliceStream{bindings: bindings, pos: -1}
}

func (s *sliceStream) Next() bool {
	s.pos++
	return s.pos < len(s.bindings)
}

func (s *sliceStream) Binding() Binding {
	if s.pos < 0 || s.pos >= len(s.bindings) {
		return nil
	}
	return s.bindings[s.pos]
}

func (s *sliceStream) Err() error   { return nil }
func (s *sliceStream) Close() error { return nil }
