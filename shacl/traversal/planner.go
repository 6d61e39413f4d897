package traversal

import "github.com/SDM-TIB/Trav-SHACL/shacl"

// Algorithm selects BFS or DFS linearization (§4.2).
type Algorithm int

const (
	BFS Algorithm = iota
	DFS
)

// Planner computes a total evaluation order over a schema's shapes.
type Planner struct {
	Algorithm  Algorithm
	Heuristics Heuristics
}

// NewPlanner creates a traversal planner.
func NewPlanner(alg Algorithm, h Heuristics) *Planner {
	return &Planner{Algorithm: alg, Heuristics: h}
}

// Order returns the total shape evaluation order: a seed is chosen via
// Heuristics (first candidate in parse order, per open question 1),
// then the schema is linearized from it, repeating from an arbitrary
// remaining shape until every shape appears exactly once (§4.2: "If the
// graph is disconnected...").
func (p *Planner) Order(schema *shacl.Schema) []*shacl.Shape {
	candidates := SeedCandidates(schema, p.Heuristics)
	seed := candidates[0]

	deps, rev := adjacency(schema)
	visited := make(map[shacl.ShapeHandle]bool, schema.Len())
	var order []shacl.ShapeHandle

	next := seed.ID
	for len(order) < schema.Len() {
		var component []shacl.ShapeHandle
		switch p.Algorithm {
		case DFS:
			component = dfs(next, deps, rev, visited, schema.Len())
		default:
			component = bfs(next, deps, rev, visited)
		}
		order = append(order, component...)

		next = -1
		for _, s := range schema.Shapes() {
			if !visited[s.ID] {
				next = s.ID
				break
			}
		}
		if next == -1 {
			break
		}
	}

	out := make([]*shacl.Shape, len(order))
	for i, h := range order {
		out[i] = schema.Shape(h)
	}
	return out
}

func adjacency(schema *shacl.Schema) (deps, rev map[shacl.ShapeHandle][]shacl.ShapeHandle) {
	deps = make(map[shacl.ShapeHandle][]shacl.ShapeHandle, schema.Len())
	rev = make(map[shacl.ShapeHandle][]shacl.ShapeHandle, schema.Len())
	for _, s := range schema.Shapes() {
		seen := make(map[shacl.ShapeHandle]bool)
		for _, h := range s.ReferencedShapes {
			if !seen[h] {
				seen[h] = true
				deps[s.ID] = append(deps[s.ID], h)
				rev[h] = append(rev[h], s.ID)
			}
		}
	}
	return deps, rev
}

// bfs traverses the symmetric neighbour relation (dependencies ∪
// reverse-dependencies) from start.
func bfs(start shacl.ShapeHandle, deps, rev map[shacl.ShapeHandle][]shacl.ShapeHandle, visited map[shacl.ShapeHandle]bool) []shacl.ShapeHandle {
	var order []shacl.ShapeHandle
	queue := []shacl.ShapeHandle{start}
	visited[start] = true
	order = append(order, start)

	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		for _, n := range append(append([]shacl.ShapeHandle{}, deps[node]...), rev[node]...) {
			if !visited[n] {
				visited[n] = true
				order = append(order, n)
				queue = append(queue, n)
			}
		}
	}
	return order
}

// dfs prioritizes forward dependencies, falling back to reverse edges
// only while the traversal has not yet covered the whole component.
func dfs(start shacl.ShapeHandle, deps, rev map[shacl.ShapeHandle][]shacl.ShapeHandle, visited map[shacl.ShapeHandle]bool, total int) []shacl.ShapeHandle {
	var order []shacl.ShapeHandle

	var visit func(node shacl.ShapeHandle)
	visit = func(node shacl.ShapeHandle) {
		if visited[node] {
			if len(order) != total {
				for _, n := range deps[node] {
					if !visited[n] {
						visit(n)
					}
				}
				for _, n := range rev[node] {
					if !visited[n] {
						visit(n)
					}
				}
			}
			return
		}
		visited[node] = true
		order = append(order, node)
		for _, n := range deps[node] {
			visit(n)
		}
		if len(order) != total {
			for _, n := range rev[node] {
				visit(n)
			}
		}
	}
	visit(start)
	return order
}
