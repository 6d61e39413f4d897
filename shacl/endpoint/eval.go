package endpoint

import (
	"strconv"
	"strings"
)

// row is one partial solution: variable name (no leading "?") to its
// bound term.
type row map[string]string

func isVar(term string) bool { return strings.HasPrefix(term, "?") }

// evaluate runs a parsed Query against the store and returns one
// Binding per solution, in the shape RunQuery hands back to callers.
func evaluate(s *store, q *Query) ([]Binding, error) {
	rows, err := evalPattern(s, q.Pattern, []row{{}})
	if err != nil {
		return nil, err
	}

	if q.Ask {
		return []Binding{{"boolean": BindingValue{Value: boolStr(len(rows) > 0)}}}, nil
	}

	if q.Aggregate != nil {
		return evalAggregate(q, rows), nil
	}

	if q.GroupBy != "" && q.Having != nil {
		rows = filterGroupsByHaving(rows, q.GroupBy, q.Having)
	}

	bindings := make([]Binding, 0, len(rows))
	seen := map[string]bool{}
	for _, r := range rows {
		b := Binding{}
		for _, v := range q.Vars {
			if val, ok := r[v]; ok {
				b[v] = BindingValue{Value: val}
			}
		}
		if q.Distinct {
			key := bindingKey(b, q.Vars)
			if seen[key] {
				continue
			}
			seen[key] = true
		}
		bindings = append(bindings, b)
	}
	return bindings, nil
}

func boolStr(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

func bindingKey(b Binding, vars []string) string {
	parts := make([]string, len(vars))
	for i, v := range vars {
		parts[i] = b[v].Value
	}
	return strings.Join(parts, "\x00")
}

// evalAggregate computes the query's single projected COUNT(DISTINCT)
// or COUNT(DISTINCT a) - COUNT(DISTINCT b) value, grouped by GroupBy
// when present (the min/max/filtered-target query shapes), otherwise
// as one ungrouped total.
func evalAggregate(q *Query, rows []row) []Binding {
	agg := q.Aggregate

	if q.GroupBy == "" {
		n := countDistinct(rows, agg.VarA)
		if agg.VarB != "" {
			n -= countDistinct(rows, agg.VarB)
		}
		return []Binding{{
			q.GroupBy: {},
			agg.As:    {Value: strconv.Itoa(n)},
		}}
	}

	groups := map[string][]row{}
	var order []string
	for _, r := range rows {
		key, ok := r[q.GroupBy]
		if !ok {
			continue
		}
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], r)
	}

	var out []Binding
	for _, key := range order {
		grows := groups[key]
		n := countDistinct(grows, agg.VarA)
		if agg.VarB != "" {
			n -= countDistinct(grows, agg.VarB)
		}
		if q.Having != nil && !satisfiesHaving(n, q.Having) {
			continue
		}
		out = append(out, Binding{
			q.GroupBy: {Value: key},
			agg.As:    {Value: strconv.Itoa(n)},
		})
	}
	return out
}

func satisfiesHaving(n int, h *Having) bool {
	switch h.Op {
	case ">=":
		return n >= h.N
	case "<=":
		return n <= h.N
	case ">":
		return n > h.N
	case "<":
		return n < h.N
	case "=":
		return n == h.N
	default:
		return false
	}
}

// filterGroupsByHaving applies a bare `GROUP BY ?v HAVING (COUNT(DISTINCT
// ?w) OP N)` solution modifier to a non-aggregate SELECT (the
// no-shape-reference max/min cardinality queries project only ?focus,
// never the count itself), keeping one representative row per surviving
// group.
func filterGroupsByHaving(rows []row, groupBy string, h *Having) []row {
	groups := map[string][]row{}
	var order []string
	for _, r := range rows {
		key, ok := r[groupBy]
		if !ok {
			continue
		}
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], r)
	}
	var out []row
	for _, key := range order {
		grows := groups[key]
		if satisfiesHaving(countDistinct(grows, h.Var), h) {
			out = append(out, grows[0])
		}
	}
	return out
}

func countDistinct(rows []row, v string) int {
	seen := map[string]struct{}{}
	for _, r := range rows {
		if val, ok := r[v]; ok {
			seen[val] = struct{}{}
		}
	}
	return len(seen)
}


// evalPattern joins a GraphPattern's triples, optional blocks, values
// restrictions, and union branches against an incoming set of partial
// bindings.
func evalPattern(s *store, p GraphPattern, in []row) ([]row, error) {
	rows := in

	if len(p.Union) > 0 {
		var out []row
		for _, sub := range p.Union {
			branch, err := evalSubSelect(s, sub)
			if err != nil {
				return nil, err
			}
			out = append(out, branch...)
		}
		return joinRows(rows, out), nil
	}

	for _, t := range p.Triples {
		next, err := joinTriple(s, rows, t)
		if err != nil {
			return nil, err
		}
		rows = next
	}

	for _, v := range p.Values {
		rows = applyValues(rows, v)
	}

	for _, opt := range p.Optional {
		matched, err := evalPattern(s, opt, rows)
		if err != nil {
			return nil, err
		}
		rows = leftOuterMerge(rows, opt, matched)
	}

	return rows, nil
}

// evalSubSelect evaluates one UNION branch: join its pattern from
// scratch, then project/group/filter down to sub.Var's bound values.
func evalSubSelect(s *store, sub SubSelect) ([]row, error) {
	rows, err := evalPattern(s, sub.Pattern, []row{{}})
	if err != nil {
		return nil, err
	}
	if sub.GroupBy == "" {
		return rows, nil
	}

	groups := map[string][]row{}
	var order []string
	for _, r := range rows {
		key, ok := r[sub.GroupBy]
		if !ok {
			continue
		}
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], r)
	}

	var out []row
	for _, key := range order {
		grows := groups[key]
		if sub.Having != nil {
			n := countDistinct(grows, sub.Having.Var)
			if !satisfiesHaving(n, sub.Having) {
				continue
			}
		}
		out = append(out, row{sub.Var: key})
	}
	return out, nil
}

// joinRows cross-joins two binding sets on any variables they share,
// falling back to a cross product when they share none.
func joinRows(left, right []row) []row {
	if len(left) == 0 {
		return right
	}
	if len(right) == 0 {
		return left
	}
	var out []row
	for _, l := range left {
		for _, r := range right {
			if merged, ok := mergeRow(l, r); ok {
				out = append(out, merged)
			}
		}
	}
	return out
}

func mergeRow(a, b row) (row, bool) {
	out := row{}
	for k, v := range a {
		out[k] = v
	}
	for k, v := range b {
		if existing, ok := out[k]; ok && existing != v {
			return nil, false
		}
		out[k] = v
	}
	return out, true
}

func joinTriple(s *store, in []row, t Triple) ([]row, error) {
	var out []row
	for _, r := range in {
		subj, subjBound := resolve(t.Subj, r)
		pred, predBound := resolve(t.Pred, r)
		obj, objBound := resolve(t.Obj, r)

		err := s.scanSPO(valOrEmpty(subj, subjBound), valOrEmpty(pred, predBound), valOrEmpty(obj, objBound), func(tr triple) error {
			next := cloneRow(r)
			bindIfVar(next, t.Subj, tr.Subj)
			bindIfVar(next, t.Pred, tr.Pred)
			bindIfVar(next, t.Obj, tr.Obj)
			if t.DatatypeVar != "" && !strings.HasSuffix(next[t.DatatypeVar], "^^"+t.Datatype) {
				// literals are stored verbatim, so FILTER(DATATYPE(?v) = <dt>)
				// holds only for a value written with its "^^<dt>" tag
				return nil
			}
			out = append(out, next)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

func resolve(term string, r row) (string, bool) {
	if !isVar(term) {
		return term, true
	}
	v, ok := r[term[1:]]
	return v, ok
}

func valOrEmpty(v string, bound bool) string {
	if !bound {
		return ""
	}
	return v
}

func bindIfVar(r row, term, value string) {
	if isVar(term) {
		r[term[1:]] = value
	}
}

func cloneRow(r row) row {
	out := make(row, len(r)+1)
	for k, v := range r {
		out[k] = v
	}
	return out
}

func applyValues(in []row, v Values) []row {
	allowed := map[string]bool{}
	for _, val := range v.Values {
		allowed[val] = true
	}

	var out []row
	for _, r := range in {
		if existing, ok := r[v.Var]; ok {
			if allowed[existing] {
				out = append(out, r)
			}
			continue
		}
		for _, val := range v.Values {
			next := cloneRow(r)
			next[v.Var] = val
			out = append(out, next)
		}
	}
	return out
}

// leftOuterMerge keeps every row from base; where matched contains one
// or more extensions of that row (by value on shared vars), it is
// replaced by those extensions, otherwise it passes through unbound.
func leftOuterMerge(base []row, opt GraphPattern, matched []row) []row {
	if len(matched) == len(base) {
		allExtend := true
		for i := range base {
			if !rowExtends(matched[i], base[i]) {
				allExtend = false
				break
			}
		}
		if allExtend {
			return matched
		}
	}

	var out []row
	for _, b := range base {
		found := false
		for _, m := range matched {
			if rowExtends(m, b) {
				out = append(out, m)
				found = true
			}
		}
		if !found {
			out = append(out, b)
		}
	}
	return out
}

func rowExtends(m, b row) bool {
	for k, v := range b {
		if mv, ok := m[k]; !ok || mv != v {
			return false
		}
	}
	return true
}
