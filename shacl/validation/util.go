package validation

import "github.com/SDM-TIB/Trav-SHACL/shacl/endpoint"

func bindingToMap(b endpoint.Binding) map[string]string {
	m := make(map[string]string, len(b))
	for k, v := range b {
		m[k] = v.Value
	}
	return m
}

func drainStream(stream endpoint.BindingStream) ([]endpoint.Binding, error) {
	var out []endpoint.Binding
	for stream.Next() {
		out = append(out, stream.Binding())
	}
	if err := stream.Err(); err != nil {
		return nil, err
	}
	return out, stream.Close()
}
