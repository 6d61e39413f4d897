package endpoint

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

// RemoteEndpoint issues SPARQL-protocol SELECT/ASK queries over HTTP
// and decodes the standard SPARQL 1.1 JSON results format. This is the
// one boundary-only piece of the core left on net/http (SPEC_FULL.md
// §4): the endpoint transport itself is explicitly out of scope (spec
// §1), and no example repo carries a SPARQL client to adopt instead.
type RemoteEndpoint struct {
	url         string
	credentials *Credentials
	client      *http.Client
}

// NewRemoteEndpoint creates a client against url, optionally using HTTP
// basic auth when creds is non-nil (§3: "Singleton with (user,
// password) optionally attached").
func NewRemoteEndpoint(url string, creds *Credentials) *RemoteEndpoint {
	return &RemoteEndpoint{url: url, credentials: creds, client: &http.Client{}}
}

type sparqlResults struct {
	Head struct {
		Vars []string `json:"vars"`
	} `json:"head"`
	Results struct {
		Bindings []map[string]struct {
			Value string `json:"value"`
		} `json:"bindings"`
	} `json:"results"`
}

// RunQuery POSTs query to the endpoint and decodes its JSON bindings.
func (e *RemoteEndpoint) RunQuery(ctx context.Context, query string) (BindingStream, error) {
	form := url.Values{"query": {query}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewBufferString(form.Encode()))
	if err != nil {
		return nil, &QueryError{Query: query, Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/sparql-results+json")
	if e.credentials != nil {
		req.SetBasicAuth(e.credentials.User, e.credentials.Password)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, &QueryError{Query: query, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &QueryError{Query: query, Err: fmt.Errorf("endpoint returned status %d", resp.StatusCode)}
	}

	var results sparqlResults
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, &QueryError{Query: query, Err: fmt.Errorf("decoding SPARQL JSON results: %w", err)}
	}

	bindings := make([]Binding, 0, len(results.Results.Bindings))
	for _, row := range results.Results.Bindings {
		b := make(Binding, len(row))
		for varName, v := range row {
			b[varName] = BindingValue{Value: v.Value}
		}
		bindings = append(bindings, b)
	}
	return NewSliceStream(bindings), nil
}
