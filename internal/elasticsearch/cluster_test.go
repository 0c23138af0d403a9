package elasticsearch

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

type recordedRequest struct {
	Method string
	Path   string
	Query  string
	Body   string
}

type transportFunc func(*http.Request) (*http.Response, error)

func (f transportFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

func newResponse(code int, body string) *http.Response {
	resp := &http.Response{
		StatusCode: code,
		Status:     http.StatusText(code),
		Body:       io.NopCloser(bytes.NewBufferString(body)),
		Header:     make(http.Header),
	}
	resp.Header.Set("X-Elastic-Product", "Elasticsearch")
	resp.Header.Set("Content-Type", "application/json")
	return resp
}

//infoResponse answers the client's product check, if it issues one, without being recorded.
func infoResponse(r *http.Request) (*http.Response, bool) {
	if r.Method != http.MethodGet || r.URL.Path != "/" {
		return nil, false
	}

	return newResponse(http.StatusOK, `{"name":"mock","cluster_name":"mock","version":{"number":"7.17.10","build_flavor":"default"},"tagline":"You Know, for Search"}`), true
}

func jsonResponse(code int, v interface{}) *http.Response {
	b, _ := json.Marshal(v)
	return newResponse(code, string(b))
}

//fakeCluster is an in-memory stand-in for a single index, good enough for the request shapes
//issued by the handle.
type fakeCluster struct {
	mu       sync.Mutex
	docs     map[string]map[string]interface{}
	requests []recordedRequest
}

func newFakeCluster() *fakeCluster {
	return &fakeCluster{docs: make(map[string]map[string]interface{})}
}

func (c *fakeCluster) Requests() []recordedRequest {
	c.mu.Lock()
	defer c.mu.Unlock()

	return append([]recordedRequest(nil), c.requests...)
}

func (c *fakeCluster) RoundTrip(r *http.Request) (*http.Response, error) {
	if resp, ok := infoResponse(r); ok {
		return resp, nil
	}

	var body []byte
	if r.Body != nil {
		body, _ = io.ReadAll(r.Body)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.requests = append(c.requests, recordedRequest{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.RawQuery,
		Body:   string(body),
	})

	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")

	switch {
	case len(parts) == 3 && parts[1] == "_doc" && parts[2] != "_search":
		return c.document(r.Method, parts[0], parts[2], body), nil
	case r.URL.Path == "/_bulk":
		return c.bulk(body), nil
	case len(parts) == 2 && parts[1] == "_count":
		return jsonResponse(http.StatusOK, map[string]interface{}{"count": len(c.docs)}), nil
	case len(parts) == 3 && parts[2] == "_search":
		return c.search(body), nil
	}

	return newResponse(http.StatusBadRequest, `{"error":"unsupported"}`), nil
}

func (c *fakeCluster) document(method, index, id string, body []byte) *http.Response {
	doc, found := c.docs[id]

	switch method {
	case http.MethodPut:
		var src map[string]interface{}
		if err := json.Unmarshal(body, &src); err != nil {
			return newResponse(http.StatusBadRequest, `{"error":"invalid body"}`)
		}
		c.docs[id] = src
		if found {
			return jsonResponse(http.StatusOK, map[string]interface{}{"_index": index, "_id": id, "result": "updated"})
		}
		return jsonResponse(http.StatusCreated, map[string]interface{}{"_index": index, "_id": id, "result": "created"})
	case http.MethodGet:
		if !found {
			return jsonResponse(http.StatusNotFound, map[string]interface{}{"_index": index, "_id": id, "found": false})
		}
		return jsonResponse(http.StatusOK, map[string]interface{}{
			"_index":        index,
			"_id":           id,
			"_version":      1,
			"_seq_no":       0,
			"_primary_term": 1,
			"found":         true,
			"_source":       doc,
		})
	case http.MethodDelete:
		if !found {
			return jsonResponse(http.StatusNotFound, map[string]interface{}{"_index": index, "_id": id, "result": "not_found"})
		}
		delete(c.docs, id)
		return jsonResponse(http.StatusOK, map[string]interface{}{"_index": index, "_id": id, "result": "deleted"})
	}

	return newResponse(http.StatusMethodNotAllowed, `{}`)
}

func (c *fakeCluster) bulk(body []byte) *http.Response {
	lines := strings.Split(strings.TrimSuffix(string(body), "\n"), "\n")
	for n := 0; n+1 < len(lines); n += 2 {
		var action bulkAction
		var src map[string]interface{}
		if err := json.Unmarshal([]byte(lines[n]), &action); err != nil {
			return newResponse(http.StatusBadRequest, `{"error":"invalid action"}`)
		}
		if err := json.Unmarshal([]byte(lines[n+1]), &src); err != nil {
			return newResponse(http.StatusBadRequest, `{"error":"invalid source"}`)
		}
		c.docs[action.Index.ID] = src
	}

	return jsonResponse(http.StatusOK, map[string]interface{}{"took": 1, "errors": false, "items": []interface{}{}})
}

func (c *fakeCluster) search(body []byte) *http.Response {
	var q struct {
		From int `json:"from"`
		Size int `json:"size"`
	}
	q.Size = 10
	_ = json.Unmarshal(body, &q)

	ids := make([]string, 0, len(c.docs))
	for id := range c.docs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	hits := []interface{}{}
	for n := q.From; n < len(ids) && n < q.From+q.Size; n++ {
		hits = append(hits, map[string]interface{}{
			"_id":     ids[n],
			"_score":  nil,
			"_source": c.docs[ids[n]],
		})
	}

	return jsonResponse(http.StatusOK, map[string]interface{}{
		"took":      1,
		"timed_out": false,
		"hits": map[string]interface{}{
			"total":     map[string]interface{}{"value": len(ids), "relation": "eq"},
			"max_score": nil,
			"hits":      hits,
		},
	})
}

func newTestIndex(t *testing.T, rt http.RoundTripper) *Index {
	t.Helper()

	idx, err := New(Config{
		Host:      "http://mock:9200",
		Index:     "docs",
		Transport: rt,
	})
	require.NoError(t, err)

	return idx
}

//staticTransport answers every request with the same response and records what it saw.
func staticTransport(code int, body string, seen *[]recordedRequest) transportFunc {
	return func(r *http.Request) (*http.Response, error) {
		if resp, ok := infoResponse(r); ok {
			return resp, nil
		}

		var b []byte
		if r.Body != nil {
			b, _ = io.ReadAll(r.Body)
		}
		if seen != nil {
			*seen = append(*seen, recordedRequest{Method: r.Method, Path: r.URL.Path, Query: r.URL.RawQuery, Body: string(b)})
		}
		return newResponse(code, body), nil
	}
}
