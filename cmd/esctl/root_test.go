package main

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type request struct {
	method string
	path   string
	body   string
}

//newCluster answers with a canned body per "METHOD /path", 404 otherwise.
func newCluster(t *testing.T, routes map[string]string) (*httptest.Server, func() []request) {
	t.Helper()

	var (
		mu   sync.Mutex
		seen []request
	)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)

		mu.Lock()
		seen = append(seen, request{method: r.Method, path: r.URL.Path, body: string(b)})
		mu.Unlock()

		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")

		if r.Method == http.MethodHead && r.URL.Path == "/" {
			w.WriteHeader(http.StatusOK)
			return
		}

		if r.Method == http.MethodGet && r.URL.Path == "/" {
			_, _ = w.Write([]byte(`{"version":{"number":"7.17.10"},"tagline":"You Know, for Search"}`))
			return
		}

		body, ok := routes[r.Method+" "+r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"found":false}`))
			return
		}

		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	return srv, func() []request {
		mu.Lock()
		defer mu.Unlock()

		return append([]request(nil), seen...)
	}
}

func execute(t *testing.T, host string, args ...string) (string, error) {
	t.Helper()

	t.Setenv("VAULT_ADDRESS", "")

	var out bytes.Buffer

	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(append([]string{"--host", host, "--index", "docs"}, args...))

	err := cmd.Execute()

	return out.String(), err
}

func TestEsctl_DocGet(t *testing.T) {
	srv, _ := newCluster(t, map[string]string{
		"GET /docs/_doc/1": `{"_index":"docs","_id":"1","_version":2,"found":true,"_source":{"id":"1","title":"hello"}}`,
	})

	out, err := execute(t, srv.URL, "doc", "get", "1")
	require.NoError(t, err)
	assert.Contains(t, out, `"title": "hello"`)
	assert.Contains(t, out, `"_version": 2`)

	_, err = execute(t, srv.URL, "doc", "get", "2")
	assert.Error(t, err)
}

func TestEsctl_DocPut(t *testing.T) {
	srv, seen := newCluster(t, map[string]string{
		"PUT /docs/_doc/7": `{"result":"created"}`,
	})

	_, err := execute(t, srv.URL, "doc", "put", `{"id":"7","title":"x"}`)
	require.NoError(t, err)

	var put *request
	for _, r := range seen() {
		if r.method == http.MethodPut {
			r := r
			put = &r
		}
	}

	require.NotNil(t, put)
	assert.JSONEq(t, `{"id":"7","title":"x"}`, put.body)

	_, err = execute(t, srv.URL, "doc", "put", `{"title":"no id"}`)
	assert.Error(t, err)
}

func TestEsctl_IndexExists(t *testing.T) {
	srv, _ := newCluster(t, map[string]string{
		"HEAD /docs": ``,
	})

	out, err := execute(t, srv.URL, "index", "exists")
	require.NoError(t, err)
	assert.Equal(t, "true\n", out)

	out, err = execute(t, srv.URL, "--index", "other", "index", "exists")
	require.NoError(t, err)
	assert.Equal(t, "false\n", out)
}

func TestEsctl_Count(t *testing.T) {
	srv, seen := newCluster(t, map[string]string{
		"POST /docs/_count": `{"count":3}`,
	})

	out, err := execute(t, srv.URL, "count")
	require.NoError(t, err)
	assert.Equal(t, "3\n", out)

	reqs := seen()
	assert.JSONEq(t, `{"query":{"match_all":{}}}`, reqs[len(reqs)-1].body)

	out, err = execute(t, srv.URL, "count", `{"query":{"term":{"id":"1"}}}`)
	require.NoError(t, err)
	assert.Equal(t, "3\n", out)
}

func TestEsctl_SearchRaw(t *testing.T) {
	const body = `{"timed_out":false,"hits":{"total":{"value":0},"hits":[]}}`

	srv, _ := newCluster(t, map[string]string{
		"POST /docs/_doc/_search": body,
	})

	out, err := execute(t, srv.URL, "search", "--raw", `{"query":{"match_all":{}}}`)
	require.NoError(t, err)
	assert.Equal(t, body, strings.TrimSpace(out))

	_, err = execute(t, srv.URL, "search", `{"query":{"match_all":{}}}`)
	assert.Error(t, err)
}

func TestEsctl_UnreachableCluster(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	_, err := execute(t, srv.URL, "--timeout", "200ms", "index", "exists")
	assert.Error(t, err)
}
