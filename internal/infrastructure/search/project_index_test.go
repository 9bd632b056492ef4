package search

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/go-project-tracker/internal/domain/entity"
	"github.com/oksasatya/go-project-tracker/pkg/helpers"
)

func TestSearchBodyEscapesWildcards(t *testing.T) {
	body := searchBody("  Web*Site? ")
	q := body["query"].(map[string]any)["wildcard"].(map[string]any)["name_lower"].(map[string]any)
	assert.Equal(t, `*web\*site\?*`, q["value"])
	assert.Equal(t, maxHits, body["size"])
}

func TestSearchTargetsKeywordField(t *testing.T) {
	wildcard := searchBody("site rev")["query"].(map[string]any)["wildcard"].(map[string]any)
	props := indexMapping["mappings"].(map[string]any)["properties"].(map[string]any)
	require.Len(t, wildcard, 1)
	for field, q := range wildcard {
		assert.Equal(t, "keyword", props[field].(map[string]any)["type"], "wildcard over %s must not be tokenized", field)
		assert.Equal(t, "*site rev*", q.(map[string]any)["value"], "spaces are kept inside the pattern")
	}
}

type esCall struct {
	method, path string
	raw          string
	body         map[string]any
}

type esReply func(method, path string) (int, string)

// ok answers every request with status and a body fitting the endpoint.
func ok(status int) esReply {
	return func(_, path string) (int, string) {
		switch {
		case strings.HasSuffix(path, "/_search"):
			return status, `{"hits":{"hits":[{"_id":"p1"},{"_id":"p2"}]}}`
		case strings.HasSuffix(path, "/_bulk"):
			return status, `{"errors":false,"items":[]}`
		case strings.HasSuffix(path, "/_mapping"):
			return status, `{"projects":{"mappings":{"properties":{"name_lower":{"type":"keyword"}}}}}`
		}
		return status, `{"acknowledged":true}`
	}
}

func fakeES(t *testing.T, reply esReply, calls *[]esCall) *elasticsearch.Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		call := esCall{method: r.Method, path: r.URL.Path, raw: string(raw)}
		_ = json.NewDecoder(bytes.NewReader(raw)).Decode(&call.body)
		*calls = append(*calls, call)

		status, body := reply(r.Method, r.URL.Path)
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if r.Method != http.MethodHead {
			_, _ = w.Write([]byte(body))
		}
	}))
	t.Cleanup(srv.Close)

	es, err := helpers.NewESClient([]string{srv.URL}, "", "")
	require.NoError(t, err)
	return es
}

func TestEnsureIndexCreatesKeywordMapping(t *testing.T) {
	var calls []esCall
	reply := func(method, path string) (int, string) {
		if method == http.MethodHead {
			return http.StatusNotFound, ""
		}
		return ok(http.StatusOK)(method, path)
	}
	x := NewProjectIndex(fakeES(t, reply, &calls), "projects")
	require.NoError(t, x.EnsureIndex(context.Background()))

	require.Len(t, calls, 2)
	assert.Equal(t, http.MethodPut, calls[1].method)
	assert.Equal(t, "/projects", calls[1].path)
	props := calls[1].body["mappings"].(map[string]any)["properties"].(map[string]any)
	assert.Equal(t, "keyword", props["name_lower"].(map[string]any)["type"])
}

func TestEnsureIndexChecksExistingMapping(t *testing.T) {
	var calls []esCall
	x := NewProjectIndex(fakeES(t, ok(http.StatusOK), &calls), "projects")
	require.NoError(t, x.EnsureIndex(context.Background()))
	assert.Equal(t, "/projects/_mapping", calls[len(calls)-1].path)

	text := func(method, path string) (int, string) {
		if strings.HasSuffix(path, "/_mapping") {
			return http.StatusOK, `{"projects":{"mappings":{"properties":{"name_lower":{"type":"text"}}}}}`
		}
		return ok(http.StatusOK)(method, path)
	}
	x = NewProjectIndex(fakeES(t, text, &calls), "projects")
	assert.ErrorIs(t, x.EnsureIndex(context.Background()), ErrMappingConflict)
}

func TestProjectIndexRoundTrip(t *testing.T) {
	ctx := context.Background()
	var calls []esCall
	es := fakeES(t, ok(http.StatusOK), &calls)
	require.NoError(t, helpers.PingES(ctx, es))

	x := NewProjectIndex(es, "projects")
	p := &entity.Project{ID: "p1", Name: "Website Revamp", Status: entity.StatusActive, Tags: []string{"web"}}
	require.NoError(t, x.Index(ctx, p))

	last := calls[len(calls)-1]
	assert.Equal(t, http.MethodPut, last.method)
	assert.Equal(t, "/projects/_doc/p1", last.path)
	assert.Equal(t, "website revamp", last.body["name_lower"])

	ids, err := x.Search(ctx, "Site Rev")
	require.NoError(t, err)
	assert.Equal(t, []string{"p1", "p2"}, ids)
	last = calls[len(calls)-1]
	assert.Equal(t, "/projects/_search", last.path)
	assert.Contains(t, last.raw, `"*site rev*"`)

	require.NoError(t, x.Delete(ctx, "p1"))
	assert.Equal(t, http.MethodDelete, calls[len(calls)-1].method)
}

func TestIndexAll(t *testing.T) {
	ctx := context.Background()
	var calls []esCall
	x := NewProjectIndex(fakeES(t, ok(http.StatusOK), &calls), "projects")

	require.NoError(t, x.IndexAll(ctx, nil))
	assert.Empty(t, calls, "nothing to backfill")

	ps := []*entity.Project{{ID: "p1", Name: "Website Revamp"}, {ID: "p2", Name: "Mobile App"}}
	require.NoError(t, x.IndexAll(ctx, ps))
	require.Len(t, calls, 1)
	assert.Equal(t, "/projects/_bulk", calls[0].path)

	var lines []string
	sc := bufio.NewScanner(strings.NewReader(calls[0].raw))
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	require.Len(t, lines, 4)
	assert.JSONEq(t, `{"index":{"_id":"p1"}}`, lines[0])
	assert.Contains(t, lines[1], `"name_lower":"website revamp"`)
	assert.JSONEq(t, `{"index":{"_id":"p2"}}`, lines[2])

	rejected := func(_, _ string) (int, string) { return http.StatusOK, `{"errors":true,"items":[]}` }
	x = NewProjectIndex(fakeES(t, rejected, &calls), "projects")
	assert.Error(t, x.IndexAll(ctx, ps))
}

func TestProjectIndexErrors(t *testing.T) {
	ctx := context.Background()
	var calls []esCall
	x := NewProjectIndex(fakeES(t, ok(http.StatusServiceUnavailable), &calls), "projects")

	_, err := x.Search(ctx, "web")
	assert.ErrorContains(t, err, "es search")
	assert.Len(t, calls, 1, "no retries")

	assert.Error(t, x.Index(ctx, &entity.Project{ID: "p1", Name: "Web"}))
}

func TestProjectIndexDeleteMissing(t *testing.T) {
	var calls []esCall
	x := NewProjectIndex(fakeES(t, ok(http.StatusNotFound), &calls), "projects")
	assert.NoError(t, x.Delete(context.Background(), "gone"))
}
