package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nonibytes/unitsearch/unitsearch"
	"github.com/nonibytes/unitsearch/unitsearch/fields"
	"github.com/nonibytes/unitsearch/unitsearch/storage/memory"
)

const unitLines = `{"id": 1, "source": "hello", "state": "translated", "position": 10, "changed": "2019-03-01T00:00:00Z", "component": "core"}
{"id": 2, "source": "bar", "state": "needs-editing", "position": 100, "changed": "2019-04-01T00:00:00Z", "component": "core"}

{"id": 3, "source": "hello world", "state": "needs-editing", "position": 9, "changed": "2019-02-28T12:00:00Z", "component": "docs"}
`

func newTestServer(t *testing.T, opts Options) *httptest.Server {
	t.Helper()
	engineOpts := unitsearch.DefaultOptions()
	engineOpts.Now = func() time.Time { return time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC) }
	engines := map[string]*unitsearch.Engine{
		"units": unitsearch.NewEngine(fields.Units, memory.New(), engineOpts),
		"users": unitsearch.NewEngine(fields.Users, memory.New(), engineOpts),
	}
	ts := httptest.NewServer(New(engines, opts, nil))
	t.Cleanup(ts.Close)
	return ts
}

func loadUnits(t *testing.T, ts *httptest.Server) {
	t.Helper()
	resp, err := http.Post(ts.URL+"/api/units/records", "application/x-ndjson", strings.NewReader(unitLines))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]int
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, 3, body["applied"])
}

func getJSON(t *testing.T, rawURL string, out any) *http.Response {
	t.Helper()
	resp, err := http.Get(rawURL)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

func searchURL(ts *httptest.Server, params url.Values) string {
	return ts.URL + "/api/units/search?" + params.Encode()
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

func TestSearch(t *testing.T) {
	ts := newTestServer(t, Options{})
	loadUnits(t, ts)

	var res unitsearch.SearchResult
	resp := getJSON(t, searchURL(ts, url.Values{"q": {"source:hello"}}), &res)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
	assert.Equal(t, []int64{1, 3}, res.IDs)
	assert.Equal(t, 2, res.Total)
	assert.False(t, res.HasMore)

	resp = getJSON(t, searchURL(ts, url.Values{"q": {"state:needs-editing"}, "records": {"true"}}), &res)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, res.Records, 2)
	assert.Equal(t, "bar", res.Records[0].Strings["source"])
}

func TestSearchPaging(t *testing.T) {
	ts := newTestServer(t, Options{})
	loadUnits(t, ts)

	params := url.Values{"q": {""}, "sort": {"position"}, "limit": {"2"}}
	var first unitsearch.SearchResult
	getJSON(t, searchURL(ts, params), &first)
	assert.Equal(t, []int64{3, 1}, first.IDs)
	require.True(t, first.HasMore)
	require.NotEmpty(t, first.NextToken)

	params.Set("token", first.NextToken)
	var second unitsearch.SearchResult
	getJSON(t, searchURL(ts, params), &second)
	assert.Equal(t, []int64{2}, second.IDs)
	assert.False(t, second.HasMore)

	// a token is bound to its query
	params.Set("q", "source:hello")
	var er errorResponse
	resp := getJSON(t, searchURL(ts, params), &er)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "cursor", er.Error.Kind)
}

func TestSearchErrors(t *testing.T) {
	ts := newTestServer(t, Options{})

	tests := []struct {
		query string
		kind  string
	}{
		{"bogus:value", "unknown_field"},
		{`source:"unterminated`, "lex"},
		{"position:abc", "coercion"},
		{"(state:translated", "parse"},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			var er errorResponse
			resp := getJSON(t, searchURL(ts, url.Values{"q": {tt.query}}), &er)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, tt.kind, er.Error.Kind)
			assert.NotNil(t, er.Error.Span)
		})
	}

	var er errorResponse
	resp := getJSON(t, searchURL(ts, url.Values{"limit": {"-3"}}), &er)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "bad_request", er.Error.Kind)
}

func TestUnknownKind(t *testing.T) {
	ts := newTestServer(t, Options{})
	var er errorResponse
	resp := getJSON(t, ts.URL+"/api/projects/search?q=x", &er)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "not_found", er.Error.Kind)
}

func TestExplainAndFields(t *testing.T) {
	ts := newTestServer(t, Options{})

	var ex unitsearch.Explanation
	resp := getJSON(t, ts.URL+"/api/units/explain?"+url.Values{"q": {"source:hello"}}.Encode(), &ex)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, `(source contains "hello")`, ex.Predicate)
	assert.Empty(t, ex.SQL)

	var fl struct {
		Fields []struct {
			Field string `json:"field"`
		} `json:"fields"`
	}
	getJSON(t, ts.URL+"/api/users/fields", &fl)
	require.NotEmpty(t, fl.Fields)
	assert.Equal(t, "id", fl.Fields[0].Field)
}

func TestFacetsStatsDelete(t *testing.T) {
	ts := newTestServer(t, Options{})
	loadUnits(t, ts)

	var facets struct {
		Values []struct {
			Value string `json:"value"`
			Count int    `json:"count"`
		} `json:"values"`
	}
	resp := getJSON(t, ts.URL+"/api/units/facets?field=component", &facets)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, facets.Values, 2)
	assert.Equal(t, "core", facets.Values[0].Value)
	assert.Equal(t, 2, facets.Values[0].Count)

	var st struct {
		Count uint64  `json:"count"`
		Max   float64 `json:"max"`
	}
	resp = getJSON(t, ts.URL+"/api/units/stats?field=position", &st)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, uint64(3), st.Count)
	assert.Equal(t, 100.0, st.Max)

	req, err := http.NewRequest(http.MethodDelete, ts.URL+"/api/units/records/2", nil)
	require.NoError(t, err)
	dresp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	dresp.Body.Close()
	assert.Equal(t, http.StatusOK, dresp.StatusCode)

	var res unitsearch.SearchResult
	getJSON(t, searchURL(ts, url.Values{"q": {"component:core"}}), &res)
	assert.Equal(t, []int64{1}, res.IDs)
}

func TestPutRejectsBadDocument(t *testing.T) {
	ts := newTestServer(t, Options{})
	resp, err := http.Post(ts.URL+"/api/units/records", "application/x-ndjson",
		strings.NewReader(`{"id": 1, "source": "ok"}`+"\n"+`{"source": "no id"}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var body struct {
		Line int `json:"line"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, 2, body.Line)
}

func TestRateLimit(t *testing.T) {
	ts := newTestServer(t, Options{RateLimit: 0.001, Burst: 1})

	resp := getJSON(t, ts.URL+"/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp = getJSON(t, ts.URL+"/health", nil)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t, Options{})
	getJSON(t, ts.URL+"/health", nil)

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "unitsearch_http_requests_total")
}
