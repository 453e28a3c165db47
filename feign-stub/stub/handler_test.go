// Copyright (c) 2026 Palantir Technologies. All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package stub_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/palantir/go-feign-runtime/feign-client/httpclient"
	"github.com/palantir/go-feign-runtime/feign-contract/codecs"
	"github.com/palantir/go-feign-runtime/feign-stub/stub"
	"github.com/palantir/witchcraft-go-logging/wlog"
	"github.com/palantir/witchcraft-go-logging/wlog/svclog/svc1log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStubServer(t *testing.T, contracts []stub.Contract, storeOpts []stub.StoreOption, handlerOpts ...stub.HandlerOption) (*httptest.Server, *stub.Store) {
	store, err := stub.NewStore(contracts, storeOpts...)
	require.NoError(t, err)
	handler, err := stub.NewHandler(store, handlerOpts...)
	require.NoError(t, err)
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server, store
}

func do(t *testing.T, method, url, body string, header http.Header) (int, string) {
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	for k, v := range header {
		req.Header[k] = v
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() {
		_ = resp.Body.Close()
	}()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(data)
}

func jsonResponse(status int, body interface{}) stub.Response {
	return stub.Response{Status: status, Headers: map[string]string{"Content-Type": "application/json"}, Body: body}
}

func TestHandler_FirstDeclaredWins(t *testing.T) {
	var logBuf bytes.Buffer
	logger := svc1log.NewFromCreator(&logBuf, wlog.DebugLevel, wlog.NewJSONMarshalLoggerProvider().NewLeveledLogger, svc1log.Origin(""))
	server, store := newStubServer(t, []stub.Contract{
		{Name: "specific", Request: stub.Request{Method: "GET", URL: "/users/42"}, Response: jsonResponse(200, map[string]interface{}{"winner": "specific"})},
		{Name: "pattern", Request: stub.Request{Method: "GET", URLPattern: `/users/\d+`}, Response: jsonResponse(200, map[string]interface{}{"winner": "pattern"})},
	}, nil, stub.WithLogger(logger))

	for i := 0; i < 3; i++ {
		status, body := do(t, http.MethodGet, server.URL+"/users/42", "", nil)
		assert.Equal(t, http.StatusOK, status)
		assert.JSONEq(t, `{"winner":"specific"}`, body)
	}
	status, body := do(t, http.MethodGet, server.URL+"/users/7", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"winner":"pattern"}`, body)

	assert.Equal(t, map[string]stub.State{"specific": stub.Matched, "pattern": stub.Matched}, store.States())
	assert.Contains(t, logBuf.String(), "Request also matched contracts declared later")
	assert.Empty(t, store.NoMatches())
}

func TestHandler_FirstDeclaredWinsUnderConcurrency(t *testing.T) {
	server, _ := newStubServer(t, []stub.Contract{
		{Name: "first", Request: stub.Request{Method: "GET", URL: "/x"}, Response: stub.Response{Body: "first"}},
		{Name: "second", Request: stub.Request{Method: "GET", URL: "/x"}, Response: stub.Response{Body: "second"}},
	}, nil)

	var wg sync.WaitGroup
	bodies := make([]string, 20)
	for i := range bodies {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			resp, err := http.Get(server.URL + "/x")
			if !assert.NoError(t, err) {
				return
			}
			defer func() {
				_ = resp.Body.Close()
			}()
			data, _ := io.ReadAll(resp.Body)
			bodies[i] = string(data)
		}(i)
	}
	wg.Wait()
	for _, b := range bodies {
		assert.Equal(t, "first", b)
	}
}

func TestHandler_SingleUse(t *testing.T) {
	server, store := newStubServer(t, []stub.Contract{
		{Name: "create once", SingleUse: true, Request: stub.Request{Method: "POST", URL: "/users"}, Response: stub.Response{Status: 201}},
	}, nil)
	assert.Equal(t, stub.Unmatched, store.States()["create once"])

	status, _ := do(t, http.MethodPost, server.URL+"/users", "", nil)
	assert.Equal(t, http.StatusCreated, status)
	assert.Equal(t, stub.Consumed, store.States()["create once"])

	status, body := do(t, http.MethodPost, server.URL+"/users", "", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Contains(t, body, "Contract:NoMatch")
	assert.Contains(t, body, "state:Consumed")

	noMatches := store.NoMatches()
	require.Len(t, noMatches, 1)
	assert.Equal(t, "/users", noMatches[0].Path)
	require.Len(t, noMatches[0].ClosestMatches, 1)
	assert.Equal(t, []string{"state:Consumed"}, noMatches[0].ClosestMatches[0].Failed)

	store.Reset()
	assert.Empty(t, store.NoMatches())
	status, _ = do(t, http.MethodPost, server.URL+"/users", "", nil)
	assert.Equal(t, http.StatusCreated, status)
}

func TestHandler_SingleUseUnderConcurrency(t *testing.T) {
	server, store := newStubServer(t, []stub.Contract{
		{
			Name:      "create once",
			SingleUse: true,
			Request:   stub.Request{Method: "POST", URL: "/users"},
			Response:  stub.Response{Status: 201, FixedDelayMilliseconds: 50},
		},
	}, nil)

	const n = 20
	var (
		wg       sync.WaitGroup
		statuses = make([]int, n)
		bodies   = make([]string, n)
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			resp, err := http.Post(server.URL+"/users", "application/json", nil)
			if !assert.NoError(t, err) {
				return
			}
			defer func() {
				_ = resp.Body.Close()
			}()
			data, _ := io.ReadAll(resp.Body)
			statuses[i] = resp.StatusCode
			bodies[i] = string(data)
		}(i)
	}
	wg.Wait()

	created := 0
	for i, status := range statuses {
		if status == http.StatusCreated {
			created++
			continue
		}
		assert.Equal(t, http.StatusNotFound, status)
		assert.Contains(t, bodies[i], "state:")
	}
	assert.Equal(t, 1, created)
	assert.Equal(t, stub.Consumed, store.States()["create once"])
	assert.Len(t, store.NoMatches(), n-1)
}

func TestHandler_RejectsOversizedBody(t *testing.T) {
	server, store := newStubServer(t, []stub.Contract{
		{Name: "upload", Request: stub.Request{Method: "POST", URL: "/upload"}, Response: stub.Response{Status: 204}},
	}, nil)

	status, body := do(t, http.MethodPost, server.URL+"/upload", strings.Repeat("a", 10<<20+1), nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, body, "Default:InvalidArgument")
	assert.Empty(t, store.NoMatches())

	status, _ = do(t, http.MethodPost, server.URL+"/upload", strings.Repeat("a", 10<<20), nil)
	assert.Equal(t, http.StatusNoContent, status)
}

func TestHandler_NoMatchDiagnostics(t *testing.T) {
	server, store := newStubServer(t, []stub.Contract{
		{Name: "a", Request: stub.Request{Method: "GET", URL: "/users/1", Headers: map[string]string{"X-A": "a"}}},
		{Name: "b", Request: stub.Request{Method: "GET", URL: "/users/2", Headers: map[string]string{"X-B": "b"}}},
		{Name: "c", Request: stub.Request{Method: "POST", URL: "/users/2"}},
		{Name: "d", Request: stub.Request{Method: "DELETE", URL: "/other"}},
		{Name: "e", Request: stub.Request{Method: "GET", URLPattern: `/users/\d+`, Headers: map[string]string{"X-E": "e"}}},
	}, nil)

	status, body := do(t, http.MethodGet, server.URL+"/users/2", "", nil)
	require.Equal(t, http.StatusNotFound, status)

	var errBody struct {
		ErrorCode  string `json:"errorCode"`
		ErrorName  string `json:"errorName"`
		Parameters struct {
			NoMatchID      string              `json:"noMatchId"`
			Method         string              `json:"method"`
			Path           string              `json:"path"`
			ClosestMatches []stub.PartialMatch `json:"closestMatches"`
		} `json:"parameters"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &errBody))
	assert.Equal(t, "NOT_FOUND", errBody.ErrorCode)
	assert.Equal(t, "Contract:NoMatch", errBody.ErrorName)
	assert.Equal(t, "GET", errBody.Parameters.Method)
	assert.Equal(t, "/users/2", errBody.Parameters.Path)
	assert.Equal(t, []stub.PartialMatch{
		{Contract: "b", Satisfied: 2, Failed: []string{"header:X-B"}},
		{Contract: "e", Satisfied: 2, Failed: []string{"header:X-E"}},
		{Contract: "a", Satisfied: 1, Failed: []string{"url", "header:X-A"}},
	}, errBody.Parameters.ClosestMatches)

	noMatches := store.NoMatches()
	require.Len(t, noMatches, 1)
	assert.Equal(t, errBody.Parameters.NoMatchID, noMatches[0].ID.String())
}

func TestHandler_StrictAmbiguity(t *testing.T) {
	server, _ := newStubServer(t, []stub.Contract{
		{Name: "one", Request: stub.Request{Method: "GET", URL: "/x"}},
		{Name: "two", Request: stub.Request{URLPattern: "/.*"}},
	}, []stub.StoreOption{stub.WithStrictAmbiguity()})

	status, body := do(t, http.MethodGet, server.URL+"/x", "", nil)
	assert.Equal(t, http.StatusConflict, status)
	assert.Contains(t, body, "Contract:AmbiguousMatch")

	status, _ = do(t, http.MethodGet, server.URL+"/y", "", nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestHandler_Predicates(t *testing.T) {
	server, _ := newStubServer(t, []stub.Contract{
		{
			Name: "search",
			Request: stub.Request{
				Method:  "POST",
				URL:     "/search?kind=repo",
				Headers: map[string]string{"X-Tenant": "acme"},
				Body:    map[string]interface{}{"filter": map[string]interface{}{"language": "go"}},
				BodyMatchers: []stub.BodyMatcher{
					{Path: "limit", Matches: `^[1-9][0-9]?$`},
				},
			},
			Response: stub.Response{Status: 200, Body: "ok"},
		},
	}, nil)
	jsonHeader := http.Header{"Content-Type": []string{"application/json"}, "X-Tenant": []string{"acme"}}

	for _, tc := range []struct {
		name   string
		url    string
		body   string
		header http.Header
		status int
	}{
		{name: "all predicates hold", url: "/search?kind=repo&page=2", body: `{"filter":{"language":"go","stars":5},"limit":10}`, header: jsonHeader, status: 200},
		{name: "missing header", url: "/search?kind=repo", body: `{"filter":{"language":"go"},"limit":10}`, header: http.Header{"Content-Type": []string{"application/json"}}, status: 404},
		{name: "wrong query", url: "/search?kind=user", body: `{"filter":{"language":"go"},"limit":10}`, header: jsonHeader, status: 404},
		{name: "body mismatch", url: "/search?kind=repo", body: `{"filter":{"language":"java"},"limit":10}`, header: jsonHeader, status: 404},
		{name: "body matcher fails", url: "/search?kind=repo", body: `{"filter":{"language":"go"},"limit":500}`, header: jsonHeader, status: 404},
		{name: "yaml body", url: "/search?kind=repo", body: "filter:\n  language: go\nlimit: 3\n", header: http.Header{"Content-Type": []string{"application/x-yaml"}, "X-Tenant": []string{"acme"}}, status: 200},
	} {
		t.Run(tc.name, func(t *testing.T) {
			status, _ := do(t, http.MethodPost, server.URL+tc.url, tc.body, tc.header)
			assert.Equal(t, tc.status, status)
		})
	}
}

func TestHandler_ResponseTemplating(t *testing.T) {
	server, _ := newStubServer(t, []stub.Contract{
		{
			Name:    "echo",
			Request: stub.Request{Method: "POST", URLPattern: "/orgs/[^/]+/users"},
			Response: stub.Response{
				Status:  201,
				Headers: map[string]string{"Location": "/orgs/${{path.1}}/users/${{body.id}}"},
				Body:    map[string]interface{}{"id": "${{body.id}}", "org": "${{path.1}}", "by": "${{header.X-User}}"},
			},
		},
	}, nil)

	req, err := http.NewRequest(http.MethodPost, server.URL+"/orgs/acme/users", strings.NewReader(`{"id":7}`))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User", "ada")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() {
		_ = resp.Body.Close()
	}()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "/orgs/acme/users/7", resp.Header.Get("Location"))
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.JSONEq(t, `{"id":7,"org":"acme","by":"ada"}`, string(data))
}

func TestHandler_Delay(t *testing.T) {
	server, _ := newStubServer(t, []stub.Contract{
		{Name: "slow", Request: stub.Request{URL: "/slow"}, Response: stub.Response{FixedDelayMilliseconds: 100}},
	}, nil)
	start := time.Now()
	status, _ := do(t, http.MethodGet, server.URL+"/slow", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.GreaterOrEqual(t, time.Since(start), 100*time.Millisecond)
}

func TestHandler_SnappyFramedRequest(t *testing.T) {
	server, _ := newStubServer(t, []stub.Contract{
		{
			Name:     "compressed event",
			Request:  stub.Request{Method: "POST", URL: "/events", Body: map[string]interface{}{"kind": "push"}},
			Response: stub.Response{Status: http.StatusAccepted},
		},
	}, nil)
	client, err := httpclient.NewClient(httpclient.WithBaseURLs([]string{server.URL}))
	require.NoError(t, err)

	resp, err := client.Post(context.Background(),
		httpclient.WithPath("/events"),
		httpclient.WithCompressedRequest(map[string]string{"kind": "push", "repo": "feign"}, codecs.JSON),
		httpclient.WithRawResponseBody())
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
}

func TestHandler_Metrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	server, _ := newStubServer(t, []stub.Contract{
		{Name: "ping", Request: stub.Request{URL: "/ping"}},
	}, nil, stub.WithMetrics(registry))

	do(t, http.MethodGet, server.URL+"/ping", "", nil)
	do(t, http.MethodGet, server.URL+"/ping", "", nil)
	do(t, http.MethodGet, server.URL+"/pong", "", nil)

	assert.Equal(t, 2.0, counterValue(t, registry, "ping", "matched"))
	assert.Equal(t, 1.0, counterValue(t, registry, "", "no_match"))

	// a second handler on the same registry shares the counter
	_, err := stub.NewHandler(&stub.Store{}, stub.WithMetrics(registry))
	require.NoError(t, err)
}

func counterValue(t *testing.T, registry *prometheus.Registry, contract, outcome string) float64 {
	families, err := registry.Gather()
	require.NoError(t, err)
	for _, family := range families {
		if family.GetName() != "stub_requests_total" {
			continue
		}
		for _, m := range family.GetMetric() {
			labels := map[string]string{}
			for _, pair := range m.GetLabel() {
				labels[pair.GetName()] = pair.GetValue()
			}
			if labels["contract"] == contract && labels["outcome"] == outcome {
				return m.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func TestStore_Replace(t *testing.T) {
	store, err := stub.NewStore([]stub.Contract{{Name: "a"}, {Name: "b"}})
	require.NoError(t, err)

	err = store.Replace([]stub.Contract{{Name: "c"}, {Name: "c"}})
	require.Error(t, err)
	assert.Len(t, store.Contracts(), 2)

	require.NoError(t, store.Replace([]stub.Contract{{Name: "c"}}))
	assert.Equal(t, map[string]stub.State{"c": stub.Unmatched}, store.States())
}
