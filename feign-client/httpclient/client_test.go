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

package httpclient

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/palantir/go-feign-runtime/feign-contract/codecs"
	"github.com/palantir/go-feign-runtime/feign-contract/errors"
	"github.com/palantir/pkg/bytesbuffers"
	"github.com/palantir/pkg/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type user struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

func TestClient_JSONRoundTrip(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
		assert.Equal(t, "/api/users/42", req.URL.Path)
		assert.Equal(t, "full", req.URL.Query().Get("view"))
		assert.Equal(t, "abc", req.Header.Get("X-Request-Tag"))
		assert.Contains(t, req.Header.Get("User-Agent"), "users/0.0.0")
		assert.Equal(t, "application/json", req.Header.Get("Accept"))
		rw.Header().Set("Content-Type", "application/json")
		_, _ = fmt.Fprint(rw, `{"id":42,"name":"Ada"}`)
	}))
	defer server.Close()

	client, err := NewClient(WithServiceName("users"), WithBaseURLs([]string{server.URL + "/api/"}))
	require.NoError(t, err)

	var out user
	resp, err := client.Get(context.Background(),
		WithPath("/users/42"),
		WithQueryValues(url.Values{"view": []string{"full"}}),
		WithHeader("X-Request-Tag", "abc"),
		WithJSONResponse(&out))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, user{ID: 42, Name: "Ada"}, out)
}

func TestClient_RequestBody(t *testing.T) {
	for _, tc := range []struct {
		name   string
		param  RequestParam
		decode func(req *http.Request) (user, error)
		params []ClientParam
	}{
		{
			name:  "json",
			param: WithJSONRequest(user{ID: 1, Name: "Ada"}),
			decode: func(req *http.Request) (user, error) {
				var u user
				return u, codecs.JSON.Decode(req.Body, &u)
			},
		},
		{
			name:   "json with buffer pool",
			param:  WithJSONRequest(user{ID: 2, Name: "Grace"}),
			params: []ClientParam{WithBytesBufferPool(bytesbuffers.NewSizedPool(1, 64))},
			decode: func(req *http.Request) (user, error) {
				var u user
				return u, codecs.JSON.Decode(req.Body, &u)
			},
		},
		{
			name:  "snappy framed",
			param: WithCompressedRequest(user{ID: 3, Name: "Edsger"}, codecs.JSON),
			decode: func(req *http.Request) (user, error) {
				if req.Header.Get("Content-Encoding") != codecs.ContentEncodingSnappyFramed {
					return user{}, fmt.Errorf("unexpected encoding %q", req.Header.Get("Content-Encoding"))
				}
				var u user
				return u, codecs.SnappyFramed(codecs.JSON).Decode(req.Body, &u)
			},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			var received atomic.Pointer[user]
			server := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
				u, err := tc.decode(req)
				if err != nil {
					rw.WriteHeader(http.StatusBadRequest)
					return
				}
				received.Store(&u)
				rw.WriteHeader(http.StatusNoContent)
			}))
			defer server.Close()

			client, err := NewClient(append(tc.params, WithBaseURLs([]string{server.URL}))...)
			require.NoError(t, err)
			_, err = client.Post(context.Background(), WithPath("/users"), tc.param)
			require.NoError(t, err)
			require.NotNil(t, received.Load())
		})
	}
}

func TestClient_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
		switch req.URL.Path {
		case "/plain":
			rw.WriteHeader(http.StatusNotFound)
			_, _ = fmt.Fprint(rw, "nothing here")
		case "/conjure":
			errors.WriteErrorResponse(rw, errors.NewError(errors.ContractNoMatch, errors.SafeParam("path", "/conjure")))
		}
	}))
	defer server.Close()

	client, err := NewClient(WithBaseURLs([]string{server.URL}))
	require.NoError(t, err)

	t.Run("plain body", func(t *testing.T) {
		resp, err := client.Get(context.Background(), WithPath("/plain"))
		assert.Nil(t, resp)
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ResponseNonSuccessStatus))
		code, ok := StatusCodeFromError(err)
		require.True(t, ok)
		assert.Equal(t, http.StatusNotFound, code)
	})
	t.Run("serialized error body", func(t *testing.T) {
		_, err := client.Get(context.Background(), WithPath("/conjure"))
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ResponseNonSuccessStatus))
		assert.True(t, errors.IsType(err, errors.ContractNoMatch))
		code, ok := StatusCodeFromError(err)
		require.True(t, ok)
		assert.Equal(t, http.StatusNotFound, code)
	})
	t.Run("rest errors disabled", func(t *testing.T) {
		raw, err := NewClient(WithBaseURLs([]string{server.URL}), WithDisableRestErrors())
		require.NoError(t, err)
		resp, err := raw.Get(context.Background(), WithPath("/plain"))
		require.NoError(t, err)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestClient_Retry(t *testing.T) {
	fastRetry := func(maxAttempts int) ClientParam {
		return WithRetryPolicy(RetryPolicy{MaxAttempts: maxAttempts, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond})
	}
	for _, tc := range []struct {
		name          string
		statuses      []int
		params        []ClientParam
		expectErr     bool
		expectedCalls int32
	}{
		{name: "no retry by default", statuses: []int{503, 200}, expectErr: true, expectedCalls: 1},
		{name: "retries 5xx", statuses: []int{503, 500, 200}, params: []ClientParam{fastRetry(3)}, expectedCalls: 3},
		{name: "retries 429", statuses: []int{429, 200}, params: []ClientParam{fastRetry(3)}, expectedCalls: 2},
		{name: "does not retry 4xx", statuses: []int{400, 200}, params: []ClientParam{fastRetry(3)}, expectErr: true, expectedCalls: 1},
		{name: "gives up after max attempts", statuses: []int{503, 503, 503, 200}, params: []ClientParam{fastRetry(2)}, expectErr: true, expectedCalls: 2},
		{name: "max attempts param", statuses: []int{502, 200}, params: []ClientParam{WithMaxAttempts(2)}, expectedCalls: 2},
	} {
		t.Run(tc.name, func(t *testing.T) {
			var calls atomic.Int32
			server := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
				n := calls.Add(1)
				rw.WriteHeader(tc.statuses[n-1])
			}))
			defer server.Close()

			client, err := NewClient(append(tc.params, WithBaseURLs([]string{server.URL}))...)
			require.NoError(t, err)
			_, err = client.Get(context.Background())
			if tc.expectErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tc.expectedCalls, calls.Load())
		})
	}
}

func TestClient_TransportErrors(t *testing.T) {
	t.Run("connection refused", func(t *testing.T) {
		listener, err := net.Listen("tcp", "127.0.0.1:0")
		require.NoError(t, err)
		addr := listener.Addr().String()
		require.NoError(t, listener.Close())

		client, err := NewClient(WithBaseURLs([]string{"http://" + addr}))
		require.NoError(t, err)
		_, err = client.Get(context.Background())
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.TransportConnectionRefused), "%v", err)
	})
	t.Run("client timeout", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
			select {
			case <-req.Context().Done():
			case <-time.After(time.Second):
			}
		}))
		defer server.Close()

		client, err := NewClient(WithBaseURLs([]string{server.URL}), WithHTTPTimeout(20*time.Millisecond))
		require.NoError(t, err)
		_, err = client.Get(context.Background())
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.TransportTimeout), "%v", err)
	})
	t.Run("context deadline", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
			select {
			case <-req.Context().Done():
			case <-time.After(time.Second):
			}
		}))
		defer server.Close()

		client, err := NewClient(WithBaseURLs([]string{server.URL}))
		require.NoError(t, err)
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		_, err = client.Get(ctx)
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.TransportTimeout), "%v", err)
	})
}

func TestClient_ConnectionPoolBoundsInFlightCalls(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
		entered <- struct{}{}
		<-release
		rw.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client, err := NewClient(WithBaseURLs([]string{server.URL}), WithMaxConnsPerHost(1))
	require.NoError(t, err)

	firstErr := make(chan error, 1)
	go func() {
		_, err := client.Get(context.Background())
		firstErr <- err
	}()
	<-entered

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = client.Get(ctx)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.TransportTimeout), "%v", err)

	close(release)
	require.NoError(t, <-firstErr)

	// the slot is free again once the first response was read
	go func() { <-entered }()
	_, err = client.Get(context.Background())
	require.NoError(t, err)
}

func TestClient_RecoversPanics(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {}))
	defer server.Close()

	client, err := NewClient(
		WithBaseURLs([]string{server.URL}),
		WithMiddleware(MiddlewareFunc(func(req *http.Request, next http.RoundTripper) (*http.Response, error) {
			panic("middleware exploded")
		})))
	require.NoError(t, err)
	_, err = client.Get(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "recovered panic")
}

func TestClient_Metrics(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {}))
	defer server.Close()

	registry := metrics.NewRootMetricsRegistry()
	ctx := metrics.WithRegistry(context.Background(), registry)
	client, err := NewClient(WithBaseURLs([]string{server.URL}), WithServiceName("users"))
	require.NoError(t, err)
	_, err = client.Get(ctx, WithRPCMethodName("GetUser"))
	require.NoError(t, err)

	found := false
	registry.Each(func(name string, tags metrics.Tags, _ metrics.MetricVal) {
		if name != MetricClientResponse {
			return
		}
		found = true
		tagMap := map[string]string{}
		for _, tag := range tags {
			tagMap[tag.Key()] = tag.Value()
		}
		assert.Equal(t, "users", tagMap[MetricTagServiceName])
		assert.Equal(t, "2xx", tagMap["family"])
		assert.Equal(t, strings.ToLower("GetUser"), strings.ToLower(tagMap["method-name"]))
	})
	assert.True(t, found)
}

func TestClient_NoURIs(t *testing.T) {
	client, err := NewClient()
	require.NoError(t, err)
	_, err = client.Get(context.Background())
	assert.EqualError(t, err, "httpclient: no base URIs are configured")
}

func TestClient_RateLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {}))
	defer server.Close()

	client, err := NewClient(WithBaseURLs([]string{server.URL}), WithRateLimit(1, 1))
	require.NoError(t, err)
	_, err = client.Get(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = client.Get(ctx)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.TransportTimeout), "%v", err)
}
