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

package stub

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"

	"github.com/palantir/go-feign-runtime/feign-client/httpclient"
	"github.com/palantir/go-feign-runtime/feign-contract/codecs"
	"github.com/palantir/go-feign-runtime/feign-contract/mapper"
	werror "github.com/palantir/witchcraft-go-error"
	"github.com/palantir/witchcraft-go-logging/wlog/svclog/svc1log"
)

// Result is the verification outcome of one contract.
type Result struct {
	Contract string   `json:"contract"`
	Skipped  bool     `json:"skipped,omitempty"`
	Reason   string   `json:"reason,omitempty"`
	Failures []string `json:"failures,omitempty"`
}

// Passed reports whether the provider satisfied the contract.
func (r Result) Passed() bool {
	return !r.Skipped && len(r.Failures) == 0
}

// Report holds one Result per verified contract, in declaration order.
type Report []Result

// Err returns an error naming every failed contract, or nil.
func (r Report) Err() error {
	var failed []string
	for _, res := range r {
		if !res.Skipped && !res.Passed() {
			failed = append(failed, res.Contract)
		}
	}
	if len(failed) == 0 {
		return nil
	}
	return werror.Error("provider does not satisfy contracts", werror.SafeParam("failedContracts", failed))
}

// Verify replays the request of every contract against the provider behind client and checks the response status,
// the contract's response headers and its response body as a subset. Templated response values match anything.
// Contracts declared with urlPattern can not be replayed and are skipped.
//
// The client should be built with httpclient.WithDisableRestErrors so that error responses can be compared too.
func Verify(ctx context.Context, client httpclient.Client, contracts []Contract) (Report, error) {
	report := make(Report, 0, len(contracts))
	for i, c := range contracts {
		comp, err := compile(i, c)
		if err != nil {
			return nil, err
		}
		res := verifyOne(ctx, client, comp)
		if !res.Skipped && !res.Passed() {
			svc1log.FromContext(ctx).Info("Contract verification failed",
				svc1log.SafeParam("contract", res.Contract),
				svc1log.UnsafeParam("failures", res.Failures))
		}
		report = append(report, res)
	}
	return report, nil
}

// NewHandlerClient returns a client whose requests are served in-process by h, for verifying a provider without a
// listening server.
func NewHandlerClient(h http.Handler, params ...httpclient.ClientParam) (httpclient.Client, error) {
	serve := httpclient.MiddlewareFunc(func(req *http.Request, _ http.RoundTripper) (*http.Response, error) {
		if req.Body == nil {
			req = req.Clone(req.Context())
			req.Body = http.NoBody
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		resp := rec.Result()
		resp.Request = req
		return resp, nil
	})
	return httpclient.NewClient(append([]httpclient.ClientParam{
		httpclient.WithServiceName("contract-verifier"),
		httpclient.WithBaseURLs([]string{"http://in-process"}),
		httpclient.WithDisableRestErrors(),
		httpclient.WithMiddleware(serve),
	}, params...)...)
}

func verifyOne(ctx context.Context, client httpclient.Client, c *compiled) Result {
	res := Result{Contract: c.Name}
	if c.path == "" {
		res.Skipped = true
		res.Reason = "contract has no literal url"
		return res
	}
	method := c.Request.Method
	if method == "" {
		method = http.MethodGet
	}
	params := []httpclient.RequestParam{
		httpclient.WithRPCMethodName("VerifyContract"),
		httpclient.WithRequestMethod(method),
		httpclient.WithPath((&url.URL{Path: c.path}).EscapedPath()),
		httpclient.WithRawResponseBody(),
	}
	if len(c.query) > 0 {
		params = append(params, httpclient.WithQueryValues(c.query))
	}
	switch body := c.body.(type) {
	case nil:
	case string:
		params = append(params, httpclient.WithRawRequestBody(io.NopCloser(strings.NewReader(body))))
	default:
		params = append(params, httpclient.WithRequestBody(body, requestCodec(c.Request.Headers)))
	}
	for name, value := range c.Request.Headers {
		params = append(params, httpclient.WithHeader(name, value))
	}

	resp, err := client.Do(ctx, params...)
	if err != nil {
		if status, ok := httpclient.StatusCodeFromError(err); ok {
			if status != c.Response.Status {
				res.Failures = append(res.Failures, fmt.Sprintf("status: expected %d, got %d", c.Response.Status, status))
			}
			return res
		}
		res.Failures = append(res.Failures, "request failed: "+err.Error())
		return res
	}
	data, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if err != nil {
		res.Failures = append(res.Failures, "failed to read response body: "+err.Error())
		return res
	}

	if resp.StatusCode != c.Response.Status {
		res.Failures = append(res.Failures, fmt.Sprintf("status: expected %d, got %d", c.Response.Status, resp.StatusCode))
	}
	for _, name := range sortedKeys(c.Response.Headers) {
		want := c.Response.Headers[name]
		if isTemplated(want) {
			continue
		}
		if got := resp.Header.Get(name); got != want {
			res.Failures = append(res.Failures, fmt.Sprintf("header %s: expected %q, got %q", name, want, got))
		}
	}
	if c.Response.Body != nil && !matchesExpected(c.Response.Body, decodeResponse(resp.Header, data), string(data)) {
		res.Failures = append(res.Failures, "body: response does not contain the expected body")
	}
	return res
}

func requestCodec(headers map[string]string) codecs.Encoder {
	for name, value := range headers {
		if strings.EqualFold(name, "Content-Type") {
			if codec, err := codecs.ForContentType(value); err == nil {
				return codec
			}
		}
	}
	return codecs.JSON
}

func decodeResponse(header http.Header, data []byte) interface{} {
	codec := codecs.JSON
	if contentType := header.Get("Content-Type"); contentType != "" {
		negotiated, err := codecs.ForContentType(contentType)
		if err != nil || (negotiated != codecs.JSON && negotiated != codecs.YAML) {
			return nil
		}
		codec = negotiated
	}
	var tree interface{}
	if err := codec.Unmarshal(data, &tree); err != nil {
		return nil
	}
	return mapper.NormalizeTree(tree)
}

// matchesExpected is subset where templated strings match any value.
func matchesExpected(want, got interface{}, raw string) bool {
	switch w := want.(type) {
	case string:
		if isTemplated(w) {
			return true
		}
		if got == nil {
			return w == raw
		}
	case map[string]interface{}:
		g, ok := got.(map[string]interface{})
		if !ok {
			return false
		}
		for k, wv := range w {
			gv, ok := g[k]
			if !ok || !matchesExpected(wv, gv, "") {
				return false
			}
		}
		return true
	case []interface{}:
		g, ok := got.([]interface{})
		if !ok || len(g) != len(w) {
			return false
		}
		for i := range w {
			if !matchesExpected(w[i], g[i], "") {
				return false
			}
		}
		return true
	}
	return subset(want, got)
}

func isTemplated(s string) bool {
	return expressionRegex.MatchString(s)
}
