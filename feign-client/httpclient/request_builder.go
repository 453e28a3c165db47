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
	"net/http"
	"net/url"
	"strings"

	"github.com/palantir/go-feign-runtime/feign-contract/errors"
	"github.com/palantir/go-feign-runtime/feign-contract/useragent"
	"github.com/palantir/witchcraft-go-tracing/wtracing"
)

const traceIDHeaderKey = "X-B3-TraceId"

type requestBuilder struct {
	method         string
	path           string
	headers        http.Header
	query          url.Values
	bodyMiddleware *bodyMiddleware

	middlewares  []Middleware
	configureCtx []func(context.Context) context.Context
}

type RequestParam interface {
	apply(*requestBuilder) error
}

type requestParamFunc func(*requestBuilder) error

func (f requestParamFunc) apply(b *requestBuilder) error {
	return f(b)
}

// newRequest returns the request for one attempt against baseURL and the middlewares that wrap only that request.
func (c *clientImpl) newRequest(ctx context.Context, baseURL string, params ...RequestParam) (*http.Request, []Middleware, error) {
	b := &requestBuilder{
		headers:        c.initializeRequestHeaders(ctx),
		query:          make(url.Values),
		bodyMiddleware: &bodyMiddleware{bufferPool: c.bufferPool},
	}
	for _, p := range params {
		if p == nil {
			continue
		}
		if err := p.apply(b); err != nil {
			return nil, nil, err
		}
	}
	for _, configure := range b.configureCtx {
		ctx = configure(ctx)
	}
	if b.method == "" {
		return nil, nil, errors.NewError(errors.BindingInvalidTemplate,
			errors.SafeParam("reason", "use WithRequestMethod() to specify the HTTP method"))
	}

	req, err := http.NewRequestWithContext(ctx, b.method, joinURL(baseURL, b.path), nil)
	if err != nil {
		return nil, nil, errors.WrapWithNewError(err, errors.BindingInvalidArgument,
			errors.SafeParam("reason", "failed to build HTTP request"),
			errors.UnsafeParam("path", b.path))
	}
	req.Header = b.headers
	if q := b.query.Encode(); q != "" {
		req.URL.RawQuery = q
	}
	return req, append(b.middlewares, b.bodyMiddleware), nil
}

func (c *clientImpl) initializeRequestHeaders(ctx context.Context) http.Header {
	headers := make(http.Header)
	if c.userAgent != "" {
		headers.Set(useragent.Header, c.userAgent)
	}
	if c.propagateTraceHeaders == nil || c.propagateTraceHeaders.CurrentBool() {
		if traceID := wtracing.TraceIDFromContext(ctx); traceID != "" {
			headers.Set(traceIDHeaderKey, string(traceID))
		}
	}
	return headers
}

// joinURL appends path to baseURL so that exactly one slash separates them. Path escaping is the caller's job.
func joinURL(baseURL, path string) string {
	if path == "" {
		return baseURL
	}
	return strings.TrimRight(baseURL, "/") + "/" + strings.TrimLeft(path, "/")
}
