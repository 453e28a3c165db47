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

	"github.com/palantir/go-feign-runtime/feign-client/clienterrors"
	"github.com/palantir/go-feign-runtime/feign-client/httpclient/internal"
	"github.com/palantir/go-feign-runtime/feign-contract/errors"
	"github.com/palantir/pkg/bytesbuffers"
	"github.com/palantir/pkg/refreshable"
	"github.com/palantir/pkg/retry"
	werror "github.com/palantir/witchcraft-go-error"
	"github.com/palantir/witchcraft-go-logging/wlog/svclog/svc1log"
)

// A Client executes requests to a configured service.
//
// The Get/Post/Put/Delete methods are for conveniently setting the method type and calling Do().
type Client interface {
	// Do executes a full request. Any input or output should be specified via params.
	// Unless WithRawResponseBody is used, the response body is fully read and closed by the time Do returns.
	//
	// A response with StatusCode >= 400 yields a nil response and a Response:NonSuccessStatus error.
	// Use StatusCodeFromError(err) to retrieve the code from the error
	// and WithDisableRestErrors() to disable this behavior on your client.
	Do(ctx context.Context, params ...RequestParam) (*http.Response, error)

	Get(ctx context.Context, params ...RequestParam) (*http.Response, error)
	Post(ctx context.Context, params ...RequestParam) (*http.Response, error)
	Put(ctx context.Context, params ...RequestParam) (*http.Response, error)
	Delete(ctx context.Context, params ...RequestParam) (*http.Response, error)
}

type clientImpl struct {
	serviceName string
	transport   http.RoundTripper
	timeout     refreshable.Duration
	uris        refreshable.StringSlice
	retry       refreshable.Refreshable // contains RetryPolicy

	propagateTraceHeaders refreshable.Bool
	userAgent             string
	bufferPool            bytesbuffers.Pool
}

func (c *clientImpl) Get(ctx context.Context, params ...RequestParam) (*http.Response, error) {
	return c.Do(ctx, append(params, WithRequestMethod(http.MethodGet))...)
}

func (c *clientImpl) Post(ctx context.Context, params ...RequestParam) (*http.Response, error) {
	return c.Do(ctx, append(params, WithRequestMethod(http.MethodPost))...)
}

func (c *clientImpl) Put(ctx context.Context, params ...RequestParam) (*http.Response, error) {
	return c.Do(ctx, append(params, WithRequestMethod(http.MethodPut))...)
}

func (c *clientImpl) Delete(ctx context.Context, params ...RequestParam) (*http.Response, error) {
	return c.Do(ctx, append(params, WithRequestMethod(http.MethodDelete))...)
}

func (c *clientImpl) Do(ctx context.Context, params ...RequestParam) (*http.Response, error) {
	uris := c.uris.CurrentStringSlice()
	if len(uris) == 0 {
		return nil, werror.ErrorWithContextParams(ctx, "httpclient: no base URIs are configured",
			werror.SafeParam("serviceName", c.serviceName))
	}
	policy := c.retry.Current().(RetryPolicy)
	retrier := internal.NewRequestRetrier(retry.Start(ctx, policy.options()...), policy.MaxAttempts)

	for offset := 0; ; offset++ {
		uri := uris[offset%len(uris)]
		resp, replayable, err := c.doOnce(ctx, uri, params...)
		if err == nil {
			return resp, nil
		}
		if !retrier.Next(replayable && isRetryable(err)) {
			return nil, err
		}
		svc1log.FromContext(ctx).Debug("Retrying failed request",
			svc1log.SafeParam("serviceName", c.serviceName),
			svc1log.SafeParam("attempt", retrier.AttemptCount()),
			svc1log.Stacktrace(err))
	}
}

func (c *clientImpl) doOnce(ctx context.Context, baseURI string, params ...RequestParam) (*http.Response, bool, error) {
	req, middlewares, err := c.newRequest(ctx, baseURI, params...)
	if err != nil {
		return nil, false, err
	}
	replayable := true
	if body, ok := middlewares[len(middlewares)-1].(*bodyMiddleware); ok {
		replayable = body.replayable()
	}

	transport := c.transport
	for _, middleware := range middlewares {
		transport = wrapTransport(transport, middleware)
	}
	client := http.Client{Transport: transport, Timeout: c.timeout.CurrentDuration()}

	resp, respErr := client.Do(req)
	if respErr != nil {
		return nil, replayable, clienterrors.WrapClientError(req, unwrapURLError(respErr))
	}
	return resp, replayable, nil
}

// unwrapURLError converts a *url.Error to a werror. Errors from http.Client.Do are wrapped in *url.Error, which
// would hide the params and type of the underlying error.
func unwrapURLError(respErr error) error {
	urlErr, ok := respErr.(*url.Error)
	if !ok {
		return respErr
	}
	if _, typed := errors.FromError(urlErr.Err); typed {
		return urlErr.Err
	}
	params := []werror.Param{werror.SafeParam("requestMethod", urlErr.Op)}
	if parsedURL, _ := url.Parse(urlErr.URL); parsedURL != nil {
		params = append(params,
			werror.SafeParam("requestHost", parsedURL.Host),
			werror.UnsafeParam("requestPath", parsedURL.Path))
	}
	return werror.Wrap(urlErr.Err, "httpclient request failed", params...)
}
