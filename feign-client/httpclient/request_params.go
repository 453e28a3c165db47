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
	"io"
	"net/url"
	"strings"

	"github.com/palantir/go-feign-runtime/feign-contract/codecs"
	"github.com/palantir/go-feign-runtime/feign-contract/errors"
)

// WithRPCMethodName names the bound method in the request context, like "GetUser". Metrics read it.
func WithRPCMethodName(name string) RequestParam {
	return requestParamFunc(func(b *requestBuilder) error {
		b.configureCtx = append(b.configureCtx, func(ctx context.Context) context.Context {
			return ContextWithRPCMethodName(ctx, name)
		})
		return nil
	})
}

// WithRequestMethod sets the HTTP method of the request, e.g. GET or POST.
func WithRequestMethod(method string) RequestParam {
	return requestParamFunc(func(b *requestBuilder) error {
		if method == "" {
			return errors.NewError(errors.BindingInvalidTemplate, errors.SafeParam("reason", "method can not be empty"))
		}
		b.method = strings.ToUpper(method)
		return nil
	})
}

// WithPath sets the already escaped path of the request. It is joined with the client's base URL.
func WithPath(path string) RequestParam {
	return requestParamFunc(func(b *requestBuilder) error {
		b.path = path
		return nil
	})
}

// WithPathf formats the path of the request.
func WithPathf(format string, args ...interface{}) RequestParam {
	return WithPath(fmt.Sprintf(format, args...))
}

// WithHeader sets a header on a request.
func WithHeader(key, value string) RequestParam {
	return requestParamFunc(func(b *requestBuilder) error {
		b.headers.Set(key, value)
		return nil
	})
}

// WithQueryValues adds query parameters to a request.
func WithQueryValues(query url.Values) RequestParam {
	return requestParamFunc(func(b *requestBuilder) error {
		for key, values := range query {
			for _, v := range values {
				b.query.Add(key, v)
			}
		}
		return nil
	})
}

// WithRequestMiddleware wraps only this request, inside the client's middlewares.
func WithRequestMiddleware(middleware Middleware) RequestParam {
	return requestParamFunc(func(b *requestBuilder) error {
		b.middlewares = append(b.middlewares, middleware)
		return nil
	})
}

// WithRequestBody encodes input with encoder as the request body.
//
//	input := api.CreateUser{Name: "Ada"}
//	resp, err := client.Do(..., WithRequestBody(input, codecs.JSON), ...)
func WithRequestBody(input interface{}, encoder codecs.Encoder) RequestParam {
	return requestParamFunc(func(b *requestBuilder) error {
		b.bodyMiddleware.requestInput = input
		b.bodyMiddleware.requestEncoder = encoder
		b.headers.Set("Content-Type", encoder.ContentType())
		return nil
	})
}

// WithRawRequestBody uses the provided reader as the request body. The body can not be replayed, so a call using it
// is attempted once.
func WithRawRequestBody(input io.ReadCloser) RequestParam {
	return requestParamFunc(func(b *requestBuilder) error {
		b.bodyMiddleware.requestInput = input
		b.bodyMiddleware.requestEncoder = nil
		b.headers.Set("Content-Type", codecs.Binary.ContentType())
		return nil
	})
}

// WithJSONRequest sets the request body to the input marshaled using the JSON codec.
func WithJSONRequest(input interface{}) RequestParam {
	return WithRequestBody(input, codecs.JSON)
}

// WithCompressedRequest encodes input with codec and compresses it with the snappy framing format.
func WithCompressedRequest(input interface{}, codec codecs.Codec) RequestParam {
	return requestParamFunc(func(b *requestBuilder) error {
		b.bodyMiddleware.requestInput = input
		b.bodyMiddleware.requestEncoder = codecs.SnappyFramed(codec)
		b.headers.Set("Content-Type", codec.ContentType())
		b.headers.Set("Content-Encoding", codecs.ContentEncodingSnappyFramed)
		return nil
	})
}

// WithResponseBody decodes the response body into output with decoder. An empty response leaves output unmodified.
//
//	var output api.User
//	resp, err := client.Do(..., WithResponseBody(&output, codecs.JSON), ...)
func WithResponseBody(output interface{}, decoder codecs.Decoder) RequestParam {
	return requestParamFunc(func(b *requestBuilder) error {
		b.bodyMiddleware.responseOutput = output
		b.bodyMiddleware.responseDecoder = decoder
		b.headers.Set("Accept", decoder.Accept())
		return nil
	})
}

// WithRawResponseBody returns the response without reading its body. The caller must close it.
func WithRawResponseBody() RequestParam {
	return requestParamFunc(func(b *requestBuilder) error {
		b.bodyMiddleware.rawOutput = true
		b.bodyMiddleware.responseOutput = nil
		b.bodyMiddleware.responseDecoder = nil
		b.headers.Set("Accept", codecs.Binary.Accept())
		return nil
	})
}

// WithJSONResponse unmarshals the response body using the JSON codec.
func WithJSONResponse(output interface{}) RequestParam {
	return WithResponseBody(output, codecs.JSON)
}
