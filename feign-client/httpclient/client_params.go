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
	"crypto/tls"
	"time"

	"github.com/palantir/go-feign-runtime/feign-contract/useragent"
	"github.com/palantir/pkg/bytesbuffers"
	"github.com/palantir/pkg/refreshable"
	werror "github.com/palantir/witchcraft-go-error"
	"golang.org/x/time/rate"
)

type ClientParam interface {
	apply(builder *clientBuilder) error
}

type clientParamFunc func(builder *clientBuilder) error

func (f clientParamFunc) apply(b *clientBuilder) error {
	return f(b)
}

// WithConfig applies a static ClientConfig. Use NewClientFromRefreshableConfig for configuration that changes.
func WithConfig(c ClientConfig) ClientParam {
	return clientParamFunc(func(b *clientBuilder) error {
		params, err := newValidatedClientParamsFromConfig(context.TODO(), c)
		if err != nil {
			return err
		}
		if params.ServiceName != "" {
			b.ServiceName = params.ServiceName
		}
		b.URIs = refreshable.NewStringSlice(refreshable.NewDefaultRefreshable(params.URIs))
		b.Timeout = refreshable.NewDuration(refreshable.NewDefaultRefreshable(params.Timeout))
		b.Retry = refreshable.NewDefaultRefreshable(params.Retry)
		b.Transport = refreshable.NewDefaultRefreshable(params.Transport)
		b.DisableMetrics = refreshable.NewBool(refreshable.NewDefaultRefreshable(params.DisableMetrics))
		if len(params.MetricsTags) != 0 {
			b.MetricsTagProviders = append(b.MetricsTagProviders, StaticTagsProvider(params.MetricsTags))
		}
		return nil
	})
}

// WithServiceName sets the value of the 'service-name' tag on client metrics and the client's User-Agent product.
func WithServiceName(serviceName string) ClientParam {
	return clientParamFunc(func(b *clientBuilder) error {
		b.ServiceName = serviceName
		return nil
	})
}

// WithBaseURLs sets the base URLs for every request. A path on a URL is prepended to the request path.
func WithBaseURLs(urls []string) ClientParam {
	return clientParamFunc(func(b *clientBuilder) error {
		b.URIs = refreshable.NewStringSlice(refreshable.NewDefaultRefreshable(urls))
		return nil
	})
}

// WithHTTPTimeout bounds a single attempt, including reading the response body.
func WithHTTPTimeout(timeout time.Duration) ClientParam {
	return clientParamFunc(func(b *clientBuilder) error {
		b.Timeout = refreshable.NewDuration(refreshable.NewDefaultRefreshable(timeout))
		return nil
	})
}

// WithRetryPolicy enables retries of transport failures, 429 and 5xx responses.
func WithRetryPolicy(policy RetryPolicy) ClientParam {
	return clientParamFunc(func(b *clientBuilder) error {
		if policy.MaxAttempts < 0 {
			return werror.Error("max attempts must not be negative", werror.SafeParam("maxAttempts", policy.MaxAttempts))
		}
		b.Retry = refreshable.NewDefaultRefreshable(policy)
		return nil
	})
}

// WithMaxAttempts keeps the configured backoff and changes only the attempt limit.
func WithMaxAttempts(maxAttempts int) ClientParam {
	return clientParamFunc(func(b *clientBuilder) error {
		if maxAttempts < 0 {
			return werror.Error("max attempts must not be negative", werror.SafeParam("maxAttempts", maxAttempts))
		}
		b.Retry = b.Retry.Map(func(i interface{}) interface{} {
			p := i.(RetryPolicy)
			p.MaxAttempts = maxAttempts
			return p
		})
		return nil
	})
}

// WithMiddleware adds middleware between the error decoder and the metrics middleware. The last one given is
// the outermost.
func WithMiddleware(middleware Middleware) ClientParam {
	return clientParamFunc(func(b *clientBuilder) error {
		b.Middlewares = append(b.Middlewares, middleware)
		return nil
	})
}

// WithErrorDecoder replaces the default decoder of responses with status >= 400.
func WithErrorDecoder(errorDecoder ErrorDecoder) ClientParam {
	return clientParamFunc(func(b *clientBuilder) error {
		b.ErrorDecoder = errorDecoder
		return nil
	})
}

// WithDisableRestErrors returns responses of any status to the caller instead of converting them to errors.
func WithDisableRestErrors() ClientParam {
	return WithErrorDecoder(nil)
}

// WithBytesBufferPool encodes request bodies into pooled buffers.
func WithBytesBufferPool(pool bytesbuffers.Pool) ClientParam {
	return clientParamFunc(func(b *clientBuilder) error {
		b.BytesBufferPool = pool
		return nil
	})
}

// WithDisablePanicRecovery lets panics raised by middleware propagate to the caller.
func WithDisablePanicRecovery() ClientParam {
	return clientParamFunc(func(b *clientBuilder) error {
		b.DisableRecovery = refreshable.NewBool(refreshable.NewDefaultRefreshable(true))
		return nil
	})
}

// WithDisableTraceHeaderPropagation stops the client from sending the X-B3-TraceId header.
func WithDisableTraceHeaderPropagation() ClientParam {
	return clientParamFunc(func(b *clientBuilder) error {
		b.PropagateTraceHeaders = refreshable.NewBool(refreshable.NewDefaultRefreshable(false))
		return nil
	})
}

// WithMetrics adds tag providers to the client.response timer.
func WithMetrics(tagProviders ...TagsProvider) ClientParam {
	return clientParamFunc(func(b *clientBuilder) error {
		b.MetricsTagProviders = append(b.MetricsTagProviders, tagProviders...)
		return nil
	})
}

// WithDisableMetrics stops the client from recording the client.response timer.
func WithDisableMetrics() ClientParam {
	return clientParamFunc(func(b *clientBuilder) error {
		b.DisableMetrics = refreshable.NewBool(refreshable.NewDefaultRefreshable(true))
		return nil
	})
}

// WithMaxConnsPerHost bounds open connections per host and in-flight calls. Calls beyond the bound wait for a free
// slot until their context ends.
func WithMaxConnsPerHost(maxConns int) ClientParam {
	return clientParamFunc(func(b *clientBuilder) error {
		if maxConns < 0 {
			return werror.Error("max conns must not be negative", werror.SafeParam("maxConns", maxConns))
		}
		b.Transport = b.Transport.Map(func(i interface{}) interface{} {
			p := i.(transportParams)
			p.MaxConnsPerHost = maxConns
			return p
		})
		return nil
	})
}

// WithTLSConfig sets the TLS configuration of the transport.
func WithTLSConfig(conf *tls.Config) ClientParam {
	return clientParamFunc(func(b *clientBuilder) error {
		b.Transport = b.Transport.Map(func(i interface{}) interface{} {
			p := i.(transportParams)
			if conf != nil {
				p.TLSConfig = conf.Clone()
			}
			return p
		})
		return nil
	})
}

// WithDisableHTTP2 keeps the transport on HTTP/1.1.
func WithDisableHTTP2() ClientParam {
	return clientParamFunc(func(b *clientBuilder) error {
		b.Transport = b.Transport.Map(func(i interface{}) interface{} {
			p := i.(transportParams)
			p.DisableHTTP2 = true
			return p
		})
		return nil
	})
}

// WithRateLimit admits at most limit attempts per second with the given burst.
func WithRateLimit(limit rate.Limit, burst int) ClientParam {
	return clientParamFunc(func(b *clientBuilder) error {
		if burst < 1 {
			return werror.Error("rate limit burst must be positive", werror.SafeParam("burst", burst))
		}
		b.RateLimiter = rate.NewLimiter(limit, burst)
		return nil
	})
}

// WithUserAgent replaces the User-Agent header sent with every request.
func WithUserAgent(userAgent *useragent.Builder) ClientParam {
	return clientParamFunc(func(b *clientBuilder) error {
		b.UserAgent = userAgent
		return nil
	})
}
