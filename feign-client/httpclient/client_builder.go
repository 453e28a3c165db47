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

// Package httpclient executes bound requests against a configured service.
package httpclient

import (
	"context"
	"net/http"
	"time"

	"github.com/palantir/go-feign-runtime/feign-contract/useragent"
	"github.com/palantir/pkg/bytesbuffers"
	"github.com/palantir/pkg/metrics"
	"github.com/palantir/pkg/refreshable"
	"github.com/palantir/pkg/tlsconfig"
	werror "github.com/palantir/witchcraft-go-error"
	"golang.org/x/time/rate"
)

const (
	defaultDialTimeout           = 5 * time.Second
	defaultHTTPTimeout           = 60 * time.Second
	defaultKeepAlive             = 30 * time.Second
	defaultIdleConnTimeout       = 90 * time.Second
	defaultTLSHandshakeTimeout   = 10 * time.Second
	defaultExpectContinueTimeout = 1 * time.Second
	defaultMaxIdleConns          = 200
	defaultMaxIdleConnsPerHost   = 100
	defaultInitialBackoff        = 250 * time.Millisecond
	defaultMaxBackoff            = 2 * time.Second
	defaultBackoffMultiplier     = 2.0
)

type clientBuilder struct {
	ServiceName string
	URIs        refreshable.StringSlice
	Timeout     refreshable.Duration
	Retry       refreshable.Refreshable // contains RetryPolicy
	Transport   refreshable.Refreshable // contains transportParams

	ErrorDecoder    ErrorDecoder
	BytesBufferPool bytesbuffers.Pool
	Middlewares     []Middleware
	RateLimiter     *rate.Limiter
	UserAgent       *useragent.Builder

	DisableMetrics        refreshable.Bool
	DisableRecovery       refreshable.Bool
	PropagateTraceHeaders refreshable.Bool
	MetricsTagProviders   []TagsProvider
}

// NewClient returns a configured client ready for use. Defaults are applied before the provided params.
func NewClient(params ...ClientParam) (Client, error) {
	return newClient(context.TODO(), newClientBuilder(), params...)
}

// NewClientFromRefreshableConfig returns a client whose URIs, timeouts, retry policy and transport follow config.
func NewClientFromRefreshableConfig(ctx context.Context, config RefreshableClientConfig, params ...ClientParam) (Client, error) {
	b, err := newClientBuilderFromRefreshableConfig(ctx, config)
	if err != nil {
		return nil, err
	}
	return newClient(ctx, b, params...)
}

func newClient(ctx context.Context, b *clientBuilder, params ...ClientParam) (Client, error) {
	for _, p := range params {
		if p == nil {
			continue
		}
		if err := p.apply(b); err != nil {
			return nil, err
		}
	}
	if b.ServiceName != "" && b.UserAgent == nil {
		product, err := useragent.ServiceProduct(b.ServiceName, "0.0.0")
		if err == nil {
			b.UserAgent = useragent.Default.Clone()
			b.UserAgent.Push(product)
		}
	}
	if b.UserAgent == nil {
		b.UserAgent = useragent.Default.Clone()
	}

	metricsMiddleware, err := newMetricsMiddleware(b.ServiceName, b.MetricsTagProviders, b.DisableMetrics)
	if err != nil {
		return nil, err
	}

	transport := newRefreshableTransport(ctx, b.Transport)
	maxConns := refreshable.NewInt(b.Transport.Map(func(i interface{}) interface{} {
		return i.(transportParams).MaxConnsPerHost
	}))
	var rateLimit Middleware
	if b.RateLimiter != nil {
		rateLimit = rateLimitMiddleware{limiter: b.RateLimiter}
	}
	// innermost first: the pool is closest to the connection, the recovery middleware wraps everything it can
	base := wrapTransport(transport, newConnPool(maxConns), rateLimit, metricsMiddleware)
	base = wrapTransport(base, b.Middlewares...)
	var edm Middleware
	if b.ErrorDecoder != nil {
		edm = errorDecoderMiddleware{errorDecoder: b.ErrorDecoder}
	}
	base = wrapTransport(base, edm, recoveryMiddleware{Disabled: b.DisableRecovery})

	return &clientImpl{
		serviceName:           b.ServiceName,
		transport:             base,
		timeout:               b.Timeout,
		uris:                  b.URIs,
		retry:                 b.Retry,
		propagateTraceHeaders: b.PropagateTraceHeaders,
		userAgent:             b.UserAgent.String(),
		bufferPool:            b.BytesBufferPool,
	}, nil
}

func newClientBuilder() *clientBuilder {
	defaultTLSConfig, _ := tlsconfig.NewClientConfig()
	return &clientBuilder{
		URIs:    refreshable.NewStringSlice(refreshable.NewDefaultRefreshable([]string(nil))),
		Timeout: refreshable.NewDuration(refreshable.NewDefaultRefreshable(defaultHTTPTimeout)),
		Retry: refreshable.NewDefaultRefreshable(RetryPolicy{
			MaxAttempts:    1,
			InitialBackoff: defaultInitialBackoff,
			MaxBackoff:     defaultMaxBackoff,
			Multiplier:     defaultBackoffMultiplier,
		}),
		Transport: refreshable.NewDefaultRefreshable(transportParams{
			DialTimeout:           defaultDialTimeout,
			KeepAlive:             defaultKeepAlive,
			MaxIdleConns:          defaultMaxIdleConns,
			MaxIdleConnsPerHost:   defaultMaxIdleConnsPerHost,
			IdleConnTimeout:       defaultIdleConnTimeout,
			ExpectContinueTimeout: defaultExpectContinueTimeout,
			TLSHandshakeTimeout:   defaultTLSHandshakeTimeout,
			ProxyFromEnvironment:  true,
			TLSConfig:             defaultTLSConfig,
		}),
		ErrorDecoder:          restErrorDecoder{},
		DisableMetrics:        refreshable.NewBool(refreshable.NewDefaultRefreshable(false)),
		DisableRecovery:       refreshable.NewBool(refreshable.NewDefaultRefreshable(false)),
		PropagateTraceHeaders: refreshable.NewBool(refreshable.NewDefaultRefreshable(true)),
	}
}

func newClientBuilderFromRefreshableConfig(ctx context.Context, config RefreshableClientConfig) (*clientBuilder, error) {
	validated, err := refreshable.NewMapValidatingRefreshable(config, func(i interface{}) (interface{}, error) {
		return newValidatedClientParamsFromConfig(ctx, i.(ClientConfig))
	})
	if err != nil {
		return nil, err
	}
	current := validated.Current().(validatedClientParams)
	if current.ServiceName != "" {
		if _, err := metrics.NewTag(MetricTagServiceName, current.ServiceName); err != nil {
			return nil, werror.WrapWithContextParams(ctx, err, "invalid service name metrics tag")
		}
	}
	mapValidated := func(fn func(validatedClientParams) interface{}) refreshable.Refreshable {
		return validated.Map(func(i interface{}) interface{} {
			return fn(i.(validatedClientParams))
		})
	}

	b := newClientBuilder()
	b.ServiceName = current.ServiceName
	b.URIs = refreshable.NewStringSlice(mapValidated(func(p validatedClientParams) interface{} { return p.URIs }))
	b.Timeout = refreshable.NewDuration(mapValidated(func(p validatedClientParams) interface{} { return p.Timeout }))
	b.Retry = mapValidated(func(p validatedClientParams) interface{} { return p.Retry })
	b.Transport = mapValidated(func(p validatedClientParams) interface{} { return p.Transport })
	b.DisableMetrics = refreshable.NewBool(mapValidated(func(p validatedClientParams) interface{} { return p.DisableMetrics }))
	metricsTags := mapValidated(func(p validatedClientParams) interface{} { return p.MetricsTags })
	b.MetricsTagProviders = []TagsProvider{
		TagsProviderFunc(func(*http.Request, *http.Response) metrics.Tags {
			return metricsTags.Current().(metrics.Tags)
		}),
	}
	return b, nil
}
