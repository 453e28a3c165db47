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
	"net/url"
	"time"

	"github.com/palantir/go-feign-runtime/feign-contract/mapper"
	"github.com/palantir/pkg/metrics"
	"github.com/palantir/pkg/tlsconfig"
	werror "github.com/palantir/witchcraft-go-error"
)

// ServicesConfig is the top-level configuration for all clients of a process. Default values apply to every service
// unless the service overrides them in Services.
type ServicesConfig struct {
	// Default values will be used for any field which is not set for a specific client.
	Default ClientConfig `json:",inline" yaml:",inline"`
	// Services is a map of serviceName (e.g. "github") to service-specific configuration.
	Services map[string]ClientConfig `json:"services,omitempty" yaml:"services,omitempty"`
}

// ClientConfig represents the configuration for a single client.
type ClientConfig struct {
	ServiceName string `json:"-" yaml:"-"`
	// URIs is a list of fully specified base URIs for the service. A path on a URI is prepended to every request path.
	URIs []string `json:"uris,omitempty" yaml:"uris,omitempty"`
	// DisableHTTP2, if true, will prevent the client from modifying the *tls.Config object to support H2 connections.
	DisableHTTP2 *bool `json:"disable-http2,omitempty" yaml:"disable-http2,omitempty"`
	// ProxyFromEnvironment enables reading HTTP proxy information from environment variables.
	ProxyFromEnvironment *bool `json:"proxy-from-environment,omitempty" yaml:"proxy-from-environment,omitempty"`
	// ProxyURL uses the provided URL for proxying the request. Schemes http, https, and socks5 are supported.
	ProxyURL *string `json:"proxy-url,omitempty" yaml:"proxy-url,omitempty"`

	// MaxNumRetries is the number of retries after the first attempt. Calls are not retried unless it is set.
	MaxNumRetries *int `json:"max-num-retries,omitempty" yaml:"max-num-retries,omitempty"`
	// InitialBackoff is the delay before the first retry.
	InitialBackoff *time.Duration `json:"initial-backoff,omitempty" yaml:"initial-backoff,omitempty"`
	// MaxBackoff caps the delay between retries.
	MaxBackoff *time.Duration `json:"max-backoff,omitempty" yaml:"max-backoff,omitempty"`
	// BackoffMultiplier grows the delay after each retry.
	BackoffMultiplier *float64 `json:"backoff-multiplier,omitempty" yaml:"backoff-multiplier,omitempty"`

	// ConnectTimeout is the maximum time for the net.Dialer to connect to the remote host.
	ConnectTimeout *time.Duration `json:"connect-timeout,omitempty" yaml:"connect-timeout,omitempty"`
	// ReadTimeout and WriteTimeout bound a single attempt. The larger of the two is used as the http.Client timeout.
	ReadTimeout  *time.Duration `json:"read-timeout,omitempty" yaml:"read-timeout,omitempty"`
	WriteTimeout *time.Duration `json:"write-timeout,omitempty" yaml:"write-timeout,omitempty"`
	// IdleConnTimeout sets the timeout for idle connections.
	IdleConnTimeout *time.Duration `json:"idle-conn-timeout,omitempty" yaml:"idle-conn-timeout,omitempty"`
	// TLSHandshakeTimeout sets the timeout for TLS handshakes
	TLSHandshakeTimeout *time.Duration `json:"tls-handshake-timeout,omitempty" yaml:"tls-handshake-timeout,omitempty"`
	// ExpectContinueTimeout bounds the wait for a 100-continue response.
	ExpectContinueTimeout *time.Duration `json:"expect-continue-timeout,omitempty" yaml:"expect-continue-timeout,omitempty"`
	// ResponseHeaderTimeout, if non-zero, bounds the wait for response headers after the request is written.
	ResponseHeaderTimeout *time.Duration `json:"response-header-timeout,omitempty" yaml:"response-header-timeout,omitempty"`
	// KeepAlive sets the time to keep idle connections alive. If set to 0, the client will not keep connections alive.
	KeepAlive *time.Duration `json:"keep-alive,omitempty" yaml:"keep-alive,omitempty"`

	// MaxIdleConns sets the number of reusable TCP connections the client will maintain.
	MaxIdleConns *int `json:"max-idle-conns,omitempty" yaml:"max-idle-conns,omitempty"`
	// MaxIdleConnsPerHost sets the number of reusable TCP connections the client will maintain per destination.
	MaxIdleConnsPerHost *int `json:"max-idle-conns-per-host,omitempty" yaml:"max-idle-conns-per-host,omitempty"`
	// MaxConnsPerHost bounds both open connections per host and concurrent in-flight calls. Zero means no bound.
	MaxConnsPerHost *int `json:"max-conns,omitempty" yaml:"max-conns,omitempty"`

	// StrictDecoding rejects lossy numeric conversions when decoding responses. Defaults to true.
	StrictDecoding *bool `json:"strict-decoding,omitempty" yaml:"strict-decoding,omitempty"`
	// UnmappedPolicy decides what happens to response fields that have no target. Defaults to warn.
	UnmappedPolicy *mapper.UnmappedPolicy `json:"unmapped-policy,omitempty" yaml:"unmapped-policy,omitempty"`

	// Metrics allows disabling metric emission or adding additional static tags to the client metrics.
	Metrics MetricsConfig `json:"metrics,omitempty" yaml:"metrics,omitempty"`
	// Security configures TLS. Paths are absolute or relative to the working directory.
	Security SecurityConfig `json:"security,omitempty" yaml:"security,omitempty"`
}

type MetricsConfig struct {
	// Enabled can be used to disable metrics with an explicit 'false'. Metrics are enabled if this is unset.
	Enabled *bool `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	// Tags allows setting arbitrary additional tags on the metrics emitted by the client.
	Tags map[string]string `json:"tags,omitempty" yaml:"tags,omitempty"`
}

type SecurityConfig struct {
	CAFiles  []string `json:"ca-files,omitempty" yaml:"ca-files,omitempty"`
	CertFile string   `json:"cert-file,omitempty" yaml:"cert-file,omitempty"`
	KeyFile  string   `json:"key-file,omitempty" yaml:"key-file,omitempty"`
}

// MustClientConfig returns an error if the service name is not configured.
func (c ServicesConfig) MustClientConfig(serviceName string) (ClientConfig, error) {
	if _, ok := c.Services[serviceName]; !ok {
		return ClientConfig{}, werror.Error("ClientConfiguration not found for serviceName", werror.SafeParam("serviceName", serviceName))
	}
	return c.ClientConfig(serviceName), nil
}

// ClientConfig returns the default configuration merged with service-specific configuration.
func (c ServicesConfig) ClientConfig(serviceName string) ClientConfig {
	conf := c.Services[serviceName]
	conf.ServiceName = serviceName
	return MergeClientConfig(conf, c.Default)
}

// MergeClientConfig merges two instances of ClientConfig, preferring values from conf over defaults.
func MergeClientConfig(conf, defaults ClientConfig) ClientConfig {
	if len(conf.URIs) == 0 {
		conf.URIs = defaults.URIs
	}
	mergePtr(&conf.DisableHTTP2, defaults.DisableHTTP2)
	mergePtr(&conf.ProxyFromEnvironment, defaults.ProxyFromEnvironment)
	mergePtr(&conf.ProxyURL, defaults.ProxyURL)
	mergePtr(&conf.MaxNumRetries, defaults.MaxNumRetries)
	mergePtr(&conf.InitialBackoff, defaults.InitialBackoff)
	mergePtr(&conf.MaxBackoff, defaults.MaxBackoff)
	mergePtr(&conf.BackoffMultiplier, defaults.BackoffMultiplier)
	mergePtr(&conf.ConnectTimeout, defaults.ConnectTimeout)
	mergePtr(&conf.ReadTimeout, defaults.ReadTimeout)
	mergePtr(&conf.WriteTimeout, defaults.WriteTimeout)
	mergePtr(&conf.IdleConnTimeout, defaults.IdleConnTimeout)
	mergePtr(&conf.TLSHandshakeTimeout, defaults.TLSHandshakeTimeout)
	mergePtr(&conf.ExpectContinueTimeout, defaults.ExpectContinueTimeout)
	mergePtr(&conf.ResponseHeaderTimeout, defaults.ResponseHeaderTimeout)
	mergePtr(&conf.KeepAlive, defaults.KeepAlive)
	mergePtr(&conf.MaxIdleConns, defaults.MaxIdleConns)
	mergePtr(&conf.MaxIdleConnsPerHost, defaults.MaxIdleConnsPerHost)
	mergePtr(&conf.MaxConnsPerHost, defaults.MaxConnsPerHost)
	mergePtr(&conf.StrictDecoding, defaults.StrictDecoding)
	mergePtr(&conf.UnmappedPolicy, defaults.UnmappedPolicy)
	mergePtr(&conf.Metrics.Enabled, defaults.Metrics.Enabled)

	if len(defaults.Metrics.Tags) != 0 {
		tags := make(map[string]string, len(defaults.Metrics.Tags)+len(conf.Metrics.Tags))
		for k, v := range defaults.Metrics.Tags {
			tags[k] = v
		}
		for k, v := range conf.Metrics.Tags {
			tags[k] = v
		}
		conf.Metrics.Tags = tags
	}
	if conf.Security.CAFiles == nil {
		conf.Security.CAFiles = defaults.Security.CAFiles
	}
	if conf.Security.CertFile == "" {
		conf.Security.CertFile = defaults.Security.CertFile
	}
	if conf.Security.KeyFile == "" {
		conf.Security.KeyFile = defaults.Security.KeyFile
	}
	return conf
}

func mergePtr[T any](conf **T, defaultVal *T) {
	if *conf == nil {
		*conf = defaultVal
	}
}

// MapperOptions returns the response decoding options the configuration selects.
func (c ClientConfig) MapperOptions() []mapper.Option {
	opts := []mapper.Option{mapper.WithStrict(derefPtr(c.StrictDecoding, true))}
	if c.UnmappedPolicy != nil {
		opts = append(opts, mapper.WithUnmappedPolicy(*c.UnmappedPolicy))
	}
	return opts
}

// validatedClientParams is a ClientConfig with defaults applied and every value checked.
type validatedClientParams struct {
	ServiceName    string
	URIs           []string
	Timeout        time.Duration
	MaxAttempts    int
	Retry          RetryPolicy
	Transport      transportParams
	DisableMetrics bool
	MetricsTags    metrics.Tags
}

func newValidatedClientParamsFromConfig(ctx context.Context, config ClientConfig) (validatedClientParams, error) {
	transport := transportParams{
		DialTimeout:           derefPtr(config.ConnectTimeout, defaultDialTimeout),
		KeepAlive:             derefPtr(config.KeepAlive, defaultKeepAlive),
		MaxIdleConns:          derefPtr(config.MaxIdleConns, defaultMaxIdleConns),
		MaxIdleConnsPerHost:   derefPtr(config.MaxIdleConnsPerHost, defaultMaxIdleConnsPerHost),
		MaxConnsPerHost:       derefPtr(config.MaxConnsPerHost, 0),
		DisableHTTP2:          derefPtr(config.DisableHTTP2, false),
		IdleConnTimeout:       derefPtr(config.IdleConnTimeout, defaultIdleConnTimeout),
		ExpectContinueTimeout: derefPtr(config.ExpectContinueTimeout, defaultExpectContinueTimeout),
		ResponseHeaderTimeout: derefPtr(config.ResponseHeaderTimeout, 0),
		TLSHandshakeTimeout:   derefPtr(config.TLSHandshakeTimeout, defaultTLSHandshakeTimeout),
		ProxyFromEnvironment:  derefPtr(config.ProxyFromEnvironment, true),
	}
	if transport.MaxConnsPerHost < 0 {
		return validatedClientParams{}, werror.ErrorWithContextParams(ctx, "max-conns must not be negative",
			werror.SafeParam("maxConns", transport.MaxConnsPerHost))
	}

	if config.ProxyURL != nil {
		proxyURL, err := url.ParseRequestURI(*config.ProxyURL)
		if err != nil {
			return validatedClientParams{}, werror.WrapWithContextParams(ctx, err, "invalid proxy url")
		}
		switch proxyURL.Scheme {
		case "http", "https":
			transport.HTTPProxyURL = proxyURL
		case "socks5", "socks5h":
			transport.SocksProxyURL = proxyURL
		default:
			return validatedClientParams{}, werror.ErrorWithContextParams(ctx, "invalid proxy url: only http(s) and socks5 are supported",
				werror.SafeParam("scheme", proxyURL.Scheme))
		}
	}

	tlsConfig, err := newTLSConfig(config.Security)
	if err != nil {
		return validatedClientParams{}, werror.WrapWithContextParams(ctx, err, "invalid security configuration")
	}
	transport.TLSConfig = tlsConfig

	metricsTags, err := metrics.NewTags(config.Metrics.Tags)
	if err != nil {
		return validatedClientParams{}, err
	}

	retryPolicy := RetryPolicy{
		MaxAttempts:    1,
		InitialBackoff: derefPtr(config.InitialBackoff, defaultInitialBackoff),
		MaxBackoff:     derefPtr(config.MaxBackoff, defaultMaxBackoff),
		Multiplier:     derefPtr(config.BackoffMultiplier, defaultBackoffMultiplier),
	}
	if config.MaxNumRetries != nil {
		if *config.MaxNumRetries < 0 {
			return validatedClientParams{}, werror.ErrorWithContextParams(ctx, "max-num-retries must not be negative",
				werror.SafeParam("maxNumRetries", *config.MaxNumRetries))
		}
		retryPolicy.MaxAttempts = *config.MaxNumRetries + 1
	}

	timeout := defaultHTTPTimeout
	switch {
	case config.ReadTimeout != nil && config.WriteTimeout != nil:
		timeout = max(*config.ReadTimeout, *config.WriteTimeout)
	case config.ReadTimeout != nil:
		timeout = *config.ReadTimeout
	case config.WriteTimeout != nil:
		timeout = *config.WriteTimeout
	}

	var uris []string
	for _, uriStr := range config.URIs {
		if uriStr == "" {
			continue
		}
		if _, err := url.ParseRequestURI(uriStr); err != nil {
			return validatedClientParams{}, werror.WrapWithContextParams(ctx, err, "invalid url", werror.UnsafeParam("url", uriStr))
		}
		uris = append(uris, uriStr)
	}

	return validatedClientParams{
		ServiceName:    config.ServiceName,
		URIs:           uris,
		Timeout:        timeout,
		MaxAttempts:    retryPolicy.MaxAttempts,
		Retry:          retryPolicy,
		Transport:      transport,
		DisableMetrics: !derefPtr(config.Metrics.Enabled, true),
		MetricsTags:    metricsTags,
	}, nil
}

func newTLSConfig(security SecurityConfig) (*tls.Config, error) {
	var params []tlsconfig.ClientParam
	if len(security.CAFiles) != 0 {
		params = append(params, tlsconfig.ClientRootCAFiles(security.CAFiles...))
	}
	if security.CertFile != "" && security.KeyFile != "" {
		params = append(params, tlsconfig.ClientKeyPairFiles(security.CertFile, security.KeyFile))
	}
	return tlsconfig.NewClientConfig(params...)
}

func derefPtr[T any](ptr *T, defaultVal T) T {
	if ptr == nil {
		return defaultVal
	}
	return *ptr
}
