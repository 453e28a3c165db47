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
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/palantir/pkg/refreshable"
	"github.com/palantir/witchcraft-go-logging/wlog/svclog/svc1log"
	"golang.org/x/net/http2"
	"golang.org/x/net/proxy"
)

type transportParams struct {
	DialTimeout           time.Duration
	KeepAlive             time.Duration
	MaxIdleConns          int
	MaxIdleConnsPerHost   int
	MaxConnsPerHost       int
	DisableHTTP2          bool
	IdleConnTimeout       time.Duration
	ExpectContinueTimeout time.Duration
	ResponseHeaderTimeout time.Duration
	TLSHandshakeTimeout   time.Duration
	HTTPProxyURL          *url.URL
	SocksProxyURL         *url.URL
	ProxyFromEnvironment  bool
	TLSConfig             *tls.Config
}

// refreshableTransport implements http.RoundTripper backed by a refreshable *http.Transport that is rebuilt whenever
// its parameters change.
type refreshableTransport struct {
	refreshable.Refreshable // contains *http.Transport
}

func newRefreshableTransport(ctx context.Context, params refreshable.Refreshable) *refreshableTransport {
	return &refreshableTransport{
		Refreshable: params.Map(func(i interface{}) interface{} {
			return newTransport(ctx, i.(transportParams))
		}),
	}
}

func (r *refreshableTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	return r.Current().(*http.Transport).RoundTrip(req)
}

func newTransport(ctx context.Context, p transportParams) *http.Transport {
	var dialer proxy.ContextDialer = &net.Dialer{
		Timeout:   p.DialTimeout,
		KeepAlive: p.KeepAlive,
	}
	if p.SocksProxyURL != nil {
		socks, err := proxy.FromURL(p.SocksProxyURL, dialer.(proxy.Dialer))
		if err != nil {
			svc1log.FromContext(ctx).Error("Failed to construct socks5 dialer", svc1log.Stacktrace(err))
		} else if contextDialer, ok := socks.(proxy.ContextDialer); ok {
			dialer = contextDialer
		}
	}
	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		MaxIdleConns:          p.MaxIdleConns,
		MaxIdleConnsPerHost:   p.MaxIdleConnsPerHost,
		MaxConnsPerHost:       p.MaxConnsPerHost,
		TLSClientConfig:       p.TLSConfig,
		DisableKeepAlives:     p.KeepAlive == 0,
		ExpectContinueTimeout: p.ExpectContinueTimeout,
		IdleConnTimeout:       p.IdleConnTimeout,
		TLSHandshakeTimeout:   p.TLSHandshakeTimeout,
		ResponseHeaderTimeout: p.ResponseHeaderTimeout,
	}
	if p.HTTPProxyURL != nil {
		transport.Proxy = http.ProxyURL(p.HTTPProxyURL)
	} else if p.ProxyFromEnvironment {
		transport.Proxy = http.ProxyFromEnvironment
	}
	if !p.DisableHTTP2 {
		if err := http2.ConfigureTransport(transport); err != nil {
			svc1log.FromContext(ctx).Error("failed to configure transport for http2", svc1log.Stacktrace(err))
		}
	}
	return transport
}
