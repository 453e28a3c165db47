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
	"net/http"
	"time"

	"github.com/palantir/pkg/metrics"
	"github.com/palantir/pkg/refreshable"
	werror "github.com/palantir/witchcraft-go-error"
)

const (
	MetricTagServiceName = "service-name"
	MetricClientResponse = "client.response"

	metricTagFamily     = "family"
	metricTagMethod     = "method"
	metricRPCMethodName = "method-name"

	metricTagFamilyOther = "other"
	metricTagFamily1xx   = "1xx"
	metricTagFamily2xx   = "2xx"
	metricTagFamily3xx   = "3xx"
	metricTagFamily4xx   = "4xx"
	metricTagFamily5xx   = "5xx"
)

// A TagsProvider returns metrics tags based on an http round trip.
type TagsProvider interface {
	Tags(*http.Request, *http.Response) metrics.Tags
}

// TagsProviderFunc is a convenience type that implements TagsProvider.
type TagsProviderFunc func(*http.Request, *http.Response) metrics.Tags

func (f TagsProviderFunc) Tags(req *http.Request, resp *http.Response) metrics.Tags {
	return f(req, resp)
}

// StaticTagsProvider adds the same tags to every round trip.
type StaticTagsProvider metrics.Tags

func (s StaticTagsProvider) Tags(*http.Request, *http.Response) metrics.Tags {
	return metrics.Tags(s)
}

// metricsMiddleware updates the client.response timer with service-name, method, family and method-name tags.
type metricsMiddleware struct {
	disabled refreshable.Bool
	tags     []TagsProvider
}

func newMetricsMiddleware(serviceName string, tagProviders []TagsProvider, disabled refreshable.Bool) (Middleware, error) {
	providers := append([]TagsProvider{
		TagsProviderFunc(tagStatusFamily),
		TagsProviderFunc(tagRequestMethod),
		TagsProviderFunc(tagRequestMethodName),
	}, tagProviders...)
	if serviceName != "" {
		serviceNameTag, err := metrics.NewTag(MetricTagServiceName, serviceName)
		if err != nil {
			return nil, werror.Wrap(err, "failed to construct service-name metric tag", werror.SafeParam("serviceName", serviceName))
		}
		providers = append(providers, StaticTagsProvider{serviceNameTag})
	}
	return &metricsMiddleware{disabled: disabled, tags: providers}, nil
}

func (m *metricsMiddleware) RoundTrip(req *http.Request, next http.RoundTripper) (*http.Response, error) {
	if m.disabled != nil && m.disabled.CurrentBool() {
		return next.RoundTrip(req)
	}
	start := time.Now()
	resp, err := next.RoundTrip(req)
	duration := time.Since(start)

	var tags metrics.Tags
	for _, provider := range m.tags {
		tags = append(tags, provider.Tags(req, resp)...)
	}
	metrics.FromContext(req.Context()).Timer(MetricClientResponse, tags...).Update(duration)
	return resp, err
}

func tagStatusFamily(_ *http.Request, resp *http.Response) metrics.Tags {
	family := metricTagFamilyOther
	switch {
	case resp == nil, resp.StatusCode < 100, resp.StatusCode > 599:
	case resp.StatusCode < 200:
		family = metricTagFamily1xx
	case resp.StatusCode < 300:
		family = metricTagFamily2xx
	case resp.StatusCode < 400:
		family = metricTagFamily3xx
	case resp.StatusCode < 500:
		family = metricTagFamily4xx
	default:
		family = metricTagFamily5xx
	}
	return metrics.Tags{metrics.MustNewTag(metricTagFamily, family)}
}

func tagRequestMethod(req *http.Request, _ *http.Response) metrics.Tags {
	return metrics.Tags{metrics.MustNewTag(metricTagMethod, req.Method)}
}

func tagRequestMethodName(req *http.Request, _ *http.Response) metrics.Tags {
	name := getRPCMethodName(req.Context())
	if name == "" {
		return metrics.Tags{metrics.MustNewTag(metricRPCMethodName, "RPCMethodNameMissing")}
	}
	tag, err := metrics.NewTag(metricRPCMethodName, name)
	if err != nil {
		return metrics.Tags{metrics.MustNewTag(metricRPCMethodName, "RPCMethodNameInvalid")}
	}
	return metrics.Tags{tag}
}
