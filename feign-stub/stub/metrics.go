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
	stderrors "errors"

	"github.com/prometheus/client_golang/prometheus"
)

type requestMetrics struct {
	requests *prometheus.CounterVec
}

func newRequestMetrics(registerer prometheus.Registerer) (*requestMetrics, error) {
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stub_requests_total",
		Help: "Requests served by the contract stub, by contract and outcome.",
	}, []string{"contract", "outcome"})
	if err := registerer.Register(requests); err != nil {
		var already prometheus.AlreadyRegisteredError
		if !stderrors.As(err, &already) {
			return nil, err
		}
		existing, ok := already.ExistingCollector.(*prometheus.CounterVec)
		if !ok {
			return nil, err
		}
		requests = existing
	}
	return &requestMetrics{requests: requests}, nil
}

func (m *requestMetrics) observe(contract, outcome string) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(contract, outcome).Inc()
}
