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

	"github.com/palantir/go-feign-runtime/feign-client/clienterrors"
	"github.com/palantir/pkg/retry"
)

// RetryPolicy configures retries of a single call. Calls are attempted once unless MaxAttempts is above one.
type RetryPolicy struct {
	MaxAttempts         int
	InitialBackoff      time.Duration
	MaxBackoff          time.Duration
	Multiplier          float64
	RandomizationFactor float64
}

func (p RetryPolicy) options() []retry.Option {
	var opts []retry.Option
	if p.InitialBackoff > 0 {
		opts = append(opts, retry.WithInitialBackoff(p.InitialBackoff))
	}
	if p.MaxBackoff > 0 {
		opts = append(opts, retry.WithMaxBackoff(p.MaxBackoff))
	}
	if p.Multiplier > 0 {
		opts = append(opts, retry.WithMultiplier(p.Multiplier))
	}
	if p.RandomizationFactor > 0 {
		opts = append(opts, retry.WithRandomizationFactor(p.RandomizationFactor))
	}
	return opts
}

// isRetryable reports whether a failed attempt may be repeated: transport failures, 429 and 5xx responses.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	if code, ok := StatusCodeFromError(err); ok {
		return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
	}
	return clienterrors.IsTransportError(err)
}
