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

	"github.com/palantir/go-feign-runtime/feign-contract/errors"
	"golang.org/x/time/rate"
)

// rateLimitMiddleware delays each attempt until the limiter admits it. A context that ends first fails the attempt
// with Transport:Timeout.
type rateLimitMiddleware struct {
	limiter *rate.Limiter
}

func (m rateLimitMiddleware) RoundTrip(req *http.Request, next http.RoundTripper) (*http.Response, error) {
	if err := m.limiter.Wait(req.Context()); err != nil {
		return nil, errors.WrapWithNewError(err, errors.TransportTimeout,
			errors.SafeParam("reason", "rate limit wait exceeded the request deadline"))
	}
	return next.RoundTrip(req)
}
