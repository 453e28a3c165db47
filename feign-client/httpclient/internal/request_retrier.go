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

package internal

import (
	"github.com/palantir/pkg/retry"
)

// RequestRetrier tracks the attempts of a single logical call and waits out the backoff between them.
type RequestRetrier struct {
	retrier retry.Retrier

	maxAttempts  int
	attemptCount int
}

// NewRequestRetrier returns a retrier allowing maxAttempts attempts in total. Values below one allow a single attempt.
func NewRequestRetrier(retrier retry.Retrier, maxAttempts int) *RequestRetrier {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	// the first Next of a retry.Retrier starts the initial attempt without waiting
	retrier.Next()
	return &RequestRetrier{
		retrier:      retrier,
		maxAttempts:  maxAttempts,
		attemptCount: 1,
	}
}

// Next reports whether another attempt should follow a failure for which retryable was computed. When it returns true
// the backoff interval has already elapsed.
func (r *RequestRetrier) Next(retryable bool) bool {
	if !retryable || r.attemptCount >= r.maxAttempts {
		return false
	}
	r.attemptCount++
	return r.retrier.Next()
}

// AttemptCount is the number of attempts started so far.
func (r *RequestRetrier) AttemptCount() int {
	return r.attemptCount
}
