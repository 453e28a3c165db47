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
	"io"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/palantir/go-feign-runtime/feign-contract/errors"
	"github.com/palantir/pkg/refreshable"
	"golang.org/x/sync/semaphore"
)

// connPool bounds the number of in-flight round trips to the configured connection limit. A slot is held from
// checkout until the response body is closed, so a caller can never hold more responses than there are connections.
type connPool struct {
	slots atomic.Pointer[semaphore.Weighted]
}

func newConnPool(maxConns refreshable.Int) *connPool {
	p := &connPool{}
	p.resize(maxConns.CurrentInt())
	maxConns.SubscribeToInt(p.resize)
	return p
}

// resize swaps in a new semaphore. Slots checked out of the old one are returned to it.
func (p *connPool) resize(maxConns int) {
	if maxConns <= 0 {
		p.slots.Store(nil)
		return
	}
	p.slots.Store(semaphore.NewWeighted(int64(maxConns)))
}

func (p *connPool) RoundTrip(req *http.Request, next http.RoundTripper) (*http.Response, error) {
	slots := p.slots.Load()
	if slots == nil {
		return next.RoundTrip(req)
	}
	if err := slots.Acquire(req.Context(), 1); err != nil {
		return nil, errors.WrapWithNewError(err, errors.TransportTimeout,
			errors.SafeParam("reason", "no pooled connection became available before the request deadline"))
	}
	release := sync.OnceFunc(func() { slots.Release(1) })

	resp, err := next.RoundTrip(req)
	if err != nil || resp == nil || resp.Body == nil {
		release()
		return resp, err
	}
	resp.Body = &releasingBody{ReadCloser: resp.Body, release: release}
	return resp, nil
}

type releasingBody struct {
	io.ReadCloser
	release func()
}

func (b *releasingBody) Close() error {
	defer b.release()
	return b.ReadCloser.Close()
}
