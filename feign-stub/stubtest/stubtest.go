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

// Package stubtest runs a contract stub server scoped to a single test.
package stubtest

import (
	"io/fs"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/palantir/go-feign-runtime/feign-stub/stub"
)

// Server is an httptest.Server serving a contract Store.
type Server struct {
	*httptest.Server
	Store *stub.Store

	allowUnmatched atomic.Bool
}

// AllowUnmatched stops the server from failing the test on unmatched requests, for tests that expect a 404.
func (s *Server) AllowUnmatched() {
	s.allowUnmatched.Store(true)
}

// NewServer starts a stub server for contracts. The server is closed when the test ends, and the test fails if any
// request matched no contract.
func NewServer(t testing.TB, contracts ...stub.Contract) *Server {
	t.Helper()
	return newServer(t, contracts, nil)
}

// NewServerWithOptions is NewServer with store and handler options, e.g. stub.WithStrictAmbiguity().
func NewServerWithOptions(t testing.TB, contracts []stub.Contract, storeOpts []stub.StoreOption, handlerOpts ...stub.HandlerOption) *Server {
	t.Helper()
	return newServer(t, contracts, storeOpts, handlerOpts...)
}

// LoadServer starts a stub server for the contract files in fsys.
func LoadServer(t testing.TB, fsys fs.FS) *Server {
	t.Helper()
	contracts, err := stub.Load(fsys)
	if err != nil {
		t.Fatalf("failed to load contracts: %v", err)
	}
	return newServer(t, contracts, nil)
}

func newServer(t testing.TB, contracts []stub.Contract, storeOpts []stub.StoreOption, handlerOpts ...stub.HandlerOption) *Server {
	t.Helper()
	store, err := stub.NewStore(contracts, storeOpts...)
	if err != nil {
		t.Fatalf("invalid contracts: %v", err)
	}
	handler, err := stub.NewHandler(store, handlerOpts...)
	if err != nil {
		t.Fatalf("failed to create stub handler: %v", err)
	}
	s := &Server{Server: httptest.NewServer(handler), Store: store}
	t.Cleanup(func() {
		s.Close()
		if s.allowUnmatched.Load() {
			return
		}
		if unmatched := store.NoMatches(); len(unmatched) > 0 {
			t.Errorf("stub server received %d unmatched request(s):\n%s", len(unmatched), describe(unmatched))
		}
	})
	return s
}

func describe(noMatches []stub.NoMatch) string {
	var sb strings.Builder
	for _, nm := range noMatches {
		sb.WriteString("  ")
		sb.WriteString(nm.Method)
		sb.WriteString(" ")
		sb.WriteString(nm.Path)
		for _, pm := range nm.ClosestMatches {
			sb.WriteString("\n    closest: ")
			sb.WriteString(pm.Contract)
			sb.WriteString(" failed ")
			sb.WriteString(strings.Join(pm.Failed, ", "))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
