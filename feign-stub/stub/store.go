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
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/palantir/go-feign-runtime/feign-contract/errors"
)

// State is the lifecycle state of a contract within a Store.
type State int32

const (
	// Unmatched contracts have not served a response yet.
	Unmatched State = iota
	// Matched contracts have been selected for a request. Reusable contracts stay Matched.
	Matched
	// Consumed single-use contracts have served their response and never match again.
	Consumed
)

func (s State) String() string {
	switch s {
	case Unmatched:
		return "Unmatched"
	case Matched:
		return "Matched"
	case Consumed:
		return "Consumed"
	}
	return "Unknown"
}

type entry struct {
	*compiled
	state atomic.Int32
}

func (e *entry) load() State {
	return State(e.state.Load())
}

// claim moves the entry to Matched. A single-use entry can only be claimed from Unmatched.
func (e *entry) claim() bool {
	if e.SingleUse {
		return e.state.CompareAndSwap(int32(Unmatched), int32(Matched))
	}
	e.state.CompareAndSwap(int32(Unmatched), int32(Matched))
	return true
}

// release marks a served single-use entry as Consumed.
func (e *entry) release() {
	if e.SingleUse {
		e.state.CompareAndSwap(int32(Matched), int32(Consumed))
	}
}

// NoMatch records a request that no contract satisfied.
type NoMatch struct {
	ID             uuid.UUID      `json:"id"`
	Time           time.Time      `json:"time"`
	Method         string         `json:"method"`
	Path           string         `json:"path"`
	ClosestMatches []PartialMatch `json:"closestMatches"`
}

// Store owns a contract set and the state of each contract for one test run or stub process.
type Store struct {
	strictAmbiguity bool

	mu      sync.RWMutex
	entries []*entry

	noMatchMu sync.Mutex
	noMatches []NoMatch
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithStrictAmbiguity makes a request that fully matches more than one available contract fail with
// Contract:AmbiguousMatch instead of being served by the first declared contract.
func WithStrictAmbiguity() StoreOption {
	return func(s *Store) {
		s.strictAmbiguity = true
	}
}

// NewStore validates contracts and returns a store with every contract Unmatched.
func NewStore(contracts []Contract, opts ...StoreOption) (*Store, error) {
	s := &Store{}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.Replace(contracts); err != nil {
		return nil, err
	}
	return s, nil
}

// Replace swaps the contract set. States of the new set start Unmatched. The old set stays in place if any
// contract is invalid.
func (s *Store) Replace(contracts []Contract) error {
	entries := make([]*entry, 0, len(contracts))
	names := make(map[string]struct{}, len(contracts))
	for i, c := range contracts {
		comp, err := compile(i, c)
		if err != nil {
			return err
		}
		if _, dup := names[c.Name]; dup {
			return errors.NewError(errors.DefaultInvalidArgument,
				errors.SafeParam("reason", "duplicate contract name"),
				errors.SafeParam("contract", c.Name))
		}
		names[c.Name] = struct{}{}
		entries = append(entries, &entry{compiled: comp})
	}
	s.mu.Lock()
	s.entries = entries
	s.mu.Unlock()
	return nil
}

// Reset returns every contract to Unmatched and forgets recorded no-matches.
func (s *Store) Reset() {
	s.mu.RLock()
	for _, e := range s.entries {
		e.state.Store(int32(Unmatched))
	}
	s.mu.RUnlock()

	s.noMatchMu.Lock()
	s.noMatches = nil
	s.noMatchMu.Unlock()
}

// Contracts returns the contracts in declaration order.
func (s *Store) Contracts() []Contract {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Contract, len(s.entries))
	for i, e := range s.entries {
		out[i] = e.Contract
	}
	return out
}

// States returns the state of every contract by name.
func (s *Store) States() map[string]State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]State, len(s.entries))
	for _, e := range s.entries {
		out[e.Name] = e.load()
	}
	return out
}

// NoMatches returns the requests that no contract satisfied, oldest first.
func (s *Store) NoMatches() []NoMatch {
	s.noMatchMu.Lock()
	defer s.noMatchMu.Unlock()
	return append([]NoMatch(nil), s.noMatches...)
}

func (s *Store) recordNoMatch(nm NoMatch) {
	s.noMatchMu.Lock()
	s.noMatches = append(s.noMatches, nm)
	s.noMatchMu.Unlock()
}

// matchResult is the outcome of matching one request. On success, winner is claimed and must be released once the
// response is written.
type matchResult struct {
	winner     *entry
	shadowed   []string
	candidates []candidate
}

// match evaluates contracts in declaration order. A consumed single-use contract never matches.
func (s *Store) match(in *inbound) (matchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		full   []candidate
		result matchResult
	)
	for _, e := range s.entries {
		satisfied, failed := e.evaluate(in)
		if e.SingleUse && e.load() != Unmatched {
			failed = append(failed, "state:"+e.load().String())
		}
		c := candidate{entry: e, satisfied: satisfied, failed: failed}
		if len(failed) == 0 {
			full = append(full, c)
			continue
		}
		result.candidates = append(result.candidates, c)
	}
	if s.strictAmbiguity && len(full) > 1 {
		names := make([]string, len(full))
		for i, c := range full {
			names[i] = c.entry.Name
		}
		return matchResult{}, errors.NewError(errors.ContractAmbiguousMatch,
			errors.SafeParam("method", in.method),
			errors.SafeParam("path", in.path),
			errors.SafeParam("contracts", names))
	}
	for _, c := range full {
		switch {
		case result.winner != nil:
			result.shadowed = append(result.shadowed, c.entry.Name)
		case c.entry.claim():
			result.winner = c.entry
		default:
			// claimed concurrently by another request
			c.failed = []string{"state:" + c.entry.load().String()}
			result.candidates = append(result.candidates, c)
		}
	}
	return result, nil
}
