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
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/url"
	"reflect"
	"sort"
	"strconv"

	"github.com/palantir/go-feign-runtime/feign-contract/codecs"
	"github.com/palantir/go-feign-runtime/feign-contract/mapper"
)

// inbound is the part of a request the matcher evaluates. The body is read once and decoded when it is JSON or
// YAML.
type inbound struct {
	method string
	path   string
	query  url.Values
	header http.Header
	raw    []byte
	tree   interface{}
	parsed bool
}

func newInbound(req *http.Request, body []byte) *inbound {
	in := &inbound{
		method: req.Method,
		path:   req.URL.Path,
		query:  req.URL.Query(),
		header: req.Header,
		raw:    body,
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return in
	}
	codec := codecs.JSON
	if contentType := req.Header.Get("Content-Type"); contentType != "" {
		if negotiated, err := codecs.ForContentType(contentType); err == nil {
			codec = negotiated
		}
	}
	if codec != codecs.JSON && codec != codecs.YAML {
		return in
	}
	var tree interface{}
	if err := codec.Unmarshal(body, &tree); err == nil {
		in.tree = mapper.NormalizeTree(tree)
		in.parsed = true
	}
	return in
}

// evaluate returns the number of satisfied predicates and the names of the failed ones.
func (c *compiled) evaluate(in *inbound) (satisfied int, failed []string) {
	check := func(ok bool, name string) {
		if ok {
			satisfied++
		} else {
			failed = append(failed, name)
		}
	}
	if c.Request.Method != "" {
		check(c.Request.Method == in.method, "method")
	}
	if c.path != "" {
		check(c.path == in.path, "url")
	}
	if c.urlPattern != nil {
		check(c.urlPattern.MatchString(in.path), "urlPattern")
	}
	for _, name := range sortedKeys(c.Request.Headers) {
		check(in.header.Get(name) == c.Request.Headers[name], "header:"+name)
	}
	for _, name := range sortedKeys(c.query) {
		check(containsAll(in.query[name], c.query[name]), "query:"+name)
	}
	if c.body != nil {
		check(c.matchBody(in), "body")
	}
	for _, m := range c.bodyMatchers {
		check(m.match(in), "bodyMatcher:"+m.path)
	}
	return satisfied, failed
}

func (c *compiled) matchBody(in *inbound) bool {
	if in.parsed {
		return subset(c.body, in.tree)
	}
	if s, ok := c.body.(string); ok {
		return s == string(in.raw)
	}
	return false
}

func (m compiledBodyMatcher) match(in *inbound) bool {
	if m.path == "" {
		return m.regex.Match(in.raw)
	}
	if !in.parsed {
		return false
	}
	v, ok := mapper.Lookup(in.tree, m.path)
	if !ok || v == nil {
		return false
	}
	return m.regex.MatchString(scalarText(v))
}

// subset reports whether every key of want is present in got with a matching value.
func subset(want, got interface{}) bool {
	switch w := want.(type) {
	case map[string]interface{}:
		g, ok := got.(map[string]interface{})
		if !ok {
			return false
		}
		for k, wv := range w {
			gv, ok := g[k]
			if !ok || !subset(wv, gv) {
				return false
			}
		}
		return true
	case []interface{}:
		g, ok := got.([]interface{})
		if !ok || len(g) != len(w) {
			return false
		}
		for i := range w {
			if !subset(w[i], g[i]) {
				return false
			}
		}
		return true
	case nil:
		return got == nil
	}
	if wn, ok := toRat(want); ok {
		gn, ok := toRat(got)
		return ok && wn.Cmp(gn) == 0
	}
	return reflect.DeepEqual(want, got)
}

// scalarText renders a value as request text. Integers and JSON numbers keep their exact digits.
func scalarText(v interface{}) string {
	switch n := v.(type) {
	case json.Number:
		return n.String()
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprint(n)
	case float32:
		return strconv.FormatFloat(float64(n), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(n, 'f', -1, 64)
	}
	return fmt.Sprint(v)
}

// toRat returns the exact value of a number so that 42, int64(42) and json.Number("42.0") compare equal.
func toRat(v interface{}) (*big.Rat, bool) {
	switch n := v.(type) {
	case json.Number:
		return new(big.Rat).SetString(n.String())
	case int:
		return new(big.Rat).SetInt64(int64(n)), true
	case int8:
		return new(big.Rat).SetInt64(int64(n)), true
	case int16:
		return new(big.Rat).SetInt64(int64(n)), true
	case int32:
		return new(big.Rat).SetInt64(int64(n)), true
	case int64:
		return new(big.Rat).SetInt64(n), true
	case uint:
		return new(big.Rat).SetUint64(uint64(n)), true
	case uint8:
		return new(big.Rat).SetUint64(uint64(n)), true
	case uint16:
		return new(big.Rat).SetUint64(uint64(n)), true
	case uint32:
		return new(big.Rat).SetUint64(uint64(n)), true
	case uint64:
		return new(big.Rat).SetUint64(n), true
	case float32:
		return ratFromFloat(float64(n))
	case float64:
		return ratFromFloat(n)
	}
	return nil, false
}

func ratFromFloat(f float64) (*big.Rat, bool) {
	r := new(big.Rat).SetFloat64(f)
	return r, r != nil
}

func containsAll(got, want []string) bool {
	for _, w := range want {
		found := false
		for _, g := range got {
			if g == w {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// PartialMatch describes a contract that satisfied some but not all predicates of a request.
type PartialMatch struct {
	Contract  string   `json:"contract"`
	Satisfied int      `json:"satisfied"`
	Failed    []string `json:"failed"`
}

type candidate struct {
	entry     *entry
	satisfied int
	failed    []string
}

// closest orders candidates by satisfied predicate count, then declaration order, and keeps the top n.
func closest(candidates []candidate, n int) []PartialMatch {
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].satisfied != candidates[j].satisfied {
			return candidates[i].satisfied > candidates[j].satisfied
		}
		return candidates[i].entry.index < candidates[j].entry.index
	})
	out := make([]PartialMatch, 0, n)
	for _, c := range candidates {
		if len(out) == n {
			break
		}
		if c.satisfied == 0 {
			continue
		}
		out = append(out, PartialMatch{
			Contract:  c.entry.Name,
			Satisfied: c.satisfied,
			Failed:    append([]string(nil), c.failed...),
		})
	}
	return out
}
