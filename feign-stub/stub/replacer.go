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
	"regexp"
	"strconv"
	"strings"

	"github.com/palantir/go-feign-runtime/feign-contract/mapper"
)

var expressionRegex = regexp.MustCompile(`\$\{\{\s*([^}]*?)\s*\}\}`)

// replacer resolves ${{...}} expressions of a response against the inbound request.
type replacer struct {
	in       *inbound
	segments []string
	// unresolved collects expressions that referenced missing request data
	unresolved []string
}

func newReplacer(in *inbound) *replacer {
	var segments []string
	for _, s := range strings.Split(in.path, "/") {
		if s != "" {
			segments = append(segments, s)
		}
	}
	return &replacer{in: in, segments: segments}
}

// replaceTree returns a copy of v with every string value expanded. A string that is exactly one expression takes
// the type of the referenced value, so "${{body.id}}" can render a number.
func (r *replacer) replaceTree(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			out[k] = r.replaceTree(val)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, val := range t {
			out[i] = r.replaceTree(val)
		}
		return out
	case string:
		if m := expressionRegex.FindStringSubmatchIndex(t); m != nil && m[0] == 0 && m[1] == len(t) {
			val, ok := r.resolve(t[m[2]:m[3]])
			if !ok {
				return nil
			}
			return val
		}
		return r.replaceString(t)
	}
	return v
}

// replaceString expands every expression in s to its text form. Missing values render as the empty string.
func (r *replacer) replaceString(s string) string {
	return expressionRegex.ReplaceAllStringFunc(s, func(match string) string {
		expr := expressionRegex.FindStringSubmatch(match)[1]
		val, ok := r.resolve(expr)
		if !ok || val == nil {
			return ""
		}
		return scalarText(val)
	})
}

func (r *replacer) resolve(expr string) (interface{}, bool) {
	source, key, _ := strings.Cut(expr, ".")
	var (
		val interface{}
		ok  bool
	)
	switch source {
	case "body":
		if key == "" {
			val, ok = string(r.in.raw), true
		} else if r.in.parsed {
			val, ok = mapper.Lookup(r.in.tree, key)
		}
	case "header":
		if values := r.in.header.Values(key); len(values) > 0 {
			val, ok = values[0], true
		}
	case "query":
		if values, present := r.in.query[key]; present && len(values) > 0 {
			val, ok = values[0], true
		}
	case "path":
		if i, err := strconv.Atoi(key); err == nil && i >= 0 && i < len(r.segments) {
			val, ok = r.segments[i], true
		}
	}
	if !ok {
		r.unresolved = append(r.unresolved, expr)
	}
	return val, ok
}
