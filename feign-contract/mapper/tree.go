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

package mapper

import (
	"fmt"
	"strings"
)

// NormalizeTree converts generic decoder output into the shape the mapper works on: objects become
// map[string]interface{} (yaml.v2 produces map[interface{}]interface{}) and arrays become []interface{}.
func NormalizeTree(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			out[k] = NormalizeTree(val)
		}
		return out
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = NormalizeTree(val)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, val := range t {
			out[i] = NormalizeTree(val)
		}
		return out
	}
	return v
}

// Lookup returns the value at a dotted path of object keys.
func Lookup(tree interface{}, path string) (interface{}, bool) {
	obj, ok := tree.(map[string]interface{})
	if !ok {
		return nil, false
	}
	return lookupPath(obj, strings.Split(path, "."))
}

func lookupPath(obj map[string]interface{}, segments []string) (interface{}, bool) {
	var current interface{} = obj
	for _, seg := range segments {
		m, ok := current.(map[string]interface{})
		if !ok {
			return nil, false
		}
		if current, ok = m[seg]; !ok {
			return nil, false
		}
	}
	return current, true
}
