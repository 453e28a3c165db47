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
	"encoding"
	"encoding/json"
	"reflect"
	"sort"
	"strings"

	"github.com/palantir/go-feign-runtime/feign-contract/errors"
)

// Rule maps the value at Source, a dotted path of wire names, onto the target field whose wire name is Target.
// Converter optionally names a Converter registered on the Mapper.
type Rule struct {
	Source    string `json:"source" yaml:"source"`
	Target    string `json:"target" yaml:"target"`
	Converter string `json:"converter,omitempty" yaml:"converter,omitempty"`
}

type compiledRule struct {
	rule      Rule
	source    []string
	converter Converter
}

type fieldPlan struct {
	index        []int
	typ          reflect.Type
	goName       string
	wireName     string
	required     bool
	hasDefault   bool
	defaultValue string
	rule         *compiledRule
}

type structPlan struct {
	typ    reflect.Type
	fields []fieldPlan
}

var (
	jsonUnmarshalerType = reflect.TypeOf((*json.Unmarshaler)(nil)).Elem()
	textUnmarshalerType = reflect.TypeOf((*encoding.TextUnmarshaler)(nil)).Elem()
)

func implementsUnmarshaler(typ reflect.Type) bool {
	ptr := reflect.PointerTo(typ)
	return ptr.Implements(jsonUnmarshalerType) || ptr.Implements(textUnmarshalerType)
}

func ambiguous(typ reflect.Type, reason string, params ...map[string]interface{}) error {
	safe := map[string]interface{}{"type": typ.String(), "reason": reason}
	for _, p := range params {
		for k, v := range p {
			safe[k] = v
		}
	}
	return errors.NewError(errors.MappingAmbiguousMapping, errors.SafeParam("mapping", safe))
}

func compileStruct(typ reflect.Type, rules []Rule, converters map[string]Converter) (*structPlan, error) {
	plan := &structPlan{typ: typ}
	if err := collectFields(typ, nil, plan); err != nil {
		return nil, err
	}

	byWire := make(map[string]int, len(plan.fields))
	for i, f := range plan.fields {
		if other, ok := byWire[f.wireName]; ok {
			return nil, ambiguous(typ, "fields share a wire name", map[string]interface{}{
				"wireName": f.wireName,
				"fields":   []string{plan.fields[other].goName, f.goName},
			})
		}
		byWire[f.wireName] = i
	}

	targets := map[string]Rule{}
	for _, r := range rules {
		idx, ok := byWire[r.Target]
		if !ok {
			return nil, ambiguous(typ, "rule target is not a field", map[string]interface{}{"target": r.Target})
		}
		if existing, ok := targets[r.Target]; ok {
			return nil, ambiguous(typ, "multiple rules share a target", map[string]interface{}{
				"target":  r.Target,
				"sources": []string{existing.Source, r.Source},
			})
		}
		source := strings.Split(r.Source, ".")
		for _, seg := range source {
			if seg == "" {
				return nil, ambiguous(typ, "rule source path is malformed", map[string]interface{}{"source": r.Source})
			}
		}
		compiled := &compiledRule{rule: r, source: source}
		if r.Converter != "" {
			fn, ok := converters[r.Converter]
			if !ok {
				return nil, ambiguous(typ, "rule references an unknown converter", map[string]interface{}{"converter": r.Converter})
			}
			compiled.converter = fn
		}
		targets[r.Target] = r
		plan.fields[idx].rule = compiled
	}
	if cycle := findCycle(rules); cycle != nil {
		return nil, ambiguous(typ, "rules form a cycle", map[string]interface{}{"cycle": cycle})
	}
	return plan, nil
}

// collectFields flattens embedded structs the way encoding/json does for untagged anonymous fields.
func collectFields(typ reflect.Type, prefix []int, plan *structPlan) error {
	for i := 0; i < typ.NumField(); i++ {
		sf := typ.Field(i)
		tag, hasTag := sf.Tag.Lookup("json")
		name, _, _ := strings.Cut(tag, ",")
		if name == "-" && tag == "-" {
			continue
		}
		index := append(append([]int{}, prefix...), i)
		if sf.Anonymous && !hasTag && sf.Type.Kind() == reflect.Struct {
			if err := collectFields(sf.Type, index, plan); err != nil {
				return err
			}
			continue
		}
		if !sf.IsExported() {
			continue
		}
		if name == "" {
			name = sf.Name
		}
		f := fieldPlan{
			index:    index,
			typ:      sf.Type,
			goName:   sf.Name,
			wireName: name,
			required: hasOption(sf.Tag.Get("mapper"), "required"),
		}
		f.defaultValue, f.hasDefault = sf.Tag.Lookup("default")
		plan.fields = append(plan.fields, f)
	}
	return nil
}

func hasOption(tag, option string) bool {
	for _, part := range strings.Split(tag, ",") {
		if strings.TrimSpace(part) == option {
			return true
		}
	}
	return false
}

// findCycle treats every rule as an edge from its target to the first segment of its source and returns the first
// cycle of two or more fields. A rule whose source is its own target is a plain identity and not a cycle.
func findCycle(rules []Rule) []string {
	edges := map[string]string{}
	for _, r := range rules {
		head, _, _ := strings.Cut(r.Source, ".")
		if head != r.Target {
			edges[r.Target] = head
		}
	}
	starts := make([]string, 0, len(edges))
	for target := range edges {
		starts = append(starts, target)
	}
	sort.Strings(starts)
	for _, start := range starts {
		path := []string{start}
		visited := map[string]bool{start: true}
		for node := edges[start]; ; node = edges[node] {
			if node == start {
				return append(path, start)
			}
			if _, ok := edges[node]; !ok || visited[node] {
				break
			}
			visited[node] = true
			path = append(path, node)
		}
	}
	return nil
}
