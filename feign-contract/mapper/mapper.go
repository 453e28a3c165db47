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

// Package mapper decodes wire payloads into Go values through field plans compiled once per target type.
//
// A plan resolves each target field by, in order: an explicit Rule naming a source path, a source key equal to the
// field's wire name (exactly, then ignoring case), the field's `default:"..."` tag, and finally a
// Mapping:MissingRequiredField error when the field is tagged `mapper:"required"`. Source keys no field consumed are
// handled according to the UnmappedPolicy.
package mapper

import (
	"bytes"
	"context"
	"fmt"
	"reflect"
	"sync"

	"github.com/palantir/go-feign-runtime/feign-contract/codecs"
	"github.com/palantir/go-feign-runtime/feign-contract/errors"
)

// Converter transforms a source value before it is assigned to its target field. The input is a decoded wire value
// (string, bool, json.Number, []interface{}, map[string]interface{} or nil).
type Converter func(value interface{}) (interface{}, error)

// Sources names the inputs of an object-to-object mapping. Rule source paths start with one of these names.
type Sources map[string]interface{}

type Mapper struct {
	strict     bool
	policy     UnmappedPolicy
	converters map[string]Converter
	plans      *planCache
}

type Option func(*Mapper)

// WithStrict controls numeric strictness. In strict mode fractional values for integer fields and precision loss
// into float32 fields fail; in lenient mode they are truncated. Mappers are strict by default.
func WithStrict(strict bool) Option {
	return func(m *Mapper) {
		m.strict = strict
	}
}

// WithUnmappedPolicy sets how source keys that no target field consumes are handled. The default is Warn.
func WithUnmappedPolicy(policy UnmappedPolicy) Option {
	return func(m *Mapper) {
		m.policy = policy
	}
}

// WithConverter registers a named Converter which rules reference by name.
func WithConverter(name string, fn Converter) Option {
	return func(m *Mapper) {
		m.converters[name] = fn
	}
}

func New(opts ...Option) *Mapper {
	m := &Mapper{
		strict:     true,
		policy:     Warn,
		converters: map[string]Converter{},
		plans:      &planCache{plans: map[reflect.Type]*structPlan{}},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Derive returns a Mapper sharing m's compiled plans and converters with different decoding options.
func (m *Mapper) Derive(opts ...Option) *Mapper {
	derived := &Mapper{
		strict:     m.strict,
		policy:     m.policy,
		converters: m.converters,
		plans:      m.plans,
	}
	for _, opt := range opts {
		opt(derived)
	}
	return derived
}

func (m *Mapper) Strict() bool {
	return m.strict
}

// Register compiles rules for the struct type of target. It must be called before the type is first decoded.
// Ambiguous, unknown or cyclic rules fail with Mapping:AmbiguousMapping.
func (m *Mapper) Register(target interface{}, rules ...Rule) error {
	typ := reflect.TypeOf(target)
	for typ != nil && typ.Kind() == reflect.Ptr {
		typ = typ.Elem()
	}
	if typ == nil || typ.Kind() != reflect.Struct {
		return errors.NewError(errors.MappingAmbiguousMapping,
			errors.SafeParam("reason", "mapping target is not a struct"),
			errors.SafeParam("type", fmt.Sprintf("%T", target)))
	}
	plan, err := compileStruct(typ, rules, m.converters)
	if err != nil {
		return err
	}
	if err := m.plans.add(plan); err != nil {
		return err
	}
	return m.precompile(typ, map[reflect.Type]struct{}{})
}

// MustRegister panics if Register fails. Intended for startup wiring.
func (m *Mapper) MustRegister(target interface{}, rules ...Rule) {
	if err := m.Register(target, rules...); err != nil {
		panic(err)
	}
}

// precompile compiles name-only plans for every struct reachable from typ so collisions surface at registration.
func (m *Mapper) precompile(typ reflect.Type, seen map[reflect.Type]struct{}) error {
	for typ.Kind() == reflect.Ptr || typ.Kind() == reflect.Slice || typ.Kind() == reflect.Array || typ.Kind() == reflect.Map {
		typ = typ.Elem()
	}
	if typ.Kind() != reflect.Struct || implementsUnmarshaler(typ) {
		return nil
	}
	if _, ok := seen[typ]; ok {
		return nil
	}
	seen[typ] = struct{}{}
	plan, err := m.planFor(typ)
	if err != nil {
		return err
	}
	for _, f := range plan.fields {
		if err := m.precompile(f.typ, seen); err != nil {
			return err
		}
	}
	return nil
}

func (m *Mapper) planFor(typ reflect.Type) (*structPlan, error) {
	if plan, ok := m.plans.get(typ); ok {
		return plan, nil
	}
	plan, err := compileStruct(typ, nil, m.converters)
	if err != nil {
		return nil, err
	}
	return m.plans.getOrAdd(plan), nil
}

// Encode marshals v with codec. Values decoded from canonical JSON encode back to identical bytes.
func (m *Mapper) Encode(v interface{}, codec codecs.Encoder) ([]byte, error) {
	out, err := codec.Marshal(v)
	if err != nil {
		return nil, errors.WrapWithNewError(err, errors.ResponseDecodeError, errors.SafeParam("reason", "encode failed"))
	}
	return out, nil
}

// Decode parses data with codec and applies the compiled plan of out's type. JSON and YAML payloads go through field
// plans; other codecs unmarshal directly into out. Empty payloads leave out unmodified.
func (m *Mapper) Decode(ctx context.Context, data []byte, codec codecs.Decoder, out interface{}) error {
	target := reflect.ValueOf(out)
	if !target.IsValid() || target.Kind() != reflect.Ptr || target.IsNil() {
		return errors.NewError(errors.ResponseDecodeError,
			errors.SafeParam("reason", "decode target must be a non-nil pointer"),
			errors.SafeParam("type", fmt.Sprintf("%T", out)))
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if !isTreeCodec(codec) || implementsUnmarshaler(target.Elem().Type()) {
		if err := codec.Unmarshal(data, out); err != nil {
			return errors.WrapWithNewError(err, errors.ResponseDecodeError, errors.SafeParam("contentType", codec.Accept()))
		}
		return nil
	}
	var tree interface{}
	if err := codec.Unmarshal(data, &tree); err != nil {
		return errors.WrapWithNewError(err, errors.ResponseDecodeError, errors.SafeParam("contentType", codec.Accept()))
	}
	return m.apply(ctx, NormalizeTree(tree), target.Elem())
}

// Map fills dst from named sources. Sources are first flattened to their JSON wire form, so rules address source
// fields by wire name, e.g. Rule{Source: "user.avatar_url", Target: "avatar"}.
func (m *Mapper) Map(ctx context.Context, dst interface{}, sources Sources) error {
	tree := make(map[string]interface{}, len(sources))
	for name, src := range sources {
		sub, err := toTree(src)
		if err != nil {
			return err
		}
		tree[name] = sub
	}
	return m.MapTree(ctx, dst, tree)
}

// MapValue fills dst from a single source value, matching fields by wire name.
func (m *Mapper) MapValue(ctx context.Context, dst interface{}, src interface{}) error {
	tree, err := toTree(src)
	if err != nil {
		return err
	}
	return m.MapTree(ctx, dst, tree)
}

// MapTree fills dst from an already decoded wire tree.
func (m *Mapper) MapTree(ctx context.Context, dst interface{}, tree interface{}) error {
	target := reflect.ValueOf(dst)
	if !target.IsValid() || target.Kind() != reflect.Ptr || target.IsNil() {
		return errors.NewError(errors.ResponseDecodeError,
			errors.SafeParam("reason", "mapping target must be a non-nil pointer"),
			errors.SafeParam("type", fmt.Sprintf("%T", dst)))
	}
	return m.apply(ctx, NormalizeTree(tree), target.Elem())
}

func (m *Mapper) apply(ctx context.Context, tree interface{}, v reflect.Value) error {
	d := &decoder{ctx: ctx, mapper: m}
	return d.assign(v, tree, "")
}

func toTree(src interface{}) (interface{}, error) {
	data, err := codecs.JSON.Marshal(src)
	if err != nil {
		return nil, errors.WrapWithNewError(err, errors.ResponseDecodeError, errors.SafeParam("reason", "source is not serializable"))
	}
	var tree interface{}
	if err := codecs.JSON.Unmarshal(data, &tree); err != nil {
		return nil, errors.WrapWithNewError(err, errors.ResponseDecodeError)
	}
	return tree, nil
}

func isTreeCodec(codec codecs.Decoder) bool {
	switch codec.Accept() {
	case codecs.JSON.Accept(), codecs.YAML.Accept():
		return true
	}
	return false
}

type planCache struct {
	mu    sync.RWMutex
	plans map[reflect.Type]*structPlan
}

func (c *planCache) get(typ reflect.Type) (*structPlan, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	plan, ok := c.plans[typ]
	return plan, ok
}

func (c *planCache) add(plan *structPlan) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.plans[plan.typ]; ok {
		return errors.NewError(errors.MappingAmbiguousMapping,
			errors.SafeParam("reason", "type already has a resolved plan"),
			errors.SafeParam("type", plan.typ.String()))
	}
	c.plans[plan.typ] = plan
	return nil
}

func (c *planCache) getOrAdd(plan *structPlan) *structPlan {
	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.plans[plan.typ]; ok {
		return existing
	}
	c.plans[plan.typ] = plan
	return plan
}
