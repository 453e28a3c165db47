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
	"context"
	"encoding"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/palantir/go-feign-runtime/feign-contract/codecs"
	"github.com/palantir/go-feign-runtime/feign-contract/errors"
	"github.com/palantir/witchcraft-go-logging/wlog/svclog/svc1log"
)

var jsonNumberType = reflect.TypeOf(json.Number(""))

type decoder struct {
	ctx    context.Context
	mapper *Mapper
}

func (d *decoder) assign(v reflect.Value, src interface{}, path string) error {
	if src == nil {
		v.Set(reflect.Zero(v.Type()))
		return nil
	}
	if v.Kind() != reflect.Ptr && v.CanAddr() {
		switch u := v.Addr().Interface().(type) {
		case json.Unmarshaler:
			data, err := codecs.JSON.Marshal(src)
			if err != nil {
				return d.invalid(path, v.Type(), src, err)
			}
			if err := u.UnmarshalJSON(data); err != nil {
				return d.invalid(path, v.Type(), src, err)
			}
			return nil
		case encoding.TextUnmarshaler:
			s, ok := src.(string)
			if !ok {
				return d.mismatch(path, v.Type(), src)
			}
			if err := u.UnmarshalText([]byte(s)); err != nil {
				return d.invalid(path, v.Type(), src, err)
			}
			return nil
		}
	}
	if v.Type() == jsonNumberType {
		text, ok := numberText(src)
		if !ok {
			return d.mismatch(path, v.Type(), src)
		}
		v.SetString(text)
		return nil
	}

	switch v.Kind() {
	case reflect.Ptr:
		elem := reflect.New(v.Type().Elem())
		if err := d.assign(elem.Elem(), src, path); err != nil {
			return err
		}
		v.Set(elem)
	case reflect.Interface:
		if v.NumMethod() != 0 {
			return d.mismatch(path, v.Type(), src)
		}
		v.Set(reflect.ValueOf(src))
	case reflect.Struct:
		obj, ok := src.(map[string]interface{})
		if !ok {
			return d.mismatch(path, v.Type(), src)
		}
		return d.assignStruct(v, obj, path)
	case reflect.Map:
		obj, ok := src.(map[string]interface{})
		if !ok || v.Type().Key().Kind() != reflect.String {
			return d.mismatch(path, v.Type(), src)
		}
		out := reflect.MakeMapWithSize(v.Type(), len(obj))
		for key, raw := range obj {
			elem := reflect.New(v.Type().Elem()).Elem()
			if err := d.assign(elem, raw, joinPath(path, key)); err != nil {
				return err
			}
			out.SetMapIndex(reflect.ValueOf(key).Convert(v.Type().Key()), elem)
		}
		v.Set(out)
	case reflect.Slice:
		if s, ok := src.(string); ok && v.Type().Elem().Kind() == reflect.Uint8 {
			decoded, err := base64.StdEncoding.DecodeString(s)
			if err != nil {
				return d.invalid(path, v.Type(), src, err)
			}
			v.SetBytes(decoded)
			return nil
		}
		arr, ok := src.([]interface{})
		if !ok {
			return d.mismatch(path, v.Type(), src)
		}
		out := reflect.MakeSlice(v.Type(), len(arr), len(arr))
		for i, raw := range arr {
			if err := d.assign(out.Index(i), raw, fmt.Sprintf("%s[%d]", path, i)); err != nil {
				return err
			}
		}
		v.Set(out)
	case reflect.Array:
		arr, ok := src.([]interface{})
		if !ok || len(arr) != v.Len() {
			return d.mismatch(path, v.Type(), src)
		}
		for i, raw := range arr {
			if err := d.assign(v.Index(i), raw, fmt.Sprintf("%s[%d]", path, i)); err != nil {
				return err
			}
		}
	case reflect.String:
		s, ok := src.(string)
		if !ok {
			return d.mismatch(path, v.Type(), src)
		}
		v.SetString(s)
	case reflect.Bool:
		b, ok := src.(bool)
		if !ok {
			return d.mismatch(path, v.Type(), src)
		}
		v.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return d.assignInt(v, src, path)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return d.assignUint(v, src, path)
	case reflect.Float32, reflect.Float64:
		return d.assignFloat(v, src, path)
	default:
		return d.mismatch(path, v.Type(), src)
	}
	return nil
}

func (d *decoder) assignStruct(v reflect.Value, obj map[string]interface{}, path string) error {
	plan, err := d.mapper.planFor(v.Type())
	if err != nil {
		return err
	}
	consumed := make(map[string]struct{}, len(obj))
	for _, f := range plan.fields {
		fieldPath := joinPath(path, f.wireName)
		fv := v.FieldByIndex(f.index)

		raw, found := resolve(f, obj, consumed)
		if found && f.rule != nil && f.rule.converter != nil {
			converted, err := f.rule.converter(raw)
			if err != nil {
				return errors.WrapWithNewError(err, errors.ResponseDecodeError,
					errors.SafeParam("field", fieldPath),
					errors.SafeParam("converter", f.rule.rule.Converter))
			}
			raw = converted
		}
		switch {
		case found && raw != nil:
			if err := d.assign(fv, raw, fieldPath); err != nil {
				return err
			}
		case f.hasDefault:
			if err := d.assignDefault(fv, f.defaultValue, fieldPath); err != nil {
				return err
			}
		case f.required:
			return errors.NewError(errors.MappingMissingRequiredField,
				errors.SafeParam("field", fieldPath),
				errors.SafeParam("type", v.Type().String()))
		default:
			fv.Set(reflect.Zero(fv.Type()))
		}
	}
	return d.handleUnmapped(v.Type(), obj, consumed, path)
}

// resolve finds the source value for f: its rule first, then its wire name, then a case-insensitive name match.
func resolve(f fieldPlan, obj map[string]interface{}, consumed map[string]struct{}) (interface{}, bool) {
	if f.rule != nil {
		if raw, ok := lookupPath(obj, f.rule.source); ok {
			consumed[f.rule.source[0]] = struct{}{}
			return raw, true
		}
	}
	if raw, ok := obj[f.wireName]; ok {
		consumed[f.wireName] = struct{}{}
		return raw, true
	}
	for _, key := range sortedKeys(obj) {
		if strings.EqualFold(key, f.wireName) || strings.EqualFold(key, f.goName) {
			consumed[key] = struct{}{}
			return obj[key], true
		}
	}
	return nil, false
}

func (d *decoder) assignDefault(v reflect.Value, text, path string) error {
	base := v.Type()
	for base.Kind() == reflect.Ptr {
		base = base.Elem()
	}
	if base.Kind() == reflect.String {
		return d.assign(v, text, path)
	}
	var tree interface{}
	if err := codecs.JSON.Unmarshal([]byte(text), &tree); err != nil {
		return errors.WrapWithNewError(err, errors.MappingAmbiguousMapping,
			errors.SafeParam("reason", "default value does not parse"),
			errors.SafeParam("field", path))
	}
	return d.assign(v, tree, path)
}

func (d *decoder) handleUnmapped(typ reflect.Type, obj map[string]interface{}, consumed map[string]struct{}, path string) error {
	if d.mapper.policy == Ignore || len(consumed) == len(obj) {
		return nil
	}
	var unmapped []string
	for _, key := range sortedKeys(obj) {
		if _, ok := consumed[key]; !ok {
			unmapped = append(unmapped, key)
		}
	}
	if d.mapper.policy == Fail {
		return errors.NewError(errors.MappingUnmappedField,
			errors.SafeParam("type", typ.String()),
			errors.SafeParam("path", path),
			errors.SafeParam("fields", unmapped))
	}
	svc1log.FromContext(d.ctx).Warn("Source fields have no mapping target",
		svc1log.SafeParam("type", typ.String()),
		svc1log.SafeParam("path", path),
		svc1log.SafeParam("fields", unmapped))
	return nil
}

func (d *decoder) mismatch(path string, typ reflect.Type, src interface{}) error {
	return errors.NewError(errors.ResponseDecodeError,
		errors.SafeParam("reason", "type mismatch"),
		errors.SafeParam("field", path),
		errors.SafeParam("expected", typ.String()),
		errors.SafeParam("actual", fmt.Sprintf("%T", src)))
}

func (d *decoder) invalid(path string, typ reflect.Type, src interface{}, cause error) error {
	return errors.WrapWithNewError(cause, errors.ResponseDecodeError,
		errors.SafeParam("reason", "invalid value"),
		errors.SafeParam("field", path),
		errors.SafeParam("expected", typ.String()))
}

func joinPath(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}

func sortedKeys(obj map[string]interface{}) []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
