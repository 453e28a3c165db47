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
	"encoding/json"
	"math"
	"reflect"
	"strconv"

	"github.com/palantir/go-feign-runtime/feign-contract/errors"
)

// numberText returns the decimal text of a decoded number. JSON trees carry json.Number; YAML trees carry Go numbers.
func numberText(src interface{}) (string, bool) {
	switch n := src.(type) {
	case json.Number:
		return n.String(), true
	case float64:
		return strconv.FormatFloat(n, 'g', -1, 64), true
	case float32:
		return strconv.FormatFloat(float64(n), 'g', -1, 32), true
	case int:
		return strconv.Itoa(n), true
	case int64:
		return strconv.FormatInt(n, 10), true
	case int32:
		return strconv.FormatInt(int64(n), 10), true
	case uint64:
		return strconv.FormatUint(n, 10), true
	case uint:
		return strconv.FormatUint(uint64(n), 10), true
	}
	return "", false
}

func (d *decoder) assignInt(v reflect.Value, src interface{}, path string) error {
	text, ok := numberText(src)
	if !ok {
		return d.mismatch(path, v.Type(), src)
	}
	if i, err := strconv.ParseInt(text, 10, 64); err == nil {
		if v.OverflowInt(i) {
			return d.overflow(path, v.Type(), text)
		}
		v.SetInt(i)
		return nil
	}
	f, err := d.integral(text, path, v.Type())
	if err != nil {
		return err
	}
	if f < math.MinInt64 || f >= math.MaxInt64 || v.OverflowInt(int64(f)) {
		return d.overflow(path, v.Type(), text)
	}
	v.SetInt(int64(f))
	return nil
}

func (d *decoder) assignUint(v reflect.Value, src interface{}, path string) error {
	text, ok := numberText(src)
	if !ok {
		return d.mismatch(path, v.Type(), src)
	}
	if u, err := strconv.ParseUint(text, 10, 64); err == nil {
		if v.OverflowUint(u) {
			return d.overflow(path, v.Type(), text)
		}
		v.SetUint(u)
		return nil
	}
	f, err := d.integral(text, path, v.Type())
	if err != nil {
		return err
	}
	if f < 0 || f >= math.MaxUint64 || v.OverflowUint(uint64(f)) {
		return d.overflow(path, v.Type(), text)
	}
	v.SetUint(uint64(f))
	return nil
}

// integral parses text as a float and drops any fraction, which only lenient mappers allow.
func (d *decoder) integral(text, path string, typ reflect.Type) (float64, error) {
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, d.overflow(path, typ, text)
	}
	if f != math.Trunc(f) {
		if d.mapper.strict {
			return 0, d.lossy(path, typ, text)
		}
		f = math.Trunc(f)
	}
	return f, nil
}

func (d *decoder) assignFloat(v reflect.Value, src interface{}, path string) error {
	text, ok := numberText(src)
	if !ok {
		return d.mismatch(path, v.Type(), src)
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return d.overflow(path, v.Type(), text)
	}
	if v.OverflowFloat(f) {
		return d.overflow(path, v.Type(), text)
	}
	if v.Kind() == reflect.Float32 && float64(float32(f)) != f && d.mapper.strict {
		return d.lossy(path, v.Type(), text)
	}
	v.SetFloat(f)
	return nil
}

func (d *decoder) overflow(path string, typ reflect.Type, text string) error {
	return errors.NewError(errors.ResponseDecodeError,
		errors.SafeParam("reason", "numeric overflow"),
		errors.SafeParam("field", path),
		errors.SafeParam("expected", typ.String()),
		errors.UnsafeParam("value", text))
}

func (d *decoder) lossy(path string, typ reflect.Type, text string) error {
	return errors.NewError(errors.ResponseDecodeError,
		errors.SafeParam("reason", "lossy numeric conversion in strict mode"),
		errors.SafeParam("field", path),
		errors.SafeParam("expected", typ.String()),
		errors.UnsafeParam("value", text))
}
