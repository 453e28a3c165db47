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

package binder

import (
	"encoding"
	"fmt"
	"reflect"
	"strconv"

	"github.com/palantir/go-feign-runtime/feign-contract/errors"
	werror "github.com/palantir/witchcraft-go-error"
	wparams "github.com/palantir/witchcraft-go-params"
)

// formatArg renders a path, query or header argument. Slices render one value per element. A nil argument renders
// nothing and returns nil.
func formatArg(arg interface{}) ([]string, error) {
	if isNil(arg) {
		return nil, nil
	}
	if s, ok, err := formatText(arg); ok {
		if err != nil {
			return nil, err
		}
		return []string{s}, nil
	}
	v := reflect.ValueOf(arg)
	for v.Kind() == reflect.Ptr || v.Kind() == reflect.Interface {
		v = v.Elem()
	}
	if v.Kind() == reflect.Slice || v.Kind() == reflect.Array {
		out := make([]string, 0, v.Len())
		for i := 0; i < v.Len(); i++ {
			elem := v.Index(i).Interface()
			if isNil(elem) {
				return nil, werror.Error("nil element", werror.SafeParam("index", i))
			}
			s, err := formatScalar(elem)
			if err != nil {
				return nil, err
			}
			out = append(out, s)
		}
		return out, nil
	}
	s, err := formatScalar(v.Interface())
	if err != nil {
		return nil, err
	}
	return []string{s}, nil
}

func formatScalar(arg interface{}) (string, error) {
	if s, ok, err := formatText(arg); ok {
		return s, err
	}
	v := reflect.ValueOf(arg)
	for v.Kind() == reflect.Ptr {
		v = v.Elem()
	}
	switch v.Kind() {
	case reflect.String:
		return v.String(), nil
	case reflect.Bool:
		return strconv.FormatBool(v.Bool()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(v.Int(), 10), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(v.Uint(), 10), nil
	case reflect.Float32:
		return strconv.FormatFloat(v.Float(), 'g', -1, 32), nil
	case reflect.Float64:
		return strconv.FormatFloat(v.Float(), 'g', -1, 64), nil
	}
	return "", werror.Error("unsupported argument type", werror.SafeParam("type", fmt.Sprintf("%T", arg)))
}

// formatText handles types that render themselves, such as time.Time or uuid.UUID.
func formatText(arg interface{}) (string, bool, error) {
	switch x := arg.(type) {
	case string:
		return x, true, nil
	case encoding.TextMarshaler:
		b, err := x.MarshalText()
		if err != nil {
			return "", true, werror.Wrap(err, "failed to marshal argument as text")
		}
		return string(b), true, nil
	case fmt.Stringer:
		return x.String(), true, nil
	}
	return "", false, nil
}

func isNil(arg interface{}) bool {
	if arg == nil {
		return true
	}
	v := reflect.ValueOf(arg)
	switch v.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return v.IsNil()
	}
	return false
}

func bindingError(method Method, reason string, params ...wparams.ParamStorer) error {
	return errors.NewError(errors.BindingInvalidTemplate, append([]wparams.ParamStorer{
		errors.SafeParam("method", method.Name),
		errors.SafeParam("reason", reason),
	}, params...)...)
}

func argumentError(method Method, param, reason string, params ...wparams.ParamStorer) error {
	base := []wparams.ParamStorer{
		errors.SafeParam("method", method.Name),
		errors.SafeParam("reason", reason),
	}
	if param != "" {
		base = append(base, errors.SafeParam("param", param))
	}
	return errors.NewError(errors.BindingInvalidArgument, append(base, params...)...)
}
