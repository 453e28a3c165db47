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

package errors

import (
	"context"
	"reflect"

	"github.com/palantir/go-feign-runtime/feign-contract/codecs"
	werror "github.com/palantir/witchcraft-go-error"
)

var errorInterfaceType = reflect.TypeOf((*Error)(nil)).Elem()

// Registry maps error names to concrete types used when decoding serialized errors.
// Unknown names decode to a generic Error which keeps code, name, instance id and parameters.
type Registry struct {
	types map[string]reflect.Type
}

func NewRegistry() *Registry {
	return &Registry{types: map[string]reflect.Type{}}
}

func (r *Registry) RegisterErrorType(name string, typ reflect.Type) error {
	if existing, exists := r.types[name]; exists {
		return werror.Error("error name already registered",
			werror.SafeParam("name", name),
			werror.SafeParam("existing", existing.String()))
	}
	if ptr := reflect.PointerTo(typ); !ptr.Implements(errorInterfaceType) {
		return werror.Error("type does not implement errors.Error", werror.SafeParam("type", ptr.String()))
	}
	r.types[name] = typ
	return nil
}

func (r *Registry) UnmarshalJSONError(ctx context.Context, body []byte) (Error, error) {
	var name struct {
		Name string `json:"errorName"`
	}
	if err := codecs.JSON.Unmarshal(body, &name); err != nil {
		return nil, werror.WrapWithContextParams(ctx, err, "failed to unmarshal body as serialized error")
	}
	if name.Name == "" {
		return nil, werror.ErrorWithContextParams(ctx, "body is not a serialized error")
	}
	typ, ok := r.types[name.Name]
	if !ok {
		typ = reflect.TypeOf(genericError{})
	}
	instance := reflect.New(typ)
	if err := codecs.JSON.Unmarshal(body, instance.Interface()); err != nil {
		return nil, werror.WrapWithContextParams(ctx, err, "failed to unmarshal error using registered type",
			werror.SafeParam("type", typ.String()))
	}
	conjureErr, ok := instance.Interface().(Error)
	if !ok {
		return nil, werror.ErrorWithContextParams(ctx, "registered type does not implement Error",
			werror.SafeParam("type", typ.String()))
	}
	return conjureErr, nil
}

var globalRegistry = NewRegistry()

// UnmarshalError decodes a serialized error using the default registry.
func UnmarshalError(body []byte) (Error, error) {
	return globalRegistry.UnmarshalJSONError(context.Background(), body)
}
