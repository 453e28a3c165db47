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
	"encoding/json"
	"fmt"

	"github.com/palantir/go-feign-runtime/feign-contract/codecs"
	"github.com/palantir/pkg/uuid"
)

// SerializableError is the JSON wire form of an Error.
type SerializableError struct {
	ErrorCode       ErrorCode       `json:"errorCode"`
	ErrorName       string          `json:"errorName"`
	ErrorInstanceID uuid.UUID       `json:"errorInstanceId"`
	Parameters      json.RawMessage `json:"parameters,omitempty"`
}

// serializeError merges safe and unsafe params into a single parameters object.
// A parameter value which cannot be marshaled is replaced by its string form.
func serializeError(e Error) SerializableError {
	params := map[string]interface{}{}
	for k, v := range e.UnsafeParams() {
		params[k] = v
	}
	for k, v := range e.SafeParams() {
		if k == "errorInstanceId" {
			continue
		}
		params[k] = v
	}
	marshaled, err := codecs.JSON.Marshal(params)
	if err != nil {
		stringified := make(map[string]string, len(params))
		for k, v := range params {
			stringified[k] = fmt.Sprintf("%v", v)
		}
		marshaled, _ = codecs.JSON.Marshal(stringified)
	}
	return SerializableError{
		ErrorCode:       e.Code(),
		ErrorName:       e.Name(),
		ErrorInstanceID: e.InstanceID(),
		Parameters:      marshaled,
	}
}
