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
	wparams "github.com/palantir/witchcraft-go-params"
)

func newGenericError(cause error, errorType ErrorType, params wparams.ParamStorer) genericError {
	return genericError{
		errorType:       errorType,
		errorInstanceID: uuid.NewUUID(),
		params:          params,
		cause:           cause,
	}
}

type genericError struct {
	errorType       ErrorType
	errorInstanceID uuid.UUID
	params          wparams.ParamStorer
	cause           error
}

var (
	_ fmt.Stringer     = genericError{}
	_ Error            = genericError{}
	_ json.Marshaler   = genericError{}
	_ json.Unmarshaler = &genericError{}
)

func (e genericError) String() string {
	return fmt.Sprintf("%s (%s)", e.errorType, e.errorInstanceID)
}

func (e genericError) Error() string {
	return e.String()
}

func (e genericError) Code() ErrorCode {
	return e.errorType.code
}

func (e genericError) Name() string {
	return e.errorType.name
}

func (e genericError) InstanceID() uuid.UUID {
	return e.errorInstanceID
}

// Cause returns the error this one wraps, if any.
func (e genericError) Cause() error {
	return e.cause
}

func (e genericError) Unwrap() error {
	return e.cause
}

func (e genericError) SafeParams() map[string]interface{} {
	if e.params == nil {
		return map[string]interface{}{}
	}
	safe := e.params.SafeParams()
	out := make(map[string]interface{}, len(safe)+1)
	for k, v := range safe {
		out[k] = v
	}
	out["errorInstanceId"] = e.errorInstanceID.String()
	return out
}

func (e genericError) UnsafeParams() map[string]interface{} {
	if e.params == nil {
		return map[string]interface{}{}
	}
	return e.params.UnsafeParams()
}

func (e genericError) MarshalJSON() ([]byte, error) {
	return codecs.JSON.Marshal(serializeError(e))
}

func (e *genericError) UnmarshalJSON(data []byte) (err error) {
	var se SerializableError
	if err := codecs.JSON.Unmarshal(data, &se); err != nil {
		return err
	}
	if e.errorType, err = NewErrorType(se.ErrorCode, se.ErrorName); err != nil {
		return err
	}
	e.errorInstanceID = se.ErrorInstanceID
	params := map[string]interface{}{}
	if len(se.Parameters) > 0 {
		if err := codecs.JSON.Unmarshal(se.Parameters, &params); err != nil {
			return err
		}
	}
	// Received parameters cannot be proven safe.
	e.params = wparams.NewUnsafeParamStorer(params)
	return nil
}
