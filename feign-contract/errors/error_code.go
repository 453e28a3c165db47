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
	"fmt"
	"net/http"

	werror "github.com/palantir/witchcraft-go-error"
)

// ErrorCode is the broad category of an Error. Each code has a fixed HTTP status.
type ErrorCode int16

const (
	Unauthorized ErrorCode = iota + 1
	PermissionDenied
	InvalidArgument
	NotFound
	Conflict
	RequestEntityTooLarge
	FailedPrecondition
	Internal
	Timeout
	CustomClient
	CustomServer
	ServiceUnavailable
)

var errorCodeNames = map[ErrorCode]string{
	Unauthorized:          "UNAUTHORIZED",
	PermissionDenied:      "PERMISSION_DENIED",
	InvalidArgument:       "INVALID_ARGUMENT",
	NotFound:              "NOT_FOUND",
	Conflict:              "CONFLICT",
	RequestEntityTooLarge: "REQUEST_ENTITY_TOO_LARGE",
	FailedPrecondition:    "FAILED_PRECONDITION",
	Internal:              "INTERNAL",
	Timeout:               "TIMEOUT",
	CustomClient:          "CUSTOM_CLIENT",
	CustomServer:          "CUSTOM_SERVER",
	ServiceUnavailable:    "SERVICE_UNAVAILABLE",
}

func (ec ErrorCode) String() string {
	if name, ok := errorCodeNames[ec]; ok {
		return name
	}
	return fmt.Sprintf("<invalid error code: %d>", int16(ec))
}

// StatusCode returns the HTTP status written for errors of this code.
func (ec ErrorCode) StatusCode() int {
	switch ec {
	case Unauthorized:
		return http.StatusUnauthorized
	case PermissionDenied:
		return http.StatusForbidden
	case InvalidArgument, CustomClient:
		return http.StatusBadRequest
	case NotFound:
		return http.StatusNotFound
	case Conflict:
		return http.StatusConflict
	case RequestEntityTooLarge:
		return http.StatusRequestEntityTooLarge
	case ServiceUnavailable:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func (ec ErrorCode) MarshalText() ([]byte, error) {
	if _, ok := errorCodeNames[ec]; !ok {
		return nil, werror.Error("invalid error code", werror.SafeParam("code", int16(ec)))
	}
	return []byte(ec.String()), nil
}

func (ec *ErrorCode) UnmarshalText(data []byte) error {
	for code, name := range errorCodeNames {
		if name == string(data) {
			*ec = code
			return nil
		}
	}
	return werror.Error("unknown error code", werror.SafeParam("code", string(data)))
}
