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
	"regexp"

	werror "github.com/palantir/witchcraft-go-error"
)

var errorNamePattern = regexp.MustCompile(`^([A-Z][a-z0-9]+)+:([A-Z][a-z0-9]+)+$`)

// ErrorType pairs an ErrorCode with a "Namespace:Name" error name.
type ErrorType struct {
	code ErrorCode
	name string
}

// NewErrorType returns an error if name is not of the form "UpperCamel:UpperCamel".
func NewErrorType(code ErrorCode, name string) (ErrorType, error) {
	if !errorNamePattern.MatchString(name) {
		return ErrorType{}, werror.Error("error name does not match pattern",
			werror.SafeParam("name", name),
			werror.SafeParam("pattern", errorNamePattern.String()))
	}
	if _, ok := errorCodeNames[code]; !ok {
		return ErrorType{}, werror.Error("invalid error code", werror.SafeParam("code", int16(code)))
	}
	return ErrorType{code: code, name: name}, nil
}

// MustErrorType panics if NewErrorType fails. Intended for package-level declarations.
func MustErrorType(code ErrorCode, name string) ErrorType {
	errorType, err := NewErrorType(code, name)
	if err != nil {
		panic(err)
	}
	return errorType
}

func (et ErrorType) Code() ErrorCode {
	return et.code
}

func (et ErrorType) Name() string {
	return et.name
}

func (et ErrorType) String() string {
	return fmt.Sprintf("%s %s", et.code, et.name)
}
