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

// Package errors implements the serializable error model shared by clients, servers and the stub engine.
package errors

import (
	"github.com/palantir/pkg/uuid"
	wparams "github.com/palantir/witchcraft-go-params"
)

type Error interface {
	error
	// Code returns an enum describing error category.
	Code() ErrorCode
	// Name returns an error name identifying error type.
	Name() string
	// InstanceID returns unique identifier of this particular error instance.
	InstanceID() uuid.UUID

	wparams.ParamStorer
}

var (
	DefaultInvalidArgument = MustErrorType(InvalidArgument, "Default:InvalidArgument")
	DefaultNotFound        = MustErrorType(NotFound, "Default:NotFound")
	DefaultConflict        = MustErrorType(Conflict, "Default:Conflict")
	DefaultInternal        = MustErrorType(Internal, "Default:Internal")
	DefaultTimeout         = MustErrorType(Timeout, "Default:Timeout")
)

func NewError(errorType ErrorType, parameters ...wparams.ParamStorer) Error {
	return WrapWithNewError(nil, errorType, parameters...)
}

// WrapWithNewError returns a new Error of errorType whose cause is the provided error.
func WrapWithNewError(cause error, errorType ErrorType, parameters ...wparams.ParamStorer) Error {
	return newGenericError(cause, errorType, wparams.NewParamStorer(parameters...))
}

func NewInvalidArgument(parameters ...wparams.ParamStorer) Error {
	return WrapWithNewError(nil, DefaultInvalidArgument, parameters...)
}

func NewNotFound(parameters ...wparams.ParamStorer) Error {
	return WrapWithNewError(nil, DefaultNotFound, parameters...)
}

func WrapWithNotFound(cause error, parameters ...wparams.ParamStorer) Error {
	return WrapWithNewError(cause, DefaultNotFound, parameters...)
}

func NewInternal(parameters ...wparams.ParamStorer) Error {
	return WrapWithNewError(nil, DefaultInternal, parameters...)
}

func WrapWithInternal(cause error, parameters ...wparams.ParamStorer) Error {
	return WrapWithNewError(cause, DefaultInternal, parameters...)
}

// SafeParam and UnsafeParam build single-entry ParamStorers for the constructors above.
func SafeParam(key string, value interface{}) wparams.ParamStorer {
	return wparams.NewSafeParamStorer(map[string]interface{}{key: value})
}

func UnsafeParam(key string, value interface{}) wparams.ParamStorer {
	return wparams.NewUnsafeParamStorer(map[string]interface{}{key: value})
}
