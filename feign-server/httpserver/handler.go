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

// Package httpserver adapts error-returning handlers to HTTP responses and serves the liveness endpoint.
package httpserver

import (
	"net/http"

	"github.com/palantir/go-feign-runtime/feign-contract/errors"
	werror "github.com/palantir/witchcraft-go-error"
	"github.com/palantir/witchcraft-go-logging/wlog/svclog/svc1log"
)

// legacyHTTPStatusCodeParamKey lets plain werror errors carry a status code.
const legacyHTTPStatusCodeParamKey = "httpStatusCode"

// StatusMapper picks the response status for an error returned by a handler.
type StatusMapper func(err error) int

// ErrorHandler observes an error returned by a handler before the response is written.
type ErrorHandler func(req *http.Request, statusCode int, err error)

type handler struct {
	handleFn     func(http.ResponseWriter, *http.Request) error
	statusMapper StatusMapper
	errorHandler ErrorHandler
}

// NewJSONHandler returns a handler calling fn. An error from fn is passed to errorHandler and written as a JSON
// conjure error when it wraps one, otherwise as plain text with the status statusMapper picks.
func NewJSONHandler(fn func(http.ResponseWriter, *http.Request) error, statusMapper StatusMapper, errorHandler ErrorHandler) http.Handler {
	return handler{handleFn: fn, statusMapper: statusMapper, errorHandler: errorHandler}
}

func (h handler) ServeHTTP(rw http.ResponseWriter, req *http.Request) {
	err := h.handleFn(rw, req)
	if err == nil {
		return
	}
	status := http.StatusInternalServerError
	if h.statusMapper != nil {
		status = h.statusMapper(err)
	}
	if h.errorHandler != nil {
		h.errorHandler(req, status, err)
	}
	if conjureErr, ok := errors.FromError(err); ok {
		errors.WriteErrorResponse(rw, conjureErr)
		return
	}
	http.Error(rw, err.Error(), status)
}

// StatusCodeMapper uses the code of a wrapped conjure error, then an httpStatusCode param, then 500.
func StatusCodeMapper(err error) int {
	if conjureErr, ok := errors.FromError(err); ok {
		return conjureErr.Code().StatusCode()
	}
	if statusI, ok := werror.ParamFromError(err, legacyHTTPStatusCodeParamKey); ok {
		if status, ok := statusI.(int); ok {
			return status
		}
	}
	return http.StatusInternalServerError
}

// ErrHandler logs client errors at INFO and server errors at ERROR.
func ErrHandler(req *http.Request, statusCode int, err error) {
	logger := svc1log.FromContext(req.Context())
	if statusCode < http.StatusInternalServerError {
		logger.Info("error handling request", svc1log.Stacktrace(err))
		return
	}
	logger.Error("error handling request", svc1log.Stacktrace(err))
}
