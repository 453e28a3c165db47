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

// Package clienterrors classifies transport failures into the runtime's error taxonomy.
package clienterrors

import (
	"context"
	stderrors "errors"
	"net"
	"net/http"
	"syscall"

	"github.com/palantir/go-feign-runtime/feign-contract/errors"
)

// WrapClientError classifies err, as returned by an http.Client for req, into a Transport error type. Errors that are
// already typed or that do not look like transport failures are returned unchanged.
func WrapClientError(req *http.Request, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := errors.FromError(err); ok {
		return err
	}
	errorType, ok := classify(err)
	if !ok {
		return err
	}
	if req == nil || req.URL == nil {
		return errors.WrapWithNewError(err, errorType)
	}
	return errors.WrapWithNewError(err, errorType,
		errors.SafeParam("requestMethod", req.Method),
		errors.SafeParam("requestHost", req.URL.Host),
		errors.UnsafeParam("requestPath", req.URL.Path))
}

// IsTransportError reports whether err was caused by the network rather than by a response or a local failure.
func IsTransportError(err error) bool {
	if errors.IsType(err, errors.TransportTimeout) ||
		errors.IsType(err, errors.TransportConnectionRefused) ||
		errors.IsType(err, errors.TransportDNSNoSuchHost) {
		return true
	}
	if _, typed := errors.FromError(err); typed {
		return false
	}
	_, ok := findNetError(err)
	return ok
}

func classify(err error) (errors.ErrorType, bool) {
	var (
		timeout    bool
		refused    bool
		noSuchHost bool
	)
	visit(err, func(e error) {
		if e == context.DeadlineExceeded {
			timeout = true
		}
		if e == syscall.ECONNREFUSED {
			refused = true
		}
		switch v := e.(type) {
		case *net.DNSError:
			if v.IsNotFound {
				noSuchHost = true
			}
			if v.IsTimeout {
				timeout = true
			}
		case net.Error:
			if v.Timeout() {
				timeout = true
			}
		}
	})
	switch {
	case refused:
		return errors.TransportConnectionRefused, true
	case noSuchHost:
		return errors.TransportDNSNoSuchHost, true
	case timeout:
		return errors.TransportTimeout, true
	}
	return errors.ErrorType{}, false
}

func findNetError(err error) (net.Error, bool) {
	var found net.Error
	visit(err, func(e error) {
		if found != nil {
			return
		}
		if netErr, ok := e.(net.Error); ok {
			found = netErr
		}
	})
	return found, found != nil
}

// visit calls fn on err and every error it wraps, following both Cause and Unwrap chains.
func visit(err error, fn func(error)) {
	for depth := 0; err != nil && depth < 32; depth++ {
		fn(err)
		switch v := err.(type) {
		case interface{ Cause() error }:
			if cause := v.Cause(); cause != nil {
				err = cause
				continue
			}
		case interface{ Unwrap() []error }:
			for _, e := range v.Unwrap() {
				visit(e, fn)
			}
			return
		}
		err = stderrors.Unwrap(err)
	}
}
