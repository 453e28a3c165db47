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

package httpclient

import (
	"io"
	"net/http"

	"github.com/palantir/go-feign-runtime/feign-client/httpclient/internal"
	"github.com/palantir/go-feign-runtime/feign-contract/errors"
	werror "github.com/palantir/witchcraft-go-error"
	wparams "github.com/palantir/witchcraft-go-params"
)

const maxErrorBodyBytes = 8 << 10

// ErrorDecoder implementations declare whether or not they should be used to handle certain http responses, and return
// decoded errors when invoked.
type ErrorDecoder interface {
	// Handles returns whether or not the decoder considers the response an error.
	Handles(resp *http.Response) bool
	// DecodeError returns a decoded error, or an error encountered while trying to decode. It never returns nil.
	DecodeError(resp *http.Response) error
}

// errorDecoderMiddleware returns the decoded error and a nil response for every response the decoder handles.
type errorDecoderMiddleware struct {
	errorDecoder ErrorDecoder
}

func (e errorDecoderMiddleware) RoundTrip(req *http.Request, next http.RoundTripper) (*http.Response, error) {
	resp, err := next.RoundTrip(req)
	// a transport error is more severe than an HTTP error
	if resp == nil || err != nil {
		return nil, err
	}
	if e.errorDecoder.Handles(resp) {
		defer internal.DrainBody(resp)
		return nil, e.errorDecoder.DecodeError(resp)
	}
	return resp, nil
}

// restErrorDecoder handles responses with status >= 400. It returns a Response:NonSuccessStatus error carrying the
// status in the 'statusCode' parameter. When the body is a serialized error, that error becomes the cause.
type restErrorDecoder struct{}

var _ ErrorDecoder = restErrorDecoder{}

func (d restErrorDecoder) Handles(resp *http.Response) bool {
	return resp.StatusCode >= http.StatusBadRequest
}

func (d restErrorDecoder) DecodeError(resp *http.Response) error {
	params := []wparams.ParamStorer{
		errors.SafeParam("statusCode", resp.StatusCode),
	}
	if resp.Request != nil && resp.Request.URL != nil {
		params = append(params,
			errors.SafeParam("requestMethod", resp.Request.Method),
			errors.UnsafeParam("requestPath", resp.Request.URL.Path))
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
	if err != nil {
		return errors.WrapWithNewError(err, errors.ResponseNonSuccessStatus, params...)
	}
	if remote, err := errors.UnmarshalError(body); err == nil {
		return errors.WrapWithNewError(remote, errors.ResponseNonSuccessStatus,
			append(params, errors.SafeParam("remoteErrorName", remote.Name()))...)
	}
	if len(body) > 0 {
		params = append(params, errors.UnsafeParam("responseBody", string(body)))
	}
	return errors.NewError(errors.ResponseNonSuccessStatus, params...)
}

// StatusCodeFromError retrieves the 'statusCode' parameter from err. If the status code can not be found, ok is false.
// The default error decoder always sets the parameter; custom decoders must set it themselves.
func StatusCodeFromError(err error) (statusCode int, ok bool) {
	if conjureErr, found := errors.FromError(err); found {
		if code, isInt := conjureErr.SafeParams()["statusCode"].(int); isInt {
			return code, true
		}
	}
	statusCodeI, ok := werror.ParamFromError(err, "statusCode")
	if !ok {
		return 0, false
	}
	statusCode, ok = statusCodeI.(int)
	return statusCode, ok
}
