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
	"bytes"
	"fmt"
	"io"
	"net/http"

	"github.com/palantir/go-feign-runtime/feign-client/httpclient/internal"
	"github.com/palantir/go-feign-runtime/feign-contract/codecs"
	"github.com/palantir/go-feign-runtime/feign-contract/errors"
	"github.com/palantir/pkg/bytesbuffers"
)

type bodyMiddleware struct {
	requestInput   interface{}
	requestEncoder codecs.Encoder

	// if rawOutput is true, the body of the response is not drained before returning. The caller must close it.
	rawOutput       bool
	responseOutput  interface{}
	responseDecoder codecs.Decoder

	bufferPool bytesbuffers.Pool
}

// replayable reports whether the request body can be sent again on a retry.
func (b *bodyMiddleware) replayable() bool {
	return b.requestInput == nil || b.requestEncoder != nil
}

func (b *bodyMiddleware) RoundTrip(req *http.Request, next http.RoundTripper) (*http.Response, error) {
	cleanup, err := b.setRequestBody(req)
	if err != nil {
		return nil, err
	}
	resp, respErr := next.RoundTrip(req)
	cleanup()

	if err := b.readResponse(resp, respErr); err != nil {
		return nil, err
	}
	return resp, nil
}

// setRequestBody returns a function that should be called once the request has been completed.
func (b *bodyMiddleware) setRequestBody(req *http.Request) (func(), error) {
	noop := func() {}
	if b.requestInput == nil {
		return noop, nil
	}
	if b.requestEncoder == nil {
		body, ok := b.requestInput.(io.ReadCloser)
		if !ok {
			return nil, errors.NewError(errors.BindingInvalidArgument,
				errors.SafeParam("reason", "request body without an encoder must be an io.ReadCloser"),
				errors.SafeParam("requestInputType", fmt.Sprintf("%T", b.requestInput)))
		}
		req.Body = body
		req.ContentLength = -1
		return noop, nil
	}

	if b.bufferPool != nil {
		buf := b.bufferPool.Get()
		cleanup := func() { b.bufferPool.Put(buf) }
		if err := b.requestEncoder.Encode(buf, b.requestInput); err != nil {
			cleanup()
			return nil, encodeError(err, b.requestInput)
		}
		setInMemoryBody(req, buf.Bytes())
		return cleanup, nil
	}

	data, err := b.requestEncoder.Marshal(b.requestInput)
	if err != nil {
		return nil, encodeError(err, b.requestInput)
	}
	setInMemoryBody(req, data)
	return noop, nil
}

func setInMemoryBody(req *http.Request, data []byte) {
	req.ContentLength = int64(len(data))
	req.Body = io.NopCloser(bytes.NewReader(data))
	req.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(data)), nil
	}
}

func encodeError(err error, input interface{}) error {
	return errors.WrapWithNewError(err, errors.BindingInvalidArgument,
		errors.SafeParam("reason", "failed to encode request body"),
		errors.SafeParam("requestInputType", fmt.Sprintf("%T", input)))
}

func (b *bodyMiddleware) readResponse(resp *http.Response, respErr error) error {
	if respErr != nil {
		return respErr
	}
	if b.rawOutput || resp == nil || resp.Body == nil {
		return nil
	}
	defer internal.DrainBody(resp)
	if b.responseOutput == nil || resp.ContentLength == 0 {
		return nil
	}
	if err := b.responseDecoder.Decode(resp.Body, b.responseOutput); err != nil {
		if _, typed := errors.FromError(err); typed {
			return err
		}
		return errors.WrapWithNewError(err, errors.ResponseDecodeError,
			errors.SafeParam("contentType", resp.Header.Get("Content-Type")))
	}
	return nil
}
