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

package binder

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"reflect"
	"strings"

	"github.com/palantir/go-feign-runtime/feign-client/clienterrors"
	"github.com/palantir/go-feign-runtime/feign-client/httpclient"
	"github.com/palantir/go-feign-runtime/feign-contract/codecs"
	"github.com/palantir/go-feign-runtime/feign-contract/errors"
	"github.com/palantir/go-feign-runtime/feign-contract/mapper"
	"golang.org/x/net/http/httpguts"
)

// Option configures an Endpoint.
type Option func(*endpointOptions)

type endpointOptions struct {
	mapper *mapper.Mapper
	params []httpclient.RequestParam
}

// WithMapper decodes responses with m instead of a default strict mapper.
func WithMapper(m *mapper.Mapper) Option {
	return func(o *endpointOptions) {
		o.mapper = m
	}
}

// WithRequestParams adds params to every request issued by the endpoint.
func WithRequestParams(params ...httpclient.RequestParam) Option {
	return func(o *endpointOptions) {
		o.params = append(o.params, params...)
	}
}

// Endpoint is a bound method returning T. It is safe for concurrent use.
type Endpoint[T any] struct {
	client   httpclient.Client
	method   Method
	template RequestTemplate
	mapper   *mapper.Mapper
	params   []httpclient.RequestParam

	// params without a template of their own, sent under their declared name
	directHeaders []string
	directQueries []string
	discard       bool
}

// Bind checks template against method and returns the callable endpoint. All validation happens here so that a
// misdeclared method fails at startup: every placeholder must name a parameter of the matching kind, every path
// parameter must appear in the path, and a body parameter requires a body codec.
func Bind[T any](client httpclient.Client, method Method, template RequestTemplate, opts ...Option) (*Endpoint[T], error) {
	if client == nil {
		return nil, bindingError(method, "client can not be nil")
	}
	var o endpointOptions
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if o.mapper == nil {
		o.mapper = mapper.New()
	}
	e := &Endpoint[T]{
		client:   client,
		method:   method,
		template: template,
		mapper:   o.mapper,
		params:   o.params,
		discard:  isNoContent(reflect.TypeOf((*T)(nil)).Elem()),
	}
	if err := e.validate(); err != nil {
		return nil, err
	}
	return e, nil
}

// MustBind is Bind for endpoints declared at package initialization.
func MustBind[T any](client httpclient.Client, method Method, template RequestTemplate, opts ...Option) *Endpoint[T] {
	e, err := Bind[T](client, method, template, opts...)
	if err != nil {
		panic(err)
	}
	return e
}

// Method returns the bound method declaration.
func (e *Endpoint[T]) Method() Method {
	return e.method
}

// Template returns the bound request template.
func (e *Endpoint[T]) Template() RequestTemplate {
	return e.template
}

func (e *Endpoint[T]) validate() error {
	if e.method.Name == "" {
		return bindingError(e.method, "method name can not be empty")
	}
	if e.template.method == "" {
		return bindingError(e.method, "template was not built")
	}
	declared := make(map[string]Param, len(e.method.Params))
	bodies := 0
	for _, p := range e.method.Params {
		if p.Name == "" {
			return bindingError(e.method, "parameter name can not be empty")
		}
		if _, dup := declared[p.Name]; dup {
			return bindingError(e.method, "duplicate parameter", errors.SafeParam("param", p.Name))
		}
		declared[p.Name] = p
		if p.Kind == KindBody {
			bodies++
		}
	}
	if bodies > 1 {
		return bindingError(e.method, "more than one body parameter")
	}
	if bodies == 1 && e.template.body == nil {
		return bindingError(e.method, "body parameter without a body codec")
	}

	referenced := make(map[string]struct{})
	check := func(names []string, kind ParamKind) error {
		for _, name := range names {
			p, ok := declared[name]
			if !ok {
				return bindingError(e.method, "unresolved placeholder", errors.SafeParam("placeholder", name))
			}
			if p.Kind != kind {
				return bindingError(e.method, "placeholder bound to a parameter of another kind",
					errors.SafeParam("placeholder", name),
					errors.SafeParam("expectedKind", kind.String()),
					errors.SafeParam("actualKind", p.Kind.String()))
			}
			referenced[name] = struct{}{}
		}
		return nil
	}
	if err := check(e.template.path.placeholders(), KindPath); err != nil {
		return err
	}
	for _, h := range e.template.headers {
		if err := check(h.value.placeholders(), KindHeader); err != nil {
			return err
		}
	}
	for _, q := range e.template.queries {
		if err := check(q.value.placeholders(), KindQuery); err != nil {
			return err
		}
	}
	for _, p := range e.method.Params {
		if _, ok := referenced[p.Name]; ok {
			continue
		}
		switch p.Kind {
		case KindPath:
			return bindingError(e.method, "path parameter is not used by the path", errors.SafeParam("param", p.Name))
		case KindHeader:
			if !httpguts.ValidHeaderFieldName(p.Name) {
				return bindingError(e.method, "invalid header name", errors.SafeParam("param", p.Name))
			}
			e.directHeaders = append(e.directHeaders, p.Name)
		case KindQuery:
			e.directQueries = append(e.directQueries, p.Name)
		}
	}
	return nil
}

// Call issues the request with args in declaration order and decodes the response into T. It blocks until the
// response is read or ctx or the client timeout expires.
func (e *Endpoint[T]) Call(ctx context.Context, args ...interface{}) (T, error) {
	var zero T
	params, err := e.requestParams(args)
	if err != nil {
		return zero, err
	}
	resp, err := e.client.Do(ctx, params...)
	if err != nil {
		return zero, err
	}
	return e.decode(ctx, resp)
}

func (e *Endpoint[T]) requestParams(args []interface{}) ([]httpclient.RequestParam, error) {
	if len(args) != len(e.method.Params) {
		return nil, argumentError(e.method, "", "wrong number of arguments",
			errors.SafeParam("expected", len(e.method.Params)),
			errors.SafeParam("actual", len(args)))
	}
	values := make(map[string][]string, len(args))
	var body interface{}
	for i, p := range e.method.Params {
		if p.Kind == KindBody {
			body = args[i]
			continue
		}
		vals, err := formatArg(args[i])
		if err != nil {
			return nil, errors.WrapWithNewError(err, errors.BindingInvalidArgument,
				errors.SafeParam("method", e.method.Name),
				errors.SafeParam("param", p.Name))
		}
		if vals == nil {
			if p.Kind == KindPath {
				return nil, argumentError(e.method, p.Name, "path parameter can not be nil")
			}
			continue
		}
		values[p.Name] = vals
	}

	path, _ := e.template.path.expand(values, url.PathEscape)
	params := []httpclient.RequestParam{
		httpclient.WithRPCMethodName(e.method.Name),
		httpclient.WithRequestMethod(e.template.method),
		httpclient.WithPath(path),
	}
	params = append(params, e.params...)

	for _, h := range e.template.headers {
		value, ok := h.value.expand(values, identity)
		if !ok {
			continue
		}
		if !httpguts.ValidHeaderFieldValue(value) {
			return nil, argumentError(e.method, h.name, "invalid header value")
		}
		params = append(params, httpclient.WithHeader(h.name, value))
	}
	for _, name := range e.directHeaders {
		vals, ok := values[name]
		if !ok {
			continue
		}
		value := strings.Join(vals, ",")
		if !httpguts.ValidHeaderFieldValue(value) {
			return nil, argumentError(e.method, name, "invalid header value")
		}
		params = append(params, httpclient.WithHeader(name, value))
	}

	query := url.Values{}
	for _, q := range e.template.queries {
		if name, ok := q.value.single(); ok {
			for _, v := range values[name] {
				query.Add(q.name, v)
			}
			continue
		}
		if value, ok := q.value.expand(values, identity); ok {
			query.Add(q.name, value)
		}
	}
	for _, name := range e.directQueries {
		for _, v := range values[name] {
			query.Add(name, v)
		}
	}
	if len(query) > 0 {
		params = append(params, httpclient.WithQueryValues(query))
	}

	if !isNil(body) {
		if e.template.compress {
			params = append(params, httpclient.WithCompressedRequest(body, e.template.body))
		} else {
			params = append(params, httpclient.WithRequestBody(body, e.template.body))
		}
	}
	return append(params,
		httpclient.WithRawResponseBody(),
		httpclient.WithHeader("Accept", e.template.accept.Accept())), nil
}

func (e *Endpoint[T]) decode(ctx context.Context, resp *http.Response) (T, error) {
	var out T
	data, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if err != nil {
		if clienterrors.IsTransportError(err) {
			return out, clienterrors.WrapClientError(resp.Request, err)
		}
		return out, errors.WrapWithNewError(err, errors.ResponseDecodeError,
			errors.SafeParam("method", e.method.Name),
			errors.SafeParam("reason", "failed to read response body"))
	}
	if e.discard {
		return out, nil
	}
	codec := e.template.accept
	if contentType := resp.Header.Get("Content-Type"); contentType != "" {
		if negotiated, err := codecs.ForContentType(contentType); err == nil {
			codec = negotiated
		}
	}
	if err := e.mapper.Decode(ctx, data, codec, &out); err != nil {
		var zero T
		if errors.IsType(err, errors.ResponseDecodeError) {
			return zero, err
		}
		return zero, errors.WrapWithNewError(err, errors.ResponseDecodeError,
			errors.SafeParam("method", e.method.Name),
			errors.SafeParam("contentType", codec.Accept()))
	}
	return out, nil
}

func identity(s string) string {
	return s
}

// isNoContent reports whether typ carries no data, like struct{}.
func isNoContent(typ reflect.Type) bool {
	return typ.Kind() == reflect.Struct && typ.NumField() == 0
}
