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

// Package binder binds declared client methods to HTTP request templates.
//
// A template is built once at startup and is immutable afterwards:
//
//	tmpl, err := binder.NewTemplate(http.MethodGet, "/users/{username}/repos").
//		Query("per_page", "{perPage}").
//		Header("X-Request-Tag", "repos-{tag}").
//		Build()
//
// Bind then checks the template against a Method and returns an Endpoint whose Call substitutes positional arguments,
// issues the request through an httpclient.Client and decodes the response through a mapper.Mapper.
package binder

import (
	"net/http"
	"regexp"
	"strings"

	"github.com/palantir/go-feign-runtime/feign-contract/codecs"
	"github.com/palantir/go-feign-runtime/feign-contract/errors"
	wparams "github.com/palantir/witchcraft-go-params"
	"golang.org/x/net/http/httpguts"
)

var (
	placeholderNameRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.-]*$`)
	methodRegex          = regexp.MustCompile(`^[A-Z]+$`)
)

// RequestTemplate is the immutable description of the request issued by a bound method.
type RequestTemplate struct {
	method   string
	path     expression
	headers  []namedExpression
	queries  []namedExpression
	body     codecs.Codec
	compress bool
	accept   codecs.Decoder
}

// Method returns the HTTP method of the template.
func (t RequestTemplate) Method() string {
	return t.method
}

// Path returns the unexpanded path pattern.
func (t RequestTemplate) Path() string {
	return t.path.raw
}

// Placeholders returns the names referenced by the path, header and query templates, in that order.
func (t RequestTemplate) Placeholders() []string {
	var names []string
	names = append(names, t.path.placeholders()...)
	for _, h := range t.headers {
		names = append(names, h.value.placeholders()...)
	}
	for _, q := range t.queries {
		names = append(names, q.value.placeholders()...)
	}
	return names
}

// TemplateBuilder accumulates the parts of a RequestTemplate. Errors are reported by Build.
type TemplateBuilder struct {
	tmpl RequestTemplate
	err  error
}

// NewTemplate starts a template for method and path. Path placeholders are written as {name}.
func NewTemplate(method, path string) *TemplateBuilder {
	b := &TemplateBuilder{tmpl: RequestTemplate{method: strings.ToUpper(method), accept: codecs.JSON}}
	if !methodRegex.MatchString(b.tmpl.method) {
		b.fail("invalid HTTP method", errors.SafeParam("method", method))
	}
	if !strings.HasPrefix(path, "/") {
		b.fail("path must start with a slash", errors.SafeParam("path", path))
	}
	expr, err := parseExpression(path)
	if err != nil {
		b.err = err
	}
	b.tmpl.path = expr
	return b
}

// Header adds a header whose value is a template, e.g. Header("Authorization", "token {token}").
func (b *TemplateBuilder) Header(name, valueTemplate string) *TemplateBuilder {
	if !httpguts.ValidHeaderFieldName(name) {
		b.fail("invalid header name", errors.SafeParam("header", name))
		return b
	}
	expr, err := parseExpression(valueTemplate)
	if err != nil && b.err == nil {
		b.err = err
	}
	b.tmpl.headers = append(b.tmpl.headers, namedExpression{name: http.CanonicalHeaderKey(name), value: expr})
	return b
}

// Query adds a query parameter whose value is a template, e.g. Query("per_page", "{perPage}").
func (b *TemplateBuilder) Query(name, valueTemplate string) *TemplateBuilder {
	if name == "" {
		b.fail("query parameter name can not be empty")
		return b
	}
	expr, err := parseExpression(valueTemplate)
	if err != nil && b.err == nil {
		b.err = err
	}
	b.tmpl.queries = append(b.tmpl.queries, namedExpression{name: name, value: expr})
	return b
}

// Body sets the codec used to encode the body parameter.
func (b *TemplateBuilder) Body(codec codecs.Codec) *TemplateBuilder {
	b.tmpl.body = codec
	return b
}

// Compressed compresses the encoded body with the snappy framing format.
func (b *TemplateBuilder) Compressed() *TemplateBuilder {
	b.tmpl.compress = true
	return b
}

// Accept sets the codec requested from the server. The response Content-Type takes precedence when it names a
// known codec. Defaults to JSON.
func (b *TemplateBuilder) Accept(codec codecs.Decoder) *TemplateBuilder {
	b.tmpl.accept = codec
	return b
}

// Build returns the template or the first error recorded while building it.
func (b *TemplateBuilder) Build() (RequestTemplate, error) {
	if b.err != nil {
		return RequestTemplate{}, b.err
	}
	if b.tmpl.compress && b.tmpl.body == nil {
		return RequestTemplate{}, errors.NewError(errors.BindingInvalidTemplate,
			errors.SafeParam("reason", "compression requires a body codec"))
	}
	if b.tmpl.accept == nil {
		return RequestTemplate{}, errors.NewError(errors.BindingInvalidTemplate,
			errors.SafeParam("reason", "accept codec can not be nil"))
	}
	tmpl := b.tmpl
	tmpl.headers = append([]namedExpression(nil), b.tmpl.headers...)
	tmpl.queries = append([]namedExpression(nil), b.tmpl.queries...)
	return tmpl, nil
}

// MustBuild is Build for templates declared as package variables.
func (b *TemplateBuilder) MustBuild() RequestTemplate {
	tmpl, err := b.Build()
	if err != nil {
		panic(err)
	}
	return tmpl
}

func (b *TemplateBuilder) fail(reason string, params ...wparams.ParamStorer) {
	if b.err != nil {
		return
	}
	b.err = errors.NewError(errors.BindingInvalidTemplate, append([]wparams.ParamStorer{errors.SafeParam("reason", reason)}, params...)...)
}

type namedExpression struct {
	name  string
	value expression
}

// part is either a literal or a placeholder reference.
type part struct {
	literal     string
	placeholder string
}

type expression struct {
	raw   string
	parts []part
}

func parseExpression(raw string) (expression, error) {
	expr := expression{raw: raw}
	rest := raw
	for rest != "" {
		open := strings.IndexByte(rest, '{')
		closing := strings.IndexByte(rest, '}')
		if open < 0 {
			if closing >= 0 {
				return expression{}, unbalanced(raw)
			}
			expr.parts = append(expr.parts, part{literal: rest})
			break
		}
		if closing >= 0 && closing < open {
			return expression{}, unbalanced(raw)
		}
		if open > 0 {
			expr.parts = append(expr.parts, part{literal: rest[:open]})
		}
		end := strings.IndexByte(rest[open+1:], '}')
		if end < 0 {
			return expression{}, unbalanced(raw)
		}
		name := rest[open+1 : open+1+end]
		if !placeholderNameRegex.MatchString(name) {
			return expression{}, errors.NewError(errors.BindingInvalidTemplate,
				errors.SafeParam("reason", "invalid placeholder name"),
				errors.SafeParam("template", raw),
				errors.SafeParam("placeholder", name))
		}
		expr.parts = append(expr.parts, part{placeholder: name})
		rest = rest[open+2+end:]
	}
	return expr, nil
}

func unbalanced(raw string) error {
	return errors.NewError(errors.BindingInvalidTemplate,
		errors.SafeParam("reason", "unbalanced braces"),
		errors.SafeParam("template", raw))
}

func (e expression) placeholders() []string {
	var names []string
	for _, p := range e.parts {
		if p.placeholder != "" {
			names = append(names, p.placeholder)
		}
	}
	return names
}

// single reports the placeholder name when the expression is exactly one placeholder.
func (e expression) single() (string, bool) {
	if len(e.parts) == 1 && e.parts[0].placeholder != "" {
		return e.parts[0].placeholder, true
	}
	return "", false
}

// expand substitutes values. It returns false when a referenced value is absent.
func (e expression) expand(values map[string][]string, escape func(string) string) (string, bool) {
	var sb strings.Builder
	for _, p := range e.parts {
		if p.placeholder == "" {
			sb.WriteString(p.literal)
			continue
		}
		vals, ok := values[p.placeholder]
		if !ok {
			return "", false
		}
		for i, v := range vals {
			if i > 0 {
				sb.WriteByte(',')
			}
			sb.WriteString(escape(v))
		}
	}
	return sb.String(), true
}
