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

// Package stub serves deterministic HTTP responses from recorded request/response contracts.
//
// Contracts are evaluated in declaration order and the first one whose predicates all hold wins. A request that no
// contract satisfies gets a 404 Contract:NoMatch error listing the closest partial matches, and is recorded in the
// Store so a test can fail on it.
package stub

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/palantir/go-feign-runtime/feign-contract/errors"
	"github.com/palantir/go-feign-runtime/feign-contract/mapper"
)

// Contract pairs a request predicate with a canned response.
type Contract struct {
	Name      string   `json:"name" yaml:"name"`
	SingleUse bool     `json:"singleUse,omitempty" yaml:"singleUse,omitempty"`
	Request   Request  `json:"request" yaml:"request"`
	Response  Response `json:"response" yaml:"response"`
}

// Request is the predicate over an inbound request. Unset fields match anything.
type Request struct {
	Method string `json:"method,omitempty" yaml:"method,omitempty"`
	// URL is an exact path. A query string in it adds query predicates.
	URL string `json:"url,omitempty" yaml:"url,omitempty"`
	// URLPattern is a regular expression that must match the whole path.
	URLPattern string `json:"urlPattern,omitempty" yaml:"urlPattern,omitempty"`
	// Headers must be present with exactly these values. Names are case-insensitive.
	Headers map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
	Query   map[string]string `json:"query,omitempty" yaml:"query,omitempty"`
	// Body is matched as a subset of the decoded request body: objects may carry extra keys, arrays match element
	// by element. A string body is compared with the raw body when the request is not structured.
	Body         interface{}   `json:"body,omitempty" yaml:"body,omitempty"`
	BodyMatchers []BodyMatcher `json:"bodyMatchers,omitempty" yaml:"bodyMatchers,omitempty"`
}

// BodyMatcher requires the value at a dotted path of the request body to match a regular expression. An empty
// path matches against the raw body.
type BodyMatcher struct {
	Path    string `json:"path" yaml:"path"`
	Matches string `json:"matches" yaml:"matches"`
}

// Response is the canned response. String values of Headers and Body may reference the request with
// ${{body.a.b}}, ${{header.X-Name}}, ${{query.q}} or ${{path.N}} (zero-based path segment).
type Response struct {
	Status                 int               `json:"status,omitempty" yaml:"status,omitempty"`
	Headers                map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
	Body                   interface{}       `json:"body,omitempty" yaml:"body,omitempty"`
	FixedDelayMilliseconds int               `json:"fixedDelayMilliseconds,omitempty" yaml:"fixedDelayMilliseconds,omitempty"`
}

// compiled is a validated contract with its regular expressions parsed.
type compiled struct {
	Contract
	index        int
	path         string
	query        url.Values
	urlPattern   *regexp.Regexp
	body         interface{}
	bodyMatchers []compiledBodyMatcher
}

type compiledBodyMatcher struct {
	path  string
	regex *regexp.Regexp
}

func compile(index int, c Contract) (*compiled, error) {
	invalid := func(reason string) error {
		return errors.NewError(errors.DefaultInvalidArgument,
			errors.SafeParam("reason", reason),
			errors.SafeParam("contract", c.Name),
			errors.SafeParam("index", index))
	}
	if c.Name == "" {
		return nil, invalid("contract name can not be empty")
	}
	if c.Request.URL != "" && c.Request.URLPattern != "" {
		return nil, invalid("url and urlPattern are mutually exclusive")
	}
	out := &compiled{
		Contract: c,
		index:    index,
		query:    url.Values{},
		body:     mapper.NormalizeTree(c.Request.Body),
	}
	out.Request.Method = strings.ToUpper(c.Request.Method)
	if c.Request.URL != "" {
		parsed, err := url.Parse(c.Request.URL)
		if err != nil {
			return nil, errors.WrapWithNewError(err, errors.DefaultInvalidArgument,
				errors.SafeParam("reason", "invalid url"),
				errors.SafeParam("contract", c.Name))
		}
		out.path = parsed.Path
		for k, v := range parsed.Query() {
			out.query[k] = v
		}
	}
	for k, v := range c.Request.Query {
		out.query.Set(k, v)
	}
	if c.Request.URLPattern != "" {
		re, err := regexp.Compile(`^(?:` + c.Request.URLPattern + `)$`)
		if err != nil {
			return nil, errors.WrapWithNewError(err, errors.DefaultInvalidArgument,
				errors.SafeParam("reason", "invalid urlPattern"),
				errors.SafeParam("contract", c.Name))
		}
		out.urlPattern = re
	}
	for _, m := range c.Request.BodyMatchers {
		re, err := regexp.Compile(m.Matches)
		if err != nil {
			return nil, errors.WrapWithNewError(err, errors.DefaultInvalidArgument,
				errors.SafeParam("reason", "invalid body matcher"),
				errors.SafeParam("contract", c.Name),
				errors.SafeParam("path", m.Path))
		}
		out.bodyMatchers = append(out.bodyMatchers, compiledBodyMatcher{path: m.Path, regex: re})
	}
	if c.Response.Status == 0 {
		out.Response.Status = 200
	}
	if out.Response.Status < 100 || out.Response.Status > 999 {
		return nil, invalid("invalid response status")
	}
	out.Response.Body = mapper.NormalizeTree(c.Response.Body)
	return out, nil
}
