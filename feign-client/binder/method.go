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

// ParamKind says where an argument of a bound method goes in the request.
type ParamKind int

const (
	KindPath ParamKind = iota
	KindQuery
	KindHeader
	KindBody
)

func (k ParamKind) String() string {
	switch k {
	case KindPath:
		return "path"
	case KindQuery:
		return "query"
	case KindHeader:
		return "header"
	case KindBody:
		return "body"
	}
	return "unknown"
}

// Param is one declared parameter of a bound method.
type Param struct {
	Name string
	Kind ParamKind
}

// PathParam declares a parameter substituted into a {name} path placeholder.
func PathParam(name string) Param {
	return Param{Name: name, Kind: KindPath}
}

// QueryParam declares a query parameter. When no query template references it, it is sent as name=value.
func QueryParam(name string) Param {
	return Param{Name: name, Kind: KindQuery}
}

// HeaderParam declares a header parameter. When no header template references it, it is sent as a header called name.
func HeaderParam(name string) Param {
	return Param{Name: name, Kind: KindHeader}
}

// BodyParam declares the request body.
func BodyParam(name string) Param {
	return Param{Name: name, Kind: KindBody}
}

// Method is the signature of a declared client method: its name and ordered parameters. The return type is the
// type parameter of Bind.
type Method struct {
	Name   string
	Params []Param
}

// NewMethod declares a method.
func NewMethod(name string, params ...Param) Method {
	return Method{Name: name, Params: params}
}
