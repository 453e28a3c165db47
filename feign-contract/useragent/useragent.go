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

package useragent

import (
	"fmt"
	"regexp"
	"strings"

	werror "github.com/palantir/witchcraft-go-error"
)

// Header is the name of the header the rendered Builder is sent in.
const Header = "User-Agent"

/*
User-Agent        = commented-product *( WHITESPACE commented-product )
commented-product = product | product WHITESPACE paren-comments
product           = name "/" version
paren-comments    = "(" comments ")"
comments          = comment-text *( delim comment-text )
*/
var (
	namePattern    = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9\-]*$`)
	versionPattern = regexp.MustCompile(`^[0-9]+(\.[0-9]+)*(-rc[0-9]+)?(-[0-9]+-g[a-f0-9]+)?$`)
	commentPattern = regexp.MustCompile(`^[^,;()]+$`)
)

// Product is one name/version component of a user agent.
type Product struct {
	name     string
	version  string
	comments []string
}

func NewProduct(name, version string, comments ...string) (Product, error) {
	if !namePattern.MatchString(name) {
		return Product{}, werror.Error("product name is not valid for User-Agent",
			werror.SafeParam("name", name))
	}
	if !versionPattern.MatchString(version) {
		return Product{}, werror.Error("product version is not valid for User-Agent",
			werror.SafeParam("name", name),
			werror.SafeParam("version", version))
	}
	for _, comment := range comments {
		if !commentPattern.MatchString(comment) {
			return Product{}, werror.Error("product comment is not valid for User-Agent",
				werror.SafeParam("name", name),
				werror.SafeParam("comment", comment))
		}
	}
	return Product{name: name, version: version, comments: comments}, nil
}

// ServiceProduct is the product a bound client identifies itself with. Versions that do not parse are sent as
// "0.0.0" so a malformed build version never breaks a call.
func ServiceProduct(name, version string) (Product, error) {
	if !versionPattern.MatchString(version) {
		version = "0.0.0"
	}
	return NewProduct(name, version)
}

func (p Product) Name() string {
	return p.name
}

func (p Product) String() string {
	str := p.name + "/" + p.version
	if len(p.comments) > 0 {
		str = fmt.Sprintf("%s (%s)", str, strings.Join(p.comments, ", "))
	}
	return str
}

// Builder renders a stack of products. The most recently pushed product is rendered first.
type Builder struct {
	products []Product
}

func (b *Builder) Push(products ...Product) {
	b.products = append(b.products, products...)
}

func (b *Builder) String() string {
	strs := make([]string, 0, len(b.products))
	for i := len(b.products) - 1; i >= 0; i-- {
		strs = append(strs, b.products[i].String())
	}
	return strings.Join(strs, " ")
}

// Clone returns a copy whose pushes do not affect b.
func (b *Builder) Clone() *Builder {
	return &Builder{products: append([]Product(nil), b.products...)}
}
