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
	"runtime"
	"runtime/debug"
	"strings"
	"sync"
)

const modulePath = "github.com/palantir/go-feign-runtime"

// Default carries the Go runtime and go-feign-runtime products. Clone it before pushing client specific products.
var Default = Builder{
	products: []Product{goProduct(), runtimeProduct()},
}

func goProduct() Product {
	return Product{
		name:     "golang",
		version:  strings.TrimPrefix(runtime.Version(), "go"),
		comments: []string{fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH)},
	}
}

func runtimeProduct() Product {
	p := Product{name: "go-feign-runtime", version: "unknown"}
	if info := buildInfo(); info != nil {
		if info.Main.Path == modulePath {
			p.version = strings.TrimPrefix(info.Main.Version, "v")
		}
		for _, dep := range info.Deps {
			if dep.Path == modulePath {
				p.version = strings.TrimPrefix(dep.Version, "v")
			}
		}
	}
	return p
}

var buildInfo = sync.OnceValue(func() *debug.BuildInfo {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return nil
	}
	return info
})
