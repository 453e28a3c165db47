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

package mapper

import (
	"strings"

	werror "github.com/palantir/witchcraft-go-error"
)

// UnmappedPolicy controls what happens to source keys that no target field consumes.
type UnmappedPolicy int

const (
	// Warn logs the unmapped keys and continues.
	Warn UnmappedPolicy = iota
	// Ignore drops unmapped keys silently.
	Ignore
	// Fail returns a Mapping:UnmappedField error.
	Fail
)

func (p UnmappedPolicy) String() string {
	switch p {
	case Ignore:
		return "ignore"
	case Fail:
		return "fail"
	}
	return "warn"
}

func (p UnmappedPolicy) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *UnmappedPolicy) UnmarshalText(data []byte) error {
	switch strings.ToLower(string(data)) {
	case "warn", "":
		*p = Warn
	case "ignore":
		*p = Ignore
	case "fail":
		*p = Fail
	default:
		return werror.Error("unknown unmapped field policy", werror.SafeParam("policy", string(data)))
	}
	return nil
}

// UnmarshalYAML lets yaml.v2 read the policy from its text form.
func (p *UnmappedPolicy) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	return p.UnmarshalText([]byte(s))
}
