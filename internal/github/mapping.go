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

package github

import (
	"net/http"
	"time"

	"github.com/palantir/go-feign-runtime/feign-contract/mapper"
)

const formatDateConverter = "formatDate"

var userReposRules = []mapper.Rule{
	{Source: "user.login", Target: "user_name"},
	{Source: "user.name", Target: "display_name"},
	{Source: "user.avatar_url", Target: "avatar"},
	{Source: "user.location", Target: "geo_location"},
	{Source: "user.email", Target: "email"},
	{Source: "user.url", Target: "url"},
	{Source: "user.created_at", Target: "created_at", Converter: formatDateConverter},
}

// NewMapper returns a mapper with the UserRepos rules registered. opts control how GitHub payloads are decoded.
func NewMapper(opts ...mapper.Option) (*mapper.Mapper, error) {
	m := mapper.New(append([]mapper.Option{mapper.WithConverter(formatDateConverter, formatDate)}, opts...)...)
	if err := m.Register(UserRepos{}, userReposRules...); err != nil {
		return nil, err
	}
	return m, nil
}

// formatDate renders an RFC 3339 timestamp as an HTTP date in GMT. Values that do not parse are kept as they are.
func formatDate(value interface{}) (interface{}, error) {
	s, ok := value.(string)
	if !ok || s == "" {
		return value, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return value, nil
	}
	return t.UTC().Format(http.TimeFormat), nil
}
