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

// Package github aggregates a GitHub user and their repositories into a single response.
package github

// User is the subset of the GitHub user resource the aggregator reads.
type User struct {
	Login     string  `json:"login"`
	Name      *string `json:"name"`
	AvatarURL string  `json:"avatar_url"`
	Location  *string `json:"location"`
	Email     *string `json:"email"`
	URL       string  `json:"url"`
	CreatedAt string  `json:"created_at"`
}

// Repo is the subset of the GitHub repository resource the aggregator reads.
type Repo struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// UserRepos is the aggregated response. Field order is the wire order. Profile fields GitHub leaves unset are
// written as null.
type UserRepos struct {
	UserName    string     `json:"user_name" mapper:"required"`
	DisplayName *string    `json:"display_name"`
	Avatar      string     `json:"avatar"`
	GeoLocation *string    `json:"geo_location"`
	Email       *string    `json:"email"`
	URL         string     `json:"url"`
	CreatedAt   string     `json:"created_at"`
	Repos       []RepoInfo `json:"repos"`
}

type RepoInfo struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}
