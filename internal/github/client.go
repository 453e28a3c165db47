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
	"context"
	"net/http"

	"github.com/palantir/go-feign-runtime/feign-client/binder"
	"github.com/palantir/go-feign-runtime/feign-client/httpclient"
	"github.com/palantir/go-feign-runtime/feign-contract/mapper"
)

// ServiceName is the client configuration key and metrics tag of the GitHub client.
const ServiceName = "github"

// Client is the GitHub REST API surface the aggregator uses.
type Client interface {
	GetUser(ctx context.Context, username string) (User, error)
	GetUserRepos(ctx context.Context, username string) ([]Repo, error)
}

type client struct {
	getUser      *binder.Endpoint[User]
	getUserRepos *binder.Endpoint[[]Repo]
}

// apiVersion pins the GitHub REST API version.
const apiVersion = "2022-11-28"

// NewClient binds the GitHub endpoints to httpClient. Responses are decoded with m.
func NewClient(httpClient httpclient.Client, m *mapper.Mapper) (Client, error) {
	getUserTemplate, err := binder.NewTemplate(http.MethodGet, "/users/{username}").
		Header("X-GitHub-Api-Version", apiVersion).
		Build()
	if err != nil {
		return nil, err
	}
	getUserReposTemplate, err := binder.NewTemplate(http.MethodGet, "/users/{username}/repos").
		Header("X-GitHub-Api-Version", apiVersion).
		Build()
	if err != nil {
		return nil, err
	}
	getUser, err := binder.Bind[User](httpClient,
		binder.NewMethod("GetUser", binder.PathParam("username")), getUserTemplate, binder.WithMapper(m))
	if err != nil {
		return nil, err
	}
	getUserRepos, err := binder.Bind[[]Repo](httpClient,
		binder.NewMethod("GetUserRepos", binder.PathParam("username")), getUserReposTemplate, binder.WithMapper(m))
	if err != nil {
		return nil, err
	}
	return &client{getUser: getUser, getUserRepos: getUserRepos}, nil
}

func (c *client) GetUser(ctx context.Context, username string) (User, error) {
	return c.getUser.Call(ctx, username)
}

func (c *client) GetUserRepos(ctx context.Context, username string) ([]Repo, error) {
	return c.getUserRepos.Call(ctx, username)
}
