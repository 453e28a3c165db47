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

	"github.com/palantir/go-feign-runtime/feign-client/httpclient"
	"github.com/palantir/go-feign-runtime/feign-contract/errors"
	"github.com/palantir/go-feign-runtime/feign-contract/mapper"
	werror "github.com/palantir/witchcraft-go-error"
	"github.com/palantir/witchcraft-go-logging/wlog/svclog/svc1log"
	"golang.org/x/sync/errgroup"
)

// UserNotFound is returned when GitHub has no user with the requested login.
var UserNotFound = errors.MustErrorType(errors.NotFound, "GitHub:UserNotFound")

type Service struct {
	client Client
	mapper *mapper.Mapper
}

// NewService returns a service reading from client. m must come from NewMapper.
func NewService(client Client, m *mapper.Mapper) *Service {
	return &Service{client: client, mapper: m}
}

// GetUserRepos fetches the user and their repositories concurrently and maps them into a UserRepos.
func (s *Service) GetUserRepos(ctx context.Context, username string) (UserRepos, error) {
	svc1log.FromContext(ctx).Debug("Fetching GitHub user and repositories", svc1log.UnsafeParam("username", username))

	var (
		user  User
		repos []Repo
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		user, err = s.client.GetUser(gctx, username)
		return err
	})
	g.Go(func() error {
		var err error
		repos, err = s.client.GetUserRepos(gctx, username)
		return err
	})
	if err := g.Wait(); err != nil {
		if status, ok := httpclient.StatusCodeFromError(err); ok && status == http.StatusNotFound {
			return UserRepos{}, errors.WrapWithNewError(err, UserNotFound, errors.UnsafeParam("username", username))
		}
		return UserRepos{}, werror.WrapWithContextParams(ctx, err, "failed to fetch GitHub user", werror.UnsafeParam("username", username))
	}

	var out UserRepos
	if err := s.mapper.Map(ctx, &out, mapper.Sources{"user": user, "repos": repos}); err != nil {
		return UserRepos{}, werror.WrapWithContextParams(ctx, err, "failed to map GitHub user")
	}
	if out.Repos == nil {
		out.Repos = []RepoInfo{}
	}
	svc1log.FromContext(ctx).Debug("Aggregated GitHub user",
		svc1log.UnsafeParam("username", username),
		svc1log.SafeParam("repoCount", len(out.Repos)))
	return out, nil
}

// NewServiceFromConfig builds the GitHub HTTP client, mapper and bound client described by conf.
func NewServiceFromConfig(conf httpclient.ClientConfig, params ...httpclient.ClientParam) (*Service, error) {
	httpClient, err := httpclient.NewClient(append([]httpclient.ClientParam{httpclient.WithConfig(conf)}, params...)...)
	if err != nil {
		return nil, err
	}
	m, err := NewMapper(conf.MapperOptions()...)
	if err != nil {
		return nil, err
	}
	client, err := NewClient(httpClient, m)
	if err != nil {
		return nil, err
	}
	return NewService(client, m), nil
}
