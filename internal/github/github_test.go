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

package github_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/palantir/go-feign-runtime/feign-client/httpclient"
	"github.com/palantir/go-feign-runtime/feign-contract/errors"
	"github.com/palantir/go-feign-runtime/feign-contract/mapper"
	"github.com/palantir/go-feign-runtime/feign-stub/stub"
	"github.com/palantir/go-feign-runtime/feign-stub/stubtest"
	"github.com/palantir/go-feign-runtime/internal/github"
	"github.com/palantir/witchcraft-go-logging/wlog"
	"github.com/palantir/witchcraft-go-logging/wlog/svclog/svc1log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var gitHubContracts = []stub.Contract{
	{
		Name:    "octocat",
		Request: stub.Request{Method: http.MethodGet, URL: "/users/octocat", Headers: map[string]string{"X-GitHub-Api-Version": "2022-11-28"}},
		Response: stub.Response{
			Headers: map[string]string{"Content-Type": "application/json; charset=utf-8"},
			Body: map[string]interface{}{
				"login":        "octocat",
				"id":           583231,
				"name":         "The Octocat",
				"avatar_url":   "https://avatars.githubusercontent.com/u/583231?v=4",
				"location":     "San Francisco",
				"email":        nil,
				"url":          "https://api.github.com/users/octocat",
				"created_at":   "2011-01-25T18:44:36Z",
				"public_repos": 8,
			},
		},
	},
	{
		Name:    "octocat repos",
		Request: stub.Request{Method: http.MethodGet, URL: "/users/octocat/repos"},
		Response: stub.Response{
			Headers: map[string]string{"Content-Type": "application/json; charset=utf-8"},
			Body: []interface{}{
				map[string]interface{}{"id": 1296269, "name": "Hello-World", "url": "https://api.github.com/repos/octocat/Hello-World", "fork": false},
				map[string]interface{}{"id": 1300192, "name": "Spoon-Knife", "url": "https://api.github.com/repos/octocat/Spoon-Knife", "fork": false},
			},
		},
	},
	{
		Name:    "loner",
		Request: stub.Request{Method: http.MethodGet, URL: "/users/loner"},
		Response: stub.Response{
			Body: map[string]interface{}{"login": "loner", "created_at": "not a date"},
		},
	},
	{
		Name:     "loner repos",
		Request:  stub.Request{Method: http.MethodGet, URL: "/users/loner/repos"},
		Response: stub.Response{Body: []interface{}{}},
	},
	{
		Name:    "unknown user",
		Request: stub.Request{Method: http.MethodGet, URLPattern: "/users/ghost(/repos)?"},
		Response: stub.Response{
			Status:  http.StatusNotFound,
			Headers: map[string]string{"Content-Type": "application/json"},
			Body:    map[string]interface{}{"message": "Not Found"},
		},
	},
}

func stringPtr(s string) *string {
	return &s
}

func newService(t *testing.T, url string) *github.Service {
	conf := github.DefaultClientConfig()
	conf.URIs = []string{url}
	noRetries := 0
	conf.MaxNumRetries = &noRetries
	service, err := github.NewServiceFromConfig(conf, httpclient.WithDisableMetrics())
	require.NoError(t, err)
	return service
}

func TestService_GetUserRepos(t *testing.T) {
	server := stubtest.NewServer(t, gitHubContracts...)
	service := newService(t, server.URL)

	resp, err := service.GetUserRepos(context.Background(), "octocat")
	require.NoError(t, err)
	assert.Equal(t, github.UserRepos{
		UserName:    "octocat",
		DisplayName: stringPtr("The Octocat"),
		Avatar:      "https://avatars.githubusercontent.com/u/583231?v=4",
		GeoLocation: stringPtr("San Francisco"),
		URL:         "https://api.github.com/users/octocat",
		CreatedAt:   "Tue, 25 Jan 2011 18:44:36 GMT",
		Repos: []github.RepoInfo{
			{Name: "Hello-World", URL: "https://api.github.com/repos/octocat/Hello-World"},
			{Name: "Spoon-Knife", URL: "https://api.github.com/repos/octocat/Spoon-Knife"},
		},
	}, resp)
}

func TestService_UnparseableDateAndNoRepos(t *testing.T) {
	server := stubtest.NewServer(t, gitHubContracts...)
	service := newService(t, server.URL)

	resp, err := service.GetUserRepos(context.Background(), "loner")
	require.NoError(t, err)
	assert.Equal(t, "loner", resp.UserName)
	assert.Equal(t, "not a date", resp.CreatedAt)
	assert.Equal(t, []github.RepoInfo{}, resp.Repos)
	assert.Nil(t, resp.DisplayName)
	assert.Nil(t, resp.GeoLocation)
	assert.Nil(t, resp.Email)
}

func TestRouter_UnsetProfileFieldsAreNull(t *testing.T) {
	server := stubtest.NewServer(t, gitHubContracts...)
	api := httptest.NewServer(github.NewRouter(newService(t, server.URL), "github-aggregator", time.Now(), svc1log.NewFromCreator(io.Discard, wlog.InfoLevel, wlog.NewJSONMarshalLoggerProvider().NewLeveledLogger)))
	defer api.Close()

	resp, err := http.Get(api.URL + "/api/v1/users/loner")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, `{"user_name":"loner","display_name":null,"avatar":"","geo_location":null,"email":null,`+
		`"url":"","created_at":"not a date","repos":[]}`, string(bytes.TrimSpace(body)))
}

func TestService_UserNotFound(t *testing.T) {
	server := stubtest.NewServer(t, gitHubContracts...)
	service := newService(t, server.URL)

	_, err := service.GetUserRepos(context.Background(), "ghost")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, github.UserNotFound))
}

func TestRouter(t *testing.T) {
	server := stubtest.NewServer(t, gitHubContracts...)
	var logBuf bytes.Buffer
	logger := svc1log.NewFromCreator(&logBuf, wlog.InfoLevel, wlog.NewJSONMarshalLoggerProvider().NewLeveledLogger, svc1log.Origin(""))
	api := httptest.NewServer(github.NewRouter(newService(t, server.URL), "github-aggregator", time.Now(), logger))
	defer api.Close()

	resp, err := http.Get(api.URL + "/api/v1/users/octocat")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, `{"user_name":"octocat","display_name":"The Octocat",`+
		`"avatar":"https://avatars.githubusercontent.com/u/583231?v=4","geo_location":"San Francisco","email":null,`+
		`"url":"https://api.github.com/users/octocat","created_at":"Tue, 25 Jan 2011 18:44:36 GMT",`+
		`"repos":[{"name":"Hello-World","url":"https://api.github.com/repos/octocat/Hello-World"},`+
		`{"name":"Spoon-Knife","url":"https://api.github.com/repos/octocat/Spoon-Knife"}]}`, string(bytes.TrimSpace(body)))

	resp, err = http.Get(api.URL + "/api/v1/users/ghost")
	require.NoError(t, err)
	body, err = io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, string(body), "GitHub:UserNotFound")
	assert.Contains(t, logBuf.String(), `"level":"INFO"`)

	resp, err = http.Get(api.URL + "/actuator/health")
	require.NoError(t, err)
	var status map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	_ = resp.Body.Close()
	assert.Equal(t, "UP", status["status"])
	assert.Equal(t, "github-aggregator", status["name"])
}

func TestNewMapper_FormatDate(t *testing.T) {
	m, err := github.NewMapper()
	require.NoError(t, err)
	for _, tc := range []struct {
		name      string
		createdAt interface{}
		want      string
	}{
		{name: "utc", createdAt: "2011-01-25T18:44:36Z", want: "Tue, 25 Jan 2011 18:44:36 GMT"},
		{name: "offset", createdAt: "2011-01-25T20:44:36+02:00", want: "Tue, 25 Jan 2011 18:44:36 GMT"},
		{name: "unparseable", createdAt: "yesterday", want: "yesterday"},
		{name: "missing", createdAt: nil, want: ""},
	} {
		t.Run(tc.name, func(t *testing.T) {
			var out github.UserRepos
			err := m.Map(context.Background(), &out, mapper.Sources{
				"user":  map[string]interface{}{"login": "octocat", "created_at": tc.createdAt},
				"repos": []interface{}{},
			})
			require.NoError(t, err)
			assert.Equal(t, tc.want, out.CreatedAt)
		})
	}
}

func TestNewMapper_RequiresLogin(t *testing.T) {
	m, err := github.NewMapper(mapper.WithUnmappedPolicy(mapper.Ignore))
	require.NoError(t, err)
	var out github.UserRepos
	err = m.Map(context.Background(), &out, mapper.Sources{"user": map[string]interface{}{"name": "Nobody"}})
	assert.True(t, errors.IsType(err, errors.MappingMissingRequiredField))
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9090
clients:
  read-timeout: 5s
  services:
    github:
      max-num-retries: 2
      uris: [https://github.example.com/api/v3]
`), 0o644))

	conf, err := github.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, conf.Server.Port)

	t.Setenv(github.URLEnvVar, "")
	client := conf.ClientConfig()
	assert.Equal(t, []string{"https://github.example.com/api/v3"}, client.URIs)
	assert.Equal(t, 2, *client.MaxNumRetries)
	assert.Equal(t, 5*time.Second, *client.ReadTimeout)
	assert.Equal(t, time.Second, *client.InitialBackoff)
	assert.Equal(t, mapper.Ignore, *client.UnmappedPolicy)

	t.Setenv(github.URLEnvVar, "http://localhost:1234")
	assert.Equal(t, []string{"http://localhost:1234"}, conf.ClientConfig().URIs)

	defaults, err := github.LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, 8080, defaults.Server.Port)
	t.Setenv(github.URLEnvVar, "")
	assert.Equal(t, []string{github.DefaultURL}, defaults.ClientConfig().URIs)
	assert.Equal(t, 4, *defaults.ClientConfig().MaxNumRetries)
}
