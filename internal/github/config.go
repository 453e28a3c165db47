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
	"os"
	"time"

	"github.com/palantir/go-feign-runtime/feign-client/httpclient"
	"github.com/palantir/go-feign-runtime/feign-contract/mapper"
	werror "github.com/palantir/witchcraft-go-error"
	"gopkg.in/yaml.v2"
)

const (
	// DefaultURL is the GitHub REST API base URL.
	DefaultURL = "https://api.github.com"
	// URLEnvVar overrides the GitHub base URL from the environment.
	URLEnvVar = "GITHUB_API_URL"
)

type Config struct {
	Server  ServerConfig              `yaml:"server"`
	Clients httpclient.ServicesConfig `yaml:"clients"`
}

type ServerConfig struct {
	Address string `yaml:"address"`
	Port    int    `yaml:"port"`
}

// DefaultClientConfig is the GitHub client configuration used where the install config is silent: five attempts
// with backoff from 1s doubling up to 10s, and response fields the aggregator does not read are ignored.
func DefaultClientConfig() httpclient.ClientConfig {
	maxNumRetries := 4
	initialBackoff := time.Second
	maxBackoff := 10 * time.Second
	multiplier := 2.0
	unmapped := mapper.Ignore
	return httpclient.ClientConfig{
		ServiceName:       ServiceName,
		URIs:              []string{DefaultURL},
		MaxNumRetries:     &maxNumRetries,
		InitialBackoff:    &initialBackoff,
		MaxBackoff:        &maxBackoff,
		BackoffMultiplier: &multiplier,
		UnmappedPolicy:    &unmapped,
	}
}

// LoadConfig reads the YAML install config at path, or uses defaults when path is empty.
func LoadConfig(path string) (Config, error) {
	conf := Config{Server: ServerConfig{Port: 8080}}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, werror.Wrap(err, "failed to read config", werror.SafeParam("path", path))
		}
		if err := yaml.UnmarshalStrict(data, &conf); err != nil {
			return Config{}, werror.Wrap(err, "failed to parse config", werror.SafeParam("path", path))
		}
	}
	return conf, nil
}

// ClientConfig merges the configured GitHub client over DefaultClientConfig. URLEnvVar, when set, replaces the URIs.
func (c Config) ClientConfig() httpclient.ClientConfig {
	conf := httpclient.MergeClientConfig(c.Clients.ClientConfig(ServiceName), DefaultClientConfig())
	if url := os.Getenv(URLEnvVar); url != "" {
		conf.URIs = []string{url}
	}
	return conf
}
