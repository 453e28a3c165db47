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

package httpclient

import (
	"github.com/palantir/pkg/refreshable"
)

// RefreshableServicesConfig is a refreshable.Refreshable of ServicesConfig.
type RefreshableServicesConfig interface {
	refreshable.Refreshable
	CurrentServicesConfig() ServicesConfig
	MapServicesConfig(func(ServicesConfig) interface{}) refreshable.Refreshable
}

// RefreshableClientConfig is a refreshable.Refreshable of ClientConfig.
type RefreshableClientConfig interface {
	refreshable.Refreshable
	CurrentClientConfig() ClientConfig
	MapClientConfig(func(ClientConfig) interface{}) refreshable.Refreshable
}

type refreshingServicesConfig struct {
	refreshable.Refreshable
}

// NewRefreshingServicesConfig wraps in, which must contain ServicesConfig values.
func NewRefreshingServicesConfig(in refreshable.Refreshable) RefreshableServicesConfig {
	return refreshingServicesConfig{Refreshable: in}
}

func (r refreshingServicesConfig) CurrentServicesConfig() ServicesConfig {
	return r.Current().(ServicesConfig)
}

func (r refreshingServicesConfig) MapServicesConfig(mapFn func(ServicesConfig) interface{}) refreshable.Refreshable {
	return r.Map(func(i interface{}) interface{} {
		return mapFn(i.(ServicesConfig))
	})
}

type refreshingClientConfig struct {
	refreshable.Refreshable
}

// NewRefreshingClientConfig wraps in, which must contain ClientConfig values.
func NewRefreshingClientConfig(in refreshable.Refreshable) RefreshableClientConfig {
	return refreshingClientConfig{Refreshable: in}
}

func (r refreshingClientConfig) CurrentClientConfig() ClientConfig {
	return r.Current().(ClientConfig)
}

func (r refreshingClientConfig) MapClientConfig(mapFn func(ClientConfig) interface{}) refreshable.Refreshable {
	return r.Map(func(i interface{}) interface{} {
		return mapFn(i.(ClientConfig))
	})
}

// RefreshableClientConfigFromServiceConfig follows the merged configuration of serviceName.
func RefreshableClientConfigFromServiceConfig(servicesConfig RefreshableServicesConfig, serviceName string) RefreshableClientConfig {
	return NewRefreshingClientConfig(servicesConfig.MapServicesConfig(func(c ServicesConfig) interface{} {
		return c.ClientConfig(serviceName)
	}))
}
