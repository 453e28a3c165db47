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

package httpserver

import (
	"net/http"
	"time"

	pkghttpserver "github.com/palantir/pkg/httpserver"
)

// Status is the body of the liveness endpoint.
type Status struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Uptime string `json:"uptime"`
}

// StatusHandler reports name as UP with the time elapsed since started.
func StatusHandler(name string, started time.Time) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
		pkghttpserver.WriteJSONResponse(rw, Status{
			Name:   name,
			Status: "UP",
			Uptime: time.Since(started).Round(time.Second).String(),
		}, http.StatusOK)
	})
}
