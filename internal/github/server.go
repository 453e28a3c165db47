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

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/palantir/go-feign-runtime/feign-contract/codecs"
	"github.com/palantir/go-feign-runtime/feign-server/httpserver"
	"github.com/palantir/witchcraft-go-logging/wlog/svclog/svc1log"
)

// NewRouter serves GET /api/v1/users/{username} and the liveness endpoint. Request contexts carry logger.
func NewRouter(service *Service, name string, started time.Time, logger svc1log.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(rw, req.WithContext(svc1log.WithLogger(req.Context(), logger)))
		})
	})
	r.Method(http.MethodGet, "/api/v1/users/{username}", httpserver.NewJSONHandler(func(rw http.ResponseWriter, req *http.Request) error {
		resp, err := service.GetUserRepos(req.Context(), chi.URLParam(req, "username"))
		if err != nil {
			return err
		}
		rw.Header().Set("Content-Type", codecs.JSON.ContentType())
		return codecs.JSON.Encode(rw, resp)
	}, httpserver.StatusCodeMapper, httpserver.ErrHandler))
	r.Method(http.MethodGet, "/actuator/health", httpserver.StatusHandler(name, started))
	return r
}
