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
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/palantir/go-feign-runtime/feign-contract/codecs"
	"github.com/palantir/go-feign-runtime/feign-contract/errors"
	werror "github.com/palantir/witchcraft-go-error"
	"github.com/palantir/witchcraft-go-logging/wlog"
	"github.com/palantir/witchcraft-go-logging/wlog/svclog/svc1log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandler_ServeHTTP(t *testing.T) {
	noMatchErr := errors.NewError(errors.ContractNoMatch, errors.SafeParam("path", "/users/7"))
	internalErr := errors.NewInternal(errors.SafeParam("param", "value"))
	for _, tc := range []struct {
		name       string
		handler    func(http.ResponseWriter, *http.Request) error
		verifyResp func(*testing.T, *http.Response)
		verifyLog  func(*testing.T, []byte)
	}{
		{
			name: "plaintext no error",
			handler: func(rw http.ResponseWriter, req *http.Request) error {
				rw.Header().Add("Content-Type", codecs.Plain.ContentType())
				_, _ = rw.Write([]byte("plaintext"))
				return nil
			},
			verifyResp: func(t *testing.T, resp *http.Response) {
				assert.Equal(t, http.StatusOK, resp.StatusCode)
				body, err := io.ReadAll(resp.Body)
				assert.NoError(t, err)
				assert.Equal(t, "plaintext", string(body))
			},
			verifyLog: func(t *testing.T, line []byte) {
				assert.Empty(t, string(line))
			},
		},
		{
			name: "500 plaintext error",
			handler: func(rw http.ResponseWriter, req *http.Request) error {
				return werror.Error("a bad thing", werror.SafeParam("param", "value"))
			},
			verifyResp: func(t *testing.T, resp *http.Response) {
				assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
				assert.Equal(t, "text/plain; charset=utf-8", resp.Header.Get("Content-Type"))
				body, err := io.ReadAll(resp.Body)
				assert.NoError(t, err)
				assert.Equal(t, "a bad thing\n", string(body))
			},
			verifyLog: func(t *testing.T, line []byte) {
				logLine := map[string]interface{}{}
				require.NoError(t, codecs.JSON.Unmarshal(line, &logLine))
				assert.Equal(t, "ERROR", logLine["level"])
				assert.Equal(t, "error handling request: a bad thing", logLine["message"])
				assert.Equal(t, map[string]interface{}{"param": "value"}, logLine["params"])
			},
		},
		{
			name: "404 legacy plaintext error",
			handler: func(rw http.ResponseWriter, req *http.Request) error {
				return werror.Error("no such user", werror.SafeParam(legacyHTTPStatusCodeParamKey, http.StatusNotFound))
			},
			verifyResp: func(t *testing.T, resp *http.Response) {
				assert.Equal(t, http.StatusNotFound, resp.StatusCode)
				body, err := io.ReadAll(resp.Body)
				assert.NoError(t, err)
				assert.Equal(t, "no such user\n", string(body))
			},
			verifyLog: func(t *testing.T, line []byte) {
				logLine := map[string]interface{}{}
				require.NoError(t, codecs.JSON.Unmarshal(line, &logLine))
				assert.Equal(t, "INFO", logLine["level"])
				assert.Equal(t, map[string]interface{}{"httpStatusCode": json.Number("404")}, logLine["params"])
			},
		},
		{
			name: "404 conjure error, wrapped",
			handler: func(rw http.ResponseWriter, req *http.Request) error {
				return werror.Wrap(noMatchErr, "stub lookup failed", werror.UnsafeParam("user", "ada"))
			},
			verifyResp: func(t *testing.T, resp *http.Response) {
				assert.Equal(t, http.StatusNotFound, resp.StatusCode)
				assert.Equal(t, "application/json; charset=utf-8", resp.Header.Get("Content-Type"))
				body, err := io.ReadAll(resp.Body)
				assert.NoError(t, err)
				expected, err := codecs.JSON.Marshal(noMatchErr)
				require.NoError(t, err)
				assert.JSONEq(t, string(expected), string(body))
			},
			verifyLog: func(t *testing.T, line []byte) {
				logLine := map[string]interface{}{}
				require.NoError(t, codecs.JSON.Unmarshal(line, &logLine))
				assert.Equal(t, "INFO", logLine["level"])
				assert.Contains(t, logLine["message"], "stub lookup failed")
				assert.Equal(t, map[string]interface{}{"user": "ada"}, logLine["unsafeParams"])
			},
		},
		{
			name: "500 conjure error",
			handler: func(rw http.ResponseWriter, req *http.Request) error {
				return internalErr
			},
			verifyResp: func(t *testing.T, resp *http.Response) {
				assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
				body, err := io.ReadAll(resp.Body)
				assert.NoError(t, err)
				expected, err := codecs.JSON.Marshal(internalErr)
				require.NoError(t, err)
				assert.JSONEq(t, string(expected), string(body))
			},
			verifyLog: func(t *testing.T, line []byte) {
				logLine := map[string]interface{}{}
				require.NoError(t, codecs.JSON.Unmarshal(line, &logLine))
				assert.Equal(t, "ERROR", logLine["level"])
			},
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			var logBuf bytes.Buffer
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req = req.WithContext(svc1log.WithLogger(context.Background(),
				svc1log.NewFromCreator(&logBuf, wlog.InfoLevel, wlog.NewJSONMarshalLoggerProvider().NewLeveledLogger, svc1log.Origin("")),
			))

			recorder := httptest.NewRecorder()
			NewJSONHandler(tc.handler, StatusCodeMapper, ErrHandler).ServeHTTP(recorder, req)
			tc.verifyResp(t, recorder.Result())
			tc.verifyLog(t, logBuf.Bytes())
		})
	}
}

func TestStatusCodeMapper(t *testing.T) {
	for _, tc := range []struct {
		name         string
		err          error
		expectedCode int
	}{
		{
			name:         "conjure not found error",
			err:          errors.NewNotFound(),
			expectedCode: http.StatusNotFound,
		},
		{
			name:         "wrapped ambiguous contract error",
			err:          werror.Wrap(errors.NewError(errors.ContractAmbiguousMatch), "ambiguous"),
			expectedCode: http.StatusConflict,
		},
		{
			name:         "conjure code wins over legacy code",
			err:          werror.Wrap(errors.NewNotFound(), "not found", werror.SafeParam(legacyHTTPStatusCodeParamKey, http.StatusInternalServerError)),
			expectedCode: http.StatusNotFound,
		},
		{
			name:         "legacy code",
			err:          werror.Wrap(werror.Error("inner", werror.SafeParam(legacyHTTPStatusCodeParamKey, http.StatusBadGateway)), "outer"),
			expectedCode: http.StatusBadGateway,
		},
		{
			name:         "plain error",
			err:          werror.Error("werror"),
			expectedCode: http.StatusInternalServerError,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expectedCode, StatusCodeMapper(tc.err))
		})
	}
}

func TestStatusHandler(t *testing.T) {
	recorder := httptest.NewRecorder()
	StatusHandler("github-aggregator", time.Now().Add(-90*time.Second)).ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/actuator/health", nil))

	assert.Equal(t, http.StatusOK, recorder.Code)
	var status Status
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &status))
	assert.Equal(t, "github-aggregator", status.Name)
	assert.Equal(t, "UP", status.Status)
	assert.Equal(t, "1m30s", status.Uptime)
}
