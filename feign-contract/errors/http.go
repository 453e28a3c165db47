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

package errors

import (
	"net/http"

	"github.com/palantir/go-feign-runtime/feign-contract/codecs"
)

// WriteErrorResponse writes the JSON form of e with the status code of its ErrorCode.
func WriteErrorResponse(w http.ResponseWriter, e Error) {
	marshaledError, err := codecs.JSON.Marshal(e)
	if err != nil {
		// serializeError stringifies params it cannot marshal, so this cannot fail.
		marshaledError, _ = codecs.JSON.Marshal(serializeError(e))
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(e.Code().StatusCode())
	_, _ = w.Write(marshaledError)
}
