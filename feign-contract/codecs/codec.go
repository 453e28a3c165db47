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

// Package codecs holds the wire encodings understood by the client, the mapper and the stub engine.
package codecs

import (
	"io"
	"mime"
	"strings"

	werror "github.com/palantir/witchcraft-go-error"
)

// Decoder reads a value of a single content type.
type Decoder interface {
	Accept() string
	Decode(r io.Reader, v interface{}) error
	Unmarshal(data []byte, v interface{}) error
}

// Encoder writes a value in a single content type.
type Encoder interface {
	ContentType() string
	Encode(w io.Writer, v interface{}) error
	Marshal(v interface{}) ([]byte, error)
}

// Codec is both an Encoder and a Decoder for the same content type.
type Codec interface {
	Decoder
	Encoder
}

var negotiable = []Codec{JSON, YAML, Protobuf, Plain, Binary}

// ForContentType returns the codec registered for the media type of the provided Content-Type or Accept
// header value. Parameters such as charset are ignored. Multiple comma-separated media types are tried in order.
func ForContentType(contentType string) (Codec, error) {
	for _, part := range strings.Split(contentType, ",") {
		mediaType, _, err := mime.ParseMediaType(strings.TrimSpace(part))
		if err != nil {
			continue
		}
		for _, c := range negotiable {
			if strings.EqualFold(c.ContentType(), mediaType) {
				return c, nil
			}
		}
		if strings.HasSuffix(mediaType, "+json") {
			return JSON, nil
		}
	}
	return nil, werror.Error("no codec for content type", werror.SafeParam("contentType", contentType))
}
