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

package codecs

import (
	"bytes"
	"fmt"
	"io"

	werror "github.com/palantir/witchcraft-go-error"
)

const (
	contentTypeBinary = "application/octet-stream"
)

// Binary codec streams raw bytes. Decode copies into an io.Writer (or *[]byte), Encode copies from an io.Reader
// (or []byte).
var Binary Codec = codecBinary{}

type codecBinary struct{}

func (codecBinary) Accept() string {
	return contentTypeBinary
}

func (codecBinary) Decode(r io.Reader, v interface{}) error {
	if closer, ok := r.(io.ReadCloser); ok {
		defer func() { _ = closer.Close() }()
	}
	switch out := v.(type) {
	case *[]byte:
		data, err := io.ReadAll(r)
		if err != nil {
			return werror.Wrap(err, "read failed")
		}
		*out = data
		return nil
	case io.Writer:
		_, err := io.Copy(out, r)
		return werror.Wrap(err, "copy failed")
	}
	return werror.Error("failed to decode binary data into unsupported type", werror.SafeParam("type", fmt.Sprintf("%T", v)))
}

func (c codecBinary) Unmarshal(data []byte, v interface{}) error {
	return c.Decode(bytes.NewReader(data), v)
}

func (codecBinary) ContentType() string {
	return contentTypeBinary
}

func (codecBinary) Encode(w io.Writer, v interface{}) error {
	switch in := v.(type) {
	case []byte:
		_, err := w.Write(in)
		return werror.Wrap(err, "write failed")
	case io.Reader:
		if closer, ok := in.(io.ReadCloser); ok {
			defer func() { _ = closer.Close() }()
		}
		_, err := io.Copy(w, in)
		return werror.Wrap(err, "copy failed")
	}
	return werror.Error("failed to encode binary data from unsupported type", werror.SafeParam("type", fmt.Sprintf("%T", v)))
}

func (c codecBinary) Marshal(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := c.Encode(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
