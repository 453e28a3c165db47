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
	"io"

	"github.com/golang/snappy"
	werror "github.com/palantir/witchcraft-go-error"
)

// ContentEncodingSnappyFramed is the Content-Encoding value announcing a SnappyFramed body.
const ContentEncodingSnappyFramed = "x-snappy-framed"

// Snappy wraps an existing Codec with snappy block compression. The whole payload is compressed as a single block.
func Snappy(codec Codec) Codec {
	return codecSnappy{contentCodec: codec}
}

// SnappyFramed wraps an existing Codec with the snappy framing format, which streams.
//
// Ref: https://github.com/google/snappy/blob/main/framing_format.txt
func SnappyFramed(codec Codec) Codec {
	return codecSnappy{contentCodec: codec, framed: true}
}

type codecSnappy struct {
	contentCodec Codec
	framed       bool
}

func (c codecSnappy) Accept() string {
	return c.contentCodec.Accept()
}

func (c codecSnappy) Decode(r io.Reader, v interface{}) error {
	if c.framed {
		return c.contentCodec.Decode(snappy.NewReader(r), v)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return werror.Wrap(err, "read failed")
	}
	return c.Unmarshal(data, v)
}

func (c codecSnappy) Unmarshal(data []byte, v interface{}) error {
	if c.framed {
		return c.Decode(bytes.NewReader(data), v)
	}
	decoded, err := snappy.Decode(nil, data)
	if err != nil {
		return werror.Wrap(err, "snappy.Decode")
	}
	return c.contentCodec.Unmarshal(decoded, v)
}

func (c codecSnappy) ContentType() string {
	return c.contentCodec.ContentType()
}

func (c codecSnappy) Encode(w io.Writer, v interface{}) (err error) {
	if !c.framed {
		out, err := c.Marshal(v)
		if err != nil {
			return err
		}
		_, err = w.Write(out)
		return werror.Wrap(err, "write failed")
	}
	snappyWriter := snappy.NewBufferedWriter(w)
	defer func() {
		if closeErr := snappyWriter.Close(); err == nil && closeErr != nil {
			err = werror.Wrap(closeErr, "failed to close snappy writer")
		}
	}()
	return c.contentCodec.Encode(snappyWriter, v)
}

func (c codecSnappy) Marshal(v interface{}) ([]byte, error) {
	if c.framed {
		var buf bytes.Buffer
		if err := c.Encode(&buf, v); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
	raw, err := c.contentCodec.Marshal(v)
	if err != nil {
		return nil, err
	}
	return snappy.Encode(nil, raw), nil
}
