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

package codecs_test

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"
	"testing"

	"github.com/gogo/protobuf/proto"
	"github.com/gogo/protobuf/test"
	"github.com/palantir/go-feign-runtime/feign-contract/codecs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSON_MarshalHasNoTrailingNewlineAndKeepsHTML(t *testing.T) {
	out, err := codecs.JSON.Marshal(map[string]string{"q": "a&b<c>"})
	require.NoError(t, err)
	assert.Equal(t, `{"q":"a&b<c>"}`, string(out))
}

func TestJSON_DecodeUsesNumber(t *testing.T) {
	var out interface{}
	require.NoError(t, codecs.JSON.Unmarshal([]byte(`{"id":9007199254740993}`), &out))
	m := out.(map[string]interface{})
	assert.Equal(t, json.Number("9007199254740993"), m["id"])
}

func TestJSON_DecoderFunc(t *testing.T) {
	var called bool
	err := codecs.JSON.Decode(strings.NewReader(`{}`), codecs.JSONDecoderFunc(func(r io.Reader) error {
		called = true
		return nil
	}))
	require.NoError(t, err)
	assert.True(t, called)
}

func TestPlain(t *testing.T) {
	out, err := codecs.Plain.Marshal("hello")
	require.NoError(t, err)
	var actual string
	require.NoError(t, codecs.Plain.Unmarshal(out, &actual))
	assert.Equal(t, "hello", actual)

	_, err = codecs.Plain.Marshal(42)
	assert.Error(t, err)
}

func TestBinary(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, codecs.Binary.Encode(&buf, strings.NewReader("raw")))
	var out []byte
	require.NoError(t, codecs.Binary.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, []byte("raw"), out)
}

func TestYAML(t *testing.T) {
	type doc struct {
		Name string `yaml:"name"`
	}
	out, err := codecs.YAML.Marshal(doc{Name: "Ada"})
	require.NoError(t, err)
	var actual doc
	require.NoError(t, codecs.YAML.Decode(bytes.NewReader(out), &actual))
	assert.Equal(t, "Ada", actual.Name)
}

func TestProtobuf_Serde(t *testing.T) {
	msg := &test.NinOptNative{
		Field15: []byte(`1234567890`),
	}
	out, err := codecs.Protobuf.Marshal(msg)
	require.NoError(t, err)

	actual := &test.NinOptNative{}
	require.NoError(t, codecs.Protobuf.Unmarshal(out, actual))
	require.True(t, proto.Equal(msg, actual))

	_, err = codecs.Protobuf.Marshal("not a message")
	assert.Error(t, err)
}

func TestSnappy(t *testing.T) {
	for _, tc := range []struct {
		name  string
		codec codecs.Codec
	}{
		{name: "block", codec: codecs.Snappy(codecs.JSON)},
		{name: "framed", codec: codecs.SnappyFramed(codecs.JSON)},
	} {
		t.Run(tc.name, func(t *testing.T) {
			in := map[string]string{"hello": strings.Repeat("world", 20)}
			out, err := tc.codec.Marshal(in)
			require.NoError(t, err)
			assert.Equal(t, "application/json", tc.codec.ContentType())

			var actual map[string]string
			require.NoError(t, tc.codec.Decode(bytes.NewReader(out), &actual))
			assert.Equal(t, in, actual)
		})
	}
}

func TestForContentType(t *testing.T) {
	for _, tc := range []struct {
		header   string
		expected codecs.Codec
		wantErr  bool
	}{
		{header: "application/json; charset=utf-8", expected: codecs.JSON},
		{header: "application/problem+json", expected: codecs.JSON},
		{header: "text/html, application/x-yaml", expected: codecs.YAML},
		{header: "text/plain", expected: codecs.Plain},
		{header: "application/octet-stream", expected: codecs.Binary},
		{header: "application/x-protobuf", expected: codecs.Protobuf},
		{header: "image/png", wantErr: true},
	} {
		t.Run(tc.header, func(t *testing.T) {
			c, err := codecs.ForContentType(tc.header)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, c)
		})
	}
}
