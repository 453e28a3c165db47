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

package mapper_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/palantir/go-feign-runtime/feign-contract/codecs"
	"github.com/palantir/go-feign-runtime/feign-contract/errors"
	"github.com/palantir/go-feign-runtime/feign-contract/mapper"
	"github.com/palantir/witchcraft-go-logging/wlog"
	"github.com/palantir/witchcraft-go-logging/wlog/svclog/svc1log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type user struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

func TestDecode_User(t *testing.T) {
	var out user
	err := mapper.New().Decode(context.Background(), []byte(`{"id":42,"name":"Ada"}`), codecs.JSON, &out)
	require.NoError(t, err)
	assert.Equal(t, user{ID: 42, Name: "Ada"}, out)
}

func TestDecode_CanonicalRoundTrip(t *testing.T) {
	type repo struct {
		Name  string   `json:"name"`
		Stars int      `json:"stars"`
		Tags  []string `json:"tags"`
		Owner *user    `json:"owner"`
	}
	m := mapper.New(mapper.WithUnmappedPolicy(mapper.Fail))
	for _, in := range []string{
		`{"name":"runtime","stars":12,"tags":["go","http"],"owner":{"id":1,"name":"Ada"}}`,
		`{"name":"a&b","stars":0,"tags":[],"owner":null}`,
	} {
		var out repo
		require.NoError(t, m.Decode(context.Background(), []byte(in), codecs.JSON, &out))
		encoded, err := m.Encode(out, codecs.JSON)
		require.NoError(t, err)
		assert.Equal(t, in, string(encoded))
	}
}

func TestDecode_Precedence(t *testing.T) {
	type target struct {
		UserName string `json:"user_name"`
		Display  string `json:"display_name"`
		Location string `json:"geo_location" default:"unknown"`
		Email    string `json:"email" mapper:"required"`
		Count    int    `json:"count" default:"7"`
	}
	m := mapper.New(mapper.WithUnmappedPolicy(mapper.Ignore))
	require.NoError(t, m.Register(target{},
		mapper.Rule{Source: "login", Target: "user_name"},
	))

	t.Run("rule wins over name", func(t *testing.T) {
		var out target
		err := m.Decode(context.Background(), []byte(`{"login":"ada","user_name":"other","email":"a@b"}`), codecs.JSON, &out)
		require.NoError(t, err)
		assert.Equal(t, "ada", out.UserName)
	})
	t.Run("name used when rule source absent", func(t *testing.T) {
		var out target
		err := m.Decode(context.Background(), []byte(`{"user_name":"other","email":"a@b"}`), codecs.JSON, &out)
		require.NoError(t, err)
		assert.Equal(t, "other", out.UserName)
	})
	t.Run("case insensitive name then defaults", func(t *testing.T) {
		var out target
		err := m.Decode(context.Background(), []byte(`{"Display_Name":"Ada L","email":"a@b"}`), codecs.JSON, &out)
		require.NoError(t, err)
		assert.Equal(t, target{Display: "Ada L", Location: "unknown", Email: "a@b", Count: 7}, out)
	})
	t.Run("null falls back to default", func(t *testing.T) {
		var out target
		err := m.Decode(context.Background(), []byte(`{"geo_location":null,"email":"a@b"}`), codecs.JSON, &out)
		require.NoError(t, err)
		assert.Equal(t, "unknown", out.Location)
	})
	t.Run("missing required field", func(t *testing.T) {
		var out target
		err := m.Decode(context.Background(), []byte(`{"login":"ada"}`), codecs.JSON, &out)
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.MappingMissingRequiredField))
		conjureErr, ok := errors.FromError(err)
		require.True(t, ok)
		assert.Equal(t, "email", conjureErr.SafeParams()["field"])
	})
}

func TestDecode_UnmappedPolicy(t *testing.T) {
	payload := []byte(`{"id":1,"name":"Ada","company":"Analytical"}`)

	t.Run("warn", func(t *testing.T) {
		var logBuf bytes.Buffer
		ctx := svc1log.WithLogger(context.Background(),
			svc1log.NewFromCreator(&logBuf, wlog.InfoLevel, wlog.NewJSONMarshalLoggerProvider().NewLeveledLogger, svc1log.Origin("")))
		var out user
		require.NoError(t, mapper.New().Decode(ctx, payload, codecs.JSON, &out))
		assert.Equal(t, user{ID: 1, Name: "Ada"}, out)
		assert.Contains(t, logBuf.String(), "Source fields have no mapping target")
		assert.Contains(t, logBuf.String(), "company")
	})
	t.Run("ignore", func(t *testing.T) {
		var logBuf bytes.Buffer
		ctx := svc1log.WithLogger(context.Background(),
			svc1log.NewFromCreator(&logBuf, wlog.InfoLevel, wlog.NewJSONMarshalLoggerProvider().NewLeveledLogger, svc1log.Origin("")))
		var out user
		require.NoError(t, mapper.New(mapper.WithUnmappedPolicy(mapper.Ignore)).Decode(ctx, payload, codecs.JSON, &out))
		assert.Empty(t, logBuf.String())
	})
	t.Run("fail", func(t *testing.T) {
		var out user
		err := mapper.New(mapper.WithUnmappedPolicy(mapper.Fail)).Decode(context.Background(), payload, codecs.JSON, &out)
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.MappingUnmappedField))
	})
}

func TestDecode_Numeric(t *testing.T) {
	type numbers struct {
		I8  int8    `json:"i8"`
		I64 int64   `json:"i64"`
		U16 uint16  `json:"u16"`
		F32 float32 `json:"f32"`
		F64 float64 `json:"f64"`
	}
	for _, tc := range []struct {
		name      string
		payload   string
		strictErr bool
		lenient   numbers
	}{
		{name: "widening", payload: `{"i64":127,"f64":3}`, lenient: numbers{I64: 127, F64: 3}},
		{name: "integral float into int", payload: `{"i8":12.0}`, lenient: numbers{I8: 12}},
		{name: "fraction into int", payload: `{"i64":12.75}`, strictErr: true, lenient: numbers{I64: 12}},
		{name: "float32 precision loss", payload: `{"f32":0.1}`, strictErr: true, lenient: numbers{F32: 0.1}},
		{name: "exact float32", payload: `{"f32":0.5}`, lenient: numbers{F32: 0.5}},
		{name: "large int64", payload: `{"i64":9007199254740993}`, lenient: numbers{I64: 9007199254740993}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			var strictOut numbers
			err := mapper.New().Decode(context.Background(), []byte(tc.payload), codecs.JSON, &strictOut)
			if tc.strictErr {
				require.Error(t, err)
				assert.True(t, errors.IsType(err, errors.ResponseDecodeError))
			} else {
				require.NoError(t, err)
				assert.Equal(t, tc.lenient, strictOut)
			}

			var lenientOut numbers
			require.NoError(t, mapper.New(mapper.WithStrict(false)).Decode(context.Background(), []byte(tc.payload), codecs.JSON, &lenientOut))
			assert.Equal(t, tc.lenient, lenientOut)
		})
	}

	for _, payload := range []string{`{"i8":128}`, `{"u16":-1}`, `{"u16":70000}`, `{"i64":1e30}`, `{"f32":1e40}`} {
		t.Run("overflow "+payload, func(t *testing.T) {
			var out numbers
			err := mapper.New(mapper.WithStrict(false)).Decode(context.Background(), []byte(payload), codecs.JSON, &out)
			require.Error(t, err)
			assert.True(t, errors.IsType(err, errors.ResponseDecodeError))
		})
	}
}

func TestDecode_TypeMismatchAndSyntax(t *testing.T) {
	var out user
	err := mapper.New().Decode(context.Background(), []byte(`{"id":"forty-two"}`), codecs.JSON, &out)
	assert.True(t, errors.IsType(err, errors.ResponseDecodeError))

	err = mapper.New().Decode(context.Background(), []byte(`{"id":`), codecs.JSON, &out)
	assert.True(t, errors.IsType(err, errors.ResponseDecodeError))

	err = mapper.New().Decode(context.Background(), []byte(`{}`), codecs.JSON, out)
	assert.True(t, errors.IsType(err, errors.ResponseDecodeError))
}

func TestDecode_EmptyBodyLeavesTarget(t *testing.T) {
	out := user{ID: 3}
	require.NoError(t, mapper.New().Decode(context.Background(), []byte("  "), codecs.JSON, &out))
	assert.Equal(t, user{ID: 3}, out)
}

func TestDecode_YAML(t *testing.T) {
	type nested struct {
		Users map[string]user `json:"users"`
	}
	var out nested
	payload := "users:\n  first:\n    id: 1\n    name: Ada\n"
	require.NoError(t, mapper.New().Decode(context.Background(), []byte(payload), codecs.YAML, &out))
	assert.Equal(t, nested{Users: map[string]user{"first": {ID: 1, Name: "Ada"}}}, out)
}

func TestRegister_Ambiguous(t *testing.T) {
	type target struct {
		A string `json:"a"`
		B string `json:"b"`
	}
	type colliding struct {
		A string `json:"a"`
		B string `json:"a"`
	}
	for _, tc := range []struct {
		name   string
		target interface{}
		rules  []mapper.Rule
	}{
		{name: "unknown target", target: target{}, rules: []mapper.Rule{{Source: "x", Target: "c"}}},
		{name: "duplicate target", target: target{}, rules: []mapper.Rule{{Source: "x", Target: "a"}, {Source: "y", Target: "a"}}},
		{name: "unknown converter", target: target{}, rules: []mapper.Rule{{Source: "x", Target: "a", Converter: "nope"}}},
		{name: "malformed source", target: target{}, rules: []mapper.Rule{{Source: "x..y", Target: "a"}}},
		{name: "cycle", target: target{}, rules: []mapper.Rule{{Source: "b", Target: "a"}, {Source: "a.inner", Target: "b"}}},
		{name: "wire collision", target: colliding{}},
		{name: "not a struct", target: "string"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			err := mapper.New().Register(tc.target, tc.rules...)
			require.Error(t, err)
			assert.True(t, errors.IsType(err, errors.MappingAmbiguousMapping))
		})
	}

	t.Run("identity rule is not a cycle", func(t *testing.T) {
		assert.NoError(t, mapper.New().Register(target{}, mapper.Rule{Source: "a", Target: "a"}))
	})
	t.Run("registered twice", func(t *testing.T) {
		m := mapper.New()
		require.NoError(t, m.Register(target{}))
		err := m.Register(&target{})
		assert.True(t, errors.IsType(err, errors.MappingAmbiguousMapping))
	})
}

func TestMap_Sources(t *testing.T) {
	type account struct {
		Login     string `json:"login"`
		AvatarURL string `json:"avatar_url"`
	}
	type item struct {
		Name string `json:"name"`
	}
	type summary struct {
		UserName string `json:"user_name"`
		Avatar   string `json:"avatar"`
		Items    []item `json:"items"`
	}
	m := mapper.New(mapper.WithConverter("upper", func(v interface{}) (interface{}, error) {
		if s, ok := v.(string); ok {
			return strings.ToUpper(s), nil
		}
		return v, nil
	}))
	require.NoError(t, m.Register(summary{},
		mapper.Rule{Source: "account.login", Target: "user_name", Converter: "upper"},
		mapper.Rule{Source: "account.avatar_url", Target: "avatar"},
		mapper.Rule{Source: "repos", Target: "items"},
	))

	var out summary
	err := m.Map(context.Background(), &out, mapper.Sources{
		"account": account{Login: "ada", AvatarURL: "https://avatars/ada"},
		"repos":   []item{{Name: "engine"}},
	})
	require.NoError(t, err)
	assert.Equal(t, summary{UserName: "ADA", Avatar: "https://avatars/ada", Items: []item{{Name: "engine"}}}, out)
}

func TestMapValue_Widening(t *testing.T) {
	type small struct {
		N int32 `json:"n"`
	}
	type wide struct {
		N int64 `json:"n"`
	}
	var out wide
	require.NoError(t, mapper.New().MapValue(context.Background(), &out, small{N: 1 << 30}))
	assert.Equal(t, int64(1<<30), out.N)
}

func TestUnmappedPolicy_Text(t *testing.T) {
	var p mapper.UnmappedPolicy
	require.NoError(t, p.UnmarshalText([]byte("FAIL")))
	assert.Equal(t, mapper.Fail, p)
	assert.Error(t, p.UnmarshalText([]byte("explode")))
	assert.Equal(t, "ignore", mapper.Ignore.String())
}
