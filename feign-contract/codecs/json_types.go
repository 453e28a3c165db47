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
	"io"
)

// jsonDecoder may be implemented by values passed to Decode and Unmarshal to bypass the json.Decoder.
type jsonDecoder interface {
	DecodeJSON(r io.Reader) error
}

// JSONDecoderFunc implements jsonDecoder for ad-hoc decoding logic.
type JSONDecoderFunc func(r io.Reader) error

func (f JSONDecoderFunc) DecodeJSON(r io.Reader) error {
	return f(r)
}

// jsonEncoder may be implemented by values passed to Encode and Marshal to bypass the json.Encoder.
type jsonEncoder interface {
	EncodeJSON(w io.Writer) error
}

// JSONEncoderFunc implements jsonEncoder for ad-hoc encoding logic.
type JSONEncoderFunc func(w io.Writer) error

func (f JSONEncoderFunc) EncodeJSON(w io.Writer) error {
	return f(w)
}
