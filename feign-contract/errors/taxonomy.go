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

// Error types raised by the client binder, the mapper and the stub engine.
var (
	BindingInvalidTemplate = MustErrorType(Internal, "Binding:InvalidTemplate")
	BindingInvalidArgument = MustErrorType(InvalidArgument, "Binding:InvalidArgument")

	TransportTimeout           = MustErrorType(Timeout, "Transport:Timeout")
	TransportConnectionRefused = MustErrorType(ServiceUnavailable, "Transport:ConnectionRefused")
	TransportDNSNoSuchHost     = MustErrorType(ServiceUnavailable, "Transport:DnsNoSuchHost")

	ResponseNonSuccessStatus = MustErrorType(Internal, "Response:NonSuccessStatus")
	ResponseDecodeError      = MustErrorType(Internal, "Response:DecodeError")

	MappingMissingRequiredField = MustErrorType(InvalidArgument, "Mapping:MissingRequiredField")
	MappingAmbiguousMapping     = MustErrorType(Internal, "Mapping:AmbiguousMapping")
	MappingUnmappedField        = MustErrorType(InvalidArgument, "Mapping:UnmappedField")

	ContractNoMatch        = MustErrorType(NotFound, "Contract:NoMatch")
	ContractAmbiguousMatch = MustErrorType(Conflict, "Contract:AmbiguousMatch")
)

// FromError returns the outermost Error in err's cause chain.
func FromError(err error) (Error, bool) {
	for err != nil {
		if conjureErr, ok := err.(Error); ok {
			return conjureErr, true
		}
		err = nextCause(err)
	}
	return nil, false
}

// IsType reports whether any Error in err's cause chain has the name of errorType.
func IsType(err error, errorType ErrorType) bool {
	for err != nil {
		if conjureErr, ok := err.(Error); ok && conjureErr.Name() == errorType.Name() {
			return true
		}
		err = nextCause(err)
	}
	return false
}

func nextCause(err error) error {
	switch e := err.(type) {
	case interface{ Cause() error }:
		return e.Cause()
	case interface{ Unwrap() error }:
		return e.Unwrap()
	}
	return nil
}
