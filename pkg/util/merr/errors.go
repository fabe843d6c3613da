// Licensed to the LF AI & Data foundation under one
// or more contributor license agreements. See the NOTICE file
// distributed with this work for additional information
// regarding copyright ownership. The ASF licenses this file
// to you under the Apache License, Version 2.0 (the
// "License"); you may not use this file except in compliance
// with the License. You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package merr

import (
	"github.com/cockroachdb/errors"
)

const (
	CanceledCode int32 = 10000
	TimeoutCode  int32 = 10001
)

type ErrorType int32

const (
	SystemError ErrorType = 0
	InputError  ErrorType = 1
)

var ErrorTypeName = map[ErrorType]string{
	SystemError: "system_error",
	InputError:  "input_error",
}

func (err ErrorType) String() string {
	return ErrorTypeName[err]
}

// Define leaf errors here,
// WARN: take care to add new error,
// check whether you can use the errors below before adding a new one.
// Name: Err + related prefix + error name
var (
	// Portable serialization related
	ErrSerializeUnsupportedType = newAutoDoneError("unsupported type for serialization", 100, false)
	ErrPortableUnknownTag       = newAutoDoneError("unknown portable tag", 101, false)
	ErrPortableMalformed        = newAutoDoneError("malformed portable value", 102, false)
	ErrPortableDepthExceeded    = newAutoDoneError("portable value nesting depth exceeded", 103, false)
	ErrPortableTooLarge         = newAutoDoneError("portable payload exceeds size limit", 104, false)

	// Portable deserialization related
	ErrDeserializeResolution           = newAutoDoneError("cannot resolve class for deserialization", 200, false)
	ErrDeserializeHandlerNotRegistered = newAutoDoneError("no handler registered for type", 201, false)
	ErrDeserializeUnsafe               = newAutoDoneError("refusing unsafe deserialization", 202, false)

	// Session related
	ErrSessionNotFound        = newAutoDoneError("session not found", 300, false)
	ErrSessionClosed          = newAutoDoneError("session already closed", 301, false)
	ErrSessionVersionMismatch = newAutoDoneError("session file version mismatch", 302, false)

	// Command & interface related
	ErrCommandNotFound        = newAutoDoneError("command not found", 400, false)
	ErrCommandDuplicate       = newAutoDoneError("command already registered", 401, false)
	ErrCommandInvalidArgument = newAutoDoneError("invalid command argument", 402, false)
	ErrInterfaceDuplicate     = newAutoDoneError("interface already registered", 403, false)
	ErrInterfaceNotFound      = newAutoDoneError("interface not found", 404, false)

	// Config related
	ErrConfigInvalid     = newAutoDoneError("invalid config", 500, false)
	ErrConfigKeyNotFound = newAutoDoneError("config key not found", 501, false)

	// IO related
	ErrIoKeyNotFound = newAutoDoneError("key not found", 600, false)
	ErrIoFailed      = newAutoDoneError("IO failed", 601, true)

	// Parameter related
	ErrParameterInvalid = newAutoDoneError("invalid parameter", 700, false)
	ErrParameterMissing = newAutoDoneError("missing parameter", 701, false)

	// General
	ErrOperationNotSupported = newAutoDoneError("unsupported operation", 3000, false)

	// Do NOT export this,
	// never allow programmer using this, keep only for converting unknown error to autodoneError
	errUnexpected = newAutoDoneError("unexpected error", (1<<16)-1, false)
)

type errorOption func(*autodoneError)

func WithDetail(detail string) errorOption {
	return func(err *autodoneError) {
		err.detail = detail
	}
}

func WithErrorType(etype ErrorType) errorOption {
	return func(err *autodoneError) {
		err.errType = etype
	}
}

type autodoneError struct {
	msg       string
	detail    string
	retriable bool
	errCode   int32
	errType   ErrorType
}

func newAutoDoneError(msg string, code int32, retriable bool, options ...errorOption) autodoneError {
	err := autodoneError{
		msg:       msg,
		detail:    msg,
		retriable: retriable,
		errCode:   code,
	}

	for _, option := range options {
		option(&err)
	}
	return err
}

func (e autodoneError) code() int32 {
	return e.errCode
}

func (e autodoneError) Error() string {
	return e.msg
}

func (e autodoneError) Detail() string {
	return e.detail
}

func (e autodoneError) Is(err error) bool {
	cause := errors.Cause(err)
	if cause, ok := cause.(autodoneError); ok {
		return e.errCode == cause.errCode
	}
	return false
}

type multiErrors struct {
	errs []error
}

func (e multiErrors) Unwrap() error {
	if len(e.errs) <= 1 {
		return nil
	}
	// To make merr work for multi errors,
	// we need cause of multi errors, which defined as the last error
	if len(e.errs) == 2 {
		return e.errs[1]
	}

	return multiErrors{
		errs: e.errs[1:],
	}
}

func (e multiErrors) Error() string {
	final := e.errs[0]
	for i := 1; i < len(e.errs); i++ {
		final = errors.Wrap(e.errs[i], final.Error())
	}
	return final.Error()
}

func (e multiErrors) Is(err error) bool {
	for _, item := range e.errs {
		if errors.Is(item, err) {
			return true
		}
	}
	return false
}
