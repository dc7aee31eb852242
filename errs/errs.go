// Package errs provides the coded-error type used across the Schema Reader,
// Plan Builder, SQL Emitter, Row Graph, Mutation Compiler and Chunk Transport,
// carrying a stable GraphQL-facing code alongside a pkg/errors stack trace.
package errs

import (
	"github.com/pkg/errors"

	"github.com/eddieafk/bifrostql/graph"
)

// Code is a stable, GraphQL-facing error code surfaced in graph.Error.Extensions["code"].
type Code string

const (
	CodeAuthRequired    Code = "auth-required"
	CodeJoinNotFound    Code = "join-not-found"
	CodeNotFound        Code = "not-found"
	CodeResumeExpired   Code = "resume-expired"
	CodeValidationError Code = "validation-error"
	CodeCRCMismatch     Code = "crc-mismatch"
	CodeInternal        Code = "internal-error"
)

// Error wraps an internal cause with a stable code and an optional detail
// string that is safe to log but not always safe to surface to the client
// (used for CodeInternal, where the message shown to callers stays generic).
type Error struct {
	Code    Code
	Message string
	Detail  string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.cause }

// Cause returns the deepest wrapped error, mirroring pkg/errors.Cause.
func (e *Error) Cause() error {
	if e.cause == nil {
		return e
	}
	return errors.Cause(e.cause)
}

// New creates a coded error with no wrapped cause.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a code and message to an existing error, preserving its
// stack via pkg/errors.Wrap so the Schema Reader -> Plan Builder -> SQL
// Emitter -> Row Graph chain keeps a full trace back to the original cause.
func Wrap(cause error, code Code, message string) *Error {
	if cause == nil {
		return New(code, message)
	}
	return &Error{Code: code, Message: message, cause: errors.Wrap(cause, message)}
}

// Internal wraps cause as CodeInternal, stashing cause's text as Detail so
// callers can log it without necessarily surfacing it to the client.
func Internal(cause error, message string) *Error {
	e := Wrap(cause, CodeInternal, message)
	if cause != nil {
		e.Detail = cause.Error()
	}
	return e
}

// ValidationError is a convenience constructor for CodeValidationError.
func ValidationError(message string) *Error {
	return New(CodeValidationError, message)
}

// NotFound is a convenience constructor for CodeNotFound.
func NotFound(message string) *Error {
	return New(CodeNotFound, message)
}

// ToGraphError translates a coded error into the teacher's graph.Error shape
// at the GraphQL response boundary. CodeInternal messages stay generic on
// the client-visible Message; Detail is attached under Extensions["cause"]
// for server-side logging, never meant to reach untrusted clients verbatim.
func ToGraphError(err *Error, path []interface{}) *graph.Error {
	ge := &graph.Error{
		Message: err.Message,
		Path:    path,
		Extensions: map[string]interface{}{
			"code": string(err.Code),
		},
	}
	if err.Detail != "" {
		ge.Extensions["cause"] = err.Detail
	}
	return ge
}

// As reports whether err (or something it wraps) is an *Error, mirroring the
// standard errors.As contract used throughout the call chain.
func As(err error) (*Error, bool) {
	for err != nil {
		if e, ok := err.(*Error); ok {
			return e, true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	return nil, false
}
