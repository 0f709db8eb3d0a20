// Package entityerr provides the typed error taxonomy shared by every
// runtime component: tree building, the registry, address resolution,
// callable registration and dispatch, and the event bus.
package entityerr

import (
	"errors"
	"fmt"
)

// Code identifies the kind of failure, independent of message text.
type Code string

const (
	CodeNotFound         Code = "NotFound"
	CodeAlreadyExists    Code = "AlreadyExists"
	CodeCyclicReference  Code = "CyclicReference"
	CodeDetachedChild    Code = "DetachedChild"
	CodeAddressSyntax    Code = "AddressSyntax"
	CodeAddressField     Code = "AddressField"
	CodeAddressNotFound  Code = "AddressNotFound"
	CodeArgumentType     Code = "ArgumentType"
	CodeUnknownFunction  Code = "UnknownFunction"
	CodeOutputShape      Code = "OutputShape"
	CodeClassification   Code = "Classification"
	CodeExecutionFailure Code = "ExecutionFailure"
	CodeTimeout          Code = "Timeout"
	CodeCancelled        Code = "Cancelled"
	CodeResourceLimit    Code = "ResourceLimit"
)

// Error is the runtime's structured error carrier: a Code, a message,
// optional structured details, and an optional wrapped cause.
type Error struct {
	Code    Code
	Message string
	Details map[string]any
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// WithDetails attaches a structured detail key/value and returns the
// same error for chaining.
func (e *Error) WithDetails(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates an Error with no wrapped cause.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap creates an Error wrapping an existing cause.
func Wrap(code Code, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// Is reports whether err carries the given Code anywhere in its chain.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// As extracts the *Error from err's chain, if any.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// Constructors for the taxonomy named in the error handling design.

func NotFound(resource, id string) *Error {
	return New(CodeNotFound, "not found").WithDetails("resource", resource).WithDetails("id", id)
}

func AlreadyExists(resource, id string) *Error {
	return New(CodeAlreadyExists, "already exists").WithDetails("resource", resource).WithDetails("id", id)
}

func CyclicReference(ecsID string) *Error {
	return New(CodeCyclicReference, "cyclic reference detected in entity tree").WithDetails("ecs_id", ecsID)
}

func DetachedChild(ecsID, rootEcsID string) *Error {
	return New(CodeDetachedChild, "node carries a stale root identity").
		WithDetails("ecs_id", ecsID).WithDetails("root_ecs_id", rootEcsID)
}

func AddressSyntax(raw string, err error) *Error {
	return Wrap(CodeAddressSyntax, "malformed address", err).WithDetails("address", raw)
}

func AddressField(raw, segment string) *Error {
	return New(CodeAddressField, "field, index, or key does not exist").
		WithDetails("address", raw).WithDetails("segment", segment)
}

func AddressNotFound(id string) *Error {
	return New(CodeAddressNotFound, "entity id not found").WithDetails("id", id)
}

func ArgumentType(param, expected, actual string) *Error {
	return New(CodeArgumentType, "argument type mismatch").
		WithDetails("param", param).WithDetails("expected", expected).WithDetails("actual", actual)
}

func UnknownFunction(name string) *Error {
	return New(CodeUnknownFunction, "no callable registered with this name").WithDetails("name", name)
}

func OutputShape(name, reason string) *Error {
	return New(CodeOutputShape, "return value does not match declared output shape").
		WithDetails("name", name).WithDetails("reason", reason)
}

func Classification(reason string) *Error {
	return New(CodeClassification, "semantic classifier could not reconcile output").WithDetails("reason", reason)
}

func ExecutionFailure(name string, err error) *Error {
	return Wrap(CodeExecutionFailure, "callable body returned an error", err).WithDetails("name", name)
}

func Timeout(operation string) *Error {
	return New(CodeTimeout, "operation exceeded its deadline").WithDetails("operation", operation)
}

func Cancelled(operation string) *Error {
	return New(CodeCancelled, "operation was cancelled").WithDetails("operation", operation)
}

func ResourceLimit(limit string, value, max int) *Error {
	return New(CodeResourceLimit, "configured resource limit exceeded").
		WithDetails("limit", limit).WithDetails("value", value).WithDetails("max", max)
}
