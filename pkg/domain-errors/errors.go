// Package domainerrors provides coded errors for the pass registry.
//
// Services return these so transports can map failures to wire responses
// without string matching. Registry fault codes additionally carry the
// numeric wire values (100-105) that existing deployments depend on; those
// numbers are part of the external contract and must never be renumbered.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code identifies a class of failure.
type Code string

// Registry fault codes. These correspond 1:1 to the caller-recoverable
// outcomes of registry operations and map to stable numeric wire codes.
const (
	// CodeUnauthorizedAccess: caller is not the registry admin on an
	// admin-only operation.
	CodeUnauthorizedAccess Code = "unauthorized-access"
	// CodeUnauthorizedHolder: caller is not the required holder/recipient
	// on a holder-scoped operation.
	CodeUnauthorizedHolder Code = "unauthorized-holder"
	// CodeInvalidPassData: metadata empty/oversized or bulk batch too large.
	CodeInvalidPassData Code = "invalid-pass-data"
	// CodePassNotAvailable: referenced pass has no current owner or does
	// not exist.
	CodePassNotAvailable Code = "pass-not-available"
	// CodeRevocationFailed: restore attempted on a pass that is not revoked.
	CodeRevocationFailed Code = "revocation-failed"
	// CodePreviouslyRevoked: mutation attempted on an already revoked pass.
	CodePreviouslyRevoked Code = "previously-revoked"
)

// Transport-level codes. These never carry a numeric wire code.
const (
	CodeBadRequest   Code = "bad-request"
	CodeUnauthorized Code = "unauthorized"
	CodeNotFound     Code = "not-found"
	CodeTimeout      Code = "timeout"
	CodeInternal     Code = "internal"
)

// wireCodes maps registry fault codes to their numeric wire values.
var wireCodes = map[Code]int{
	CodeUnauthorizedAccess: 100,
	CodeUnauthorizedHolder: 101,
	CodeInvalidPassData:    102,
	CodePassNotAvailable:   103,
	CodeRevocationFailed:   104,
	CodePreviouslyRevoked:  105,
}

// Wire returns the numeric wire code for registry faults. The second return
// is false for transport-level codes, which have no wire representation.
func (c Code) Wire() (int, bool) {
	n, ok := wireCodes[c]
	return n, ok
}

// HTTPStatus maps a code to the HTTP status used by the transport layer.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeUnauthorizedAccess, CodeUnauthorizedHolder:
		return http.StatusForbidden
	case CodeInvalidPassData, CodeBadRequest:
		return http.StatusBadRequest
	case CodePassNotAvailable, CodeNotFound:
		return http.StatusNotFound
	case CodeRevocationFailed, CodePreviouslyRevoked:
		return http.StatusConflict
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// Error is a coded error with an optional wrapped cause.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// New creates a coded error without a cause.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a code and message to an underlying error, preserving the
// cause for errors.Is/errors.As chains.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, cause: err}
}

// HasCode reports whether any error in the chain carries the given code.
func HasCode(err error, code Code) bool {
	var coded *Error
	if !errors.As(err, &coded) {
		return false
	}
	return coded.Code == code
}

// CodeOf returns the code of the outermost coded error in the chain, or
// CodeInternal when the error carries no code.
func CodeOf(err error) Code {
	var coded *Error
	if errors.As(err, &coded) {
		return coded.Code
	}
	return CodeInternal
}
