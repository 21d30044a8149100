package ir

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes registry failures.
type ErrorCode string

const (
	// CodeAlreadyRegistered indicates the product id is taken. Permanent.
	CodeAlreadyRegistered ErrorCode = "ALREADY_REGISTERED"

	// CodeNotFound indicates the product id was never registered.
	CodeNotFound ErrorCode = "NOT_FOUND"

	// CodeUnauthorized indicates the caller is not the product's owner.
	CodeUnauthorized ErrorCode = "UNAUTHORIZED"

	// CodeInvalidArgument indicates structurally invalid input.
	CodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"
)

// RegistryError is a deterministic domain failure. The registry state is
// unchanged whenever one is returned.
type RegistryError struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// ProductID identifies the affected product, when known.
	ProductID ProductID

	// Caller is the identity that issued the rejected request.
	Caller Identity
}

// Sentinels for errors.Is. Only the code is compared.
var (
	ErrAlreadyRegistered = &RegistryError{Code: CodeAlreadyRegistered}
	ErrNotFound          = &RegistryError{Code: CodeNotFound}
	ErrUnauthorized      = &RegistryError{Code: CodeUnauthorized}
	ErrInvalidArgument   = &RegistryError{Code: CodeInvalidArgument}
)

// Error implements the error interface.
func (e *RegistryError) Error() string {
	if e.Message == "" {
		return string(e.Code)
	}
	if e.ProductID != 0 {
		return fmt.Sprintf("%s: %s (product=%d)", e.Code, e.Message, e.ProductID)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is matches any RegistryError carrying the same code.
func (e *RegistryError) Is(target error) bool {
	t, ok := target.(*RegistryError)
	return ok && t.Code == e.Code
}

// CodeOf returns the code of a RegistryError in err's chain, or "" if none.
func CodeOf(err error) ErrorCode {
	var re *RegistryError
	if errors.As(err, &re) {
		return re.Code
	}
	return ""
}

// IsRegistryError reports whether err is a domain failure rather than an
// infrastructure error.
func IsRegistryError(err error) bool {
	return CodeOf(err) != ""
}

// NewAlreadyRegisteredError reports a duplicate registration.
func NewAlreadyRegisteredError(id ProductID, caller Identity) *RegistryError {
	return &RegistryError{
		Code:      CodeAlreadyRegistered,
		Message:   "product already registered",
		ProductID: id,
		Caller:    caller,
	}
}

// NewNotFoundError reports a reference to an unregistered product.
func NewNotFoundError(id ProductID) *RegistryError {
	return &RegistryError{
		Code:      CodeNotFound,
		Message:   "product not found",
		ProductID: id,
	}
}

// NewUnauthorizedError reports a caller that is not the product's owner.
func NewUnauthorizedError(id ProductID, caller Identity) *RegistryError {
	return &RegistryError{
		Code:      CodeUnauthorized,
		Message:   fmt.Sprintf("caller %q is not the product owner", caller),
		ProductID: id,
		Caller:    caller,
	}
}

// NewInvalidArgumentError reports malformed input.
func NewInvalidArgumentError(id ProductID, format string, args ...any) *RegistryError {
	return &RegistryError{
		Code:      CodeInvalidArgument,
		Message:   fmt.Sprintf(format, args...),
		ProductID: id,
	}
}
