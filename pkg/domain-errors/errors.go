// Package domainerrors carries coded errors from services to transports.
//
// Services return *Error values; transports translate the Code into a status
// and surface Message and Fields to the caller. Store and infrastructure
// layers should return sentinel errors instead (see pkg/platform/sentinel)
// and let the service decide which code applies.
package domainerrors

import (
	"errors"
	"strings"
)

type Code string

const (
	CodeValidation            Code = "validation_error"
	CodeDocumentRejected      Code = "document_rejected"
	CodeNotFound              Code = "not_found"
	CodeIncompleteApplication Code = "incomplete_application"
	CodeInvalidState          Code = "invalid_state"
	CodeConflict              Code = "conflict"
	CodeBadRequest            Code = "bad_request"
	CodeUnauthorized          Code = "unauthorized"
	CodeTimeout               Code = "timeout"
	CodeInternal              Code = "internal_error"
)

// FieldError points at a single offending input.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type Error struct {
	Code    Code
	Message string
	Fields  []FieldError
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.cause
}

func New(code Code, msg string) error {
	return &Error{Code: code, Message: msg}
}

// Wrap attaches a code and message to an underlying error. A nil err still
// produces a coded error so callers can use Wrap unconditionally.
func Wrap(err error, code Code, msg string) error {
	return &Error{Code: code, Message: msg, cause: err}
}

// WithFields builds an error carrying per-field details. The message joins
// the field messages so logs stay readable without the structured form.
func WithFields(code Code, fields []FieldError) error {
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return &Error{
		Code:    code,
		Message: strings.Join(parts, "; "),
		Fields:  append([]FieldError(nil), fields...),
	}
}

// As returns the first *Error in the chain.
func As(err error) (*Error, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// HasCode reports whether any *Error in the chain carries code.
func HasCode(err error, code Code) bool {
	for err != nil {
		var de *Error
		if !errors.As(err, &de) {
			return false
		}
		if de.Code == code {
			return true
		}
		err = de.cause
	}
	return false
}

// Is is shorthand for HasCode.
func Is(err error, code Code) bool {
	return HasCode(err, code)
}

// FieldsOf returns the field details of the outermost *Error, if any.
func FieldsOf(err error) []FieldError {
	if de, ok := As(err); ok {
		return de.Fields
	}
	return nil
}
