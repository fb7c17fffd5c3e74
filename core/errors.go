package core

import "github.com/pkg/errors"

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string `json:"field"`
	Error string `json:"error"`
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

func (err ValidationError) Unwrap() error { return err.Err }

// FieldMap maps every field to its first error message.
func (err ValidationError) FieldMap() map[string]string {
	fldErrs := make(map[string]string, len(err.Fields))
	for _, fErr := range err.Fields {
		if _, ok := fldErrs[fErr.Field]; !ok {
			fldErrs[fErr.Field] = fErr.Error
		}
	}
	return fldErrs
}

// HasField reports whether `field` failed validation.
func (err ValidationError) HasField(field string) bool {
	for _, fErr := range err.Fields {
		if fErr.Field == field {
			return true
		}
	}
	return false
}

// AsValidationError unwraps `err` into a *ValidationError if possible.
func AsValidationError(err error) (*ValidationError, bool) {
	vErr, ok := errors.Cause(err).(*ValidationError)
	return vErr, ok
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
