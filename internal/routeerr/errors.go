// Package routeerr defines the error taxonomy shared by the route builder and
// its resolvers.
//
// Every build-time failure is fatal to the whole build. Callers distinguish
// categories with errors.Is against the sentinels below, or errors.As to an
// *Error for the offending path and method:
//
//	table, err := routes.Build(ctx, src)
//	if errors.Is(err, routeerr.ErrResolution) && errors.Is(err, fs.ErrNotExist) {
//	    // a handler directory or module is missing
//	}
package routeerr

import (
	"errors"
	"strings"
)

// Code categorizes build and request-time errors.
type Code string

const (
	ConfigurationError Code = "ConfigurationError"
	ResolutionError    Code = "ResolutionError"
	ValidationError    Code = "ValidationError"
	MediaTypeError     Code = "MediaTypeError"
)

// Sentinels matched by (*Error).Is through the error's Code.
var (
	ErrConfiguration = errors.New("configuration error")
	ErrResolution    = errors.New("resolution error")
	ErrValidation    = errors.New("validation error")
	ErrMediaType     = errors.New("unsupported media type")
)

// Error is a structured error with the route it concerns, when known.
type Error struct {
	Code    Code
	Message string
	Path    string // path template, e.g. "/pets/{id}"
	Method  string // lowercase HTTP method
	Cause   error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)
	if e.Method != "" || e.Path != "" {
		b.WriteString(" (")
		b.WriteString(strings.TrimSpace(e.Method + " " + e.Path))
		b.WriteString(")")
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Cause }

// Is reports whether target is the sentinel for e.Code.
func (e *Error) Is(target error) bool {
	switch e.Code {
	case ConfigurationError:
		return target == ErrConfiguration
	case ResolutionError:
		return target == ErrResolution
	case ValidationError:
		return target == ErrValidation
	case MediaTypeError:
		return target == ErrMediaType
	}
	return false
}

// Configuration returns a ConfigurationError.
func Configuration(msg string, cause error) *Error {
	return &Error{Code: ConfigurationError, Message: msg, Cause: cause}
}

// Resolution returns a ResolutionError.
func Resolution(msg string, cause error) *Error {
	return &Error{Code: ResolutionError, Message: msg, Cause: cause}
}

// Validation returns a ValidationError.
func Validation(msg string, cause error) *Error {
	return &Error{Code: ValidationError, Message: msg, Cause: cause}
}

// At fills in the route coordinates of err when it is an *Error that does not
// carry them yet. Other errors are returned unchanged.
func At(err error, path, method string) error {
	var re *Error
	if !errors.As(err, &re) {
		return err
	}
	if re.Path == "" {
		re.Path = path
	}
	if re.Method == "" {
		re.Method = method
	}
	return err
}

// CodeOf returns the Code of the first *Error in err's chain, or "" if none.
func CodeOf(err error) Code {
	var re *Error
	if errors.As(err, &re) {
		return re.Code
	}
	return ""
}
