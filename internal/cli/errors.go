package cli

import (
	"errors"
	"fmt"

	"github.com/mark3labs/swaggerroutes/internal/routeerr"
	"github.com/mark3labs/swaggerroutes/internal/spec"
)

var ErrUsage = errors.New("cli usage error")

type usageError struct {
	msg   string
	cause error
}

func newUsageError(msg string) error {
	return usageError{msg: msg}
}

func (e usageError) Error() string {
	return e.msg
}

func (e usageError) Is(target error) bool {
	return target == ErrUsage
}

func (e usageError) Unwrap() error { return e.cause }

// friendlyError turns loader and build failures into usage errors with the
// location details a user needs. The original error stays reachable through
// errors.Is and errors.As.
func friendlyError(err error) error {
	if err == nil {
		return nil
	}
	var se *spec.SpecError
	if errors.As(err, &se) {
		msg := fmt.Sprintf("spec: %s", se.Message)
		if se.Location != "" {
			msg = fmt.Sprintf("%s\nLocation: %s", msg, se.Location)
		}
		if se.JSONPointer != "" {
			msg = fmt.Sprintf("%s\nPointer: %s", msg, se.JSONPointer)
		}
		return usageError{msg: msg, cause: err}
	}
	var re *routeerr.Error
	if errors.As(err, &re) {
		msg := fmt.Sprintf("build: %s", err)
		switch re.Code {
		case routeerr.ResolutionError:
			msg += "\nHint: check --handlers and --basedir, or pass --stub-handlers."
		case routeerr.ConfigurationError:
			msg += "\nHint: security schemes need implementations; pass --stub-security to inspect the table anyway."
		}
		return usageError{msg: msg, cause: err}
	}
	return err
}
