package routeerr

import (
	"errors"
	"fmt"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorIs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		code     Code
		sentinel error
	}{
		{ConfigurationError, ErrConfiguration},
		{ResolutionError, ErrResolution},
		{ValidationError, ErrValidation},
		{MediaTypeError, ErrMediaType},
	}
	for _, tt := range tests {
		err := fmt.Errorf("wrapped: %w", &Error{Code: tt.code, Message: "boom"})
		assert.ErrorIs(t, err, tt.sentinel, string(tt.code))
		for _, other := range tests {
			if other.code != tt.code {
				assert.NotErrorIs(t, err, other.sentinel)
			}
		}
	}
}

func TestErrorUnwrapKeepsCause(t *testing.T) {
	t.Parallel()

	cause := &fs.PathError{Op: "stat", Path: "pets", Err: fs.ErrNotExist}
	err := Resolution("handler not found", cause)

	assert.ErrorIs(t, err, fs.ErrNotExist)
	assert.ErrorIs(t, err, ErrResolution)
	assert.Equal(t, ResolutionError, CodeOf(err))
}

func TestErrorMessage(t *testing.T) {
	t.Parallel()

	err := At(Configuration("unknown security scheme \"api_key\"", nil), "/pets", "get")
	assert.Equal(t, `unknown security scheme "api_key" (get /pets)`, err.Error())

	err = At(err, "/other", "post")
	var re *Error
	assert.True(t, errors.As(err, &re))
	assert.Equal(t, "/pets", re.Path, "coordinates are set once")
}

func TestCodeOfPlainError(t *testing.T) {
	t.Parallel()
	assert.Equal(t, Code(""), CodeOf(errors.New("plain")))
}
