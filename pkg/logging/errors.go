// forge/pkg/logging/errors.go

package logging

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"
)

type ErrorType string

const (
	ErrorTypeParse  ErrorType = "PARSE"
	ErrorTypeMerge  ErrorType = "MERGE"
	ErrorTypeStore  ErrorType = "STORE"
	ErrorTypeConfig ErrorType = "CONFIG"
	ErrorTypeScript ErrorType = "SCRIPT"
)

type ForgeError struct {
	Type    ErrorType
	Message string
	Err     error
	Fields  map[string]interface{}
}

func (e *ForgeError) Error() string {
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *ForgeError) Unwrap() error {
	return e.Err
}

func NewError(errType ErrorType, message string, err error, fields map[string]interface{}) *ForgeError {
	return &ForgeError{
		Type:    errType,
		Message: message,
		Err:     err,
		Fields:  fields,
	}
}

// IsType reports whether err is, or wraps, a ForgeError of the given type.
func IsType(err error, errType ErrorType) bool {
	var forgeErr *ForgeError
	if errors.As(err, &forgeErr) {
		return forgeErr.Type == errType
	}
	return false
}

func LogError(logger zerolog.Logger, err error) {
	var forgeErr *ForgeError
	if !errors.As(err, &forgeErr) {
		logger.Error().Err(err).Msg(err.Error())
		return
	}

	event := logger.Error().Err(forgeErr.Err).
		Str("error_type", string(forgeErr.Type)).
		Str("message", forgeErr.Message)

	for k, v := range forgeErr.Fields {
		event = event.Interface(k, v)
	}

	event.Msg(forgeErr.Message)
}
