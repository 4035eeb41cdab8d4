package services

import (
	"errors"
	"fmt"

	"github.com/brandforge/api/internal/domain"
)

// ErrNoImageReturned indicates the model produced no inline image part.
var ErrNoImageReturned = errors.New("generation: model returned no image")

// ErrNoTextReturned indicates the model produced no text parts.
var ErrNoTextReturned = errors.New("generation: model returned no text")

// ValidationError reports a request that fails type-specific input requirements.
// Debug carries an echo of the received type and payload for the 400 response.
type ValidationError struct {
	Message string
	Debug   map[string]any
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

// InsufficientCreditsError reports that the account balance cannot cover the
// request cost. Required and Available feed the caller-facing 429 message.
type InsufficientCreditsError struct {
	Required  int
	Available int
}

// Error implements the error interface.
func (e *InsufficientCreditsError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("credits: need %d, have %d", e.Required, e.Available)
}

// UnknownTypeError reports a request type with no matching pipeline.
type UnknownTypeError struct {
	Type domain.ContentType
}

// Error implements the error interface.
func (e *UnknownTypeError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("generation: invalid prompt type %q", e.Type)
}
