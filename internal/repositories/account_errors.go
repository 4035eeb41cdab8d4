package repositories

import "fmt"

// AccountErrorCode enumerates failure reasons for account operations.
type AccountErrorCode string

const (
	// AccountErrorUnknown represents an unspecified failure.
	AccountErrorUnknown AccountErrorCode = "account_unknown"
	// AccountErrorInvalidInput indicates the caller supplied invalid arguments.
	AccountErrorInvalidInput AccountErrorCode = "account_invalid_input"
)

// AccountError wraps account-specific failures with machine readable codes.
type AccountError struct {
	Op      string
	Code    AccountErrorCode
	Message string
	Err     error
}

// Error implements the error interface.
func (e *AccountError) Error() string {
	if e == nil {
		return ""
	}
	if e.Op != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	return e.Message
}

// Unwrap exposes the underlying error, if any.
func (e *AccountError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewAccountError constructs a typed account error.
func NewAccountError(code AccountErrorCode, message string, err error) *AccountError {
	if message == "" {
		message = string(code)
	}
	return &AccountError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// InsufficientCreditsError reports a deduction that the balance cannot cover.
// Required and Available carry the exact numbers for the caller-facing message.
type InsufficientCreditsError struct {
	Required  int
	Available int
}

// Error implements the error interface.
func (e *InsufficientCreditsError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("insufficient credits: need %d, have %d", e.Required, e.Available)
}
