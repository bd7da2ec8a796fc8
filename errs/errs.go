package errs

import (
	"errors"
	"fmt"
)

var (
	// ErrNotAuthenticated is returned by every store call made without a user in context.
	ErrNotAuthenticated = errors.New("user not authenticated")
	ErrNotFound         = errors.New("not found")
	// ErrSlotTaken signals that a slot for the same (date, mealType) already exists.
	ErrSlotTaken = errors.New("slot already exists for this date and meal")
	ErrConflict  = errors.New("already exists")
)

// ValidationError rejects malformed input before any side effect.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func Invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// FormatError reports a backup or import payload that failed structural checks.
type FormatError struct {
	Reason string
	Err    error
}

func (e *FormatError) Error() string {
	if e.Err != nil {
		return "invalid backup file format: " + e.Reason + ": " + e.Err.Error()
	}
	return "invalid backup file format: " + e.Reason
}

func (e *FormatError) Unwrap() error { return e.Err }

// ActionError names the user action that failed together with its cause.
type ActionError struct {
	Action string
	Err    error
}

func (e *ActionError) Error() string {
	return "Failed to " + e.Action + ": " + e.Err.Error()
}

func (e *ActionError) Unwrap() error { return e.Err }

// Action wraps err so it renders as "Failed to <action>: <cause>". Nil stays nil.
func Action(action string, err error) error {
	if err == nil {
		return nil
	}
	return &ActionError{Action: action, Err: err}
}

func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

func IsFormat(err error) bool {
	var f *FormatError
	return errors.As(err, &f)
}
