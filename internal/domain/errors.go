package domain

import "fmt"

// NotFoundError represents a missing resource.
type NotFoundError struct {
	Resource string
}

func (e NotFoundError) Error() string {
	if e.Resource == "" {
		return "not found"
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

// Is enables errors.Is matching on NotFoundError.
func (e NotFoundError) Is(target error) bool {
	_, ok := target.(NotFoundError)
	if ok {
		return true
	}
	_, ok = target.(*NotFoundError)
	return ok
}

// ErrNotFound is the sentinel error for missing resources.
var ErrNotFound = NotFoundError{}

// ValidationError represents invalid caller input, such as an empty patch.
type ValidationError struct {
	Reason string
}

func (e ValidationError) Error() string {
	if e.Reason == "" {
		return "invalid input"
	}
	return e.Reason
}

// Is enables errors.Is matching on ValidationError.
func (e ValidationError) Is(target error) bool {
	_, ok := target.(ValidationError)
	if ok {
		return true
	}
	_, ok = target.(*ValidationError)
	return ok
}

// ErrInvalidInput is the sentinel error for rejected caller input.
var ErrInvalidInput = ValidationError{}

// SessionClosedError represents an operation against a draft whose editing
// session has already been closed.
type SessionClosedError struct {
	ResourceID string
}

func (e SessionClosedError) Error() string {
	return fmt.Sprintf("editing session for %s is closed", e.ResourceID)
}

// Is enables errors.Is matching on SessionClosedError.
func (e SessionClosedError) Is(target error) bool {
	_, ok := target.(SessionClosedError)
	if ok {
		return true
	}
	_, ok = target.(*SessionClosedError)
	return ok
}

// ErrSessionClosed is the sentinel error for closed editing sessions.
var ErrSessionClosed = SessionClosedError{}
