// Package draft implements the draft-editing synchronization core: the
// remote draft store contracts, the authorization broker, the edit session
// state machine, and the synchronizer that tracks field-level edits so they
// can be individually undone.
package draft

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a draft operation failure.
type Kind int

const (
	KindUnknown Kind = iota
	// KindConnection means the service could not be reached at all.
	KindConnection
	// KindAuth means the credential was rejected (expired or invalid).
	KindAuth
	// KindNotFound means the server tracks no draft or permission record
	// for the resource. For a draft fetch this is an expected outcome,
	// not a fault.
	KindNotFound
	// KindSystem covers unexpected statuses and malformed responses.
	KindSystem
	// KindUserInput means the caller supplied invalid arguments.
	KindUserInput
)

func (k Kind) String() string {
	switch k {
	case KindConnection:
		return "connection"
	case KindAuth:
		return "auth"
	case KindNotFound:
		return "not found"
	case KindSystem:
		return "system"
	case KindUserInput:
		return "user input"
	default:
		return "unknown"
	}
}

// Error is a classified draft-service failure. Propagation policy keys off
// Kind alone; Op and Status carry diagnostic detail.
type Error struct {
	Kind    Kind
	Op      string
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Status != 0 {
		return fmt.Sprintf("%s: %s error (status %d): %s", e.Op, e.Kind, e.Status, msg)
	}
	return fmt.Sprintf("%s: %s error: %s", e.Op, e.Kind, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so callers can test
// errors.Is(err, &Error{Kind: KindNotFound}).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf extracts the classification of err, or KindUnknown for errors that
// did not come from this package.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindUnknown
}

// IsNotFound reports whether err is a classified not-found failure.
func IsNotFound(err error) bool {
	return KindOf(err) == KindNotFound
}

// errNoStore guards edit operations invoked before a store is bound.
var errNoStore = errors.New("no draft store bound")

// ErrLoginRedirect is returned when an authorization attempt handed control
// to the authentication service. The pending authorization never resolves;
// the session resumes from the URL marker after the round trip.
var ErrLoginRedirect = errors.New("redirected to login")

func connectionError(op string, err error) *Error {
	return &Error{Kind: KindConnection, Op: op, Err: err}
}

func statusError(op string, status int) *Error {
	kind := KindSystem
	switch status {
	case http.StatusUnauthorized:
		kind = KindAuth
	case http.StatusNotFound:
		kind = KindNotFound
	}
	return &Error{Kind: kind, Op: op, Status: status}
}

func systemError(op string, err error) *Error {
	return &Error{Kind: KindSystem, Op: op, Err: err}
}

func userInputError(op, msg string) *Error {
	return &Error{Kind: KindUserInput, Op: op, Message: msg}
}
