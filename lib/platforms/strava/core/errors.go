package core

import (
	"errors"
	"fmt"
)

var (
	// ErrNotAuthenticated is returned when a page that requires a login
	// came back rendered for a logged-out visitor.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrAuthenticationRejected is returned by Login when the site sends the
	// credentials back to the login form.
	ErrAuthenticationRejected = errors.New("username or password incorrect")
	ErrRequestFailed          = errors.New("request failed")
)

// RequestFailedError describes a transport error or an unexpected status.
// StatusCode is 0 when no response was received.
type RequestFailedError struct {
	Method     string
	Url        string
	StatusCode int
	Err        error
}

func (e *RequestFailedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s: %v", e.Method, e.Url, e.Err)
	}
	return fmt.Sprintf("%s %s: unexpected status %d", e.Method, e.Url, e.StatusCode)
}

func (e *RequestFailedError) Unwrap() error {
	return e.Err
}

func (e *RequestFailedError) Is(target error) bool {
	return target == ErrRequestFailed
}
