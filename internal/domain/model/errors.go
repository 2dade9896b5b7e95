package model

import (
	"errors"
	"fmt"
)

// ErrNotAuthorized is returned when no credential has been stored yet.
// Run the authorization flow (campnudge serve) before scanning.
var ErrNotAuthorized = errors.New("not authorized: complete the authorization flow first")

// AuthExchangeError is returned when an authorization code could not be
// exchanged for a credential. The user must re-authorize.
type AuthExchangeError struct {
	Err error
}

func (e *AuthExchangeError) Error() string {
	return fmt.Sprintf("authorization code exchange failed: %v", e.Err)
}

func (e *AuthExchangeError) Unwrap() error { return e.Err }

// AuthRefreshError is returned when the access token could not be refreshed.
// The previous credential is kept.
type AuthRefreshError struct {
	Err error
}

func (e *AuthRefreshError) Error() string {
	return fmt.Sprintf("access token refresh failed: %v", e.Err)
}

func (e *AuthRefreshError) Unwrap() error { return e.Err }

// TransientFetchError is returned when a read from the remote API failed.
// Callers log it and treat the result as empty.
type TransientFetchError struct {
	Op  string
	Err error
}

func (e *TransientFetchError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransientFetchError) Unwrap() error { return e.Err }

// NotificationPostError is returned when a reminder could not be posted to a project.
type NotificationPostError struct {
	ProjectID int64
	Err       error
}

func (e *NotificationPostError) Error() string {
	return fmt.Sprintf("post notification to project %d: %v", e.ProjectID, e.Err)
}

func (e *NotificationPostError) Unwrap() error { return e.Err }

// IsAuthRefreshError reports whether err (or any error in its chain) is an AuthRefreshError.
func IsAuthRefreshError(err error) bool {
	var refreshErr *AuthRefreshError
	return errors.As(err, &refreshErr)
}
