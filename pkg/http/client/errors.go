package httpclient

import (
	"fmt"

	"github.com/kinkando/family-task-service/model"
)

// SessionExpiredError is returned once the session cannot be recovered by refreshing. RedirectURL
// is where an interactive caller should send the user to log in again.
type SessionExpiredError struct {
	Code        model.ErrorCode
	RedirectURL string
	Cause       error
}

func (e *SessionExpiredError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("httpclient: session expired (%s): %v", e.Code, e.Cause)
	}
	return fmt.Sprintf("httpclient: session expired (%s)", e.Code)
}

func (e *SessionExpiredError) Unwrap() error {
	return e.Cause
}

// RefreshTokenError describes a failed call to the refresh endpoint. Code is the errorCode the
// server answered with, or UNKNOWN_ERROR when the call never produced one.
type RefreshTokenError struct {
	StatusCode int
	Code       model.ErrorCode
	Message    string
	Err        error
}

func (e *RefreshTokenError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("httpclient: refresh failed (%s): %v", e.Code, e.Err)
	}
	return fmt.Sprintf("httpclient: refresh failed with status %d (%s): %s", e.StatusCode, e.Code, e.Message)
}

func (e *RefreshTokenError) Unwrap() error {
	return e.Err
}
