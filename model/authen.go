package model

import "github.com/kinkando/family-task-service/pkg/profile"

// ErrorCode is the refresh failure taxonomy shared by server and client.
type ErrorCode string

const (
	ErrorCodeMissingToken ErrorCode = "MISSING_TOKEN"
	ErrorCodeInvalidToken ErrorCode = "INVALID_TOKEN"
	ErrorCodeExpiredToken ErrorCode = "EXPIRED_TOKEN"
	ErrorCodeUnknown      ErrorCode = "UNKNOWN_ERROR"
)

type JWT struct {
	AccessToken  string `json:"-"`
	RefreshToken string `json:"-"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type RefreshRequest struct {
	RefreshToken string
}

// RefreshResult is the outcome of a single refresh attempt. Profile is set on success.
type RefreshResult struct {
	Success     bool
	AccessToken string
	Profile     profile.Profile
	Error       string
	ErrorCode   ErrorCode
}

func RefreshFailure(code ErrorCode, message string) RefreshResult {
	return RefreshResult{Error: message, ErrorCode: code}
}

// SessionResponse is the JSON body of every session endpoint.
type SessionResponse struct {
	Success   bool      `json:"success"`
	Message   string    `json:"message"`
	ErrorCode ErrorCode `json:"errorCode,omitempty"`
}

type LoginResponse struct {
	SessionResponse
	Profile profile.Profile `json:"profile"`
}
