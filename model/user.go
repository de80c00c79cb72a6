package model

import "github.com/kinkando/family-task-service/pkg/profile"

type User struct {
	UserID       string       `json:"userID"`
	Email        string       `json:"email"`
	DisplayName  *string      `json:"displayName,omitempty"`
	Role         profile.Role `json:"role"`
	PasswordHash string       `json:"-"`
}

type UserFilter struct {
	UserID string
	Email  string
}
