package profile

import (
	"errors"

	"github.com/golang-jwt/jwt"
)

type TokenType string

const (
	Access  TokenType = "access"
	Refresh TokenType = "refresh"

	ApplicationPrefix         = "FAMILY_TASK"
	RevokedRefreshTokenPrefix = "REVOKED_REFRESH_TOKEN"
)

// Claims is the payload signed into both credential classes.
type Claims struct {
	SubjectID string    `json:"sub" mapstructure:"sub"`
	Role      Role      `json:"role" mapstructure:"role"`
	Email     string    `json:"email" mapstructure:"email"`
	Type      TokenType `json:"type" mapstructure:"type"`
	IssuedAt  int64     `json:"iat" mapstructure:"iat"`
	ExpiresAt int64     `json:"exp" mapstructure:"exp"`
}

// Valid satisfies jwt.Claims.
func (c Claims) Valid() error {
	if c.SubjectID == "" {
		return errors.New("subject is required")
	}
	return jwt.StandardClaims{ExpiresAt: c.ExpiresAt, IssuedAt: c.IssuedAt}.Valid()
}

func (c Claims) Profile() Profile {
	return Profile{UserID: c.SubjectID, Email: c.Email, Role: c.Role}
}
