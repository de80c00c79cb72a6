package profile

import (
	"context"
	"fmt"
	"slices"
)

type Role string

type contextKey string

const ProfileKey contextKey = "profile"

const (
	Parent Role = "parent"
	Child  Role = "child"
)

// Profile is the verified identity handed to downstream handlers.
type Profile struct {
	UserID string `json:"userID"`
	Email  string `json:"email"`
	Role   Role   `json:"role"`
}

func WithProfile(ctx context.Context, p Profile) context.Context {
	return context.WithValue(ctx, ProfileKey, p)
}

func UseProfile(ctx context.Context) (Profile, error) {
	profile, ok := ctx.Value(ProfileKey).(Profile)
	if !ok {
		return Profile{}, fmt.Errorf(`unable to retrieve profile from context`)
	}
	return profile, nil
}

// UseRoleProfile returns the profile only when its role is one of roles.
func UseRoleProfile(ctx context.Context, roles ...Role) (Profile, error) {
	profile, err := UseProfile(ctx)
	if err != nil {
		return Profile{}, err
	}

	if !slices.Contains(roles, profile.Role) {
		return Profile{}, fmt.Errorf(`role %q is not allowed`, profile.Role)
	}

	return profile, nil
}
