package domain

import (
	"slices"
	"time"
)

// Role names carried in the access token's roles claim.
const (
	RoleAdmin   = "ROLE_ADMIN"
	RoleTeacher = "ROLE_TEACHER"
)

type User struct {
	ID           string
	Username     string
	PasswordHash string // argon2 encoded
	Roles        []string
	CreatedAt    time.Time
}

// HasRole reports whether the user holds role.
func (u User) HasRole(role string) bool {
	return slices.Contains(u.Roles, role)
}
