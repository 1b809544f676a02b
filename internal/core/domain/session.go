package domain

import (
	"fmt"
	"time"
)

type Role string

const (
	RoleAdmin     Role = "admin"
	RoleRequester Role = "user"
)

func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleAdmin, RoleRequester:
		return Role(s), nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

// SessionClaims identifies the actor for one session. It is created at login
// and discarded at logout or expiry.
type SessionClaims struct {
	Subject  string
	Role     Role
	IssuedAt time.Time
	Expiry   time.Time
}

func (c SessionClaims) IsAdmin() bool {
	return c.Role == RoleAdmin
}

type User struct {
	ID           int64  `json:"id"`
	Username     string `json:"username"`
	Email        string `json:"email"`
	Role         Role   `json:"role"`
	PasswordHash string `json:"-"`
}

type Registration struct {
	Username string `json:"username" validate:"required,min=3"`
	Password string `json:"password" validate:"required,min=6"`
	Email    string `json:"email" validate:"required,email"`
	Role     Role   `json:"role" validate:"required,oneof=admin user"`
}
