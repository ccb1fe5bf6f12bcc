package user

import (
	"time"
)

// Role decides which routes a user may call.
type Role string

const (
	RoleMember Role = "member"
	RoleAdmin  Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleMember || r == RoleAdmin
}

// User is a library patron or librarian. Password holds the bcrypt hash.
type User struct {
	ID        uint
	Email     string
	Password  string
	Nickname  string
	Role      Role
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewUser creates a user; hashedPassword must already be a bcrypt hash.
func NewUser(email, hashedPassword, nickname string, role Role) *User {
	now := time.Now()
	return &User{
		Email:     email,
		Password:  hashedPassword,
		Nickname:  nickname,
		Role:      role,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// IsAdmin reports whether the user may run librarian operations.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
