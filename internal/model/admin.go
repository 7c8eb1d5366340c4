package model

import "time"

// AdminUserID identifies an administrator account
type AdminUserID string

// AdminRole is the permission level of an admin account
type AdminRole string

const (
	RoleAdmin AdminRole = "admin"
	RoleBot   AdminRole = "bot"
)

// AdminUser is an administrator account
type AdminUser struct {
	ID           AdminUserID
	Username     string // login username (immutable)
	PasswordHash string // bcrypt hash
	Role         AdminRole
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// AdminSession is an authenticated admin session. ID is the opaque token.
type AdminSession struct {
	ID        string
	UserID    AdminUserID
	Username  string
	Role      AdminRole
	CreatedAt time.Time
	ExpiresAt time.Time
}

// ValidAt reports whether the session has not expired at t
func (s *AdminSession) ValidAt(t time.Time) bool {
	return s.ExpiresAt.After(t)
}
