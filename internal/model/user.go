package model

import "time"

// Role names stored in users.role and embedded in access tokens.
const (
	RoleMember = "MEMBER"
	RoleAdmin  = "ADMIN"
)

// User represents an application user record as stored in the `users`
// table.  IDs are UUID strings rather than auto-increment integers so
// that the size of the user base is not guessable from an identifier.
//
// Fields:
//  ID           – primary key (char(36) UUID).
//  Name         – display name.
//  Email        – unique email address.
//  PasswordHash – bcrypt hashed password.
//  Role         – MEMBER or ADMIN.
//  IsActive     – whether the account is active.
//  CreatedAt    – timestamp of creation.
type User struct {
	ID           string    // users.id
	Name         string    // users.name
	Email        string    // users.email
	PasswordHash string    // users.password_hash
	Role         string    // users.role
	IsActive     bool      // users.is_active
	CreatedAt    time.Time // users.created_at
}

// IsAdmin reports whether the user carries the administrator role.
func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }
