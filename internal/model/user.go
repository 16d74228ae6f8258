package model

import "time"

// Role names stored in the users.role column and embedded in JWT claims.
const (
	RoleCustomer  = "CUSTOMER"
	RoleOrganizer = "ORGANIZER"
	RoleAdmin     = "ADMIN"
)

// User represents an application user record as stored in the `users`
// table. The password is never stored in plain text; only its bcrypt
// hash. Handlers define separate response types with JSON tags, so none
// are declared here.
//
// Fields:
//  ID           - primary key identifier of the user.
//  Name         - display name.
//  Email        - unique email address.
//  PasswordHash - bcrypt hashed password.
//  Role         - role name (CUSTOMER, ORGANIZER or ADMIN).
//  CreatedAt    - timestamp of creation.
//  UpdatedAt    - timestamp of last update.
type User struct {
	ID           uint64    // users.id
	Name         string    // users.name
	Email        string    // users.email
	PasswordHash string    // users.password_hash
	Role         string    // users.role
	CreatedAt    time.Time // users.created_at
	UpdatedAt    time.Time // users.updated_at
}

// IsAdmin reports whether the user carries the ADMIN role.
func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }

// IsOrganizer reports whether the user carries the ORGANIZER role.
func (u *User) IsOrganizer() bool { return u.Role == RoleOrganizer }

// IsCustomer reports whether the user carries the CUSTOMER role.
func (u *User) IsCustomer() bool { return u.Role == RoleCustomer }
