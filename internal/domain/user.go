package domain

import "time"

// User is the stored identity a person logs in with.
type User struct {
	ID           int64
	Login        string
	PasswordHash string
	Name         *string
	Surname      *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Principal is the authenticated subject attached to a single request.
type Principal struct {
	Subject       string
	Authenticated bool
}

// PublicUser is the outbound projection of a User. It never carries the password hash
// and its free-text fields are sanitized before it is built.
type PublicUser struct {
	ID      int64
	Name    *string
	Surname *string
	Login   string
}
