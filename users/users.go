package users

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUserExists         = errors.New("email already in use")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInviteNotFound     = errors.New("invite not found")
)

type User struct {
	ID           string    `json:"id,omitempty"`         // Unique identifier for the user
	Email        string    `json:"email,omitempty"`      // User's email address, the login name
	FirstName    string    `json:"firstname,omitempty"`  // First name of the user
	LastName     string    `json:"lastname,omitempty"`   // Last name of the user
	PasswordHash string    `json:"-"`                    // bcrypt hash, empty until an invited user accepts - never serialize
	IsAnchor     bool      `json:"isAnchor"`             // Anchors are the community's founding members
	CreatedAt    time.Time `json:"created_at,omitempty"` // Date and time when the user registered
}

// HasPassword reports whether the user has completed sign up.
func (u *User) HasPassword() bool {
	return u.PasswordHash != ""
}

// FullName joins first and last name.
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// Invite lets an existing member bring a new member in. The invited user exists
// without a password until the invite is accepted.
type Invite struct {
	Slug      string    `json:"slug"`
	FromEmail string    `json:"from"`
	ToEmail   string    `json:"to"`
	CreatedAt time.Time `json:"created_at"`
}

// NormalizeEmail lower-cases and trims an email address for lookups.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
