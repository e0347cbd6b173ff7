package auth

import (
	"errors"
	"regexp"
	"slices"
	"time"
)

// usernamePattern allows letters, digits, dots, hyphens and underscores.
var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9._-]{1,64}$`)

// IsValidUsername reports whether username is 1-64 characters of letters,
// digits, dots, hyphens or underscores.
func IsValidUsername(username string) bool {
	return usernamePattern.MatchString(username)
}

// Role is the authorisation tier of a user account.
type Role string

const (
	// RoleAdmin manages users and everything else.
	RoleAdmin Role = "admin"

	// RoleOperator manages networks, gateways and sensors and ingests
	// measurements.
	RoleOperator Role = "operator"

	// RoleViewer has read-only access.
	RoleViewer Role = "viewer"
)

// ValidRoles lists every role a user account may hold.
var ValidRoles = []Role{RoleAdmin, RoleOperator, RoleViewer}

// IsValidRole reports whether r is one of ValidRoles.
func IsValidRole(r Role) bool {
	return slices.Contains(ValidRoles, r)
}

// User is an account that can log in. The role is exposed as "type".
type User struct {
	Username     string    `json:"username"`
	Role         Role      `json:"type"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"-"`
}

// Sentinel errors for auth operations.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrUsernameExists     = errors.New("username already exists")
	ErrInvalidUsername    = errors.New("invalid username")
	ErrInvalidRole        = errors.New("invalid role")
	ErrTokenInvalid       = errors.New("invalid token")
	ErrForbidden          = errors.New("insufficient permissions")
)
