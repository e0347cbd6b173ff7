package auth

import (
	"context"
	"fmt"
)

// Authenticate looks up username and checks password against its stored
// hash. It returns ErrUserNotFound for an unknown account and
// ErrInvalidCredentials for a wrong password.
func Authenticate(ctx context.Context, users UserRepository, username, password string) (*User, error) {
	user, err := users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	ok, err := VerifyPassword(password, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("verifying password for %s: %w", username, err)
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}
