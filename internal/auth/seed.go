package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
)

// seedPasswordBytes is the number of random bytes in a generated admin password.
const seedPasswordBytes = 16

// SeedAdmin creates the first admin account when no users exist yet.
//
// When password is empty a random one is generated and logged once; it
// should be changed immediately. The returned string is the generated
// password, or empty when nothing was generated.
func SeedAdmin(ctx context.Context, users UserRepository, username, password string, logger *slog.Logger) (string, error) {
	count, err := users.Count(ctx)
	if err != nil {
		return "", fmt.Errorf("checking user count: %w", err)
	}
	if count > 0 {
		logger.Info("users exist, skipping admin seed")
		return "", nil
	}

	generated := ""
	if password == "" {
		buf := make([]byte, seedPasswordBytes)
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("generating seed password: %w", err)
		}
		generated = hex.EncodeToString(buf)
		password = generated
	}

	hash, err := HashPassword(password)
	if err != nil {
		return "", fmt.Errorf("hashing seed password: %w", err)
	}

	admin := &User{Username: username, Role: RoleAdmin, PasswordHash: hash}
	if err := users.Create(ctx, admin); err != nil {
		return "", fmt.Errorf("creating seed admin: %w", err)
	}

	if generated != "" {
		logger.Warn("seed admin account created",
			"username", username,
			"password", generated,
			"action_required", "change this password immediately",
		)
	} else {
		logger.Info("seed admin account created", "username", username)
	}
	return generated, nil
}
