package auth

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/nerrad567/geocontrol/internal/infrastructure/database"
	_ "github.com/nerrad567/geocontrol/migrations"
)

const testSecret = "test-secret-key-at-least-32-chars!"

// testRepo opens a migrated database in the test's temp directory.
func testRepo(t *testing.T) *SQLiteUserRepository {
	t.Helper()

	db, err := database.Open(database.Config{
		Path:        filepath.Join(t.TempDir(), "auth.db"),
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // Test cleanup

	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("migrating test db: %v", err)
	}
	return NewUserRepository(db.DB)
}

// seedTestUser creates a user with the given password.
func seedTestUser(t *testing.T, repo UserRepository, username, password string, role Role) *User {
	t.Helper()

	hash, err := HashPassword(password)
	if err != nil {
		t.Fatalf("hashing password: %v", err)
	}
	u := &User{Username: username, Role: role, PasswordHash: hash}
	if err := repo.Create(context.Background(), u); err != nil {
		t.Fatalf("creating user %s: %v", username, err)
	}
	return u
}
