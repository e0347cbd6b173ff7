// Package migrations carries the GeoControl SQL schema inside the binary.
//
// Importing it (usually for side effects) registers the files with the
// database package so db.Migrate can apply them.
package migrations

import (
	"embed"

	"github.com/nerrad567/geocontrol/internal/infrastructure/database"
)

//go:embed *.sql
var files embed.FS

func init() {
	database.MigrationsFS = files
	database.MigrationsDir = "."
}
