// Package database owns the GeoControl SQLite connection and its schema
// migrations.
//
// The database holds users, the network/gateway/sensor hierarchy and the
// measurement series. Foreign keys are enforced on every connection so that
// deleting a network removes its gateways, sensors and measurements.
//
// Usage:
//
//	db, err := database.Open(database.Config{Path: cfg.Database.Path, WALMode: true, BusyTimeout: 5})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
//
// Migration files live in the top-level migrations package, which registers
// them through MigrationsFS. Each version ships an .up.sql and a .down.sql.
package database
