// Package database provides SQLite connection management and schema
// migrations for forms-core persistence.
//
// The database stores sensors, sensor rules, zones, cameras, and field
// reports. SQLite runs in WAL mode with a single writer connection,
// which is sufficient for the write volume of a single-site deployment
// and keeps the repo layer free of cross-process locking concerns.
//
// # Connection
//
//	db, err := database.Open(database.Config{
//	    Path:        "./data/forms.db",
//	    WALMode:     true,
//	    BusyTimeout: 5000,
//	})
//
// # Migrations
//
// Migration files are embedded via the migrations package and applied
// on startup with db.Migrate(ctx). Each migration runs in its own
// transaction; a failed migration leaves earlier migrations committed
// and can be retried after the underlying issue is fixed.
//
// Filenames follow YYYYMMDD_HHMMSS_description.{up,down}.sql.
package database
