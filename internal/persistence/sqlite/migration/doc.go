// Package migration provides versioned schema migrations for SQLite databases.
//
// Migrations are read from an fs.FS (normally an embed.FS compiled into the
// binary) and follow the naming convention {version}_{description}.sql, for
// example "001_create_reservations.sql". Each migration runs in its own
// transaction together with its schema_migrations record, so a failed
// migration leaves no trace. Applied migrations keep the SHA-256 checksum of
// their file; editing an applied file is reported as ErrChecksumMismatch.
//
// Example usage:
//
//	executor := migration.NewSQLiteExecutor(db)
//	manager := migration.NewManager(migrationsFS, "migrations", executor, logger)
//	if err := manager.RunMigrations(ctx); err != nil {
//		return err
//	}
package migration
