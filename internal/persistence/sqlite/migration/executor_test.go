package migration

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := NewConnectionManager(TempFileTestSQLiteConfig(filepath.Join(t.TempDir(), "migration.db"))).Open(context.Background())
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSQLiteExecutor(t *testing.T) {
	ctx := context.Background()

	t.Run("version table creation is idempotent", func(t *testing.T) {
		executor := NewSQLiteExecutor(setupTestDB(t))
		if err := executor.InitializeVersionTable(ctx); err != nil {
			t.Fatalf("InitializeVersionTable failed: %v", err)
		}
		if err := executor.InitializeVersionTable(ctx); err != nil {
			t.Fatalf("InitializeVersionTable should be idempotent: %v", err)
		}
	})

	t.Run("executes and records a migration", func(t *testing.T) {
		db := setupTestDB(t)
		executor := NewSQLiteExecutor(db)
		if err := executor.InitializeVersionTable(ctx); err != nil {
			t.Fatalf("InitializeVersionTable failed: %v", err)
		}

		migration := Migration{
			Version:  "001",
			SQL:      "CREATE TABLE notes (id TEXT PRIMARY KEY); INSERT INTO notes (id) VALUES ('a');",
			FilePath: "migrations/001_notes.sql",
			Checksum: "abc",
		}
		if err := executor.ExecuteMigration(ctx, migration); err != nil {
			t.Fatalf("ExecuteMigration failed: %v", err)
		}

		var count int
		if err := db.QueryRow("SELECT COUNT(*) FROM notes").Scan(&count); err != nil || count != 1 {
			t.Fatalf("expected migrated row, got count=%d err=%v", count, err)
		}

		applied, err := executor.GetAppliedVersions(ctx)
		if err != nil {
			t.Fatalf("GetAppliedVersions failed: %v", err)
		}
		if len(applied) != 1 || applied[0].Version != "001" || applied[0].Checksum != "abc" {
			t.Fatalf("unexpected applied versions: %+v", applied)
		}
	})

	t.Run("failed statements leave no record", func(t *testing.T) {
		db := setupTestDB(t)
		executor := NewSQLiteExecutor(db)
		if err := executor.InitializeVersionTable(ctx); err != nil {
			t.Fatalf("InitializeVersionTable failed: %v", err)
		}

		migration := Migration{
			Version: "001",
			SQL:     "CREATE TABLE ok_table (id TEXT); INSERT INTO missing_table VALUES (1);",
		}
		err := executor.ExecuteMigration(ctx, migration)
		var dbErr *DatabaseError
		if !errors.As(err, &dbErr) {
			t.Fatalf("expected DatabaseError, got %v", err)
		}

		applied, err := executor.GetAppliedVersions(ctx)
		if err != nil {
			t.Fatalf("GetAppliedVersions failed: %v", err)
		}
		if len(applied) != 0 {
			t.Fatalf("expected no applied migrations, got %+v", applied)
		}
		var name string
		if err := db.QueryRow("SELECT name FROM sqlite_master WHERE name = 'ok_table'").Scan(&name); !errors.Is(err, sql.ErrNoRows) {
			t.Fatalf("expected rolled back table, got %q %v", name, err)
		}
	})

	t.Run("rejects empty migrations", func(t *testing.T) {
		executor := NewSQLiteExecutor(setupTestDB(t))
		err := executor.ExecuteMigration(ctx, Migration{Version: "001", SQL: "-- only a comment"})
		if !errors.Is(err, ErrInvalidMigrationFile) {
			t.Fatalf("expected ErrInvalidMigrationFile, got %v", err)
		}
	})
}
