package migration

import (
	"errors"
	"testing"
	"testing/fstest"
)

func TestScanMigrations(t *testing.T) {
	t.Run("orders migrations numerically and reads descriptions", func(t *testing.T) {
		fsys := fstest.MapFS{
			"migrations/010_add_index.sql":       {Data: []byte("CREATE INDEX idx ON t(a);")},
			"migrations/002_create_t.sql":        {Data: []byte("-- Description: Create table t\nCREATE TABLE t (a TEXT);")},
			"migrations/001_init.sql":            {Data: []byte("CREATE TABLE s (a TEXT);")},
			"migrations/README.md":               {Data: []byte("ignored")},
			"migrations/nested/003_skipped.sql":  {Data: []byte("CREATE TABLE u (a TEXT);")},
		}

		got, err := ScanMigrations(fsys, "migrations")
		if err != nil {
			t.Fatalf("ScanMigrations returned error: %v", err)
		}
		if len(got) != 3 {
			t.Fatalf("expected 3 migrations, got %d", len(got))
		}
		if got[0].Version != "001" || got[1].Version != "002" || got[2].Version != "010" {
			t.Fatalf("unexpected order: %s, %s, %s", got[0].Version, got[1].Version, got[2].Version)
		}
		if got[0].Description != "init" {
			t.Fatalf("expected filename description, got %q", got[0].Description)
		}
		if got[1].Description != "Create table t" {
			t.Fatalf("expected header description, got %q", got[1].Description)
		}
		if len(got[0].Checksum) != 64 {
			t.Fatalf("expected sha256 checksum, got %q", got[0].Checksum)
		}
	})

	t.Run("rejects malformed file names", func(t *testing.T) {
		fsys := fstest.MapFS{"migrations/init.sql": {Data: []byte("CREATE TABLE t (a TEXT);")}}
		if _, err := ScanMigrations(fsys, "migrations"); !errors.Is(err, ErrInvalidMigrationFile) {
			t.Fatalf("expected ErrInvalidMigrationFile, got %v", err)
		}
	})

	t.Run("rejects comment-only files", func(t *testing.T) {
		fsys := fstest.MapFS{"migrations/001_empty.sql": {Data: []byte("-- nothing here\n")}}
		if _, err := ScanMigrations(fsys, "migrations"); !errors.Is(err, ErrInvalidMigrationFile) {
			t.Fatalf("expected ErrInvalidMigrationFile, got %v", err)
		}
	})

	t.Run("rejects duplicate versions", func(t *testing.T) {
		fsys := fstest.MapFS{
			"migrations/001_a.sql": {Data: []byte("CREATE TABLE a (x TEXT);")},
			"migrations/1_b.sql":   {Data: []byte("CREATE TABLE b (x TEXT);")},
		}
		if _, err := ScanMigrations(fsys, "migrations"); !errors.Is(err, ErrDuplicateVersion) {
			t.Fatalf("expected ErrDuplicateVersion, got %v", err)
		}
	})
}

func TestSplitStatements(t *testing.T) {
	got := splitStatements(`
		-- header
		CREATE TABLE a (x TEXT);

		-- trailing comment
		CREATE INDEX idx_a ON a(x);
	`)
	if len(got) != 2 {
		t.Fatalf("expected 2 statements, got %d: %q", len(got), got)
	}
}
