package migration

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"testing/fstest"
	"time"
)

type mockExecutor struct {
	applied        []AppliedMigration
	executionError error
	initError      error
	executed       []string
}

func (m *mockExecutor) ExecuteMigration(ctx context.Context, migration Migration) error {
	if m.executionError != nil {
		return m.executionError
	}
	m.executed = append(m.executed, migration.Version)
	m.applied = append(m.applied, AppliedMigration{Version: migration.Version, AppliedAt: time.Now(), Checksum: migration.Checksum})
	return nil
}

func (m *mockExecutor) InitializeVersionTable(ctx context.Context) error {
	return m.initError
}

func (m *mockExecutor) GetAppliedVersions(ctx context.Context) ([]AppliedMigration, error) {
	return append([]AppliedMigration(nil), m.applied...), nil
}

func testFS() fstest.MapFS {
	return fstest.MapFS{
		"migrations/001_first.sql":  {Data: []byte("CREATE TABLE a (x TEXT);")},
		"migrations/002_second.sql": {Data: []byte("CREATE TABLE b (x TEXT);")},
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestManager_RunMigrations(t *testing.T) {
	ctx := context.Background()

	t.Run("applies pending migrations in order", func(t *testing.T) {
		executor := &mockExecutor{}
		manager := NewManager(testFS(), "migrations", executor, discardLogger())
		if err := manager.RunMigrations(ctx); err != nil {
			t.Fatalf("RunMigrations failed: %v", err)
		}
		if len(executor.executed) != 2 || executor.executed[0] != "001" || executor.executed[1] != "002" {
			t.Fatalf("unexpected execution order: %v", executor.executed)
		}

		if err := manager.RunMigrations(ctx); err != nil {
			t.Fatalf("second RunMigrations failed: %v", err)
		}
		if len(executor.executed) != 2 {
			t.Fatalf("expected no re-execution, got %v", executor.executed)
		}
	})

	t.Run("stops at the first failure", func(t *testing.T) {
		boom := errors.New("boom")
		executor := &mockExecutor{executionError: boom}
		err := NewManager(testFS(), "migrations", executor, discardLogger()).RunMigrations(ctx)
		if !errors.Is(err, ErrMigrationFailed) || !errors.Is(err, boom) {
			t.Fatalf("expected wrapped migration failure, got %v", err)
		}
	})

	t.Run("detects edited migrations", func(t *testing.T) {
		executor := &mockExecutor{applied: []AppliedMigration{{Version: "001", Checksum: "stale"}}}
		err := NewManager(testFS(), "migrations", executor, discardLogger()).RunMigrations(ctx)
		if !errors.Is(err, ErrChecksumMismatch) {
			t.Fatalf("expected ErrChecksumMismatch, got %v", err)
		}
	})

	t.Run("detects gaps in the sequence", func(t *testing.T) {
		fsys := testFS()
		fsys["migrations/004_fourth.sql"] = &fstest.MapFile{Data: []byte("CREATE TABLE d (x TEXT);")}
		err := NewManager(fsys, "migrations", &mockExecutor{}, discardLogger()).RunMigrations(ctx)
		if !errors.Is(err, ErrVersionConflict) {
			t.Fatalf("expected ErrVersionConflict, got %v", err)
		}
	})

	t.Run("reports status", func(t *testing.T) {
		executor := &mockExecutor{}
		manager := NewManager(testFS(), "migrations", executor, discardLogger())
		status, err := manager.Status(ctx)
		if err != nil {
			t.Fatalf("Status failed: %v", err)
		}
		if status.CurrentVersion != "" || len(status.Pending) != 2 {
			t.Fatalf("unexpected status: %+v", status)
		}
	})
}
