package testfixtures

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/example/masjid-scheduler/internal/persistence"
	"github.com/example/masjid-scheduler/internal/persistence/sqlite"
	"github.com/example/masjid-scheduler/internal/persistence/sqlite/migration"
)

// SQLiteHarness provides repository access backed by a migrated temporary
// SQLite database.
type SQLiteHarness struct {
	Storage      *sqlite.Storage
	Reservations persistence.ReservationRepository
	Activities   persistence.ActivityRepository

	cleanup func()
}

// Close releases resources associated with the harness.
func (h *SQLiteHarness) Close() {
	if h != nil && h.cleanup != nil {
		h.cleanup()
		h.cleanup = nil
	}
}

// NewSQLiteHarness opens and migrates a database in a per-test temporary
// directory. Close is registered with tb.Cleanup.
func NewSQLiteHarness(tb testing.TB) *SQLiteHarness {
	tb.Helper()

	path := filepath.Join(tb.TempDir(), "masjid.db")
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	storage, err := sqlite.Open(ctx, migration.TempFileTestSQLiteConfig(path), logger)
	if err != nil {
		tb.Fatalf("failed to open storage: %v", err)
	}
	if err := storage.Migrate(ctx); err != nil {
		_ = storage.Close()
		tb.Fatalf("failed to migrate storage: %v", err)
	}

	harness := &SQLiteHarness{
		Storage:      storage,
		Reservations: storage.Reservations,
		Activities:   storage.Activities,
		cleanup: func() {
			_ = storage.Close()
		},
	}
	tb.Cleanup(harness.Close)
	return harness
}
