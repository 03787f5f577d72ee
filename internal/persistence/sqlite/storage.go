package sqlite

import (
	"context"
	"embed"
	"fmt"
	"log/slog"

	"github.com/example/masjid-scheduler/internal/persistence/sqlite/migration"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Storage bundles the SQLite connection pool with the repositories built on it.
type Storage struct {
	pool   *ConnectionPool
	logger *slog.Logger

	Reservations *ReservationRepository
	Activities   *ActivityRepository
}

// Open connects to the database described by config. Call Migrate before use.
func Open(ctx context.Context, config migration.SQLiteConfig, logger *slog.Logger) (*Storage, error) {
	if logger == nil {
		logger = slog.Default()
	}
	pool, err := NewConnectionPool(ctx, config)
	if err != nil {
		return nil, err
	}
	return &Storage{
		pool:         pool,
		logger:       logger,
		Reservations: NewReservationRepository(pool),
		Activities:   NewActivityRepository(pool),
	}, nil
}

// Migrate applies the embedded schema migrations.
func (s *Storage) Migrate(ctx context.Context) error {
	manager := migration.NewManager(migrationFiles, "migrations", migration.NewSQLiteExecutor(s.pool.DB()), s.logger)
	if err := manager.RunMigrations(ctx); err != nil {
		return fmt.Errorf("sqlite: migrate: %w", err)
	}
	return nil
}

// Ping verifies the database is reachable.
func (s *Storage) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the underlying connection pool.
func (s *Storage) Close() error {
	return s.pool.Close()
}
