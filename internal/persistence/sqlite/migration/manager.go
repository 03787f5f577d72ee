package migration

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"time"
)

// Manager applies the migrations of an embedded directory in version order.
type Manager struct {
	fsys     fs.FS
	dir      string
	executor Executor
	logger   *slog.Logger
}

// NewManager creates a Manager that reads migrations from dir within fsys.
func NewManager(fsys fs.FS, dir string, executor Executor, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		fsys:     fsys,
		dir:      dir,
		executor: executor,
		logger:   logger.With("component", "migration"),
	}
}

// RunMigrations executes all pending migrations in sequential order.
func (m *Manager) RunMigrations(ctx context.Context) error {
	started := time.Now()

	status, err := m.Status(ctx)
	if err != nil {
		m.logger.ErrorContext(ctx, "failed to determine migration status", "error", err)
		return err
	}

	if len(status.Pending) == 0 {
		m.logger.InfoContext(ctx, "database schema up to date", "version", status.CurrentVersion)
		return nil
	}

	m.logger.InfoContext(ctx, "applying migrations",
		"current_version", status.CurrentVersion,
		"pending", len(status.Pending),
	)

	for i, migration := range status.Pending {
		migrationStarted := time.Now()
		if err := m.executor.ExecuteMigration(ctx, migration); err != nil {
			m.logger.ErrorContext(ctx, "migration failed",
				"version", migration.Version,
				"file", migration.FilePath,
				"error", err,
			)
			return NewMigrationError(migration.Version, migration.FilePath, "execute migration",
				fmt.Errorf("%w: %w", ErrMigrationFailed, err))
		}
		m.logger.InfoContext(ctx, "migration applied",
			"version", migration.Version,
			"description", migration.Description,
			"position", i+1,
			"duration_ms", time.Since(migrationStarted).Milliseconds(),
		)
	}

	m.logger.InfoContext(ctx, "migrations completed",
		"count", len(status.Pending),
		"duration_ms", time.Since(started).Milliseconds(),
	)
	return nil
}

// Status compares the embedded migrations with the applied versions. Applied
// migrations whose file is missing or whose checksum changed are reported as errors.
func (m *Manager) Status(ctx context.Context) (Status, error) {
	if err := m.executor.InitializeVersionTable(ctx); err != nil {
		return Status{}, fmt.Errorf("failed to initialize version table: %w", err)
	}

	available, err := ScanMigrations(m.fsys, m.dir)
	if err != nil {
		return Status{}, fmt.Errorf("failed to scan migrations: %w", err)
	}
	if err := validateSequence(available); err != nil {
		return Status{}, err
	}

	applied, err := m.executor.GetAppliedVersions(ctx)
	if err != nil {
		return Status{}, fmt.Errorf("failed to get applied versions: %w", err)
	}

	byVersion := make(map[int]Migration, len(available))
	for _, migration := range available {
		byVersion[versionNumber(migration.Version)] = migration
	}

	status := Status{Applied: applied}
	appliedSet := make(map[int]struct{}, len(applied))
	for _, record := range applied {
		version := versionNumber(record.Version)
		migration, ok := byVersion[version]
		if !ok {
			return Status{}, fmt.Errorf("%w: applied migration %s has no file", ErrVersionConflict, record.Version)
		}
		if record.Checksum != "" && record.Checksum != migration.Checksum {
			return Status{}, NewMigrationError(record.Version, migration.FilePath, "verify checksum", ErrChecksumMismatch)
		}
		appliedSet[version] = struct{}{}
		status.CurrentVersion = record.Version
	}

	for _, migration := range available {
		if _, ok := appliedSet[versionNumber(migration.Version)]; !ok {
			status.Pending = append(status.Pending, migration)
		}
	}
	return status, nil
}

// validateSequence ensures there are no gaps in migration version numbers.
func validateSequence(migrations []Migration) error {
	for i := 1; i < len(migrations); i++ {
		prev := versionNumber(migrations[i-1].Version)
		if next := versionNumber(migrations[i].Version); next != prev+1 {
			return fmt.Errorf("%w: missing migration version %03d in sequence", ErrVersionConflict, prev+1)
		}
	}
	return nil
}
