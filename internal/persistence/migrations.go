package persistence

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/tern/v2/migrate"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

const (
	versionTable = "public.schema_version"

	// migrationLockID is the advisory lock serialising migrations across replicas.
	migrationLockID             = 0x6167656e6379
	migrationLockReleaseTimeout = 5 * time.Second
)

// RunMigrations applies the embedded SQL migrations under an advisory lock.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool, logger *zap.Logger) error {
	if pool == nil {
		logger.Warn("no postgres pool available; skipping migrations")
		return nil
	}

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire migration connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "SELECT pg_advisory_lock($1)", migrationLockID); err != nil {
		return fmt.Errorf("acquire migration lock: %w", err)
	}
	defer func() {
		unlockCtx, cancel := context.WithTimeout(context.Background(), migrationLockReleaseTimeout)
		defer cancel()
		if _, err := conn.Exec(unlockCtx, "SELECT pg_advisory_unlock($1)", migrationLockID); err != nil {
			logger.Error("failed to release migration lock", zap.Error(err))
		}
	}()

	return migrateConn(ctx, conn.Conn(), logger)
}

func migrateConn(ctx context.Context, conn *pgx.Conn, logger *zap.Logger) error {
	migrationFS, err := fs.Sub(migrationFiles, "migrations")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}

	migrator, err := migrate.NewMigrator(ctx, conn, versionTable)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	migrator.OnStart = func(sequence int32, name, direction, _ string) {
		logger.Info("applying migration",
			zap.Int32("sequence", sequence),
			zap.String("file", name),
			zap.String("direction", direction))
	}

	if err := migrator.LoadMigrations(migrationFS); err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}

	if err := migrator.Migrate(ctx); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}

	version, err := migrator.GetCurrentVersion(ctx)
	if err == nil {
		logger.Info("migrations applied", zap.Int32("version", version), zap.Int("available", len(migrator.Migrations)))
	}
	return nil
}
