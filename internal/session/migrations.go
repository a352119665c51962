package session

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// runMigrations brings the session database schema up to date.
func runMigrations(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	schema, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("session: opening embedded schema: %w", err)
	}

	provider, err := goose.NewProvider(goose.DialectSQLite3, db, schema)
	if err != nil {
		return fmt.Errorf("session: preparing schema migration: %w", err)
	}

	applied, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("session: migrating schema: %w", err)
	}

	for _, r := range applied {
		logger.Debug("session schema migrated",
			slog.Int64("version", r.Source.Version),
			slog.Duration("took", r.Duration),
		)
	}

	return nil
}
