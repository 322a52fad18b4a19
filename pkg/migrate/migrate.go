// Package migrate owns the schema. Migrations are goose SQL files compiled
// into every binary, so a deployed service always carries the schema it was
// built against.
package migrate

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"
)

// SourceDir is where migrations are authored, relative to the repo root.
const SourceDir = "pkg/migrate/migrations"

//go:embed migrations/*.sql
var embedded embed.FS

// Migrations returns the compiled-in migration files.
func Migrations() fs.FS {
	sub, err := fs.Sub(embedded, "migrations")
	if err != nil {
		panic(err)
	}
	return sub
}

// Migrator applies the compiled-in migrations to one database.
type Migrator struct {
	provider *goose.Provider
}

// New builds a Migrator. dialect is a goose dialect name such as "postgres"
// or "sqlite3"; empty means postgres.
func New(db *sql.DB, dialect string) (*Migrator, error) {
	if db == nil {
		return nil, errors.New("database handle is required")
	}
	if dialect == "" {
		dialect = string(goose.DialectPostgres)
	}
	provider, err := goose.NewProvider(goose.Dialect(dialect), db, Migrations())
	if err != nil {
		return nil, fmt.Errorf("goose provider: %w", err)
	}
	return &Migrator{provider: provider}, nil
}

func (m *Migrator) Up(ctx context.Context) ([]*goose.MigrationResult, error) {
	return m.provider.Up(ctx)
}

// Down rolls back the most recent migration only.
func (m *Migrator) Down(ctx context.Context) (*goose.MigrationResult, error) {
	return m.provider.Down(ctx)
}

func (m *Migrator) Status(ctx context.Context) ([]*goose.MigrationStatus, error) {
	return m.provider.Status(ctx)
}

// To moves the schema to version, applying or rolling back as needed.
func (m *Migrator) To(ctx context.Context, version int64) ([]*goose.MigrationResult, error) {
	current, err := m.provider.GetDBVersion(ctx)
	if err != nil {
		return nil, fmt.Errorf("read schema version: %w", err)
	}
	switch {
	case version == current:
		return nil, nil
	case version > current:
		return m.provider.UpTo(ctx, version)
	default:
		return m.provider.DownTo(ctx, version)
	}
}
