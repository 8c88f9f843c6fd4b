package sqlite

import (
	"fmt"

	"github.com/pressly/goose/v3"

	"github.com/example/vereinsverwaltung/internal/persistence/sqlite/migrations"
)

// Migrate applies all embedded goose migrations.
func (cp *ConnectionPool) Migrate() error {
	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}
	if err := goose.Up(cp.db, "."); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	return nil
}
