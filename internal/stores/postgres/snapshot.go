// Package postgres persists best-effort cart snapshots. Memory is the
// source of truth; the snapshot table is session-scoped convenience only,
// so writes carry no acknowledgment requirement and no retry.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrations embed.FS

type Conf struct {
	db *sql.DB
}

func NewConf(db *sql.DB) (Conf, error) {
	if db == nil {
		return Conf{}, fmt.Errorf("db is nil")
	}
	return Conf{db: db}, nil
}

// Migrate applies the schema migrations embedded in this package.
func Migrate(db *sql.DB) error {
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("setting goose dialect: %w", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	return nil
}

// SaveSnapshot upserts the serialized cart for a session.
func (c *Conf) SaveSnapshot(ctx context.Context, sessionID string, payload []byte) error {
	query := `
		INSERT INTO cart_snapshots (session_id, payload, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (session_id)
		DO UPDATE SET payload = EXCLUDED.payload, updated_at = NOW()
	`
	_, err := c.db.ExecContext(ctx, query, sessionID, payload)
	if err != nil {
		return fmt.Errorf("saving cart snapshot: %w", err)
	}
	return nil
}

// DeleteSnapshot removes the session's snapshot after checkout or clear.
func (c *Conf) DeleteSnapshot(ctx context.Context, sessionID string) error {
	query := `DELETE FROM cart_snapshots WHERE session_id = $1`
	_, err := c.db.ExecContext(ctx, query, sessionID)
	if err != nil {
		return fmt.Errorf("deleting cart snapshot: %w", err)
	}
	return nil
}
