package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// NewDBConnection opens the pool and pings it before handing it out.
func NewDBConnection(ctx context.Context, connString string) (*sql.DB, error) {
	db, err := sql.Open("postgres", connString)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return db, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS leads (
	email                  TEXT PRIMARY KEY,
	name                   TEXT NOT NULL,
	phone                  TEXT NOT NULL DEFAULT '',
	status                 TEXT NOT NULL,
	created_at             TIMESTAMPTZ NOT NULL,
	last_transition_at     TIMESTAMPTZ NOT NULL,
	confirmation_sent_at   TIMESTAMPTZ,
	reminder1_sent_at      TIMESTAMPTZ,
	reminder2_sent_at      TIMESTAMPTZ,
	final_reminder_sent_at TIMESTAMPTZ
);
CREATE INDEX IF NOT EXISTS leads_status_idx ON leads (status);
`

// Migrate creates the leads table when missing. It is safe to run on every boot.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate leads: %w", err)
	}
	return nil
}
