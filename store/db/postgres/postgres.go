// Package postgres implements the store driver for PostgreSQL with pgvector.
package postgres

import (
	"context"
	"database/sql"
	"strconv"
	"strings"

	// Import the PostgreSQL driver.
	_ "github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/hrygo/ragdesk/internal/profile"
	"github.com/hrygo/ragdesk/store"
)

type DB struct {
	db      *sql.DB
	profile *profile.Profile
}

// NewDB opens a PostgreSQL database from the profile DSN.
func NewDB(profile *profile.Profile) (store.Driver, error) {
	if profile.DSN == "" {
		return nil, errors.New("dsn required")
	}

	db, err := sql.Open("postgres", profile.DSN)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open db with dsn: %s", profile.DSN)
	}

	return &DB{db: db, profile: profile}, nil
}

func (d *DB) GetDB() *sql.DB {
	return d.db
}

func (d *DB) Close() error {
	return d.db.Close()
}

// Migrate applies the schema. Statements are idempotent; pgvector must be
// installed on the server (CREATE EXTENSION requires superuser on most
// managed offerings, so failure there is reported instead of ignored).
func (d *DB) Migrate(ctx context.Context) error {
	for _, stmt := range migrateStatements {
		if _, err := d.db.ExecContext(ctx, stmt); err != nil {
			return errors.Wrapf(err, "failed to execute migration: %s", firstLine(stmt))
		}
	}
	return nil
}

func firstLine(stmt string) string {
	s := strings.TrimSpace(stmt)
	if i := strings.IndexByte(s, '\n'); i > 0 {
		return s[:i]
	}
	return s
}

var migrateStatements = []string{
	`CREATE EXTENSION IF NOT EXISTS vector`,
	`CREATE TABLE IF NOT EXISTS conversation (
		id SERIAL PRIMARY KEY,
		uid TEXT NOT NULL UNIQUE,
		creator_id INTEGER NOT NULL,
		title TEXT NOT NULL,
		title_source TEXT NOT NULL DEFAULT 'default',
		mode TEXT NOT NULL DEFAULT 'general',
		session_token TEXT NOT NULL,
		document_ids TEXT NOT NULL DEFAULT '[]',
		created_ts BIGINT NOT NULL,
		updated_ts BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_conversation_creator_updated ON conversation (creator_id, updated_ts DESC)`,
	`CREATE TABLE IF NOT EXISTS conversation_message (
		id BIGSERIAL PRIMARY KEY,
		conversation_id INTEGER NOT NULL REFERENCES conversation (id) ON DELETE CASCADE,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		sources TEXT NOT NULL DEFAULT '[]',
		metadata TEXT NOT NULL DEFAULT '{}',
		created_ts BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_conversation_message_conversation ON conversation_message (conversation_id, created_ts)`,
	`CREATE TABLE IF NOT EXISTS document (
		id SERIAL PRIMARY KEY,
		uid TEXT NOT NULL UNIQUE,
		creator_id INTEGER NOT NULL,
		title TEXT NOT NULL,
		content_type TEXT NOT NULL,
		file_size_bytes BIGINT NOT NULL DEFAULT 0,
		word_count INTEGER NOT NULL DEFAULT 0,
		summary TEXT,
		has_embedding BOOLEAN NOT NULL DEFAULT FALSE,
		created_ts BIGINT NOT NULL,
		updated_ts BIGINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS document_chunk (
		id BIGSERIAL PRIMARY KEY,
		document_id INTEGER NOT NULL REFERENCES document (id) ON DELETE CASCADE,
		chunk_index INTEGER NOT NULL,
		content TEXT NOT NULL,
		embedding vector(1024),
		created_ts BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_document_chunk_document ON document_chunk (document_id)`,
	`CREATE TABLE IF NOT EXISTS notification (
		id SERIAL PRIMARY KEY,
		uid TEXT NOT NULL UNIQUE,
		user_id INTEGER NOT NULL,
		kind TEXT NOT NULL,
		title TEXT NOT NULL,
		body TEXT NOT NULL DEFAULT '',
		read_ts BIGINT,
		created_ts BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_notification_user ON notification (user_id, created_ts DESC)`,
}

// placeholder returns the numbered parameter marker, e.g. $3.
func placeholder(n int) string {
	return "$" + strconv.Itoa(n)
}

// placeholders returns "$1, $2, ..., $n".
func placeholders(n int) string {
	list := make([]string, n)
	for i := range list {
		list[i] = placeholder(i + 1)
	}
	return strings.Join(list, ", ")
}
