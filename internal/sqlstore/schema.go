// Package sqlstore is the SQLite-backed semantic store: object ids, per-type
// property tables, fixed property tables and the page registry.
package sqlstore

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS smw_object_ids (
	smw_id        INTEGER PRIMARY KEY AUTOINCREMENT,
	smw_title     TEXT    NOT NULL,
	smw_namespace INTEGER NOT NULL,
	smw_iw        TEXT    NOT NULL DEFAULT '',
	smw_subobject TEXT    NOT NULL DEFAULT '',
	UNIQUE(smw_title, smw_namespace, smw_iw, smw_subobject)
);

CREATE TABLE IF NOT EXISTS pages (
	path       TEXT PRIMARY KEY,
	namespace  INTEGER  NOT NULL,
	title      TEXT     NOT NULL,
	checksum   TEXT     NOT NULL DEFAULT '',
	revision   INTEGER  NOT NULL DEFAULT 0,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	UNIQUE(namespace, title)
);

CREATE TABLE IF NOT EXISTS smw_di_blob (
	s_id   INTEGER NOT NULL,
	p_id   INTEGER NOT NULL,
	o_blob TEXT    NOT NULL
);

CREATE TABLE IF NOT EXISTS smw_di_wikipage (
	s_id INTEGER NOT NULL,
	p_id INTEGER NOT NULL,
	o_id INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS smw_di_number (
	s_id         INTEGER NOT NULL,
	p_id         INTEGER NOT NULL,
	o_serialized TEXT    NOT NULL,
	o_sortkey    REAL    NOT NULL
);

CREATE TABLE IF NOT EXISTS smw_fpt_type (
	s_id         INTEGER NOT NULL,
	o_serialized TEXT    NOT NULL
);

CREATE TABLE IF NOT EXISTS smw_fpt_impo (
	s_id   INTEGER NOT NULL,
	o_blob TEXT    NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_blob_p     ON smw_di_blob(p_id);
CREATE INDEX IF NOT EXISTS idx_blob_s     ON smw_di_blob(s_id);
CREATE INDEX IF NOT EXISTS idx_wikipage_p ON smw_di_wikipage(p_id);
CREATE INDEX IF NOT EXISTS idx_wikipage_s ON smw_di_wikipage(s_id);
CREATE INDEX IF NOT EXISTS idx_number_p   ON smw_di_number(p_id);
CREATE INDEX IF NOT EXISTS idx_number_s   ON smw_di_number(s_id);
CREATE INDEX IF NOT EXISTS idx_type_s     ON smw_fpt_type(s_id);
CREATE INDEX IF NOT EXISTS idx_impo_s     ON smw_fpt_impo(s_id);
`

// Store wraps a sql.DB with semantic store operations.
type Store struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*Store, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("sqlstore: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlstore: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlstore: apply schema: %w", err)
	}
	return &Store{conn: conn}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.conn.Close()
}
