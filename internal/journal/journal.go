// Package journal provides a SQLite-backed audit trail of index mutations.
// It is an optional collaborator: the reconciler works fine without one.
package journal

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS mutations (
	id     INTEGER PRIMARY KEY AUTOINCREMENT,
	op     TEXT NOT NULL,
	serial TEXT NOT NULL DEFAULT '',
	path   TEXT NOT NULL,
	detail TEXT NOT NULL DEFAULT '',
	at     DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_mutations_serial ON mutations(serial);
`

// Entry is one recorded mutation.
type Entry struct {
	ID     int64     `json:"id"`
	Op     string    `json:"op"`
	Serial string    `json:"serial"`
	Path   string    `json:"path"`
	Detail string    `json:"detail,omitempty"`
	At     time.Time `json:"at"`
}

// DB wraps a sql.DB with journal operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the journal database and applies the schema.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("journal: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("journal: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("journal: apply schema: %w", err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Record appends one mutation.
func (db *DB) Record(op, serial, path, detail string) error {
	_, err := db.conn.Exec(
		`INSERT INTO mutations (op, serial, path, detail) VALUES (?, ?, ?, ?)`,
		op, serial, path, detail)
	if err != nil {
		return fmt.Errorf("journal: record: %w", err)
	}
	return nil
}

// Recent returns the newest entries, most recent first.
func (db *DB) Recent(limit int) ([]Entry, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	rows, err := db.conn.Query(
		`SELECT id, op, serial, path, detail, at FROM mutations ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("journal: recent: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Op, &e.Serial, &e.Path, &e.Detail, &e.At); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// BySerial returns every entry recorded for a serial, oldest first.
func (db *DB) BySerial(serial string) ([]Entry, error) {
	rows, err := db.conn.Query(
		`SELECT id, op, serial, path, detail, at FROM mutations WHERE serial = ? ORDER BY id`, serial)
	if err != nil {
		return nil, fmt.Errorf("journal: by serial: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Op, &e.Serial, &e.Path, &e.Detail, &e.At); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
