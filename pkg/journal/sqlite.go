package journal

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS events (
	id      INTEGER PRIMARY KEY AUTOINCREMENT,
	topic   TEXT NOT NULL,
	payload BLOB NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_events_topic ON events(topic, id);
`

// SQLiteJournal stores events in a SQLite database, a file path or
// ":memory:".
type SQLiteJournal struct {
	db *sql.DB
}

func OpenSQLite(dsn string) (*SQLiteJournal, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite journal: %w", err)
	}
	// A single connection keeps ":memory:" databases from vanishing
	// between pool connections.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create journal schema: %w", err)
	}
	return &SQLiteJournal{db: db}, nil
}

func (j *SQLiteJournal) Append(ctx context.Context, topic string, payload []byte) error {
	if _, err := j.db.ExecContext(ctx, `INSERT INTO events (topic, payload) VALUES (?, ?)`, topic, payload); err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	return nil
}

func (j *SQLiteJournal) Replay(ctx context.Context, topic string, fn func(payload []byte) error) error {
	rows, err := j.db.QueryContext(ctx, `SELECT payload FROM events WHERE topic = ? ORDER BY id`, topic)
	if err != nil {
		return fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return fmt.Errorf("scan event: %w", err)
		}
		if err := fn(payload); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (j *SQLiteJournal) Close() error {
	return j.db.Close()
}
