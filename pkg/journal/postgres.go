package journal

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS events (
	id      BIGSERIAL PRIMARY KEY,
	topic   TEXT NOT NULL,
	payload BYTEA NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_events_topic ON events(topic, id);
`

// PostgresJournal stores events in Postgres via pgx.
type PostgresJournal struct {
	pool *pgxpool.Pool
}

func OpenPostgres(ctx context.Context, dsn string) (*PostgresJournal, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres journal: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create journal schema: %w", err)
	}
	return &PostgresJournal{pool: pool}, nil
}

func (j *PostgresJournal) Append(ctx context.Context, topic string, payload []byte) error {
	if _, err := j.pool.Exec(ctx, `INSERT INTO events (topic, payload) VALUES ($1, $2)`, topic, payload); err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	return nil
}

func (j *PostgresJournal) Replay(ctx context.Context, topic string, fn func(payload []byte) error) error {
	rows, err := j.pool.Query(ctx, `SELECT payload FROM events WHERE topic = $1 ORDER BY id`, topic)
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

func (j *PostgresJournal) Close() error {
	j.pool.Close()
	return nil
}
