package history

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
)

const executionsTable = `
	CREATE TABLE IF NOT EXISTS executions (
		execution_id String,
		intent LowCardinality(String),
		owner String,
		state LowCardinality(String),
		stage LowCardinality(String),
		kind LowCardinality(String),
		error String,
		signature String,
		pool String,
		units_consumed UInt64,
		warnings UInt32,
		started_at DateTime64(3),
		finished_at DateTime64(3),
		duration_ms Int64
	) ENGINE = MergeTree()
	ORDER BY (finished_at, execution_id)
`

// ClickHouseOptions locates the history database.
type ClickHouseOptions struct {
	Addr     string
	Database string
	Username string
	Password string
}

// ClickHouseStore appends execution records to the executions table.
type ClickHouseStore struct {
	conn driver.Conn
}

func NewClickHouseStore(ctx context.Context, opts ClickHouseOptions) (*ClickHouseStore, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{opts.Addr},
		Auth: clickhouse.Auth{
			Database: opts.Database,
			Username: opts.Username,
			Password: opts.Password,
		},
		DialTimeout: 5 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	if err := conn.Ping(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}
	if err := conn.Exec(ctx, executionsTable); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to create executions table: %w", err)
	}

	return &ClickHouseStore{conn: conn}, nil
}

func (c *ClickHouseStore) InsertExecution(ctx context.Context, rec *Record) error {
	query := `
		INSERT INTO executions (
			execution_id, intent, owner, state, stage, kind, error,
			signature, pool, units_consumed, warnings,
			started_at, finished_at, duration_ms
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	err := c.conn.Exec(ctx, query,
		rec.ExecutionID,
		rec.Intent,
		rec.Owner,
		rec.State,
		rec.Stage,
		rec.Kind,
		rec.Error,
		rec.Signature,
		rec.Pool,
		rec.Units,
		rec.Warnings,
		rec.StartedAt,
		rec.FinishedAt,
		rec.DurationMs,
	)
	if err != nil {
		return fmt.Errorf("failed to insert execution: %w", err)
	}
	return nil
}

// Recent returns the latest records, newest first.
func (c *ClickHouseStore) Recent(ctx context.Context, limit int) ([]*Record, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	rows, err := c.conn.Query(ctx, `
		SELECT execution_id, intent, owner, state, stage, kind, error,
			signature, pool, units_consumed, warnings,
			started_at, finished_at, duration_ms
		FROM executions
		ORDER BY finished_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query executions: %w", err)
	}
	defer rows.Close()

	var out []*Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(
			&r.ExecutionID, &r.Intent, &r.Owner, &r.State, &r.Stage, &r.Kind, &r.Error,
			&r.Signature, &r.Pool, &r.Units, &r.Warnings,
			&r.StartedAt, &r.FinishedAt, &r.DurationMs,
		); err != nil {
			return nil, fmt.Errorf("failed to scan execution: %w", err)
		}
		out = append(out, &r)
	}
	return out, rows.Err()
}

func (c *ClickHouseStore) Ping(ctx context.Context) error {
	return c.conn.Ping(ctx)
}

func (c *ClickHouseStore) Close() error {
	return c.conn.Close()
}
