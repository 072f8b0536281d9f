// Package sqldriver provides storage operations over database/sql.
// It is database-agnostic and is embedded by the sqlite and postgres drivers.
package sqldriver

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/papercomputeco/sift/pkg/results"
	"github.com/papercomputeco/sift/pkg/storage"
)

// Dialect selects placeholder syntax and schema types.
type Dialect int

const (
	SQLite Dialect = iota
	Postgres
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS result_events (
	id            TEXT PRIMARY KEY,
	stream        TEXT NOT NULL,
	set_index     INTEGER NOT NULL,
	preview       BOOLEAN NOT NULL,
	seq           INTEGER NOT NULL,
	fields        TEXT NOT NULL,
	segmented_raw TEXT NOT NULL DEFAULT '',
	created_at    TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS result_events_stream_seq ON result_events (stream, seq);
`

const postgresSchema = `
CREATE TABLE IF NOT EXISTS result_events (
	id            TEXT PRIMARY KEY,
	stream        TEXT NOT NULL,
	set_index     INTEGER NOT NULL,
	preview       BOOLEAN NOT NULL,
	seq           INTEGER NOT NULL,
	fields        JSON NOT NULL,
	segmented_raw TEXT NOT NULL DEFAULT '',
	created_at    TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS result_events_stream_seq ON result_events (stream, seq);
`

const selectColumns = `SELECT id, stream, set_index, preview, seq, fields, segmented_raw, created_at FROM result_events`

// Driver implements storage.Driver over a *sql.DB.
type Driver struct {
	DB      *sql.DB
	Dialect Dialect
}

// New wraps db and creates the schema if it doesn't exist yet.
func New(ctx context.Context, db *sql.DB, dialect Dialect) (*Driver, error) {
	schema := sqliteSchema
	if dialect == Postgres {
		schema = postgresSchema
	}

	for stmt := range strings.SplitSeq(schema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return nil, fmt.Errorf("failed to create schema: %w", err)
		}
	}

	return &Driver{DB: db, Dialect: dialect}, nil
}

// Put stores a record. A record whose ID already exists is left untouched.
func (d *Driver) Put(ctx context.Context, r *storage.Record) error {
	if r == nil {
		return storage.ErrNilRecord
	}

	fields, err := json.Marshal(r.Event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	createdAt := r.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err = d.DB.ExecContext(ctx, d.rebind(
		`INSERT INTO result_events (id, stream, set_index, preview, seq, fields, segmented_raw, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?) ON CONFLICT (id) DO NOTHING`),
		r.ID, r.Stream, r.SetIndex, r.Preview, r.Seq, string(fields), r.Event.SegmentedRaw(), createdAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert record: %w", err)
	}

	return nil
}

// Get retrieves a record by its ID.
func (d *Driver) Get(ctx context.Context, id string) (*storage.Record, error) {
	row := d.DB.QueryRowContext(ctx, d.rebind(selectColumns+` WHERE id = ?`), id)

	r, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.NotFoundError{ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get record: %w", err)
	}

	return r, nil
}

// List returns records matching q ordered by stream and sequence.
func (d *Driver) List(ctx context.Context, q storage.Query) ([]*storage.Record, error) {
	var (
		where []string
		args  []any
	)
	if q.Stream != "" {
		where = append(where, "stream = ?")
		args = append(args, q.Stream)
	}
	if q.Preview != nil {
		where = append(where, "preview = ?")
		args = append(args, *q.Preview)
	}

	query := selectColumns
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY stream, seq"

	if q.Limit > 0 {
		query += " LIMIT " + strconv.Itoa(q.Limit)
	}
	if q.Offset > 0 {
		if q.Limit <= 0 && d.Dialect == SQLite {
			// sqlite only accepts OFFSET after a LIMIT
			query += " LIMIT -1"
		}
		query += " OFFSET " + strconv.Itoa(q.Offset)
	}

	rows, err := d.DB.QueryContext(ctx, d.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	defer rows.Close()

	records := []*storage.Record{}
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		records = append(records, r)
	}

	return records, rows.Err()
}

// Count returns the number of stored records.
func (d *Driver) Count(ctx context.Context) (int, error) {
	var n int
	if err := d.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM result_events`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	return n, nil
}

// Streams summarizes stored records per stream.
func (d *Driver) Streams(ctx context.Context) ([]storage.StreamStats, error) {
	previewSum := `SUM(CASE WHEN preview THEN 1 ELSE 0 END)`

	rows, err := d.DB.QueryContext(ctx,
		`SELECT stream, COUNT(DISTINCT set_index), COUNT(*), `+previewSum+`, MAX(created_at)
		 FROM result_events GROUP BY stream ORDER BY stream`)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize streams: %w", err)
	}
	defer rows.Close()

	stats := []storage.StreamStats{}
	for rows.Next() {
		var (
			st       storage.StreamStats
			lastSeen any
		)
		if err := rows.Scan(&st.Stream, &st.Sets, &st.Events, &st.Previews, &lastSeen); err != nil {
			return nil, fmt.Errorf("failed to scan stream stats: %w", err)
		}
		st.LastSeen = parseTime(lastSeen)
		stats = append(stats, st)
	}

	return stats, rows.Err()
}

// Close closes the database connection.
func (d *Driver) Close() error {
	return d.DB.Close()
}

// rebind rewrites ? placeholders to $n for postgres.
func (d *Driver) rebind(query string) string {
	if d.Dialect != Postgres {
		return query
	}

	var (
		b strings.Builder
		n int
	)
	for _, c := range query {
		if c == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(c)
	}
	return b.String()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (*storage.Record, error) {
	var (
		r         storage.Record
		fields    []byte
		raw       string
		createdAt any
	)
	if err := s.Scan(&r.ID, &r.Stream, &r.SetIndex, &r.Preview, &r.Seq, &fields, &raw, &createdAt); err != nil {
		return nil, err
	}

	var ev results.Event
	if err := json.Unmarshal(fields, &ev); err != nil {
		return nil, fmt.Errorf("failed to unmarshal event: %w", err)
	}
	if raw != "" {
		ev = ev.WithSegmentedRaw(raw)
	}

	r.Event = ev
	r.CreatedAt = parseTime(createdAt)
	return &r, nil
}

// parseTime accepts the forms drivers return for timestamp columns and
// aggregates over them.
func parseTime(v any) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t
	case string:
		return parseTimeString(t)
	case []byte:
		return parseTimeString(string(t))
	}
	return time.Time{}
}

func parseTimeString(s string) time.Time {
	layouts := []string{
		"2006-01-02 15:04:05.999999999-07:00",
		"2006-01-02T15:04:05.999999999-07:00",
		"2006-01-02 15:04:05.999999999",
		"2006-01-02T15:04:05.999999999",
		"2006-01-02 15:04:05",
		time.RFC3339Nano,
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
