package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/penwyp/go-metrobus/internal/analytics"
	"github.com/penwyp/go-metrobus/internal/core/model"
	"github.com/penwyp/go-metrobus/internal/util"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS analytics_events (
	id            uuid PRIMARY KEY,
	event_type    text NOT NULL,
	event_details jsonb,
	created_at    timestamptz NOT NULL DEFAULT now(),
	line_code     text
);
CREATE INDEX IF NOT EXISTS analytics_events_created_at_idx ON analytics_events (created_at DESC);
CREATE INDEX IF NOT EXISTS analytics_events_type_idx ON analytics_events (event_type, created_at DESC);
CREATE INDEX IF NOT EXISTS analytics_events_line_idx ON analytics_events (line_code, created_at DESC);
`

const eventColumns = `id::text, event_type, COALESCE(event_details::text, ''), created_at, COALESCE(line_code, '')`

// listenRetryDelay is the pause before re-acquiring a LISTEN connection.
var listenRetryDelay = 2 * time.Second

// PostgresStore is the hosted event log backed by a Postgres table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to dsn and verifies the connection.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to reach postgres: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

// EnsureSchema creates the events table and its indexes when absent.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// listQuery builds a SELECT over analytics_events. where may be empty;
// paginate appends LIMIT/OFFSET placeholders after the filter arguments.
func listQuery(where string, ascending, paginate bool, argCount int) string {
	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(eventColumns)
	b.WriteString(" FROM analytics_events")
	if where != "" {
		b.WriteString(" WHERE ")
		b.WriteString(where)
	}
	if ascending {
		b.WriteString(" ORDER BY created_at ASC, id ASC")
	} else {
		b.WriteString(" ORDER BY created_at DESC, id DESC")
	}
	if paginate {
		fmt.Fprintf(&b, " LIMIT $%d OFFSET $%d", argCount+1, argCount+2)
	}
	return b.String()
}

func (s *PostgresStore) ListAll(ctx context.Context) ([]model.AnalyticsEvent, error) {
	return s.query(ctx, listQuery("", false, false, 0))
}

func (s *PostgresStore) ListByType(ctx context.Context, eventType string, limit, offset int) ([]model.AnalyticsEvent, error) {
	limit, offset = normalizePage(limit, offset)
	return s.query(ctx, listQuery("event_type = $1", false, true, 1), eventType, limit, offset)
}

func (s *PostgresStore) ListByLine(ctx context.Context, line model.LineCode, limit, offset int) ([]model.AnalyticsEvent, error) {
	limit, offset = normalizePage(limit, offset)
	return s.query(ctx, listQuery("line_code = $1", false, true, 1), string(line), limit, offset)
}

func (s *PostgresStore) ListSince(ctx context.Context, since time.Time) ([]model.AnalyticsEvent, error) {
	return s.query(ctx, listQuery("created_at >= $1", true, false, 1), since)
}

func normalizePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func (s *PostgresStore) query(ctx context.Context, sql string, args ...interface{}) ([]model.AnalyticsEvent, error) {
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query analytics events: %w", err)
	}
	defer rows.Close()

	events := make([]model.AnalyticsEvent, 0)
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read analytics events: %w", err)
	}
	return events, nil
}

func scanEvent(row pgx.Row) (model.AnalyticsEvent, error) {
	var (
		event     model.AnalyticsEvent
		details   string
		createdAt time.Time
	)
	if err := row.Scan(&event.ID, &event.EventType, &details, &createdAt, &event.LineCode); err != nil {
		return model.AnalyticsEvent{}, fmt.Errorf("failed to scan analytics event: %w", err)
	}
	if details != "" {
		event.EventDetails = json.RawMessage(details)
	}
	event.CreatedAt = createdAt.UTC().Format(time.RFC3339Nano)
	return event, nil
}

// insertArgs converts an event into INSERT parameters. Missing timestamps
// and details become NULL so the database default applies.
func insertArgs(event model.AnalyticsEvent) ([]interface{}, error) {
	if event.EventType == "" {
		return nil, fmt.Errorf("event_type is required")
	}
	id := event.ID
	if id == "" {
		id = uuid.NewString()
	} else if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("invalid event id %q: %w", id, err)
	}

	var details interface{}
	if len(event.EventDetails) > 0 {
		if !sonic.Valid(event.EventDetails) {
			return nil, fmt.Errorf("event_details is not valid JSON")
		}
		details = string(event.EventDetails)
	}

	var createdAt interface{}
	if event.CreatedAt != "" {
		ts, ok := analytics.ParseTimestamp(event.CreatedAt, time.UTC)
		if !ok {
			return nil, fmt.Errorf("invalid created_at %q", event.CreatedAt)
		}
		createdAt = ts
	}

	return []interface{}{id, event.EventType, details, createdAt, event.LineCode}, nil
}

const insertSQL = `INSERT INTO analytics_events (id, event_type, event_details, created_at, line_code)
VALUES ($1, $2, $3::jsonb, COALESCE($4::timestamptz, now()), NULLIF($5, ''))
RETURNING ` + eventColumns

// Insert writes the row and publishes its id on NotifyChannel in the same
// transaction, so listeners only hear about committed rows.
func (s *PostgresStore) Insert(ctx context.Context, event model.AnalyticsEvent) (model.AnalyticsEvent, error) {
	args, err := insertArgs(event)
	if err != nil {
		return model.AnalyticsEvent{}, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return model.AnalyticsEvent{}, fmt.Errorf("failed to begin insert: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	stored, err := scanEvent(tx.QueryRow(ctx, insertSQL, args...))
	if err != nil {
		return model.AnalyticsEvent{}, err
	}
	if _, err := tx.Exec(ctx, "SELECT pg_notify($1, $2)", NotifyChannel, stored.ID); err != nil {
		return model.AnalyticsEvent{}, fmt.Errorf("failed to publish insert: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return model.AnalyticsEvent{}, fmt.Errorf("failed to commit insert: %w", err)
	}
	return stored, nil
}

// Subscribe holds one pooled connection in LISTEN mode for as long as ctx
// lives. Lost connections are re-established.
func (s *PostgresStore) Subscribe(ctx context.Context) (<-chan struct{}, error) {
	conn, err := s.listen(ctx)
	if err != nil {
		return nil, err
	}

	out := make(chan struct{}, 1)
	go func() {
		defer close(out)
		for {
			err := s.waitLoop(ctx, conn, out)
			if ctx.Err() != nil {
				return
			}
			util.LogWarnf("Lost analytics subscription, reconnecting: %v", err)

			for {
				select {
				case <-ctx.Done():
					return
				case <-time.After(listenRetryDelay):
				}
				conn, err = s.listen(ctx)
				if err == nil {
					// Inserts may have been missed while disconnected.
					notify(out)
					break
				}
				util.LogWarnf("Failed to re-subscribe to analytics events: %v", err)
			}
		}
	}()
	return out, nil
}

func (s *PostgresStore) listen(ctx context.Context) (*pgxpool.Conn, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire listen connection: %w", err)
	}
	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{NotifyChannel}.Sanitize()); err != nil {
		conn.Release()
		return nil, fmt.Errorf("failed to listen on %s: %w", NotifyChannel, err)
	}
	return conn, nil
}

func (s *PostgresStore) waitLoop(ctx context.Context, conn *pgxpool.Conn, out chan struct{}) error {
	defer func() {
		// A cancelled wait closes the underlying connection; a live one must
		// stop listening before it goes back to the pool.
		if !conn.Conn().IsClosed() {
			cleanup, cancel := context.WithTimeout(context.Background(), time.Second)
			_, _ = conn.Exec(cleanup, "UNLISTEN *")
			cancel()
		}
		conn.Release()
	}()

	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return ctx.Err()
			}
			return err
		}
		util.LogDebugf("Analytics insert notification: %s", n.Payload)
		notify(out)
	}
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
