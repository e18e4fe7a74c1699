package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// MemoryPath opens a private in-memory journal.
const MemoryPath = ":memory:"

const defaultRecentLimit = 50

// Store is the append-only audit journal of graph mutations.
// The graph is never rebuilt from it.
type Store struct {
	db *sql.DB
}

// NewStore initializes the SQLite database connection.
// It enables WAL mode for file-backed journals.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite db: %w", err)
	}

	// Every pooled connection to :memory: would see its own empty database.
	if dbPath == MemoryPath {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping sqlite db: %w", err)
	}

	if dbPath != MemoryPath {
		if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("schema migration failed: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	query := `
	CREATE TABLE IF NOT EXISTS events (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		event_id TEXT NOT NULL UNIQUE,
		event_type TEXT NOT NULL,
		schema_version INTEGER NOT NULL,
		ts_event DATETIME NOT NULL,
		ts_ingest DATETIME NOT NULL,

		origin_kind TEXT,
		origin_id TEXT,
		writer_id TEXT,

		identity TEXT NOT NULL,
		counterpart TEXT NOT NULL DEFAULT '',

		correlation_id TEXT,
		causation_id TEXT,

		payload JSON NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_ts_event ON events(ts_event);
	CREATE INDEX IF NOT EXISTS idx_events_identity ON events(identity);
	CREATE INDEX IF NOT EXISTS idx_events_correlation ON events(correlation_id);
	`

	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("failed to create events table: %w", err)
	}
	return nil
}

// AppendEvent writes a single event to the journal.
func (s *Store) AppendEvent(ctx context.Context, event *Event) error {
	if event == nil {
		return errors.New("nil event")
	}
	if event.EventID == "" || event.EventType == "" {
		return errors.New("event_id and event_type are required")
	}
	if event.TsIngest.IsZero() {
		event.TsIngest = time.Now().UTC()
	}

	const query = `
	INSERT INTO events (
		event_id, event_type, schema_version, ts_event, ts_ingest,
		origin_kind, origin_id, writer_id,
		identity, counterpart,
		correlation_id, causation_id,
		payload
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		string(event.EventID), string(event.EventType), event.SchemaVersion,
		event.TsEvent.UTC(), event.TsIngest.UTC(),
		event.Source.OriginKind, event.Source.OriginID, event.Source.WriterID,
		event.Subject.Identity, event.Subject.Counterpart,
		event.Correlation.CorrelationID, event.Correlation.CausationID,
		string(event.Payload),
	)
	if err != nil {
		return fmt.Errorf("failed to append event %s: %w", event.EventID, err)
	}
	return nil
}

// GetEvent returns the event with the given id, or nil when absent.
func (s *Store) GetEvent(ctx context.Context, id EventID) (*Event, error) {
	rows, err := s.db.QueryContext(ctx, selectEvents+` WHERE event_id = ?`, string(id))
	if err != nil {
		return nil, fmt.Errorf("failed to query event: %w", err)
	}
	events, err := scanEvents(rows)
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, nil
	}
	return events[0], nil
}

// ReadRecentEvents returns up to limit events, newest first.
func (s *Store) ReadRecentEvents(ctx context.Context, limit int) ([]*Event, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	rows, err := s.db.QueryContext(ctx, selectEvents+` ORDER BY seq DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent events: %w", err)
	}
	return scanEvents(rows)
}

// QueryEvents returns events matching filter in journal order.
func (s *Store) QueryEvents(ctx context.Context, filter EventFilter) ([]*Event, error) {
	var (
		clauses []string
		args    []any
	)
	if !filter.From.IsZero() {
		clauses = append(clauses, "ts_event >= ?")
		args = append(args, filter.From.UTC())
	}
	if !filter.To.IsZero() {
		clauses = append(clauses, "ts_event <= ?")
		args = append(args, filter.To.UTC())
	}
	if len(filter.EventTypes) > 0 {
		placeholders := make([]string, len(filter.EventTypes))
		for i, et := range filter.EventTypes {
			placeholders[i] = "?"
			args = append(args, string(et))
		}
		clauses = append(clauses, "event_type IN ("+strings.Join(placeholders, ",")+")")
	}
	if filter.Identity != "" {
		clauses = append(clauses, "(identity = ? OR counterpart = ?)")
		args = append(args, filter.Identity, filter.Identity)
	}

	query := selectEvents
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY seq ASC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	return scanEvents(rows)
}

const selectEvents = `
	SELECT event_id, event_type, schema_version, ts_event, ts_ingest,
		origin_kind, origin_id, writer_id,
		identity, counterpart,
		correlation_id, causation_id,
		payload
	FROM events`

func scanEvents(rows *sql.Rows) ([]*Event, error) {
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		var (
			e                              Event
			eventID, eventType, payload    string
			originKind, originID, writerID sql.NullString
			correlationID, causationID     sql.NullString
		)
		if err := rows.Scan(
			&eventID, &eventType, &e.SchemaVersion, &e.TsEvent, &e.TsIngest,
			&originKind, &originID, &writerID,
			&e.Subject.Identity, &e.Subject.Counterpart,
			&correlationID, &causationID,
			&payload,
		); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		e.EventID = EventID(eventID)
		e.EventType = EventType(eventType)
		e.Source = EventSource{OriginKind: originKind.String, OriginID: originID.String, WriterID: writerID.String}
		e.Correlation = EventCorrelation{CorrelationID: correlationID.String, CausationID: causationID.String}
		e.Payload = []byte(payload)
		events = append(events, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate events: %w", err)
	}
	return events, nil
}
