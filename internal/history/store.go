package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/berfenger/receiptpanel/internal/core/domain"
	"github.com/berfenger/receiptpanel/internal/core/port"

	_ "modernc.org/sqlite"
)

const (
	STATUS_DISPATCHED = "dispatched"
	STATUS_SUCCESS    = "success"
	STATUS_ERROR      = "error"
	STATUS_FAILED     = "dispatch_failed"

	DEFAULT_LIST_LIMIT = 50
)

// Store is the generation log. Completion events carry no request id, so a completion
// closes the most recent request still waiting for one.
type Store struct {
	conn *sql.DB
}

var _ port.HistoryRecorder = (*Store)(nil)

// New opens the database and initializes the schema
func New(dbPath string) (*Store, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// one writer, sqlite serializes anyway
	conn.SetMaxOpenConns(1)

	s := &Store{conn: conn}
	if err := s.initSchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}

	return s, nil
}

func (s *Store) Close() error {
	return s.conn.Close()
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS generation_history (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		entity_ids TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		filename TEXT,
		filename_prefix TEXT,
		dispatched_at TEXT NOT NULL,
		status TEXT NOT NULL,
		completed_at TEXT,
		detail TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_history_status ON generation_history(status);
	`
	_, err := s.conn.Exec(schema)
	return err
}

func (s *Store) RecordDispatch(ctx context.Context, req domain.GenerationRequest) error {
	entityIds, err := json.Marshal(req.EntityIds)
	if err != nil {
		return fmt.Errorf("encoding entity ids: %w", err)
	}
	dispatchedAt := req.CreatedAt
	if dispatchedAt.IsZero() {
		dispatchedAt = time.Now()
	}
	query := `
	INSERT INTO generation_history (id, entity_ids, start_date, end_date, filename, filename_prefix, dispatched_at, status)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = s.conn.ExecContext(ctx, query, req.Id, string(entityIds), req.StartDate, req.EndDate,
		req.Filename, req.FilenamePrefix, dispatchedAt.UTC().Format(time.RFC3339Nano), STATUS_DISPATCHED)
	if err != nil {
		return fmt.Errorf("inserting dispatch: %w", err)
	}
	return nil
}

func (s *Store) RecordCompletion(ctx context.Context, ev domain.CompletionEvent) error {
	status := STATUS_SUCCESS
	if !ev.Success {
		status = STATUS_ERROR
	}
	query := `
	UPDATE generation_history SET status = ?, completed_at = ?, detail = ?
	WHERE seq = (SELECT MAX(seq) FROM generation_history WHERE status = ?)
	`
	res, err := s.conn.ExecContext(ctx, query, status, time.Now().UTC().Format(time.RFC3339Nano), ev.Summary(), STATUS_DISPATCHED)
	if err != nil {
		return fmt.Errorf("updating completion: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// completion of a request dispatched elsewhere
		return s.insertOrphanCompletion(ctx, status, ev)
	}
	return nil
}

func (s *Store) insertOrphanCompletion(ctx context.Context, status string, ev domain.CompletionEvent) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	query := `
	INSERT INTO generation_history (id, entity_ids, start_date, end_date, filename, dispatched_at, status, completed_at, detail)
	VALUES (?, '[]', '', '', ?, ?, ?, ?, ?)
	`
	_, err := s.conn.ExecContext(ctx, query, "external-"+now, ev.Filename, now, status, now, ev.Summary())
	if err != nil {
		return fmt.Errorf("inserting completion: %w", err)
	}
	return nil
}

func (s *Store) RecordFailure(ctx context.Context, requestId string, cause error) error {
	query := `
	UPDATE generation_history SET status = ?, completed_at = ?, detail = ?
	WHERE id = ?
	`
	_, err := s.conn.ExecContext(ctx, query, STATUS_FAILED, time.Now().UTC().Format(time.RFC3339Nano), cause.Error(), requestId)
	if err != nil {
		return fmt.Errorf("updating failure: %w", err)
	}
	return nil
}

// List returns the newest entries first.
func (s *Store) List(ctx context.Context, limit int) ([]domain.HistoryEntry, error) {
	if limit <= 0 {
		limit = DEFAULT_LIST_LIMIT
	}
	query := `
	SELECT id, entity_ids, start_date, end_date, filename, filename_prefix, dispatched_at, status, completed_at, detail
	FROM generation_history
	ORDER BY seq DESC
	LIMIT ?
	`
	rows, err := s.conn.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	entries := []domain.HistoryEntry{}
	for rows.Next() {
		var e domain.HistoryEntry
		var entityIds, dispatchedAt string
		var filename, prefix, completedAt, detail sql.NullString
		if err := rows.Scan(&e.Id, &entityIds, &e.StartDate, &e.EndDate, &filename, &prefix,
			&dispatchedAt, &e.Status, &completedAt, &detail); err != nil {
			return nil, fmt.Errorf("scanning history: %w", err)
		}
		if err := json.Unmarshal([]byte(entityIds), &e.EntityIds); err != nil {
			return nil, fmt.Errorf("decoding entity ids: %w", err)
		}
		e.Filename = filename.String
		e.Prefix = prefix.String
		e.Detail = detail.String
		if e.DispatchedAt, err = time.Parse(time.RFC3339Nano, dispatchedAt); err != nil {
			return nil, fmt.Errorf("parsing dispatched_at: %w", err)
		}
		if completedAt.Valid {
			t, err := time.Parse(time.RFC3339Nano, completedAt.String)
			if err != nil {
				return nil, fmt.Errorf("parsing completed_at: %w", err)
			}
			e.CompletedAt = &t
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
