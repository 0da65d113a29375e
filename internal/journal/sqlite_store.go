package journal

import (
	"context"
	"database/sql"
	"time"

	"github.com/petrijr/cascata/pkg/api"
)

// SQLiteStore stores run events in SQLite.
type SQLiteStore struct {
	db *sql.DB
}

var _ EventStore = (*SQLiteStore)(nil)

func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS run_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			at INTEGER NOT NULL,
			type TEXT NOT NULL,
			process TEXT NOT NULL DEFAULT '',
			action TEXT NOT NULL DEFAULT '',
			detail TEXT NOT NULL DEFAULT ''
		);
		CREATE INDEX IF NOT EXISTS idx_run_events_run_id ON run_events(run_id, id);
	`)
	return err
}

func (s *SQLiteStore) Append(ctx context.Context, ev api.RunEvent) error {
	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO run_events (run_id, at, type, process, action, detail)
		VALUES (?, ?, ?, ?, ?, ?)`,
		ev.RunID,
		at.UnixNano(),
		string(ev.Type),
		ev.Process,
		ev.Action,
		ev.Detail,
	)
	return err
}

func (s *SQLiteStore) List(ctx context.Context, runID string) ([]api.RunEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, at, type, process, action, detail
		FROM run_events
		WHERE run_id = ?
		ORDER BY id ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []api.RunEvent
	for rows.Next() {
		var (
			id     string
			atN    int64
			typ    string
			proc   string
			action string
			detail string
		)
		if err := rows.Scan(&id, &atN, &typ, &proc, &action, &detail); err != nil {
			return nil, err
		}
		out = append(out, api.RunEvent{
			RunID:   id,
			At:      time.Unix(0, atN),
			Type:    api.EventType(typ),
			Process: proc,
			Action:  action,
			Detail:  detail,
		})
	}
	return out, rows.Err()
}
