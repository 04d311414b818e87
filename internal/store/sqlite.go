package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/kplw-group/proposal-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS rfp_runs (
	project_id TEXT PRIMARY KEY,
	template   TEXT NOT NULL,
	status     TEXT NOT NULL,
	state      TEXT NOT NULL,
	started_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_rfp_runs_status ON rfp_runs(status);
CREATE INDEX IF NOT EXISTS idx_rfp_runs_started_at ON rfp_runs(started_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveState(ctx context.Context, state *model.ProjectState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal state")
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO rfp_runs (project_id, template, status, state, started_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(project_id) DO UPDATE SET
			status = excluded.status,
			state = excluded.state,
			updated_at = excluded.updated_at`,
		state.ProjectID, state.TemplateName, string(state.Status), string(data),
		state.StartedAt, time.Now().UTC(),
	)
	return eris.Wrap(err, "sqlite: save state")
}

func (s *SQLiteStore) GetState(ctx context.Context, projectID string) (*model.ProjectState, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT state FROM rfp_runs WHERE project_id = ?`, projectID,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get state")
	}
	var state model.ProjectState
	if err := json.Unmarshal([]byte(data), &state); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal state")
	}
	return &state, nil
}

func (s *SQLiteStore) ListStates(ctx context.Context) ([]*model.ProjectState, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT state FROM rfp_runs ORDER BY started_at DESC`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list states")
	}
	defer rows.Close()

	var states []*model.ProjectState
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan state")
		}
		var state model.ProjectState
		if err := json.Unmarshal([]byte(data), &state); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal state")
		}
		states = append(states, &state)
	}
	return states, eris.Wrap(rows.Err(), "sqlite: iterate states")
}

func (s *SQLiteStore) DeleteState(ctx context.Context, projectID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM rfp_runs WHERE project_id = ?`, projectID)
	if err != nil {
		return eris.Wrap(err, "sqlite: delete state")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
