package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/kplw-group/proposal-cli/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses. pgxmock satisfies it
// for tests.
type Pool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresFromPool wraps an existing pool, used by tests.
func NewPostgresFromPool(pool Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS rfp_runs (
	project_id TEXT PRIMARY KEY,
	template   TEXT NOT NULL,
	status     TEXT NOT NULL,
	state      JSONB NOT NULL,
	started_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_rfp_runs_status ON rfp_runs(status);
CREATE INDEX IF NOT EXISTS idx_rfp_runs_started_at ON rfp_runs(started_at);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) SaveState(ctx context.Context, state *model.ProjectState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal state")
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO rfp_runs (project_id, template, status, state, started_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (project_id) DO UPDATE SET
			status = EXCLUDED.status,
			state = EXCLUDED.state,
			updated_at = EXCLUDED.updated_at`,
		state.ProjectID, state.TemplateName, string(state.Status), data,
		state.StartedAt, time.Now().UTC(),
	)
	return eris.Wrap(err, "postgres: save state")
}

func (s *PostgresStore) GetState(ctx context.Context, projectID string) (*model.ProjectState, error) {
	var data []byte
	err := s.pool.QueryRow(ctx,
		`SELECT state FROM rfp_runs WHERE project_id = $1`, projectID,
	).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get state")
	}
	var state model.ProjectState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal state")
	}
	return &state, nil
}

func (s *PostgresStore) ListStates(ctx context.Context) ([]*model.ProjectState, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT state FROM rfp_runs ORDER BY started_at DESC`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list states")
	}
	defer rows.Close()

	var states []*model.ProjectState
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, eris.Wrap(err, "postgres: scan state")
		}
		var state model.ProjectState
		if err := json.Unmarshal(data, &state); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal state")
		}
		states = append(states, &state)
	}
	return states, eris.Wrap(rows.Err(), "postgres: iterate states")
}

func (s *PostgresStore) DeleteState(ctx context.Context, projectID string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM rfp_runs WHERE project_id = $1`, projectID)
	if err != nil {
		return eris.Wrap(err, "postgres: delete state")
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
