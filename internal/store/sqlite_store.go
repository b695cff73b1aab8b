package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

// SQLiteJobStore is a JobStore backed by SQLite.
//
// The pure-Go modernc.org/sqlite driver is registered under "sqlite" by this
// package; NewSQLiteJobStore accepts any *sql.DB opened with it.
type SQLiteJobStore struct {
	db *sql.DB
}

var _ JobStore = (*SQLiteJobStore)(nil)

// NewSQLiteJobStore initializes the schema in db and returns a store.
func NewSQLiteJobStore(db *sql.DB) (*SQLiteJobStore, error) {
	s := &SQLiteJobStore{db: db}
	if err := s.initSchema(); err != nil {
		return nil, fmt.Errorf("sqlite job store schema: %w", err)
	}
	return s, nil
}

// OpenSQLiteJobStore opens (or creates) the database file at path.
func OpenSQLiteJobStore(path string) (*SQLiteJobStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	s, err := NewSQLiteJobStore(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteJobStore) initSchema() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS jobs (
			id TEXT PRIMARY KEY,
			recipe_id TEXT NOT NULL,
			state TEXT NOT NULL,
			finished_at INTEGER NOT NULL,
			record BLOB NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS jobs_recipe_idx ON jobs (recipe_id)`,
		`CREATE INDEX IF NOT EXISTS jobs_state_idx ON jobs (state)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteJobStore) SaveJob(ctx context.Context, rec *JobRecord) error {
	data, err := encodeRecord(rec)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO jobs (id, recipe_id, state, finished_at, record)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			recipe_id = excluded.recipe_id,
			state = excluded.state,
			finished_at = excluded.finished_at,
			record = excluded.record`,
		rec.ID,
		rec.RecipeID,
		rec.State,
		rec.FinishedAt.UnixNano(),
		data,
	)
	return err
}

func (s *SQLiteJobStore) GetJob(ctx context.Context, id string) (*JobRecord, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT record FROM jobs WHERE id = ?`, id).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrJobNotFound
		}
		return nil, err
	}
	return decodeRecord(data)
}

func (s *SQLiteJobStore) ListJobs(ctx context.Context, filter JobFilter) ([]*JobRecord, error) {
	query := `SELECT record FROM jobs`
	var args []any
	var clauses []string

	if filter.RecipeID != "" {
		clauses = append(clauses, "recipe_id = ?")
		args = append(args, filter.RecipeID)
	}
	if filter.State != "" {
		clauses = append(clauses, "state = ?")
		args = append(args, filter.State)
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY finished_at DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*JobRecord
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		rec, err := decodeRecord(data)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *SQLiteJobStore) Close() error {
	return s.db.Close()
}
