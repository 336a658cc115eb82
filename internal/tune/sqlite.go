//go:build sqlite

package tune

import (
	"context"
	"database/sql"
	"encoding/json"
	"sync"

	"github.com/pkg/errors"

	_ "modernc.org/sqlite"
)

// SQLiteStore persists trials in a SQLite database.
type SQLiteStore struct {
	path string

	mu sync.RWMutex
	db *sql.DB
}

// NewSQLiteStore creates a store backed by the database file at path.
func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{path: path}
}

func newSQLiteStore(path string) (Store, error) {
	if path == "" {
		return nil, errors.New("sqlite path is required")
	}
	return NewSQLiteStore(path), nil
}

// Init opens the database and creates the schema.
func (s *SQLiteStore) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return errors.New("sqlite path is required")
	}
	if s.db != nil {
		return nil
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return errors.Wrap(err, "open sqlite")
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return errors.Wrap(err, "ping sqlite")
	}
	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS trials (
			id TEXT PRIMARY KEY,
			study TEXT NOT NULL,
			idx INTEGER NOT NULL,
			metric REAL NOT NULL,
			payload BLOB NOT NULL
		);
		CREATE INDEX IF NOT EXISTS trials_study ON trials (study, idx);
	`); err != nil {
		_ = db.Close()
		return errors.Wrap(err, "create tables")
	}

	s.db = db
	return nil
}

// SaveTrial inserts or replaces a trial.
func (s *SQLiteStore) SaveTrial(ctx context.Context, trial Trial) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}
	payload, err := json.Marshal(trial)
	if err != nil {
		return errors.Wrapf(err, "encode trial %s", trial.ID)
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO trials (id, study, idx, metric, payload)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			study = excluded.study,
			idx = excluded.idx,
			metric = excluded.metric,
			payload = excluded.payload
	`, trial.ID, trial.Study, trial.Index, trial.Metric, payload)
	return errors.Wrapf(err, "save trial %s", trial.ID)
}

// ListTrials returns the trials of study ordered by index.
func (s *SQLiteStore) ListTrials(ctx context.Context, study string) ([]Trial, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, `SELECT payload FROM trials WHERE study = ? ORDER BY idx`, study)
	if err != nil {
		return nil, errors.Wrap(err, "list trials")
	}
	defer rows.Close()

	var out []Trial
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, errors.Wrap(err, "scan trial")
		}
		var t Trial
		if err := json.Unmarshal(payload, &t); err != nil {
			return nil, errors.Wrap(err, "decode trial")
		}
		out = append(out, t)
	}
	return out, errors.Wrap(rows.Err(), "list trials")
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *SQLiteStore) getDB() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, errors.New("store is not initialized")
	}
	return s.db, nil
}
