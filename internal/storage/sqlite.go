package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/san-kum/gridsim/internal/field"
)

const sqliteFile = "runs.db"

var schema = []string{
	`CREATE TABLE IF NOT EXISTS runs(
		id TEXT PRIMARY KEY,
		rule TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		meta TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS snapshots(
		run_id TEXT NOT NULL REFERENCES runs(id),
		seq INTEGER NOT NULL,
		step INTEGER NOT NULL,
		time REAL NOT NULL,
		vals TEXT NOT NULL,
		PRIMARY KEY (run_id, seq)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at)`,
}

// SQLiteStore keeps runs and their snapshots in a single runs.db file.
type SQLiteStore struct {
	baseDir string
	db      *sql.DB
}

func NewSQLiteStore(baseDir string) *SQLiteStore {
	return &SQLiteStore{baseDir: baseDir}
}

func (s *SQLiteStore) Init() error {
	if err := os.MkdirAll(s.baseDir, 0755); err != nil {
		return err
	}
	db, err := sql.Open("sqlite", filepath.Join(s.baseDir, sqliteFile))
	if err != nil {
		return fmt.Errorf("failed to open run database: %w", err)
	}
	db.SetMaxOpenConns(1)

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}

	s.db = db
	return nil
}

func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) Save(meta RunMetadata, history []field.Snapshot) (string, error) {
	prepare(&meta)

	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return "", err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`INSERT INTO runs(id, rule, created_at, meta) VALUES(?, ?, ?, ?)`,
		meta.ID, meta.Rule, meta.Timestamp.UnixNano(), string(metaJSON)); err != nil {
		return "", fmt.Errorf("failed to insert run: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO snapshots(run_id, seq, step, time, vals) VALUES(?, ?, ?, ?, ?)`)
	if err != nil {
		return "", err
	}
	defer stmt.Close()

	for i, snap := range history {
		vals, err := json.Marshal(snap.Values)
		if err != nil {
			return "", err
		}
		if _, err := stmt.Exec(meta.ID, i, snap.Step, snap.Time, string(vals)); err != nil {
			return "", fmt.Errorf("failed to insert snapshot %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}
	return meta.ID, nil
}

func (s *SQLiteStore) List() ([]RunMetadata, error) {
	rows, err := s.db.Query(`SELECT meta FROM runs ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := make([]RunMetadata, 0)
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var meta RunMetadata
		if err := json.Unmarshal([]byte(raw), &meta); err != nil {
			continue
		}
		runs = append(runs, meta)
	}
	return runs, rows.Err()
}

func (s *SQLiteStore) Load(runID string) (*RunMetadata, error) {
	var raw string
	err := s.db.QueryRow(`SELECT meta FROM runs WHERE id = ?`, runID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal([]byte(raw), &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

func (s *SQLiteStore) LoadSnapshots(runID string) ([]field.Snapshot, error) {
	meta, err := s.Load(runID)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.Query(`SELECT step, time, vals FROM snapshots WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	snaps := make([]field.Snapshot, 0)
	for rows.Next() {
		var (
			step int
			t    float64
			raw  string
		)
		if err := rows.Scan(&step, &t, &raw); err != nil {
			return nil, err
		}
		var values []float64
		if err := json.Unmarshal([]byte(raw), &values); err != nil {
			return nil, err
		}
		snaps = append(snaps, field.Snapshot{
			Step:   step,
			Time:   t,
			Shape:  field.Shape(append([]int(nil), meta.Shape...)),
			Width:  meta.Width,
			Values: values,
		})
	}
	return snaps, rows.Err()
}

// Prune deletes runs created before cutoff and returns how many were removed.
func (s *SQLiteStore) Prune(cutoff time.Time) (int, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM snapshots WHERE run_id IN (SELECT id FROM runs WHERE created_at < ?)`, cutoff.UnixNano()); err != nil {
		return 0, err
	}
	res, err := tx.Exec(`DELETE FROM runs WHERE created_at < ?`, cutoff.UnixNano())
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), tx.Commit()
}
