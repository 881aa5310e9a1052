// Package results persists per-song validation reports in a SQLite database
// so a benchmark run can be inspected after the fact.
package results

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/pmarks/singalign/internal/validate"
)

const schema = `
CREATE TABLE IF NOT EXISTS validations (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	song_id     TEXT NOT NULL,
	take_id     TEXT,
	generator   TEXT,
	audio_path  TEXT,
	passed      INTEGER NOT NULL,
	report      TEXT NOT NULL,
	created_at  TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_validations_song ON validations(song_id);
`

// Record is one stored validation outcome.
type Record struct {
	SongID    string
	TakeID    string
	Generator string
	AudioPath string
	Report    validate.Report
}

// Summary aggregates a run's outcomes.
type Summary struct {
	Total  int
	Passed int
	Failed int
}

// Store is a SQLite-backed report log. Safe for concurrent use; SQLite
// serializes writers internally.
type Store struct {
	db *sql.DB
}

// Open opens (and initializes) the results database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open results db %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize results db: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save appends one validation record.
func (s *Store) Save(rec Record) error {
	report, err := json.Marshal(rec.Report)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	passed := 0
	if rec.Report.Passed {
		passed = 1
	}
	_, err = s.db.Exec(
		`INSERT INTO validations (song_id, take_id, generator, audio_path, passed, report, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.SongID, rec.TakeID, rec.Generator, rec.AudioPath, passed, string(report),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("insert validation for %s: %w", rec.SongID, err)
	}
	return nil
}

// Summarize counts stored outcomes.
func (s *Store) Summarize() (Summary, error) {
	var sum Summary
	row := s.db.QueryRow(`SELECT COUNT(*), COALESCE(SUM(passed), 0) FROM validations`)
	if err := row.Scan(&sum.Total, &sum.Passed); err != nil {
		return Summary{}, fmt.Errorf("summarize validations: %w", err)
	}
	sum.Failed = sum.Total - sum.Passed
	return sum, nil
}

// Failures returns the stored reports for songs that failed validation.
func (s *Store) Failures() ([]Record, error) {
	rows, err := s.db.Query(
		`SELECT song_id, take_id, generator, audio_path, report FROM validations WHERE passed = 0 ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query failures: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		var report string
		if err := rows.Scan(&rec.SongID, &rec.TakeID, &rec.Generator, &rec.AudioPath, &report); err != nil {
			return nil, fmt.Errorf("scan failure row: %w", err)
		}
		if err := json.Unmarshal([]byte(report), &rec.Report); err != nil {
			return nil, fmt.Errorf("parse stored report for %s: %w", rec.SongID, err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
