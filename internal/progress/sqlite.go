package progress

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	// Pure Go SQLite driver (no CGO).
	_ "modernc.org/sqlite"
)

// SQLiteStore persists progress in a SQLite database. Each course maps
// to one row holding the serialized CourseProgress document; results
// with no resolvable course land in a separate table.
type SQLiteStore struct {
	mu sync.Mutex
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS course_progress (
	course_id  TEXT PRIMARY KEY,
	doc        TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS unknown_quiz_results (
	id  INTEGER PRIMARY KEY AUTOINCREMENT,
	doc TEXT NOT NULL
);
`

// OpenSQLite creates a SQLite-backed store at dsn, applying the usual
// single-user pragmas and creating the schema if needed.
func OpenSQLite(dsn string) (*SQLiteStore, error) {
	if err := ensureDir(dsn); err != nil {
		return nil, fmt.Errorf("create database dir: %w", err)
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// applyPragmas configures SQLite for single-user performance.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	return nil
}

func (s *SQLiteStore) getLocked(courseID string) (*CourseProgress, error) {
	var doc string
	err := s.db.QueryRow(
		"SELECT doc FROM course_progress WHERE course_id = ?", courseID,
	).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query progress: %w", err)
	}
	var p CourseProgress
	if err := json.Unmarshal([]byte(doc), &p); err != nil {
		return nil, fmt.Errorf("decode progress for %q: %w", courseID, err)
	}
	return &p, nil
}

func (s *SQLiteStore) putLocked(p CourseProgress) error {
	doc, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode progress: %w", err)
	}
	_, err = s.db.Exec(`
		INSERT INTO course_progress (course_id, doc, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(course_id) DO UPDATE SET doc = excluded.doc, updated_at = excluded.updated_at`,
		p.CourseID, string(doc), p.UpdatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("store progress: %w", err)
	}
	return nil
}

// Get implements Store.
func (s *SQLiteStore) Get(courseID string) (*CourseProgress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getLocked(courseID)
}

// Put implements Store.
func (s *SQLiteStore) Put(p CourseProgress) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.putLocked(p)
}

// Delete implements Store.
func (s *SQLiteStore) Delete(courseID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec("DELETE FROM course_progress WHERE course_id = ?", courseID)
	if err != nil {
		return false, fmt.Errorf("delete progress: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// List implements Store.
func (s *SQLiteStore) List() ([]CourseProgress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query("SELECT doc FROM course_progress ORDER BY course_id")
	if err != nil {
		return nil, fmt.Errorf("query progress: %w", err)
	}
	defer rows.Close()

	var out []CourseProgress
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, err
		}
		var p CourseProgress
		if err := json.Unmarshal([]byte(doc), &p); err != nil {
			return nil, fmt.Errorf("decode progress: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// AppendQuizResult implements Store.
func (s *SQLiteStore) AppendQuizResult(courseID string, r QuizResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if courseID == "" {
		doc, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("encode quiz result: %w", err)
		}
		if _, err := s.db.Exec(
			"INSERT INTO unknown_quiz_results (doc) VALUES (?)", string(doc),
		); err != nil {
			return fmt.Errorf("store quiz result: %w", err)
		}
		return nil
	}

	p, err := s.getLocked(courseID)
	if err != nil {
		return err
	}
	if p == nil {
		p = &CourseProgress{CourseID: courseID}
	}
	p.QuizResults = append(p.QuizResults, r)
	p.UpdatedAt = r.SubmittedAt
	return s.putLocked(*p)
}

// SetStepQuizRequired implements Store.
func (s *SQLiteStore) SetStepQuizRequired(courseID, stepID string, required bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.getLocked(courseID)
	if err != nil {
		return err
	}
	if p == nil {
		p = &CourseProgress{CourseID: courseID}
	}
	if p.StepQuizRequired == nil {
		p.StepQuizRequired = map[string]bool{}
	}
	p.StepQuizRequired[stepID] = required
	return s.putLocked(*p)
}

// UnknownQuizResults returns results recorded without a resolvable
// course, oldest first.
func (s *SQLiteStore) UnknownQuizResults() ([]QuizResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query("SELECT doc FROM unknown_quiz_results ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("query quiz results: %w", err)
	}
	defer rows.Close()

	var out []QuizResult
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, err
		}
		var r QuizResult
		if err := json.Unmarshal([]byte(doc), &r); err != nil {
			return nil, fmt.Errorf("decode quiz result: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
