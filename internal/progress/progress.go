// Package progress persists per-course learning state. Two backends
// implement the Store contract: a JSON document on disk (the default)
// and a SQLite database for installs that want transactional writes.
package progress

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// QuizResult records one graded quiz submission for a step. Grading
// happens outside this process; the caller supplies the verdict.
type QuizResult struct {
	StepID        string    `json:"stepId"`
	Question      string    `json:"question,omitempty"`
	CorrectAnswer string    `json:"correctAnswer,omitempty"`
	Answer        string    `json:"answer,omitempty"`
	Correct       bool      `json:"correct"`
	Score         *float64  `json:"score,omitempty"`
	SubmittedAt   time.Time `json:"submittedAt"`
}

// CourseProgress is the persisted state of one course walk.
type CourseProgress struct {
	CourseID         string          `json:"courseId"`
	CurrentLessonID  string          `json:"currentLessonId,omitempty"`
	CurrentStepID    string          `json:"currentStepId,omitempty"`
	CompletedSteps   []string        `json:"completedSteps,omitempty"`
	CompletedLessons []string        `json:"completedLessons,omitempty"`
	QuizResults      []QuizResult    `json:"quizResults,omitempty"`
	StepQuizRequired map[string]bool `json:"stepQuizRequired,omitempty"`
	Completed        bool            `json:"completed,omitempty"`
	UpdatedAt        time.Time       `json:"updatedAt"`
}

// LatestQuizResult returns the most recent result for stepID, scanning
// newest-first. The second return is false when the step has none.
func (p *CourseProgress) LatestQuizResult(stepID string) (QuizResult, bool) {
	for i := len(p.QuizResults) - 1; i >= 0; i-- {
		if p.QuizResults[i].StepID == stepID {
			return p.QuizResults[i], true
		}
	}
	return QuizResult{}, false
}

// HasCompletedStep reports whether stepID appears in CompletedSteps.
func (p *CourseProgress) HasCompletedStep(stepID string) bool {
	for _, id := range p.CompletedSteps {
		if id == stepID {
			return true
		}
	}
	return false
}

// Store is the persistence contract used by the session engine. All
// methods are safe for concurrent use within a single process.
type Store interface {
	// Get returns the stored progress for a course, or nil when none
	// exists. Callers own the returned value.
	Get(courseID string) (*CourseProgress, error)

	// Put stores the full progress record, replacing any prior state.
	Put(p CourseProgress) error

	// Delete removes a course's progress. It reports whether a record
	// existed.
	Delete(courseID string) (bool, error)

	// List returns all stored course progress records.
	List() ([]CourseProgress, error)

	// AppendQuizResult attaches a result to a course. An empty courseID
	// routes the result to the unknown bucket so a submission is never
	// dropped.
	AppendQuizResult(courseID string, r QuizResult) error

	// SetStepQuizRequired marks whether a step gates advancement,
	// creating a minimal record when the course has none yet.
	SetStepQuizRequired(courseID, stepID string, required bool) error

	Close() error
}

// DefaultPath resolves the progress file path in priority order:
// 1. CONTEXT101_PROGRESS environment variable
// 2. ~/.context101/progress.json
func DefaultPath() (string, error) {
	if p := os.Getenv("CONTEXT101_PROGRESS"); p != "" {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".context101", "progress.json"), nil
}

// ensureDir creates the parent directory of path if it doesn't exist.
func ensureDir(path string) error {
	return os.MkdirAll(filepath.Dir(path), 0o755)
}
