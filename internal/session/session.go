// Package session tracks a user's position inside a course. A session
// is an in-memory cursor over the course's flattened step list, backed
// by the progress store so a restart resumes where the user left off.
package session

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/dooilabs/context101/internal/course"
)

// FlatStep is one entry of a session's flattened step list, carrying
// enough lesson context to render headers without refetching the tree.
type FlatStep struct {
	StepID      string
	StepTitle   string
	LessonID    string
	LessonTitle string
}

// Session is the in-memory walk state for one course. One session
// exists per course per process; the engine guards access with its own
// mutex, so Session itself carries no locking.
type Session struct {
	ID          string
	CourseID    string
	CourseTitle string
	Steps       []FlatStep
	Cursor      int
	UpdatedAt   time.Time

	// QuizRequired tracks which served steps contained quiz markers.
	QuizRequired map[string]bool
}

func newSession(courseID, courseTitle string, steps []FlatStep) *Session {
	return &Session{
		ID:           uuid.NewString(),
		CourseID:     courseID,
		CourseTitle:  courseTitle,
		Steps:        steps,
		UpdatedAt:    time.Now(),
		QuizRequired: map[string]bool{},
	}
}

// Current returns the step under the cursor. The second return is
// false when the session has no steps.
func (s *Session) Current() (FlatStep, bool) {
	if s.Cursor < 0 || s.Cursor >= len(s.Steps) {
		return FlatStep{}, false
	}
	return s.Steps[s.Cursor], true
}

// hasLesson reports whether any flattened step belongs to lessonID.
func hasLesson(steps []FlatStep, lessonID string) bool {
	for _, fs := range steps {
		if fs.LessonID == lessonID {
			return true
		}
	}
	return false
}

// indexOf returns the position of stepID in the flattened list, or -1.
func (s *Session) indexOf(stepID string) int {
	for i, fs := range s.Steps {
		if fs.StepID == stepID {
			return i
		}
	}
	return -1
}

// flatten turns a lesson/step tree into the session's step list,
// ordered by lesson rank then step rank. Providers are not trusted to
// deliver arrays pre-sorted; the sort is stable so ties keep the
// provider's order.
func flatten(tree *course.Tree) []FlatStep {
	lessons := make([]course.Lesson, len(tree.Lessons))
	copy(lessons, tree.Lessons)
	sort.SliceStable(lessons, func(i, j int) bool {
		return lessons[i].Order < lessons[j].Order
	})

	var steps []FlatStep
	for _, lesson := range lessons {
		ordered := make([]course.Step, len(lesson.Steps))
		copy(ordered, lesson.Steps)
		sort.SliceStable(ordered, func(i, j int) bool {
			return ordered[i].Order < ordered[j].Order
		})
		for _, step := range ordered {
			steps = append(steps, FlatStep{
				StepID:      step.ID,
				StepTitle:   step.Title,
				LessonID:    lesson.ID,
				LessonTitle: lesson.Title,
			})
		}
	}
	return steps
}

// completedLessons derives the lessons fully behind the cursor: a
// lesson is completed when its last flattened index is strictly less
// than cursor. Returned in course order.
func completedLessons(steps []FlatStep, cursor int) []string {
	lastIndex := map[string]int{}
	var order []string
	for i, fs := range steps {
		if _, ok := lastIndex[fs.LessonID]; !ok {
			order = append(order, fs.LessonID)
		}
		lastIndex[fs.LessonID] = i
	}

	var lessons []string
	for _, id := range order {
		if lastIndex[id] < cursor {
			lessons = append(lessons, id)
		}
	}
	return lessons
}
