package session

import (
	"errors"
	"fmt"
)

// ErrNoSession indicates no active or stored progress for the course.
var ErrNoSession = errors.New("no course progress found")

// NotFoundError reports a missing course, lesson, or step.
type NotFoundError struct {
	Kind string // "course", "lesson", or "step"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

// EmptyCourseError reports a course whose overview contains no steps.
type EmptyCourseError struct {
	CourseID string
}

func (e *EmptyCourseError) Error() string {
	return fmt.Sprintf("course %q has no content", e.CourseID)
}

// QuizGateReason explains why the quiz gate blocked an advance.
type QuizGateReason string

const (
	// QuizMissing means the gated step has no recorded result yet.
	QuizMissing QuizGateReason = "missing"
	// QuizIncorrect means the latest recorded result was wrong.
	QuizIncorrect QuizGateReason = "incorrect"
)

// QuizGateError blocks advancement past a step that requires a passed
// quiz. The latest recorded result wins; older failures don't matter.
type QuizGateError struct {
	StepID string
	Reason QuizGateReason
}

func (e *QuizGateError) Error() string {
	if e.Reason == QuizIncorrect {
		return fmt.Sprintf("quiz answer for step %q is incorrect", e.StepID)
	}
	return fmt.Sprintf("quiz answer required for step %q", e.StepID)
}
