// Package content resolves course structure and step content. Two
// implementations exist: a remote HTTP client for the course API and a
// local filesystem provider, plus a fallback that tries the remote
// first and deterministically falls back to local on any failure.
package content

import (
	"context"
	"fmt"

	"github.com/dooilabs/context101/internal/course"
)

// StartRequest asks the provider to resolve the step a course walk
// should begin at. LessonID and StepID are optional; when both are
// empty the provider picks the first step of the course.
type StartRequest struct {
	CourseID string
	LessonID string
	StepID   string
}

// StartResult is the resolved starting position with its content.
type StartResult struct {
	CourseID    string
	CourseTitle string
	LessonID    string
	LessonTitle string
	StepID      string
	StepTitle   string
	Content     string
}

// NextRequest asks the provider for the authoritative step after
// CurrentStepID. NextStepID is the locally expected successor; the
// provider may disagree when content changed server-side.
type NextRequest struct {
	CourseID      string
	CurrentStepID string
	NextStepID    string
}

// NextStatus distinguishes a normal advance from course completion.
type NextStatus string

const (
	NextOK        NextStatus = "ok"
	NextCompleted NextStatus = "completed"
)

// NextResult is the provider's answer to a NextRequest.
type NextResult struct {
	CourseID string
	LessonID string
	StepID   string
	Content  string
	Status   NextStatus
}

// Provider is the content source consumed by the session engine.
// Errors from any method propagate to the caller unmodified; the
// engine performs no retries of its own.
type Provider interface {
	// ListCourses returns the catalog, narrowed by the filter.
	ListCourses(ctx context.Context, f course.ListFilter) ([]course.Course, error)

	// GetOverview returns the full ordered lesson/step tree.
	GetOverview(ctx context.Context, courseID string) (*course.Tree, error)

	// GetStep returns the textual content of a single step.
	GetStep(ctx context.Context, courseID, lessonID, stepID string) (string, error)

	// ResolveStart resolves a start/resume position and its content.
	ResolveStart(ctx context.Context, req StartRequest) (*StartResult, error)

	// NextStep resolves the authoritative next step.
	NextStep(ctx context.Context, req NextRequest) (*NextResult, error)
}

// APIError carries the upstream status and body of a failed course API
// request. The session engine neither retries nor suppresses these.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("course API request failed: %d %s", e.Status, e.Body)
}
