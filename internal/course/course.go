// Package course defines the domain types shared by the content
// providers and the session engine. Courses, lessons, and steps are
// read-only from the session's point of view; they are sourced
// per-request from a content provider and never cached beyond a single
// session's flattened step list.
package course

import "time"

// Status is the publication state of a course.
type Status string

const (
	StatusActive   Status = "active"
	StatusDraft    Status = "draft"
	StatusArchived Status = "archived"
)

// NormalizeStatus maps unknown status strings to StatusActive.
func NormalizeStatus(s string) Status {
	switch Status(s) {
	case StatusDraft, StatusArchived:
		return Status(s)
	default:
		return StatusActive
	}
}

// Overview summarizes a course's structure without fetching content.
type Overview struct {
	Lessons    []string `json:"lessons"`
	LessonIDs  []string `json:"lessonIds,omitempty"`
	StepCounts []int    `json:"stepCounts"`
	TotalSteps int      `json:"totalSteps,omitempty"`
}

// Course is a catalog entry.
type Course struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Tags        []string  `json:"tags"`
	Version     string    `json:"version,omitempty"`
	Status      Status    `json:"status"`
	UpdatedAt   time.Time `json:"updatedAt"`
	Overview    *Overview `json:"overview,omitempty"`
}

// Step is the smallest addressable unit of content. Content is fetched
// lazily and is not part of the tree.
type Step struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Order    int    `json:"order"`
	LessonID string `json:"lessonId"`
}

// Lesson is an ordered group of steps within a course.
type Lesson struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Order int    `json:"order"`
	Steps []Step `json:"steps"`
}

// Tree is a course's full lesson/step structure, ordered by the
// provider-assigned ranks. It is the input to session flattening.
type Tree struct {
	CourseID string   `json:"courseId"`
	Lessons  []Lesson `json:"lessons"`
}

// ListFilter narrows a catalog listing.
type ListFilter struct {
	Query  string
	Tag    string
	Status Status
	Limit  int
	Offset int
}

const (
	minListLimit = 1
	maxListLimit = 100
)

// Clamped returns a copy with Limit forced into [1,100] (zero means the
// default of 20) and Offset forced non-negative.
func (f ListFilter) Clamped() ListFilter {
	if f.Limit == 0 {
		f.Limit = 20
	}
	if f.Limit < minListLimit {
		f.Limit = minListLimit
	}
	if f.Limit > maxListLimit {
		f.Limit = maxListLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}
