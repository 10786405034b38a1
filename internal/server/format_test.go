package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/dooilabs/context101/internal/course"
	"github.com/dooilabs/context101/internal/session"
)

func TestFormatCourseOverview(t *testing.T) {
	assert.Equal(t, "Lessons: unknown", formatCourseOverview(nil))
	assert.Equal(t, "Lessons: unknown", formatCourseOverview(&course.Overview{}))

	got := formatCourseOverview(&course.Overview{
		Lessons:    []string{"Getting Started", "Types"},
		StepCounts: []int{2, 3},
		TotalSteps: 5,
	})
	assert.Equal(t, "Lessons: Getting Started, Types | Steps per lesson: 2, 3 | Total steps: 5", got)
}

func TestFormatCourseList(t *testing.T) {
	assert.Equal(t, "No courses found.", formatCourseList(nil))

	got := formatCourseList([]course.Course{
		{ID: "go-basics", Title: "Go Basics"},
	})
	assert.Contains(t, got, "Available courses:")
	assert.Contains(t, got, "- Go Basics (go-basics) | Lessons: unknown")
}

func TestFormatStatus(t *testing.T) {
	got := formatStatus(&session.StatusView{
		CourseID:         "go-basics",
		CurrentLessonID:  "types",
		CurrentStepID:    "structs",
		CompletedSteps:   3,
		CompletedLessons: []string{"getting-started"},
		UpdatedAt:        time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	})
	assert.Equal(t, "Course: go-basics\n"+
		"Current lesson: types\n"+
		"Current step: structs\n"+
		"Completed steps: 3\n"+
		"Completed lessons: 1\n"+
		"Updated at: 2026-01-02T03:04:05Z", got)
}

func TestFormatStatusAll(t *testing.T) {
	got := formatStatusAll([]session.StatusView{
		{CourseID: "go-basics", UpdatedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)},
	})
	assert.Contains(t, got, "Course progress:")
	// Empty position fields render as unknown.
	assert.Contains(t, got, "- go-basics | Lesson: unknown | Step: unknown | Completed steps: 0 | Completed lessons: 0 | Updated: 2026-01-02T03:04:05Z")
}
