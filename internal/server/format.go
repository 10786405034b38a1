package server

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dooilabs/context101/internal/course"
	"github.com/dooilabs/context101/internal/session"
)

func formatCourseOverview(o *course.Overview) string {
	if o == nil || len(o.Lessons) == 0 {
		return "Lessons: unknown"
	}
	counts := make([]string, len(o.StepCounts))
	for i, n := range o.StepCounts {
		counts[i] = strconv.Itoa(n)
	}
	s := "Lessons: " + strings.Join(o.Lessons, ", ") +
		" | Steps per lesson: " + strings.Join(counts, ", ")
	if o.TotalSteps > 0 {
		s += fmt.Sprintf(" | Total steps: %d", o.TotalSteps)
	}
	return s
}

func formatCourseList(courses []course.Course) string {
	if len(courses) == 0 {
		return "No courses found."
	}
	lines := []string{"Available courses:", ""}
	for _, c := range courses {
		lines = append(lines, fmt.Sprintf("- %s (%s) | %s", c.Title, c.ID, formatCourseOverview(c.Overview)))
	}
	return strings.Join(lines, "\n")
}

func formatStatus(v *session.StatusView) string {
	return strings.Join([]string{
		"Course: " + v.CourseID,
		"Current lesson: " + v.CurrentLessonID,
		"Current step: " + v.CurrentStepID,
		fmt.Sprintf("Completed steps: %d", v.CompletedSteps),
		fmt.Sprintf("Completed lessons: %d", len(v.CompletedLessons)),
		"Updated at: " + v.UpdatedAt.Format(time.RFC3339),
	}, "\n")
}

func formatStatusAll(views []session.StatusView) string {
	lines := []string{"Course progress:", ""}
	for _, v := range views {
		lessonID := v.CurrentLessonID
		if lessonID == "" {
			lessonID = "unknown"
		}
		stepID := v.CurrentStepID
		if stepID == "" {
			stepID = "unknown"
		}
		lines = append(lines, strings.Join([]string{
			"- " + v.CourseID,
			"Lesson: " + lessonID,
			"Step: " + stepID,
			fmt.Sprintf("Completed steps: %d", v.CompletedSteps),
			fmt.Sprintf("Completed lessons: %d", len(v.CompletedLessons)),
			"Updated: " + v.UpdatedAt.Format(time.RFC3339),
		}, " | "))
	}
	return strings.Join(lines, "\n")
}
