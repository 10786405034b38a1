package content

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dooilabs/context101/internal/course"
)

// writeFixture lays out two courses: one with numbered lesson dirs and
// one with flat step files.
func writeFixture(t *testing.T) string {
	t.Helper()
	base := t.TempDir()

	files := map[string]string{
		"01-go-basics/01-getting-started/01-install.md": "# Install\nInstall Go.",
		"01-go-basics/01-getting-started/02-hello.md":   "# Hello\nHello world.",
		"01-go-basics/02-types/01-structs.md":           "# Structs\nDefine a struct.",
		"02-quick-tour/01-overview.md":                  "# Overview\nA quick tour.",
		"02-quick-tour/02-wrap-up.md":                   "# Wrap Up\nDone.",
	}
	for name, body := range files {
		path := filepath.Join(base, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	}
	return base
}

func TestNormalizeID(t *testing.T) {
	assert.Equal(t, "go-basics", NormalizeID("01-go-basics"))
	assert.Equal(t, "hello", NormalizeID("002-hello"))
	assert.Equal(t, "no-prefix", NormalizeID("no-prefix"))
}

func TestTitleFromID(t *testing.T) {
	assert.Equal(t, "Go Basics", TitleFromID("01-go-basics"))
	assert.Equal(t, "Error Handling", TitleFromID("error-handling"))
	assert.Equal(t, "Hello", TitleFromID("hello"))
}

func TestLocalListCourses(t *testing.T) {
	l := NewLocal(writeFixture(t))

	courses, err := l.ListCourses(context.Background(), course.ListFilter{})
	require.NoError(t, err)
	require.Len(t, courses, 2)
	assert.Equal(t, "go-basics", courses[0].ID)
	assert.Equal(t, "Go Basics", courses[0].Title)
	assert.Equal(t, "quick-tour", courses[1].ID)

	// Query narrows by id/title substring.
	courses, err = l.ListCourses(context.Background(), course.ListFilter{Query: "tour"})
	require.NoError(t, err)
	require.Len(t, courses, 1)
	assert.Equal(t, "quick-tour", courses[0].ID)
}

func TestLocalGetOverview(t *testing.T) {
	l := NewLocal(writeFixture(t))

	tree, err := l.GetOverview(context.Background(), "go-basics")
	require.NoError(t, err)
	require.Len(t, tree.Lessons, 2)
	assert.Equal(t, "getting-started", tree.Lessons[0].ID)
	require.Len(t, tree.Lessons[0].Steps, 2)
	assert.Equal(t, "install", tree.Lessons[0].Steps[0].ID)
	assert.Equal(t, "hello", tree.Lessons[0].Steps[1].ID)
	assert.Equal(t, "types", tree.Lessons[1].ID)
}

func TestLocalFlatLayoutBecomesMainLesson(t *testing.T) {
	l := NewLocal(writeFixture(t))

	tree, err := l.GetOverview(context.Background(), "quick-tour")
	require.NoError(t, err)
	require.Len(t, tree.Lessons, 1)
	assert.Equal(t, "main", tree.Lessons[0].ID)
	require.Len(t, tree.Lessons[0].Steps, 2)
	assert.Equal(t, "overview", tree.Lessons[0].Steps[0].ID)
}

func TestLocalResolveStart(t *testing.T) {
	l := NewLocal(writeFixture(t))
	ctx := context.Background()

	t.Run("defaults to first step", func(t *testing.T) {
		res, err := l.ResolveStart(ctx, StartRequest{CourseID: "go-basics"})
		require.NoError(t, err)
		assert.Equal(t, "install", res.StepID)
		assert.Equal(t, "getting-started", res.LessonID)
		assert.Contains(t, res.Content, "Install Go.")
	})

	t.Run("lesson start", func(t *testing.T) {
		res, err := l.ResolveStart(ctx, StartRequest{CourseID: "go-basics", LessonID: "types"})
		require.NoError(t, err)
		assert.Equal(t, "structs", res.StepID)
	})

	t.Run("explicit step", func(t *testing.T) {
		res, err := l.ResolveStart(ctx, StartRequest{CourseID: "go-basics", StepID: "hello"})
		require.NoError(t, err)
		assert.Equal(t, "hello", res.StepID)
		assert.Equal(t, "Go Basics", res.CourseTitle)
	})

	t.Run("missing course", func(t *testing.T) {
		_, err := l.ResolveStart(ctx, StartRequest{CourseID: "nope"})
		require.Error(t, err)
	})
}

func TestLocalNextStep(t *testing.T) {
	l := NewLocal(writeFixture(t))
	ctx := context.Background()

	t.Run("within lesson", func(t *testing.T) {
		res, err := l.NextStep(ctx, NextRequest{CourseID: "go-basics", CurrentStepID: "install"})
		require.NoError(t, err)
		assert.Equal(t, NextOK, res.Status)
		assert.Equal(t, "hello", res.StepID)
	})

	t.Run("crosses lesson boundary", func(t *testing.T) {
		res, err := l.NextStep(ctx, NextRequest{CourseID: "go-basics", CurrentStepID: "hello"})
		require.NoError(t, err)
		assert.Equal(t, "structs", res.StepID)
		assert.Equal(t, "types", res.LessonID)
	})

	t.Run("last step completes", func(t *testing.T) {
		res, err := l.NextStep(ctx, NextRequest{CourseID: "go-basics", CurrentStepID: "structs"})
		require.NoError(t, err)
		assert.Equal(t, NextCompleted, res.Status)
	})

	t.Run("unknown step", func(t *testing.T) {
		_, err := l.NextStep(ctx, NextRequest{CourseID: "go-basics", CurrentStepID: "ghost"})
		require.Error(t, err)
	})
}

func TestLocalGetStep(t *testing.T) {
	l := NewLocal(writeFixture(t))

	body, err := l.GetStep(context.Background(), "quick-tour", "main", "wrap-up")
	require.NoError(t, err)
	assert.Contains(t, body, "Done.")

	_, err = l.GetStep(context.Background(), "quick-tour", "main", "missing")
	require.Error(t, err)
}
