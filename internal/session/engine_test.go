package session

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dooilabs/context101/internal/content"
	"github.com/dooilabs/context101/internal/course"
	"github.com/dooilabs/context101/internal/progress"
)

// fakeProvider serves a fixed tree from memory. The tree can be
// swapped mid-test to simulate upstream content changes.
type fakeProvider struct {
	tree     *course.Tree
	contents map[string]string
	nextFn   func(req content.NextRequest) (*content.NextResult, error)
}

func (f *fakeProvider) ListCourses(ctx context.Context, _ course.ListFilter) ([]course.Course, error) {
	return nil, nil
}

func (f *fakeProvider) GetOverview(ctx context.Context, courseID string) (*course.Tree, error) {
	if f.tree == nil || f.tree.CourseID != courseID {
		return nil, &content.APIError{Status: 404, Body: "course not found"}
	}
	return f.tree, nil
}

func (f *fakeProvider) GetStep(ctx context.Context, courseID, lessonID, stepID string) (string, error) {
	body, ok := f.contents[stepID]
	if !ok {
		return "", fmt.Errorf("no content for step %q", stepID)
	}
	return body, nil
}

func (f *fakeProvider) ResolveStart(ctx context.Context, req content.StartRequest) (*content.StartResult, error) {
	tree, err := f.GetOverview(ctx, req.CourseID)
	if err != nil {
		return nil, err
	}
	for _, lesson := range tree.Lessons {
		for _, step := range lesson.Steps {
			match := (req.StepID != "" && step.ID == req.StepID) ||
				(req.StepID == "" && req.LessonID != "" && lesson.ID == req.LessonID) ||
				(req.StepID == "" && req.LessonID == "")
			if !match {
				continue
			}
			body, err := f.GetStep(ctx, req.CourseID, lesson.ID, step.ID)
			if err != nil {
				return nil, err
			}
			return &content.StartResult{
				CourseID:    tree.CourseID,
				CourseTitle: "Test Course",
				LessonID:    lesson.ID,
				LessonTitle: lesson.Title,
				StepID:      step.ID,
				StepTitle:   step.Title,
				Content:     body,
			}, nil
		}
	}
	return nil, &content.APIError{Status: 404, Body: "step not found"}
}

func (f *fakeProvider) NextStep(ctx context.Context, req content.NextRequest) (*content.NextResult, error) {
	if f.nextFn != nil {
		return f.nextFn(req)
	}
	tree, err := f.GetOverview(ctx, req.CourseID)
	if err != nil {
		return nil, err
	}
	var flat []course.Step
	for _, lesson := range tree.Lessons {
		flat = append(flat, lesson.Steps...)
	}
	for i, step := range flat {
		if step.ID != req.CurrentStepID {
			continue
		}
		if i+1 >= len(flat) {
			return &content.NextResult{
				CourseID: req.CourseID,
				StepID:   step.ID,
				Status:   content.NextCompleted,
			}, nil
		}
		next := flat[i+1]
		return &content.NextResult{
			CourseID: req.CourseID,
			LessonID: next.LessonID,
			StepID:   next.ID,
			Content:  f.contents[next.ID],
			Status:   content.NextOK,
		}, nil
	}
	return nil, fmt.Errorf("step %q not found", req.CurrentStepID)
}

// testTree builds a course with the given steps per lesson. Step ids
// are "lN-sM" and content is plain prose with no quiz markers.
func testTree(courseID string, stepsPerLesson ...int) (*course.Tree, map[string]string) {
	tree := &course.Tree{CourseID: courseID}
	contents := map[string]string{}
	for li, n := range stepsPerLesson {
		lesson := course.Lesson{
			ID:    fmt.Sprintf("l%d", li+1),
			Title: fmt.Sprintf("Lesson %d", li+1),
			Order: li + 1,
		}
		for si := 0; si < n; si++ {
			id := fmt.Sprintf("l%d-s%d", li+1, si+1)
			lesson.Steps = append(lesson.Steps, course.Step{
				ID:       id,
				Title:    fmt.Sprintf("Step %d", si+1),
				Order:    si + 1,
				LessonID: lesson.ID,
			})
			contents[id] = "Some step content for " + id + "."
		}
		tree.Lessons = append(tree.Lessons, lesson)
	}
	return tree, contents
}

func newTestEngine(t *testing.T, p content.Provider) (*Engine, *progress.FileStore) {
	t.Helper()
	store := progress.NewFileStore(filepath.Join(t.TempDir(), "progress.json"))
	return NewEngine(p, store, nil), store
}

func TestAdvanceWalksWholeCourse(t *testing.T) {
	tree, contents := testTree("go-basics", 2, 2)
	p := &fakeProvider{tree: tree, contents: contents}
	engine, store := newTestEngine(t, p)
	ctx := context.Background()

	view, err := engine.Start(ctx, content.StartRequest{CourseID: "go-basics"}, true)
	require.NoError(t, err)
	assert.Equal(t, "l1-s1", view.StepID)
	assert.Equal(t, "l1", view.LessonID)

	seen := []string{view.StepID}
	for {
		res, err := engine.Advance(ctx, "go-basics")
		require.NoError(t, err)
		if res.Completed {
			break
		}
		seen = append(seen, res.Step.StepID)
	}
	assert.Equal(t, []string{"l1-s1", "l1-s2", "l2-s1", "l2-s2"}, seen)

	// The cursor rests on the final step; completed steps are the ones
	// strictly behind it.
	stored, err := store.Get("go-basics")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.True(t, stored.Completed)
	assert.Equal(t, []string{"l1-s1", "l1-s2", "l2-s1"}, stored.CompletedSteps)
	assert.Equal(t, []string{"l1"}, stored.CompletedLessons)
}

func TestAdvanceCompletionIsIdempotent(t *testing.T) {
	tree, contents := testTree("tiny", 1)
	p := &fakeProvider{tree: tree, contents: contents}
	engine, _ := newTestEngine(t, p)
	ctx := context.Background()

	_, err := engine.Start(ctx, content.StartRequest{CourseID: "tiny"}, true)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		res, err := engine.Advance(ctx, "tiny")
		require.NoError(t, err)
		assert.True(t, res.Completed)
	}
}

func TestEnsureSessionEmptyCourse(t *testing.T) {
	tree := &course.Tree{CourseID: "hollow"}
	p := &fakeProvider{tree: tree, contents: map[string]string{}}
	engine, store := newTestEngine(t, p)

	_, err := engine.EnsureSession(context.Background(), "hollow", true)
	var empty *EmptyCourseError
	require.ErrorAs(t, err, &empty)
	assert.Equal(t, "hollow", empty.CourseID)

	stored, err := store.Get("hollow")
	require.NoError(t, err)
	assert.Nil(t, stored)
}

func TestEnsureSessionResumesStoredCursor(t *testing.T) {
	tree, contents := testTree("long", 5, 5)
	p := &fakeProvider{tree: tree, contents: contents}
	store := progress.NewFileStore(filepath.Join(t.TempDir(), "progress.json"))

	require.NoError(t, store.Put(progress.CourseProgress{
		CourseID:       "long",
		CurrentStepID:  "l1-s4",
		CompletedSteps: []string{"l1-s1", "l1-s2", "l1-s3"},
		UpdatedAt:      time.Now().Add(-time.Hour),
	}))

	engine := NewEngine(p, store, nil)
	sess, err := engine.EnsureSession(context.Background(), "long", true)
	require.NoError(t, err)
	assert.Equal(t, 3, sess.Cursor)

	cur, ok := sess.Current()
	require.True(t, ok)
	assert.Equal(t, "l1-s4", cur.StepID)
}

func TestEnsureSessionUnknownStoredStepFallsBackToStart(t *testing.T) {
	tree, contents := testTree("drift", 2)
	p := &fakeProvider{tree: tree, contents: contents}
	store := progress.NewFileStore(filepath.Join(t.TempDir(), "progress.json"))

	require.NoError(t, store.Put(progress.CourseProgress{
		CourseID:      "drift",
		CurrentStepID: "removed-step",
		UpdatedAt:     time.Now(),
	}))

	engine := NewEngine(p, store, nil)
	sess, err := engine.EnsureSession(context.Background(), "drift", true)
	require.NoError(t, err)
	assert.Equal(t, 0, sess.Cursor)
}

func TestGetSessionNoProgress(t *testing.T) {
	tree, contents := testTree("fresh", 2)
	p := &fakeProvider{tree: tree, contents: contents}
	engine, _ := newTestEngine(t, p)

	_, err := engine.GetSession(context.Background(), "fresh")
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestJumpToLessonMissing(t *testing.T) {
	tree, contents := testTree("jumpy", 2, 2)
	p := &fakeProvider{tree: tree, contents: contents}
	engine, _ := newTestEngine(t, p)
	ctx := context.Background()

	view, err := engine.Start(ctx, content.StartRequest{CourseID: "jumpy"}, true)
	require.NoError(t, err)
	require.Equal(t, "l1-s1", view.StepID)

	_, err = engine.JumpToLesson(ctx, "jumpy", "l9")
	var notFound *NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "lesson", notFound.Kind)

	// Session untouched by the failed jump.
	sess, err := engine.GetSession(ctx, "jumpy")
	require.NoError(t, err)
	assert.Equal(t, 0, sess.Cursor)
}

func TestJumpToLesson(t *testing.T) {
	tree, contents := testTree("jumpy2", 2, 3)
	p := &fakeProvider{tree: tree, contents: contents}
	engine, _ := newTestEngine(t, p)

	view, err := engine.JumpToLesson(context.Background(), "jumpy2", "l2")
	require.NoError(t, err)
	assert.Equal(t, "l2-s1", view.StepID)
	assert.Equal(t, "l2", view.LessonID)
}

func TestClearSessionTwice(t *testing.T) {
	tree, contents := testTree("clearable", 2)
	p := &fakeProvider{tree: tree, contents: contents}
	engine, store := newTestEngine(t, p)
	ctx := context.Background()

	_, err := engine.Start(ctx, content.StartRequest{CourseID: "clearable"}, true)
	require.NoError(t, err)

	existed, err := engine.ClearSession("clearable")
	require.NoError(t, err)
	assert.True(t, existed)

	stored, err := store.Get("clearable")
	require.NoError(t, err)
	assert.Nil(t, stored)

	existed, err = engine.ClearSession("clearable")
	require.NoError(t, err)
	assert.False(t, existed)
}

func TestQuizGateBlocksAndLatestResultWins(t *testing.T) {
	tree, contents := testTree("quizzed", 3)
	contents["l1-s1"] = "Intro text.\n\n## Quiz\n\nWhat is 2+2?\n\nAnswer: 4\n"
	p := &fakeProvider{tree: tree, contents: contents}
	engine, _ := newTestEngine(t, p)
	ctx := context.Background()

	view, err := engine.Start(ctx, content.StartRequest{CourseID: "quizzed"}, true)
	require.NoError(t, err)
	assert.True(t, view.QuizGated)

	// No result recorded yet.
	_, err = engine.Advance(ctx, "quizzed")
	var gate *QuizGateError
	require.ErrorAs(t, err, &gate)
	assert.Equal(t, QuizMissing, gate.Reason)

	// Wrong answer.
	_, err = engine.RecordQuizResult(ctx, "quizzed", progress.QuizResult{
		StepID: "l1-s1", Answer: "5", Correct: false,
	})
	require.NoError(t, err)
	_, err = engine.Advance(ctx, "quizzed")
	require.ErrorAs(t, err, &gate)
	assert.Equal(t, QuizIncorrect, gate.Reason)

	// Correct answer on retry unlocks the gate.
	_, err = engine.RecordQuizResult(ctx, "quizzed", progress.QuizResult{
		StepID: "l1-s1", Answer: "4", Correct: true,
	})
	require.NoError(t, err)
	res, err := engine.Advance(ctx, "quizzed")
	require.NoError(t, err)
	assert.Equal(t, "l1-s2", res.Step.StepID)
}

func TestAdvanceFollowsProviderMismatch(t *testing.T) {
	tree, contents := testTree("shifting", 2)
	contents["bonus"] = "Fresh content added upstream."
	p := &fakeProvider{tree: tree, contents: contents}
	engine, _ := newTestEngine(t, p)
	ctx := context.Background()

	_, err := engine.Start(ctx, content.StartRequest{CourseID: "shifting"}, true)
	require.NoError(t, err)

	// Upstream inserted a step; the provider answers with a step the
	// session has never seen and the overview now includes it.
	newTree, _ := testTree("shifting", 2)
	steps := newTree.Lessons[0].Steps
	newTree.Lessons[0].Steps = []course.Step{
		steps[0],
		{ID: "bonus", Title: "Bonus", Order: 2, LessonID: "l1"},
		steps[1],
	}
	p.tree = newTree
	p.nextFn = func(req content.NextRequest) (*content.NextResult, error) {
		return &content.NextResult{
			CourseID: "shifting",
			LessonID: "l1",
			StepID:   "bonus",
			Content:  contents["bonus"],
			Status:   content.NextOK,
		}, nil
	}

	res, err := engine.Advance(ctx, "shifting")
	require.NoError(t, err)
	assert.Equal(t, "bonus", res.Step.StepID)
	assert.Equal(t, contents["bonus"], res.Step.Content)
}

func TestFindCourseIDByStepID(t *testing.T) {
	tree, contents := testTree("findable", 2)
	p := &fakeProvider{tree: tree, contents: contents}
	engine, _ := newTestEngine(t, p)
	ctx := context.Background()

	_, err := engine.Start(ctx, content.StartRequest{CourseID: "findable"}, true)
	require.NoError(t, err)

	id, err := engine.FindCourseIDByStepID("l1-s2")
	require.NoError(t, err)
	assert.Equal(t, "findable", id)

	id, err = engine.FindCourseIDByStepID("nope")
	require.NoError(t, err)
	assert.Equal(t, "", id)
}

func TestRecordQuizResultUnknownCourse(t *testing.T) {
	tree, contents := testTree("known", 1)
	p := &fakeProvider{tree: tree, contents: contents}
	engine, store := newTestEngine(t, p)

	resolved, err := engine.RecordQuizResult(context.Background(), "", progress.QuizResult{
		StepID: "orphan-step", Answer: "x", Correct: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "", resolved)

	unknown, err := store.UnknownQuizResults()
	require.NoError(t, err)
	require.Len(t, unknown, 1)
	assert.Equal(t, "orphan-step", unknown[0].StepID)
}

func TestStatusDerivesCompletedLessons(t *testing.T) {
	tree, contents := testTree("derive", 2, 2)
	p := &fakeProvider{tree: tree, contents: contents}
	engine, _ := newTestEngine(t, p)
	ctx := context.Background()

	_, err := engine.Start(ctx, content.StartRequest{CourseID: "derive"}, true)
	require.NoError(t, err)
	for i := 0; i < 2; i++ {
		_, err = engine.Advance(ctx, "derive")
		require.NoError(t, err)
	}

	view, err := engine.Status(ctx, "derive")
	require.NoError(t, err)
	assert.Equal(t, "l2-s1", view.CurrentStepID)
	assert.Equal(t, 2, view.CompletedSteps)
	assert.Equal(t, []string{"l1"}, view.CompletedLessons)
	assert.False(t, view.Completed)
}

func TestCompletedLessons(t *testing.T) {
	steps := []FlatStep{
		{StepID: "a1", LessonID: "a"},
		{StepID: "a2", LessonID: "a"},
		{StepID: "b1", LessonID: "b"},
	}
	// A lesson is complete once its last flattened index is behind the
	// cursor.
	assert.Nil(t, completedLessons(steps, 0))
	assert.Nil(t, completedLessons(steps, 1))
	assert.Equal(t, []string{"a"}, completedLessons(steps, 2))
	assert.Equal(t, []string{"a", "b"}, completedLessons(steps, 3))
}

func TestFlattenSortsByRank(t *testing.T) {
	tree := &course.Tree{CourseID: "ranked", Lessons: []course.Lesson{
		{ID: "l2", Title: "Second", Order: 2, Steps: []course.Step{
			{ID: "l2-s1", Order: 1, LessonID: "l2"},
		}},
		{ID: "l1", Title: "First", Order: 1, Steps: []course.Step{
			{ID: "l1-s2", Order: 2, LessonID: "l1"},
			{ID: "l1-s1", Order: 1, LessonID: "l1"},
		}},
	}}

	// Ranks win over array position, for lessons and steps alike.
	var ids []string
	for _, fs := range flatten(tree) {
		ids = append(ids, fs.StepID)
	}
	assert.Equal(t, []string{"l1-s1", "l1-s2", "l2-s1"}, ids)
}

func TestStartAtStepProjectsCompletion(t *testing.T) {
	tree, contents := testTree("projected", 2, 2)
	p := &fakeProvider{tree: tree, contents: contents}
	engine, store := newTestEngine(t, p)
	ctx := context.Background()

	_, err := engine.Start(ctx, content.StartRequest{CourseID: "projected", StepID: "l2-s1"}, true)
	require.NoError(t, err)

	stored, err := store.Get("projected")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, []string{"l1-s1", "l1-s2"}, stored.CompletedSteps)
	assert.Equal(t, []string{"l1"}, stored.CompletedLessons)

	view, err := engine.Status(ctx, "projected")
	require.NoError(t, err)
	assert.Equal(t, 2, view.CompletedSteps)
	assert.Equal(t, []string{"l1"}, view.CompletedLessons)
}

func TestAdvanceCompletesWithoutProvider(t *testing.T) {
	tree, contents := testTree("solo", 1)
	p := &fakeProvider{tree: tree, contents: contents}
	p.nextFn = func(req content.NextRequest) (*content.NextResult, error) {
		return nil, fmt.Errorf("remote down")
	}
	engine, _ := newTestEngine(t, p)
	ctx := context.Background()

	_, err := engine.Start(ctx, content.StartRequest{CourseID: "solo"}, true)
	require.NoError(t, err)

	// At the last step completion is decided locally; a dead provider
	// must not turn it into an error.
	res, err := engine.Advance(ctx, "solo")
	require.NoError(t, err)
	assert.True(t, res.Completed)
}

func TestStartRestartRebuildsSteps(t *testing.T) {
	tree, contents := testTree("rebuilt", 2)
	p := &fakeProvider{tree: tree, contents: contents}
	engine, _ := newTestEngine(t, p)
	ctx := context.Background()

	_, err := engine.Start(ctx, content.StartRequest{CourseID: "rebuilt"}, true)
	require.NoError(t, err)

	// Upstream grew the course; a non-resuming start must pick that up
	// rather than reuse the cached flattened list.
	newTree, newContents := testTree("rebuilt", 3)
	p.tree = newTree
	p.contents = newContents

	view, err := engine.Start(ctx, content.StartRequest{CourseID: "rebuilt"}, false)
	require.NoError(t, err)
	assert.Equal(t, "l1-s1", view.StepID)

	sess, err := engine.GetSession(ctx, "rebuilt")
	require.NoError(t, err)
	assert.Equal(t, 0, sess.Cursor)
	assert.Len(t, sess.Steps, 3)
}

func TestJumpToLessonRefreshesStaleList(t *testing.T) {
	tree, contents := testTree("growing", 2)
	p := &fakeProvider{tree: tree, contents: contents}
	engine, _ := newTestEngine(t, p)
	ctx := context.Background()

	_, err := engine.Start(ctx, content.StartRequest{CourseID: "growing"}, true)
	require.NoError(t, err)

	// A lesson added upstream after session creation is reachable.
	newTree, newContents := testTree("growing", 2, 1)
	p.tree = newTree
	p.contents = newContents

	view, err := engine.JumpToLesson(ctx, "growing", "l2")
	require.NoError(t, err)
	assert.Equal(t, "l2-s1", view.StepID)
	assert.Equal(t, "l2", view.LessonID)
}
