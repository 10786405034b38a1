package content

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dooilabs/context101/internal/course"
)

// Local serves course content from a directory tree on disk. A course
// is a directory; lessons are numbered subdirectories of markdown step
// files (NN-title.md), or, when no subdirectories exist, the course's
// flat markdown files form a single "main" lesson.
type Local struct {
	baseDir string
}

var _ Provider = (*Local)(nil)

// NewLocal creates a filesystem provider rooted at baseDir.
func NewLocal(baseDir string) *Local {
	return &Local{baseDir: baseDir}
}

var orderPrefixRE = regexp.MustCompile(`^\d+-`)

// NormalizeID strips the numeric ordering prefix from a file or
// directory name ("03-interfaces" → "interfaces").
func NormalizeID(name string) string {
	return strings.TrimSpace(orderPrefixRE.ReplaceAllString(name, ""))
}

// TitleFromID derives a display title from a normalized id
// ("error-handling" → "Error Handling").
func TitleFromID(name string) string {
	parts := strings.Split(NormalizeID(name), "-")
	for i, p := range parts {
		if p == "" {
			continue
		}
		parts[i] = strings.ToUpper(p[:1]) + p[1:]
	}
	return strings.Join(parts, " ")
}

func orderFromName(name string) int {
	head, _, _ := strings.Cut(name, "-")
	n, err := strconv.Atoi(head)
	if err != nil {
		return 0
	}
	return n
}

// ListCourses implements Provider.
func (l *Local) ListCourses(ctx context.Context, f course.ListFilter) ([]course.Course, error) {
	f = f.Clamped()
	dirs, err := l.courseDirs()
	if err != nil {
		return nil, err
	}

	var courses []course.Course
	for _, dir := range dirs {
		id := NormalizeID(dir)
		c := course.Course{
			ID:        id,
			Title:     TitleFromID(dir),
			Tags:      strings.Split(id, "-"),
			Version:   "v1",
			Status:    course.StatusActive,
			UpdatedAt: time.Now(),
		}
		if !matchesFilter(c, f) {
			continue
		}
		courses = append(courses, c)
	}

	if f.Offset >= len(courses) {
		return []course.Course{}, nil
	}
	courses = courses[f.Offset:]
	if len(courses) > f.Limit {
		courses = courses[:f.Limit]
	}
	return courses, nil
}

func matchesFilter(c course.Course, f course.ListFilter) bool {
	if f.Status != "" && c.Status != f.Status {
		return false
	}
	if f.Tag != "" {
		found := false
		for _, t := range c.Tags {
			if strings.EqualFold(t, f.Tag) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if q := strings.ToLower(strings.TrimSpace(f.Query)); q != "" {
		if !strings.Contains(strings.ToLower(c.ID), q) &&
			!strings.Contains(strings.ToLower(c.Title), q) {
			return false
		}
	}
	return true
}

// GetOverview implements Provider.
func (l *Local) GetOverview(ctx context.Context, courseID string) (*course.Tree, error) {
	dir, err := l.findCourseDir(courseID)
	if err != nil {
		return nil, err
	}
	tree, _, err := l.scanCourse(dir)
	return tree, err
}

// GetStep implements Provider.
func (l *Local) GetStep(ctx context.Context, courseID, lessonID, stepID string) (string, error) {
	dir, err := l.findCourseDir(courseID)
	if err != nil {
		return "", err
	}
	_, paths, err := l.scanCourse(dir)
	if err != nil {
		return "", err
	}
	path, ok := paths[stepKey{lessonID, stepID}]
	if !ok {
		return "", fmt.Errorf("step %q not found in course %q", stepID, courseID)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read step content: %w", err)
	}
	return string(data), nil
}

// ResolveStart implements Provider.
func (l *Local) ResolveStart(ctx context.Context, req StartRequest) (*StartResult, error) {
	dir, err := l.findCourseDir(req.CourseID)
	if err != nil {
		return nil, err
	}
	tree, paths, err := l.scanCourse(dir)
	if err != nil {
		return nil, err
	}

	lesson, step, err := pickStart(tree, req)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(paths[stepKey{lesson.ID, step.ID}])
	if err != nil {
		return nil, fmt.Errorf("read step content: %w", err)
	}
	return &StartResult{
		CourseID:    tree.CourseID,
		CourseTitle: TitleFromID(dir),
		LessonID:    lesson.ID,
		LessonTitle: lesson.Title,
		StepID:      step.ID,
		StepTitle:   step.Title,
		Content:     string(data),
	}, nil
}

func pickStart(tree *course.Tree, req StartRequest) (*course.Lesson, *course.Step, error) {
	if req.StepID != "" {
		for i := range tree.Lessons {
			for j := range tree.Lessons[i].Steps {
				if tree.Lessons[i].Steps[j].ID == req.StepID {
					return &tree.Lessons[i], &tree.Lessons[i].Steps[j], nil
				}
			}
		}
		return nil, nil, fmt.Errorf("step %q not found in course %q", req.StepID, req.CourseID)
	}
	if req.LessonID != "" {
		for i := range tree.Lessons {
			if tree.Lessons[i].ID == req.LessonID {
				if len(tree.Lessons[i].Steps) == 0 {
					return nil, nil, fmt.Errorf("lesson %q has no steps", req.LessonID)
				}
				return &tree.Lessons[i], &tree.Lessons[i].Steps[0], nil
			}
		}
		return nil, nil, fmt.Errorf("lesson %q not found in course %q", req.LessonID, req.CourseID)
	}
	for i := range tree.Lessons {
		if len(tree.Lessons[i].Steps) > 0 {
			return &tree.Lessons[i], &tree.Lessons[i].Steps[0], nil
		}
	}
	return nil, nil, fmt.Errorf("course %q has no steps", req.CourseID)
}

// NextStep implements Provider. The successor is computed from the
// flattened lesson/step order on disk.
func (l *Local) NextStep(ctx context.Context, req NextRequest) (*NextResult, error) {
	dir, err := l.findCourseDir(req.CourseID)
	if err != nil {
		return nil, err
	}
	tree, paths, err := l.scanCourse(dir)
	if err != nil {
		return nil, err
	}

	type flat struct {
		lesson course.Lesson
		step   course.Step
	}
	var steps []flat
	for _, lesson := range tree.Lessons {
		for _, step := range lesson.Steps {
			steps = append(steps, flat{lesson, step})
		}
	}

	cur := -1
	for i, fs := range steps {
		if fs.step.ID == req.CurrentStepID {
			cur = i
			break
		}
	}
	if cur == -1 {
		return nil, fmt.Errorf("step %q not found in course %q", req.CurrentStepID, req.CourseID)
	}
	if cur+1 >= len(steps) {
		return &NextResult{
			CourseID: tree.CourseID,
			LessonID: steps[cur].lesson.ID,
			StepID:   steps[cur].step.ID,
			Status:   NextCompleted,
		}, nil
	}

	next := steps[cur+1]
	data, err := os.ReadFile(paths[stepKey{next.lesson.ID, next.step.ID}])
	if err != nil {
		return nil, fmt.Errorf("read step content: %w", err)
	}
	return &NextResult{
		CourseID: tree.CourseID,
		LessonID: next.lesson.ID,
		StepID:   next.step.ID,
		Content:  string(data),
		Status:   NextOK,
	}, nil
}

func (l *Local) courseDirs() ([]string, error) {
	entries, err := os.ReadDir(l.baseDir)
	if err != nil {
		return nil, fmt.Errorf("read courses dir: %w", err)
	}
	var dirs []string
	for _, e := range entries {
		if e.IsDir() {
			dirs = append(dirs, e.Name())
		}
	}
	sort.Strings(dirs)
	return dirs, nil
}

func (l *Local) findCourseDir(courseID string) (string, error) {
	dirs, err := l.courseDirs()
	if err != nil {
		return "", err
	}
	for _, dir := range dirs {
		if NormalizeID(dir) == courseID || dir == courseID {
			return dir, nil
		}
	}
	return "", fmt.Errorf("course %q not found", courseID)
}

type stepKey struct {
	lessonID string
	stepID   string
}

// scanCourse builds the lesson/step tree for a course directory and a
// map from (lessonId, stepId) to the backing content file.
func (l *Local) scanCourse(courseDir string) (*course.Tree, map[stepKey]string, error) {
	coursePath := filepath.Join(l.baseDir, courseDir)
	entries, err := os.ReadDir(coursePath)
	if err != nil {
		return nil, nil, fmt.Errorf("read course dir: %w", err)
	}

	paths := make(map[stepKey]string)
	tree := &course.Tree{CourseID: NormalizeID(courseDir)}

	var lessonDirs []string
	var flatFiles []string
	for _, e := range entries {
		switch {
		case e.IsDir():
			lessonDirs = append(lessonDirs, e.Name())
		case strings.HasSuffix(e.Name(), ".md"):
			flatFiles = append(flatFiles, e.Name())
		}
	}
	sort.Slice(lessonDirs, func(i, j int) bool {
		return orderFromName(lessonDirs[i]) < orderFromName(lessonDirs[j])
	})

	for _, dirName := range lessonDirs {
		lessonPath := filepath.Join(coursePath, dirName)
		lessonEntries, err := os.ReadDir(lessonPath)
		if err != nil {
			return nil, nil, fmt.Errorf("read lesson dir: %w", err)
		}
		lesson := course.Lesson{
			ID:    NormalizeID(dirName),
			Title: TitleFromID(dirName),
			Order: orderFromName(dirName),
		}
		for _, e := range lessonEntries {
			if e.IsDir() || !strings.HasSuffix(e.Name(), ".md") {
				continue
			}
			step := stepFromFile(e.Name(), lesson.ID)
			lesson.Steps = append(lesson.Steps, step)
			paths[stepKey{lesson.ID, step.ID}] = filepath.Join(lessonPath, e.Name())
		}
		sortSteps(lesson.Steps)
		if len(lesson.Steps) > 0 {
			tree.Lessons = append(tree.Lessons, lesson)
		}
	}

	// Flat layout: markdown files directly under the course dir form a
	// single implicit lesson.
	if len(tree.Lessons) == 0 {
		lesson := course.Lesson{
			ID:    "main",
			Title: TitleFromID(courseDir),
			Order: 0,
		}
		for _, name := range flatFiles {
			step := stepFromFile(name, lesson.ID)
			lesson.Steps = append(lesson.Steps, step)
			paths[stepKey{lesson.ID, step.ID}] = filepath.Join(coursePath, name)
		}
		sortSteps(lesson.Steps)
		if len(lesson.Steps) > 0 {
			tree.Lessons = append(tree.Lessons, lesson)
		}
	}

	return tree, paths, nil
}

func stepFromFile(name, lessonID string) course.Step {
	base := strings.TrimSuffix(name, ".md")
	return course.Step{
		ID:       NormalizeID(base),
		Title:    TitleFromID(base),
		Order:    orderFromName(base),
		LessonID: lessonID,
	}
}

func sortSteps(steps []course.Step) {
	sort.SliceStable(steps, func(i, j int) bool {
		return steps[i].Order < steps[j].Order
	})
}
