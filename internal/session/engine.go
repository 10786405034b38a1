package session

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/dooilabs/context101/internal/content"
	"github.com/dooilabs/context101/internal/progress"
)

// Engine owns all course sessions in the process. It coordinates the
// content provider (structure and step text), the progress store
// (durable state), and the quiz gate. All exported methods are safe
// for concurrent use.
type Engine struct {
	mu       sync.Mutex
	provider content.Provider
	store    progress.Store
	log      *zap.Logger
	sessions map[string]*Session
}

// NewEngine creates an engine over the given provider and store.
func NewEngine(provider content.Provider, store progress.Store, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{
		provider: provider,
		store:    store,
		log:      log,
		sessions: make(map[string]*Session),
	}
}

// StepView is a resolved step with its content, ready for rendering.
type StepView struct {
	CourseID    string
	CourseTitle string
	LessonID    string
	LessonTitle string
	StepID      string
	StepTitle   string
	Content     string
	QuizGated   bool
}

// AdvanceResult is the outcome of requesting the next step.
type AdvanceResult struct {
	Completed bool
	Step      *StepView // nil when Completed
}

// StatusView is a read-only snapshot of one course's progress.
type StatusView struct {
	CourseID         string
	CourseTitle      string
	CurrentLessonID  string
	CurrentStepID    string
	CompletedSteps   int
	CompletedLessons []string
	Completed        bool
	UpdatedAt        time.Time
}

// EnsureSession returns the in-memory session for a course, building
// one from the provider's overview when absent. With resume set,
// stored progress seeds the cursor and an existing in-memory session
// is reused; without it the step list is rebuilt from the provider and
// the cursor starts at zero.
func (e *Engine) EnsureSession(ctx context.Context, courseID string, resume bool) (*Session, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ensureLocked(ctx, courseID, resume)
}

func (e *Engine) ensureLocked(ctx context.Context, courseID string, resume bool) (*Session, error) {
	if sess, ok := e.sessions[courseID]; ok && resume {
		return sess, nil
	}

	tree, err := e.provider.GetOverview(ctx, courseID)
	if err != nil {
		return nil, err
	}
	steps := flatten(tree)
	if len(steps) == 0 {
		return nil, &EmptyCourseError{CourseID: courseID}
	}

	sess := newSession(courseID, "", steps)

	stored, err := e.store.Get(courseID)
	if err != nil {
		return nil, err
	}
	if stored != nil {
		if resume {
			if idx := sess.indexOf(stored.CurrentStepID); idx >= 0 {
				sess.Cursor = idx
			}
			if !stored.UpdatedAt.IsZero() {
				sess.UpdatedAt = stored.UpdatedAt
			}
		}
		// Quiz bookkeeping survives a restart either way.
		for id, req := range stored.StepQuizRequired {
			sess.QuizRequired[id] = req
		}
	}

	if err := e.persistLocked(sess, stored); err != nil {
		return nil, err
	}

	e.sessions[courseID] = sess
	e.log.Debug("session created",
		zap.String("sessionId", sess.ID),
		zap.String("courseId", courseID),
		zap.Int("steps", len(steps)),
		zap.Int("cursor", sess.Cursor),
	)
	return sess, nil
}

// GetSession returns the session for a course, lazily resuming from
// stored progress. It returns ErrNoSession when the course has neither
// an in-memory session nor a stored record.
func (e *Engine) GetSession(ctx context.Context, courseID string) (*Session, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.getLocked(ctx, courseID)
}

func (e *Engine) getLocked(ctx context.Context, courseID string) (*Session, error) {
	if sess, ok := e.sessions[courseID]; ok {
		return sess, nil
	}
	stored, err := e.store.Get(courseID)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, ErrNoSession
	}
	return e.ensureLocked(ctx, courseID, true)
}

// persistLocked projects the session onto the stored record: completed
// steps are everything strictly before the cursor, completed lessons
// are those whose last step sits behind it. Quiz history and
// requirement flags are merged, never overwritten by a fresh session.
func (e *Engine) persistLocked(sess *Session, stored *progress.CourseProgress) error {
	p := progress.CourseProgress{CourseID: sess.CourseID}
	if stored != nil {
		p = *stored
	}
	if cur, ok := sess.Current(); ok {
		p.CurrentLessonID = cur.LessonID
		p.CurrentStepID = cur.StepID
	}
	if p.StepQuizRequired == nil && len(sess.QuizRequired) > 0 {
		p.StepQuizRequired = map[string]bool{}
	}
	for id, req := range sess.QuizRequired {
		p.StepQuizRequired[id] = req
	}

	cursor := sess.Cursor
	if cursor > len(sess.Steps) {
		cursor = len(sess.Steps)
	}
	completed := make([]string, 0, cursor)
	for _, fs := range sess.Steps[:cursor] {
		completed = append(completed, fs.StepID)
	}
	p.CompletedSteps = completed
	p.CompletedLessons = completedLessons(sess.Steps, cursor)
	p.UpdatedAt = sess.UpdatedAt
	return e.store.Put(p)
}

// Start resolves a start or resume position through the provider and
// moves the session cursor there. Empty lesson and step ids mean the
// provider picks the first step; with resume set, a bare courseID and
// stored progress resume at the stored cursor instead. resume=false
// restarts from the top without touching recorded quiz history.
func (e *Engine) Start(ctx context.Context, req content.StartRequest, resume bool) (*StepView, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	sess, err := e.ensureLocked(ctx, req.CourseID, resume)
	if err != nil {
		return nil, err
	}

	// Resume: no explicit target and a stored position exists.
	if resume && req.LessonID == "" && req.StepID == "" {
		if cur, ok := sess.Current(); ok && sess.Cursor > 0 {
			req.StepID = cur.StepID
			req.LessonID = cur.LessonID
		}
	}

	res, err := e.provider.ResolveStart(ctx, req)
	if err != nil {
		return nil, err
	}
	if res.CourseTitle != "" {
		sess.CourseTitle = res.CourseTitle
	}
	return e.syncLocked(ctx, sess, res.StepID, res.Content)
}

// JumpToLesson moves the cursor to the first step of a lesson. The
// lesson is looked up against a fresh flatten when the in-memory list
// doesn't know it; a failed jump leaves the session untouched.
func (e *Engine) JumpToLesson(ctx context.Context, courseID, lessonID string) (*StepView, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	sess, err := e.ensureLocked(ctx, courseID, true)
	if err != nil {
		return nil, err
	}

	if !hasLesson(sess.Steps, lessonID) {
		tree, err := e.provider.GetOverview(ctx, courseID)
		if err != nil {
			return nil, err
		}
		refreshed := flatten(tree)
		if !hasLesson(refreshed, lessonID) {
			return nil, &NotFoundError{Kind: "lesson", ID: lessonID}
		}
		sess.Steps = refreshed
	}

	res, err := e.provider.ResolveStart(ctx, content.StartRequest{
		CourseID: courseID,
		LessonID: lessonID,
	})
	if err != nil {
		return nil, err
	}
	if res.CourseTitle != "" {
		sess.CourseTitle = res.CourseTitle
	}
	return e.syncLocked(ctx, sess, res.StepID, res.Content)
}

// SyncToStep moves the cursor to an arbitrary step of the course and
// returns it with content.
func (e *Engine) SyncToStep(ctx context.Context, courseID, stepID string) (*StepView, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	sess, err := e.ensureLocked(ctx, courseID, true)
	if err != nil {
		return nil, err
	}
	return e.syncLocked(ctx, sess, stepID, "")
}

// syncLocked positions the cursor at stepID, refreshing the flattened
// list from the provider when the step is unknown (content may have
// changed server-side). The step's content is fetched when not already
// supplied, quiz markers are recorded, and the new position persisted.
func (e *Engine) syncLocked(ctx context.Context, sess *Session, stepID, stepContent string) (*StepView, error) {
	idx := sess.indexOf(stepID)
	if idx < 0 {
		tree, err := e.provider.GetOverview(ctx, sess.CourseID)
		if err != nil {
			return nil, err
		}
		sess.Steps = flatten(tree)
		idx = sess.indexOf(stepID)
	}
	if idx < 0 {
		return nil, &NotFoundError{Kind: "step", ID: stepID}
	}

	sess.Cursor = idx
	sess.UpdatedAt = time.Now()
	fs := sess.Steps[idx]

	if stepContent == "" {
		var err error
		stepContent, err = e.provider.GetStep(ctx, sess.CourseID, fs.LessonID, fs.StepID)
		if err != nil {
			return nil, err
		}
	}

	gated := DetectQuizRequirement(stepContent)
	sess.QuizRequired[fs.StepID] = gated
	if err := e.store.SetStepQuizRequired(sess.CourseID, fs.StepID, gated); err != nil {
		return nil, err
	}

	stored, err := e.store.Get(sess.CourseID)
	if err != nil {
		return nil, err
	}
	if err := e.persistLocked(sess, stored); err != nil {
		return nil, err
	}

	return &StepView{
		CourseID:    sess.CourseID,
		CourseTitle: sess.CourseTitle,
		LessonID:    fs.LessonID,
		LessonTitle: fs.LessonTitle,
		StepID:      fs.StepID,
		StepTitle:   fs.StepTitle,
		Content:     stepContent,
		QuizGated:   gated,
	}, nil
}

// Advance moves the session to the next step. The current step's quiz
// gate is checked first; the provider's answer is authoritative for
// what the next step is, with a local increment as fallback when the
// provider echoes the expected id without content changes.
func (e *Engine) Advance(ctx context.Context, courseID string) (*AdvanceResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	sess, err := e.getLocked(ctx, courseID)
	if err != nil {
		return nil, err
	}
	cur, ok := sess.Current()
	if !ok {
		return nil, &EmptyCourseError{CourseID: courseID}
	}

	stored, err := e.store.Get(courseID)
	if err != nil {
		return nil, err
	}

	if err := e.checkQuizGate(sess, stored, cur.StepID); err != nil {
		return nil, err
	}

	if stored == nil {
		stored = &progress.CourseProgress{CourseID: courseID}
	}

	// Already at the last step: completed, locally and idempotently.
	// No provider round trip stands between the user and completion.
	if sess.Cursor+1 >= len(sess.Steps) {
		return e.completeLocked(sess, stored)
	}
	expectedNext := sess.Steps[sess.Cursor+1].StepID

	res, err := e.provider.NextStep(ctx, content.NextRequest{
		CourseID:      courseID,
		CurrentStepID: cur.StepID,
		NextStepID:    expectedNext,
	})
	if err != nil {
		return nil, err
	}

	if res.Status == content.NextCompleted {
		sess.Cursor = len(sess.Steps) - 1
		return e.completeLocked(sess, stored)
	}

	idx := sess.indexOf(res.StepID)
	if idx < 0 {
		// Provider returned a step we don't know; the course changed
		// upstream. Re-flatten and locate it.
		tree, err := e.provider.GetOverview(ctx, courseID)
		if err != nil {
			return nil, err
		}
		sess.Steps = flatten(tree)
		idx = sess.indexOf(res.StepID)
	}
	if idx < 0 {
		// Still unknown. Fall back to the local successor.
		e.log.Warn("provider returned unknown step, advancing locally",
			zap.String("courseId", courseID),
			zap.String("stepId", res.StepID),
		)
		idx = sess.Cursor + 1
		if idx >= len(sess.Steps) {
			return e.completeLocked(sess, stored)
		}
	}

	sess.Cursor = idx
	sess.UpdatedAt = time.Now()
	fs := sess.Steps[idx]

	stepContent := res.Content
	if stepContent == "" || fs.StepID != res.StepID {
		stepContent, err = e.provider.GetStep(ctx, courseID, fs.LessonID, fs.StepID)
		if err != nil {
			return nil, err
		}
	}

	gated := DetectQuizRequirement(stepContent)
	sess.QuizRequired[fs.StepID] = gated
	if stored.StepQuizRequired == nil {
		stored.StepQuizRequired = map[string]bool{}
	}
	stored.StepQuizRequired[fs.StepID] = gated

	if err := e.persistLocked(sess, stored); err != nil {
		return nil, err
	}

	return &AdvanceResult{
		Step: &StepView{
			CourseID:    sess.CourseID,
			CourseTitle: sess.CourseTitle,
			LessonID:    fs.LessonID,
			LessonTitle: fs.LessonTitle,
			StepID:      fs.StepID,
			StepTitle:   fs.StepTitle,
			Content:     stepContent,
			QuizGated:   gated,
		},
	}, nil
}

// checkQuizGate enforces the gate for a step: a gated step needs a
// recorded result, and the latest result must be correct.
func (e *Engine) checkQuizGate(sess *Session, stored *progress.CourseProgress, stepID string) error {
	if !sess.QuizRequired[stepID] {
		return nil
	}
	if stored == nil {
		return &QuizGateError{StepID: stepID, Reason: QuizMissing}
	}
	latest, ok := stored.LatestQuizResult(stepID)
	if !ok {
		return &QuizGateError{StepID: stepID, Reason: QuizMissing}
	}
	if !latest.Correct {
		return &QuizGateError{StepID: stepID, Reason: QuizIncorrect}
	}
	return nil
}

// completeLocked marks the course finished and persists. Completing an
// already-completed course is a no-op that still reports completion.
func (e *Engine) completeLocked(sess *Session, stored *progress.CourseProgress) (*AdvanceResult, error) {
	stored.Completed = true
	sess.UpdatedAt = time.Now()
	if err := e.persistLocked(sess, stored); err != nil {
		return nil, err
	}
	e.log.Info("course completed", zap.String("courseId", sess.CourseID))
	return &AdvanceResult{Completed: true}, nil
}

// FindCourseIDByStepID locates the course a step belongs to, checking
// live sessions first and stored progress second. It returns "" when
// no course claims the step; the first match wins.
func (e *Engine) FindCourseIDByStepID(stepID string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for courseID, sess := range e.sessions {
		if sess.indexOf(stepID) >= 0 {
			return courseID, nil
		}
	}

	records, err := e.store.List()
	if err != nil {
		return "", err
	}
	for _, p := range records {
		if p.CurrentStepID == stepID || p.HasCompletedStep(stepID) {
			return p.CourseID, nil
		}
		if _, ok := p.StepQuizRequired[stepID]; ok {
			return p.CourseID, nil
		}
	}
	return "", nil
}

// RecordQuizResult stores a graded submission. With an empty courseID
// the engine tries to resolve the course from the step id; when that
// fails the result is kept in the store's unknown bucket rather than
// dropped. The resolved course id (possibly empty) is returned.
func (e *Engine) RecordQuizResult(ctx context.Context, courseID string, r progress.QuizResult) (string, error) {
	if courseID == "" {
		resolved, err := e.FindCourseIDByStepID(r.StepID)
		if err != nil {
			return "", err
		}
		courseID = resolved
	}

	if r.SubmittedAt.IsZero() {
		r.SubmittedAt = time.Now()
	}
	if err := e.store.AppendQuizResult(courseID, r); err != nil {
		return "", err
	}

	e.mu.Lock()
	if sess, ok := e.sessions[courseID]; ok && courseID != "" {
		sess.UpdatedAt = r.SubmittedAt
	}
	e.mu.Unlock()

	e.log.Debug("quiz result recorded",
		zap.String("courseId", courseID),
		zap.String("stepId", r.StepID),
		zap.Bool("correct", r.Correct),
	)
	return courseID, nil
}

// ClearSession drops the in-memory session and deletes stored
// progress. It reports whether anything existed to clear.
func (e *Engine) ClearSession(courseID string) (bool, error) {
	e.mu.Lock()
	_, hadSession := e.sessions[courseID]
	delete(e.sessions, courseID)
	e.mu.Unlock()

	deleted, err := e.store.Delete(courseID)
	if err != nil {
		return false, err
	}
	return hadSession || deleted, nil
}

// Status returns a snapshot for one course, resuming a session from
// stored progress when needed.
func (e *Engine) Status(ctx context.Context, courseID string) (*StatusView, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	sess, err := e.getLocked(ctx, courseID)
	if err != nil {
		return nil, err
	}
	stored, err := e.store.Get(courseID)
	if err != nil {
		return nil, err
	}

	view := &StatusView{
		CourseID:    sess.CourseID,
		CourseTitle: sess.CourseTitle,
		UpdatedAt:   sess.UpdatedAt,
	}
	if cur, ok := sess.Current(); ok {
		view.CurrentLessonID = cur.LessonID
		view.CurrentStepID = cur.StepID
	}
	if stored != nil {
		view.CompletedSteps = len(stored.CompletedSteps)
		view.CompletedLessons = stored.CompletedLessons
		view.Completed = stored.Completed
		if !stored.UpdatedAt.IsZero() {
			view.UpdatedAt = stored.UpdatedAt
		}
	}
	return view, nil
}

// StatusAll returns snapshots for every stored course, without forcing
// sessions into memory.
func (e *Engine) StatusAll() ([]StatusView, error) {
	records, err := e.store.List()
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	views := make([]StatusView, 0, len(records))
	for _, p := range records {
		view := StatusView{
			CourseID:         p.CourseID,
			CurrentLessonID:  p.CurrentLessonID,
			CurrentStepID:    p.CurrentStepID,
			CompletedSteps:   len(p.CompletedSteps),
			CompletedLessons: p.CompletedLessons,
			Completed:        p.Completed,
			UpdatedAt:        p.UpdatedAt,
		}
		if sess, ok := e.sessions[p.CourseID]; ok {
			view.CourseTitle = sess.CourseTitle
		}
		views = append(views, view)
	}
	return views, nil
}
