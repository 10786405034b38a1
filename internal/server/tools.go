package server

import (
	"context"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/dooilabs/context101/internal/content"
	"github.com/dooilabs/context101/internal/course"
	"github.com/dooilabs/context101/internal/docs"
	"github.com/dooilabs/context101/internal/progress"
	"github.com/dooilabs/context101/internal/session"
)

const (
	msgNoCourseID      = "Pass courseId or start the server with --course <id>."
	msgNoProgress      = "No course progress found. Start with `startCourseLesson`."
	msgQuizRequired    = "Quiz answer required. Please answer the quiz before moving on."
	msgQuizIncorrect   = "Quiz answer is incorrect. Please try again before moving on."
	msgSearchDisabled  = "Course search is disabled when the server is locked to a single course."
	msgNoProgressShort = "No course progress found."
)

// userMessage maps expected engine and provider failures to the plain
// text a tool should answer with. Unexpected errors are not mapped and
// surface as protocol errors.
func userMessage(courseID string, err error) (string, bool) {
	var empty *session.EmptyCourseError
	if errors.As(err, &empty) {
		return fmt.Sprintf("Course %q has no content.", empty.CourseID), true
	}
	var notFound *session.NotFoundError
	if errors.As(err, &notFound) {
		switch notFound.Kind {
		case "lesson":
			return fmt.Sprintf("Lesson %q not found in course %q.", notFound.ID, courseID), true
		case "step":
			return fmt.Sprintf("Step %q not found in course %q.", notFound.ID, courseID), true
		default:
			return fmt.Sprintf("Course %q not found.", notFound.ID), true
		}
	}
	var gate *session.QuizGateError
	if errors.As(err, &gate) {
		if gate.Reason == session.QuizIncorrect {
			return msgQuizIncorrect, true
		}
		return msgQuizRequired, true
	}
	if errors.Is(err, session.ErrNoSession) {
		return msgNoProgress, true
	}
	var apiErr *content.APIError
	if errors.As(err, &apiErr) && apiErr.Status == 404 {
		return fmt.Sprintf("Course %q not found.", courseID), true
	}
	return "", false
}

type searchCoursesArgs struct {
	Query  string `json:"query,omitempty" jsonschema:"Search text matched against course ids and titles. Empty returns the full list."`
	Tag    string `json:"tag,omitempty" jsonschema:"Filter courses by tag."`
	Status string `json:"status,omitempty" jsonschema:"Filter by status: active, draft, or archived."`
	Limit  int    `json:"limit,omitempty" jsonschema:"Maximum results, 1-100 (default 20)."`
	Offset int    `json:"offset,omitempty" jsonschema:"Results to skip for pagination."`
}

func (s *Server) handleSearchCourses(ctx context.Context, req *mcp.CallToolRequest, args searchCoursesArgs) (*mcp.CallToolResult, any, error) {
	if s.locked() {
		return text(msgSearchDisabled), nil, nil
	}

	courses, err := s.provider.ListCourses(ctx, course.ListFilter{
		Query:  args.Query,
		Tag:    args.Tag,
		Status: course.Status(args.Status),
		Limit:  args.Limit,
		Offset: args.Offset,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("search courses: %w", err)
	}
	return text(formatCourseList(courses)), nil, nil
}

type startCourseLessonArgs struct {
	CourseID string `json:"courseId,omitempty" jsonschema:"Course ID to start or resume. Defaults to --course."`
	LessonID string `json:"lessonId,omitempty" jsonschema:"Lesson ID to jump to. Starts at its first step."`
	StepID   string `json:"stepId,omitempty" jsonschema:"Step ID to jump to directly."`
	Resume   *bool  `json:"resume,omitempty" jsonschema:"Resume from stored progress (default true). Set false to restart from the first step."`
}

func (s *Server) handleStartCourseLesson(ctx context.Context, req *mcp.CallToolRequest, args startCourseLessonArgs) (*mcp.CallToolResult, any, error) {
	courseID := s.resolveCourseID(args.CourseID)
	if courseID == "" {
		return text(msgNoCourseID), nil, nil
	}
	resume := args.Resume == nil || *args.Resume

	view, err := s.engine.Start(ctx, content.StartRequest{
		CourseID: courseID,
		LessonID: args.LessonID,
		StepID:   args.StepID,
	}, resume)
	if err != nil {
		if msg, ok := userMessage(courseID, err); ok {
			return text(msg), nil, nil
		}
		return nil, nil, fmt.Errorf("start course: %w", err)
	}

	body := wrapLessonContent(view.Content, s.locked())
	// The welcome block is only for a plain start or resume, not jumps.
	if args.LessonID == "" && args.StepID == "" {
		title := view.CourseTitle
		if title == "" {
			title = courseID
		}
		body = buildIntroductionPrompt(title, courseID) + "\n\n" + body
	}
	return text(formatLessonPayload(view.CourseID, view.LessonID, view.StepID, body)), nil, nil
}

type nextCourseStepArgs struct {
	CourseID      string `json:"courseId,omitempty" jsonschema:"Course ID to advance. Defaults to --course."`
	CurrentStepID string `json:"currentStepId,omitempty" jsonschema:"Current step ID for next step lookup."`
	NextStepID    string `json:"nextStepId,omitempty" jsonschema:"Next step ID to fetch directly."`
}

func (s *Server) handleNextCourseStep(ctx context.Context, req *mcp.CallToolRequest, args nextCourseStepArgs) (*mcp.CallToolResult, any, error) {
	courseID := s.resolveCourseID(args.CourseID)
	if courseID == "" && args.CurrentStepID != "" {
		resolved, err := s.engine.FindCourseIDByStepID(args.CurrentStepID)
		if err != nil {
			return nil, nil, fmt.Errorf("resolve course: %w", err)
		}
		courseID = resolved
	}
	if courseID == "" {
		return text(msgNoCourseID), nil, nil
	}

	// Explicit step ids bypass the session cursor and ask the provider
	// directly, then sync the session to wherever it answered.
	if args.CurrentStepID != "" && args.NextStepID != "" {
		res, err := s.provider.NextStep(ctx, content.NextRequest{
			CourseID:      courseID,
			CurrentStepID: args.CurrentStepID,
			NextStepID:    args.NextStepID,
		})
		if err != nil {
			if msg, ok := userMessage(courseID, err); ok {
				return text(msg), nil, nil
			}
			return nil, nil, fmt.Errorf("next step: %w", err)
		}
		if res.Status == content.NextCompleted {
			return text(fmt.Sprintf("Course %q completed.", courseID)), nil, nil
		}
		view, err := s.engine.SyncToStep(ctx, courseID, res.StepID)
		if err != nil {
			if msg, ok := userMessage(courseID, err); ok {
				return text(msg), nil, nil
			}
			return nil, nil, fmt.Errorf("sync step: %w", err)
		}
		body := wrapLessonContent(view.Content, s.locked())
		return text(formatLessonPayload(view.CourseID, view.LessonID, view.StepID, body)), nil, nil
	}

	res, err := s.engine.Advance(ctx, courseID)
	if err != nil {
		if msg, ok := userMessage(courseID, err); ok {
			return text(msg), nil, nil
		}
		return nil, nil, fmt.Errorf("advance course: %w", err)
	}
	if res.Completed {
		return text(fmt.Sprintf("Course %q completed.", courseID)), nil, nil
	}

	step := res.Step
	body := wrapLessonContent(step.Content, s.locked())
	return text(formatLessonPayload(step.CourseID, step.LessonID, step.StepID, body)), nil, nil
}

type getCourseStatusArgs struct {
	CourseID string `json:"courseId,omitempty" jsonschema:"Course ID to inspect. Omit for progress across all courses."`
}

func (s *Server) handleGetCourseStatus(ctx context.Context, req *mcp.CallToolRequest, args getCourseStatusArgs) (*mcp.CallToolResult, any, error) {
	courseID := s.resolveCourseID(args.CourseID)
	if courseID == "" {
		views, err := s.engine.StatusAll()
		if err != nil {
			return nil, nil, fmt.Errorf("course status: %w", err)
		}
		if len(views) == 0 {
			return text(msgNoProgress), nil, nil
		}
		return text(formatStatusAll(views)), nil, nil
	}

	view, err := s.engine.Status(ctx, courseID)
	if err != nil {
		if msg, ok := userMessage(courseID, err); ok {
			return text(msg), nil, nil
		}
		return nil, nil, fmt.Errorf("course status: %w", err)
	}
	return text(formatStatus(view)), nil, nil
}

type clearCourseProgressArgs struct {
	CourseID string `json:"courseId,omitempty" jsonschema:"Course ID to clear. Defaults to --course."`
	Confirm  bool   `json:"confirm,omitempty" jsonschema:"Must be true to actually clear progress."`
}

func (s *Server) handleClearCourseProgress(ctx context.Context, req *mcp.CallToolRequest, args clearCourseProgressArgs) (*mcp.CallToolResult, any, error) {
	courseID := s.resolveCourseID(args.CourseID)
	if courseID == "" {
		return text(msgNoCourseID), nil, nil
	}
	if !args.Confirm {
		return text(fmt.Sprintf("Pass confirm=true to reset progress for course %q.", courseID)), nil, nil
	}

	existed, err := s.engine.ClearSession(courseID)
	if err != nil {
		return nil, nil, fmt.Errorf("clear progress: %w", err)
	}
	if !existed {
		return text(msgNoProgressShort), nil, nil
	}
	return text(fmt.Sprintf("Progress for course %q cleared.", courseID)), nil, nil
}

type quizGrading struct {
	Correct bool     `json:"correct" jsonschema:"Whether the user's answer was graded correct."`
	Score   *float64 `json:"score,omitempty" jsonschema:"Optional numeric score."`
}

type recordQuizResultArgs struct {
	CourseID      string      `json:"courseId,omitempty" jsonschema:"Course the step belongs to. Resolved from the step when omitted."`
	StepID        string      `json:"stepId" jsonschema:"Step the quiz belongs to."`
	Question      string      `json:"question" jsonschema:"The quiz question as asked."`
	CorrectAnswer string      `json:"correctAnswer" jsonschema:"The correct answer from the step content."`
	Answer        string      `json:"answer" jsonschema:"The user's answer."`
	Result        quizGrading `json:"result" jsonschema:"The grading verdict."`
}

func (s *Server) handleRecordQuizResult(ctx context.Context, req *mcp.CallToolRequest, args recordQuizResultArgs) (*mcp.CallToolResult, any, error) {
	courseID := s.resolveCourseID(args.CourseID)

	resolved, err := s.engine.RecordQuizResult(ctx, courseID, progress.QuizResult{
		StepID:        args.StepID,
		Question:      args.Question,
		CorrectAnswer: args.CorrectAnswer,
		Answer:        args.Answer,
		Correct:       args.Result.Correct,
		Score:         args.Result.Score,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("record quiz result: %w", err)
	}
	if resolved == "" {
		s.log.Warn("quiz result stored without a course",
			zap.String("stepId", args.StepID),
		)
	}
	// Fire-and-forget: the client carries on with the lesson.
	return text(""), nil, nil
}

type getDocsArgs struct {
	ID     string `json:"id" jsonschema:"Library id, e.g. /vercel/next.js."`
	Mode   string `json:"mode,omitempty" jsonschema:"Documentation mode: code (default) or info."`
	Tokens int    `json:"tokens,omitempty" jsonschema:"Token budget for the response, clamped to 10000-100000."`
	Topic  string `json:"topic,omitempty" jsonschema:"Optional topic to narrow the documentation."`
}

func (s *Server) handleGetDocs(ctx context.Context, req *mcp.CallToolRequest, args getDocsArgs) (*mcp.CallToolResult, any, error) {
	body, err := s.docs.Fetch(ctx, docs.Request{
		ID:     args.ID,
		Mode:   args.Mode,
		Tokens: args.Tokens,
		Topic:  args.Topic,
	})
	if err != nil {
		var statusErr *docs.StatusError
		if errors.As(err, &statusErr) {
			return text(fmt.Sprintf("Error %d: %s", statusErr.Status, statusErr.Body)), nil, nil
		}
		return nil, nil, fmt.Errorf("get docs: %w", err)
	}
	return text(body), nil, nil
}
