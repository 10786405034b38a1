// Package server exposes the course walkthrough over the Model
// Context Protocol. Tools return plain text; expected conditions (not
// found, quiz gate, completion) are messages, not protocol errors.
package server

import (
	"context"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/dooilabs/context101/internal/content"
	"github.com/dooilabs/context101/internal/docs"
	"github.com/dooilabs/context101/internal/session"
)

// Options wires the server's collaborators.
type Options struct {
	Engine   *session.Engine
	Provider content.Provider
	Docs     *docs.Client
	Log      *zap.Logger

	// Course locks the server to one course id. Empty means unlocked.
	Course  string
	Version string
}

// Server is the MCP stdio server.
type Server struct {
	engine   *session.Engine
	provider content.Provider
	docs     *docs.Client
	log      *zap.Logger
	course   string
	server   *mcp.Server
}

// New creates the MCP server and registers its tools.
func New(opts Options) *Server {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		engine:   opts.Engine,
		provider: opts.Provider,
		docs:     opts.Docs,
		log:      log,
		course:   opts.Course,
	}

	impl := &mcp.Implementation{
		Name:    "context101",
		Version: opts.Version,
	}
	s.server = mcp.NewServer(impl, nil)
	s.registerTools()
	return s
}

// Run serves MCP over stdio until ctx is canceled.
func (s *Server) Run(ctx context.Context) error {
	s.log.Info("mcp server starting",
		zap.String("course", s.course),
	)
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "searchCourses",
		Description: "Search available courses by query. Passing an empty or whitespace query returns the full list.",
	}, s.handleSearchCourses)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "startCourseLesson",
		Description: "Start or resume a course, optionally at a specific lesson or step. Returns the step content to walk the user through.",
	}, s.handleStartCourseLesson)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "nextCourseStep",
		Description: "Advance to the next step in a course. Blocked until a required quiz for the current step has been answered correctly.",
	}, s.handleNextCourseStep)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "getCourseStatus",
		Description: "Get progress for a course, or for all courses when courseId is omitted.",
	}, s.handleGetCourseStatus)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "clearCourseProgress",
		Description: "Clear progress for a course. Requires confirm=true.",
	}, s.handleClearCourseProgress)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "recordQuizResult",
		Description: "Record a graded quiz result for a step. The caller grades the answer; this tool only stores the verdict.",
	}, s.handleRecordQuizResult)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "getDocs",
		Description: "Fetch library or framework documentation context by id (e.g. /vercel/next.js). Use before answering questions about external libraries.",
	}, s.handleGetDocs)
}

// resolveCourseID applies the course lock: a locked server ignores the
// caller-supplied id entirely.
func (s *Server) resolveCourseID(arg string) string {
	if s.course != "" {
		return s.course
	}
	return strings.TrimSpace(arg)
}

// locked reports whether the server is pinned to a single course.
func (s *Server) locked() bool {
	return s.course != ""
}

// text wraps a plain string as a tool result.
func text(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: msg}},
	}
}
