package content

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dooilabs/context101/internal/course"
)

// DefaultBaseURL is the production course API endpoint.
const DefaultBaseURL = "https://api.context101.org/mcp"

// ClientConfig configures the remote course API client.
type ClientConfig struct {
	BaseURL string
	Timeout time.Duration

	// MaxAttempts bounds retries of transient failures (network errors
	// and 5xx responses). 0 or 1 disables retrying.
	MaxAttempts int
	// RetryWait is the initial backoff, doubled per attempt.
	RetryWait time.Duration
}

// DefaultClientConfig returns the production defaults.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		BaseURL:     DefaultBaseURL,
		Timeout:     30 * time.Second,
		MaxAttempts: 3,
		RetryWait:   500 * time.Millisecond,
	}
}

// Client is the remote Provider implementation.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	maxAttempts int
	retryWait   time.Duration
}

var _ Provider = (*Client)(nil)

// NewClient creates a remote course API client.
func NewClient(cfg ClientConfig) *Client {
	base := cfg.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	attempts := cfg.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	wait := cfg.RetryWait
	if wait == 0 {
		wait = 500 * time.Millisecond
	}
	return &Client{
		baseURL:     strings.TrimRight(base, "/"),
		httpClient:  &http.Client{Timeout: timeout},
		maxAttempts: attempts,
		retryWait:   wait,
	}
}

type courseListResponse struct {
	Data []struct {
		ID          string           `json:"id"`
		Title       string           `json:"title"`
		Description string           `json:"description"`
		Tags        []string         `json:"tags"`
		Version     string           `json:"version"`
		Status      string           `json:"status"`
		UpdatedAt   time.Time        `json:"updatedAt"`
		Overview    *course.Overview `json:"overview"`
	} `json:"data"`
}

type overviewResponse struct {
	CourseID string `json:"courseId"`
	Lessons  []struct {
		ID    string `json:"id"`
		Title string `json:"title"`
		Order int    `json:"order"`
		Steps []struct {
			ID    string `json:"id"`
			Title string `json:"title"`
			Order int    `json:"order"`
		} `json:"steps"`
	} `json:"lessons"`
}

type startLessonResponse struct {
	CourseID    string `json:"courseId"`
	CourseTitle string `json:"courseTitle"`
	LessonID    string `json:"lessonId"`
	LessonTitle string `json:"lessonTitle"`
	StepID      string `json:"stepId"`
	StepTitle   string `json:"stepTitle"`
	Content     string `json:"content"`
}

type nextStepResponse struct {
	CourseID string `json:"courseId"`
	LessonID string `json:"lessonId"`
	StepID   string `json:"stepId"`
	Content  string `json:"content"`
	Status   string `json:"status"`
}

// ListCourses implements Provider.
func (c *Client) ListCourses(ctx context.Context, f course.ListFilter) ([]course.Course, error) {
	f = f.Clamped()
	payload := map[string]any{
		"limit":  f.Limit,
		"offset": f.Offset,
	}
	if f.Query != "" {
		payload["query"] = f.Query
	}
	if f.Tag != "" {
		payload["tag"] = f.Tag
	}
	if f.Status != "" {
		payload["status"] = f.Status
	}

	var resp courseListResponse
	if err := c.postJSON(ctx, "/searchCourses", payload, &resp); err != nil {
		return nil, err
	}

	courses := make([]course.Course, 0, len(resp.Data))
	for _, item := range resp.Data {
		tags := item.Tags
		if tags == nil {
			tags = []string{}
		}
		courses = append(courses, course.Course{
			ID:          item.ID,
			Title:       item.Title,
			Description: item.Description,
			Tags:        tags,
			Version:     item.Version,
			Status:      course.NormalizeStatus(item.Status),
			UpdatedAt:   item.UpdatedAt,
			Overview:    item.Overview,
		})
	}
	return courses, nil
}

// GetOverview implements Provider.
func (c *Client) GetOverview(ctx context.Context, courseID string) (*course.Tree, error) {
	var resp overviewResponse
	payload := map[string]any{"courseId": courseID}
	if err := c.postJSON(ctx, "/getOverview", payload, &resp); err != nil {
		return nil, err
	}

	tree := &course.Tree{CourseID: resp.CourseID}
	if tree.CourseID == "" {
		tree.CourseID = courseID
	}
	for _, l := range resp.Lessons {
		lesson := course.Lesson{ID: l.ID, Title: l.Title, Order: l.Order}
		for _, s := range l.Steps {
			lesson.Steps = append(lesson.Steps, course.Step{
				ID:       s.ID,
				Title:    s.Title,
				Order:    s.Order,
				LessonID: l.ID,
			})
		}
		tree.Lessons = append(tree.Lessons, lesson)
	}
	return tree, nil
}

// GetStep implements Provider. The remote API serves step content
// through the start-lesson endpoint when given explicit ids.
func (c *Client) GetStep(ctx context.Context, courseID, lessonID, stepID string) (string, error) {
	res, err := c.ResolveStart(ctx, StartRequest{
		CourseID: courseID,
		LessonID: lessonID,
		StepID:   stepID,
	})
	if err != nil {
		return "", err
	}
	return res.Content, nil
}

// ResolveStart implements Provider.
func (c *Client) ResolveStart(ctx context.Context, req StartRequest) (*StartResult, error) {
	payload := map[string]any{"courseId": req.CourseID}
	if req.LessonID != "" {
		payload["lessonId"] = req.LessonID
	}
	if req.StepID != "" {
		payload["stepId"] = req.StepID
	}

	var resp startLessonResponse
	if err := c.postJSON(ctx, "/startCourseLesson", payload, &resp); err != nil {
		return nil, err
	}
	return &StartResult{
		CourseID:    resp.CourseID,
		CourseTitle: resp.CourseTitle,
		LessonID:    resp.LessonID,
		LessonTitle: resp.LessonTitle,
		StepID:      resp.StepID,
		StepTitle:   resp.StepTitle,
		Content:     resp.Content,
	}, nil
}

// NextStep implements Provider.
func (c *Client) NextStep(ctx context.Context, req NextRequest) (*NextResult, error) {
	payload := map[string]any{
		"courseId":      req.CourseID,
		"currentStepId": req.CurrentStepID,
		"nextStepId":    req.NextStepID,
	}

	var resp nextStepResponse
	if err := c.postJSON(ctx, "/nextCourseStep", payload, &resp); err != nil {
		return nil, err
	}
	status := NextOK
	if resp.Status == string(NextCompleted) {
		status = NextCompleted
	}
	return &NextResult{
		CourseID: resp.CourseID,
		LessonID: resp.LessonID,
		StepID:   resp.StepID,
		Content:  resp.Content,
		Status:   status,
	}, nil
}

// postJSON issues a POST with a JSON payload and decodes the response
// into out. Transient failures (network errors, 5xx) are retried with
// exponential backoff up to maxAttempts; 4xx responses are returned
// immediately as *APIError.
func (c *Client) postJSON(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	wait := c.retryWait
	var lastErr error
	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
			wait *= 2
		}

		retryable, err := c.doOnce(ctx, path, body, out)
		if err == nil {
			return nil
		}
		lastErr = err
		if !retryable {
			return err
		}
	}
	return lastErr
}

func (c *Client) doOnce(ctx context.Context, path string, body []byte, out any) (retryable bool, err error) {
	url := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return false, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return true, fmt.Errorf("course API request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(resp.Body)
		apiErr := &APIError{Status: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
		return resp.StatusCode >= 500, apiErr
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return false, fmt.Errorf("decode response: %w", err)
	}
	return false, nil
}
