// Package docs fetches library documentation context from the docs
// API. It is independent of the course pipeline: ids name libraries
// ("/vercel/next.js"), not course content.
package docs

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// DefaultBaseURL is the production docs API host.
const DefaultBaseURL = "https://api.context101.org"

// Token budget bounds for a single docs response.
const (
	MinTokens     = 10000
	MaxTokens     = 100000
	DefaultTokens = 20000
)

// DefaultMode selects code-example-heavy documentation.
const DefaultMode = "code"

// NoContentMessage is returned when the API answers with an empty or
// placeholder body for the requested mode.
const NoContentMessage = "No content available for this mode. Try mode=info or mode=code."

// StatusError reports a non-2xx answer from the docs API. The body is
// preserved so tool output can relay it verbatim.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("docs request failed: %d %s", e.Status, e.Body)
}

// Request names the documentation to fetch. Zero values take defaults:
// Mode "code", Tokens 20000.
type Request struct {
	ID     string
	Mode   string
	Tokens int
	Topic  string
}

// Client fetches documentation over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a docs client for baseURL; empty means production.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// normalizeID forces the library id into path form with one leading
// slash ("vercel/next.js" → "/vercel/next.js").
func normalizeID(id string) string {
	return "/" + strings.TrimLeft(strings.TrimSpace(id), "/")
}

func clampTokens(n int) int {
	if n == 0 {
		return DefaultTokens
	}
	if n < MinTokens {
		return MinTokens
	}
	if n > MaxTokens {
		return MaxTokens
	}
	return n
}

// Fetch returns documentation text for the request. Upstream errors
// are surfaced verbatim in the error; an empty upstream body yields
// NoContentMessage instead of an error so callers can relay it.
func (c *Client) Fetch(ctx context.Context, req Request) (string, error) {
	mode := req.Mode
	if mode == "" {
		mode = DefaultMode
	}

	q := url.Values{}
	q.Set("id", normalizeID(req.ID))
	q.Set("mode", mode)
	q.Set("tokens", strconv.Itoa(clampTokens(req.Tokens)))
	if req.Topic != "" {
		q.Set("topic", req.Topic)
	}

	u := c.baseURL + "/api/docs?" + q.Encode()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", err
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("docs request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read docs response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &StatusError{Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	text := strings.TrimSpace(string(body))
	switch text {
	case "", "No content available", "No context data available":
		return NoContentMessage, nil
	}
	return text, nil
}
