package docs

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchBuildsQuery(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/docs", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "/vercel/next.js", q.Get("id"))
		assert.Equal(t, "code", q.Get("mode"))
		assert.Equal(t, "20000", q.Get("tokens"))
		assert.Equal(t, "routing", q.Get("topic"))
		_, _ = w.Write([]byte("Documentation body."))
	}))
	defer server.Close()

	c := NewClient(server.URL, time.Second)
	body, err := c.Fetch(context.Background(), Request{ID: "vercel/next.js", Topic: "routing"})
	require.NoError(t, err)
	assert.Equal(t, "Documentation body.", body)
}

func TestFetchClampsTokens(t *testing.T) {
	var gotTokens string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotTokens = r.URL.Query().Get("tokens")
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	c := NewClient(server.URL, time.Second)

	_, err := c.Fetch(context.Background(), Request{ID: "x", Tokens: 50})
	require.NoError(t, err)
	assert.Equal(t, "10000", gotTokens)

	_, err = c.Fetch(context.Background(), Request{ID: "x", Tokens: 9999999})
	require.NoError(t, err)
	assert.Equal(t, "100000", gotTokens)
}

func TestFetchUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "library not found", http.StatusNotFound)
	}))
	defer server.Close()

	c := NewClient(server.URL, time.Second)
	_, err := c.Fetch(context.Background(), Request{ID: "ghost/lib"})
	require.Error(t, err)

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, 404, statusErr.Status)
	assert.Equal(t, "library not found", statusErr.Body)
}

func TestFetchEmptyBodySentinel(t *testing.T) {
	for _, body := range []string{"", "No content available", "No context data available"} {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(body))
		}))

		c := NewClient(server.URL, time.Second)
		got, err := c.Fetch(context.Background(), Request{ID: "x"})
		server.Close()
		require.NoError(t, err)
		assert.Equal(t, NoContentMessage, got)
	}
}

func TestNormalizeID(t *testing.T) {
	assert.Equal(t, "/vercel/next.js", normalizeID("vercel/next.js"))
	assert.Equal(t, "/vercel/next.js", normalizeID("/vercel/next.js"))
	assert.Equal(t, "/x", normalizeID("  //x"))
}
