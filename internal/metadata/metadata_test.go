// ABOUTME: Tests for URL metadata fetching and HTML extraction.
// ABOUTME: Uses httptest servers for network behaviour and an in-memory cache.

package metadata

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name      string
		doc       string
		wantTitle string
		wantDesc  string
	}{
		{
			name: "open graph wins",
			doc: `<html><head><title>Plain</title>
				<meta property="og:title" content="OG Title">
				<meta name="description" content="plain desc">
				<meta property="og:description" content="og desc"></head></html>`,
			wantTitle: "OG Title",
			wantDesc:  "og desc",
		},
		{
			name:      "falls back to title and meta description",
			doc:       `<html><head><title>  Example Domain </title><meta name="description" content="Reserved"></head></html>`,
			wantTitle: "Example Domain",
			wantDesc:  "Reserved",
		},
		{
			name:      "entities decoded",
			doc:       `<title>Tom &amp; Jerry &quot;live&quot; &#39;now&#39;</title><meta property="og:description" content="a &lt; b">`,
			wantTitle: `Tom & Jerry "live" 'now'`,
			wantDesc:  "a < b",
		},
		{
			name:      "untitled default",
			doc:       `<html><body><p>no head</p></body></html>`,
			wantTitle: "Untitled",
			wantDesc:  "",
		},
		{
			name:      "empty og content ignored",
			doc:       `<meta property="og:title" content=""><title>Real</title>`,
			wantTitle: "Real",
		},
		{
			name:      "attribute order and case do not matter",
			doc:       `<META CONTENT="Shouty" PROPERTY="OG:TITLE">`,
			wantTitle: "Shouty",
		},
		{
			name:      "svg title is not the page title",
			doc:       `<body><svg><title>icon</title></svg></body>`,
			wantTitle: "Untitled",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			meta, err := Parse(strings.NewReader(tt.doc))
			require.NoError(t, err)
			assert.Equal(t, tt.wantTitle, meta.Title)
			assert.Equal(t, tt.wantDesc, meta.Description)
		})
	}
}

func TestValidateURL(t *testing.T) {
	for _, raw := range []string{"http://example.com", "https://example.com/a?b=c", " HTTPS://Example.com "} {
		_, err := ValidateURL(raw)
		assert.NoError(t, err, raw)
	}
	for _, raw := range []string{"", "example.com", "ftp://example.com", "javascript:alert(1)", "file:///etc/passwd", "http://"} {
		_, err := ValidateURL(raw)
		assert.ErrorIs(t, err, ErrInvalidURL, raw)
	}
}

func TestFetch(t *testing.T) {
	headers := make(chan http.Header, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers <- r.Header.Clone()
		w.Header().Set("Content-Type", "text/html")
		_, _ = fmt.Fprint(w, `<html><head><meta property="og:title" content="Hello"><meta name="description" content="World"></head></html>`)
	}))
	defer srv.Close()

	meta, err := NewFetcher(Options{}).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)

	assert.Equal(t, "Hello", meta.Title)
	assert.Equal(t, "World", meta.Description)
	assert.Equal(t, srv.URL, meta.URL)
	assert.False(t, meta.FetchedAt.IsZero())
	got := <-headers
	assert.Equal(t, UserAgent, got.Get("User-Agent"))
	assert.Equal(t, "text/html,application/xhtml+xml", got.Get("Accept"))
}

func TestFetchHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	_, err := NewFetcher(Options{}).Fetch(context.Background(), srv.URL)
	var httpErr *HTTPError
	require.True(t, errors.As(err, &httpErr), "got %v", err)
	assert.Equal(t, http.StatusNotFound, httpErr.StatusCode)
	assert.Equal(t, "HTTP 404", httpErr.Error())
}

func TestFetchInvalidURL(t *testing.T) {
	_, err := NewFetcher(Options{}).Fetch(context.Background(), "mailto:someone@example.com")
	assert.ErrorIs(t, err, ErrInvalidURL)
}

func TestFetchTruncatesLargePages(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, "<html><head>")
		_, _ = fmt.Fprint(w, strings.Repeat("<!-- padding -->", 200))
		_, _ = fmt.Fprint(w, "<title>Too Late</title></head></html>")
	}))
	defer srv.Close()

	meta, err := NewFetcher(Options{MaxBytes: 1024}).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "Untitled", meta.Title)
}

func TestFetchTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	_, err := NewFetcher(Options{Timeout: 50 * time.Millisecond}).Fetch(context.Background(), srv.URL)
	assert.ErrorIs(t, err, ErrTimeout)
}

type memoryCache struct {
	mu    sync.Mutex
	items map[string]Metadata
}

func (c *memoryCache) Get(_ context.Context, key string, v any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.items[key]
	if ok {
		*(v.(*Metadata)) = m
	}
	return ok, nil
}

func (c *memoryCache) Put(_ context.Context, key string, v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = *(v.(*Metadata))
	return nil
}

func TestFetchUsesCache(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = fmt.Fprint(w, "<title>Cached</title>")
	}))
	defer srv.Close()

	fetcher := NewFetcher(Options{Cache: &memoryCache{items: map[string]Metadata{}}})
	for i := 0; i < 3; i++ {
		meta, err := fetcher.Fetch(context.Background(), srv.URL)
		require.NoError(t, err)
		assert.Equal(t, "Cached", meta.Title)
	}
	assert.Equal(t, int32(1), hits.Load())
}

func TestFetchDoesNotCacheFailures(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	fetcher := NewFetcher(Options{Cache: &memoryCache{items: map[string]Metadata{}}})
	for i := 0; i < 2; i++ {
		_, err := fetcher.Fetch(context.Background(), srv.URL)
		require.Error(t, err)
	}
	assert.Equal(t, int32(2), hits.Load())
}

func TestFetchHonorsCanceledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, "<title>x</title>")
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewFetcher(Options{RequestsPerSecond: 1}).Fetch(ctx, srv.URL)
	assert.Error(t, err)
}
