// ABOUTME: Tests for the HTTP API routes, envelope, and error mapping.
// ABOUTME: Drives the chi router with httptest against a temp sqlite store.

package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/harper/marknote/internal/db"
	"github.com/harper/marknote/internal/metadata"
	"github.com/harper/marknote/internal/notes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testUser = "user-1"

type envelope struct {
	Success bool              `json:"success"`
	Data    json.RawMessage   `json:"data"`
	Error   string            `json:"error"`
	Details map[string]string `json:"details"`
}

type apiNote struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	URLTitle string `json:"url_title"`
	Tags     []struct {
		Name string `json:"name"`
	} `json:"tags"`
}

type apiTag struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Children []*apiTag `json:"children"`
	Count    int       `json:"note_count"`
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	s, _ := newTestServerWithPage(t)
	return s
}

// newTestServerWithPage also starts a page server for URL metadata fetches
// and returns its base URL.
func newTestServerWithPage(t *testing.T) (*Server, string) {
	t.Helper()

	page := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		_, _ = fmt.Fprint(w, `<title>Fetched Page</title><meta name="description" content="desc">`)
	}))
	t.Cleanup(page.Close)

	conn, err := db.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	svc := notes.NewService(conn, metadata.NewFetcher(metadata.Options{}), nil)
	return NewServer(svc, nil), page.URL
}

func do(t *testing.T, s *Server, method, path, user string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if user != "" {
		req.Header.Set(UserHeader, user)
	}
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec, env
}

func decodeData[T any](t *testing.T, env envelope) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(env.Data, &v))
	return v
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	rec, env := do(t, s, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.Success)
}

func TestRequiresUserHeader(t *testing.T) {
	s := newTestServer(t)
	rec, env := do(t, s, http.MethodGet, "/api/v1/notes", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, env.Success)
	assert.Contains(t, env.Error, UserHeader)
}

func TestCreateAndGetNote(t *testing.T) {
	s := newTestServer(t)

	rec, env := do(t, s, http.MethodPost, "/api/v1/notes", testUser, map[string]any{
		"title":   "Hello",
		"content": "# Body",
		"tags":    []string{"Work/A"},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decodeData[apiNote](t, env)
	assert.Equal(t, "Hello", created.Title)
	require.Len(t, created.Tags, 1)
	assert.Equal(t, "work/a", created.Tags[0].Name)

	rec, env = do(t, s, http.MethodGet, "/api/v1/notes/"+created.ID, testUser, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, created.ID, decodeData[apiNote](t, env).ID)

	rec, env = do(t, s, http.MethodGet, "/api/v1/notes/"+created.ID, "someone-else", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, db.ErrNoteNotFound.Error(), env.Error)
}

func TestCreateURLNoteFetchesMetadata(t *testing.T) {
	s, pageURL := newTestServerWithPage(t)

	rec, env := do(t, s, http.MethodPost, "/api/v1/notes", testUser, map[string]any{
		"is_url": true,
		"url":    pageURL,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	note := decodeData[apiNote](t, env)
	assert.Equal(t, "Fetched Page", note.Title)
	assert.Equal(t, "Fetched Page", note.URLTitle)
}

func TestCreateNoteValidation(t *testing.T) {
	s := newTestServer(t)

	rec, env := do(t, s, http.MethodPost, "/api/v1/notes", testUser, map[string]any{"url": "notaurl"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation failed", env.Error)
	assert.Contains(t, env.Details, "url")

	rec, _ = do(t, s, http.MethodPost, "/api/v1/notes", testUser, "{not json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, env = do(t, s, http.MethodPost, "/api/v1/notes", testUser, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "request body is empty", env.Error)
}

func TestUpdateAndDeleteNote(t *testing.T) {
	s := newTestServer(t)
	_, env := do(t, s, http.MethodPost, "/api/v1/notes", testUser, map[string]any{"title": "Old"})
	id := decodeData[apiNote](t, env).ID

	rec, env := do(t, s, http.MethodPatch, "/api/v1/notes/"+id, testUser, map[string]any{"title": "New", "tags": []string{"x"}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decodeData[apiNote](t, env)
	assert.Equal(t, "New", updated.Title)
	assert.Len(t, updated.Tags, 1)

	rec, _ = do(t, s, http.MethodDelete, "/api/v1/notes/"+id, testUser, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = do(t, s, http.MethodDelete, "/api/v1/notes/"+id, testUser, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListNotesQuery(t *testing.T) {
	s := newTestServer(t)
	for _, title := range []string{"alpha", "beta", "gamma"} {
		rec, _ := do(t, s, http.MethodPost, "/api/v1/notes", testUser, map[string]any{"title": title})
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec, env := do(t, s, http.MethodGet, "/api/v1/notes?sort_by=title&sort_order=asc&limit=2&offset=1", testUser, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	list := decodeData[[]apiNote](t, env)
	require.Len(t, list, 2)
	assert.Equal(t, "beta", list[0].Title)
	assert.Equal(t, "gamma", list[1].Title)

	rec, _ = do(t, s, http.MethodGet, "/api/v1/notes?limit=lots", testUser, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = do(t, s, http.MethodGet, "/api/v1/notes?sort_by=id", testUser, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, env = do(t, s, http.MethodGet, "/api/v1/notes?search=gam", testUser, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeData[[]apiNote](t, env), 1)
}

func TestSearchNotes(t *testing.T) {
	s := newTestServer(t)
	do(t, s, http.MethodPost, "/api/v1/notes", testUser, map[string]any{"title": "Goroutines", "content": "channels"})

	rec, env := do(t, s, http.MethodGet, "/api/v1/notes/search?q=channels", testUser, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeData[[]apiNote](t, env), 1)

	rec, env = do(t, s, http.MethodGet, "/api/v1/notes/search?q=c", testUser, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeData[[]apiNote](t, env))
}

func TestTagEndpoints(t *testing.T) {
	s := newTestServer(t)

	rec, env := do(t, s, http.MethodPost, "/api/v1/tags", testUser, map[string]any{"name": "Work"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	work := decodeData[apiTag](t, env)

	rec, _ = do(t, s, http.MethodPost, "/api/v1/tags", testUser, map[string]any{"name": "work"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec, env = do(t, s, http.MethodPost, "/api/v1/tags", testUser, map[string]any{"name": ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, env.Details, "name")

	do(t, s, http.MethodPost, "/api/v1/notes", testUser, map[string]any{"title": "n", "tags": []string{"work/a"}})

	rec, env = do(t, s, http.MethodGet, "/api/v1/tags/tree", testUser, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	tree := decodeData[[]*apiTag](t, env)
	require.Len(t, tree, 1)
	assert.Equal(t, "work", tree[0].Name)
	require.Len(t, tree[0].Children, 1)
	assert.Equal(t, 1, tree[0].Children[0].Count)

	rec, env = do(t, s, http.MethodGet, "/api/v1/tags/suggest?q=wor", testUser, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeData[[]apiTag](t, env), 2)

	rec, env = do(t, s, http.MethodPatch, "/api/v1/tags/"+work.ID, testUser, map[string]any{"name": "jobs"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "jobs", decodeData[apiTag](t, env).Name)

	rec, env = do(t, s, http.MethodGet, "/api/v1/tags", testUser, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	flat := decodeData[[]apiTag](t, env)
	require.Len(t, flat, 2)
	assert.Equal(t, "jobs/a", flat[1].Name)

	rec, env = do(t, s, http.MethodDelete, "/api/v1/tags/"+work.ID, testUser, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]int{"removed": 2}, decodeData[map[string]int](t, env))

	rec, _ = do(t, s, http.MethodDelete, "/api/v1/tags/"+work.ID, testUser, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestNoteTagEndpoints(t *testing.T) {
	s := newTestServer(t)
	_, env := do(t, s, http.MethodPost, "/api/v1/notes", testUser, map[string]any{"title": "n"})
	id := decodeData[apiNote](t, env).ID

	rec, _ := do(t, s, http.MethodPost, "/api/v1/notes/"+id+"/tags", testUser, map[string]any{"tag": "Work/A"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec, env = do(t, s, http.MethodGet, "/api/v1/notes/"+id, testUser, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, decodeData[apiNote](t, env).Tags, 1)

	rec, _ = do(t, s, http.MethodDelete, "/api/v1/notes/"+id+"/tags?tag=work/a", testUser, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	_, env = do(t, s, http.MethodGet, "/api/v1/notes/"+id, testUser, nil)
	assert.Empty(t, decodeData[apiNote](t, env).Tags)
}

func TestMetadataEndpoint(t *testing.T) {
	s, pageURL := newTestServerWithPage(t)

	rec, env := do(t, s, http.MethodPost, "/api/v1/metadata", testUser, map[string]any{"url": pageURL})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	meta := decodeData[metadata.Metadata](t, env)
	assert.Equal(t, "Fetched Page", meta.Title)
	assert.Equal(t, "desc", meta.Description)

	rec, _ = do(t, s, http.MethodPost, "/api/v1/metadata", testUser, map[string]any{"url": pageURL + "/missing"})
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	rec, _ = do(t, s, http.MethodPost, "/api/v1/metadata", testUser, map[string]any{"url": "ftp://x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = do(t, s, http.MethodPost, "/api/v1/metadata", testUser, map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{notes.ErrMissingUser, http.StatusUnauthorized},
		{fmt.Errorf("wrap: %w", db.ErrTagExists), http.StatusConflict},
		{db.ErrTagNotFound, http.StatusNotFound},
		{db.ErrAmbiguousPrefix, http.StatusBadRequest},
		{&notes.ValidationError{Fields: map[string]string{"x": "is invalid"}}, http.StatusBadRequest},
		{&metadata.HTTPError{StatusCode: 500}, http.StatusBadGateway},
		{metadata.ErrTimeout, http.StatusGatewayTimeout},
		{notes.ErrFetchDisabled, http.StatusServiceUnavailable},
		{fmt.Errorf("disk on fire"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}
