// ABOUTME: End-to-end tests for the marknote CLI.
// ABOUTME: Runs commands in-process against a temporary database and config.

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/harper/marknote/internal/models"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

type cliEnv struct {
	t      *testing.T
	dbPath string
	config string
}

// newCLIEnv isolates XDG paths and writes a config with the metadata cache off.
func newCLIEnv(t *testing.T) *cliEnv {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("XDG_CACHE_HOME", filepath.Join(dir, "cache"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(dir, "data"))
	for _, key := range []string{"MARKNOTE_DB", "MARKNOTE_USER", "MARKNOTE_LOG_LEVEL", "MARKNOTE_ADDR", "MARKNOTE_CACHE_TTL", "MARKNOTE_FETCH_RPS"} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}

	configPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("log_level: error\nmetadata:\n  cache_path: \"\"\n  requests_per_second: 0\n"), 0600))

	return &cliEnv{t: t, dbPath: filepath.Join(dir, "marknote.db"), config: configPath}
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func (e *cliEnv) run(stdin string, args ...string) (string, error) {
	e.t.Helper()
	resetFlags(rootCmd)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(append([]string{"--db", e.dbPath, "--config", e.config}, args...))

	err := rootCmd.ExecuteContext(context.Background())
	cleanup()
	return out.String(), err
}

func (e *cliEnv) mustRun(args ...string) string {
	e.t.Helper()
	out, err := e.run("", args...)
	require.NoError(e.t, err, out)
	return out
}

// createdID pulls the short ID out of "Created note abc123".
func createdID(t *testing.T, out string) string {
	t.Helper()
	fields := strings.Fields(out)
	require.NotEmpty(t, fields)
	id := fields[len(fields)-1]
	require.Len(t, id, 6, out)
	return id
}

func TestRootRunsSetupForDataCommands(t *testing.T) {
	require.NotNil(t, rootCmd.PersistentPreRunE)

	// Data commands inherit setup from root; only config opts out.
	for _, cmd := range []*cobra.Command{addCmd, listCmd, tagTreeCmd, serveCmd} {
		assert.Nil(t, cmd.PersistentPreRunE, cmd.Name())
	}
	assert.NotNil(t, configCmd.PersistentPreRunE)
}

func TestAddListShow(t *testing.T) {
	env := newCLIEnv(t)

	out := env.mustRun("add", "Groceries", "--content", "milk and eggs", "--tags", "Home/Errands, home")
	assert.Contains(t, out, "Created note")
	id := createdID(t, out)

	out = env.mustRun("list")
	assert.Contains(t, out, id)
	assert.Contains(t, out, "Groceries")
	assert.Contains(t, out, "home, home/errands")

	out = env.mustRun("list", "--tag", "home/errands")
	assert.Contains(t, out, "Groceries")

	out = env.mustRun("list", "--kind", "urls")
	assert.Equal(t, "No notes found.\n", out)

	out = env.mustRun("show", id, "--raw")
	assert.Contains(t, out, "Groceries")
	assert.Contains(t, out, "milk and eggs")
}

func TestAddRejectsEmptyContent(t *testing.T) {
	env := newCLIEnv(t)
	empty := filepath.Join(t.TempDir(), "empty.md")
	require.NoError(t, os.WriteFile(empty, []byte("  \n"), 0600))

	_, err := env.run("", "add", "Nothing", "--file", empty)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot be empty")
}

func TestAddURLFetchesMetadata(t *testing.T) {
	page := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, `<title>Fetched Page</title><meta property="og:description" content="About the page">`)
	}))
	t.Cleanup(page.Close)
	env := newCLIEnv(t)

	out := env.mustRun("add", "Untitled", "--url", page.URL)
	id := createdID(t, out)

	out = env.mustRun("show", id, "--raw")
	assert.Contains(t, out, "Fetched Page")
	assert.Contains(t, out, "URL: "+page.URL)
	assert.Contains(t, out, "About: About the page")

	out = env.mustRun("list", "--kind", "urls")
	assert.Contains(t, out, "[url]")

	out = env.mustRun("fetch", page.URL)
	assert.Equal(t, "Title: Fetched Page\nDescription: About the page\n", out)
}

func TestFetchRejectsNonHTTP(t *testing.T) {
	env := newCLIEnv(t)

	_, err := env.run("", "fetch", "ftp://example.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "http or https")
}

func TestEditFlags(t *testing.T) {
	env := newCLIEnv(t)
	id := createdID(t, env.mustRun("add", "Draft", "--content", "v1"))

	out := env.mustRun("edit", id, "--title", "Final", "--content", "v2")
	assert.Contains(t, out, "Updated note "+id)

	out = env.mustRun("show", id, "--raw")
	assert.Contains(t, out, "Final")
	assert.Contains(t, out, "v2")
}

func TestSearch(t *testing.T) {
	env := newCLIEnv(t)
	env.mustRun("add", "Gardening", "--content", "tomatoes need sun")
	env.mustRun("add", "Cooking", "--content", "pasta")

	out := env.mustRun("search", "tomato")
	assert.Contains(t, out, "Gardening")
	assert.NotContains(t, out, "Cooking")
}

func TestRemoveNote(t *testing.T) {
	env := newCLIEnv(t)
	id := createdID(t, env.mustRun("add", "Doomed", "--content", "x"))

	out, err := env.run("n\n", "rm", id)
	require.NoError(t, err)
	assert.Contains(t, out, "Cancelled.")

	out, err = env.run("y\n", "rm", id)
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted note "+id)

	_, err = env.run("", "show", id)
	assert.Error(t, err)
}

func TestTagCommands(t *testing.T) {
	env := newCLIEnv(t)
	env.mustRun("tag", "create", "work")
	id := createdID(t, env.mustRun("add", "Tagged", "--content", "x", "--tags", "work/a"))
	env.mustRun("tag", "create", "home")

	out := env.mustRun("tag", "tree", "--totals")
	assert.Equal(t, "  home\n  work (0/1)\n    a (1/1)\n", out)

	out = env.mustRun("tag", "tree", "--selected", "work/a")
	assert.Equal(t, "  home\n  work\n*   a (1)\n", out)

	out = env.mustRun("tag", "tree", "work")
	assert.Equal(t, "  work\n    a (1)\n", out)

	out = env.mustRun("tag", "list")
	assert.Equal(t, "  home (0)\n  work (0)\n  work/a (1)\n", out)

	out = env.mustRun("tag", "suggest", "WOR")
	assert.Equal(t, "  work\n  work/a\n", out)

	out = env.mustRun("tag", "rename", "work", "job")
	assert.Contains(t, out, `Renamed tag to "job"`)

	out = env.mustRun("tag", "tree")
	assert.Equal(t, "  home\n  job\n    a (1)\n", out)

	_, err := env.run("", "tag", "rename", "home", "job")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	out = env.mustRun("tag", "add", id, "Reading")
	assert.Contains(t, out, `Added tag "reading"`)
	out = env.mustRun("tag", "remove", id, "reading")
	assert.Contains(t, out, `Removed tag "reading"`)

	out, err = env.run("no\n", "tag", "rm", "job")
	require.NoError(t, err)
	assert.Contains(t, out, "Cancelled.")

	out = env.mustRun("tag", "rm", "job", "--force")
	assert.Contains(t, out, "Deleted 2 tag(s)")

	out = env.mustRun("tag", "tree")
	assert.Equal(t, "  home\n  reading\n", out)

	out = env.mustRun("show", id, "--raw")
	assert.Contains(t, out, "Tagged")
}

func TestTagCreateWithParent(t *testing.T) {
	env := newCLIEnv(t)
	env.mustRun("tag", "create", "work")
	env.mustRun("tag", "create", "work/q3", "--parent", "work")

	out := env.mustRun("tag", "tree")
	assert.Equal(t, "  work\n    q3\n", out)

	_, err := env.run("", "tag", "create", "x", "--parent", "nope")
	assert.Error(t, err)
}

func TestUserScoping(t *testing.T) {
	env := newCLIEnv(t)
	env.mustRun("--user", "alice", "add", "Alice's note", "--content", "private")

	out := env.mustRun("--user", "bob", "list")
	assert.Equal(t, "No notes found.\n", out)

	out = env.mustRun("--user", "alice", "list")
	assert.Contains(t, out, "Alice's note")
}

func TestExportImportJSON(t *testing.T) {
	env := newCLIEnv(t)
	env.mustRun("add", "First", "--content", "one", "--tags", "a/b")
	env.mustRun("add", "Second", "--content", "two")

	out := env.mustRun("export")
	var export ExportData
	require.NoError(t, json.Unmarshal([]byte(out), &export))
	assert.Equal(t, exportVersion, export.Version)
	require.Len(t, export.Notes, 2)
	assert.Equal(t, "First", export.Notes[0].Title)
	assert.Equal(t, []string{"a/b"}, export.Notes[0].Tags)

	path := filepath.Join(t.TempDir(), "backup.json")
	env.mustRun("export", "--output", path)

	out = env.mustRun("--user", "restore", "import", path)
	assert.Contains(t, out, "Imported 0 notes", "IDs already exist, so nothing is restored")

	fresh := newCLIEnv(t)
	out = fresh.mustRun("--user", "restore", "import", path)
	assert.Contains(t, out, "Imported 2 notes")

	out = fresh.mustRun("--user", "restore", "list", "--tag", "a/b")
	assert.Contains(t, out, "First")

	out = fresh.mustRun("--user", "restore", "tag", "tree")
	assert.Equal(t, "  a/b (1)\n", out)
}

func TestExportImportMarkdown(t *testing.T) {
	env := newCLIEnv(t)
	env.mustRun("add", "Plan: Q3", "--content", "# Goals\n\nship it", "--tags", "work")

	dir := filepath.Join(t.TempDir(), "md")
	out := env.mustRun("export", "--format", "md", "--output", dir)
	assert.Contains(t, out, "Exported 1 notes")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, strings.HasPrefix(entries[0].Name(), "Plan- Q3-"))

	fresh := newCLIEnv(t)
	out = fresh.mustRun("import", dir)
	assert.Contains(t, out, "Imported 1 notes")

	out = fresh.mustRun("list", "--tag", "work")
	assert.Contains(t, out, "Plan: Q3")
}

func TestParseMarkdownNote(t *testing.T) {
	en, err := parseMarkdownNote("/tmp/ideas.md", "just a body\n")
	require.NoError(t, err)
	assert.Equal(t, "ideas", en.Title)
	assert.Equal(t, "just a body", en.Content)

	doc := "---\ntitle: Link\nurl: https://example.com\ntags:\n  - read/later\n---\n\n"
	en, err = parseMarkdownNote("x.md", doc)
	require.NoError(t, err)
	assert.Equal(t, "Link", en.Title)
	assert.Equal(t, "https://example.com", en.URL)
	assert.Equal(t, []string{"read/later"}, en.Tags)

	_, err = parseMarkdownNote("x.md", "---\ntitle: Empty\n---\n")
	assert.Error(t, err)

	_, err = parseMarkdownNote("x.md", "---\ntitle: [broken\n---\nbody")
	assert.Error(t, err)
}

func TestMarkdownNoteRoundTrip(t *testing.T) {
	note := &models.NoteWithTags{
		Note: models.NewNote("u", "Title", "Body text"),
		Tags: []*models.Tag{models.NewTag("u", "x/y")},
	}

	doc, err := markdownNote(note)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(doc, "---\n"))
	assert.True(t, strings.HasSuffix(doc, "---\n\nBody text"))

	en, err := parseMarkdownNote("ignored.md", doc)
	require.NoError(t, err)
	assert.Equal(t, note.ID.String(), en.ID)
	assert.Equal(t, "Title", en.Title)
	assert.Equal(t, "Body text", en.Content)
	assert.Equal(t, []string{"x/y"}, en.Tags)
	assert.True(t, note.CreatedAt.Equal(en.CreatedAt))
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "a-b-c", sanitizeFilename("a/b:c"))
	assert.Len(t, sanitizeFilename(strings.Repeat("x", 150)), 100)
}

func TestConfigCommands(t *testing.T) {
	env := newCLIEnv(t)
	path := filepath.Join(t.TempDir(), "new", "config.yaml")

	out, err := env.runWithConfig(path, "config", "init")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Wrote "+path)

	_, err = env.runWithConfig(path, "config", "init")
	assert.Error(t, err)

	out, err = env.runWithConfig(path, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "db_path: "+env.dbPath)
	assert.Contains(t, out, "user_id: local")
}

// runWithConfig points --config at path instead of the env's own file.
func (e *cliEnv) runWithConfig(path string, args ...string) (string, error) {
	saved := e.config
	e.config = path
	defer func() { e.config = saved }()
	return e.run("", args...)
}

// fakeEditor installs a script as $EDITOR that overwrites the file with text.
func fakeEditor(t *testing.T, text string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("editor script needs a POSIX shell")
	}
	script := filepath.Join(t.TempDir(), "editor.sh")
	body := fmt.Sprintf("#!/bin/sh\nprintf '%%s' '%s' > \"$1\"\n", text)
	require.NoError(t, os.WriteFile(script, []byte(body), 0700)) //nolint:gosec // test script must be executable
	t.Setenv("VISUAL", "")
	t.Setenv("EDITOR", script)
}

func TestAddAndEditWithEditor(t *testing.T) {
	env := newCLIEnv(t)

	fakeEditor(t, "written in editor")
	id := createdID(t, env.mustRun("add", "Editor note"))

	out := env.mustRun("show", id, "--raw")
	assert.Contains(t, out, "written in editor")

	out = env.mustRun("edit", id)
	assert.Equal(t, "No changes made.\n", out)

	fakeEditor(t, "rewritten")
	out = env.mustRun("edit", id)
	assert.Contains(t, out, "Updated note "+id)

	out = env.mustRun("show", id, "--raw")
	assert.Contains(t, out, "rewritten")
}

func TestEditorCommand(t *testing.T) {
	t.Setenv("VISUAL", "")
	t.Setenv("EDITOR", "")
	name, args := editorCommand()
	assert.Equal(t, defaultEditor, name)
	assert.Empty(t, args)

	t.Setenv("EDITOR", "code --wait")
	name, args = editorCommand()
	assert.Equal(t, "code", name)
	assert.Equal(t, []string{"--wait"}, args)

	t.Setenv("VISUAL", "nano")
	name, _ = editorCommand()
	assert.Equal(t, "nano", name)
}
