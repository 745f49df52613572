package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/formsync/internal/model"
)

// workspace is a sqlite-backed CLI environment in a temp directory.
type workspace struct {
	t      *testing.T
	config string
}

func newWorkspace(t *testing.T) *workspace {
	t.Helper()
	dir := t.TempDir()
	cfg := filepath.Join(dir, "formsync.yaml")
	content := "backend: sqlite\npath: " + filepath.Join(dir, "forms.db") + "\ntiming:\n  settle_delay: 0s\n"
	require.NoError(t, os.WriteFile(cfg, []byte(content), 0644))
	return &workspace{t: t, config: cfg}
}

type cliRun struct {
	stdout string
	stderr string
	err    error
}

func (w *workspace) run(args ...string) cliRun {
	w.t.Helper()
	return execute(append([]string{"--config", w.config}, args...)...)
}

// runJSON runs a command with --format json and decodes the response.
func (w *workspace) runJSON(args ...string) (jsonResponse, error) {
	w.t.Helper()
	r := w.run(append([]string{"--format", "json"}, args...)...)
	var resp jsonResponse
	require.NoError(w.t, json.Unmarshal([]byte(r.stdout), &resp), "stdout: %s\nstderr: %s", r.stdout, r.stderr)
	return resp, r.err
}

type jsonResponse struct {
	Status        string          `json:"status"`
	Data          json.RawMessage `json:"data"`
	Error         *CLIError       `json:"error"`
	Notifications []string        `json:"notifications"`
}

func execute(args ...string) cliRun {
	opts := &RootOptions{Getenv: func(string) string { return "" }}
	cmd := newRootCommand(opts)
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return cliRun{stdout: out.String(), stderr: errOut.String(), err: err}
}

func (w *workspace) firstFormID() string {
	w.t.Helper()
	resp, err := w.runJSON("list")
	require.NoError(w.t, err)
	var rows []FormSummary
	require.NoError(w.t, json.Unmarshal(resp.Data, &rows))
	require.NotEmpty(w.t, rows)
	return rows[0].ID
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	assert.Equal(t, "formsync", cmd.Use)

	for _, name := range []string{"init", "new", "list", "show", "title", "question", "publish", "answer", "respond", "check", "import", "history", "test"} {
		sub, _, err := cmd.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, sub.Name())
	}

	for _, flag := range []string{"verbose", "format", "config", "backend", "path", "redis-addr", "simulate"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(flag), flag)
	}
}

func TestInvalidFormat(t *testing.T) {
	r := execute("--format", "yaml", "list")
	require.Error(t, r.err)
	assert.Contains(t, r.err.Error(), "invalid format")
}

func TestInit_CreatesFirstForm(t *testing.T) {
	w := newWorkspace(t)

	r := w.run("init")
	require.NoError(t, r.err, r.stderr)
	assert.Equal(t, "Storage ready (sqlite), 1 form(s)\n", r.stdout)

	// A second run loads the stored form instead of creating another.
	r = w.run("init")
	require.NoError(t, r.err)
	assert.Contains(t, r.stdout, "1 form(s)")

	r = w.run("list")
	require.NoError(t, r.err)
	assert.Contains(t, r.stdout, "Form 1")
	assert.Contains(t, r.stdout, "PUBLISHED")
}

func TestNewAndTitle(t *testing.T) {
	w := newWorkspace(t)

	resp, err := w.runJSON("new")
	require.NoError(t, err)
	var created FormSummary
	require.NoError(t, json.Unmarshal(resp.Data, &created))
	assert.Equal(t, "Form 2", created.Title)
	assert.Equal(t, 1, created.Questions)

	r := w.run("title", created.ID[:len(created.ID)-4], "Feedback")
	require.NoError(t, r.err, r.stdout)
	assert.Contains(t, r.stdout, `to "Feedback"`)

	r = w.run("show", created.ID)
	require.NoError(t, r.err)
	assert.Contains(t, r.stdout, "Feedback ("+created.ID+")")
	assert.Contains(t, r.stdout, "0. (untitled) [text]")
}

func TestShow_UnknownForm(t *testing.T) {
	w := newWorkspace(t)
	r := w.run("show", "nope")
	require.Error(t, r.err)
	assert.Equal(t, ExitCommandError, GetExitCode(r.err))
	assert.True(t, WasReported(r.err))
	assert.Contains(t, r.stdout, "Error [E004]")
}

func TestBuildPublishRespond(t *testing.T) {
	w := newWorkspace(t)
	id := w.firstFormID()

	require.NoError(t, w.run("question", "set", id, "0", "questionTitle", "Name").err)
	require.NoError(t, w.run("question", "set", id, "0", "isRequired", "true").err)

	r := w.run("question", "add", id, "--title", "Email", "--type", "email")
	require.NoError(t, r.err, r.stdout)
	assert.Contains(t, r.stdout, "1. Email [email]")

	r = w.run("publish", id)
	require.NoError(t, r.err, r.stdout)
	assert.Contains(t, r.stdout, "Published Form 1")
	assert.Contains(t, r.stderr, "success: Form is submitted successfully.")

	// Published forms no longer accept edits.
	r = w.run("question", "set", id, "0", "helperText", "late")
	require.Error(t, r.err)
	assert.Equal(t, ExitFailure, GetExitCode(r.err))
	assert.Contains(t, r.stdout, "already submitted")

	resp, err := w.runJSON("answer", id, "Name=Ada", "Email=bad")
	require.NoError(t, err)
	var answered AnswerResult
	require.NoError(t, json.Unmarshal(resp.Data, &answered))
	assert.Equal(t, map[string]string{"Name": "Ada", "Email": "bad"}, answered.Values)
	assert.Equal(t, map[string]string{"Email": "Please enter valid email"}, answered.Errors)
	assert.False(t, answered.Valid)

	resp, err = w.runJSON("respond", id)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeInvalid, resp.Error.Code)

	_, err = w.runJSON("answer", id, "Email=ada@example.com")
	require.NoError(t, err)

	resp, err = w.runJSON("respond", id)
	require.NoError(t, err)
	assert.Contains(t, resp.Notifications, "success: Your response is submitted successfully.")

	resp, err = w.runJSON("show", id)
	require.NoError(t, err)
	var form model.Form
	require.NoError(t, json.Unmarshal(resp.Data, &form))
	assert.True(t, form.IsSubmitted)
	require.NotNil(t, form.Responses)
	assert.True(t, form.Responses.IsSubmitted)
	assert.Equal(t, "ada@example.com", form.Responses.Values["Email"])

	resp, err = w.runJSON("history")
	require.NoError(t, err)
	var revs []RevisionSummary
	require.NoError(t, json.Unmarshal(resp.Data, &revs))
	// create, two edits, add, publish, two answers, respond
	require.Len(t, revs, 8)
	assert.NotEmpty(t, revs[7].WrittenAt)

	r = w.run("history", "--at", "1")
	require.NoError(t, r.err)
	assert.Contains(t, r.stdout, `"title":"Form 1"`)
}

func TestQuestionSet_InvalidIsNotSaved(t *testing.T) {
	w := newWorkspace(t)
	id := w.firstFormID()

	r := w.run("question", "set", id, "0", "questionType", "number")
	require.Error(t, r.err)
	assert.Contains(t, r.stdout, "question_0: Question title is required")

	require.NoError(t, w.run("question", "set", id, "0", "questionTitle", "Age").err)

	// The first question carries a year number type.
	r = w.run("question", "set", id, "0", "questionType", "number")
	require.NoError(t, r.err, r.stdout)
	assert.Contains(t, r.stdout, "0. Age [number/year]")

	r = w.run("question", "set", id, "0", "numberType", "")
	require.Error(t, r.err)
	assert.Equal(t, ExitFailure, GetExitCode(r.err))
	assert.Contains(t, r.stdout, "Error [E005]: question is invalid and was not saved")
	assert.Contains(t, r.stdout, "question_0: Number type is required")

	r = w.run("show", id)
	require.NoError(t, r.err)
	assert.Contains(t, r.stdout, "0. Age [number/year]")

	r = w.run("question", "set", id, "0", "colour", "red")
	require.Error(t, r.err)
	assert.Equal(t, ExitCommandError, GetExitCode(r.err))

	r = w.run("question", "set", id, "7", "questionTitle", "x")
	require.Error(t, r.err)
	assert.Equal(t, ExitCommandError, GetExitCode(r.err))
}

func TestQuestionAddAndDelete(t *testing.T) {
	w := newWorkspace(t)
	id := w.firstFormID()

	// The first question is untitled, so nothing can be added yet.
	r := w.run("question", "add", id, "--title", "Age", "--type", "number", "--number-type", "year")
	require.Error(t, r.err)
	assert.Contains(t, r.stdout, "cannot add a question")

	require.NoError(t, w.run("question", "set", id, "0", "questionTitle", "Name").err)
	require.NoError(t, w.run("question", "add", id, "--title", "Age", "--type", "number", "--number-type", "year").err)

	r = w.run("question", "delete", id, "0")
	require.Error(t, r.err)
	assert.Contains(t, r.stdout, "question 0 cannot be deleted")

	r = w.run("question", "delete", id, "1")
	require.NoError(t, r.err, r.stdout)
	assert.NotContains(t, r.stdout, "Age")

	r = w.run("question", "add", id, "--title", "Score", "--type", "number")
	require.Error(t, r.err)
	assert.Contains(t, r.stdout, "Number type is required")
}

func TestAnswer_RequiresPublishedForm(t *testing.T) {
	w := newWorkspace(t)
	id := w.firstFormID()

	r := w.run("answer", id, "Name=Ada")
	require.Error(t, r.err)
	assert.Equal(t, ExitFailure, GetExitCode(r.err))
	assert.Contains(t, r.stdout, "not submitted by the builder")

	r = w.run("answer", id, "no-equals")
	require.Error(t, r.err)
	assert.Equal(t, ExitCommandError, GetExitCode(r.err))
}

func TestCheckTemplates(t *testing.T) {
	r := execute("check", filepath.Join("..", "template", "testdata", "library"))
	require.NoError(t, r.err, r.stdout)
	assert.Contains(t, r.stdout, `✓ contact: "Contact", 3 question(s)`)
	assert.Contains(t, r.stdout, `✓ survey: "Survey", 3 question(s)`)

	r = execute("check", filepath.Join("..", "template", "testdata", "invalid.cue"))
	require.Error(t, r.err)
	assert.Equal(t, ExitFailure, GetExitCode(r.err))
	assert.Contains(t, r.stdout, "3 template problem(s)")

	r = execute("check", filepath.Join("..", "template", "testdata", "missing.cue"))
	require.Error(t, r.err)
	assert.Equal(t, ExitCommandError, GetExitCode(r.err))
}

func TestImportTemplates(t *testing.T) {
	w := newWorkspace(t)

	resp, err := w.runJSON("import", filepath.Join("..", "template", "testdata", "library"))
	require.NoError(t, err)
	var imported []TemplateSummary
	require.NoError(t, json.Unmarshal(resp.Data, &imported))
	require.Len(t, imported, 2)
	assert.Equal(t, "contact", imported[0].Name)

	resp, err = w.runJSON("list")
	require.NoError(t, err)
	var rows []FormSummary
	require.NoError(t, json.Unmarshal(resp.Data, &rows))
	require.Len(t, rows, 3)
	assert.Equal(t, "Form 1", rows[0].Title)
	assert.Equal(t, "Contact", rows[1].Title)
	assert.Equal(t, 3, rows[2].Questions)
}

func TestConfigErrors(t *testing.T) {
	r := execute("--backend", "postgres", "list")
	require.Error(t, r.err)
	assert.Equal(t, ExitCommandError, GetExitCode(r.err))
	assert.Contains(t, r.stdout, "Backend must be one of")

	r = execute("--backend", "memory", "history")
	require.Error(t, r.err)
	assert.Contains(t, r.stdout, "history requires the sqlite backend")
}

func TestMemoryBackend(t *testing.T) {
	r := execute("--backend", "memory", "list")
	require.NoError(t, r.err)
	assert.Contains(t, r.stdout, "Form 1")
}

func TestBadgerBackend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "badger")
	r := execute("--backend", "badger", "--path", path, "new")
	require.NoError(t, r.err, r.stdout)

	r = execute("--backend", "badger", "--path", path, "list")
	require.NoError(t, r.err)
	assert.Contains(t, r.stdout, "Form 1")
	assert.Contains(t, r.stdout, "Form 2")
}

func TestTestCommand(t *testing.T) {
	scenarios := filepath.Join("..", "harness", "testdata", "scenarios")
	golden := filepath.Join("..", "harness", "testdata", "golden")

	r := execute("test", scenarios, "--golden", golden)
	require.NoError(t, r.err, r.stdout)
	assert.Contains(t, r.stdout, "✓ publish-and-respond")
	assert.Contains(t, r.stdout, "0 failed")

	r = execute("test", scenarios, "--golden", golden, "--filter", "save*")
	require.NoError(t, r.err)
	assert.Contains(t, r.stdout, "1 passed, 0 failed, 1 total")

	r = execute("test", filepath.Join(t.TempDir(), "missing"))
	require.Error(t, r.err)
	assert.Equal(t, ExitCommandError, GetExitCode(r.err))
}

func TestTestCommand_GoldenMismatchAndUpdate(t *testing.T) {
	dir := t.TempDir()
	src, err := os.ReadFile(filepath.Join("..", "harness", "testdata", "scenarios", "save_failure.yaml"))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "save_failure.yaml"), src, 0644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "golden"), 0755))
	goldenPath := filepath.Join(dir, "golden", "save-failure.golden")
	require.NoError(t, os.WriteFile(goldenPath, []byte("{}\n"), 0644))

	r := execute("test", dir)
	require.Error(t, r.err)
	assert.Equal(t, ExitFailure, GetExitCode(r.err))
	assert.Contains(t, r.stdout, "does not match golden file")

	r = execute("test", dir, "--update")
	require.NoError(t, r.err)
	assert.Contains(t, r.stdout, "golden updated")

	r = execute("--format", "json", "test", dir)
	require.NoError(t, r.err)
	var resp jsonResponse
	require.NoError(t, json.Unmarshal([]byte(r.stdout), &resp))
	assert.Equal(t, "ok", resp.Status)
}

func TestTestCommand_Empty(t *testing.T) {
	r := execute("test", t.TempDir())
	require.NoError(t, r.err)
	assert.Contains(t, r.stdout, "No scenarios found.")
}

func TestMetricsFlag(t *testing.T) {
	w := newWorkspace(t)

	r := w.run("--metrics", "new")
	require.NoError(t, r.err, r.stdout)
	assert.Contains(t, r.stderr, "# TYPE formsync_port_operations_total counter")
	assert.Contains(t, r.stderr, `formsync_port_operations_total{op="put",result="ok"}`)
	assert.Contains(t, r.stderr, "formsync_port_operation_duration_seconds_bucket")
	assert.NotContains(t, r.stderr, "go_goroutines")

	r = w.run("list")
	require.NoError(t, r.err)
	assert.NotContains(t, r.stderr, "formsync_port_operations_total")
}

func TestHistoryKeys(t *testing.T) {
	w := newWorkspace(t)

	r := w.run("history", "--keys")
	require.NoError(t, r.err, r.stdout)
	assert.Equal(t, "forms\n", r.stdout)

	resp, err := w.runJSON("history", "--keys")
	require.NoError(t, err)
	var keys []string
	require.NoError(t, json.Unmarshal(resp.Data, &keys))
	assert.Equal(t, []string{"forms"}, keys)

	r = w.run("history", "--keys", "--at", "1")
	require.Error(t, r.err)
}
