package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutputFormatter_JSONSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	err := formatter.Success(map[string]string{"result": "success"}, "ignored\n", []string{"success: saved"})
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.NotNil(t, resp.Data)
	assert.Equal(t, []string{"success: saved"}, resp.Notifications)
	assert.NotContains(t, buf.String(), "ignored")
}

func TestOutputFormatter_JSONError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	err := formatter.Error(ErrCodeInvalid, "form was not published", []string{"question_0: Question title is required"}, nil)
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E005", resp.Error.Code)
	assert.Equal(t, "form was not published", resp.Error.Message)
	assert.NotNil(t, resp.Error.Details)
	assert.Empty(t, resp.Notifications)
}

func TestOutputFormatter_TextSuccess(t *testing.T) {
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format:    "text",
		Writer:    out,
		ErrWriter: errOut,
	}

	require.NoError(t, formatter.Success(nil, "Created Form 2\n", []string{"error: Failed to save changes. Please try again."}))
	assert.Equal(t, "Created Form 2\n", out.String())
	assert.Equal(t, "! error: Failed to save changes. Please try again.\n", errOut.String())

	out.Reset()
	require.NoError(t, formatter.Success(42, "", nil))
	assert.Equal(t, "42\n", out.String())
}

func TestOutputFormatter_TextError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "text",
		Writer: buf,
	}

	err := formatter.Error(ErrCodeTemplate, "2 template problem(s)", []string{"E102: form a: bad", "E103: form b: dup"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "Error [E007]: 2 template problem(s)\n  E102: form a: bad\n  E103: form b: dup\n", buf.String())

	buf.Reset()
	require.NoError(t, formatter.Error(ErrCodeGeneric, "failed", map[string]string{"key": "forms"}, nil))
	assert.Contains(t, buf.String(), "Details:")
}

func TestOutputFormatter_Fail(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "text",
		Writer: buf,
	}

	cause := errors.New("disk full")
	err := formatter.Fail(ExitFailure, ErrCodeStorage, "failed to create form", cause, nil, nil)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.True(t, WasReported(err))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "failed to create form: disk full", err.Error())
	assert.Equal(t, "Error [E003]: failed to create form: disk full\n", buf.String())
}

func TestOutputFormatter_VerboseLog(t *testing.T) {
	tests := []struct {
		name    string
		verbose bool
		wantLog bool
	}{
		{"verbose_enabled", true, true},
		{"verbose_disabled", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			formatter := &OutputFormatter{
				Format:  "text",
				Writer:  buf,
				Verbose: tt.verbose,
			}

			formatter.VerboseLog("imported %s", "contact")

			if tt.wantLog {
				assert.Contains(t, buf.String(), "imported contact")
			} else {
				assert.Empty(t, buf.String())
			}
		})
	}
}

func TestOutputFormatter_VerboseLogUsesErrWriter(t *testing.T) {
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format:    "json",
		Writer:    out,
		ErrWriter: errOut,
		Verbose:   true,
	}

	formatter.VerboseLog("imported %s", "survey")
	assert.Empty(t, out.String())
	assert.Contains(t, errOut.String(), "imported survey")
}

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"plain error", errors.New("boom"), ExitFailure},
		{"exit error", NewExitError(ExitCommandError, "bad path"), ExitCommandError},
		{"wrapped exit error", fmt.Errorf("run: %w", WrapExitError(ExitFailure, "failed", errors.New("x"))), ExitFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetExitCode(tt.err))
		})
	}
}

func TestExitError(t *testing.T) {
	cause := errors.New("not found")
	err := WrapExitError(ExitCommandError, "scenarios directory", cause)
	assert.Equal(t, "scenarios directory: not found", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.False(t, WasReported(err))

	assert.Equal(t, "plain", NewExitError(ExitFailure, "plain").Error())
}
