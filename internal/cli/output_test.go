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

func TestExitError(t *testing.T) {
	err := NewExitError(ExitFailure, "scenario failed")
	assert.Equal(t, "scenario failed", err.Error())
	assert.Equal(t, ExitFailure, GetExitCode(err))

	inner := errors.New("no such file")
	wrapped := WrapExitError(ExitCommandError, "failed to load", inner)
	assert.Equal(t, "failed to load: no such file", wrapped.Error())
	assert.Equal(t, ExitCommandError, GetExitCode(wrapped))
	assert.ErrorIs(t, wrapped, inner)

	// Wrapping through fmt still yields the right code.
	chained := fmt.Errorf("context: %w", wrapped)
	assert.Equal(t, ExitCommandError, GetExitCode(chained))

	// Non-exit errors default to failure.
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("plain")))
}

func TestOutputFormatter_JSON(t *testing.T) {
	buf := new(bytes.Buffer)
	f := &OutputFormatter{Format: "json", Writer: buf}

	require.NoError(t, f.Success(map[string]any{"scenario": "tick"}))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Nil(t, resp.Error)

	buf.Reset()
	require.NoError(t, f.Error(ErrCodeScenarioFailed, "boom", []string{"a"}))
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeScenarioFailed, resp.Error.Code)
}

func TestOutputFormatter_Text(t *testing.T) {
	buf := new(bytes.Buffer)
	f := &OutputFormatter{Format: "text", Writer: buf}

	require.NoError(t, f.Error(ErrCodeInvalidInput, "bad scenario", nil))
	assert.Contains(t, buf.String(), "Error [E002]: bad scenario")
}

func TestOutputFormatter_VerboseLog(t *testing.T) {
	out := new(bytes.Buffer)
	errOut := new(bytes.Buffer)
	f := &OutputFormatter{Format: "json", Writer: out, ErrWriter: errOut, Verbose: true}

	f.VerboseLog("loaded %d sources", 3)
	assert.Empty(t, out.String(), "verbose output must not corrupt JSON")
	assert.Contains(t, errOut.String(), "loaded 3 sources")

	f.Verbose = false
	errOut.Reset()
	f.VerboseLog("hidden")
	assert.Empty(t, errOut.String())
}
