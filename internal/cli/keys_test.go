package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeysCommand_Resolve(t *testing.T) {
	out, err := executeCommand("keys", "ENTER", "CTRL+ALT+DELETE")
	require.NoError(t, err)
	assert.Contains(t, out, "ENTER")
	assert.Contains(t, out, "0x0028")
	assert.Contains(t, out, "0x054c")
}

func TestKeysCommand_ListAll(t *testing.T) {
	out, err := executeCommand("keys")
	require.NoError(t, err)
	assert.Contains(t, out, "F12")
	assert.Contains(t, out, "RIGHT_GUI")
}

func TestKeysCommand_JSON(t *testing.T) {
	out, err := executeCommand("keys", "GUI+l", "--format", "json")
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)

	entries, ok := resp.Data.([]any)
	require.True(t, ok)
	require.Len(t, entries, 1)
	entry := entries[0].(map[string]any)
	assert.Equal(t, "GUI+l", entry["name"])
	assert.Equal(t, "0x080f", entry["code"])
}

func TestKeysCommand_UnknownName(t *testing.T) {
	out, err := executeCommand("keys", "HYPER")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "E005")
}
