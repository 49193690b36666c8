package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runInspectCommand(t *testing.T, format string, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: format}
	cmd := NewInspectCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestInspectDocument(t *testing.T) {
	docPath := writeDocument(t, "static.json", docStatic)

	output, err := runInspectCommand(t, "text", docPath)
	require.NoError(t, err)

	assert.Contains(t, output, "Document: static")
	assert.Contains(t, output, "IR Version: 1")
	assert.Contains(t, output, "Hash: ")
	assert.Contains(t, output, "Components:")
	assert.Contains(t, output, "app (root): 2 nodes")
	assert.NotContains(t, output, "Routes:")
}

func TestInspectRoutes(t *testing.T) {
	docPath := writeDocument(t, "routed.json", docRouted)

	output, err := runInspectCommand(t, "text", docPath)
	require.NoError(t, err)

	assert.Contains(t, output, "Document: routed")
	assert.Contains(t, output, "hello (root): 2 nodes")
	assert.Contains(t, output, "Routes:")
	assert.Contains(t, output, "/greet/:who -> hello")
}

func TestInspectJSON(t *testing.T) {
	docPath := writeDocument(t, "static.json", docStatic)

	output, err := runInspectCommand(t, "json", docPath)
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(output), &resp))
	assert.Equal(t, "ok", resp.Status)

	dataBytes, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	var result InspectResult
	require.NoError(t, json.Unmarshal(dataBytes, &result))
	assert.Equal(t, "static", result.Document)
	assert.Equal(t, "1", result.IRVersion)
	assert.Len(t, result.Hash, 64)
	require.Len(t, result.Components, 1)
	assert.Equal(t, "app", result.Components[0].Name)
	assert.Equal(t, 2, result.Components[0].Nodes)
	assert.True(t, result.Components[0].Root)
}

func TestInspectHashDeterministic(t *testing.T) {
	docPath := writeDocument(t, "static.json", docStatic)

	first, err := runInspectCommand(t, "json", docPath)
	require.NoError(t, err)
	second, err := runInspectCommand(t, "json", docPath)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestInspectSelect(t *testing.T) {
	docPath := writeDocument(t, "static.json", docStatic)

	output, err := runInspectCommand(t, "text", docPath, "--select", "div")
	require.NoError(t, err)

	assert.Contains(t, output, `Matches for "div":`)
	assert.Contains(t, output, "<div>hello</div>")
}

func TestInspectSelectNoMatches(t *testing.T) {
	docPath := writeDocument(t, "static.json", docStatic)

	output, err := runInspectCommand(t, "text", docPath, "--select", "ul")
	require.NoError(t, err)

	assert.Contains(t, output, `Matches for "ul":`)
	assert.Contains(t, output, "(no matches)")
}

func TestInspectSelectInvalidSelector(t *testing.T) {
	docPath := writeDocument(t, "static.json", docStatic)

	_, err := runInspectCommand(t, "text", docPath, "--select", "##")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid selector "##"`)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestInspectSelectUnknownComponent(t *testing.T) {
	docPath := writeDocument(t, "static.json", docStatic)

	_, err := runInspectCommand(t, "text", docPath, "--select", "div", "--component", "sidebar")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot resolve component")
}

func TestInspectDump(t *testing.T) {
	docPath := writeDocument(t, "static.json", docStatic)

	output, err := runInspectCommand(t, "text", docPath, "--dump")
	require.NoError(t, err)

	assert.Contains(t, output, "IR:")
	assert.Contains(t, output, `"name": "static"`)
}

func TestInspectMissingDocument(t *testing.T) {
	output, err := runInspectCommand(t, "text", "/nonexistent/app.json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "E005")
	assert.Contains(t, output, "document not found")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
