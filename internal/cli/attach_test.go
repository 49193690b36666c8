package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttachClaimsMarkup(t *testing.T) {
	docPath := writeDocument(t, "static.json", docStatic)

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewAttachCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{docPath})

	err := cmd.Execute()
	require.NoError(t, err)
	assert.Equal(t, "<div>hello</div>\n", buf.String())
	assert.NotContains(t, buf.String(), "diverged")
}

func TestAttachWithState(t *testing.T) {
	docPath := writeDocument(t, "greeter.json", docGreeter)

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewAttachCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{docPath, "--state", `{"msg":"hi"}`})

	err := cmd.Execute()
	require.NoError(t, err)
	assert.Equal(t, "<div>hi</div>\n", buf.String())
}

func TestAttachAppliesPatches(t *testing.T) {
	docPath := writeDocument(t, "greeter.json", docGreeter)

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewAttachCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{docPath, "--state", `{"msg":"hi"}`, "--patch", `{"msg":"bye"}`})

	err := cmd.Execute()
	require.NoError(t, err)

	// The patch went through the dispatch queue after attach, so the
	// claimed tree must have reacted.
	assert.Equal(t, "<div>bye</div>\n", buf.String())
}

func TestAttachJSON(t *testing.T) {
	docPath := writeDocument(t, "greeter.json", docGreeter)

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "json"}
	cmd := NewAttachCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{docPath, "--state", `{"msg":"hi"}`, "--patch", `{"msg":"bye"}`})

	err := cmd.Execute()
	require.NoError(t, err)

	var resp CLIResponse
	err = json.Unmarshal(buf.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Status)

	dataBytes, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	var result AttachResult
	require.NoError(t, json.Unmarshal(dataBytes, &result))
	assert.True(t, result.Equivalent)
	assert.Equal(t, "<div>hi</div>", result.BuildHTML)
	assert.Equal(t, "<div>hi</div>", result.AttachHTML)
	assert.Equal(t, "<div>bye</div>", result.FinalHTML)
	assert.Equal(t, 1, result.Patches)
	assert.Equal(t, map[string]int{"set_text": 1}, result.PatchOps)
}

func TestAttachNoStructuralOps(t *testing.T) {
	docPath := writeDocument(t, "static.json", docStatic)

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "json"}
	cmd := NewAttachCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{docPath})

	err := cmd.Execute()
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	dataBytes, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	var result AttachResult
	require.NoError(t, json.Unmarshal(dataBytes, &result))

	// Attach claims the rendered tree without rebuilding it.
	assert.True(t, result.Equivalent)
	assert.Empty(t, result.AttachOps)
}

func TestAttachInvalidPatchJSON(t *testing.T) {
	docPath := writeDocument(t, "static.json", docStatic)

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewAttachCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{docPath, "--patch", "{bad"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid --patch")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestAttachMissingDocument(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewAttachCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"/nonexistent/doc.json"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "E005")
}
