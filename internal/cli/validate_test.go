package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Document fixtures shared across the CLI tests.
const docStatic = `{"name": "static", "ir_version": "1", "components": [{"name": "app", "root": [{"kind": "element", "tag": "div", "children": [{"kind": "text", "expr": {"kind": "lit", "value": "hello"}}]}]}]}`

const docGreeter = `{"name": "greeter", "ir_version": "1", "components": [{"name": "app", "root": [{"kind": "element", "tag": "div", "children": [{"kind": "text", "expr": {"kind": "state", "name": "msg"}}]}]}]}`

const docRouted = `{
	"name": "routed", "ir_version": "1",
	"routes": [{"pattern": "/greet/:who", "component": "hello"}],
	"components": [{"name": "hello", "root": [
		{"kind": "element", "tag": "p", "children": [
			{"kind": "text", "expr": {"kind": "route_param", "name": "who"}}
		]}
	]}]
}`

// docBadSchema fails the CUE schema check: no ir_version, no components.
const docBadSchema = `{"name": "broken"}`

// docBadRoute decodes but fails structural validation: the route targets a
// component that does not exist.
const docBadRoute = `{
	"name": "badroute", "ir_version": "1",
	"routes": [{"pattern": "/x", "component": "missing"}],
	"components": [{"name": "app", "root": []}]
}`

func TestValidateValidDocument(t *testing.T) {
	tmpDir := t.TempDir()
	docPath := filepath.Join(tmpDir, "static.json")
	err := os.WriteFile(docPath, []byte(docStatic), 0644)
	require.NoError(t, err)

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewValidateCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{docPath})

	err = cmd.Execute()
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "✓ Document valid: static")
}

func TestValidateDirectory(t *testing.T) {
	tmpDir := t.TempDir()
	err := os.WriteFile(filepath.Join(tmpDir, "static.json"), []byte(docStatic), 0644)
	require.NoError(t, err)
	err = os.WriteFile(filepath.Join(tmpDir, "greeter.json"), []byte(docGreeter), 0644)
	require.NoError(t, err)

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewValidateCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{tmpDir})

	err = cmd.Execute()
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "✓ All 2 documents valid")
}

func TestValidateValidDocumentJSON(t *testing.T) {
	tmpDir := t.TempDir()
	docPath := filepath.Join(tmpDir, "static.json")
	err := os.WriteFile(docPath, []byte(docStatic), 0644)
	require.NoError(t, err)

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "json"}
	cmd := NewValidateCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{docPath})

	err = cmd.Execute()
	require.NoError(t, err)

	var resp CLIResponse
	err = json.Unmarshal(buf.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Status)
}

func TestValidateNonExistentPath(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewValidateCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"/nonexistent/directory/path"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "E005") // ErrCodeNotFound
	assert.Contains(t, buf.String(), "not found")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestValidateEmptyDirectory(t *testing.T) {
	tmpDir := t.TempDir()

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewValidateCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{tmpDir})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "E003")
	assert.Contains(t, buf.String(), "no document files found")
}

func TestValidateSchemaFailure(t *testing.T) {
	tmpDir := t.TempDir()
	docPath := filepath.Join(tmpDir, "broken.json")
	err := os.WriteFile(docPath, []byte(docBadSchema), 0644)
	require.NoError(t, err)

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewValidateCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{docPath})

	err = cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")
	assert.Contains(t, buf.String(), "✗ Validation failed")
	assert.Contains(t, buf.String(), "E004")
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestValidateStructuralFailure(t *testing.T) {
	tmpDir := t.TempDir()
	docPath := filepath.Join(tmpDir, "badroute.json")
	err := os.WriteFile(docPath, []byte(docBadRoute), 0644)
	require.NoError(t, err)

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewValidateCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{docPath})

	err = cmd.Execute()
	require.Error(t, err)

	output := buf.String()
	assert.Contains(t, output, "E104")
	assert.Contains(t, output, "unknown component")
}

func TestValidateInvalidDocumentJSON(t *testing.T) {
	tmpDir := t.TempDir()
	docPath := filepath.Join(tmpDir, "broken.json")
	err := os.WriteFile(docPath, []byte(docBadSchema), 0644)
	require.NoError(t, err)

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "json"}
	cmd := NewValidateCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{docPath})

	err = cmd.Execute()
	require.Error(t, err)

	var resp CLIResponse
	jsonErr := json.Unmarshal(buf.Bytes(), &resp)
	require.NoError(t, jsonErr)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E004", resp.Error.Code)
}

func TestValidateCollectsAllErrors(t *testing.T) {
	tmpDir := t.TempDir()
	err := os.WriteFile(filepath.Join(tmpDir, "broken.json"), []byte(docBadSchema), 0644)
	require.NoError(t, err)
	err = os.WriteFile(filepath.Join(tmpDir, "badroute.json"), []byte(docBadRoute), 0644)
	require.NoError(t, err)
	err = os.WriteFile(filepath.Join(tmpDir, "static.json"), []byte(docStatic), 0644)
	require.NoError(t, err)

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewValidateCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{tmpDir})

	err = cmd.Execute()
	require.Error(t, err)

	// Both bad documents are reported, not just the first.
	output := buf.String()
	assert.Contains(t, output, "E004")
	assert.Contains(t, output, "E104")
	assert.Contains(t, output, "broken.json")
	assert.Contains(t, output, "badroute.json")
}

func TestValidateVerboseOutput(t *testing.T) {
	tmpDir := t.TempDir()
	err := os.WriteFile(filepath.Join(tmpDir, "static.json"), []byte(docStatic), 0644)
	require.NoError(t, err)

	stdoutBuf := &bytes.Buffer{}
	stderrBuf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text", Verbose: true}
	cmd := NewValidateCommand(rootOpts)
	cmd.SetOut(stdoutBuf)
	cmd.SetErr(stderrBuf) // Verbose output goes to stderr
	cmd.SetArgs([]string{tmpDir})

	err = cmd.Execute()
	require.NoError(t, err)

	// Verbose logs go to stderr to avoid corrupting JSON output
	verboseOutput := stderrBuf.String()
	assert.Contains(t, verboseOutput, "Found 1 document file(s)")
	assert.Contains(t, verboseOutput, "Validated document: static")
}

func TestValidateDocumentsHelper(t *testing.T) {
	tmpDir := t.TempDir()
	err := os.WriteFile(filepath.Join(tmpDir, "static.json"), []byte(docStatic), 0644)
	require.NoError(t, err)

	issues, err := ValidateDocuments(tmpDir)
	require.NoError(t, err)
	assert.Empty(t, issues)
}

func TestValidateDocumentsHelperInvalid(t *testing.T) {
	tmpDir := t.TempDir()
	err := os.WriteFile(filepath.Join(tmpDir, "badroute.json"), []byte(docBadRoute), 0644)
	require.NoError(t, err)

	issues, err := ValidateDocuments(tmpDir)
	require.NoError(t, err) // Per-document errors come back in the slice, not as error
	require.NotEmpty(t, issues)
	assert.Equal(t, "E104", issues[0].Code)
}

func TestValidateDocumentsHelperNonExistent(t *testing.T) {
	_, err := ValidateDocuments("/nonexistent/directory")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}
