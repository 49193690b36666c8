package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTraceStaticScenario(t *testing.T) {
	tmpDir := t.TempDir()
	scenPath := writeScenario(t, tmpDir, "static.yaml", scenStatic)

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewTraceCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{scenPath})

	err := cmd.Execute()
	require.NoError(t, err)

	output := buf.String()
	assert.Contains(t, output, "Trace for Scenario: static_markup")
	assert.Contains(t, output, "Mode: build")
	assert.Contains(t, output, "Status: Pass")
	assert.Contains(t, output, "=== Timeline ===")
	assert.Contains(t, output, "step 0: build")
	assert.Contains(t, output, "=== Stats ===")
	assert.Contains(t, output, "Total Ops: 4")
	assert.Contains(t, output, "By Kind:   create=2 insert=2")
}

func TestTraceDispatchTimeline(t *testing.T) {
	tmpDir := t.TempDir()
	scenPath := writeScenario(t, tmpDir, "counter.yaml", scenCounter)

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewTraceCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{scenPath})

	err := cmd.Execute()
	require.NoError(t, err)

	output := buf.String()
	assert.Contains(t, output, "step 0: build")
	assert.Contains(t, output, "step 1: dispatch click at #inc")
	assert.Contains(t, output, "Entries:   2")
	assert.Contains(t, output, "Total Ops: 13")
	assert.Contains(t, output, "By Kind:   create=6 insert=6 set_text=1")
}

func TestTraceOpFilter(t *testing.T) {
	tmpDir := t.TempDir()
	scenPath := writeScenario(t, tmpDir, "counter.yaml", scenCounter)

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewTraceCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{scenPath, "--op", "set_text"})

	err := cmd.Execute()
	require.NoError(t, err)

	output := buf.String()
	assert.Contains(t, output, "Total Ops: 1")
	assert.Contains(t, output, "By Kind:   set_text=1")
	assert.NotContains(t, output, "create")
	// The build step keeps its timeline slot even with every op filtered.
	assert.Contains(t, output, "step 0: build")
	assert.Contains(t, output, "(no ops)")
}

func TestTraceUnknownOpKind(t *testing.T) {
	tmpDir := t.TempDir()
	scenPath := writeScenario(t, tmpDir, "static.yaml", scenStatic)

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewTraceCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{scenPath, "--op", "paint"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown op kind "paint"`)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTraceInvalidMode(t *testing.T) {
	tmpDir := t.TempDir()
	scenPath := writeScenario(t, tmpDir, "static.yaml", scenStatic)

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewTraceCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{scenPath, "--mode", "hydrate"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid mode "hydrate"`)
}

func TestTraceAttachMode(t *testing.T) {
	tmpDir := t.TempDir()
	scenPath := writeScenario(t, tmpDir, "static.yaml", scenStatic)

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewTraceCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{scenPath, "--mode", "attach"})

	err := cmd.Execute()
	require.NoError(t, err)

	output := buf.String()
	assert.Contains(t, output, "Mode: attach")
	assert.Contains(t, output, "step 0: attach")
	// Claiming server markup reuses every node, so the journal is empty.
	assert.Contains(t, output, "(no ops)")
	assert.Contains(t, output, "Total Ops: 0")
}

func TestTraceFailingScenario(t *testing.T) {
	tmpDir := t.TempDir()
	scenPath := writeScenario(t, tmpDir, "wrong.yaml", scenFailing)

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewTraceCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{scenPath})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scenario wrong_text failed")
	assert.Equal(t, ExitFailure, GetExitCode(err))

	output := buf.String()
	assert.Contains(t, output, "Status: Fail")
	assert.Contains(t, output, "=== Failures ===")
}

func TestTraceJSON(t *testing.T) {
	tmpDir := t.TempDir()
	scenPath := writeScenario(t, tmpDir, "static.yaml", scenStatic)

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "json"}
	cmd := NewTraceCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{scenPath})

	err := cmd.Execute()
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)

	dataBytes, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	var report TraceReport
	require.NoError(t, json.Unmarshal(dataBytes, &report))
	assert.Equal(t, "static_markup", report.Scenario)
	assert.Equal(t, "build", report.Mode)
	assert.True(t, report.Pass)
	assert.Equal(t, 1, report.Stats.Entries)
	assert.Equal(t, 4, report.Stats.TotalOps)
	assert.Equal(t, map[string]int{"create": 2, "insert": 2}, report.Stats.ByKind)
}

func TestTraceJSONFailure(t *testing.T) {
	tmpDir := t.TempDir()
	scenPath := writeScenario(t, tmpDir, "wrong.yaml", scenFailing)

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "json"}
	cmd := NewTraceCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{scenPath})

	err := cmd.Execute()
	require.Error(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E_SCENARIO_FAILED", resp.Error.Code)
}

func TestTraceMissingScenario(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewTraceCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"/nonexistent/counter.yaml"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load scenario")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTraceVerbose(t *testing.T) {
	tmpDir := t.TempDir()
	scenPath := writeScenario(t, tmpDir, "static.yaml", scenStatic)

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text", Verbose: true}
	cmd := NewTraceCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{scenPath})

	err := cmd.Execute()
	require.NoError(t, err)

	output := buf.String()
	assert.Contains(t, output, "state: {}")
	assert.Contains(t, output, "html:  <div>hello</div>")
}
