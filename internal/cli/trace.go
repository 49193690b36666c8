package cli

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/weftlabs/weft/internal/harness"
	"github.com/weftlabs/weft/internal/host"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Mode string // mount mode for the run
	Op   string // optional - filter to one op kind
}

// JournalOp is a single host mutation in the timeline.
type JournalOp struct {
	Seq    int64  `json:"seq"`
	Kind   string `json:"kind"`
	Node   string `json:"node"`
	Detail string `json:"detail,omitempty"`
}

// TimelineEntry groups the journal ops recorded during one step.
type TimelineEntry struct {
	Step   int            `json:"step"`
	Action string         `json:"action"`
	Ops    []JournalOp    `json:"ops"`
	State  map[string]any `json:"state,omitempty"`
	HTML   string         `json:"html,omitempty"`
}

// TraceStats holds summary statistics for the trace.
type TraceStats struct {
	Entries  int            `json:"entries"`
	TotalOps int            `json:"total_ops"`
	ByKind   map[string]int `json:"by_kind"`
}

// TraceReport holds the complete trace output.
type TraceReport struct {
	Scenario string          `json:"scenario"`
	Mode     string          `json:"mode"`
	Pass     bool            `json:"pass"`
	Timeline []TimelineEntry `json:"timeline"`
	Stats    TraceStats      `json:"stats"`
	Errors   []string        `json:"errors,omitempty"`
}

// traceOpKinds are the journal kinds --op accepts.
var traceOpKinds = map[string]bool{
	string(host.OpCreate):     true,
	string(host.OpInsert):     true,
	string(host.OpMove):       true,
	string(host.OpRemove):     true,
	string(host.OpSetAttr):    true,
	string(host.OpRemoveAttr): true,
	string(host.OpSetText):    true,
	string(host.OpFocus):      true,
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace <scenario>",
		Short: "Print the mutation journal for a scenario run",
		Long: `Run a scenario and print the host mutation journal.

Every host mutation (create, insert, move, remove, set_attr, set_text,
focus) is stamped with a monotonic sequence number. The timeline groups
them by the step that caused them, which shows exactly what each state
write or dispatched event did to the tree.

Examples:
  weft trace ./scenarios/counter.yaml
  weft trace ./scenarios/counter.yaml --op set_text
  weft trace ./scenarios/counter.yaml --mode attach
  weft trace ./scenarios/counter.yaml --format json --verbose`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Mode, "mode", harness.ModeBuild, "mount mode (build|attach)")
	cmd.Flags().StringVar(&opts.Op, "op", "", "filter to one op kind")

	return cmd
}

func runTrace(opts *TraceOptions, scenarioFile string, cmd *cobra.Command) error {
	if opts.Mode != harness.ModeBuild && opts.Mode != harness.ModeAttach {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid mode %q: must be build or attach", opts.Mode))
	}
	if opts.Op != "" && !traceOpKinds[opts.Op] {
		return NewExitError(ExitCommandError, fmt.Sprintf("unknown op kind %q", opts.Op))
	}

	scenario, err := harness.LoadScenario(scenarioFile)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load scenario", err)
	}

	result, err := harness.RunMode(scenario, opts.Mode)
	if err != nil {
		return WrapExitError(ExitFailure, "scenario execution failed", err)
	}

	report := TraceReport{
		Scenario: scenario.Name,
		Mode:     result.Mode,
		Pass:     result.Pass,
		Timeline: buildTimeline(result, opts.Op, opts.Verbose),
		Errors:   result.Errors,
	}
	report.Stats = timelineStats(report.Timeline)

	if opts.Format == "json" {
		status := "ok"
		response := CLIResponse{Status: status, Data: report}
		if !report.Pass {
			response.Status = "error"
			response.Error = &CLIError{
				Code:    "E_SCENARIO_FAILED",
				Message: fmt.Sprintf("scenario %s failed", report.Scenario),
			}
		}
		if err := respondJSON(cmd, response); err != nil {
			return err
		}
		if !report.Pass {
			return NewExitError(ExitFailure, fmt.Sprintf("scenario %s failed", report.Scenario))
		}
		return nil
	}

	outputTraceText(cmd.OutOrStdout(), report, opts.Verbose)
	if !report.Pass {
		return NewExitError(ExitFailure, fmt.Sprintf("scenario %s failed", report.Scenario))
	}
	return nil
}

// buildTimeline converts trace entries to timeline entries, applying the
// op-kind filter. Verbose runs carry state and markup snapshots too.
func buildTimeline(result *harness.Result, opFilter string, verbose bool) []TimelineEntry {
	timeline := make([]TimelineEntry, 0, len(result.Trace))
	for _, entry := range result.Trace {
		te := TimelineEntry{
			Step:   entry.Step,
			Action: entry.Action,
			Ops:    []JournalOp{},
		}
		for _, op := range entry.Journal {
			if opFilter != "" && string(op.Kind) != opFilter {
				continue
			}
			te.Ops = append(te.Ops, JournalOp{
				Seq:    op.Seq,
				Kind:   string(op.Kind),
				Node:   op.Node,
				Detail: op.Detail,
			})
		}
		if verbose {
			te.State = entry.State
			te.HTML = entry.HTML
		}
		timeline = append(timeline, te)
	}
	return timeline
}

// timelineStats tallies the timeline after filtering.
func timelineStats(timeline []TimelineEntry) TraceStats {
	stats := TraceStats{Entries: len(timeline), ByKind: make(map[string]int)}
	for _, entry := range timeline {
		stats.TotalOps += len(entry.Ops)
		for _, op := range entry.Ops {
			stats.ByKind[op.Kind]++
		}
	}
	return stats
}

// outputTraceText outputs the trace report as text.
func outputTraceText(w io.Writer, report TraceReport, verbose bool) {
	fmt.Fprintf(w, "Trace for Scenario: %s\n", report.Scenario)
	fmt.Fprintf(w, "Mode: %s\n", report.Mode)
	fmt.Fprintf(w, "Status: %s\n", passStatus(report.Pass))
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Timeline ===")
	for _, entry := range report.Timeline {
		fmt.Fprintf(w, "step %d: %s\n", entry.Step, entry.Action)
		if len(entry.Ops) == 0 {
			fmt.Fprintln(w, "  (no ops)")
		}
		for _, op := range entry.Ops {
			if op.Detail != "" {
				fmt.Fprintf(w, "  [%d] %s %s %s\n", op.Seq, op.Kind, op.Node, op.Detail)
			} else {
				fmt.Fprintf(w, "  [%d] %s %s\n", op.Seq, op.Kind, op.Node)
			}
		}
		if verbose {
			fmt.Fprintf(w, "  state: %s\n", formatStateMap(entry.State))
			fmt.Fprintf(w, "  html:  %s\n", entry.HTML)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Stats ===")
	fmt.Fprintf(w, "  Entries:   %d\n", report.Stats.Entries)
	fmt.Fprintf(w, "  Total Ops: %d\n", report.Stats.TotalOps)
	fmt.Fprintf(w, "  By Kind:   %s\n", formatKindCounts(report.Stats.ByKind))

	if len(report.Errors) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "=== Failures ===")
		for _, e := range report.Errors {
			fmt.Fprintf(w, "  %s\n", e)
		}
	}
}

// formatKindCounts formats op counts with sorted kinds for deterministic
// output.
func formatKindCounts(counts map[string]int) string {
	if len(counts) == 0 {
		return "(none)"
	}
	kinds := make([]string, 0, len(counts))
	for k := range counts {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)

	parts := make([]string, len(kinds))
	for i, k := range kinds {
		parts[i] = fmt.Sprintf("%s=%d", k, counts[k])
	}
	return strings.Join(parts, " ")
}

// formatStateMap formats a state snapshot with sorted keys.
func formatStateMap(state map[string]any) string {
	if len(state) == 0 {
		return "{}"
	}
	keys := make([]string, 0, len(state))
	for k := range state {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var parts []string
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%s", k, formatStateValue(state[k])))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// formatStateValue formats a single value, handling nested structures
// deterministically.
func formatStateValue(v interface{}) string {
	switch val := v.(type) {
	case map[string]interface{}:
		return formatStateMap(val)
	case []interface{}:
		parts := make([]string, len(val))
		for i, elem := range val {
			parts[i] = formatStateValue(elem)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case string:
		return val
	default:
		return fmt.Sprintf("%v", v)
	}
}

// passStatus returns a human-readable run status.
func passStatus(pass bool) string {
	if pass {
		return "Pass"
	}
	return "Fail"
}
