package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/weftlabs/weft/internal/host"
	"github.com/weftlabs/weft/internal/render"
)

// AttachOptions holds flags for the attach command.
type AttachOptions struct {
	*RootOptions
	State     string // initial state as JSON
	Component string // component to mount (default: document root component)
	Route     string // resolve the component through the route table
	Patch     string // state writes applied through the dispatcher after attach
}

// AttachResult holds the attach command output.
type AttachResult struct {
	Document   string         `json:"document"`
	Component  string         `json:"component"`
	BuildHTML  string         `json:"build_html"`
	AttachHTML string         `json:"attach_html"`
	FinalHTML  string         `json:"final_html"`
	Equivalent bool           `json:"equivalent"`
	AttachOps  map[string]int `json:"attach_ops"`
	PatchOps   map[string]int `json:"patch_ops,omitempty"`
	Patches    int            `json:"patches"`
}

// NewAttachCommand creates the attach command.
func NewAttachCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AttachOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "attach <document>",
		Short: "Attach to pre-rendered markup and resume reactivity",
		Long: `Render a document, then attach a fresh session to the markup.

The document is mounted in build mode, the host tree is normalized (as a
serialize/parse round trip would), and a second session attaches to the
existing markup instead of rebuilding it. The attach must claim the tree
without structural changes; the command fails when the attached tree
diverges from the built one.

--patch applies state writes through the dispatch queue after attach, to
show the claimed tree is live.

Exit codes:
  0 - Attach claimed the markup; patches applied
  1 - Attach diverged from the build render, or a mount fault occurred
  2 - Command error (bad document, bad flags)

Examples:
  weft attach ./app.json --state '{"count":3}'
  weft attach ./app.json --patch '{"count":9}'`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAttach(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.State, "state", "", "initial state as JSON object")
	cmd.Flags().StringVar(&opts.Component, "component", "", "component to mount")
	cmd.Flags().StringVar(&opts.Route, "route", "", "resolve component via the route table")
	cmd.Flags().StringVar(&opts.Patch, "patch", "", "state writes (JSON object) applied after attach")

	return cmd
}

func runAttach(opts *AttachOptions, docPath string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
	logger := commandLogger(opts.RootOptions, cmd)

	compiled, loadErrs := LoadDocument(docPath)
	if len(loadErrs) > 0 {
		issue := issueFromError(loadErrs[0])
		_ = formatter.Error(issue.Code, issue.Message, nil)
		return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", issue.Code, issue.Message))
	}

	initial, err := parseStateJSON(opts.State)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid --state", err)
	}
	patches, err := parseStateJSON(opts.Patch)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid --patch", err)
	}

	component, routeParams, err := resolveTarget(compiled, opts.Component, opts.Route)
	if err != nil {
		return WrapExitError(ExitCommandError, "cannot resolve component", err)
	}
	var mountOpts []render.MountOption
	if routeParams != nil {
		mountOpts = append(mountOpts, render.WithRouteParams(routeParams))
	}

	// Phase 1: build-mode render producing the markup to attach to.
	buildRig := newRenderRig(compiled, initial, logger)
	hostDoc := buildRig.hostDoc
	buildMount, err := buildRig.renderer.Build(component, hostDoc.Root(), mountOpts...)
	if err != nil {
		return WrapExitError(ExitFailure, fmt.Sprintf("build %s", component), err)
	}
	if err := buildRig.takeFault(buildMount); err != nil {
		return WrapExitError(ExitFailure, "build fault", err)
	}
	buildHTML := host.InnerHTML(hostDoc.Root())

	// A serialize/parse round trip merges adjacent text nodes; Normalize
	// stands in for it on the in-memory host.
	hostDoc.Normalize()

	// Phase 2: fresh session attaching to the existing markup.
	attachRig := newRenderRigOn(hostDoc, compiled, initial, logger)
	mark := hostDoc.Mark()
	attachMount, err := attachRig.renderer.Attach(component, hostDoc.Root(), mountOpts...)
	if err != nil {
		return WrapExitError(ExitFailure, fmt.Sprintf("attach %s", component), err)
	}
	if err := attachRig.takeFault(attachMount); err != nil {
		return WrapExitError(ExitFailure, "attach fault", err)
	}

	result := AttachResult{
		Document:   compiled.Doc.Name,
		Component:  component,
		BuildHTML:  buildHTML,
		AttachHTML: host.InnerHTML(hostDoc.Root()),
		AttachOps:  opsByKind(hostDoc.OpsSince(mark)),
		Patches:    len(patches),
	}
	result.Equivalent = result.AttachHTML == result.BuildHTML

	// Patches go through the dispatch queue, the same path interactive
	// writes take.
	if len(patches) > 0 {
		patchMark := hostDoc.Mark()
		dispatcher := render.NewDispatcher(attachRig.rt, attachRig.st, render.WithDispatcherLogger(logger))
		for _, field := range sortedKeys(patches) {
			dispatcher.EnqueueSet(field, patches[field])
		}
		dispatcher.Drain()
		dispatcher.Stop()
		if err := attachMount.Err(); err != nil {
			return WrapExitError(ExitFailure, "patch fault", err)
		}
		result.PatchOps = opsByKind(hostDoc.OpsSince(patchMark))
	}
	result.FinalHTML = host.InnerHTML(hostDoc.Root())

	formatter.VerboseLog("Attached %s (token %s), claimed markup: %v", component, attachMount.Token(), result.Equivalent)
	if len(patches) > 0 {
		formatter.VerboseLog("Applied %d patch(es), ops: %v", len(patches), result.PatchOps)
	}

	if opts.Format == "json" {
		status := "ok"
		response := CLIResponse{Status: status, Data: result}
		if !result.Equivalent {
			response.Status = "error"
			response.Error = &CLIError{
				Code:    "E_ATTACH_DIVERGED",
				Message: "attached tree diverged from build render",
			}
		}
		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}
		if !result.Equivalent {
			return NewExitError(ExitFailure, "attached tree diverged from build render")
		}
		return nil
	}

	if !result.Equivalent {
		fmt.Fprintln(formatter.Writer, "✗ Attach diverged from build render")
		fmt.Fprintf(formatter.Writer, "  build:  %s\n", result.BuildHTML)
		fmt.Fprintf(formatter.Writer, "  attach: %s\n", result.AttachHTML)
		return NewExitError(ExitFailure, "attached tree diverged from build render")
	}

	fmt.Fprintln(formatter.Writer, result.FinalHTML)
	return nil
}
