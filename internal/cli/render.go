package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/weftlabs/weft/internal/compiler"
	"github.com/weftlabs/weft/internal/host"
	"github.com/weftlabs/weft/internal/reactive"
	"github.com/weftlabs/weft/internal/render"
	"github.com/weftlabs/weft/internal/state"
)

// RenderOptions holds flags for the render command.
type RenderOptions struct {
	*RootOptions
	State     string // initial state as JSON
	Component string // component to mount (default: document root component)
	Route     string // resolve the component through the route table
	Output    string // write HTML to file instead of stdout
}

// RenderResult holds the render command output.
type RenderResult struct {
	Document  string         `json:"document"`
	Component string         `json:"component"`
	HTML      string         `json:"html"`
	Ops       map[string]int `json:"ops"`
}

// NewRenderCommand creates the render command.
func NewRenderCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RenderOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "render <document>",
		Short: "Build-mode render of a document",
		Long: `Mount a document in build mode and print the resulting HTML.

The document is compiled, a component is mounted against a fresh
in-memory host tree with the given initial state, and the serialized
markup is written to stdout or --output.

Examples:
  weft render ./app.json
  weft render ./app.json --state '{"count":3}'
  weft render ./app.json --component Sidebar
  weft render ./app.json --route /todo/42
  weft render ./app.json --output out.html`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.State, "state", "", "initial state as JSON object")
	cmd.Flags().StringVar(&opts.Component, "component", "", "component to mount")
	cmd.Flags().StringVar(&opts.Route, "route", "", "resolve component via the route table")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write HTML to file")

	return cmd
}

func runRender(opts *RenderOptions, docPath string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

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

	component, routeParams, err := resolveTarget(compiled, opts.Component, opts.Route)
	if err != nil {
		return WrapExitError(ExitCommandError, "cannot resolve component", err)
	}

	rig := newRenderRig(compiled, initial, commandLogger(opts.RootOptions, cmd))
	mark := rig.hostDoc.Mark()

	var mountOpts []render.MountOption
	if routeParams != nil {
		mountOpts = append(mountOpts, render.WithRouteParams(routeParams))
	}
	mount, err := rig.renderer.Build(component, rig.hostDoc.Root(), mountOpts...)
	if err != nil {
		return WrapExitError(ExitFailure, fmt.Sprintf("mount %s", component), err)
	}
	if err := rig.takeFault(mount); err != nil {
		return WrapExitError(ExitFailure, "render fault", err)
	}

	result := RenderResult{
		Document:  compiled.Doc.Name,
		Component: component,
		HTML:      host.InnerHTML(rig.hostDoc.Root()),
		Ops:       opsByKind(rig.hostDoc.OpsSince(mark)),
	}
	formatter.VerboseLog("Mounted %s (token %s, %d journal ops)", component, mount.Token(), len(rig.hostDoc.OpsSince(mark)))

	if opts.Output != "" {
		if err := os.WriteFile(opts.Output, []byte(result.HTML+"\n"), 0644); err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("%s: writing output file", ErrCodeWriteFailed), err)
		}
		formatter.VerboseLog("Wrote HTML to %s", opts.Output)
	}

	if opts.Format == "json" {
		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		return encoder.Encode(CLIResponse{Status: "ok", Data: result})
	}

	fmt.Fprintln(formatter.Writer, result.HTML)
	return nil
}

// renderRig bundles the infrastructure one mount needs: host document,
// reactive runtime, state map and renderer, all sharing one logger.
type renderRig struct {
	hostDoc  *host.MemoryDocument
	rt       *reactive.Runtime
	st       *state.Map
	renderer *render.Renderer
}

func newRenderRig(compiled *compiler.CompiledDocument, initial map[string]any, logger *slog.Logger) *renderRig {
	return newRenderRigOn(host.NewMemoryDocument(), compiled, initial, logger)
}

// newRenderRigOn builds a rig over an existing host document. Attach
// sessions use it to bind fresh runtime state to already-rendered markup.
func newRenderRigOn(hostDoc *host.MemoryDocument, compiled *compiler.CompiledDocument, initial map[string]any, logger *slog.Logger) *renderRig {
	rt := reactive.New(reactive.WithLogger(logger))
	st := state.NewMap(rt, initial, state.WithLogger(logger))
	renderer := render.New(compiled.Doc, hostDoc, rt, st,
		render.WithLogger(logger),
		render.WithStyles(compiled.Styles),
	)
	return &renderRig{hostDoc: hostDoc, rt: rt, st: st, renderer: renderer}
}

// takeFault surfaces the first pending runtime or mount fault.
func (r *renderRig) takeFault(mount *render.Mount) error {
	if err := r.rt.TakeError(); err != nil {
		return err
	}
	return mount.Err()
}

// commandLogger returns a debug logger on stderr when verbose, otherwise a
// discarded one. Runtime logs never mix into stdout command output.
func commandLogger(opts *RootOptions, cmd *cobra.Command) *slog.Logger {
	if !opts.Verbose {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

// parseStateJSON parses a --state / --patch style JSON object flag.
func parseStateJSON(s string) (map[string]any, error) {
	if s == "" {
		return map[string]any{}, nil
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return nil, fmt.Errorf("invalid JSON object: %w", err)
	}
	return m, nil
}

// resolveTarget picks the component to mount: --route wins, then
// --component, then the document's root component.
func resolveTarget(compiled *compiler.CompiledDocument, component, route string) (string, map[string]string, error) {
	if route != "" {
		if component != "" {
			return "", nil, fmt.Errorf("--component and --route are mutually exclusive")
		}
		r, params, ok := compiled.Doc.MatchRoute(route)
		if !ok {
			return "", nil, fmt.Errorf("no route matches %q", route)
		}
		return r.Component, params, nil
	}
	if component != "" {
		if compiled.Doc.Component(component) == nil {
			return "", nil, fmt.Errorf("unknown component %q", component)
		}
		return component, nil, nil
	}
	root := compiled.Doc.RootComponent()
	if root == nil {
		return "", nil, fmt.Errorf("document %s has no components", compiled.Doc.Name)
	}
	return root.Name, nil, nil
}

// opsByKind counts journal ops by kind.
func opsByKind(ops []host.Op) map[string]int {
	counts := make(map[string]int)
	for _, op := range ops {
		counts[string(op.Kind)]++
	}
	return counts
}
