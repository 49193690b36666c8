package cli

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/weftlabs/weft/internal/compiler"
	"github.com/weftlabs/weft/internal/host"
	"github.com/weftlabs/weft/internal/ir"
	"github.com/weftlabs/weft/internal/query"
)

// InspectOptions holds flags for the inspect command.
type InspectOptions struct {
	*RootOptions
	Select    string // render and print elements matching a selector
	Component string // component for --select (default: root component)
	Dump      bool   // include the full IR dump
}

// ComponentInfo summarizes one component.
type ComponentInfo struct {
	Name  string `json:"name"`
	Nodes int    `json:"nodes"`
	Root  bool   `json:"root,omitempty"`
}

// RouteInfo summarizes one route table entry.
type RouteInfo struct {
	Pattern   string `json:"pattern"`
	Component string `json:"component"`
}

// InspectResult holds the inspect command output.
type InspectResult struct {
	Document   string          `json:"document"`
	IRVersion  string          `json:"ir_version"`
	Hash       string          `json:"hash"`
	Components []ComponentInfo `json:"components"`
	Routes     []RouteInfo     `json:"routes,omitempty"`
	Styles     []string        `json:"styles,omitempty"`
	Imports    []string        `json:"imports,omitempty"`
	Matches    []string        `json:"matches,omitempty"`
	IR         *ir.Document    `json:"ir,omitempty"`
}

// NewInspectCommand creates the inspect command.
func NewInspectCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InspectOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "inspect <document>",
		Short: "Summarize a compiled document",
		Long: `Summarize a compiled document: components, routes, styles and the
content-addressed document hash.

The hash covers the deterministic serialization of the IR, so two
documents hash equal exactly when they compile to the same tree.

--select mounts the document against a scratch host tree and prints the
elements matching a selector (tag, #ref, .class, [attr=v], :nth(n),
child > chains).

Examples:
  weft inspect ./app.json
  weft inspect ./app.json --dump
  weft inspect ./app.json --select "ul > li"
  weft inspect ./app.json --select "#save" --component Editor`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Select, "select", "", "print elements matching a selector")
	cmd.Flags().StringVar(&opts.Component, "component", "", "component to mount for --select")
	cmd.Flags().BoolVar(&opts.Dump, "dump", false, "include the full IR dump")

	return cmd
}

func runInspect(opts *InspectOptions, docPath string, cmd *cobra.Command) error {
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
	doc := compiled.Doc

	hash, err := ir.DocumentHash(doc)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to hash document", err)
	}

	result := InspectResult{
		Document:  doc.Name,
		IRVersion: doc.IRVersion,
		Hash:      hash,
	}
	for i, comp := range doc.Components {
		result.Components = append(result.Components, ComponentInfo{
			Name:  comp.Name,
			Nodes: countNodes(comp.Root),
			Root:  i == 0,
		})
	}
	for _, route := range doc.Routes {
		result.Routes = append(result.Routes, RouteInfo{Pattern: route.Pattern, Component: route.Component})
	}
	result.Styles = sortedKeys(doc.Styles)
	result.Imports = sortedKeys(doc.Imports)
	if opts.Dump {
		result.IR = doc
	}

	if opts.Select != "" {
		matches, err := selectMatches(compiled, opts.Select, opts.Component, commandLogger(opts.RootOptions, cmd))
		if err != nil {
			return err
		}
		result.Matches = matches
	}

	if opts.Format == "json" {
		return respondJSON(cmd, CLIResponse{Status: "ok", Data: result})
	}

	return outputInspectText(formatter, opts, result)
}

// selectMatches mounts the document on a scratch host tree and returns the
// serialized elements matching the selector.
func selectMatches(compiled *compiler.CompiledDocument, selector, component string, logger *slog.Logger) ([]string, error) {
	sel, err := query.Compile(selector)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, fmt.Sprintf("invalid selector %q", selector), err)
	}

	name, _, err := resolveTarget(compiled, component, "")
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "cannot resolve component", err)
	}

	rig := newRenderRig(compiled, map[string]any{}, logger)
	mount, err := rig.renderer.Build(name, rig.hostDoc.Root())
	if err != nil {
		return nil, WrapExitError(ExitFailure, fmt.Sprintf("mount %s", name), err)
	}
	if err := rig.takeFault(mount); err != nil {
		return nil, WrapExitError(ExitFailure, "render fault", err)
	}

	matcher := &query.Matcher{Refs: mount.Ref}
	elements := matcher.Find(rig.hostDoc.Root(), sel)
	matches := make([]string, len(elements))
	for i, el := range elements {
		matches[i] = host.HTML(el)
	}
	return matches, nil
}

// outputInspectText outputs the inspect result as text.
func outputInspectText(formatter *OutputFormatter, opts *InspectOptions, result InspectResult) error {
	w := formatter.Writer

	fmt.Fprintf(w, "Document: %s\n", result.Document)
	fmt.Fprintf(w, "IR Version: %s\n", result.IRVersion)
	fmt.Fprintf(w, "Hash: %s\n", result.Hash)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Components:")
	for _, comp := range result.Components {
		if comp.Root {
			fmt.Fprintf(w, "  %s (root): %d nodes\n", comp.Name, comp.Nodes)
		} else {
			fmt.Fprintf(w, "  %s: %d nodes\n", comp.Name, comp.Nodes)
		}
	}

	if len(result.Routes) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Routes:")
		for _, route := range result.Routes {
			fmt.Fprintf(w, "  %s -> %s\n", route.Pattern, route.Component)
		}
	}
	if len(result.Styles) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Styles: %d preset(s): %s\n", len(result.Styles), strings.Join(result.Styles, ", "))
	}
	if len(result.Imports) > 0 {
		fmt.Fprintf(w, "Imports: %s\n", strings.Join(result.Imports, ", "))
	}

	if opts.Select != "" {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Matches for %q:\n", opts.Select)
		if len(result.Matches) == 0 {
			fmt.Fprintln(w, "  (no matches)")
		}
		for _, m := range result.Matches {
			fmt.Fprintf(w, "  %s\n", m)
		}
	}

	if opts.Dump {
		data, err := json.MarshalIndent(result.IR, "", "  ")
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to marshal IR", err)
		}
		fmt.Fprintln(w)
		fmt.Fprintln(w, "IR:")
		fmt.Fprintln(w, string(data))
	}

	return nil
}

// countNodes counts a subtree's nodes, including region bodies that may not
// all be live at once (both branches of an if count).
func countNodes(nodes []ir.Node) int {
	n := 0
	for _, node := range nodes {
		n++
		switch t := node.(type) {
		case *ir.Element:
			n += countNodes(t.Children)
		case *ir.If:
			n += countNodes(t.Then) + countNodes(t.Else)
		case *ir.Each:
			n += countNodes(t.Body)
		}
	}
	return n
}

// sortedKeys returns map keys in byte order, for deterministic output.
func sortedKeys[V any](m map[string]V) []string {
	if len(m) == 0 {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
