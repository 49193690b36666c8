package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/weftlabs/weft/internal/ir"
	"github.com/weftlabs/weft/internal/store"
)

// StateOptions holds flags for the state command group.
type StateOptions struct {
	*RootOptions
	Database string
}

// FieldEntry is one persisted field, flattened for output.
type FieldEntry struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
	Rev   int64  `json:"rev"`
}

// NewStateCommand creates the state command group.
func NewStateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "state",
		Short: "Inspect and edit persisted state fields",
		Long: `Inspect and edit persisted state fields in a store database.

Fields live in the SQLite store that mounts with persistence write
through. Values are JSON; strings need their quotes:

  weft state list --db ./weft.db
  weft state get count --db ./weft.db
  weft state set count 42 --db ./weft.db
  weft state set title '"hello"' --db ./weft.db
  weft state delete count --db ./weft.db`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkPersistentFlagRequired("db")

	cmd.AddCommand(newStateListCommand(opts))
	cmd.AddCommand(newStateGetCommand(opts))
	cmd.AddCommand(newStateSetCommand(opts))
	cmd.AddCommand(newStateDeleteCommand(opts))

	return cmd
}

func newStateListCommand(opts *StateOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "list",
		Short:         "List all persisted fields",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStateList(opts, cmd)
		},
	}
}

func newStateGetCommand(opts *StateOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "get <field>",
		Short:         "Print one persisted field value",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStateGet(opts, args[0], cmd)
		},
	}
}

func newStateSetCommand(opts *StateOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "set <field> <value>",
		Short:         "Write one persisted field (value is JSON)",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStateSet(opts, args[0], args[1], cmd)
		},
	}
}

func newStateDeleteCommand(opts *StateOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "delete <field>",
		Short:         "Delete one persisted field",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStateDelete(opts, args[0], cmd)
		},
	}
}

// openStore opens the store behind --db. Reads require the file to exist;
// set creates it, matching how a first persisted write behaves.
func openStore(opts *StateOptions, mustExist bool) (*store.Store, error) {
	if mustExist {
		if _, err := os.Stat(opts.Database); os.IsNotExist(err) {
			return nil, NewExitError(ExitCommandError, fmt.Sprintf("database not found: %s", opts.Database))
		}
	}
	st, err := store.Open(opts.Database)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return st, nil
}

func runStateList(opts *StateOptions, cmd *cobra.Command) error {
	st, err := openStore(opts, true)
	if err != nil {
		return err
	}
	defer st.Close()

	fields, err := st.ReadFields(context.Background())
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read fields", err)
	}

	entries := make([]FieldEntry, len(fields))
	for i, f := range fields {
		entries[i] = FieldEntry{Name: f.Name, Value: f.Value, Rev: f.Rev}
	}

	if opts.Format == "json" {
		return respondJSON(cmd, CLIResponse{Status: "ok", Data: entries})
	}

	w := cmd.OutOrStdout()
	if len(entries) == 0 {
		fmt.Fprintln(w, "No fields stored.")
		return nil
	}
	for _, e := range entries {
		fmt.Fprintf(w, "%s = %s (rev %d)\n", e.Name, renderFieldValue(e.Value), e.Rev)
	}
	return nil
}

func runStateGet(opts *StateOptions, field string, cmd *cobra.Command) error {
	st, err := openStore(opts, true)
	if err != nil {
		return err
	}
	defer st.Close()

	value, ok, err := st.Field(context.Background(), field)
	if err != nil {
		return WrapExitError(ExitCommandError, fmt.Sprintf("failed to read field %q", field), err)
	}
	if !ok {
		if opts.Format == "json" {
			_ = respondJSON(cmd, CLIResponse{
				Status: "error",
				Error:  &CLIError{Code: "E_NO_FIELD", Message: fmt.Sprintf("field not found: %s", field)},
			})
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "field not found: %s\n", field)
		}
		return NewExitError(ExitFailure, fmt.Sprintf("field not found: %s", field))
	}

	if opts.Format == "json" {
		return respondJSON(cmd, CLIResponse{Status: "ok", Data: FieldEntry{Name: field, Value: value}})
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderFieldValue(value))
	return nil
}

func runStateSet(opts *StateOptions, field, rawValue string, cmd *cobra.Command) error {
	var value any
	if err := json.Unmarshal([]byte(rawValue), &value); err != nil {
		return WrapExitError(ExitCommandError, fmt.Sprintf("invalid value JSON %q", rawValue), err)
	}

	st, err := openStore(opts, false)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.SetField(context.Background(), field, value); err != nil {
		return WrapExitError(ExitCommandError, fmt.Sprintf("failed to set field %q", field), err)
	}

	if opts.Format == "json" {
		return respondJSON(cmd, CLIResponse{Status: "ok", Data: FieldEntry{Name: field, Value: value}})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ %s = %s\n", field, renderFieldValue(value))
	return nil
}

func runStateDelete(opts *StateOptions, field string, cmd *cobra.Command) error {
	st, err := openStore(opts, true)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.DeleteField(context.Background(), field); err != nil {
		return WrapExitError(ExitCommandError, fmt.Sprintf("failed to delete field %q", field), err)
	}

	if opts.Format == "json" {
		return respondJSON(cmd, CLIResponse{Status: "ok", Data: FieldEntry{Name: field}})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ deleted %s\n", field)
	return nil
}

// renderFieldValue prints a field value as canonical JSON, the same bytes
// the store holds.
func renderFieldValue(value any) string {
	data, err := ir.MarshalCanonical(value)
	if err != nil {
		return fmt.Sprintf("%v", value)
	}
	return string(data)
}

// respondJSON writes an indented CLIResponse to the command's stdout.
func respondJSON(cmd *cobra.Command, response CLIResponse) error {
	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(response)
}
