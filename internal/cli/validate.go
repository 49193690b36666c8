package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// ValidationIssue is one validation problem, flattened for output.
type ValidationIssue struct {
	File    string `json:"file,omitempty"`
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid     bool              `json:"valid"`
	Documents int               `json:"documents"`
	Errors    []ValidationIssue `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <path>",
		Short: "Validate documents without mounting them",
		Long: `Validate compiled documents without mounting them.

Runs the CUE schema check, the strict IR decode, and the structural
validation pass (component and ref uniqueness, route targets, handler
completeness, style references) over a document file or every .json
document under a directory.

Exit codes:
  0 - All documents valid
  1 - One or more documents failed validation
  2 - Command error (path not found, no documents, etc.)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}

	loadResult, loadErrors := LoadDocuments(path, LoadModeCollectAll)

	// Path-level failures (not found, empty directory) are command errors.
	if loadResult == nil && len(loadErrors) > 0 {
		issue := issueFromError(loadErrors[0])
		_ = formatter.Error(issue.Code, issue.Message, nil)
		return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", issue.Code, issue.Message))
	}

	formatter.VerboseLog("Found %d document file(s) in %s", loadResult.FileCount, path)
	for i, compiled := range loadResult.Documents {
		formatter.VerboseLog("Validated document: %s (%s)", compiled.Doc.Name, loadResult.Files[i])
	}

	if len(loadErrors) > 0 {
		issues := make([]ValidationIssue, len(loadErrors))
		for i, err := range loadErrors {
			issues[i] = issueFromError(err)
		}
		return outputValidationErrors(formatter, loadResult, issues)
	}

	return outputValidateSuccess(formatter, loadResult)
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, loadResult *LoadResult) error {
	if formatter.Format == "json" {
		result := ValidationResult{Valid: true, Documents: len(loadResult.Documents)}
		return formatter.Success(result)
	}

	if len(loadResult.Documents) == 1 {
		fmt.Fprintf(formatter.Writer, "✓ Document valid: %s\n", loadResult.Documents[0].Doc.Name)
		return nil
	}
	fmt.Fprintf(formatter.Writer, "✓ All %d documents valid\n", len(loadResult.Documents))
	return nil
}

// outputValidationErrors outputs collected validation errors.
func outputValidationErrors(formatter *OutputFormatter, loadResult *LoadResult, issues []ValidationIssue) error {
	if formatter.Format == "json" {
		result := ValidationResult{
			Valid:     false,
			Documents: len(loadResult.Documents),
			Errors:    issues,
		}

		response := CLIResponse{
			Status: "error",
			Data:   result,
			Error: &CLIError{
				Code:    issues[0].Code,
				Message: issues[0].Message,
			},
		}

		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}

		// Validation failures = exit code 1
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(issues)))
	}

	// Text format
	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, issue := range issues {
		if issue.File != "" {
			if issue.Line > 0 {
				fmt.Fprintf(formatter.Writer, "%s:%d\n", issue.File, issue.Line)
			} else {
				fmt.Fprintln(formatter.Writer, issue.File)
			}
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s: %s\n\n", issue.Code, issue.Field, issue.Message)
	}

	// Validation failures = exit code 1
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(issues)))
}

// ValidateDocuments validates every document under a path.
// This is a helper function for external callers.
func ValidateDocuments(path string) ([]ValidationIssue, error) {
	loadResult, loadErrors := LoadDocuments(path, LoadModeCollectAll)
	if loadResult == nil && len(loadErrors) > 0 {
		return nil, loadErrors[0]
	}

	issues := make([]ValidationIssue, 0, len(loadErrors))
	for _, err := range loadErrors {
		issues = append(issues, issueFromError(err))
	}
	return issues, nil
}
