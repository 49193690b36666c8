package compiler

import (
	_ "embed"
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
	cuejson "cuelang.org/go/encoding/json"

	"github.com/weftlabs/weft/internal/ir"
)

//go:embed schema.cue
var schemaCUE string

// CompiledDocument is the result of a successful Compile: the decoded IR
// plus the flattened style-preset table the renderer consumes.
type CompiledDocument struct {
	Doc    *ir.Document
	Styles map[string]any
}

// Compile runs the full document pipeline: CUE schema validation of the raw
// JSON, strict decode, structural validation, and style-preset flattening.
// filename is used for error positions only.
//
// On failure the error list carries every problem found past the first
// stage; within a stage all errors are collected rather than failing fast.
func Compile(filename string, data []byte) (*CompiledDocument, []error) {
	if err := ValidateJSON(filename, data); err != nil {
		return nil, []error{err}
	}

	doc, err := ir.DecodeDocument(data)
	if err != nil {
		return nil, []error{fmt.Errorf("decode %s: %w", filename, err)}
	}

	var errs []error
	for _, ve := range Validate(doc) {
		errs = append(errs, ve)
	}

	styles, styleErrs := FlattenStyles(doc)
	for _, ve := range styleErrs {
		errs = append(errs, ve)
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return &CompiledDocument{Doc: doc, Styles: styles}, nil
}

// ValidateJSON checks raw document JSON against the embedded CUE schema.
// Uses CUE SDK's Go API directly (not CLI subprocess).
func ValidateJSON(filename string, data []byte) error {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return formatCUEError(err)
	}
	def := schema.LookupPath(cue.ParsePath("#Document"))
	if err := def.Err(); err != nil {
		return formatCUEError(err)
	}

	expr, err := cuejson.Extract(filename, data)
	if err != nil {
		return &CompileError{Field: "json", Message: err.Error()}
	}
	doc := ctx.BuildExpr(expr)
	if err := doc.Err(); err != nil {
		return formatCUEError(err)
	}

	unified := def.Unify(doc)
	if err := unified.Validate(cue.Concrete(true), cue.Final()); err != nil {
		return formatCUEError(err)
	}

	return nil
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	// Return first error with position info
	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "schema",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
