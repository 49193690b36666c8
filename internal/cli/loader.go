package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/weftlabs/weft/internal/compiler"
)

// LoadMode controls how errors are handled during document loading.
type LoadMode int

const (
	// LoadModeFailFast stops on the first file that fails to compile.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll collects all errors before returning.
	LoadModeCollectAll
)

// LoadResult contains the results of loading documents from a path.
type LoadResult struct {
	Documents []*compiler.CompiledDocument
	Files     []string // source file per document, parallel to Documents
	FileCount int      // number of document files found
}

// LoadError represents an error that occurred during document loading.
type LoadError struct {
	Code    string
	Message string
	File    string // offending file if known
}

func (e *LoadError) Error() string {
	if e.File != "" {
		return fmt.Sprintf("%s: %s: %s", e.File, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeScanError   = "E002" // Directory scan error
	ErrCodeNoFiles     = "E003" // No document files found
	ErrCodeCompile     = "E004" // Document failed schema check or decode
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeReadFailed  = "E006" // File read error
	ErrCodeWriteFailed = "E007" // File write error
)

// LoadDocument reads and compiles a single document file.
func LoadDocument(path string) (*compiler.CompiledDocument, []error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("document not found: %s", path)}}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeReadFailed, Message: fmt.Sprintf("reading document: %v", err), File: path}}
	}
	return compiler.Compile(filepath.Base(path), data)
}

// LoadDocuments loads and compiles every document under a path. A file path
// loads that single document; a directory is walked for .json files.
// If mode is LoadModeFailFast, returns on the first file with errors.
// If mode is LoadModeCollectAll, collects all errors across files.
func LoadDocuments(path string, mode LoadMode) (*LoadResult, []error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("path not found: %s", path)}}
	}
	if err != nil {
		return nil, []error{&LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing path: %v", err)}}
	}

	var files []string
	if info.IsDir() {
		files, err = FindDocumentFiles(path)
		if err != nil {
			return nil, []error{&LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}}
		}
		if len(files) == 0 {
			return nil, []error{&LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no document files found in %s", path)}}
		}
	} else {
		files = []string{path}
	}

	result := &LoadResult{FileCount: len(files)}
	var errs []error

	for _, file := range files {
		compiled, fileErrs := LoadDocument(file)
		if len(fileErrs) > 0 {
			for _, fe := range fileErrs {
				errs = append(errs, tagFile(fe, file))
			}
			if mode == LoadModeFailFast {
				return result, errs
			}
			continue
		}
		result.Documents = append(result.Documents, compiled)
		result.Files = append(result.Files, file)
	}

	return result, errs
}

// FindDocumentFiles walks the directory and returns all .json file paths.
func FindDocumentFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".json" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// fileError pairs an error with the document file it came from, so
// collect-all output can attribute each error after the walk.
type fileError struct {
	file string
	err  error
}

func (e *fileError) Error() string { return fmt.Sprintf("%s: %v", e.file, e.err) }
func (e *fileError) Unwrap() error { return e.err }

func tagFile(err error, file string) error {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		if loadErr.File == "" {
			loadErr.File = file
		}
		return loadErr
	}
	return &fileError{file: file, err: err}
}

// issueFromError lowers a loader or compiler error into the flat issue shape
// the validate command reports.
func issueFromError(err error) ValidationIssue {
	var file string
	var fe *fileError
	if errors.As(err, &fe) {
		file = fe.file
	}

	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		issue := ValidationIssue{
			File:    file,
			Field:   compileErr.Field,
			Message: compileErr.Message,
			Code:    ErrCodeCompile,
		}
		if compileErr.Pos.IsValid() {
			issue.Line = compileErr.Pos.Line()
		}
		return issue
	}

	var validationErr compiler.ValidationError
	if errors.As(err, &validationErr) {
		return ValidationIssue{
			File:    file,
			Field:   validationErr.Field,
			Message: validationErr.Message,
			Code:    validationErr.Code,
		}
	}

	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return ValidationIssue{
			File:    loadErr.File,
			Field:   "load",
			Message: loadErr.Message,
			Code:    loadErr.Code,
		}
	}

	return ValidationIssue{File: file, Field: "load", Message: err.Error(), Code: ErrCodeGeneric}
}
