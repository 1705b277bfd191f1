// Package texerr provides a lightweight structured error type (PipelineError)
// for stage-based classification in the diff pipeline and CLI.
package texerr

import (
	"errors"
	"fmt"
)

// Category classifies a pipeline error by the stage or concern that raised it.
type Category string

const (
	// User-facing input errors.
	CategoryUsage Category = "usage"

	// Workspace and filesystem errors.
	CategoryResource Category = "resource"

	// Snapshot extraction (git archive / untar / overlay) errors.
	CategoryExtraction Category = "extraction"

	// Prepare-command errors.
	CategoryPreparation Category = "preparation"

	// Flattening and bibliography regeneration errors.
	CategoryFlatten      Category = "flatten"
	CategoryBibliography Category = "bibliography"

	// Markup-diff tool errors.
	CategoryDiff Category = "diff"

	// Typesetting toolchain errors. The only category that can be
	// downgraded to a warning under error tolerance.
	CategoryCompilation Category = "compilation"

	// Artifact relocation and viewer errors.
	CategoryDelivery Category = "delivery"

	CategoryInternal Category = "internal"
)

// ContextFields carries structured context for a PipelineError.
type ContextFields map[string]any

// PipelineError is a structured error with category and context.
type PipelineError struct {
	Category Category      `json:"category"`
	Message  string        `json:"message"`
	Cause    error         `json:"cause,omitempty"`
	Context  ContextFields `json:"context,omitempty"`
}

// Error implements the error interface.
func (e *PipelineError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Category, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Category, e.Message)
}

// Unwrap implements error unwrapping for Go 1.13+ error handling.
func (e *PipelineError) Unwrap() error {
	return e.Cause
}

// WithContext adds context information to the error.
func (e *PipelineError) WithContext(key string, value any) *PipelineError {
	if e.Context == nil {
		e.Context = make(ContextFields)
	}
	e.Context[key] = value
	return e
}

// New creates a new PipelineError.
func New(category Category, message string) *PipelineError {
	return &PipelineError{Category: category, Message: message}
}

// Wrap creates a new PipelineError that wraps an existing error.
func Wrap(err error, category Category, message string) *PipelineError {
	return &PipelineError{Category: category, Message: message, Cause: err}
}

// IsCategory checks if an error belongs to a specific category.
func IsCategory(err error, category Category) bool {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Category == category
	}
	return false
}

// GetCategory extracts the category from an error, or CategoryInternal
// if it is not a PipelineError.
func GetCategory(err error) Category {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Category
	}
	return CategoryInternal
}

// Convenience constructors for common pipeline failure shapes.

func UsageError(message string) *PipelineError {
	return New(CategoryUsage, message)
}

func WorkspaceError(operation string, cause error) *PipelineError {
	return Wrap(cause, CategoryResource, "workspace operation failed").
		WithContext("operation", operation)
}

func ExtractionError(side, revision string, cause error) *PipelineError {
	return Wrap(cause, CategoryExtraction, "snapshot extraction failed").
		WithContext("side", side).
		WithContext("revision", revision)
}

func PreparationError(command, missing string) *PipelineError {
	return New(CategoryPreparation, "prepare command did not produce the main document").
		WithContext("command", command).
		WithContext("missing", missing)
}

func FlattenError(side string, cause error) *PipelineError {
	return Wrap(cause, CategoryFlatten, "source flattening failed").
		WithContext("side", side)
}

func BibliographyError(side, bblFile string) *PipelineError {
	return New(CategoryBibliography, "compiled bibliography could not be produced").
		WithContext("side", side).
		WithContext("file", bblFile)
}

func DiffError(cause error) *PipelineError {
	return Wrap(cause, CategoryDiff, "markup diff failed")
}

func CompilationError(docDir, mainFile string) *PipelineError {
	return New(CategoryCompilation, "compilation produced no usable output").
		WithContext("dir", docDir).
		WithContext("main", mainFile)
}
