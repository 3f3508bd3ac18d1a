// Package errors provides standardized error types and helpers for the lancet codebase.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common cases
var (
	// ErrMalformedPackage indicates the container is not a readable package
	ErrMalformedPackage = errors.New("malformed package")
	// ErrMalformedMarkup indicates content markup is not well-formed or not usable
	ErrMalformedMarkup = errors.New("malformed markup")
	// ErrUnknownIdentifier indicates a node identifier did not resolve
	ErrUnknownIdentifier = errors.New("unknown identifier")
	// ErrInvalidCommand indicates a command could not be parsed or applied
	ErrInvalidCommand = errors.New("invalid command")
	// ErrSerialization indicates output markup could not be produced
	ErrSerialization = errors.New("serialization failed")
)

// PackageError represents an unreadable or incomplete document container
type PackageError struct {
	Path   string // Container path, if known
	Reason string // What made the container unusable
	Err    error  // Underlying error, if any
}

func (e *PackageError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("malformed package %s: %s", e.Path, e.Reason)
	}
	return fmt.Sprintf("malformed package: %s", e.Reason)
}

func (e *PackageError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrMalformedPackage
}

// Is reports sentinel identity so wrapping a cause never hides the category.
func (e *PackageError) Is(target error) bool {
	return target == ErrMalformedPackage
}

// MarkupError represents content markup that cannot be parsed or modeled
type MarkupError struct {
	Part    string // Package part holding the markup (e.g. "word/document.xml")
	Line    int    // 1-based line reported by the parser, 0 if unknown
	Message string // Error details
	Err     error  // Underlying error, if any
}

func (e *MarkupError) Error() string {
	switch {
	case e.Part != "" && e.Line > 0:
		return fmt.Sprintf("malformed markup in %s at line %d: %s", e.Part, e.Line, e.Message)
	case e.Part != "":
		return fmt.Sprintf("malformed markup in %s: %s", e.Part, e.Message)
	default:
		return fmt.Sprintf("malformed markup: %s", e.Message)
	}
}

func (e *MarkupError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrMalformedMarkup
}

func (e *MarkupError) Is(target error) bool {
	return target == ErrMalformedMarkup
}

// IdentifierError represents a node identifier that resolves to nothing
type IdentifierError struct {
	ID  string // Identifier that failed to resolve
	Err error  // Underlying error, if any
}

func (e *IdentifierError) Error() string {
	return fmt.Sprintf("unknown identifier: %s", e.ID)
}

func (e *IdentifierError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrUnknownIdentifier
}

func (e *IdentifierError) Is(target error) bool {
	return target == ErrUnknownIdentifier
}

// CommandError represents a command that cannot be parsed or applied
type CommandError struct {
	Command string // Command verb, if known (e.g. "format", "insert_after")
	Message string // What was wrong with it
	Err     error  // Underlying error, if any
}

func (e *CommandError) Error() string {
	if e.Command != "" {
		return fmt.Sprintf("invalid command %s: %s", e.Command, e.Message)
	}
	return fmt.Sprintf("invalid command: %s", e.Message)
}

func (e *CommandError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrInvalidCommand
}

func (e *CommandError) Is(target error) bool {
	return target == ErrInvalidCommand
}

// SerializeError represents a failure to produce output markup or a package
type SerializeError struct {
	Part    string // Part being serialized, if applicable
	Message string // Error details
	Err     error  // Underlying error, if any
}

func (e *SerializeError) Error() string {
	if e.Part != "" {
		return fmt.Sprintf("failed to serialize %s: %s", e.Part, e.Message)
	}
	return fmt.Sprintf("failed to serialize: %s", e.Message)
}

func (e *SerializeError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return ErrSerialization
}

func (e *SerializeError) Is(target error) bool {
	return target == ErrSerialization
}

// IOError represents an I/O operation error with context
type IOError struct {
	Operation string // Operation being performed (e.g., "read", "write", "open")
	Path      string // File/resource path involved
	Err       error  // Underlying error
}

func (e *IOError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("failed to %s %s: %v", e.Operation, e.Path, e.Err)
	}
	return fmt.Sprintf("failed to %s: %v", e.Operation, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// Helper functions for creating common errors

// NewPackage creates a PackageError
func NewPackage(path, reason string) *PackageError {
	return &PackageError{
		Path:   path,
		Reason: reason,
	}
}

// NewMarkup creates a MarkupError
func NewMarkup(part string, line int, message string) *MarkupError {
	return &MarkupError{
		Part:    part,
		Line:    line,
		Message: message,
	}
}

// NewIdentifier creates an IdentifierError
func NewIdentifier(id string) *IdentifierError {
	return &IdentifierError{
		ID: id,
	}
}

// NewCommand creates a CommandError
func NewCommand(command, message string) *CommandError {
	return &CommandError{
		Command: command,
		Message: message,
	}
}

// NewSerialize creates a SerializeError
func NewSerialize(part, message string) *SerializeError {
	return &SerializeError{
		Part:    part,
		Message: message,
	}
}

// NewIO creates an IOError
func NewIO(operation, path string, err error) *IOError {
	return &IOError{
		Operation: operation,
		Path:      path,
		Err:       err,
	}
}

// Wrap adds context to an error. If err is nil, returns nil.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf adds formatted context to an error. If err is nil, returns nil.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	message := fmt.Sprintf(format, args...)
	return fmt.Errorf("%s: %w", message, err)
}

// Is wraps errors.Is for convenience
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As wraps errors.As for convenience
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
