// Package errors provides a hierarchical error system for ttt operations.
// It implements typed errors that can be inspected and handled differently
// based on their category, so the CLI can report descriptor problems precisely.
package errors

import (
	stderrors "errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
)

// ErrorType represents the category of error for classification and handling.
type ErrorType string

// Error type constants define the categories of errors that can occur while
// locating, loading and checking a package descriptor.
const (
	ErrTypeFile       ErrorType = "file"
	ErrTypeConfig     ErrorType = "config"
	ErrTypeParsing    ErrorType = "parsing"
	ErrTypeValidation ErrorType = "validation"
)

// TttError is the base error type that provides structured error information.
// Specific error types embed it, so errors.Is matches on the category and
// AsTttError reaches the base fields through any wrapper. The underlying
// cause, such as a decoder message with its line number, is kept in the
// error text so users can locate the problem.
type TttError struct {
	Type    ErrorType
	Path    string
	Message string
	Cause   error
}

func (e *TttError) Error() string {
	msg := e.Message
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	if e.Path != "" {
		return fmt.Sprintf("%s error for %s: %s", e.Type, e.Path, msg)
	}
	return fmt.Sprintf("%s error: %s", e.Type, msg)
}

func (e *TttError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is a TttError of the same category.
func (e *TttError) Is(target error) bool {
	t, ok := target.(*TttError)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// Base returns the error itself; wrappers embedding TttError promote it so
// the base fields can be reached through errors.As on any wrapper.
func (e *TttError) Base() *TttError {
	return e
}

// AsTttError finds the first typed error in err's chain.
func AsTttError(err error) (*TttError, bool) {
	var b interface{ Base() *TttError }
	if stderrors.As(err, &b) {
		return b.Base(), true
	}
	return nil, false
}

// Sentinels usable with errors.Is to test for a category.
var (
	ErrFile       = &TttError{Type: ErrTypeFile}
	ErrConfig     = &TttError{Type: ErrTypeConfig}
	ErrParsing    = &TttError{Type: ErrTypeParsing}
	ErrValidation = &TttError{Type: ErrTypeValidation}
)

// FileError represents file system operation errors.
type FileError struct {
	*TttError
}

// NewFileError creates a file operation error with context.
// The path should be absolute so messages point at the exact file, whatever
// directory the command was started from.
func NewFileError(path, message string, cause error) *FileError {
	return &FileError{
		TttError: &TttError{
			Type:    ErrTypeFile,
			Path:    path,
			Message: message,
			Cause:   cause,
		},
	}
}

// FileNotFoundError represents errors when files cannot be located.
// A descriptor whose README is absent fails with this error.
type FileNotFoundError struct {
	*FileError
}

// NewFileNotFoundError creates a file not found error.
func NewFileNotFoundError(path string, cause error) *FileNotFoundError {
	return &FileNotFoundError{
		FileError: NewFileError(path, "file not found", cause),
	}
}

// FileNotReadableError represents errors when files cannot be read from.
type FileNotReadableError struct {
	*FileError
}

// NewFileNotReadableError creates a file read permission error.
func NewFileNotReadableError(path string, cause error) *FileNotReadableError {
	return &FileNotReadableError{
		FileError: NewFileError(path, "file not readable", cause),
	}
}

// ConfigError represents runtime configuration loading and validation errors.
// It covers malformed config files, settings that fail validation, and script
// entries that cannot be resolved safely inside the project root.
type ConfigError struct {
	*TttError
}

// NewConfigError creates a configuration error without path context.
func NewConfigError(message string, cause error) *ConfigError {
	return &ConfigError{
		TttError: &TttError{
			Type:    ErrTypeConfig,
			Message: message,
			Cause:   cause,
		},
	}
}

// NewConfigErrorWithPath creates a configuration error with file context.
func NewConfigErrorWithPath(path, message string, cause error) *ConfigError {
	return &ConfigError{
		TttError: &TttError{
			Type:    ErrTypeConfig,
			Path:    path,
			Message: message,
			Cause:   cause,
		},
	}
}

// ParsingError represents errors while decoding a descriptor file.
// Syntax errors, unsupported extensions and unknown top-level keys all end
// up here; the decoder's own message is kept as the cause.
type ParsingError struct {
	*TttError
}

// NewParsingError creates a parsing error with file and context information.
func NewParsingError(path, message string, cause error) *ParsingError {
	return &ParsingError{
		TttError: &TttError{
			Type:    ErrTypeParsing,
			Path:    path,
			Message: message,
			Cause:   cause,
		},
	}
}

// FieldViolation describes one field that failed validation.
type FieldViolation struct {
	Field  string `json:"field" yaml:"field"`
	Rule   string `json:"rule" yaml:"rule"`
	Reason string `json:"reason" yaml:"reason"`
}

func (v FieldViolation) String() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Reason)
}

// ValidationError represents a descriptor or configuration that decoded
// correctly but violates one or more field rules.
type ValidationError struct {
	*TttError
	Violations []FieldViolation
}

// NewValidationError creates a validation error listing every violation.
func NewValidationError(path string, violations []FieldViolation) *ValidationError {
	parts := make([]string, 0, len(violations))
	for _, v := range violations {
		parts = append(parts, v.String())
	}
	return &ValidationError{
		TttError: &TttError{
			Type:    ErrTypeValidation,
			Path:    path,
			Message: strings.Join(parts, "; "),
		},
		Violations: violations,
	}
}

// WrapFileError converts standard Go errors into typed TttError instances.
// Missing files become FileNotFoundError, permission failures become
// FileNotReadableError, and anything else a generic FileError. The original
// error stays reachable through Unwrap.
func WrapFileError(path string, err error) error {
	if err == nil {
		return nil
	}

	absPath, absErr := filepath.Abs(path)
	if absErr != nil {
		absPath = path
	}
	switch {
	case stderrors.Is(err, fs.ErrNotExist):
		return NewFileNotFoundError(absPath, err)
	case stderrors.Is(err, fs.ErrPermission):
		return NewFileNotReadableError(absPath, err)
	default:
		return NewFileError(absPath, "file operation failed", err)
	}
}

// IsNotFound reports whether err is, or wraps, a FileNotFoundError.
func IsNotFound(err error) bool {
	var nf *FileNotFoundError
	return stderrors.As(err, &nf)
}
