package errors

import (
	stderrors "errors"
	"fmt"
)

// Category represents the type of error.
type Category string

const (
	CategoryRoute   Category = "route"
	CategoryConfig  Category = "config"
	CategoryProxy   Category = "proxy"
	CategoryBuild   Category = "build"
	CategoryPublish Category = "publish"
	CategoryCLI     Category = "cli"
)

// Location is a position in a configuration or source file.
type Location struct {
	File   string `json:"file"`
	Line   int    `json:"line,omitempty"`
	Column int    `json:"column,omitempty"`
}

// String returns the location as file:line[:column].
func (l *Location) String() string {
	if l == nil {
		return ""
	}
	if l.Column > 0 {
		return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
	}
	if l.Line > 0 {
		return fmt.Sprintf("%s:%d", l.File, l.Line)
	}
	return l.File
}

// ShellError is a coded error with context for the user.
type ShellError struct {
	// Code is the registered identifier, e.g. "E101".
	Code string

	Category Category

	// Message is a short description.
	Message string

	// Detail explains this occurrence.
	Detail string

	Location *Location

	// Suggestion is a hint on how to fix the error.
	Suggestion string

	DocURL string

	// Wrapped is the underlying error, if any.
	Wrapped error
}

// Error implements the error interface.
func (e *ShellError) Error() string {
	msg := e.Message
	if e.Code != "" {
		msg = e.Code + ": " + msg
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Wrapped != nil {
		msg += ": " + e.Wrapped.Error()
	}
	return msg
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *ShellError) Unwrap() error {
	return e.Wrapped
}

// WithLocation records where in a file the error was found.
func (e *ShellError) WithLocation(file string, line, column int) *ShellError {
	e.Location = &Location{File: file, Line: line, Column: column}
	return e
}

// WithSuggestion adds a fix suggestion to the error.
func (e *ShellError) WithSuggestion(s string) *ShellError {
	e.Suggestion = s
	return e
}

// WithDetail adds an explanation of this occurrence.
func (e *ShellError) WithDetail(d string) *ShellError {
	e.Detail = d
	return e
}

// WithDetailf is WithDetail with formatting.
func (e *ShellError) WithDetailf(format string, args ...any) *ShellError {
	return e.WithDetail(fmt.Sprintf(format, args...))
}

// Wrap wraps another error.
func (e *ShellError) Wrap(err error) *ShellError {
	e.Wrapped = err
	return e
}

// New creates a ShellError from a registered code.
func New(code string) *ShellError {
	template, ok := registry[code]
	if !ok {
		return &ShellError{
			Code:    code,
			Message: "Unknown error",
		}
	}
	return &ShellError{
		Code:     code,
		Category: template.Category,
		Message:  template.Message,
		DocURL:   template.DocURL,
	}
}

// Newf creates an uncoded ShellError with a formatted message.
func Newf(category Category, format string, args ...any) *ShellError {
	return &ShellError{
		Category: category,
		Message:  fmt.Sprintf(format, args...),
	}
}

// FromError returns err itself if it already is (or wraps) a ShellError,
// otherwise wraps it under code.
func FromError(err error, code string) *ShellError {
	if err == nil {
		return nil
	}
	var se *ShellError
	if stderrors.As(err, &se) {
		return se
	}
	return New(code).Wrap(err)
}
