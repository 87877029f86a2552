package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents stable error codes for all failure modes
type ErrorCode string

const (
	// FormatError indicates a malformed version string or input token
	FormatError ErrorCode = "FORMAT_ERROR"
	// IOError indicates an artifact or output file is missing or unreadable
	IOError ErrorCode = "IO_ERROR"
	// ResolutionError indicates a referenced type or package cannot be resolved
	ResolutionError ErrorCode = "RESOLUTION_ERROR"
	// IntegrityError indicates a duplicate element identity during collection
	IntegrityError ErrorCode = "INTEGRITY_ERROR"
	// ConfigInvalid indicates a configuration or declaration file is invalid
	ConfigInvalid ErrorCode = "CONFIG_INVALID"
	// InternalError indicates unexpected error
	InternalError ErrorCode = "INTERNAL_ERROR"
)

// Stage names the step of a report run that failed.
type Stage string

const (
	StageParse   Stage = "parse"
	StageCollect Stage = "collect"
	StageMatch   Stage = "match"
	StageRender  Stage = "render"
)

// FixActionType represents the type of fix action
type FixActionType string

const (
	// RunCommand suggests running a command
	RunCommand FixActionType = "run-command"
	// EditFile suggests editing a declaration or configuration file
	EditFile FixActionType = "edit-file"
)

// FixAction represents a suggested fix for an error
type FixAction struct {
	Type        FixActionType `json:"type"`
	Command     string        `json:"command,omitempty"`
	Path        string        `json:"path,omitempty"`
	Description string        `json:"description,omitempty"`
}

// Error is an apidiff failure with a stable code, the stage it happened in
// and the offending input.
type Error struct {
	Code           ErrorCode   `json:"code"`
	Stage          Stage       `json:"stage,omitempty"`
	Message        string      `json:"message"`
	Input          string      `json:"input,omitempty"`
	Details        interface{} `json:"details,omitempty"`
	SuggestedFixes []FixAction `json:"suggestedFixes,omitempty"`
	cause          error       // Underlying error (not exported to JSON)
}

// New creates a new Error with the default fixes for its code.
func New(code ErrorCode, message string, cause error) *Error {
	return &Error{
		Code:           code,
		Message:        message,
		cause:          cause,
		SuggestedFixes: GetSuggestedFixes(code),
	}
}

// Newf creates a new Error without a cause.
func Newf(code ErrorCode, format string, args ...interface{}) *Error {
	return New(code, fmt.Sprintf(format, args...), nil)
}

// Error implements the error interface
func (e *Error) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Code, e.Message)
	if e.Stage != "" {
		msg = fmt.Sprintf("[%s] %s: %s", e.Code, e.Stage, e.Message)
	}
	if e.Input != "" {
		msg += fmt.Sprintf(" (input: %q)", e.Input)
	}
	if e.cause != nil {
		msg += ": " + e.cause.Error()
	}
	return msg
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.cause
}

// WithInput records the offending input.
func (e *Error) WithInput(input string) *Error {
	e.Input = input
	return e
}

// WithStage records the stage unless one is already set.
func (e *Error) WithStage(stage Stage) *Error {
	if e.Stage == "" {
		e.Stage = stage
	}
	return e
}

// WithDetails adds details to the error
func (e *Error) WithDetails(details interface{}) *Error {
	e.Details = details
	return e
}

// As returns the first *Error in err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if stderrors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// CodeOf returns the code of the first *Error in err's chain, or InternalError.
func CodeOf(err error) ErrorCode {
	if e, ok := As(err); ok {
		return e.Code
	}
	return InternalError
}

// Is reports whether err carries the given code.
func Is(err error, code ErrorCode) bool {
	e, ok := As(err)
	return ok && e.Code == code
}

// AtStage tags err with a stage. Errors that are not *Error are wrapped as
// internal errors so every failure leaving a run names its stage.
func AtStage(err error, stage Stage) error {
	if err == nil {
		return nil
	}
	if e, ok := As(err); ok {
		e.WithStage(stage)
		return err
	}
	return New(InternalError, "unexpected failure", err).WithStage(stage)
}

// ErrorActions maps error codes to suggested fix actions
var ErrorActions = map[ErrorCode][]FixAction{
	IOError: {
		{
			Type:        EditFile,
			Path:        "ARTIFACTS.toml",
			Description: "Check the source template of the artifact declaration",
		},
	},
	ResolutionError: {
		{
			Type:        RunCommand,
			Command:     "apidiff deps <version>",
			Description: "List the dependency modules known for this API version",
		},
	},
	ConfigInvalid: {
		{
			Type:        EditFile,
			Path:        ".apidiff/config.toml",
			Description: "Fix the reported configuration field",
		},
	},
}

// GetSuggestedFixes returns suggested fixes for an error code
func GetSuggestedFixes(code ErrorCode) []FixAction {
	if fixes, ok := ErrorActions[code]; ok {
		return fixes
	}
	return nil
}
