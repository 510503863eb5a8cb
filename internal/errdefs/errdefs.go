package errdefs

import (
	"errors"
	"fmt"
)

// ErrorCode represents stable error codes for all failure modes
type ErrorCode string

const (
	// ProcessFailed indicates an external command could not be spawned or
	// exited non-zero
	ProcessFailed ErrorCode = "PROCESS_FAILED"
	// BuildRequired indicates the build tool reported that the tree has
	// not been built yet
	BuildRequired ErrorCode = "BUILD_REQUIRED"
	// DiscoveryFailed indicates compiler probing ran but produced no
	// usable defines
	DiscoveryFailed ErrorCode = "DISCOVERY_FAILED"
	// ConfigUnavailable indicates per-file resolution found no applicable
	// build-description entry; not a failure, the host falls back to its
	// own defaults
	ConfigUnavailable ErrorCode = "CONFIG_UNAVAILABLE"
	// MalformedEnvironment indicates the build tool's environment output
	// was missing a load-bearing field
	MalformedEnvironment ErrorCode = "MALFORMED_ENVIRONMENT"
	// NotABuildTree indicates the folder root has no build-tool entry point
	NotABuildTree ErrorCode = "NOT_A_BUILD_TREE"
	// InternalError indicates unexpected error
	InternalError ErrorCode = "INTERNAL_ERROR"
)

// FixActionType represents the type of fix action
type FixActionType string

const (
	// RunCommand suggests running a command
	RunCommand FixActionType = "run-command"
	// OpenDocs suggests opening documentation
	OpenDocs FixActionType = "open-docs"
)

// FixAction represents a suggested fix for an error
type FixAction struct {
	Type        FixActionType `json:"type"`
	Command     string        `json:"command,omitempty"`
	Safe        bool          `json:"safe,omitempty"`
	Description string        `json:"description,omitempty"`
	URL         string        `json:"url,omitempty"`
}

// Error is a failure with a stable code, a human message, and suggestions.
// The cause chain stays available through Unwrap.
type Error struct {
	Code           ErrorCode   `json:"code"`
	Message        string      `json:"message"`
	Details        interface{} `json:"details,omitempty"`
	SuggestedFixes []FixAction `json:"suggestedFixes,omitempty"`
	cause          error
}

// New creates an Error with the suggested fixes registered for its code.
func New(code ErrorCode, message string, cause error) *Error {
	return &Error{
		Code:           code,
		Message:        message,
		cause:          cause,
		SuggestedFixes: GetSuggestedFixes(code),
	}
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.cause
}

// ErrorCode returns the stable code, satisfying the coded-error interface.
func (e *Error) ErrorCode() ErrorCode {
	return e.Code
}

// WithDetails adds details to the error
func (e *Error) WithDetails(details interface{}) *Error {
	e.Details = details
	return e
}

type coded interface {
	ErrorCode() ErrorCode
}

// CodeOf reports the stable code of the first coded error in err's chain.
func CodeOf(err error) (ErrorCode, bool) {
	var c coded
	if errors.As(err, &c) {
		return c.ErrorCode(), true
	}
	return "", false
}

// IsCode reports whether err's chain carries the given code.
func IsCode(err error, code ErrorCode) bool {
	for e := err; e != nil; e = errors.Unwrap(e) {
		if c, ok := e.(coded); ok && c.ErrorCode() == code {
			return true
		}
	}
	return false
}

// ErrorActions maps error codes to suggested fix actions
var ErrorActions = map[ErrorCode][]FixAction{
	BuildRequired: {
		{
			Type:        RunCommand,
			Command:     "./mach build",
			Safe:        false,
			Description: "Build the tree so per-directory flags exist",
		},
	},
	DiscoveryFailed: {
		{
			Type:        RunCommand,
			Command:     "geckocpp doctor",
			Safe:        true,
			Description: "Check compiler and build-tool configuration",
		},
	},
	ProcessFailed: {
		{
			Type:        RunCommand,
			Command:     "geckocpp doctor",
			Safe:        true,
			Description: "Check compiler and build-tool configuration",
		},
	},
	MalformedEnvironment: {
		{
			Type:        RunCommand,
			Command:     "./mach environment --format json",
			Safe:        true,
			Description: "Inspect what the build tool reports",
		},
	},
	NotABuildTree: {
		{
			Type:        OpenDocs,
			URL:         "https://firefox-source-docs.mozilla.org/setup/",
			Description: "Set up a buildable tree",
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
