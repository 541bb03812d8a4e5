package errors

import (
	"errors"
	"fmt"
)

// Exit codes for ai-pod
const (
	ExitSuccess         = 0
	ExitGeneralError    = 1
	ExitRuntimeError    = 2
	ExitBuildFailed     = 3
	ExitContainerFailed = 4
	ExitConfigError     = 5
	ExitDaemonError     = 6
)

// PodError is the base error type for ai-pod
type PodError struct {
	Code    int
	Message string
	Cause   error
}

func (e *PodError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *PodError) Unwrap() error {
	return e.Cause
}

// ExitCode returns the exit code for this error
func (e *PodError) ExitCode() int {
	return e.Code
}

// New creates a new PodError
func New(code int, message string) *PodError {
	return &PodError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with a PodError
func Wrap(code int, message string, cause error) *PodError {
	return &PodError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Common error constructors

// RuntimeFailed returns an error for a failed conversation with the container
// runtime (the CLI could not be run, or exited for a reason other than "not found").
func RuntimeFailed(op string, cause error) *PodError {
	return Wrap(ExitRuntimeError, fmt.Sprintf("runtime %s failed", op), cause)
}

// BuildFailed returns an error for a failed image build
func BuildFailed(cause error) *PodError {
	return Wrap(ExitBuildFailed, "image build failed", cause)
}

// ContainerFailed returns an error for container operations
func ContainerFailed(op string, cause error) *PodError {
	return Wrap(ExitContainerFailed, fmt.Sprintf("container %s failed", op), cause)
}

// ConfigError returns an error for configuration issues
func ConfigError(message string, cause error) *PodError {
	return Wrap(ExitConfigError, message, cause)
}

// DaemonError returns an error for notification daemon supervision
func DaemonError(message string, cause error) *PodError {
	return Wrap(ExitDaemonError, message, cause)
}

// WorkspaceError returns an error for workspace resolution
func WorkspaceError(path string, cause error) *PodError {
	return Wrap(ExitGeneralError, fmt.Sprintf("invalid workspace %s", path), cause)
}

// GetExitCode extracts the exit code from an error
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var podErr *PodError
	if errors.As(err, &podErr) {
		return podErr.ExitCode()
	}
	return ExitGeneralError
}

// Is checks if an error is of a specific type
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target any) bool {
	return errors.As(err, target)
}
