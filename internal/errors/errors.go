// Package errors provides sentinel errors and custom error types for the workstack application.
// Use errors.Is() and errors.As() to check for specific error types.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for common conditions
var (
	// ErrNotOnBranch indicates that HEAD is not on a branch
	ErrNotOnBranch = errors.New("not on a branch")

	// ErrBranchNotFound indicates that a branch does not exist
	ErrBranchNotFound = errors.New("branch not found")

	// ErrRebaseConflict indicates that a rebase operation encountered a conflict
	ErrRebaseConflict = errors.New("rebase conflict")

	// ErrNoRerootInProgress indicates that no reroot is currently in progress
	ErrNoRerootInProgress = errors.New("no reroot in progress")

	// ErrTrunkOperation indicates an invalid operation on the trunk branch
	ErrTrunkOperation = errors.New("invalid operation on trunk branch")

	// ErrAmbiguousForest indicates that a branch is checked out in worktrees
	// belonging to more than one forest
	ErrAmbiguousForest = errors.New("ambiguous forest")
)

// Kind classifies a top-level operation failure
type Kind string

const (
	// KindPrecondition indicates an unmet precondition, detected before any mutation
	KindPrecondition Kind = "precondition-failed"
	// KindConflict indicates a rebase or merge conflict awaiting human resolution
	KindConflict Kind = "conflict"
	// KindExternalTool indicates a non-zero exit from git or the stack tool
	KindExternalTool Kind = "external-tool-failure"
	// KindAPI indicates a code-host API failure
	KindAPI Kind = "api-failure"
	// KindInternal indicates an internal-consistency failure (a bug, not a user error)
	KindInternal Kind = "internal-consistency"
)

// OpError is the typed failure returned by top-level operations. It carries
// the taxonomy kind, a human-readable explanation and at least one concrete
// remediation step.
type OpError struct {
	Kind        Kind
	Message     string
	Remediation string
	Err         error
}

func (e *OpError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Kind, e.Message)
	if e.Remediation != "" {
		msg += fmt.Sprintf("\n  remediation: %s", e.Remediation)
	}
	if e.Err != nil {
		msg += fmt.Sprintf("\n  caused by: %v", e.Err)
	}
	return msg
}

func (e *OpError) Unwrap() error {
	return e.Err
}

// NewPreconditionError creates an OpError for an unmet precondition
func NewPreconditionError(message, remediation string) *OpError {
	return &OpError{Kind: KindPrecondition, Message: message, Remediation: remediation}
}

// NewConflictError creates an OpError for a conflict pause condition
func NewConflictError(message, remediation string) *OpError {
	return &OpError{Kind: KindConflict, Message: message, Remediation: remediation, Err: ErrRebaseConflict}
}

// NewExternalToolError creates an OpError wrapping a failed subprocess
func NewExternalToolError(message string, err error) *OpError {
	return &OpError{Kind: KindExternalTool, Message: message, Remediation: "inspect the attached command output and rerun once resolved", Err: err}
}

// NewAPIError creates an OpError for a code-host API failure
func NewAPIError(message, remediation string, err error) *OpError {
	return &OpError{Kind: KindAPI, Message: message, Remediation: remediation, Err: err}
}

// NewInternalError creates an OpError for an internal-consistency failure.
// These are bugs, reported distinctly from ordinary preconditions.
func NewInternalError(message string, err error) *OpError {
	return &OpError{Kind: KindInternal, Message: message, Remediation: "this is an internal inconsistency; please report it with the output above", Err: err}
}

// KindOf returns the taxonomy kind of err, or an empty Kind if err is not an OpError
func KindOf(err error) Kind {
	var opErr *OpError
	if errors.As(err, &opErr) {
		return opErr.Kind
	}
	return ""
}

// ValidationError aggregates every blocking issue found during a read-only
// validation phase, so the user sees all of them at once rather than
// one-at-a-time across repeated invocations.
type ValidationError struct {
	Failures []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%d validation failure(s):\n  - %s", len(e.Failures), strings.Join(e.Failures, "\n  - "))
}

// BranchNotFoundError represents an error when a branch is not found
type BranchNotFoundError struct {
	BranchName string
}

func (e *BranchNotFoundError) Error() string {
	return fmt.Sprintf("branch %s does not exist", e.BranchName)
}

// Is returns true if the target error is ErrBranchNotFound
func (e *BranchNotFoundError) Is(target error) bool {
	return target == ErrBranchNotFound
}

// NewBranchNotFoundError creates a new BranchNotFoundError
func NewBranchNotFoundError(branchName string) *BranchNotFoundError {
	return &BranchNotFoundError{BranchName: branchName}
}

// CommandError represents an error from an external command execution
// (git, gt, or any other subprocess the orchestrator drives). The failing
// command's output is attached verbatim.
type CommandError struct {
	Command string
	Args    []string
	Stdout  string
	Stderr  string
	Err     error
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("%s command failed", e.Command)
	if len(e.Args) > 0 {
		msg += fmt.Sprintf(" %v", e.Args)
	}
	if e.Stderr != "" {
		msg += fmt.Sprintf("\nstderr: %s", e.Stderr)
	}
	if e.Stdout != "" {
		msg += fmt.Sprintf("\nstdout: %s", e.Stdout)
	}
	if e.Err != nil {
		msg += fmt.Sprintf("\n%v", e.Err)
	}
	return msg
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// NewCommandError creates a new CommandError
func NewCommandError(command string, args []string, stdout, stderr string, err error) *CommandError {
	return &CommandError{
		Command: command,
		Args:    args,
		Stdout:  stdout,
		Stderr:  stderr,
		Err:     err,
	}
}
