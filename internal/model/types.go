// Package model defines the domain types for the ws CLI.
//
// These types describe the shared file store: the manifest entries, the
// sync strategy of each entry, the derived per-file status, and the tagged
// per-entry outcome of store operations. Only ManifestEntry is persisted
// (as one manifest line); everything else is computed at runtime.
package model

import (
	"errors"
	"fmt"
	"strings"
)

// Strategy is how a tracked file is propagated from the store into a worktree.
type Strategy string

const (
	// StrategySymlink replaces the worktree path with a symlink to the
	// store's master copy. Every worktree shares the same inode.
	StrategySymlink Strategy = "symlink"

	// StrategyCopy keeps an independent copy in each worktree. Changes are
	// moved explicitly with push (worktree -> store) and pull (store -> worktree).
	StrategyCopy Strategy = "copy"
)

// String returns the manifest token for the strategy.
func (s Strategy) String() string {
	return string(s)
}

// IsValid checks whether the Strategy value is one of the known strategies.
func (s Strategy) IsValid() bool {
	switch s {
	case StrategySymlink, StrategyCopy:
		return true
	default:
		return false
	}
}

// ParseStrategy converts a manifest token or flag value to a Strategy.
// Tokens are case-sensitive, matching the manifest format.
func ParseStrategy(s string) (Strategy, error) {
	strategy := Strategy(s)
	if !strategy.IsValid() {
		return "", fmt.Errorf("%w: %q (valid: symlink, copy)", ErrInvalidStrategy, s)
	}
	return strategy, nil
}

// ManifestEntry is one tracked path. Filepath is relative to a worktree root
// and unique within a manifest.
type ManifestEntry struct {
	Strategy Strategy `json:"strategy"`
	Filepath string   `json:"filepath"`
}

// String returns the manifest line for the entry, without the newline.
func (e ManifestEntry) String() string {
	return e.Strategy.String() + ":" + e.Filepath
}

// ParseManifestLine parses a single "strategy:filepath" line. Only the first
// colon is a delimiter, so filepaths may contain further colons.
// ok is false for blank or unparseable lines.
func ParseManifestLine(line string) (entry ManifestEntry, ok bool) {
	if line == "" {
		return ManifestEntry{}, false
	}
	token, path, found := strings.Cut(line, ":")
	if !found || path == "" {
		return ManifestEntry{}, false
	}
	strategy, err := ParseStrategy(token)
	if err != nil {
		return ManifestEntry{}, false
	}
	return ManifestEntry{Strategy: strategy, Filepath: path}, true
}

// FileStatus is the reconciled state of one manifest entry. It is derived
// on demand and never persisted.
type FileStatus string

const (
	StatusOK           FileStatus = "OK"
	StatusMissing      FileStatus = "MISSING"
	StatusMissingStore FileStatus = "MISSING(store)"
	StatusModified     FileStatus = "MODIFIED"
	StatusNotLink      FileStatus = "NOT_LINK"
	StatusWrongLink    FileStatus = "WRONG_LINK"
	StatusError        FileStatus = "ERROR"
	StatusStoreOnly    FileStatus = "(store only)"
)

// String returns the display form of the status.
func (s FileStatus) String() string {
	return string(s)
}

// IsHealthy reports whether no action is needed for the entry.
func (s FileStatus) IsHealthy() bool {
	return s == StatusOK || s == StatusStoreOnly
}

// OutcomeKind tags the result of a per-entry store operation.
type OutcomeKind string

const (
	// OutcomeApplied means the entry was written.
	OutcomeApplied OutcomeKind = "applied"

	// OutcomeSkipped is a deliberate soft outcome (target exists, source
	// missing). It is reported as a warning and does not fail the command.
	OutcomeSkipped OutcomeKind = "skipped"

	// OutcomeFailed is an error scoped to a single entry or worktree that
	// did not abort the overall operation.
	OutcomeFailed OutcomeKind = "failed"
)

// Outcome is the tagged result for a single entry of push, pull, apply,
// or the per-worktree restoration step of untrack.
type Outcome struct {
	// Path is the manifest filepath the outcome refers to.
	Path string `json:"path"`

	// Worktree is set when the outcome is scoped to one worktree
	// (untrack restoration).
	Worktree string `json:"worktree,omitempty"`

	// Strategy is the entry's strategy at the time of the operation.
	Strategy Strategy `json:"strategy"`

	Kind OutcomeKind `json:"kind"`

	// Reason explains a Skipped outcome.
	Reason string `json:"reason,omitempty"`

	// Err is set for Failed outcomes.
	Err error `json:"-"`
}

// Applied builds an Applied outcome.
func Applied(entry ManifestEntry) Outcome {
	return Outcome{Path: entry.Filepath, Strategy: entry.Strategy, Kind: OutcomeApplied}
}

// Skipped builds a Skipped outcome with a reason.
func Skipped(entry ManifestEntry, reason string) Outcome {
	return Outcome{Path: entry.Filepath, Strategy: entry.Strategy, Kind: OutcomeSkipped, Reason: reason}
}

// Failed builds a Failed outcome wrapping err.
func Failed(entry ManifestEntry, err error) Outcome {
	return Outcome{Path: entry.Filepath, Strategy: entry.Strategy, Kind: OutcomeFailed, Err: err}
}

// CountOutcomes returns how many outcomes have the given kind.
func CountOutcomes(outcomes []Outcome, kind OutcomeKind) int {
	n := 0
	for _, o := range outcomes {
		if o.Kind == kind {
			n++
		}
	}
	return n
}

// Sentinel errors for the store's error kinds. They are normally returned
// wrapped in a CLIError that carries the matching exit code, so callers
// should test them with errors.Is.
var (
	ErrNotARepo            = errors.New("not inside a git repository")
	ErrStoreNotInitialized = errors.New("store is not initialized (run 'ws store track' first)")
	ErrFileNotFound        = errors.New("file not found")
	ErrInvalidStrategy     = errors.New("invalid strategy")
	ErrUntrackedFile       = errors.New("file is not tracked")
	ErrNotCopyTracked      = errors.New("file is not tracked with the copy strategy")
	ErrCopyFailed          = errors.New("copy failed")
	ErrManifestIO          = errors.New("manifest I/O failed")
	ErrInvalidPath         = errors.New("invalid tracked path")
)

// ExitCode defines the process exit codes of the CLI. Scripts can use them
// to tell the error kinds apart.
type ExitCode int

const (
	// ExitSuccess indicates the command completed successfully.
	ExitSuccess ExitCode = 0

	// ExitGeneralError indicates an unspecified error occurred.
	ExitGeneralError ExitCode = 1

	// ExitGitError indicates a git command failed.
	ExitGitError ExitCode = 5

	// ExitUserCancelled indicates the user cancelled an interactive prompt.
	ExitUserCancelled ExitCode = 7

	// ExitNotARepo indicates no repository root could be resolved.
	ExitNotARepo ExitCode = 10

	// ExitStoreNotInitialized indicates the store directory or manifest is missing.
	ExitStoreNotInitialized ExitCode = 11

	// ExitFileNotFound indicates the path to track does not exist.
	ExitFileNotFound ExitCode = 12

	// ExitInvalidStrategy indicates an unknown strategy token.
	ExitInvalidStrategy ExitCode = 13

	// ExitUntrackedFile indicates the path is not in the manifest, or is
	// not Copy-tracked for push.
	ExitUntrackedFile ExitCode = 14

	// ExitCopyFailed indicates copying into or out of the store failed.
	ExitCopyFailed ExitCode = 15

	// ExitManifestIO indicates the manifest could not be read or written.
	ExitManifestIO ExitCode = 16

	// ExitConfigError indicates the repository registry could not be
	// loaded, saved, or did not contain the requested entry.
	ExitConfigError ExitCode = 17
)

// CLIError is a custom error type that carries an exit code.
// This allows the CLI layer to translate domain errors into
// appropriate process exit codes.
type CLIError struct {
	// Code is the exit code to return to the OS.
	Code ExitCode

	// Message is the human-readable error description.
	Message string

	// Err is the underlying error, if any.
	Err error
}

// Error satisfies the error interface. It returns the human-readable
// error message, optionally including the underlying error.
func (e *CLIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for use with errors.Is/errors.As.
func (e *CLIError) Unwrap() error {
	return e.Err
}

// NewCLIError creates a new CLIError with the given exit code and message.
func NewCLIError(code ExitCode, message string) *CLIError {
	return &CLIError{Code: code, Message: message}
}

// WrapCLIError creates a new CLIError that wraps an existing error.
func WrapCLIError(code ExitCode, message string, err error) *CLIError {
	return &CLIError{Code: code, Message: message, Err: err}
}

// ExitCodeFor returns the exit code for err. CLIErrors carry their own
// code; bare sentinel errors are mapped to their kind; anything else is a
// general error.
func ExitCodeFor(err error) ExitCode {
	if err == nil {
		return ExitSuccess
	}
	var cliErr *CLIError
	if errors.As(err, &cliErr) {
		return cliErr.Code
	}
	switch {
	case errors.Is(err, ErrNotARepo):
		return ExitNotARepo
	case errors.Is(err, ErrStoreNotInitialized):
		return ExitStoreNotInitialized
	case errors.Is(err, ErrFileNotFound), errors.Is(err, ErrInvalidPath):
		return ExitFileNotFound
	case errors.Is(err, ErrInvalidStrategy):
		return ExitInvalidStrategy
	case errors.Is(err, ErrUntrackedFile), errors.Is(err, ErrNotCopyTracked):
		return ExitUntrackedFile
	case errors.Is(err, ErrCopyFailed):
		return ExitCopyFailed
	case errors.Is(err, ErrManifestIO):
		return ExitManifestIO
	default:
		return ExitGeneralError
	}
}
