package model

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestStrategy_String verifies the manifest tokens of each strategy.
func TestStrategy_String(t *testing.T) {
	assert.Equal(t, "symlink", StrategySymlink.String())
	assert.Equal(t, "copy", StrategyCopy.String())
}

// TestParseStrategy verifies token-to-strategy conversion. Tokens are
// case-sensitive because they are read back from the manifest verbatim.
func TestParseStrategy(t *testing.T) {
	tests := []struct {
		input    string
		expected Strategy
		hasError bool
	}{
		{"symlink", StrategySymlink, false},
		{"copy", StrategyCopy, false},
		{"Symlink", "", true},
		{"hardlink", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result, err := ParseStrategy(tt.input)
			if tt.hasError {
				assert.ErrorIs(t, err, ErrInvalidStrategy)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.expected, result)
			}
		})
	}
}

// TestParseManifestLine covers the tolerant line codec: only the first
// colon delimits, and malformed lines are rejected rather than guessed.
func TestParseManifestLine(t *testing.T) {
	tests := []struct {
		name  string
		line  string
		want  ManifestEntry
		valid bool
	}{
		{"symlink entry", "symlink:.envrc", ManifestEntry{StrategySymlink, ".envrc"}, true},
		{"copy entry", "copy:.mcp.json", ManifestEntry{StrategyCopy, ".mcp.json"}, true},
		{"nested path", "copy:config/local.yml", ManifestEntry{StrategyCopy, "config/local.yml"}, true},
		{"path with colons", "symlink:path:with:colon", ManifestEntry{StrategySymlink, "path:with:colon"}, true},
		{"empty line", "", ManifestEntry{}, false},
		{"no colon", "no_colon_here", ManifestEntry{}, false},
		{"empty strategy", ":empty_strategy", ManifestEntry{}, false},
		{"unknown strategy", "hardlink:.envrc", ManifestEntry{}, false},
		{"empty path", "copy:", ManifestEntry{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseManifestLine(tt.line)
			assert.Equal(t, tt.valid, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

// TestManifestEntry_String verifies that an entry renders back to the
// exact line ParseManifestLine accepts.
func TestManifestEntry_String(t *testing.T) {
	entry := ManifestEntry{Strategy: StrategyCopy, Filepath: "a:b/c"}
	assert.Equal(t, "copy:a:b/c", entry.String())

	parsed, ok := ParseManifestLine(entry.String())
	require.True(t, ok)
	assert.Equal(t, entry, parsed)
}

// TestFileStatus_IsHealthy checks which statuses need no action.
func TestFileStatus_IsHealthy(t *testing.T) {
	assert.True(t, StatusOK.IsHealthy())
	assert.True(t, StatusStoreOnly.IsHealthy())
	for _, s := range []FileStatus{StatusMissing, StatusMissingStore, StatusModified, StatusNotLink, StatusWrongLink, StatusError} {
		assert.False(t, s.IsHealthy(), s.String())
	}
}

// TestOutcomes verifies the tagged outcome constructors and counting.
func TestOutcomes(t *testing.T) {
	entry := ManifestEntry{Strategy: StrategyCopy, Filepath: ".env"}
	boom := errors.New("boom")

	outcomes := []Outcome{
		Applied(entry),
		Skipped(entry, "already exists"),
		Failed(entry, boom),
		Applied(entry),
	}

	assert.Equal(t, 2, CountOutcomes(outcomes, OutcomeApplied))
	assert.Equal(t, 1, CountOutcomes(outcomes, OutcomeSkipped))
	assert.Equal(t, 1, CountOutcomes(outcomes, OutcomeFailed))
	assert.Equal(t, "already exists", outcomes[1].Reason)
	assert.Equal(t, boom, outcomes[2].Err)
	assert.Equal(t, ".env", outcomes[0].Path)
	assert.Equal(t, StrategyCopy, outcomes[0].Strategy)
}

// TestCLIError verifies the custom error type used for exit code mapping.
func TestCLIError(t *testing.T) {
	t.Run("simple error", func(t *testing.T) {
		err := NewCLIError(ExitNotARepo, "run inside a repository")
		assert.Equal(t, ExitNotARepo, err.Code)
		assert.Equal(t, "run inside a repository", err.Error())
		assert.Nil(t, err.Unwrap())
	})

	t.Run("wrapped error", func(t *testing.T) {
		err := WrapCLIError(ExitFileNotFound, "cannot track .envrc", ErrFileNotFound)
		assert.Equal(t, ExitFileNotFound, err.Code)
		assert.Contains(t, err.Error(), "file not found")
		assert.Equal(t, ErrFileNotFound, err.Unwrap())
	})

	t.Run("errors.Is chain", func(t *testing.T) {
		inner := fmt.Errorf("%w: .envrc", ErrUntrackedFile)
		err := WrapCLIError(ExitUntrackedFile, "untrack failed", inner)
		assert.True(t, errors.Is(err, ErrUntrackedFile))
	})
}

// TestExitCodeFor verifies the mapping of errors to process exit codes.
func TestExitCodeFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ExitCode
	}{
		{"nil", nil, ExitSuccess},
		{"cli error keeps its code", NewCLIError(ExitGitError, "git failed"), ExitGitError},
		{"wrapped cli error", fmt.Errorf("outer: %w", NewCLIError(ExitUserCancelled, "cancelled")), ExitUserCancelled},
		{"not a repo", ErrNotARepo, ExitNotARepo},
		{"store not initialized", fmt.Errorf("x: %w", ErrStoreNotInitialized), ExitStoreNotInitialized},
		{"file not found", ErrFileNotFound, ExitFileNotFound},
		{"invalid path", ErrInvalidPath, ExitFileNotFound},
		{"invalid strategy", ErrInvalidStrategy, ExitInvalidStrategy},
		{"untracked", ErrUntrackedFile, ExitUntrackedFile},
		{"not copy tracked", ErrNotCopyTracked, ExitUntrackedFile},
		{"copy failed", ErrCopyFailed, ExitCopyFailed},
		{"manifest io", ErrManifestIO, ExitManifestIO},
		{"other", errors.New("other"), ExitGeneralError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCodeFor(tt.err))
		})
	}
}
