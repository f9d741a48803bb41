// Package worktree provides Git worktree management operations.
//
// This package wraps Git CLI commands (via os/exec) to create, list,
// remove, and inspect Git worktrees, and to answer the two location
// queries the store needs: the common git directory shared by all
// worktrees, and the top-level directory of the current worktree.
//
// Design decisions:
//   - We shell out to `git` rather than using a Go Git library (e.g., go-git)
//     because worktree operations require full Git CLI compatibility, and
//     go-git's worktree support is limited.
//   - Queries about a location (common dir, top level, branch) run with
//     `git -C <path>`. Repository-wide operations (add, list, remove) run
//     with `git --git-dir <common-dir>`, which works the same from a
//     conventional clone, from a linked worktree, and from the root of a
//     bare-repository layout where there is no work tree at all.
//   - All errors from Git commands are wrapped in model.CLIError with
//     ExitGitError to enable proper CLI exit code handling.
package worktree

import (
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/shinji-kodama/ws/internal/model"
)

// WorktreeInfo holds metadata about a single Git worktree entry
// as parsed from `git worktree list --porcelain` output.
//
// Example porcelain output for a single worktree block:
//
//	worktree /path/to/feature-branch
//	HEAD abc123def456
//	branch refs/heads/feature-branch
type WorktreeInfo struct {
	// Path is the absolute filesystem path to the worktree directory.
	Path string `json:"path"`

	// Branch is the full branch reference (e.g., "refs/heads/main").
	// Empty if the worktree is in a detached HEAD state.
	Branch string `json:"branch,omitempty"`

	// HEAD is the commit SHA that the worktree currently points to.
	// Empty for an orphan branch without commits.
	HEAD string `json:"head,omitempty"`

	// IsBare indicates whether this entry is the bare repository itself.
	// Bare entries have no working files and are skipped by the store.
	IsBare bool `json:"bare,omitempty"`
}

// ShortBranch returns the branch name without the refs/heads/ prefix.
func (w WorktreeInfo) ShortBranch() string {
	return strings.TrimPrefix(w.Branch, "refs/heads/")
}

// ShortHEAD returns the abbreviated commit SHA.
func (w WorktreeInfo) ShortHEAD() string {
	if len(w.HEAD) > 7 {
		return w.HEAD[:7]
	}
	return w.HEAD
}

// Manager provides Git worktree operations by invoking the git CLI.
//
// It is stateless — all methods receive the path or git directory they
// operate on. GitBinary may be overridden (tests, non-standard installs);
// an empty value means "git" from PATH.
type Manager struct {
	GitBinary string
}

// NewManager creates a new worktree Manager instance.
//
// There is no initialization logic; the zero GitBinary resolves "git"
// from PATH on every call, so a Manager can be created before git is
// known to be installed.
func NewManager() *Manager {
	return &Manager{}
}

// CommonDir returns the absolute path of the git directory shared by every
// worktree of the repository containing path (`git rev-parse
// --git-common-dir`). For a conventional clone this is `<root>/.git`; for
// a bare layout it is the bare directory, e.g. `<root>/.bare`.
func (m *Manager) CommonDir(path string) (string, error) {
	output, err := m.runGit(path, "rev-parse", "--path-format=absolute", "--git-common-dir")
	if err != nil {
		return "", err
	}
	dir := strings.TrimSpace(output)
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(path, dir)
	}
	return dir, nil
}

// TopLevel returns the absolute path to the top-level directory of the
// working tree containing the given path.
//
// Note: For linked worktrees, this returns the worktree root, NOT the main
// repository root. Use CommonDir to reach data shared across worktrees.
func (m *Manager) TopLevel(path string) (string, error) {
	output, err := m.runGit(path, "rev-parse", "--show-toplevel")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(output), nil
}

// GetCurrentBranch returns the name of the currently checked-out branch
// at the given path.
//
// Uses `git rev-parse --abbrev-ref HEAD` which returns the short branch name
// (e.g., "main" instead of "refs/heads/main"). Returns "HEAD" if the
// repository is in a detached HEAD state.
func (m *Manager) GetCurrentBranch(path string) (string, error) {
	output, err := m.runGit(path, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(output), nil
}

// RemoteURL returns the URL of the named remote, or an empty string when
// the remote does not exist.
func (m *Manager) RemoteURL(path, remote string) string {
	output, err := m.runGit(path, "remote", "get-url", remote)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(output)
}

// Add creates a new Git worktree at worktreePath.
//
// This method handles three cases:
//  1. The branch already exists: it is checked out into the new worktree.
//  2. The start point (baseBranch, or HEAD when empty) resolves: a new
//     branch is created from it with `-b`.
//  3. baseBranch is empty and HEAD does not resolve (a freshly initialized
//     repository without commits): an orphan branch is created.
//
// An explicit baseBranch that does not resolve is an error.
func (m *Manager) Add(gitDir, branch, worktreePath, baseBranch string) error {
	// An existing branch cannot be passed to -b (git fails with "already
	// exists"), so it is checked out as is.
	if m.BranchExists(gitDir, branch) {
		_, err := m.runGitDir(gitDir, "worktree", "add", worktreePath, branch)
		return err
	}

	startPoint := baseBranch
	if startPoint == "" {
		startPoint = "HEAD"
	}

	// Build the command arguments for the remaining two cases:
	//   git worktree add -b <branch> <worktreePath> <startPoint>
	//   git worktree add --orphan -b <branch> <worktreePath>
	var args []string
	switch {
	case m.RevisionExists(gitDir, startPoint):
		args = []string{"worktree", "add", "-b", branch, worktreePath, startPoint}
	case baseBranch == "":
		args = []string{"worktree", "add", "--orphan", "-b", branch, worktreePath}
	default:
		return model.NewCLIError(model.ExitGitError,
			fmt.Sprintf("start point %q not found", baseBranch))
	}

	_, err := m.runGitDir(gitDir, args...)
	return err
}

// List returns information about all worktrees of the repository whose
// common git directory is gitDir, including the bare entry if any.
//
// It runs `git worktree list --porcelain` which produces machine-parseable output.
// Each worktree block is separated by a blank line. Within a block, each line
// is a space-separated key-value pair:
//
//	worktree /path/to/dir
//	HEAD abc123
//	branch refs/heads/main
//
// Special markers like "bare" or "detached" appear as standalone keywords.
func (m *Manager) List(gitDir string) ([]WorktreeInfo, error) {
	output, err := m.runGitDir(gitDir, "worktree", "list", "--porcelain")
	if err != nil {
		return nil, err
	}

	return parsePorcelainOutput(output), nil
}

// Remove deletes a Git worktree at the specified path.
//
// This runs `git worktree remove <worktreePath>`, which removes the worktree
// directory and its administrative files. If force is true, the --force flag
// is added to allow removal of worktrees with uncommitted changes.
//
// Note: files linked into the worktree from the store are only links; the
// store's master copies are untouched.
func (m *Manager) Remove(gitDir, worktreePath string, force bool) error {
	args := []string{"worktree", "remove", worktreePath}
	if force {
		// --force allows removing worktrees that have untracked files or
		// uncommitted changes. Without it, git refuses to remove "dirty" worktrees.
		args = []string{"worktree", "remove", "--force", worktreePath}
	}

	_, err := m.runGitDir(gitDir, args...)
	return err
}

// BranchExists checks whether a local branch with the given name exists.
//
// It uses `git show-ref --verify --quiet refs/heads/<branch>` which only
// reports through its exit code, so a tag or remote ref with the same
// name does not count.
func (m *Manager) BranchExists(gitDir, branch string) bool {
	_, err := m.runGitDir(gitDir, "show-ref", "--verify", "--quiet", "refs/heads/"+branch)
	return err == nil
}

// RevisionExists reports whether rev resolves to an object. HEAD does not
// resolve in a repository without commits.
func (m *Manager) RevisionExists(gitDir, rev string) bool {
	_, err := m.runGitDir(gitDir, "rev-parse", "--verify", "--quiet", rev)
	return err == nil
}

// CloneBare clones url as a bare repository into dir (`git clone --bare`).
// When url is empty, an empty bare repository is initialized instead.
func (m *Manager) CloneBare(dir, url string) error {
	args := []string{"init", "--bare", dir}
	if url != "" {
		args = []string{"clone", "--bare", url, dir}
	}
	_, err := m.run("", args...)
	return err
}

// runGit executes a git command in the specified directory via `git -C`.
func (m *Manager) runGit(path string, args ...string) (string, error) {
	return m.run("", append([]string{"-C", path}, args...)...)
}

// runGitDir executes a git command against an explicit git directory.
func (m *Manager) runGitDir(gitDir string, args ...string) (string, error) {
	return m.run(gitDir, append([]string{"--git-dir", gitDir}, args...)...)
}

// run executes git with the given full argument list.
//
// It captures both stdout and stderr. On success (exit code 0), it returns
// the stdout output. On failure, it returns a model.CLIError with ExitGitError
// code, including the stderr output in the error message for debugging.
// dir, when non-empty, becomes the working directory of the process so
// that relative paths in args resolve against it.
func (m *Manager) run(dir string, fullArgs ...string) (string, error) {
	bin := m.GitBinary
	if bin == "" {
		bin = "git"
	}

	// #nosec G204 — args are constructed internally, not from user input
	cmd := exec.Command(bin, fullArgs...)
	if dir != "" {
		cmd.Dir = dir
	}

	// Capture stdout and stderr separately: stdout carries the result,
	// stderr carries git's diagnostic for the error message.
	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		stderrStr := strings.TrimSpace(stderr.String())
		message := fmt.Sprintf("git %s failed", strings.Join(stripLocation(fullArgs), " "))
		if stderrStr != "" {
			message = fmt.Sprintf("%s: %s", message, stderrStr)
		}
		return "", model.WrapCLIError(model.ExitGitError, message, err)
	}

	return stdout.String(), nil
}

// stripLocation drops the leading -C/--git-dir pair from args so error
// messages show the subcommand the user would recognize.
func stripLocation(args []string) []string {
	if len(args) >= 2 && (args[0] == "-C" || args[0] == "--git-dir") {
		return args[2:]
	}
	return args
}

// parsePorcelainOutput parses the output of `git worktree list --porcelain`
// into a slice of WorktreeInfo structs.
//
// The porcelain format uses blank lines to separate worktree blocks.
// Each block contains key-value pairs (space-separated) and optional
// standalone markers like "bare" or "detached".
func parsePorcelainOutput(output string) []WorktreeInfo {
	var worktrees []WorktreeInfo

	lines := strings.Split(strings.TrimRight(output, "\n"), "\n")

	// current is the block being assembled; nil between blocks.
	var current *WorktreeInfo
	for _, line := range lines {
		// A blank line ends the current worktree block.
		if line == "" {
			if current != nil {
				worktrees = append(worktrees, *current)
				current = nil
			}
			continue
		}

		key, value, _ := strings.Cut(line, " ")

		switch key {
		case "worktree":
			current = &WorktreeInfo{Path: value}
		case "HEAD":
			if current != nil {
				current.HEAD = value
			}
		case "branch":
			if current != nil {
				current.Branch = value
			}
		case "bare":
			if current != nil {
				current.IsBare = true
			}
		}
	}

	// The last block is not followed by a blank line once the trailing
	// newline is trimmed.
	if current != nil {
		worktrees = append(worktrees, *current)
	}

	return worktrees
}
