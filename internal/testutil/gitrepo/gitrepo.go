// Package gitrepo provides real-git repository fixtures for tests.
//
// Two layouts are supported, matching the two layouts the store resolver
// must tell apart:
//
//	Clone:  <tmp>/repo/.git + working files in <tmp>/repo
//	Bare:   <tmp>/.bare + worktrees as <tmp>/<name>
//
// Both are created with one initial commit. All paths are canonicalized
// with filepath.EvalSymlinks because t.TempDir() is under a symlinked
// directory on macOS (/var -> /private/var).
//
// Tests using this package require the `git` binary in PATH. When git is
// not available, tests are skipped automatically via t.Skip.
package gitrepo

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// Repo is a temporary repository fixture.
type Repo struct {
	t testing.TB

	// Root is the repository root: the clone directory, or the directory
	// holding .bare for the bare layout.
	Root string

	// GitDir is the common git directory (Root/.git or Root/.bare).
	GitDir string

	// Main is the first worktree (Root itself for a clone, Root/main for
	// the bare layout).
	Main string

	// Bare reports whether the fixture uses the bare layout.
	Bare bool
}

// NewClone creates a conventional repository with one commit.
func NewClone(t testing.TB) *Repo {
	t.Helper()
	requireGit(t)

	root := filepath.Join(canonicalTempDir(t), "repo")
	require.NoError(t, os.MkdirAll(root, 0o755))

	Run(t, root, "init", "-b", "main")
	configureUser(t, root)
	require.NoError(t, os.WriteFile(filepath.Join(root, "README.md"), []byte("# test\n"), 0o644))
	Run(t, root, "add", ".")
	Run(t, root, "commit", "-m", "initial")

	return &Repo{t: t, Root: root, GitDir: filepath.Join(root, ".git"), Main: root}
}

// NewBare creates a bare `.bare` repository with a `main` worktree holding
// one commit.
func NewBare(t testing.TB) *Repo {
	t.Helper()
	requireGit(t)

	root := canonicalTempDir(t)
	gitDir := filepath.Join(root, ".bare")

	Run(t, root, "init", "--bare", ".bare")
	Run(t, root, "--git-dir", gitDir, "worktree", "add", "--orphan", "-b", "main", filepath.Join(root, "main"))

	mainDir := filepath.Join(root, "main")
	configureUser(t, mainDir)
	require.NoError(t, os.WriteFile(filepath.Join(mainDir, "README.md"), []byte("# test\n"), 0o644))
	Run(t, mainDir, "add", ".")
	Run(t, mainDir, "commit", "-m", "initial")

	return &Repo{t: t, Root: root, GitDir: gitDir, Main: mainDir, Bare: true}
}

// AddWorktree creates a linked worktree on a new branch and returns its
// canonical path. For the bare layout it is placed under Root, otherwise
// next to the clone.
func (r *Repo) AddWorktree(name string) string {
	r.t.Helper()

	parent := r.Root
	if !r.Bare {
		parent = filepath.Dir(r.Root)
	}
	path := filepath.Join(parent, name)
	Run(r.t, r.Root, "--git-dir", r.GitDir, "worktree", "add", "-b", name, path)
	return path
}

// StoreDir returns the store directory the resolver is expected to derive.
func (r *Repo) StoreDir() string {
	return filepath.Join(r.GitDir, "worktree-store")
}

// WriteFile writes content to rel under dir, creating parent directories.
func (r *Repo) WriteFile(dir, rel, content string) string {
	r.t.Helper()
	path := filepath.Join(dir, rel)
	require.NoError(r.t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(r.t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// Run is a test helper that runs a git command in the specified directory
// and fails the test immediately if the command exits with a non-zero status.
func Run(t testing.TB, dir string, args ...string) string {
	t.Helper()

	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), "GIT_CONFIG_NOSYSTEM=1", "LC_ALL=C")
	output, err := cmd.CombinedOutput()
	require.NoError(t, err, "git %v failed: %s", args, string(output))
	return string(output)
}

// configureUser sets a local identity so commits work in CI environments
// where global git config may not be set.
func configureUser(t testing.TB, dir string) {
	t.Helper()
	Run(t, dir, "config", "user.email", "test@example.com")
	Run(t, dir, "config", "user.name", "Test User")
}

func canonicalTempDir(t testing.TB) string {
	t.Helper()
	dir, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	return dir
}

func requireGit(t testing.TB) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git binary not in PATH, skipping test")
	}
}
